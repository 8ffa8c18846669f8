package filesystem

import (
	"io"

	"github.com/jmgilman/go/flashfs/errors"
)

// fsOps are the filesystem level operations every backend implements.
type fsOps interface {
	init() error
	free() error
	format() error
	mount() error
	unmount() error
	wipe() error
}

// fileOps are the file level operations every backend implements. Handles
// passed in are valid; open handles are in use, the others are free.
type fileOps interface {
	open(h Handle, name string, mode OpenMode, flags OpenFlags) error
	close(h Handle) error
	read(h Handle, offset int64, p []byte) error
	write(h Handle, offset int64, p []byte) error
	remove(name string) error
	size(name string) (int64, error)
}

type backend interface {
	fsOps
	fileOps
}

// backends is the dispatch table consulted once by New.
var backends = map[Type]func(*FileSystem) backend{
	TypeLittleFs: newLittleFs,
	TypeFatFs:    newFatFs,
	TypeSpifFs:   newSpifFs,
}

// seekTo positions f at offset. Landing anywhere else aborts the transfer.
func (fs *FileSystem) seekTo(f any, offset int64, what string) error {
	s, ok := f.(io.Seeker)
	if !ok {
		return errors.Newf(errors.CodeNotSupported, "%s file cannot seek", what)
	}
	pos, err := s.Seek(offset, io.SeekStart)
	if err != nil {
		code := errors.CodeGeneric
		if errors.HasCode(err, errors.CodeAborted) {
			code = errors.CodeAborted
		}
		return fs.result(err).err(code, what+" seek failed")
	}
	if pos != offset {
		return errors.WithContextMap(
			errors.Newf(errors.CodeAborted, "%s seek landed at %d instead of %d", what, pos, offset),
			map[string]interface{}{"offset": offset, "position": pos},
		)
	}
	return nil
}

// transferred checks a file read or write moved exactly want bytes.
func (fs *FileSystem) transferred(what string, n, want int, err error) error {
	if err != nil && !(errors.Is(err, io.EOF) && n == want) {
		if errors.Is(err, io.EOF) {
			return fs.result(err).err(errors.CodeAborted, what+" hit end of file")
		}
		return fs.result(err).err(errors.CodeGeneric, what+" failed")
	}
	if n != want {
		short := errors.Newf(errors.CodeAborted, "%s transferred %d of %d bytes", what, n, want)
		return fs.result(short).err(errors.CodeAborted, what+" was short")
	}
	return nil
}

// notFoundOr picks CodeNotFound for missing files and code otherwise.
func notFoundOr(missing bool, code errors.ErrorCode) errors.ErrorCode {
	if missing {
		return errors.CodeNotFound
	}
	return code
}

// readOnlyConflict reports flags that need write access.
func readOnlyConflict(mode OpenMode, flags OpenFlags) bool {
	return mode == ModeReadOnly && flags&(FlagCreate|FlagTruncate|FlagAppend) != 0
}

func unsupportedFlags(backend Type, mode OpenMode, flags OpenFlags) error {
	return errors.WithContextMap(
		errors.Newf(errors.CodeNotSupported, "%s cannot open %s with flags %#x", backend, mode, uint32(flags)),
		map[string]interface{}{"mode": mode.String(), "flags": uint32(flags)},
	)
}

// modeDenies rejects a transfer the access mode of the handle does not allow.
func modeDenies(backend Type, mode OpenMode, write bool) error {
	op, allowed := "read", mode != ModeWriteOnly
	if write {
		op, allowed = "write", mode != ModeReadOnly
	}
	if allowed {
		return nil
	}
	return errors.WithContext(
		errors.Newf(errors.CodeNotSupported, "%s cannot %s a %s handle", backend, op, mode),
		"mode", mode.String(),
	)
}
