package filesystem

import (
	"os"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/littlefs"

	"github.com/jmgilman/go/flashfs/errors"
)

// lfsErrNoEnt is the library's code for a missing entry.
const lfsErrNoEnt = -2

func lfsMissing(err error) bool {
	var e littlefs.Error
	return errors.As(err, &e) && int(e) == lfsErrNoEnt
}

// littleFs adapts the littlefs library.
type littleFs struct {
	fs     *FileSystem
	params LittleFsFormat
	dev    *blockDevice
	lfs    *littlefs.LFS
	files  [MaxHandles]tinyfs.File
	modes  [MaxHandles]OpenMode
}

func newLittleFs(fs *FileSystem) backend {
	return &littleFs{fs: fs}
}

func (l *littleFs) init() error {
	params, err := formatOf(l.fs.cfg.Format, DefaultLittleFsFormat())
	if err != nil {
		return err
	}
	params = params.withDefaults()
	if err := params.validate(l.fs.cfg.Size); err != nil {
		return err
	}
	if err := checkTransfer(params.BlockSize, l.fs.cfg.Storage.Dataport, "littlefs block size"); err != nil {
		return err
	}

	l.params = params
	l.dev = &blockDevice{
		fs:        l.fs,
		size:      l.fs.cfg.Size,
		writeSize: params.ProgSize,
		eraseSize: params.BlockSize,
	}
	l.lfs = littlefs.New(l.dev).Configure(&littlefs.Config{
		CacheSize:     uint32(params.CacheSize),
		LookaheadSize: uint32(params.LookaheadSize),
		BlockCycles:   int32(params.BlockCycles),
	})
	l.fs.log.Debug("littlefs configured",
		"blocks", l.dev.blocks(),
		"block_size", params.BlockSize,
		"prog_size", params.ProgSize,
		"cache_size", params.CacheSize,
	)
	return nil
}

func (p LittleFsFormat) validate(size int64) error {
	if err := checkAligned(size, p.BlockSize, "block size"); err != nil {
		return err
	}
	switch {
	case size/p.BlockSize < 2:
		return errors.Newf(errors.CodeInvalidParameter, "littlefs needs at least 2 blocks, got %d", size/p.BlockSize)
	case p.ProgSize <= 0 || p.CacheSize%p.ProgSize != 0:
		return errors.Newf(errors.CodeInvalidParameter, "cache size %d is not a multiple of prog size %d", p.CacheSize, p.ProgSize)
	case p.CacheSize <= 0 || p.BlockSize%p.CacheSize != 0:
		return errors.Newf(errors.CodeInvalidParameter, "block size %d is not a multiple of cache size %d", p.BlockSize, p.CacheSize)
	case p.LookaheadSize <= 0 || p.LookaheadSize%8 != 0:
		return errors.Newf(errors.CodeInvalidParameter, "lookahead size %d is not a multiple of 8", p.LookaheadSize)
	case p.BlockCycles < -1:
		return errors.Newf(errors.CodeInvalidParameter, "invalid block cycles %d", p.BlockCycles)
	}
	return nil
}

func (l *littleFs) free() error {
	l.lfs = nil
	l.dev = nil
	return nil
}

func (l *littleFs) format() error {
	return l.fs.result(l.lfs.Format()).err(errors.CodeGeneric, "littlefs format failed")
}

func (l *littleFs) mount() error {
	return l.fs.result(l.lfs.Mount()).err(errors.CodeNotFound, "no littlefs filesystem on storage")
}

func (l *littleFs) unmount() error {
	return l.fs.result(l.lfs.Unmount()).err(errors.CodeGeneric, "littlefs unmount failed")
}

// wipe erases every block of the filesystem.
func (l *littleFs) wipe() error {
	return l.dev.EraseBlocks(0, l.dev.blocks())
}

func (l *littleFs) open(h Handle, name string, mode OpenMode, flags OpenFlags) error {
	osFlags, err := littleFsFlags(mode, flags)
	if err != nil {
		return err
	}
	f, err := l.lfs.OpenFile(name, osFlags)
	if err != nil {
		return l.fs.result(err).err(notFoundOr(lfsMissing(err), errors.CodeGeneric), "littlefs open failed")
	}
	l.files[h] = f
	l.modes[h] = mode
	return nil
}

// littleFsFlags maps a mode and flags onto the os flags the library
// translates. os.O_RDONLY is zero and never reaches the library, so the
// adapter enforces read-only handles itself.
func littleFsFlags(mode OpenMode, flags OpenFlags) (int, error) {
	if readOnlyConflict(mode, flags) {
		return 0, unsupportedFlags(TypeLittleFs, mode, flags)
	}

	var f int
	switch mode {
	case ModeReadOnly:
		f = os.O_RDONLY
	case ModeWriteOnly:
		f = os.O_WRONLY
	case ModeReadWrite:
		f = os.O_RDWR
	}
	if flags&FlagCreate != 0 {
		f |= os.O_CREATE
	}
	if flags&FlagExclusive != 0 {
		f |= os.O_EXCL
	}
	if flags&FlagTruncate != 0 {
		f |= os.O_TRUNC
	}
	if flags&FlagAppend != 0 {
		f |= os.O_APPEND
	}
	return f, nil
}

func (l *littleFs) close(h Handle) error {
	if err := l.files[h].Close(); err != nil {
		return l.fs.result(err).err(errors.CodeGeneric, "littlefs close failed")
	}
	l.files[h] = nil
	return nil
}

func (l *littleFs) read(h Handle, offset int64, p []byte) error {
	if err := modeDenies(TypeLittleFs, l.modes[h], false); err != nil {
		return err
	}
	f := l.files[h]
	if err := l.fs.seekTo(f, offset, "littlefs"); err != nil {
		return err
	}
	n, err := f.Read(p)
	return l.fs.transferred("littlefs read", n, len(p), err)
}

func (l *littleFs) write(h Handle, offset int64, p []byte) error {
	if err := modeDenies(TypeLittleFs, l.modes[h], true); err != nil {
		return err
	}
	f := l.files[h]
	if err := l.fs.seekTo(f, offset, "littlefs"); err != nil {
		return err
	}
	n, err := f.Write(p)
	return l.fs.transferred("littlefs write", n, len(p), err)
}

func (l *littleFs) remove(name string) error {
	err := l.lfs.Remove(name)
	return l.fs.result(err).err(notFoundOr(lfsMissing(err), errors.CodeGeneric), "littlefs remove failed")
}

func (l *littleFs) size(name string) (int64, error) {
	info, err := l.lfs.Stat(name)
	if err != nil {
		return 0, l.fs.result(err).err(notFoundOr(lfsMissing(err), errors.CodeGeneric), "littlefs stat failed")
	}
	return info.Size(), nil
}
