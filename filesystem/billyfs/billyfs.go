package billyfs

import (
	"os"
	"path"
	"time"

	"github.com/go-git/go-billy/v5"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/filesystem"
)

// FS adapts a mounted FileSystem to billy.Basic.
type FS struct {
	fs *filesystem.FileSystem
}

// New wraps fs, which must be mounted before use.
func New(fs *filesystem.FileSystem) *FS {
	return &FS{fs: fs}
}

// Unwrap returns the underlying filesystem.
func (b *FS) Unwrap() *filesystem.FileSystem {
	return b.fs
}

func (b *FS) Create(name string) (billy.File, error) {
	return b.OpenFile(name, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o666)
}

func (b *FS) Open(name string) (billy.File, error) {
	return b.OpenFile(name, os.O_RDONLY, 0)
}

// OpenFile opens name with os flags. The permission bits are ignored.
func (b *FS) OpenFile(name string, flag int, _ os.FileMode) (billy.File, error) {
	name = normalize(name)
	mode, flags := translate(flag)

	if b.fs.Type() == filesystem.TypeFatFs {
		var err error
		if flags, err = b.fatFlags(name, flags); err != nil {
			return nil, pathError("open", name, err)
		}
	}

	h, err := b.fs.Open(name, mode, flags)
	if err != nil {
		return nil, pathError("open", name, err)
	}
	size, err := b.sizeAtOpen(name, flags)
	if err != nil {
		_ = b.fs.Close(h)
		return nil, pathError("open", name, err)
	}
	return &File{fs: b.fs, h: h, name: name, size: size, append: flag&os.O_APPEND != 0}, nil
}

// sizeAtOpen returns the starting size of a freshly opened file. A truncated
// file may still stat at its old size until it is closed.
func (b *FS) sizeAtOpen(name string, flags filesystem.OpenFlags) (int64, error) {
	truncated := flags&filesystem.FlagTruncate != 0
	if b.fs.Type() == filesystem.TypeFatFs {
		truncated = flags&filesystem.FlagCreate != 0
	}
	if truncated {
		return 0, nil
	}
	return b.fs.FileSize(name)
}

// fatFlags rewrites flags for a backend whose create always truncates and
// which has no exclusive or truncate flag.
func (b *FS) fatFlags(name string, flags filesystem.OpenFlags) (filesystem.OpenFlags, error) {
	create := flags&filesystem.FlagCreate != 0
	trunc := flags&filesystem.FlagTruncate != 0
	excl := flags&filesystem.FlagExclusive != 0
	flags &^= filesystem.FlagCreate | filesystem.FlagTruncate | filesystem.FlagExclusive

	_, err := b.fs.FileSize(name)
	exists := err == nil
	if err != nil && errors.GetCode(err) != errors.CodeNotFound {
		return 0, err
	}

	switch {
	case exists && create && excl:
		return 0, os.ErrExist
	case exists && trunc, !exists && create:
		flags |= filesystem.FlagCreate
	}
	return flags, nil
}

func (b *FS) Stat(name string) (os.FileInfo, error) {
	name = normalize(name)
	size, err := b.fs.FileSize(name)
	if err != nil {
		return nil, pathError("stat", name, err)
	}
	return &fileInfo{name: path.Base(name), size: size}, nil
}

// Rename copies oldpath to newpath and removes oldpath. None of the
// backends renames in place through this API, so the copy is not atomic.
func (b *FS) Rename(oldpath, newpath string) error {
	oldpath, newpath = normalize(oldpath), normalize(newpath)
	data, err := b.fs.ReadFile(oldpath)
	if err != nil {
		return pathError("rename", oldpath, err)
	}
	if err := b.fs.WriteFile(newpath, data); err != nil {
		return pathError("rename", newpath, err)
	}
	if err := b.fs.Delete(oldpath); err != nil {
		return pathError("rename", oldpath, err)
	}
	return nil
}

func (b *FS) Remove(name string) error {
	name = normalize(name)
	if err := b.fs.Delete(name); err != nil {
		return pathError("remove", name, err)
	}
	return nil
}

func (b *FS) Join(elem ...string) string {
	return path.Join(elem...)
}

func translate(flag int) (filesystem.OpenMode, filesystem.OpenFlags) {
	mode := filesystem.ModeReadOnly
	switch flag & (os.O_RDONLY | os.O_WRONLY | os.O_RDWR) {
	case os.O_WRONLY:
		mode = filesystem.ModeWriteOnly
	case os.O_RDWR:
		mode = filesystem.ModeReadWrite
	}

	var flags filesystem.OpenFlags
	if flag&os.O_CREATE != 0 {
		flags |= filesystem.FlagCreate
	}
	if flag&os.O_EXCL != 0 {
		flags |= filesystem.FlagExclusive
	}
	if flag&os.O_TRUNC != 0 {
		flags |= filesystem.FlagTruncate
	}
	if flag&os.O_APPEND != 0 {
		flags |= filesystem.FlagAppend
	}
	return mode, flags
}

// normalize strips the leading slash billy callers often pass.
func normalize(name string) string {
	name = path.Clean("/" + name)
	if name == "/" {
		return name
	}
	return name[1:]
}

func pathError(op, name string, err error) error {
	if errors.GetCode(err) == errors.CodeNotFound {
		err = os.ErrNotExist
	}
	return &os.PathError{Op: op, Path: name, Err: err}
}

type fileInfo struct {
	name string
	size int64
}

func (fi *fileInfo) Name() string       { return fi.name }
func (fi *fileInfo) Size() int64        { return fi.size }
func (fi *fileInfo) Mode() os.FileMode  { return 0o644 }
func (fi *fileInfo) ModTime() time.Time { return time.Time{} }
func (fi *fileInfo) IsDir() bool        { return false }
func (fi *fileInfo) Sys() interface{}   { return nil }

var _ billy.Basic = (*FS)(nil)
