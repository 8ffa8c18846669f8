package billyfs

import (
	"io"
	"os"

	"github.com/go-git/go-billy/v5"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/filesystem"
)

// File is an open flashfs file with its own offset.
type File struct {
	fs     *filesystem.FileSystem
	h      filesystem.Handle
	name   string
	pos    int64
	size   int64
	append bool
	closed bool
}

// Name returns the name passed to Open.
func (f *File) Name() string {
	return f.name
}

func (f *File) Read(p []byte) (int, error) {
	n, err := f.ReadAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

// ReadAt reads up to len(p) bytes at off and returns io.EOF when the file
// ends first.
func (f *File) ReadAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, &os.PathError{Op: "read", Path: f.name, Err: os.ErrInvalid}
	}
	if off >= f.size {
		return 0, io.EOF
	}

	n := min(int64(len(p)), f.size-off)
	if n > 0 {
		if err := f.fs.Read(f.h, off, p[:n]); err != nil {
			return 0, pathError("read", f.name, err)
		}
	}
	if n < int64(len(p)) {
		return int(n), io.EOF
	}
	return int(n), nil
}

func (f *File) Write(p []byte) (int, error) {
	if f.append {
		f.pos = f.size
	}
	n, err := f.WriteAt(p, f.pos)
	f.pos += int64(n)
	return n, err
}

func (f *File) WriteAt(p []byte, off int64) (int, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	if off < 0 {
		return 0, &os.PathError{Op: "write", Path: f.name, Err: os.ErrInvalid}
	}
	if len(p) == 0 {
		return 0, nil
	}
	if err := f.fs.Write(f.h, off, p); err != nil {
		return 0, pathError("write", f.name, err)
	}
	f.size = max(f.size, off+int64(len(p)))
	return len(p), nil
}

func (f *File) Seek(offset int64, whence int) (int64, error) {
	if f.closed {
		return 0, os.ErrClosed
	}
	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = f.pos
	case io.SeekEnd:
		base = f.size
	default:
		return 0, &os.PathError{Op: "seek", Path: f.name, Err: os.ErrInvalid}
	}
	if base+offset < 0 {
		return 0, &os.PathError{Op: "seek", Path: f.name, Err: os.ErrInvalid}
	}
	f.pos = base + offset
	return f.pos, nil
}

func (f *File) Close() error {
	if f.closed {
		return os.ErrClosed
	}
	if err := f.fs.Close(f.h); err != nil {
		return pathError("close", f.name, err)
	}
	f.closed = true
	return nil
}

// Lock is a no-op; instances are single-threaded.
func (f *File) Lock() error { return nil }

// Unlock is a no-op.
func (f *File) Unlock() error { return nil }

// Truncate only accepts the current size.
func (f *File) Truncate(size int64) error {
	if size == f.size {
		return nil
	}
	return &os.PathError{
		Op:   "truncate",
		Path: f.name,
		Err:  errors.WithContext(errors.New(errors.CodeNotSupported, "truncate to arbitrary size"), "size", size),
	}
}

var _ billy.File = (*File)(nil)
