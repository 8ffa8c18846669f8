package filesystem

import (
	"github.com/jmgilman/go/flashfs/errors"
)

// Open opens the named file and returns its handle.
func (fs *FileSystem) Open(name string, mode OpenMode, flags OpenFlags) (Handle, error) {
	if err := fs.check("open", StateMounted); err != nil {
		return NoHandle, err
	}
	if name == "" {
		return NoHandle, errors.New(errors.CodeInvalidParameter, "file name is empty")
	}
	if !mode.valid() {
		return NoHandle, errors.Newf(errors.CodeInvalidParameter, "invalid open mode %d", int(mode))
	}
	if !flags.valid() {
		return NoHandle, errors.Newf(errors.CodeInvalidParameter, "invalid open flags %#x", uint32(flags))
	}

	h := fs.files.findFree()
	if h == MaxHandles {
		return NoHandle, errors.WithContext(
			errors.Newf(errors.CodeOutOfBounds, "all %d file handles are in use", MaxHandles),
			"name", name,
		)
	}

	fs.ioErr = nil
	if err := fs.backend.open(h, name, mode, flags); err != nil {
		return NoHandle, fs.fail("open", errors.WithContext(err, "name", name), "name", name)
	}
	fs.files.take(h)
	return h, nil
}

// Close closes an open file. The handle stays open if the backend fails to close it.
func (fs *FileSystem) Close(h Handle) error {
	if err := fs.checkHandle("close", h); err != nil {
		return err
	}
	fs.ioErr = nil
	if err := fs.backend.close(h); err != nil {
		return fs.fail("close", errors.WithContext(err, "handle", int(h)), "handle", int(h))
	}
	fs.files.release(h)
	return nil
}

// Read fills buf with the file contents at offset. Anything less than
// len(buf) bytes fails with CodeAborted.
func (fs *FileSystem) Read(h Handle, offset int64, buf []byte) error {
	if err := fs.checkTransfer("read", h, offset, buf); err != nil {
		return err
	}
	fs.ioErr = nil
	if err := fs.backend.read(h, offset, buf); err != nil {
		return fs.fail("read", errors.WithContextMap(err, map[string]interface{}{"handle": int(h), "offset": offset}), "handle", int(h))
	}
	return nil
}

// Write writes buf to the file at offset. Anything less than len(buf)
// bytes fails with CodeAborted.
func (fs *FileSystem) Write(h Handle, offset int64, buf []byte) error {
	if err := fs.checkTransfer("write", h, offset, buf); err != nil {
		return err
	}
	fs.ioErr = nil
	if err := fs.backend.write(h, offset, buf); err != nil {
		return fs.fail("write", errors.WithContextMap(err, map[string]interface{}{"handle": int(h), "offset": offset}), "handle", int(h))
	}
	return nil
}

// Delete removes the named file.
func (fs *FileSystem) Delete(name string) error {
	if err := fs.check("delete", StateMounted); err != nil {
		return err
	}
	if name == "" {
		return errors.New(errors.CodeInvalidParameter, "file name is empty")
	}
	fs.ioErr = nil
	if err := fs.backend.remove(name); err != nil {
		return fs.fail("delete", errors.WithContext(err, "name", name), "name", name)
	}
	return nil
}

// FileSize returns the size of the named file in bytes.
func (fs *FileSystem) FileSize(name string) (int64, error) {
	if err := fs.check("stat", StateMounted); err != nil {
		return 0, err
	}
	if name == "" {
		return 0, errors.New(errors.CodeInvalidParameter, "file name is empty")
	}
	fs.ioErr = nil
	size, err := fs.backend.size(name)
	if err != nil {
		return 0, fs.fail("stat", errors.WithContext(err, "name", name), "name", name)
	}
	return size, nil
}

func (fs *FileSystem) checkHandle(op string, h Handle) error {
	if err := fs.check(op, StateMounted); err != nil {
		return err
	}
	if !fs.files.inUse(h) {
		return errors.WithContext(
			errors.Newf(errors.CodeInvalidHandle, "handle %d is not open", int(h)),
			"handle", int(h),
		)
	}
	return nil
}

func (fs *FileSystem) checkTransfer(op string, h Handle, offset int64, buf []byte) error {
	if err := fs.checkHandle(op, h); err != nil {
		return err
	}
	if buf == nil {
		return errors.New(errors.CodeInvalidParameter, "buffer is nil")
	}
	if offset < 0 {
		return errors.Newf(errors.CodeInvalidParameter, "invalid offset %d", offset)
	}
	return nil
}
