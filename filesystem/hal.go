package filesystem

import (
	"github.com/jmgilman/go/flashfs/errors"
)

// The trampolines below are the only path from a backend library to
// storage. Each failure is recorded in ioErr so the operation that triggered
// it can report the storage error instead of the library's generic one.

// storageRead fetches len(dst) bytes at addr through the dataport.
func (fs *FileSystem) storageRead(addr int64, dst []byte) error {
	port := fs.cfg.Storage.Dataport
	length := int64(len(dst))
	if length > int64(port.Size()) {
		return fs.recordIO(bufferTooSmall("read", addr, length, port.Size()))
	}

	n, err := fs.cfg.Storage.Read(addr, length)
	if err != nil {
		return fs.recordIO(transferError(storageError(err, "storage read failed"), addr, length))
	}
	if n != length {
		return fs.recordIO(shortTransfer("read", addr, length, n))
	}
	copy(dst, port.Buf()[:length])
	return nil
}

// storageWrite copies src into the dataport and commits it at addr.
func (fs *FileSystem) storageWrite(addr int64, src []byte) error {
	port := fs.cfg.Storage.Dataport
	length := int64(len(src))
	if length > int64(port.Size()) {
		return fs.recordIO(bufferTooSmall("write", addr, length, port.Size()))
	}

	copy(port.Buf(), src)
	n, err := fs.cfg.Storage.Write(addr, length)
	if err != nil {
		return fs.recordIO(transferError(storageError(err, "storage write failed"), addr, length))
	}
	if n != length {
		return fs.recordIO(shortTransfer("write", addr, length, n))
	}
	return nil
}

// storageErase erases length bytes at addr. Erases move no data through
// the dataport.
func (fs *FileSystem) storageErase(addr, length int64) error {
	n, err := fs.cfg.Storage.Erase(addr, length)
	if err != nil {
		return fs.recordIO(transferError(storageError(err, "storage erase failed"), addr, length))
	}
	if n != length {
		return fs.recordIO(shortTransfer("erase", addr, length, n))
	}
	return nil
}

func (fs *FileSystem) recordIO(err error) error {
	fs.ioErr = err
	return err
}

// libResult pairs the error a backend library reported with the storage
// failure captured while it ran.
type libResult struct {
	lib   error
	cause error
}

func (fs *FileSystem) result(lib error) libResult {
	return libResult{lib: lib, cause: fs.ioErr}
}

// err resolves the result into the error returned to the caller. A captured
// storage failure takes precedence over code.
func (r libResult) err(code errors.ErrorCode, message string) error {
	if r.lib == nil {
		return nil
	}
	if r.cause != nil {
		return errors.WithContext(
			errors.Wrap(r.cause, errors.GetCode(r.cause), message),
			"library_error", r.lib.Error(),
		)
	}
	return errors.Wrap(r.lib, code, message)
}

// storageError keeps the code of a storage PlatformError and classifies
// anything else as generic.
func storageError(err error, message string) error {
	var pe errors.PlatformError
	if errors.As(err, &pe) {
		return errors.Wrap(err, pe.Code(), message)
	}
	return errors.Wrap(err, errors.CodeGeneric, message)
}

func transferError(err error, addr, length int64) error {
	return errors.WithContextMap(err, map[string]interface{}{"addr": addr, "length": length})
}

func bufferTooSmall(op string, addr, length int64, capacity int) error {
	return transferError(
		errors.Newf(errors.CodeBufferTooSmall, "storage %s of %d bytes exceeds dataport of %d bytes", op, length, capacity),
		addr, length,
	)
}

func shortTransfer(op string, addr, length, n int64) error {
	return errors.WithContextMap(
		errors.Newf(errors.CodeAborted, "storage %s transferred %d of %d bytes", op, n, length),
		map[string]interface{}{"addr": addr, "length": length, "transferred": n},
	)
}
