// Package filesystem provides a uniform file API over interchangeable
// embedded filesystem backends.
//
// Three backends are available: a log-structured flash filesystem
// (TypeLittleFs), a FAT-compatible filesystem (TypeFatFs) and a SPI NOR
// flash filesystem (TypeSpifFs). Every backend sits on the same
// storage.Interface and reaches the device only through its shared dataport,
// so no single storage transfer ever exceeds the dataport capacity.
//
// Usage:
//
//	port := storage.NewDataport(4096)
//	dev := storage.NewMemory(1<<20, port)
//
//	fs, err := filesystem.New(filesystem.Config{
//	    Type:    filesystem.TypeLittleFs,
//	    Size:    filesystem.StorageMax,
//	    Storage: storage.InterfaceOf(dev),
//	})
//	if err != nil {
//	    return err
//	}
//	defer fs.Free()
//
//	if err := fs.Mount(); errors.GetCode(err) == errors.CodeNotFound {
//	    // no filesystem yet
//	    if err := fs.Format(); err != nil {
//	        return err
//	    }
//	    err = fs.Mount()
//	}
//
//	h, err := fs.Open("boot.cfg", filesystem.ModeReadWrite, filesystem.FlagCreate)
//	err = fs.Write(h, 0, []byte("0123456789"))
//	err = fs.Close(h)
//
// # File Handles
//
// At most MaxHandles files are open at once per instance. A handle is only
// reserved once the backend has opened the file and only released once the
// backend has closed it, so a failed close leaves the handle usable.
//
// # Errors
//
// Every error is an errors.PlatformError. When a storage transfer fails while
// a backend library runs, the storage error code is reported instead of the
// library's generic failure.
//
// # Thread Safety
//
// An instance is not safe for concurrent use. Independent instances on
// independent storage may be used from different goroutines.
package filesystem
