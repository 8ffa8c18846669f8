package filesystem

import (
	"log/slog"
	"slices"

	"github.com/jmgilman/go/flashfs/errors"
)

// FileSystem is a filesystem instance bound to one backend and one storage device.
type FileSystem struct {
	cfg     Config
	devSize int64
	backend backend
	files   handleTable
	ioErr   error
	state   State
	log     *slog.Logger
}

// New validates cfg and creates an instance of the configured backend. The
// instance starts out unmounted; Mount or Format it next.
func New(cfg Config, opts ...Option) (*FileSystem, error) {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}

	if err := cfg.Storage.Validate(); err != nil {
		return nil, err
	}

	devSize, err := cfg.Storage.GetSize()
	if err != nil {
		return nil, storageError(err, "failed to query storage size")
	}

	switch {
	case cfg.Size < 0:
		return nil, errors.Newf(errors.CodeInvalidParameter, "invalid filesystem size %d", cfg.Size)
	case cfg.Size == StorageMax:
		cfg.Size = devSize
		o.logger.Info("filesystem size set to storage size", "size", devSize)
	case cfg.Size > devSize:
		return nil, errors.WithContextMap(
			errors.Newf(errors.CodeInsufficientSpace, "filesystem size %d exceeds storage size %d", cfg.Size, devSize),
			map[string]interface{}{"size": cfg.Size, "storage_size": devSize},
		)
	}

	newBackend, ok := backends[cfg.Type]
	if !ok {
		return nil, errors.WithContext(
			errors.Newf(errors.CodeInvalidParameter, "unknown filesystem type %s", cfg.Type),
			"type", int(cfg.Type),
		)
	}

	fs := &FileSystem{
		cfg:     cfg,
		devSize: devSize,
		log:     o.logger.With("fs", cfg.Type.String()),
	}
	fs.backend = newBackend(fs)
	if err := fs.backend.init(); err != nil {
		return nil, fs.fail("init", err)
	}

	fs.state = StateInitialized
	fs.log.Debug("filesystem initialized", "size", cfg.Size)
	return fs, nil
}

// Type returns the backend type.
func (fs *FileSystem) Type() Type {
	return fs.cfg.Type
}

// Size returns the resolved filesystem size in bytes.
func (fs *FileSystem) Size() int64 {
	return fs.cfg.Size
}

// State returns the lifecycle state.
func (fs *FileSystem) State() State {
	return fs.state
}

// OpenHandles returns the number of open files.
func (fs *FileSystem) OpenHandles() int {
	return fs.files.count()
}

// Free releases the backend. The instance is unusable afterwards.
func (fs *FileSystem) Free() error {
	if err := fs.check("free", StateInitialized, StateFormatted, StateUnmounted); err != nil {
		return err
	}
	fs.ioErr = nil
	if err := fs.backend.free(); err != nil {
		return fs.fail("free", err)
	}
	fs.backend = nil
	fs.state = StateFreed
	fs.log.Debug("filesystem freed")
	return nil
}

// Format creates an empty filesystem on the storage.
func (fs *FileSystem) Format() error {
	if err := fs.check("format", StateInitialized, StateFormatted, StateUnmounted); err != nil {
		return err
	}
	fs.ioErr = nil
	if err := fs.backend.format(); err != nil {
		return fs.fail("format", err)
	}
	fs.state = StateFormatted
	fs.log.Info("filesystem formatted", "size", fs.cfg.Size)
	return nil
}

// Mount mounts the filesystem. A device holding no valid filesystem yields
// CodeNotFound, unless a storage transfer failed along the way.
func (fs *FileSystem) Mount() error {
	if err := fs.check("mount", StateInitialized, StateFormatted, StateUnmounted); err != nil {
		return err
	}
	if state, err := fs.cfg.Storage.GetState(); err == nil {
		fs.log.Debug("storage state", "state", uint32(state))
	}
	fs.ioErr = nil
	if err := fs.backend.mount(); err != nil {
		return fs.fail("mount", err)
	}
	fs.state = StateMounted
	fs.log.Debug("filesystem mounted")
	return nil
}

// Unmount unmounts the filesystem. All files must be closed first.
func (fs *FileSystem) Unmount() error {
	if err := fs.check("unmount", StateMounted); err != nil {
		return err
	}
	if n := fs.files.count(); n > 0 {
		return errors.WithContext(
			errors.Newf(errors.CodeInvalidState, "cannot unmount with %d open files", n),
			"open_files", n,
		)
	}
	fs.ioErr = nil
	if err := fs.backend.unmount(); err != nil {
		return fs.fail("unmount", err)
	}
	fs.state = StateUnmounted
	fs.log.Debug("filesystem unmounted")
	return nil
}

// Wipe erases the filesystem region of the storage. Backends that cannot
// wipe return CodeNotSupported.
func (fs *FileSystem) Wipe() error {
	if err := fs.check("wipe", StateInitialized, StateFormatted, StateUnmounted); err != nil {
		return err
	}
	fs.ioErr = nil
	if err := fs.backend.wipe(); err != nil {
		return fs.fail("wipe", err)
	}
	fs.state = StateInitialized
	fs.log.Info("filesystem wiped", "size", fs.cfg.Size)
	return nil
}

// check guards an operation on the lifecycle state.
func (fs *FileSystem) check(op string, allowed ...State) error {
	if fs == nil {
		return errors.WithContext(errors.New(errors.CodeInvalidParameter, "filesystem is nil"), "op", op)
	}
	if slices.Contains(allowed, fs.state) {
		return nil
	}
	return errors.WithContextMap(
		errors.Newf(errors.CodeInvalidState, "cannot %s a %s filesystem", op, fs.state),
		map[string]interface{}{"op": op, "state": fs.state.String()},
	)
}

// fail logs a backend failure and returns it.
func (fs *FileSystem) fail(op string, err error, attrs ...any) error {
	attrs = append(attrs, "op", op, "code", string(errors.GetCode(err)), "error", err)
	fs.log.Error("filesystem operation failed", attrs...)
	return err
}
