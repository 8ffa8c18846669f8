package filesystem

import (
	"io"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/internal/spiffs"
)

// spifFs adapts the SPI flash engine.
type spifFs struct {
	fs     *FileSystem
	params SpifFsFormat
	cfg    spiffs.Config
	work   []byte
	cache  []byte
	engine *spiffs.FS
	files  [MaxHandles]*spiffsFile
	modes  [MaxHandles]OpenMode
}

func newSpifFs(fs *FileSystem) backend {
	return &spifFs{fs: fs}
}

func (s *spifFs) init() error {
	params, err := formatOf(s.fs.cfg.Format, DefaultSpifFsFormat())
	if err != nil {
		return err
	}
	params = params.withDefaults()
	if err := params.validate(s.fs.cfg.Size, s.fs.devSize); err != nil {
		return err
	}
	if err := checkTransfer(params.LogPageSize, s.fs.cfg.Storage.Dataport, "spiffs page size"); err != nil {
		return err
	}

	s.params = params
	s.cfg = spiffs.Config{
		PhysSize:       uint32(s.fs.cfg.Size),
		PhysAddr:       uint32(params.PhysAddr),
		PhysEraseBlock: uint32(params.PhysEraseBlock),
		LogBlockSize:   uint32(params.LogBlockSize),
		LogPageSize:    uint32(params.LogPageSize),
		HalRead: func(addr uint32, dst []byte) error {
			return s.fs.storageRead(int64(addr), dst)
		},
		HalWrite: func(addr uint32, src []byte) error {
			return s.fs.storageWrite(int64(addr), src)
		},
		HalErase: func(addr, size uint32) error {
			return s.fs.storageErase(int64(addr), int64(size))
		},
	}
	s.work = make([]byte, 2*params.LogPageSize)
	s.cache = nil
	if params.CachePages != NoCache {
		s.cache = make([]byte, spiffs.CacheSize(uint32(params.CachePages), uint32(params.LogPageSize)))
	}
	s.engine = spiffs.New()
	s.fs.log.Debug("spiffs configured",
		"blocks", s.fs.cfg.Size/params.LogBlockSize,
		"block_size", params.LogBlockSize,
		"page_size", params.LogPageSize,
		"phys_addr", params.PhysAddr,
	)
	return nil
}

func (p SpifFsFormat) validate(size, devSize int64) error {
	switch {
	case p.LogPageSize < spiffs.MinPageSize || p.LogPageSize > spiffs.MaxPageSize:
		return errors.Newf(errors.CodeInvalidParameter, "page size %d outside %d..%d", p.LogPageSize, spiffs.MinPageSize, spiffs.MaxPageSize)
	case p.LogPageSize >= p.LogBlockSize:
		return errors.Newf(errors.CodeInvalidParameter, "page size %d must be below block size %d", p.LogPageSize, p.LogBlockSize)
	case p.LogBlockSize%p.LogPageSize != 0:
		return errors.Newf(errors.CodeInvalidParameter, "block size %d is not a multiple of page size %d", p.LogBlockSize, p.LogPageSize)
	case p.PhysEraseBlock <= 0 || p.LogBlockSize%p.PhysEraseBlock != 0:
		return errors.Newf(errors.CodeInvalidParameter, "block size %d is not a multiple of erase block %d", p.LogBlockSize, p.PhysEraseBlock)
	case p.PhysAddr < 0 || p.PhysAddr%p.PhysEraseBlock != 0:
		return errors.Newf(errors.CodeInvalidParameter, "physical address %d is not erase block aligned", p.PhysAddr)
	case p.CachePages < NoCache:
		return errors.Newf(errors.CodeInvalidParameter, "invalid cache page count %d", p.CachePages)
	}
	if err := checkAligned(size, p.LogBlockSize, "block size"); err != nil {
		return err
	}
	if blocks := size / p.LogBlockSize; blocks < 2 || blocks > spiffs.MaxBlocks {
		return errors.WithContext(
			errors.Newf(errors.CodeInvalidParameter, "spiffs needs 2..%d blocks, got %d", spiffs.MaxBlocks, blocks),
			"blocks", blocks,
		)
	}
	if p.PhysAddr+size > devSize {
		return errors.WithContextMap(
			errors.Newf(errors.CodeInsufficientSpace, "region %d+%d exceeds storage size %d", p.PhysAddr, size, devSize),
			map[string]interface{}{"phys_addr": p.PhysAddr, "size": size, "storage_size": devSize},
		)
	}
	return nil
}

func (s *spifFs) free() error {
	s.engine = nil
	s.work = nil
	s.cache = nil
	return nil
}

// format needs a configured engine, which only a mount attempt provides.
func (s *spifFs) format() error {
	err := s.engine.Mount(&s.cfg, s.work, MaxHandles, s.cache)
	if err != nil && !errors.Is(err, spiffs.ErrNotAFilesystem) {
		return s.fs.result(err).err(spiffsCode(err), "spiffs configuration failed")
	}
	if s.engine.Mounted() {
		s.engine.Unmount()
	}
	err = s.engine.Format()
	return s.fs.result(err).err(spiffsCode(err), "spiffs format failed")
}

func (s *spifFs) mount() error {
	err := s.engine.Mount(&s.cfg, s.work, MaxHandles, s.cache)
	if errors.Is(err, spiffs.ErrNotAFilesystem) {
		return s.fs.result(err).err(errors.CodeNotFound, "no spiffs filesystem on storage")
	}
	return s.fs.result(err).err(errors.CodeGeneric, "spiffs mount failed")
}

func (s *spifFs) unmount() error {
	s.engine.Unmount()
	return nil
}

func (s *spifFs) wipe() error {
	return errors.New(errors.CodeNotSupported, "spiffs cannot wipe storage")
}

func (s *spifFs) open(h Handle, name string, mode OpenMode, flags OpenFlags) error {
	f, err := spiffsFlags(mode, flags)
	if err != nil {
		return err
	}
	fh, err := s.engine.Open(name, f)
	if err != nil {
		return s.fs.result(err).err(spiffsCode(err), "spiffs open failed")
	}
	s.files[h] = &spiffsFile{engine: s.engine, fh: fh}
	s.modes[h] = mode
	return nil
}

func spiffsFlags(mode OpenMode, flags OpenFlags) (spiffs.Flags, error) {
	if readOnlyConflict(mode, flags) {
		return 0, unsupportedFlags(TypeSpifFs, mode, flags)
	}

	var f spiffs.Flags
	switch mode {
	case ModeReadOnly:
		f = spiffs.FlagRead
	case ModeWriteOnly:
		f = spiffs.FlagWrite
	case ModeReadWrite:
		f = spiffs.FlagReadWrite
	}
	if flags&FlagCreate != 0 {
		f |= spiffs.FlagCreate
	}
	if flags&FlagExclusive != 0 {
		f |= spiffs.FlagExcl
	}
	if flags&FlagTruncate != 0 {
		f |= spiffs.FlagTrunc
	}
	if flags&FlagAppend != 0 {
		f |= spiffs.FlagAppend
	}
	return f, nil
}

func (s *spifFs) close(h Handle) error {
	if err := s.files[h].Close(); err != nil {
		return s.fs.result(err).err(spiffsCode(err), "spiffs close failed")
	}
	s.files[h] = nil
	return nil
}

func (s *spifFs) read(h Handle, offset int64, p []byte) error {
	if err := modeDenies(TypeSpifFs, s.modes[h], false); err != nil {
		return err
	}
	f := s.files[h]
	if err := s.fs.seekTo(f, offset, "spiffs"); err != nil {
		return err
	}
	n, err := f.Read(p)
	return s.fs.transferred("spiffs read", n, len(p), err)
}

func (s *spifFs) write(h Handle, offset int64, p []byte) error {
	if err := modeDenies(TypeSpifFs, s.modes[h], true); err != nil {
		return err
	}
	f := s.files[h]
	if err := s.fs.seekTo(f, offset, "spiffs"); err != nil {
		return err
	}
	n, err := f.Write(p)
	if err != nil {
		return s.fs.result(err).err(spiffsCode(err), "spiffs write failed")
	}
	return s.fs.transferred("spiffs write", n, len(p), nil)
}

func (s *spifFs) remove(name string) error {
	err := s.engine.Remove(name)
	return s.fs.result(err).err(spiffsCode(err), "spiffs remove failed")
}

func (s *spifFs) size(name string) (int64, error) {
	st, err := s.engine.Stat(name)
	if err != nil {
		return 0, s.fs.result(err).err(spiffsCode(err), "spiffs stat failed")
	}
	return int64(st.Size), nil
}

// spiffsCode classifies an engine error.
func spiffsCode(err error) errors.ErrorCode {
	switch {
	case errors.Is(err, spiffs.ErrNotFound):
		return errors.CodeNotFound
	case errors.Is(err, spiffs.ErrNameTooLong):
		return errors.CodeInvalidParameter
	case errors.Is(err, spiffs.ErrEndOfObject):
		return errors.CodeAborted
	case errors.Is(err, spiffs.ErrNoDescriptor):
		return errors.CodeOutOfBounds
	case errors.Is(err, spiffs.ErrFull):
		return errors.CodeInsufficientSpace
	case errors.Is(err, spiffs.ErrNotReadable), errors.Is(err, spiffs.ErrNotWritable):
		return errors.CodeNotSupported
	default:
		return errors.CodeGeneric
	}
}

// spiffsFile presents an engine descriptor as a seekable reader and writer.
type spiffsFile struct {
	engine *spiffs.FS
	fh     spiffs.File
}

func (f *spiffsFile) Read(p []byte) (int, error) {
	n, err := f.engine.Read(f.fh, p)
	if errors.Is(err, spiffs.ErrEndOfObject) {
		return n, io.EOF
	}
	return n, err
}

func (f *spiffsFile) Write(p []byte) (int, error) {
	return f.engine.Write(f.fh, p)
}

// Seek fails with the engine's end-of-object error past the end of the file.
func (f *spiffsFile) Seek(offset int64, whence int) (int64, error) {
	pos, err := f.engine.Lseek(f.fh, offset, whence)
	if errors.Is(err, spiffs.ErrEndOfObject) {
		return pos, errors.Wrap(err, errors.CodeAborted, "seek past end of file")
	}
	return pos, err
}

func (f *spiffsFile) Close() error {
	return f.engine.Close(f.fh)
}
