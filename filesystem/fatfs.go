package filesystem

import (
	"os"

	"tinygo.org/x/tinyfs"
	"tinygo.org/x/tinyfs/fatfs"

	"github.com/jmgilman/go/flashfs/errors"
)

func fatMissing(err error) bool {
	var r fatfs.FileResult
	return errors.As(err, &r) && (r == fatfs.FileResultNoFile || r == fatfs.FileResultNoPath)
}

// sizer reports the current size of an open file, including unsynced writes.
type sizer interface {
	Size() (int64, error)
}

// fatFs adapts the FatFs library. The library accepts only a handful of
// exact os flag combinations, so writable handles are always opened
// read-write and the access mode is enforced here.
type fatFs struct {
	fs        *FileSystem
	dev       *blockDevice
	fat       *fatfs.FATFS
	files     [MaxHandles]tinyfs.File
	modes     [MaxHandles]OpenMode
	appending [MaxHandles]bool
}

func newFatFs(fs *FileSystem) backend {
	return &fatFs{fs: fs}
}

func (f *fatFs) init() error {
	params, err := formatOf(f.fs.cfg.Format, DefaultFatFsFormat())
	if err != nil {
		return err
	}
	params = params.withDefaults()
	if params.SectorSize != fatfs.SectorSize {
		return errors.WithContext(
			errors.Newf(errors.CodeNotSupported, "fatfs is built for %d byte sectors, got %d", fatfs.SectorSize, params.SectorSize),
			"sector_size", params.SectorSize,
		)
	}
	if err := checkAligned(f.fs.cfg.Size, params.SectorSize, "sector size"); err != nil {
		return err
	}
	if err := checkTransfer(params.SectorSize, f.fs.cfg.Storage.Dataport, "fatfs sector size"); err != nil {
		return err
	}

	f.dev = &blockDevice{
		fs:        f.fs,
		size:      f.fs.cfg.Size,
		writeSize: params.SectorSize,
		eraseSize: params.SectorSize,
		chunk:     params.SectorSize,
	}
	f.fat = fatfs.New(f.dev).Configure(&fatfs.Config{
		SectorSize: int(params.SectorSize),
	})
	f.fs.log.Debug("fatfs configured",
		"sectors", f.dev.blocks(),
		"sector_size", params.SectorSize,
	)
	return nil
}

func (f *fatFs) free() error {
	f.fat = nil
	f.dev = nil
	return nil
}

// format lets the library lay out the volume; it writes its own MBR with a
// single partition in front of the FAT volume.
func (f *fatFs) format() error {
	return f.fs.result(f.fat.Format()).err(errors.CodeGeneric, "fatfs format failed")
}

func (f *fatFs) mount() error {
	return f.fs.result(f.fat.Mount()).err(errors.CodeNotFound, "no FAT filesystem on storage")
}

func (f *fatFs) unmount() error {
	return f.fs.result(f.fat.Unmount()).err(errors.CodeGeneric, "fatfs unmount failed")
}

// wipe erases the whole region including the partition table.
func (f *fatFs) wipe() error {
	return f.fs.storageErase(0, f.fs.cfg.Size)
}

func (f *fatFs) open(h Handle, name string, mode OpenMode, flags OpenFlags) error {
	osFlags, err := fatFsFlags(mode, flags)
	if err != nil {
		return err
	}
	file, err := f.fat.OpenFile(name, osFlags)
	if err != nil {
		return f.fs.result(err).err(notFoundOr(fatMissing(err), errors.CodeGeneric), "fatfs open failed")
	}
	f.files[h] = file
	f.modes[h] = mode
	f.appending[h] = flags&FlagAppend != 0
	return nil
}

// fatFsFlags maps a mode and flags onto one of the combinations the library
// translates: creating always truncates, exclusive and truncate cannot be
// requested, and append is applied per write.
func fatFsFlags(mode OpenMode, flags OpenFlags) (int, error) {
	if readOnlyConflict(mode, flags) || flags&(FlagExclusive|FlagTruncate) != 0 {
		return 0, unsupportedFlags(TypeFatFs, mode, flags)
	}

	switch {
	case mode == ModeReadOnly:
		return os.O_RDONLY, nil
	case flags&FlagCreate != 0:
		return os.O_RDWR | os.O_CREATE | os.O_TRUNC, nil
	default:
		return os.O_RDWR, nil
	}
}

func (f *fatFs) close(h Handle) error {
	if err := f.files[h].Close(); err != nil {
		return f.fs.result(err).err(errors.CodeGeneric, "fatfs close failed")
	}
	f.files[h] = nil
	f.appending[h] = false
	return nil
}

func (f *fatFs) read(h Handle, offset int64, p []byte) error {
	if err := modeDenies(TypeFatFs, f.modes[h], false); err != nil {
		return err
	}
	file := f.files[h]
	if err := f.fs.seekTo(file, offset, "fatfs"); err != nil {
		return err
	}
	n, err := file.Read(p)
	return f.fs.transferred("fatfs read", n, len(p), err)
}

// write ignores offset on append handles.
func (f *fatFs) write(h Handle, offset int64, p []byte) error {
	if err := modeDenies(TypeFatFs, f.modes[h], true); err != nil {
		return err
	}
	file := f.files[h]
	if f.appending[h] {
		end, err := f.end(file)
		if err != nil {
			return err
		}
		offset = end
	}
	if err := f.fs.seekTo(file, offset, "fatfs"); err != nil {
		return err
	}
	n, err := file.Write(p)
	return f.fs.transferred("fatfs write", n, len(p), err)
}

// end returns the current size of an open file. The library cannot seek
// relative to the end.
func (f *fatFs) end(file tinyfs.File) (int64, error) {
	s, ok := file.(sizer)
	if !ok {
		return 0, errors.New(errors.CodeNotSupported, "fatfs file cannot report its size")
	}
	end, err := s.Size()
	if err != nil {
		return 0, f.fs.result(err).err(errors.CodeGeneric, "fatfs size failed")
	}
	return end, nil
}

func (f *fatFs) remove(name string) error {
	err := f.fat.Remove(name)
	return f.fs.result(err).err(notFoundOr(fatMissing(err), errors.CodeGeneric), "fatfs remove failed")
}

func (f *fatFs) size(name string) (int64, error) {
	info, err := f.fat.Stat(name)
	if err != nil {
		return 0, f.fs.result(err).err(notFoundOr(fatMissing(err), errors.CodeGeneric), "fatfs stat failed")
	}
	return info.Size(), nil
}
