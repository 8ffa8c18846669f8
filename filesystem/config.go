package filesystem

import (
	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/storage"
)

// Config describes a filesystem instance.
type Config struct {
	// Type selects the backend.
	Type Type

	// Size is the size of the filesystem in bytes, starting at the beginning
	// of the storage device. StorageMax uses the whole device.
	Size int64

	// Format holds backend parameters: LittleFsFormat, FatFsFormat or
	// SpifFsFormat, matching Type. Nil selects the defaults; zero fields are
	// defaulted individually.
	Format Format

	// Storage is the device the filesystem lives on.
	Storage storage.Interface
}

// Format is implemented by the backend parameter sets.
type Format interface {
	backend() Type
}

// LittleFsFormat configures the log-structured flash backend.
type LittleFsFormat struct {
	// BlockSize is the erase block size. Default: 4096
	BlockSize int64
	// ProgSize is the read and program granularity. Default: 16
	ProgSize int64
	// CacheSize is the size of each block cache. Default: 256
	CacheSize int64
	// LookaheadSize is the size of the block allocator bitmap in bytes. Default: 32
	LookaheadSize int64
	// BlockCycles is the erase count after which metadata is moved; -1
	// disables wear leveling. Default: 500
	BlockCycles int64
}

// FatFsFormat configures the FAT backend.
type FatFsFormat struct {
	// SectorSize must be 512, the only sector size the library is built
	// for. Default: 512
	SectorSize int64
}

// SpifFsFormat configures the SPI flash backend.
type SpifFsFormat struct {
	// PhysEraseBlock is the physical erase block size. Default: 4096
	PhysEraseBlock int64
	// LogBlockSize is the logical block size. Default: 4096
	LogBlockSize int64
	// LogPageSize is the logical page size; it must be below LogBlockSize. Default: 256
	LogPageSize int64
	// PhysAddr is the storage address the filesystem starts at. Default: 0
	PhysAddr int64
	// CachePages is the number of pages held in the read cache; NoCache
	// disables it. Default: 16
	CachePages int64
}

// NoCache disables the SPI flash read cache.
const NoCache = -1

func (LittleFsFormat) backend() Type { return TypeLittleFs }
func (FatFsFormat) backend() Type    { return TypeFatFs }
func (SpifFsFormat) backend() Type   { return TypeSpifFs }

// DefaultLittleFsFormat returns the default log-structured flash parameters.
func DefaultLittleFsFormat() LittleFsFormat {
	return LittleFsFormat{
		BlockSize:     4096,
		ProgSize:      16,
		CacheSize:     256,
		LookaheadSize: 32,
		BlockCycles:   500,
	}
}

// DefaultFatFsFormat returns the default FAT parameters.
func DefaultFatFsFormat() FatFsFormat {
	return FatFsFormat{
		SectorSize: 512,
	}
}

// DefaultSpifFsFormat returns the default SPI flash parameters.
func DefaultSpifFsFormat() SpifFsFormat {
	return SpifFsFormat{
		PhysEraseBlock: 4096,
		LogBlockSize:   4096,
		LogPageSize:    256,
		PhysAddr:       0,
		CachePages:     16,
	}
}

func (f LittleFsFormat) withDefaults() LittleFsFormat {
	d := DefaultLittleFsFormat()
	f.BlockSize = orDefault(f.BlockSize, d.BlockSize)
	f.ProgSize = orDefault(f.ProgSize, d.ProgSize)
	f.CacheSize = orDefault(f.CacheSize, d.CacheSize)
	f.LookaheadSize = orDefault(f.LookaheadSize, d.LookaheadSize)
	f.BlockCycles = orDefault(f.BlockCycles, d.BlockCycles)
	return f
}

func (f FatFsFormat) withDefaults() FatFsFormat {
	f.SectorSize = orDefault(f.SectorSize, DefaultFatFsFormat().SectorSize)
	return f
}

func (f SpifFsFormat) withDefaults() SpifFsFormat {
	d := DefaultSpifFsFormat()
	f.PhysEraseBlock = orDefault(f.PhysEraseBlock, d.PhysEraseBlock)
	f.LogBlockSize = orDefault(f.LogBlockSize, d.LogBlockSize)
	f.LogPageSize = orDefault(f.LogPageSize, d.LogPageSize)
	f.CachePages = orDefault(f.CachePages, d.CachePages)
	return f
}

func orDefault(v, def int64) int64 {
	if v == 0 {
		return def
	}
	return v
}

// formatOf selects the parameters for t from the configured Format.
func formatOf[T Format](f Format, def T) (T, error) {
	if f == nil {
		return def, nil
	}
	p, ok := f.(T)
	if !ok {
		var zero T
		return zero, errors.WithContext(
			errors.Newf(errors.CodeInvalidParameter, "format parameters %T do not match filesystem type %s", f, def.backend()),
			"type", def.backend().String(),
		)
	}
	return p, nil
}

// checkAligned rejects sizes that are not a positive multiple of unit.
func checkAligned(size, unit int64, what string) error {
	if unit <= 0 {
		return errors.Newf(errors.CodeInvalidParameter, "%s must be positive, got %d", what, unit)
	}
	if size <= 0 || size%unit != 0 {
		return errors.WithContextMap(
			errors.Newf(errors.CodeInvalidParameter, "size %d is not a multiple of %s %d", size, what, unit),
			map[string]interface{}{"size": size, what: unit},
		)
	}
	return nil
}

// checkTransfer rejects backend transfer units larger than the dataport.
func checkTransfer(unit int64, port *storage.Dataport, what string) error {
	if unit > int64(port.Size()) {
		return errors.Newf(errors.CodeBufferTooSmall, "%s %d exceeds dataport of %d bytes", what, unit, port.Size())
	}
	return nil
}
