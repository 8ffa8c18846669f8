package filesystem

import (
	"fmt"
	"strings"

	"github.com/jmgilman/go/flashfs/errors"
)

// Type identifies a filesystem backend.
type Type int

const (
	// TypeNone is the zero value and selects no backend.
	TypeNone Type = iota
	// TypeLittleFs selects the log-structured flash filesystem.
	TypeLittleFs
	// TypeFatFs selects the FAT-compatible filesystem.
	TypeFatFs
	// TypeSpifFs selects the SPI NOR flash filesystem.
	TypeSpifFs
)

// String returns the string representation of the Type.
func (t Type) String() string {
	switch t {
	case TypeNone:
		return "none"
	case TypeLittleFs:
		return "littlefs"
	case TypeFatFs:
		return "fatfs"
	case TypeSpifFs:
		return "spiffs"
	default:
		return fmt.Sprintf("Type(%d)", int(t))
	}
}

// ParseType returns the Type named s, ignoring case.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(s) {
	case "littlefs":
		return TypeLittleFs, nil
	case "fatfs", "fat":
		return TypeFatFs, nil
	case "spiffs", "spifs":
		return TypeSpifFs, nil
	}
	return TypeNone, errors.Newf(errors.CodeInvalidParameter, "unknown filesystem type %q", s)
}

// OpenMode selects the access mode of a file.
type OpenMode int

const (
	ModeReadOnly OpenMode = iota
	ModeWriteOnly
	ModeReadWrite
)

func (m OpenMode) valid() bool {
	return m >= ModeReadOnly && m <= ModeReadWrite
}

func (m OpenMode) String() string {
	switch m {
	case ModeReadOnly:
		return "read-only"
	case ModeWriteOnly:
		return "write-only"
	case ModeReadWrite:
		return "read-write"
	default:
		return fmt.Sprintf("OpenMode(%d)", int(m))
	}
}

// OpenFlags modify how a file is opened. Flags combine with bitwise OR.
type OpenFlags uint32

const (
	FlagNone OpenFlags = 0
	// FlagCreate creates the file if it does not exist.
	FlagCreate OpenFlags = 1 << (iota - 1)
	// FlagExclusive fails if the file exists; used with FlagCreate.
	FlagExclusive
	// FlagTruncate truncates an existing file to zero length.
	FlagTruncate
	// FlagAppend positions every write at the end of the file.
	FlagAppend

	flagMask = FlagCreate | FlagExclusive | FlagTruncate | FlagAppend
)

func (f OpenFlags) valid() bool {
	return f&^flagMask == 0
}

// Handle identifies an open file within one FileSystem.
type Handle int

const (
	// MaxHandles is the number of files one instance can hold open.
	MaxHandles = 64

	// NoHandle is returned alongside errors from Open.
	NoHandle Handle = -1
)

// StorageMax requests a filesystem spanning the whole storage device.
const StorageMax int64 = 0

// State is the lifecycle state of a FileSystem.
type State int

const (
	StateInitialized State = iota + 1
	StateFormatted
	StateMounted
	StateUnmounted
	StateFreed
)

func (s State) String() string {
	switch s {
	case StateInitialized:
		return "initialized"
	case StateFormatted:
		return "formatted"
	case StateMounted:
		return "mounted"
	case StateUnmounted:
		return "unmounted"
	case StateFreed:
		return "freed"
	default:
		return fmt.Sprintf("State(%d)", int(s))
	}
}
