// Package spiffs implements a small filesystem for SPI NOR flash.
//
// The flash region is divided into logical blocks, each a whole number of
// physical erase blocks, and blocks into pages. The first page of every block
// is a block header. Every other page is free (erased), used or deleted.
// A file is an index page holding its name and size plus one data page per
// span of payload. Pages are never rewritten in place: an update programs a
// fresh page and marks the old one deleted by clearing its object id, so the
// flash only ever sees 1 to 0 bit transitions between erases. When free pages
// run low, the collector relocates the live pages of the block with the most
// deleted pages and erases it.
//
// The caller supplies the storage callbacks and all working memory: a work
// buffer of two pages, a descriptor count and an optional read cache sized
// with CacheSize.
package spiffs

import (
	"errors"
)

// NameMax is the longest file name in bytes.
const NameMax = 32

// Geometry limits. Page sizes and block counts are stored as 16-bit fields.
const (
	MinPageSize = 64
	MaxPageSize = 0xFFFF
	MaxBlocks   = 0xFFFF
)

var (
	ErrNotAFilesystem = errors.New("spiffs: not a filesystem")
	ErrInvalidConfig  = errors.New("spiffs: invalid configuration")
	ErrNotConfigured  = errors.New("spiffs: not configured")
	ErrMounted        = errors.New("spiffs: mounted")
	ErrNotMounted     = errors.New("spiffs: not mounted")
	ErrNotFound       = errors.New("spiffs: file not found")
	ErrExists         = errors.New("spiffs: file exists")
	ErrNameTooLong    = errors.New("spiffs: name too long")
	ErrFull           = errors.New("spiffs: filesystem full")
	ErrNoDescriptor   = errors.New("spiffs: out of file descriptors")
	ErrBadDescriptor  = errors.New("spiffs: bad file descriptor")
	ErrNotReadable    = errors.New("spiffs: file not open for reading")
	ErrNotWritable    = errors.New("spiffs: file not open for writing")
	ErrEndOfObject    = errors.New("spiffs: end of object")
)

// Flags select the access mode and open behavior of a file.
type Flags uint16

const (
	FlagRead Flags = 1 << iota
	FlagWrite
	FlagCreate
	FlagExcl
	FlagTrunc
	FlagAppend

	FlagReadWrite = FlagRead | FlagWrite
)

// Config describes the flash geometry and the storage callbacks.
// All addresses passed to the callbacks are absolute.
type Config struct {
	PhysSize       uint32
	PhysAddr       uint32
	PhysEraseBlock uint32
	LogBlockSize   uint32
	LogPageSize    uint32

	HalRead  func(addr uint32, dst []byte) error
	HalWrite func(addr uint32, src []byte) error
	HalErase func(addr, size uint32) error
}

// Stat describes a file.
type Stat struct {
	ID   uint16
	Name string
	Size uint32
}

// File is an open file descriptor.
type File int

type pageState uint8

const (
	pageFree pageState = iota
	pageUsed
	pageDeleted
	pageBlockHeader
)

type object struct {
	id      uint16
	name    string
	size    uint32
	index   uint32
	data    map[uint16]uint32
	removed bool
}

type descriptor struct {
	obj    *object
	flags  Flags
	offset uint32
}

// FS is a SPI flash filesystem instance. It is not safe for concurrent use.
type FS struct {
	cfg        Config
	configured bool
	mounted    bool

	blocks uint32
	ppb    uint32
	work   []byte
	cache  *pageCache
	fds    []*descriptor

	pages       []pageState
	eraseCounts []uint32
	free        uint32
	cursor      uint32

	objects map[string]*object
	byID    map[uint16]*object
}

// New returns an unconfigured filesystem. Mount configures it.
func New() *FS {
	return &FS{}
}

// Mounted reports whether the filesystem is mounted.
func (fs *FS) Mounted() bool {
	return fs.mounted
}
