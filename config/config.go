package config

import (
	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/filesystem"
	"github.com/jmgilman/go/flashfs/storage"
)

// Spec is a validated configuration document.
type Spec struct {
	Type string `json:"type"`
	// Size is resolved from the size field; 0 spans the whole device.
	Size     int64         `json:"-"`
	LittleFs *LittleFsSpec `json:"littlefs,omitempty"`
	FatFs    *FatFsSpec    `json:"fatfs,omitempty"`
	SpifFs   *SpifFsSpec   `json:"spiffs,omitempty"`
	Device   DeviceSpec    `json:"device"`
}

type LittleFsSpec struct {
	BlockSize     int64 `json:"blockSize,omitempty"`
	ProgSize      int64 `json:"progSize,omitempty"`
	CacheSize     int64 `json:"cacheSize,omitempty"`
	LookaheadSize int64 `json:"lookaheadSize,omitempty"`
	BlockCycles   int64 `json:"blockCycles,omitempty"`
}

type FatFsSpec struct {
	SectorSize int64 `json:"sectorSize,omitempty"`
}

type SpifFsSpec struct {
	PhysEraseBlock int64 `json:"physEraseBlock,omitempty"`
	LogBlockSize   int64 `json:"logBlockSize,omitempty"`
	LogPageSize    int64 `json:"logPageSize,omitempty"`
	PhysAddr       int64 `json:"physAddr,omitempty"`
	CachePages     int64 `json:"cachePages,omitempty"`
}

// DeviceSpec describes the storage device a filesystem lives on.
type DeviceSpec struct {
	// Kind is memory, image or minio.
	Kind     string `json:"kind"`
	Dataport int    `json:"dataport"`
	// Capacity is resolved from the capacity field.
	Capacity int64 `json:"-"`

	Path string `json:"path,omitempty"`

	Endpoint  string `json:"endpoint,omitempty"`
	Bucket    string `json:"bucket,omitempty"`
	AccessKey string `json:"accessKey,omitempty"`
	SecretKey string `json:"secretKey,omitempty"`
	UseSSL    bool   `json:"useSSL,omitempty"`
	Prefix    string `json:"prefix,omitempty"`
	BlockSize int64  `json:"blockSize,omitempty"`
}

// FilesystemType returns the backend the document selects.
func (s *Spec) FilesystemType() (filesystem.Type, error) {
	t, err := filesystem.ParseType(s.Type)
	if err != nil {
		return filesystem.TypeNone, errors.Wrap(err, errors.CodeInvalidConfig, "invalid filesystem type")
	}
	return t, nil
}

// Config builds the filesystem configuration for storage. Parameter sections
// for a backend other than the selected one are rejected.
func (s *Spec) Config(st storage.Interface) (filesystem.Config, error) {
	t, err := s.FilesystemType()
	if err != nil {
		return filesystem.Config{}, err
	}

	sections := map[filesystem.Type]bool{
		filesystem.TypeLittleFs: s.LittleFs != nil,
		filesystem.TypeFatFs:    s.FatFs != nil,
		filesystem.TypeSpifFs:   s.SpifFs != nil,
	}
	for other, present := range sections {
		if present && other != t {
			return filesystem.Config{}, errors.WithContext(
				errors.Newf(errors.CodeInvalidConfig, "%s parameters given for a %s filesystem", other, t),
				"type", t.String(),
			)
		}
	}

	cfg := filesystem.Config{Type: t, Size: s.Size, Storage: st}
	switch {
	case s.LittleFs != nil:
		cfg.Format = filesystem.LittleFsFormat(*s.LittleFs)
	case s.FatFs != nil:
		cfg.Format = filesystem.FatFsFormat(*s.FatFs)
	case s.SpifFs != nil:
		cfg.Format = filesystem.SpifFsFormat(*s.SpifFs)
	}
	return cfg, nil
}
