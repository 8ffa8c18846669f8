package config

import (
	"context"
	"testing"

	"github.com/go-git/go-billy/v5/memfs"
	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/filesystem"
	"github.com/jmgilman/go/flashfs/storage"
)

func newLoader(t *testing.T, files map[string]string) *Loader {
	t.Helper()
	fs := memfs.New()
	for name, content := range files {
		require.NoError(t, util.WriteFile(fs, name, []byte(content), 0o644))
	}
	return NewLoader(fs)
}

func TestLoader_LoadFile(t *testing.T) {
	loader := newLoader(t, map[string]string{
		"flash.yaml": `
type: littlefs
size: 512KiB
littlefs:
  blockSize: 4096
  blockCycles: -1
device:
  kind: image
  path: flash.img
  capacity: 1MiB
`,
		"flash.json": `{"type": "spiffs", "size": 65536, "spiffs": {"logPageSize": 512, "cachePages": -1}}`,
		"flash.cue": `
type: "fatfs"
fatfs: sectorSize: 512
device: dataport: 512
`,
	})
	ctx := context.Background()

	t.Run("yaml", func(t *testing.T) {
		spec, err := loader.LoadFile(ctx, "flash.yaml")
		require.NoError(t, err)
		assert.Equal(t, "littlefs", spec.Type)
		assert.Equal(t, int64(512*1024), spec.Size)
		require.NotNil(t, spec.LittleFs)
		assert.Equal(t, int64(4096), spec.LittleFs.BlockSize)
		assert.Equal(t, int64(-1), spec.LittleFs.BlockCycles)
		assert.Equal(t, "image", spec.Device.Kind)
		assert.Equal(t, "flash.img", spec.Device.Path)
		assert.Equal(t, int64(1<<20), spec.Device.Capacity)
		assert.Equal(t, 4096, spec.Device.Dataport)
	})

	t.Run("json", func(t *testing.T) {
		spec, err := loader.LoadFile(ctx, "flash.json")
		require.NoError(t, err)
		assert.Equal(t, int64(65536), spec.Size)
		require.NotNil(t, spec.SpifFs)
		assert.Equal(t, int64(512), spec.SpifFs.LogPageSize)
		assert.Equal(t, int64(filesystem.NoCache), spec.SpifFs.CachePages)
		assert.Equal(t, "memory", spec.Device.Kind)
		assert.Equal(t, int64(1<<20), spec.Device.Capacity)
	})

	t.Run("cue", func(t *testing.T) {
		spec, err := loader.LoadFile(ctx, "flash.cue")
		require.NoError(t, err)
		assert.Equal(t, int64(0), spec.Size)
		require.NotNil(t, spec.FatFs)
		assert.Equal(t, int64(512), spec.FatFs.SectorSize)
		assert.Equal(t, 512, spec.Device.Dataport)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := loader.LoadFile(ctx, "missing.yaml")
		require.Error(t, err)
		assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
	})
}

func TestLoader_ParseInvalid(t *testing.T) {
	loader := NewLoader(memfs.New())

	tests := []struct {
		name string
		file string
		data string
	}{
		{"unknown type", "a.yaml", "type: ntfs"},
		{"missing type", "a.yaml", "size: 4096"},
		{"negative size", "a.json", `{"type": "littlefs", "size": -1}`},
		{"bad size string", "a.yaml", "type: littlefs\nsize: lots"},
		{"bad sector size", "a.yaml", "type: fatfs\nfatfs:\n  sectorSize: 600"},
		{"large sector size", "a.yaml", "type: fatfs\nfatfs:\n  sectorSize: 4096"},
		{"negative cache pages", "a.yaml", "type: spiffs\nspiffs:\n  cachePages: -2"},
		{"unknown field", "a.yaml", "type: fatfs\nclusters: 4"},
		{"image without path", "a.yaml", "type: fatfs\ndevice:\n  kind: image"},
		{"broken yaml", "a.yaml", "type: [littlefs"},
		{"broken cue", "a.cue", "type: "},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := loader.Parse(context.Background(), tt.file, []byte(tt.data))
			require.Error(t, err)
			assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
		})
	}
}

func TestLoader_ContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewLoader(memfs.New()).Parse(ctx, "a.yaml", []byte("type: littlefs"))
	assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
}

func TestSpec_Config(t *testing.T) {
	st := storage.InterfaceOf(storage.NewMemory(1<<20, storage.NewDataport(4096)))

	t.Run("littlefs", func(t *testing.T) {
		spec := &Spec{Type: "littlefs", Size: 65536, LittleFs: &LittleFsSpec{BlockSize: 4096}}
		cfg, err := spec.Config(st)
		require.NoError(t, err)
		assert.Equal(t, filesystem.TypeLittleFs, cfg.Type)
		assert.Equal(t, int64(65536), cfg.Size)
		assert.Equal(t, filesystem.LittleFsFormat{BlockSize: 4096}, cfg.Format)

		fs, err := filesystem.New(cfg)
		require.NoError(t, err)
		assert.Equal(t, int64(65536), fs.Size())
	})

	t.Run("defaults", func(t *testing.T) {
		cfg, err := (&Spec{Type: "spiffs"}).Config(st)
		require.NoError(t, err)
		assert.Nil(t, cfg.Format)
	})

	t.Run("mismatched section", func(t *testing.T) {
		spec := &Spec{Type: "fatfs", SpifFs: &SpifFsSpec{LogPageSize: 256}}
		_, err := spec.Config(st)
		assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
	})

	t.Run("unknown type", func(t *testing.T) {
		_, err := (&Spec{Type: "ext4"}).Config(st)
		assert.Equal(t, errors.CodeInvalidConfig, errors.GetCode(err))
	})
}
