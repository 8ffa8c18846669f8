package spiffs

import (
	"bytes"
	"fmt"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// norFlash is an in-memory flash that rejects 0 to 1 transitions on write.
type norFlash struct {
	mem    []byte
	reads  int
	writes int
	erases int
}

func newNorFlash(size int) *norFlash {
	return &norFlash{mem: bytes.Repeat([]byte{0xFF}, size)}
}

func (f *norFlash) read(addr uint32, dst []byte) error {
	f.reads++
	copy(dst, f.mem[addr:])
	return nil
}

func (f *norFlash) write(addr uint32, src []byte) error {
	f.writes++
	for i, b := range src {
		if f.mem[int(addr)+i]&b != b {
			return fmt.Errorf("programming 0 to 1 at %#x", int(addr)+i)
		}
		f.mem[int(addr)+i] = b
	}
	return nil
}

func (f *norFlash) erase(addr, size uint32) error {
	f.erases++
	for i := addr; i < addr+size; i++ {
		f.mem[i] = 0xFF
	}
	return nil
}

func testConfig(f *norFlash) *Config {
	return &Config{
		PhysSize:       uint32(len(f.mem)),
		PhysEraseBlock: 4096,
		LogBlockSize:   4096,
		LogPageSize:    256,
		HalRead:        f.read,
		HalWrite:       f.write,
		HalErase:       f.erase,
	}
}

func mountFresh(t *testing.T, f *norFlash, cachePages uint32) *FS {
	t.Helper()
	cfg := testConfig(f)
	fs := New()
	work := make([]byte, 2*cfg.LogPageSize)
	cache := make([]byte, CacheSize(cachePages, cfg.LogPageSize))

	err := fs.Mount(cfg, work, 8, cache)
	if err != nil {
		require.ErrorIs(t, err, ErrNotAFilesystem)
		require.NoError(t, fs.Format())
		require.NoError(t, fs.Mount(cfg, work, 8, cache))
	}
	return fs
}

func writeFile(t *testing.T, fs *FS, name string, data []byte) {
	t.Helper()
	fh, err := fs.Open(name, FlagWrite|FlagCreate|FlagTrunc)
	require.NoError(t, err)
	n, err := fs.Write(fh, data)
	require.NoError(t, err)
	require.Equal(t, len(data), n)
	require.NoError(t, fs.Close(fh))
}

func readFile(t *testing.T, fs *FS, name string) []byte {
	t.Helper()
	st, err := fs.Stat(name)
	require.NoError(t, err)
	fh, err := fs.Open(name, FlagRead)
	require.NoError(t, err)
	defer func() { require.NoError(t, fs.Close(fh)) }()

	buf := make([]byte, st.Size)
	if st.Size == 0 {
		return buf
	}
	n, err := fs.Read(fh, buf)
	require.NoError(t, err)
	require.Equal(t, int(st.Size), n)
	return buf
}

// TestMount_Erased verifies erased flash is not a filesystem until formatted.
func TestMount_Erased(t *testing.T) {
	f := newNorFlash(64 * 1024)
	fs := New()
	cfg := testConfig(f)

	err := fs.Mount(cfg, make([]byte, 512), 4, nil)
	require.ErrorIs(t, err, ErrNotAFilesystem)
	assert.False(t, fs.Mounted())

	require.NoError(t, fs.Format())
	require.NoError(t, fs.Mount(cfg, make([]byte, 512), 4, nil))
	assert.True(t, fs.Mounted())
	assert.ErrorIs(t, fs.Format(), ErrMounted)
}

// TestFormat_Unconfigured verifies Format needs a prior Mount call.
func TestFormat_Unconfigured(t *testing.T) {
	assert.ErrorIs(t, New().Format(), ErrNotConfigured)
}

// TestMount_InvalidConfig verifies geometry validation.
func TestMount_InvalidConfig(t *testing.T) {
	f := newNorFlash(64 * 1024)
	tests := []struct {
		name   string
		mutate func(*Config)
		work   int
	}{
		{"page not below block", func(c *Config) { c.LogPageSize = 4096 }, 8192},
		{"page too small", func(c *Config) { c.LogPageSize = 32 }, 512},
		{"misaligned size", func(c *Config) { c.PhysSize = 64*1024 + 1 }, 512},
		{"single block", func(c *Config) { c.PhysSize = 4096 }, 512},
		{"block not erase aligned", func(c *Config) { c.PhysEraseBlock = 3000 }, 512},
		{"missing callback", func(c *Config) { c.HalErase = nil }, 512},
		{"short work buffer", func(c *Config) {}, 256},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig(f)
			tt.mutate(cfg)
			err := New().Mount(cfg, make([]byte, tt.work), 4, nil)
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

// TestFile_RoundTrip verifies data survives an unmount and remount.
func TestFile_RoundTrip(t *testing.T) {
	f := newNorFlash(64 * 1024)
	fs := mountFresh(t, f, 4)

	writeFile(t, fs, "short.txt", []byte("0123456789"))
	long := bytes.Repeat([]byte("flash pages "), 200)
	writeFile(t, fs, "long.bin", long)

	fs.Unmount()
	fs = mountFresh(t, f, 4)

	assert.Equal(t, []byte("0123456789"), readFile(t, fs, "short.txt"))
	assert.Equal(t, long, readFile(t, fs, "long.bin"))
}

// TestFile_OverwriteInPlace verifies writes at an offset inside a file.
func TestFile_OverwriteInPlace(t *testing.T) {
	fs := mountFresh(t, newNorFlash(64*1024), 0)
	writeFile(t, fs, "f", []byte("aaaaaaaaaa"))

	fh, err := fs.Open("f", FlagReadWrite)
	require.NoError(t, err)
	pos, err := fs.Lseek(fh, 3, io.SeekStart)
	require.NoError(t, err)
	assert.Equal(t, int64(3), pos)
	_, err = fs.Write(fh, []byte("XYZ"))
	require.NoError(t, err)
	require.NoError(t, fs.Close(fh))

	assert.Equal(t, []byte("aaaXYZaaaa"), readFile(t, fs, "f"))
}

// TestFile_OpenFlags verifies create, exclusive, truncate and append.
func TestFile_OpenFlags(t *testing.T) {
	fs := mountFresh(t, newNorFlash(64*1024), 4)

	_, err := fs.Open("missing", FlagRead)
	assert.ErrorIs(t, err, ErrNotFound)

	writeFile(t, fs, "f", []byte("hello"))
	_, err = fs.Open("f", FlagWrite|FlagCreate|FlagExcl)
	assert.ErrorIs(t, err, ErrExists)

	fh, err := fs.Open("f", FlagWrite|FlagAppend)
	require.NoError(t, err)
	_, err = fs.Write(fh, []byte(" world"))
	require.NoError(t, err)
	require.NoError(t, fs.Close(fh))
	assert.Equal(t, []byte("hello world"), readFile(t, fs, "f"))

	fh, err = fs.Open("f", FlagWrite|FlagTrunc)
	require.NoError(t, err)
	require.NoError(t, fs.Close(fh))
	st, err := fs.Stat("f")
	require.NoError(t, err)
	assert.Equal(t, uint32(0), st.Size)

	_, err = fs.Open(string(bytes.Repeat([]byte("n"), NameMax+1)), FlagWrite|FlagCreate)
	assert.ErrorIs(t, err, ErrNameTooLong)
}

// TestFile_AccessChecks verifies mode enforcement and descriptor validity.
func TestFile_AccessChecks(t *testing.T) {
	fs := mountFresh(t, newNorFlash(64*1024), 4)
	writeFile(t, fs, "f", []byte("data"))

	ro, err := fs.Open("f", FlagRead)
	require.NoError(t, err)
	_, err = fs.Write(ro, []byte("x"))
	assert.ErrorIs(t, err, ErrNotWritable)

	wo, err := fs.Open("f", FlagWrite)
	require.NoError(t, err)
	_, err = fs.Read(wo, make([]byte, 1))
	assert.ErrorIs(t, err, ErrNotReadable)

	require.NoError(t, fs.Close(ro))
	assert.ErrorIs(t, fs.Close(ro), ErrBadDescriptor)
	_, err = fs.Read(File(99), make([]byte, 1))
	assert.ErrorIs(t, err, ErrBadDescriptor)
}

// TestFile_ReadPastEnd verifies short reads and end of object.
func TestFile_ReadPastEnd(t *testing.T) {
	fs := mountFresh(t, newNorFlash(64*1024), 4)
	writeFile(t, fs, "f", []byte("abc"))

	fh, err := fs.Open("f", FlagRead)
	require.NoError(t, err)
	buf := make([]byte, 10)
	n, err := fs.Read(fh, buf)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	_, err = fs.Read(fh, buf)
	assert.ErrorIs(t, err, ErrEndOfObject)

	_, err = fs.Lseek(fh, 4, io.SeekStart)
	assert.ErrorIs(t, err, ErrEndOfObject)
	pos, err := fs.Lseek(fh, -1, io.SeekEnd)
	require.NoError(t, err)
	assert.Equal(t, int64(2), pos)
}

// TestFile_Descriptors verifies the descriptor table bound.
func TestFile_Descriptors(t *testing.T) {
	fs := mountFresh(t, newNorFlash(64*1024), 4)
	writeFile(t, fs, "f", []byte("x"))

	for i := 0; i < 8; i++ {
		_, err := fs.Open("f", FlagRead)
		require.NoError(t, err)
	}
	_, err := fs.Open("f", FlagRead)
	assert.ErrorIs(t, err, ErrNoDescriptor)
}

// TestRemove verifies removed files disappear and their descriptors die.
func TestRemove(t *testing.T) {
	f := newNorFlash(64 * 1024)
	fs := mountFresh(t, f, 4)
	writeFile(t, fs, "gone", bytes.Repeat([]byte{1}, 1000))

	fh, err := fs.Open("gone", FlagRead)
	require.NoError(t, err)
	require.NoError(t, fs.Remove("gone"))

	_, err = fs.Read(fh, make([]byte, 1))
	assert.ErrorIs(t, err, ErrBadDescriptor)
	_, err = fs.Stat("gone")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, fs.Remove("gone"), ErrNotFound)

	fs.Unmount()
	fs = mountFresh(t, f, 4)
	_, err = fs.Stat("gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

// TestGarbageCollection verifies repeated rewrites reclaim deleted pages.
func TestGarbageCollection(t *testing.T) {
	f := newNorFlash(4 * 4096)
	fs := mountFresh(t, f, 2)

	// Each rewrite retires roughly ten pages; three usable blocks hold far
	// fewer than the total written.
	for i := 0; i < 50; i++ {
		data := bytes.Repeat([]byte{byte(i)}, 2000)
		writeFile(t, fs, "cycle", data)
		require.Equal(t, data, readFile(t, fs, "cycle"))
	}
	assert.Greater(t, f.erases, 4)

	fs.Unmount()
	fs = mountFresh(t, f, 2)
	assert.Equal(t, bytes.Repeat([]byte{49}, 2000), readFile(t, fs, "cycle"))
}

// TestFull verifies writes fail once live data fills the region.
func TestFull(t *testing.T) {
	fs := mountFresh(t, newNorFlash(2*4096), 0)

	fh, err := fs.Open("big", FlagWrite|FlagCreate)
	require.NoError(t, err)
	_, err = fs.Write(fh, make([]byte, 8192))
	assert.ErrorIs(t, err, ErrFull)
}

// TestCacheSize verifies the cache buffer formula and slot count.
func TestCacheSize(t *testing.T) {
	assert.Equal(t, uint32(16*(256+8)+16), CacheSize(16, 256))
	assert.Nil(t, newPageCache(make([]byte, 100), 256))
	c := newPageCache(make([]byte, CacheSize(3, 256)), 256)
	require.NotNil(t, c)
	assert.Len(t, c.slots, 3)
}
