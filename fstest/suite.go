// Package fstest provides a conformance test suite for filesystem backends.
//
// The suite drives a filesystem.FileSystem through its public API only and
// checks the contracts every backend shares. Backends differ in a few open
// flags and in wiping; the Config presets describe those differences.
//
// Example usage:
//
//	func TestLittleFs(t *testing.T) {
//	    fstest.TestSuite(t, func() *filesystem.FileSystem {
//	        return newInstance(t, filesystem.TypeLittleFs)
//	    }, fstest.LittleFsTestConfig())
//	}
package fstest

import (
	"slices"
	"testing"

	"github.com/jmgilman/go/flashfs/filesystem"
)

// Config describes the behavior of the backend under test.
type Config struct {
	// CreateTruncates indicates FlagCreate replaces existing contents and
	// FlagExclusive and FlagTruncate are rejected with CodeNotSupported.
	CreateTruncates bool

	// Wipe indicates Wipe is supported.
	Wipe bool

	// MaxNameLength bounds the file names the suite generates.
	MaxNameLength int

	// SkipTests lists tests to skip, e.g. "OpenFlags/Exclusive".
	SkipTests []string
}

// LittleFsTestConfig returns the configuration for the littlefs backend.
func LittleFsTestConfig() Config {
	return Config{Wipe: true, MaxNameLength: 255}
}

// FatFsTestConfig returns the configuration for the FAT backend.
func FatFsTestConfig() Config {
	return Config{CreateTruncates: true, Wipe: true, MaxNameLength: 255}
}

// SpifFsTestConfig returns the configuration for the SPI flash backend.
func SpifFsTestConfig() Config {
	return Config{MaxNameLength: 32}
}

// TestSuite runs every conformance group. newFS must return a fresh,
// initialized instance on empty storage for each call.
func TestSuite(t *testing.T, newFS func() *filesystem.FileSystem, config Config) {
	groups := []struct {
		name string
		run  func(*testing.T, *filesystem.FileSystem, Config)
	}{
		{"Lifecycle", TestLifecycle},
		{"ReadWrite", TestReadWrite},
		{"OpenFlags", TestOpenFlags},
		{"Handles", TestHandles},
		{"Delete", TestDelete},
	}

	for _, g := range groups {
		t.Run(g.name, func(t *testing.T) {
			if config.skip(g.name) {
				t.Skip("Skipped by backend configuration")
				return
			}
			g.run(t, newFS(), config)
		})
	}
}

func (c Config) skip(name string) bool {
	return slices.Contains(c.SkipTests, name)
}

// run runs a named subtest unless the configuration skips it.
func (c Config) run(t *testing.T, group, name string, f func(t *testing.T)) {
	t.Run(name, func(t *testing.T) {
		if c.skip(group + "/" + name) {
			t.Skip("Skipped by backend configuration")
			return
		}
		f(t)
	})
}

// mount formats and mounts fs, failing the test on error.
func mount(t *testing.T, fs *filesystem.FileSystem) {
	t.Helper()
	if err := fs.Format(); err != nil {
		t.Fatalf("Format(): got error %v, want nil", err)
	}
	if err := fs.Mount(); err != nil {
		t.Fatalf("Mount(): got error %v, want nil", err)
	}
}

func writeFile(t *testing.T, fs *filesystem.FileSystem, name string, data []byte) {
	t.Helper()
	if err := fs.WriteFile(name, data); err != nil {
		t.Fatalf("WriteFile(%q): setup failed: %v", name, err)
	}
}

func open(t *testing.T, fs *filesystem.FileSystem, name string, mode filesystem.OpenMode, flags filesystem.OpenFlags) filesystem.Handle {
	t.Helper()
	h, err := fs.Open(name, mode, flags)
	if err != nil {
		t.Fatalf("Open(%q, %s, %#x): got error %v, want nil", name, mode, uint32(flags), err)
	}
	return h
}

func closeHandle(t *testing.T, fs *filesystem.FileSystem, h filesystem.Handle) {
	t.Helper()
	if err := fs.Close(h); err != nil {
		t.Errorf("Close(%d): got error %v, want nil", h, err)
	}
}
