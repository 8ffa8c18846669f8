package fstest

import (
	"strings"
	"testing"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/filesystem"
)

// TestDelete tests file removal and space reuse.
func TestDelete(t *testing.T, fs *filesystem.FileSystem, config Config) {
	const group = "Delete"
	mount(t, fs)

	config.run(t, group, "Remove", func(t *testing.T) {
		writeFile(t, fs, "gone.txt", []byte("temporary"))
		if err := fs.Delete("gone.txt"); err != nil {
			t.Fatalf("Delete(gone.txt): got error %v, want nil", err)
		}
		if _, err := fs.FileSize("gone.txt"); errors.GetCode(err) != errors.CodeNotFound {
			t.Errorf("FileSize(gone.txt) after Delete: got %v, want %s", err, errors.CodeNotFound)
		}
	})

	config.run(t, group, "RemoveMissing", func(t *testing.T) {
		if got := errors.GetCode(fs.Delete("never.txt")); got != errors.CodeNotFound {
			t.Errorf("Delete(never.txt): got code %s, want %s", got, errors.CodeNotFound)
		}
	})

	config.run(t, group, "SpaceReuse", func(t *testing.T) {
		data := []byte(strings.Repeat("reclaim ", int(fs.Size()/4)/len("reclaim ")))
		for i := 0; i < 8; i++ {
			writeFile(t, fs, "cycle.bin", data)
			if err := fs.Delete("cycle.bin"); err != nil {
				t.Fatalf("Delete(cycle.bin) round %d: got error %v, want nil", i, err)
			}
		}
	})

	config.run(t, group, "LongName", func(t *testing.T) {
		name := strings.Repeat("n", config.MaxNameLength+1)
		if _, err := fs.Open(name, filesystem.ModeWriteOnly, filesystem.FlagCreate); err == nil {
			t.Errorf("Open(%d byte name): got nil, want error", len(name))
		}
	})
}
