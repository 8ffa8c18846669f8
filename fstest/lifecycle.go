package fstest

import (
	"testing"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/filesystem"
)

// TestLifecycle tests Format, Mount, Unmount and Wipe transitions.
// The filesystem must be initialized on empty storage.
func TestLifecycle(t *testing.T, fs *filesystem.FileSystem, config Config) {
	const group = "Lifecycle"

	config.run(t, group, "MountEmpty", func(t *testing.T) {
		err := fs.Mount()
		if got := errors.GetCode(err); got != errors.CodeNotFound {
			t.Errorf("Mount() on empty storage: got code %s, want %s", got, errors.CodeNotFound)
		}
	})

	config.run(t, group, "FormatMountUnmount", func(t *testing.T) {
		mount(t, fs)
		if fs.State() != filesystem.StateMounted {
			t.Errorf("State(): got %s, want %s", fs.State(), filesystem.StateMounted)
		}
		writeFile(t, fs, "keep.txt", []byte("survives remount"))
		if err := fs.Unmount(); err != nil {
			t.Fatalf("Unmount(): got error %v, want nil", err)
		}
		if err := fs.Mount(); err != nil {
			t.Fatalf("Mount() after Unmount: got error %v, want nil", err)
		}
		data, err := fs.ReadFile("keep.txt")
		if err != nil {
			t.Fatalf("ReadFile(keep.txt) after remount: got error %v, want nil", err)
		}
		if string(data) != "survives remount" {
			t.Errorf("ReadFile(keep.txt): got %q, want %q", data, "survives remount")
		}
	})

	config.run(t, group, "MountedGuards", func(t *testing.T) {
		if fs.State() != filesystem.StateMounted {
			mount(t, fs)
		}
		for name, op := range map[string]func() error{
			"Format": fs.Format,
			"Mount":  fs.Mount,
			"Wipe":   fs.Wipe,
			"Free":   fs.Free,
		} {
			if got := errors.GetCode(op()); got != errors.CodeInvalidState {
				t.Errorf("%s() while mounted: got code %s, want %s", name, got, errors.CodeInvalidState)
			}
		}
	})

	config.run(t, group, "Wipe", func(t *testing.T) {
		if fs.State() == filesystem.StateMounted {
			if err := fs.Unmount(); err != nil {
				t.Fatalf("Unmount(): got error %v, want nil", err)
			}
		}

		err := fs.Wipe()
		if !config.Wipe {
			if got := errors.GetCode(err); got != errors.CodeNotSupported {
				t.Errorf("Wipe(): got code %s, want %s", got, errors.CodeNotSupported)
			}
			return
		}
		if err != nil {
			t.Fatalf("Wipe(): got error %v, want nil", err)
		}
		if got := errors.GetCode(fs.Mount()); got != errors.CodeNotFound {
			t.Errorf("Mount() after Wipe: got code %s, want %s", got, errors.CodeNotFound)
		}
	})
}
