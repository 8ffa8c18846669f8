package fstest

import (
	"fmt"
	"testing"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/filesystem"
)

// TestHandles tests handle allocation, exhaustion and release.
func TestHandles(t *testing.T, fs *filesystem.FileSystem, config Config) {
	const group = "Handles"
	mount(t, fs)

	config.run(t, group, "Unique", func(t *testing.T) {
		seen := make(map[filesystem.Handle]bool)
		var handles []filesystem.Handle
		for i := 0; i < 8; i++ {
			name := fmt.Sprintf("u%d.txt", i)
			h := open(t, fs, name, filesystem.ModeWriteOnly, filesystem.FlagCreate)
			if seen[h] {
				t.Errorf("Open(%q): handle %d handed out twice", name, h)
			}
			seen[h] = true
			handles = append(handles, h)
		}
		for _, h := range handles {
			closeHandle(t, fs, h)
		}
		if n := fs.OpenHandles(); n != 0 {
			t.Errorf("OpenHandles(): got %d, want 0", n)
		}
	})

	config.run(t, group, "Exhaustion", func(t *testing.T) {
		writeFile(t, fs, "shared.txt", []byte("shared"))
		handles := make([]filesystem.Handle, 0, filesystem.MaxHandles)
		defer func() {
			for _, h := range handles {
				closeHandle(t, fs, h)
			}
		}()

		for i := 0; i < filesystem.MaxHandles; i++ {
			h, err := fs.Open("shared.txt", filesystem.ModeReadOnly, filesystem.FlagNone)
			if err != nil {
				t.Fatalf("Open() #%d: got error %v, want nil", i+1, err)
			}
			handles = append(handles, h)
		}
		_, err := fs.Open("shared.txt", filesystem.ModeReadOnly, filesystem.FlagNone)
		if got := errors.GetCode(err); got != errors.CodeOutOfBounds {
			t.Errorf("Open() #%d: got code %s, want %s", filesystem.MaxHandles+1, got, errors.CodeOutOfBounds)
		}
	})

	config.run(t, group, "DoubleClose", func(t *testing.T) {
		h := open(t, fs, "double.txt", filesystem.ModeWriteOnly, filesystem.FlagCreate)
		closeHandle(t, fs, h)
		if got := errors.GetCode(fs.Close(h)); got != errors.CodeInvalidHandle {
			t.Errorf("Close(%d) twice: got code %s, want %s", h, got, errors.CodeInvalidHandle)
		}
	})

	config.run(t, group, "InvalidHandle", func(t *testing.T) {
		for _, h := range []filesystem.Handle{filesystem.NoHandle, filesystem.MaxHandles, 42} {
			if got := errors.GetCode(fs.Read(h, 0, make([]byte, 1))); got != errors.CodeInvalidHandle {
				t.Errorf("Read(%d): got code %s, want %s", h, got, errors.CodeInvalidHandle)
			}
		}
	})

	config.run(t, group, "UnmountWithOpenFiles", func(t *testing.T) {
		h := open(t, fs, "pinned.txt", filesystem.ModeWriteOnly, filesystem.FlagCreate)
		if got := errors.GetCode(fs.Unmount()); got != errors.CodeInvalidState {
			t.Errorf("Unmount() with open file: got code %s, want %s", got, errors.CodeInvalidState)
		}
		closeHandle(t, fs, h)
	})
}
