package fstest

import (
	"testing"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/filesystem"
)

// TestOpenFlags tests open modes and flags.
func TestOpenFlags(t *testing.T, fs *filesystem.FileSystem, config Config) {
	const group = "OpenFlags"
	mount(t, fs)

	config.run(t, group, "Missing", func(t *testing.T) {
		h, err := fs.Open("missing.txt", filesystem.ModeReadOnly, filesystem.FlagNone)
		if got := errors.GetCode(err); got != errors.CodeNotFound {
			t.Errorf("Open(missing.txt): got code %s, want %s", got, errors.CodeNotFound)
		}
		if h != filesystem.NoHandle {
			t.Errorf("Open(missing.txt): got handle %d, want %d", h, filesystem.NoHandle)
		}
	})

	config.run(t, group, "Create", func(t *testing.T) {
		h := open(t, fs, "created.txt", filesystem.ModeWriteOnly, filesystem.FlagCreate)
		closeHandle(t, fs, h)
		if size, err := fs.FileSize("created.txt"); err != nil || size != 0 {
			t.Errorf("FileSize(created.txt): got (%d, %v), want (0, nil)", size, err)
		}
	})

	config.run(t, group, "ReadOnlyConflicts", func(t *testing.T) {
		for _, flags := range []filesystem.OpenFlags{filesystem.FlagCreate, filesystem.FlagTruncate, filesystem.FlagAppend} {
			_, err := fs.Open("conflict.txt", filesystem.ModeReadOnly, flags)
			if got := errors.GetCode(err); got != errors.CodeNotSupported {
				t.Errorf("Open(read-only, %#x): got code %s, want %s", uint32(flags), got, errors.CodeNotSupported)
			}
		}
	})

	config.run(t, group, "Exclusive", func(t *testing.T) {
		writeFile(t, fs, "exists.txt", []byte("x"))
		_, err := fs.Open("exists.txt", filesystem.ModeWriteOnly, filesystem.FlagCreate|filesystem.FlagExclusive)
		if err == nil {
			t.Fatalf("Open(exists.txt, create|exclusive): got nil, want error")
		}
		if config.CreateTruncates {
			if got := errors.GetCode(err); got != errors.CodeNotSupported {
				t.Errorf("Open(create|exclusive): got code %s, want %s", got, errors.CodeNotSupported)
			}
		}
	})

	config.run(t, group, "Truncate", func(t *testing.T) {
		writeFile(t, fs, "trunc.txt", []byte("some content"))
		flags, want := filesystem.FlagTruncate, int64(0)
		if config.CreateTruncates {
			_, err := fs.Open("trunc.txt", filesystem.ModeWriteOnly, filesystem.FlagTruncate)
			if got := errors.GetCode(err); got != errors.CodeNotSupported {
				t.Errorf("Open(truncate): got code %s, want %s", got, errors.CodeNotSupported)
			}
			flags = filesystem.FlagCreate
		}
		h := open(t, fs, "trunc.txt", filesystem.ModeWriteOnly, flags)
		closeHandle(t, fs, h)
		if size, err := fs.FileSize("trunc.txt"); err != nil || size != want {
			t.Errorf("FileSize(trunc.txt): got (%d, %v), want (%d, nil)", size, err, want)
		}
	})

	config.run(t, group, "Append", func(t *testing.T) {
		writeFile(t, fs, "append.txt", []byte("head"))
		h := open(t, fs, "append.txt", filesystem.ModeWriteOnly, filesystem.FlagAppend)
		if err := fs.Write(h, 0, []byte("tail")); err != nil {
			t.Fatalf("Write(append): got error %v, want nil", err)
		}
		closeHandle(t, fs, h)

		data, err := fs.ReadFile("append.txt")
		if err != nil {
			t.Fatalf("ReadFile(append.txt): got error %v, want nil", err)
		}
		if string(data) != "headtail" {
			t.Errorf("ReadFile(append.txt): got %q, want %q", data, "headtail")
		}
	})

	config.run(t, group, "InvalidArguments", func(t *testing.T) {
		cases := []struct {
			name  string
			mode  filesystem.OpenMode
			flags filesystem.OpenFlags
		}{
			{"", filesystem.ModeReadOnly, filesystem.FlagNone},
			{"a.txt", filesystem.OpenMode(-1), filesystem.FlagNone},
			{"a.txt", filesystem.ModeReadOnly, filesystem.OpenFlags(1 << 20)},
		}
		for _, c := range cases {
			_, err := fs.Open(c.name, c.mode, c.flags)
			if got := errors.GetCode(err); got != errors.CodeInvalidParameter {
				t.Errorf("Open(%q, %d, %#x): got code %s, want %s", c.name, c.mode, uint32(c.flags), got, errors.CodeInvalidParameter)
			}
		}
	})
}
