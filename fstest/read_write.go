package fstest

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/filesystem"
)

// TestReadWrite tests positioned reads and writes and FileSize.
func TestReadWrite(t *testing.T, fs *filesystem.FileSystem, config Config) {
	const group = "ReadWrite"
	mount(t, fs)

	config.run(t, group, "RoundTrip", func(t *testing.T) {
		h := open(t, fs, "digits.txt", filesystem.ModeReadWrite, filesystem.FlagCreate)
		if err := fs.Write(h, 0, []byte("0123456789")); err != nil {
			t.Fatalf("Write(): got error %v, want nil", err)
		}
		closeHandle(t, fs, h)

		h = open(t, fs, "digits.txt", filesystem.ModeReadOnly, filesystem.FlagNone)
		defer closeHandle(t, fs, h)
		buf := make([]byte, 10)
		if err := fs.Read(h, 0, buf); err != nil {
			t.Fatalf("Read(): got error %v, want nil", err)
		}
		if string(buf) != "0123456789" {
			t.Errorf("Read(): got %q, want %q", buf, "0123456789")
		}
	})

	config.run(t, group, "Offsets", func(t *testing.T) {
		writeFile(t, fs, "offsets.txt", []byte("abcdefghij"))
		h := open(t, fs, "offsets.txt", filesystem.ModeReadWrite, filesystem.FlagNone)
		defer closeHandle(t, fs, h)

		if err := fs.Write(h, 4, []byte("XY")); err != nil {
			t.Fatalf("Write(offset 4): got error %v, want nil", err)
		}
		buf := make([]byte, 4)
		if err := fs.Read(h, 3, buf); err != nil {
			t.Fatalf("Read(offset 3): got error %v, want nil", err)
		}
		if string(buf) != "dXYg" {
			t.Errorf("Read(offset 3): got %q, want %q", buf, "dXYg")
		}
	})

	config.run(t, group, "ShortRead", func(t *testing.T) {
		writeFile(t, fs, "short.txt", []byte("tiny"))
		h := open(t, fs, "short.txt", filesystem.ModeReadOnly, filesystem.FlagNone)
		defer closeHandle(t, fs, h)

		err := fs.Read(h, 2, make([]byte, 8))
		if got := errors.GetCode(err); got != errors.CodeAborted {
			t.Errorf("Read() past end: got code %s, want %s", got, errors.CodeAborted)
		}
	})

	config.run(t, group, "FileSize", func(t *testing.T) {
		for _, size := range []int{0, 1, 511, 4096, 10000} {
			name := fmt.Sprintf("size%d.bin", size)
			writeFile(t, fs, name, bytes.Repeat([]byte{0xA5}, size))
			got, err := fs.FileSize(name)
			if err != nil {
				t.Fatalf("FileSize(%q): got error %v, want nil", name, err)
			}
			if got != int64(size) {
				t.Errorf("FileSize(%q): got %d, want %d", name, got, size)
			}
		}
	})

	config.run(t, group, "LargeFile", func(t *testing.T) {
		data := make([]byte, 64*1024)
		for i := range data {
			data[i] = byte(i * 7)
		}
		writeFile(t, fs, "large.bin", data)
		got, err := fs.ReadFile("large.bin")
		if err != nil {
			t.Fatalf("ReadFile(large.bin): got error %v, want nil", err)
		}
		if !bytes.Equal(got, data) {
			t.Errorf("ReadFile(large.bin): contents differ from what was written")
		}
	})

	config.run(t, group, "ReadOnlyWrite", func(t *testing.T) {
		writeFile(t, fs, "ro.txt", []byte("read only"))
		h := open(t, fs, "ro.txt", filesystem.ModeReadOnly, filesystem.FlagNone)

		err := fs.Write(h, 0, []byte("x"))
		if got := errors.GetCode(err); err == nil || got != errors.CodeNotSupported {
			t.Errorf("Write() on read-only handle: got %v, want code %s", err, errors.CodeNotSupported)
		}
		closeHandle(t, fs, h)

		got, err := fs.ReadFile("ro.txt")
		if err != nil {
			t.Fatalf("ReadFile(ro.txt): got error %v, want nil", err)
		}
		if string(got) != "read only" {
			t.Errorf("ReadFile(ro.txt): got %q, want %q", got, "read only")
		}
	})

	config.run(t, group, "WriteOnly", func(t *testing.T) {
		writeFile(t, fs, "wo.txt", []byte("abc"))
		h := open(t, fs, "wo.txt", filesystem.ModeWriteOnly, filesystem.FlagNone)

		if err := fs.Write(h, 0, []byte("XYZ")); err != nil {
			t.Errorf("Write() on write-only handle: got error %v, want nil", err)
		}
		err := fs.Read(h, 0, make([]byte, 3))
		if got := errors.GetCode(err); err == nil || got != errors.CodeNotSupported {
			t.Errorf("Read() on write-only handle: got %v, want code %s", err, errors.CodeNotSupported)
		}
		closeHandle(t, fs, h)

		got, err := fs.ReadFile("wo.txt")
		if err != nil {
			t.Fatalf("ReadFile(wo.txt): got error %v, want nil", err)
		}
		if string(got) != "XYZ" {
			t.Errorf("ReadFile(wo.txt): got %q, want %q", got, "XYZ")
		}
	})
}
