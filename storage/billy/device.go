package billy

import (
	"bytes"
	"io"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v5"
	"github.com/go-git/go-billy/v5/memfs"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/storage"
)

// eraseChunk bounds the scratch buffer used to erase large ranges.
const eraseChunk = 64 * 1024

// Device is a storage device whose contents live in an image file.
type Device struct {
	bfs  billy.Filesystem
	file billy.File
	name string
	size int64
	port *storage.Dataport
}

// Open opens or creates the image name on bfs. A size of zero adopts the
// size of an existing image. Images smaller than size are extended with
// erased bytes; larger images are left untouched and only the first size
// bytes are addressable.
func Open(bfs billy.Filesystem, name string, size int64, port *storage.Dataport) (*Device, error) {
	name = normalize(name)
	if size < 0 {
		return nil, errors.Newf(errors.CodeInvalidParameter, "invalid image size %d", size)
	}

	f, err := bfs.OpenFile(name, os.O_RDWR|os.O_CREATE, 0o644)
	if err != nil {
		return nil, errors.WithContext(errors.Wrap(err, errors.CodeGeneric, "failed to open image"), "image", name)
	}

	info, err := bfs.Stat(name)
	if err != nil {
		_ = f.Close()
		return nil, errors.WithContext(errors.Wrap(err, errors.CodeGeneric, "failed to stat image"), "image", name)
	}

	d := &Device{bfs: bfs, file: f, name: name, size: size, port: port}
	if size == 0 {
		d.size = info.Size()
	}
	if d.size == 0 {
		_ = f.Close()
		return nil, errors.WithContext(errors.New(errors.CodeInvalidParameter, "image size is zero"), "image", name)
	}

	if current := info.Size(); current < d.size {
		if err := d.fill(current, d.size-current); err != nil {
			_ = f.Close()
			return nil, err
		}
	}
	return d, nil
}

// NewMemory returns a device over a fresh in-memory image of size bytes.
func NewMemory(size int64, port *storage.Dataport) (*Device, error) {
	return Open(memfs.New(), "flash.img", size, port)
}

// Name returns the image path on the underlying filesystem.
func (d *Device) Name() string {
	return d.name
}

// Unwrap returns the underlying billy.Filesystem.
func (d *Device) Unwrap() billy.Filesystem {
	return d.bfs
}

// Close releases the image file.
func (d *Device) Close() error {
	if err := d.file.Close(); err != nil {
		return errors.Wrap(err, errors.CodeGeneric, "failed to close image")
	}
	return nil
}

func (d *Device) Dataport() *storage.Dataport {
	return d.port
}

func (d *Device) Read(addr, length int64) (int64, error) {
	if err := storage.CheckRange(addr, length, d.size, d.port); err != nil {
		return 0, err
	}
	n, err := d.file.ReadAt(d.port.Buf()[:length], addr)
	if err != nil && !(err == io.EOF && int64(n) == length) {
		return int64(n), d.ioError(err, "read", addr, length)
	}
	return int64(n), nil
}

func (d *Device) Write(addr, length int64) (int64, error) {
	if err := storage.CheckRange(addr, length, d.size, d.port); err != nil {
		return 0, err
	}
	n, err := d.writeAt(d.port.Buf()[:length], addr)
	if err != nil {
		return int64(n), d.ioError(err, "write", addr, length)
	}
	return int64(n), nil
}

func (d *Device) Erase(addr, length int64) (int64, error) {
	if err := storage.CheckRange(addr, length, d.size, nil); err != nil {
		return 0, err
	}
	if err := d.fill(addr, length); err != nil {
		return 0, err
	}
	return length, nil
}

func (d *Device) Size() (int64, error) {
	return d.size, nil
}

func (d *Device) State() (storage.State, error) {
	return storage.StateReady, nil
}

// fill writes erased bytes over [addr, addr+length).
func (d *Device) fill(addr, length int64) error {
	erased := bytes.Repeat([]byte{storage.ErasedByte}, int(min(length, eraseChunk)))
	for done := int64(0); done < length; {
		n := min(length-done, int64(len(erased)))
		if _, err := d.writeAt(erased[:n], addr+done); err != nil {
			return d.ioError(err, "erase", addr+done, n)
		}
		done += n
	}
	return nil
}

// writeAt positions the file and writes p; billy.File has no WriteAt.
func (d *Device) writeAt(p []byte, off int64) (int, error) {
	if _, err := d.file.Seek(off, io.SeekStart); err != nil {
		return 0, err
	}
	return d.file.Write(p)
}

func (d *Device) ioError(err error, op string, addr, length int64) error {
	return errors.WithContextMap(
		errors.Wrapf(err, errors.CodeGeneric, "image %s failed", op),
		map[string]interface{}{"image": d.name, "addr": addr, "length": length},
	)
}

// normalize converts paths to use forward slashes consistently.
func normalize(path string) string {
	return filepath.ToSlash(filepath.Clean(path))
}

var _ storage.Device = (*Device)(nil)
