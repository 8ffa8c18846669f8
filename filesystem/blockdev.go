package filesystem

import (
	"tinygo.org/x/tinyfs"

	"github.com/jmgilman/go/flashfs/errors"
)

// blockDevice exposes a window of the storage to a tinyfs backend library.
// Every access is routed through the trampolines; chunk, when set, splits
// transfers so each storage call moves at most chunk bytes.
type blockDevice struct {
	fs        *FileSystem
	base      int64
	size      int64
	writeSize int64
	eraseSize int64
	chunk     int64
}

func (d *blockDevice) ReadAt(p []byte, off int64) (int, error) {
	return d.transfer(p, off, d.fs.storageRead)
}

func (d *blockDevice) WriteAt(p []byte, off int64) (int, error) {
	return d.transfer(p, off, d.fs.storageWrite)
}

func (d *blockDevice) Size() int64 {
	return d.size
}

func (d *blockDevice) WriteBlockSize() int64 {
	return d.writeSize
}

func (d *blockDevice) EraseBlockSize() int64 {
	return d.eraseSize
}

// EraseBlocks erases count blocks starting at block start.
func (d *blockDevice) EraseBlocks(start, count int64) error {
	addr, length := start*d.eraseSize, count*d.eraseSize
	if err := d.bounds(addr, length); err != nil {
		return err
	}
	return d.fs.storageErase(d.base+addr, length)
}

// blocks returns the number of erase blocks in the window.
func (d *blockDevice) blocks() int64 {
	return d.size / d.eraseSize
}

func (d *blockDevice) transfer(p []byte, off int64, move func(int64, []byte) error) (int, error) {
	if err := d.bounds(off, int64(len(p))); err != nil {
		return 0, err
	}

	step := int64(len(p))
	if d.chunk > 0 {
		step = d.chunk
	}
	for done := int64(0); done < int64(len(p)); {
		n := min(step, int64(len(p))-done)
		if err := move(d.base+off+done, p[done:done+n]); err != nil {
			return int(done), err
		}
		done += n
	}
	return len(p), nil
}

func (d *blockDevice) bounds(off, length int64) error {
	if off < 0 || length < 0 || off+length > d.size {
		return errors.Newf(errors.CodeOutOfBounds, "block device access %d+%d outside %d bytes", off, length, d.size)
	}
	return nil
}

var _ tinyfs.BlockDevice = (*blockDevice)(nil)
