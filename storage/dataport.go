package storage

// Dataport is a fixed-capacity buffer shared between a filesystem and a
// storage device. Its contents are only meaningful between a transfer call
// and the copy that follows or precedes it.
type Dataport struct {
	buf []byte
}

// NewDataport allocates a dataport of size bytes.
func NewDataport(size int) *Dataport {
	if size < 0 {
		size = 0
	}
	return &Dataport{buf: make([]byte, size)}
}

// Buf returns the full backing buffer.
func (d *Dataport) Buf() []byte {
	return d.buf
}

// Size returns the capacity of the dataport in bytes.
func (d *Dataport) Size() int {
	if d == nil {
		return 0
	}
	return len(d.buf)
}

// IsUnset reports whether the dataport is missing or has no capacity.
func (d *Dataport) IsUnset() bool {
	return d == nil || len(d.buf) == 0
}
