package storage

import (
	"bytes"

	"github.com/jmgilman/go/flashfs/errors"
)

// ErasedByte is the value of an erased flash byte.
const ErasedByte = 0xFF

// Memory is a RAM-backed storage device with NOR flash erase semantics.
// Writes overwrite bytes in place.
type Memory struct {
	data     []byte
	port     *Dataport
	readOnly bool
}

// NewMemory returns an erased device of size bytes that transfers through port.
func NewMemory(size int64, port *Dataport) *Memory {
	return &Memory{
		data: bytes.Repeat([]byte{ErasedByte}, int(size)),
		port: port,
	}
}

// SetReadOnly toggles rejection of writes and erases.
func (m *Memory) SetReadOnly(readOnly bool) {
	m.readOnly = readOnly
}

// Bytes exposes the device contents.
func (m *Memory) Bytes() []byte {
	return m.data
}

func (m *Memory) Dataport() *Dataport {
	return m.port
}

func (m *Memory) Read(addr, length int64) (int64, error) {
	if err := CheckRange(addr, length, int64(len(m.data)), m.port); err != nil {
		return 0, err
	}
	return int64(copy(m.port.Buf()[:length], m.data[addr:addr+length])), nil
}

func (m *Memory) Write(addr, length int64) (int64, error) {
	if m.readOnly {
		return 0, errors.New(errors.CodeNotSupported, "device is read-only")
	}
	if err := CheckRange(addr, length, int64(len(m.data)), m.port); err != nil {
		return 0, err
	}
	return int64(copy(m.data[addr:addr+length], m.port.Buf()[:length])), nil
}

func (m *Memory) Erase(addr, length int64) (int64, error) {
	if m.readOnly {
		return 0, errors.New(errors.CodeNotSupported, "device is read-only")
	}
	if err := CheckRange(addr, length, int64(len(m.data)), nil); err != nil {
		return 0, err
	}
	region := m.data[addr : addr+length]
	for i := range region {
		region[i] = ErasedByte
	}
	return length, nil
}

func (m *Memory) Size() (int64, error) {
	return int64(len(m.data)), nil
}

func (m *Memory) State() (State, error) {
	state := StateReady
	if m.readOnly {
		state |= StateReadOnly
	}
	return state, nil
}

var _ Device = (*Memory)(nil)
