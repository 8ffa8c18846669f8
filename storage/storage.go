package storage

import (
	"github.com/jmgilman/go/flashfs/errors"
)

// State is a bitmask describing the condition of a storage device.
type State uint32

const (
	// StateReady is set when the device accepts transfers.
	StateReady State = 1 << iota
	// StateReadOnly is set when the device rejects writes and erases.
	StateReadOnly
)

// Interface is the callback set a filesystem uses to reach its storage.
//
// Read moves length bytes at addr into the dataport, Write commits the first
// length bytes of the dataport to addr, Erase resets a range to the erased
// state. Each returns the number of bytes it processed.
type Interface struct {
	Dataport *Dataport

	Read     func(addr, length int64) (int64, error)
	Write    func(addr, length int64) (int64, error)
	Erase    func(addr, length int64) (int64, error)
	GetSize  func() (int64, error)
	GetState func() (State, error)
}

// Validate checks that the dataport is set and every callback is present.
func (s Interface) Validate() error {
	if s.Dataport.IsUnset() {
		return errors.New(errors.CodeInvalidParameter, "storage dataport is not set")
	}

	missing := ""
	switch {
	case s.Read == nil:
		missing = "read"
	case s.Write == nil:
		missing = "write"
	case s.Erase == nil:
		missing = "erase"
	case s.GetSize == nil:
		missing = "getSize"
	case s.GetState == nil:
		missing = "getState"
	}
	if missing != "" {
		return errors.WithContext(
			errors.Newf(errors.CodeInvalidParameter, "storage %s callback is not set", missing),
			"callback", missing,
		)
	}
	return nil
}

// Device is a storage driver that exchanges data through its dataport.
type Device interface {
	// Dataport returns the buffer the device transfers through.
	Dataport() *Dataport
	// Read copies length bytes at addr into the dataport.
	Read(addr, length int64) (int64, error)
	// Write stores the first length bytes of the dataport at addr.
	Write(addr, length int64) (int64, error)
	// Erase resets length bytes at addr to the erased state.
	Erase(addr, length int64) (int64, error)
	// Size returns the device capacity in bytes.
	Size() (int64, error)
	// State returns the current device state.
	State() (State, error)
}

// InterfaceOf binds the callbacks of an Interface to dev.
func InterfaceOf(dev Device) Interface {
	return Interface{
		Dataport: dev.Dataport(),
		Read:     dev.Read,
		Write:    dev.Write,
		Erase:    dev.Erase,
		GetSize:  dev.Size,
		GetState: dev.State,
	}
}

// CheckRange validates a transfer of length bytes at addr against a device of
// size bytes and a dataport. Erases pass a nil port since they move no data.
func CheckRange(addr, length, size int64, port *Dataport) error {
	if addr < 0 || length < 0 {
		return errors.Newf(errors.CodeInvalidParameter, "invalid range: addr=%d length=%d", addr, length)
	}
	if addr > size || length > size-addr {
		return errors.WithContextMap(
			errors.Newf(errors.CodeOutOfBounds, "range %d+%d exceeds device size %d", addr, length, size),
			map[string]interface{}{"addr": addr, "length": length},
		)
	}
	if port != nil && length > int64(port.Size()) {
		return errors.Newf(errors.CodeBufferTooSmall, "transfer of %d bytes exceeds dataport of %d", length, port.Size())
	}
	return nil
}
