package filesystem

import "math/bits"

// handleTable tracks which file handles are in use, one bit per handle.
type handleTable struct {
	usage uint64
}

// findFree returns the lowest free handle, or MaxHandles when all are taken.
func (t *handleTable) findFree() Handle {
	return Handle(bits.TrailingZeros64(^t.usage))
}

func (t *handleTable) take(h Handle) {
	t.usage |= 1 << uint(h)
}

func (t *handleTable) release(h Handle) {
	t.usage &^= 1 << uint(h)
}

func (t *handleTable) inUse(h Handle) bool {
	return isValid(h) && t.usage&(1<<uint(h)) != 0
}

func (t *handleTable) count() int {
	return bits.OnesCount64(t.usage)
}

func isValid(h Handle) bool {
	return h >= 0 && h < MaxHandles
}
