package spiffs

const (
	cacheHeaderSize   = 16
	cacheSlotMetaSize = 8
)

// CacheSize returns the cache buffer size needed for pages cached pages of
// pageSize bytes.
func CacheSize(pages, pageSize uint32) uint32 {
	return pages*(pageSize+cacheSlotMetaSize) + cacheHeaderSize
}

type cacheSlot struct {
	page  uint32
	valid bool
	used  uint32
}

// pageCache is an LRU read cache over a caller supplied buffer.
// A nil *pageCache caches nothing.
type pageCache struct {
	buf      []byte
	pageSize uint32
	slots    []cacheSlot
	tick     uint32
}

func newPageCache(buf []byte, pageSize uint32) *pageCache {
	if uint32(len(buf)) < CacheSize(1, pageSize) {
		return nil
	}
	n := (uint32(len(buf)) - cacheHeaderSize) / (pageSize + cacheSlotMetaSize)
	return &pageCache{
		buf:      buf[cacheHeaderSize:],
		pageSize: pageSize,
		slots:    make([]cacheSlot, n),
	}
}

func (c *pageCache) data(i int) []byte {
	off := uint32(i) * c.pageSize
	return c.buf[off : off+c.pageSize]
}

func (c *pageCache) find(p uint32) int {
	for i := range c.slots {
		if c.slots[i].valid && c.slots[i].page == p {
			return i
		}
	}
	return -1
}

func (c *pageCache) touch(i int) {
	c.tick++
	c.slots[i].used = c.tick
}

func (c *pageCache) lookup(p uint32) []byte {
	if c == nil {
		return nil
	}
	i := c.find(p)
	if i < 0 {
		return nil
	}
	c.touch(i)
	return c.data(i)
}

// slotFor claims the least recently used slot for page p.
func (c *pageCache) slotFor(p uint32) []byte {
	if c == nil {
		return nil
	}
	victim := 0
	for i := range c.slots {
		if !c.slots[i].valid {
			victim = i
			break
		}
		if c.slots[i].used < c.slots[victim].used {
			victim = i
		}
	}
	c.slots[victim] = cacheSlot{page: p, valid: true}
	c.touch(victim)
	return c.data(victim)
}

// update refreshes a cached copy of page p after it was programmed.
func (c *pageCache) update(p uint32, data []byte) {
	if c == nil {
		return
	}
	if i := c.find(p); i >= 0 {
		copy(c.data(i), data)
	}
}

func (c *pageCache) drop(p uint32) {
	if c == nil {
		return
	}
	if i := c.find(p); i >= 0 {
		c.slots[i].valid = false
	}
}

func (c *pageCache) dropRange(first, end uint32) {
	if c == nil {
		return
	}
	for i := range c.slots {
		if c.slots[i].valid && c.slots[i].page >= first && c.slots[i].page < end {
			c.slots[i].valid = false
		}
	}
}

func (c *pageCache) reset() {
	if c == nil {
		return
	}
	for i := range c.slots {
		c.slots[i].valid = false
	}
}
