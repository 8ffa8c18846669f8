package spiffs

// reserve is the number of free pages held back so the collector can always
// relocate every live page of one block.
func (fs *FS) reserve() uint32 {
	return fs.ppb - 1
}

// allocPage claims a free page for new content, collecting garbage when the
// free pool has shrunk to the reserve.
func (fs *FS) allocPage() (uint32, error) {
	for fs.free <= fs.reserve() {
		if err := fs.collect(); err != nil {
			return 0, err
		}
	}
	return fs.takeFree(noBlock)
}

// takeFree claims the next free page outside block skip.
func (fs *FS) takeFree(skip uint32) (uint32, error) {
	n := uint32(len(fs.pages))
	for i := uint32(0); i < n; i++ {
		p := (fs.cursor + i) % n
		if fs.pages[p] == pageFree && fs.blockOf(p) != skip {
			fs.cursor = (p + 1) % n
			fs.pages[p] = pageUsed
			fs.free--
			return p, nil
		}
	}
	return 0, ErrFull
}

// collect reclaims the block holding the most deleted pages.
func (fs *FS) collect() error {
	victim, most := noBlock, uint32(0)
	for b := uint32(0); b < fs.blocks; b++ {
		var deleted uint32
		for p := b*fs.ppb + 1; p < (b+1)*fs.ppb; p++ {
			if fs.pages[p] == pageDeleted {
				deleted++
			}
		}
		if deleted > most {
			victim, most = b, deleted
		}
	}
	if victim == noBlock {
		return ErrFull
	}

	first := victim * fs.ppb
	for p := first + 1; p < first+fs.ppb; p++ {
		if fs.pages[p] != pageUsed {
			continue
		}
		if err := fs.relocate(p, victim); err != nil {
			return err
		}
	}

	if err := fs.formatBlock(victim, fs.eraseCounts[victim]+1); err != nil {
		return err
	}
	fs.eraseCounts[victim]++
	for p := first + 1; p < first+fs.ppb; p++ {
		if fs.pages[p] != pageFree {
			fs.pages[p] = pageFree
			fs.free++
		}
	}
	return nil
}

// relocate moves the live page p out of block victim.
func (fs *FS) relocate(p, victim uint32) error {
	data, err := fs.readPage(p)
	if err != nil {
		return err
	}
	h := decodeHeader(data)

	np, err := fs.takeFree(victim)
	if err != nil {
		return err
	}
	if err := fs.programPage(np, data); err != nil {
		return err
	}
	fs.pages[p] = pageDeleted
	fs.cache.drop(p)

	if obj := fs.byID[h.id]; obj != nil {
		if h.kind == kindIndex {
			obj.index = np
		} else {
			obj.data[h.span] = np
		}
	}
	return nil
}
