package spiffs

import (
	"fmt"
)

// Mount configures the filesystem and mounts the flash region. work must hold
// two pages, fdCount bounds the number of open files and cache may be nil.
// The configuration is retained even when mounting fails so Format can run.
func (fs *FS) Mount(cfg *Config, work []byte, fdCount int, cache []byte) error {
	if fs.mounted {
		return ErrMounted
	}
	if err := checkConfig(cfg, work, fdCount); err != nil {
		return err
	}

	fs.cfg = *cfg
	fs.work = work
	fs.ppb = cfg.LogBlockSize / cfg.LogPageSize
	fs.blocks = cfg.PhysSize / cfg.LogBlockSize
	fs.fds = make([]*descriptor, fdCount)
	fs.cache = newPageCache(cache, cfg.LogPageSize)
	fs.configured = true

	if err := fs.scan(); err != nil {
		fs.reset()
		return err
	}
	fs.mounted = true
	return nil
}

// Unmount closes every open file and unmounts the filesystem.
func (fs *FS) Unmount() {
	if !fs.mounted {
		return
	}
	fs.reset()
	fs.mounted = false
}

// Format erases the whole region and writes empty block headers. The
// filesystem must have been configured by a Mount call and be unmounted.
func (fs *FS) Format() error {
	if fs.mounted {
		return ErrMounted
	}
	if !fs.configured {
		return ErrNotConfigured
	}
	fs.cache.reset()
	for b := uint32(0); b < fs.blocks; b++ {
		if err := fs.formatBlock(b, 0); err != nil {
			return err
		}
	}
	return nil
}

func checkConfig(cfg *Config, work []byte, fdCount int) error {
	switch {
	case cfg == nil:
		return fmt.Errorf("%w: missing config", ErrInvalidConfig)
	case cfg.HalRead == nil || cfg.HalWrite == nil || cfg.HalErase == nil:
		return fmt.Errorf("%w: missing storage callback", ErrInvalidConfig)
	case cfg.LogPageSize < minPageSize || cfg.LogPageSize > MaxPageSize:
		return fmt.Errorf("%w: page size %d outside %d..%d", ErrInvalidConfig, cfg.LogPageSize, minPageSize, MaxPageSize)
	case cfg.LogPageSize >= cfg.LogBlockSize:
		return fmt.Errorf("%w: page size %d not below block size %d", ErrInvalidConfig, cfg.LogPageSize, cfg.LogBlockSize)
	case cfg.LogBlockSize%cfg.LogPageSize != 0:
		return fmt.Errorf("%w: block size %d not a multiple of page size %d", ErrInvalidConfig, cfg.LogBlockSize, cfg.LogPageSize)
	case cfg.PhysEraseBlock == 0 || cfg.LogBlockSize%cfg.PhysEraseBlock != 0:
		return fmt.Errorf("%w: block size %d not a multiple of erase block %d", ErrInvalidConfig, cfg.LogBlockSize, cfg.PhysEraseBlock)
	case cfg.PhysSize%cfg.LogBlockSize != 0:
		return fmt.Errorf("%w: size %d not a multiple of block size %d", ErrInvalidConfig, cfg.PhysSize, cfg.LogBlockSize)
	case cfg.PhysSize/cfg.LogBlockSize < 2 || cfg.PhysSize/cfg.LogBlockSize > MaxBlocks:
		return fmt.Errorf("%w: %d blocks", ErrInvalidConfig, cfg.PhysSize/cfg.LogBlockSize)
	case uint32(len(work)) < 2*cfg.LogPageSize:
		return fmt.Errorf("%w: work buffer of %d bytes, need %d", ErrInvalidConfig, len(work), 2*cfg.LogPageSize)
	case fdCount <= 0:
		return fmt.Errorf("%w: no file descriptors", ErrInvalidConfig)
	}
	return nil
}

func (fs *FS) reset() {
	fs.pages = nil
	fs.eraseCounts = nil
	fs.objects = nil
	fs.byID = nil
	fs.free = 0
	fs.cursor = 0
	clear(fs.fds)
	fs.cache.reset()
}

// scan rebuilds the in-memory page map and object table from flash.
func (fs *FS) scan() error {
	fs.pages = make([]pageState, fs.blocks*fs.ppb)
	fs.eraseCounts = make([]uint32, fs.blocks)
	fs.objects = make(map[string]*object)
	fs.byID = make(map[uint16]*object)
	fs.free = 0

	spans := make(map[uint16]map[uint16]uint32)
	for b := uint32(0); b < fs.blocks; b++ {
		first := b * fs.ppb
		hdr, err := fs.readRaw(fs.pageAddr(first), blockHeaderSize)
		if err != nil {
			return err
		}
		eraseCount, ok := fs.decodeBlockHeader(hdr)
		if !ok {
			return fmt.Errorf("%w: block %d has no valid header", ErrNotAFilesystem, b)
		}
		fs.eraseCounts[b] = eraseCount
		fs.pages[first] = pageBlockHeader

		for p := first + 1; p < first+fs.ppb; p++ {
			raw, err := fs.readRaw(fs.pageAddr(p), pageHeaderSize)
			if err != nil {
				return err
			}
			h := decodeHeader(raw)
			switch {
			case h.id == idFree:
				fs.pages[p] = pageFree
				fs.free++
			case h.id == idDeleted:
				fs.pages[p] = pageDeleted
			case h.kind == kindIndex:
				if err := fs.loadIndex(p, h); err != nil {
					return err
				}
			case h.kind == kindData:
				if spans[h.id] == nil {
					spans[h.id] = make(map[uint16]uint32)
				}
				if _, dup := spans[h.id][h.span]; dup {
					fs.pages[p] = pageDeleted
					continue
				}
				spans[h.id][h.span] = p
				fs.pages[p] = pageUsed
			default:
				fs.pages[p] = pageDeleted
			}
		}
	}

	for id, data := range spans {
		obj := fs.byID[id]
		if obj == nil {
			for _, p := range data {
				fs.pages[p] = pageDeleted
			}
			continue
		}
		obj.data = data
	}
	return nil
}

func (fs *FS) loadIndex(p uint32, h pageHeader) error {
	page, err := fs.readPage(p)
	if err != nil {
		return err
	}
	size, name, ok := decodeIndex(page)
	if !ok || fs.byID[h.id] != nil || fs.objects[name] != nil {
		fs.pages[p] = pageDeleted
		return nil
	}
	obj := &object{id: h.id, name: name, size: size, index: p, data: make(map[uint16]uint32)}
	fs.objects[name] = obj
	fs.byID[h.id] = obj
	fs.pages[p] = pageUsed
	return nil
}
