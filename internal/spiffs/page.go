package spiffs

import (
	"encoding/binary"
	"fmt"
)

const (
	magic           uint32 = 0x53504653
	blockHeaderSize        = 16
	pageHeaderSize         = 8
	minPageSize            = MinPageSize

	idFree    uint16 = 0xFFFF
	idDeleted uint16 = 0x0000

	kindIndex uint8 = 0x01
	kindData  uint8 = 0x02

	noBlock = ^uint32(0)
)

// pageHeader prefixes every non-header page:
// id(2) span(2) kind(1) reserved(1) length(2), little endian.
type pageHeader struct {
	id     uint16
	span   uint16
	kind   uint8
	length uint16
}

func decodeHeader(b []byte) pageHeader {
	return pageHeader{
		id:     binary.LittleEndian.Uint16(b[0:2]),
		span:   binary.LittleEndian.Uint16(b[2:4]),
		kind:   b[4],
		length: binary.LittleEndian.Uint16(b[6:8]),
	}
}

func (h pageHeader) encode(b []byte) {
	binary.LittleEndian.PutUint16(b[0:2], h.id)
	binary.LittleEndian.PutUint16(b[2:4], h.span)
	b[4] = h.kind
	b[5] = 0xFF
	binary.LittleEndian.PutUint16(b[6:8], h.length)
}

// Index pages carry size(4) nameLen(1) name after the page header.
func encodeIndex(b []byte, size uint32, name string) {
	p := b[pageHeaderSize:]
	binary.LittleEndian.PutUint32(p[0:4], size)
	p[4] = byte(len(name))
	copy(p[5:], name)
}

func decodeIndex(b []byte) (uint32, string, bool) {
	p := b[pageHeaderSize:]
	n := int(p[4])
	if n == 0 || n > NameMax || 5+n > len(p) {
		return 0, "", false
	}
	return binary.LittleEndian.Uint32(p[0:4]), string(p[5 : 5+n]), true
}

// Block headers: magic(4) blockSize(4) pageSize(2) blockCount(2) eraseCount(4).
func (fs *FS) encodeBlockHeader(b []byte, eraseCount uint32) {
	binary.LittleEndian.PutUint32(b[0:4], magic)
	binary.LittleEndian.PutUint32(b[4:8], fs.cfg.LogBlockSize)
	binary.LittleEndian.PutUint16(b[8:10], uint16(fs.cfg.LogPageSize))
	binary.LittleEndian.PutUint16(b[10:12], uint16(fs.blocks))
	binary.LittleEndian.PutUint32(b[12:16], eraseCount)
}

func (fs *FS) decodeBlockHeader(b []byte) (uint32, bool) {
	ok := binary.LittleEndian.Uint32(b[0:4]) == magic &&
		binary.LittleEndian.Uint32(b[4:8]) == fs.cfg.LogBlockSize &&
		uint32(binary.LittleEndian.Uint16(b[8:10])) == fs.cfg.LogPageSize &&
		uint32(binary.LittleEndian.Uint16(b[10:12])) == fs.blocks
	return binary.LittleEndian.Uint32(b[12:16]), ok
}

func (fs *FS) pageAddr(p uint32) uint32 {
	return fs.cfg.PhysAddr + p*fs.cfg.LogPageSize
}

func (fs *FS) blockOf(p uint32) uint32 {
	return p / fs.ppb
}

func (fs *FS) dataSize() uint32 {
	return fs.cfg.LogPageSize - pageHeaderSize
}

// scratch is the assembly half of the work buffer.
func (fs *FS) scratch() []byte {
	return fs.work[fs.cfg.LogPageSize : 2*fs.cfg.LogPageSize]
}

// readRaw reads n bytes at addr into the read half of the work buffer.
func (fs *FS) readRaw(addr uint32, n int) ([]byte, error) {
	buf := fs.work[:n]
	if err := fs.cfg.HalRead(addr, buf); err != nil {
		return nil, fmt.Errorf("spiffs: read at %#x: %w", addr, err)
	}
	return buf, nil
}

// readPage returns the contents of page p. The slice is only valid until the
// next read.
func (fs *FS) readPage(p uint32) ([]byte, error) {
	if data := fs.cache.lookup(p); data != nil {
		return data, nil
	}
	buf := fs.cache.slotFor(p)
	if buf == nil {
		buf = fs.work[:fs.cfg.LogPageSize]
	}
	if err := fs.cfg.HalRead(fs.pageAddr(p), buf); err != nil {
		fs.cache.drop(p)
		return nil, fmt.Errorf("spiffs: read page %d: %w", p, err)
	}
	return buf, nil
}

// programPage writes a full page into the free page p.
func (fs *FS) programPage(p uint32, data []byte) error {
	if err := fs.cfg.HalWrite(fs.pageAddr(p), data); err != nil {
		fs.markDeleted(p)
		return fmt.Errorf("spiffs: write page %d: %w", p, err)
	}
	fs.cache.update(p, data)
	return nil
}

// deletePage clears the object id of page p.
func (fs *FS) deletePage(p uint32) error {
	var zero [2]byte
	if err := fs.cfg.HalWrite(fs.pageAddr(p), zero[:]); err != nil {
		return fmt.Errorf("spiffs: delete page %d: %w", p, err)
	}
	fs.markDeleted(p)
	return nil
}

func (fs *FS) markDeleted(p uint32) {
	if fs.pages[p] == pageFree {
		fs.free--
	}
	fs.pages[p] = pageDeleted
	fs.cache.drop(p)
}

// formatBlock erases block b and writes its header.
func (fs *FS) formatBlock(b, eraseCount uint32) error {
	addr := fs.cfg.PhysAddr + b*fs.cfg.LogBlockSize
	for off := uint32(0); off < fs.cfg.LogBlockSize; off += fs.cfg.PhysEraseBlock {
		if err := fs.cfg.HalErase(addr+off, fs.cfg.PhysEraseBlock); err != nil {
			return fmt.Errorf("spiffs: erase block %d: %w", b, err)
		}
	}
	fs.cache.dropRange(b*fs.ppb, (b+1)*fs.ppb)

	hdr := fs.scratch()[:blockHeaderSize]
	fs.encodeBlockHeader(hdr, eraseCount)
	if err := fs.cfg.HalWrite(addr, hdr); err != nil {
		return fmt.Errorf("spiffs: write block header %d: %w", b, err)
	}
	return nil
}
