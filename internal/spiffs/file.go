package spiffs

import (
	"fmt"
	"io"
)

// Open opens the named file and returns a descriptor.
func (fs *FS) Open(name string, flags Flags) (File, error) {
	if !fs.mounted {
		return -1, ErrNotMounted
	}
	if len(name) > NameMax {
		return -1, ErrNameTooLong
	}
	if name == "" {
		return -1, ErrNotFound
	}

	fd := -1
	for i, d := range fs.fds {
		if d == nil {
			fd = i
			break
		}
	}
	if fd < 0 {
		return -1, ErrNoDescriptor
	}

	obj := fs.objects[name]
	switch {
	case obj != nil && flags&FlagCreate != 0 && flags&FlagExcl != 0:
		return -1, ErrExists
	case obj == nil && flags&FlagCreate == 0:
		return -1, ErrNotFound
	case obj == nil:
		var err error
		if obj, err = fs.create(name); err != nil {
			return -1, err
		}
	case flags&FlagTrunc != 0 && flags&FlagWrite != 0:
		if err := fs.truncate(obj); err != nil {
			return -1, err
		}
	}

	fs.fds[fd] = &descriptor{obj: obj, flags: flags}
	return File(fd), nil
}

// Close releases a descriptor.
func (fs *FS) Close(fh File) error {
	if !fs.mounted {
		return ErrNotMounted
	}
	if int(fh) < 0 || int(fh) >= len(fs.fds) || fs.fds[fh] == nil {
		return ErrBadDescriptor
	}
	fs.fds[fh] = nil
	return nil
}

// Lseek moves the file offset. Offsets past the end of the file are rejected.
func (fs *FS) Lseek(fh File, offset int64, whence int) (int64, error) {
	d, err := fs.descriptor(fh)
	if err != nil {
		return 0, err
	}

	var base int64
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		base = int64(d.offset)
	case io.SeekEnd:
		base = int64(d.obj.size)
	default:
		return 0, fmt.Errorf("spiffs: invalid whence %d", whence)
	}

	pos := base + offset
	if pos < 0 || pos > int64(d.obj.size) {
		return 0, ErrEndOfObject
	}
	d.offset = uint32(pos)
	return pos, nil
}

// Read reads from the current offset. It returns fewer bytes than requested
// at the end of the file, and ErrEndOfObject when nothing is left.
func (fs *FS) Read(fh File, p []byte) (int, error) {
	d, err := fs.descriptor(fh)
	if err != nil {
		return 0, err
	}
	if d.flags&FlagRead == 0 {
		return 0, ErrNotReadable
	}
	if len(p) == 0 {
		return 0, nil
	}
	if d.offset >= d.obj.size {
		return 0, ErrEndOfObject
	}

	ds := fs.dataSize()
	n := min(uint32(len(p)), d.obj.size-d.offset)
	for done := uint32(0); done < n; {
		off := d.offset + done
		span := uint16(off / ds)
		po := off % ds
		k := min(ds-po, n-done)

		dst := p[done : done+k]
		if pg, ok := d.obj.data[span]; ok {
			page, err := fs.readPage(pg)
			if err != nil {
				return int(done), err
			}
			copy(dst, page[pageHeaderSize+po:])
		} else {
			clear(dst)
		}
		done += k
	}

	d.offset += n
	return int(n), nil
}

// Write writes at the current offset, or at the end of the file when the
// descriptor was opened with FlagAppend.
func (fs *FS) Write(fh File, p []byte) (int, error) {
	d, err := fs.descriptor(fh)
	if err != nil {
		return 0, err
	}
	if d.flags&FlagWrite == 0 {
		return 0, ErrNotWritable
	}
	if d.flags&FlagAppend != 0 {
		d.offset = d.obj.size
	}

	obj := d.obj
	ds := fs.dataSize()
	written := 0
	for written < len(p) {
		off := d.offset + uint32(written)
		if off/ds > 0xFFFF {
			break
		}
		span := uint16(off / ds)
		po := off % ds
		k := min(ds-po, uint32(len(p)-written))

		if err := fs.writeSpan(obj, span, po, p[written:written+int(k)]); err != nil {
			fs.commit(d, written)
			return written, err
		}
		written += int(k)
	}

	if err := fs.commit(d, written); err != nil {
		return written, err
	}
	if written < len(p) {
		return written, ErrFull
	}
	return written, nil
}

// commit advances the descriptor and records a grown file size.
func (fs *FS) commit(d *descriptor, written int) error {
	d.offset += uint32(written)
	if d.offset <= d.obj.size {
		return nil
	}
	d.obj.size = d.offset
	return fs.writeIndex(d.obj)
}

// writeSpan replaces the data page of span with one carrying chunk at po.
func (fs *FS) writeSpan(obj *object, span uint16, po uint32, chunk []byte) error {
	np, err := fs.allocPage()
	if err != nil {
		return err
	}

	page := fs.scratch()
	length := po + uint32(len(chunk))
	old, hasOld := obj.data[span]
	if hasOld {
		prev, err := fs.readPage(old)
		if err != nil {
			fs.markDeleted(np)
			return err
		}
		copy(page, prev)
		length = max(length, uint32(decodeHeader(prev).length))
	} else {
		for i := range page {
			page[i] = 0xFF
		}
		clear(page[pageHeaderSize : pageHeaderSize+po])
	}

	pageHeader{id: obj.id, span: span, kind: kindData, length: uint16(length)}.encode(page)
	copy(page[pageHeaderSize+po:], chunk)

	if err := fs.programPage(np, page); err != nil {
		return err
	}
	obj.data[span] = np
	if hasOld {
		return fs.deletePage(old)
	}
	return nil
}

// writeIndex programs a fresh index page for obj and retires the old one.
func (fs *FS) writeIndex(obj *object) error {
	np, err := fs.allocPage()
	if err != nil {
		return err
	}

	page := fs.scratch()
	for i := range page {
		page[i] = 0xFF
	}
	pageHeader{id: obj.id, kind: kindIndex, length: uint16(5 + len(obj.name))}.encode(page)
	encodeIndex(page, obj.size, obj.name)

	if err := fs.programPage(np, page); err != nil {
		return err
	}
	old, hadOld := obj.index, obj.index != noBlock
	obj.index = np
	if hadOld {
		return fs.deletePage(old)
	}
	return nil
}

func (fs *FS) create(name string) (*object, error) {
	id := uint16(1)
	for ; id < idFree; id++ {
		if fs.byID[id] == nil {
			break
		}
	}
	if id == idFree {
		return nil, ErrFull
	}

	obj := &object{id: id, name: name, index: noBlock, data: make(map[uint16]uint32)}
	if err := fs.writeIndex(obj); err != nil {
		return nil, err
	}
	fs.objects[name] = obj
	fs.byID[id] = obj
	return obj, nil
}

func (fs *FS) truncate(obj *object) error {
	for span, p := range obj.data {
		if err := fs.deletePage(p); err != nil {
			return err
		}
		delete(obj.data, span)
	}
	obj.size = 0
	return fs.writeIndex(obj)
}

// Remove deletes the named file. Descriptors still open on it become invalid.
func (fs *FS) Remove(name string) error {
	if !fs.mounted {
		return ErrNotMounted
	}
	obj := fs.objects[name]
	if obj == nil {
		return ErrNotFound
	}

	for _, p := range obj.data {
		if err := fs.deletePage(p); err != nil {
			return err
		}
	}
	if err := fs.deletePage(obj.index); err != nil {
		return err
	}
	delete(fs.objects, name)
	delete(fs.byID, obj.id)
	obj.removed = true
	return nil
}

// Stat describes the named file.
func (fs *FS) Stat(name string) (Stat, error) {
	if !fs.mounted {
		return Stat{}, ErrNotMounted
	}
	obj := fs.objects[name]
	if obj == nil {
		return Stat{}, ErrNotFound
	}
	return Stat{ID: obj.id, Name: obj.name, Size: obj.size}, nil
}

func (fs *FS) descriptor(fh File) (*descriptor, error) {
	if !fs.mounted {
		return nil, ErrNotMounted
	}
	if int(fh) < 0 || int(fh) >= len(fs.fds) {
		return nil, ErrBadDescriptor
	}
	d := fs.fds[fh]
	if d == nil || d.obj.removed {
		return nil, ErrBadDescriptor
	}
	return d, nil
}
