package filesystem

// ReadFile returns the contents of the named file.
func (fs *FileSystem) ReadFile(name string) ([]byte, error) {
	size, err := fs.FileSize(name)
	if err != nil {
		return nil, err
	}

	h, err := fs.Open(name, ModeReadOnly, FlagNone)
	if err != nil {
		return nil, err
	}
	data := make([]byte, size)
	if size > 0 {
		err = fs.Read(h, 0, data)
	}
	if cerr := fs.Close(h); err == nil {
		err = cerr
	}
	if err != nil {
		return nil, err
	}
	return data, nil
}

// WriteFile creates or replaces the named file with data.
func (fs *FileSystem) WriteFile(name string, data []byte) error {
	flags := FlagCreate | FlagTruncate
	if fs != nil && fs.cfg.Type == TypeFatFs {
		// FAT creation always truncates.
		flags = FlagCreate
	}

	h, err := fs.Open(name, ModeWriteOnly, flags)
	if err != nil {
		return err
	}
	if len(data) > 0 {
		err = fs.Write(h, 0, data)
	}
	if cerr := fs.Close(h); err == nil {
		err = cerr
	}
	return err
}
