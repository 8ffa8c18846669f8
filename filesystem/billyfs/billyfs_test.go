package billyfs_test

import (
	"io"
	"os"
	"testing"

	"github.com/go-git/go-billy/v5/util"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmgilman/go/flashfs/errors"
	"github.com/jmgilman/go/flashfs/filesystem"
	"github.com/jmgilman/go/flashfs/filesystem/billyfs"
	"github.com/jmgilman/go/flashfs/storage"
)

var allTypes = []filesystem.Type{
	filesystem.TypeLittleFs,
	filesystem.TypeFatFs,
	filesystem.TypeSpifFs,
}

func newBilly(t *testing.T, typ filesystem.Type) *billyfs.FS {
	t.Helper()
	dev := storage.NewMemory(1<<20, storage.NewDataport(4096))
	fs, err := filesystem.New(filesystem.Config{
		Type:    typ,
		Size:    filesystem.StorageMax,
		Storage: storage.InterfaceOf(dev),
	})
	require.NoError(t, err)
	require.NoError(t, fs.Format())
	require.NoError(t, fs.Mount())
	t.Cleanup(func() {
		_ = fs.Unmount()
		_ = fs.Free()
	})
	return billyfs.New(fs)
}

func TestFS_WriteReadFile(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			b := newBilly(t, typ)

			require.NoError(t, util.WriteFile(b, "/config.txt", []byte("hello flash"), 0o644))
			data, err := util.ReadFile(b, "config.txt")
			require.NoError(t, err)
			assert.Equal(t, "hello flash", string(data))

			info, err := b.Stat("config.txt")
			require.NoError(t, err)
			assert.Equal(t, "config.txt", info.Name())
			assert.Equal(t, int64(11), info.Size())
			assert.False(t, info.IsDir())

			// Overwrite with shorter content.
			require.NoError(t, util.WriteFile(b, "config.txt", []byte("bye"), 0o644))
			data, err = util.ReadFile(b, "config.txt")
			require.NoError(t, err)
			assert.Equal(t, "bye", string(data))
		})
	}
}

func TestFS_NotExist(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			b := newBilly(t, typ)

			_, err := b.Open("missing")
			assert.ErrorIs(t, err, os.ErrNotExist)

			_, err = b.Stat("missing")
			assert.ErrorIs(t, err, os.ErrNotExist)

			assert.ErrorIs(t, b.Remove("missing"), os.ErrNotExist)
		})
	}
}

func TestFile_SeekAndRead(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			b := newBilly(t, typ)
			require.NoError(t, util.WriteFile(b, "digits", []byte("0123456789"), 0o644))

			f, err := b.Open("digits")
			require.NoError(t, err)
			defer f.Close()

			pos, err := f.Seek(-4, io.SeekEnd)
			require.NoError(t, err)
			assert.Equal(t, int64(6), pos)

			buf := make([]byte, 8)
			n, err := f.Read(buf)
			assert.Equal(t, 4, n)
			assert.ErrorIs(t, err, io.EOF)
			assert.Equal(t, "6789", string(buf[:n]))

			n, err = f.ReadAt(buf[:3], 2)
			require.NoError(t, err)
			assert.Equal(t, "234", string(buf[:n]))

			_, err = f.Read(buf)
			assert.ErrorIs(t, err, io.EOF)

			_, err = f.Seek(-1, io.SeekStart)
			assert.Error(t, err)
		})
	}
}

func TestFile_WriteThenRead(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			b := newBilly(t, typ)

			f, err := b.Create("log")
			require.NoError(t, err)
			_, err = f.Write([]byte("abc"))
			require.NoError(t, err)
			_, err = f.Write([]byte("def"))
			require.NoError(t, err)

			_, err = f.Seek(0, io.SeekStart)
			require.NoError(t, err)
			data, err := io.ReadAll(f)
			require.NoError(t, err)
			assert.Equal(t, "abcdef", string(data))
			require.NoError(t, f.Close())

			assert.ErrorIs(t, f.Close(), os.ErrClosed)
		})
	}
}

func TestFile_Append(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			b := newBilly(t, typ)
			require.NoError(t, util.WriteFile(b, "log", []byte("one,"), 0o644))

			f, err := b.OpenFile("log", os.O_WRONLY|os.O_APPEND, 0)
			require.NoError(t, err)
			_, err = f.Write([]byte("two"))
			require.NoError(t, err)
			require.NoError(t, f.Close())

			data, err := util.ReadFile(b, "log")
			require.NoError(t, err)
			assert.Equal(t, "one,two", string(data))
		})
	}
}

func TestFS_FatCreateKeepsContent(t *testing.T) {
	b := newBilly(t, filesystem.TypeFatFs)
	require.NoError(t, util.WriteFile(b, "keep", []byte("contents"), 0o644))

	f, err := b.OpenFile("keep", os.O_RDWR|os.O_CREATE, 0o644)
	require.NoError(t, err)
	buf := make([]byte, 8)
	n, err := f.Read(buf)
	require.NoError(t, err)
	assert.Equal(t, "contents", string(buf[:n]))
	require.NoError(t, f.Close())

	_, err = b.OpenFile("keep", os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	assert.ErrorIs(t, err, os.ErrExist)

	f, err = b.OpenFile("fresh", os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
	require.NoError(t, err)
	require.NoError(t, f.Close())
}

func TestFS_Rename(t *testing.T) {
	for _, typ := range allTypes {
		t.Run(typ.String(), func(t *testing.T) {
			b := newBilly(t, typ)
			require.NoError(t, util.WriteFile(b, "old", []byte("payload"), 0o644))

			require.NoError(t, b.Rename("old", "new"))

			_, err := b.Stat("old")
			assert.ErrorIs(t, err, os.ErrNotExist)
			data, err := util.ReadFile(b, "new")
			require.NoError(t, err)
			assert.Equal(t, "payload", string(data))
		})
	}
}

func TestFile_Truncate(t *testing.T) {
	b := newBilly(t, filesystem.TypeLittleFs)
	require.NoError(t, util.WriteFile(b, "t", []byte("1234"), 0o644))

	f, err := b.OpenFile("t", os.O_RDWR, 0)
	require.NoError(t, err)
	defer f.Close()

	assert.NoError(t, f.Truncate(4))
	err = f.Truncate(2)
	require.Error(t, err)
	assert.Equal(t, errors.CodeNotSupported, errors.GetCode(err))
}

func TestFS_Unwrap(t *testing.T) {
	b := newBilly(t, filesystem.TypeLittleFs)
	assert.Equal(t, filesystem.TypeLittleFs, b.Unwrap().Type())
	assert.Equal(t, "a/b", b.Join("a", "b"))
}
