package shm

import (
	"io/ioutil"
	"os"
	"path/filepath"
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestAlloc(t *testing.T) {
	r := Alloc(13)
	require.Equal(t, 13, r.Size())
	require.Empty(t, r.Path())
	require.Zero(t, uintptr(unsafe.Pointer(&r.Bytes()[0]))&7)

	copy(r.Slice(4, 4), "abcd")
	require.Equal(t, "abcd", string(r.Bytes()[4:8]))
	r.Zero(5, 2)
	require.Equal(t, []byte{'a', 0, 0, 'd'}, r.Slice(4, 4))

	require.NoError(t, r.Close())
	require.Equal(t, ErrClosed, r.Close())
}

func TestSliceOutOfRange(t *testing.T) {
	r := Alloc(16)
	require.Panics(t, func() { r.Slice(8, 9) })
	require.Panics(t, func() { r.Slice(-1, 2) })
	require.Len(t, r.Slice(16, 0), 0)
	require.Panics(t, func() { Alloc(0) })
}

func TestSliceCapped(t *testing.T) {
	r := Alloc(16)
	s := r.Slice(0, 4)
	require.Equal(t, 4, cap(s))
}

func TestMapShared(t *testing.T) {
	dir, err := ioutil.TempDir("", "shm")
	require.NoError(t, err)
	defer os.RemoveAll(dir)
	path := filepath.Join(dir, "region")

	r1, err := Map(path, 4096)
	if err == ErrUnsupported {
		t.Skip(err)
	}
	require.NoError(t, err)
	r2, err := Map(path, 4096)
	require.NoError(t, err)
	require.Equal(t, path, r2.Path())

	copy(r1.Slice(100, 5), "hello")
	require.Equal(t, "hello", string(r2.Slice(100, 5)))
	r2.Zero(100, 5)
	require.Equal(t, make([]byte, 5), r1.Slice(100, 5))

	require.NoError(t, r1.Close())
	require.NoError(t, r2.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(4096), info.Size())

	// a smaller map keeps the file size
	r3, err := Map(path, 64)
	require.NoError(t, err)
	require.Equal(t, 64, r3.Size())
	require.NoError(t, r3.Close())
	info, err = os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(4096), info.Size())
}
