// Package shm provides byte regions shared between cores.
//
// A Region is either heap backed (Alloc), which only shares memory between
// goroutines, or a MAP_SHARED file mapping (Map), which shares memory
// between processes mapping the same file.
package shm

import (
	"fmt"
	"sync"
	"unsafe"

	"github.com/golang/glog"
)

// Region is a fixed size byte range.
type Region struct {
	mem   []byte
	path  string
	unmap func([]byte) error

	closeLock sync.Mutex
	closed    bool
}

// Alloc creates a heap backed region of size bytes, 8-byte aligned.
func Alloc(size int) *Region {
	if size <= 0 {
		panic(fmt.Sprintf("invalid region size %d", size))
	}
	words := make([]uint64, (size+7)/8)
	mem := (*[1 << 30]byte)(unsafe.Pointer(&words[0]))[:size:size]
	return &Region{mem: mem}
}

// Path returns the backing file, empty for heap regions.
func (r *Region) Path() string {
	return r.path
}

// Size returns the size of the region.
func (r *Region) Size() int {
	return len(r.mem)
}

// Bytes returns the whole region.
func (r *Region) Bytes() []byte {
	return r.mem
}

// Slice returns size bytes at off. It panics when out of range.
func (r *Region) Slice(off, size int) []byte {
	if off < 0 || size < 0 || off+size > len(r.mem) {
		panic(fmt.Sprintf("slice [%#x, %#x) out of region size %#x", off, off+size, len(r.mem)))
	}
	return r.mem[off : off+size : off+size]
}

// Zero clears size bytes at off.
func (r *Region) Zero(off, size int) {
	b := r.Slice(off, size)
	for i := range b {
		b[i] = 0
	}
}

// Close unmaps the region. Heap regions are only marked closed.
func (r *Region) Close() error {
	r.closeLock.Lock()
	defer r.closeLock.Unlock()
	if r.closed {
		return ErrClosed
	}
	r.closed = true
	if r.unmap == nil {
		return nil
	}
	glog.V(2).Infof("unmap %s", r.path)
	return r.unmap(r.mem)
}
