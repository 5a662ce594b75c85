//go:build linux || darwin || freebsd
// +build linux darwin freebsd

package shm

import (
	"fmt"
	"os"

	"github.com/golang/glog"
	"golang.org/x/sys/unix"
)

// Map maps size bytes of the file at path, creating or growing it as
// needed. Processes mapping the same file share the region.
func Map(path string, size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("invalid region size %d", size)
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE, 0644)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return nil, err
	}
	if info.Size() < int64(size) {
		if err = f.Truncate(int64(size)); err != nil {
			return nil, fmt.Errorf("truncate %s: %v", path, err)
		}
	}
	mem, err := unix.Mmap(int(f.Fd()), 0, size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s: %v", path, err)
	}
	glog.V(2).Infof("mapped %s size %#x", path, size)
	return &Region{mem: mem, path: path, unmap: unix.Munmap}, nil
}
