//go:build !linux && !darwin && !freebsd
// +build !linux,!darwin,!freebsd

package shm

// Map is not supported on this platform.
func Map(path string, size int) (*Region, error) {
	return nil, ErrUnsupported
}
