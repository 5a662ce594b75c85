package shm

import "errors"

var (
	// ErrUnsupported indicates file backed regions are not available on
	// this platform.
	ErrUnsupported = errors.New("shared memory mapping unsupported")
	// ErrClosed indicates the region was already closed.
	ErrClosed = errors.New("region closed")
)
