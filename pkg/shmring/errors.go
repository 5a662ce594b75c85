package shmring

import (
	"errors"
	"fmt"
)

var (
	// ErrNoSpace indicates the ring is full.
	ErrNoSpace = errors.New("no space")
	// ErrNoData indicates the ring is empty.
	ErrNoData = errors.New("no data")
	// ErrCantLock indicates the critical section can't be acquired.
	ErrCantLock = errors.New("can't lock")
)

// LayoutError reports a frame geometry which doesn't match the one
// recorded in the shared header by the other side.
type LayoutError struct {
	FrameSize, Frames       int
	HdrFrameSize, HdrFrames int
}

// Error implements error.
func (e *LayoutError) Error() string {
	return fmt.Sprintf("ring layout mismatch: assigned %dx%d, header has %dx%d",
		e.Frames, e.FrameSize, e.HdrFrames, e.HdrFrameSize)
}
