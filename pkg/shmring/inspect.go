package shmring

import (
	"errors"
	"fmt"
	"sync/atomic"
	"unsafe"
)

// ErrUninitialized indicates no side has assigned the region yet.
var ErrUninitialized = errors.New("ring not initialized")

// Inspect reads the header of a region without assigning it.
func Inspect(region []byte) (State, error) {
	if len(region) < FrameOffset {
		return State{}, fmt.Errorf("region of %d bytes has no ring header", len(region))
	}
	load := func(off int) int {
		return int(atomic.LoadUint32((*uint32)(unsafe.Pointer(&region[off]))))
	}
	frameSize, frames := load(offFrameSize), load(offFrames)
	if frameSize == 0 || frames == 0 {
		return State{}, ErrUninitialized
	}
	if load(offFrameOffset) != FrameOffset || frames < 2 || len(region) < RegionSize(frameSize, frames) {
		return State{}, fmt.Errorf("corrupted ring header: offset=%d frame=%d frames=%d",
			load(offFrameOffset), frameSize, frames)
	}
	l := layout{region: region, frameSize: frameSize, frames: frames}
	return l.state(), nil
}
