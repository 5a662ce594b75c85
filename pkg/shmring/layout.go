package shmring

import (
	"fmt"
	"sync/atomic"
	"unsafe"
)

const (
	// FrameOffset is the byte offset of the first frame from the region
	// base (128 words).
	FrameOffset = 512

	offHead        = 0
	offTail        = 4
	offFrameOffset = 8
	offFrameSize   = 12
	offFrames      = 16
)

// RegionSize returns the minimum region size for frames of frameSize bytes.
func RegionSize(frameSize, frames int) int {
	return FrameOffset + frameSize*frames
}

// layout is a view of the header and frames inside a region.
type layout struct {
	region    []byte
	frameSize int
	frames    int
}

func newLayout(region []byte, frameSize, frames int) layout {
	if frameSize <= 0 || frames < 2 {
		panic(fmt.Sprintf("invalid ring geometry %dx%d", frames, frameSize))
	}
	if need := RegionSize(frameSize, frames); len(region) < need {
		panic(fmt.Sprintf("memory size is not enough: %d bytes, must be at least %d", len(region), need))
	}
	if uintptr(unsafe.Pointer(&region[0]))%4 != 0 {
		panic("shared ring region must be 4-byte aligned")
	}
	l := layout{region: region, frameSize: frameSize, frames: frames}
	hdrSize, hdrFrames := l.load(offFrameSize), l.load(offFrames)
	if hdrSize != 0 || hdrFrames != 0 {
		if int(hdrSize) != frameSize || int(hdrFrames) != frames {
			panic(&LayoutError{
				FrameSize:    frameSize,
				Frames:       frames,
				HdrFrameSize: int(hdrSize),
				HdrFrames:    int(hdrFrames),
			})
		}
	}
	l.store(offFrameOffset, FrameOffset)
	l.store(offFrameSize, uint32(frameSize))
	l.store(offFrames, uint32(frames))
	return l
}

func (l *layout) word(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&l.region[off]))
}

func (l *layout) load(off int) uint32 {
	return atomic.LoadUint32(l.word(off))
}

func (l *layout) store(off int, val uint32) {
	atomic.StoreUint32(l.word(off), val)
}

func (l *layout) head() uint32 { return l.load(offHead) }
func (l *layout) tail() uint32 { return l.load(offTail) }

func (l *layout) setHead(v uint32) { l.store(offHead, v) }
func (l *layout) setTail(v uint32) { l.store(offTail, v) }

func (l *layout) next(idx uint32) uint32 {
	if idx++; idx >= uint32(l.frames) {
		idx = 0
	}
	return idx
}

func (l *layout) frame(idx uint32) []byte {
	start := FrameOffset + int(idx)*l.frameSize
	return l.region[start : start+l.frameSize]
}

// putFrame copies msg into the frame at idx and zero fills the rest.
func (l *layout) putFrame(idx uint32, msg []byte) int {
	f := l.frame(idx)
	n := copy(f, msg)
	for i := n; i < len(f); i++ {
		f[i] = 0
	}
	return n
}

// State is a snapshot of ring indices.
type State struct {
	Head      int
	Tail      int
	Used      int
	FrameSize int
	Frames    int
}

func (l *layout) state() State {
	head, tail := int(l.head()), int(l.tail())
	used := tail - head
	if used < 0 {
		used += l.frames
	}
	return State{
		Head:      head,
		Tail:      tail,
		Used:      used,
		FrameSize: l.frameSize,
		Frames:    l.frames,
	}
}

// String implements fmt.Stringer.
func (s State) String() string {
	return fmt.Sprintf("head=%d tail=%d used=%d/%d frame=%d", s.Head, s.Tail, s.Used, s.Frames-1, s.FrameSize)
}
