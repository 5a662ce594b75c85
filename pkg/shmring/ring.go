package shmring

import (
	"github.com/golang/glog"
)

// Queue is implemented by both ring variants.
type Queue interface {
	Write(msg []byte) error
	Read(out []byte) (int, error)
	State() State
}

var (
	_ Queue = &RingBuffer{}
	_ Queue = &CSRingBuffer{}
)

// RingBuffer is the unprotected ring. The caller guarantees a single
// producer and a single consumer.
type RingBuffer struct {
	layout
}

// Assign binds a RingBuffer to region with frames of frameSize bytes.
// It panics if region is smaller than RegionSize(frameSize, frames).
// The region must be zeroed once, by one side, before the first Assign.
func Assign(region []byte, frameSize, frames int) *RingBuffer {
	r := &RingBuffer{layout: newLayout(region, frameSize, frames)}
	glog.V(4).Infof("ring assigned: %s", r.State())
	return r
}

// FrameSize returns S.
func (r *RingBuffer) FrameSize() int {
	return r.frameSize
}

// Frames returns N.
func (r *RingBuffer) Frames() int {
	return r.frames
}

// State returns a snapshot of the indices.
func (r *RingBuffer) State() State {
	return r.state()
}

// Write copies msg into the next free frame. A msg longer than the frame
// is truncated.
func (r *RingBuffer) Write(msg []byte) error {
	head, tail := r.head(), r.tail()
	glog.V(4).Infof("write: head %d, tail %d", head, tail)
	next := r.next(tail)
	if next == head {
		return ErrNoSpace
	}
	r.writeAt(tail, msg)
	r.setTail(next)
	return nil
}

// Read copies the oldest frame into out and returns the number of bytes
// copied, which is min(len(out), FrameSize()).
func (r *RingBuffer) Read(out []byte) (int, error) {
	head, tail := r.head(), r.tail()
	glog.V(4).Infof("read: head %d, tail %d", head, tail)
	if head == tail {
		return 0, ErrNoData
	}
	n := copy(out, r.frame(head))
	r.setHead(r.next(head))
	return n, nil
}

func (r *RingBuffer) writeAt(idx uint32, msg []byte) {
	if n := r.putFrame(idx, msg); n < len(msg) {
		glog.Warningf("message truncated: %d bytes, frame is %d", len(msg), n)
	}
}
