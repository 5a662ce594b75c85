package shmring

import (
	"github.com/golang/glog"
)

// CSRingBuffer is the ring guarded by a CriticalSection. Writes never fail
// for lack of space: when full the oldest frame is discarded.
type CSRingBuffer struct {
	ring RingBuffer
	cs   CriticalSection
}

// AssignWithCS binds a CSRingBuffer to region, see Assign.
func AssignWithCS(region []byte, frameSize, frames int, cs CriticalSection) *CSRingBuffer {
	if cs == nil {
		panic("critical section required")
	}
	r := &CSRingBuffer{
		ring: RingBuffer{layout: newLayout(region, frameSize, frames)},
		cs:   cs,
	}
	glog.V(4).Infof("ring with critical section assigned: %s", r.State())
	return r
}

// Write copies msg into the tail frame, discarding the oldest frame if the
// ring is full. It only fails with ErrCantLock.
func (r *CSRingBuffer) Write(msg []byte) error {
	guard, err := r.cs.Lock()
	if err != nil {
		return err
	}
	defer guard.Release()

	ring := &r.ring
	head, tail := ring.head(), ring.tail()
	glog.V(4).Infof("write: head %d, tail %d", head, tail)
	next := ring.next(tail)
	if next == head {
		glog.V(3).Infof("ring full, frame %d overwritten", head)
		ring.setHead(ring.next(head))
	}
	ring.writeAt(tail, msg)
	ring.setTail(next)
	return nil
}

// Read is RingBuffer.Read inside the critical section.
func (r *CSRingBuffer) Read(out []byte) (int, error) {
	guard, err := r.cs.Lock()
	if err != nil {
		return 0, err
	}
	defer guard.Release()
	return r.ring.Read(out)
}

// FrameSize returns S.
func (r *CSRingBuffer) FrameSize() int {
	return r.ring.FrameSize()
}

// Frames returns N.
func (r *CSRingBuffer) Frames() int {
	return r.ring.Frames()
}

// State returns a snapshot of the indices without taking the critical
// section.
func (r *CSRingBuffer) State() State {
	return r.ring.State()
}
