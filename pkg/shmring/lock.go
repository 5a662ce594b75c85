package shmring

import (
	"runtime"
	"sync/atomic"
)

// CriticalSection is a mutual exclusion shared by the contexts mapping a
// ring. Lock busy-waits until acquired, or fails with ErrCantLock.
type CriticalSection interface {
	Lock() (Guard, error)
}

// Guard is an acquired CriticalSection. Release must be called exactly
// once on every path.
type Guard interface {
	Release()
}

// SpinLock is an in-process CriticalSection built on an atomic flag.
// MaxSpins bounds the busy-wait, 0 waits forever.
type SpinLock struct {
	MaxSpins int

	owner uint32
}

// Participant returns the CriticalSection used by participant id.
func (l *SpinLock) Participant(id uint8) CriticalSection {
	return &spinParticipant{lock: l, id: uint32(id) + 1}
}

// Owner returns the participant id holding the lock.
func (l *SpinLock) Owner() (uint8, bool) {
	owner := atomic.LoadUint32(&l.owner)
	if owner == 0 {
		return 0, false
	}
	return uint8(owner - 1), true
}

type spinParticipant struct {
	lock *SpinLock
	id   uint32
}

type spinGuard struct {
	p        *spinParticipant
	released bool
}

// Lock implements CriticalSection.
func (p *spinParticipant) Lock() (Guard, error) {
	for n := 0; !atomic.CompareAndSwapUint32(&p.lock.owner, 0, p.id); n++ {
		if p.lock.MaxSpins > 0 && n >= p.lock.MaxSpins {
			return nil, ErrCantLock
		}
		runtime.Gosched()
	}
	return &spinGuard{p: p}, nil
}

// Release implements Guard.
func (g *spinGuard) Release() {
	if g.released {
		return
	}
	g.released = true
	atomic.CompareAndSwapUint32(&g.p.lock.owner, g.p.id, 0)
}
