package hsem

import (
	"runtime"

	"github.com/golang/glog"

	"github.com/robotalks/dualcore/pkg/shmring"
)

// CriticalSection implements shmring.CriticalSection with a semaphore.
// Spin bounds the busy-wait, 0 waits forever. Take is re-entrant for the
// same core and procID, so each concurrent user needs its own ProcID.
type CriticalSection struct {
	Sema   *Sema
	ProcID uint8
	Spin   int
}

// NewCriticalSection creates a CriticalSection which waits forever.
func NewCriticalSection(sema *Sema, procID uint8) *CriticalSection {
	return &CriticalSection{Sema: sema, ProcID: procID}
}

// Lock implements shmring.CriticalSection.
func (cs *CriticalSection) Lock() (shmring.Guard, error) {
	for n := 0; !cs.Sema.Take(cs.ProcID); n++ {
		if cs.Spin > 0 && n >= cs.Spin {
			glog.V(3).Infof("hsem %d busy after %d spins", cs.Sema.Index(), n)
			return nil, shmring.ErrCantLock
		}
		runtime.Gosched()
	}
	return &lock{cs: cs}, nil
}

type lock struct {
	cs       *CriticalSection
	released bool
}

// Release implements shmring.Guard.
func (l *lock) Release() {
	if l.released {
		return
	}
	l.released = true
	l.cs.Sema.Release(l.cs.ProcID)
}
