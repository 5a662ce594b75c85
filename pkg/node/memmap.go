package node

import (
	"fmt"

	"github.com/robotalks/dualcore/pkg/hsem"
	"github.com/robotalks/dualcore/pkg/shmring"
)

// Semaphore usage shared by both cores.
const (
	// SemBoot is pulsed by the primary until the secondary answers.
	SemBoot = 0
	// SemReady is pulsed by the secondary once the rings are initialized.
	SemReady = 1
	// SemPrimaryLink guards writes to the primary ring and notifies the
	// secondary.
	SemPrimaryLink = 2
	// SemSecondaryLink is the critical section of the secondary ring and
	// notifies the primary.
	SemSecondaryLink = 3

	// LinkProcID is the process id taking the link semaphores.
	LinkProcID uint8 = 1
)

// MemoryMap places the rings and the semaphore bank in the shared region.
type MemoryMap struct {
	// PrimaryRing is written by the primary (cm7), read by the secondary.
	PrimaryRing int
	// SecondaryRing is written by the secondary (cm4), read by the primary.
	SecondaryRing int
	FrameSize     int
	Frames        int
	SemBank       int
}

// DefaultMemoryMap mirrors the D2 SRAM layout of the dual core firmware.
func DefaultMemoryMap() MemoryMap {
	return MemoryMap{
		PrimaryRing:   0x0000,
		SecondaryRing: 0x2400,
		FrameSize:     1024,
		Frames:        8,
		SemBank:       0x4800,
	}
}

// RingSize returns the bytes occupied by one ring.
func (m MemoryMap) RingSize() int {
	return shmring.RegionSize(m.FrameSize, m.Frames)
}

// Size returns the minimum size of the shared region.
func (m MemoryMap) Size() int {
	size := m.SemBank + hsem.BankSize
	for _, off := range []int{m.PrimaryRing, m.SecondaryRing} {
		if end := off + m.RingSize(); end > size {
			size = end
		}
	}
	return size
}

type span struct {
	name       string
	start, end int
}

// Validate checks geometry, alignment and overlaps.
func (m MemoryMap) Validate() error {
	if m.FrameSize <= 0 || m.Frames < 2 {
		return fmt.Errorf("invalid ring geometry %dx%d", m.Frames, m.FrameSize)
	}
	spans := []span{
		{"primary ring", m.PrimaryRing, m.PrimaryRing + m.RingSize()},
		{"secondary ring", m.SecondaryRing, m.SecondaryRing + m.RingSize()},
		{"semaphore bank", m.SemBank, m.SemBank + hsem.BankSize},
	}
	for i, s := range spans {
		if s.start < 0 || s.start%8 != 0 {
			return fmt.Errorf("%s offset %#x must be 8-byte aligned", s.name, s.start)
		}
		for _, o := range spans[i+1:] {
			if s.start < o.end && o.start < s.end {
				return fmt.Errorf("%s [%#x, %#x) overlaps %s [%#x, %#x)",
					s.name, s.start, s.end, o.name, o.start, o.end)
			}
		}
	}
	return nil
}
