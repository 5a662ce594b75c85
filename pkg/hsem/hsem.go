// Package hsem emulates a hardware semaphore block in shared memory.
//
// The block has NumSemaphores lock words plus an interrupt enable and an
// interrupt status mask per core. Releasing a semaphore sets the status bit
// of every other core which enabled the interrupt for it, which is how one
// core notifies the other.
package hsem

import (
	"fmt"
	"sync/atomic"
	"unsafe"

	"github.com/golang/glog"
)

// CoreID identifies a core on the bus.
type CoreID uint8

// Core ids.
const (
	CoreCM4 CoreID = 1
	CoreCM7 CoreID = 3
)

// String implements fmt.Stringer.
func (c CoreID) String() string {
	switch c {
	case CoreCM4:
		return "cm4"
	case CoreCM7:
		return "cm7"
	}
	return fmt.Sprintf("core%d", uint8(c))
}

// ParseCoreID parses a core name.
func ParseCoreID(name string) (CoreID, error) {
	switch name {
	case "cm4":
		return CoreCM4, nil
	case "cm7":
		return CoreCM7, nil
	}
	return 0, fmt.Errorf("unknown core %q", name)
}

const (
	// NumSemaphores is the number of semaphores in a bank.
	NumSemaphores = 32
	// BankSize is the number of bytes a Bank occupies.
	BankSize = 256

	lockBit   uint32 = 1 << 31
	coreShift        = 8
	coreMask  uint32 = 0xf << coreShift
	procMask  uint32 = 0xff

	offIER = NumSemaphores * 4
	offISR = offIER + 8
)

var cores = [...]CoreID{CoreCM7, CoreCM4}

func coreSlot(core CoreID) int {
	for n, c := range cores {
		if c == core {
			return n
		}
	}
	panic(fmt.Sprintf("invalid core id %d", core))
}

func lockWord(core CoreID, procID uint8) uint32 {
	return lockBit | uint32(core)<<coreShift | uint32(procID)
}

// Bank is a block of semaphores in a shared region.
type Bank struct {
	mem []byte
}

// NewBank places a Bank over mem, which must be zeroed once before first
// use and be at least BankSize bytes.
func NewBank(mem []byte) *Bank {
	if len(mem) < BankSize {
		panic(fmt.Sprintf("semaphore bank needs %d bytes, got %d", BankSize, len(mem)))
	}
	if uintptr(unsafe.Pointer(&mem[0]))%4 != 0 {
		panic("semaphore bank must be 4-byte aligned")
	}
	return &Bank{mem: mem}
}

func (b *Bank) word(off int) *uint32 {
	return (*uint32)(unsafe.Pointer(&b.mem[off]))
}

func (b *Bank) reg(index int) *uint32 {
	if index < 0 || index >= NumSemaphores {
		panic(fmt.Sprintf("invalid semaphore %d", index))
	}
	return b.word(index * 4)
}

func (b *Bank) ier(core CoreID) *uint32 {
	return b.word(offIER + coreSlot(core)*4)
}

func (b *Bank) isr(core CoreID) *uint32 {
	return b.word(offISR + coreSlot(core)*4)
}

func setBits(addr *uint32, mask uint32) {
	for {
		old := atomic.LoadUint32(addr)
		if old&mask == mask || atomic.CompareAndSwapUint32(addr, old, old|mask) {
			return
		}
	}
}

func clearBits(addr *uint32, mask uint32) {
	for {
		old := atomic.LoadUint32(addr)
		if old&mask == 0 || atomic.CompareAndSwapUint32(addr, old, old&^mask) {
			return
		}
	}
}

// Sema returns semaphore index as seen from core.
func (b *Bank) Sema(index int, core CoreID) *Sema {
	b.reg(index)
	coreSlot(core)
	return &Sema{bank: b, index: index, core: core}
}

// Owner reports the holder of semaphore index.
func (b *Bank) Owner(index int) (core CoreID, procID uint8, locked bool) {
	val := atomic.LoadUint32(b.reg(index))
	if val&lockBit == 0 {
		return 0, 0, false
	}
	return CoreID((val & coreMask) >> coreShift), uint8(val & procMask), true
}

// Clear releases every semaphore held by core, raising interrupts as a
// release would.
func (b *Bank) Clear(core CoreID) int {
	var count int
	for n := 0; n < NumSemaphores; n++ {
		reg := b.reg(n)
		val := atomic.LoadUint32(reg)
		if val&lockBit == 0 || CoreID((val&coreMask)>>coreShift) != core {
			continue
		}
		if atomic.CompareAndSwapUint32(reg, val, 0) {
			b.notify(n, core)
			count++
		}
	}
	return count
}

// IRQ returns the interrupt enable and status masks of core, one bit per
// semaphore.
func (b *Bank) IRQ(core CoreID) (enabled, status uint32) {
	return atomic.LoadUint32(b.ier(core)), atomic.LoadUint32(b.isr(core))
}

// Cores lists the cores sharing a bank.
func Cores() []CoreID {
	return append([]CoreID(nil), cores[:]...)
}

// Reset zeroes the bank, dropping all locks and interrupt state.
func (b *Bank) Reset() {
	for off := 0; off < offISR+len(cores)*4; off += 4 {
		atomic.StoreUint32(b.word(off), 0)
	}
}

func (b *Bank) notify(index int, releaser CoreID) {
	bit := uint32(1) << uint(index)
	for _, c := range cores {
		if c == releaser {
			continue
		}
		if atomic.LoadUint32(b.ier(c))&bit != 0 {
			setBits(b.isr(c), bit)
			glog.V(4).Infof("hsem %d released by %s, notify %s", index, releaser, c)
		}
	}
}

// Sema is one semaphore used by one core.
type Sema struct {
	bank  *Bank
	index int
	core  CoreID
}

// Index returns the semaphore number.
func (s *Sema) Index() int {
	return s.index
}

// Core returns the core using this Sema.
func (s *Sema) Core() CoreID {
	return s.core
}

// Take is the 2-step lock: it succeeds if the semaphore was free or is
// already held by the same core and procID.
func (s *Sema) Take(procID uint8) bool {
	want := lockWord(s.core, procID)
	reg := s.bank.reg(s.index)
	if atomic.CompareAndSwapUint32(reg, 0, want) {
		return true
	}
	return atomic.LoadUint32(reg) == want
}

// FastTake is the 1-step lock with procID 0.
func (s *Sema) FastTake() bool {
	return s.Take(0)
}

// Release frees the semaphore if held by this core and procID.
func (s *Sema) Release(procID uint8) bool {
	if !atomic.CompareAndSwapUint32(s.bank.reg(s.index), lockWord(s.core, procID), 0) {
		return false
	}
	s.bank.notify(s.index, s.core)
	return true
}

// IsLocked reports whether any core holds the semaphore.
func (s *Sema) IsLocked() bool {
	_, _, locked := s.bank.Owner(s.index)
	return locked
}

func (s *Sema) bit() uint32 {
	return uint32(1) << uint(s.index)
}

// EnableIRQ enables the release interrupt for this core.
func (s *Sema) EnableIRQ() {
	setBits(s.bank.ier(s.core), s.bit())
}

// DisableIRQ disables the release interrupt for this core.
func (s *Sema) DisableIRQ() {
	clearBits(s.bank.ier(s.core), s.bit())
}

// StatusIRQ reports a pending, enabled release interrupt.
func (s *Sema) StatusIRQ() bool {
	masked := atomic.LoadUint32(s.bank.isr(s.core)) & atomic.LoadUint32(s.bank.ier(s.core))
	return masked&s.bit() != 0
}

// ClearIRQ acknowledges the release interrupt.
func (s *Sema) ClearIRQ() {
	clearBits(s.bank.isr(s.core), s.bit())
}

// TestAndClearIRQ acknowledges and reports a pending interrupt.
func (s *Sema) TestAndClearIRQ() bool {
	if !s.StatusIRQ() {
		return false
	}
	s.ClearIRQ()
	return true
}
