package hsem

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/robotalks/dualcore/pkg/shmring"
)

func newTestBank() *Bank {
	return NewBank(make([]byte, BankSize))
}

func TestTakeRelease(t *testing.T) {
	b := newTestBank()
	cm7, cm4 := b.Sema(3, CoreCM7), b.Sema(3, CoreCM4)

	require.True(t, cm7.Take(1))
	require.True(t, cm7.Take(1), "same core and procid owns it")
	require.False(t, cm7.Take(2))
	require.False(t, cm4.Take(1))
	core, proc, locked := b.Owner(3)
	require.True(t, locked)
	require.Equal(t, CoreCM7, core)
	require.Equal(t, uint8(1), proc)

	require.False(t, cm4.Release(1), "only the owner releases")
	require.False(t, cm7.Release(2))
	require.True(t, cm7.Release(1))
	require.False(t, cm7.IsLocked())
	require.True(t, cm4.FastTake())
	_, proc, _ = b.Owner(3)
	require.Equal(t, uint8(0), proc)
}

func TestReleaseNotifiesOtherCore(t *testing.T) {
	b := newTestBank()
	cm7, cm4 := b.Sema(2, CoreCM7), b.Sema(2, CoreCM4)
	cm4.EnableIRQ()
	cm7.EnableIRQ()

	require.True(t, cm7.Take(1))
	require.False(t, cm4.StatusIRQ())
	require.True(t, cm7.Release(1))
	require.True(t, cm4.StatusIRQ())
	require.False(t, cm7.StatusIRQ(), "releaser isn't notified")

	require.True(t, cm4.TestAndClearIRQ())
	require.False(t, cm4.StatusIRQ())
	require.False(t, cm4.TestAndClearIRQ())
}

func TestIRQDisabled(t *testing.T) {
	b := newTestBank()
	cm7, cm4 := b.Sema(0, CoreCM7), b.Sema(0, CoreCM4)
	require.True(t, cm7.FastTake())
	require.True(t, cm7.Release(0))
	require.False(t, cm4.StatusIRQ())

	cm4.EnableIRQ()
	require.True(t, cm7.FastTake())
	require.True(t, cm7.Release(0))
	require.True(t, cm4.StatusIRQ())
	cm4.DisableIRQ()
	require.False(t, cm4.StatusIRQ(), "status is masked by enable")
}

func TestIRQIsPerSemaphore(t *testing.T) {
	b := newTestBank()
	b.Sema(1, CoreCM7).EnableIRQ()
	b.Sema(3, CoreCM7).EnableIRQ()
	s1 := b.Sema(1, CoreCM4)
	require.True(t, s1.FastTake())
	require.True(t, s1.Release(0))
	require.True(t, b.Sema(1, CoreCM7).StatusIRQ())
	require.False(t, b.Sema(3, CoreCM7).StatusIRQ())
}

func TestClear(t *testing.T) {
	b := newTestBank()
	b.Sema(5, CoreCM7).EnableIRQ()
	require.True(t, b.Sema(5, CoreCM4).Take(9))
	require.True(t, b.Sema(6, CoreCM4).Take(9))
	require.True(t, b.Sema(7, CoreCM7).Take(9))
	require.Equal(t, 2, b.Clear(CoreCM4))
	require.False(t, b.Sema(5, CoreCM4).IsLocked())
	require.True(t, b.Sema(7, CoreCM4).IsLocked())
	require.True(t, b.Sema(5, CoreCM7).StatusIRQ())

	b.Reset()
	require.False(t, b.Sema(7, CoreCM4).IsLocked())
	require.False(t, b.Sema(5, CoreCM7).StatusIRQ())
}

func TestInvalidArguments(t *testing.T) {
	b := newTestBank()
	require.Panics(t, func() { b.Sema(NumSemaphores, CoreCM7) })
	require.Panics(t, func() { b.Sema(0, CoreID(2)) })
	require.Panics(t, func() { NewBank(make([]byte, BankSize-1)) })
}

func TestParseCoreID(t *testing.T) {
	id, err := ParseCoreID("cm7")
	require.NoError(t, err)
	require.Equal(t, CoreCM7, id)
	require.Equal(t, "cm4", CoreCM4.String())
	_, err = ParseCoreID("cm0")
	require.Error(t, err)
}

func TestCriticalSection(t *testing.T) {
	b := newTestBank()
	b.Sema(3, CoreCM7).EnableIRQ()
	cs := NewCriticalSection(b.Sema(3, CoreCM4), 1)

	region := make([]byte, shmring.RegionSize(8, 4))
	ring := shmring.AssignWithCS(region, 8, 4, cs)
	require.NoError(t, ring.Write([]byte("ping")))
	require.False(t, b.Sema(3, CoreCM4).IsLocked())
	require.True(t, b.Sema(3, CoreCM7).StatusIRQ())

	require.True(t, b.Sema(3, CoreCM7).Take(1))
	busy := &CriticalSection{Sema: b.Sema(3, CoreCM4), ProcID: 1, Spin: 5}
	_, err := busy.Lock()
	require.Equal(t, shmring.ErrCantLock, err)
	require.Equal(t, shmring.ErrCantLock, shmring.AssignWithCS(region, 8, 4, busy).Write([]byte("x")))
	require.True(t, b.Sema(3, CoreCM7).Release(1))

	guard, err := busy.Lock()
	require.NoError(t, err)
	guard.Release()
	guard.Release()
	require.False(t, b.Sema(3, CoreCM4).IsLocked())
}

func TestCriticalSectionPerProcID(t *testing.T) {
	b := newTestBank()
	first := &CriticalSection{Sema: b.Sema(3, CoreCM7), ProcID: 1, Spin: 5}
	other := &CriticalSection{Sema: b.Sema(3, CoreCM7), ProcID: 2, Spin: 5}
	shared := &CriticalSection{Sema: b.Sema(3, CoreCM7), ProcID: 1, Spin: 5}

	guard, err := first.Lock()
	require.NoError(t, err)
	_, err = other.Lock()
	require.Equal(t, shmring.ErrCantLock, err)
	// same core and procID re-enters
	again, err := shared.Lock()
	require.NoError(t, err)
	again.Release()
	require.False(t, b.Sema(3, CoreCM7).IsLocked())
	guard.Release()

	guard, err = other.Lock()
	require.NoError(t, err)
	guard.Release()
}

func TestIRQMasks(t *testing.T) {
	b := newTestBank()
	require.Equal(t, []CoreID{CoreCM7, CoreCM4}, Cores())
	b.Sema(2, CoreCM4).EnableIRQ()
	b.Sema(5, CoreCM4).EnableIRQ()
	cm7 := b.Sema(2, CoreCM7)
	require.True(t, cm7.FastTake())
	require.True(t, cm7.Release(0))

	enabled, status := b.IRQ(CoreCM4)
	require.Equal(t, uint32(1<<2|1<<5), enabled)
	require.Equal(t, uint32(1<<2), status)
	enabled, status = b.IRQ(CoreCM7)
	require.Zero(t, enabled)
	require.Zero(t, status)
}
