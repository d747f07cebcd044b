package abi

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/frankenlibc-go/pkg/membrane"
)

func newTestAdapter() *Adapter {
	return New(membrane.NewKernel(membrane.ModeHardened))
}

func TestMallocZeroSizeSucceeds(t *testing.T) {
	// spec §8.3: "malloc(0) succeeds and returns a valid 1-byte-capacity slot."
	a := newTestAdapter()
	p, errno := a.Malloc(nil, 0)
	require.Zero(t, errno)
	require.NotZero(t, p)

	slot, ok := a.Kernel.Arena().Lookup(p)
	require.True(t, ok)
	require.EqualValues(t, 1, slot.UserSize)

	out := a.Kernel.Pipeline().Validate(membrane.NewCallerHandle(), membrane.RuntimeContext{AddrHint: p})
	require.Equal(t, membrane.OutcomeValidated, out.Kind)
}

func TestCallocZeroByZeroSucceedsAsOneByteSlot(t *testing.T) {
	a := newTestAdapter()
	p, errno := a.Calloc(nil, 0, 0)
	require.Zero(t, errno)
	require.NotZero(t, p)

	slot, ok := a.Kernel.Arena().Lookup(p)
	require.True(t, ok)
	require.EqualValues(t, 1, slot.UserSize)
}

func TestCallocOverflowReturnsNullWithoutAllocating(t *testing.T) {
	a := newTestAdapter()
	p, errno := a.Calloc(nil, 2, ^uint64(0))
	require.Equal(t, EINVAL, errno)
	require.Zero(t, p)
}

func TestCallocNormalSucceeds(t *testing.T) {
	a := newTestAdapter()
	p, errno := a.Calloc(nil, 4, 16)
	require.Zero(t, errno)
	require.NotZero(t, p)
}

func TestAlignedAllocRejectsNonPowerOfTwoAlign(t *testing.T) {
	a := newTestAdapter()
	p, errno := a.AlignedAlloc(nil, 24, 24)
	require.Equal(t, EINVAL, errno)
	require.Zero(t, p)
}

func TestAlignedAllocRejectsSizeNotMultipleOfAlign(t *testing.T) {
	a := newTestAdapter()
	p, errno := a.AlignedAlloc(nil, 16, 17)
	require.Equal(t, EINVAL, errno)
	require.Zero(t, p)
}

func TestAlignedAllocSucceeds(t *testing.T) {
	a := newTestAdapter()
	p, errno := a.AlignedAlloc(nil, 32, 64)
	require.Zero(t, errno)
	require.NotZero(t, p)
}

func TestPosixMemalignRejectsAlignNotMultipleOfWordSize(t *testing.T) {
	a := newTestAdapter()
	p, errno := a.PosixMemalign(nil, 3, 64)
	require.Equal(t, EINVAL, errno)
	require.Zero(t, p)
}

func TestPosixMemalignSucceeds(t *testing.T) {
	a := newTestAdapter()
	p, errno := a.PosixMemalign(nil, 16, 64)
	require.Zero(t, errno)
	require.NotZero(t, p)
}

func TestFreeOfNullIsNoOp(t *testing.T) {
	a := newTestAdapter()
	require.Zero(t, a.Free(nil, 0))
}

func TestFreeThenDoubleFreeAbsorbed(t *testing.T) {
	// §8.4 S1, at the ABI layer: the second free must still report success.
	a := newTestAdapter()
	p, errno := a.Malloc(nil, 32)
	require.Zero(t, errno)

	require.Zero(t, a.Free(nil, p))
	require.Zero(t, a.Free(nil, p))
}

func TestReallocNullIsMalloc(t *testing.T) {
	a := newTestAdapter()
	p, errno := a.Realloc(nil, 0, 48)
	require.Zero(t, errno)
	require.NotZero(t, p)
}

func TestReallocZeroSizeIsFree(t *testing.T) {
	a := newTestAdapter()
	p, errno := a.Malloc(nil, 48)
	require.Zero(t, errno)

	newP, errno := a.Realloc(nil, p, 0)
	require.Zero(t, errno)
	require.Zero(t, newP)
}

func TestReallocGrowsPreservingAlignment(t *testing.T) {
	a := newTestAdapter()
	p, errno := a.AlignedAlloc(nil, 32, 64)
	require.Zero(t, errno)

	newP, errno := a.Realloc(nil, p, 128)
	require.Zero(t, errno)
	require.NotZero(t, newP)
	require.Zero(t, newP%32)
}

func TestReallocForeignPointerRepairedAsMallocInHardened(t *testing.T) {
	// SUPPLEMENTED FEATURES / scenario S6.
	a := newTestAdapter()
	p, errno := a.Realloc(nil, 0xdeadbeef, 32)
	require.Zero(t, errno)
	require.NotZero(t, p)
}

func TestReallocForeignPointerDeniedInStrict(t *testing.T) {
	a := New(membrane.NewKernel(membrane.ModeStrict))
	_, errno := a.Realloc(nil, 0xdeadbeef, 32)
	require.Equal(t, EINVAL, errno)
}
