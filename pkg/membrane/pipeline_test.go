package membrane

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPipelineNullAddress(t *testing.T) {
	a := NewArena()
	p := NewPipeline(a)
	out := p.Validate(nil, RuntimeContext{AddrHint: 0})
	require.Equal(t, OutcomeNull, out.Kind)
	require.False(t, out.CanRead())
}

func TestPipelineUseAfterFree(t *testing.T) {
	a := NewArena()
	p := NewPipeline(a)

	addr, err := a.AllocateAligned(128, 16)
	require.NoError(t, err)
	p.noteAllocated(addr)

	_, _, err = a.Free(addr)
	require.NoError(t, err)

	out := p.Validate(nil, RuntimeContext{AddrHint: addr})
	require.Equal(t, OutcomeTemporalViolation, out.Kind)
	require.False(t, out.CanRead())
	require.False(t, out.CanWrite())
}

func TestPipelineValidatedThenCached(t *testing.T) {
	a := NewArena()
	p := NewPipeline(a)
	caller := NewCallerHandle()

	addr, err := a.AllocateAligned(64, 16)
	require.NoError(t, err)
	p.noteAllocated(addr)

	out := p.Validate(caller, RuntimeContext{AddrHint: addr})
	require.Equal(t, OutcomeValidated, out.Kind)

	out = p.Validate(caller, RuntimeContext{AddrHint: addr})
	require.Equal(t, OutcomeCachedValid, out.Kind)
}

func TestPipelineEpochInvalidatesCrossCallerCache(t *testing.T) {
	// spec §8.4 S8: thread A validates, thread B frees, thread A's next
	// validation must not be CachedValid.
	a := NewArena()
	p := NewPipeline(a)
	callerA := NewCallerHandle()

	addr, err := a.AllocateAligned(64, 16)
	require.NoError(t, err)
	p.noteAllocated(addr)

	out := p.Validate(callerA, RuntimeContext{AddrHint: addr})
	require.Equal(t, OutcomeValidated, out.Kind)

	_, _, err = a.Free(addr) // "thread B"
	require.NoError(t, err)

	out = p.Validate(callerA, RuntimeContext{AddrHint: addr})
	require.Equal(t, OutcomeTemporalViolation, out.Kind)
}

func TestPipelineForeignAddress(t *testing.T) {
	a := NewArena()
	p := NewPipeline(a)
	out := p.Validate(nil, RuntimeContext{AddrHint: 0x1234})
	require.Equal(t, OutcomeForeign, out.Kind)
	require.True(t, out.CanRead())
}
