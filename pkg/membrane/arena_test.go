package membrane

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAllocateFreeLookupLifecycle(t *testing.T) {
	a := NewArena()

	p, err := a.AllocateAligned(64, 16)
	require.NoError(t, err)
	require.NotZero(t, p)

	slot, ok := a.Lookup(p)
	require.True(t, ok)
	require.Equal(t, StateValid, slot.State)

	result, drained, err := a.Free(p)
	require.NoError(t, err)
	require.Equal(t, FreeResultFreed, result)
	require.Empty(t, drained)

	// spec §8.2: allocate, free, lookup returns Quarantined (or Freed if
	// drained) -- never Valid.
	slot, ok = a.Lookup(p)
	require.True(t, ok)
	require.NotEqual(t, StateValid, slot.State)
}

func TestDoubleFreeDetected(t *testing.T) {
	a := NewArena()
	p, err := a.AllocateAligned(32, 16)
	require.NoError(t, err)

	result, _, err := a.Free(p)
	require.NoError(t, err)
	require.Equal(t, FreeResultFreed, result)

	result, _, err = a.Free(p)
	require.ErrorIs(t, err, ErrDoubleFree)
	require.Equal(t, FreeResultDoubleFree, result)
}

func TestForeignPointerFree(t *testing.T) {
	a := NewArena()
	result, _, err := a.Free(0xDEADBEEF)
	require.ErrorIs(t, err, ErrForeignPointer)
	require.Equal(t, FreeResultForeignPointer, result)
}

func TestFreeNullIsNoop(t *testing.T) {
	a := NewArena()
	result, drained, err := a.Free(0)
	require.NoError(t, err)
	require.Equal(t, FreeResultFreed, result)
	require.Empty(t, drained)
}

func TestGenerationStrictMonotonicity(t *testing.T) {
	a := NewArena()
	p1, err := a.AllocateAligned(16, 16)
	require.NoError(t, err)
	s1, _ := a.Lookup(p1)

	p2, err := a.AllocateAligned(16, 16)
	require.NoError(t, err)
	s2, _ := a.Lookup(p2)

	require.Greater(t, s2.Generation, s1.Generation)
}

func TestQuarantineBoundsAfterManyFrees(t *testing.T) {
	a := NewArena()

	const n = 200
	ptrs := make([]uint64, 0, n)
	for i := 0; i < n; i++ {
		p, err := a.AllocateAligned(16, 16)
		require.NoError(t, err)
		ptrs = append(ptrs, p)
	}
	for _, p := range ptrs {
		_, _, err := a.Free(p)
		require.NoError(t, err)
	}

	for i := range a.shards {
		sh := a.shards[i]
		sh.mu.Lock()
		require.LessOrEqual(t, uint64(sh.q.bytes), uint64(QuarantineMaxBytes))
		require.LessOrEqual(t, sh.q.len(), QuarantineMaxEntries)
		sh.mu.Unlock()
	}
}

func TestDoubleFreeRaceAcrossThreads(t *testing.T) {
	a := NewArena()

	const n = 2000
	ptrs := make([]uint64, n)
	for i := range ptrs {
		p, err := a.AllocateAligned(16, 16)
		require.NoError(t, err)
		ptrs[i] = p
	}

	var wg sync.WaitGroup
	const workers = 16
	chunk := n / workers
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			for i := start; i < start+chunk; i++ {
				a.Free(ptrs[i])
			}
		}(w * chunk)
	}
	wg.Wait()

	var doubleFrees int
	var mu sync.Mutex
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(start int) {
			defer wg.Done()
			local := 0
			for i := start; i < start+chunk; i++ {
				result, _, _ := a.Free(ptrs[i])
				if result == FreeResultDoubleFree {
					local++
				}
			}
			mu.Lock()
			doubleFrees += local
			mu.Unlock()
		}(w * chunk)
	}
	wg.Wait()

	require.Equal(t, n, doubleFrees)

	for _, p := range ptrs {
		slot, ok := a.Lookup(p)
		require.True(t, ok)
		require.NotEqual(t, StateValid, slot.State)
	}
}
