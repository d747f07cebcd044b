package membrane

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBudgetThresholdsOrdering(t *testing.T) {
	b := newBudgetController()
	full, repair := b.thresholds()
	require.Greater(t, repair, full)
}

func TestBudgetLoosensUnderSustainedAdverse(t *testing.T) {
	b := newBudgetController()
	startFull, _ := b.thresholds()
	for i := 0; i < 200; i++ {
		b.observeAllocator(FamilyAllocator, true)
	}
	full, repair := b.thresholds()
	require.Less(t, full, startFull)
	require.Greater(t, repair, full)

	_, caps, exhausted := b.snapshot()
	require.NotZero(t, caps)
	require.Contains(t, exhausted, FamilyAllocator)
}

func TestFDRAuditAdmitsUntilWealthExhausted(t *testing.T) {
	f := newFDRAudit()
	admitted := 0
	for i := 0; i < 1000 && f.admit(); i++ {
		f.recordRejection(false) // never pays off: wealth only drains
		admitted++
	}
	require.Less(t, admitted, 1000)
	require.False(t, f.admit())
}

func TestFDRAuditEmpiricalFDR(t *testing.T) {
	f := newFDRAudit()
	for i := 0; i < 10; i++ {
		f.recordRejection(i%2 == 0)
	}
	_, rejections, fdr := f.snapshot()
	require.Equal(t, uint64(10), rejections)
	require.GreaterOrEqual(t, fdr, 0.0)
	require.LessOrEqual(t, fdr, 1.0)
}
