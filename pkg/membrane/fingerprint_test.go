package membrane

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFingerprintDeterministic(t *testing.T) {
	a := fingerprintFor(0x1000, 64, 7)
	b := fingerprintFor(0x1000, 64, 7)
	require.Equal(t, a, b)
}

func TestFingerprintDiffersAcrossGeneration(t *testing.T) {
	a := fingerprintFor(0x1000, 64, 7)
	b := fingerprintFor(0x1000, 64, 8)
	require.NotEqual(t, a, b)
}

func TestFingerprintAndCanaryIndependent(t *testing.T) {
	fp := fingerprintFor(0x2000, 32, 3)
	cn := canaryFor(0x2000, 32, 3)
	require.NotEqual(t, fp, cn)
}

func TestCoerceAlignRejectsNonPowerOfTwo(t *testing.T) {
	_, ok := coerceAlign(24)
	require.False(t, ok)
}

func TestCoerceAlignRaisesToMinimum(t *testing.T) {
	align, ok := coerceAlign(1)
	require.True(t, ok)
	require.Equal(t, uint64(MinAlign), align)
}
