package membrane

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/frankenlibc-go/pkg/fs"
)

func TestSnapshotWriteReadRoundTrip(t *testing.T) {
	k := NewKernel(ModeHardened)
	for i := 0; i < 10; i++ {
		k.Observe(FamilyAllocator, ProfileFast, time.Microsecond, i%3 == 0)
	}
	snap := k.Snapshot()

	fsys := fs.NewReal()
	path := filepath.Join(t.TempDir(), "snapshot.bin")

	require.NoError(t, WriteSnapshot(fsys, path, snap))

	got, err := ReadSnapshot(fsys, path)
	require.NoError(t, err)
	require.Equal(t, snap.SchemaVersion, got.SchemaVersion)
	require.Equal(t, snap.Decisions, got.Decisions)
	require.Equal(t, snap.WealthMilli, got.WealthMilli)
}

func TestSnapshotDeterminismAcrossFreshKernels(t *testing.T) {
	// spec §8.1 #8: two freshly-constructed kernels driven by the same
	// seeded observation sequence must produce equal snapshots.
	run := func() RuntimeKernelSnapshot {
		k := NewKernel(ModeHardened)
		for i := 0; i < 40; i++ {
			adverse := i%5 == 0
			k.Observe(ApiFamily(i%int(numFamilies)), ProfileFast, time.Duration(i)*time.Nanosecond, adverse)
		}
		return k.Snapshot()
	}

	a := run()
	b := run()

	if diff := cmp.Diff(a, b); diff != "" {
		t.Fatalf("snapshot not deterministic across fresh kernels (-first +second):\n%s", diff)
	}
}

func TestSnapshotSurvivesChaosWrites(t *testing.T) {
	k := NewKernel(ModeStrict)
	snap := k.Snapshot()

	underlying := fs.NewReal()
	chaos := fs.NewChaos(underlying, 42, fs.ChaosConfig{})
	path := filepath.Join(t.TempDir(), "snapshot.bin")

	// The AtomicWriter temp-file+rename path (taken here since Chaos isn't
	// *fs.Real) must still round-trip when Chaos injects no failures for
	// this seed/config.
	err := WriteSnapshot(chaos, path, snap)
	if err != nil {
		t.Skipf("chaos injected a write failure for this seed: %v", err)
	}

	got, err := ReadSnapshot(underlying, path)
	require.NoError(t, err)
	require.Equal(t, snap.SchemaVersion, got.SchemaVersion)
}
