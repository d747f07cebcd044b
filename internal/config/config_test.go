package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/Dicklesworthstone/frankenlibc-go/pkg/membrane"
)

func TestResolveModeTable(t *testing.T) {
	cases := []struct {
		env  string
		want membrane.Mode
	}{
		{"", membrane.ModeOff},
		{"OFF", membrane.ModeOff},
		{"STRICT", membrane.ModeStrict},
		{"HARDENED", membrane.ModeHardened},
		{"garbage", membrane.ModeOff},
	}
	for _, c := range cases {
		t.Run(c.env, func(t *testing.T) {
			t.Setenv(ModeEnvVar, c.env)
			require.Equal(t, c.want, ResolveMode())
		})
	}
}

func TestLoadTuningMissingFileIsNotAnError(t *testing.T) {
	tuning, err := LoadTuning(filepath.Join(t.TempDir(), "does-not-exist.jsonc"))
	require.NoError(t, err)
	require.Nil(t, tuning)
}

func TestLoadTuningParsesJSONCWithCommentsAndTrailingCommas(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "tuning.jsonc")
	contents := `{
		// quarantine sizing
		"quarantine_max_bytes": 1048576,
		"quarantine_max_entries": 4096,
		"fast_path_budget_ns": 200,
		"full_path_budget_ns": 5000,
		"bloom_bucket_count": 1048576, // trailing comma below
	}`
	require.NoError(t, writeFile(path, contents))

	tuning, err := LoadTuning(path)
	require.NoError(t, err)
	require.NotNil(t, tuning)
	require.Equal(t, uint64(1048576), tuning.QuarantineMaxBytes)
	require.Equal(t, uint64(4096), tuning.QuarantineMaxEntries)
	require.Equal(t, uint64(200), tuning.FastPathBudgetNS)
	require.Equal(t, uint64(5000), tuning.FullPathBudgetNS)
	require.Equal(t, uint64(1048576), tuning.BloomBucketCount)
}

func TestMembraneConfigNilTuningIsZeroConfig(t *testing.T) {
	var tuning *Tuning
	require.Equal(t, membrane.Config{}, tuning.MembraneConfig())
}

func TestMembraneConfigCarriesOverFields(t *testing.T) {
	tuning := &Tuning{
		QuarantineMaxBytes:   1048576,
		QuarantineMaxEntries: 4096,
		FastPathBudgetNS:     200,
		FullPathBudgetNS:     5000,
		BloomBucketCount:     1048576,
	}
	want := membrane.Config{
		QuarantineMaxBytes:   1048576,
		QuarantineMaxEntries: 4096,
		FastPathBudgetNS:     200,
		FullPathBudgetNS:     5000,
		BloomBucketCount:     1048576,
	}
	require.Equal(t, want, tuning.MembraneConfig())
}

func TestLoadTuningRejectsMalformedFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "broken.jsonc")
	require.NoError(t, writeFile(path, "{ not json at all"))

	_, err := LoadTuning(path)
	require.Error(t, err)
}

func writeFile(path, contents string) error {
	return os.WriteFile(path, []byte(contents), 0o644)
}
