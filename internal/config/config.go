// Package config resolves the process-immutable safety mode from
// FRANKENLIBC_MODE and, optionally, a JSONC tuning file that overrides
// fusion-layer/budget-controller constants, per SPEC_FULL.md's AMBIENT
// STACK / Configuration section and spec §6.1.
package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/tailscale/hujson"

	"github.com/Dicklesworthstone/frankenlibc-go/pkg/membrane"
)

// ModeEnvVar is the single environment variable spec §6.1 names as the
// entire configuration surface for selecting the safety mode.
const ModeEnvVar = "FRANKENLIBC_MODE"

// ResolveMode maps ModeEnvVar to a Mode: {unset | OFF} -> Off,
// STRICT -> Strict, HARDENED -> Hardened; any other value also yields Off.
// It reads the environment on every call and does not cache the result;
// cmd/franken-repl calls it once at startup.
func ResolveMode() membrane.Mode {
	switch os.Getenv(ModeEnvVar) {
	case "STRICT":
		return membrane.ModeStrict
	case "HARDENED":
		return membrane.ModeHardened
	default:
		return membrane.ModeOff
	}
}

// Tuning overrides the built-in fusion-layer/budget-controller/quarantine
// constants spec §3-§5 otherwise fix, loaded from an optional JSONC file.
// Absence of the file uses the package defaults (zero values here are
// never applied — callers treat a zero field as "no override").
type Tuning struct {
	QuarantineMaxBytes   uint64 `json:"quarantine_max_bytes,omitempty"`
	QuarantineMaxEntries uint64 `json:"quarantine_max_entries,omitempty"`
	FastPathBudgetNS     uint64 `json:"fast_path_budget_ns,omitempty"`
	FullPathBudgetNS     uint64 `json:"full_path_budget_ns,omitempty"`
	BloomBucketCount     uint64 `json:"bloom_bucket_count,omitempty"`
}

// LoadTuning reads and parses a JSONC tuning file the same way the teacher
// parses its ticket configuration: hujson.Standardize strips comments and
// trailing commas, then the result is unmarshaled as ordinary JSON. A
// missing file is not an error — it means "use built-in defaults".
func LoadTuning(path string) (*Tuning, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("config: read tuning file: %w", err)
	}

	standardized, err := hujson.Standardize(raw)
	if err != nil {
		return nil, fmt.Errorf("config: parse tuning file as JSONC: %w", err)
	}

	var t Tuning
	if err := json.Unmarshal(standardized, &t); err != nil {
		return nil, fmt.Errorf("config: decode tuning file: %w", err)
	}
	return &t, nil
}

// MembraneConfig converts a loaded Tuning into the membrane.Config its
// constructors accept, carrying over each field's "zero means default"
// semantics unchanged. A nil Tuning (no tuning file supplied) yields the
// zero Config, which membrane.Config.resolve treats identically.
func (t *Tuning) MembraneConfig() membrane.Config {
	if t == nil {
		return membrane.Config{}
	}
	return membrane.Config{
		QuarantineMaxBytes:   t.QuarantineMaxBytes,
		QuarantineMaxEntries: t.QuarantineMaxEntries,
		FastPathBudgetNS:     t.FastPathBudgetNS,
		FullPathBudgetNS:     t.FullPathBudgetNS,
		BloomBucketCount:     t.BloomBucketCount,
	}
}
