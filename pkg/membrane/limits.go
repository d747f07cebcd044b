package membrane

import "time"

// Shard and quarantine geometry, per spec §3.2/§3.3.
const (
	// NumShards is the number of independent arena shards. A user address is
	// routed to shard (userBase >> 12) % NumShards.
	NumShards = 16

	// QuarantineMaxBytes bounds the total size of quarantined allocations
	// held per shard after any drain completes.
	QuarantineMaxBytes = 64 * 1024 * 1024

	// QuarantineMaxEntries bounds the number of quarantined allocations held
	// per shard after any drain completes.
	QuarantineMaxEntries = 65536

	// FingerprintSize is the byte width of both the leading fingerprint
	// header and the trailing canary.
	FingerprintSize = 16

	// MinAlign is the floor alignment coerced onto every allocation
	// regardless of the caller-requested alignment.
	MinAlign = 16
)

// Latency budgets feeding the tropical compositor, per spec §4.4.
const (
	FastPathBudgetNS = 20 * time.Nanosecond
	FullPathBudgetNS = 200 * time.Nanosecond

	quarantineOverheadNS = 50 * time.Nanosecond
)

// Risk scale, per spec §3.6/§4.5. All risk and rate scalars live on this
// parts-per-million integer scale, saturated to this range.
const (
	RiskPPMMin = 0
	RiskPPMMax = 1_000_000
)

// clampPPM saturates v to [RiskPPMMin, RiskPPMMax].
func clampPPM(v int64) int64 {
	if v < RiskPPMMin {
		return RiskPPMMin
	}
	if v > RiskPPMMax {
		return RiskPPMMax
	}
	return v
}

// Config overrides the built-in quarantine/latency-budget/bloom constants
// above, per SPEC_FULL.md's AMBIENT STACK / Configuration section. A zero
// field means "use the built-in default" — Config is always applied
// through resolve(), never read field-by-field by callers.
type Config struct {
	QuarantineMaxBytes   uint64
	QuarantineMaxEntries uint64
	FastPathBudgetNS     uint64
	FullPathBudgetNS     uint64
	BloomBucketCount     uint64
}

// DefaultConfig returns the package's built-in constants as a Config,
// the value every no-override constructor (NewArena, NewKernel, ...)
// resolves against.
func DefaultConfig() Config {
	return Config{
		QuarantineMaxBytes:   QuarantineMaxBytes,
		QuarantineMaxEntries: QuarantineMaxEntries,
		FastPathBudgetNS:     uint64(FastPathBudgetNS.Nanoseconds()),
		FullPathBudgetNS:     uint64(FullPathBudgetNS.Nanoseconds()),
		BloomBucketCount:     bloomBits,
	}
}

// resolve fills every zero field of c with DefaultConfig's value, so a
// caller-supplied Config loaded from a partial tuning file only overrides
// the fields it actually sets.
func (c Config) resolve() Config {
	d := DefaultConfig()
	if c.QuarantineMaxBytes == 0 {
		c.QuarantineMaxBytes = d.QuarantineMaxBytes
	}
	if c.QuarantineMaxEntries == 0 {
		c.QuarantineMaxEntries = d.QuarantineMaxEntries
	}
	if c.FastPathBudgetNS == 0 {
		c.FastPathBudgetNS = d.FastPathBudgetNS
	}
	if c.FullPathBudgetNS == 0 {
		c.FullPathBudgetNS = d.FullPathBudgetNS
	}
	if c.BloomBucketCount == 0 {
		c.BloomBucketCount = d.BloomBucketCount
	}
	return c
}
