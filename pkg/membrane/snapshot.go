package membrane

import (
	"bytes"
	"encoding/binary"
	"encoding/json"
	"hash/crc32"
	"math"
	"sync/atomic"

	"github.com/Dicklesworthstone/frankenlibc-go/pkg/fs"
	natefinchatomic "github.com/natefinch/atomic"
)

// SnapshotSchemaVersion is bumped whenever RuntimeKernelSnapshot's shape
// changes in a way a consumer needs to know about, per spec §6.5.
const SnapshotSchemaVersion = "frankenlibc-go/v1"

// RuntimeKernelSnapshot is the sole exported observability surface, per
// spec §6.5. Two fresh kernels driven by the same deterministic seed must
// produce byte-identical snapshots (spec §8.1 #8) — every field here is
// either an integer counter or a finite float, never wall-clock time or
// any other non-reproducible quantity.
type RuntimeKernelSnapshot struct {
	SchemaVersion string `json:"schema_version"`

	Decisions           uint64 `json:"decisions"`
	EvidenceSeq         uint64 `json:"evidence_sequence_number"`
	QuarantineDepth     uint64 `json:"quarantine_depth"`

	FullValidationTriggerPPM int64 `json:"full_validation_trigger_ppm"`
	RepairTriggerPPM         int64 `json:"repair_trigger_ppm"`
	SampledRiskBonusPPM      int64 `json:"sampled_risk_bonus_ppm"`

	ParetoCumulativeRegretMilli int64    `json:"pareto_cumulative_regret_milli"`
	ParetoCapEnforcements       uint64   `json:"pareto_cap_enforcements"`
	ParetoExhaustedFamilies     []string `json:"pareto_exhausted_families"`

	TropicalFullWCLNS float64 `json:"tropical_full_wcl_ns"`

	WealthMilli  int64   `json:"wealth_milli"`
	Rejections   uint64  `json:"rejections"`
	EmpiricalFDR float64 `json:"empirical_fdr"`

	Diagnostics map[string]float64 `json:"diagnostics"`
}

// finiteOrZero enforces spec §4.5/§6.5's "every f64 field exported by the
// snapshot satisfies is_finite()".
func finiteOrZero(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}

// Snapshot builds a RuntimeKernelSnapshot from the kernel's current state,
// per spec §6.5.
func (k *Kernel) Snapshot() RuntimeKernelSnapshot {
	regretMilli, capEnforcements, exhausted := k.budget.snapshot()
	fullTrigger, repairTrigger := k.budget.thresholds()
	wealth, rejections, empiricalFDR := k.audit.snapshot()

	diagnostics := make(map[string]float64)
	for _, s := range k.fusion.signals {
		for name, v := range s.Diagnostics() {
			diagnostics[name] = finiteOrZero(v)
		}
	}

	exhaustedNames := make([]string, 0, len(exhausted))
	for _, f := range exhausted {
		exhaustedNames = append(exhaustedNames, f.String())
	}

	var quarantineDepth uint64
	for i := range k.arena.shards {
		sh := k.arena.shards[i]
		sh.mu.Lock()
		quarantineDepth += uint64(sh.q.len())
		sh.mu.Unlock()
	}

	return RuntimeKernelSnapshot{
		SchemaVersion: SnapshotSchemaVersion,

		Decisions:       atomic.LoadUint64(&k.decisions),
		EvidenceSeq:     atomic.LoadUint64(&k.evidence),
		QuarantineDepth: quarantineDepth,

		FullValidationTriggerPPM: fullTrigger,
		RepairTriggerPPM:         repairTrigger,
		SampledRiskBonusPPM:      clampPPM(k.fusion.baseRiskPPM()),

		ParetoCumulativeRegretMilli: regretMilli,
		ParetoCapEnforcements:       capEnforcements,
		ParetoExhaustedFamilies:     exhaustedNames,

		TropicalFullWCLNS: finiteOrZero(k.fusion.tropical.snapshot()),

		WealthMilli:  wealth,
		Rejections:   rejections,
		EmpiricalFDR: finiteOrZero(empiricalFDR),

		Diagnostics: diagnostics,
	}
}

// snapshotFileHeader is written ahead of the JSON payload so a reader (or
// cmd/franken-repl) can verify the dump was not truncated mid-write before
// trusting it, mirroring pkg/slotcache/format.go's header-CRC discipline.
type snapshotFileHeader struct {
	Magic   uint32
	Length  uint32
	Crc32c  uint32
}

const snapshotMagic = 0x46524B53 // "FRKS"

// WriteSnapshot durably persists snap to path on fsys using an
// atomic-rename write, the same pattern the teacher uses for its own
// durable writes (internal/ticket/cache.go's atomic.WriteFile). On the real
// filesystem this goes straight through natefinch/atomic; on any other
// fs.FS seam (fs.Chaos in tests) it goes through pkg/fs's own
// AtomicWriter, so fault-injection tests exercise the same temp-file,
// sync, rename, dir-sync sequence the real path gets, rather than a bare
// non-atomic WriteFile.
func WriteSnapshot(fsys fs.FS, path string, snap RuntimeKernelSnapshot) error {
	payload, err := json.Marshal(snap)
	if err != nil {
		return err
	}

	sum := crc32.Checksum(payload, crcTable)
	var hdr snapshotFileHeader
	hdr.Magic = snapshotMagic
	hdr.Length = uint32(len(payload))
	hdr.Crc32c = sum

	var buf bytes.Buffer
	binary.Write(&buf, binary.BigEndian, hdr.Magic)
	binary.Write(&buf, binary.BigEndian, hdr.Length)
	binary.Write(&buf, binary.BigEndian, hdr.Crc32c)
	buf.Write(payload)

	if _, ok := fsys.(*fs.Real); ok {
		return natefinchatomic.WriteFile(path, bytes.NewReader(buf.Bytes()))
	}

	writer := fs.NewAtomicWriter(fsys)
	return writer.WriteWithDefaults(path, bytes.NewReader(buf.Bytes()))
}

// ReadSnapshot reads and verifies a snapshot written by WriteSnapshot,
// rejecting a truncated or corrupted file before it is unmarshaled.
func ReadSnapshot(fsys fs.FS, path string) (RuntimeKernelSnapshot, error) {
	data, err := fsys.ReadFile(path)
	if err != nil {
		return RuntimeKernelSnapshot{}, err
	}
	if len(data) < 12 {
		return RuntimeKernelSnapshot{}, ErrInvalidPointer // reuse: "structurally invalid", not a pointer error per se
	}

	r := bytes.NewReader(data)
	var hdr snapshotFileHeader
	binary.Read(r, binary.BigEndian, &hdr.Magic)
	binary.Read(r, binary.BigEndian, &hdr.Length)
	binary.Read(r, binary.BigEndian, &hdr.Crc32c)

	payload := data[12:]
	if uint32(len(payload)) != hdr.Length || crc32.Checksum(payload, crcTable) != hdr.Crc32c {
		return RuntimeKernelSnapshot{}, ErrInvalidPointer
	}

	var snap RuntimeKernelSnapshot
	if err := json.Unmarshal(payload, &snap); err != nil {
		return RuntimeKernelSnapshot{}, err
	}
	return snap, nil
}
