package membrane

import (
	"sync"
	"sync/atomic"
	"time"
)

// maxAdmissibleAllocBytes bounds a single allocation request; requests
// above this are inadmissible regardless of mode, per spec §4.4's
// "admissibility barrier (family-specific, e.g., Allocator asked for an
// unreasonable size)".
const maxAdmissibleAllocBytes = 1 << 40

// Kernel is the online decision kernel: decide/observe plus every
// subsystem decide's decision law draws on (fusion layer, budget
// controller, FDR audit, check-oracle, healing ring), per spec §4.4.
type Kernel struct {
	mode Mode

	arena    *Arena
	pipeline *Pipeline

	fusion *fusionLayer
	budget *budgetController
	audit  *fdrAudit
	heal   *healRing

	decisions uint64 // atomic, monotone, spec §6.5
	evidence  uint64 // atomic, monotone evidence sequence number

	familyAdverse [numFamilies]adverseRate
}

// adverseRate is a small running-rate estimator per family, consumed as
// decide's "per-family upper-bound in ppm summarizing recent adverse
// rates" (spec §4.4 layer 1).
type adverseRate struct {
	mu    sync.Mutex
	total uint64
	bad   uint64
}

func (r *adverseRate) observe(adverse bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.total++
	if adverse {
		r.bad++
	}
}

func (r *adverseRate) ppm() int64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.total == 0 {
		return 0
	}
	return clampPPM(int64(float64(r.bad) / float64(r.total) * 1_000_000))
}

// NewKernel constructs a kernel in the given mode with a fresh arena and
// every subkernel, per spec §9's "Each is initialized once at first ABI
// entry and is not torn down."
func NewKernel(mode Mode) *Kernel { return NewKernelWithConfig(mode, DefaultConfig()) }

// NewKernelWithConfig is NewKernel with cfg applied across every subkernel
// that accepts an override: the arena's quarantine limits, the fusion
// layer's tropical-compositor latency budgets, and the pipeline's Bloom
// bucket count, per SPEC_FULL.md's AMBIENT STACK / Configuration section.
// A zero-value cfg field falls back to the package default (Config.resolve).
func NewKernelWithConfig(mode Mode, cfg Config) *Kernel {
	cfg = cfg.resolve()
	arena := NewArenaWithConfig(cfg)
	k := &Kernel{
		mode:     mode,
		arena:    arena,
		pipeline: NewPipelineWithConfig(arena, cfg),
		fusion:   newFusionLayerWithConfig(cfg),
		budget:   newBudgetController(),
		audit:    newFDRAudit(),
		heal:     newHealRing(),
	}
	return k
}

// Arena exposes the underlying arena for ABI adapters that need direct
// allocate/free access (pkg/abi's malloc family).
func (k *Kernel) Arena() *Arena { return k.arena }

// Pipeline exposes the validation pipeline for ABI adapters that need to
// run FullValidate directly.
func (k *Kernel) Pipeline() *Pipeline { return k.pipeline }

// HealRing exposes the healing-policy ring for observability consumers
// (cmd/franken-repl, tests).
func (k *Kernel) HealRing() *healRing { return k.heal }

// Mode returns the kernel's process-immutable safety mode.
func (k *Kernel) Mode() Mode { return k.mode }

// admissible runs the family-specific admissibility barrier, per
// spec §4.4. Only the Allocator family has a barrier today; other
// families are always admissible (the taxonomy is open for extension).
func (k *Kernel) admissible(ctx RuntimeContext) bool {
	if ctx.Family == FamilyAllocator && ctx.RequestedBytes > maxAdmissibleAllocBytes {
		return false
	}
	return true
}

// Decide is the single source of truth for whether to run a check, what to
// return on refusal, and whether to substitute a repair, per spec §4.4.
// It never takes an arena shard lock, but it is not lock-free: it reads its
// risk inputs through short-held mutexes (each fusion monitor's, the
// per-family adverse-rate estimator's, and the budget controller's).
func (k *Kernel) Decide(ctx RuntimeContext) RuntimeDecision {
	atomic.AddUint64(&k.decisions, 1)
	atomic.AddUint64(&k.evidence, 1)

	if k.mode == ModeOff {
		return RuntimeDecision{
			Profile:  ProfileFast,
			Action:   ActionAllow,
			PolicyID: packPolicyID(k.mode, ctx.Family, ProfileFast, ActionAllow),
		}
	}

	baseRisk := k.fusion.baseRiskPPM()
	familyRisk := k.familyAdverse[ctx.Family].ppm()
	riskPPM := clampPPM(baseRisk + familyRisk)

	fullTrigger, repairTrigger := k.budget.thresholds()

	if !k.admissible(ctx) {
		if k.mode == ModeHardened {
			d := RuntimeDecision{
				Profile:  ProfileFast,
				Action:   ActionRepair,
				Repair:   RepairReturnSafeDefault,
				RiskUpperBoundPPM: riskPPM,
			}
			d.PolicyID = packPolicyID(k.mode, ctx.Family, d.Profile, ActionRepair)
			return d
		}
		return RuntimeDecision{
			Profile:  ProfileFast,
			Action:   ActionDeny,
			RiskUpperBoundPPM: riskPPM,
			PolicyID: packPolicyID(k.mode, ctx.Family, ProfileFast, ActionDeny),
		}
	}

	profile := ProfileFast
	if riskPPM >= fullTrigger {
		profile = ProfileFull
	}

	var action Action
	var repair RepairKind
	switch {
	case profile == ProfileFull:
		action = ActionFullValidate
	case k.mode == ModeHardened && riskPPM >= repairTrigger:
		action = ActionRepair
		repair = RepairUpgradeToSafeVariant
	default:
		action = ActionAllow
	}

	d := RuntimeDecision{
		Profile:           profile,
		Action:            action,
		Repair:            repair,
		RiskUpperBoundPPM: riskPPM,
	}
	d.PolicyID = packPolicyID(k.mode, ctx.Family, profile, action)
	return d
}

// Observe feeds back a completed call's outcome, per spec §4.4's observe.
// It updates the per-family adverse rate, the fusion layer, and (for the
// Allocator family) the primal-dual budget controller. It may briefly
// acquire per-subkernel mutexes but never runs on decide's hot path.
func (k *Kernel) Observe(family ApiFamily, profile ValidationProfile, cost time.Duration, adverse bool) {
	k.familyAdverse[family].observe(adverse)
	k.fusion.observe(family, profile, float64(cost.Nanoseconds()), 0, adverse)
	if family == FamilyAllocator {
		k.budget.observeAllocator(family, adverse)
	}
}

// RecordRepair books a Repair/Deny action against the FDR audit and, when
// the audit admits it, the healing ring, per spec §4.6 step 4. It reports
// whether the audit admitted the action; the ring entry's UUID is not
// returned.
func (k *Kernel) RecordRepair(family ApiFamily, kind RepairKind, detail string, confirmedAdverse bool) (allowed bool) {
	if !k.audit.admit() {
		return false
	}
	k.audit.recordRejection(confirmedAdverse)
	k.heal.record(family, kind, detail)
	return true
}

// Allocate is the Allocator-family entry point composing arena allocation
// and bloom-filter bookkeeping in one call, matching the ABI adapter
// contract's "Body" step for malloc, per spec §4.6. It runs no admission
// check itself; the ABI adapter calls Decide before it.
func (k *Kernel) Allocate(size, align uint64) (uint64, error) {
	userBase, err := k.arena.AllocateAligned(size, align)
	if err != nil {
		return 0, err
	}
	k.pipeline.noteAllocated(userBase)
	return userBase, nil
}

// Free runs Arena.Free and applies the Strict/Hardened repair policy for
// DoubleFree/ForeignPointer absorption described in spec §7: both modes
// absorb the outcome as a no-op from the caller's perspective; Hardened
// additionally records the repair in the healing ring.
func (k *Kernel) Free(userBase uint64) (FreeResult, error) {
	result, _, err := k.arena.Free(userBase)
	if err == nil {
		return result, nil
	}

	switch result {
	case FreeResultDoubleFree:
		if k.mode == ModeHardened {
			k.heal.record(FamilyAllocator, RepairIgnoreDoubleFree, "")
		}
		return result, nil // absorbed as a no-op in every mode, spec §7
	case FreeResultForeignPointer:
		if k.mode == ModeHardened {
			k.heal.record(FamilyAllocator, RepairIgnoreForeignFree, "")
		}
		return result, nil
	default:
		return result, err
	}
}
