package membrane

import "sync"

// budgetController is a primal-dual controller producing the two
// thresholds decide cascades through: full_trigger_ppm and
// repair_trigger_ppm, with repair_trigger_ppm > full_trigger_ppm always,
// per spec §4.4. Grounded on the original's primal-dual quarantine
// controller (runtime_math/control.go): a dual variable (cumulative
// regret) relaxes the thresholds when observed adverse outcomes run ahead
// of budget, and tightens them back as evidence accumulates that the
// current thresholds are adequate.
type budgetController struct {
	mu sync.Mutex

	fullTriggerPPM   int64
	repairTriggerPPM int64

	cumulativeRegretMilli int64
	capEnforcements       uint64
	exhaustedFamilies     map[ApiFamily]bool

	// stepMilli is the per-observation regret increment/decrement applied
	// before thresholds are recomputed.
	stepMilli int64
}

const (
	defaultFullTriggerPPM   = 50_000  // 5%
	defaultRepairTriggerPPM = 200_000 // 20%
	minFullTriggerPPM       = 5_000
	maxRepairTriggerPPM     = 900_000
	regretStepMilli         = 50
)

func newBudgetController() *budgetController {
	return &budgetController{
		fullTriggerPPM:   defaultFullTriggerPPM,
		repairTriggerPPM: defaultRepairTriggerPPM,
		stepMilli:        regretStepMilli,
		exhaustedFamilies: make(map[ApiFamily]bool),
	}
}

// thresholds returns the current (full, repair) trigger pair.
func (b *budgetController) thresholds() (int64, int64) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.fullTriggerPPM, b.repairTriggerPPM
}

// observeAllocator updates the controller from an Allocator-family
// observation, per spec §4.4's "If the family is Allocator, updates the
// primal-dual quarantine controller so thresholds can move."
//
// adverse observations push the dual variable up, loosening (lowering)
// fullTriggerPPM so more calls get full validation; a long run of clean
// observations relaxes it back toward the default, tightening the budget.
func (b *budgetController) observeAllocator(family ApiFamily, adverse bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if adverse {
		b.cumulativeRegretMilli += b.stepMilli
		b.fullTriggerPPM -= b.stepMilli * 10
		if b.fullTriggerPPM < minFullTriggerPPM {
			b.fullTriggerPPM = minFullTriggerPPM
			b.capEnforcements++
			b.exhaustedFamilies[family] = true
		}
	} else {
		b.cumulativeRegretMilli -= b.stepMilli / 4
		if b.cumulativeRegretMilli < 0 {
			b.cumulativeRegretMilli = 0
		}
		b.fullTriggerPPM += b.stepMilli
		if b.fullTriggerPPM > defaultFullTriggerPPM {
			b.fullTriggerPPM = defaultFullTriggerPPM
		}
	}

	b.repairTriggerPPM = b.fullTriggerPPM * 4
	if b.repairTriggerPPM > maxRepairTriggerPPM {
		b.repairTriggerPPM = maxRepairTriggerPPM
	}
	if b.repairTriggerPPM <= b.fullTriggerPPM {
		b.repairTriggerPPM = b.fullTriggerPPM + 1
	}
}

// snapshot returns the fields this controller exports via
// RuntimeKernelSnapshot, per spec §6.5.
func (b *budgetController) snapshot() (regretMilli int64, capEnforcements uint64, exhausted []ApiFamily) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for f, v := range b.exhaustedFamilies {
		if v {
			exhausted = append(exhausted, f)
		}
	}
	return b.cumulativeRegretMilli, b.capEnforcements, exhausted
}
