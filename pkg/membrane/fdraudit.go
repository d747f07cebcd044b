package membrane

import "sync"

// fdrAudit is a sequential alpha-investing false-discovery-rate controller
// gating how many Repair/Deny actions get "spent" against a wealth budget,
// grounded on the original's commitment_audit.rs. Every Repair or Deny is
// treated as a "rejection" (a claim that the call was adverse); wealth
// rises on confirmed-adverse rejections and falls on spent-but-seemingly-
// clean ones, the standard alpha-investing rule, per spec §6.5's
// wealth_milli/rejections/empirical_fdr fields.
type fdrAudit struct {
	mu sync.Mutex

	wealthMilli int64
	rejections  uint64
	falseish    uint64 // rejections later judged not actually adverse

	investMilli int64 // amount invested per rejection attempt
}

const (
	initialWealthMilli = 50_000 // 50.0 in milli-units
	investMilliDefault = 1_000  // 1.0 per attempt
	payoutMilli        = 10_000 // 10.0 on a confirmed-adverse rejection
)

func newFDRAudit() *fdrAudit {
	return &fdrAudit{wealthMilli: initialWealthMilli, investMilli: investMilliDefault}
}

// admit reports whether a Repair/Deny rejection is affordable right now:
// the controller requires wealth to cover the next investment before
// admitting another rejection, matching alpha-investing's "never go into
// debt beyond the current wealth" rule.
func (f *fdrAudit) admit() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.wealthMilli >= f.investMilli
}

// recordRejection books one Repair/Deny action. adverse reports whether
// the action was later confirmed to correspond to a real adverse event
// (for the allocator family this is known immediately: a denied
// allocation with an inadmissible size is always a true rejection, while
// an UpgradeToSafeVariant repair admitted speculatively may or may not pay
// off and is passed as !adverse until observe() confirms otherwise).
func (f *fdrAudit) recordRejection(adverse bool) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.rejections++
	f.wealthMilli -= f.investMilli
	if adverse {
		f.wealthMilli += payoutMilli
	} else {
		f.falseish++
	}
	if f.wealthMilli < 0 {
		f.wealthMilli = 0
	}
}

// snapshot returns (wealthMilli, rejections, empiricalFDR)
// for RuntimeKernelSnapshot, per spec §6.5. empirical_fdr is exposed as a
// finite float in [0, 1].
func (f *fdrAudit) snapshot() (wealthMilli int64, rejections uint64, empiricalFDR float64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.rejections == 0 {
		return f.wealthMilli, 0, 0
	}
	return f.wealthMilli, f.rejections, float64(f.falseish) / float64(f.rejections)
}
