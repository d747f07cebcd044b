package membrane

import "math"

// FusionSignal is one cheap online monitor contributing to base_risk_ppm,
// per spec §4.5. Every implementation must uphold the contract in that
// section: bounded contribution, finite floats, monotone counters, and
// determinism under a replayed observation sequence.
type FusionSignal interface {
	// Observe feeds one (family, cost, adverse) triple into the monitor's
	// running state.
	Observe(family ApiFamily, costNS float64, adverse bool)

	// ContributionPPM returns this monitor's current risk contribution,
	// already clipped to [0, 1_000_000].
	ContributionPPM() int64

	// Diagnostics returns the monitor's exported f64 fields, each
	// guaranteed finite, for RuntimeKernelSnapshot.
	Diagnostics() map[string]float64
}

// clampFinite replaces a transient NaN/Inf with the sentinel (typically 0),
// per spec §4.5's "Any transient infinity or NaN must be clamped to a
// documented sentinel."
func clampFinite(v, sentinel float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return sentinel
	}
	return v
}

// fusionLayer aggregates a fixed bundle of FusionSignal monitors into the
// scalar base_risk_ppm(family) decide consumes, per spec §4.4 layer 1 and
// §4.5. The bundle here is the representative subset named in
// SPEC_FULL.md's SUPPLEMENTED FEATURES: spectral, persistence-entropy,
// p-adic valuation, Lempel-Ziv compressibility, and submodular coverage.
type fusionLayer struct {
	spectral    *spectralMonitor
	persistence *persistenceMonitor
	padic       *padicMonitor
	lempelziv   *lzMonitor
	submodular  *submodularMonitor
	tropical    *tropicalCompositor

	signals []FusionSignal
}

func newFusionLayer() *fusionLayer { return newFusionLayerWithConfig(DefaultConfig()) }

// newFusionLayerWithConfig builds a fusion layer whose tropical compositor
// honors cfg's fast/full-path latency budgets, per Config.FastPathBudgetNS
// and Config.FullPathBudgetNS.
func newFusionLayerWithConfig(cfg Config) *fusionLayer {
	cfg = cfg.resolve()
	f := &fusionLayer{
		spectral:    newSpectralMonitor(),
		persistence: newPersistenceMonitor(),
		padic:       newPadicMonitor(),
		lempelziv:   newLZMonitor(),
		submodular:  newSubmodularMonitor(),
		tropical:    newTropicalCompositorWithBudgets(float64(cfg.FastPathBudgetNS), float64(cfg.FullPathBudgetNS)),
	}
	f.signals = []FusionSignal{f.spectral, f.persistence, f.padic, f.lempelziv, f.submodular}
	return f
}

// observe feeds one ABI observation into every monitor plus the tropical
// compositor, per spec §4.4's observe feedback description.
func (f *fusionLayer) observe(family ApiFamily, profile ValidationProfile, costNS float64, contention uint32, adverse bool) {
	for _, s := range f.signals {
		s.Observe(family, costNS, adverse)
	}
	f.tropical.observe(profile, costNS)
}

// baseRiskPPM sums every monitor's contribution, saturated to
// [0, 1_000_000], per spec §4.5's "the sum is saturated at 1_000_000."
func (f *fusionLayer) baseRiskPPM() int64 {
	var total int64
	for _, s := range f.signals {
		total += s.ContributionPPM()
	}
	total += f.tropical.pressurePPM()
	return clampPPM(total)
}
