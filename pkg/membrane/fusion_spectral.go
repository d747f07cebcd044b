package membrane

import "sync"

// spectralMonitor tracks a cheap proxy for spectral-regime shift: the
// ratio between a fast and a slow exponentially-weighted moving average of
// per-call cost. A large edge ratio (fast average diverging sharply from
// slow) stands in for a "phase transition" in the original's spectral
// regime code, bumping risk during bursts of unusually expensive calls.
type spectralMonitor struct {
	mu        sync.Mutex
	fastEWMA  float64
	slowEWMA  float64
	edgeRatio float64
}

const (
	spectralFastAlpha = 0.3
	spectralSlowAlpha = 0.02
)

func newSpectralMonitor() *spectralMonitor { return &spectralMonitor{} }

func (s *spectralMonitor) Observe(family ApiFamily, costNS float64, adverse bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.slowEWMA == 0 {
		s.fastEWMA = costNS
		s.slowEWMA = costNS
		return
	}
	s.fastEWMA += spectralFastAlpha * (costNS - s.fastEWMA)
	s.slowEWMA += spectralSlowAlpha * (costNS - s.slowEWMA)

	if s.slowEWMA > 0 {
		s.edgeRatio = clampFinite(s.fastEWMA/s.slowEWMA, 1.0)
	}
}

func (s *spectralMonitor) ContributionPPM() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.edgeRatio <= 1.0 {
		return 0
	}
	// Scale (ratio - 1) into ppm, saturating at a 4x divergence.
	over := s.edgeRatio - 1.0
	if over > 3.0 {
		over = 3.0
	}
	return clampPPM(int64(over / 3.0 * 50_000))
}

func (s *spectralMonitor) Diagnostics() map[string]float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return map[string]float64{
		"spectral_edge_ratio": clampFinite(s.edgeRatio, 1.0),
		"spectral_fast_ewma":  clampFinite(s.fastEWMA, 0),
		"spectral_slow_ewma":  clampFinite(s.slowEWMA, 0),
	}
}
