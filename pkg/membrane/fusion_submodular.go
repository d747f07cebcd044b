package membrane

import "sync"

// submodularMonitor is a proxy for a submodular-coverage signal: it tracks
// how many distinct API families have been observed recently, and reports
// the marginal-coverage-gain curve's current plateau as a risk
// contribution. A process calling through the same one or two families
// over and over (low coverage) is the common case and contributes nothing;
// a process suddenly exercising many distinct families in a short window
// diverges from typical submodular-diminishing-returns coverage growth and
// is treated as mildly suspicious, matching the original's use of coverage
// monitors to flag atypical call-family breadth.
type submodularMonitor struct {
	mu          sync.Mutex
	seen        map[ApiFamily]bool
	coverage    uint32 // monotone counter, spec §4.5
	lastGainPPM int64
}

func newSubmodularMonitor() *submodularMonitor {
	return &submodularMonitor{seen: make(map[ApiFamily]bool, numFamilies)}
}

func (m *submodularMonitor) Observe(family ApiFamily, costNS float64, adverse bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.seen[family] {
		m.seen[family] = true
		m.coverage++
		// Diminishing returns: the marginal gain from the k-th new family
		// shrinks as k grows, the defining submodular property.
		m.lastGainPPM = int64(100_000 / (int64(m.coverage) + 1))
	} else {
		m.lastGainPPM = 0
	}
}

func (m *submodularMonitor) ContributionPPM() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return clampPPM(m.lastGainPPM)
}

func (m *submodularMonitor) Diagnostics() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]float64{"submodular_family_coverage": float64(m.coverage)}
}
