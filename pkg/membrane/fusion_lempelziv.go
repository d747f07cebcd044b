package membrane

import "sync"

// lzMonitor is a cheap Lempel-Ziv-style compressibility proxy over the
// recent stream of adverse/clean observation bits. A highly repetitive
// stream (few distinct substrings, e.g. a long run of identical outcomes)
// compresses well, which in the original's usage flags a caller hammering
// the same failure mode rather than organic varied traffic. Implemented
// here as a rolling count of distinct bigrams over a bounded window
// instead of pulling in a full LZ77/78 implementation, since spec §1
// treats the exact math as illustrative.
type lzMonitor struct {
	mu         sync.Mutex
	window     []bool
	distinctBi map[[2]bool]bool
	ratio      float64
}

const lzWindowSize = 64

func newLZMonitor() *lzMonitor {
	return &lzMonitor{distinctBi: make(map[[2]bool]bool, 4)}
}

func (m *lzMonitor) Observe(family ApiFamily, costNS float64, adverse bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.window = append(m.window, adverse)
	if len(m.window) > lzWindowSize {
		m.window = m.window[1:]
	}

	m.distinctBi = make(map[[2]bool]bool, 4)
	for i := 0; i+1 < len(m.window); i++ {
		m.distinctBi[[2]bool{m.window[i], m.window[i+1]}] = true
	}

	// At most 4 distinct bigrams exist over a boolean alphabet; ratio is
	// distinct/min(possible, 4), where possible is the number of bigrams in
	// the window; low ratio = more repetitive = more compressible.
	possible := len(m.window) - 1
	if possible < 1 {
		m.ratio = 1
		return
	}
	maxDistinct := possible
	if maxDistinct > 4 {
		maxDistinct = 4
	}
	m.ratio = clampFinite(float64(len(m.distinctBi))/float64(maxDistinct), 1)
}

func (m *lzMonitor) ContributionPPM() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.window) < 16 {
		return 0
	}
	compressibility := 1.0 - m.ratio
	if compressibility < 0 {
		compressibility = 0
	}
	return clampPPM(int64(compressibility * 20_000))
}

func (m *lzMonitor) Diagnostics() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]float64{"lempelziv_distinct_ratio": clampFinite(m.ratio, 1)}
}
