package membrane

import "sync"

// padicMonitor is a proxy for the original's p-adic valuation regime
// monitor (padic_valuation.rs): the 2-adic valuation of an observed cost
// (rounded to an integer nanosecond count), i.e. the number of trailing
// zero bits, tends to spike when a cost is a suspiciously "round" power of
// two — a signal the original used to flag synthetic/adversarial timing
// rather than organic jitter. A sustained run of high-valuation
// observations nudges risk up.
type padicMonitor struct {
	mu          sync.Mutex
	runLength   int
	lastWasHigh bool
	maxValSeen  uint32 // monotone, per spec §4.5's monotone-counter rule
}

const padicHighValuationThreshold = 4 // >= 16ns granularity is "suspiciously round"

func newPadicMonitor() *padicMonitor { return &padicMonitor{} }

// valuation2 returns the number of trailing zero bits of n, the 2-adic
// valuation, or 0 for n == 0.
func valuation2(n uint64) uint32 {
	if n == 0 {
		return 0
	}
	var v uint32
	for n&1 == 0 {
		n >>= 1
		v++
	}
	return v
}

func (m *padicMonitor) Observe(family ApiFamily, costNS float64, adverse bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	n := uint64(costNS)
	val := valuation2(n)
	if val > m.maxValSeen {
		m.maxValSeen = val
	}

	high := val >= padicHighValuationThreshold
	if high && m.lastWasHigh {
		m.runLength++
	} else if high {
		m.runLength = 1
	} else {
		m.runLength = 0
	}
	m.lastWasHigh = high
}

func (m *padicMonitor) ContributionPPM() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.runLength < 3 {
		return 0
	}
	run := m.runLength
	if run > 20 {
		run = 20
	}
	return clampPPM(int64(run) * 1_000)
}

func (m *padicMonitor) Diagnostics() map[string]float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return map[string]float64{
		"padic_max_valuation": float64(m.maxValSeen),
		"padic_run_length":    float64(m.runLength),
	}
}
