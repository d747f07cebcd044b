package membrane

import (
	"math"
	"sync"
)

// persistenceMonitor is a cheap proxy for a persistence-entropy signal: it
// buckets recent call costs into a small fixed histogram and reports the
// Shannon entropy of the resulting distribution. A collapsing entropy
// (cost concentrating into one bucket) mirrors the original's notion of a
// topological feature persisting rather than being noise, and is treated
// here as a mild risk contributor (a narrow, repeatable cost band close to
// a latency budget boundary is how adversarial inputs tend to look).
type persistenceMonitor struct {
	mu      sync.Mutex
	buckets [persistenceBucketCount]uint64
	total   uint64
	entropy float64
}

const persistenceBucketCount = 8

// persistenceBucketEdgeNS are fixed, deterministic bucket boundaries in
// nanoseconds, chosen around the spec's fast/full budgets (20ns/200ns).
var persistenceBucketEdgeNS = [persistenceBucketCount - 1]float64{5, 10, 20, 40, 80, 160, 320}

func newPersistenceMonitor() *persistenceMonitor { return &persistenceMonitor{} }

func bucketFor(costNS float64) int {
	for i, edge := range persistenceBucketEdgeNS {
		if costNS < edge {
			return i
		}
	}
	return persistenceBucketCount - 1
}

func (p *persistenceMonitor) Observe(family ApiFamily, costNS float64, adverse bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.buckets[bucketFor(costNS)]++
	p.total++
	p.entropy = p.computeEntropyLocked()
}

func (p *persistenceMonitor) computeEntropyLocked() float64 {
	if p.total == 0 {
		return 0
	}
	var h float64
	for _, c := range p.buckets {
		if c == 0 {
			continue
		}
		prob := float64(c) / float64(p.total)
		h -= prob * math.Log2(prob)
	}
	return clampFinite(h, 0)
}

// ContributionPPM rises as entropy falls (distribution concentrating),
// normalized against the maximum possible entropy for the bucket count.
func (p *persistenceMonitor) ContributionPPM() int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.total < 16 {
		return 0 // insufficient evidence
	}
	maxEntropy := math.Log2(float64(persistenceBucketCount))
	if maxEntropy == 0 {
		return 0
	}
	concentration := 1.0 - (p.entropy / maxEntropy)
	if concentration < 0 {
		concentration = 0
	}
	return clampPPM(int64(concentration * 30_000))
}

func (p *persistenceMonitor) Diagnostics() map[string]float64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	return map[string]float64{"persistence_entropy": clampFinite(p.entropy, 0)}
}
