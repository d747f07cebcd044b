package membrane

import "sync"

// PipelinePath is the taxonomy of latency paths a call can take, grounded
// on the original's tropical_latency.rs.
type PipelinePath uint8

const (
	PathFastExit PipelinePath = iota
	PathNormal
	PathFull
	PathAlarm

	numPaths
)

func (p PipelinePath) String() string {
	switch p {
	case PathFastExit:
		return "FastExit"
	case PathNormal:
		return "Normal"
	case PathFull:
		return "Full"
	default:
		return "Alarm"
	}
}

// tropicalInf stands in for the min-plus semiring's additive identity
// (+infinity): a stage that has never been observed contributes "no
// information" to a critical-path computation rather than 0, which would
// wrongly make an unobserved stage look free.
const tropicalInf = float64(1 << 40)

// tropicalAdd and tropicalMul are the min-plus semiring operations: "add"
// picks the better (smaller) of two candidate path costs, "mul" composes
// sequential stage costs by ordinary addition.
func tropicalAdd(a, b float64) float64 {
	if a < b {
		return a
	}
	return b
}
func tropicalMul(a, b float64) float64 { return a + b }

// stageCost tracks an EWMA and an all-time max for one stage's observed
// cost, per the original's StageCosts.
type stageCost struct {
	ewma float64
	max  float64
	seen bool
}

func (s *stageCost) observe(costNS float64) {
	if !s.seen {
		s.ewma = costNS
		s.max = costNS
		s.seen = true
		return
	}
	const alpha = 0.2
	s.ewma += alpha * (costNS - s.ewma)
	if costNS > s.max {
		s.max = costNS
	}
}

// pathStages maps each path to the ordered stages its calls traverse,
// grounded on the original's PATH_STAGES matrix. FastExit only ever pays
// for Null+TlsCache; Full pays for the entire seven-stage pipeline.
// Quarantine overhead on a Free is not costed separately.
var pathStages = [numPaths][]Stage{
	PathFastExit: {StageNull, StageTlsCache},
	PathNormal:   {StageNull, StageTlsCache, StageBloom, StageArena},
	PathFull:     {StageNull, StageTlsCache, StageBloom, StageBounds, StageArena, StageFingerprint, StageCanary},
	PathAlarm:    {StageNull, StageTlsCache, StageBloom, StageBounds, StageArena, StageFingerprint, StageCanary},
}

// tropicalCompositor computes a worst-case-latency (WCL) figure per path by
// tropical-summing (min-plus, here realized as ordinary addition of
// observed maxima, since the "path" already fixes the stage sequence) the
// per-stage max costs along that path, and raises risk when the
// fast/full-path WCL exceeds its budget, per spec §4.4's tropical-latency
// pressure contribution and §4.4's 20ns/200ns budgets.
type tropicalCompositor struct {
	mu     sync.Mutex
	stages [numStages]stageCost

	fullWCLNS float64
	fastWCLNS float64

	fastPathBudgetNS float64
	fullPathBudgetNS float64
}

func newTropicalCompositor() *tropicalCompositor {
	return newTropicalCompositorWithBudgets(float64(FastPathBudgetNS.Nanoseconds()), float64(FullPathBudgetNS.Nanoseconds()))
}

// newTropicalCompositorWithBudgets builds a compositor against caller-supplied
// fast/full-path latency budgets, per Config.FastPathBudgetNS/FullPathBudgetNS.
func newTropicalCompositorWithBudgets(fastBudgetNS, fullBudgetNS float64) *tropicalCompositor {
	return &tropicalCompositor{fastPathBudgetNS: fastBudgetNS, fullPathBudgetNS: fullBudgetNS}
}

// observe records a cost against every stage on profile's implied path —
// Fast profile calls are costed against PathFastExit, Full profile calls
// against PathFull — and recomputes the worst-case latency for that path.
func (t *tropicalCompositor) observe(profile ValidationProfile, costNS float64) {
	path := PathFastExit
	if profile == ProfileFull {
		path = PathFull
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	stages := pathStages[path]
	if len(stages) == 0 {
		return
	}
	perStage := costNS / float64(len(stages))
	for _, s := range stages {
		t.stages[s].observe(perStage)
	}

	wcl := t.criticalPathLocked(path)
	switch path {
	case PathFull:
		t.fullWCLNS = wcl
	case PathFastExit:
		t.fastWCLNS = wcl
	}
}

// criticalPathLocked tropical-sums (min-plus "multiplies", i.e. ordinary
// adds) every stage's observed max along path. Caller must hold t.mu.
func (t *tropicalCompositor) criticalPathLocked(path PipelinePath) float64 {
	total := 0.0
	for _, s := range pathStages[path] {
		sc := t.stages[s]
		if !sc.seen {
			continue
		}
		total = tropicalMul(total, sc.max)
	}
	return clampFinite(total, 0)
}

// pressurePPM rises when either path's worst-case latency exceeds its
// budget (FastPathBudgetNS for PathFastExit, FullPathBudgetNS for
// PathFull), per spec §4.4.
func (t *tropicalCompositor) pressurePPM() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()

	return clampPPM(budgetPressurePPM(t.fullWCLNS, t.fullPathBudgetNS) + budgetPressurePPM(t.fastWCLNS, t.fastPathBudgetNS))
}

// budgetPressurePPM scales linearly from 0 at wclNS == budget up to a
// 40,000ppm ceiling at 5x over budget, shared by both the fast- and
// full-path pressure contributions above.
func budgetPressurePPM(wclNS, budget float64) int64 {
	if wclNS <= budget || budget <= 0 {
		return 0
	}
	over := (wclNS - budget) / budget
	if over > 5 {
		over = 5
	}
	return clampPPM(int64(over / 5 * 40_000))
}

func (t *tropicalCompositor) snapshot() (fullWCLNS float64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	return clampFinite(t.fullWCLNS, 0)
}
