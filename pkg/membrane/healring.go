package membrane

import (
	"sync"

	"github.com/google/uuid"
)

// HealEvent is one recorded repair action, per spec §4.6's "record the
// kind in a global healing-policy ring (for tests/observability)".
type HealEvent struct {
	PolicyID uuid.UUID
	Family   ApiFamily
	Kind     RepairKind
	Detail   string
}

// healRing is a bounded ring buffer of the most recent HealEvents.
// Grounded on internal/store/wal.go's use of google/uuid for
// cross-referenceable WAL record IDs: each event gets a fresh UUID so
// external tooling (or cmd/franken-repl) can correlate a ring entry with a
// policy_id logged elsewhere.
type healRing struct {
	mu     sync.Mutex
	events []HealEvent
	cap    int
	next   int
	filled bool
}

const defaultHealRingCapacity = 1024

func newHealRing() *healRing {
	return &healRing{events: make([]HealEvent, defaultHealRingCapacity), cap: defaultHealRingCapacity}
}

// record appends kind for family, returning the UUID assigned so a caller
// can cross-reference it with the PolicyID packed into a RuntimeDecision.
func (r *healRing) record(family ApiFamily, kind RepairKind, detail string) uuid.UUID {
	id := uuid.New()
	r.mu.Lock()
	r.events[r.next] = HealEvent{PolicyID: id, Family: family, Kind: kind, Detail: detail}
	r.next = (r.next + 1) % r.cap
	if r.next == 0 {
		r.filled = true
	}
	r.mu.Unlock()
	return id
}

// Recent returns a copy of every currently-held event, oldest first.
func (r *healRing) Recent() []HealEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	if !r.filled {
		out := make([]HealEvent, r.next)
		copy(out, r.events[:r.next])
		return out
	}
	out := make([]HealEvent, r.cap)
	copy(out, r.events[r.next:])
	copy(out[r.cap-r.next:], r.events[:r.next])
	return out
}

// CountKind reports how many currently-held events match kind, used by
// tests asserting e.g. "IgnoreDoubleFree recorded exactly once" (spec S1).
func (r *healRing) CountKind(kind RepairKind) int {
	count := 0
	for _, e := range r.Recent() {
		if e.Kind == kind {
			count++
		}
	}
	return count
}
