package membrane

// SlotState is the lifecycle state of one arena slot, per spec §3.1.
//
// Transitions: Valid -> Quarantined on first free; Quarantined -> Freed on
// drain (raw memory released). Re-entry to Valid happens only via a fresh
// Allocate that reuses the slot index with a new generation. No other
// transition is permitted.
type SlotState uint8

const (
	StateValid SlotState = iota
	StateQuarantined
	StateFreed
	StateInvalid
	StateUnknown
)

func (s SlotState) String() string {
	switch s {
	case StateValid:
		return "Valid"
	case StateQuarantined:
		return "Quarantined"
	case StateFreed:
		return "Freed"
	case StateInvalid:
		return "Invalid"
	default:
		return "Unknown"
	}
}

// Slot represents one live-or-quarantined allocation block, per spec §3.1.
type Slot struct {
	RawBase    uint64
	UserBase   uint64
	UserSize   uint64
	Align      uint64
	Generation uint32
	State      SlotState

	Fingerprint [FingerprintSize]byte
	Canary      [FingerprintSize]byte
}

// Snapshot returns a value copy safe to hold across subsequent arena
// mutations, matching the "callers must not hold it across subsequent
// mutations" contract for the live record (the Lookup/RemainingFrom
// return value itself is already a copy; this helper documents intent at
// call sites).
func (s Slot) Snapshot() Slot { return s }

// contains reports whether addr falls within [UserBase, UserBase+UserSize).
func (s Slot) contains(addr uint64) bool {
	return addr >= s.UserBase && addr < s.UserBase+s.UserSize
}

// remaining returns the number of in-bounds bytes from addr to the end of
// the allocation, used by string functions to cap scans (spec §4.2
// remaining_from).
func (s Slot) remaining(addr uint64) uint64 {
	if !s.contains(addr) {
		return 0
	}
	return s.UserBase + s.UserSize - addr
}

// FreeResult enumerates the outcomes of Arena.Free, per spec §4.2.
type FreeResult uint8

const (
	FreeResultFreed FreeResult = iota
	FreeResultFreedWithCanaryCorruption
	FreeResultDoubleFree
	FreeResultForeignPointer
	FreeResultInvalidPointer
)

func (r FreeResult) String() string {
	switch r {
	case FreeResultFreed:
		return "Freed"
	case FreeResultFreedWithCanaryCorruption:
		return "FreedWithCanaryCorruption"
	case FreeResultDoubleFree:
		return "DoubleFree"
	case FreeResultForeignPointer:
		return "ForeignPointer"
	default:
		return "InvalidPointer"
	}
}
