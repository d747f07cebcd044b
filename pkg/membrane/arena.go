package membrane

import (
	"math/bits"
	"sync"
	"sync/atomic"
)

// shard is one of NumShards independent partitions of the arena. All
// operations on a shard serialize through mu; different shards are fully
// independent, per spec §4.2 "Thread safety".
type shard struct {
	mu sync.Mutex

	slots    []Slot
	userIdx  map[uint64]int // user_base -> index into slots
	backing  map[uint64][]byte
	freeList []int
	q        *quarantineQueue
}

func newShard() *shard {
	return &shard{
		userIdx: make(map[uint64]int),
		backing: make(map[uint64][]byte),
		q:       newQuarantineQueue(),
	}
}

// Arena owns every membrane-managed allocation, sharded 16 ways, per
// spec §3.3/§4.2. Addresses are synthetic uint64 handles into a
// process-private backing store rather than real OS pointers: Go offers no
// portable, GC-safe way to hand out raw heap addresses to the allocator's
// caller, so the arena is its own address space, the idiomatic substitute
// for the C original's raw pointer arithmetic.
type Arena struct {
	shards [NumShards]*shard

	generation uint32 // atomic, monotonically increasing
	epoch      uint64 // atomic, bumped on every Free
	nextAddr   uint64 // atomic, synthetic address-space cursor

	quarantineMaxBytes   uint64
	quarantineMaxEntries int
}

// addressGranularity spaces synthetic allocations apart enough that
// alignment requests up to a few KiB never collide, mirroring a real
// allocator's page-ish granularity.
const addressGranularity = 1 << 16

// NewArena constructs an empty arena with all shards initialized and the
// synthetic address space starting at a non-zero base so 0 remains
// reserved for "null", per spec §4.3's Null pipeline stage.
func NewArena() *Arena { return NewArenaWithConfig(DefaultConfig()) }

// NewArenaWithConfig is NewArena with cfg's quarantine limits applied
// instead of the package defaults, per Config.QuarantineMaxBytes and
// Config.QuarantineMaxEntries.
func NewArenaWithConfig(cfg Config) *Arena {
	cfg = cfg.resolve()
	a := &Arena{
		nextAddr:             addressGranularity,
		quarantineMaxBytes:   cfg.QuarantineMaxBytes,
		quarantineMaxEntries: int(cfg.QuarantineMaxEntries),
	}
	for i := range a.shards {
		a.shards[i] = newShard()
	}
	return a
}

// Epoch returns the current global TLS-cache-equivalent epoch, per
// spec §3.4.
func (a *Arena) Epoch() uint64 { return atomic.LoadUint64(&a.epoch) }

func (a *Arena) bumpEpoch() { atomic.AddUint64(&a.epoch, 1) }

func (a *Arena) nextGeneration() uint32 { return atomic.AddUint32(&a.generation, 1) }

func shardIndex(userBase uint64) int {
	return int((userBase >> 12) % NumShards)
}

func isPowerOfTwo(v uint64) bool { return v != 0 && v&(v-1) == 0 }

// coerceAlign maps align 0 to MinAlign, rejects any other align that is not
// a power of two, and raises a power of two below MinAlign to MinAlign, per spec §4.2 "align is coerced to at least 16 and must be
// a power of two; otherwise None".
func coerceAlign(align uint64) (uint64, bool) {
	if align == 0 {
		align = MinAlign
	}
	if !isPowerOfTwo(align) {
		return 0, false
	}
	if align < MinAlign {
		align = MinAlign
	}
	return align, true
}

// AllocateAligned reserves offset+size+FingerprintSize bytes with the given
// alignment, writes the fingerprint header and trailing canary, and
// registers a new slot. offset equals the coerced alignment so the
// fingerprint header (<= MinAlign bytes) always fits before the user
// region, per spec §4.2.
func (a *Arena) AllocateAligned(size uint64, align uint64) (uint64, error) {
	align, ok := coerceAlign(align)
	if !ok {
		return 0, ErrBadAlignment
	}

	offset := align
	total := offset + size + FingerprintSize
	if total < offset { // overflow
		return 0, ErrOutOfMemory
	}

	buf := make([]byte, total)

	delta := alignUp(total, addressGranularity)
	rawBase := atomic.AddUint64(&a.nextAddr, delta) - delta
	userBase := rawBase + offset
	generation := a.nextGeneration()

	fp := fingerprintFor(userBase, size, generation)
	copy(buf[offset-FingerprintSize:offset], fp[:])
	cn := canaryFor(userBase, size, generation)
	copy(buf[offset+size:offset+size+FingerprintSize], cn[:])

	sl := Slot{
		RawBase:     rawBase,
		UserBase:    userBase,
		UserSize:    size,
		Align:       align,
		Generation:  generation,
		State:       StateValid,
		Fingerprint: fp,
		Canary:      cn,
	}

	sh := a.shards[shardIndex(userBase)]
	sh.mu.Lock()
	idx := sh.allocSlotIndex()
	sh.slots[idx] = sl
	sh.userIdx[userBase] = idx
	sh.backing[rawBase] = buf
	sh.mu.Unlock()

	return userBase, nil
}

func alignUp(v, align uint64) uint64 {
	return (v + align - 1) &^ (align - 1)
}

// allocSlotIndex returns a free-list index if one exists, else appends a
// new slot record. Caller must hold sh.mu.
func (sh *shard) allocSlotIndex() int {
	if n := len(sh.freeList); n > 0 {
		idx := sh.freeList[n-1]
		sh.freeList = sh.freeList[:n-1]
		return idx
	}
	sh.slots = append(sh.slots, Slot{})
	return len(sh.slots) - 1
}

// Free transitions a slot Valid -> Quarantined, bumps its generation and
// the global epoch, enqueues a quarantine entry, and drains the quarantine
// back to its byte/entry limits. It returns every entry the drain released
// so the caller can finalize their raw backing storage, per spec §4.2.
func (a *Arena) Free(userBase uint64) (FreeResult, []QuarantineEntry, error) {
	if userBase == 0 {
		return FreeResultFreed, nil, nil // free(null) is a no-op, spec §8.3
	}

	sh := a.shards[shardIndex(userBase)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	idx, ok := sh.userIdx[userBase]
	if !ok {
		return FreeResultForeignPointer, nil, ErrForeignPointer
	}
	sl := &sh.slots[idx]

	switch sl.State {
	case StateQuarantined, StateFreed:
		return FreeResultDoubleFree, nil, ErrDoubleFree
	case StateInvalid:
		return FreeResultInvalidPointer, nil, ErrInvalidPointer
	}

	buf := sh.backing[sl.RawBase]
	offset := sl.Align
	canaryOK := true
	if buf != nil {
		want := canaryFor(sl.UserBase, sl.UserSize, sl.Generation)
		got := buf[offset+sl.UserSize : offset+sl.UserSize+FingerprintSize]
		canaryOK = bytesEqual(want[:], got)
	}

	sl.State = StateQuarantined
	sl.Generation = a.nextGeneration()
	a.bumpEpoch()

	entry := QuarantineEntry{
		UserBase:  sl.UserBase,
		RawBase:   sl.RawBase,
		TotalSize: offset + sl.UserSize + FingerprintSize,
		Align:     sl.Align,
		SlotIndex: idx,
	}
	sh.q.push(entry)

	var drained []QuarantineEntry
	sh.q.drainTo(a.quarantineMaxBytes, a.quarantineMaxEntries, func(e QuarantineEntry) {
		drained = append(drained, e)
		delete(sh.userIdx, e.UserBase)
		delete(sh.backing, e.RawBase)
		sh.slots[e.SlotIndex].State = StateFreed
		sh.freeList = append(sh.freeList, e.SlotIndex)
	})

	if canaryOK {
		return FreeResultFreed, drained, nil
	}
	return FreeResultFreedWithCanaryCorruption, drained, nil
}

func bytesEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Lookup returns an exact-match slot at userBase, or (for no exact match)
// any live-or-quarantined slot in the shard whose range contains userBase,
// per spec §4.2.
func (a *Arena) Lookup(addr uint64) (Slot, bool) {
	sh := a.shards[shardIndex(addr)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	if idx, ok := sh.userIdx[addr]; ok {
		return sh.slots[idx].Snapshot(), true
	}
	for i := range sh.slots {
		s := &sh.slots[i]
		if (s.State == StateValid || s.State == StateQuarantined) && s.contains(addr) {
			return s.Snapshot(), true
		}
	}
	return Slot{}, false
}

// RemainingFrom is Lookup plus the number of in-bounds bytes from addr to
// the end of the allocation, used by string functions to cap scans, per
// spec §4.2.
func (a *Arena) RemainingFrom(addr uint64) (Slot, uint64, bool) {
	s, ok := a.Lookup(addr)
	if !ok {
		return Slot{}, 0, false
	}
	return s, s.remaining(addr), true
}

// VerifyFingerprint re-derives H1 from the slot's current triple and
// compares it against the header bytes actually stored in the backing
// buffer, detecting slot-header corruption independent of the in-memory
// Slot record (which could itself be stale across a race), per spec §4.3's
// Fingerprint stage.
func (a *Arena) VerifyFingerprint(addr uint64) bool {
	sh := a.shards[shardIndex(addr)]
	sh.mu.Lock()
	defer sh.mu.Unlock()

	idx, ok := sh.userIdx[addr]
	if !ok {
		return false
	}
	sl := sh.slots[idx]
	buf := sh.backing[sl.RawBase]
	if buf == nil {
		return false
	}
	want := fingerprintFor(sl.UserBase, sl.UserSize, sl.Generation)
	got := buf[sl.Align-FingerprintSize : sl.Align]
	return bytesEqual(want[:], got)
}

// bitLen returns the bit length of v. It has no caller in this package; it
// sits here alongside the other small numeric helpers this file owns.
func bitLen(v uint64) int { return bits.Len64(v) }
