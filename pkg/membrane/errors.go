package membrane

import "errors"

// Arena errors. These are never panics: every ABI entry converts them into
// a decision outcome or a repaired action, per spec §7.
var (
	// ErrDoubleFree is returned by Free when the slot is already
	// Quarantined or Freed.
	//
	// Recovery: in Off and Strict modes the free is absorbed as a no-op; in
	// Hardened mode the same absorption happens and IgnoreDoubleFree is
	// recorded in the healing ring. Callers never need to retry.
	ErrDoubleFree = errors.New("membrane: double free")

	// ErrForeignPointer is returned by Free when the shard has no entry at
	// the given address. Lookup reports the same case as ok == false.
	//
	// Recovery: treat the address as not membrane-owned. In Hardened mode a
	// realloc on a foreign pointer is repaired as ReallocAsMalloc.
	ErrForeignPointer = errors.New("membrane: foreign pointer")

	// ErrInvalidPointer is returned when a slot exists but is in the Invalid
	// state (corrupted beyond the checks this pipeline performs).
	//
	// Recovery: treat as a hard deny; no safe repair exists.
	ErrInvalidPointer = errors.New("membrane: invalid pointer")

	// ErrOutOfMemory is returned by AllocateAligned when the underlying
	// allocator cannot satisfy the request.
	//
	// Recovery: caller sees the family's null/-1 return; no retry is
	// attempted internally.
	ErrOutOfMemory = errors.New("membrane: out of memory")

	// ErrBadAlignment is returned by AllocateAligned when align is not a
	// power of two. pkg/abi's AlignedAlloc checks its own arguments (align a
	// power of two, size a multiple of align) and returns EINVAL itself.
	//
	// Recovery: caller returns EINVAL; no allocation occurs.
	ErrBadAlignment = errors.New("membrane: bad alignment")
)

// Pipeline errors, per spec §4.3/§7.
var (
	// ErrTemporalViolation names the condition Pipeline.Validate reports as
	// OutcomeTemporalViolation: an address corresponding to a quarantined or
	// freed slot, for which reads and writes are forbidden. No function in
	// this package returns this error value; the pipeline reports the
	// condition only through ValidationOutcome.Kind.
	//
	// Recovery: none; this is a hard stop for the calling ABI adapter.
	ErrTemporalViolation = errors.New("membrane: temporal violation")
)

// errOverlap names a seqlock-overlap condition (a shard read racing a
// concurrent mutation). No code in the package returns or checks it: shard
// reads and writes are serialized by the shard mutex, so there is no retry
// loop.
var errOverlap = errors.New("membrane: seqlock overlap, retry")

// Startup ABI contract errors, per spec §6.4. No function in this package
// returns them; pkg/startup.Run reports the same conditions with its own
// ErrMissingMain and ErrUnterminatedVector.
var (
	// ErrMissingMain corresponds to a null main_fn.
	//
	// Recovery: the phase-0 entrypoint fails closed; no host delegate runs.
	ErrMissingMain = errors.New("membrane: missing main entrypoint")

	// ErrUnterminatedArgv/Envp/Auxv correspond to the respective vector
	// reaching pkg/startup's MaxStartupScan entries without a null
	// terminator.
	//
	// Recovery: fail closed with E2BIG unless the fallback-to-host feature
	// flag is set, in which case the delegate runs unconditionally.
	ErrUnterminatedArgv = errors.New("membrane: unterminated argv")
	ErrUnterminatedEnvp = errors.New("membrane: unterminated envp")
	ErrUnterminatedAuxv = errors.New("membrane: unterminated auxv")
)
