package abi

import (
	"math"

	"github.com/Dicklesworthstone/frankenlibc-go/pkg/membrane"
)

// Malloc implements the malloc family's ABI adapter, per spec §4.6 and
// §8.3's "malloc(0) succeeds and returns a valid 1-byte-capacity slot."
func (a *Adapter) Malloc(caller *membrane.CallerHandle, size uint64) (uint64, Errno) {
	return a.allocate(caller, size, membrane.MinAlign)
}

// Calloc implements calloc's overflow-checked size computation, per
// spec §8.3: "calloc(n, m) with overflow in n*m returns null without
// calling the underlying allocator."
func (a *Adapter) Calloc(caller *membrane.CallerHandle, n, m uint64) (uint64, Errno) {
	if n != 0 && m > math.MaxUint64/n {
		return 0, EINVAL
	}
	return a.allocate(caller, n*m, membrane.MinAlign)
}

// AlignedAlloc implements aligned_alloc's strict validation, per spec §8.3:
// "aligned_alloc with non-power-of-two align or with size not a multiple
// of align returns null and sets errno = EINVAL."
func (a *Adapter) AlignedAlloc(caller *membrane.CallerHandle, align, size uint64) (uint64, Errno) {
	if align == 0 || align&(align-1) != 0 || size%align != 0 {
		return 0, EINVAL
	}
	return a.allocate(caller, size, align)
}

// PosixMemalign implements posix_memalign's validation, per spec §8.3:
// "posix_memalign with alignment not a multiple of sizeof(usize) returns
// EINVAL." sizeof(usize) is taken as 8 bytes (64-bit).
func (a *Adapter) PosixMemalign(caller *membrane.CallerHandle, align, size uint64) (uint64, Errno) {
	const sizeofUsize = 8
	if align%sizeofUsize != 0 || align == 0 || align&(align-1) != 0 {
		return 0, EINVAL
	}
	return a.allocate(caller, size, align)
}

// allocate is the shared body for every allocator-family entry point: build
// context, decide, honor Deny/Repair, run the body, observe. Allocation
// requests never carry a pointer argument, so the Full-profile validation
// step never applies here (spec §4.6 step 5 only fires "if the function
// has a pointer argument").
//
// size is coerced to at least 1 before reaching the arena, per spec §8.3:
// "malloc(0) succeeds and returns a valid 1-byte-capacity slot." Without
// this, a zero-size slot's own base address would fall outside its
// Slot.contains bounds and a caller validating the pointer it was just
// handed would see Foreign instead of Validated.
func (a *Adapter) allocate(caller *membrane.CallerHandle, size, align uint64) (uint64, Errno) {
	req := size
	if req < 1 {
		req = 1
	}

	ctx := membrane.RuntimeContext{
		Family:         membrane.FamilyAllocator,
		RequestedBytes: req,
		IsWrite:        true,
		Aligned:        align > membrane.MinAlign,
	}
	decision := a.Kernel.Decide(ctx)

	switch decision.Action {
	case membrane.ActionDeny:
		a.Kernel.Observe(ctx.Family, decision.Profile, 0, true)
		return 0, ENOMEM

	case membrane.ActionRepair:
		allowed := a.Kernel.RecordRepair(ctx.Family, decision.Repair, "", true)
		a.Kernel.Observe(ctx.Family, decision.Profile, 0, true)
		if !allowed {
			return 0, ENOMEM
		}
		// ReturnSafeDefault for an allocator admissibility failure means
		// "pretend the allocation didn't happen", per spec §4.4's repair
		// contract for ReturnSafeDefault.
		return 0, ENOMEM
	}

	userBase, duration := timed(func() uint64 {
		p, err := a.Kernel.Allocate(req, align)
		if err != nil {
			return 0
		}
		return p
	})

	adverse := userBase == 0
	a.Kernel.Observe(ctx.Family, decision.Profile, duration, adverse)

	if userBase == 0 {
		return 0, ENOMEM
	}
	return userBase, 0
}

// Free implements free's absorption semantics for double-free and foreign
// pointers, per spec §7/§8.3: "A free(null) is a no-op that records no
// adverse outcome."
func (a *Adapter) Free(caller *membrane.CallerHandle, userBase uint64) Errno {
	if userBase == 0 {
		return 0
	}

	ctx := membrane.RuntimeContext{Family: membrane.FamilyAllocator, AddrHint: userBase, IsWrite: true}
	decision := a.Kernel.Decide(ctx)

	result, duration := timed(func() membrane.FreeResult {
		r, _ := a.Kernel.Free(userBase)
		return r
	})

	adverse := result != membrane.FreeResultFreed
	a.Kernel.Observe(ctx.Family, decision.Profile, duration, adverse)
	return 0
}

// Realloc implements realloc's three documented special cases, per
// spec §8.2: "realloc(p, 0) ... is semantically free(p) and returns null",
// "realloc(null, n) is malloc(n)", and (per SUPPLEMENTED FEATURES /
// scenario S6) a foreign pointer in Hardened mode is repaired as
// ReallocAsMalloc rather than denied.
func (a *Adapter) Realloc(caller *membrane.CallerHandle, userBase, newSize uint64) (uint64, Errno) {
	if userBase == 0 {
		return a.Malloc(caller, newSize)
	}
	if newSize == 0 {
		a.Free(caller, userBase)
		return 0, 0
	}

	slot, ok := a.Kernel.Arena().Lookup(userBase)
	if !ok {
		ctx := membrane.RuntimeContext{Family: membrane.FamilyAllocator, AddrHint: userBase, ReallocForeign: true}
		decision := a.Kernel.Decide(ctx)
		if a.Kernel.Mode() == membrane.ModeHardened {
			a.Kernel.RecordRepair(ctx.Family, membrane.RepairReallocAsMalloc, "", true)
			a.Kernel.Observe(ctx.Family, decision.Profile, 0, true)
			return a.allocate(caller, newSize, membrane.MinAlign)
		}
		a.Kernel.Observe(ctx.Family, decision.Profile, 0, true)
		return 0, EINVAL
	}

	newBase, errno := a.allocate(caller, newSize, slot.Align)
	if errno != 0 {
		return 0, errno
	}
	a.Free(caller, userBase)
	return newBase, 0
}
