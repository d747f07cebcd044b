package abi

import (
	"golang.org/x/sys/unix"

	"github.com/Dicklesworthstone/frankenlibc-go/pkg/membrane"
)

// Read implements read's ClampSize repair contract, per spec §4.4:
// "ClampSize{requested, clamped}: I/O functions that receive a buffer
// smaller than the requested length transparently reduce the length." buf
// is the caller's destination buffer; len(buf) is the "requested length"
// and is what may be clamped against bufCap, the actual backing capacity
// a Full-profile validation of buf's address would have reported.
func (a *Adapter) Read(caller *membrane.CallerHandle, fd int, buf []byte, bufCap uint64) (int, Errno) {
	ctx := membrane.RuntimeContext{
		Family:         membrane.FamilyIoFd,
		RequestedBytes: uint64(len(buf)),
		IsWrite:        true,
	}
	decision := a.Kernel.Decide(ctx)

	if decision.Action == membrane.ActionDeny {
		a.Kernel.Observe(ctx.Family, decision.Profile, 0, true)
		return -1, EBADF
	}

	dest := buf
	if uint64(len(buf)) > bufCap {
		clamped := bufCap
		a.Kernel.RecordRepair(ctx.Family, membrane.RepairClampSize, "", true)
		dest = buf[:clamped]
	}

	n, duration := timed(func() int {
		got, err := unix.Read(fd, dest)
		if err != nil {
			return -1
		}
		return got
	})

	a.Kernel.Observe(ctx.Family, decision.Profile, duration, n < 0)
	if n < 0 {
		return -1, EBADF
	}
	return n, 0
}
