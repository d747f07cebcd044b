// Package syscallveneer is the raw system-call surface of spec §6.2: "the
// veneer is the only bridge to the kernel; no libc-level I/O calls are
// used for membrane-managed I/O except the narrowly-allowlisted set."
//
// Real inline-assembly syscall encoding is explicitly out of scope
// (spec §1's Non-goals); this package is the Go-idiomatic substitute —
// a narrow allowlisted wrapper over golang.org/x/sys/unix's raw syscall
// entry points, so membrane-managed I/O never has to reach for a
// higher-level libc convenience function that could itself hide unsafe
// behaviour.
package syscallveneer

import (
	"golang.org/x/sys/unix"
)

// Number identifies one allowlisted raw syscall this veneer exposes.
type Number int

const (
	SysRead Number = unix.SYS_READ
	SysWrite Number = unix.SYS_WRITE
	SysClose Number = unix.SYS_CLOSE
	SysMmap Number = unix.SYS_MMAP
	SysMunmap Number = unix.SYS_MUNMAP
)

// errnoBandLow is the low edge of the errno band of spec §6.2: "values in [-4095, -1] encode -errno and
// values outside that band are successful returns."
const errnoBandLow = -4095

// Result is a raw syscall's single-register return value, decoded per
// spec §6.2.
type Result int64

// IsError reports whether r falls in the errno band.
func (r Result) IsError() bool { return int64(r) >= errnoBandLow && int64(r) < 0 }

// Errno decodes r's -errno into a unix.Errno, valid only when IsError().
func (r Result) Errno() unix.Errno { return unix.Errno(-r) }

// Raw invokes one allowlisted syscall by number with up to three
// arguments, mirroring the fixed-register-order ABI spec §6.2 describes.
// Only the numbers named above may be passed; any other value returns
// unix.ENOSYS without touching the kernel.
func Raw(num Number, a1, a2, a3 uintptr) Result {
	switch num {
	case SysRead, SysWrite, SysClose, SysMmap, SysMunmap:
		r1, _, errno := unix.Syscall(uintptr(num), a1, a2, a3)
		if errno != 0 {
			return Result(-int64(errno))
		}
		return Result(r1)
	default:
		return Result(-int64(unix.ENOSYS))
	}
}
