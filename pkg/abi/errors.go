package abi

import "fmt"

// AdapterError wraps an Errno with the family and function that produced
// it, so callers using errors.As can recover the POSIX errno without the
// adapter needing to expose membrane's internal decision codes, per
// spec §6.3: "The membrane's internal decision codes are not exposed to C
// callers."
type AdapterError struct {
	Func  string
	Errno Errno
}

func (e *AdapterError) Error() string {
	return fmt.Sprintf("abi: %s: %s", e.Func, e.Errno.Error())
}

// Is reports whether target is the same Errno value, enabling
// errors.Is(err, abi.EINVAL)-style checks against the raw constants.
func (e *AdapterError) Is(target error) bool {
	if errno, ok := target.(Errno); ok {
		return e.Errno == errno
	}
	return false
}
