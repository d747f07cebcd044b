package abi

import (
	"os"
	"strconv"

	"github.com/Dicklesworthstone/frankenlibc-go/pkg/membrane"
)

// MaxNameScan bounds how far getenv/setenv/unsetenv scan a raw byte buffer
// looking for a NUL terminator before giving up, per spec §8.3's "reject
// names that are not terminated within the bounded scan window."
const MaxNameScan = 4096

// scanCString finds the NUL terminator in buf within MaxNameScan bytes,
// the idiomatic stand-in for walking an unterminated char* in C: a Go
// caller here hands over a []byte because Go strings are already
// length-delimited and can't represent "a buffer that might not be
// terminated."
func scanCString(buf []byte) (string, bool) {
	limit := len(buf)
	if limit > MaxNameScan {
		limit = MaxNameScan
	}
	for i := 0; i < limit; i++ {
		if buf[i] == 0 {
			return string(buf[:i]), true
		}
	}
	return "", false
}

// Getenv implements getenv's bounded-scan contract, per spec §8.3.
func (a *Adapter) Getenv(caller *membrane.CallerHandle, nameBuf []byte) (string, bool, Errno) {
	ctx := membrane.RuntimeContext{Family: membrane.FamilyStdlib}
	decision := a.Kernel.Decide(ctx)

	name, ok := scanCString(nameBuf)
	if !ok {
		a.Kernel.Observe(ctx.Family, decision.Profile, 0, true)
		return "", false, E2BIG
	}

	value, present := os.LookupEnv(name)
	a.Kernel.Observe(ctx.Family, decision.Profile, 0, false)
	return value, present, 0
}

// Setenv implements setenv's bounded-scan contract, per spec §8.3.
func (a *Adapter) Setenv(caller *membrane.CallerHandle, nameBuf []byte, value string, overwrite bool) Errno {
	ctx := membrane.RuntimeContext{Family: membrane.FamilyStdlib, IsWrite: true}
	decision := a.Kernel.Decide(ctx)

	name, ok := scanCString(nameBuf)
	if !ok {
		a.Kernel.Observe(ctx.Family, decision.Profile, 0, true)
		return E2BIG
	}
	if !overwrite {
		if _, present := os.LookupEnv(name); present {
			a.Kernel.Observe(ctx.Family, decision.Profile, 0, false)
			return 0
		}
	}
	err := os.Setenv(name, value)
	a.Kernel.Observe(ctx.Family, decision.Profile, 0, err != nil)
	if err != nil {
		return EINVAL
	}
	return 0
}

// Unsetenv implements unsetenv's bounded-scan contract, per spec §8.3.
func (a *Adapter) Unsetenv(caller *membrane.CallerHandle, nameBuf []byte) Errno {
	ctx := membrane.RuntimeContext{Family: membrane.FamilyStdlib, IsWrite: true}
	decision := a.Kernel.Decide(ctx)

	name, ok := scanCString(nameBuf)
	if !ok {
		a.Kernel.Observe(ctx.Family, decision.Profile, 0, true)
		return E2BIG
	}
	err := os.Unsetenv(name)
	a.Kernel.Observe(ctx.Family, decision.Profile, 0, err != nil)
	if err != nil {
		return EINVAL
	}
	return 0
}

// Strtol implements strtol's endptr-arithmetic contract, per spec §8.2:
// "the returned endptr satisfies endptr - nptr == consumed, where consumed
// is the byte count parsed." Go has no raw pointer to return, so Consumed
// reports the byte count directly, the exact quantity the C contract
// derives from endptr - nptr.
func (a *Adapter) Strtol(caller *membrane.CallerHandle, s string, base int) (value int64, consumed int, errno Errno) {
	ctx := membrane.RuntimeContext{Family: membrane.FamilyStdlib}
	decision := a.Kernel.Decide(ctx)

	i := 0
	for i < len(s) && (s[i] == ' ' || s[i] == '\t') {
		i++
	}
	start := i
	if i < len(s) && (s[i] == '+' || s[i] == '-') {
		i++
	}
	digitsStart := i
	for i < len(s) && isBaseDigit(s[i], base) {
		i++
	}
	if i == digitsStart {
		a.Kernel.Observe(ctx.Family, decision.Profile, 0, false)
		return 0, 0, 0 // no digits consumed; consumed == 0 per the contract
	}

	v, err := strconv.ParseInt(s[start:i], base, 64)
	adverse := err != nil
	a.Kernel.Observe(ctx.Family, decision.Profile, 0, adverse)
	if err != nil {
		return 0, i, ERANGE
	}
	return v, i, 0
}

func isBaseDigit(c byte, base int) bool {
	switch {
	case c >= '0' && c <= '9':
		return int(c-'0') < base || base == 0
	case c >= 'a' && c <= 'z':
		return base > 10 && int(c-'a'+10) < base
	case c >= 'A' && c <= 'Z':
		return base > 10 && int(c-'A'+10) < base
	default:
		return false
	}
}
