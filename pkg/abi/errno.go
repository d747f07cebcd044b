// Package abi implements the uniform ABI adapter contract of spec §4.6
// over a representative set of wrapped functions: the malloc family,
// strtol, getenv/setenv/unsetenv, and read. Every adapter here is an
// ordinary Go function following the same context-build, decide, refusal,
// repair, validate, body, observe sequence — Go offers no portable way to
// interpose on the real C ABI, so these are the idiomatic expression of
// "ABI entry point" rather than real symbol interposition.
package abi

import "golang.org/x/sys/unix"

// Errno aliases the POSIX error numbers every adapter reports through,
// using the real platform constants from golang.org/x/sys/unix rather than
// a hand-rolled enum, per spec §6.3's "POSIX error numbers".
type Errno = unix.Errno

const (
	EINVAL = unix.EINVAL
	ENOMEM = unix.ENOMEM
	E2BIG  = unix.E2BIG
	ERANGE = unix.ERANGE
	EFAULT = unix.EFAULT
	EAGAIN = unix.EAGAIN
	EBADF  = unix.EBADF
)
