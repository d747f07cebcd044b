// Package startup implements the phase-0 entrypoint corresponding to
// __libc_start_main, per spec §6.4. It validates (main_fn, argc, argv,
// envp, auxv) before handing off to the real entrypoint.
package startup

import (
	"errors"

	"golang.org/x/sys/unix"
)

// MaxStartupScan bounds how many entries argv/envp/auxv may be scanned for
// a null terminator before the vector is judged unterminated, per spec §6.4.
const MaxStartupScan = 65536

// FailureReason enumerates the decision codes exposed in StartupSnapshot,
// per spec §6.4/S4/S5.
type FailureReason uint8

const (
	FailureNone FailureReason = iota
	FailureMissingMain
	FailureUnterminatedArgv
	FailureUnterminatedEnvp
	FailureUnterminatedAuxv
	FailureFallbackHost
)

func (r FailureReason) String() string {
	switch r {
	case FailureMissingMain:
		return "MissingMain"
	case FailureUnterminatedArgv:
		return "UnterminatedArgv"
	case FailureUnterminatedEnvp:
		return "UnterminatedEnvp"
	case FailureUnterminatedAuxv:
		return "UnterminatedAuxv"
	case FailureFallbackHost:
		return "FallbackHost"
	default:
		return "None"
	}
}

// SecureMode is the decoded AT_SECURE state exposed in the startup
// snapshot, per spec §6.4.
type SecureMode uint8

const (
	SecureUnknown SecureMode = iota
	SecureModeSecure
	SecureModeNonSecure
)

func (m SecureMode) String() string {
	switch m {
	case SecureModeSecure:
		return "Secure"
	case SecureModeNonSecure:
		return "NonSecure"
	default:
		return "Unknown"
	}
}

var (
	// ErrMissingMain is returned when main_fn is null.
	//
	// Recovery: fail closed with EINVAL; no host delegate runs unless
	// FallbackOnFailure is set.
	ErrMissingMain = errors.New("startup: missing main entrypoint")

	// ErrUnterminatedVector is returned when argv/envp/auxv reaches
	// MaxStartupScan entries without a terminator.
	//
	// Recovery: fail closed with E2BIG unless FallbackOnFailure is set.
	ErrUnterminatedVector = errors.New("startup: unterminated vector")
)

// AuxEntry mirrors one (key, value) pair from the auxiliary vector, the Go
// stand-in for auxv's array-of-structs layout.
type AuxEntry struct {
	Key   uint64
	Value uint64
}

// atSecureKey is the AT_SECURE auxv tag on Linux.
const atSecureKey = 23

// Args bundles the phase-0 entrypoint's inputs. MainFn is a function
// value rather than a raw pointer (Go's idiomatic substitute for
// validating "is this pointer non-null"); a nil MainFn is the Go
// equivalent of a null main_fn.
type Args struct {
	MainFn func(argc int, argv, envp []string) int
	Argc   int
	Argv   []string // nil-free; termination is modeled by an explicit terminated flag below
	ArgvTerminated bool
	Envp           []string
	EnvpTerminated bool
	Auxv           []AuxEntry
	AuxvTerminated bool

	// FallbackOnFailure mirrors spec §6.4's "feature flag gates whether
	// validation failures deny or fall back to the host delegate."
	FallbackOnFailure bool
	HostDelegate      func(argc int, argv, envp []string) int
}

// Snapshot is the startup-phase observability record.
type Snapshot struct {
	Decision      string
	FailureReason FailureReason
	SecureMode    SecureMode
}

// Run validates args and, if admissible, invokes MainFn (or HostDelegate
// when FallbackOnFailure permits it), per spec §6.4.
func Run(args Args) (exitCode int, snap Snapshot, err error) {
	secure := decodeSecure(args.Auxv)
	snap.SecureMode = secure
	// Open Question (spec §9): AT_SECURE is recorded but does not tighten
	// admissibility here; implementers may choose otherwise, not mandated.

	if args.Argc < 0 {
		args.Argc = 0 // negative argc is normalized to 0, per spec §6.4
	}

	if len(args.Argv) >= MaxStartupScan && !args.ArgvTerminated {
		return fail(args, FailureUnterminatedArgv, ErrUnterminatedVector, &snap)
	}
	if len(args.Envp) >= MaxStartupScan && !args.EnvpTerminated {
		return fail(args, FailureUnterminatedEnvp, ErrUnterminatedVector, &snap)
	}
	if len(args.Auxv) >= MaxStartupScan && !args.AuxvTerminated {
		return fail(args, FailureUnterminatedAuxv, ErrUnterminatedVector, &snap)
	}

	if args.MainFn == nil {
		return fail(args, FailureMissingMain, ErrMissingMain, &snap)
	}

	snap.Decision = "Allow"
	snap.FailureReason = FailureNone
	return args.MainFn(args.Argc, args.Argv, args.Envp), snap, nil
}

// fail applies the feature-flagged fallback behaviour: when
// FallbackOnFailure is set, the host delegate runs unconditionally and is
// marked FallbackHost; otherwise the call denies with the given reason,
// per spec §6.4.
func fail(args Args, reason FailureReason, baseErr error, snap *Snapshot) (int, Snapshot, error) {
	if args.FallbackOnFailure && args.HostDelegate != nil {
		snap.Decision = "FallbackHost"
		snap.FailureReason = FailureFallbackHost
		return args.HostDelegate(args.Argc, args.Argv, args.Envp), *snap, nil
	}
	snap.Decision = "Deny"
	snap.FailureReason = reason
	return -1, *snap, baseErr
}

// Errno maps a Run error to the POSIX errno spec §6.4 requires
// (ErrMissingMain -> EINVAL, ErrUnterminatedVector -> E2BIG), using the
// real platform constants from golang.org/x/sys/unix.
func Errno(err error) unix.Errno {
	switch {
	case errors.Is(err, ErrMissingMain):
		return unix.EINVAL
	case errors.Is(err, ErrUnterminatedVector):
		return unix.E2BIG
	default:
		return 0
	}
}

func decodeSecure(auxv []AuxEntry) SecureMode {
	for _, e := range auxv {
		if e.Key == atSecureKey {
			if e.Value != 0 {
				return SecureModeSecure
			}
			return SecureModeNonSecure
		}
	}
	return SecureUnknown
}
