package startup

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestRunMissingMainDeniesS4(t *testing.T) {
	_, snap, err := Run(Args{MainFn: nil})
	require.ErrorIs(t, err, ErrMissingMain)
	require.Equal(t, FailureMissingMain, snap.FailureReason)
	require.Equal(t, "Deny", snap.Decision)
}

func TestRunMissingMainFallsBackWhenFlagged(t *testing.T) {
	called := false
	exit, snap, err := Run(Args{
		MainFn:            nil,
		FallbackOnFailure: true,
		HostDelegate: func(argc int, argv, envp []string) int {
			called = true
			return 7
		},
	})
	require.NoError(t, err)
	require.True(t, called)
	require.Equal(t, 7, exit)
	require.Equal(t, FailureFallbackHost, snap.FailureReason)
}

func TestRunUnterminatedArgvDeniesS5(t *testing.T) {
	// spec S5: exactly MaxStartupScan non-null entries with no terminator
	// must already be denied; this is the boundary itself, not one past it.
	argv := make([]string, MaxStartupScan)
	_, snap, err := Run(Args{
		MainFn: func(argc int, argv, envp []string) int { return 0 },
		Argv:   argv,
	})
	require.ErrorIs(t, err, ErrUnterminatedVector)
	require.Equal(t, FailureUnterminatedArgv, snap.FailureReason)
}

func TestRunUnterminatedArgvOneOverScanAlsoDenied(t *testing.T) {
	argv := make([]string, MaxStartupScan+1)
	_, snap, err := Run(Args{
		MainFn: func(argc int, argv, envp []string) int { return 0 },
		Argv:   argv,
	})
	require.ErrorIs(t, err, ErrUnterminatedVector)
	require.Equal(t, FailureUnterminatedArgv, snap.FailureReason)
}

func TestRunArgvOneUnderScanWithoutTerminatorAllowed(t *testing.T) {
	argv := make([]string, MaxStartupScan-1)
	exit, snap, err := Run(Args{
		MainFn: func(argc int, argv, envp []string) int { return 0 },
		Argv:   argv,
	})
	require.NoError(t, err)
	require.Equal(t, 0, exit)
	require.Equal(t, "Allow", snap.Decision)
}

func TestRunTerminatedLongArgvAllowed(t *testing.T) {
	argv := make([]string, MaxStartupScan+1)
	exit, snap, err := Run(Args{
		MainFn:         func(argc int, argv, envp []string) int { return 0 },
		Argv:           argv,
		ArgvTerminated: true,
	})
	require.NoError(t, err)
	require.Equal(t, 0, exit)
	require.Equal(t, "Allow", snap.Decision)
}

func TestRunNegativeArgcNormalizedToZero(t *testing.T) {
	gotArgc := -1
	_, _, err := Run(Args{
		MainFn: func(argc int, argv, envp []string) int {
			gotArgc = argc
			return 0
		},
		Argc: -5,
	})
	require.NoError(t, err)
	require.Equal(t, 0, gotArgc)
}

func TestRunAllowsNormalInvocation(t *testing.T) {
	exit, snap, err := Run(Args{
		MainFn: func(argc int, argv, envp []string) int { return 42 },
		Argc:   0,
	})
	require.NoError(t, err)
	require.Equal(t, 42, exit)
	require.Equal(t, "Allow", snap.Decision)
	require.Equal(t, FailureNone, snap.FailureReason)
}

func TestDecodeSecureDetectsFlag(t *testing.T) {
	secureArgs := Args{
		MainFn: func(argc int, argv, envp []string) int { return 0 },
		Auxv:   []AuxEntry{{Key: atSecureKey, Value: 1}},
	}
	_, snap, err := Run(secureArgs)
	require.NoError(t, err)
	require.Equal(t, SecureModeSecure, snap.SecureMode)

	nonSecureArgs := Args{
		MainFn: func(argc int, argv, envp []string) int { return 0 },
		Auxv:   []AuxEntry{{Key: atSecureKey, Value: 0}},
	}
	_, snap, err = Run(nonSecureArgs)
	require.NoError(t, err)
	require.Equal(t, SecureModeNonSecure, snap.SecureMode)
}

func TestDecodeSecureUnknownWithoutAuxEntry(t *testing.T) {
	_, snap, err := Run(Args{MainFn: func(argc int, argv, envp []string) int { return 0 }})
	require.NoError(t, err)
	require.Equal(t, SecureUnknown, snap.SecureMode)
}

func TestErrnoMapsKnownErrors(t *testing.T) {
	require.Equal(t, unix.EINVAL, Errno(ErrMissingMain))
	require.Equal(t, unix.E2BIG, Errno(ErrUnterminatedVector))
}
