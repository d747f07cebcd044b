package syscallveneer

import (
	"testing"

	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func TestResultIsErrorBand(t *testing.T) {
	require.True(t, Result(-1).IsError())
	require.True(t, Result(-4095).IsError())
	require.False(t, Result(-4096).IsError())
	require.False(t, Result(0).IsError())
	require.False(t, Result(4096).IsError())
}

func TestResultErrnoDecoding(t *testing.T) {
	r := Result(-int64(unix.EBADF))
	require.True(t, r.IsError())
	require.Equal(t, unix.EBADF, r.Errno())
}

func TestRawRejectsDisallowedSyscallNumber(t *testing.T) {
	r := Raw(Number(unix.SYS_EXECVE), 0, 0, 0)
	require.True(t, r.IsError())
	require.Equal(t, unix.ENOSYS, r.Errno())
}

func TestRawCloseOnInvalidFdReturnsEBADF(t *testing.T) {
	r := Raw(SysClose, ^uintptr(0), 0, 0)
	require.True(t, r.IsError())
	require.Equal(t, unix.EBADF, r.Errno())
}
