package abi

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestReadReturnsWrittenBytes(t *testing.T) {
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	_, err = w.Write([]byte("hello world"))
	require.NoError(t, err)
	w.Close()

	a := newTestAdapter()
	buf := make([]byte, 32)
	n, errno := a.Read(nil, int(r.Fd()), buf, uint64(len(buf)))
	require.Zero(t, errno)
	require.Equal(t, "hello world", string(buf[:n]))
}

func TestReadClampsToSmallerBufCap(t *testing.T) {
	// spec §4.4 ClampSize: a requested length larger than the actual
	// backing capacity is transparently reduced rather than overrunning it.
	r, w, err := os.Pipe()
	require.NoError(t, err)
	defer r.Close()
	defer w.Close()

	_, err = w.Write([]byte("0123456789"))
	require.NoError(t, err)
	w.Close()

	a := newTestAdapter()
	buf := make([]byte, 10)
	n, errno := a.Read(nil, int(r.Fd()), buf, 4)
	require.Zero(t, errno)
	require.LessOrEqual(t, n, 4)
}

func TestReadBadFdReturnsEBADF(t *testing.T) {
	a := newTestAdapter()
	buf := make([]byte, 16)
	n, errno := a.Read(nil, -1, buf, uint64(len(buf)))
	require.Equal(t, -1, n)
	require.Equal(t, EBADF, errno)
}
