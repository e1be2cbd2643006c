package testutil

import (
	"testing"
	"unsafe"

	"github.com/stretchr/testify/require"
)

func TestRanges(t *testing.T) {
	// Spans are stored as addresses, so back them with memory that never moves.
	base := NewSource(t).Acquire(4096, 4096)
	require.NotNil(t, base)
	var r Ranges

	require.NoError(t, r.Add(base, 64))
	require.NoError(t, r.Add(unsafe.Add(base, 128), 64))
	require.Error(t, r.Add(unsafe.Add(base, 32), 16), "inside first")
	require.Error(t, r.Add(unsafe.Add(base, 120), 16), "straddles second start")
	require.NoError(t, r.Add(unsafe.Add(base, 64), 64), "exactly fills the gap")
	require.Equal(t, 3, r.Len())

	require.NoError(t, r.Remove(base))
	require.Error(t, r.Remove(base))
	require.NoError(t, r.Add(base, 64))
}

func TestFillCheck(t *testing.T) {
	buf := make([]byte, 300)
	p := unsafe.Pointer(&buf[0])
	Fill(p, len(buf), 7)
	require.True(t, Check(p, len(buf), 7))
	buf[299]++
	require.False(t, Check(p, len(buf), 7))
}

func TestSourceFailAfter(t *testing.T) {
	s := NewSource(t)
	s.FailAfter(1)
	p := s.Acquire(4096, 4096)
	require.NotNil(t, p)
	require.Nil(t, s.Acquire(4096, 4096))
	require.Equal(t, 1, s.Live())

	s.Release(p, 4096)
	require.Equal(t, 0, s.Live())
	require.Equal(t, 1, s.Acquires())
	require.Equal(t, 1, s.Releases())

	s.FailAfter(-1)
	require.NotNil(t, s.Acquire(4096, 4096))
}
