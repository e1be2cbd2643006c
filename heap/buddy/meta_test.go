package buddy

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestMeta_Geometry(t *testing.T) {
	m := NewMeta(16<<10, 16)
	require.Equal(t, 11, m.NumClasses())
	require.Equal(t, 256, m.Bytes())

	tests := []struct {
		size  int
		class int
	}{
		{1, 0},
		{16, 0},
		{17, 1},
		{32, 1},
		{4096, 8},
		{4097, 9},
		{16 << 10, 10},
		{0, -1},
		{-5, -1},
		{16<<10 + 1, -1},
	}
	for _, tt := range tests {
		require.Equal(t, tt.class, m.SizeClass(tt.size), "size %d", tt.size)
	}
	require.Equal(t, 16, m.ClassSize(0))
	require.Equal(t, 16<<10, m.ClassSize(10))
}

func TestMeta_BitmapIndex(t *testing.T) {
	m := NewMeta(16<<10, 16)
	require.Equal(t, 0, m.BitmapIndex(0, 10))
	require.Equal(t, 1, m.BitmapIndex(0, 9))
	require.Equal(t, 2, m.BitmapIndex(8192, 9))
	require.Equal(t, 1023, m.BitmapIndex(0, 0))
	require.Equal(t, 2046, m.BitmapIndex(16<<10-16, 0))

	require.Equal(t, 16, m.Buddy(0, 0))
	require.Equal(t, 0, m.Buddy(16, 0))
	require.Equal(t, 0, m.Buddy(8192, 9))
	require.Equal(t, 4096+1024, m.Buddy(4096, 6))
}

func TestMeta_MarkTransitions(t *testing.T) {
	m := NewMeta(16<<10, 16)
	require.True(t, m.IsFree(64, 2))

	m.MarkInUse(64, 2)
	require.False(t, m.IsFree(64, 2))
	require.True(t, m.IsFree(0, 2), "neighbours unaffected")
	require.Panics(t, func() { m.MarkInUse(64, 2) })

	m.MarkFree(64, 2)
	require.True(t, m.IsFree(64, 2))
	require.Panics(t, func() { m.MarkFree(64, 2) })
}

func TestMeta_RejectsBadBlocks(t *testing.T) {
	m := NewMeta(16<<10, 16)
	require.Panics(t, func() { m.IsFree(8, 0) }, "misaligned")
	require.Panics(t, func() { m.IsFree(16<<10, 0) }, "past chunk")
	require.Panics(t, func() { m.IsFree(0, 11) }, "class too large")
	require.Panics(t, func() { NewMeta(16<<10, 16<<10) })
	require.Panics(t, func() { NewMeta(3000, 16) })
}
