package clob

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestFreeBitmapStartsAllFree(t *testing.T) {
	fb := NewFreeBitmap()
	require.False(t, fb.AllTaken())
	for i := uint8(0); i < BookDepth; i++ {
		require.True(t, fb.IsFree(i))
	}
	first, ok := fb.FirstFree()
	require.True(t, ok)
	require.Equal(t, uint8(0), first)
}

func TestFreeBitmapClearTail(t *testing.T) {
	fb := NewFreeBitmap()
	// BookDepth is exactly two 64-bit words; clearTail should be a no-op in
	// that case, so the 128th bit position (one past the end) never shows up
	// as a free slot via FirstFree when every real slot is reserved.
	for i := uint8(0); i < BookDepth; i++ {
		fb.MarkReserved(i)
	}
	require.True(t, fb.AllTaken())
	_, ok := fb.FirstFree()
	require.False(t, ok)
}

func TestFreeBitmapMarkReservedAndFree(t *testing.T) {
	fb := NewFreeBitmap()
	fb.MarkReserved(5)
	require.False(t, fb.IsFree(5))

	first, ok := fb.FirstFree()
	require.True(t, ok)
	require.Equal(t, uint8(0), first)

	for i := uint8(0); i < BookDepth; i++ {
		if i != 5 {
			fb.MarkReserved(i)
		}
	}
	first, ok = fb.FirstFree()
	require.True(t, ok)
	require.Equal(t, uint8(5), first)

	fb.MarkFree(5)
	require.True(t, fb.IsFree(5))
}
