package freelist_test

import (
	"testing"

	"addrspace/freelist"
	"github.com/stretchr/testify/require"
)

// S3: free-list three-extent coalesce.
func TestThreeExtentCoalesce(t *testing.T) {
	fl := freelist.New[uint64, uint64](nil, nil)
	fl.Dealloc(0x100, 0x10)
	fl.Dealloc(0x120, 0x10)
	fl.Dealloc(0x110, 0x10)

	var extents []freelist.Extent[uint64, uint64]
	fl.Enumerate(func(e freelist.Extent[uint64, uint64]) bool {
		extents = append(extents, e)
		return true
	})
	require.Len(t, extents, 1)
	require.Equal(t, freelist.Extent[uint64, uint64]{Start: 0x100, Size: 0x30}, extents[0])

	addr, ok := fl.Alloc(0x30)
	require.True(t, ok)
	require.Equal(t, uint64(0x100), addr)
}

func TestZeroSizeDeallocIsNoOp(t *testing.T) {
	fl := freelist.New[uint64, uint64](nil, nil)
	fl.Dealloc(0x100, 0)
	require.Equal(t, uint64(0), fl.FreeSize())
}

func TestAllocExactAndOversize(t *testing.T) {
	fl := freelist.New[uint64, uint64](nil, nil)
	fl.Dealloc(0x100, 0x20)

	addr, ok := fl.Alloc(0x10)
	require.True(t, ok)
	require.Equal(t, uint64(0x100), addr)
	require.Equal(t, uint64(0x10), fl.FreeSize())

	addr, ok = fl.Alloc(0x10)
	require.True(t, ok)
	require.Equal(t, uint64(0x110), addr)
	require.Equal(t, uint64(0), fl.FreeSize())

	_, ok = fl.Alloc(1)
	require.False(t, ok)
}

func TestOffsetAlignSplitsThreeWays(t *testing.T) {
	fl := freelist.New[uint64, uint64](nil, nil)
	fl.Dealloc(0x100, 0x40)

	addr, ok := fl.OffsetAlign(0x10, 1, 0x10)
	require.True(t, ok)
	require.Equal(t, uint64(0x10f), addr)

	var extents []freelist.Extent[uint64, uint64]
	fl.Enumerate(func(e freelist.Extent[uint64, uint64]) bool {
		extents = append(extents, e)
		return true
	})
	require.Len(t, extents, 2)
	require.Equal(t, uint64(0x100), extents[0].Start)
	require.Equal(t, uint64(0xf), extents[0].Size)
	require.Equal(t, uint64(0x11f), extents[1].Start)
}
