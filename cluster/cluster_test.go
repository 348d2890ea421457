package cluster_test

import (
	"testing"

	"addrspace/buddy"
	"addrspace/buddytree"
	"addrspace/cluster"
	"github.com/stretchr/testify/require"
)

func newBuddy(start, pageLog uint64, depth uint8) *buddy.Allocator[uint64, uint64] {
	return buddy.New[uint64, uint64](start, uint8(pageLog), buddytree.NewBBTree(depth))
}

func TestClusterAllocRoutesAndDealloc(t *testing.T) {
	a := newBuddy(0, 0, 4)      // [0, 8)
	b := newBuddy(0x100, 0, 4)  // [0x100, 0x108)
	cl := cluster.New([]*buddy.Allocator[uint64, uint64]{a, b})

	require.Equal(t, uint64(16), cl.TotalSize())

	addr1, ok := a.Alloc(8)
	require.True(t, ok)
	require.Equal(t, uint64(0), addr1)

	addr2, ok := cl.Alloc(8)
	require.True(t, ok)
	require.Equal(t, uint64(0x100), addr2)

	require.True(t, cl.OwnsAddress(0x100))
	require.False(t, cl.OwnsAddress(0x200))

	cl.Dealloc(0x100, 8)
	require.Equal(t, uint64(8), cl.FreeSize())
}

func TestClusterReserveIntersects(t *testing.T) {
	a := newBuddy(0, 0, 4)
	cl := cluster.New([]*buddy.Allocator[uint64, uint64]{a})
	cl.Reserve(0, 4)
	require.Equal(t, uint64(4), cl.FreeSize())
}
