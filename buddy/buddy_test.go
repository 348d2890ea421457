package buddy_test

import (
	"testing"

	"addrspace/buddy"
	"addrspace/buddytree"
	"github.com/stretchr/testify/require"
)

// S1: buddy exhaustion.
func TestBuddyExhaustion(t *testing.T) {
	for name, tr := range map[string]buddytree.Tree{
		"btree":  buddytree.NewBTree(5),
		"bbtree": buddytree.NewBBTree(5),
	} {
		t.Run(name, func(t *testing.T) {
			b := buddy.New[uint64, uint64](0, 0, tr)
			for i := uint64(0); i < 16; i++ {
				addr, ok := b.Alloc(1)
				require.True(t, ok)
				require.Equal(t, i, addr)
			}
			_, ok := b.Alloc(1)
			require.False(t, ok)

			for i := uint64(0); i < 16; i++ {
				b.Dealloc(i, 1)
			}
			require.Equal(t, uint64(16), b.FreeSize())
			addr, ok := b.Alloc(16)
			require.True(t, ok)
			require.Equal(t, uint64(0), addr)
		})
	}
}

// S2: buddy align with odd start.
func TestBuddyAlignOddStart(t *testing.T) {
	tr := buddytree.NewBBTree(10)
	b := buddy.New[uint64, uint64](0x100, 1, tr)
	require.Equal(t, uint64(0x400), b.TotalSize())

	want := []uint64{0x100, 0x200, 0x300, 0x400}
	for _, w := range want {
		addr, ok := b.Align(0x10, 0x100)
		require.True(t, ok)
		require.Equal(t, w, addr)
	}
	_, ok := b.Align(0x10, 0x100)
	require.False(t, ok)
}

func TestAlignRejectsNonPowerOfTwo(t *testing.T) {
	tr := buddytree.NewBTree(4)
	b := buddy.New[uint64, uint64](0, 0, tr)
	require.Panics(t, func() { b.Align(1, 3) })
}

func TestReserveThenAlloc(t *testing.T) {
	tr := buddytree.NewBTree(4) // 8 leaves, pageLog 0
	b := buddy.New[uint64, uint64](0, 0, tr)
	b.Reserve(0, 4) // reserve [0,4)
	require.Equal(t, uint64(4), b.FreeSize())

	addr, ok := b.Alloc(4)
	require.True(t, ok)
	require.Equal(t, uint64(4), addr)
}
