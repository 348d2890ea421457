package bitalloc_test

import (
	"testing"

	"addrspace/bitalloc"
	"github.com/stretchr/testify/require"
)

// S5: bitmap offset alignment.
func TestOffsetAlignAfterAlloc(t *testing.T) {
	b := bitalloc.New[uint64, uint64](128)

	addr, ok := b.Alloc(0xf)
	require.True(t, ok)
	require.Equal(t, uint64(0), addr)

	addr, ok = b.OffsetAlign(0x10, 1, 1)
	require.True(t, ok)
	require.Equal(t, uint64(0xf), addr)
}

func TestAllocExhaustion(t *testing.T) {
	b := bitalloc.New[uint64, uint64](8)
	addr, ok := b.Alloc(8)
	require.True(t, ok)
	require.Equal(t, uint64(0), addr)

	_, ok = b.Alloc(1)
	require.False(t, ok)
}

func TestDeallocFreesUnits(t *testing.T) {
	b := bitalloc.New[uint64, uint64](8)
	addr, _ := b.Alloc(4)
	require.Equal(t, uint64(4), b.FreeSize())

	b.Dealloc(addr, 4)
	require.Equal(t, uint64(8), b.FreeSize())

	addr2, ok := b.Alloc(8)
	require.True(t, ok)
	require.Equal(t, uint64(0), addr2)
}

func TestAlignRejectsNonPowerOfTwo(t *testing.T) {
	b := bitalloc.New[uint64, uint64](16)
	require.Panics(t, func() {
		b.Align(1, 3)
	})
}

func TestAllSkipsFullWords(t *testing.T) {
	b := bitalloc.New[uint64, uint64](192)
	_, ok := b.Alloc(128)
	require.True(t, ok)

	addr, ok := b.Alloc(64)
	require.True(t, ok)
	require.Equal(t, uint64(128), addr)
}
