package adapt_test

import (
	"testing"

	"addrspace/adapt"
	"addrspace/bitalloc"
	"github.com/stretchr/testify/require"
)

func TestTransformerScalesAndOffsets(t *testing.T) {
	inner := bitalloc.New[uint64, uint64](16)
	tr := adapt.NewTransformer[uint64, uint64](inner, 4, 0x1000)

	addr, ok := tr.Alloc(5) // rounds up to 2 inner units
	require.True(t, ok)
	require.Equal(t, uint64(0x1000), addr)

	tr.Dealloc(addr, 5)
	require.Equal(t, uint64(16), inner.FreeSize())
}

func TestTransformerRejectsBadScale(t *testing.T) {
	inner := bitalloc.New[uint64, uint64](16)
	require.Panics(t, func() {
		adapt.NewTransformer[uint64, uint64](inner, 3, 0)
	})
}

func TestChunkerRoundsUpAndChecksAlignment(t *testing.T) {
	inner := bitalloc.New[uint64, uint64](32)
	ch := adapt.NewChunker[uint64, uint64](inner, 4)

	addr, ok := ch.Alloc(5)
	require.True(t, ok)
	require.Equal(t, uint64(0), addr)
	require.Equal(t, uint64(24), inner.FreeSize())

	require.Panics(t, func() {
		ch.Dealloc(2, 4)
	})

	ch.Dealloc(0, 5)
	require.Equal(t, uint64(32), inner.FreeSize())
}

func TestChunkerOffsetAlignRejectsMisalignedOffset(t *testing.T) {
	inner := bitalloc.New[uint64, uint64](64)
	ch := adapt.NewChunker[uint64, uint64](inner, 4)

	_, ok := ch.OffsetAlign(8, 2, 4)
	require.False(t, ok)

	addr, ok := ch.OffsetAlign(8, 0, 4)
	require.True(t, ok)
	require.Equal(t, uint64(0), addr)
}

func TestVirtualizerAllocFreeRealloc(t *testing.T) {
	inner := bitalloc.New[uint64, uint64](32)
	v := adapt.NewVirtualizer[uint64, uint64](inner, 1)

	addr, ok := v.Alloc(4)
	require.True(t, ok)
	require.Equal(t, uint64(1), addr)
	require.Equal(t, uint64(27), inner.FreeSize())

	newAddr, ok := v.Realloc(addr, 8)
	require.True(t, ok)
	require.Equal(t, uint64(6), newAddr)

	v.Free(newAddr)
	require.Equal(t, uint64(32), inner.FreeSize())
}

func TestVirtualizerFreeOfUnknownAddressPanics(t *testing.T) {
	inner := bitalloc.New[uint64, uint64](32)
	v := adapt.NewVirtualizer[uint64, uint64](inner, 1)
	require.Panics(t, func() {
		v.Free(99)
	})
}

func TestPlaceMetadataPadsAndTruncates(t *testing.T) {
	payloadStart, payloadSize, ok := adapt.PlaceMetadata[uint64, uint64](0, 1024, 100, 16)
	require.True(t, ok)
	require.Equal(t, uint64(112), payloadStart)
	require.Equal(t, uint64(912), payloadSize)
	require.Equal(t, uint64(0), payloadStart%16)
	require.Equal(t, uint64(0), payloadSize%16)
}

func TestPlaceMetadataFailsWhenTooSmall(t *testing.T) {
	_, _, ok := adapt.PlaceMetadata[uint64, uint64](0, 64, 100, 16)
	require.False(t, ok)
}

func TestBufferedStackCachesAndOverflows(t *testing.T) {
	source := bitalloc.New[uint64, uint64](8)
	overflowed := false
	bs := adapt.NewBufferedStack[uint64, uint64](source, 2, 1, 2, 1, func(_ *adapt.BufferedStack[uint64, uint64], _ uint64, _ uint64) {
		overflowed = true
	})

	require.True(t, bs.ApplyBuffer())
	require.GreaterOrEqual(t, bs.Count(), 1)

	addr, ok := bs.Alloc(1)
	require.True(t, ok)

	bs.Dealloc(addr, 1)
	bs.Dealloc(addr+1, 1)
	bs.Dealloc(addr+2, 1)
	require.True(t, overflowed)
}
