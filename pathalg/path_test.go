package pathalg_test

import (
	"testing"

	"addrspace/pathalg"
	"github.com/stretchr/testify/require"
)

func TestRootIsRoot(t *testing.T) {
	require.True(t, pathalg.Root().IsRoot())
}

func TestParentSiblingChildren(t *testing.T) {
	p := pathalg.Path{Depth: 3, Index: 5}
	require.Equal(t, pathalg.Path{Depth: 2, Index: 2}, p.Parent())
	require.Equal(t, pathalg.Path{Depth: 3, Index: 4}, p.Sibling())
	require.Equal(t, pathalg.Path{Depth: 4, Index: 10}, p.Left())
	require.Equal(t, pathalg.Path{Depth: 4, Index: 11}, p.Right())
}

func TestLinearIndex(t *testing.T) {
	require.Equal(t, uint64(0), pathalg.Root().LinearIndex())
	require.Equal(t, uint64(1), pathalg.Path{Depth: 1, Index: 0}.LinearIndex())
	require.Equal(t, uint64(2), pathalg.Path{Depth: 1, Index: 1}.LinearIndex())
	require.Equal(t, uint64(3), pathalg.Path{Depth: 2, Index: 0}.LinearIndex())
	require.Equal(t, uint64(6), pathalg.Path{Depth: 2, Index: 3}.LinearIndex())
}

func TestDepthCount(t *testing.T) {
	require.Equal(t, uint64(1), pathalg.DepthCount(0))
	require.Equal(t, uint64(8), pathalg.DepthCount(3))
}

func TestRootParentPanics(t *testing.T) {
	require.Panics(t, func() { pathalg.Root().Parent() })
	require.Panics(t, func() { pathalg.Root().Sibling() })
}

func TestValid(t *testing.T) {
	require.True(t, pathalg.Path{Depth: 2, Index: 3}.Valid(3))
	require.False(t, pathalg.Path{Depth: 2, Index: 4}.Valid(3))
	require.False(t, pathalg.Path{Depth: 3, Index: 0}.Valid(3))
}
