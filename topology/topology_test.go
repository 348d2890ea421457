package topology_test

import (
	"testing"

	"addrspace/topology"
	"github.com/stretchr/testify/require"
)

// S6: topology planner.
func TestPlanLargestFirst(t *testing.T) {
	regions := []topology.Region{
		{Start: 0, Size: 0x1000},
		{Start: 0x1000, Size: 0x3000},
	}
	got := topology.Plan(regions, 4, 0x1000, 0x1000, 100, false)
	want := []topology.Descriptor{
		{Start: 0x1000, Depth: 10},
		{Start: 0, Depth: 9},
		{Start: 0x3000, Depth: 9},
	}
	require.Equal(t, want, got)
}

func TestPlanRespectsCapacity(t *testing.T) {
	regions := []topology.Region{{Start: 0, Size: 0x10000}}
	got := topology.Plan(regions, 4, 0x1000, 0x1000, 1, false)
	require.Len(t, got, 1)
}

func TestPlanSortedByAddress(t *testing.T) {
	regions := []topology.Region{
		{Start: 0, Size: 0x1000},
		{Start: 0x1000, Size: 0x3000},
	}
	got := topology.Plan(regions, 4, 0x1000, 0x1000, 100, true)
	for i := 1; i < len(got); i++ {
		require.LessOrEqual(t, got[i-1].Start, got[i].Start)
	}
}

func TestCoverageTracksPlan(t *testing.T) {
	region := topology.Region{Start: 0, Size: 0x1000}
	plan := topology.Plan([]topology.Region{region}, 4, 0x1000, 0x1000, 100, false)
	cov := topology.BuildCoverage(region, 4, plan)
	require.Equal(t, cov.TotalPages(), cov.PagesCovered())
}

func TestSignatureDeterministic(t *testing.T) {
	d := []topology.Descriptor{{Start: 0, Depth: 9}, {Start: 0x1000, Depth: 10}}
	require.Equal(t, topology.Signature(d), topology.Signature(d))
}
