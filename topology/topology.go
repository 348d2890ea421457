// Package topology implements §4.5: given disjoint physical regions, a
// page size, and an alignment range, produce a maximal list of buddy-tree
// descriptors by greedy largest-free-at-decreasing-alignment search.
package topology

import (
	"encoding/binary"
	"math/bits"
	"sort"

	"github.com/hillbig/rsdic"
	"github.com/zeebo/xxh3"

	"addrspace/internal/assert"
	"addrspace/utils"
)

// Region is a disjoint slice of usable address space (§3).
type Region struct {
	Start uint64
	Size  uint64
}

// Descriptor describes a buddy tree to be created (§3): a start address
// and a depth. CoveredSize returns 2^(pageLog+Depth-1).
type Descriptor struct {
	Start uint64
	Depth uint8
}

// CoveredSize returns the byte span this descriptor covers at the given
// page-size-log.
func (d Descriptor) CoveredSize(pageLog uint8) uint64 {
	return uint64(1) << (uint(pageLog) + uint(d.Depth) - 1)
}

// Plan runs the greedy planner of §4.5: starting at alignment aMax,
// repeatedly emit the largest free aligned sub-range across all regions
// until none remains at that alignment, then halve the alignment; stop
// when the alignment drops below aMin or capacity descriptors have been
// emitted. If sortByAddress is set, the result is sorted by Start.
func Plan(regions []Region, pageLog uint8, aMax, aMin uint64, capacity int, sortByAddress bool) []Descriptor {
	assert.Precondition(aMax != 0 && aMax&(aMax-1) == 0, "Plan: aMax %d is not a power of two", aMax)
	assert.Precondition(aMin != 0 && aMin&(aMin-1) == 0, "Plan: aMin %d is not a power of two", aMin)
	assert.Precondition(aMax >= uint64(1)<<pageLog, "Plan: aMax must be >= page size")

	free := make([]Region, len(regions))
	copy(free, regions)

	var out []Descriptor
	for a := aMax; a >= aMin && len(out) < capacity; {
		start, depth, ok := bestAt(free, a, pageLog)
		if !ok {
			a /= 2
			continue
		}
		out = append(out, Descriptor{Start: start, Depth: depth})
		free = carve(free, start, Descriptor{Start: start, Depth: depth}.CoveredSize(pageLog))
	}

	if sortByAddress {
		sort.Slice(out, func(i, j int) bool { return out[i].Start < out[j].Start })
	}
	return out
}

// bestAt finds, across all free regions, the aligned-to-a start with the
// largest satisfiable depth.
func bestAt(free []Region, a uint64, pageLog uint8) (start uint64, depth uint8, ok bool) {
	var bestStart uint64
	var bestDepth uint8
	found := false
	for _, r := range free {
		end := r.Start + r.Size
		alignedStart := ceilDiv(r.Start, a) * a
		if alignedStart >= end {
			continue
		}
		avail := end - alignedStart
		units := avail >> pageLog
		if units == 0 {
			continue
		}
		d := uint8(bits.Len64(units))
		if !found || d > bestDepth || (d == bestDepth && alignedStart < bestStart) {
			found = true
			bestStart = alignedStart
			bestDepth = d
		}
	}
	return bestStart, bestDepth, found
}

func ceilDiv(x, a uint64) uint64 {
	return (x + a - 1) / a
}

// carve removes [start,start+size) from the free region list, splitting
// the interval that contains it into up to two remaining pieces.
func carve(free []Region, start, size uint64) []Region {
	out := make([]Region, 0, len(free)+1)
	end := start + size
	for _, r := range free {
		rEnd := r.Start + r.Size
		if end <= r.Start || start >= rEnd {
			out = append(out, r)
			continue
		}
		if r.Start < start {
			out = append(out, Region{Start: r.Start, Size: start - r.Start})
		}
		if end < rEnd {
			out = append(out, Region{Start: end, Size: rEnd - end})
		}
	}
	return out
}

// Coverage builds a succinct rank/select bit vector over region's pages
// (page size 2^pageLog), one bit per page, set where that page falls
// inside any of descriptors. It exists for diagnostics: PagesCovered
// answers "how many pages of this region did the plan actually use"
// via a single Rank query instead of a re-scan of descriptors.
type Coverage struct {
	bits    *rsdic.RSDic
	pageLog uint8
}

// BuildCoverage constructs a Coverage for region against the given plan.
func BuildCoverage(region Region, pageLog uint8, descriptors []Descriptor) *Coverage {
	pages := region.Size >> pageLog
	occupied := make([]bool, pages)
	for _, d := range descriptors {
		covered := d.CoveredSize(pageLog)
		if d.Start+covered <= region.Start || d.Start >= region.Start+region.Size {
			continue
		}
		lo := uint64(0)
		if d.Start > region.Start {
			lo = (d.Start - region.Start) >> pageLog
		}
		hi := (d.Start + covered - region.Start) >> pageLog
		if hi > pages {
			hi = pages
		}
		for i := lo; i < hi; i++ {
			occupied[i] = true
		}
	}
	rs := rsdic.New()
	for _, b := range occupied {
		rs.PushBack(b)
	}
	return &Coverage{bits: rs, pageLog: pageLog}
}

// PagesCovered returns the number of pages in the region claimed by the plan.
func (c *Coverage) PagesCovered() uint64 {
	return c.bits.Rank(c.bits.Num(), true)
}

// TotalPages returns the region's page count.
func (c *Coverage) TotalPages() uint64 { return c.bits.Num() }

// Signature returns a fast fingerprint of a descriptor list, for logging
// and golden-file regression tests. Each descriptor is projected to its
// 9-byte wire encoding via the teacher's generic Map helper before being
// concatenated and hashed.
func Signature(descriptors []Descriptor) uint64 {
	encoded := utils.Map(descriptors, func(d Descriptor) [9]byte {
		var b [9]byte
		binary.LittleEndian.PutUint64(b[:8], d.Start)
		b[8] = d.Depth
		return b
	})
	buf := make([]byte, 0, len(encoded)*9)
	for _, b := range encoded {
		buf = append(buf, b[:]...)
	}
	return xxh3.Hash(buf)
}
