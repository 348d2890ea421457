// Package freetree implements §4.8: the same external contract as
// freelist but with O(log n) operations, backed by two AVL trees (§4.9)
// holding the same extent set under two orderings.
package freetree

import (
	"golang.org/x/exp/constraints"

	"addrspace/avl"
)

// Extent is a free address range: start and size, size > 0.
type Extent[A constraints.Unsigned, S constraints.Unsigned] struct {
	Start A
	Size  S
}

func cmpBySize[A constraints.Unsigned, S constraints.Unsigned](a, b Extent[A, S]) int {
	if a.Size != b.Size {
		if a.Size < b.Size {
			return -1
		}
		return 1
	}
	if a.Start != b.Start {
		if a.Start < b.Start {
			return -1
		}
		return 1
	}
	return 0
}

func cmpByAddr[A constraints.Unsigned, S constraints.Unsigned](a, b Extent[A, S]) int {
	if a.Start != b.Start {
		if a.Start < b.Start {
			return -1
		}
		return 1
	}
	if a.Size != b.Size {
		if a.Size < b.Size {
			return -1
		}
		return 1
	}
	return 0
}

// FreeTree is the engine. Invariant (§3): byAddr and bySize hold
// identical multisets of extents at all times (outside the interior of a
// single mutating call).
type FreeTree[A constraints.Unsigned, S constraints.Unsigned] struct {
	bySize *avl.Tree[Extent[A, S]]
	byAddr *avl.Tree[Extent[A, S]]
}

// New constructs an empty free-tree engine.
func New[A constraints.Unsigned, S constraints.Unsigned]() *FreeTree[A, S] {
	return &FreeTree[A, S]{
		bySize: avl.New[Extent[A, S]](cmpBySize[A, S]),
		byAddr: avl.New[Extent[A, S]](cmpByAddr[A, S]),
	}
}

// insert adds e to both trees. The C++ original this was distilled from
// rolls back the by_address insert if the by_size insert then fails,
// leaking the extent as a last resort rather than corrupting the trees
// (§4.8). In this module both trees are backed by the Go heap, which
// does not fail the way a bespoke bump allocator can, so that rollback
// path is structurally unreachable; the two-insert shape is kept anyway
// so the invariant that both trees change together stays visible here.
func (ft *FreeTree[A, S]) insert(e Extent[A, S]) {
	ft.byAddr.Add(e)
	ft.bySize.Add(e)
}

func (ft *FreeTree[A, S]) remove(e Extent[A, S]) {
	ft.byAddr.Remove(e)
	ft.bySize.Remove(e)
}

// searchBestFit finds the smallest extent able to satisfy size, walking
// bySize. The traversal cursor and the best-so-far accumulator are kept
// as two distinct variables (§9 Open Question (c): the source's
// SearchBestFrom conflated them under one name called `node`).
func (ft *FreeTree[A, S]) searchBestFit(size S) (Extent[A, S], bool) {
	return ft.bySize.FindGE(Extent[A, S]{Size: size})
}

// Alloc satisfies §6's Allocator.alloc: best-fit (smallest extent that
// fits, tie-broken by lowest address via the (size,address) ordering).
func (ft *FreeTree[A, S]) Alloc(size S) (A, bool) {
	if size == 0 {
		return 0, false
	}
	best, ok := ft.searchBestFit(size)
	if !ok {
		return 0, false
	}
	ft.remove(best)
	if best.Size > size {
		ft.insert(Extent[A, S]{Start: best.Start + A(size), Size: best.Size - size})
	}
	return best.Start, true
}

// OffsetAlign satisfies §6's OffsetAligner.offset_align: enumerates
// byAddr in order, computing the alignment offset per extent, and
// accepts the first that fits (§4.8).
func (ft *FreeTree[A, S]) OffsetAlign(alignment, offset A, size S) (A, bool) {
	if size == 0 {
		return 0, false
	}
	var found Extent[A, S]
	hasFound := false
	ft.byAddr.Enumerate(func(e Extent[A, S]) bool {
		misaligned := (e.Start + offset) % alignment
		var delta A
		if misaligned != 0 {
			delta = alignment - misaligned
		}
		if uint64(delta)+uint64(size) > uint64(e.Size) {
			return true // keep scanning
		}
		found, hasFound = e, true
		return false
	})
	if !hasFound {
		return 0, false
	}
	ft.remove(found)
	misaligned := (found.Start + offset) % alignment
	var delta A
	if misaligned != 0 {
		delta = alignment - misaligned
	}
	alignedStart := found.Start + delta
	leftSize := S(delta)
	rightStart := alignedStart + A(size)
	rightSize := found.Size - leftSize - size

	if leftSize > 0 {
		ft.insert(Extent[A, S]{Start: found.Start, Size: leftSize})
	}
	if rightSize > 0 {
		ft.insert(Extent[A, S]{Start: rightStart, Size: rightSize})
	}
	return alignedStart, true
}

// Align satisfies §6's Aligner.align, with offset 0.
func (ft *FreeTree[A, S]) Align(size S, alignment A) (A, bool) {
	return ft.OffsetAlign(alignment, 0, size)
}

// Dealloc satisfies §6's Allocator.dealloc: finds address-adjacent
// neighbors via FindLT/FindGE on byAddr, unions them with the freed
// range, and reinserts the merged extent.
func (ft *FreeTree[A, S]) Dealloc(addr A, size S) {
	if size == 0 {
		return
	}
	start, sz := addr, size

	if left, ok := ft.byAddr.FindLT(Extent[A, S]{Start: addr}); ok && left.Start+A(left.Size) == addr {
		ft.remove(left)
		start = left.Start
		sz += left.Size
	}
	if right, ok := ft.byAddr.FindGE(Extent[A, S]{Start: addr}); ok && addr+A(size) == right.Start {
		ft.remove(right)
		sz += right.Size
	}
	ft.insert(Extent[A, S]{Start: start, Size: sz})
}

// Enumerate walks the free extents in address order.
func (ft *FreeTree[A, S]) Enumerate(fn func(Extent[A, S]) bool) {
	ft.byAddr.Enumerate(fn)
}

// FreeSize sums the free extents.
func (ft *FreeTree[A, S]) FreeSize() S {
	var total S
	ft.Enumerate(func(e Extent[A, S]) bool { total += e.Size; return true })
	return total
}

// CheckInvariants verifies both trees hold the AVL balance property and
// the same multiset of extents; for tests.
func (ft *FreeTree[A, S]) CheckInvariants() bool {
	if !ft.bySize.CheckBalance() || !ft.byAddr.CheckBalance() {
		return false
	}
	if ft.bySize.Len() != ft.byAddr.Len() {
		return false
	}
	same := true
	ft.byAddr.Enumerate(func(e Extent[A, S]) bool {
		same = ft.bySize.Contains(e)
		return same
	})
	return same
}
