// Package freelist implements §4.7: an address-sorted singly linked list
// of disjoint, non-adjacent free extents. O(n) per operation (§5);
// appropriate for pools with few outstanding extents.
package freelist

import "golang.org/x/exp/constraints"

// Extent is a free address range (§3): start and size, size > 0.
type Extent[A constraints.Unsigned, S constraints.Unsigned] struct {
	Start A
	Size  S
}

type node[A constraints.Unsigned, S constraints.Unsigned] struct {
	Extent[A, S]
	next *node[A, S]
}

// NodeAllocator is the satellite allocator (§4.7, §6 callback surface)
// that furnishes storage for list nodes. It may fail (e.g. it is itself
// backed by a bounded pool); FreeList reacts via OnAllocFail.
type NodeAllocator[A constraints.Unsigned, S constraints.Unsigned] interface {
	Alloc() (any, bool)
	Free(any)
}

// goNodeAllocator is the default satellite: ordinary Go heap allocation,
// which never fails. Most callers use this; inject a bounded
// NodeAllocator to exercise the retry/fail-atomically contract.
type goNodeAllocator[A constraints.Unsigned, S constraints.Unsigned] struct{}

func (goNodeAllocator[A, S]) Alloc() (any, bool) { return &node[A, S]{}, true }
func (goNodeAllocator[A, S]) Free(any)           {}

// OnAllocFail is invoked when the satellite allocator refuses a node
// request; returning true retries, false fails the operation atomically
// with no state change (§4.7, resolving Open Question (b): the contract
// is boolean "retry", not void).
type OnAllocFail[A constraints.Unsigned, S constraints.Unsigned] func(fl *FreeList[A, S]) bool

// FreeList is the engine: an address-sorted list of disjoint, pairwise
// non-adjacent free extents.
type FreeList[A constraints.Unsigned, S constraints.Unsigned] struct {
	head        *node[A, S]
	sat         NodeAllocator[A, S]
	onAllocFail OnAllocFail[A, S]
}

// New constructs an empty free-list engine. sat may be nil to use the Go
// heap as the satellite allocator (never fails).
func New[A constraints.Unsigned, S constraints.Unsigned](sat NodeAllocator[A, S], onAllocFail OnAllocFail[A, S]) *FreeList[A, S] {
	if sat == nil {
		sat = goNodeAllocator[A, S]{}
	}
	return &FreeList[A, S]{sat: sat, onAllocFail: onAllocFail}
}

func (fl *FreeList[A, S]) newNode() (*node[A, S], bool) {
	for {
		v, ok := fl.sat.Alloc()
		if ok {
			return v.(*node[A, S]), true
		}
		if fl.onAllocFail == nil || !fl.onAllocFail(fl) {
			return nil, false
		}
	}
}

// Alloc satisfies §6's Allocator.alloc: first-fit from the head.
func (fl *FreeList[A, S]) Alloc(size S) (A, bool) {
	if size == 0 {
		return 0, false
	}
	var prev *node[A, S]
	for cur := fl.head; cur != nil; prev, cur = cur, cur.next {
		if cur.Size < size {
			continue
		}
		addr := cur.Start
		if cur.Size == size {
			fl.unlink(prev, cur)
		} else {
			cur.Start += A(size)
			cur.Size -= size
		}
		return addr, true
	}
	return 0, false
}

func (fl *FreeList[A, S]) unlink(prev, cur *node[A, S]) {
	if prev == nil {
		fl.head = cur.next
	} else {
		prev.next = cur.next
	}
	fl.sat.Free(cur)
}

func (fl *FreeList[A, S]) insertAfter(prev, n *node[A, S]) {
	if prev == nil {
		n.next = fl.head
		fl.head = n
	} else {
		n.next = prev.next
		prev.next = n
	}
}

// OffsetAlign satisfies §6's OffsetAligner.offset_align: first-fit over
// nodes, splitting the matching node into up to three pieces (left
// remainder, the aligned chunk, right remainder).
func (fl *FreeList[A, S]) OffsetAlign(alignment, offset A, size S) (A, bool) {
	if size == 0 {
		return 0, false
	}
	var prev *node[A, S]
	for cur := fl.head; cur != nil; prev, cur = cur, cur.next {
		misaligned := (cur.Start + offset) % alignment
		var delta A
		if misaligned != 0 {
			delta = alignment - misaligned
		}
		if uint64(delta)+uint64(size) > uint64(cur.Size) {
			continue
		}
		alignedStart := cur.Start + delta
		leftSize := delta
		rightStart := alignedStart + A(size)
		rightSize := cur.Size - S(delta) - size

		if rightSize > 0 {
			n, ok := fl.newNode()
			if !ok {
				return 0, false
			}
			n.Start, n.Size = rightStart, rightSize
			fl.insertAfter(cur, n)
		}
		if leftSize > 0 {
			cur.Size = S(leftSize)
		} else {
			fl.unlink(prev, cur)
		}
		return alignedStart, true
	}
	return 0, false
}

// Align satisfies §6's Aligner.align, with offset 0.
func (fl *FreeList[A, S]) Align(size S, alignment A) (A, bool) {
	return fl.OffsetAlign(alignment, 0, size)
}

// Dealloc satisfies §6's Allocator.dealloc: merges with adjacent extents
// if present, otherwise inserts in address order. size == 0 is a no-op
// (§4.7: it would otherwise be indistinguishable from a bona fide
// extent).
func (fl *FreeList[A, S]) Dealloc(addr A, size S) {
	if size == 0 {
		return
	}
	var prev *node[A, S]
	cur := fl.head
	for cur != nil && cur.Start < addr {
		prev, cur = cur, cur.next
	}
	// cur is the first node with Start >= addr (or nil); prev precedes it.
	mergeLeft := prev != nil && prev.Start+A(prev.Size) == addr
	mergeRight := cur != nil && addr+A(size) == cur.Start

	switch {
	case mergeLeft && mergeRight:
		prev.Size += size + cur.Size
		fl.unlink(prev, cur)
	case mergeLeft:
		prev.Size += size
	case mergeRight:
		cur.Start = addr
		cur.Size += size
	default:
		n, ok := fl.newNode()
		if !ok {
			return
		}
		n.Start, n.Size = addr, size
		fl.insertAfter(prev, n)
	}
}

// Enumerate walks the free extents in address order.
func (fl *FreeList[A, S]) Enumerate(fn func(Extent[A, S]) bool) {
	for cur := fl.head; cur != nil; cur = cur.next {
		if !fn(cur.Extent) {
			return
		}
	}
}

// FreeSize sums the free extents.
func (fl *FreeList[A, S]) FreeSize() S {
	var total S
	fl.Enumerate(func(e Extent[A, S]) bool { total += e.Size; return true })
	return total
}
