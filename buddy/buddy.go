// Package buddy implements §4.4: a power-of-two address-range allocator
// wrapping one of the buddytree encodings. Translates size requests to
// tree depths, splits and coalesces along a path, and supports a one-shot
// Reserve of a sub-range before any allocation happens.
package buddy

import (
	"fmt"
	"math/bits"

	"github.com/dustin/go-humanize"
	"golang.org/x/exp/constraints"

	"addrspace/buddytree"
	"addrspace/internal/assert"
	"addrspace/pathalg"
)

// Allocator is a buddy allocator over [start, start+2^(pageLog+depth-1)).
// A and S are the address and size integer types (§3: S's width <= A's).
type Allocator[A constraints.Unsigned, S constraints.Unsigned] struct {
	start    A
	pageLog  uint8
	tree     buddytree.Tree
	depth    uint8
	freeSize S
	reserved bool // Reserve was called; only legal before any Alloc/Align/Dealloc
	touched  bool // any public op besides Reserve has run
}

// New wraps tree with a buddy allocator starting at address start with
// page-size-log pageLog (leaf size = 2^pageLog).
func New[A constraints.Unsigned, S constraints.Unsigned](start A, pageLog uint8, tree buddytree.Tree) *Allocator[A, S] {
	d := tree.Depth()
	total := S(1) << (uint(pageLog) + uint(d) - 1)
	return &Allocator[A, S]{start: start, pageLog: pageLog, tree: tree, depth: d, freeSize: total}
}

func (b *Allocator[A, S]) unitLog(depth uint8) uint {
	return uint(b.pageLog) + uint(b.depth) - 1 - uint(depth)
}

// depthForSize returns the tree depth matching size, or ok=false if the
// size is too large for this allocator.
func (b *Allocator[A, S]) depthForSize(size S) (uint8, bool) {
	if size == 0 {
		return 0, false
	}
	ceilLog2 := 0
	if size > 1 {
		ceilLog2 = bits.Len64(uint64(size) - 1)
	}
	shift := ceilLog2 - int(b.pageLog)
	if shift < 0 {
		shift = 0
	}
	d := int(b.depth) - 1 - shift
	if d < 0 {
		return 0, false
	}
	return uint8(d), true
}

func (b *Allocator[A, S]) addressOf(p pathalg.Path) A {
	return b.start + A(p.Index)<<b.unitLog(p.Depth)
}

// splitTo splits the tree from p down to target depth, always taking the
// left child, then marks the final node Data. Returns the final path.
func (b *Allocator[A, S]) splitTo(p pathalg.Path, target uint8) pathalg.Path {
	cur := p
	for cur.Depth < target {
		b.tree.SetType(cur, buddytree.Container)
		cur = cur.Left()
	}
	b.tree.SetType(cur, buddytree.Data)
	return cur
}

// Alloc satisfies §6's Allocator.alloc: allocate a block of at least size
// bytes, returning its address.
func (b *Allocator[A, S]) Alloc(size S) (A, bool) {
	d, ok := b.depthForSize(size)
	if !ok {
		return 0, false
	}
	p, ok := b.tree.FindFree(d)
	if !ok {
		return 0, false
	}
	final := b.splitTo(p, d)
	b.freeSize -= S(1) << b.unitLog(d)
	b.touched = true
	return b.addressOf(final), true
}

// Align satisfies §6's Aligner.align. Precondition: alignment is a power
// of two and start is a multiple of it.
func (b *Allocator[A, S]) Align(size S, alignment A) (A, bool) {
	assert.Precondition(alignment != 0 && alignment&(alignment-1) == 0, "Align: alignment %v is not a power of two", alignment)
	assert.Precondition(b.start%alignment == 0, "Align: start %v is not a multiple of alignment %v", b.start, alignment)

	dSize, ok := b.depthForSize(size)
	if !ok {
		return 0, false
	}
	alignLog := bits.Len64(uint64(alignment)) - 1
	dAlignInt := int(b.pageLog) + int(b.depth) - 1 - alignLog
	if dAlignInt < 0 {
		return 0, false // alignment exceeds the allocator's total span
	}
	dAlign := uint8(dAlignInt)
	// A node at depth <= dAlign always has an address that is a multiple
	// of alignment, because its unit size is itself a multiple of
	// alignment and start is alignment-aligned; subsequent left-only
	// splits never change the address. So searching no deeper than
	// min(dSize, dAlign) is sufficient and necessary.
	bound := dSize
	if dAlign < bound {
		bound = dAlign
	}
	p, ok := b.tree.FindFree(bound)
	if !ok {
		return 0, false
	}
	final := b.splitTo(p, dSize)
	b.freeSize -= S(1) << b.unitLog(dSize)
	b.touched = true
	return b.addressOf(final), true
}

func (b *Allocator[A, S]) leafSpan(depth uint8) uint64 {
	return uint64(1) << (uint(b.depth) - 1 - uint(depth))
}

// Dealloc satisfies §6's Allocator.dealloc. Precondition: addr was
// returned by a prior Alloc/Align on this allocator and has not since
// been deallocated.
func (b *Allocator[A, S]) Dealloc(addr A, size S) {
	assert.Precondition(addr >= b.start, "Dealloc: addr %v below start %v", addr, b.start)
	shadow := uint64(addr-b.start) >> b.pageLog

	node, ok := b.findDataAncestor(shadow)
	assert.Precondition(ok, "Dealloc: addr %v is not an outstanding allocation", addr)

	b.freeSize += S(1) << b.unitLog(node.Depth)
	b.tree.SetType(node, buddytree.Free)
	b.mergeUp(node)
	_ = size
	b.touched = true
}

func (b *Allocator[A, S]) findDataAncestor(shadow uint64) (pathalg.Path, bool) {
	cur := pathalg.Root()
	for {
		switch b.tree.GetType(cur) {
		case buddytree.Data:
			return cur, true
		case buddytree.Free:
			return pathalg.Path{}, false
		default: // Container
			span := b.leafSpan(cur.Depth)
			nodeStart := cur.Index * span
			if shadow < nodeStart+span/2 {
				cur = cur.Left()
			} else {
				cur = cur.Right()
			}
		}
	}
}

func (b *Allocator[A, S]) mergeUp(p pathalg.Path) {
	cur := p
	for !cur.IsRoot() {
		parent := cur.Parent()
		if b.tree.GetType(cur.Sibling()) != buddytree.Free {
			break
		}
		b.tree.SetType(parent, buddytree.Free)
		cur = parent
	}
}

// Reserve carves [startOffset, startOffset+length) as Data without
// touching the rest of the tree. Precondition: this is the first
// operation performed on the allocator.
func (b *Allocator[A, S]) Reserve(startOffset, length S) {
	assert.Precondition(!b.touched, "Reserve: must be the first operation on a buddy allocator")
	assert.Precondition(length > 0, "Reserve: length must be > 0")
	b.touched = true
	b.reserved = true

	rStart := uint64(startOffset) >> b.pageLog
	rEnd := (uint64(startOffset) + uint64(length) + (uint64(1)<<b.pageLog - 1)) >> b.pageLog
	var reservedUnits uint64
	b.reserve(pathalg.Root(), rStart, rEnd, &reservedUnits)
	b.freeSize -= S(reservedUnits) << b.pageLog
}

func (b *Allocator[A, S]) reserve(p pathalg.Path, rStart, rEnd uint64, reservedUnits *uint64) {
	span := b.leafSpan(p.Depth)
	nodeStart := p.Index * span
	nodeEnd := nodeStart + span
	isLeaf := p.Depth == b.depth-1

	switch {
	case nodeEnd <= rStart || nodeStart >= rEnd: // disjoint
		b.tree.SetType(p, buddytree.Free)
	case nodeStart >= rStart && nodeEnd <= rEnd: // fully reserved
		b.tree.SetType(p, buddytree.Data)
		*reservedUnits += span
	case isLeaf: // partial overlap at a leaf: the leaf can't split further
		b.tree.SetType(p, buddytree.Data)
		*reservedUnits += span
	default:
		b.tree.SetType(p, buddytree.Container)
		b.reserve(p.Left(), rStart, rEnd, reservedUnits)
		b.reserve(p.Right(), rStart, rEnd, reservedUnits)
	}
}

// OwnsAddress reports whether addr lies within this allocator's span.
func (b *Allocator[A, S]) OwnsAddress(addr A) bool {
	total := A(1) << (uint(b.pageLog) + uint(b.depth) - 1)
	return addr >= b.start && addr < b.start+total
}

// FreeSize returns the number of free bytes.
func (b *Allocator[A, S]) FreeSize() S { return b.freeSize }

// TotalSize returns the allocator's covered byte span.
func (b *Allocator[A, S]) TotalSize() S {
	return S(1) << (uint(b.pageLog) + uint(b.depth) - 1)
}

// Start returns the allocator's base address.
func (b *Allocator[A, S]) Start() A { return b.start }

func (b *Allocator[A, S]) String() string {
	return fmt.Sprintf("buddy[start=%v depth=%d pageLog=%d free=%s/%s]",
		b.start, b.depth, b.pageLog,
		humanize.Bytes(uint64(b.freeSize)), humanize.Bytes(uint64(b.TotalSize())))
}
