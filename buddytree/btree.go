package buddytree

import (
	"addrspace/internal/assert"
	"addrspace/internal/rawbitmap"
	"addrspace/pathalg"
)

// BTree is the bitmap encoding of §4.2: one bit per tree node, in linear
// index order. Bit=1 means the node is occupied (Data or Container).
// FindFree is a recursive descent and is O(2^D) worst case, which §5
// accepts because this encoding is meant for small trees or large
// allocations where the linear scan rarely runs to completion.
type BTree struct {
	depth uint8
	bits  *rawbitmap.Bitmap
}

// NewBTree constructs a BTree of the given depth, entirely Free.
func NewBTree(depth uint8) *BTree {
	assert.Precondition(depth >= 1, "NewBTree: depth must be >= 1, got %d", depth)
	n := pathalg.DepthCount(depth) - 1
	return &BTree{depth: depth, bits: rawbitmap.New(uint(n))}
}

func (t *BTree) Depth() uint8 { return t.depth }

func (t *BTree) occupied(p pathalg.Path) bool {
	return t.bits.Get(uint(p.LinearIndex()))
}

func (t *BTree) isLeaf(p pathalg.Path) bool {
	return p.Depth == t.depth-1
}

// GetType returns the state of the node at p per §4.2: if the bit is
// clear the node is Free; if it is set and the node is a leaf it is
// Data; otherwise both children's occupied bits determine Data
// (both clear) vs Container (at least one set).
func (t *BTree) GetType(p pathalg.Path) State {
	assert.Precondition(p.Valid(t.depth), "GetType: path %+v invalid for depth %d", p, t.depth)
	if !t.occupied(p) {
		return Free
	}
	if t.isLeaf(p) {
		return Data
	}
	if !t.occupied(p.Left()) && !t.occupied(p.Right()) {
		return Data
	}
	return Container
}

// SetType sets the state of the node at p. Resolves Open Question (a)
// from spec.md §9: when p is not a leaf, Data and Container clear both
// children's bits explicitly and independently — no variable aliasing.
func (t *BTree) SetType(p pathalg.Path, s State) {
	assert.Precondition(p.Valid(t.depth), "SetType: path %+v invalid for depth %d", p, t.depth)
	switch s {
	case Free:
		t.bits.Set(uint(p.LinearIndex()), false)
	case Container, Data:
		t.bits.Set(uint(p.LinearIndex()), true)
		if !t.isLeaf(p) {
			left := p.Left()
			right := p.Right()
			t.bits.Set(uint(left.LinearIndex()), false)
			t.bits.Set(uint(right.LinearIndex()), false)
		}
	}
}

// FindFree returns the leftmost Free node at depth <= maxDepth.
func (t *BTree) FindFree(maxDepth uint8) (pathalg.Path, bool) {
	return t.findFree(pathalg.Root(), maxDepth)
}

func (t *BTree) findFree(p pathalg.Path, maxDepth uint8) (pathalg.Path, bool) {
	switch t.GetType(p) {
	case Free:
		if p.Depth <= maxDepth {
			return p, true
		}
		return pathalg.Path{}, false
	case Data:
		return pathalg.Path{}, false
	default: // Container
		if p.Depth >= maxDepth {
			// descending only increases depth past maxDepth
			return pathalg.Path{}, false
		}
		if left, ok := t.findFree(p.Left(), maxDepth); ok {
			return left, true
		}
		return t.findFree(p.Right(), maxDepth)
	}
}
