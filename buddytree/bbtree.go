package buddytree

import (
	"math/bits"

	"addrspace/internal/assert"
	"addrspace/internal/rawbitmap"
	"addrspace/pathalg"
)

// BBTree is the counted-bitmap encoding of §4.3: each node at depth d
// carries a field of width ceil(log2(D-d+1)) holding the depth of the
// largest Free subtree rooted at or below it (0 = no useful Free
// descendant). A parallel one-bit-per-node flag distinguishes a fully
// occupied Data node from a fully occupied Container, the one case the
// cached value alone cannot resolve (both read back as 0). FindFree
// descends guided by the cached value and is O(D).
type BBTree struct {
	depth      uint8
	fieldWidth []uint   // fieldWidth[d]
	fieldBase  []uint   // bit offset of depth d's field row
	values     *rawbitmap.Bitmap
	dataFlag   *rawbitmap.Bitmap
}

// NewBBTree constructs a BBTree of the given depth, entirely Free.
func NewBBTree(depth uint8) *BBTree {
	assert.Precondition(depth >= 1, "NewBBTree: depth must be >= 1, got %d", depth)
	fieldWidth := make([]uint, depth)
	fieldBase := make([]uint, depth+1)
	for d := uint8(0); d < depth; d++ {
		n := uint(depth) - uint(d) // largest representable value at this depth
		fieldWidth[d] = uint(bits.Len(n))
		fieldBase[d+1] = fieldBase[d] + pathalg.DepthCount(d)*fieldWidth[d]
	}
	t := &BBTree{
		depth:      depth,
		fieldWidth: fieldWidth,
		fieldBase:  fieldBase,
		values:     rawbitmap.New(fieldBase[depth]),
		dataFlag:   rawbitmap.New(uint(pathalg.DepthCount(depth) - 1)),
	}
	t.writeValue(pathalg.Root(), uint64(depth))
	return t
}

func (t *BBTree) Depth() uint8 { return t.depth }

func (t *BBTree) isLeaf(p pathalg.Path) bool { return p.Depth == t.depth-1 }

func (t *BBTree) valueOffset(p pathalg.Path) uint {
	return t.fieldBase[p.Depth] + p.Index*t.fieldWidth[p.Depth]
}

func (t *BBTree) value(p pathalg.Path) uint64 {
	return t.values.ReadField(t.valueOffset(p), t.fieldWidth[p.Depth])
}

func (t *BBTree) writeValue(p pathalg.Path, v uint64) {
	t.values.WriteField(t.valueOffset(p), t.fieldWidth[p.Depth], v)
}

func (t *BBTree) maxFreeValue(p pathalg.Path) uint64 {
	return uint64(t.depth) - uint64(p.Depth)
}

// GetType resolves the node's state from the cached value and, for
// non-leaf nodes at value 0, the data flag.
func (t *BBTree) GetType(p pathalg.Path) State {
	assert.Precondition(p.Valid(t.depth), "GetType: path %+v invalid for depth %d", p, t.depth)
	if t.value(p) == t.maxFreeValue(p) {
		return Free
	}
	if t.isLeaf(p) {
		return Data
	}
	if t.dataFlag.Get(uint(p.LinearIndex())) {
		return Data
	}
	return Container
}

// SetType sets the state of the node at p and maintains the cached
// max-free-depth value up to the root, stopping as soon as an ancestor's
// cached value is unchanged.
func (t *BBTree) SetType(p pathalg.Path, s State) {
	assert.Precondition(p.Valid(t.depth), "SetType: path %+v invalid for depth %d", p, t.depth)
	switch s {
	case Free:
		t.dataFlag.Set(uint(p.LinearIndex()), false)
		t.writeValue(p, t.maxFreeValue(p))
	case Data:
		if !t.isLeaf(p) {
			t.dataFlag.Set(uint(p.LinearIndex()), true)
		}
		t.writeValue(p, 0)
	case Container:
		left, right := p.Left(), p.Right()
		t.dataFlag.Set(uint(left.LinearIndex()), false)
		t.writeValue(left, t.maxFreeValue(left))
		t.dataFlag.Set(uint(right.LinearIndex()), false)
		t.writeValue(right, t.maxFreeValue(right))
		t.dataFlag.Set(uint(p.LinearIndex()), false)
		t.writeValue(p, t.maxFreeValue(left))
	}
	t.propagate(p)
}

func (t *BBTree) propagate(p pathalg.Path) {
	cur := p
	for !cur.IsRoot() {
		parent := cur.Parent()
		sibling := cur.Sibling()
		combined := t.value(cur)
		if sv := t.value(sibling); sv > combined {
			combined = sv
		}
		if t.value(parent) == combined {
			break
		}
		t.writeValue(parent, combined)
		cur = parent
	}
}

// FindFree descends from the root to a child whose cached value is at
// least D-maxDepth, preferring the left child, in O(D).
func (t *BBTree) FindFree(maxDepth uint8) (pathalg.Path, bool) {
	need := uint64(t.depth) - uint64(maxDepth)
	p := pathalg.Root()
	for {
		switch t.GetType(p) {
		case Free:
			if p.Depth <= maxDepth {
				return p, true
			}
			return pathalg.Path{}, false
		case Data:
			return pathalg.Path{}, false
		default: // Container
			left, right := p.Left(), p.Right()
			if t.value(left) >= need {
				p = left
				continue
			}
			if t.value(right) >= need {
				p = right
				continue
			}
			return pathalg.Path{}, false
		}
	}
}
