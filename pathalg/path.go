// Package pathalg implements §4.1: identifying nodes of a complete binary
// tree by (depth, index) and deriving parent/sibling/children/linear index
// from that pair. Pure computation, O(1) per operation.
package pathalg

import "addrspace/internal/assert"

// Path identifies a node of a complete binary tree: the unique node at
// Depth whose index among same-depth nodes (left to right) is Index.
// Root is Depth=0, Index=0.
type Path struct {
	Depth uint8
	Index uint64
}

// Root returns the path of the tree's root node.
func Root() Path { return Path{Depth: 0, Index: 0} }

// IsRoot reports whether p identifies the root.
func (p Path) IsRoot() bool { return p.Depth == 0 }

// DepthCount returns 2^d, the number of nodes at depth d.
func DepthCount(d uint8) uint64 { return uint64(1) << d }

// Parent returns the path of p's parent. Precondition: p is not the root.
func (p Path) Parent() Path {
	assert.Precondition(!p.IsRoot(), "Parent() called on root path")
	return Path{Depth: p.Depth - 1, Index: p.Index / 2}
}

// Sibling returns the path of the node sharing p's parent. Precondition:
// p is not the root.
func (p Path) Sibling() Path {
	assert.Precondition(!p.IsRoot(), "Sibling() called on root path")
	return Path{Depth: p.Depth, Index: p.Index ^ 1}
}

// Left returns the path of p's left child.
func (p Path) Left() Path {
	return Path{Depth: p.Depth + 1, Index: p.Index * 2}
}

// Right returns the path of p's right child.
func (p Path) Right() Path {
	return Path{Depth: p.Depth + 1, Index: p.Index*2 + 1}
}

// IsLeftChild reports whether p is the left child of its parent.
// Precondition: p is not the root.
func (p Path) IsLeftChild() bool {
	assert.Precondition(!p.IsRoot(), "IsLeftChild() called on root path")
	return p.Index%2 == 0
}

// LinearIndex returns the 0-based index of p in a linear, breadth-first
// (level-order) layout of the tree: 2^d - 1 + i.
func (p Path) LinearIndex() uint64 {
	return DepthCount(p.Depth) - 1 + p.Index
}

// Valid reports whether p is well-formed for a tree of the given total
// depth D (0 <= p.Depth < D, 0 <= p.Index < 2^p.Depth).
func (p Path) Valid(totalDepth uint8) bool {
	return p.Depth < totalDepth && p.Index < DepthCount(p.Depth)
}
