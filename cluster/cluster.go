// Package cluster implements §4.6: a fixed sequence of buddy allocators
// over disjoint address spans, dispatched as one logical allocator.
package cluster

import (
	"encoding/binary"
	"fmt"

	iradix "github.com/hashicorp/go-immutable-radix"
	"golang.org/x/exp/constraints"

	"addrspace/buddy"
	"addrspace/internal/report"
	"addrspace/utils"
)

// Cluster dispatches Alloc/Align/Dealloc across an ordered set of buddy
// allocators with disjoint address spans. No ordering by address is
// guaranteed unless the caller supplied a sorted topology (§3).
type Cluster[A constraints.Unsigned, S constraints.Unsigned] struct {
	allocs []*buddy.Allocator[A, S]
	// index maps each allocator's start address (as an 8-byte big-endian
	// key) to its slot, giving OwnsAddress/Dealloc O(log n) routing
	// instead of an O(n) walk once a cluster holds more than a handful
	// of allocators.
	index *iradix.Tree
}

// New builds a cluster over allocs. allocs must have disjoint spans.
func New[A constraints.Unsigned, S constraints.Unsigned](allocs []*buddy.Allocator[A, S]) *Cluster[A, S] {
	tree := iradix.New()
	for i, al := range allocs {
		var txOK bool
		tree, _, txOK = tree.Insert(keyFor(al.Start()), i)
		_ = txOK
	}
	return &Cluster[A, S]{allocs: allocs, index: tree}
}

func keyFor[A constraints.Unsigned](addr A) []byte {
	buf := make([]byte, 8)
	binary.BigEndian.PutUint64(buf, uint64(addr))
	return buf
}

// routeIndex finds the allocator slot whose span contains addr using a
// floor lookup (largest indexed start <= addr) followed by a span check.
func (c *Cluster[A, S]) routeIndex(addr A) (int, bool) {
	it := c.index.Root().ReverseIterator()
	it.SeekReverseLowerBound(keyFor(addr))
	_, v, ok := it.Previous()
	if !ok {
		return 0, false
	}
	idx := v.(int)
	if c.allocs[idx].OwnsAddress(addr) {
		return idx, true
	}
	return 0, false
}

// Alloc tries each allocator in order, returning the first success.
func (c *Cluster[A, S]) Alloc(size S) (A, bool) {
	for _, al := range c.allocs {
		if addr, ok := al.Alloc(size); ok {
			return addr, true
		}
	}
	return 0, false
}

// Align tries each allocator in order, returning the first success.
func (c *Cluster[A, S]) Align(size S, alignment A) (A, bool) {
	for _, al := range c.allocs {
		if addr, ok := al.Align(size, alignment); ok {
			return addr, true
		}
	}
	return 0, false
}

// Dealloc routes to the allocator whose span contains addr.
func (c *Cluster[A, S]) Dealloc(addr A, size S) {
	idx, ok := c.routeIndex(addr)
	if !ok {
		// Fall back to a linear scan: the radix index is keyed by start
		// address only and a malformed/foreign addr still deserves a
		// precise error from the owning allocator's own precondition.
		for i, al := range c.allocs {
			if al.OwnsAddress(addr) {
				idx, ok = i, true
				break
			}
		}
	}
	if ok {
		c.allocs[idx].Dealloc(addr, size)
		return
	}
	panic(fmt.Sprintf("addrspace: cluster has no allocator owning address %v", addr))
}

// Reserve intersects range with each overlapping allocator's span and
// forwards the intersection to that allocator's own Reserve. Must be
// called before any other operation, mirroring buddy.Allocator.Reserve.
func (c *Cluster[A, S]) Reserve(start A, length S) {
	end := start + A(length)
	for _, al := range c.allocs {
		spanStart := al.Start()
		spanEnd := spanStart + A(al.TotalSize())
		if end <= spanStart || start >= spanEnd {
			continue
		}
		lo := start
		if spanStart > lo {
			lo = spanStart
		}
		hi := end
		if spanEnd < hi {
			hi = spanEnd
		}
		al.Reserve(S(lo-spanStart), S(hi-lo))
	}
}

// OwnsAddress reports whether any allocator in the cluster claims addr.
func (c *Cluster[A, S]) OwnsAddress(addr A) bool {
	_, ok := c.routeIndex(addr)
	return ok
}

// FreeSize folds FreeSize across every allocator.
func (c *Cluster[A, S]) FreeSize() S {
	var total S
	for _, al := range c.allocs {
		total += al.FreeSize()
	}
	return total
}

// TotalSize folds TotalSize across every allocator.
func (c *Cluster[A, S]) TotalSize() S {
	var total S
	for _, al := range c.allocs {
		total += al.TotalSize()
	}
	return total
}

// Report builds a per-allocator free/total size report, one child per
// slot, projected from the allocator slice via the teacher's generic Map
// helper (§4.11 note: descriptor/slot projections reuse it throughout).
func (c *Cluster[A, S]) Report() report.Size {
	indices := make([]int, len(c.allocs))
	for i := range indices {
		indices[i] = i
	}
	children := utils.Map(indices, func(i int) report.Size {
		al := c.allocs[i]
		return report.Size{
			Name:  fmt.Sprintf("slot[%d]@%v", i, al.Start()),
			Free:  uint64(al.FreeSize()),
			Total: uint64(al.TotalSize()),
		}
	})
	return report.Size{
		Name:     "cluster",
		Free:     uint64(c.FreeSize()),
		Total:    uint64(c.TotalSize()),
		Children: children,
	}
}
