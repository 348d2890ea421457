// Package bitalloc implements §4.10: a flat bit-per-unit allocator. Each
// bit is one allocatable unit; there is no coalescing bookkeeping beyond
// the bits themselves, trading the free-list/free-tree engines' O(extent
// count) memory for O(N) bits and linear scans.
package bitalloc

import (
	"golang.org/x/exp/constraints"

	"addrspace/internal/assert"
	"addrspace/internal/rawbitmap"
)

// BitAlloc allocates runs of set bits over a fixed N-unit bitmap.
type BitAlloc[A constraints.Unsigned, S constraints.Unsigned] struct {
	bm *rawbitmap.Bitmap
	n  uint
}

// New constructs an allocator over n units, all free.
func New[A constraints.Unsigned, S constraints.Unsigned](n uint) *BitAlloc[A, S] {
	return &BitAlloc[A, S]{bm: rawbitmap.New(n), n: n}
}

// runFree reports whether [start,start+length) are all clear. 64-bit
// aligned words lying wholly inside the run are tested for all-clear in
// one comparison rather than bit by bit.
func (b *BitAlloc[A, S]) runFree(start, length uint) bool {
	i := start
	end := start + length
	for i < end {
		if i%64 == 0 && i+64 <= end {
			if b.bm.ReadField(i, 64) != 0 {
				return false
			}
			i += 64
			continue
		}
		if b.bm.Get(i) {
			return false
		}
		i++
	}
	return true
}

func (b *BitAlloc[A, S]) setRun(start, length uint, v bool) {
	for i := uint(0); i < length; i++ {
		b.bm.Set(start+i, v)
	}
}

// findFreeRun first-fit scans for a run of `size` clear bits. Whole
// 64-bit words that read all-ones are skipped without inspecting
// individual bits (§4.10).
func (b *BitAlloc[A, S]) findFreeRun(size uint) (uint, bool) {
	if size == 0 || size > b.n {
		return 0, false
	}
	i := uint(0)
	for i+size <= b.n {
		if i%64 == 0 && i+64 <= b.n && b.bm.ReadField(i, 64) == ^uint64(0) {
			i += 64
			continue
		}
		if b.bm.Get(i) {
			i++
			continue
		}
		run := uint(1)
		for run < size && i+run < b.n && !b.bm.Get(i+run) {
			run++
		}
		if run >= size {
			return i, true
		}
		i += run + 1
	}
	return 0, false
}

// Alloc satisfies §6's Allocator.alloc: first-fit run of size clear bits.
func (b *BitAlloc[A, S]) Alloc(size S) (A, bool) {
	start, ok := b.findFreeRun(uint(size))
	if !ok {
		return 0, false
	}
	b.setRun(start, uint(size), true)
	return A(start), true
}

// OffsetAlign satisfies §6's OffsetAligner.offset_align: scans candidate
// starts satisfying (start+offset) % alignment == 0 in increasing order,
// guarding the alignment-offset arithmetic against overflow past n
// (§4.10).
func (b *BitAlloc[A, S]) OffsetAlign(alignment, offset A, size S) (A, bool) {
	assert.Precondition(alignment != 0 && alignment&(alignment-1) == 0, "bitalloc: alignment %d is not a power of two", alignment)
	if size == 0 || uint64(size) > uint64(b.n) {
		return 0, false
	}
	align := uint64(alignment)
	off := uint64(offset) % align
	start := (align - off) % align
	sz := uint64(size)
	for start+sz <= uint64(b.n) {
		if b.runFree(uint(start), uint(sz)) {
			b.setRun(uint(start), uint(sz), true)
			return A(start), true
		}
		next := start + align
		if next <= start { // overflow guard
			break
		}
		start = next
	}
	return 0, false
}

// Align satisfies §6's Aligner.align, with offset 0.
func (b *BitAlloc[A, S]) Align(size S, alignment A) (A, bool) {
	return b.OffsetAlign(alignment, 0, size)
}

// Dealloc satisfies §6's Allocator.dealloc: unconditionally clears the
// bits in [addr,addr+size); there is no adjacency to merge (§4.10).
func (b *BitAlloc[A, S]) Dealloc(addr A, size S) {
	assert.Precondition(uint64(addr)+uint64(size) <= uint64(b.n), "bitalloc: dealloc [%d,%d) exceeds %d units", addr, uint64(addr)+uint64(size), b.n)
	b.setRun(uint(addr), uint(size), false)
}

// OwnsAddress reports whether addr falls within this allocator's span.
func (b *BitAlloc[A, S]) OwnsAddress(addr A) bool {
	return uint64(addr) < uint64(b.n)
}

// FreeSize returns the number of clear (free) units.
func (b *BitAlloc[A, S]) FreeSize() S {
	return S(uint64(b.n) - uint64(b.bm.Count()))
}

// TotalSize returns the total number of units.
func (b *BitAlloc[A, S]) TotalSize() S {
	return S(b.n)
}
