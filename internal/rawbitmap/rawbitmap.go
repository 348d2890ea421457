// Package rawbitmap implements §2 component 1: random-access bit and
// multi-bit read/write over a caller-sized bit array. The single-word
// bit-twiddling primitive spec.md §1 calls an out-of-scope external
// collaborator is github.com/bits-and-blooms/bitset here; everything
// above single-bit Set/Clear/Test (multi-bit fields, unit arrays used by
// the buddy-tree encodings and the bitmap engine) is this package's job.
package rawbitmap

import (
	"github.com/bits-and-blooms/bitset"

	"addrspace/internal/assert"
)

// Bitmap is a fixed-length array of bits, indexed from 0.
type Bitmap struct {
	bits *bitset.BitSet
	n    uint
}

// New allocates a Bitmap of n bits, all clear.
func New(n uint) *Bitmap {
	return &Bitmap{bits: bitset.New(n), n: n}
}

// Len returns the number of bits in the map.
func (b *Bitmap) Len() uint { return b.n }

// Get returns the bit at index i. Precondition: i < Len().
func (b *Bitmap) Get(i uint) bool {
	assert.Precondition(i < b.n, "Get: index %d out of range [0,%d)", i, b.n)
	return b.bits.Test(i)
}

// Set sets the bit at index i to v. Precondition: i < Len().
func (b *Bitmap) Set(i uint, v bool) {
	assert.Precondition(i < b.n, "Set: index %d out of range [0,%d)", i, b.n)
	if v {
		b.bits.Set(i)
	} else {
		b.bits.Clear(i)
	}
}

// ReadField reads a `width`-bit unsigned field starting at bit offset
// `start`, least-significant bit first. width must be <= 64.
// Precondition: start+width <= Len().
func (b *Bitmap) ReadField(start, width uint) uint64 {
	assert.Precondition(width <= 64, "ReadField: width %d exceeds 64", width)
	assert.Precondition(start+width <= b.n, "ReadField: [%d,%d) out of range [0,%d)", start, start+width, b.n)
	var v uint64
	for i := uint(0); i < width; i++ {
		if b.bits.Test(start + i) {
			v |= uint64(1) << i
		}
	}
	return v
}

// WriteField writes the low `width` bits of value starting at bit offset
// `start`, least-significant bit first. Precondition: start+width <= Len().
func (b *Bitmap) WriteField(start, width uint, value uint64) {
	assert.Precondition(width <= 64, "WriteField: width %d exceeds 64", width)
	assert.Precondition(start+width <= b.n, "WriteField: [%d,%d) out of range [0,%d)", start, start+width, b.n)
	for i := uint(0); i < width; i++ {
		if value&(uint64(1)<<i) != 0 {
			b.bits.Set(start + i)
		} else {
			b.bits.Clear(start + i)
		}
	}
}

// ClearAll resets every owned bit to 0.
func (b *Bitmap) ClearAll() {
	b.bits.ClearAll()
}

// Count returns the number of set bits.
func (b *Bitmap) Count() uint {
	return b.bits.Count()
}
