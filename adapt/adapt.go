// Package adapt implements §4.11: composable wrappers that change the
// address-space contract of an inner engine without changing how it
// tracks freedom. Each adapter wraps anything satisfying the relevant
// allocif capability interface. Transformer and Chunker need an
// OffsetAligner (freelist, freetree, bitalloc); Virtualizer and
// BufferedStack need only an Allocator, so buddy and cluster fit there too.
package adapt

import (
	"golang.org/x/exp/constraints"

	"addrspace/allocif"
	"addrspace/internal/assert"
)

func isPowerOfTwo(v uint64) bool { return v != 0 && v&(v-1) == 0 }

// Transformer scales and translates the addresses of an inner
// OffsetAligner (§4.11): one inner unit corresponds to `scale` outer
// units, and the whole span is shifted by `offset`. Lets a bit-granular
// engine like bitalloc back a byte-addressed space without wasting a bit
// per byte.
type Transformer[A constraints.Unsigned, S constraints.Unsigned] struct {
	inner  allocif.OffsetAligner[A, S]
	scale  uint64
	offset A
}

// NewTransformer wraps inner. scale must be a power of two and offset
// must be a multiple of scale, matching the inherited AlignerTransformer
// contract so OffsetAlign composes correctly.
func NewTransformer[A constraints.Unsigned, S constraints.Unsigned](inner allocif.OffsetAligner[A, S], scale uint64, offset A) *Transformer[A, S] {
	assert.Precondition(isPowerOfTwo(scale), "adapt: transformer scale %d is not a power of two", scale)
	assert.Precondition(uint64(offset)%scale == 0, "adapt: transformer offset %d is not a multiple of scale %d", offset, scale)
	return &Transformer[A, S]{inner: inner, scale: scale, offset: offset}
}

func (t *Transformer[A, S]) scaleSize(size S) S {
	sz := uint64(size)
	scaled := sz / t.scale
	if sz%t.scale != 0 {
		scaled++
	}
	return S(scaled)
}

func (t *Transformer[A, S]) out(x A) A { return A(uint64(x)*t.scale) + t.offset }

func (t *Transformer[A, S]) in(addr A) A {
	assert.Precondition((uint64(addr)-uint64(t.offset))%t.scale == 0, "adapt: transformer address %d misaligned with scale %d offset %d", addr, t.scale, t.offset)
	return A((uint64(addr) - uint64(t.offset)) / t.scale)
}

// Alloc scales size down before delegating, and scales/offsets the
// returned address back up.
func (t *Transformer[A, S]) Alloc(size S) (A, bool) {
	x, ok := t.inner.Alloc(t.scaleSize(size))
	if !ok {
		return 0, false
	}
	return t.out(x), true
}

// Dealloc undoes the address transform before delegating.
func (t *Transformer[A, S]) Dealloc(addr A, size S) {
	t.inner.Dealloc(t.in(addr), t.scaleSize(size))
}

// Align scales size and alignment down before delegating.
func (t *Transformer[A, S]) Align(size S, alignment A) (A, bool) {
	x, ok := t.inner.Align(t.scaleSize(size), t.scaleAlign(alignment))
	if !ok {
		return 0, false
	}
	return t.out(x), true
}

func (t *Transformer[A, S]) scaleAlign(align A) A {
	a := uint64(align)
	scaled := a / t.scale
	if a%t.scale != 0 {
		scaled++
	}
	if scaled == 0 {
		scaled = 1
	}
	return A(scaled)
}

// OffsetAlign scales size/alignment down and compounds offset with the
// transformer's own offset before delegating; overflow on the compound
// offset is tolerated, as with the source design, since the arithmetic
// is still correct modulo the address type's width.
func (t *Transformer[A, S]) OffsetAlign(alignment, offset A, size S) (A, bool) {
	if uint64(offset)%t.scale != 0 {
		return 0, false
	}
	scaledAlign := t.scaleAlign(alignment)
	if scaledAlign <= 1 {
		return t.Alloc(size)
	}
	scaledOffset := A((uint64(t.offset) + uint64(offset)) / t.scale)
	x, ok := t.inner.OffsetAlign(scaledAlign, scaledOffset, t.scaleSize(size))
	if !ok {
		return 0, false
	}
	return t.out(x), true
}

// Scale and Offset report the transform applied to the inner engine.
func (t *Transformer[A, S]) Scale() uint64 { return t.scale }
func (t *Transformer[A, S]) Offset() A     { return t.offset }

// Chunker forces every allocation and deallocation to a multiple of a
// fixed chunk size (§4.11): handy as the backend for a `new`/`delete`
// style front end that must hand out naturally aligned blocks.
type Chunker[A constraints.Unsigned, S constraints.Unsigned] struct {
	inner     allocif.OffsetAligner[A, S]
	chunkSize S
}

// NewChunker wraps inner, rounding every request up to a multiple of
// chunkSize.
func NewChunker[A constraints.Unsigned, S constraints.Unsigned](inner allocif.OffsetAligner[A, S], chunkSize S) *Chunker[A, S] {
	assert.Precondition(chunkSize > 0, "adapt: chunker chunk size must be positive")
	return &Chunker[A, S]{inner: inner, chunkSize: chunkSize}
}

func (c *Chunker[A, S]) roundUp(size S) S {
	sz, chunk := uint64(size), uint64(c.chunkSize)
	rem := sz % chunk
	if rem != 0 {
		sz += chunk - rem
	}
	return S(sz)
}

func (c *Chunker[A, S]) addrAligned(addr A) bool {
	return uint64(addr)%uint64(c.chunkSize) == 0
}

// Alloc rounds size up to a chunk multiple before delegating.
func (c *Chunker[A, S]) Alloc(size S) (A, bool) {
	return c.inner.Alloc(c.roundUp(size))
}

// Dealloc asserts chunk alignment and rounds size up before delegating.
func (c *Chunker[A, S]) Dealloc(addr A, size S) {
	assert.Precondition(c.addrAligned(addr), "adapt: chunker dealloc address %d is not chunk-aligned", addr)
	c.inner.Dealloc(addr, c.roundUp(size))
}

// Align rounds size up before delegating.
func (c *Chunker[A, S]) Align(size S, alignment A) (A, bool) {
	return c.inner.Align(c.roundUp(size), alignment)
}

// OffsetAlign refuses offsets that are not chunk-aligned; when the
// requested alignment is no coarser than the chunk size the request
// degrades to a plain Alloc (§4.11, grounded on ChunkedFreeListAligner).
func (c *Chunker[A, S]) OffsetAlign(alignment, offset A, size S) (A, bool) {
	if !c.addrAligned(offset) {
		return 0, false
	}
	if uint64(alignment) <= uint64(c.chunkSize) {
		return c.Alloc(size)
	}
	return c.inner.OffsetAlign(alignment, offset, c.roundUp(size))
}

// ChunkSize reports the enforced granularity.
func (c *Chunker[A, S]) ChunkSize() S { return c.chunkSize }

// Virtualizer promotes a plain Allocator to the malloc-style
// VirtualAllocator contract of §6: Alloc/Realloc/Free by address alone,
// with sizes remembered on the adapter's behalf instead of being
// recovered from an in-band header, since this module allocates address
// ranges rather than backing them with real bytes to write a header
// into (§4.11).
type Virtualizer[A constraints.Unsigned, S constraints.Unsigned] struct {
	inner       allocif.Allocator[A, S]
	headerUnits S
	sizes       map[A]S
}

// NewVirtualizer wraps inner, reserving headerUnits of address space per
// allocation to stand in for the source design's in-band size header.
func NewVirtualizer[A constraints.Unsigned, S constraints.Unsigned](inner allocif.Allocator[A, S], headerUnits S) *Virtualizer[A, S] {
	return &Virtualizer[A, S]{inner: inner, headerUnits: headerUnits, sizes: make(map[A]S)}
}

// Alloc reserves size+headerUnits from inner and returns the address
// past the (virtual) header.
func (v *Virtualizer[A, S]) Alloc(size S) (A, bool) {
	buf, ok := v.inner.Alloc(size + v.headerUnits)
	if !ok {
		return 0, false
	}
	out := buf + A(v.headerUnits)
	v.sizes[out] = size
	return out, true
}

// Free releases the region addr was returned for, including its header.
func (v *Virtualizer[A, S]) Free(addr A) {
	size, ok := v.sizes[addr]
	assert.Precondition(ok, "adapt: virtualizer free of unknown address %d", addr)
	delete(v.sizes, addr)
	v.inner.Dealloc(addr-A(v.headerUnits), size+v.headerUnits)
}

// Realloc allocates a new region, frees the old one, and returns the
// new address; if the new allocation fails the old region is kept. There is no payload to copy: this module tracks address
// ranges, not the bytes behind them, so the copy step of the source
// design's Realloc has nothing to act on here.
func (v *Virtualizer[A, S]) Realloc(addr A, newSize S) (A, bool) {
	_, ok := v.sizes[addr]
	assert.Precondition(ok, "adapt: virtualizer realloc of unknown address %d", addr)
	newAddr, ok := v.Alloc(newSize)
	if !ok {
		return addr, false
	}
	v.Free(addr)
	return newAddr, true
}

// PlaceMetadata carves a header region out of the front of [start,
// start+size) for an engine's own bookkeeping, the way PlacedFreeList's
// constructor does (§4.11): the header is padded out to `align`, and the
// remaining payload span is truncated down to a multiple of `align` so
// every unit the placed engine manages is itself naturally aligned. ok
// is false if the padded header plus one aligned unit does not fit in
// size.
func PlaceMetadata[A constraints.Unsigned, S constraints.Unsigned](start A, size S, metadataSize S, align A) (payloadStart A, payloadSize S, ok bool) {
	assert.Precondition(isPowerOfTwo(uint64(align)), "adapt: place-metadata alignment %d is not a power of two", align)

	padded := uint64(metadataSize)
	misalignment := (uint64(start) + padded) % uint64(align)
	if misalignment != 0 {
		padded += uint64(align) - misalignment
	}
	if padded+uint64(align) > uint64(size) {
		return 0, 0, false
	}
	remaining := uint64(size) - padded
	remaining -= remaining % uint64(align)
	return start + A(padded), S(remaining), true
}

// OverflowHandler is invoked when Dealloc is called on a full
// BufferedStack (§4.11); the region could not be cached and is the
// caller's responsibility to otherwise dispose of.
type OverflowHandler[A constraints.Unsigned, S constraints.Unsigned] func(bs *BufferedStack[A, S], addr A, size S)

// BufferedStack caches fixed-size objects from a source allocator so
// that common alloc/dealloc traffic for one object size avoids round
// trips through a slower engine (§4.11, SUPPLEMENTED from
// buffered-stack.hpp). ApplyBuffer tops the cache up to softMinimum or
// drains it down to softMaximum against the source.
type BufferedStack[A constraints.Unsigned, S constraints.Unsigned] struct {
	source     allocif.Allocator[A, S]
	capacity   int
	stack      []A
	softMin    int
	softMax    int
	objectSize S
	overflow   OverflowHandler[A, S]
}

// NewBufferedStack constructs an empty stack of the given capacity.
func NewBufferedStack[A constraints.Unsigned, S constraints.Unsigned](source allocif.Allocator[A, S], capacity, softMin, softMax int, objectSize S, overflow OverflowHandler[A, S]) *BufferedStack[A, S] {
	assert.Precondition(softMin <= softMax && softMax <= capacity, "adapt: buffered-stack requires softMin <= softMax <= capacity")
	assert.Precondition(objectSize > 0, "adapt: buffered-stack object size must be positive")
	return &BufferedStack[A, S]{
		source: source, capacity: capacity,
		softMin: softMin, softMax: softMax,
		objectSize: objectSize, overflow: overflow,
	}
}

// Alloc pops a cached object; it fails if size exceeds the stack's fixed
// object size or the cache is empty.
func (bs *BufferedStack[A, S]) Alloc(size S) (A, bool) {
	if len(bs.stack) == 0 || size > bs.objectSize {
		return 0, false
	}
	addr := bs.stack[len(bs.stack)-1]
	bs.stack = bs.stack[:len(bs.stack)-1]
	return addr, true
}

// Dealloc pushes addr onto the cache, or invokes the overflow handler if
// the cache is already at capacity.
func (bs *BufferedStack[A, S]) Dealloc(addr A, size S) {
	assert.Precondition(size <= bs.objectSize, "adapt: buffered-stack dealloc size %d exceeds object size %d", size, bs.objectSize)
	if len(bs.stack) == bs.capacity {
		bs.overflow(bs, addr, size)
		return
	}
	bs.stack = append(bs.stack, addr)
}

// ApplyBuffer tops the cache up to softMinimum or drains it to
// softMaximum against the source allocator. It returns false only if an
// allocation from the source fails while topping up.
func (bs *BufferedStack[A, S]) ApplyBuffer() bool {
	for len(bs.stack) < bs.softMin {
		addr, ok := bs.source.Alloc(bs.objectSize)
		if !ok {
			return false
		}
		bs.stack = append(bs.stack, addr)
	}
	for len(bs.stack) > bs.softMax {
		addr := bs.stack[len(bs.stack)-1]
		bs.stack = bs.stack[:len(bs.stack)-1]
		bs.source.Dealloc(addr, bs.objectSize)
	}
	return true
}

// Count, SoftMinimum, SoftMaximum, and ObjectSize report the stack's
// current occupancy and configuration.
func (bs *BufferedStack[A, S]) Count() int       { return len(bs.stack) }
func (bs *BufferedStack[A, S]) SoftMinimum() int { return bs.softMin }
func (bs *BufferedStack[A, S]) SoftMaximum() int { return bs.softMax }
func (bs *BufferedStack[A, S]) ObjectSize() S    { return bs.objectSize }
