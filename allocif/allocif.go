// Package allocif defines the capability interfaces of §6: uniform
// consumer-facing contracts that every engine in this module implements
// some subset of. Trait composition (Go interface embedding) stands in
// for the virtual-dispatch hierarchy of the source design, per the
// "interface polymorphism" design note in spec.md §9.
package allocif

import "golang.org/x/exp/constraints"

// Allocator is the base capability: alloc/dealloc by size.
type Allocator[A constraints.Unsigned, S constraints.Unsigned] interface {
	Alloc(size S) (A, bool)
	Dealloc(addr A, size S)
}

// Aligner extends Allocator with alignment-constrained allocation.
type Aligner[A constraints.Unsigned, S constraints.Unsigned] interface {
	Allocator[A, S]
	Align(size S, alignment A) (A, bool)
}

// OffsetAligner extends Aligner with the (addr+offset) mod align contract.
type OffsetAligner[A constraints.Unsigned, S constraints.Unsigned] interface {
	Aligner[A, S]
	OffsetAlign(alignment A, offset A, size S) (A, bool)
}

// VirtualAllocator is the malloc-style front used by adapt.Virtualizer:
// addresses and sizes pegged to native width, with realloc/free instead
// of size-carrying dealloc.
type VirtualAllocator[A constraints.Unsigned, S constraints.Unsigned] interface {
	Alloc(size S) (A, bool)
	Realloc(addr A, newSize S) (A, bool)
	Free(addr A)
}

// Sized is implemented by engines that can report their own accounting.
type Sized[A constraints.Unsigned, S constraints.Unsigned] interface {
	OwnsAddress(addr A) bool
	FreeSize() S
	TotalSize() S
}
