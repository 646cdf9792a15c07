// Package granule defines the address-space layout used to index marking
// bitmaps during a heap traversal.
//
// The heap is divided into fixed-size partitions called granules. Every
// object start address maps to exactly one (granule index, slot index) pair:
//   - Granule index: which partition of the address space the object lives in.
//   - Slot index: which alignment slot inside that partition the object
//     starts at.
//
// Because the heap enforces a minimum object alignment, two distinct objects
// can never share a slot, so a bitmap with one bit per slot is sufficient to
// record "already scheduled for visiting" per granule.
//
// All arithmetic operates on opaque integer address handles. The package has
// no knowledge of real memory; it only partitions a 64-bit address space.
package granule

import "fmt"

const (
	// DefaultGranuleShift sizes a granule at 2 MiB (1 << 21 bytes).
	DefaultGranuleShift = 21

	// DefaultAlignShift is the minimum object alignment as a shift:
	// 8-byte alignment (1 << 3).
	DefaultAlignShift = 3
)

// Layout describes how addresses are reduced to bitmap coordinates.
//
// The zero Layout is not valid; use DefaultLayout or fill in all fields and
// call Validate. A Layout is immutable after construction and safe to share
// across workers.
type Layout struct {
	// Base is the lowest address of the traced heap. Addresses below Base
	// are outside the heap and must not be passed to the index functions.
	Base uint64

	// GranuleShift is log2 of the granule size in bytes.
	GranuleShift uint

	// AlignShift is log2 of the minimum object alignment in bytes. Every
	// object start address is a multiple of 1 << AlignShift.
	AlignShift uint
}

// DefaultLayout returns the layout used when a session does not specify one:
// heap base 0, 2 MiB granules, 8-byte object alignment.
func DefaultLayout() Layout {
	return Layout{
		Base:         0,
		GranuleShift: DefaultGranuleShift,
		AlignShift:   DefaultAlignShift,
	}
}

// Validate reports whether the layout is internally consistent.
//
// A valid layout has a granule strictly larger than the alignment unit and
// an alignment of at least one byte. Both sizes are powers of two by
// construction (they are expressed as shifts).
func (l Layout) Validate() error {
	if l.GranuleShift == 0 || l.GranuleShift >= 48 {
		return fmt.Errorf("granule: granule shift %d out of range", l.GranuleShift)
	}
	if l.AlignShift >= l.GranuleShift {
		return fmt.Errorf("granule: align shift %d must be smaller than granule shift %d",
			l.AlignShift, l.GranuleShift)
	}
	return nil
}

// GranuleSize returns the granule size in bytes.
func (l Layout) GranuleSize() uint64 {
	return 1 << l.GranuleShift
}

// SlotsPerGranule returns the number of distinct alignment slots inside one
// granule. This is the required bitmap size in bits.
func (l Layout) SlotsPerGranule() uint64 {
	return 1 << (l.GranuleShift - l.AlignShift)
}

// offset reduces an address to its offset from the heap base.
func (l Layout) offset(addr uint64) uint64 {
	return addr - l.Base
}

// GranuleIndex returns the index of the granule containing addr.
func (l Layout) GranuleIndex(addr uint64) uint64 {
	return l.offset(addr) >> l.GranuleShift
}

// SlotIndex returns the alignment slot of addr within its granule.
//
// The result is in [0, SlotsPerGranule()). Two distinct aligned addresses in
// the same granule always produce distinct slot indexes; this uniqueness is
// what makes a per-granule bitmap a correct "visited" record.
func (l Layout) SlotIndex(addr uint64) uint64 {
	mask := l.GranuleSize() - 1
	return (l.offset(addr) & mask) >> l.AlignShift
}

// Aligned reports whether addr is a legal object start address under this
// layout's minimum alignment.
func (l Layout) Aligned(addr uint64) bool {
	return l.offset(addr)&((1<<l.AlignShift)-1) == 0
}
