package marktable

import (
	"sync"
	"sync/atomic"

	"github.com/kolkov/heaptracer/internal/trace/granule"
)

// Table maps granule indexes to lazily created marking bitmaps.
//
// Reads are lock-free: the common path of Mark loads an already published
// bitmap without taking any lock. Bitmap creation is the only serialized
// operation; a single mutex guards first-touch creation per granule, with a
// double-check so that a granule's bitmap is created at most once even when
// many workers touch it simultaneously.
//
// The table exclusively owns every bitmap it creates. Bitmaps are never
// replaced or removed; they are released together with the table when the
// traversal session is dropped.
type Table struct {
	layout granule.Layout

	// bitmaps maps uint64 granule index to *BitMap. Load is the lock-free
	// fast path; Store happens only under createMu.
	bitmaps sync.Map

	// createMu serializes first-touch bitmap creation. The critical section
	// is bounded (re-check, allocate, publish) and takes no nested locks.
	createMu sync.Mutex

	// created counts published bitmaps, for session statistics.
	created atomic.Uint64
}

// New creates an empty marking table for the given address-space layout.
// The layout must have been validated by the caller.
func New(layout granule.Layout) *Table {
	return &Table{layout: layout}
}

// Mark records addr as scheduled for visiting and reports whether this call
// was the first to do so.
//
// A zero (nil) address short-circuits to false: nil is never marked and
// never an error. For non-nil addresses the call locates the granule's
// bitmap, creating it on first touch, then atomically test-and-sets the
// object's alignment-slot bit.
//
// Returns true iff the caller is the first discoverer of addr and now owns
// the obligation to visit and enumerate it.
//
// Thread Safety: safe for concurrent use by all workers. The fast path
// (bitmap already published) is lock-free.
func (t *Table) Mark(addr uint64) bool {
	if addr == 0 {
		return false
	}

	bm := t.bitmap(addr)
	return bm.TrySet(t.layout.SlotIndex(addr))
}

// IsMarked reports whether addr has been marked. Nil is never marked.
//
// This is a read-only probe used by verification and dump tooling; the
// traversal itself only uses Mark.
func (t *Table) IsMarked(addr uint64) bool {
	if addr == 0 {
		return false
	}
	val, ok := t.bitmaps.Load(t.layout.GranuleIndex(addr))
	if !ok {
		return false
	}
	return val.(*BitMap).IsSet(t.layout.SlotIndex(addr))
}

// Bitmaps returns the number of granule bitmaps created so far.
func (t *Table) Bitmaps() uint64 {
	return t.created.Load()
}

// bitmap returns the marking bitmap for the granule containing addr,
// creating and publishing it if this is the first touch of that granule.
//
// Double-checked creation:
//  1. Optimistic lock-free load; hit on every touch after the first.
//  2. On miss, take createMu and re-check: another worker may have
//     published the bitmap while we waited for the lock.
//  3. Still absent: allocate, publish, count.
func (t *Table) bitmap(addr uint64) *BitMap {
	idx := t.layout.GranuleIndex(addr)

	if val, ok := t.bitmaps.Load(idx); ok {
		return val.(*BitMap)
	}

	t.createMu.Lock()
	defer t.createMu.Unlock()

	if val, ok := t.bitmaps.Load(idx); ok {
		return val.(*BitMap)
	}

	bm := NewBitMap(t.layout.SlotsPerGranule())
	t.bitmaps.Store(idx, bm)
	t.created.Add(1)
	return bm
}
