// Package marktable implements the shared marking state for one heap
// traversal: one atomic bitmap per granule, held in a sparse table that
// covers the full addressable heap range.
//
// Marking is the single linearization point of the whole traversal. Racing
// workers that discover the same object through different edges all call
// Mark; exactly one of them observes true and thereby owns the obligation to
// visit and enumerate the object.
package marktable

import "sync/atomic"

const bitsPerWord = 64

// BitMap is a fixed-size atomic bit set with one bit per alignment slot of
// a granule.
//
// Bit i set means the object starting at slot i has already been scheduled
// for visiting. Bits are only ever set, never cleared; the bitmap lives for
// one traversal session and is dropped as a whole afterwards.
//
// Thread Safety: TrySet and IsSet are safe for concurrent use by any number
// of workers. There is no locking; contended updates retry on CAS failure.
type BitMap struct {
	words []uint64
}

// NewBitMap creates a zeroed bitmap holding the given number of bits.
func NewBitMap(bits uint64) *BitMap {
	words := (bits + bitsPerWord - 1) / bitsPerWord
	return &BitMap{words: make([]uint64, words)}
}

// TrySet atomically sets bit i and reports whether this call was the one
// that set it.
//
// Returns:
//   - true: the bit was clear and this call set it (caller is the first
//     discoverer).
//   - false: the bit was already set by an earlier or concurrently racing
//     call.
//
// The CAS loop retries only when a concurrent writer changed the same word;
// a retry that finds the target bit set exits with false immediately, so
// at most one caller ever observes true for a given bit.
func (b *BitMap) TrySet(i uint64) bool {
	word := &b.words[i/bitsPerWord]
	mask := uint64(1) << (i % bitsPerWord)

	for {
		old := atomic.LoadUint64(word)
		if old&mask != 0 {
			return false
		}
		if atomic.CompareAndSwapUint64(word, old, old|mask) {
			return true
		}
	}
}

// IsSet reports whether bit i is set.
func (b *BitMap) IsSet(i uint64) bool {
	word := atomic.LoadUint64(&b.words[i/bitsPerWord])
	return word&(uint64(1)<<(i%bitsPerWord)) != 0
}

// Len returns the capacity of the bitmap in bits.
func (b *BitMap) Len() uint64 {
	return uint64(len(b.words)) * bitsPerWord
}
