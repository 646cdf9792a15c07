package marktable

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/kolkov/heaptracer/internal/trace/granule"
)

func testLayout() granule.Layout {
	// Small granules (4 KiB) so tests can cheaply span several of them.
	return granule.Layout{Base: 0, GranuleShift: 12, AlignShift: 3}
}

// ========================================
// Basic Functionality Tests
// ========================================

func TestTable_Mark_Nil(t *testing.T) {
	tab := New(testLayout())

	if tab.Mark(0) {
		t.Error("Mark(0) = true, nil must never mark")
	}
	if tab.IsMarked(0) {
		t.Error("IsMarked(0) = true, nil must never be marked")
	}
	if got := tab.Bitmaps(); got != 0 {
		t.Errorf("Bitmaps() = %d after nil mark, want 0", got)
	}
}

func TestTable_Mark_FirstWins(t *testing.T) {
	tab := New(testLayout())
	addr := uint64(0x1040)

	if !tab.Mark(addr) {
		t.Fatal("first Mark = false, want true")
	}
	if tab.Mark(addr) {
		t.Fatal("second Mark = true, want false")
	}
	if !tab.IsMarked(addr) {
		t.Error("IsMarked = false after Mark")
	}
}

func TestTable_Mark_DistinctObjects(t *testing.T) {
	l := testLayout()
	tab := New(l)

	// Same granule, neighboring slots.
	if !tab.Mark(0x100) || !tab.Mark(0x108) {
		t.Error("marks of distinct addresses in one granule interfered")
	}
	// Different granules, same in-granule offset.
	other := l.GranuleSize() + 0x100
	if !tab.Mark(other) {
		t.Error("mark in second granule = false, want true")
	}
	if got := tab.Bitmaps(); got != 2 {
		t.Errorf("Bitmaps() = %d, want 2 (one per touched granule)", got)
	}
}

func TestTable_IsMarked_UntouchedGranule(t *testing.T) {
	tab := New(testLayout())

	if tab.IsMarked(0x9000) {
		t.Error("IsMarked = true for a granule that was never touched")
	}
	if got := tab.Bitmaps(); got != 0 {
		t.Errorf("IsMarked created a bitmap: Bitmaps() = %d, want 0", got)
	}
}

// ========================================
// Concurrency Tests
// ========================================

// TestTable_Mark_OneWinnerPerObject races workers on a set of shared
// addresses. Every address must have exactly one first discoverer.
func TestTable_Mark_OneWinnerPerObject(t *testing.T) {
	const workers = 16
	const objects = 512

	l := testLayout()
	tab := New(l)

	addrs := make([]uint64, objects)
	for i := range addrs {
		// Spread objects across many granules, all 8-byte aligned.
		addrs[i] = uint64(i) * 136
	}
	// Index 0 would be the nil address; shift it onto a real slot.
	addrs[0] = 8

	var wins [objects]atomic.Int32
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i, addr := range addrs {
				if tab.Mark(addr) {
					wins[i].Add(1)
				}
			}
		}()
	}
	wg.Wait()

	for i := range wins {
		if got := wins[i].Load(); got != 1 {
			t.Errorf("address %#x: %d winners, want 1", addrs[i], got)
		}
	}
}

// TestTable_LazyCreate_OncePerGranule verifies the double-checked creation
// path installs exactly one bitmap per granule under a first-touch stampede.
func TestTable_LazyCreate_OncePerGranule(t *testing.T) {
	const workers = 32
	const granules = 8

	l := testLayout()
	tab := New(l)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for g := uint64(0); g < granules; g++ {
				// Distinct slot per worker, same granule stampede.
				tab.Mark(g*l.GranuleSize() + uint64(w+1)*8)
			}
		}(w)
	}
	wg.Wait()

	if got := tab.Bitmaps(); got != granules {
		t.Errorf("Bitmaps() = %d, want %d", got, granules)
	}

	t.Logf("%d workers stampeded %d granules, one bitmap each", workers, granules)
}
