package granule

import "testing"

// ========================================
// Layout Validation Tests
// ========================================

func TestLayout_Default_Valid(t *testing.T) {
	l := DefaultLayout()

	if err := l.Validate(); err != nil {
		t.Fatalf("DefaultLayout().Validate() = %v, want nil", err)
	}

	if got := l.GranuleSize(); got != 2<<20 {
		t.Errorf("GranuleSize() = %d, want %d", got, 2<<20)
	}

	// 2 MiB granule / 8-byte alignment = 256 Ki slots.
	if got := l.SlotsPerGranule(); got != (2<<20)/8 {
		t.Errorf("SlotsPerGranule() = %d, want %d", got, (2<<20)/8)
	}
}

func TestLayout_Validate_Rejects(t *testing.T) {
	cases := []struct {
		name string
		l    Layout
	}{
		{"zero granule shift", Layout{GranuleShift: 0, AlignShift: 0}},
		{"align not below granule", Layout{GranuleShift: 4, AlignShift: 4}},
		{"granule shift too large", Layout{GranuleShift: 48, AlignShift: 3}},
	}

	for _, tc := range cases {
		if err := tc.l.Validate(); err == nil {
			t.Errorf("%s: Validate() = nil, want error", tc.name)
		}
	}
}

// ========================================
// Index Arithmetic Tests
// ========================================

func TestLayout_GranuleIndex(t *testing.T) {
	l := DefaultLayout()
	g := l.GranuleSize()

	if got := l.GranuleIndex(0); got != 0 {
		t.Errorf("GranuleIndex(0) = %d, want 0", got)
	}
	if got := l.GranuleIndex(g - 8); got != 0 {
		t.Errorf("GranuleIndex(gsize-8) = %d, want 0", got)
	}
	if got := l.GranuleIndex(g); got != 1 {
		t.Errorf("GranuleIndex(gsize) = %d, want 1", got)
	}
	if got := l.GranuleIndex(5*g + 1024); got != 5 {
		t.Errorf("GranuleIndex(5*gsize+1024) = %d, want 5", got)
	}
}

func TestLayout_GranuleIndex_RespectsBase(t *testing.T) {
	l := DefaultLayout()
	l.Base = 16 * l.GranuleSize()

	if got := l.GranuleIndex(l.Base); got != 0 {
		t.Errorf("GranuleIndex(base) = %d, want 0", got)
	}
	if got := l.GranuleIndex(l.Base + l.GranuleSize() + 8); got != 1 {
		t.Errorf("GranuleIndex(base+gsize+8) = %d, want 1", got)
	}
}

func TestLayout_SlotIndex(t *testing.T) {
	l := DefaultLayout()

	if got := l.SlotIndex(0); got != 0 {
		t.Errorf("SlotIndex(0) = %d, want 0", got)
	}
	if got := l.SlotIndex(8); got != 1 {
		t.Errorf("SlotIndex(8) = %d, want 1", got)
	}
	// Last slot in the first granule.
	last := l.GranuleSize() - 8
	if got := l.SlotIndex(last); got != l.SlotsPerGranule()-1 {
		t.Errorf("SlotIndex(last) = %d, want %d", got, l.SlotsPerGranule()-1)
	}
	// Slot index wraps per granule: same in-granule offset, same slot.
	if got := l.SlotIndex(l.GranuleSize() + 8); got != 1 {
		t.Errorf("SlotIndex(gsize+8) = %d, want 1", got)
	}
}

// TestLayout_SlotIndex_Unique verifies that every aligned address in one
// granule maps to a unique slot. Uniqueness is what guarantees that one bit
// per slot cannot conflate two distinct objects.
func TestLayout_SlotIndex_Unique(t *testing.T) {
	// Small layout keeps the exhaustive scan cheap: 1 KiB granules,
	// 8-byte alignment, 128 slots.
	l := Layout{Base: 0, GranuleShift: 10, AlignShift: 3}
	if err := l.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}

	seen := make(map[uint64]uint64)
	for addr := uint64(0); addr < l.GranuleSize(); addr += 8 {
		slot := l.SlotIndex(addr)
		if slot >= l.SlotsPerGranule() {
			t.Fatalf("SlotIndex(%d) = %d out of range [0,%d)", addr, slot, l.SlotsPerGranule())
		}
		if prev, dup := seen[slot]; dup {
			t.Fatalf("addresses %d and %d share slot %d", prev, addr, slot)
		}
		seen[slot] = addr
	}

	if uint64(len(seen)) != l.SlotsPerGranule() {
		t.Errorf("covered %d slots, want %d", len(seen), l.SlotsPerGranule())
	}
}

func TestLayout_Aligned(t *testing.T) {
	l := DefaultLayout()

	if !l.Aligned(0) || !l.Aligned(64) {
		t.Error("aligned addresses reported as unaligned")
	}
	if l.Aligned(4) || l.Aligned(63) {
		t.Error("unaligned addresses reported as aligned")
	}
}
