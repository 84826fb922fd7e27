package mman

import (
	"math"
	"testing"
)

func TestNewPageRange(t *testing.T) {
	tests := []struct {
		addr   Addr
		length uint64
		start  uint64
		count  uint64
	}{
		{0, 1, 0, 1},
		{0, 10, 0, 1},
		{0, PageSize, 0, 1},
		{0, PageSize + 1, 0, 2},
		{0x1000, PageSize, 1, 1},
		{0x1fff, 1, 1, 1},
		{0x1fff, 2, 1, 2},
		{0x1800, PageSize, 1, 2},
		{0x400000, 3 * PageSize, 0x400, 3},
	}
	for _, tt := range tests {
		pr, ok := NewPageRange(tt.addr, tt.length)
		if !ok {
			t.Errorf("NewPageRange(%s, %d) failed", tt.addr, tt.length)
			continue
		}
		if pr.Start() != tt.start || pr.Count() != tt.count {
			t.Errorf("NewPageRange(%s, %d) = %s (%d pages), want start %d count %d",
				tt.addr, tt.length, pr, pr.Count(), tt.start, tt.count)
		}
	}
}

func TestNewPageRangeRejects(t *testing.T) {
	if _, ok := NewPageRange(0x1000, 0); ok {
		t.Error("empty range accepted")
	}
	if _, ok := NewPageRange(Addr(math.MaxUint64-PageSize+1), PageSize); ok {
		t.Error("range ending at 2^64 accepted")
	}
	if _, ok := NewPageRange(Addr(math.MaxUint64-10), 5); ok {
		t.Error("range whose end rounds past 2^64 accepted")
	}
}

// Any sub-page length reserves exactly one page when it does not straddle a
// boundary.
func TestNewPageRangeSubPage(t *testing.T) {
	for length := uint64(1); length <= PageSize; length += 511 {
		pr, ok := NewPageRange(0x7000, length)
		if !ok || pr.Count() != 1 {
			t.Fatalf("length %d: count = %d, ok = %v", length, pr.Count(), ok)
		}
	}
}

func TestPageRangeAccessors(t *testing.T) {
	pr, _ := NewPageRange(0x3000, 2*PageSize)
	if pr.End() != 5 || pr.Addr() != 0x3000 || pr.Len() != 2*PageSize {
		t.Fatalf("accessors: end %d addr %s len %d", pr.End(), pr.Addr(), pr.Len())
	}
	if !pr.Contains(3) || !pr.Contains(4) || pr.Contains(5) || pr.Contains(2) {
		t.Error("Contains wrong at the bounds")
	}
	other, _ := NewPageRange(0x4000, PageSize)
	after, _ := NewPageRange(0x5000, PageSize)
	if !pr.Overlaps(other) || pr.Overlaps(after) {
		t.Error("Overlaps wrong")
	}
	if got := pr.String(); got != "[0x3000, 0x5000)" {
		t.Errorf("String = %q", got)
	}
}

func TestAddrRounding(t *testing.T) {
	if Addr(0x1234).RoundDown() != 0x1000 {
		t.Error("RoundDown")
	}
	if a, ok := Addr(0x1234).RoundUp(); !ok || a != 0x2000 {
		t.Errorf("RoundUp = %s, %v", a, ok)
	}
	if a, ok := Addr(0x2000).RoundUp(); !ok || a != 0x2000 {
		t.Errorf("RoundUp of aligned = %s, %v", a, ok)
	}
	if _, ok := Addr(math.MaxUint64).RoundUp(); ok {
		t.Error("RoundUp overflow not reported")
	}
	if !IsOffsetAligned(0) || !IsOffsetAligned(2*PageSize) || IsOffsetAligned(100) || IsOffsetAligned(-1) {
		t.Error("IsOffsetAligned")
	}
}

func TestLayoutContains(t *testing.T) {
	l := Layout{UserLow: 0x10000, UserHigh: 0x20000}
	tests := []struct {
		addr   Addr
		length uint64
		want   bool
	}{
		{0x10000, PageSize, true},
		{0x1f000, PageSize, true},
		{0x1f000, 2 * PageSize, false},
		{0xf000, PageSize, false},
		{0x20000, PageSize, false},
		{0x10000, 0x10000, false}, // whole region
		{0x10000, 0xf000, true},
		{0x11000, math.MaxUint64, false},
	}
	for _, tt := range tests {
		if got := l.Contains(tt.addr, tt.length); got != tt.want {
			t.Errorf("Contains(%s, %#x) = %v, want %v", tt.addr, tt.length, got, tt.want)
		}
	}
	if !l.ContainsPages(0x10, 0x10) || l.ContainsPages(0x10, 0x11) || l.ContainsPages(0xf, 1) {
		t.Error("ContainsPages")
	}
}
