package tlb

import (
	"testing"

	"github.com/Giulio2002/mman"
)

func fill(t *testing.T, c *Cache, first, n uint64) {
	t.Helper()
	for vpn := first; vpn < first+n; vpn++ {
		c.Insert(mman.PageAddr(vpn), vpn+1000, mman.ProtRead)
	}
}

func TestNewInvalidSize(t *testing.T) {
	if _, err := New(0); err == nil {
		t.Fatal("expected error for zero size")
	}
}

func TestInsertLookup(t *testing.T) {
	c, err := New(8)
	if err != nil {
		t.Fatal(err)
	}
	c.Insert(0x401234, 7, mman.ProtRead|mman.ProtWrite)

	e, ok := c.Lookup(0x401000)
	if !ok {
		t.Fatal("translation not cached")
	}
	if e.VPN != 0x401 || e.Frame != 7 {
		t.Errorf("got %+v", e)
	}
	if _, ok := c.Lookup(0x402000); ok {
		t.Error("unexpected translation for neighbouring page")
	}
}

func TestEviction(t *testing.T) {
	c, err := New(4)
	if err != nil {
		t.Fatal(err)
	}
	fill(t, c, 0x400, 6)
	if c.Len() != 4 {
		t.Fatalf("Len = %d, want 4", c.Len())
	}
	if _, ok := c.Lookup(mman.PageAddr(0x400)); ok {
		t.Error("oldest entry survived eviction")
	}
}

func TestInvalidatePage(t *testing.T) {
	c, _ := New(16)
	fill(t, c, 0x400, 3)
	c.InvalidatePage(0x401fff)

	if _, ok := c.Lookup(mman.PageAddr(0x401)); ok {
		t.Error("page 0x401 still cached")
	}
	if c.Len() != 2 {
		t.Errorf("Len = %d, want 2", c.Len())
	}
}

func TestInvalidateRange(t *testing.T) {
	tests := []struct {
		name   string
		start  uint64
		npages uint64
		left   int
	}{
		{"small range", 0x402, 2, 6},
		{"range larger than cache", 0x3f0, 0x100, 0},
		{"disjoint", 0x500, 4, 8},
		{"tail", 0x406, 10, 6},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := New(16)
			fill(t, c, 0x400, 8)
			c.InvalidateRange(mman.PageAddr(tt.start), tt.npages)
			if c.Len() != tt.left {
				t.Fatalf("Len = %d, want %d", c.Len(), tt.left)
			}
			for vpn := tt.start; vpn < tt.start+tt.npages; vpn++ {
				if _, ok := c.Lookup(mman.PageAddr(vpn)); ok {
					t.Fatalf("page %#x still cached", vpn)
				}
			}
		})
	}
}

func TestInvalidateAll(t *testing.T) {
	c, _ := New(16)
	fill(t, c, 0x400, 8)
	c.InvalidateAll()
	if c.Len() != 0 {
		t.Errorf("Len = %d after InvalidateAll", c.Len())
	}
}

func TestRecorderForwards(t *testing.T) {
	c, _ := New(16)
	fill(t, c, 0x400, 4)
	r := &Recorder{Next: c}

	r.InvalidatePage(mman.PageAddr(0x400))
	r.InvalidateRange(mman.PageAddr(0x401), 2)
	r.InvalidateAll()

	calls := r.Calls()
	want := []Call{
		{Kind: Page, Addr: mman.PageAddr(0x400), Pages: 1},
		{Kind: Range, Addr: mman.PageAddr(0x401), Pages: 2},
		{Kind: All},
	}
	if len(calls) != len(want) {
		t.Fatalf("got %d calls, want %d", len(calls), len(want))
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Errorf("call %d = %s, want %s", i, calls[i], want[i])
		}
	}
	if c.Len() != 0 {
		t.Errorf("forwarded invalidations left %d entries", c.Len())
	}

	r.Reset()
	if len(r.Calls()) != 0 {
		t.Error("Reset did not clear calls")
	}
}
