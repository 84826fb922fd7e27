package mman

import "fmt"

// PageRange is a run of whole pages, [Start, Start+Count).
//
// A PageRange can only be built by NewPageRange, so every value is page
// granular by construction.
type PageRange struct {
	start uint64
	count uint64
}

// NewPageRange converts the byte range [addr, addr+length) into the pages
// that cover it: the start is rounded down and the end rounded up, so any
// non-empty request reserves at least one page. ok is false for an empty
// range or when the end overflows the address space.
func NewPageRange(addr Addr, length uint64) (pr PageRange, ok bool) {
	if length == 0 {
		return PageRange{}, false
	}
	end, ok := addr.AddLength(length)
	if !ok {
		return PageRange{}, false
	}
	end, ok = end.RoundUp()
	if !ok {
		return PageRange{}, false
	}
	lo := addr.PageNumber()
	return PageRange{start: lo, count: end.PageNumber() - lo}, true
}

// Start returns the first page number.
func (pr PageRange) Start() uint64 { return pr.start }

// Count returns the number of pages.
func (pr PageRange) Count() uint64 { return pr.count }

// End returns the page number one past the last page.
func (pr PageRange) End() uint64 { return pr.start + pr.count }

// Addr returns the address of the first page.
func (pr PageRange) Addr() Addr { return PageAddr(pr.start) }

// Len returns the size of the range in bytes.
func (pr PageRange) Len() uint64 { return pr.count << PageShift }

// Contains reports whether page vpn is inside the range.
func (pr PageRange) Contains(vpn uint64) bool {
	return vpn >= pr.start && vpn < pr.End()
}

// Overlaps reports whether the two ranges share at least one page.
func (pr PageRange) Overlaps(o PageRange) bool {
	return pr.start < o.End() && o.start < pr.End()
}

func (pr PageRange) String() string {
	return fmt.Sprintf("[%#x, %#x)", uint64(pr.Addr()), uint64(PageAddr(pr.End())))
}
