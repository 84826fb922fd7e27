package mman

import "fmt"

// Addr is a user virtual address.
type Addr uint64

// PageAddr returns the address of the first byte of page vpn.
func PageAddr(vpn uint64) Addr {
	return Addr(vpn << PageShift)
}

// PageNumber returns the number of the page containing a.
func (a Addr) PageNumber() uint64 {
	return uint64(a) >> PageShift
}

// PageOffset returns the offset of a within its page.
func (a Addr) PageOffset() uint64 {
	return uint64(a) & pageMask
}

// IsPageAligned reports whether a is the first byte of a page.
func (a Addr) IsPageAligned() bool {
	return a.PageOffset() == 0
}

// RoundDown returns a rounded down to the nearest page boundary.
func (a Addr) RoundDown() Addr {
	return a &^ pageMask
}

// RoundUp returns a rounded up to the nearest page boundary. ok is false if
// rounding overflows.
func (a Addr) RoundUp() (addr Addr, ok bool) {
	addr = (a + pageMask).RoundDown()
	return addr, addr >= a
}

// AddLength returns a+length. ok is false if the sum overflows.
func (a Addr) AddLength(length uint64) (end Addr, ok bool) {
	end = a + Addr(length)
	return end, end >= a
}

func (a Addr) String() string {
	return fmt.Sprintf("%#x", uint64(a))
}

// IsOffsetAligned reports whether a file offset is a multiple of PageSize.
func IsOffsetAligned(off int64) bool {
	return off&pageMask == 0
}
