package mman

import (
	"strings"

	"golang.org/x/sys/unix"
)

// Page geometry
const (
	// PageShift is log2 of PageSize
	PageShift = 12

	// PageSize is the size of a page in bytes
	PageSize = 1 << PageShift

	pageMask = PageSize - 1
)

// Prot is the protection requested for a mapping.
type Prot int

// Protection bits, numbered as in mmap(2).
const (
	ProtNone  Prot = unix.PROT_NONE
	ProtRead  Prot = unix.PROT_READ
	ProtWrite Prot = unix.PROT_WRITE
	ProtExec  Prot = unix.PROT_EXEC
)

// Readable reports whether PROT_READ is set.
func (p Prot) Readable() bool { return p&ProtRead != 0 }

// Writable reports whether PROT_WRITE is set.
func (p Prot) Writable() bool { return p&ProtWrite != 0 }

// Executable reports whether PROT_EXEC is set.
func (p Prot) Executable() bool { return p&ProtExec != 0 }

// String returns the protection in /proc/<pid>/maps form, e.g. "rw-".
func (p Prot) String() string {
	b := []byte("---")
	if p.Readable() {
		b[0] = 'r'
	}
	if p.Writable() {
		b[1] = 'w'
	}
	if p.Executable() {
		b[2] = 'x'
	}
	return string(b)
}

// MapFlags selects the sharing mode and placement of a mapping.
type MapFlags int

// Mapping flags, numbered as in mmap(2).
const (
	MapShared  MapFlags = unix.MAP_SHARED
	MapPrivate MapFlags = unix.MAP_PRIVATE
	MapFixed   MapFlags = unix.MAP_FIXED
	MapAnon    MapFlags = unix.MAP_ANON
)

// Shared reports whether MAP_SHARED is set.
func (f MapFlags) Shared() bool { return f&MapShared != 0 }

// Private reports whether MAP_PRIVATE is set.
func (f MapFlags) Private() bool { return f&MapPrivate != 0 }

// Fixed reports whether MAP_FIXED is set.
func (f MapFlags) Fixed() bool { return f&MapFixed != 0 }

// Anon reports whether MAP_ANON is set.
func (f MapFlags) Anon() bool { return f&MapAnon != 0 }

func (f MapFlags) String() string {
	var parts []string
	if f.Shared() {
		parts = append(parts, "SHARED")
	}
	if f.Private() {
		parts = append(parts, "PRIVATE")
	}
	if f.Fixed() {
		parts = append(parts, "FIXED")
	}
	if f.Anon() {
		parts = append(parts, "ANON")
	}
	if len(parts) == 0 {
		return "0"
	}
	return strings.Join(parts, "|")
}

// AccessMode is the mode a backing file was opened with.
type AccessMode uint8

const (
	// ModeRead means the file is open for reading
	ModeRead AccessMode = 1 << iota

	// ModeWrite means the file is open for writing
	ModeWrite

	// ModeAppend means writes always go to the end of the file
	ModeAppend
)

// ModeReadWrite is the mode of a file opened O_RDWR.
const ModeReadWrite = ModeRead | ModeWrite

// CanRead reports whether the file is open for reading.
func (m AccessMode) CanRead() bool { return m&ModeRead != 0 }

// CanWrite reports whether the file is open for writing.
func (m AccessMode) CanWrite() bool { return m&ModeWrite != 0 }

// AppendOnly reports whether the file was opened for appending.
func (m AccessMode) AppendOnly() bool { return m&ModeAppend != 0 }

func (m AccessMode) String() string {
	var b strings.Builder
	if m.CanRead() {
		b.WriteByte('r')
	}
	if m.CanWrite() {
		b.WriteByte('w')
	}
	if m.AppendOnly() {
		b.WriteByte('a')
	}
	if b.Len() == 0 {
		return "-"
	}
	return b.String()
}

// Direction tells the address-space mapper where to place a mapping whose
// address it is free to choose.
type Direction int

const (
	// DirHiLo places new mappings at the highest free range
	DirHiLo Direction = iota

	// DirLoHi places new mappings at the lowest free range
	DirLoHi
)

func (d Direction) String() string {
	if d == DirLoHi {
		return "lohi"
	}
	return "hilo"
}

// Layout describes the user-addressable region of an address space,
// [UserLow, UserHigh). Both bounds are page aligned.
type Layout struct {
	UserLow  Addr
	UserHigh Addr
}

// DefaultLayout is the region used when no configuration overrides it.
var DefaultLayout = Layout{
	UserLow:  0x400000,
	UserHigh: 0x800000000000,
}

// Size returns the number of bytes in the user region.
func (l Layout) Size() uint64 {
	return uint64(l.UserHigh - l.UserLow)
}

// LowPage returns the first page number of the user region.
func (l Layout) LowPage() uint64 { return l.UserLow.PageNumber() }

// HighPage returns the page number one past the end of the user region.
func (l Layout) HighPage() uint64 { return l.UserHigh.PageNumber() }

// Contains reports whether [addr, addr+length) lies entirely inside the
// user region without wrapping, and length is smaller than the region.
func (l Layout) Contains(addr Addr, length uint64) bool {
	if addr < l.UserLow || addr >= l.UserHigh {
		return false
	}
	if length >= l.Size() {
		return false
	}
	end, ok := addr.AddLength(length)
	if !ok {
		return false
	}
	return end >= l.UserLow && end <= l.UserHigh
}

// ContainsPages reports whether the npages pages starting at start lie
// inside the user region.
func (l Layout) ContainsPages(start, npages uint64) bool {
	end := start + npages
	if end < start {
		return false
	}
	return start >= l.LowPage() && end <= l.HighPage()
}
