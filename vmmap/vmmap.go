// Package vmmap is the area list of a process address space: an ordered
// set of non-overlapping page ranges, each mapping a memory object.
//
// Map implements mman.AddressSpace. It chooses addresses for non-fixed
// mappings, replaces overlapped areas for fixed ones, and splits areas that
// a removal only partly covers.
package vmmap

import (
	"fmt"
	"strings"

	"github.com/emirpasic/gods/maps/treemap"
	"github.com/emirpasic/gods/utils"

	"github.com/Giulio2002/mman"
)

// Area is one reservation: npages pages starting at page start.
type Area struct {
	start  uint64
	npages uint64
	prot   mman.Prot
	flags  mman.MapFlags
	pgoff  uint64 // offset into obj, in pages
	obj    Object
}

// StartPage returns the first page number.
func (a *Area) StartPage() uint64 { return a.start }

// EndPage returns the page number one past the last page.
func (a *Area) EndPage() uint64 { return a.start + a.npages }

// Pages returns the number of pages.
func (a *Area) Pages() uint64 { return a.npages }

// Prot returns the protection the area was mapped with.
func (a *Area) Prot() mman.Prot { return a.prot }

// Flags returns the mapping flags the area was mapped with.
func (a *Area) Flags() mman.MapFlags { return a.flags }

// Offset returns the byte offset of the area's first page in its object.
func (a *Area) Offset() int64 { return int64(a.pgoff << mman.PageShift) }

// Object returns the mapped memory object.
func (a *Area) Object() Object { return a.obj }

func (a *Area) String() string {
	share := 'p'
	if a.flags.Shared() {
		share = 's'
	}
	return fmt.Sprintf("%012x-%012x %s%c %08x %s",
		uint64(mman.PageAddr(a.start)), uint64(mman.PageAddr(a.EndPage())),
		a.prot, share, a.Offset(), a.obj.Name())
}

type nopInvalidator struct{}

func (nopInvalidator) InvalidatePage(mman.Addr)           {}
func (nopInvalidator) InvalidateRange(mman.Addr, uint64) {}
func (nopInvalidator) InvalidateAll()                    {}

// Map is the area list of one address space. It is not safe for concurrent
// use; callers serialize access.
type Map struct {
	areas  *treemap.Map // start page -> *Area
	layout mman.Layout
	tlb    mman.Invalidator
}

// New creates an empty map covering layout. Pages removed from the map are
// invalidated through inv, which may be nil.
func New(layout mman.Layout, inv mman.Invalidator) *Map {
	if inv == nil {
		inv = nopInvalidator{}
	}
	return &Map{
		areas:  treemap.NewWith(utils.UInt64Comparator),
		layout: layout,
		tlb:    inv,
	}
}

// Layout returns the user region the map covers.
func (m *Map) Layout() mman.Layout { return m.layout }

// Len returns the number of areas.
func (m *Map) Len() int { return m.areas.Size() }

// Areas returns the areas in address order.
func (m *Map) Areas() []*Area {
	out := make([]*Area, 0, m.areas.Size())
	it := m.areas.Iterator()
	for it.Next() {
		out = append(out, it.Value().(*Area))
	}
	return out
}

// MappedPages returns the total number of reserved pages.
func (m *Map) MappedPages() uint64 {
	var n uint64
	it := m.areas.Iterator()
	for it.Next() {
		n += it.Value().(*Area).npages
	}
	return n
}

// Lookup returns the area containing page vpn, or nil.
func (m *Map) Lookup(vpn uint64) *Area {
	_, v := m.areas.Floor(vpn)
	if v == nil {
		return nil
	}
	a := v.(*Area)
	if a.EndPage() <= vpn {
		return nil
	}
	return a
}

// overlapping returns the areas intersecting [start, end) in address order.
func (m *Map) overlapping(start, end uint64) []*Area {
	var out []*Area
	it := m.areas.Iterator()
	for it.Next() {
		a := it.Value().(*Area)
		if a.start >= end {
			break
		}
		if a.EndPage() > start {
			out = append(out, a)
		}
	}
	return out
}

// IsRangeEmpty reports whether no area intersects the npages pages starting
// at start.
func (m *Map) IsRangeEmpty(start, npages uint64) bool {
	return len(m.overlapping(start, start+npages)) == 0
}

// FindRange returns the start of a free run of npages pages inside the
// user region: the highest such run for DirHiLo, the lowest for DirLoHi.
func (m *Map) FindRange(npages uint64, dir mman.Direction) (uint64, bool) {
	lo, hi := m.layout.LowPage(), m.layout.HighPage()
	if npages == 0 || npages > hi-lo {
		return 0, false
	}

	if dir == mman.DirLoHi {
		prev := lo
		it := m.areas.Iterator()
		for it.Next() {
			a := it.Value().(*Area)
			if a.start >= prev+npages {
				return prev, true
			}
			if a.EndPage() > prev {
				prev = a.EndPage()
			}
		}
		if prev <= hi && hi-prev >= npages {
			return prev, true
		}
		return 0, false
	}

	next := hi
	it := m.areas.Iterator()
	it.End()
	for it.Prev() {
		a := it.Value().(*Area)
		if a.EndPage()+npages <= next {
			return next - npages, true
		}
		if a.start < next {
			next = a.start
		}
	}
	if next >= lo+npages {
		return next - npages, true
	}
	return 0, false
}

// Map reserves pr.Count() pages for backing (nil for anonymous memory).
//
// With MapFixed the reservation starts at pr.Start() and anything already
// mapped there is removed first. Otherwise pr.Start() is used when it is
// non-zero and the range is free, and a range is searched for in direction
// dir when it is not.
func (m *Map) Map(backing mman.BackingObject, pr mman.PageRange, prot mman.Prot, flags mman.MapFlags, off int64, dir mman.Direction) (mman.Area, error) {
	npages := pr.Count()
	if npages == 0 {
		return nil, mman.Errorf(mman.ErrInvalidArgument, "empty range")
	}
	if off < 0 || !mman.IsOffsetAligned(off) {
		return nil, mman.Errorf(mman.ErrInvalidArgument, "bad offset %d", off)
	}

	var start uint64
	switch {
	case flags.Fixed():
		if pr.Start() == 0 || !m.layout.ContainsPages(pr.Start(), npages) {
			return nil, mman.Errorf(mman.ErrInvalidArgument, "fixed range %s outside user region", pr)
		}
		start = pr.Start()
	case pr.Start() != 0 && m.layout.ContainsPages(pr.Start(), npages) && m.IsRangeEmpty(pr.Start(), npages):
		start = pr.Start()
	default:
		s, ok := m.FindRange(npages, dir)
		if !ok {
			return nil, mman.Errorf(mman.ErrNoMemory, "no free range of %d pages", npages)
		}
		start = s
	}

	obj, err := memoryObject(backing)
	if err != nil {
		return nil, err
	}

	if flags.Fixed() {
		m.unmap(start, npages)
	}

	a := &Area{
		start:  start,
		npages: npages,
		prot:   prot,
		flags:  flags,
		pgoff:  uint64(off) >> mman.PageShift,
		obj:    obj,
	}
	m.areas.Put(start, a)
	return a, nil
}

func memoryObject(backing mman.BackingObject) (Object, error) {
	if backing == nil {
		return NewAnon(), nil
	}
	src, ok := backing.(Source)
	if !ok || !backing.Mappable() {
		return nil, mman.ErrNoDeviceError
	}
	return src.MemoryObject()
}

// Remove unmaps every page of pr, splitting areas that straddle its
// bounds, and invalidates the translation cache for pr. Removing a range
// that contains no mapped page fails with ErrNoMemory.
func (m *Map) Remove(pr mman.PageRange) error {
	if !m.layout.ContainsPages(pr.Start(), pr.Count()) {
		return mman.Errorf(mman.ErrInvalidArgument, "range %s outside user region", pr)
	}
	if m.unmap(pr.Start(), pr.Count()) == 0 {
		return mman.Errorf(mman.ErrNoMemory, "range %s not mapped", pr)
	}
	return nil
}

// unmap removes [start, start+npages) from the map and returns the number
// of pages that were mapped there.
func (m *Map) unmap(start, npages uint64) uint64 {
	end := start + npages
	var removed uint64
	for _, a := range m.overlapping(start, end) {
		aEnd := a.EndPage()
		switch {
		case a.start >= start && aEnd <= end:
			// wholly inside
			m.areas.Remove(a.start)
			a.obj.Put()
			removed += a.npages
		case a.start < start && aEnd > end:
			// range is strictly inside the area: keep both ends
			right := &Area{
				start:  end,
				npages: aEnd - end,
				prot:   a.prot,
				flags:  a.flags,
				pgoff:  a.pgoff + (end - a.start),
				obj:    a.obj,
			}
			a.obj.Ref()
			a.npages = start - a.start
			m.areas.Put(right.start, right)
			metricSplits.Inc()
			removed += npages
		case a.start < start:
			// range covers the tail
			removed += aEnd - start
			a.npages = start - a.start
		default:
			// range covers the head
			removed += end - a.start
			m.areas.Remove(a.start)
			a.pgoff += end - a.start
			a.npages = aEnd - end
			a.start = end
			m.areas.Put(a.start, a)
		}
	}
	if removed > 0 {
		m.tlb.InvalidateRange(mman.PageAddr(start), npages)
	}
	return removed
}

// Clone returns a copy of the map whose areas share memory objects with
// m. The copy invalidates through inv.
func (m *Map) Clone(inv mman.Invalidator) *Map {
	c := New(m.layout, inv)
	it := m.areas.Iterator()
	for it.Next() {
		a := *it.Value().(*Area)
		a.obj.Ref()
		c.areas.Put(a.start, &a)
	}
	return c
}

// Destroy drops every area and the references they hold.
func (m *Map) Destroy() {
	it := m.areas.Iterator()
	for it.Next() {
		it.Value().(*Area).obj.Put()
	}
	m.areas.Clear()
}

// String returns the map in /proc/<pid>/maps form.
func (m *Map) String() string {
	var b strings.Builder
	it := m.areas.Iterator()
	for it.Next() {
		b.WriteString(it.Value().(*Area).String())
		b.WriteByte('\n')
	}
	return b.String()
}

var _ mman.AddressSpace = (*Map)(nil)
