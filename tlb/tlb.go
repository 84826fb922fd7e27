// Package tlb provides a software translation cache and the invalidation
// primitives the mapping layer drives.
//
// Cache holds a bounded number of virtual-page translations in LRU order.
// All invalidation is local to the cache; there is no cross-CPU shootdown.
package tlb

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/Giulio2002/mman"
)

// Entry is one cached translation.
type Entry struct {
	VPN   uint64    // virtual page number
	Frame uint64    // physical frame number
	Prot  mman.Prot // permissions the translation was installed with
}

// Cache is a software translation cache. It is safe for concurrent use.
type Cache struct {
	entries *lru.Cache[uint64, Entry]
}

// New creates a cache holding at most size translations.
func New(size int) (*Cache, error) {
	if size <= 0 {
		return nil, fmt.Errorf("tlb: invalid size %d", size)
	}
	entries, err := lru.New[uint64, Entry](size)
	if err != nil {
		return nil, fmt.Errorf("tlb: %w", err)
	}
	return &Cache{entries: entries}, nil
}

// Insert caches the translation of the page containing vaddr.
func (c *Cache) Insert(vaddr mman.Addr, frame uint64, prot mman.Prot) {
	vpn := vaddr.PageNumber()
	c.entries.Add(vpn, Entry{VPN: vpn, Frame: frame, Prot: prot})
}

// Lookup returns the cached translation of the page containing vaddr.
func (c *Cache) Lookup(vaddr mman.Addr) (Entry, bool) {
	return c.entries.Get(vaddr.PageNumber())
}

// Len returns the number of cached translations.
func (c *Cache) Len() int {
	return c.entries.Len()
}

// InvalidatePage drops the translation of the page containing vaddr.
func (c *Cache) InvalidatePage(vaddr mman.Addr) {
	metricInvalidations.WithLabelValues(kindPage).Inc()
	if c.entries.Remove(vaddr.PageNumber()) {
		metricDroppedEntries.Inc()
	}
}

// InvalidateRange drops the translations of npages pages starting at the
// page containing vaddr.
func (c *Cache) InvalidateRange(vaddr mman.Addr, npages uint64) {
	metricInvalidations.WithLabelValues(kindRange).Inc()
	start := vaddr.PageNumber()
	end := start + npages
	if end < start {
		end = ^uint64(0)
	}

	// Walk whichever is smaller, the range or the cache.
	if npages <= uint64(c.entries.Len()) {
		for vpn := start; vpn < end; vpn++ {
			if c.entries.Remove(vpn) {
				metricDroppedEntries.Inc()
			}
		}
		return
	}
	for _, vpn := range c.entries.Keys() {
		if vpn >= start && vpn < end && c.entries.Remove(vpn) {
			metricDroppedEntries.Inc()
		}
	}
}

// InvalidateAll drops every translation.
func (c *Cache) InvalidateAll() {
	metricInvalidations.WithLabelValues(kindAll).Inc()
	metricDroppedEntries.Add(float64(c.entries.Len()))
	c.entries.Purge()
}

var _ mman.Invalidator = (*Cache)(nil)
