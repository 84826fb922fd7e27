package tlb

import (
	"fmt"
	"sync"

	"github.com/Giulio2002/mman"
)

// Kind identifies an invalidation primitive.
type Kind int

const (
	Page Kind = iota
	Range
	All
)

func (k Kind) String() string {
	switch k {
	case Page:
		return kindPage
	case Range:
		return kindRange
	default:
		return kindAll
	}
}

// Call is one recorded invalidation.
type Call struct {
	Kind  Kind
	Addr  mman.Addr
	Pages uint64
}

func (c Call) String() string {
	switch c.Kind {
	case Page:
		return fmt.Sprintf("page(%s)", c.Addr)
	case Range:
		return fmt.Sprintf("range(%s, %d)", c.Addr, c.Pages)
	default:
		return "all()"
	}
}

// Recorder is an Invalidator that records every call and optionally
// forwards it. Tests use it to observe the invalidation protocol.
type Recorder struct {
	Next mman.Invalidator

	mu    sync.Mutex
	calls []Call
}

func (r *Recorder) record(c Call) {
	r.mu.Lock()
	r.calls = append(r.calls, c)
	r.mu.Unlock()
}

func (r *Recorder) InvalidatePage(vaddr mman.Addr) {
	r.record(Call{Kind: Page, Addr: vaddr, Pages: 1})
	if r.Next != nil {
		r.Next.InvalidatePage(vaddr)
	}
}

func (r *Recorder) InvalidateRange(vaddr mman.Addr, npages uint64) {
	r.record(Call{Kind: Range, Addr: vaddr, Pages: npages})
	if r.Next != nil {
		r.Next.InvalidateRange(vaddr, npages)
	}
}

func (r *Recorder) InvalidateAll() {
	r.record(Call{Kind: All})
	if r.Next != nil {
		r.Next.InvalidateAll()
	}
}

// Calls returns a copy of the recorded calls.
func (r *Recorder) Calls() []Call {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]Call, len(r.calls))
	copy(out, r.calls)
	return out
}

// Reset forgets all recorded calls.
func (r *Recorder) Reset() {
	r.mu.Lock()
	r.calls = nil
	r.mu.Unlock()
}
