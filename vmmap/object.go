package vmmap

import (
	"fmt"
	"sync/atomic"
)

// Object is the memory object an area maps: anonymous memory or the pages
// of a file. Areas hold one reference each.
type Object interface {
	Ref()
	Put()
	Name() string
}

// Source is implemented by backing objects that can supply a memory
// object, i.e. files whose type supports mmap.
type Source interface {
	MemoryObject() (Object, error)
}

var anonIDs atomic.Uint64

// Anon is anonymous, zero-filled memory.
type Anon struct {
	id   uint64
	refs atomic.Int32
}

// NewAnon returns an anonymous object with one reference.
func NewAnon() *Anon {
	a := &Anon{id: anonIDs.Add(1)}
	a.refs.Store(1)
	return a
}

func (a *Anon) Ref() { a.refs.Add(1) }

func (a *Anon) Put() {
	if a.refs.Add(-1) < 0 {
		panic(fmt.Sprintf("vmmap: anon object %d released too many times", a.id))
	}
}

// Refs returns the current reference count.
func (a *Anon) Refs() int32 { return a.refs.Load() }

func (a *Anon) Name() string { return "[anon]" }
