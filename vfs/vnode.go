// Package vfs provides the file side of mapping requests: vnodes with or
// without a mapping capability, reference-counted open files, and the
// per-process descriptor table.
package vfs

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"

	"github.com/Giulio2002/mman"
	"github.com/Giulio2002/mman/hostmap"
	"github.com/Giulio2002/mman/vmmap"
)

// Kind is the type of a vnode.
type Kind uint8

const (
	KindRegular Kind = iota
	KindPipe
	KindCharDev
)

func (k Kind) String() string {
	switch k {
	case KindRegular:
		return "regular"
	case KindPipe:
		return "pipe"
	default:
		return "chardev"
	}
}

// Vnode is a file system object. Its mmap operation, when present, supplies
// the memory object an area maps; a vnode without one cannot be mapped.
type Vnode struct {
	name string
	kind Kind
	mmap func(v *Vnode) (vmmap.Object, error)

	refs atomic.Int32

	// host backing, regular files from OpenHost only
	mu       sync.Mutex
	hostPath string
	hostRW   bool
	host     *hostObject
}

// NewRegular returns an in-memory regular file. Its areas map the vnode
// itself.
func NewRegular(name string) *Vnode {
	return newVnode(name, KindRegular, selfObject)
}

// NewHost returns a regular file backed by the host file at path. The host
// file is mapped when the first area maps the vnode and unmapped when the
// last such area goes away. writable selects a read/write host mapping.
func NewHost(path string, writable bool) *Vnode {
	v := newVnode(path, KindRegular, hostMemoryObject)
	v.hostPath = path
	v.hostRW = writable
	return v
}

// NewPipe returns a pipe end. Pipes cannot be mapped.
func NewPipe(name string) *Vnode {
	return newVnode(name, KindPipe, nil)
}

// NewNull returns the null device. It cannot be mapped.
func NewNull() *Vnode {
	return newVnode("/dev/null", KindCharDev, nil)
}

// NewZero returns the zero device. Every mapping of it gets fresh
// anonymous memory.
func NewZero() *Vnode {
	return newVnode("/dev/zero", KindCharDev, func(*Vnode) (vmmap.Object, error) {
		return vmmap.NewAnon(), nil
	})
}

func newVnode(name string, kind Kind, mmap func(*Vnode) (vmmap.Object, error)) *Vnode {
	v := &Vnode{name: name, kind: kind, mmap: mmap}
	v.refs.Store(1)
	return v
}

// Name returns the vnode's name.
func (v *Vnode) Name() string { return v.name }

// Kind returns the vnode's type.
func (v *Vnode) Kind() Kind { return v.kind }

// Mappable reports whether the vnode has an mmap operation.
func (v *Vnode) Mappable() bool { return v.mmap != nil }

// Ref takes a reference.
func (v *Vnode) Ref() { v.refs.Add(1) }

// Put drops a reference.
func (v *Vnode) Put() {
	if v.refs.Add(-1) < 0 {
		panic(fmt.Sprintf("vfs: vnode %s released too many times", v.name))
	}
}

// Refs returns the current reference count.
func (v *Vnode) Refs() int32 { return v.refs.Load() }

// HostMapped reports whether the host file behind v is currently mapped.
func (v *Vnode) HostMapped() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.host != nil && v.host.m != nil && v.host.m.Mapped()
}

// MemoryObject runs the vnode's mmap operation. The returned object carries
// one reference for the caller.
func (v *Vnode) MemoryObject() (vmmap.Object, error) {
	if v.mmap == nil {
		return nil, mman.ErrNoDeviceError
	}
	return v.mmap(v)
}

func selfObject(v *Vnode) (vmmap.Object, error) {
	v.Ref()
	return v, nil
}

// hostObject is the memory object of a host-backed vnode. All areas
// mapping the vnode share it.
type hostObject struct {
	v    *Vnode
	m    *hostmap.Map // nil for an empty host file
	refs int          // guarded by v.mu
}

func hostMemoryObject(v *Vnode) (vmmap.Object, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if v.host != nil {
		v.host.refs++
		return v.host, nil
	}

	m, err := hostmap.MapFile(v.hostPath, v.hostRW)
	if err != nil && !errors.Is(err, hostmap.ErrEmptyFile) {
		return nil, mman.WrapError(mman.ErrIO, err)
	}
	v.host = &hostObject{v: v, m: m, refs: 1}
	v.Ref()
	return v.host, nil
}

func (o *hostObject) Ref() {
	o.v.mu.Lock()
	o.refs++
	o.v.mu.Unlock()
}

func (o *hostObject) Put() {
	o.v.mu.Lock()
	o.refs--
	last := o.refs == 0
	if last {
		o.v.host = nil
	}
	o.v.mu.Unlock()

	if !last {
		return
	}
	if o.m != nil {
		if o.m.Writable() {
			if err := o.m.Sync(); err != nil {
				log.Warn().Err(err).Str("path", o.m.Path()).Msg("vfs: flushing host mapping")
			}
		}
		if err := o.m.Close(); err != nil {
			log.Warn().Err(err).Str("path", o.m.Path()).Msg("vfs: unmapping host file")
		}
	}
	o.v.Put()
}

func (o *hostObject) Name() string { return o.v.name }
