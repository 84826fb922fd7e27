package vfs

import (
	"fmt"
	"sync/atomic"

	"github.com/Giulio2002/mman"
	"github.com/Giulio2002/mman/vmmap"
)

// File is an open file: a vnode plus the mode it was opened with.
// It implements mman.BackingObject and vmmap.Source.
type File struct {
	vnode *Vnode
	mode  mman.AccessMode
	refs  atomic.Int32
}

// Open returns a file on v with one reference. The file takes its own
// reference on v.
func Open(v *Vnode, mode mman.AccessMode) *File {
	v.Ref()
	f := &File{vnode: v, mode: mode}
	f.refs.Store(1)
	return f
}

// Vnode returns the file's vnode.
func (f *File) Vnode() *Vnode { return f.vnode }

// Mode returns the access mode the file was opened with.
func (f *File) Mode() mman.AccessMode { return f.mode }

// Mappable reports whether the file's vnode supports mmap.
func (f *File) Mappable() bool { return f.vnode.Mappable() }

// MemoryObject returns the memory object an area mapping f should hold.
func (f *File) MemoryObject() (vmmap.Object, error) {
	return f.vnode.MemoryObject()
}

// Ref takes a reference.
func (f *File) Ref() { f.refs.Add(1) }

// Put drops a reference. The last one releases the vnode.
func (f *File) Put() {
	n := f.refs.Add(-1)
	switch {
	case n == 0:
		f.vnode.Put()
	case n < 0:
		panic(fmt.Sprintf("vfs: file %s released too many times", f.vnode.name))
	}
}

// Refs returns the current reference count.
func (f *File) Refs() int32 { return f.refs.Load() }

func (f *File) String() string {
	return fmt.Sprintf("%s(%s, %s)", f.vnode.kind, f.vnode.name, f.mode)
}

var (
	_ mman.BackingObject = (*File)(nil)
	_ vmmap.Source       = (*File)(nil)
)
