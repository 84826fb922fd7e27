package vfs

import (
	"sync"

	"github.com/Giulio2002/mman"
)

// DefaultMaxFiles is the number of descriptor slots of a new table.
const DefaultMaxFiles = 32

// Table is a per-process descriptor table. It is safe for concurrent use.
type Table struct {
	mu    sync.Mutex
	files []*File
	slots *slotBitmap
}

// NewTable creates a table with n descriptor slots.
func NewTable(n int) *Table {
	if n <= 0 {
		n = DefaultMaxFiles
	}
	return &Table{
		files: make([]*File, n),
		slots: newSlotBitmap(uint32(n)),
	}
}

// Size returns the number of descriptor slots.
func (t *Table) Size() int { return len(t.files) }

// Install puts f at the lowest free descriptor. The table takes over the
// caller's reference on f.
func (t *Table) Install(f *File) (int, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	slot, ok := t.slots.Allocate()
	if !ok {
		return -1, mman.ErrTooManyFilesError
	}
	t.files[slot] = f
	return int(slot), nil
}

// File returns the file open at fd without taking a reference.
func (t *Table) File(fd int) *File {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.files) {
		return nil
	}
	return t.files[fd]
}

// Get returns the file open at fd with a new reference.
func (t *Table) Get(fd int) (mman.BackingObject, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if fd < 0 || fd >= len(t.files) || t.files[fd] == nil {
		return nil, false
	}
	f := t.files[fd]
	f.Ref()
	return f, true
}

// Put drops a reference taken by Get.
func (t *Table) Put(obj mman.BackingObject) {
	obj.(*File).Put()
}

// Close closes fd.
func (t *Table) Close(fd int) error {
	t.mu.Lock()
	if fd < 0 || fd >= len(t.files) || t.files[fd] == nil {
		t.mu.Unlock()
		return mman.ErrBadDescriptorError
	}
	f := t.files[fd]
	t.files[fd] = nil
	t.slots.Free(uint32(fd))
	t.mu.Unlock()

	f.Put()
	return nil
}

// CloseAll closes every open descriptor.
func (t *Table) CloseAll() {
	for fd := range t.files {
		_ = t.Close(fd)
	}
}

// Open returns the number of open descriptors.
func (t *Table) Open() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return int(t.slots.Count())
}

// Dup returns a copy of the table in which every open file has gained a
// reference, as a child process inherits its parent's descriptors.
func (t *Table) Dup() *Table {
	t.mu.Lock()
	defer t.mu.Unlock()

	c := NewTable(len(t.files))
	for fd, f := range t.files {
		if f == nil {
			continue
		}
		f.Ref()
		c.files[fd] = f
		c.slots.Set(uint32(fd))
	}
	return c
}

var _ mman.FileTable = (*Table)(nil)
