package mman

// BackingObject is a resolved, open file that a mapping may be backed by.
type BackingObject interface {
	// Mode returns the access mode the file was opened with.
	Mode() AccessMode

	// Mappable reports whether the file's type supports mmap at all.
	Mappable() bool
}

// FileTable resolves descriptors to backing objects.
type FileTable interface {
	// Size returns the number of descriptor slots; valid descriptors are
	// [0, Size()).
	Size() int

	// Get returns the file open at fd and takes a reference on it. ok is
	// false if nothing is open at fd.
	Get(fd int) (obj BackingObject, ok bool)

	// Put drops a reference taken by Get.
	Put(obj BackingObject)
}

// Area is a reservation made by an AddressSpace.
type Area interface {
	// StartPage returns the first page number of the reservation.
	StartPage() uint64
}

// AddressSpace is the area list of one process. It owns every reservation
// and validates overlap and placement itself.
type AddressSpace interface {
	// Map reserves pr.Count() pages. With MapFixed the reservation starts
	// at pr.Start() and replaces whatever was there; otherwise pr.Start()
	// is a hint, 0 meaning none, and dir selects where to search.
	Map(obj BackingObject, pr PageRange, prot Prot, flags MapFlags, off int64, dir Direction) (Area, error)

	// Remove drops every reservation inside pr, splitting areas that only
	// partly overlap it. Remove is responsible for invalidating the
	// translation cache for the pages it unmaps.
	Remove(pr PageRange) error
}

// Invalidator drops translation-cache entries.
type Invalidator interface {
	InvalidatePage(vaddr Addr)
	InvalidateRange(vaddr Addr, npages uint64)
	InvalidateAll()
}
