// Package mman implements the mmap/munmap request layer of a process's
// virtual address space.
//
// The package validates byte-granular user requests, converts them into
// page-granular reservations, delegates the reservation itself to an
// AddressSpace implementation, and invalidates the translation cache for the
// newly reserved pages before the mapping is reported to the caller.
//
// Everything the layer touches is passed in explicitly through a Context:
//
//	ctx := &mman.Context{
//	    Space:  vmmap.New(mman.DefaultLayout, cache),
//	    Files:  vfs.NewTable(32),
//	    TLB:    cache,
//	    Layout: mman.DefaultLayout,
//	}
//
//	addr := mman.Mmap(ctx, 0, 4096, mman.ProtRead, mman.MapPrivate|mman.MapAnon, -1, 0)
//	if addr < 0 {
//	    // addr is -errno
//	}
//
//	if rc := mman.Munmap(ctx, mman.Addr(addr), 4096); rc != 0 {
//	    // rc is -errno
//	}
//
// The layer takes no locks. Callers must serialize requests against one
// address space; proc.Process does this with a per-process mutex.
//
// Mapping proceeds strictly in the order resolve, validate, reserve,
// invalidate. A request rejected by validation never reaches the address
// space, and the reference taken on the backing file is released on every
// return path.
package mman
