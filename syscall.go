package mman

// Mmap is the mmap(2) entry point. It returns the mapped address, or a
// negated errno on failure.
func Mmap(ctx *Context, addr Addr, length uint64, prot Prot, flags MapFlags, fd int, off int64) int64 {
	a, err := DoMmap(ctx, Request{
		Addr:   addr,
		Length: length,
		Prot:   prot,
		Flags:  flags,
		FD:     fd,
		Offset: off,
	})
	if err != nil {
		return int64(Code(err))
	}
	return int64(a)
}

// Munmap is the munmap(2) entry point. It returns 0, or a negated errno on
// failure.
func Munmap(ctx *Context, addr Addr, length uint64) int64 {
	return int64(Code(DoMunmap(ctx, addr, length)))
}
