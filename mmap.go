package mman

import (
	"github.com/rs/zerolog"
)

// Context is everything a request operates on. It replaces the implicit
// "current process": one Context per address space, passed to every call.
type Context struct {
	Space  AddressSpace
	Files  FileTable
	TLB    Invalidator
	Layout Layout
	Log    zerolog.Logger
}

// DoMmap adds a mapping to ctx.Space and returns the address of its first
// byte.
//
// The translation cache is invalidated for exactly the reserved pages
// before DoMmap returns: the range may reuse virtual addresses whose old
// translations are still cached. Errors from the address space are
// returned unchanged.
func DoMmap(ctx *Context, req Request) (addr Addr, err error) {
	defer func() {
		metricMmapCalls.WithLabelValues(Code(err).Name()).Inc()
	}()

	b, err := resolveBacking(ctx.Files, req.FD, req.Flags)
	if err != nil {
		ctx.Log.Debug().Object("req", req).Err(err).Msg("mmap: resolve failed")
		return 0, err
	}
	defer b.release()

	if err := validateMap(ctx.Layout, req, b.obj); err != nil {
		ctx.Log.Debug().Object("req", req).Err(err).Msg("mmap: rejected")
		return 0, err
	}

	pr, ok := NewPageRange(req.Addr, req.Length)
	if !ok {
		// Only a non-fixed hint can get here; fixed ranges were checked
		// above. Let the mapper choose instead.
		pr, ok = NewPageRange(0, req.Length)
		if !ok {
			return 0, ErrNoMemoryError
		}
	}

	area, err := ctx.Space.Map(b.obj, pr, req.Prot, req.Flags, req.Offset, DirHiLo)
	if err != nil {
		ctx.Log.Warn().Object("req", req).Err(err).Msg("mmap: address space refused mapping")
		return 0, err
	}

	addr = PageAddr(area.StartPage())
	ctx.TLB.InvalidateRange(addr, pr.Count())
	metricMappedPages.Add(float64(pr.Count()))

	ctx.Log.Debug().Object("req", req).Stringer("addr", addr).Uint64("pages", pr.Count()).Msg("mmap")
	return addr, nil
}

// DoMunmap removes every mapping in [addr, addr+length). The page range is
// handed to ctx.Space, which also owns the translation-cache invalidation
// for it; its result is returned unchanged.
func DoMunmap(ctx *Context, addr Addr, length uint64) (err error) {
	defer func() {
		metricMunmapCalls.WithLabelValues(Code(err).Name()).Inc()
	}()

	if err := validateUnmap(ctx.Layout, addr, length); err != nil {
		ctx.Log.Debug().Stringer("addr", addr).Uint64("length", length).Err(err).Msg("munmap: rejected")
		return err
	}

	pr, ok := NewPageRange(addr, length)
	if !ok {
		return ErrInvalidArgumentError
	}
	if err := ctx.Space.Remove(pr); err != nil {
		ctx.Log.Debug().Stringer("range", pr).Err(err).Msg("munmap: address space refused removal")
		return err
	}
	ctx.Log.Debug().Stringer("range", pr).Msg("munmap")
	return nil
}
