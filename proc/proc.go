// Package proc ties a descriptor table, an address space and a translation
// cache into a process, and serializes mapping requests against it.
package proc

import (
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Giulio2002/mman"
	"github.com/Giulio2002/mman/tlb"
	"github.com/Giulio2002/mman/vfs"
	"github.com/Giulio2002/mman/vmmap"
)

// State is the lifecycle state of a process.
type State int

const (
	Running State = iota
	Dead
)

func (s State) String() string {
	if s == Dead {
		return "dead"
	}
	return "running"
}

// Options configures a new process.
type Options struct {
	Layout     mman.Layout
	MaxFiles   int
	TLBEntries int
	Logger     *zerolog.Logger // defaults to the global logger
}

// DefaultOptions returns the options used when none are given.
func DefaultOptions() Options {
	return Options{
		Layout:     mman.DefaultLayout,
		MaxFiles:   vfs.DefaultMaxFiles,
		TLBEntries: 64,
	}
}

var lastPID atomic.Int64

// Process is a process's memory-management state.
type Process struct {
	// mu serializes every request against the address space; the mapping
	// layer itself takes no locks.
	mu sync.Mutex

	pid    int
	name   string
	parent *Process
	state  State

	opts  Options
	files *vfs.Table
	space *vmmap.Map
	tlb   *tlb.Cache
	log   zerolog.Logger
}

// Create builds a process with an empty address space and descriptor table.
// Zero fields of opts take their DefaultOptions values.
func Create(name string, opts Options) (*Process, error) {
	def := DefaultOptions()
	if opts.Layout == (mman.Layout{}) {
		opts.Layout = def.Layout
	}
	if opts.MaxFiles <= 0 {
		opts.MaxFiles = def.MaxFiles
	}
	if opts.TLBEntries <= 0 {
		opts.TLBEntries = def.TLBEntries
	}
	cache, err := tlb.New(opts.TLBEntries)
	if err != nil {
		return nil, fmt.Errorf("proc: %w", err)
	}
	return newProcess(name, nil, opts, vfs.NewTable(opts.MaxFiles), cache, nil), nil
}

func newProcess(name string, parent *Process, opts Options, files *vfs.Table, cache *tlb.Cache, space *vmmap.Map) *Process {
	if space == nil {
		space = vmmap.New(opts.Layout, cache)
	}
	logger := log.Logger
	if opts.Logger != nil {
		logger = *opts.Logger
	}
	pid := int(lastPID.Add(1))
	p := &Process{
		pid:    pid,
		name:   name,
		parent: parent,
		opts:   opts,
		files:  files,
		space:  space,
		tlb:    cache,
		log:    logger.With().Int("pid", pid).Str("proc", name).Logger(),
	}
	p.log.Debug().Msg("process created")
	return p
}

// PID returns the process id.
func (p *Process) PID() int { return p.pid }

// Name returns the process name.
func (p *Process) Name() string { return p.name }

// Parent returns the process this one was forked from, or nil.
func (p *Process) Parent() *Process { return p.parent }

// State returns the lifecycle state.
func (p *Process) State() State {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.state
}

// Files returns the descriptor table.
func (p *Process) Files() *vfs.Table { return p.files }

// Space returns the address space.
func (p *Process) Space() *vmmap.Map { return p.space }

// TLB returns the translation cache.
func (p *Process) TLB() *tlb.Cache { return p.tlb }

// context returns the explicit request context for p. Callers hold p.mu.
func (p *Process) context() *mman.Context {
	return &mman.Context{
		Space:  p.space,
		Files:  p.files,
		TLB:    p.tlb,
		Layout: p.opts.Layout,
		Log:    p.log,
	}
}

// Open installs a new file on v at the lowest free descriptor.
func (p *Process) Open(v *vfs.Vnode, mode mman.AccessMode) (int, error) {
	f := vfs.Open(v, mode)
	fd, err := p.files.Install(f)
	if err != nil {
		f.Put()
		return -1, err
	}
	return fd, nil
}

// Close closes fd. Areas mapping the file stay valid.
func (p *Process) Close(fd int) error {
	return p.files.Close(fd)
}

// Mmap is mmap(2) for p: the mapped address, or a negated errno.
func (p *Process) Mmap(addr mman.Addr, length uint64, prot mman.Prot, flags mman.MapFlags, fd int, off int64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Dead {
		return int64(mman.ErrInvalidArgument)
	}
	return mman.Mmap(p.context(), addr, length, prot, flags, fd, off)
}

// Munmap is munmap(2) for p: 0 or a negated errno.
func (p *Process) Munmap(addr mman.Addr, length uint64) int64 {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Dead {
		return int64(mman.ErrInvalidArgument)
	}
	return mman.Munmap(p.context(), addr, length)
}

// Fork creates a child with a copy of p's address space and descriptor
// table. Areas share memory objects with the parent; copy-on-write is not
// modelled.
func (p *Process) Fork(name string) (*Process, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Dead {
		return nil, fmt.Errorf("proc: fork of dead process %d", p.pid)
	}

	cache, err := tlb.New(p.opts.TLBEntries)
	if err != nil {
		return nil, fmt.Errorf("proc: %w", err)
	}
	child := newProcess(name, p, p.opts, p.files.Dup(), cache, p.space.Clone(cache))
	p.log.Debug().Int("child", child.pid).Int("areas", child.space.Len()).Msg("forked")
	return child, nil
}

// Cleanup releases everything the process holds: it closes every
// descriptor, destroys the address space and flushes the translation
// cache. Cleanup is idempotent.
func (p *Process) Cleanup() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.state == Dead {
		return
	}
	p.state = Dead
	p.files.CloseAll()
	p.space.Destroy()
	p.tlb.InvalidateAll()
	p.log.Debug().Msg("process cleaned up")
}
