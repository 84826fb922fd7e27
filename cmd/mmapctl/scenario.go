package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/Giulio2002/mman"
	"github.com/Giulio2002/mman/internal/journal"
	"github.com/Giulio2002/mman/proc"
	"github.com/Giulio2002/mman/vfs"
)

// Scenario is a scripted sequence of mapping calls against one or more
// processes. Files are opened in the first process before any step runs,
// so forked children inherit them at the same descriptors.
type Scenario struct {
	Name  string     `yaml:"name"`
	Files []FileSpec `yaml:"files"`
	Steps []Step     `yaml:"steps"`
}

// FileSpec describes a file to open.
type FileSpec struct {
	Name string `yaml:"name"`
	// regular, host, pipe, null or zero
	Kind string `yaml:"kind"`
	// host file path, kind host only
	Path string `yaml:"path"`
	// any of r, w and a
	Mode string `yaml:"mode"`
}

// Step is one call. Addr accepts a number or $var, optionally followed by
// +offset, where var was stored by an earlier step's Save.
type Step struct {
	Proc   string `yaml:"proc"`
	Op     string `yaml:"op"`
	Addr   string `yaml:"addr"`
	Length uint64 `yaml:"length"`
	Prot   string `yaml:"prot"`
	Flags  string `yaml:"flags"`
	File   string `yaml:"file"`
	FD     *int   `yaml:"fd"`
	Offset int64  `yaml:"offset"`
	Child  string `yaml:"child"`
	Save   string `yaml:"save"`
	Expect string `yaml:"expect"`
}

// LoadScenario parses the scenario file at path.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseScenario(data)
}

// ParseScenario parses a YAML scenario.
func ParseScenario(data []byte) (*Scenario, error) {
	var s Scenario
	if err := yaml.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("scenario: %w", err)
	}
	if len(s.Steps) == 0 {
		return nil, fmt.Errorf("scenario %q: no steps", s.Name)
	}
	return &s, nil
}

// StepResult is the outcome of one step.
type StepResult struct {
	Index  int
	Proc   string
	Call   string
	Result int64
	Err    error
	OK     bool
}

func (r StepResult) String() string {
	status := "ok"
	if !r.OK {
		status = "FAIL"
	}
	res := fmt.Sprintf("%#x", r.Result)
	if r.Result < 0 {
		res = mman.ErrorCode(r.Result).Name()
	}
	if r.Err != nil {
		res = r.Err.Error()
	}
	return fmt.Sprintf("%3d %-4s [%s] %s = %s", r.Index, status, r.Proc, r.Call, res)
}

// Runner executes scenarios.
type Runner struct {
	Options proc.Options
	Journal *journal.Journal
	Out     io.Writer

	procs map[string]*proc.Process
	order []string
	fds   map[string]int
	vars  map[string]mman.Addr
}

const mainProc = "main"

// Run executes s and reports every step. It fails only when the scenario
// itself is malformed; unmet expectations are reported as results with OK
// unset.
func (r *Runner) Run(s *Scenario) ([]StepResult, error) {
	if r.Out == nil {
		r.Out = io.Discard
	}
	r.procs = map[string]*proc.Process{}
	r.order = nil
	r.fds = map[string]int{}
	r.vars = map[string]mman.Addr{}

	p, err := proc.Create(mainProc, r.Options)
	if err != nil {
		return nil, err
	}
	r.addProc(mainProc, p)

	for _, fs := range s.Files {
		fd, err := r.open(p, fs)
		if err != nil {
			return nil, fmt.Errorf("file %q: %w", fs.Name, err)
		}
		r.fds[fs.Name] = fd
	}

	results := make([]StepResult, 0, len(s.Steps))
	for i, st := range s.Steps {
		res, err := r.step(i+1, st)
		if err != nil {
			return results, fmt.Errorf("step %d: %w", i+1, err)
		}
		fmt.Fprintln(r.Out, res)
		results = append(results, res)
	}
	return results, nil
}

// Processes returns the scenario's processes in creation order.
func (r *Runner) Processes() []*proc.Process {
	out := make([]*proc.Process, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.procs[name])
	}
	return out
}

// Cleanup tears down every process of the last run.
func (r *Runner) Cleanup() {
	for _, p := range r.Processes() {
		p.Cleanup()
	}
}

func (r *Runner) addProc(name string, p *proc.Process) {
	r.procs[name] = p
	r.order = append(r.order, name)
}

func (r *Runner) open(p *proc.Process, fs FileSpec) (int, error) {
	mode, err := parseMode(fs.Mode)
	if err != nil {
		return -1, err
	}
	var v *vfs.Vnode
	switch fs.Kind {
	case "", "regular":
		v = vfs.NewRegular(fs.Name)
	case "host":
		if fs.Path == "" {
			return -1, fmt.Errorf("host file needs a path")
		}
		v = vfs.NewHost(fs.Path, mode.CanWrite())
	case "pipe":
		v = vfs.NewPipe(fs.Name)
	case "null":
		v = vfs.NewNull()
	case "zero":
		v = vfs.NewZero()
	default:
		return -1, fmt.Errorf("unknown kind %q", fs.Kind)
	}
	// The process holds the vnode through the open file from here on.
	defer v.Put()
	return p.Open(v, mode)
}

func (r *Runner) step(idx int, st Step) (StepResult, error) {
	name := st.Proc
	if name == "" {
		name = mainProc
	}
	p, ok := r.procs[name]
	if !ok {
		return StepResult{}, fmt.Errorf("unknown process %q", name)
	}
	res := StepResult{Index: idx, Proc: name}

	switch st.Op {
	case "mmap":
		addr, err := r.addr(st.Addr)
		if err != nil {
			return res, err
		}
		prot, err := parseProt(st.Prot)
		if err != nil {
			return res, err
		}
		flags, err := parseFlags(st.Flags)
		if err != nil {
			return res, err
		}
		fd, err := r.fd(st)
		if err != nil {
			return res, err
		}
		res.Call = mman.Request{Addr: addr, Length: st.Length, Prot: prot, Flags: flags, FD: fd, Offset: st.Offset}.String()
		res.Result = p.Mmap(addr, st.Length, prot, flags, fd, st.Offset)
		r.journal(journal.Entry{PID: p.PID(), Op: "mmap", Addr: uint64(addr), Length: st.Length,
			Prot: prot.String(), Flags: flags.String(), FD: fd, Offset: st.Offset, Result: res.Result})
		if st.Save != "" && res.Result >= 0 {
			r.vars[st.Save] = mman.Addr(res.Result)
		}
	case "munmap":
		addr, err := r.addr(st.Addr)
		if err != nil {
			return res, err
		}
		res.Call = fmt.Sprintf("munmap(%s, %d)", addr, st.Length)
		res.Result = p.Munmap(addr, st.Length)
		r.journal(journal.Entry{PID: p.PID(), Op: "munmap", Addr: uint64(addr), Length: st.Length, Result: res.Result})
	case "fork":
		if st.Child == "" {
			return res, fmt.Errorf("fork needs a child name")
		}
		if _, dup := r.procs[st.Child]; dup {
			return res, fmt.Errorf("process %q already exists", st.Child)
		}
		res.Call = fmt.Sprintf("fork(%s)", st.Child)
		child, err := p.Fork(st.Child)
		if err != nil {
			res.Err = err
			res.Result = int64(mman.Code(err))
			break
		}
		r.addProc(st.Child, child)
		res.Result = int64(child.PID())
	case "close":
		fd, err := r.fd(st)
		if err != nil {
			return res, err
		}
		res.Call = fmt.Sprintf("close(%d)", fd)
		res.Result = int64(mman.Code(p.Close(fd)))
	case "exit":
		res.Call = "exit()"
		p.Cleanup()
	default:
		return res, fmt.Errorf("unknown op %q", st.Op)
	}

	res.OK = expectMet(st.Expect, res.Result)
	return res, nil
}

func (r *Runner) journal(e journal.Entry) {
	if r.Journal == nil {
		return
	}
	if _, err := r.Journal.Append(e); err != nil {
		fmt.Fprintf(r.Out, "journal: %v\n", err)
	}
}

// fd resolves a step's descriptor: an explicit fd, a file name, or -1.
func (r *Runner) fd(st Step) (int, error) {
	if st.FD != nil {
		return *st.FD, nil
	}
	if st.File == "" {
		return -1, nil
	}
	fd, ok := r.fds[st.File]
	if !ok {
		return -1, fmt.Errorf("unknown file %q", st.File)
	}
	return fd, nil
}

func (r *Runner) addr(s string) (mman.Addr, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, nil
	}
	if !strings.HasPrefix(s, "$") {
		n, err := strconv.ParseUint(s, 0, 64)
		return mman.Addr(n), err
	}
	name, off, hasOff := strings.Cut(s[1:], "+")
	base, ok := r.vars[name]
	if !ok {
		return 0, fmt.Errorf("unknown variable $%s", name)
	}
	if !hasOff {
		return base, nil
	}
	n, err := strconv.ParseUint(strings.TrimSpace(off), 0, 64)
	if err != nil {
		return 0, err
	}
	return base + mman.Addr(n), nil
}

// expectMet reports whether result matches want: "" accepts anything, "ok"
// any non-negative result, otherwise an errno name such as EINVAL.
func expectMet(want string, result int64) bool {
	switch strings.ToUpper(want) {
	case "":
		return true
	case "OK":
		return result >= 0
	}
	return result < 0 && mman.ErrorCode(result).Name() == strings.ToUpper(want)
}

func parseMode(s string) (mman.AccessMode, error) {
	if s == "" {
		return mman.ModeRead, nil
	}
	var m mman.AccessMode
	for _, c := range s {
		switch c {
		case 'r':
			m |= mman.ModeRead
		case 'w':
			m |= mman.ModeWrite
		case 'a':
			m |= mman.ModeAppend | mman.ModeWrite
		default:
			return 0, fmt.Errorf("bad mode %q", s)
		}
	}
	return m, nil
}

func parseProt(s string) (mman.Prot, error) {
	var p mman.Prot
	for _, c := range s {
		switch c {
		case 'r':
			p |= mman.ProtRead
		case 'w':
			p |= mman.ProtWrite
		case 'x':
			p |= mman.ProtExec
		case '-':
		default:
			return 0, fmt.Errorf("bad protection %q", s)
		}
	}
	return p, nil
}

func parseFlags(s string) (mman.MapFlags, error) {
	var f mman.MapFlags
	if strings.TrimSpace(s) == "" {
		return 0, nil
	}
	for _, part := range strings.Split(s, "|") {
		switch strings.ToUpper(strings.TrimSpace(part)) {
		case "SHARED":
			f |= mman.MapShared
		case "PRIVATE":
			f |= mman.MapPrivate
		case "FIXED":
			f |= mman.MapFixed
		case "ANON", "ANONYMOUS":
			f |= mman.MapAnon
		default:
			return 0, fmt.Errorf("bad flag %q", part)
		}
	}
	return f, nil
}
