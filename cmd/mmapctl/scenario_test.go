package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Giulio2002/mman"
	"github.com/Giulio2002/mman/internal/config"
	"github.com/Giulio2002/mman/internal/journal"
)

func runFile(t *testing.T, name string, r *Runner) []StepResult {
	t.Helper()
	s, err := LoadScenario(filepath.Join("testdata", "scenarios", name))
	require.NoError(t, err)
	results, err := r.Run(s)
	require.NoError(t, err)
	t.Cleanup(r.Cleanup)
	return results
}

func requireAllOK(t *testing.T, results []StepResult) {
	t.Helper()
	for _, res := range results {
		assert.True(t, res.OK, "%s", res)
	}
}

func TestScenarioFiles(t *testing.T) {
	for _, name := range []string{"basic.yaml", "files.yaml", "fork.yaml"} {
		t.Run(name, func(t *testing.T) {
			var out bytes.Buffer
			results := runFile(t, name, &Runner{Out: &out})
			requireAllOK(t, results)
			assert.NotContains(t, out.String(), "FAIL")
		})
	}
}

func TestScenarioLeavesNothingMapped(t *testing.T) {
	r := &Runner{}
	runFile(t, "basic.yaml", r)
	procs := r.Processes()
	require.Len(t, procs, 1)
	assert.Zero(t, procs[0].Space().Len())
}

func TestScenarioForkSharesObjects(t *testing.T) {
	r := &Runner{}
	runFile(t, "fork.yaml", r)
	procs := r.Processes()
	require.Len(t, procs, 2)
	assert.Equal(t, "child", procs[1].Name())
	assert.Equal(t, procs[0], procs[1].Parent())
	assert.Zero(t, procs[0].Space().Len())
	assert.Zero(t, procs[1].Space().Len())
}

func TestScenarioExpectationMismatch(t *testing.T) {
	s, err := ParseScenario([]byte(`
steps:
  - op: mmap
    length: 4096
    prot: r
    flags: private|anon
    expect: EINVAL
`))
	require.NoError(t, err)
	r := &Runner{}
	defer r.Cleanup()
	results, err := r.Run(s)
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.False(t, results[0].OK)
	assert.Contains(t, results[0].String(), "FAIL")
}

func TestScenarioMalformed(t *testing.T) {
	tests := map[string]string{
		"no steps":        "name: empty\n",
		"bad yaml":        "steps: [",
		"unknown op":      "steps:\n  - op: mprotect\n",
		"unknown proc":    "steps:\n  - proc: ghost\n    op: munmap\n",
		"unknown var":     "steps:\n  - op: munmap\n    addr: $nope\n    length: 4096\n",
		"unknown file":    "steps:\n  - op: mmap\n    length: 1\n    flags: shared\n    file: nope\n",
		"bad flag":        "steps:\n  - op: mmap\n    length: 1\n    flags: private|huge\n",
		"bad prot":        "steps:\n  - op: mmap\n    length: 1\n    prot: q\n    flags: private|anon\n",
		"fork no child":   "steps:\n  - op: fork\n",
		"bad file kind":   "files:\n  - name: x\n    kind: socket\nsteps:\n  - op: exit\n",
		"host needs path": "files:\n  - name: x\n    kind: host\nsteps:\n  - op: exit\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			s, err := ParseScenario([]byte(doc))
			if err != nil {
				return
			}
			r := &Runner{}
			defer r.Cleanup()
			_, err = r.Run(s)
			assert.Error(t, err)
		})
	}
}

func TestScenarioHostFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "host.dat")
	require.NoError(t, os.WriteFile(path, make([]byte, 3*mman.PageSize), 0644))

	doc := strings.ReplaceAll(`
files:
  - name: host
    kind: host
    path: PATH
    mode: r
steps:
  - op: mmap
    length: 12288
    prot: r
    flags: private
    file: host
    save: h
    expect: ok
  - op: munmap
    addr: $h
    length: 12288
    expect: ok
`, "PATH", path)
	s, err := ParseScenario([]byte(doc))
	require.NoError(t, err)
	r := &Runner{}
	defer r.Cleanup()
	results, err := r.Run(s)
	require.NoError(t, err)
	requireAllOK(t, results)
}

func TestScenarioJournal(t *testing.T) {
	j, err := journal.Open(filepath.Join(t.TempDir(), "j.db"))
	require.NoError(t, err)
	defer j.Close()

	runFile(t, "basic.yaml", &Runner{Journal: j})

	entries, err := j.Entries(0)
	require.NoError(t, err)
	require.Len(t, entries, 7)
	assert.Equal(t, "mmap", entries[0].Op)
	assert.Equal(t, "PRIVATE|ANON", entries[0].Flags)
	assert.Equal(t, int64(mman.ErrInvalidArgument), entries[2].Result)
	assert.Equal(t, "munmap", entries[5].Op)
	assert.Equal(t, int64(mman.ErrNoMemory), entries[5].Result)
}

func TestRunCommand(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	var out bytes.Buffer
	g := &globals{cfg: cfg, out: &out}

	cmd := &runCmd{
		Scenario: filepath.Join("testdata", "scenarios", "files.yaml"),
		Journal:  filepath.Join(t.TempDir(), "j.db"),
		Metrics:  true,
		Maps:     true,
	}
	require.NoError(t, cmd.Run(g))
	assert.Contains(t, out.String(), "# file-backed mappings")
	assert.Contains(t, out.String(), "main (pid")
	assert.Contains(t, out.String(), "mman_mmap_calls_total")

	out.Reset()
	require.NoError(t, (&historyCmd{Journal: cmd.Journal}).Run(g))
	assert.Contains(t, out.String(), "munmap(")
}

func TestWriteMetricsFilters(t *testing.T) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "mman_test_total", Help: "x"}))
	reg.MustRegister(prometheus.NewCounter(prometheus.CounterOpts{Name: "other_total", Help: "y"}))

	var out bytes.Buffer
	require.NoError(t, writeMetrics(&out, reg))
	assert.Contains(t, out.String(), "mman_test_total 0")
	assert.NotContains(t, out.String(), "other_total")
}

func TestParseHelpers(t *testing.T) {
	m, err := parseMode("ra")
	require.NoError(t, err)
	assert.True(t, m.CanRead() && m.CanWrite() && m.AppendOnly())

	p, err := parseProt("r-x")
	require.NoError(t, err)
	assert.Equal(t, mman.ProtRead|mman.ProtExec, p)

	f, err := parseFlags("shared | FIXED")
	require.NoError(t, err)
	assert.Equal(t, mman.MapShared|mman.MapFixed, f)

	assert.True(t, expectMet("", -22))
	assert.True(t, expectMet("ok", 0x1000))
	assert.True(t, expectMet("einval", -22))
	assert.False(t, expectMet("EINVAL", -12))
	assert.False(t, expectMet("ok", -12))
}
