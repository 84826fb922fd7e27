// Command mmapctl drives the mapping layer from scripted scenarios and
// inspects the journal of calls they made.
package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/common/expfmt"
	"github.com/rs/zerolog/log"

	"github.com/Giulio2002/mman"
	"github.com/Giulio2002/mman/internal/config"
	"github.com/Giulio2002/mman/internal/journal"
	"github.com/Giulio2002/mman/internal/logger"
	"github.com/Giulio2002/mman/proc"
)

type cli struct {
	Config   string `help:"Configuration file (YAML)" type:"path" env:"MMAN_CONFIG"`
	LogLevel string `help:"Log level, overrides the configuration" name:"log-level"`
	JSONLogs bool   `help:"Write logs as JSON lines instead of console output" name:"json-logs"`

	Run     runCmd     `cmd:"" help:"Run a scenario file against a fresh process"`
	History historyCmd `cmd:"" help:"List the calls recorded in a journal"`
	Version versionCmd `cmd:"" help:"Show version"`
}

// globals is what every command receives.
type globals struct {
	cfg config.Config
	out io.Writer
}

type runCmd struct {
	Scenario string `arg:"" type:"existingfile" help:"Scenario file"`
	Journal  string `help:"Record every call in this journal database" type:"path"`
	Metrics  bool   `help:"Print metrics after the run"`
	Maps     bool   `help:"Print the area map of every process after the run" default:"true" negatable:""`
}

func (c *runCmd) Run(g *globals) error {
	s, err := LoadScenario(c.Scenario)
	if err != nil {
		return err
	}

	path := c.Journal
	if path == "" {
		path = g.cfg.Journal
	}
	var j *journal.Journal
	if path != "" {
		if j, err = journal.Open(path); err != nil {
			return err
		}
		defer j.Close()
	}

	r := &Runner{
		Options: proc.Options{
			Layout:     g.cfg.Layout(),
			MaxFiles:   g.cfg.MaxFiles,
			TLBEntries: g.cfg.TLBEntries,
		},
		Journal: j,
		Out:     g.out,
	}
	if s.Name != "" {
		fmt.Fprintf(g.out, "# %s\n", s.Name)
	}
	results, err := r.Run(s)
	defer r.Cleanup()
	if err != nil {
		return err
	}

	if c.Maps {
		for _, p := range r.Processes() {
			fmt.Fprintf(g.out, "\n%s (pid %d, %s):\n%s", p.Name(), p.PID(), p.State(), p.Space())
		}
	}
	if c.Metrics {
		fmt.Fprintln(g.out)
		if err := writeMetrics(g.out, prometheus.DefaultGatherer); err != nil {
			return err
		}
	}

	failed := 0
	for _, res := range results {
		if !res.OK {
			failed++
		}
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d steps did not meet expectations", failed, len(results))
	}
	return nil
}

type historyCmd struct {
	Journal string `arg:"" type:"existingfile" help:"Journal database"`
	From    uint64 `help:"First sequence number to list" default:"0"`
}

func (c *historyCmd) Run(g *globals) error {
	j, err := journal.Open(c.Journal)
	if err != nil {
		return err
	}
	defer j.Close()

	entries, err := j.Entries(c.From)
	if err != nil {
		return err
	}
	for _, e := range entries {
		fmt.Fprintln(g.out, e)
	}
	return nil
}

type versionCmd struct{}

func (versionCmd) Run(g *globals) error {
	fmt.Fprintln(g.out, mman.Version())
	return nil
}

// writeMetrics prints the mman_ metric families of g in text format.
func writeMetrics(w io.Writer, g prometheus.Gatherer) error {
	mfs, err := g.Gather()
	if err != nil {
		return err
	}
	for _, mf := range mfs {
		if !strings.HasPrefix(mf.GetName(), "mman_") {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return err
		}
	}
	return nil
}

func main() {
	var params cli
	ctx := kong.Parse(&params,
		kong.Name("mmapctl"),
		kong.Description("Drive mmap/munmap requests against simulated processes."),
		kong.UsageOnError(),
	)

	cfg, err := config.Load(params.Config)
	ctx.FatalIfErrorf(err)
	if params.LogLevel != "" {
		cfg.LogLevel = params.LogLevel
	}
	ctx.FatalIfErrorf(logger.Init(cfg.LogLevel, !params.JSONLogs, os.Stderr))

	log.Debug().Str("cmd", ctx.Command()).Msg("starting")
	ctx.FatalIfErrorf(ctx.Run(&globals{cfg: cfg, out: os.Stdout}))
}
