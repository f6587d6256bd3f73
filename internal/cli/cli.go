// Package cli runs a benchmark headless or under the live dashboard and
// renders the results.
package cli

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"

	tea "github.com/charmbracelet/bubbletea"
	"go.uber.org/zap"

	"kvbench/internal/metrics"
	"kvbench/internal/report"
	"kvbench/internal/runner"
	"kvbench/internal/stats"
	"kvbench/internal/storage"
	"kvbench/internal/tui"
)

// Env holds the process-level collaborators of a run.
type Env struct {
	Stdout io.Writer
	Stderr io.Writer
	Log    *zap.Logger
	// HistoryPath overrides storage.DefaultPath.
	HistoryPath string
}

func (e *Env) defaults() {
	if e.Stdout == nil {
		e.Stdout = os.Stdout
	}
	if e.Stderr == nil {
		e.Stderr = os.Stderr
	}
	if e.Log == nil {
		e.Log = zap.NewNop()
	}
}

// Start runs the benchmark described by cfg and returns the process exit
// code. Cancelling ctx stops the run gracefully.
func Start(ctx context.Context, cfg runner.Config, env Env) int {
	env.defaults()
	log := env.Log

	if err := cfg.Validate(); err != nil {
		log.Error("invalid configuration", zap.Error(err))
		return 1
	}

	// stdout carries only the summary line in JSON mode
	iterOut := env.Stdout
	if cfg.JSON {
		iterOut = env.Stderr
	}
	if !cfg.JSON && !cfg.TUI && !cfg.Silent {
		printHeader(env.Stdout, cfg)
	}

	updates := make(runner.StatsUpdateChan, 100)
	r := runner.NewRunner(cfg, updates, log)

	var exporter *metrics.Exporter
	if cfg.MetricsAddr != "" {
		exporter = metrics.NewExporter()
	}

	var reports []runner.IterationReport
	r.OnIteration = func(rep runner.IterationReport, _ stats.Snapshot) {
		// without a summary the memory chart streams one bar per worker 1 iteration
		if cfg.ChartMemory && !cfg.Summary && !cfg.TUI && rep.Worker == 1 {
			if mem := r.Memory(); len(mem) > 0 && mem[len(mem)-1].Iteration == rep.Iteration {
				if err := report.MemoryLine(iterOut, mem[len(mem)-1]); err != nil {
					log.Warn("write memory", zap.Error(err))
				}
			}
		}
		if !cfg.Silent && !cfg.TUI {
			if err := report.Iteration(iterOut, rep); err != nil {
				log.Warn("write iteration", zap.Error(err))
			}
		}
		if exporter != nil {
			exporter.Observe(rep)
		}
		if cfg.OutPrefix != "" {
			reports = append(reports, rep)
		}
	}

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	sideCtx, stopSide := context.WithCancel(context.Background())
	var side sync.WaitGroup
	defer func() {
		stopSide()
		side.Wait()
	}()

	var tuiUpdates runner.StatsUpdateChan
	if cfg.TUI {
		tuiUpdates = make(runner.StatsUpdateChan, 100)
	}
	side.Add(1)
	go func() {
		defer side.Done()
		fanOut(sideCtx, updates, exporter, tuiUpdates)
	}()

	if exporter != nil {
		side.Add(1)
		go func() {
			defer side.Done()
			if err := exporter.Serve(sideCtx, cfg.MetricsAddr, log); err != nil {
				log.Warn("metrics endpoint stopped", zap.Error(err))
			}
		}()
	}

	var (
		out runner.Outcome
		err error
	)
	if cfg.TUI {
		out, err = runWithDashboard(runCtx, r, tuiUpdates, stop)
	} else {
		out, err = r.Run(runCtx)
	}

	if cfg.History {
		saveHistory(env, cfg, out)
	}
	if err != nil {
		log.Error("run failed", zap.Error(err))
		return out.ExitCode
	}

	render := func() error {
		if !cfg.Summary {
			return nil
		}
		if cfg.ChartMemory {
			chartOut := env.Stdout
			if cfg.JSON {
				chartOut = env.Stderr
			}
			if err := report.MemoryChart(chartOut, out.Memory); err != nil {
				return err
			}
		}
		if cfg.JSON {
			return report.JSON(env.Stdout, cfg, out.Snapshot)
		}
		return report.Summary(env.Stdout, cfg, out)
	}
	if err := r.Finalize(render); err != nil {
		log.Error("render summary", zap.Error(err))
	}

	if cfg.OutPrefix != "" {
		exportReports(log, cfg.OutPrefix, reports)
	}
	return out.ExitCode
}

// fanOut forwards controller snapshots to the metrics exporter and the
// dashboard until ctx is done.
func fanOut(ctx context.Context, updates runner.StatsUpdateChan, exporter *metrics.Exporter, dash runner.StatsUpdateChan) {
	for {
		select {
		case <-ctx.Done():
			return
		case s := <-updates:
			if exporter != nil {
				exporter.SetStatus(s)
			}
			if dash != nil {
				select {
				case dash <- s:
				default:
				}
			}
		}
	}
}

func runWithDashboard(ctx context.Context, r *runner.Runner, updates runner.StatsUpdateChan, stop func()) (runner.Outcome, error) {
	p := tea.NewProgram(tui.NewModel(r.Cfg, updates, stop), tea.WithAltScreen())

	type result struct {
		out runner.Outcome
		err error
	}
	done := make(chan result, 1)
	go func() {
		out, err := r.Run(ctx)
		done <- result{out, err}
		p.Send(tui.DoneMsg{Outcome: out, Err: err})
	}()

	if _, err := p.Run(); err != nil {
		// the run still has to drain before its results can be reported
		stop()
	}
	res := <-done
	return res.out, res.err
}

func saveHistory(env Env, cfg runner.Config, out runner.Outcome) {
	path := env.HistoryPath
	if path == "" {
		var err error
		if path, err = storage.DefaultPath(); err != nil {
			env.Log.Warn("history disabled", zap.Error(err))
			return
		}
	}
	s, err := storage.NewStore(path)
	if err != nil {
		env.Log.Warn("history disabled", zap.Error(err))
		return
	}
	defer s.Close()

	item := storage.NewItem(cfg, out)
	if err := s.Save(item); err != nil {
		env.Log.Warn("save history", zap.Error(err))
		return
	}
	env.Log.Debug("run saved", zap.String("id", item.ID), zap.String("path", path))
}

func exportReports(log *zap.Logger, prefix string, reports []runner.IterationReport) {
	if len(reports) == 0 {
		return
	}
	if err := report.ExportCSV(reports, prefix+".csv"); err != nil {
		log.Error("export csv", zap.Error(err))
	}
	if err := report.ExportJSON(reports, prefix+".json"); err != nil {
		log.Error("export json", zap.Error(err))
	}
	log.Info("reports saved", zap.String("files", prefix+".{csv,json}"))
}

func printHeader(w io.Writer, cfg runner.Config) {
	rule := strings.Repeat("=", 70)
	bound := fmt.Sprintf("%d iterations", cfg.Iterations)
	if cfg.Timed() {
		bound = report.TimeUnits(cfg.Duration.Seconds())
	}
	fmt.Fprintf(w, "\nKVBENCH\n%s\n", rule)
	fmt.Fprintf(w, "Store      : %s %s\n", cfg.Store, storeTarget(cfg))
	fmt.Fprintf(w, "Workload   : %d ops x %s x %d processes\n", cfg.Operations, bound, cfg.Processes)
	fmt.Fprintf(w, "Ratio      : %g reads : %g writes over %d keys\n", cfg.Reads, cfg.Writes, cfg.KeyRange)
	fmt.Fprintf(w, "Payload    : %s (%d)\n", cfg.DataType, cfg.DataSize)
	fmt.Fprintf(w, "%s\n\n", rule)
}

func storeTarget(cfg runner.Config) string {
	o := cfg.StoreOpts
	switch cfg.Store {
	case "aerospike", "redis":
		return fmt.Sprintf("%s:%d", o.Host, o.Port)
	case "badger":
		if o.Path == "" {
			return "(in-memory)"
		}
		return o.Path
	case "bolt":
		if o.Path == "" {
			return "kvbench.db"
		}
		return o.Path
	case "memory":
		if o.Profile != "" {
			return "profile=" + o.Profile
		}
	}
	return ""
}
