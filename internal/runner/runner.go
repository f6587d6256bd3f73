package runner

import (
	"context"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/pkg/errors"
	"go.uber.org/zap"

	"kvbench/internal/stats"
	"kvbench/internal/store"
)

// ErrWorkerFailed is the cause of the error returned when a worker crashes.
var ErrWorkerFailed = errors.New("worker failed")

// RunState is the global state of a run.
type RunState int32

const (
	StateStarting RunState = iota
	StateActive
	StateShuttingDown
	StateFinalizing
	StateDone
)

func (s RunState) String() string {
	switch s {
	case StateStarting:
		return "starting"
	case StateActive:
		return "active"
	case StateShuttingDown:
		return "shutting down"
	case StateFinalizing:
		return "finalizing"
	case StateDone:
		return "done"
	}
	return fmt.Sprintf("state(%d)", int32(s))
}

// WorkerState is the controller's view of one worker.
type WorkerState int

const (
	WorkerSpawned WorkerState = iota
	WorkerRunning
	WorkerDraining
	WorkerExited
)

func (s WorkerState) String() string {
	return [...]string{"spawned", "running", "draining", "exited"}[s]
}

type msgKind int

const (
	msgOnline msgKind = iota
	msgResult
	msgExit
)

type message struct {
	kind   msgKind
	worker int
	report IterationReport
	err    error
}

type handle struct {
	id    int
	state WorkerState
	run   chan struct{}
	stop  chan struct{}
}

// Runner is the run controller. It spawns the workers, hands out iterations,
// folds every report into its aggregator and decides when the run is over.
// Only the goroutine calling Run touches the aggregator.
type Runner struct {
	Cfg     Config
	Updates StatsUpdateChan

	// OnIteration is called from the controller goroutine after every report
	// has been aggregated.
	OnIteration func(IterationReport, stats.Snapshot)
	// Open creates the store client of one worker. Defaults to the registry.
	Open func(ctx context.Context, worker int) (store.Client, error)
	// Sample reads the process RSS for the memory chart.
	Sample func() (uint64, error)

	agg   *stats.Aggregator
	log   *zap.Logger
	state atomic.Int32

	online  int
	exited  int
	memory  []MemorySample
	handles []*handle
}

func NewRunner(cfg Config, updates StatsUpdateChan, log *zap.Logger) *Runner {
	if updates == nil {
		// Avoid nil panics if not provided
		updates = make(StatsUpdateChan, 10)
	}
	if log == nil {
		log = zap.NewNop()
	}
	r := &Runner{
		Cfg:     cfg,
		Updates: updates,
		Sample:  ProcessRSS,
		agg:     stats.NewAggregator(),
		log:     log,
	}
	r.Open = r.openStore
	return r
}

func (r *Runner) openStore(ctx context.Context, worker int) (store.Client, error) {
	opts := r.Cfg.StoreOpts
	if r.Cfg.Seed != 0 {
		opts.Seed = r.Cfg.Seed + int64(worker)
	}
	return store.Open(ctx, r.Cfg.Store, opts)
}

// State returns the current global state. Safe from any goroutine.
func (r *Runner) State() RunState {
	return RunState(r.state.Load())
}

func (r *Runner) setState(s RunState) {
	old := RunState(r.state.Swap(int32(s)))
	if old != s {
		r.log.Debug("run state", zap.Stringer("from", old), zap.Stringer("to", s))
	}
}

func (r *Runner) sendUpdate(snap stats.Snapshot) {
	s := StatsSnapshot{
		State:   r.State(),
		Online:  r.online,
		Exited:  r.exited,
		Workers: r.Cfg.Processes,
		Stats:   snap,
	}
	// Non-blocking send
	select {
	case r.Updates <- s:
	default:
		// Drop update if channel full, UI acts as backpressure
	}
}

// Run drives the workers to completion. It returns exit code 1 and an error
// wrapping ErrWorkerFailed when a worker crashes, and exit code 1 with an
// ErrInvalidConfig error when the configuration does not validate.
// Cancelling ctx stops the run gracefully: in-flight batches still complete.
func (r *Runner) Run(ctx context.Context) (Outcome, error) {
	if err := r.Cfg.Validate(); err != nil {
		return Outcome{ExitCode: 1}, err
	}
	r.setState(StateStarting)

	n := r.Cfg.Processes
	msgs := make(chan message, 2*n)

	// Store calls outlive a graceful stop; only a crash cancels them.
	workCtx, crash := context.WithCancel(context.WithoutCancel(ctx))
	defer crash()

	started := time.Now()
	r.handles = make([]*handle, n)
	handles := r.handles
	for i := range handles {
		h := &handle{
			id:   i + 1,
			run:  make(chan struct{}, 1),
			stop: make(chan struct{}),
		}
		handles[i] = h
		go r.work(workCtx, h, msgs)
	}
	r.log.Info("workers spawned", zap.Int("processes", n), zap.String("store", r.Cfg.Store))

	var timer <-chan time.Time
	if r.Cfg.Timed() {
		t := time.NewTimer(r.Cfg.Duration)
		defer t.Stop()
		timer = t.C
	}

	var failure error
	done := ctx.Done()
	for r.exited < n {
		select {
		case m := <-msgs:
			h := handles[m.worker-1]
			switch m.kind {
			case msgOnline:
				r.online++
				h.state = WorkerRunning
				if r.State() == StateShuttingDown {
					r.stopWorker(h)
				} else {
					h.run <- struct{}{}
				}
				if r.online == n && r.State() == StateStarting {
					r.setState(StateActive)
				}
			case msgResult:
				r.result(h, m.report)
			case msgExit:
				h.state = WorkerExited
				r.exited++
				if m.err != nil && failure == nil {
					failure = errors.Wrapf(ErrWorkerFailed, "worker %d: %v", h.id, m.err)
					r.log.Error("worker crashed", zap.Int("worker", h.id), zap.Error(m.err))
					crash()
					r.shutdown(handles)
				}
			}
		case <-timer:
			timer = nil
			r.log.Info("time limit reached", zap.Duration("time", r.Cfg.Duration))
			r.shutdown(handles)
		case <-done:
			done = nil
			r.log.Info("interrupted, waiting for in-flight iterations")
			r.shutdown(handles)
		}
	}

	r.setState(StateFinalizing)
	snap := r.agg.Snapshot()
	r.sendUpdate(snap)

	out := Outcome{
		Elapsed:  time.Since(started),
		Snapshot: snap,
		Memory:   r.memory,
	}
	if failure != nil {
		out.ExitCode = 1
		return out, failure
	}
	r.log.Info("run complete",
		zap.Uint64("operations", snap.Operations),
		zap.Uint64("iterations", snap.Iterations),
		zap.Duration("elapsed", out.Elapsed))
	return out, nil
}

// Memory returns the samples taken so far. Call it from OnIteration or after
// Run returns.
func (r *Runner) Memory() []MemorySample {
	return r.memory
}

// Finalize renders the final output and moves the run to Done.
func (r *Runner) Finalize(render func() error) error {
	defer r.setState(StateDone)
	if render == nil {
		return nil
	}
	return render()
}

func (r *Runner) result(h *handle, report IterationReport) {
	r.agg.Iteration(report.Operations)
	snap := r.agg.Snapshot()
	r.sendUpdate(snap)

	if r.Cfg.ChartMemory && h.id == 1 && r.Sample != nil {
		rss, err := r.Sample()
		if err != nil {
			r.log.Warn("memory sample failed", zap.Error(err))
		} else {
			r.memory = append(r.memory, MemorySample{Iteration: report.Iteration, RSS: rss})
		}
	}
	if r.OnIteration != nil {
		r.OnIteration(report, snap)
	}

	more := r.Cfg.Timed() || report.Iteration < r.Cfg.Iterations
	if h.state == WorkerRunning && more && r.State() != StateShuttingDown {
		h.run <- struct{}{}
		return
	}
	r.stopWorker(h)

	if r.State() == StateActive && r.running() == 0 {
		r.setState(StateShuttingDown)
	}
}

func (r *Runner) running() int {
	n := 0
	for _, h := range r.handles {
		if h.state == WorkerRunning || h.state == WorkerSpawned {
			n++
		}
	}
	return n
}

// stopWorker is idempotent and never signals a worker that is not running.
func (r *Runner) stopWorker(h *handle) {
	if h.state != WorkerRunning {
		return
	}
	h.state = WorkerDraining
	close(h.stop)
}

func (r *Runner) shutdown(handles []*handle) {
	r.setState(StateShuttingDown)
	for _, h := range handles {
		r.stopWorker(h)
	}
}

// work is the body of one worker goroutine.
func (r *Runner) work(ctx context.Context, h *handle, out chan<- message) {
	var err error
	defer func() {
		if rec := recover(); rec != nil {
			err = errors.Errorf("panic: %v", rec)
		}
		out <- message{kind: msgExit, worker: h.id, err: err}
	}()

	client, err := r.Open(ctx, h.id)
	if err != nil {
		return
	}
	defer func() {
		if cerr := client.Close(); cerr != nil {
			r.log.Warn("close store client", zap.Int("worker", h.id), zap.Error(cerr))
		}
	}()

	w := NewWorker(h.id, r.Cfg, client, r.log)
	out <- message{kind: msgOnline, worker: h.id}

	for {
		// stop has priority over a pending run
		select {
		case <-h.stop:
			return
		default:
		}
		select {
		case <-h.stop:
			return
		case <-ctx.Done():
			return
		case <-h.run:
			report := w.Iterate(ctx)
			out <- message{kind: msgResult, worker: h.id, report: report}
		}
	}
}
