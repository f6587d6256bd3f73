package runner

import (
	"context"
	"os"
	"time"

	"github.com/sourcegraph/conc/pool"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"kvbench/internal/stats"
	"kvbench/internal/store"
	"kvbench/internal/workload"
)

// Worker executes batches against its own store client. It is driven by a
// single goroutine; only the operations of one batch run concurrently.
type Worker struct {
	ID  int
	pid int

	cfg     Config
	client  store.Client
	gen     *workload.Generator
	limiter *rate.Limiter
	log     *zap.Logger

	iteration int
}

// NewWorker builds worker id around an open client.
func NewWorker(id int, cfg Config, client store.Client, log *zap.Logger) *Worker {
	pid := os.Getpid()
	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	w := &Worker{
		ID:     id,
		pid:    pid,
		cfg:    cfg,
		client: client,
		gen:    workload.NewGenerator(cfg.Params(), seed+int64(id)),
		log:    log.With(zap.Int("worker", id), zap.Int("pid", pid)),
	}
	if cfg.TargetOps > 0 {
		burst := int(cfg.TargetOps)
		if burst < 1 {
			burst = 1
		}
		w.limiter = rate.NewLimiter(rate.Limit(cfg.TargetOps), burst)
	}
	return w
}

// Iterate generates the next batch and executes it.
func (w *Worker) Iterate(ctx context.Context) IterationReport {
	w.iteration++
	return w.Execute(ctx, w.iteration, w.gen.Batch())
}

// Execute dispatches every operation of batch and waits for all of them.
// Results are stored by dispatch index, so the report always holds exactly
// one result per operation.
func (w *Worker) Execute(ctx context.Context, iteration int, batch []workload.Operation) IterationReport {
	report := IterationReport{
		Worker:     w.ID,
		PID:        w.pid,
		Iteration:  iteration,
		Operations: make([]stats.OperationResult, len(batch)),
	}

	p := pool.New()
	if w.cfg.Concurrency > 0 {
		p = p.WithMaxGoroutines(w.cfg.Concurrency)
	}

	started := time.Now()
	for i, op := range batch {
		if op.Type == workload.Write {
			report.Writes++
		} else {
			report.Reads++
		}

		if w.limiter != nil {
			if err := w.limiter.Wait(ctx); err != nil {
				now := time.Now()
				report.Operations[i] = stats.OperationResult{
					Status: int(store.StatusClientError),
					Write:  op.Type == workload.Write,
					Start:  now,
					End:    now,
				}
				continue
			}
		}

		i, op := i, op
		p.Go(func() {
			report.Operations[i] = w.do(ctx, op)
		})
	}
	p.Wait()
	report.Elapsed = time.Since(started)

	w.log.Debug("iteration done",
		zap.Int("iteration", iteration),
		zap.Int("operations", len(batch)),
		zap.Duration("elapsed", report.Elapsed))
	return report
}

func (w *Worker) do(ctx context.Context, op workload.Operation) stats.OperationResult {
	var status store.Status
	start := time.Now()
	switch op.Type {
	case workload.Write:
		status = w.client.Put(ctx, op.Key, op.Payload)
	default:
		status = w.client.Get(ctx, op.Key)
	}
	return stats.OperationResult{
		Status: int(status),
		Write:  op.Type == workload.Write,
		Start:  start,
		End:    time.Now(),
	}
}
