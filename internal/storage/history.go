package storage

import (
	"time"

	"github.com/google/uuid"

	"kvbench/internal/runner"
	"kvbench/internal/stats"
)

// MaxItems bounds the history; older runs are pruned on Save.
const MaxItems = 100

// HistoryItem is one finished run.
type HistoryItem struct {
	ID        string        `json:"id"`
	Timestamp time.Time     `json:"timestamp"`
	Config    runner.Config `json:"config"`
	Summary   RunSummary    `json:"summary"`
}

type RunSummary struct {
	ExitCode   int                    `json:"exit_code"`
	Elapsed    time.Duration          `json:"elapsed"`
	Operations uint64                 `json:"operations"`
	Iterations uint64                 `json:"iterations"`
	Errors     uint64                 `json:"errors"`
	OpsPerSec  float64                `json:"ops_per_sec"`
	Latency    stats.LatencySummary   `json:"latency"`
	Durations  stats.LatencyHistogram `json:"durations"`
	Status     stats.StatusHistogram  `json:"status_codes"`
}

// NewItem records the outcome of a run. IDs are UUIDv7 so that key order in
// the store is chronological.
func NewItem(cfg runner.Config, out runner.Outcome) HistoryItem {
	id, err := uuid.NewV7()
	if err != nil {
		id = uuid.New()
	}
	snap := out.Snapshot
	ops := 0.0
	if out.Elapsed > 0 {
		ops = float64(snap.Operations) / out.Elapsed.Seconds()
	}
	return HistoryItem{
		ID:        id.String(),
		Timestamp: time.Now(),
		Config:    cfg,
		Summary: RunSummary{
			ExitCode:   out.ExitCode,
			Elapsed:    out.Elapsed,
			Operations: snap.Operations,
			Iterations: snap.Iterations,
			Errors:     snap.Errors(),
			OpsPerSec:  ops,
			Latency:    snap.Summary,
			Durations:  snap.Latency,
			Status:     snap.Status,
		},
	}
}
