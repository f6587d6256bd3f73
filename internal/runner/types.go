package runner

import (
	"time"

	"kvbench/internal/stats"
	"kvbench/internal/store"
	"kvbench/internal/workload"
)

// Config is the validated, immutable configuration of one run.
type Config struct {
	Operations int           `yaml:"operations" json:"operations"`
	Iterations int           `yaml:"iterations,omitempty" json:"iterations,omitempty"` // 0 when Duration is set
	Duration   time.Duration `yaml:"time,omitempty" json:"time,omitempty"`
	Processes  int           `yaml:"processes" json:"processes"`

	Reads    float64           `yaml:"reads" json:"reads"`
	Writes   float64           `yaml:"writes" json:"writes"`
	KeyRange int               `yaml:"keyrange" json:"keyrange"`
	DataType workload.DataType `yaml:"datatype" json:"datatype"`
	DataSize int               `yaml:"datasize" json:"datasize"`

	// Concurrency caps in-flight operations per worker; 0 puts the whole
	// batch in flight.
	Concurrency int `yaml:"concurrency,omitempty" json:"concurrency,omitempty"`
	// TargetOps paces each worker to this many operations per second; 0 is
	// unlimited.
	TargetOps float64 `yaml:"target,omitempty" json:"target,omitempty"`
	Seed      int64   `yaml:"seed,omitempty" json:"seed,omitempty"`

	Store     string        `yaml:"store" json:"store"`
	StoreOpts store.Options `yaml:"store_options" json:"-"`

	JSON        bool   `yaml:"json" json:"-"`
	Silent      bool   `yaml:"silent" json:"-"`
	Summary     bool   `yaml:"summary" json:"-"`
	ChartMemory bool   `yaml:"chart_memory" json:"-"`
	TUI         bool   `yaml:"tui" json:"-"`
	History     bool   `yaml:"history" json:"-"`
	OutPrefix   string `yaml:"out,omitempty" json:"-"`
	MetricsAddr string `yaml:"metrics_addr,omitempty" json:"-"`
	LogLevel    string `yaml:"log_level" json:"-"`
}

// Timed reports whether the run is bounded by wall-clock time.
func (c Config) Timed() bool {
	return c.Duration > 0
}

// Params derives the generator parameters.
func (c Config) Params() workload.Params {
	return workload.Params{
		Operations: c.Operations,
		Reads:      c.Reads,
		Writes:     c.Writes,
		KeyRange:   c.KeyRange,
		DataType:   c.DataType,
		DataSize:   c.DataSize,
	}
}

// IterationReport is the result of one batch executed by one worker.
type IterationReport struct {
	Worker     int
	PID        int
	Iteration  int
	Reads      int
	Writes     int
	Elapsed    time.Duration
	Operations []stats.OperationResult
}

// MemorySample is the process RSS observed after an iteration.
type MemorySample struct {
	Iteration int
	RSS       uint64
}

// Outcome summarises a finished run.
type Outcome struct {
	ExitCode int
	Elapsed  time.Duration
	Snapshot stats.Snapshot
	Memory   []MemorySample
}

// StatsSnapshot is published to observers after every iteration
type StatsSnapshot struct {
	State   RunState
	Online  int
	Exited  int
	Workers int
	Stats   stats.Snapshot
}

// StatsUpdateChan is the channel type
type StatsUpdateChan chan StatsSnapshot
