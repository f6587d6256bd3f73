package runner

import (
	"math"
	"regexp"
	"runtime"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"github.com/shirou/gopsutil/cpu"

	"kvbench/internal/store"
	"kvbench/internal/workload"
)

// ErrInvalidConfig is the cause of every validation failure.
var ErrInvalidConfig = errors.New("invalid configuration")

// DefaultConfig mirrors the command-line defaults.
func DefaultConfig() Config {
	return Config{
		Operations: 100,
		Iterations: 1,
		Processes:  DefaultProcesses(),
		Reads:      1,
		Writes:     1,
		KeyRange:   1000,
		DataType:   workload.Integer,
		DataSize:   8,
		Store:      "memory",
		StoreOpts: store.Options{
			Host:      "127.0.0.1",
			Port:      3000,
			Timeout:   10 * time.Millisecond,
			Namespace: "test",
			Set:       "demo",
		},
		Summary:  true,
		LogLevel: "info",
	}
}

// DefaultProcesses is the number of logical CPUs.
func DefaultProcesses() int {
	n, err := cpu.Counts(true)
	if err != nil || n < 1 {
		return runtime.NumCPU()
	}
	return n
}

var timePattern = regexp.MustCompile(`^(\d+)([smh])?$`)

// MaxSeconds is the longest run time a time.Duration can hold.
const MaxSeconds = int(math.MaxInt64 / int64(time.Second))

// ParseSeconds parses a run time given as bare seconds or as <int>[smh].
// The result is in [1, MaxSeconds].
func ParseSeconds(s string) (int, error) {
	m := timePattern.FindStringSubmatch(s)
	if m == nil {
		return 0, errors.Wrapf(ErrInvalidConfig, "time %q: want <int>[smh]", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, errors.Wrapf(ErrInvalidConfig, "time %q: %v", s, err)
	}
	unit := 1
	switch m[2] {
	case "m":
		unit = 60
	case "h":
		unit = 60 * 60
	}
	if n == 0 {
		return 0, errors.Wrapf(ErrInvalidConfig, "time %q: must be positive", s)
	}
	if n > MaxSeconds/unit {
		return 0, errors.Wrapf(ErrInvalidConfig, "time %q: longer than %ds", s, MaxSeconds)
	}
	return n * unit, nil
}

// Validate checks the configuration before any worker starts.
func (c Config) Validate() error {
	switch {
	case c.Operations < 1:
		return errors.Wrapf(ErrInvalidConfig, "operations must be positive, got %d", c.Operations)
	case c.Processes < 1:
		return errors.Wrapf(ErrInvalidConfig, "processes must be positive, got %d", c.Processes)
	case c.KeyRange < 1:
		return errors.Wrapf(ErrInvalidConfig, "keyrange must be positive, got %d", c.KeyRange)
	case c.Reads < 0 || c.Writes < 0:
		return errors.Wrapf(ErrInvalidConfig, "read/write ratio must not be negative, got %g:%g", c.Reads, c.Writes)
	case c.Reads+c.Writes <= 0:
		return errors.Wrap(ErrInvalidConfig, "read/write ratio must have a positive side")
	case c.Duration < 0:
		return errors.Wrapf(ErrInvalidConfig, "time must not be negative, got %s", c.Duration)
	case c.Duration == 0 && c.Iterations < 1:
		return errors.Wrapf(ErrInvalidConfig, "iterations must be positive, got %d", c.Iterations)
	case c.Duration > 0 && c.Iterations != 0:
		return errors.Wrap(ErrInvalidConfig, "iterations and time are mutually exclusive")
	case c.DataSize < 0:
		return errors.Wrapf(ErrInvalidConfig, "datasize must not be negative, got %d", c.DataSize)
	case c.Concurrency < 0:
		return errors.Wrapf(ErrInvalidConfig, "concurrency must not be negative, got %d", c.Concurrency)
	case c.TargetOps < 0:
		return errors.Wrapf(ErrInvalidConfig, "target must not be negative, got %g", c.TargetOps)
	case c.Store == "":
		return errors.Wrap(ErrInvalidConfig, "store is required")
	}
	return nil
}

// WithDuration switches the run to wall-clock mode, voiding the iteration
// count.
func (c Config) WithDuration(d time.Duration) Config {
	c.Duration = d
	if d > 0 {
		c.Iterations = 0
	}
	return c
}
