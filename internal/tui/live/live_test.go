package live

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"kvbench/internal/runner"
	"kvbench/internal/stats"
)

func TestPercentByIterations(t *testing.T) {
	cfg := runner.DefaultConfig()
	cfg.Iterations = 4
	cfg.Processes = 2

	m := NewModel(cfg)
	m, _ = m.Update(runner.StatsSnapshot{
		State:   runner.StateActive,
		Workers: 2,
		Online:  2,
		Stats:   stats.Snapshot{Iterations: 2, Operations: 200, Status: stats.StatusHistogram{0: 190, 2: 10}},
	})
	assert.InDelta(t, 0.25, m.Percent(time.Now()), 1e-9)
	assert.Equal(t, uint64(200), m.LastOps)

	view := m.View()
	assert.Contains(t, view, "OPS:   200")
	assert.Contains(t, view, "5.00%")
	assert.Contains(t, view, "active")
}

func TestPercentByTime(t *testing.T) {
	cfg := runner.DefaultConfig().WithDuration(10 * time.Second)
	m := NewModel(cfg)
	assert.InDelta(t, 0.5, m.Percent(m.StartTime.Add(5*time.Second)), 1e-9)
	assert.Equal(t, 1.0, m.Percent(m.StartTime.Add(time.Minute)))
}
