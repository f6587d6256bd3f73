package history

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kvbench/internal/runner"
	"kvbench/internal/stats"
	"kvbench/internal/storage"
)

func TestRows(t *testing.T) {
	cfg := runner.DefaultConfig()
	timed := cfg.WithDuration(2 * time.Minute)
	items := []storage.HistoryItem{
		storage.NewItem(cfg, runner.Outcome{Elapsed: time.Second, Snapshot: stats.Snapshot{
			Operations: 200, Status: stats.StatusHistogram{0: 150, 1: 50},
		}}),
		storage.NewItem(timed, runner.Outcome{ExitCode: 1}),
	}

	rows := Rows(items)
	require.Len(t, rows, 2)
	assert.Equal(t, "memory", rows[0][1])
	assert.Equal(t, "1", rows[0][3])
	assert.Equal(t, "200", rows[0][5])
	assert.Equal(t, "200.0", rows[0][6])
	assert.Equal(t, "25.00", rows[0][7])
	assert.Equal(t, "2m0s", rows[1][3])
	assert.Equal(t, "1", rows[1][9])
}

func TestSelected(t *testing.T) {
	m := NewModel(nil)
	assert.Nil(t, m.Selected())
	assert.Contains(t, m.View(), "no runs recorded")

	item := storage.NewItem(runner.DefaultConfig(), runner.Outcome{})
	m = NewModel([]storage.HistoryItem{item})
	require.NotNil(t, m.Selected())
	assert.Equal(t, item.ID, m.Selected().ID)
}
