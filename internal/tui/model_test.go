package tui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"

	"kvbench/internal/runner"
	"kvbench/internal/stats"
)

func TestStopIsRequestedOnce(t *testing.T) {
	stops := 0
	m := NewModel(runner.DefaultConfig(), make(runner.StatsUpdateChan, 1), func() { stops++ })

	q := tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")}
	next, _ := m.Update(q)
	next, _ = next.Update(q)
	assert.Equal(t, 1, stops)
	assert.True(t, next.(Model).Stopping)
	assert.Contains(t, next.View(), "stopping")
}

func TestStatsAndDone(t *testing.T) {
	m := NewModel(runner.DefaultConfig(), make(runner.StatsUpdateChan, 1), nil)

	next, cmd := m.Update(StatsMsg{Workers: 2, Online: 2, Stats: stats.Snapshot{Operations: 100}})
	assert.NotNil(t, cmd)
	assert.Equal(t, uint64(100), next.(Model).Live.Stats.Stats.Operations)

	next, cmd = next.Update(DoneMsg{Err: errors.New("boom")})
	assert.NotNil(t, cmd)
	done := next.(Model)
	assert.True(t, done.Done)
	assert.Contains(t, done.View(), "worker crashed: boom")
}
