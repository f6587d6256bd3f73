// Package tui is the live dashboard shown while a run is in progress.
package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"kvbench/internal/runner"
	"kvbench/internal/tui/live"
	"kvbench/internal/tui/styles"
)

const (
	tickInterval = 200 * time.Millisecond
)

type tickMsg time.Time

// StatsMsg carries a controller snapshot into the program.
type StatsMsg runner.StatsSnapshot

// DoneMsg is sent once Run has returned.
type DoneMsg struct {
	Outcome runner.Outcome
	Err     error
}

type Model struct {
	Live    live.Model
	Updates runner.StatsUpdateChan
	// Stop asks the controller for a graceful shutdown.
	Stop func()

	Stopping bool
	Done     bool
	Err      error
}

func NewModel(cfg runner.Config, updates runner.StatsUpdateChan, stop func()) Model {
	return Model{
		Live:    live.NewModel(cfg),
		Updates: updates,
		Stop:    stop,
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(waitForUpdate(m.Updates), tickCmd())
}

func waitForUpdate(sub runner.StatsUpdateChan) tea.Cmd {
	return func() tea.Msg {
		return StatsMsg(<-sub)
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c", "q":
			if m.Done {
				return m, tea.Quit
			}
			if !m.Stopping {
				m.Stopping = true
				if m.Stop != nil {
					m.Stop()
				}
			}
		}
		return m, nil

	case StatsMsg:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(runner.StatsSnapshot(msg))
		return m, tea.Batch(cmd, waitForUpdate(m.Updates))

	case DoneMsg:
		m.Done = true
		m.Err = msg.Err
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(runner.StatsSnapshot{
			State:   runner.StateFinalizing,
			Online:  m.Live.Stats.Online,
			Exited:  m.Live.Stats.Workers,
			Workers: m.Live.Stats.Workers,
			Stats:   msg.Outcome.Snapshot,
		})
		return m, tea.Sequence(cmd, tea.Quit)

	case tickMsg:
		if m.Done {
			return m, nil
		}
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(live.TickMsg(msg))
		return m, tea.Batch(cmd, tickCmd())

	case tea.WindowSizeMsg, progress.FrameMsg:
		var cmd tea.Cmd
		m.Live, cmd = m.Live.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	status := styles.RenderKey("q", "stop")
	switch {
	case m.Done && m.Err != nil:
		status = styles.Error.Render("worker crashed: " + m.Err.Error())
	case m.Done:
		status = styles.Value.Render("done")
	case m.Stopping:
		status = styles.Warn.Render("stopping, waiting for in-flight iterations")
	}

	return lipgloss.JoinVertical(lipgloss.Left,
		styles.Title.Render("kvbench "+m.Live.Cfg.Store),
		"",
		m.Live.View(),
		"",
		status,
	) + "\n"
}
