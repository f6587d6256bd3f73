package live

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"kvbench/internal/runner"
	"kvbench/internal/stats"
	"kvbench/internal/tui/components"
	"kvbench/internal/tui/styles"
)

// TickMsg advances the time-based progress of a timed run.
type TickMsg time.Time

type Model struct {
	Cfg      runner.Config
	Stats    runner.StatsSnapshot
	Progress progress.Model

	OpsLine     components.Sparkline
	LatencyLine components.Sparkline

	StartTime  time.Time
	LastUpdate time.Time
	LastOps    uint64

	Width  int
	Height int
}

func NewModel(cfg runner.Config) Model {
	now := time.Now()
	return Model{
		Cfg:         cfg,
		Progress:    progress.New(progress.WithDefaultGradient()),
		OpsLine:     components.NewSparkline(40, "Throughput", "ops/s", styles.Active),
		LatencyLine: components.NewSparkline(40, "Latency p90", "ms", styles.Warn),
		StartTime:   now,
		LastUpdate:  now,
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

// Percent is the completed share of the run: elapsed time for timed runs,
// finished iterations otherwise.
func (m Model) Percent(now time.Time) float64 {
	var pct float64
	if m.Cfg.Timed() {
		pct = float64(now.Sub(m.StartTime)) / float64(m.Cfg.Duration)
	} else if total := m.Cfg.Iterations * m.Cfg.Processes; total > 0 {
		pct = float64(m.Stats.Stats.Iterations) / float64(total)
	}
	if pct > 1 {
		pct = 1
	}
	return pct
}

func (m Model) Update(msg tea.Msg) (Model, tea.Cmd) {
	switch msg := msg.(type) {
	case runner.StatsSnapshot:
		now := time.Now()
		dt := now.Sub(m.LastUpdate).Seconds()
		if dt < 0.01 {
			dt = 0.01
		}

		ops := msg.Stats.Operations
		m.OpsLine.Push(float64(ops-m.LastOps) / dt)
		m.LatencyLine.Push(msg.Stats.Summary.P90Ms)

		m.Stats = msg
		m.LastOps = ops
		m.LastUpdate = now
		return m, m.Progress.SetPercent(m.Percent(now))

	case TickMsg:
		if !m.Cfg.Timed() {
			return m, nil
		}
		return m, m.Progress.SetPercent(m.Percent(time.Time(msg)))

	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Progress.Width = msg.Width - 4

		half := (msg.Width / 2) - 6
		if half < 10 {
			half = 10
		}
		m.OpsLine.Width = half
		m.LatencyLine.Width = half
		return m, nil

	case progress.FrameMsg:
		prog, cmd := m.Progress.Update(msg)
		m.Progress = prog.(progress.Model)
		return m, cmd
	}

	return m, nil
}

func (m Model) View() string {
	s := strings.Builder{}
	snap := m.Stats.Stats

	errRate := 0.0
	if snap.Operations > 0 {
		errRate = float64(snap.Errors()) / float64(snap.Operations) * 100
	}

	col1 := fmt.Sprintf("OPS:   %d\nITER:  %d", snap.Operations, snap.Iterations)
	col2 := fmt.Sprintf("ERR:   %.2f%%\nFAIL:  %d", errRate, snap.Errors())
	col3 := fmt.Sprintf("STATE: %s\nWORK:  %d/%d up, %d done",
		m.Stats.State, m.Stats.Online-m.Stats.Exited, m.Stats.Workers, m.Stats.Exited)

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(col1),
		styles.Box.Render(styles.ErrorRate(errRate).Render(col2)),
		styles.Box.Render(col3),
	))
	s.WriteString("\n\n")

	s.WriteString(lipgloss.JoinHorizontal(lipgloss.Top,
		styles.Box.Render(m.OpsLine.View()),
		styles.Box.Render(m.LatencyLine.View()),
	))
	s.WriteString("\n\n")

	s.WriteString(styles.Box.Render(components.Bars(stats.BucketLabels(), snap.Latency[:], 30, styles.Value)))
	s.WriteString("\n\n")

	p := snap.Summary
	s.WriteString(styles.Subtle.Render(fmt.Sprintf(
		"p50: %.2f ms  |  p90: %.2f ms  |  p99: %.2f ms  |  max: %.2f ms",
		p.P50Ms, p.P90Ms, p.P99Ms, p.MaxMs,
	)))
	s.WriteString("\n\n")

	s.WriteString(m.Progress.View())

	return s.String()
}
