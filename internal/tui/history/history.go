package history

import (
	"fmt"
	"time"

	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"kvbench/internal/storage"
	"kvbench/internal/tui/styles"
)

type Model struct {
	Items []storage.HistoryItem
	Table table.Model

	Width  int
	Height int
}

var columns = []table.Column{
	{Title: "Time", Width: 20},
	{Title: "Store", Width: 10},
	{Title: "Ops/iter", Width: 9},
	{Title: "Iter/Time", Width: 10},
	{Title: "Procs", Width: 6},
	{Title: "Ops", Width: 10},
	{Title: "Ops/s", Width: 10},
	{Title: "Err %", Width: 7},
	{Title: "p99 ms", Width: 8},
	{Title: "Exit", Width: 5},
}

// Headers are the column titles, for printing the history without the TUI.
func Headers() []string {
	h := make([]string, len(columns))
	for i, c := range columns {
		h[i] = c.Title
	}
	return h
}

func NewModel(items []storage.HistoryItem) Model {
	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(15),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(false)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	m := Model{Table: t}
	m.SetItems(items)
	return m
}

// Rows converts history items into table rows, newest first as given.
func Rows(items []storage.HistoryItem) []table.Row {
	rows := make([]table.Row, len(items))
	for i, item := range items {
		cfg, sum := item.Config, item.Summary
		bound := fmt.Sprintf("%d", cfg.Iterations)
		if cfg.Timed() {
			bound = cfg.Duration.String()
		}
		errPct := 0.0
		if sum.Operations > 0 {
			errPct = float64(sum.Errors) / float64(sum.Operations) * 100
		}
		rows[i] = table.Row{
			item.Timestamp.Format(time.DateTime),
			cfg.Store,
			fmt.Sprintf("%d", cfg.Operations),
			bound,
			fmt.Sprintf("%d", cfg.Processes),
			fmt.Sprintf("%d", sum.Operations),
			fmt.Sprintf("%.1f", sum.OpsPerSec),
			fmt.Sprintf("%.2f", errPct),
			fmt.Sprintf("%.2f", sum.Latency.P99Ms),
			fmt.Sprintf("%d", sum.ExitCode),
		}
	}
	return rows
}

func (m *Model) SetItems(items []storage.HistoryItem) {
	m.Items = items
	m.Table.SetRows(Rows(items))
}

// Selected is the highlighted item, or nil when the history is empty.
func (m Model) Selected() *storage.HistoryItem {
	i := m.Table.Cursor()
	if i < 0 || i >= len(m.Items) {
		return nil
	}
	return &m.Items[i]
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Table.SetWidth(msg.Width - 4)
		if msg.Height > 8 {
			m.Table.SetHeight(msg.Height - 8)
		}

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			return m, tea.Quit
		}
	}

	m.Table, cmd = m.Table.Update(msg)
	return m, cmd
}

func (m Model) View() string {
	detail := styles.Subtle.Render("no runs recorded")
	if it := m.Selected(); it != nil {
		detail = fmt.Sprintf("%s  %s",
			styles.Active.Render(it.ID),
			styles.Subtle.Render(fmt.Sprintf("durations %v", it.Summary.Durations)))
	}
	return lipgloss.JoinVertical(lipgloss.Left,
		styles.Title.Render("Run History"),
		styles.Box.Render(m.Table.View()),
		detail,
		styles.RenderKey("↑/↓", "select")+"  "+styles.RenderKey("q", "quit"),
	)
}
