package cmd

import (
	"fmt"
	"io"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"kvbench/internal/storage"
	"kvbench/internal/tui/history"
	"kvbench/internal/tui/styles"
)

var interactive bool

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the runs saved with --history",
	RunE: func(cmd *cobra.Command, args []string) error {
		items, err := loadHistory(viper.GetString("history_file"))
		if err != nil {
			return err
		}
		if interactive {
			_, err := tea.NewProgram(history.NewModel(items), tea.WithAltScreen()).Run()
			return err
		}
		return printHistory(cmd.OutOrStdout(), items)
	},
}

func init() {
	historyCmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "Browse the history in a table view")
}

func loadHistory(path string) ([]storage.HistoryItem, error) {
	if path == "" {
		var err error
		if path, err = storage.DefaultPath(); err != nil {
			return nil, err
		}
	}
	s, err := storage.NewStore(path)
	if err != nil {
		return nil, err
	}
	defer s.Close()
	return s.List()
}

func printHistory(w io.Writer, items []storage.HistoryItem) error {
	if len(items) == 0 {
		_, err := fmt.Fprintln(w, "no runs recorded")
		return err
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(styles.Subtle).
		Headers(history.Headers()...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Title.Padding(0, 1)
			}
			return lipgloss.NewStyle().Padding(0, 1)
		})
	for _, r := range history.Rows(items) {
		t.Row(r...)
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}
