package report

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"kvbench/internal/runner"
	"kvbench/internal/stats"
	"kvbench/internal/tui/styles"
)

var (
	headingStyle = lipgloss.NewStyle().Bold(true)
	sectionStyle = lipgloss.NewStyle().Foreground(styles.ColorPrimary).PaddingLeft(2)
	headerCell   = lipgloss.NewStyle().Foreground(styles.ColorPrimary).PaddingLeft(4)
	cell         = lipgloss.NewStyle().PaddingLeft(4)
)

func newTable() *table.Table {
	return table.New().
		Border(lipgloss.HiddenBorder()).
		BorderTop(false).
		BorderBottom(false).
		BorderLeft(false).
		BorderRight(false).
		BorderColumn(false).
		BorderHeader(false)
}

// Summary writes the final human-readable report.
func Summary(w io.Writer, cfg runner.Config, out runner.Outcome) error {
	snap := out.Snapshot

	iterations, elapsed := "-", "-"
	if cfg.Timed() {
		elapsed = TimeUnits(cfg.Duration.Seconds())
	} else {
		iterations = strconv.Itoa(cfg.Iterations)
	}
	conf := keyValues(
		[]string{"operations", "iterations", "processes", "time"},
		[]string{strconv.Itoa(cfg.Operations), iterations, strconv.Itoa(cfg.Processes), elapsed},
	)

	p := snap.Summary
	pct := histogramTable(
		[]string{"min", "mean", "p50", "p90", "p99", "p99.9", "max"},
		[]string{ms(p.MinMs), ms(p.MeanMs), ms(p.P50Ms), ms(p.P90Ms), ms(p.P99Ms), ms(p.P999Ms), ms(p.MaxMs)},
	)

	_, err := fmt.Fprintf(w, "\n%s\n\n%s\n%s\n\n%s\n%s\n\n%s\n%s\n\n%s\n%s\n\n%s\n\n",
		headingStyle.Render("SUMMARY"),
		sectionStyle.Render("Configuration"), conf,
		sectionStyle.Render("Durations"), DurationsTable(snap.Latency),
		sectionStyle.Render("Status Codes"), StatusTable(snap.Status),
		sectionStyle.Render("Latency (ms)"), pct,
		cell.Render(fmt.Sprintf("%s operations in %s, %s ops/s",
			NumberFormat(float64(snap.Operations), 0),
			TimeUnits(out.Elapsed.Seconds()),
			NumberFormat(opsPerSecond(snap.Operations, out.Elapsed), 1))),
	)
	return err
}

// DurationsTable is the latency histogram as percentages, one column per
// bucket.
func DurationsTable(h stats.LatencyHistogram) string {
	total := h.Total()
	values := make([]string, len(h))
	for i, c := range h {
		values[i] = percent(c, total)
	}
	return histogramTable(stats.BucketLabels(), values)
}

// StatusTable is the status histogram as percentages in ascending status
// order.
func StatusTable(h stats.StatusHistogram) string {
	total := h.Total()
	codes := h.Codes()
	heads := make([]string, len(codes))
	values := make([]string, len(codes))
	for i, c := range codes {
		heads[i] = strconv.Itoa(c)
		values[i] = percent(h[c], total)
	}
	return histogramTable(heads, values)
}

// histogramTable renders one header row over one value row. lipgloss/table
// drops the last row of a table without headers, so the header row is
// mandatory here.
func histogramTable(heads, values []string) string {
	if len(heads) == 0 {
		return cell.Render("none")
	}
	return newTable().
		Headers(heads...).
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerCell
			}
			return cell
		}).
		Row(values...).
		Render()
}

// keyValues renders one "key value" line per pair with the keys aligned.
func keyValues(keys, values []string) string {
	width := 0
	for _, k := range keys {
		width = max(width, len(k))
	}
	lines := make([]string, len(keys))
	for i, k := range keys {
		lines[i] = headerCell.Render(fmt.Sprintf("%-*s", width, k)) + cell.Render(values[i])
	}
	return strings.Join(lines, "\n")
}

func opsPerSecond(ops uint64, elapsed time.Duration) float64 {
	if elapsed <= 0 {
		return 0
	}
	return float64(ops) / elapsed.Seconds()
}

func ms(v float64) string {
	return NumberFormat(v, 2)
}
