package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/docker/go-units"

	"kvbench/internal/runner"
)

// Memory chart scale: MemChartMax spread over MemChartBuckets columns.
const (
	MemChartMax     = 400 * units.MiB
	MemChartBuckets = 100
)

// MemoryChart draws one bar per sample.
func MemoryChart(w io.Writer, samples []runner.MemorySample) error {
	if len(samples) == 0 {
		return nil
	}
	if _, err := fmt.Fprintf(w, "\n  Memory (0 - %s)\n", units.BytesSize(MemChartMax)); err != nil {
		return err
	}
	for _, s := range samples {
		if err := MemoryLine(w, s); err != nil {
			return err
		}
	}
	return nil
}

// MemoryLine writes the bar of a single sample.
func MemoryLine(w io.Writer, s runner.MemorySample) error {
	_, err := fmt.Fprintf(w, "%6d |%s| %s\n", s.Iteration, Bar(s.RSS), units.BytesSize(float64(s.RSS)))
	return err
}

// Bar is the fixed-width bar for rss, clamped to the chart scale.
func Bar(rss uint64) string {
	cols := int(float64(rss) / float64(MemChartMax) * MemChartBuckets)
	if cols > MemChartBuckets {
		cols = MemChartBuckets
	}
	return strings.Repeat("=", cols) + strings.Repeat(" ", MemChartBuckets-cols)
}
