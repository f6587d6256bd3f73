package report

import (
	"fmt"
	"io"
	"strings"
	"time"

	"kvbench/internal/runner"
	"kvbench/internal/stats"
)

// Iteration writes one line describing a completed batch.
func Iteration(w io.Writer, rep runner.IterationReport) error {
	var b strings.Builder
	fmt.Fprintf(&b, "[worker: %d] [pid: %d] iteration %d: %d ops (%d reads, %d writes) in %s |",
		rep.Worker, rep.PID, rep.Iteration, len(rep.Operations), rep.Reads, rep.Writes,
		rep.Elapsed.Round(10*time.Microsecond))

	h := stats.Histogram(rep.Operations)
	total := h.Total()
	for i, c := range h {
		fmt.Fprintf(&b, " %s: %s", stats.Bucket(i), percent(c, total))
	}

	status := make(stats.StatusHistogram)
	for _, op := range rep.Operations {
		status[op.Status]++
	}
	b.WriteString(" | status")
	for _, code := range status.Codes() {
		fmt.Fprintf(&b, " %d: %s", code, percent(status[code], total))
	}
	b.WriteByte('\n')

	_, err := io.WriteString(w, b.String())
	return err
}
