package report

import (
	"encoding/json"
	"io"

	"github.com/pkg/errors"

	"kvbench/internal/runner"
	"kvbench/internal/stats"
)

type jsonConfiguration struct {
	Operations int  `json:"operations"`
	Iterations *int `json:"iterations"`
	Processes  int  `json:"processes"`
}

type jsonSummary struct {
	Configuration jsonConfiguration      `json:"configuration"`
	Durations     stats.LatencyHistogram `json:"durations"`
	StatusCodes   stats.StatusHistogram  `json:"status_codes"`
}

// JSON writes the summary as a single line. iterations is null for timed
// runs.
func JSON(w io.Writer, cfg runner.Config, snap stats.Snapshot) error {
	out := jsonSummary{
		Configuration: jsonConfiguration{
			Operations: cfg.Operations,
			Processes:  cfg.Processes,
		},
		Durations:   snap.Latency,
		StatusCodes: snap.Status,
	}
	if !cfg.Timed() {
		n := cfg.Iterations
		out.Configuration.Iterations = &n
	}
	if out.StatusCodes == nil {
		out.StatusCodes = stats.StatusHistogram{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	// Encode appends the newline
	return errors.Wrap(enc.Encode(out), "encode summary")
}
