package report

import (
	"encoding/csv"
	"encoding/json"
	"os"
	"strconv"

	"github.com/pkg/errors"

	"kvbench/internal/runner"
	"kvbench/internal/stats"
)

// Record is one exported operation.
type Record struct {
	Worker    int    `json:"worker"`
	PID       int    `json:"pid"`
	Iteration int    `json:"iteration"`
	Index     int    `json:"index"`
	Type      string `json:"type"`
	Status    int    `json:"status"`
	StartUs   int64  `json:"start_us"`
	ElapsedUs int64  `json:"elapsed_us"`
	Bucket    string `json:"bucket"`
}

// Records flattens the reports into per-operation rows.
func Records(reports []runner.IterationReport) []Record {
	var n int
	for _, r := range reports {
		n += len(r.Operations)
	}
	recs := make([]Record, 0, n)
	for _, r := range reports {
		for i, op := range r.Operations {
			typ := "read"
			if op.Write {
				typ = "write"
			}
			recs = append(recs, Record{
				Worker:    r.Worker,
				PID:       r.PID,
				Iteration: r.Iteration,
				Index:     i,
				Type:      typ,
				Status:    op.Status,
				StartUs:   op.Start.UnixMicro(),
				ElapsedUs: op.Duration().Microseconds(),
				Bucket:    stats.BucketFor(op.Duration()).String(),
			})
		}
	}
	return recs
}

var csvHeader = []string{
	"worker", "pid", "iteration", "index", "type", "status", "startUs", "elapsedUs", "bucket",
}

// ExportCSV writes one row per operation.
func ExportCSV(reports []runner.IterationReport, filename string) error {
	f, err := os.Create(filename)
	if err != nil {
		return errors.Wrap(err, "create csv export")
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range Records(reports) {
		record := []string{
			strconv.Itoa(r.Worker),
			strconv.Itoa(r.PID),
			strconv.Itoa(r.Iteration),
			strconv.Itoa(r.Index),
			r.Type,
			strconv.Itoa(r.Status),
			strconv.FormatInt(r.StartUs, 10),
			strconv.FormatInt(r.ElapsedUs, 10),
			r.Bucket,
		}
		if err := w.Write(record); err != nil {
			return err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.Wrap(err, "write csv export")
	}
	return f.Close()
}

// ExportJSON writes the per-operation rows as a JSON array.
func ExportJSON(reports []runner.IterationReport, filename string) error {
	data, err := json.MarshalIndent(Records(reports), "", "  ")
	if err != nil {
		return errors.Wrap(err, "encode json export")
	}
	return errors.Wrap(os.WriteFile(filename, data, 0o644), "write json export")
}
