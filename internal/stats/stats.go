// Package stats folds per-operation results into the run's histograms.
package stats

import (
	"sort"
	"time"
)

// OperationResult is the outcome of one executed operation.
type OperationResult struct {
	Status int
	Write  bool
	Start  time.Time
	End    time.Time
}

// Duration is End-Start, using the monotonic clock readings when present.
func (r OperationResult) Duration() time.Duration {
	return r.End.Sub(r.Start)
}

// StatusHistogram counts operations per status code.
type StatusHistogram map[int]uint64

// Codes returns the status codes in ascending order.
func (h StatusHistogram) Codes() []int {
	codes := make([]int, 0, len(h))
	for c := range h {
		codes = append(codes, c)
	}
	sort.Ints(codes)
	return codes
}

// Total is the number of operations counted.
func (h StatusHistogram) Total() uint64 {
	var n uint64
	for _, c := range h {
		n += c
	}
	return n
}

// Aggregator holds the histogram state of one run. It has no locking: the
// run controller is its only writer and readers get a Snapshot.
type Aggregator struct {
	status      StatusHistogram
	latency     LatencyHistogram
	percentiles *Percentiles

	reads      uint64
	writes     uint64
	iterations uint64
	started    time.Time
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		status:      make(StatusHistogram),
		percentiles: NewPercentiles(),
		started:     time.Now(),
	}
}

// RecordStatus counts one operation under status.
func (a *Aggregator) RecordStatus(status int) {
	a.status[status]++
}

// RecordLatency counts one operation in exactly one latency bucket.
func (a *Aggregator) RecordLatency(d time.Duration) {
	a.latency[BucketFor(d)]++
	a.percentiles.Record(d)
}

// Record folds a single result.
func (a *Aggregator) Record(r OperationResult) {
	a.RecordStatus(r.Status)
	a.RecordLatency(r.Duration())
	if r.Write {
		a.writes++
	} else {
		a.reads++
	}
}

// Iteration folds the results of one completed batch.
func (a *Aggregator) Iteration(results []OperationResult) {
	for _, r := range results {
		a.Record(r)
	}
	a.iterations++
}

// Snapshot is a copy of the aggregator state safe to hand to other goroutines.
type Snapshot struct {
	Status     StatusHistogram  `json:"status_codes"`
	Latency    LatencyHistogram `json:"durations"`
	Summary    LatencySummary   `json:"latency"`
	Operations uint64           `json:"operations"`
	Reads      uint64           `json:"reads"`
	Writes     uint64           `json:"writes"`
	Iterations uint64           `json:"iterations"`
	Elapsed    time.Duration    `json:"elapsed"`
}

// Errors is the number of operations with a nonzero status.
func (s Snapshot) Errors() uint64 {
	return s.Operations - s.Status[0]
}

// OpsPerSecond is the overall throughput since the aggregator was created.
func (s Snapshot) OpsPerSecond() float64 {
	if s.Elapsed <= 0 {
		return 0
	}
	return float64(s.Operations) / s.Elapsed.Seconds()
}

func (a *Aggregator) Snapshot() Snapshot {
	status := make(StatusHistogram, len(a.status))
	for k, v := range a.status {
		status[k] = v
	}
	return Snapshot{
		Status:     status,
		Latency:    a.latency,
		Summary:    a.percentiles.Summary(),
		Operations: a.reads + a.writes,
		Reads:      a.reads,
		Writes:     a.writes,
		Iterations: a.iterations,
		Elapsed:    time.Since(a.started),
	}
}

// Histogram builds the fixed latency histogram of a single batch, used for
// per-iteration output.
func Histogram(results []OperationResult) LatencyHistogram {
	var h LatencyHistogram
	for _, r := range results {
		h[BucketFor(r.Duration())]++
	}
	return h
}
