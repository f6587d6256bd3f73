package stats

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
)

// Bucket indexes the fixed latency histogram.
type Bucket int

const (
	BucketLE1 Bucket = iota
	BucketGT1
	BucketGT2
	BucketGT4
	BucketGT8
	BucketGT16
	BucketGT32
	NumBuckets
)

var bucketLabels = [NumBuckets]string{"<= 1", "> 1", "> 2", "> 4", "> 8", "> 16", "> 32"}

// bucketFloors are the strict lower bounds in milliseconds, checked from the
// largest down.
var bucketFloors = [NumBuckets]int64{0, 1, 2, 4, 8, 16, 32}

func (b Bucket) String() string {
	if b < 0 || b >= NumBuckets {
		return "bucket(" + strconv.Itoa(int(b)) + ")"
	}
	return bucketLabels[b]
}

// BucketLabels returns the labels in bucket order.
func BucketLabels() []string {
	return bucketLabels[:]
}

// BucketFor picks the single bucket for a duration: the whole number of
// milliseconds is compared against 32, 16, 8, 4, 2, 1 with a strict greater
// than, and the first match wins.
func BucketFor(d time.Duration) Bucket {
	ms := d.Milliseconds()
	for b := BucketGT32; b > BucketLE1; b-- {
		if ms > bucketFloors[b] {
			return b
		}
	}
	return BucketLE1
}

// LatencyHistogram counts operations per bucket.
type LatencyHistogram [NumBuckets]uint64

// Total is the number of operations counted.
func (h LatencyHistogram) Total() uint64 {
	var n uint64
	for _, c := range h {
		n += c
	}
	return n
}

// MarshalJSON writes an object keyed by bucket label, in bucket order.
func (h LatencyHistogram) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range h {
		if i > 0 {
			buf.WriteByte(',')
		}
		buf.WriteString(strconv.Quote(bucketLabels[i]))
		buf.WriteByte(':')
		buf.WriteString(strconv.FormatUint(c, 10))
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads the object written by MarshalJSON. Unknown labels are
// an error.
func (h *LatencyHistogram) UnmarshalJSON(b []byte) error {
	var m map[string]uint64
	if err := json.Unmarshal(b, &m); err != nil {
		return err
	}
	*h = LatencyHistogram{}
	for label, c := range m {
		i := indexOfLabel(label)
		if i < 0 {
			return fmt.Errorf("unknown latency bucket %q", label)
		}
		h[i] = c
	}
	return nil
}

func indexOfLabel(label string) int {
	for i, l := range bucketLabels {
		if l == label {
			return i
		}
	}
	return -1
}

const (
	minLatencyUs = 1
	maxLatencyUs = int64(time.Hour / time.Microsecond)
)

// Percentiles tracks latencies in microseconds for quantile queries.
type Percentiles struct {
	hist *hdrhistogram.Histogram
}

// NewPercentiles covers 1us to 1h with 3 significant figures.
func NewPercentiles() *Percentiles {
	return &Percentiles{hist: hdrhistogram.New(minLatencyUs, maxLatencyUs, 3)}
}

// Record adds one latency, clamped to the tracked range.
func (p *Percentiles) Record(d time.Duration) {
	us := d.Microseconds()
	if us < minLatencyUs {
		us = minLatencyUs
	}
	if us > maxLatencyUs {
		us = maxLatencyUs
	}
	// in range by construction
	_ = p.hist.RecordValue(us)
}

func (p *Percentiles) Count() int64 {
	return p.hist.TotalCount()
}

// Summary computes the latency summary in milliseconds.
func (p *Percentiles) Summary() LatencySummary {
	if p.hist.TotalCount() == 0 {
		return LatencySummary{}
	}
	return LatencySummary{
		MinMs:  usToMs(p.hist.Min()),
		MeanMs: p.hist.Mean() / 1000.0,
		P50Ms:  usToMs(p.hist.ValueAtQuantile(50)),
		P90Ms:  usToMs(p.hist.ValueAtQuantile(90)),
		P99Ms:  usToMs(p.hist.ValueAtQuantile(99)),
		P999Ms: usToMs(p.hist.ValueAtQuantile(99.9)),
		MaxMs:  usToMs(p.hist.Max()),
	}
}

// LatencySummary is a point-in-time percentile view.
type LatencySummary struct {
	MinMs  float64 `json:"min_ms"`
	MeanMs float64 `json:"mean_ms"`
	P50Ms  float64 `json:"p50_ms"`
	P90Ms  float64 `json:"p90_ms"`
	P99Ms  float64 `json:"p99_ms"`
	P999Ms float64 `json:"p999_ms"`
	MaxMs  float64 `json:"max_ms"`
}

func usToMs(us int64) float64 {
	return float64(us) / 1000.0
}
