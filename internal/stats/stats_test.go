package stats

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ms(f float64) time.Duration {
	return time.Duration(f * float64(time.Millisecond))
}

func result(status int, d time.Duration) OperationResult {
	start := time.Now()
	return OperationResult{Status: status, Start: start, End: start.Add(d)}
}

func TestBucketFor(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want Bucket
	}{
		{0, BucketLE1},
		{ms(0.4), BucketLE1},
		{ms(1), BucketLE1},
		{ms(1.9), BucketLE1},
		{ms(2), BucketGT1},
		{ms(2.9), BucketGT1},
		{ms(3), BucketGT2},
		{ms(4), BucketGT2},
		{ms(5), BucketGT4},
		{ms(8), BucketGT4},
		{ms(9), BucketGT8},
		{ms(16), BucketGT8},
		{ms(17), BucketGT16},
		{ms(32), BucketGT16},
		{ms(32.99), BucketGT16},
		{ms(33), BucketGT32},
		{time.Minute, BucketGT32},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, BucketFor(tt.d), "duration %v", tt.d)
	}
}

func TestSlowOperationCountsOnce(t *testing.T) {
	a := NewAggregator()
	a.RecordLatency(ms(33))

	snap := a.Snapshot()
	assert.Equal(t, uint64(1), snap.Latency[BucketGT32])
	for b := BucketLE1; b < BucketGT32; b++ {
		assert.Zero(t, snap.Latency[b], "bucket %s", b)
	}
}

func TestAggregatorIteration(t *testing.T) {
	a := NewAggregator()
	a.Iteration([]OperationResult{
		result(0, ms(0.5)),
		result(0, ms(3)),
		result(2, ms(40)),
		{Status: 9, Write: true, Start: time.Now(), End: time.Now().Add(ms(10))},
	})
	a.Iteration([]OperationResult{result(0, ms(1))})

	snap := a.Snapshot()
	assert.Equal(t, uint64(5), snap.Operations)
	assert.Equal(t, uint64(4), snap.Reads)
	assert.Equal(t, uint64(1), snap.Writes)
	assert.Equal(t, uint64(2), snap.Iterations)
	assert.Equal(t, StatusHistogram{0: 3, 2: 1, 9: 1}, snap.Status)
	assert.Equal(t, LatencyHistogram{2, 0, 1, 0, 1, 0, 1}, snap.Latency)
	assert.Equal(t, uint64(2), snap.Errors())
	assert.Equal(t, []int{0, 2, 9}, snap.Status.Codes())
}

func TestSnapshotIsACopy(t *testing.T) {
	a := NewAggregator()
	a.Iteration([]OperationResult{result(0, ms(1))})
	snap := a.Snapshot()

	a.Iteration([]OperationResult{result(0, ms(1)), result(5, ms(1))})
	assert.Equal(t, uint64(1), snap.Status[0])
	assert.NotContains(t, snap.Status, 5)
	assert.Equal(t, uint64(1), snap.Latency.Total())
}

func TestHistogramConservation(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("both histograms sum to the operations recorded", prop.ForAll(
		func(durationsUs []int64, statuses []int) bool {
			a := NewAggregator()
			results := make([]OperationResult, len(durationsUs))
			start := time.Now()
			for i, us := range durationsUs {
				st := 0
				if len(statuses) > 0 {
					st = statuses[i%len(statuses)]
				}
				results[i] = OperationResult{
					Status: st,
					Start:  start,
					End:    start.Add(time.Duration(us) * time.Microsecond),
				}
			}
			// split into two iterations to check accumulation across batches
			half := len(results) / 2
			a.Iteration(results[:half])
			a.Iteration(results[half:])

			snap := a.Snapshot()
			n := uint64(len(results))
			return snap.Latency.Total() == n && snap.Status.Total() == n && snap.Operations == n
		},
		gen.SliceOf(gen.Int64Range(0, 100000)),
		gen.SliceOf(gen.IntRange(-10, 30)),
	))

	properties.Property("every duration lands in exactly one bucket", prop.ForAll(
		func(us int64) bool {
			a := NewAggregator()
			a.RecordLatency(time.Duration(us) * time.Microsecond)
			snap := a.Snapshot()
			nonZero := 0
			for _, c := range snap.Latency {
				if c > 0 {
					nonZero++
				}
			}
			return nonZero == 1 && snap.Latency.Total() == 1
		},
		gen.Int64Range(0, 10_000_000),
	))

	properties.TestingRun(t)
}

func TestLatencyHistogramJSONOrder(t *testing.T) {
	h := LatencyHistogram{1, 2, 3, 4, 5, 6, 7}
	b, err := h.MarshalJSON()
	require.NoError(t, err)
	assert.Equal(t, `{"<= 1":1,"> 1":2,"> 2":3,"> 4":4,"> 8":5,"> 16":6,"> 32":7}`, string(b))

	var back LatencyHistogram
	require.NoError(t, json.Unmarshal(b, &back))
	assert.Equal(t, h, back)
	assert.Error(t, json.Unmarshal([]byte(`{"> 64":1}`), &back))
}

func TestPercentiles(t *testing.T) {
	p := NewPercentiles()
	assert.Equal(t, LatencySummary{}, p.Summary())

	for i := 1; i <= 100; i++ {
		p.Record(ms(float64(i)))
	}
	p.Record(0)
	p.Record(2 * time.Hour)

	s := p.Summary()
	assert.Equal(t, int64(102), p.Count())
	assert.InDelta(t, 50, s.P50Ms, 1)
	assert.InDelta(t, 99, s.P99Ms, 1.5)
	assert.InDelta(t, 0.001, s.MinMs, 0.0005)
	assert.InDelta(t, 3_600_000, s.MaxMs, 8000)
}

func TestBatchHistogram(t *testing.T) {
	h := Histogram([]OperationResult{result(0, ms(0.1)), result(0, ms(50))})
	assert.Equal(t, LatencyHistogram{1, 0, 0, 0, 0, 0, 1}, h)
	assert.Equal(t, "> 32", BucketGT32.String())
	assert.Len(t, BucketLabels(), 7)
}
