// Package stats computes summary statistics over a heart-rate history.
//
// Percentiles come from a DDSketch with 1% relative accuracy, so the
// summary can also be built incrementally while readings stream in.
package stats

import (
	"math"
	"sync"

	"github.com/DataDog/sketches-go/ddsketch"
)

// RelativeAccuracy of the percentile sketch.
const RelativeAccuracy = 0.01

// Summary is the result of summarizing a history.
type Summary struct {
	Count     int64   `json:"count"`
	Mean      float64 `json:"mean"`
	Min       float64 `json:"min"`
	Max       float64 `json:"max"`
	P50       float64 `json:"p50"`
	P90       float64 `json:"p90"`
	P95       float64 `json:"p95"`
	P99       float64 `json:"p99"`
	Anomalies int     `json:"anomalies"`
}

// Streaming maintains running statistics.
//
// Streaming is safe for concurrent use.
type Streaming struct {
	mu sync.Mutex

	count     int64
	sum       float64
	min       float64
	max       float64
	anomalies int

	// nil if the sketch could not be created
	sketch *ddsketch.DDSketch
}

// NewStreaming creates an empty summary.
func NewStreaming() *Streaming {
	s := &Streaming{
		min: math.MaxFloat64,
		max: -math.MaxFloat64,
	}
	if sketch, err := ddsketch.NewDefaultDDSketch(RelativeAccuracy); err == nil {
		s.sketch = sketch
	}
	return s
}

// Add records one reading.
func (s *Streaming) Add(value float64, anomaly bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.count++
	s.sum += value
	if value < s.min {
		s.min = value
	}
	if value > s.max {
		s.max = value
	}
	if anomaly {
		s.anomalies++
	}

	// DDSketch only accepts non-negative values with the default mapping.
	if s.sketch != nil && value >= 0 {
		_ = s.sketch.Add(value)
	}
}

// Result returns the current summary. An empty summary is all zero.
func (s *Streaming) Result() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.count == 0 {
		return Summary{}
	}

	out := Summary{
		Count:     s.count,
		Mean:      s.sum / float64(s.count),
		Min:       s.min,
		Max:       s.max,
		Anomalies: s.anomalies,
	}

	if s.sketch != nil && !s.sketch.IsEmpty() {
		out.P50, _ = s.sketch.GetValueAtQuantile(0.50)
		out.P90, _ = s.sketch.GetValueAtQuantile(0.90)
		out.P95, _ = s.sketch.GetValueAtQuantile(0.95)
		out.P99, _ = s.sketch.GetValueAtQuantile(0.99)
	}
	return out
}

// Summarize computes the summary of values. anomalies may be shorter than
// values or nil; missing entries count as normal.
func Summarize(values []int, anomalies []bool) Summary {
	s := NewStreaming()
	for i, v := range values {
		s.Add(float64(v), i < len(anomalies) && anomalies[i])
	}
	return s.Result()
}
