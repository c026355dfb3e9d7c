package anomaly

import (
	"math"
	"slices"

	"github.com/xtxerr/cardiowatch/internal/errors"
)

// Result is the classification of one history.
type Result struct {
	Scores    []float64
	Threshold float64
	Anomalies []bool

	// Err is ErrInsufficientData when the history was too short to analyse.
	// Anomalies is all false in that case.
	Err error
}

// Count returns the number of anomalous readings.
func (r Result) Count() int {
	n := 0
	for _, a := range r.Anomalies {
		if a {
			n++
		}
	}
	return n
}

// Detector classifies BPM histories.
type Detector struct {
	cfg Config
}

// New creates a detector.
func New(cfg Config) *Detector {
	return &Detector{cfg: cfg}
}

// Detect flags each value as anomalous or normal.
func (d *Detector) Detect(values []int) []bool {
	return d.Analyze(values).Anomalies
}

// Analyze trains a forest on values and scores every value against it.
// Histories shorter than MinSamples are classified all-normal.
func (d *Detector) Analyze(values []int) Result {
	res := Result{Anomalies: make([]bool, len(values))}
	if len(values) < max(d.cfg.MinSamples, 2) {
		res.Err = errors.ErrInsufficientData
		return res
	}

	xs := make([]float64, len(values))
	for i, v := range values {
		xs[i] = float64(v)
	}

	f := Fit(xs, d.cfg)
	res.Scores = make([]float64, len(xs))
	for i, x := range xs {
		res.Scores[i] = f.Score(x)
	}

	res.Threshold = quantile(res.Scores, 1-d.cfg.Contamination)
	for i, s := range res.Scores {
		res.Anomalies[i] = s > res.Threshold
	}
	return res
}

// quantile returns the q-quantile of xs with linear interpolation.
func quantile(xs []float64, q float64) float64 {
	sorted := slices.Clone(xs)
	slices.Sort(sorted)

	pos := q * float64(len(sorted)-1)
	lo := int(math.Floor(pos))
	hi := int(math.Ceil(pos))
	if lo == hi {
		return sorted[lo]
	}
	return sorted[lo] + (pos-float64(lo))*(sorted[hi]-sorted[lo])
}
