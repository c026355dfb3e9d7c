package anomaly

import (
	"math"
	"slices"
	"testing"

	"github.com/xtxerr/cardiowatch/internal/errors"
)

func normalHistory(n int) []int {
	out := make([]int, n)
	for i := range out {
		out[i] = 68 + (i*7)%9 // 68..76
	}
	return out
}

func TestDetectInsufficientData(t *testing.T) {
	d := New(DefaultConfig())

	for _, n := range []int{0, 1, 19} {
		res := d.Analyze(normalHistory(n))
		if !errors.Is(res.Err, errors.ErrInsufficientData) {
			t.Errorf("n=%d: Err = %v, want ErrInsufficientData", n, res.Err)
		}
		if len(res.Anomalies) != n || res.Count() != 0 {
			t.Errorf("n=%d: anomalies = %v, want all normal", n, res.Anomalies)
		}
	}

	if res := d.Analyze(normalHistory(20)); res.Err != nil {
		t.Errorf("n=20: Err = %v", res.Err)
	}
}

func TestDetectFlagsExtremes(t *testing.T) {
	values := normalHistory(60)
	values[17] = 130
	values[42] = 41

	res := New(DefaultConfig()).Analyze(values)
	if res.Err != nil {
		t.Fatal(res.Err)
	}
	if !res.Anomalies[17] {
		t.Errorf("130 bpm not flagged (score %.3f, threshold %.3f)", res.Scores[17], res.Threshold)
	}
	if !res.Anomalies[42] {
		t.Errorf("41 bpm not flagged (score %.3f, threshold %.3f)", res.Scores[42], res.Threshold)
	}

	// The extremes score above every normal reading.
	for i, s := range res.Scores {
		if i == 17 || i == 42 {
			continue
		}
		if s >= res.Scores[17] || s >= res.Scores[42] {
			t.Errorf("normal reading %d scored %.3f, not below the extremes", i, s)
		}
	}

	if c := res.Count(); c > 6 {
		t.Errorf("flagged %d of 60, want at most the contamination share", c)
	}
}

func TestDetectIsDeterministic(t *testing.T) {
	values := normalHistory(40)
	values[5] = 120
	d := New(DefaultConfig())

	a := d.Detect(values)
	b := d.Detect(values)
	if !slices.Equal(a, b) {
		t.Error("two runs on the same history disagree")
	}
}

func TestDetectConstantHistory(t *testing.T) {
	values := make([]int, 30)
	for i := range values {
		values[i] = 72
	}
	if got := New(DefaultConfig()).Analyze(values).Count(); got != 0 {
		t.Errorf("constant history flagged %d readings", got)
	}
}

func TestScoreRange(t *testing.T) {
	xs := make([]float64, 100)
	for i := range xs {
		xs[i] = float64(70 + i%5)
	}
	xs[0] = 200
	f := Fit(xs, DefaultConfig())

	inlier, outlier := f.Score(72), f.Score(200)
	if inlier <= 0 || inlier > 1 || outlier <= 0 || outlier > 1 {
		t.Fatalf("scores out of range: %v %v", inlier, outlier)
	}
	if outlier <= inlier {
		t.Errorf("outlier score %.3f <= inlier score %.3f", outlier, inlier)
	}
}

func TestAveragePath(t *testing.T) {
	if averagePath(1) != 0 || averagePath(2) != 1 {
		t.Error("small cases")
	}
	// c(256) is about 10.24.
	if got := averagePath(256); math.Abs(got-10.24) > 0.05 {
		t.Errorf("averagePath(256) = %.3f", got)
	}
}

func TestQuantile(t *testing.T) {
	xs := []float64{4, 1, 3, 2, 5}
	tests := map[float64]float64{0: 1, 0.5: 3, 1: 5, 0.9: 4.6}
	for q, want := range tests {
		if got := quantile(xs, q); math.Abs(got-want) > 1e-9 {
			t.Errorf("quantile(%v) = %v, want %v", q, got, want)
		}
	}
}
