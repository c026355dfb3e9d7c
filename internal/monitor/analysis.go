package monitor

import (
	"time"

	"github.com/xtxerr/cardiowatch/internal/stats"
	"github.com/xtxerr/cardiowatch/internal/store"
)

// Row is one reading with its classification.
type Row struct {
	Timestamp int64     `json:"timestamp"`
	BPM       int       `json:"bpm"`
	Anomaly   bool      `json:"anomaly"`
	Time      time.Time `json:"time"`
}

// Analysis is one published snapshot of the store.
type Analysis struct {
	Profile  store.Profile `json:"profile"`
	Rows     []Row         `json:"rows"`
	Capacity int           `json:"capacity"`

	// Ready is false while the history is shorter than MinSamples. No
	// classification or alerting happens before that.
	Ready bool `json:"ready"`

	Latest  *Row          `json:"latest,omitempty"`
	Delta   int           `json:"delta"`
	Status  Status        `json:"status"`
	Summary stats.Summary `json:"summary"`

	GeneratedAt time.Time `json:"generated_at"`

	// seq orders analyses by the time their snapshot was read.
	seq uint64
}

// Recent returns the last n rows, newest first.
func (a *Analysis) Recent(n int) []Row {
	if n > len(a.Rows) {
		n = len(a.Rows)
	}
	out := make([]Row, 0, n)
	for i := len(a.Rows) - 1; i >= len(a.Rows)-n; i-- {
		out = append(out, a.Rows[i])
	}
	return out
}

// Values returns the BPM column.
func (a *Analysis) Values() []int {
	out := make([]int, len(a.Rows))
	for i, r := range a.Rows {
		out[i] = r.BPM
	}
	return out
}

// Analyze classifies a store snapshot.
func Analyze(doc *store.Document, det Detector, cfg Config, now time.Time) *Analysis {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}

	a := &Analysis{
		Profile:     doc.Profile.Clone(),
		Rows:        make([]Row, len(doc.History)),
		Capacity:    doc.MaxEntries,
		Ready:       len(doc.History) >= cfg.MinSamples,
		Status:      StatusWaiting,
		GeneratedAt: now.In(loc),
	}
	for i, r := range doc.History {
		a.Rows[i] = Row{
			Timestamp: r.Timestamp,
			BPM:       r.BPM,
			Time:      time.Unix(r.Timestamp, 0).In(loc),
		}
	}

	if n := len(a.Rows); n > 0 {
		latest := a.Rows[n-1]
		a.Latest = &latest
		if n > 1 {
			a.Delta = latest.BPM - a.Rows[n-2].BPM
		}
	}

	if !a.Ready {
		a.Summary = stats.Summarize(a.Values(), nil)
		return a
	}

	flags := det.Detect(a.Values())
	for i := range a.Rows {
		a.Rows[i].Anomaly = i < len(flags) && flags[i]
	}
	a.Latest.Anomaly = a.Rows[len(a.Rows)-1].Anomaly
	a.Summary = stats.Summarize(a.Values(), flags)
	a.Status = classify(*a.Latest, cfg)
	return a
}

func classify(latest Row, cfg Config) Status {
	switch {
	case latest.Anomaly:
		return StatusAnomaly
	case latest.BPM > cfg.TachycardiaBPM:
		return StatusTachycardia
	case latest.BPM < cfg.BradycardiaBPM:
		return StatusBradycardia
	default:
		return StatusNormal
	}
}
