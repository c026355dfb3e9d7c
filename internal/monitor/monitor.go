// Package monitor is the reading consumer.
//
// The monitor re-reads the record store on a fixed interval, classifies
// the history, derives the patient status, and pushes a chat alert for
// every new anomalous reading. The last analysis is published for the
// dashboard and report generator.
package monitor

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/xtxerr/cardiowatch/config"
	"github.com/xtxerr/cardiowatch/internal/errors"
	"github.com/xtxerr/cardiowatch/internal/logging"
	"github.com/xtxerr/cardiowatch/internal/store"
)

var log = logging.Component("monitor")

// Source provides store snapshots. *store.Store implements it.
type Source interface {
	Read() (*store.Document, error)
}

// Detector flags anomalous readings. *anomaly.Detector implements it.
type Detector interface {
	Detect(values []int) []bool
}

// Notifier delivers a chat message and reports whether it was accepted.
type Notifier interface {
	Send(ctx context.Context, text string) bool
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds monitor configuration.
type Config struct {
	RefreshInterval time.Duration
	MinSamples      int
	TachycardiaBPM  int
	BradycardiaBPM  int

	// NotifyThresholds also alerts on tachycardia and bradycardia.
	NotifyThresholds bool

	// Location renders reading times. Nil means UTC.
	Location *time.Location

	AlertLogSize int

	// Now is the clock. Nil means time.Now.
	Now func() time.Time
}

// DefaultConfig returns default monitor configuration.
func DefaultConfig() Config {
	loc, err := time.LoadLocation(config.DefaultTimezone)
	if err != nil {
		loc = time.UTC
	}
	return Config{
		RefreshInterval: config.DefaultRefreshInterval,
		MinSamples:      config.DefaultMinSamples,
		TachycardiaBPM:  config.DefaultTachycardiaBPM,
		BradycardiaBPM:  config.DefaultBradycardiaBPM,
		Location:        loc,
		AlertLogSize:    config.DefaultAlertLogSize,
	}
}

// =============================================================================
// Monitor
// =============================================================================

// Monitor periodically analyses the store.
//
// Monitor is safe for concurrent use.
type Monitor struct {
	cfg      Config
	src      Source
	det      Detector
	notifier Notifier

	group  singleflight.Group
	latest atomic.Pointer[Analysis]
	alerts *AlertLog

	// readMu makes seq follow the order in which snapshots are read.
	readMu sync.Mutex
	seq    uint64

	// alertMu serializes notification decisions. lastAlerted is the
	// timestamp of the last reading whose alert was delivered.
	alertMu     sync.Mutex
	lastAlerted int64

	running   atomic.Bool
	refreshes atomic.Int64
	failures  atomic.Int64
}

// New creates a monitor.
func New(cfg Config, src Source, det Detector, n Notifier) *Monitor {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Monitor{
		cfg:         cfg,
		src:         src,
		det:         det,
		notifier:    n,
		alerts:      NewAlertLog(cfg.AlertLogSize),
		lastAlerted: -1,
	}
}

// Latest returns the last published analysis, or nil before the first
// successful refresh.
func (m *Monitor) Latest() *Analysis {
	return m.latest.Load()
}

// Alerts returns recent notification attempts, newest first.
func (m *Monitor) Alerts() []Alert {
	return m.alerts.Snapshot()
}

// Refresh runs one analysis cycle and publishes its result. Concurrent
// callers share a single cycle.
func (m *Monitor) Refresh(ctx context.Context) (*Analysis, error) {
	v, err, _ := m.group.Do("refresh", func() (interface{}, error) {
		return m.refresh(ctx)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Analysis), nil
}

// Reload runs a cycle that reads the store after the call started. Use it
// after writing to the store; Refresh could join a cycle that read the
// store before the write.
func (m *Monitor) Reload(ctx context.Context) (*Analysis, error) {
	return m.refresh(ctx)
}

func (m *Monitor) refresh(ctx context.Context) (*Analysis, error) {
	m.refreshes.Add(1)

	m.readMu.Lock()
	m.seq++
	seq := m.seq
	doc, err := m.src.Read()
	m.readMu.Unlock()
	if err != nil {
		m.failures.Add(1)
		return nil, errors.Wrap(err, "read store")
	}

	a := Analyze(doc, m.det, m.cfg, m.cfg.Now())
	a.seq = seq
	if !m.publish(a) {
		log.Debug("discarding outdated analysis", "seq", seq)
		return m.latest.Load(), nil
	}
	m.maybeNotify(ctx, a)
	return a, nil
}

// publish stores a unless an analysis of a later snapshot is already
// published.
func (m *Monitor) publish(a *Analysis) bool {
	for {
		cur := m.latest.Load()
		if cur != nil && cur.seq > a.seq {
			return false
		}
		if m.latest.CompareAndSwap(cur, a) {
			return true
		}
	}
}

func (m *Monitor) shouldNotify(s Status) bool {
	if s == StatusAnomaly {
		return true
	}
	return m.cfg.NotifyThresholds && s.Level() == 1
}

func (m *Monitor) maybeNotify(ctx context.Context, a *Analysis) {
	if !a.Ready || a.Latest == nil || !m.shouldNotify(a.Status) || m.notifier == nil {
		return
	}

	m.alertMu.Lock()
	defer m.alertMu.Unlock()

	if a.Latest.Timestamp == m.lastAlerted {
		return
	}

	msg := FormatAlert(a)
	sent := m.notifier.Send(ctx, msg)
	m.alerts.Push(Alert{
		Timestamp: a.Latest.Timestamp,
		BPM:       a.Latest.BPM,
		Status:    a.Status,
		Sent:      sent,
		At:        m.cfg.Now(),
		Message:   msg,
	})

	if sent {
		m.lastAlerted = a.Latest.Timestamp
		log.Info("alert sent", "bpm", a.Latest.BPM, "status", a.Status)
	} else {
		log.Warn("alert not delivered, will retry", "bpm", a.Latest.BPM, "status", a.Status)
	}
}

// Run refreshes every RefreshInterval until ctx is cancelled. The first
// refresh happens immediately. Failed refreshes are logged and the
// previous analysis stays published.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return errors.ErrAlreadyRunning
	}
	defer m.running.Store(false)

	log.Info("monitor started", "interval", m.cfg.RefreshInterval, "min_samples", m.cfg.MinSamples)
	defer func() {
		log.Info("monitor stopped",
			"refreshes", m.refreshes.Load(),
			"failures", m.failures.Load(),
			"alerts_pushed", m.alerts.Pushed(),
			"alerts_dropped", m.alerts.Dropped(),
		)
	}()

	ticker := time.NewTicker(m.cfg.RefreshInterval)
	defer ticker.Stop()

	for {
		if _, err := m.Refresh(ctx); err != nil {
			log.Error("refresh failed", "error", err)
		}

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}
