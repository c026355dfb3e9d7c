// Package sensor simulates a heart-rate sensor.
//
// The sensor generates one reading per interval and appends it to the
// record store. It owns no state besides its counters: the store is the
// only place readings live.
package sensor

import (
	"context"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"time"

	"github.com/xtxerr/cardiowatch/config"
	"github.com/xtxerr/cardiowatch/internal/errors"
	"github.com/xtxerr/cardiowatch/internal/logging"
	"github.com/xtxerr/cardiowatch/internal/store"
)

var log = logging.Component("sensor")

// Reading ranges, inclusive.
const (
	bradyMin, bradyMax   = 40, 55
	tachyMin, tachyMax   = 100, 130
	normalMin, normalMax = 65, 85
)

// Appender stores a reading. *store.Store implements it.
type Appender interface {
	AppendReading(bpm int) (store.Reading, error)
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds sensor configuration.
type Config struct {
	// Interval is the wait after a stored reading.
	Interval time.Duration

	// ErrorBackoff is the wait after a failed append.
	ErrorBackoff time.Duration

	// BradycardiaChance and TachycardiaChance are the probabilities of an
	// out-of-range reading. The rest are drawn from the normal range.
	BradycardiaChance float64
	TachycardiaChance float64

	// Rand is the random source. Nil uses a time-seeded source.
	Rand *rand.Rand
}

// DefaultConfig returns default sensor configuration.
func DefaultConfig() Config {
	return Config{
		Interval:          config.DefaultSensorInterval,
		ErrorBackoff:      config.DefaultSensorErrorBackoff,
		BradycardiaChance: config.DefaultBradycardiaChance,
		TachycardiaChance: config.DefaultTachycardiaChance,
	}
}

// =============================================================================
// Sensor
// =============================================================================

// Sensor produces synthetic readings.
type Sensor struct {
	cfg Config
	app Appender

	randMu sync.Mutex
	rng    *rand.Rand

	running atomic.Bool

	produced atomic.Int64
	failed   atomic.Int64
}

// New creates a sensor that appends to app.
func New(cfg Config, app Appender) *Sensor {
	rng := cfg.Rand
	if rng == nil {
		now := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(now, now>>17))
	}
	return &Sensor{cfg: cfg, app: app, rng: rng}
}

// Generate draws one BPM value.
func (s *Sensor) Generate() int {
	s.randMu.Lock()
	defer s.randMu.Unlock()

	p := s.rng.Float64()
	switch {
	case p < s.cfg.BradycardiaChance:
		return bradyMin + s.rng.IntN(bradyMax-bradyMin+1)
	case p < s.cfg.BradycardiaChance+s.cfg.TachycardiaChance:
		return tachyMin + s.rng.IntN(tachyMax-tachyMin+1)
	default:
		return normalMin + s.rng.IntN(normalMax-normalMin+1)
	}
}

// Step generates and stores a single reading.
func (s *Sensor) Step() (store.Reading, error) {
	r, err := s.app.AppendReading(s.Generate())
	if err != nil {
		s.failed.Add(1)
		return store.Reading{}, err
	}
	s.produced.Add(1)
	return r, nil
}

// Run produces readings until ctx is cancelled. The first reading is
// stored immediately. A failed append is logged and retried after
// ErrorBackoff.
func (s *Sensor) Run(ctx context.Context) error {
	if !s.running.CompareAndSwap(false, true) {
		return errors.ErrAlreadyRunning
	}
	defer s.running.Store(false)

	log.Info("sensor started", "interval", s.cfg.Interval)
	defer func() {
		log.Info("sensor stopped", "produced", s.produced.Load(), "failed", s.failed.Load())
	}()

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-timer.C:
		}

		wait := s.cfg.Interval
		r, err := s.Step()
		if err != nil {
			s.reportFailure(err)
			wait = s.cfg.ErrorBackoff
		} else {
			log.Debug("reading stored", "bpm", r.BPM, "timestamp", r.Timestamp)
		}
		timer.Reset(wait)
	}
}

// reportFailure logs a failed append. A dropped write leaves the store
// intact and is expected to succeed later; anything else is an error.
func (s *Sensor) reportFailure(err error) {
	if errors.IsRetriable(err) {
		log.Warn("append dropped", "error", err, "retry_in", s.cfg.ErrorBackoff)
		return
	}
	log.Error("append failed", "error", err, "retry_in", s.cfg.ErrorBackoff)
}

// Produced returns the number of stored readings.
func (s *Sensor) Produced() int64 {
	return s.produced.Load()
}

// Failed returns the number of failed appends.
func (s *Sensor) Failed() int64 {
	return s.failed.Load()
}
