// Package store provides the bounded heart-rate record store.
//
// The store is a single JSON document holding the patient profile and an
// append-only history of readings capped at max_entries. Every operation
// runs its whole read-modify-write cycle under the handle's mutex, and
// every write replaces the file through a temporary file and an atomic
// rename, so a reader only ever sees a complete document.
//
// Only goroutines sharing one *Store are serialized. Separate processes
// sharing the file rely on the rename alone; the last rename wins.
package store

import (
	"io/fs"
	"math/rand/v2"
	"os"
	"sync"
	"time"

	"github.com/xtxerr/cardiowatch/config"
	"github.com/xtxerr/cardiowatch/internal/errors"
	"github.com/xtxerr/cardiowatch/internal/logging"
)

var log = logging.Component("store")

// =============================================================================
// Store
// =============================================================================

// Store is a handle on one document path.
//
// Store is safe for concurrent use. Create one handle per process and pass
// it by reference to the sensor and the dashboard.
type Store struct {
	path string

	// mu guards the file for the full duration of each public operation.
	// Methods with a Locked suffix expect mu to be held.
	mu sync.Mutex

	defaultCapacity int
	seedReadings    int
	defaultProfile  Profile
	now             func() time.Time
	intN            func(n int) int

	// beforeCommit runs after the temporary file is written and before it
	// is renamed over path. Tests use it to inject failures.
	beforeCommit func() error
}

// Option configures a Store.
type Option func(*Store)

// WithDefaultCapacity sets the capacity used when the document has to be
// created by Read.
func WithDefaultCapacity(n int) Option {
	return func(s *Store) { s.defaultCapacity = n }
}

// WithSeedReadings sets the number of synthetic readings in a new document.
func WithSeedReadings(n int) Option {
	return func(s *Store) { s.seedReadings = n }
}

// WithClock sets the time source for reading timestamps.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithRand sets the random source for seed readings. r is only used while
// the store mutex is held.
func WithRand(r *rand.Rand) Option {
	return func(s *Store) { s.intN = r.IntN }
}

// WithDefaultProfile sets the profile of a new document.
func WithDefaultProfile(p Profile) Option {
	return func(s *Store) { s.defaultProfile = p.Clone() }
}

// DefaultProfile is the profile written into a new document.
func DefaultProfile() Profile {
	return Profile{
		"name":       "Test User",
		"age":        65,
		"conditions": []string{"Hypertension"},
	}
}

// New creates a store handle for path. No file is touched until the first
// operation.
func New(path string, opts ...Option) *Store {
	s := &Store{
		path:            path,
		defaultCapacity: config.DefaultCapacity,
		seedReadings:    config.DefaultSeedReadings,
		defaultProfile:  DefaultProfile(),
		now:             time.Now,
		intN:            rand.IntN,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Path returns the canonical document path.
func (s *Store) Path() string {
	return s.path
}

// =============================================================================
// Public operations
// =============================================================================

// Initialize creates the document with the given capacity if it does not
// exist yet. An existing document is never modified, whatever its capacity.
func (s *Store) Initialize(capacity int) error {
	if capacity <= 0 {
		return errors.Wrapf(errors.ErrInvalidCapacity, "capacity %d", capacity)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initializeLocked(capacity)
}

// Read returns a snapshot of the current document. The result is decoded
// from disk on every call and owned by the caller.
//
// A missing document is created with the default capacity. An unparsable
// document is moved aside to <path>.corrupt and recreated. If the document
// still cannot be read, Read returns ErrStorageCorrupt.
func (s *Store) Read() (*Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readLocked()
}

// AppendReading stores a reading stamped with the current time and trims
// the oldest readings beyond the document capacity.
//
// If the write fails the document is left unchanged and the returned error
// wraps ErrPersistFailure.
func (s *Store) AppendReading(bpm int) (Reading, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return Reading{}, err
	}

	r := Reading{Timestamp: s.now().Unix(), BPM: bpm}
	doc.History = append(doc.History, r)
	if over := len(doc.History) - doc.MaxEntries; over > 0 {
		doc.History = doc.History[over:]
	}

	if err := s.persistLocked(doc); err != nil {
		return Reading{}, err
	}
	return r, nil
}

// MergeProfile shallow-merges partial into the stored profile. Keys absent
// from partial keep their value.
func (s *Store) MergeProfile(partial Profile) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.readLocked()
	if err != nil {
		return err
	}

	if doc.Profile == nil {
		doc.Profile = make(Profile, len(partial))
	}
	for k, v := range partial {
		doc.Profile[k] = cloneValue(v)
	}

	return s.persistLocked(doc)
}

// =============================================================================
// Locked helpers
// =============================================================================

func (s *Store) initializeLocked(capacity int) error {
	_, err := os.Stat(s.path)
	if err == nil {
		return nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return errors.Wrap(err, "stat store")
	}

	doc := s.seedDocument(capacity)
	if err := s.persistLocked(doc); err != nil {
		return err
	}
	log.Info("store created", "path", s.path, "capacity", capacity, "seeded", len(doc.History))
	return nil
}

func (s *Store) seedDocument(capacity int) *Document {
	n := s.seedReadings
	if n > capacity {
		n = capacity
	}

	now := s.now().Unix()
	history := make([]Reading, n)
	span := config.DefaultSeedMaxBPM - config.DefaultSeedMinBPM + 1
	for i := range history {
		history[i] = Reading{
			Timestamp: now - int64(n) + int64(i),
			BPM:       config.DefaultSeedMinBPM + s.intN(span),
		}
	}

	return &Document{
		Profile:    s.defaultProfile.Clone(),
		History:    history,
		MaxEntries: capacity,
	}
}

func (s *Store) readLocked() (*Document, error) {
	doc, err := s.loadLocked()
	if err == nil {
		return doc, nil
	}

	if !errors.Is(err, fs.ErrNotExist) {
		log.Warn("store unreadable, recreating", "path", s.path, "error", err)
		if qerr := s.quarantineLocked(); qerr != nil {
			log.Error("quarantine failed", "path", s.path, "error", qerr)
		}
	}

	if err := s.initializeLocked(s.defaultCapacity); err != nil {
		return nil, errors.NewStorageCorrupt(s.path, err)
	}

	doc, err = s.loadLocked()
	if err != nil {
		return nil, errors.NewStorageCorrupt(s.path, err)
	}
	return doc, nil
}

// quarantineLocked moves an unparsable document out of the way so that it
// can be recreated without losing the evidence.
func (s *Store) quarantineLocked() error {
	err := os.Rename(s.path, s.path+".corrupt")
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	return err
}
