package store

import (
	"bytes"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/xtxerr/cardiowatch/internal/errors"
	cwtest "github.com/xtxerr/cardiowatch/internal/testing"
)

func newTestStore(t *testing.T, opts ...Option) (*Store, *cwtest.StepClock) {
	t.Helper()
	clock := cwtest.NewStepClock(time.Unix(1_000, 0), time.Second)
	base := []Option{
		WithClock(clock.Now),
		WithRand(rand.New(rand.NewPCG(1, 2))),
	}
	path := filepath.Join(t.TempDir(), "db.json")
	return New(path, append(base, opts...)...), clock
}

func mustRead(t *testing.T, s *Store) *Document {
	t.Helper()
	doc, err := s.Read()
	if err != nil {
		t.Fatalf("Read: %v", err)
	}
	return doc
}

func readFile(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	return data
}

// =============================================================================
// Initialize
// =============================================================================

func TestInitializeCreatesSeededDocument(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.Initialize(200); err != nil {
		t.Fatalf("Initialize: %v", err)
	}

	doc := mustRead(t, s)
	if doc.MaxEntries != 200 {
		t.Errorf("MaxEntries = %d, want 200", doc.MaxEntries)
	}
	if len(doc.History) != 10 {
		t.Fatalf("len(History) = %d, want 10", len(doc.History))
	}
	for i, r := range doc.History {
		if r.BPM < 65 || r.BPM > 80 {
			t.Errorf("seed[%d].BPM = %d, want [65,80]", i, r.BPM)
		}
		if want := int64(990 + i); r.Timestamp != want {
			t.Errorf("seed[%d].Timestamp = %d, want %d", i, r.Timestamp, want)
		}
	}
	if got := doc.Profile.Text("name"); got != "Test User" {
		t.Errorf("name = %q", got)
	}
	if got := doc.Profile.Text("conditions"); got != "Hypertension" {
		t.Errorf("conditions = %q", got)
	}
	if age, ok := doc.Profile.Int("age"); !ok || age != 65 {
		t.Errorf("age = %d, %v", age, ok)
	}
}

func TestInitializeSeedNeverExceedsCapacity(t *testing.T) {
	s, _ := newTestStore(t, WithSeedReadings(10))
	if err := s.Initialize(4); err != nil {
		t.Fatal(err)
	}
	if got := len(mustRead(t, s).History); got != 4 {
		t.Errorf("len(History) = %d, want 4", got)
	}
}

func TestInitializeIsIdempotent(t *testing.T) {
	s, _ := newTestStore(t)

	if err := s.Initialize(5); err != nil {
		t.Fatal(err)
	}
	before := readFile(t, s.Path())

	if err := s.Initialize(50); err != nil {
		t.Fatal(err)
	}
	if err := s.Initialize(5); err != nil {
		t.Fatal(err)
	}

	if after := readFile(t, s.Path()); !bytes.Equal(before, after) {
		t.Errorf("Initialize modified an existing document:\nbefore: %s\nafter:  %s", before, after)
	}
	if got := mustRead(t, s).MaxEntries; got != 5 {
		t.Errorf("MaxEntries = %d, want 5", got)
	}
}

func TestInitializeRejectsInvalidCapacity(t *testing.T) {
	s, _ := newTestStore(t)

	for _, c := range []int{0, -1} {
		err := s.Initialize(c)
		if !errors.Is(err, errors.ErrInvalidCapacity) {
			t.Errorf("Initialize(%d) = %v, want ErrInvalidCapacity", c, err)
		}
	}
	if _, err := os.Stat(s.Path()); !os.IsNotExist(err) {
		t.Errorf("file created for invalid capacity: %v", err)
	}
}

// =============================================================================
// AppendReading
// =============================================================================

func TestAppendKeepsMostRecentWithinCapacity(t *testing.T) {
	tests := []struct {
		capacity int
		seed     int
		appends  int
	}{
		{capacity: 5, seed: 3, appends: 0},
		{capacity: 5, seed: 3, appends: 2},
		{capacity: 5, seed: 3, appends: 4},
		{capacity: 5, seed: 0, appends: 12},
		{capacity: 1, seed: 1, appends: 3},
		{capacity: 200, seed: 10, appends: 50},
		{capacity: 20, seed: 10, appends: 100},
	}

	for _, tt := range tests {
		name := fmt.Sprintf("cap=%d/seed=%d/n=%d", tt.capacity, tt.seed, tt.appends)
		t.Run(name, func(t *testing.T) {
			s, _ := newTestStore(t, WithSeedReadings(tt.seed))
			if err := s.Initialize(tt.capacity); err != nil {
				t.Fatal(err)
			}

			all := append([]Reading(nil), mustRead(t, s).History...)
			for i := 0; i < tt.appends; i++ {
				r, err := s.AppendReading(100 + i)
				if err != nil {
					t.Fatalf("AppendReading: %v", err)
				}
				all = append(all, r)
			}

			want := all
			if len(want) > tt.capacity {
				want = want[len(want)-tt.capacity:]
			}

			got := mustRead(t, s).History
			if len(got) != min(tt.appends+tt.seed, tt.capacity) {
				t.Fatalf("len = %d, want %d", len(got), min(tt.appends+tt.seed, tt.capacity))
			}
			for i := range want {
				if got[i] != want[i] {
					t.Errorf("History[%d] = %+v, want %+v", i, got[i], want[i])
				}
			}
		})
	}
}

func TestAppendScenarioCapacityFive(t *testing.T) {
	s, _ := newTestStore(t, WithSeedReadings(3))
	if err := s.Initialize(5); err != nil {
		t.Fatal(err)
	}
	seed := mustRead(t, s).History

	for _, v := range []int{70, 72, 68, 130} {
		if _, err := s.AppendReading(v); err != nil {
			t.Fatal(err)
		}
	}

	h := mustRead(t, s).History
	if len(h) != 5 {
		t.Fatalf("len = %d, want 5", len(h))
	}
	if h[0] != seed[2] {
		t.Errorf("History[0] = %+v, want last seed entry %+v", h[0], seed[2])
	}
	var bpms []int
	for _, r := range h[1:] {
		bpms = append(bpms, r.BPM)
	}
	if fmt.Sprint(bpms) != "[70 72 68 130]" {
		t.Errorf("appended values = %v", bpms)
	}
	if h[4].BPM != 130 {
		t.Errorf("last BPM = %d, want 130", h[4].BPM)
	}
}

func TestAppendStampsClockTime(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Initialize(10); err != nil {
		t.Fatal(err)
	}

	r, err := s.AppendReading(75)
	if err != nil {
		t.Fatal(err)
	}
	if r.Timestamp != 1_001 {
		t.Errorf("Timestamp = %d, want 1001", r.Timestamp)
	}

	latest, ok := mustRead(t, s).Latest()
	if !ok || latest != r {
		t.Errorf("Read did not reflect append: %+v", latest)
	}
}

// =============================================================================
// Atomicity
// =============================================================================

func TestPersistFailureLeavesFileUntouched(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Initialize(10); err != nil {
		t.Fatal(err)
	}
	before := readFile(t, s.Path())

	injected := errors.New("disk full")
	s.beforeCommit = func() error { return injected }

	_, err := s.AppendReading(99)
	if !errors.Is(err, errors.ErrPersistFailure) {
		t.Fatalf("AppendReading = %v, want ErrPersistFailure", err)
	}
	if !errors.Is(err, injected) {
		t.Errorf("cause lost: %v", err)
	}

	err = s.MergeProfile(Profile{"name": "Y"})
	if !errors.Is(err, errors.ErrPersistFailure) {
		t.Fatalf("MergeProfile = %v, want ErrPersistFailure", err)
	}

	if after := readFile(t, s.Path()); !bytes.Equal(before, after) {
		t.Errorf("canonical file changed after failed persist")
	}

	entries, err := os.ReadDir(filepath.Dir(s.Path()))
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		var names []string
		for _, e := range entries {
			names = append(names, e.Name())
		}
		t.Errorf("temporary files left behind: %v", names)
	}

	s.beforeCommit = nil
	if _, err := s.AppendReading(99); err != nil {
		t.Fatalf("append after recovery: %v", err)
	}
}

func TestDocumentFormatOnDisk(t *testing.T) {
	s, _ := newTestStore(t)
	if err := s.Initialize(10); err != nil {
		t.Fatal(err)
	}

	data := string(readFile(t, s.Path()))
	for _, want := range []string{`"user_profile"`, `"heart_rate_history"`, `"max_entries": 10`, "\n    \""} {
		if !strings.Contains(data, want) {
			t.Errorf("document missing %q:\n%s", want, data)
		}
	}
}

// =============================================================================
// Profile
// =============================================================================

func TestMergeProfile(t *testing.T) {
	s, _ := newTestStore(t, WithDefaultProfile(Profile{"name": "X", "age": 65}))
	if err := s.Initialize(10); err != nil {
		t.Fatal(err)
	}

	if err := s.MergeProfile(Profile{"age": 70}); err != nil {
		t.Fatal(err)
	}

	p := mustRead(t, s).Profile
	if len(p) != 2 {
		t.Errorf("profile = %v, want 2 keys", p)
	}
	if p["name"] != "X" {
		t.Errorf("name = %v, want X", p["name"])
	}
	if p["age"] != float64(70) {
		t.Errorf("age = %v (%T), want 70", p["age"], p["age"])
	}

	if err := s.MergeProfile(Profile{"conditions": "asthma"}); err != nil {
		t.Fatal(err)
	}
	p = mustRead(t, s).Profile
	if p.Text("conditions") != "asthma" || p.Text("name") != "X" {
		t.Errorf("profile after second merge = %v", p)
	}
}

func TestMergeProfileDoesNotAlias(t *testing.T) {
	s, _ := newTestStore(t)
	conds := []string{"a"}
	if err := s.MergeProfile(Profile{"conditions": conds}); err != nil {
		t.Fatal(err)
	}
	conds[0] = "mutated"

	if got := mustRead(t, s).Profile.Text("conditions"); got != "a" {
		t.Errorf("conditions = %q, want a", got)
	}
}

// =============================================================================
// Recovery
// =============================================================================

func TestReadRecoversCorruptDocument(t *testing.T) {
	for _, content := range []string{"not json{", "", "null", `{"max_entries": 0}`} {
		t.Run(fmt.Sprintf("%q", content), func(t *testing.T) {
			s, _ := newTestStore(t, WithDefaultCapacity(7))
			if err := os.WriteFile(s.Path(), []byte(content), 0o644); err != nil {
				t.Fatal(err)
			}

			doc := mustRead(t, s)
			if doc.MaxEntries != 7 {
				t.Errorf("MaxEntries = %d, want default 7", doc.MaxEntries)
			}
			if len(doc.History) != 7 {
				t.Errorf("len(History) = %d, want seeded 7", len(doc.History))
			}
			if doc.Profile.Text("name") != "Test User" {
				t.Errorf("profile = %v", doc.Profile)
			}

			kept := readFile(t, s.Path()+".corrupt")
			if string(kept) != content {
				t.Errorf("quarantined content = %q", kept)
			}
		})
	}
}

func TestReadCreatesMissingDocument(t *testing.T) {
	s, _ := newTestStore(t)

	doc := mustRead(t, s)
	if doc.MaxEntries != 200 {
		t.Errorf("MaxEntries = %d, want 200", doc.MaxEntries)
	}
	if _, err := os.Stat(s.Path() + ".corrupt"); !os.IsNotExist(err) {
		t.Errorf("missing file should not be quarantined")
	}
}

func TestReadFailsWhenRecoveryFails(t *testing.T) {
	// The parent of the document path is a regular file, so the document
	// can neither be read nor created.
	parent := filepath.Join(t.TempDir(), "file")
	if err := os.WriteFile(parent, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	path := filepath.Join(parent, "db.json")

	_, err := New(path).Read()
	if !errors.Is(err, errors.ErrStorageCorrupt) {
		t.Fatalf("Read = %v, want ErrStorageCorrupt", err)
	}
}

func TestReadReturnsIndependentCopies(t *testing.T) {
	s, _ := newTestStore(t)
	a := mustRead(t, s)
	a.History[0].BPM = -1
	a.Profile["name"] = "changed"

	b := mustRead(t, s)
	if b.History[0].BPM == -1 || b.Profile["name"] == "changed" {
		t.Error("Read returned shared state")
	}
}

// =============================================================================
// Concurrency
// =============================================================================

func TestConcurrentAppendsAreSerialized(t *testing.T) {
	s, _ := newTestStore(t, WithSeedReadings(0))
	if err := s.Initialize(1_000); err != nil {
		t.Fatal(err)
	}

	const workers, perWorker = 8, 25
	gt := cwtest.NewGoroutineTest(t)
	for w := 0; w < workers; w++ {
		gt.Go(func() error {
			for i := 0; i < perWorker; i++ {
				if _, err := s.AppendReading(60 + i); err != nil {
					return err
				}
			}
			return nil
		})
	}
	gt.Go(func() error {
		for i := 0; i < perWorker; i++ {
			if err := s.MergeProfile(Profile{"reads": i}); err != nil {
				return err
			}
			if _, err := s.Read(); err != nil {
				return err
			}
		}
		return nil
	})
	gt.Wait()

	doc := mustRead(t, s)
	if len(doc.History) != workers*perWorker {
		t.Fatalf("len(History) = %d, want %d (lost update)", len(doc.History), workers*perWorker)
	}
	for i := 1; i < len(doc.History); i++ {
		if doc.History[i].Timestamp <= doc.History[i-1].Timestamp {
			t.Fatalf("history out of order at %d", i)
		}
	}
	if doc.Profile.Text("reads") != fmt.Sprint(perWorker-1) {
		t.Errorf("reads = %q", doc.Profile.Text("reads"))
	}
}

func TestHandlesShareNothing(t *testing.T) {
	a, _ := newTestStore(t)
	b, _ := newTestStore(t)

	if _, err := a.AppendReading(150); err != nil {
		t.Fatal(err)
	}
	if latest, _ := mustRead(t, b).Latest(); latest.BPM == 150 {
		t.Error("separate paths leaked state")
	}
}
