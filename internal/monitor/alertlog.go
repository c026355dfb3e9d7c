package monitor

import (
	"sync"
	"sync/atomic"
	"time"
)

// Alert is one notification attempt.
type Alert struct {
	// Timestamp of the reading that triggered the alert.
	Timestamp int64     `json:"timestamp"`
	BPM       int       `json:"bpm"`
	Status    Status    `json:"status"`
	Sent      bool      `json:"sent"`
	At        time.Time `json:"at"`
	Message   string    `json:"message"`
}

// AlertLog is a bounded, thread-safe circular buffer of alerts. When full,
// the oldest alert is overwritten.
type AlertLog struct {
	mu       sync.RWMutex
	data     []Alert
	head     int64 // Next write position
	count    int64
	capacity int64

	pushCount atomic.Int64
	dropCount atomic.Int64
}

// NewAlertLog creates an AlertLog with the given capacity.
func NewAlertLog(capacity int) *AlertLog {
	if capacity <= 0 {
		capacity = 50
	}
	return &AlertLog{
		data:     make([]Alert, capacity),
		capacity: int64(capacity),
	}
}

// Push adds an alert, overwriting the oldest if full.
func (l *AlertLog) Push(a Alert) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.count >= l.capacity {
		l.count--
		l.dropCount.Add(1)
	}

	l.data[l.head%l.capacity] = a
	l.head++
	l.count++
	l.pushCount.Add(1)
}

// Snapshot returns the stored alerts, newest first.
func (l *AlertLog) Snapshot() []Alert {
	l.mu.RLock()
	defer l.mu.RUnlock()

	out := make([]Alert, l.count)
	for i := int64(0); i < l.count; i++ {
		out[i] = l.data[(l.head-1-i)%l.capacity]
	}
	return out
}

// Len returns the number of stored alerts.
func (l *AlertLog) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return int(l.count)
}

// Pushed returns the total number of alerts ever pushed.
func (l *AlertLog) Pushed() int64 {
	return l.pushCount.Load()
}

// Dropped returns the number of alerts overwritten.
func (l *AlertLog) Dropped() int64 {
	return l.dropCount.Load()
}
