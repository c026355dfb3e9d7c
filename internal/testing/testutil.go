// Package testing provides test utilities shared by cardiowatch packages.
//
// Calling t.Fatal or t.FailNow from a goroutine other than the test's own
// only exits that goroutine. GoroutineTest collects errors returned by
// workers and reports them from the test goroutine instead.
package testing

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"
)

// =============================================================================
// Error Channel Pattern
// =============================================================================

// GoroutineTest runs workers and fails the test with every error they return.
//
//	gt := testing.NewGoroutineTest(t)
//	for i := 0; i < 8; i++ {
//	    gt.Go(func() error {
//	        _, err := st.AppendReading(70)
//	        return err
//	    })
//	}
//	gt.Wait()
type GoroutineTest struct {
	t      testing.TB
	wg     sync.WaitGroup
	mu     sync.Mutex
	errs   []error
	ctx    context.Context
	cancel context.CancelFunc
}

// NewGoroutineTest creates a new GoroutineTest helper.
func NewGoroutineTest(t testing.TB) *GoroutineTest {
	return NewGoroutineTestWithTimeout(t, 0)
}

// NewGoroutineTestWithTimeout creates a GoroutineTest whose context expires
// after timeout. A zero timeout means no deadline.
func NewGoroutineTestWithTimeout(t testing.TB, timeout time.Duration) *GoroutineTest {
	var ctx context.Context
	var cancel context.CancelFunc
	if timeout > 0 {
		ctx, cancel = context.WithTimeout(context.Background(), timeout)
	} else {
		ctx, cancel = context.WithCancel(context.Background())
	}
	return &GoroutineTest{t: t, ctx: ctx, cancel: cancel}
}

// Go runs fn in a goroutine and records its error.
func (gt *GoroutineTest) Go(fn func() error) {
	gt.GoWithContext(func(context.Context) error { return fn() })
}

// GoWithContext runs fn with the helper's context.
func (gt *GoroutineTest) GoWithContext(fn func(ctx context.Context) error) {
	gt.wg.Add(1)
	go func() {
		defer gt.wg.Done()
		if err := fn(gt.ctx); err != nil {
			gt.mu.Lock()
			gt.errs = append(gt.errs, err)
			gt.mu.Unlock()
		}
	}()
}

// Wait waits for all goroutines and fails the test if any returned an error.
func (gt *GoroutineTest) Wait() {
	gt.t.Helper()
	gt.wg.Wait()
	gt.cancel()

	gt.mu.Lock()
	errs := gt.errs
	gt.mu.Unlock()

	if len(errs) > 0 {
		for i, err := range errs {
			gt.t.Errorf("goroutine error [%d/%d]: %v", i+1, len(errs), err)
		}
		gt.t.FailNow()
	}
}

// Context returns the context handed to GoWithContext workers.
func (gt *GoroutineTest) Context() context.Context {
	return gt.ctx
}

// Cancel cancels the context, signaling goroutines to stop.
func (gt *GoroutineTest) Cancel() {
	gt.cancel()
}

// =============================================================================
// Clock
// =============================================================================

// StepClock is a deterministic clock that advances by Step on every call.
type StepClock struct {
	mu   sync.Mutex
	now  time.Time
	Step time.Duration
}

// NewStepClock returns a clock starting at start.
func NewStepClock(start time.Time, step time.Duration) *StepClock {
	return &StepClock{now: start, Step: step}
}

// Now returns the current time and advances the clock.
func (c *StepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(c.Step)
	return t
}

// =============================================================================
// Polling Helpers
// =============================================================================

// WithTimeout runs fn and fails if it does not return within timeout.
func WithTimeout(timeout time.Duration, fn func() error) error {
	done := make(chan error, 1)
	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(timeout):
		return fmt.Errorf("operation timed out after %v", timeout)
	}
}

// Eventually waits for a condition to become true.
func Eventually(timeout, interval time.Duration, condition func() bool) error {
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if condition() {
			return nil
		}
		time.Sleep(interval)
	}
	if condition() {
		return nil
	}
	return fmt.Errorf("condition not met within %v", timeout)
}
