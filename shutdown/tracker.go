// Package shutdown coordinates graceful process exit: it tracks
// in-flight generation work, runs registered cleanup handlers in
// priority order, and turns a second interrupt into a forced exit.
package shutdown

import (
	"errors"
	"sync"
	"time"
)

// ErrShuttingDown is returned when new work is rejected because the
// process is shutting down.
var ErrShuttingDown = errors.New("shutdown: new operations rejected")

// ErrWaitTimeout is returned when in-flight work does not finish before
// the shutdown deadline.
var ErrWaitTimeout = errors.New("shutdown: operations did not finish before the deadline")

// OperationTracker counts in-flight operations so shutdown can wait for
// a running generation to finish (or give up after a deadline) before
// models are unloaded.
type OperationTracker struct {
	mu     sync.Mutex
	wg     sync.WaitGroup
	active int64
	closed bool
}

// NewOperationTracker returns an open tracker.
func NewOperationTracker() *OperationTracker {
	return &OperationTracker{}
}

// Start registers a new operation. It returns false when the tracker
// has been closed, in which case the caller must not run the work and
// must not call Done.
func (t *OperationTracker) Start() bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}
	t.wg.Add(1)
	t.active++
	return true
}

// Done marks one operation finished. Call exactly once per successful
// Start.
func (t *OperationTracker) Done() {
	t.mu.Lock()
	t.active--
	t.mu.Unlock()
	t.wg.Done()
}

// Close stops new operations from starting. Work already in flight
// keeps running until it calls Done.
func (t *OperationTracker) Close() {
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
}

// Wait blocks until every tracked operation finishes, or returns
// ErrWaitTimeout once the timeout elapses.
func (t *OperationTracker) Wait(timeout time.Duration) error {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-time.After(timeout):
		return ErrWaitTimeout
	}
}

// ActiveCount returns the number of operations currently in flight.
func (t *OperationTracker) ActiveCount() int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.active
}

// IsClosed reports whether Close has been called.
func (t *OperationTracker) IsClosed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.closed
}
