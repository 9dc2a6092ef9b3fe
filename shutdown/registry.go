package shutdown

import (
	"context"
	"sort"
	"sync"

	"github.com/deanable/wanvidgen/core"
)

type cleanupEntry struct {
	name     string
	fn       core.ShutdownFunc
	priority int // lower runs earlier
}

// Registry holds cleanup handlers and runs them in priority order
// during shutdown. Registration is safe from multiple goroutines.
//
// Priority convention used across the application:
//   - 0-9: flush logs and metrics
//   - 10-19: stop accepting work
//   - 20-29: unload models, release GPU memory
//   - 30-39: close databases and files
//   - 40+: remove temporary artifacts
type Registry struct {
	mu      sync.Mutex
	entries []cleanupEntry
	closed  bool
}

// NewRegistry returns an empty registry.
func NewRegistry() *Registry {
	return &Registry{}
}

// Register adds a named cleanup handler. Lower priorities run first;
// handlers with equal priority run in registration order. Registering
// after Shutdown has run is a no-op.
func (r *Registry) Register(name string, priority int, fn core.ShutdownFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return
	}
	r.entries = append(r.entries, cleanupEntry{name: name, fn: fn, priority: priority})
}

// Shutdown runs every registered handler in priority order and collects
// their errors. Every handler runs even when earlier ones fail, since
// skipping cleanup because an unrelated close failed only leaks more.
// The registry is closed afterwards; a second Shutdown returns nil.
func (r *Registry) Shutdown(ctx context.Context) []error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	sorted := r.sortedLocked()
	r.mu.Unlock()

	var errs []error
	for _, entry := range sorted {
		if err := entry.fn(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	return errs
}

// Names returns handler names in the order they would run.
func (r *Registry) Names() []string {
	r.mu.Lock()
	sorted := r.sortedLocked()
	r.mu.Unlock()

	names := make([]string, len(sorted))
	for i, entry := range sorted {
		names[i] = entry.name
	}
	return names
}

// Count returns the number of registered handlers.
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// IsClosed reports whether Shutdown has run.
func (r *Registry) IsClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

func (r *Registry) sortedLocked() []cleanupEntry {
	sorted := make([]cleanupEntry, len(r.entries))
	copy(sorted, r.entries)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].priority < sorted[j].priority
	})
	return sorted
}
