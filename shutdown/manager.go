package shutdown

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/deanable/wanvidgen/core"
)

// Manager ties the shutdown pieces together: a context cancelled on the
// first signal, an operation tracker that lets in-flight generations
// finish, a cleanup registry run in priority order, and a signal
// counter that forces an exit on the second interrupt.
//
// Typical wiring:
//
//	manager := shutdown.NewManager(logger)
//	manager.Register("pipeline", 20, func(ctx context.Context) error {
//	    pipe.Unload()
//	    return nil
//	})
//	manager.Register("history", 30, func(ctx context.Context) error {
//	    return store.Close()
//	})
//	manager.Start()
//
//	err := manager.Track(manager.Context(), "generate", runGeneration)
//
//	manager.Shutdown()
//	os.Exit(manager.ExitCode())
type Manager struct {
	log     *zap.Logger
	timeout time.Duration

	mu       sync.Mutex
	started  bool
	shutdown bool
	lastSig  os.Signal

	ctx    context.Context
	cancel context.CancelFunc

	tracker  *OperationTracker
	registry *Registry
	signals  *SignalCounter

	sigChan chan os.Signal
	exit    func(int)
}

// Option configures a Manager.
type Option func(*Manager)

// WithTimeout sets how long Shutdown waits for in-flight work plus
// cleanup. The default is 60 seconds.
func WithTimeout(timeout time.Duration) Option {
	return func(m *Manager) {
		m.timeout = timeout
	}
}

// NewManager builds a manager. A nil logger disables shutdown logging.
func NewManager(logger *zap.Logger, opts ...Option) *Manager {
	if logger == nil {
		logger = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())

	m := &Manager{
		log:      logger,
		timeout:  60 * time.Second,
		ctx:      ctx,
		cancel:   cancel,
		tracker:  NewOperationTracker(),
		registry: NewRegistry(),
		sigChan:  make(chan os.Signal, 1),
		exit:     os.Exit,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.signals = NewSignalCounter(2, func() {
		m.log.Warn("second signal received, forcing exit")
		m.exit(core.ExitCodeForSignal(m.lastSignal()))
	})
	return m
}

// Context is cancelled when shutdown begins. Long-running work should
// watch it and stop at the next safe point.
func (m *Manager) Context() context.Context {
	return m.ctx
}

// Register adds a cleanup handler. Lower priorities run first; see the
// Registry priority convention.
func (m *Manager) Register(name string, priority int, fn core.ShutdownFunc) {
	m.registry.Register(name, priority, fn)
	m.log.Debug("registered shutdown handler",
		zap.String("name", name),
		zap.Int("priority", priority))
}

// Start installs the SIGINT and SIGTERM handlers. The first signal
// cancels Context; the second forces an immediate exit. Start is safe
// to call more than once.
func (m *Manager) Start() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.started {
		return
	}
	m.started = true

	signal.Notify(m.sigChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		for sig := range m.sigChan {
			m.setLastSignal(sig)
			if m.signals.Increment() == 1 {
				m.log.Info("shutdown signal received, finishing current work",
					zap.String("signal", sig.String()))
				m.cancel()
			}
		}
	}()
}

// Shutdown runs the exit sequence: stop accepting work, wait for
// in-flight operations, then run cleanup handlers with whatever time
// remains. It returns an error when any handler failed. Shutdown is
// idempotent.
func (m *Manager) Shutdown() error {
	m.mu.Lock()
	if m.shutdown {
		m.mu.Unlock()
		return nil
	}
	m.shutdown = true
	m.mu.Unlock()

	start := time.Now()
	m.cancel()
	m.log.Info("shutting down",
		zap.Duration("timeout", m.timeout),
		zap.Int("handlers", m.registry.Count()))

	m.tracker.Close()
	if active := m.tracker.ActiveCount(); active > 0 {
		m.log.Info("waiting for in-flight operations", zap.Int64("active", active))
	}
	if err := m.tracker.Wait(m.timeout); err != nil {
		m.log.Warn("gave up waiting for in-flight operations",
			zap.Duration("waited", time.Since(start)),
			zap.Int64("remaining", m.tracker.ActiveCount()))
	}

	remaining := m.timeout - time.Since(start)
	if remaining < time.Second {
		remaining = time.Second
	}
	ctx, cancel := context.WithTimeout(context.Background(), remaining)
	defer cancel()

	errs := m.registry.Shutdown(ctx)
	for _, err := range errs {
		m.log.Error("cleanup handler failed", zap.Error(err))
	}

	signal.Stop(m.sigChan)
	close(m.sigChan)

	if len(errs) > 0 {
		m.log.Error("shutdown finished with errors",
			zap.Duration("duration", time.Since(start)),
			zap.Int("errors", len(errs)))
		return fmt.Errorf("shutdown finished with %d cleanup errors", len(errs))
	}
	m.log.Info("shutdown complete", zap.Duration("duration", time.Since(start)))
	return nil
}

// Wait blocks until shutdown is initiated.
func (m *Manager) Wait() {
	<-m.ctx.Done()
}

// Track runs fn as a tracked operation so Shutdown waits for it.
// It returns ErrShuttingDown without running fn when shutdown has
// already begun.
func (m *Manager) Track(ctx context.Context, name string, fn func(context.Context) error) error {
	if !m.tracker.Start() {
		m.log.Debug("operation rejected, shutting down", zap.String("operation", name))
		return ErrShuttingDown
	}
	defer m.tracker.Done()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-m.ctx.Done():
		return context.Canceled
	default:
	}
	return fn(ctx)
}

// Active returns the number of in-flight tracked operations.
func (m *Manager) Active() int64 {
	return m.tracker.ActiveCount()
}

// IsShuttingDown reports whether shutdown has been initiated.
func (m *Manager) IsShuttingDown() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.shutdown || m.tracker.IsClosed()
}

// Handlers returns registered cleanup handler names in execution order.
func (m *Manager) Handlers() []string {
	return m.registry.Names()
}

// ExitCode returns the process exit code for this shutdown: 0 when the
// program finished on its own, or the Unix 128+signal code when a
// signal initiated it.
func (m *Manager) ExitCode() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.lastSig == nil {
		return core.ExitCodeSuccess
	}
	return core.ExitCodeForSignal(m.lastSig)
}

func (m *Manager) setLastSignal(sig os.Signal) {
	m.mu.Lock()
	m.lastSig = sig
	m.mu.Unlock()
}

func (m *Manager) lastSignal() os.Signal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.lastSig
}
