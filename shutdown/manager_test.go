package shutdown

import (
	"context"
	"errors"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/deanable/wanvidgen/core"
)

func TestManager_ZeroState(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t))

	if manager.Context() == nil {
		t.Error("Context should not be nil")
	}
	if manager.IsShuttingDown() {
		t.Error("new manager should not be shutting down")
	}
	if manager.Active() != 0 {
		t.Errorf("expected 0 active operations, got %d", manager.Active())
	}
	if code := manager.ExitCode(); code != core.ExitCodeSuccess {
		t.Errorf("ExitCode() = %d, want %d", code, core.ExitCodeSuccess)
	}
}

func TestManager_NilLogger(t *testing.T) {
	manager := NewManager(nil)
	if err := manager.Shutdown(); err != nil {
		t.Errorf("shutdown with nil logger failed: %v", err)
	}
}

func TestManager_WithTimeout(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t), WithTimeout(30*time.Second))
	if manager.timeout != 30*time.Second {
		t.Errorf("timeout = %v, want 30s", manager.timeout)
	}
}

func TestManager_HandlersSortedByPriority(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t))

	nop := func(ctx context.Context) error { return nil }
	manager.Register("pipeline", 20, nop)
	manager.Register("logs", 5, nop)
	manager.Register("history", 30, nop)

	want := []string{"logs", "pipeline", "history"}
	got := manager.Handlers()
	if len(got) != len(want) {
		t.Fatalf("expected %d handlers, got %d", len(want), len(got))
	}
	for i, name := range want {
		if got[i] != name {
			t.Errorf("handler %d = %q, want %q", i, got[i], name)
		}
	}
}

func TestManager_TrackRunsTheOperation(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t))

	ran := false
	err := manager.Track(context.Background(), "generate", func(ctx context.Context) error {
		ran = true
		return nil
	})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
	if !ran {
		t.Error("operation did not run")
	}
}

func TestManager_TrackRejectsDuringShutdown(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t))
	manager.tracker.Close()

	err := manager.Track(context.Background(), "generate", func(ctx context.Context) error {
		t.Error("operation must not run during shutdown")
		return nil
	})
	if !errors.Is(err, ErrShuttingDown) {
		t.Errorf("expected ErrShuttingDown, got %v", err)
	}
}

func TestManager_TrackHonorsCancelledContext(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := manager.Track(ctx, "generate", func(ctx context.Context) error {
		t.Error("operation must not run with a cancelled context")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestManager_TrackHonorsManagerCancellation(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t))
	manager.cancel()

	err := manager.Track(context.Background(), "generate", func(ctx context.Context) error {
		t.Error("operation must not run after manager cancellation")
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestManager_ShutdownRunsHandlersInOrder(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t), WithTimeout(5*time.Second))

	var order []string
	record := func(name string) func(ctx context.Context) error {
		return func(ctx context.Context) error {
			order = append(order, name)
			return nil
		}
	}
	manager.Register("models", 20, record("models"))
	manager.Register("history", 30, record("history"))
	manager.Register("logs", 5, record("logs"))

	if err := manager.Shutdown(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	want := []string{"logs", "models", "history"}
	if len(order) != len(want) {
		t.Fatalf("expected %d handlers executed, got %d", len(want), len(order))
	}
	for i, name := range want {
		if order[i] != name {
			t.Errorf("order[%d] = %q, want %q", i, order[i], name)
		}
	}
}

func TestManager_ShutdownReportsHandlerErrors(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t), WithTimeout(5*time.Second))

	manager.Register("fine", 10, func(ctx context.Context) error { return nil })
	manager.Register("broken", 20, func(ctx context.Context) error {
		return errors.New("close failed")
	})

	err := manager.Shutdown()
	if err == nil {
		t.Fatal("expected an error from the failing handler")
	}
	if !strings.Contains(err.Error(), "1 cleanup errors") {
		t.Errorf("error %q should mention 1 cleanup error", err.Error())
	}
}

func TestManager_ShutdownWaitsForTrackedWork(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t), WithTimeout(5*time.Second))

	started := make(chan struct{})
	release := make(chan struct{})
	var completed int32

	go func() {
		_ = manager.Track(context.Background(), "generate", func(ctx context.Context) error {
			close(started)
			<-release
			atomic.StoreInt32(&completed, 1)
			return nil
		})
	}()
	<-started

	shutdownDone := make(chan error, 1)
	go func() { shutdownDone <- manager.Shutdown() }()

	select {
	case <-shutdownDone:
		t.Fatal("shutdown should wait for in-flight work")
	case <-time.After(50 * time.Millisecond):
	}

	close(release)

	select {
	case err := <-shutdownDone:
		if err != nil {
			t.Errorf("expected no error, got %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("shutdown did not finish after work completed")
	}
	if atomic.LoadInt32(&completed) != 1 {
		t.Error("tracked work should finish before shutdown returns")
	}
}

func TestManager_ShutdownTimesOutOnStuckWork(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t), WithTimeout(100*time.Millisecond))

	started := make(chan struct{})
	block := make(chan struct{})
	go func() {
		_ = manager.Track(context.Background(), "stuck", func(ctx context.Context) error {
			close(started)
			<-block
			return nil
		})
	}()
	<-started

	start := time.Now()
	_ = manager.Shutdown()
	elapsed := time.Since(start)

	if elapsed < 90*time.Millisecond {
		t.Errorf("shutdown returned after %v, should have waited for the timeout", elapsed)
	}
	if elapsed > time.Second {
		t.Errorf("shutdown took %v, should have abandoned the stuck work", elapsed)
	}
	close(block)
}

func TestManager_ShutdownIdempotent(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t), WithTimeout(time.Second))

	var calls int32
	manager.Register("counter", 10, func(ctx context.Context) error {
		atomic.AddInt32(&calls, 1)
		return nil
	})

	for i := 0; i < 3; i++ {
		if err := manager.Shutdown(); err != nil {
			t.Errorf("shutdown %d: expected no error, got %v", i, err)
		}
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("expected handler called once, got %d", calls)
	}
	if !manager.IsShuttingDown() {
		t.Error("manager should report shutting down")
	}
}

func TestManager_ShutdownCancelsContext(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t), WithTimeout(time.Second))

	_ = manager.Shutdown()

	select {
	case <-manager.Context().Done():
	default:
		t.Error("Context should be cancelled once shutdown begins")
	}
}

func TestManager_HandlerContextHasDeadline(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t), WithTimeout(5*time.Second))

	manager.Register("deadline-check", 10, func(ctx context.Context) error {
		if _, ok := ctx.Deadline(); !ok {
			t.Error("cleanup context should carry a deadline")
		}
		return nil
	})
	if err := manager.Shutdown(); err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestManager_SecondSignalForcesExit(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t))

	var exitCode int32 = -1
	manager.exit = func(code int) { atomic.StoreInt32(&exitCode, int32(code)) }

	manager.setLastSignal(os.Interrupt)
	manager.signals.Increment()
	if got := atomic.LoadInt32(&exitCode); got != -1 {
		t.Fatalf("first signal should not exit, got code %d", got)
	}

	manager.signals.Increment()
	if got := atomic.LoadInt32(&exitCode); got != int32(core.ExitCodeSIGINT) {
		t.Errorf("forced exit code = %d, want %d", got, core.ExitCodeSIGINT)
	}
}

func TestManager_ExitCodeReflectsSignal(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t))

	manager.setLastSignal(os.Interrupt)
	if got := manager.ExitCode(); got != core.ExitCodeSIGINT {
		t.Errorf("ExitCode() = %d, want %d", got, core.ExitCodeSIGINT)
	}
}

func TestManager_StartIdempotent(t *testing.T) {
	manager := NewManager(zaptest.NewLogger(t), WithTimeout(time.Second))

	manager.Start()
	manager.Start()

	if !manager.started {
		t.Error("manager should be started")
	}
	_ = manager.Shutdown()
}
