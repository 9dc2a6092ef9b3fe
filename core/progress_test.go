package core

import (
	"testing"
	"time"
)

func TestProgressTrackerSteps(t *testing.T) {
	p := NewProgressTracker(20)

	for i := 0; i < 5; i++ {
		p.Step()
	}

	info := p.Progress()
	if info.Completed != 5 {
		t.Errorf("Completed = %d, want 5", info.Completed)
	}
	if info.Total != 20 {
		t.Errorf("Total = %d, want 20", info.Total)
	}
	if info.Percent != 25 {
		t.Errorf("Percent = %v, want 25", info.Percent)
	}
	if p.IsComplete() {
		t.Error("IsComplete() = true before all steps done")
	}
}

func TestProgressTrackerCompletion(t *testing.T) {
	p := NewProgressTracker(3)
	p.SetCompleted(3)

	if !p.IsComplete() {
		t.Error("IsComplete() = false after all steps")
	}
	if got := p.Progress().Percent; got != 100 {
		t.Errorf("Percent = %v, want 100", got)
	}
}

func TestProgressTrackerPercentCapped(t *testing.T) {
	p := NewProgressTracker(2)
	p.SetCompleted(5)

	if got := p.Progress().Percent; got != 100 {
		t.Errorf("Percent = %v, want capped at 100", got)
	}
}

func TestProgressTrackerUnknownTotal(t *testing.T) {
	p := NewProgressTracker(0)
	p.Step()

	info := p.Progress()
	if info.Percent != -1 {
		t.Errorf("Percent = %v, want -1 for unknown total", info.Percent)
	}
	if p.IsComplete() {
		t.Error("IsComplete() must be false when total is unknown")
	}
}

func TestProgressTrackerReset(t *testing.T) {
	p := NewProgressTracker(10)
	p.SetCompleted(10)
	p.Reset(4)

	if p.Completed() != 0 {
		t.Errorf("Completed after Reset = %d, want 0", p.Completed())
	}
	if p.Total() != 4 {
		t.Errorf("Total after Reset = %d, want 4", p.Total())
	}
	if p.IsComplete() {
		t.Error("IsComplete() = true after Reset")
	}
}

func TestProgressTrackerNegativeSetCompleted(t *testing.T) {
	p := NewProgressTracker(10)
	p.SetCompleted(-3)

	if p.Completed() != 0 {
		t.Errorf("Completed = %d, want 0 for negative input", p.Completed())
	}
}

func TestProgressTrackerElapsed(t *testing.T) {
	p := NewProgressTracker(1)
	time.Sleep(10 * time.Millisecond)

	if p.Progress().Elapsed <= 0 {
		t.Error("Elapsed should be positive")
	}
}
