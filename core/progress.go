package core

import (
	"sync"
	"time"
)

// ProgressInfo is a point-in-time view of a running multi-step operation,
// as returned by ProgressTracker.Progress() for display.
type ProgressInfo struct {
	// Total steps in the operation (0 if unknown)
	Total int
	// Completed steps so far
	Completed int
	// Percentage complete (0-100, or -1 if total is unknown)
	Percent float64
	// Smoothed completion rate in steps per second
	StepsPerSec float64
	// Estimated time remaining (0 if unknown or complete)
	ETA time.Duration
	// Elapsed time since tracking started
	Elapsed time.Duration
}

// ProgressTracker tracks a step-based operation (denoising iterations,
// frame decodes) with thread-safe updates. It keeps an exponential moving
// average of the step rate so console ETA display stays smooth even when
// individual steps vary in cost.
//
// The generation loop itself is single-threaded; the tracker still locks
// because the console renderer may read Progress() from another goroutine.
type ProgressTracker struct {
	mu sync.RWMutex

	total     int
	completed int
	startTime time.Time

	lastUpdateTime time.Time
	lastCompleted  int
	rateAvg        float64
	// EMA weight, higher favors recent steps
	rateAlpha float64
}

// NewProgressTracker creates a tracker for an operation with the given
// number of steps (use 0 if unknown).
func NewProgressTracker(total int) *ProgressTracker {
	now := time.Now()
	return &ProgressTracker{
		total:          total,
		startTime:      now,
		lastUpdateTime: now,
		rateAlpha:      0.3,
	}
}

// Step records one completed step.
func (p *ProgressTracker) Step() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed++
	p.updateRate()
}

// SetCompleted sets the absolute completed step count.
func (p *ProgressTracker) SetCompleted(completed int) {
	if completed < 0 {
		completed = 0
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	p.completed = completed
	p.updateRate()
}

// updateRate recalculates the smoothed step rate. Must hold mu.
func (p *ProgressTracker) updateRate() {
	now := time.Now()
	elapsed := now.Sub(p.lastUpdateTime).Seconds()

	if elapsed >= 0.1 {
		stepsInInterval := p.completed - p.lastCompleted
		instantRate := float64(stepsInInterval) / elapsed

		if p.rateAvg == 0 {
			p.rateAvg = instantRate
		} else {
			p.rateAvg = p.rateAlpha*instantRate + (1-p.rateAlpha)*p.rateAvg
		}

		p.lastUpdateTime = now
		p.lastCompleted = p.completed
	}
}

// Progress returns the current progress snapshot.
func (p *ProgressTracker) Progress() ProgressInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()

	info := ProgressInfo{
		Total:       p.total,
		Completed:   p.completed,
		Percent:     -1,
		StepsPerSec: p.rateAvg,
		Elapsed:     time.Since(p.startTime),
	}

	if p.total > 0 {
		info.Percent = float64(p.completed) / float64(p.total) * 100
		if info.Percent > 100 {
			info.Percent = 100
		}

		if p.rateAvg > 0 && p.completed < p.total {
			remaining := float64(p.total - p.completed)
			info.ETA = time.Duration(remaining / p.rateAvg * float64(time.Second))
		}
	}

	return info
}

// Completed returns the completed step count.
func (p *ProgressTracker) Completed() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.completed
}

// Total returns the total step count.
func (p *ProgressTracker) Total() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total
}

// IsComplete reports whether all steps have finished.
// Always false when the total is unknown.
func (p *ProgressTracker) IsComplete() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.total > 0 && p.completed >= p.total
}

// Reset restarts the tracker for a new operation.
func (p *ProgressTracker) Reset(total int) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	p.total = total
	p.completed = 0
	p.startTime = now
	p.lastUpdateTime = now
	p.lastCompleted = 0
	p.rateAvg = 0
}
