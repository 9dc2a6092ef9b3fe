// Package history persists one record per generation attempt in a local
// SQLite database, so "-history" can answer what ran, with which
// parameters, and how it ended. Failed runs are recorded too; a crash
// mid-write loses at most the in-flight row.
package history

import "time"

// Record statuses. Every row carries exactly one.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// GenerationRecord is one generation attempt, completed or failed.
type GenerationRecord struct {
	ID             string    // UUID, assigned by Record when empty
	CreatedAt      time.Time // UTC, assigned by Record when zero
	Prompt         string
	NegativePrompt string
	Width          int
	Height         int
	Steps          int
	FPS            int
	Seed           int64
	Sampler        string
	Scheduler      string
	GuidanceScale  float64
	FrameCount     int     // 0 for failed runs
	DurationMS     int64   // Wall time of the attempt
	OutputDir      string  // Where frames were written, empty for failures
	Status         string  // StatusCompleted or StatusFailed
	ErrorMessage   string  // User-facing failure description
}
