package logging

import (
	"math"
	"time"

	"go.uber.org/zap"
)

// Field helpers for the recurring structured payloads of a generation run.
// They take primitives so this package stays import-free of the runtime.

// RequestFields returns the fields describing one generation request.
//
// Example:
//
//	log.Info("generation started",
//	    logging.RequestFields(prompt, 1024, 576, 20, 8, 42)...)
func RequestFields(prompt string, width, height, steps, fps int, seed int64) []zap.Field {
	return []zap.Field{
		zap.String("prompt", prompt),
		zap.Int("width", width),
		zap.Int("height", height),
		zap.Int("steps", steps),
		zap.Int("fps", fps),
		zap.Int64("seed", seed),
	}
}

// MemoryFields returns the fields for a device memory snapshot. Infinite
// free capacity (unbounded devices) is reported as unbounded=true instead
// of a non-encodable float.
func MemoryFields(device string, freeMB, totalMB float64) []zap.Field {
	if math.IsInf(freeMB, 1) {
		return []zap.Field{
			zap.String("device", device),
			zap.Bool("unbounded", true),
		}
	}
	return []zap.Field{
		zap.String("device", device),
		zap.Float64("free_mb", freeMB),
		zap.Float64("total_mb", totalMB),
	}
}

// TimingFields returns duration fields for a completed run, including the
// effective frame production rate.
func TimingFields(start, end time.Time, frames int) []zap.Field {
	d := end.Sub(start)
	fps := 0.0
	if d > 0 {
		fps = float64(frames) / d.Seconds()
	}
	return []zap.Field{
		zap.Duration("duration", d),
		zap.Int("frames", frames),
		zap.Float64("frames_per_second", fps),
	}
}
