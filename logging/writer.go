package logging

import (
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// newFileWriter returns a zapcore.WriteSyncer that writes to path with
// size/age-based rotation. Lumberjack creates the file (and any rotation
// siblings) on first write, so this never fails up front.
func newFileWriter(path string, cfg Config) zapcore.WriteSyncer {
	return zapcore.AddSync(&lumberjack.Logger{
		Filename:   path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	})
}
