package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger wraps zap.Logger and its sugared form behind one type so call
// sites can pick typed fields or printf-style logging as appropriate.
//
// Example:
//
//	log, err := logging.New(logging.DefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer log.Sync()
//
//	log.Info("generation started", zap.String("prompt", prompt))
//	log.Infof("wrote %d frames", n)
type Logger struct {
	zap   *zap.Logger
	sugar *zap.SugaredLogger

	// filePath is the resolved log file location, for reporting.
	filePath string
}

// New creates a Logger from cfg, creating cfg.Dir if needed. The log file
// is <Dir>/wanvidgen.log; rotation follows the Config limits.
func New(cfg Config) (*Logger, error) {
	cfg = cfg.withDefaults()

	if err := os.MkdirAll(cfg.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create log directory %q: %w", cfg.Dir, err)
	}
	path := filepath.Join(cfg.Dir, DefaultFileName)

	core := newTeeCore(cfg.Level, cfg.Format, zapcore.AddSync(os.Stdout), newFileWriter(path, cfg))

	zl := zap.New(core,
		zap.AddCaller(),
		zap.AddCallerSkip(1),
	)

	return &Logger{
		zap:      zl,
		sugar:    zl.Sugar(),
		filePath: path,
	}, nil
}

// NewWithWriters builds a Logger over caller-supplied writers. Used by
// tests to capture output in buffers.
func NewWithWriters(level zapcore.Level, format string, console, file zapcore.WriteSyncer) *Logger {
	core := newTeeCore(level, format, console, file)
	zl := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1))
	return &Logger{zap: zl, sugar: zl.Sugar()}
}

// Nop returns a Logger that discards everything. Handy as a default when
// a component was not given a logger.
func Nop() *Logger {
	zl := zap.NewNop()
	return &Logger{zap: zl, sugar: zl.Sugar()}
}

// Sync flushes buffered entries. Call before exit; errors from syncing
// stdout are expected on some platforms and safe to ignore.
func (l *Logger) Sync() error {
	if l == nil || l.zap == nil {
		return nil
	}
	return l.zap.Sync()
}

// FilePath returns the log file location, or "" for writer-backed loggers.
func (l *Logger) FilePath() string { return l.filePath }

// Zap exposes the underlying zap.Logger. Library packages (vidruntime,
// output, history, shutdown) take this rather than the wrapper.
func (l *Logger) Zap() *zap.Logger { return l.zap }

// Sugar exposes the underlying sugared logger.
func (l *Logger) Sugar() *zap.SugaredLogger { return l.sugar }

// Named derives a child logger whose name appears in the source field.
//
// Example:
//
//	pipeLog := log.Named("pipeline")
func (l *Logger) Named(name string) *Logger {
	zl := l.zap.Named(name)
	return &Logger{zap: zl, sugar: zl.Sugar(), filePath: l.filePath}
}

// With derives a child logger carrying fields on every entry.
func (l *Logger) With(fields ...zap.Field) *Logger {
	zl := l.zap.With(fields...)
	return &Logger{zap: zl, sugar: zl.Sugar(), filePath: l.filePath}
}

// Debug logs at DebugLevel with typed fields.
func (l *Logger) Debug(msg string, fields ...zap.Field) { l.zap.Debug(msg, fields...) }

// Info logs at InfoLevel with typed fields.
func (l *Logger) Info(msg string, fields ...zap.Field) { l.zap.Info(msg, fields...) }

// Warn logs at WarnLevel with typed fields.
func (l *Logger) Warn(msg string, fields ...zap.Field) { l.zap.Warn(msg, fields...) }

// Error logs at ErrorLevel with typed fields.
func (l *Logger) Error(msg string, fields ...zap.Field) { l.zap.Error(msg, fields...) }

// Fatal logs at FatalLevel then exits.
func (l *Logger) Fatal(msg string, fields ...zap.Field) { l.zap.Fatal(msg, fields...) }

// Debugw logs at DebugLevel with loose key-value pairs.
func (l *Logger) Debugw(msg string, kv ...interface{}) { l.sugar.Debugw(msg, kv...) }

// Infow logs at InfoLevel with loose key-value pairs.
func (l *Logger) Infow(msg string, kv ...interface{}) { l.sugar.Infow(msg, kv...) }

// Warnw logs at WarnLevel with loose key-value pairs.
func (l *Logger) Warnw(msg string, kv ...interface{}) { l.sugar.Warnw(msg, kv...) }

// Errorw logs at ErrorLevel with loose key-value pairs.
func (l *Logger) Errorw(msg string, kv ...interface{}) { l.sugar.Errorw(msg, kv...) }

// Debugf logs a formatted message at DebugLevel.
func (l *Logger) Debugf(template string, args ...interface{}) { l.sugar.Debugf(template, args...) }

// Infof logs a formatted message at InfoLevel.
func (l *Logger) Infof(template string, args ...interface{}) { l.sugar.Infof(template, args...) }

// Warnf logs a formatted message at WarnLevel.
func (l *Logger) Warnf(template string, args ...interface{}) { l.sugar.Warnf(template, args...) }

// Errorf logs a formatted message at ErrorLevel.
func (l *Logger) Errorf(template string, args ...interface{}) { l.sugar.Errorf(template, args...) }

// Fatalf logs a formatted message at FatalLevel then exits.
func (l *Logger) Fatalf(template string, args ...interface{}) { l.sugar.Fatalf(template, args...) }
