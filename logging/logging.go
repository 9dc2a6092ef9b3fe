// Package logging provides structured logging for wanvidgen.
//
// It composes zap with a tee core so every entry reaches both the console
// and a rotating log file:
//   - console output is human-readable in development, JSON otherwise
//   - file output is always JSON, rotated by lumberjack
//
// The app builds one Logger from a Config at startup and derives named
// child loggers per subsystem (pipeline, output, history). Library
// packages take a raw *zap.Logger instead of this wrapper; use Zap() to
// hand one down.
package logging
