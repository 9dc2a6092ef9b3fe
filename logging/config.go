package logging

import (
	"strings"

	"go.uber.org/zap/zapcore"
)

// Output format identifiers for Config.Format.
const (
	// FormatConsole renders console output human-readable with colored levels.
	FormatConsole = "console"

	// FormatJSON renders console output as JSON, matching the file output.
	FormatJSON = "json"
)

// Default rotation settings for the log file.
const (
	// DefaultFileName is the log file created under Config.Dir.
	DefaultFileName = "wanvidgen.log"

	// DefaultMaxSizeMB is the maximum size in megabytes before rotation.
	DefaultMaxSizeMB = 100

	// DefaultMaxBackups is the number of rotated files to retain.
	DefaultMaxBackups = 5

	// DefaultMaxAgeDays is the maximum age in days of retained files.
	DefaultMaxAgeDays = 30
)

// Config holds the logging configuration resolved by the application layer.
// Zero values fall back to the defaults above via withDefaults.
type Config struct {
	// Dir is the directory the log file is written to. Created if missing.
	Dir string

	// Level is the minimum level for both console and file output.
	Level zapcore.Level

	// Format selects the console rendering: FormatConsole or FormatJSON.
	// The file output is always JSON regardless of this setting.
	Format string

	// MaxSizeMB, MaxBackups and MaxAgeDays control file rotation.
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int

	// Compress gzips rotated files.
	Compress bool
}

// DefaultConfig returns the configuration used when nothing is overridden:
// ./logs/wanvidgen.log at info level with a human-readable console.
func DefaultConfig() Config {
	return Config{
		Dir:        "logs",
		Level:      zapcore.InfoLevel,
		Format:     FormatConsole,
		MaxSizeMB:  DefaultMaxSizeMB,
		MaxBackups: DefaultMaxBackups,
		MaxAgeDays: DefaultMaxAgeDays,
		Compress:   true,
	}
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.Dir == "" {
		c.Dir = def.Dir
	}
	if c.Format == "" {
		c.Format = def.Format
	}
	if c.MaxSizeMB <= 0 {
		c.MaxSizeMB = def.MaxSizeMB
	}
	if c.MaxBackups <= 0 {
		c.MaxBackups = def.MaxBackups
	}
	if c.MaxAgeDays <= 0 {
		c.MaxAgeDays = def.MaxAgeDays
	}
	return c
}

// ParseLevel parses a log level name case-insensitively, returning def when
// the string is empty or unknown.
//
// Valid levels: debug, info, warn, warning, error, fatal.
func ParseLevel(s string, def zapcore.Level) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	case "fatal":
		return zapcore.FatalLevel
	default:
		return def
	}
}
