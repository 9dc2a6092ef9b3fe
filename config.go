package main

import (
	"os"
	"path/filepath"

	"go.uber.org/zap/zapcore"

	"github.com/deanable/wanvidgen/core"
	"github.com/deanable/wanvidgen/gpu"
	"github.com/deanable/wanvidgen/logging"
	"github.com/deanable/wanvidgen/output"
)

// AppConfig holds everything the CLI reads from the environment. Width,
// Height and FPS stay zero when unset so the runtime defaults apply;
// command line flags override any of these after loading.
type AppConfig struct {
	// Model weights, either explicit paths or resolved through a
	// registry preset at generation time.
	TextEncoderPath string
	AutoencoderPath string
	DenoiserPath    string
	RegistryPath    string

	Device       string
	Quantization string

	OutputDir    string
	FramesFormat string
	Width        int
	Height       int
	FPS          int

	// Seed pins the generation seed. Negative (the default) requests a
	// fresh random seed per run; an explicit -seed flag beats this.
	Seed int64

	// DataDir holds the history database and other per-user state.
	DataDir string

	LogDir    string
	LogLevel  string
	LogFormat string
	Debug     bool

	// MinFreeMemoryMB is the headroom the memory guard reserves.
	// Zero selects the runtime default.
	MinFreeMemoryMB float64

	// FFmpegPath overrides the PATH lookup for video encoding.
	FFmpegPath string
}

// loadAppConfig builds the configuration from WANVIDGEN_* environment
// variables with sensible defaults for a zero-config first run. Nothing
// here validates paths; the generation flow reports missing weights with
// actionable messages.
func loadAppConfig() *AppConfig {
	return &AppConfig{
		TextEncoderPath: os.Getenv("WANVIDGEN_TEXT_ENCODER"),
		AutoencoderPath: os.Getenv("WANVIDGEN_AUTOENCODER"),
		DenoiserPath:    os.Getenv("WANVIDGEN_DENOISER"),
		RegistryPath:    os.Getenv("WANVIDGEN_REGISTRY"),

		Device:       core.GetEnvOrDefault("WANVIDGEN_DEVICE", gpu.DeviceAuto),
		Quantization: os.Getenv("WANVIDGEN_QUANT"),

		OutputDir:    core.GetEnvOrDefault("WANVIDGEN_OUTPUT_DIR", "./outputs"),
		FramesFormat: core.GetEnvOrDefault("WANVIDGEN_FORMAT", output.FormatPNG),
		Width:        core.ParseIntEnv("WANVIDGEN_WIDTH", 0),
		Height:       core.ParseIntEnv("WANVIDGEN_HEIGHT", 0),
		FPS:          core.ParseIntEnv("WANVIDGEN_FPS", 0),
		Seed:         core.ParseInt64Env("WANVIDGEN_SEED", -1),

		DataDir: core.GetEnvOrDefault("WANVIDGEN_DATA_DIR", core.GetDataDirectory()),

		LogDir:    core.GetEnvOrDefault("WANVIDGEN_LOG_DIR", "./logs"),
		LogLevel:  core.GetEnvOrDefault("WANVIDGEN_LOG_LEVEL", "info"),
		LogFormat: core.GetEnvOrDefault("WANVIDGEN_LOG_FORMAT", logging.FormatConsole),
		Debug:     core.ParseBoolEnv("WANVIDGEN_DEBUG", false),

		MinFreeMemoryMB: core.ParseFloat64Env("WANVIDGEN_MIN_FREE_MB", 0),
		FFmpegPath:      os.Getenv("WANVIDGEN_FFMPEG"),
	}
}

// applyFlags lays explicitly set command line values over the
// environment configuration. Zero-valued flags leave the config alone,
// so `wanvidgen -generate "..."` with no other flags runs entirely on
// env and defaults.
func (c *AppConfig) applyFlags(opts *cliOptions) {
	if opts.device != "" {
		c.Device = opts.device
	}
	if opts.quant != "" {
		c.Quantization = opts.quant
	}
	if opts.outputDir != "" {
		c.OutputDir = opts.outputDir
	}
	if opts.framesFormat != "" {
		c.FramesFormat = opts.framesFormat
	}
	if opts.width > 0 {
		c.Width = opts.width
	}
	if opts.height > 0 {
		c.Height = opts.height
	}
	if opts.fps > 0 {
		c.FPS = opts.fps
	}
	if opts.logLevel != "" {
		c.LogLevel = opts.logLevel
	}
	if opts.debug {
		c.Debug = true
		c.LogLevel = "debug"
	}
}

// HistoryPath is the SQLite history database location under DataDir.
func (c *AppConfig) HistoryPath() string {
	return filepath.Join(c.DataDir, "history.db")
}

// LoggingConfig translates the app configuration into the logging
// package's terms. Unknown level strings fall back to info.
func (c *AppConfig) LoggingConfig() logging.Config {
	cfg := logging.DefaultConfig()
	cfg.Dir = c.LogDir
	cfg.Level = logging.ParseLevel(c.LogLevel, zapcore.InfoLevel)
	cfg.Format = c.LogFormat
	return cfg
}
