package main

import (
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/deanable/wanvidgen/core"
	"github.com/deanable/wanvidgen/logging"
)

func TestLoadAppConfigDefaults(t *testing.T) {
	clearAppEnv(t)
	cfg := loadAppConfig()

	if cfg.Device != "auto" {
		t.Errorf("Device = %q, want auto", cfg.Device)
	}
	if cfg.OutputDir != "./outputs" {
		t.Errorf("OutputDir = %q, want ./outputs", cfg.OutputDir)
	}
	if cfg.FramesFormat != "png" {
		t.Errorf("FramesFormat = %q, want png", cfg.FramesFormat)
	}
	if cfg.Width != 0 || cfg.Height != 0 || cfg.FPS != 0 {
		t.Errorf("dimensions should default to zero, got %dx%d@%d", cfg.Width, cfg.Height, cfg.FPS)
	}
	if cfg.Seed != -1 {
		t.Errorf("Seed = %d, want -1 (random per run)", cfg.Seed)
	}
	if cfg.DataDir != core.GetDataDirectory() {
		t.Errorf("DataDir = %q, want the per-user data directory", cfg.DataDir)
	}
	if cfg.LogDir != "./logs" || cfg.LogLevel != "info" || cfg.LogFormat != logging.FormatConsole {
		t.Errorf("logging defaults = %q/%q/%q", cfg.LogDir, cfg.LogLevel, cfg.LogFormat)
	}
	if cfg.Debug {
		t.Error("Debug should default to false")
	}
	if cfg.MinFreeMemoryMB != 0 {
		t.Errorf("MinFreeMemoryMB = %v, want 0", cfg.MinFreeMemoryMB)
	}
	if cfg.TextEncoderPath != "" || cfg.RegistryPath != "" || cfg.FFmpegPath != "" {
		t.Error("path variables should default to empty")
	}
}

func TestLoadAppConfigReadsEnvironment(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("WANVIDGEN_TEXT_ENCODER", "/weights/clip.bin")
	t.Setenv("WANVIDGEN_AUTOENCODER", "/weights/vae.bin")
	t.Setenv("WANVIDGEN_DENOISER", "/weights/unet.bin")
	t.Setenv("WANVIDGEN_REGISTRY", "/weights/registry.yaml")
	t.Setenv("WANVIDGEN_DEVICE", "cuda:1")
	t.Setenv("WANVIDGEN_QUANT", "int8")
	t.Setenv("WANVIDGEN_OUTPUT_DIR", "/videos")
	t.Setenv("WANVIDGEN_FORMAT", "gif")
	t.Setenv("WANVIDGEN_WIDTH", "640")
	t.Setenv("WANVIDGEN_HEIGHT", "384")
	t.Setenv("WANVIDGEN_FPS", "12")
	t.Setenv("WANVIDGEN_SEED", "777")
	t.Setenv("WANVIDGEN_DATA_DIR", "/data")
	t.Setenv("WANVIDGEN_LOG_DIR", "/logs")
	t.Setenv("WANVIDGEN_LOG_LEVEL", "debug")
	t.Setenv("WANVIDGEN_LOG_FORMAT", "json")
	t.Setenv("WANVIDGEN_DEBUG", "true")
	t.Setenv("WANVIDGEN_MIN_FREE_MB", "2048")
	t.Setenv("WANVIDGEN_FFMPEG", "/opt/ffmpeg/bin/ffmpeg")

	cfg := loadAppConfig()

	if cfg.TextEncoderPath != "/weights/clip.bin" ||
		cfg.AutoencoderPath != "/weights/vae.bin" ||
		cfg.DenoiserPath != "/weights/unet.bin" {
		t.Errorf("weight paths = %q/%q/%q", cfg.TextEncoderPath, cfg.AutoencoderPath, cfg.DenoiserPath)
	}
	if cfg.RegistryPath != "/weights/registry.yaml" {
		t.Errorf("RegistryPath = %q", cfg.RegistryPath)
	}
	if cfg.Device != "cuda:1" || cfg.Quantization != "int8" {
		t.Errorf("device/quant = %q/%q", cfg.Device, cfg.Quantization)
	}
	if cfg.OutputDir != "/videos" || cfg.FramesFormat != "gif" {
		t.Errorf("output = %q/%q", cfg.OutputDir, cfg.FramesFormat)
	}
	if cfg.Width != 640 || cfg.Height != 384 || cfg.FPS != 12 {
		t.Errorf("dimensions = %dx%d@%d", cfg.Width, cfg.Height, cfg.FPS)
	}
	if cfg.Seed != 777 {
		t.Errorf("Seed = %d, want 777", cfg.Seed)
	}
	if cfg.DataDir != "/data" || cfg.LogDir != "/logs" {
		t.Errorf("dirs = %q/%q", cfg.DataDir, cfg.LogDir)
	}
	if cfg.LogLevel != "debug" || cfg.LogFormat != "json" || !cfg.Debug {
		t.Errorf("logging = %q/%q/%v", cfg.LogLevel, cfg.LogFormat, cfg.Debug)
	}
	if cfg.MinFreeMemoryMB != 2048 {
		t.Errorf("MinFreeMemoryMB = %v, want 2048", cfg.MinFreeMemoryMB)
	}
	if cfg.FFmpegPath != "/opt/ffmpeg/bin/ffmpeg" {
		t.Errorf("FFmpegPath = %q", cfg.FFmpegPath)
	}
}

func TestLoadAppConfigIgnoresMalformedNumbers(t *testing.T) {
	clearAppEnv(t)
	t.Setenv("WANVIDGEN_WIDTH", "not-a-number")
	t.Setenv("WANVIDGEN_SEED", "4x4")
	t.Setenv("WANVIDGEN_MIN_FREE_MB", "lots")

	cfg := loadAppConfig()
	if cfg.Width != 0 {
		t.Errorf("Width = %d, want the default for a malformed value", cfg.Width)
	}
	if cfg.Seed != -1 {
		t.Errorf("Seed = %d, want the default for a malformed value", cfg.Seed)
	}
	if cfg.MinFreeMemoryMB != 0 {
		t.Errorf("MinFreeMemoryMB = %v, want the default for a malformed value", cfg.MinFreeMemoryMB)
	}
}

func TestApplyFlagsOverridesEnvironment(t *testing.T) {
	cfg := &AppConfig{
		Device:       "cpu",
		OutputDir:    "./envout",
		FramesFormat: "png",
		Width:        640,
		Height:       384,
		FPS:          12,
		LogLevel:     "info",
	}
	opts := &cliOptions{
		device:       "cuda",
		quant:        "int8",
		outputDir:    "/flagout",
		framesFormat: "gif",
		width:        256,
		logLevel:     "warn",
	}

	cfg.applyFlags(opts)

	if cfg.Device != "cuda" || cfg.Quantization != "int8" {
		t.Errorf("device/quant = %q/%q", cfg.Device, cfg.Quantization)
	}
	if cfg.OutputDir != "/flagout" || cfg.FramesFormat != "gif" {
		t.Errorf("output = %q/%q", cfg.OutputDir, cfg.FramesFormat)
	}
	if cfg.Width != 256 {
		t.Errorf("Width = %d, want the flag value 256", cfg.Width)
	}
	// Flags left at their zero value keep the env configuration.
	if cfg.Height != 384 || cfg.FPS != 12 {
		t.Errorf("height/fps = %d/%d, want the env values", cfg.Height, cfg.FPS)
	}
	if cfg.LogLevel != "warn" {
		t.Errorf("LogLevel = %q, want warn", cfg.LogLevel)
	}
}

func TestApplyFlagsDebugForcesDebugLevel(t *testing.T) {
	cfg := &AppConfig{LogLevel: "info"}
	cfg.applyFlags(&cliOptions{debug: true})

	if !cfg.Debug {
		t.Error("Debug should be set")
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want debug", cfg.LogLevel)
	}
}

func TestHistoryPath(t *testing.T) {
	cfg := &AppConfig{DataDir: filepath.Join("some", "dir")}
	got := cfg.HistoryPath()
	if !strings.HasSuffix(got, filepath.Join("some", "dir", "history.db")) {
		t.Errorf("HistoryPath = %q", got)
	}
}

func TestLoggingConfig(t *testing.T) {
	cfg := &AppConfig{LogDir: "/var/log/wvg", LogLevel: "debug", LogFormat: "json"}
	lc := cfg.LoggingConfig()

	if lc.Dir != "/var/log/wvg" {
		t.Errorf("Dir = %q", lc.Dir)
	}
	if lc.Level != zapcore.DebugLevel {
		t.Errorf("Level = %v, want debug", lc.Level)
	}
	if lc.Format != "json" {
		t.Errorf("Format = %q, want json", lc.Format)
	}

	// Unknown level strings fall back to info.
	cfg.LogLevel = "chatty"
	if lc := cfg.LoggingConfig(); lc.Level != zapcore.InfoLevel {
		t.Errorf("Level = %v, want info fallback", lc.Level)
	}
}
