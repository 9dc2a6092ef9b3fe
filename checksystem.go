package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/fatih/color"

	"github.com/deanable/wanvidgen/core"
	"github.com/deanable/wanvidgen/gpu"
	"github.com/deanable/wanvidgen/history"
	"github.com/deanable/wanvidgen/logging"
	"github.com/deanable/wanvidgen/output"
)

// systemCheck is one row of the -check-system report. Optional checks
// render as warnings instead of failures; the suite still passes when
// only optional checks fail.
type systemCheck struct {
	name     string
	optional bool
	run      func() (string, error)
}

// runCheckSystem verifies the pieces a generation run depends on and
// prints one ✓/✗ line per check. Returns ExitCodeError when any
// required check fails.
func runCheckSystem(opts *cliOptions, cfg *AppConfig, log *logging.Logger, stdout io.Writer) int {
	start := time.Now()
	prober := gpu.New(gpu.Config{}, log.Zap().Named("gpu"))

	checks := []systemCheck{
		{
			name: "Runtime",
			run: func() (string, error) {
				return fmt.Sprintf("wanvidgen %s, %s %s/%s",
					core.VersionInfo(), runtime.Version(), runtime.GOOS, runtime.GOARCH), nil
			},
		},
		{
			name: "Accelerators",
			run:  func() (string, error) { return checkAccelerators(prober) },
		},
		{
			name: "Device",
			run: func() (string, error) {
				device, err := prober.Resolve(cfg.Device)
				if err != nil {
					return "", fmt.Errorf("%s", userMessage(err))
				}
				return fmt.Sprintf("%q resolves to %s", cfg.Device, device), nil
			},
		},
		{
			name: "Frames format",
			run:  func() (string, error) { return checkFramesFormat(cfg.FramesFormat) },
		},
		{
			name:     "Encoder",
			optional: true,
			run:      func() (string, error) { return checkEncoder(cfg.FFmpegPath) },
		},
		{
			name: "Model weights",
			run:  func() (string, error) { return checkWeights(opts, cfg) },
		},
		{
			name: "Output directory",
			run:  func() (string, error) { return checkOutputDir(cfg.OutputDir) },
		},
		{
			name:     "History database",
			optional: true,
			run:      func() (string, error) { return checkHistory(cfg, log) },
		},
	}

	fmt.Fprintln(stdout)
	color.New(color.FgCyan, color.Bold).Fprintf(stdout, "━━━ System Check ━━━\n")
	fmt.Fprintln(stdout)

	passed, failed, warned := 0, 0, 0
	for _, c := range checks {
		detail, err := c.run()
		switch {
		case err == nil:
			passed++
			color.New(color.FgGreen).Fprintf(stdout, "  ✓ %s", c.name)
		case c.optional:
			warned++
			color.New(color.FgYellow).Fprintf(stdout, "  ! %s", c.name)
		default:
			failed++
			color.New(color.FgRed).Fprintf(stdout, "  ✗ %s", c.name)
		}
		if err != nil {
			detail = err.Error()
		}
		if detail != "" {
			color.New(color.FgHiBlack).Fprintf(stdout, " - %s", detail)
		}
		fmt.Fprintln(stdout)
	}

	fmt.Fprintln(stdout)
	dim := color.New(color.FgHiBlack)
	if failed == 0 {
		head := color.New(color.FgGreen, color.Bold)
		head.Fprintf(stdout, "━━━ System Check Passed ")
		dim.Fprintf(stdout, "(%d/%d checks passed in %v%s)",
			passed, len(checks), time.Since(start).Round(time.Millisecond), warningNote(warned))
		head.Fprintln(stdout, " ━━━")
	} else {
		head := color.New(color.FgRed, color.Bold)
		head.Fprintf(stdout, "━━━ System Check Failed ")
		dim.Fprintf(stdout, "(%d passed, %d failed%s)", passed, failed, warningNote(warned))
		head.Fprintln(stdout, " ━━━")
	}
	fmt.Fprintln(stdout)

	if failed > 0 {
		return core.ExitCodeError
	}
	return core.ExitCodeSuccess
}

func warningNote(warned int) string {
	if warned == 0 {
		return ""
	}
	return fmt.Sprintf(", %d warnings", warned)
}

// checkAccelerators lists detected GPUs with their memory figures.
// A machine without any is fine; generation falls back to the CPU.
func checkAccelerators(prober *gpu.Prober) (string, error) {
	devices, err := prober.Devices()
	if err != nil || len(devices) == 0 {
		return "none detected, running on CPU", nil
	}
	parts := make([]string, len(devices))
	for i, d := range devices {
		parts[i] = d.String()
	}
	return strings.Join(parts, "; "), nil
}

func checkFramesFormat(format string) (string, error) {
	want := strings.ToLower(strings.TrimSpace(format))
	for _, f := range output.SupportedFormats() {
		if f == want {
			return want, nil
		}
	}
	return "", fmt.Errorf("unsupported format %q (supported: %s)",
		format, strings.Join(output.SupportedFormats(), ", "))
}

// checkEncoder looks up ffmpeg. Optional: png and gif output work
// without it.
func checkEncoder(configured string) (string, error) {
	name := configured
	if name == "" {
		name = "ffmpeg"
	}
	path, err := exec.LookPath(name)
	if err != nil {
		return "", fmt.Errorf("ffmpeg not found, mp4/webm/webp output unavailable")
	}
	return path, nil
}

// checkWeights resolves the configured weight trio and stats each file.
func checkWeights(opts *cliOptions, cfg *AppConfig) (string, error) {
	weights, err := resolveWeights(opts, cfg)
	if err != nil {
		return "", err
	}

	var total int64
	for _, path := range []string{weights.textEncoder, weights.autoencoder, weights.denoiser} {
		info, err := os.Stat(path)
		if err != nil {
			return "", fmt.Errorf("missing %s", path)
		}
		if info.IsDir() {
			return "", fmt.Errorf("%s is a directory, not a weight file", path)
		}
		total += info.Size()
	}
	return fmt.Sprintf("3 weight files, %s", core.FormatBytes(total)), nil
}

// checkOutputDir creates the output directory if needed and probes that
// it is writable.
func checkOutputDir(dir string) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("cannot create %s: %w", dir, err)
	}
	probe := filepath.Join(dir, ".write-check")
	if err := os.WriteFile(probe, nil, 0o644); err != nil {
		return "", fmt.Errorf("%s is not writable: %w", dir, err)
	}
	_ = os.Remove(probe)
	return dir + " (writable)", nil
}

// checkHistory opens the history database and counts recorded runs.
// Optional: generation proceeds without history when the store is
// unavailable.
func checkHistory(cfg *AppConfig, log *logging.Logger) (string, error) {
	store, err := history.Open(cfg.HistoryPath(), log.Zap().Named("history"))
	if err != nil {
		return "", err
	}
	defer store.Close()

	n, err := store.Count(context.Background())
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%d runs)", cfg.HistoryPath(), n), nil
}
