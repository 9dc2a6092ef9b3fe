package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/fatih/color"
	"go.uber.org/zap"

	"github.com/deanable/wanvidgen/core"
	"github.com/deanable/wanvidgen/gpu"
	"github.com/deanable/wanvidgen/history"
	"github.com/deanable/wanvidgen/logging"
	"github.com/deanable/wanvidgen/output"
	"github.com/deanable/wanvidgen/registry"
	"github.com/deanable/wanvidgen/shutdown"
	"github.com/deanable/wanvidgen/vidruntime"
	"github.com/deanable/wanvidgen/vidruntime/backend"
)

// shutdownTimeout bounds how long an interrupted run may spend
// finishing in-flight work plus cleanup before cleanup is cut short.
const shutdownTimeout = 30 * time.Second

// weightSet is the resolved weight trio plus its load options, either
// straight from configuration or resolved through a registry preset.
type weightSet struct {
	textEncoder string
	autoencoder string
	denoiser    string
	quant       string
}

// resolveWeights turns the configuration into concrete weight paths.
// With -preset the registry supplies the trio and its checksums are
// verified; otherwise the three explicit paths must all be configured.
// An explicitly set -quant or WANVIDGEN_QUANT overrides the preset's
// quantization.
func resolveWeights(opts *cliOptions, cfg *AppConfig) (weightSet, error) {
	if opts.preset != "" {
		if cfg.RegistryPath == "" {
			return weightSet{}, fmt.Errorf(
				"-preset %q needs a catalog: set WANVIDGEN_REGISTRY to a registry file", opts.preset)
		}
		reg, err := registry.Load(cfg.RegistryPath)
		if err != nil {
			return weightSet{}, err
		}
		p, err := reg.Resolve(opts.preset)
		if err != nil {
			return weightSet{}, err
		}
		if err := reg.Verify(opts.preset); err != nil {
			return weightSet{}, err
		}
		ws := weightSet{
			textEncoder: p.TextEncoder,
			autoencoder: p.Autoencoder,
			denoiser:    p.Denoiser,
			quant:       p.Quantization,
		}
		if cfg.Quantization != "" {
			ws.quant = cfg.Quantization
		}
		return ws, nil
	}

	ws := weightSet{
		textEncoder: cfg.TextEncoderPath,
		autoencoder: cfg.AutoencoderPath,
		denoiser:    cfg.DenoiserPath,
		quant:       cfg.Quantization,
	}
	if ws.textEncoder == "" || ws.autoencoder == "" || ws.denoiser == "" {
		return weightSet{}, errors.New(
			"model weights not configured: set WANVIDGEN_TEXT_ENCODER, WANVIDGEN_AUTOENCODER and WANVIDGEN_DENOISER, or use -preset")
	}
	return ws, nil
}

// buildParams assembles the generation request starting from the
// runtime defaults, so the console summary, the progress total and the
// history record all show the values the run actually uses. Set flags
// and env values overlay the defaults as given; out-of-range ones are
// rejected by Generate rather than repaired here. For the seed an
// explicit -seed beats WANVIDGEN_SEED, and negative means random.
func buildParams(opts *cliOptions, cfg *AppConfig) vidruntime.GenerateParams {
	p := vidruntime.DefaultParams()
	p.Prompt = opts.generate
	p.NegativePrompt = opts.negative
	if cfg.Width != 0 {
		p.Width = cfg.Width
	}
	if cfg.Height != 0 {
		p.Height = cfg.Height
	}
	if cfg.FPS != 0 {
		p.FPS = cfg.FPS
	}
	if opts.steps != 0 {
		p.Steps = opts.steps
	}
	if opts.sampler != "" {
		p.Sampler = opts.sampler
	}
	if opts.scheduler != "" {
		p.Scheduler = opts.scheduler
	}
	if opts.guidance != 0 {
		p.GuidanceScale = opts.guidance
	}
	if opts.clipSeconds != 0 {
		p.ClipSeconds = opts.clipSeconds
	}
	p.Seed = cfg.Seed
	if opts.seed >= 0 {
		p.Seed = opts.seed
	}
	return p
}

// runGenerate executes one full generation attempt: resolve weights and
// device, load models, denoise, save frames, record the outcome. The
// first interrupt cancels between denoising steps; a second forces
// exit. Returns the process exit code.
func runGenerate(opts *cliOptions, cfg *AppConfig, log *logging.Logger, stdout, stderr io.Writer) int {
	params := buildParams(opts, cfg)

	manager := shutdown.NewManager(log.Zap().Named("shutdown"), shutdown.WithTimeout(shutdownTimeout))
	manager.Register("logs", 5, shutdown.SyncLogger(log.Zap()))
	manager.Register("runs", 45, shutdown.CleanupIncompleteRuns(log.Zap().Named("cleanup"), cfg.OutputDir))
	manager.Start()

	// The store opens before any failable setup so that every attempt
	// leaves a row behind, even one that dies resolving weights or
	// constructing the pipeline. Generation still works without
	// history; note it and move on.
	store, err := history.Open(cfg.HistoryPath(), log.Zap().Named("history"))
	if err != nil {
		log.Warn("history store unavailable", zap.Error(err), zap.String("path", cfg.HistoryPath()))
		store = nil
	} else {
		manager.Register("history", 30, func(ctx context.Context) error {
			return store.Close()
		})
	}

	start := time.Now()
	fail := func(failErr error) int {
		recordAttempt(store, log, params, nil, "", time.Since(start), failErr)
		failLine(stderr, "Generation failed: %s", userMessage(failErr))
		if err := manager.Shutdown(); err != nil {
			log.Warn("shutdown reported errors", zap.Error(err))
		}
		return core.ExitCodeError
	}

	weights, err := resolveWeights(opts, cfg)
	if err != nil {
		return fail(err)
	}

	prober := gpu.New(gpu.Config{}, log.Zap().Named("gpu"))
	device, err := prober.Resolve(cfg.Device)
	if err != nil {
		return fail(err)
	}

	writer, err := output.NewWriter(output.WriterConfig{
		Dir:        cfg.OutputDir,
		Format:     cfg.FramesFormat,
		FFmpegPath: cfg.FFmpegPath,
		Logger:     log.Zap().Named("output"),
	})
	if err != nil {
		return fail(err)
	}

	pipe, err := vidruntime.NewPipeline(vidruntime.PipelineConfig{
		TextEncoderPath: weights.textEncoder,
		AutoencoderPath: weights.autoencoder,
		DenoiserPath:    weights.denoiser,
		Device:          device,
		Quantization:    weights.quant,
		Backend:         backend.NewSim(),
		Prober:          prober,
		MinFreeMemoryMB: cfg.MinFreeMemoryMB,
		Logger:          log.Zap().Named("pipeline"),
	})
	if err != nil {
		return fail(err)
	}
	manager.Register("pipeline", 20, func(ctx context.Context) error {
		pipe.Unload()
		return nil
	})

	printGenerateHeader(stdout, params, device, weights.quant, cfg)

	runID := fmt.Sprintf("gen_%d", time.Now().Unix())
	var (
		res      *vidruntime.Result
		savedDir string
	)

	attempt := func(ctx context.Context) error {
		fmt.Fprintln(stdout, "Loading models...")
		if err := pipe.Load(); err != nil {
			return err
		}
		okLine(stdout, "Models loaded on %s", device)

		fmt.Fprintln(stdout, "Generating...")
		progress := core.NewProgressTracker(params.Steps)
		onStep := func(step, total int) {
			progress.SetCompleted(step)
			renderProgress(stdout, progress.Progress())
		}

		var genErr error
		res, genErr = pipe.Generate(ctx, params, vidruntime.WithStepFunc(onStep))
		fmt.Fprintln(stdout)
		if genErr != nil {
			return genErr
		}

		// The save itself is not cancellable: once frames exist the
		// manifest-last convention makes a finished save durable and an
		// interrupted one removable by the run cleanup handler.
		savedDir, genErr = writer.Save(context.Background(), res, runID)
		return genErr
	}

	err = manager.Track(manager.Context(), "generate", attempt)
	elapsed := time.Since(start)

	recordAttempt(store, log, params, res, savedDir, elapsed, err)

	exitCode := core.ExitCodeSuccess
	if err != nil {
		failLine(stderr, "Generation failed: %s", userMessage(err))
		exitCode = core.ExitCodeError
	} else {
		okLine(stdout, "Saved to %s", savedDir)
		okLine(stdout, "Completed in %.2fs (%d frames)", elapsed.Seconds(), res.FrameCount())
	}

	if err := manager.Shutdown(); err != nil {
		log.Warn("shutdown reported errors", zap.Error(err))
	}
	if code := manager.ExitCode(); code != core.ExitCodeSuccess {
		return code
	}
	return exitCode
}

// recordAttempt appends one history row for the attempt, completed or
// failed. A nil store (history unavailable) records nothing.
func recordAttempt(store *history.Store, log *logging.Logger, params vidruntime.GenerateParams,
	res *vidruntime.Result, savedDir string, elapsed time.Duration, attemptErr error) {
	if store == nil {
		return
	}

	rec := history.GenerationRecord{
		Prompt:         params.Prompt,
		NegativePrompt: params.NegativePrompt,
		Width:          params.Width,
		Height:         params.Height,
		Steps:          params.Steps,
		FPS:            params.FPS,
		Seed:           params.Seed,
		Sampler:        params.Sampler,
		Scheduler:      params.Scheduler,
		GuidanceScale:  params.GuidanceScale,
		DurationMS:     elapsed.Milliseconds(),
		Status:         history.StatusCompleted,
	}
	if attemptErr != nil {
		rec.Status = history.StatusFailed
		rec.ErrorMessage = userMessage(attemptErr)
	} else {
		rec.FrameCount = res.FrameCount()
		rec.OutputDir = savedDir
		rec.Seed = resolvedSeed(res, params.Seed)
	}

	if _, err := store.Record(context.Background(), rec); err != nil {
		log.Warn("failed to record generation", zap.Error(err))
	}
}

// resolvedSeed reads the seed the run actually used from the result
// metadata, falling back to the requested one.
func resolvedSeed(res *vidruntime.Result, fallback int64) int64 {
	if res == nil {
		return fallback
	}
	if s, ok := res.Metadata["seed"].(int64); ok {
		return s
	}
	return fallback
}

// printGenerateHeader shows the effective run parameters before any
// heavy work starts, so an interrupted run still leaves a record of
// what was asked for on screen.
func printGenerateHeader(w io.Writer, p vidruntime.GenerateParams, device, quant string, cfg *AppConfig) {
	fmt.Fprintln(w)
	color.New(color.FgCyan, color.Bold).Fprintf(w, "━━━ Video Generation ━━━\n")
	fmt.Fprintln(w)
	fmt.Fprintf(w, "  Prompt:     %s\n", p.Prompt)
	if p.NegativePrompt != "" {
		fmt.Fprintf(w, "  Negative:   %s\n", p.NegativePrompt)
	}
	fmt.Fprintf(w, "  Device:     %s\n", device)
	if quant != "" {
		fmt.Fprintf(w, "  Quant:      %s\n", quant)
	}
	fmt.Fprintf(w, "  Resolution: %dx%d\n", p.Width, p.Height)
	fmt.Fprintf(w, "  Clip:       %ds at %d fps (%d frames)\n", p.ClipSeconds, p.FPS, p.NumFrames())
	fmt.Fprintf(w, "  Steps:      %d (%s / %s, guidance %.1f)\n", p.Steps, p.Sampler, p.Scheduler, p.GuidanceScale)
	fmt.Fprintf(w, "  Seed:       %s\n", seedLabel(p.Seed))
	fmt.Fprintf(w, "  Output:     %s (%s)\n", cfg.OutputDir, cfg.FramesFormat)
	fmt.Fprintln(w)
}

// renderProgress redraws the single in-place progress line.
func renderProgress(w io.Writer, info core.ProgressInfo) {
	fmt.Fprintf(w, "\r  step %d/%d (%.0f%%)", info.Completed, info.Total, info.Percent)
	if info.StepsPerSec > 0 {
		fmt.Fprintf(w, " %.1f steps/s", info.StepsPerSec)
	}
	if info.ETA > 0 {
		fmt.Fprintf(w, " eta %s", info.ETA.Round(time.Second))
	}
}

func seedLabel(seed int64) string {
	if seed < 0 {
		return "random"
	}
	return strconv.FormatInt(seed, 10)
}

// userMessage prefers the curated user-facing text carried by runtime
// errors and falls back to the technical error string.
func userMessage(err error) string {
	var de *vidruntime.Error
	if errors.As(err, &de) {
		return de.UserMessage()
	}
	return err.Error()
}

func okLine(w io.Writer, format string, args ...any) {
	color.New(color.FgGreen).Fprintf(w, "  ✓ "+format+"\n", args...)
}

func failLine(w io.Writer, format string, args ...any) {
	color.New(color.FgRed).Fprintf(w, "  ✗ "+format+"\n", args...)
}
