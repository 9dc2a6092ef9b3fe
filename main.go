// Command wanvidgen generates short video clips from text prompts on
// local hardware. One binary, three modes: -generate runs a clip
// through the model pipeline and saves the frames, -check-system
// verifies the local setup, -history lists recent runs.
package main

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/deanable/wanvidgen/core"
	"github.com/deanable/wanvidgen/logging"
)

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

// cliOptions is the parsed command line. Exactly one mode may be
// selected; the remaining fields tune the selected mode and override
// the environment configuration where set.
type cliOptions struct {
	generate    string
	checkSystem bool
	history     bool

	envFile  string
	logLevel string
	debug    bool

	// Generation parameters. Zero values defer to env configuration
	// and then to the runtime defaults.
	negative     string
	width        int
	height       int
	steps        int
	fps          int
	seed         int64
	sampler      string
	scheduler    string
	guidance     float64
	clipSeconds  int
	framesFormat string
	outputDir    string
	preset       string
	device       string
	quant        string

	historyLimit int
}

// modeCount returns how many of the three mode flags were selected.
func (o *cliOptions) modeCount() int {
	n := 0
	if o.generate != "" {
		n++
	}
	if o.checkSystem {
		n++
	}
	if o.history {
		n++
	}
	return n
}

const usageText = `wanvidgen generates short video clips from text prompts.

Usage:
  wanvidgen -generate "<prompt>" [flags]
  wanvidgen -check-system
  wanvidgen -history [-limit N]

Flags:
`

// parseFlags parses args into cliOptions. Errors and usage output go to
// errOut. The returned FlagSet carries the Usage function for the
// no-mode case.
func parseFlags(args []string, errOut io.Writer) (*cliOptions, *flag.FlagSet, error) {
	opts := &cliOptions{}
	fs := flag.NewFlagSet("wanvidgen", flag.ContinueOnError)
	fs.SetOutput(errOut)
	fs.Usage = func() {
		fmt.Fprint(fs.Output(), usageText)
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.generate, "generate", "", "generate a clip from the given text prompt")
	fs.BoolVar(&opts.checkSystem, "check-system", false, "verify the local setup and exit")
	fs.BoolVar(&opts.history, "history", false, "list recent generation runs and exit")

	fs.StringVar(&opts.envFile, "env-file", "", "load environment variables from this file instead of ./.env")
	fs.StringVar(&opts.logLevel, "log-level", "", "log level: debug, info, warn or error (default info)")
	fs.BoolVar(&opts.debug, "debug", false, "shorthand for -log-level debug")

	fs.StringVar(&opts.negative, "negative", "", "negative prompt describing content to avoid")
	fs.IntVar(&opts.width, "width", 0, "frame width in pixels (default 512)")
	fs.IntVar(&opts.height, "height", 0, "frame height in pixels (default 512)")
	fs.IntVar(&opts.steps, "steps", 0, "denoising steps (default 20)")
	fs.IntVar(&opts.fps, "fps", 0, "output frame rate (default 8)")
	fs.Int64Var(&opts.seed, "seed", -1, "generation seed, negative picks a random one")
	fs.StringVar(&opts.sampler, "sampler", "", "sampler identifier (default euler_ancestral)")
	fs.StringVar(&opts.scheduler, "scheduler", "", "scheduler identifier (default simple)")
	fs.Float64Var(&opts.guidance, "guidance", 0, "classifier-free guidance scale (default 7.5)")
	fs.IntVar(&opts.clipSeconds, "clip-seconds", 0, "clip length in seconds (default 2)")
	fs.StringVar(&opts.framesFormat, "frames-format", "", "output format: png, gif, mp4, webm or webp (default png)")
	fs.StringVar(&opts.outputDir, "output", "", "directory for generated runs (default ./outputs)")
	fs.StringVar(&opts.preset, "preset", "", "model preset name from the weight registry")
	fs.StringVar(&opts.device, "device", "", "compute device: auto, cpu, cuda or cuda:<n> (default auto)")
	fs.StringVar(&opts.quant, "quant", "", "weight quantization tag, e.g. int8")

	fs.IntVar(&opts.historyLimit, "limit", 10, "number of history rows to list")

	if err := fs.Parse(args); err != nil {
		return nil, fs, err
	}
	return opts, fs, nil
}

// run is the real entry point, split from main so tests can drive the
// CLI without spawning a process. It returns the process exit code.
func run(args []string, stdout, stderr io.Writer) int {
	opts, fs, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return core.ExitCodeSuccess
		}
		return core.ExitCodeError
	}

	if opts.modeCount() > 1 {
		fmt.Fprintln(stderr, "choose exactly one mode: -generate, -check-system or -history")
		return core.ExitCodeError
	}
	if opts.modeCount() == 0 {
		fs.Usage()
		return core.ExitCodeSuccess
	}

	if opts.envFile != "" {
		if err := godotenv.Load(opts.envFile); err != nil {
			fmt.Fprintf(stderr, "cannot load env file %s: %v\n", opts.envFile, err)
			return core.ExitCodeError
		}
	} else {
		// A missing ./.env is fine; flags and the real environment
		// still apply.
		_ = godotenv.Load()
	}

	cfg := loadAppConfig()
	cfg.applyFlags(opts)

	log, err := logging.New(cfg.LoggingConfig())
	if err != nil {
		fmt.Fprintf(stderr, "failed to initialize logging: %v\n", err)
		return core.ExitCodeError
	}
	defer func() {
		_ = log.Sync()
	}()
	log.Debug("starting",
		zap.String("version", core.VersionInfo()),
		zap.String("device", cfg.Device))

	switch {
	case opts.checkSystem:
		return runCheckSystem(opts, cfg, log, stdout)
	case opts.history:
		return runHistory(cfg, log, stdout, stderr, opts.historyLimit)
	default:
		return runGenerate(opts, cfg, log, stdout, stderr)
	}
}
