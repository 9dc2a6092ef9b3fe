package vidruntime

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deanable/wanvidgen/logging"
	"github.com/deanable/wanvidgen/vidruntime/backend"
)

// baseMemoryMB covers the resident weights plus allocator slack that
// every generation needs regardless of resolution.
const baseMemoryMB = 2048

// PipelineConfig configures NewPipeline.
type PipelineConfig struct {
	// Weight file paths for the three models. Each must name an existing
	// regular file.
	TextEncoderPath string
	AutoencoderPath string
	DenoiserPath    string

	// Device is the resolved device identifier, e.g. "cpu" or "cuda:0".
	// The pipeline trusts it; resolution happens in the gpu package.
	Device string

	// Quantization is an opaque tag passed to the backend, "" for none.
	Quantization string

	// Backend provides the model math. Required.
	Backend backend.Backend

	// Prober reads device memory for the capacity guard. nil treats
	// every device as unbounded.
	Prober MemoryProber

	// MinFreeMemoryMB is the headroom the guard keeps in reserve.
	// Zero selects DefaultMinFreeMemoryMB.
	MinFreeMemoryMB float64

	// Logger receives lifecycle and generation events. nil disables
	// logging.
	Logger *zap.Logger
}

// Pipeline owns the three managed models and the memory guard, and runs
// the text-to-video generation loop. It holds exclusive device residency
// for its models and is not safe for concurrent use; callers serialize
// Load, Unload and Generate, and let one generation finish before
// starting the next.
type Pipeline struct {
	textEncoder *TextEncoderModel
	autoencoder *AutoencoderModel
	denoiser    *DenoiserModel
	guard       *MemoryGuard
	log         *zap.Logger
}

// NewPipeline validates the configuration and constructs the three model
// wrappers. No weights are loaded. Constituent failures are returned as
// ErrPipeline wrapping the underlying ErrConfig, so callers can match
// either kind.
func NewPipeline(cfg PipelineConfig) (*Pipeline, error) {
	if cfg.Backend == nil {
		return nil, NewPipelineError("backend is required",
			"No inference backend configured.", nil)
	}

	opts := ModelOptions{Device: cfg.Device, Quantization: cfg.Quantization}

	enc, err := NewTextEncoderModel(cfg.Backend, cfg.TextEncoderPath, opts)
	if err != nil {
		return nil, wrapConstruction(RoleTextEncoder, err)
	}
	vae, err := NewAutoencoderModel(cfg.Backend, cfg.AutoencoderPath, opts)
	if err != nil {
		return nil, wrapConstruction(RoleAutoencoder, err)
	}
	den, err := NewDenoiserModel(cfg.Backend, cfg.DenoiserPath, opts)
	if err != nil {
		return nil, wrapConstruction(RoleDenoiser, err)
	}

	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}

	return &Pipeline{
		textEncoder: enc,
		autoencoder: vae,
		denoiser:    den,
		guard:       NewMemoryGuard(cfg.Device, cfg.MinFreeMemoryMB, cfg.Prober),
		log:         log,
	}, nil
}

func wrapConstruction(role Role, cause error) *Error {
	return NewPipelineError(
		fmt.Sprintf("failed to construct %s", role),
		"Failed to initialize the generation pipeline.",
		cause)
}

// models returns the wrappers in load order.
func (p *Pipeline) models() []Model {
	return []Model{p.textEncoder, p.autoencoder, p.denoiser}
}

// Guard exposes the pipeline's memory guard for status reporting.
func (p *Pipeline) Guard() *MemoryGuard { return p.guard }

// Load brings all three models onto the device: text encoder, then
// autoencoder, then denoiser. On any failure every model loaded so far
// is unloaded before the error returns, so the pipeline is never left
// partially loaded. Calling Load on a loaded pipeline is a no-op.
func (p *Pipeline) Load() error {
	models := p.models()
	for i, m := range models {
		if err := m.Load(); err != nil {
			for j := i - 1; j >= 0; j-- {
				models[j].Unload()
			}
			p.log.Error("model load failed, rolled back",
				zap.String("model", string(m.Role())),
				zap.Error(err))
			return NewPipelineError(
				fmt.Sprintf("failed to load %s", m.Role()),
				"Failed to load models. See the log for details.",
				err)
		}
		p.log.Info("model loaded",
			zap.String("model", string(m.Role())),
			zap.String("path", m.Path()))
	}
	return nil
}

// Unload releases all three models and asks the device allocator to
// drop its caches. Idempotent; never fails.
func (p *Pipeline) Unload() {
	for _, m := range p.models() {
		m.Unload()
	}
	p.guard.ReleaseCaches()
	p.log.Info("models unloaded")
}

// Loaded reports whether all three models are resident.
func (p *Pipeline) Loaded() bool {
	for _, m := range p.models() {
		if !m.Loaded() {
			return false
		}
	}
	return true
}

// WithLoaded loads the pipeline, runs fn, and unloads even when fn
// fails or panics.
func (p *Pipeline) WithLoaded(fn func() error) error {
	if err := p.Load(); err != nil {
		return err
	}
	defer p.Unload()
	return fn()
}

// Generate runs one text-to-video generation. The request is validated
// exactly as given (DefaultParams supplies a pre-filled starting point),
// the memory guard is consulted, the prompt is encoded, and the seeded
// latent is denoised for exactly params.Steps iterations before being
// decoded into frames. Cancellation via ctx is observed between
// denoising steps. Classified failures keep their kind; anything else
// is wrapped as ErrGeneration.
func (p *Pipeline) Generate(ctx context.Context, params GenerateParams, opts ...GenerateOption) (*Result, error) {
	if !p.Loaded() {
		return nil, NewPipelineError("models not loaded, call Load first",
			"Models are not loaded yet.", nil)
	}
	if ctx == nil {
		ctx = context.Background()
	}

	var o generateOptions
	for _, opt := range opts {
		opt(&o)
	}

	if err := params.Validate(); err != nil {
		return nil, err
	}

	if err := p.guard.RequireCapacity(estimateMemoryMB(params), "video generation"); err != nil {
		return nil, err
	}

	res, err := p.generate(ctx, params, &o)
	if err != nil {
		if isDomainError(err) {
			return nil, err
		}
		return nil, NewGenerationError("generation failed",
			"Video generation failed unexpectedly. Please try again.", err)
	}
	return res, nil
}

func (p *Pipeline) generate(ctx context.Context, params GenerateParams, o *generateOptions) (*Result, error) {
	start := time.Now()
	before := p.guard.Stats()

	seed := params.Seed
	if seed < 0 {
		seed = RandomSeed()
	}

	p.log.Info("generation started",
		append(logging.RequestFields(params.Prompt, params.Width, params.Height,
			params.Steps, params.FPS, seed),
			zap.String("sampler", params.Sampler),
			zap.String("scheduler", params.Scheduler))...)
	p.log.Debug("device memory before generation",
		logging.MemoryFields(p.guard.Device(), p.guard.FreeMemoryMB(), before.TotalMB)...)

	cond, err := p.textEncoder.EncodeText(params.Prompt)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.NegativePrompt) != "" {
		neg, err := p.textEncoder.EncodeText(params.NegativePrompt)
		if err != nil {
			return nil, err
		}
		p.log.Debug("negative prompt encoded", zap.Int("embed_len", neg.Len()))
	}

	latent := initLatent(seed, params.Height, params.Width)

	schedule := timesteps(params.Steps)
	for i, t := range schedule {
		select {
		case <-ctx.Done():
			return nil, NewGenerationError(
				fmt.Sprintf("generation cancelled at step %d/%d", i+1, len(schedule)),
				"Generation was cancelled.", ctx.Err())
		default:
		}
		latent, err = p.denoiser.Denoise(latent, t, cond, params.GuidanceScale)
		if err != nil {
			return nil, err
		}
		if o.onStep != nil {
			o.onStep(i+1, len(schedule))
		}
	}

	numFrames := params.NumFrames()
	frames, err := p.autoencoder.DecodeLatent(latent, numFrames)
	if err != nil {
		return nil, err
	}
	if o.onFrame != nil {
		for i, f := range frames {
			o.onFrame(i, len(frames), f)
		}
	}

	after := p.guard.Stats()

	metadata := map[string]any{
		"height":              params.Height,
		"width":               params.Width,
		"fps":                 params.FPS,
		"seed":                seed,
		"sampler":             params.Sampler,
		"scheduler":           params.Scheduler,
		"num_inference_steps": params.Steps,
		"guidance_scale":      params.GuidanceScale,
		"num_frames":          len(frames),
		"memory_before":       before,
		"memory_after":        after,
	}

	p.log.Info("generation complete",
		append(logging.TimingFields(start, time.Now(), len(frames)),
			zap.Int64("seed", seed))...)

	return newResult(frames, metadata, params.FPS), nil
}

// estimateMemoryMB sizes the working set for a request: the decoded
// frame buffers (float32 pixels) plus two frames' worth of latent and
// conditioning scratch, with a 1.5x factor for intermediate copies held
// during decode, on top of the resident base.
func estimateMemoryMB(p GenerateParams) float64 {
	frameBytes := float64(p.Width * p.Height * backend.ImageChannels * 4)
	working := frameBytes * float64(p.NumFrames()+2) * 1.5 / (1 << 20)
	return baseMemoryMB + working
}
