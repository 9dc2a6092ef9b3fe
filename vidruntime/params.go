package vidruntime

import (
	"fmt"
	"strings"

	"github.com/deanable/wanvidgen/vidruntime/backend"
)

// Default generation settings, used by DefaultParams. A zero Seed is a
// real seed; negative seeds request a random one.
const (
	DefaultSampler       = "euler_ancestral"
	DefaultScheduler     = "simple"
	DefaultGuidanceScale = 7.5
	DefaultSteps         = 20
	DefaultFPS           = 8
	DefaultWidth         = 512
	DefaultHeight        = 512
	DefaultClipSeconds   = 2
)

// GenerateParams holds the parameters for one video generation attempt.
// Generate validates the request exactly as given and rejects zero
// dimensions, steps or fps rather than repairing them; start from
// DefaultParams and override what the request needs.
type GenerateParams struct {
	// Prompt is the text description of the clip. Required.
	Prompt string

	// NegativePrompt describes content to steer away from. Optional.
	NegativePrompt string

	// Width and Height are the frame dimensions in pixels. Both must be
	// positive multiples of backend.LatentDownsample.
	Width  int
	Height int

	// Steps is the number of denoising iterations. Minimum 1.
	Steps int

	// Sampler and Scheduler select the denoising strategy. Passed to the
	// backend as opaque identifiers.
	Sampler   string
	Scheduler string

	// Seed drives the initial latent. The same seed with the same
	// dimensions produces the same starting noise. Negative requests a
	// random seed, resolved once and recorded in the result metadata.
	Seed int64

	// FPS is the playback rate of the output. Minimum 1.
	FPS int

	// GuidanceScale is the conditioning strength handed to the denoiser.
	GuidanceScale float64

	// ClipSeconds is the clip length in seconds. The frame count is
	// FPS * ClipSeconds, never below 1.
	ClipSeconds int
}

// DefaultParams returns a request pre-filled with the default
// generation settings. The caller should at minimum set the Prompt
// field.
//
// Defaults:
//   - Width, Height: 512x512
//   - Steps: 20
//   - Sampler: euler_ancestral, Scheduler: simple
//   - GuidanceScale: 7.5
//   - FPS: 8, ClipSeconds: 2
//   - Seed: -1 (random)
func DefaultParams() GenerateParams {
	return GenerateParams{
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		Steps:         DefaultSteps,
		Sampler:       DefaultSampler,
		Scheduler:     DefaultScheduler,
		Seed:          -1,
		FPS:           DefaultFPS,
		GuidanceScale: DefaultGuidanceScale,
		ClipSeconds:   DefaultClipSeconds,
	}
}

// Validate checks the request and returns an ErrGeneration error naming
// the first violated field. Frame dimensions must divide evenly into the
// latent grid, so they are checked against backend.LatentDownsample.
func (p GenerateParams) Validate() error {
	if strings.TrimSpace(p.Prompt) == "" {
		return NewGenerationError("prompt is empty",
			"Please provide a prompt describing the video.", nil)
	}
	if p.Height <= 0 {
		return NewGenerationError(
			fmt.Sprintf("height %d must be positive", p.Height),
			"Height must be a positive number of pixels.", nil)
	}
	if p.Width <= 0 {
		return NewGenerationError(
			fmt.Sprintf("width %d must be positive", p.Width),
			"Width must be a positive number of pixels.", nil)
	}
	if p.Height%backend.LatentDownsample != 0 {
		return NewGenerationError(
			fmt.Sprintf("height %d must be a multiple of %d", p.Height, backend.LatentDownsample),
			fmt.Sprintf("Height must be a multiple of %d pixels.", backend.LatentDownsample), nil)
	}
	if p.Width%backend.LatentDownsample != 0 {
		return NewGenerationError(
			fmt.Sprintf("width %d must be a multiple of %d", p.Width, backend.LatentDownsample),
			fmt.Sprintf("Width must be a multiple of %d pixels.", backend.LatentDownsample), nil)
	}
	if p.Steps < 1 {
		return NewGenerationError(
			fmt.Sprintf("steps %d must be at least 1", p.Steps),
			"Step count must be at least 1.", nil)
	}
	if p.FPS < 1 {
		return NewGenerationError(
			fmt.Sprintf("fps %d must be at least 1", p.FPS),
			"Frame rate must be at least 1.", nil)
	}
	if p.ClipSeconds < 1 {
		return NewGenerationError(
			fmt.Sprintf("clip seconds %d must be at least 1", p.ClipSeconds),
			"Clip length must be at least 1 second.", nil)
	}
	return nil
}

// NumFrames is the frame count implied by the request, never below 1.
func (p GenerateParams) NumFrames() int {
	n := p.FPS * p.ClipSeconds
	if n < 1 {
		return 1
	}
	return n
}
