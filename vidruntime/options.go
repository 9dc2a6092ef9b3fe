package vidruntime

import "github.com/deanable/wanvidgen/vidruntime/backend"

// StepFunc observes denoising progress. It receives the 1-based step
// index and the total step count after each iteration completes.
type StepFunc func(step, total int)

// FrameFunc observes decoded frames. It receives the 0-based frame
// index, the total frame count and the frame tensor.
type FrameFunc func(index, total int, frame *backend.Tensor)

// GenerateOption customizes a single Generate call.
type GenerateOption func(*generateOptions)

type generateOptions struct {
	onStep  StepFunc
	onFrame FrameFunc
}

// WithStepFunc registers a progress callback invoked after every
// denoising step. Callbacks observe the run; they never change the
// produced frames.
func WithStepFunc(fn StepFunc) GenerateOption {
	return func(o *generateOptions) { o.onStep = fn }
}

// WithFrameFunc registers a callback invoked for each decoded frame
// before the result is assembled.
func WithFrameFunc(fn FrameFunc) GenerateOption {
	return func(o *generateOptions) { o.onFrame = fn }
}
