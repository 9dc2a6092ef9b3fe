package vidruntime

import "github.com/deanable/wanvidgen/vidruntime/backend"

// Result is the outcome of one successful generation. It is only ever
// fully constructed; a failed run returns an error, never a partial
// Result.
type Result struct {
	// Frames are the decoded (ImageChannels, H, W) pixel tensors with
	// values in 0-255, in playback order.
	Frames []*backend.Tensor

	// Metadata is the provenance record written alongside the frames:
	// height, width, fps, seed, sampler, scheduler,
	// num_inference_steps, guidance_scale, num_frames, and the
	// memory_before/memory_after snapshots.
	Metadata map[string]any

	requestFPS int
}

func newResult(frames []*backend.Tensor, metadata map[string]any, requestFPS int) *Result {
	return &Result{Frames: frames, Metadata: metadata, requestFPS: requestFPS}
}

// FrameCount returns the number of decoded frames.
func (r *Result) FrameCount() int { return len(r.Frames) }

// FPS returns the playback rate recorded in metadata, falling back to
// the request's rate when the entry is missing or malformed.
func (r *Result) FPS() int {
	if v, ok := r.Metadata["fps"]; ok {
		if n, ok := v.(int); ok && n > 0 {
			return n
		}
	}
	return r.requestFPS
}
