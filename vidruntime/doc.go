// Package vidruntime coordinates loading, validating and releasing the
// three models that turn a text prompt into a sequence of video frames:
// a text encoder, an autoencoder and a denoiser.
//
// The package owns the model lifecycle (idempotent Load/Unload with full
// rollback), the pre-flight resource checks against device memory, the
// request/outcome types, and the generation algorithm itself: encode the
// prompt, run the seeded denoising loop, decode the final latent into
// frames. The model math lives behind the interfaces in the backend
// subpackage; backend.Sim is a deterministic stand-in for tests and dry
// runs.
//
// # Quick Start
//
//	pipe, err := vidruntime.NewPipeline(vidruntime.PipelineConfig{
//	    TextEncoderPath: "models/clip.safetensors",
//	    AutoencoderPath: "models/vae.safetensors",
//	    DenoiserPath:    "models/unet.safetensors",
//	    Device:          "cpu",
//	    Backend:         backend.NewSim(),
//	})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	params := vidruntime.DefaultParams()
//	params.Prompt = "a lighthouse in a storm"
//	params.Seed = 42
//
//	err = pipe.WithLoaded(func() error {
//	    res, err := pipe.Generate(ctx, params)
//	    if err != nil {
//	        return err
//	    }
//	    // res.Frames are (3, H, W) tensors in 0-255, ready for output.
//	    return nil
//	})
//
// # Error Handling
//
// Failures carry one of five kinds, each matchable with errors.Is():
//
//   - ErrConfig: weight path missing or invalid at construction
//   - ErrModelLoad: a model failed to load, or an operation ran unloaded
//   - ErrGPUMemory: the pre-flight capacity check failed
//   - ErrPipeline: construction/load failure or generate before load
//   - ErrGeneration: invalid request, or an unclassified failure mid-run
//
// Every error carries a technical message for logs and a user-facing
// message safe to display verbatim; see Error.UserMessage.
//
// # Thread Safety
//
// A Pipeline holds exclusive device residency for its models and is not
// safe for concurrent use. Callers serialize Load, Unload, Generate and
// GenerateAsync against a single Pipeline; one generation must complete
// before the next begins.
package vidruntime
