// Package backend defines the call contract between the generation
// pipeline and the model implementations that do the actual math.
//
// The pipeline only needs three capabilities, each behind its own
// interface: text encoding (TextEncoder), latent encode/decode
// (Autoencoder), and one diffusion step (Denoiser). A Backend constructs
// loaded instances of the three from weight files; the numerical content
// behind them is out of scope here and entirely the implementation's
// business.
//
// # Shape contract
//
// All implementations must honor the fixed shapes:
//
//   - EncodeText: prompt -> (1, EmbedDim)
//   - EncodeImage: (ImageChannels, H, W) -> (1, LatentChannels, H/LatentDownsample, W/LatentDownsample)
//   - DecodeLatent: the inverse, one frame per requested index, values 0-255
//   - Denoise: latent in, latent of identical shape out
//
// # Sim backend
//
// Sim is a deterministic CPU implementation used for tests and dry runs:
// same inputs always produce the same bytes. It performs no real
// inference; a real engine plugs in behind the same interfaces.
//
//	be := backend.NewSim()
//	enc, err := be.LoadTextEncoder("models/clip.safetensors", backend.LoadOptions{Device: "cpu"})
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer enc.Close()
//
//	emb, err := enc.EncodeText("a quiet harbor at dawn")
//
// # Error Handling
//
// The package defines sentinel errors usable with errors.Is():
//
//   - ErrWeightsNotFound: weight file does not exist
//   - ErrLoadFailed: weight file exists but cannot be loaded
//   - ErrClosed: operation on a closed handle
//   - ErrShape: input tensor has an unexpected shape
package backend
