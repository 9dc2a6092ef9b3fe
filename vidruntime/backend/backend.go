package backend

// Fixed shape contract shared by every implementation.
const (
	// EmbedDim is the width of a text embedding.
	EmbedDim = 768

	// LatentChannels is the channel count of an autoencoder latent.
	LatentChannels = 4

	// LatentDownsample is the spatial reduction factor between image and
	// latent space. Requested dimensions are divided by it on encode and
	// multiplied back on decode.
	LatentDownsample = 8

	// ImageChannels is the channel count of a decoded frame (RGB).
	ImageChannels = 3

	// MaxTimestep is the top of the denoising schedule.
	MaxTimestep = 1000
)

// LoadOptions carries the placement hints passed through to a load.
// Both values are opaque here: the wrapper validated device membership
// and the implementation decides what a quantization tag means.
type LoadOptions struct {
	// Device is the resolved target device identifier ("cpu", "cuda", ...).
	Device string

	// Quantization is the reduced-precision tag, or "" for none.
	Quantization string
}

// Backend constructs loaded model instances from weight files. Each Load
// call acquires device residency for one model; the returned handle's
// Close releases it.
type Backend interface {
	LoadTextEncoder(path string, opts LoadOptions) (TextEncoder, error)
	LoadAutoencoder(path string, opts LoadOptions) (Autoencoder, error)
	LoadDenoiser(path string, opts LoadOptions) (Denoiser, error)

	// Name identifies the implementation ("sim", "wan-cpp", ...) for
	// logs and the check-system report.
	Name() string
}

// TextEncoder turns a prompt into a conditioning embedding of shape
// (1, EmbedDim).
type TextEncoder interface {
	EncodeText(prompt string) (*Tensor, error)
	Close() error
}

// Autoencoder maps between image space and latent space.
//
// EncodeImage takes (ImageChannels, H, W) and returns a batch-1 latent
// (1, LatentChannels, H/LatentDownsample, W/LatentDownsample); H and W
// must be multiples of LatentDownsample. DecodeLatent inverts such a
// latent into frames of shape (ImageChannels, H, W) with values in
// 0-255; successive frames are deterministic variations indexed
// 0..frames-1.
type Autoencoder interface {
	EncodeImage(img *Tensor) (*Tensor, error)
	DecodeLatent(latent *Tensor, frames int) ([]*Tensor, error)
	Close() error
}

// Denoiser performs one diffusion step: given the current latent, the
// schedule timestep, the conditioning embedding and the guidance scale,
// it returns a latent of identical shape.
type Denoiser interface {
	Denoise(latent *Tensor, timestep float64, cond *Tensor, guidance float64) (*Tensor, error)
	Close() error
}
