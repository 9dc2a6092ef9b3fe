package backend

import (
	"fmt"
	"hash/fnv"
	"math"
	"os"

	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"
)

// Sim is a deterministic CPU simulation backend. It validates weight
// paths and honors the full shape contract but computes stand-in values:
// embeddings are drawn from a prompt-seeded normal distribution, the
// denoise step is a fixed arithmetic update, and decoding upsamples the
// latent into displayable frames. Same inputs, same bytes, every run.
type Sim struct{}

// NewSim returns the simulation backend.
func NewSim() *Sim { return &Sim{} }

// Name implements Backend.
func (s *Sim) Name() string { return "sim" }

// LoadTextEncoder implements Backend.
func (s *Sim) LoadTextEncoder(path string, opts LoadOptions) (TextEncoder, error) {
	if err := statWeights(path); err != nil {
		return nil, err
	}
	return &simTextEncoder{path: path}, nil
}

// LoadAutoencoder implements Backend.
func (s *Sim) LoadAutoencoder(path string, opts LoadOptions) (Autoencoder, error) {
	if err := statWeights(path); err != nil {
		return nil, err
	}
	return &simAutoencoder{path: path}, nil
}

// LoadDenoiser implements Backend.
func (s *Sim) LoadDenoiser(path string, opts LoadOptions) (Denoiser, error) {
	if err := statWeights(path); err != nil {
		return nil, err
	}
	return &simDenoiser{path: path}, nil
}

// statWeights checks that a weight file exists and is not a directory.
func statWeights(path string) error {
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%w: %s", ErrWeightsNotFound, path)
	}
	if err != nil {
		return fmt.Errorf("%w: unable to access %s: %v", ErrLoadFailed, path, err)
	}
	if info.IsDir() {
		return fmt.Errorf("%w: %s is a directory", ErrLoadFailed, path)
	}
	return nil
}

type simTextEncoder struct {
	path   string
	closed bool
}

// EncodeText draws a (1, EmbedDim) embedding from a standard normal
// seeded by an FNV hash of the prompt, so identical prompts always
// produce identical embeddings.
func (e *simTextEncoder) EncodeText(prompt string) (*Tensor, error) {
	if e.closed {
		return nil, ErrClosed
	}

	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: xrand.NewSource(hashSeed(prompt))}
	out := NewTensor(1, EmbedDim)
	for i := range out.Data {
		out.Data[i] = float32(dist.Rand())
	}
	return out, nil
}

func (e *simTextEncoder) Close() error {
	e.closed = true
	return nil
}

func hashSeed(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}

type simAutoencoder struct {
	path   string
	closed bool
}

// EncodeImage mean-pools each LatentDownsample block of the image into a
// batch-1 latent (1, LatentChannels, H/8, W/8), rescaling 0-255 pixels
// into roughly unit range.
func (a *simAutoencoder) EncodeImage(img *Tensor) (*Tensor, error) {
	if a.closed {
		return nil, ErrClosed
	}
	if img.Rank() != 3 || img.Dim(0) != ImageChannels {
		return nil, fmt.Errorf("%w: image %v, want (%d, H, W)", ErrShape, img.Shape(), ImageChannels)
	}
	height, width := img.Dim(1), img.Dim(2)
	if height%LatentDownsample != 0 || width%LatentDownsample != 0 {
		return nil, fmt.Errorf("%w: image %dx%d not divisible by %d", ErrShape, width, height, LatentDownsample)
	}

	lh, lw := height/LatentDownsample, width/LatentDownsample
	latent := NewTensor(1, LatentChannels, lh, lw)
	block := float32(LatentDownsample * LatentDownsample)
	for c := 0; c < LatentChannels; c++ {
		src := c % ImageChannels
		for y := 0; y < lh; y++ {
			for x := 0; x < lw; x++ {
				var sum float32
				for dy := 0; dy < LatentDownsample; dy++ {
					for dx := 0; dx < LatentDownsample; dx++ {
						sum += img.At(src, y*LatentDownsample+dy, x*LatentDownsample+dx)
					}
				}
				latent.Set(sum/block/127.5-1, 0, c, y, x)
			}
		}
	}
	return latent, nil
}

// DecodeLatent upsamples a batch-1 latent back into frames of shape
// (ImageChannels, H, W) clamped to 0-255. Frame index shifts the squash
// phase so successive frames differ deterministically.
func (a *simAutoencoder) DecodeLatent(latent *Tensor, frames int) ([]*Tensor, error) {
	if a.closed {
		return nil, ErrClosed
	}
	if err := checkLatent(latent); err != nil {
		return nil, err
	}
	if frames < 1 {
		return nil, fmt.Errorf("%w: frame count %d", ErrShape, frames)
	}

	lh, lw := latent.Dim(2), latent.Dim(3)
	height, width := lh*LatentDownsample, lw*LatentDownsample

	out := make([]*Tensor, 0, frames)
	for f := 0; f < frames; f++ {
		phase := float64(f) * 0.15
		img := NewTensor(ImageChannels, height, width)
		for c := 0; c < ImageChannels; c++ {
			for y := 0; y < height; y++ {
				for x := 0; x < width; x++ {
					v := latent.At(0, c%LatentChannels, y/LatentDownsample, x/LatentDownsample)
					px := 127.5 + 127.5*math.Tanh(float64(v)+phase)
					img.Set(clamp255(px), c, y, x)
				}
			}
		}
		out = append(out, img)
	}
	return out, nil
}

func (a *simAutoencoder) Close() error {
	a.closed = true
	return nil
}

type simDenoiser struct {
	path   string
	closed bool
}

// Denoise applies a fixed update rule: keep most of the latent and pull
// it toward the conditioning signal, with pull strength set by the
// guidance scale and the schedule position. Early (high-timestep) steps
// move more than late ones, loosely like a real sampler.
func (d *simDenoiser) Denoise(latent *Tensor, timestep float64, cond *Tensor, guidance float64) (*Tensor, error) {
	if d.closed {
		return nil, ErrClosed
	}
	if err := checkLatent(latent); err != nil {
		return nil, err
	}
	if cond == nil || cond.Len() == 0 {
		return nil, fmt.Errorf("%w: empty conditioning embedding", ErrShape)
	}
	if timestep < 0 || timestep > MaxTimestep {
		return nil, fmt.Errorf("%w: timestep %v outside [0, %d]", ErrShape, timestep, MaxTimestep)
	}

	schedule := timestep / MaxTimestep
	pull := float32(0.1 * (guidance / 10) * (0.5 + 0.5*schedule))
	keep := 1 - pull

	n := cond.Len()
	out := NewTensor(latent.Shape()...)
	for i := range latent.Data {
		out.Data[i] = keep*latent.Data[i] + pull*cond.Data[i%n]
	}
	return out, nil
}

func (d *simDenoiser) Close() error {
	d.closed = true
	return nil
}

func checkLatent(latent *Tensor) error {
	if latent == nil {
		return fmt.Errorf("%w: nil latent", ErrShape)
	}
	if latent.Rank() != 4 || latent.Dim(0) != 1 || latent.Dim(1) != LatentChannels {
		return fmt.Errorf("%w: latent %v, want (1, %d, h, w)", ErrShape, latent.Shape(), LatentChannels)
	}
	return nil
}

func clamp255(v float64) float32 {
	if v < 0 {
		return 0
	}
	if v > 255 {
		return 255
	}
	return float32(v)
}
