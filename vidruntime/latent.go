package vidruntime

import (
	xrand "golang.org/x/exp/rand"
	"gonum.org/v1/gonum/stat/distuv"

	"github.com/deanable/wanvidgen/vidruntime/backend"
)

// initLatent builds the seeded initial latent with standard normal
// noise, shaped (1, LatentChannels, height/8, width/8). Values are drawn
// in flat row-major order, so two calls with the same seed and
// dimensions are bit-identical.
func initLatent(seed int64, height, width int) *backend.Tensor {
	h := height / backend.LatentDownsample
	w := width / backend.LatentDownsample
	dist := distuv.Normal{Mu: 0, Sigma: 1, Src: xrand.NewSource(uint64(seed))}
	t := backend.NewTensor(1, backend.LatentChannels, h, w)
	for i := range t.Data {
		t.Data[i] = float32(dist.Rand())
	}
	return t
}

// timesteps returns the denoising schedule: n values decreasing linearly
// from backend.MaxTimestep to 0. A single step runs at the maximum.
func timesteps(n int) []float64 {
	ts := make([]float64, n)
	if n == 1 {
		ts[0] = backend.MaxTimestep
		return ts
	}
	for i := range ts {
		ts[i] = float64(backend.MaxTimestep) * float64(n-1-i) / float64(n-1)
	}
	return ts
}
