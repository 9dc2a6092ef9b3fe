package vidruntime

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/deanable/wanvidgen/vidruntime/backend"
)

// writeWeights creates a fake weight file and returns its path.
func writeWeights(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte("weights"), 0o644); err != nil {
		t.Fatalf("write weights: %v", err)
	}
	return path
}

var cpuModelOpts = ModelOptions{Device: "cpu"}

func TestModelConstructionValidatesPath(t *testing.T) {
	sim := backend.NewSim()

	tests := []struct {
		name string
		path func(t *testing.T) string
	}{
		{"missing file", func(t *testing.T) string {
			return filepath.Join(t.TempDir(), "nope.safetensors")
		}},
		{"empty path", func(t *testing.T) string { return "" }},
		{"whitespace path", func(t *testing.T) string { return "   " }},
		{"directory", func(t *testing.T) string { return t.TempDir() }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.path(t)

			if _, err := NewTextEncoderModel(sim, path, cpuModelOpts); !errors.Is(err, ErrConfig) {
				t.Errorf("NewTextEncoderModel error = %v, want ErrConfig", err)
			}
			if _, err := NewAutoencoderModel(sim, path, cpuModelOpts); !errors.Is(err, ErrConfig) {
				t.Errorf("NewAutoencoderModel error = %v, want ErrConfig", err)
			}
			if _, err := NewDenoiserModel(sim, path, cpuModelOpts); !errors.Is(err, ErrConfig) {
				t.Errorf("NewDenoiserModel error = %v, want ErrConfig", err)
			}
		})
	}
}

func TestModelConstructionRequiresBackend(t *testing.T) {
	path := writeWeights(t, "enc.safetensors")
	if _, err := NewTextEncoderModel(nil, path, cpuModelOpts); !errors.Is(err, ErrConfig) {
		t.Errorf("nil backend error = %v, want ErrConfig", err)
	}
}

func TestModelLoadUnloadLifecycle(t *testing.T) {
	m, err := NewTextEncoderModel(backend.NewSim(), writeWeights(t, "enc.safetensors"), cpuModelOpts)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}

	if m.Loaded() {
		t.Fatal("new model should not be loaded")
	}
	if err := m.Load(); err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Loaded() {
		t.Fatal("Loaded() = false after Load")
	}
	// Second load is a no-op.
	if err := m.Load(); err != nil {
		t.Fatalf("repeated Load: %v", err)
	}

	m.Unload()
	if m.Loaded() {
		t.Fatal("Loaded() = true after Unload")
	}
	// Second unload is a no-op.
	m.Unload()
	if m.Loaded() {
		t.Fatal("repeated Unload changed state")
	}
}

func TestModelLoadFailureLeavesUnloaded(t *testing.T) {
	path := writeWeights(t, "enc.safetensors")
	m, err := NewTextEncoderModel(backend.NewSim(), path, cpuModelOpts)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}

	// Weights vanish between construction and load.
	if err := os.Remove(path); err != nil {
		t.Fatalf("remove weights: %v", err)
	}

	err = m.Load()
	if !errors.Is(err, ErrModelLoad) {
		t.Fatalf("Load error = %v, want ErrModelLoad", err)
	}
	if !errors.Is(err, backend.ErrWeightsNotFound) {
		t.Errorf("cause %v should unwrap to backend.ErrWeightsNotFound", err)
	}
	if m.Loaded() {
		t.Error("model should stay unloaded after a failed load")
	}
}

func TestModelOperationWhileUnloaded(t *testing.T) {
	sim := backend.NewSim()

	enc, err := NewTextEncoderModel(sim, writeWeights(t, "enc.safetensors"), cpuModelOpts)
	if err != nil {
		t.Fatalf("construct encoder: %v", err)
	}
	if _, err := enc.EncodeText("hello"); !errors.Is(err, ErrModelLoad) {
		t.Errorf("EncodeText unloaded error = %v, want ErrModelLoad", err)
	}

	vae, err := NewAutoencoderModel(sim, writeWeights(t, "vae.safetensors"), cpuModelOpts)
	if err != nil {
		t.Fatalf("construct autoencoder: %v", err)
	}
	latent := backend.NewTensor(1, backend.LatentChannels, 8, 8)
	if _, err := vae.DecodeLatent(latent, 1); !errors.Is(err, ErrModelLoad) {
		t.Errorf("DecodeLatent unloaded error = %v, want ErrModelLoad", err)
	}
	img := backend.NewTensor(backend.ImageChannels, 64, 64)
	if _, err := vae.EncodeImage(img); !errors.Is(err, ErrModelLoad) {
		t.Errorf("EncodeImage unloaded error = %v, want ErrModelLoad", err)
	}

	den, err := NewDenoiserModel(sim, writeWeights(t, "unet.safetensors"), cpuModelOpts)
	if err != nil {
		t.Fatalf("construct denoiser: %v", err)
	}
	cond := backend.NewTensor(1, backend.EmbedDim)
	if _, err := den.Denoise(latent, 500, cond, 7.5); !errors.Is(err, ErrModelLoad) {
		t.Errorf("Denoise unloaded error = %v, want ErrModelLoad", err)
	}
}

func TestModelWithLoadedReleases(t *testing.T) {
	m, err := NewTextEncoderModel(backend.NewSim(), writeWeights(t, "enc.safetensors"), cpuModelOpts)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}

	var sawLoaded bool
	if err := m.WithLoaded(func() error {
		sawLoaded = m.Loaded()
		return nil
	}); err != nil {
		t.Fatalf("WithLoaded: %v", err)
	}
	if !sawLoaded {
		t.Error("fn should observe a loaded model")
	}
	if m.Loaded() {
		t.Error("model should be unloaded after WithLoaded returns")
	}

	// The scope releases on failure too.
	sentinel := errors.New("fn failed")
	if err := m.WithLoaded(func() error { return sentinel }); !errors.Is(err, sentinel) {
		t.Fatalf("WithLoaded error = %v, want sentinel", err)
	}
	if m.Loaded() {
		t.Error("model should be unloaded after fn fails")
	}
}

func TestModelAccessors(t *testing.T) {
	path := writeWeights(t, "unet.safetensors")
	m, err := NewDenoiserModel(backend.NewSim(), path, cpuModelOpts)
	if err != nil {
		t.Fatalf("construct: %v", err)
	}
	if m.Role() != RoleDenoiser {
		t.Errorf("Role() = %q, want %q", m.Role(), RoleDenoiser)
	}
	if m.Path() != path {
		t.Errorf("Path() = %q, want %q", m.Path(), path)
	}
}
