package registry

import (
	"crypto/sha256"
	"encoding/hex"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// writeRegistry writes a catalog file plus any referenced weight files
// into a temp directory and returns the catalog path.
func writeRegistry(t *testing.T, yamlBody string, weights ...string) string {
	t.Helper()
	dir := t.TempDir()
	for _, name := range weights {
		if err := os.WriteFile(filepath.Join(dir, name), []byte("weights-"+name), 0o644); err != nil {
			t.Fatalf("write weight file: %v", err)
		}
	}
	path := filepath.Join(dir, "registry.yaml")
	if err := os.WriteFile(path, []byte(yamlBody), 0o644); err != nil {
		t.Fatalf("write registry: %v", err)
	}
	return path
}

const validCatalog = `presets:
  - name: wan-2.1
    text_encoder: clip.safetensors
    autoencoder: vae.safetensors
    denoiser: unet.safetensors
    quantization: int8
  - name: wan-2.1-fp16
    text_encoder: clip.safetensors
    autoencoder: vae.safetensors
    denoiser: unet-fp16.safetensors
`

func TestLoadAndList(t *testing.T) {
	path := writeRegistry(t, validCatalog)

	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	names := r.Names()
	if len(names) != 2 || names[0] != "wan-2.1" || names[1] != "wan-2.1-fp16" {
		t.Errorf("Names() = %v, want file order", names)
	}
	if r.Dir() != filepath.Dir(path) {
		t.Errorf("Dir() = %q, want %q", r.Dir(), filepath.Dir(path))
	}
}

func TestGetPreset(t *testing.T) {
	r, err := Load(writeRegistry(t, validCatalog))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	p, err := r.Get("wan-2.1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if p.Quantization != "int8" {
		t.Errorf("Quantization = %q, want int8", p.Quantization)
	}
	// Get leaves paths as written.
	if p.Denoiser != "unet.safetensors" {
		t.Errorf("Denoiser = %q, want relative path", p.Denoiser)
	}

	_, err = r.Get("missing")
	if err == nil {
		t.Fatal("Get(missing) should fail")
	}
	if !strings.Contains(err.Error(), "wan-2.1") {
		t.Errorf("error %q should list available presets", err)
	}
}

func TestResolvePaths(t *testing.T) {
	catalog := `presets:
  - name: mixed
    text_encoder: clip.safetensors
    autoencoder: sub/vae.safetensors
    denoiser: /abs/unet.safetensors
`
	path := writeRegistry(t, catalog)
	r, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	p, err := r.Resolve("mixed")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}

	dir := filepath.Dir(path)
	if p.TextEncoder != filepath.Join(dir, "clip.safetensors") {
		t.Errorf("TextEncoder = %q, want joined with %q", p.TextEncoder, dir)
	}
	if p.Autoencoder != filepath.Join(dir, "sub", "vae.safetensors") {
		t.Errorf("Autoencoder = %q, want nested join", p.Autoencoder)
	}
	// Absolute paths pass through untouched.
	if p.Denoiser != "/abs/unet.safetensors" {
		t.Errorf("Denoiser = %q, want absolute path unchanged", p.Denoiser)
	}
}

func TestLoadRejectsBadCatalogs(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"empty catalog", "presets: []\n"},
		{"missing name", "presets:\n  - text_encoder: a\n    autoencoder: b\n    denoiser: c\n"},
		{"missing denoiser", "presets:\n  - name: x\n    text_encoder: a\n    autoencoder: b\n"},
		{"duplicate name", validCatalog + "  - name: wan-2.1\n    text_encoder: a\n    autoencoder: b\n    denoiser: c\n"},
		{"unknown field", "presets:\n  - name: x\n    text_encoder: a\n    autoencoder: b\n    denoiser: c\n    denoizer: oops\n"},
		{"not yaml", "{{{"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Load(writeRegistry(t, tt.body)); err == nil {
				t.Error("Load should fail")
			}
		})
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("Load should fail for a missing catalog")
	}
}

func TestVerifyChecksums(t *testing.T) {
	sum := sha256.Sum256([]byte("weights-unet.safetensors"))
	good := hex.EncodeToString(sum[:])

	catalog := `presets:
  - name: checked
    text_encoder: clip.safetensors
    autoencoder: vae.safetensors
    denoiser: unet.safetensors
    checksums:
      unet.safetensors: ` + good + `
  - name: tampered
    text_encoder: clip.safetensors
    autoencoder: vae.safetensors
    denoiser: unet.safetensors
    checksums:
      unet.safetensors: ` + strings.Repeat("00", 32) + `
  - name: unchecked
    text_encoder: clip.safetensors
    autoencoder: vae.safetensors
    denoiser: unet.safetensors
`
	r, err := Load(writeRegistry(t, catalog, "clip.safetensors", "vae.safetensors", "unet.safetensors"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if err := r.Verify("checked"); err != nil {
		t.Errorf("Verify(checked) = %v, want nil", err)
	}
	if err := r.Verify("unchecked"); err != nil {
		t.Errorf("Verify(unchecked) = %v, want nil for no checksums", err)
	}

	err = r.Verify("tampered")
	if err == nil {
		t.Fatal("Verify(tampered) should fail")
	}
	if !strings.Contains(err.Error(), "checksum mismatch") {
		t.Errorf("error = %q, want checksum mismatch", err)
	}
}
