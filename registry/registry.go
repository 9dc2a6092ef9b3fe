// Package registry loads model preset catalogs. A catalog is a YAML
// file naming complete weight trios, so users select "-preset wan-2.1"
// instead of passing three paths:
//
//	presets:
//	  - name: wan-2.1
//	    text_encoder: clip.safetensors
//	    autoencoder: vae.safetensors
//	    denoiser: wan21-unet.safetensors
//	    quantization: int8
//	    checksums:
//	      wan21-unet.safetensors: 9f86d081884c7d65...
//
// Relative paths resolve against the catalog file's directory, so a
// registry can ship next to its weights and move with them.
package registry

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/deanable/wanvidgen/core"
)

// Preset names a complete weight trio plus its load options.
type Preset struct {
	Name         string `yaml:"name"`
	TextEncoder  string `yaml:"text_encoder"`
	Autoencoder  string `yaml:"autoencoder"`
	Denoiser     string `yaml:"denoiser"`
	Quantization string `yaml:"quantization"`

	// Checksums maps file paths (as written in the preset) to expected
	// SHA-256 hex digests. Optional; empty means Verify passes.
	Checksums map[string]string `yaml:"checksums"`
}

// Registry is a loaded preset catalog. Paths resolve against the
// catalog file's directory.
type Registry struct {
	dir     string
	presets map[string]Preset
	order   []string
}

type catalog struct {
	Presets []Preset `yaml:"presets"`
}

// Load reads and validates the catalog at path. A leading "~" expands
// to the user's home directory. Unknown YAML fields are rejected, so a
// typoed key fails loudly instead of silently dropping a preset field.
func Load(path string) (*Registry, error) {
	expanded, err := expandHome(path)
	if err != nil {
		return nil, err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return nil, fmt.Errorf("registry path: %w", err)
	}

	data, err := os.ReadFile(abs)
	if err != nil {
		return nil, fmt.Errorf("read registry: %w", err)
	}

	var doc catalog
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse registry %s: %w", abs, err)
	}

	if err := validateCatalog(&doc); err != nil {
		return nil, fmt.Errorf("invalid registry %s: %w", abs, err)
	}

	r := &Registry{
		dir:     filepath.Dir(abs),
		presets: make(map[string]Preset, len(doc.Presets)),
		order:   make([]string, 0, len(doc.Presets)),
	}
	for _, p := range doc.Presets {
		r.presets[p.Name] = p
		r.order = append(r.order, p.Name)
	}
	return r, nil
}

func validateCatalog(doc *catalog) error {
	if len(doc.Presets) == 0 {
		return fmt.Errorf("no presets defined")
	}
	seen := make(map[string]bool, len(doc.Presets))
	for i, p := range doc.Presets {
		if strings.TrimSpace(p.Name) == "" {
			return fmt.Errorf("preset %d: name is required", i)
		}
		if seen[p.Name] {
			return fmt.Errorf("preset %q defined twice", p.Name)
		}
		seen[p.Name] = true
		if p.TextEncoder == "" {
			return fmt.Errorf("preset %q: text_encoder is required", p.Name)
		}
		if p.Autoencoder == "" {
			return fmt.Errorf("preset %q: autoencoder is required", p.Name)
		}
		if p.Denoiser == "" {
			return fmt.Errorf("preset %q: denoiser is required", p.Name)
		}
	}
	return nil
}

// Dir returns the directory the catalog was loaded from.
func (r *Registry) Dir() string { return r.dir }

// Names lists the presets in file order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.order))
	copy(out, r.order)
	return out
}

// Get returns the named preset as written, paths unresolved.
func (r *Registry) Get(name string) (Preset, error) {
	p, ok := r.presets[name]
	if !ok {
		return Preset{}, fmt.Errorf("unknown preset %q (available: %s)",
			name, strings.Join(r.order, ", "))
	}
	return p, nil
}

// Resolve returns the named preset with the three weight paths made
// absolute against the catalog directory.
func (r *Registry) Resolve(name string) (Preset, error) {
	p, err := r.Get(name)
	if err != nil {
		return Preset{}, err
	}
	p.TextEncoder = r.resolvePath(p.TextEncoder)
	p.Autoencoder = r.resolvePath(p.Autoencoder)
	p.Denoiser = r.resolvePath(p.Denoiser)
	return p, nil
}

// Verify checks every checksum the named preset declares against the
// files on disk. Presets without checksums pass.
func (r *Registry) Verify(name string) error {
	p, err := r.Get(name)
	if err != nil {
		return err
	}
	for file, want := range p.Checksums {
		path := r.resolvePath(file)
		if err := core.VerifySHA256(path, want); err != nil {
			return fmt.Errorf("preset %q: %s: %w", name, file, err)
		}
	}
	return nil
}

func (r *Registry) resolvePath(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(r.dir, p)
}

// expandHome expands a leading '~' to the user's home directory.
func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~/")), nil
}
