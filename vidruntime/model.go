package vidruntime

import (
	"fmt"
	"os"
	"strings"

	"github.com/deanable/wanvidgen/vidruntime/backend"
)

// Role identifies which of the three pipeline models a wrapper manages.
type Role string

const (
	RoleTextEncoder Role = "text_encoder"
	RoleAutoencoder Role = "autoencoder"
	RoleDenoiser    Role = "denoiser"
)

// label renders the role for user-facing messages.
func (r Role) label() string { return strings.ReplaceAll(string(r), "_", " ") }

// ModelOptions carries the placement options applied when a model loads.
type ModelOptions struct {
	// Device is the resolved device identifier, e.g. "cpu" or "cuda:0".
	Device string
	// Quantization is an opaque tag handed to the backend, "" for none.
	Quantization string
}

// Model is the lifecycle surface shared by the three role wrappers. The
// pipeline drives load order and rollback through it.
type Model interface {
	Load() error
	Unload()
	Loaded() bool
	Role() Role
	Path() string
}

// modelCore holds the state common to the three wrappers: the validated
// weight path and the load options. Construction validates the path
// eagerly so a bad configuration surfaces before any load is attempted.
type modelCore struct {
	role Role
	path string
	opts backend.LoadOptions
}

func newModelCore(role Role, path string, opts ModelOptions) (modelCore, error) {
	if err := validateWeightsPath(role, path); err != nil {
		return modelCore{}, err
	}
	return modelCore{
		role: role,
		path: path,
		opts: backend.LoadOptions{Device: opts.Device, Quantization: opts.Quantization},
	}, nil
}

func (c modelCore) Role() Role   { return c.role }
func (c modelCore) Path() string { return c.path }

// validateWeightsPath checks that path names an existing regular file.
func validateWeightsPath(role Role, path string) error {
	if strings.TrimSpace(path) == "" {
		return NewConfigError(
			fmt.Sprintf("%s weights path is empty", role),
			fmt.Sprintf("No weight file configured for the %s.", role.label()))
	}
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return NewConfigError(
			fmt.Sprintf("%s weights not found at %s", role, path),
			fmt.Sprintf("Model file for the %s is missing: %s", role.label(), path))
	}
	if err != nil {
		return NewConfigError(
			fmt.Sprintf("%s weights at %s not accessible: %v", role, path, err),
			fmt.Sprintf("Model file for the %s could not be read: %s", role.label(), path))
	}
	if !info.Mode().IsRegular() {
		return NewConfigError(
			fmt.Sprintf("%s weights at %s is not a regular file", role, path),
			fmt.Sprintf("Model path for the %s is not a file: %s", role.label(), path))
	}
	return nil
}

// errLoadFailed wraps a backend load failure. The wrapper stays fully
// unloaded after this, never in a partial state.
func errLoadFailed(role Role, path string, cause error) *Error {
	return NewModelLoadError(
		fmt.Sprintf("failed to load %s from %s", role, path),
		fmt.Sprintf("Could not load the %s model. Check the weight file and available memory.", role.label()),
		cause)
}

// errNotLoaded reports a model operation invoked while unloaded.
func errNotLoaded(role Role) *Error {
	return NewModelLoadError(
		fmt.Sprintf("%s is not loaded", role),
		fmt.Sprintf("The %s model is not loaded. Load the pipeline first.", role.label()),
		nil)
}

// TextEncoderModel manages the prompt encoder's weights and load state.
type TextEncoderModel struct {
	modelCore
	backend backend.Backend
	handle  backend.TextEncoder
}

// NewTextEncoderModel validates the weight path and binds the backend.
// No weights are touched until Load.
func NewTextEncoderModel(be backend.Backend, path string, opts ModelOptions) (*TextEncoderModel, error) {
	core, err := newModelCore(RoleTextEncoder, path, opts)
	if err != nil {
		return nil, err
	}
	if be == nil {
		return nil, NewConfigError("backend is nil", "")
	}
	return &TextEncoderModel{modelCore: core, backend: be}, nil
}

// Load brings the weights onto the device. Calling Load on a loaded
// model is a no-op.
func (m *TextEncoderModel) Load() error {
	if m.handle != nil {
		return nil
	}
	h, err := m.backend.LoadTextEncoder(m.path, m.opts)
	if err != nil {
		return errLoadFailed(m.role, m.path, err)
	}
	m.handle = h
	return nil
}

// Unload releases the device memory. Safe to call when already
// unloaded; never fails.
func (m *TextEncoderModel) Unload() {
	if m.handle == nil {
		return
	}
	_ = m.handle.Close()
	m.handle = nil
}

// Loaded reports whether the model currently holds device memory.
func (m *TextEncoderModel) Loaded() bool { return m.handle != nil }

// WithLoaded loads the model, runs fn, and unloads even when fn fails.
func (m *TextEncoderModel) WithLoaded(fn func() error) error {
	if err := m.Load(); err != nil {
		return err
	}
	defer m.Unload()
	return fn()
}

// EncodeText embeds the prompt into a (1, EmbedDim) conditioning tensor.
func (m *TextEncoderModel) EncodeText(prompt string) (*backend.Tensor, error) {
	if m.handle == nil {
		return nil, errNotLoaded(m.role)
	}
	return m.handle.EncodeText(prompt)
}

// AutoencoderModel manages the VAE weights and load state.
type AutoencoderModel struct {
	modelCore
	backend backend.Backend
	handle  backend.Autoencoder
}

// NewAutoencoderModel validates the weight path and binds the backend.
func NewAutoencoderModel(be backend.Backend, path string, opts ModelOptions) (*AutoencoderModel, error) {
	core, err := newModelCore(RoleAutoencoder, path, opts)
	if err != nil {
		return nil, err
	}
	if be == nil {
		return nil, NewConfigError("backend is nil", "")
	}
	return &AutoencoderModel{modelCore: core, backend: be}, nil
}

func (m *AutoencoderModel) Load() error {
	if m.handle != nil {
		return nil
	}
	h, err := m.backend.LoadAutoencoder(m.path, m.opts)
	if err != nil {
		return errLoadFailed(m.role, m.path, err)
	}
	m.handle = h
	return nil
}

func (m *AutoencoderModel) Unload() {
	if m.handle == nil {
		return
	}
	_ = m.handle.Close()
	m.handle = nil
}

func (m *AutoencoderModel) Loaded() bool { return m.handle != nil }

func (m *AutoencoderModel) WithLoaded(fn func() error) error {
	if err := m.Load(); err != nil {
		return err
	}
	defer m.Unload()
	return fn()
}

// EncodeImage compresses an image tensor into the latent space.
func (m *AutoencoderModel) EncodeImage(img *backend.Tensor) (*backend.Tensor, error) {
	if m.handle == nil {
		return nil, errNotLoaded(m.role)
	}
	return m.handle.EncodeImage(img)
}

// DecodeLatent expands a latent into frames pixel tensors.
func (m *AutoencoderModel) DecodeLatent(latent *backend.Tensor, frames int) ([]*backend.Tensor, error) {
	if m.handle == nil {
		return nil, errNotLoaded(m.role)
	}
	return m.handle.DecodeLatent(latent, frames)
}

// DenoiserModel manages the denoising network's weights and load state.
type DenoiserModel struct {
	modelCore
	backend backend.Backend
	handle  backend.Denoiser
}

// NewDenoiserModel validates the weight path and binds the backend.
func NewDenoiserModel(be backend.Backend, path string, opts ModelOptions) (*DenoiserModel, error) {
	core, err := newModelCore(RoleDenoiser, path, opts)
	if err != nil {
		return nil, err
	}
	if be == nil {
		return nil, NewConfigError("backend is nil", "")
	}
	return &DenoiserModel{modelCore: core, backend: be}, nil
}

func (m *DenoiserModel) Load() error {
	if m.handle != nil {
		return nil
	}
	h, err := m.backend.LoadDenoiser(m.path, m.opts)
	if err != nil {
		return errLoadFailed(m.role, m.path, err)
	}
	m.handle = h
	return nil
}

func (m *DenoiserModel) Unload() {
	if m.handle == nil {
		return
	}
	_ = m.handle.Close()
	m.handle = nil
}

func (m *DenoiserModel) Loaded() bool { return m.handle != nil }

func (m *DenoiserModel) WithLoaded(fn func() error) error {
	if err := m.Load(); err != nil {
		return err
	}
	defer m.Unload()
	return fn()
}

// Denoise runs one denoising iteration on latent at the given timestep.
func (m *DenoiserModel) Denoise(latent *backend.Tensor, timestep float64, cond *backend.Tensor, guidance float64) (*backend.Tensor, error) {
	if m.handle == nil {
		return nil, errNotLoaded(m.role)
	}
	return m.handle.Denoise(latent, timestep, cond, guidance)
}
