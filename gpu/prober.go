// Package gpu detects CUDA devices and reads their memory figures. The
// default probe shells out to nvidia-smi; builds tagged "nvml" query the
// NVML driver library first and fall back to nvidia-smi. The Prober
// satisfies vidruntime.MemoryProber, and Resolve turns a requested
// device ("auto", "cpu", "cuda", "cuda:1") into a concrete placement.
package gpu

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/deanable/wanvidgen/vidruntime"
)

// Reader reads the GPU inventory. The default readers query NVML or
// nvidia-smi; tests install fakes.
type Reader interface {
	// Devices returns all detected GPUs. An empty slice means the
	// machine has none; an error means the probe itself failed.
	Devices() ([]Device, error)
}

// Config configures the prober.
type Config struct {
	// NvidiaSMIPath is the nvidia-smi executable. Empty relies on PATH.
	NvidiaSMIPath string

	// Timeout bounds each probe. Zero selects 5 seconds.
	Timeout time.Duration
}

// Prober answers device inventory and memory queries, trying each
// configured reader in order until one succeeds.
type Prober struct {
	readers []Reader
	log     *zap.Logger
}

var _ vidruntime.MemoryProber = (*Prober)(nil)

// New builds a prober with the default reader chain for this build.
// log may be nil.
func New(cfg Config, log *zap.Logger) *Prober {
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 5 * time.Second
	}
	return &Prober{readers: defaultReaders(cfg), log: log}
}

// NewWithReaders builds a prober over explicit readers. Used by tests.
func NewWithReaders(log *zap.Logger, readers ...Reader) *Prober {
	if log == nil {
		log = zap.NewNop()
	}
	return &Prober{readers: readers, log: log}
}

// Devices returns the detected GPUs from the first reader that
// answers. All readers failing returns the last error.
func (p *Prober) Devices() ([]Device, error) {
	var lastErr error
	for _, r := range p.readers {
		devices, err := r.Devices()
		if err != nil {
			lastErr = err
			p.log.Debug("gpu probe failed, trying next reader", zap.Error(err))
			continue
		}
		return devices, nil
	}
	if lastErr == nil {
		lastErr = fmt.Errorf("gpu: no probe method available")
	}
	return nil, lastErr
}

// Available reports whether at least one GPU was detected.
func (p *Prober) Available() bool {
	devices, err := p.Devices()
	return err == nil && len(devices) > 0
}

// MemoryInfo implements vidruntime.MemoryProber for CUDA devices.
func (p *Prober) MemoryInfo(device string) (vidruntime.DeviceMemory, error) {
	idx, err := deviceIndex(device)
	if err != nil {
		return vidruntime.DeviceMemory{}, err
	}
	devices, err := p.Devices()
	if err != nil {
		return vidruntime.DeviceMemory{}, err
	}
	for _, d := range devices {
		if d.Index == idx {
			return vidruntime.DeviceMemory{
				TotalMB: d.TotalMB,
				UsedMB:  d.UsedMB,
				FreeMB:  d.FreeMB,
			}, nil
		}
	}
	return vidruntime.DeviceMemory{}, fmt.Errorf("gpu: device index %d not present", idx)
}

// Resolve turns a requested device into a concrete placement. "auto"
// and the empty string pick the first GPU when one exists and fall back
// to the CPU; explicit CUDA requests fail when the device is absent.
func (p *Prober) Resolve(requested string) (string, error) {
	req := strings.ToLower(strings.TrimSpace(requested))
	switch {
	case req == "" || req == DeviceAuto:
		if p.Available() {
			return "cuda:0", nil
		}
		return DeviceCPU, nil

	case req == DeviceCPU:
		return DeviceCPU, nil

	case req == "cuda":
		if !p.Available() {
			return "", vidruntime.NewConfigError(
				"cuda requested but no GPU detected",
				"CUDA was requested but no GPU is available. Use cpu, or check the NVIDIA driver.")
		}
		return "cuda:0", nil

	case strings.HasPrefix(req, "cuda:"):
		idx, err := deviceIndex(req)
		if err != nil {
			return "", vidruntime.NewConfigError(
				fmt.Sprintf("malformed device %q", requested),
				"Device must be cpu, auto, cuda or cuda:<n>.")
		}
		devices, err := p.Devices()
		if err != nil || len(devices) <= idx {
			return "", vidruntime.NewConfigError(
				fmt.Sprintf("device %q requested but only %d GPUs detected", requested, len(devices)),
				fmt.Sprintf("GPU %d is not available on this machine.", idx))
		}
		return req, nil
	}

	return "", vidruntime.NewConfigError(
		fmt.Sprintf("unknown device %q", requested),
		"Device must be cpu, auto, cuda or cuda:<n>.")
}
