package vidruntime

import (
	"math"
	"strings"
)

// DefaultMinFreeMemoryMB is the headroom the guard keeps in reserve when
// the caller does not configure one. Capacity checks compare against
// free memory minus this margin, so a request can never consume the last
// few hundred megabytes the driver and display need.
const DefaultMinFreeMemoryMB = 256

// DeviceMemory is a raw capacity read returned by a MemoryProber.
// Figures are megabytes.
type DeviceMemory struct {
	TotalMB float64
	UsedMB  float64
	FreeMB  float64
}

// MemoryProber reads memory figures for a device. The gpu package
// provides the NVML/nvidia-smi implementation; a nil prober makes every
// device look unbounded, which is the right behavior for CPU-only runs.
type MemoryProber interface {
	MemoryInfo(device string) (DeviceMemory, error)
}

// CacheReleaser is an optional prober capability. Probers that can ask
// the allocator to drop cached blocks implement it; ReleaseCaches on the
// guard calls it best-effort.
type CacheReleaser interface {
	ReleaseCaches(device string) error
}

// MemoryStats is a point-in-time snapshot of device memory, recorded in
// generation metadata before and after each run.
type MemoryStats struct {
	Device         string  `json:"device"`
	TotalMB        float64 `json:"total_mb"`
	AllocatedMB    float64 `json:"allocated_mb"`
	FreeMB         float64 `json:"free_mb"`
	UtilizationPct float64 `json:"utilization_percent"`
	// Unbounded marks devices with no readable memory ceiling. The
	// numeric fields are zero when set.
	Unbounded bool `json:"unbounded,omitempty"`
}

// MemoryGuard answers "is there room for this?" for one device. Devices
// without a readable ceiling (cpu, or no prober) always have room.
type MemoryGuard struct {
	device    string
	minFreeMB float64
	prober    MemoryProber
}

// NewMemoryGuard builds a guard for device. minFreeMB <= 0 selects
// DefaultMinFreeMemoryMB. prober may be nil.
func NewMemoryGuard(device string, minFreeMB float64, prober MemoryProber) *MemoryGuard {
	if minFreeMB <= 0 {
		minFreeMB = DefaultMinFreeMemoryMB
	}
	return &MemoryGuard{device: device, minFreeMB: minFreeMB, prober: prober}
}

// Device returns the device identifier the guard watches.
func (g *MemoryGuard) Device() string { return g.device }

// MinFreeMB returns the configured headroom margin.
func (g *MemoryGuard) MinFreeMB() float64 { return g.minFreeMB }

// unbounded reports whether the device has no readable memory ceiling.
func (g *MemoryGuard) unbounded() bool {
	return g.prober == nil || isCPUDevice(g.device)
}

// FreeMemoryMB returns the device's free memory, or +Inf when the
// device is unbounded or the probe fails. A failed probe must not block
// generation, so it degrades to unbounded rather than erroring.
func (g *MemoryGuard) FreeMemoryMB() float64 {
	if g.unbounded() {
		return math.Inf(1)
	}
	dm, err := g.prober.MemoryInfo(g.device)
	if err != nil {
		return math.Inf(1)
	}
	return dm.FreeMB
}

// HasCapacity reports whether requiredMB fits in free memory while
// keeping the headroom margin intact.
func (g *MemoryGuard) HasCapacity(requiredMB float64) bool {
	free := g.FreeMemoryMB()
	if math.IsInf(free, 1) {
		return true
	}
	return free-g.minFreeMB >= requiredMB
}

// RequireCapacity returns an ErrGPUMemory error when requiredMB does not
// fit. operation names the attempt for the user-facing message.
func (g *MemoryGuard) RequireCapacity(requiredMB float64, operation string) error {
	free := g.FreeMemoryMB()
	if math.IsInf(free, 1) {
		return nil
	}
	if free-g.minFreeMB >= requiredMB {
		return nil
	}
	return NewGPUMemoryError(requiredMB, free, operation)
}

// ReleaseCaches asks the prober's allocator to drop cached blocks.
// Best effort; never fails.
func (g *MemoryGuard) ReleaseCaches() {
	if g.prober == nil {
		return
	}
	if r, ok := g.prober.(CacheReleaser); ok {
		_ = r.ReleaseCaches(g.device)
	}
}

// Stats snapshots the device's memory. Unbounded devices report the
// Unbounded flag with zeroed figures.
func (g *MemoryGuard) Stats() MemoryStats {
	if g.unbounded() {
		return MemoryStats{Device: g.device, Unbounded: true}
	}
	dm, err := g.prober.MemoryInfo(g.device)
	if err != nil {
		return MemoryStats{Device: g.device, Unbounded: true}
	}
	var util float64
	if dm.TotalMB > 0 {
		util = math.Round(dm.UsedMB/dm.TotalMB*100*100) / 100
	}
	return MemoryStats{
		Device:         g.device,
		TotalMB:        dm.TotalMB,
		AllocatedMB:    dm.UsedMB,
		FreeMB:         dm.FreeMB,
		UtilizationPct: util,
	}
}

// isCPUDevice treats "cpu" and the empty string as CPU placement.
func isCPUDevice(device string) bool {
	return device == "" || strings.HasPrefix(device, "cpu")
}
