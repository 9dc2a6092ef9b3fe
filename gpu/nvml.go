//go:build nvml

package gpu

import (
	"fmt"

	"github.com/NVIDIA/go-nvml/pkg/nvml"
)

// nvmlReader queries the NVML driver library directly. Preferred over
// nvidia-smi when built in: no subprocess, and the figures come from
// the same source the driver reports.
type nvmlReader struct{}

func (nvmlReader) Devices() ([]Device, error) {
	if ret := nvml.Init(); ret != nvml.SUCCESS {
		return nil, fmt.Errorf("nvml init: %s", nvml.ErrorString(ret))
	}
	defer func() { _ = nvml.Shutdown() }()

	count, ret := nvml.DeviceGetCount()
	if ret != nvml.SUCCESS {
		return nil, fmt.Errorf("nvml device count: %s", nvml.ErrorString(ret))
	}

	devices := make([]Device, 0, count)
	for i := 0; i < count; i++ {
		dev, ret := nvml.DeviceGetHandleByIndex(i)
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("nvml device %d: %s", i, nvml.ErrorString(ret))
		}
		name, ret := dev.GetName()
		if ret != nvml.SUCCESS {
			name = "unknown"
		}
		mem, ret := dev.GetMemoryInfo()
		if ret != nvml.SUCCESS {
			return nil, fmt.Errorf("nvml memory info %d: %s", i, nvml.ErrorString(ret))
		}

		const mib = 1024 * 1024
		devices = append(devices, Device{
			Index:   i,
			Name:    name,
			TotalMB: float64(mem.Total) / mib,
			UsedMB:  float64(mem.Used) / mib,
			FreeMB:  float64(mem.Free) / mib,
		})
	}

	return devices, nil
}

// defaultReaders tries NVML first and falls back to nvidia-smi.
func defaultReaders(cfg Config) []Reader {
	return []Reader{nvmlReader{}, newSMIReader(cfg)}
}
