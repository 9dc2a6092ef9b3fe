package gpu

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/deanable/wanvidgen/core"
)

// Well-known device identifiers. CUDA devices are addressed as "cuda"
// (first device) or "cuda:<index>".
const (
	DeviceCPU  = "cpu"
	DeviceAuto = "auto"
)

// Device describes one detected GPU with its memory figures in MiB.
type Device struct {
	Index   int
	Name    string
	TotalMB float64
	UsedMB  float64
	FreeMB  float64
}

// String renders the device for status output.
func (d Device) String() string {
	return fmt.Sprintf("cuda:%d %s (%s free of %s)",
		d.Index, d.Name, core.FormatMB(d.FreeMB), core.FormatMB(d.TotalMB))
}

// deviceIndex extracts the CUDA index from a device identifier. "cuda"
// means index 0.
func deviceIndex(device string) (int, error) {
	d := strings.ToLower(strings.TrimSpace(device))
	switch {
	case d == "cuda":
		return 0, nil
	case strings.HasPrefix(d, "cuda:"):
		idx, err := strconv.Atoi(d[len("cuda:"):])
		if err != nil || idx < 0 {
			return 0, fmt.Errorf("gpu: malformed device %q", device)
		}
		return idx, nil
	}
	return 0, fmt.Errorf("gpu: device %q is not a CUDA device", device)
}
