package gpu

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// smiReader queries nvidia-smi for the device inventory.
type smiReader struct {
	path    string
	timeout time.Duration
}

func newSMIReader(cfg Config) smiReader {
	path := cfg.NvidiaSMIPath
	if path == "" {
		path = "nvidia-smi"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return smiReader{path: path, timeout: timeout}
}

// Devices runs one nvidia-smi query covering identity and memory.
func (r smiReader) Devices() ([]Device, error) {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, r.path,
		"--query-gpu=index,name,memory.total,memory.used,memory.free",
		"--format=csv,noheader,nounits")

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		return nil, fmt.Errorf("nvidia-smi failed: %w (stderr: %s)", err, stderr.String())
	}

	return parseDeviceList(stdout.String())
}

// parseDeviceList parses nvidia-smi CSV output, one device per line:
// index, name, memory.total, memory.used, memory.free (MiB, no units).
func parseDeviceList(output string) ([]Device, error) {
	output = strings.TrimSpace(output)
	if output == "" {
		return nil, fmt.Errorf("empty nvidia-smi output")
	}

	records, err := csv.NewReader(strings.NewReader(output)).ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to parse CSV: %w", err)
	}

	devices := make([]Device, 0, len(records))
	for _, record := range records {
		if len(record) < 5 {
			return nil, fmt.Errorf("unexpected field count: got %d, expected 5", len(record))
		}

		index, err := strconv.Atoi(strings.TrimSpace(record[0]))
		if err != nil {
			return nil, fmt.Errorf("failed to parse index: %w", err)
		}
		total, err := strconv.ParseFloat(strings.TrimSpace(record[2]), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse memory total: %w", err)
		}
		used, err := strconv.ParseFloat(strings.TrimSpace(record[3]), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse memory used: %w", err)
		}
		free, err := strconv.ParseFloat(strings.TrimSpace(record[4]), 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse memory free: %w", err)
		}

		devices = append(devices, Device{
			Index:   index,
			Name:    strings.TrimSpace(record[1]),
			TotalMB: total,
			UsedMB:  used,
			FreeMB:  free,
		})
	}

	return devices, nil
}
