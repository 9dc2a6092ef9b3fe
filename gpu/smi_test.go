package gpu

import (
	"path/filepath"
	"strings"
	"testing"
)

func TestParseDeviceList(t *testing.T) {
	t.Run("single device", func(t *testing.T) {
		out := "0, NVIDIA GeForce RTX 3090, 24576, 2048, 22528\n"
		devices, err := parseDeviceList(out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(devices) != 1 {
			t.Fatalf("expected 1 device, got %d", len(devices))
		}
		d := devices[0]
		if d.Index != 0 {
			t.Errorf("expected index 0, got %d", d.Index)
		}
		if d.Name != "NVIDIA GeForce RTX 3090" {
			t.Errorf("unexpected name %q", d.Name)
		}
		if d.TotalMB != 24576 || d.UsedMB != 2048 || d.FreeMB != 22528 {
			t.Errorf("unexpected memory figures: %+v", d)
		}
	})

	t.Run("multiple devices", func(t *testing.T) {
		out := "0, NVIDIA A100, 40960, 1024, 39936\n1, NVIDIA A100, 40960, 40000, 960\n"
		devices, err := parseDeviceList(out)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(devices) != 2 {
			t.Fatalf("expected 2 devices, got %d", len(devices))
		}
		if devices[1].Index != 1 || devices[1].FreeMB != 960 {
			t.Errorf("unexpected second device: %+v", devices[1])
		}
	})

	tests := []struct {
		name   string
		output string
	}{
		{"empty output", ""},
		{"whitespace only", "  \n  "},
		{"too few fields", "0, NVIDIA A100, 40960\n"},
		{"bad index", "x, NVIDIA A100, 40960, 1024, 39936\n"},
		{"bad total", "0, NVIDIA A100, lots, 1024, 39936\n"},
		{"bad free", "0, NVIDIA A100, 40960, 1024, most\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := parseDeviceList(tt.output); err == nil {
				t.Error("expected parse error, got nil")
			}
		})
	}
}

func TestSMIReaderMissingBinary(t *testing.T) {
	r := newSMIReader(Config{
		NvidiaSMIPath: filepath.Join(t.TempDir(), "nvidia-smi"),
	})
	if _, err := r.Devices(); err == nil {
		t.Error("expected error for missing executable, got nil")
	}
}

func TestDeviceString(t *testing.T) {
	d := Device{Index: 0, Name: "NVIDIA GeForce RTX 3090", TotalMB: 24576, FreeMB: 22528}
	s := d.String()
	for _, want := range []string{"cuda:0", "RTX 3090", "22.00 GB", "24.00 GB"} {
		if !strings.Contains(s, want) {
			t.Errorf("String() = %q, missing %q", s, want)
		}
	}
}
