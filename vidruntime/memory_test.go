package vidruntime

import (
	"errors"
	"math"
	"testing"
)

// fakeProber returns fixed figures, or an error when failProbe is set.
type fakeProber struct {
	total, used, free float64
	failProbe         bool
	releases          int
}

func (f *fakeProber) MemoryInfo(device string) (DeviceMemory, error) {
	if f.failProbe {
		return DeviceMemory{}, errors.New("probe failed")
	}
	return DeviceMemory{TotalMB: f.total, UsedMB: f.used, FreeMB: f.free}, nil
}

func (f *fakeProber) ReleaseCaches(device string) error {
	f.releases++
	return nil
}

func TestMemoryGuardUnbounded(t *testing.T) {
	tests := []struct {
		name   string
		device string
		prober MemoryProber
	}{
		{"nil prober", "cuda:0", nil},
		{"cpu device", "cpu", &fakeProber{total: 8192, used: 4096, free: 4096}},
		{"empty device", "", &fakeProber{total: 8192, used: 4096, free: 4096}},
		{"probe failure", "cuda:0", &fakeProber{failProbe: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := NewMemoryGuard(tt.device, 0, tt.prober)

			if free := g.FreeMemoryMB(); !math.IsInf(free, 1) {
				t.Errorf("FreeMemoryMB() = %v, want +Inf", free)
			}
			if !g.HasCapacity(1 << 20) {
				t.Error("unbounded device should have capacity for anything")
			}
			if err := g.RequireCapacity(1<<20, "test"); err != nil {
				t.Errorf("RequireCapacity() = %v, want nil", err)
			}
			stats := g.Stats()
			if !stats.Unbounded {
				t.Error("Stats().Unbounded = false, want true")
			}
			if stats.TotalMB != 0 || stats.FreeMB != 0 {
				t.Errorf("unbounded stats should zero the figures, got %+v", stats)
			}
		})
	}
}

func TestMemoryGuardCapacity(t *testing.T) {
	// 1000MB free with a 256MB margin leaves 744MB usable.
	prober := &fakeProber{total: 8192, used: 7192, free: 1000}
	g := NewMemoryGuard("cuda:0", 0, prober)

	if g.MinFreeMB() != DefaultMinFreeMemoryMB {
		t.Fatalf("MinFreeMB() = %v, want default %v", g.MinFreeMB(), DefaultMinFreeMemoryMB)
	}
	if free := g.FreeMemoryMB(); free != 1000 {
		t.Errorf("FreeMemoryMB() = %v, want 1000", free)
	}

	if !g.HasCapacity(744) {
		t.Error("HasCapacity(744) = false, want true at the boundary")
	}
	if g.HasCapacity(745) {
		t.Error("HasCapacity(745) = true, want false past the margin")
	}
}

func TestMemoryGuardRequireCapacityError(t *testing.T) {
	g := NewMemoryGuard("cuda:0", 0, &fakeProber{total: 8192, used: 7680, free: 512})

	err := g.RequireCapacity(2048, "video generation")
	if !errors.Is(err, ErrGPUMemory) {
		t.Fatalf("RequireCapacity error = %v, want ErrGPUMemory", err)
	}
	var de *Error
	if !errors.As(err, &de) {
		t.Fatal("error should carry the structured type")
	}
	if de.RequiredMB != 2048 || de.AvailableMB != 512 {
		t.Errorf("figures = (%v, %v), want (2048, 512)", de.RequiredMB, de.AvailableMB)
	}
	if de.Message != "GPU memory insufficient: 512MB < 2048MB" {
		t.Errorf("Message = %q", de.Message)
	}
}

func TestMemoryGuardCustomMargin(t *testing.T) {
	g := NewMemoryGuard("cuda:0", 100, &fakeProber{total: 2048, used: 1048, free: 1000})

	if !g.HasCapacity(900) {
		t.Error("HasCapacity(900) with 100MB margin should pass")
	}
	if g.HasCapacity(901) {
		t.Error("HasCapacity(901) with 100MB margin should fail")
	}
}

func TestMemoryGuardStats(t *testing.T) {
	g := NewMemoryGuard("cuda:0", 0, &fakeProber{total: 8192, used: 2048, free: 6144})

	stats := g.Stats()
	if stats.Device != "cuda:0" {
		t.Errorf("Device = %q, want cuda:0", stats.Device)
	}
	if stats.TotalMB != 8192 || stats.AllocatedMB != 2048 || stats.FreeMB != 6144 {
		t.Errorf("figures = %+v", stats)
	}
	if stats.UtilizationPct != 25 {
		t.Errorf("UtilizationPct = %v, want 25", stats.UtilizationPct)
	}
	if stats.Unbounded {
		t.Error("bounded device reported Unbounded")
	}
}

func TestMemoryGuardReleaseCaches(t *testing.T) {
	prober := &fakeProber{total: 8192, used: 0, free: 8192}
	g := NewMemoryGuard("cuda:0", 0, prober)

	g.ReleaseCaches()
	g.ReleaseCaches()
	if prober.releases != 2 {
		t.Errorf("releases = %d, want 2", prober.releases)
	}

	// A nil prober is fine.
	NewMemoryGuard("cuda:0", 0, nil).ReleaseCaches()
}
