//go:build !nvml

package gpu

// defaultReaders without the nvml tag relies on nvidia-smi alone.
func defaultReaders(cfg Config) []Reader {
	return []Reader{newSMIReader(cfg)}
}
