package vidruntime

import (
	"crypto/rand"
	"encoding/binary"
)

// RandomSeed generates a cryptographically secure random seed for video
// generation. Returns a non-negative int64 suitable for reproducible
// runs once recorded.
func RandomSeed() int64 {
	var buf [8]byte
	_, err := rand.Read(buf[:])
	if err != nil {
		// Fallback to a fixed seed if crypto/rand fails (extremely rare)
		return 42
	}

	seed := int64(binary.LittleEndian.Uint64(buf[:]))
	if seed < 0 {
		seed = -seed
	}
	// -MinInt64 == MinInt64, still negative after negation
	if seed < 0 {
		seed = 0
	}
	return seed
}
