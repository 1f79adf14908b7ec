package backend

import (
	"crypto/rand"
	"encoding/binary"
)

// RandomSeed generates a random non-negative seed for image generation.
func RandomSeed() int64 {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		// crypto/rand failing is rarer than any seed collision
		return 42
	}

	seed := int64(binary.LittleEndian.Uint64(buf[:]))
	if seed < 0 {
		seed = -seed
	}
	if seed < 0 {
		// -MinInt64 is still MinInt64
		seed = 0
	}
	return seed
}
