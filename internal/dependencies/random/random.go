package random

import (
	"crypto/rand"
	"math/big"
	"slices"
)

// Random is the source of randomness for target-circle shuffles
type Random interface {
	// Intn returns a random int in [0, n)
	Intn(n int) int
}

// CryptoRandom draws from crypto/rand so circle order cannot be predicted
// from earlier reseeds
type CryptoRandom struct{}

// New creates a new CryptoRandom
func New() *CryptoRandom {
	return &CryptoRandom{}
}

// Intn returns a uniform int in [0, n). It panics if the system entropy
// source fails.
func (r *CryptoRandom) Intn(n int) int {
	if n <= 0 {
		return 0
	}
	result, err := rand.Int(rand.Reader, big.NewInt(int64(n)))
	if err != nil {
		panic("random: entropy source failed: " + err.Error())
	}
	return int(result.Int64())
}

// Shuffled returns a Fisher-Yates permutation of items drawn from r. The
// input slice is left untouched.
func Shuffled[T any](r Random, items []T) []T {
	out := slices.Clone(items)
	for i := len(out) - 1; i > 0; i-- {
		j := r.Intn(i + 1)
		out[i], out[j] = out[j], out[i]
	}
	return out
}
