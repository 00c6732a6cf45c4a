// Package dataset builds the deterministic integer inputs for a benchmark run.
package dataset

import "math/rand/v2"

// MaxValue bounds generated values to [0, MaxValue).
const MaxValue = 1 << 31

// Generate returns n pseudo-random values in [0, MaxValue). The same seed always yields
// the same sequence.
func Generate(n int, seed uint64) []int64 {
	if n <= 0 {
		return []int64{}
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	data := make([]int64, n)
	for i := range data {
		data[i] = rng.Int64N(MaxValue)
	}
	return data
}
