package utils

import (
	"math/rand"
	"time"
)

// RandSource is a seedable pseudo-random stream. A single RandSource is shared by
// every stage of a run so that the draw order (topology, capacities, trials) is
// reproducible from the seed alone. It is not safe for concurrent use.
type RandSource struct {
	seed int64
	rng  *rand.Rand
}

// NewRandSource creates a new random source with the given seed.
// A zero seed is replaced by the current time.
func NewRandSource(seed int64) *RandSource {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &RandSource{
		seed: seed,
		rng:  rand.New(rand.NewSource(seed)),
	}
}

// Seed returns the seed the source was created with
func (r *RandSource) Seed() int64 {
	return r.seed
}

// Intn returns a random int in [0, n)
func (r *RandSource) Intn(n int) int {
	return r.rng.Intn(n)
}

// ExpMean returns an exponentially distributed random number with the given mean
func (r *RandSource) ExpMean(mean float64) float64 {
	return r.rng.ExpFloat64() * mean
}

// Pair draws two distinct indices uniformly from [0, n) without replacement.
// n must be at least 2.
func (r *RandSource) Pair(n int) (int, int) {
	first := r.rng.Intn(n)
	second := r.rng.Intn(n - 1)
	if second >= first {
		second++
	}
	return first, second
}
