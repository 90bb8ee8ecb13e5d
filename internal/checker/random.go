package checker

import (
	"math/rand/v2"
	"sync"
	"time"
)

// RandomSource is the only source of randomness used by checkers.
// Values drawn from it feed simulation gates and display metadata.
type RandomSource interface {
	// IntN returns a value in [0, n). It panics if n <= 0.
	IntN(n int) int
	// Float64 returns a value in [0.0, 1.0).
	Float64() float64
}

// lockedSource serializes access to a *rand.Rand so one source can be
// shared by checkers running concurrently.
type lockedSource struct {
	mu sync.Mutex
	r  *rand.Rand
}

// NewRandomSource returns a PCG-backed RandomSource seeded with seed.
// A zero seed uses the current time.
func NewRandomSource(seed uint64) RandomSource {
	if seed == 0 {
		seed = uint64(time.Now().UnixNano()) //nolint:gosec // non-negative wall clock
	}
	return &lockedSource{r: rand.New(rand.NewPCG(seed, seed>>1|1))} //nolint:gosec // simulation only
}

func (s *lockedSource) IntN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.IntN(n)
}

func (s *lockedSource) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.r.Float64()
}
