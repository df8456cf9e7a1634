package advisor

import (
	"math/rand"
	"sync"
	"time"
)

// Simulator draws the placeholder soil, rainfall and fallback weather values
// the advisor uses in place of field measurements. It is safe for concurrent use.
type Simulator struct {
	mu  sync.Mutex
	rnd *rand.Rand
}

// NewSimulator returns a simulator seeded with seed, or with the clock when seed is 0.
func NewSimulator(seed int64) *Simulator {
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	return &Simulator{rnd: rand.New(rand.NewSource(seed))}
}

// Uniform returns a value in [lo, hi).
func (s *Simulator) Uniform(lo, hi float64) float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rnd.Float64()*(hi-lo)
}

// IntRange returns an integer in [lo, hi], both ends included.
func (s *Simulator) IntRange(lo, hi int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return lo + s.rnd.Intn(hi-lo+1)
}
