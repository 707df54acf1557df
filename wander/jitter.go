package wander

import (
	"math/rand/v2"
	"sync"
	"time"
)

// Jitter spreads durations uniformly around a base value so that posting
// cadence never settles into an observable fixed schedule.
type Jitter struct {
	mu  sync.Mutex
	rng *rand.Rand
}

// NewJitter returns a Jitter backed by a randomly seeded source.
func NewJitter() *Jitter {
	return &Jitter{rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))}
}

// NewSeededJitter returns a deterministic Jitter, for tests.
func NewSeededJitter(seed uint64) *Jitter {
	return &Jitter{rng: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Apply returns base scaled by a uniform factor in [1-percent/100, 1+percent/100].
func (j *Jitter) Apply(base time.Duration, percent float64) time.Duration {
	if percent <= 0 || base <= 0 {
		return base
	}
	j.mu.Lock()
	f := j.rng.Float64()
	j.mu.Unlock()

	spread := percent / 100
	factor := 1 - spread + 2*spread*f
	return time.Duration(float64(base) * factor)
}

// Bounds reports the smallest and largest value Apply can return.
func Bounds(base time.Duration, percent float64) (time.Duration, time.Duration) {
	if percent <= 0 {
		return base, base
	}
	spread := percent / 100
	return time.Duration(float64(base) * (1 - spread)), time.Duration(float64(base) * (1 + spread))
}
