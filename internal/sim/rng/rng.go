// Package rng provides the injectable random source every panel draws from.
package rng

import (
	"io"
	"math/rand/v2"
	"sync"
)

// Source is the subset of *rand.Rand the simulators use.
type Source interface {
	// Float64 returns a draw in [0,1).
	Float64() float64
	// IntN returns a draw in [0,n). It panics if n <= 0.
	IntN(n int) int
}

// locked serialises access to a *rand.Rand; the HTTP goroutines and the
// simulation goroutine may both draw (chat sends come from handlers).
type locked struct {
	mu sync.Mutex
	r  *rand.Rand
}

func (l *locked) Float64() float64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.Float64()
}

func (l *locked) IntN(n int) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.r.IntN(n)
}

// New returns a deterministic, goroutine-safe source seeded with seed.
func New(seed uint64) Source {
	return &locked{r: rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))}
}

// Uniform returns a draw in [lo,hi).
func Uniform(src Source, lo, hi float64) float64 {
	return lo + src.Float64()*(hi-lo)
}

// Above reports whether a fresh draw exceeds threshold. Above(src, 0.3)
// succeeds with probability 0.7.
func Above(src Source, threshold float64) bool {
	return src.Float64() > threshold
}

// Pick returns a uniformly chosen element of items. items must be non-empty.
func Pick[T any](src Source, items []T) T {
	return items[src.IntN(len(items))]
}

// Reader adapts src into an io.Reader so id generation is driven by the same
// injected source.
func Reader(src Source) io.Reader {
	return reader{src: src}
}

type reader struct{ src Source }

func (r reader) Read(p []byte) (int, error) {
	for i := range p {
		p[i] = byte(r.src.IntN(256))
	}
	return len(p), nil
}
