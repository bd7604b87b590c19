package rng

import (
	"math"
	"sync"
)

// Sequence replays scripted Float64 draws, cycling when exhausted. IntN
// consumes one Float64 draw and scales it, so a test scripts every draw as a
// value in [0,1).
type Sequence struct {
	mu    sync.Mutex
	vals  []float64
	pos   int
	draws int
}

// NewSequence returns a Sequence over vals. An empty Sequence always draws 0.
func NewSequence(vals ...float64) *Sequence {
	return &Sequence{vals: vals}
}

func (s *Sequence) Float64() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.draws++
	if len(s.vals) == 0 {
		return 0
	}
	v := s.vals[s.pos%len(s.vals)]
	s.pos++
	return v
}

func (s *Sequence) IntN(n int) int {
	if n <= 0 {
		panic("rng: invalid argument to IntN")
	}
	i := int(math.Floor(s.Float64() * float64(n)))
	if i >= n {
		i = n - 1
	}
	if i < 0 {
		i = 0
	}
	return i
}

// Draws returns how many values have been consumed.
func (s *Sequence) Draws() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.draws
}
