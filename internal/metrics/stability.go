package metrics

import (
	"math"

	"github.com/san-kum/dynrec/internal/dynamo"
)

// Stability reports the fraction of observed steps whose state stays within
// a bound. A run that blows up shows as a value well below 1 long before the
// state reaches NaN.
type Stability struct {
	bound float64

	steps, outside int
	peak           float64
	firstAt        float64
}

func NewStability(bound float64) *Stability {
	return &Stability{bound: bound, firstAt: math.NaN()}
}

func (s *Stability) Name() string { return "stability" }

func (s *Stability) Observe(x dynamo.State, u dynamo.Control, t float64) {
	s.steps++
	largest := 0.0
	for _, val := range x {
		a := math.Abs(val)
		if math.IsNaN(val) {
			a = math.Inf(1)
		}
		largest = math.Max(largest, a)
	}
	s.peak = math.Max(s.peak, largest)
	if largest <= s.bound {
		return
	}
	if s.outside == 0 {
		s.firstAt = t
	}
	s.outside++
}

func (s *Stability) Value() float64 {
	if s.steps == 0 {
		return 1
	}
	return float64(s.steps-s.outside) / float64(s.steps)
}

// Peak is the largest state magnitude seen so far.
func (s *Stability) Peak() float64 { return s.peak }

// FirstExceeded is the simulation time of the first step outside the bound.
func (s *Stability) FirstExceeded() (float64, bool) {
	return s.firstAt, s.outside > 0
}

func (s *Stability) Reset() {
	s.steps, s.outside = 0, 0
	s.peak = 0
	s.firstAt = math.NaN()
}
