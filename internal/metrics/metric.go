package metrics

import (
	"github.com/san-kum/dynrec/internal/dynamo"
)

// Metric accumulates a scalar over the steps of a run.
type Metric interface {
	Name() string
	Observe(x dynamo.State, u dynamo.Control, t float64)
	Value() float64
	Reset()
}

// Set feeds every step to each of its metrics. It is a dynamo.Observer.
type Set []Metric

func (s Set) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	for _, m := range s {
		m.Observe(x, u, t)
	}
}

// Values maps metric names to their current values.
func (s Set) Values() map[string]float64 {
	out := make(map[string]float64, len(s))
	for _, m := range s {
		out[m.Name()] = m.Value()
	}
	return out
}
