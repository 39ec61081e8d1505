package metrics

import (
	"math"

	"github.com/san-kum/dynrec/internal/dynamo"
)

// ControlEffort is the mean over steps of the summed absolute controls.
type ControlEffort struct {
	total float64
	peak  float64
	steps int
}

func NewControlEffort() *ControlEffort {
	return &ControlEffort{}
}

func (c *ControlEffort) Name() string { return "control_effort" }

func (c *ControlEffort) Observe(x dynamo.State, u dynamo.Control, t float64) {
	c.steps++
	for _, ctrl := range u {
		a := math.Abs(ctrl)
		c.total += a
		if a > c.peak {
			c.peak = a
		}
	}
}

func (c *ControlEffort) Value() float64 {
	if c.steps == 0 {
		return 0
	}
	return c.total / float64(c.steps)
}

// Peak is the largest single absolute control seen.
func (c *ControlEffort) Peak() float64 { return c.peak }

func (c *ControlEffort) Reset() { *c = ControlEffort{} }
