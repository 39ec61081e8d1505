// Package sim advances a scene's simulation state one fixed timestep per
// tick, applying the control signal to the resolved target.
package sim

import (
	"sync/atomic"

	"github.com/san-kum/dynrec/internal/control"
	"github.com/san-kum/dynrec/internal/dynamo"
	"github.com/san-kum/dynrec/internal/physics"
	"github.com/san-kum/dynrec/internal/teardown"
)

var live atomic.Int64

// Live is the number of steppers created and not yet closed.
func Live() int64 {
	return live.Load()
}

// Stepper owns the simulation state for one scene.
type Stepper struct {
	model     *physics.Model
	data      *physics.Data
	ticks     int
	observers []dynamo.Observer
	state     dynamo.State
	close     func() error
}

// New allocates state for m at its initial configuration.
func New(m *physics.Model) *Stepper {
	live.Add(1)
	s := &Stepper{
		model: m,
		data:  physics.NewData(m),
		state: make(dynamo.State, m.Nq+m.Nv),
	}
	s.close = teardown.Once(func() error {
		live.Add(-1)
		return nil
	})
	return s
}

func (s *Stepper) AddObserver(o dynamo.Observer) { s.observers = append(s.observers, o) }

// Tick writes u to the target, advances exactly one timestep and, for joint
// targets, clears the applied force again so it never outlives the step.
func (s *Stepper) Tick(target control.Target, u float64) error {
	d := s.data
	switch target.Kind {
	case control.TargetActuator:
		d.Ctrl[target.Index] = u
	case control.TargetJoint:
		d.QfrcApplied[target.Index] = u
		defer func() { d.QfrcApplied[target.Index] = 0 }()
	}

	if err := physics.Step(s.model, d); err != nil {
		if se, ok := err.(*dynamo.SimulationError); ok {
			se.Step = s.ticks
		}
		return err
	}
	s.ticks++

	if len(s.observers) > 0 {
		copy(s.state, d.Qpos)
		copy(s.state[s.model.Nq:], d.Qvel)
		for _, o := range s.observers {
			o.OnStep(s.state, d.Ctrl, d.Time)
		}
	}
	return nil
}

func (s *Stepper) Ticks() int { return s.ticks }

func (s *Stepper) Time() float64 { return s.data.Time }

// Positions returns a copy of the generalized positions.
func (s *Stepper) Positions() []float64 {
	out := make([]float64, len(s.data.Qpos))
	copy(out, s.data.Qpos)
	return out
}

func (s *Stepper) Model() *physics.Model { return s.model }

// Data exposes the live state for read-only consumers such as the renderer.
func (s *Stepper) Data() *physics.Data { return s.data }

// Close releases the state. A second call returns teardown.ErrReleased.
func (s *Stepper) Close() error {
	return s.close()
}
