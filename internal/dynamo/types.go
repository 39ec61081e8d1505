package dynamo

import "math"

// State is a flat simulation state. For physics scenes it is qpos followed
// by qvel.
type State []float64

// Control holds one value per actuator.
type Control []float64

func (s State) Clone() State {
	return append(State(nil), s...)
}

// Bounded reports whether every component is finite and within limit.
func (s State) Bounded(limit float64) bool {
	for _, v := range s {
		// NaN fails the comparison, so it is rejected here as well
		if !(math.Abs(v) <= limit) {
			return false
		}
	}
	return true
}

// System is a continuous-time system x' = f(x, u, t).
type System interface {
	Derive(x State, u Control, t float64) State
	StateDim() int
	ControlDim() int
}

// SplitSystem is a System whose state is laid out as positions followed by
// velocities. Position coordinates need not match velocity coordinates one to
// one (a free body has 7 position and 6 velocity components), so the system
// integrates its own positions.
type SplitSystem interface {
	System
	PositionDim() int
	IntegratePositions(q, v State, dt float64)
}

// Integrator advances x by one step of dt and returns the new state.
type Integrator interface {
	Step(sys System, x State, u Control, t, dt float64) State
}

// Observer receives the state after each completed step.
type Observer interface {
	OnStep(x State, u Control, t float64)
}

// Hamiltonian is a System that can report its total mechanical energy.
type Hamiltonian interface {
	System
	Energy(x State) float64
}
