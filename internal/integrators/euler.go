package integrators

import "github.com/san-kum/dynrec/internal/dynamo"

// Euler is a semi-implicit (symplectic) Euler step. For a SplitSystem the
// velocities are advanced first and the positions are integrated with the new
// velocities; any other system gets a plain explicit step.
type Euler struct{}

func NewEuler() *Euler {
	return &Euler{}
}

func (e *Euler) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t float64, dt float64) dynamo.State {
	dx := dyn.Derive(x, u, t)
	result := make(dynamo.State, len(x))

	split, ok := dyn.(dynamo.SplitSystem)
	if !ok {
		for i := range x {
			result[i] = x[i] + dt*dx[i]
		}
		return result
	}

	nq := split.PositionDim()
	copy(result, x)
	for i := nq; i < len(x); i++ {
		result[i] = x[i] + dt*dx[i]
	}
	split.IntegratePositions(result[:nq], result[nq:], dt)
	return result
}

// ByName returns the integrator registered under name ("Euler" or "RK4",
// case-insensitive).
func ByName(name string) (dynamo.Integrator, bool) {
	switch name {
	case "", "euler", "Euler":
		return NewEuler(), true
	case "rk4", "RK4":
		return NewRK4(), true
	default:
		return nil, false
	}
}
