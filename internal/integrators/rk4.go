package integrators

import "github.com/san-kum/dynrec/internal/dynamo"

// RK4 is the classic fourth order Runge-Kutta step. For a SplitSystem the
// intermediate and final positions go through IntegratePositions with the
// stage velocities, so free-body orientations stay unit quaternions
// throughout the step.
type RK4 struct {
	k     [4]dynamo.State
	stage [4]dynamo.State
}

func NewRK4() *RK4 {
	return &RK4{}
}

// stageFrac is the time fraction of each stage after the first.
var stageFrac = [3]float64{0.5, 0.5, 1}

func (r *RK4) resize(n int) {
	if len(r.k[0]) == n {
		return
	}
	for i := range r.k {
		r.k[i] = make(dynamo.State, n)
		r.stage[i] = make(dynamo.State, n)
	}
}

func (r *RK4) Step(dyn dynamo.System, x dynamo.State, u dynamo.Control, t, dt float64) dynamo.State {
	r.resize(len(x))
	copy(r.stage[0], x)

	split, ok := dyn.(dynamo.SplitSystem)
	nq := 0
	if ok {
		nq = split.PositionDim()
	}

	for s := 0; s < 4; s++ {
		if s > 0 {
			h := stageFrac[s-1] * dt
			next, prev, k := r.stage[s], r.stage[s-1], r.k[s-1]
			for i := nq; i < len(x); i++ {
				next[i] = x[i] + h*k[i]
			}
			if ok {
				copy(next[:nq], x[:nq])
				split.IntegratePositions(next[:nq], prev[nq:], h)
			}
		}
		tau := t
		if s > 0 {
			tau += stageFrac[s-1] * dt
		}
		copy(r.k[s], dyn.Derive(r.stage[s], u, tau))
	}

	out := make(dynamo.State, len(x))
	w := dt / 6
	for i := nq; i < len(x); i++ {
		out[i] = x[i] + w*(r.k[0][i]+2*r.k[1][i]+2*r.k[2][i]+r.k[3][i])
	}
	if !ok {
		return out
	}

	// Positions advance with the weighted mean of the stage velocities.
	vbar := make(dynamo.State, len(x)-nq)
	for i := range vbar {
		j := nq + i
		vbar[i] = (r.stage[0][j] + 2*r.stage[1][j] + 2*r.stage[2][j] + r.stage[3][j]) / 6
	}
	copy(out[:nq], x[:nq])
	split.IntegratePositions(out[:nq], vbar, dt)
	return out
}
