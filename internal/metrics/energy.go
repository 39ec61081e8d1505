package metrics

import (
	"math"

	"github.com/san-kum/dynrec/internal/dynamo"
)

// minEnergyScale keeps the drift finite for scenes whose reference energy is
// close to zero. Below it the drift is absolute, in joules.
const minEnergyScale = 1e-6

// EnergyDrift is the largest deviation of mechanical energy from the energy
// at the first observed step, relative to that reference. Actuated runs drift
// by the work the controls do, so the value is only a solver check on
// unforced scenes.
type EnergyDrift struct {
	sys dynamo.Hamiltonian

	seen     bool
	ref, now float64
	worst    float64
}

func NewEnergyDrift(sys dynamo.Hamiltonian) *EnergyDrift {
	return &EnergyDrift{sys: sys}
}

func (e *EnergyDrift) Name() string { return "energy_drift" }

func (e *EnergyDrift) Observe(x dynamo.State, u dynamo.Control, t float64) {
	e.now = e.sys.Energy(x)
	if !e.seen {
		e.ref, e.seen = e.now, true
		return
	}
	scale := math.Max(math.Abs(e.ref), minEnergyScale)
	e.worst = math.Max(e.worst, math.Abs(e.now-e.ref)/scale)
}

func (e *EnergyDrift) Value() float64 { return e.worst }

// Current is the energy at the last observed step.
func (e *EnergyDrift) Current() float64 { return e.now }

func (e *EnergyDrift) Reset() {
	*e = EnergyDrift{sys: e.sys}
}
