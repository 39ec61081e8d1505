package physics

import (
	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/dynrec/internal/dynamo"
	"github.com/san-kum/dynrec/internal/integrators"
)

// Data is the mutable simulation state for one Model.
type Data struct {
	Time        float64
	Qpos        []float64
	Qvel        []float64
	Ctrl        []float64
	QfrcApplied []float64

	// World poses, refreshed by Forward.
	XPos     []mgl64.Vec3
	XQuat    []mgl64.Quat
	GeomPos  []mgl64.Vec3
	GeomQuat []mgl64.Quat
	Contacts []Contact

	steps int
	dyn   *Dynamics
	integ dynamo.Integrator
	x     dynamo.State
	poses []pose
}

// NewData allocates state for a compiled model at its initial configuration.
func NewData(m *Model) *Data {
	d := &Data{
		Qpos:        make([]float64, m.Nq),
		Qvel:        make([]float64, m.Nv),
		Ctrl:        make([]float64, m.Nu),
		QfrcApplied: make([]float64, m.Nv),
		XPos:        make([]mgl64.Vec3, len(m.Bodies)),
		XQuat:       make([]mgl64.Quat, len(m.Bodies)),
		GeomPos:     make([]mgl64.Vec3, len(m.Geoms)),
		GeomQuat:    make([]mgl64.Quat, len(m.Geoms)),
		Contacts:    make([]Contact, 0, 4*len(m.Geoms)),
		x:           make(dynamo.State, m.Nq+m.Nv),
		poses:       make([]pose, len(m.Bodies)),
	}
	integ, ok := integrators.ByName(m.Integrator)
	if !ok {
		integ = integrators.NewEuler()
	}
	d.integ = integ
	d.dyn = &Dynamics{Model: m, Applied: d.QfrcApplied}
	Reset(m, d)
	return d
}

// Reset restores the initial configuration and clears all inputs.
func Reset(m *Model, d *Data) {
	d.Time = 0
	d.steps = 0
	copy(d.Qpos, m.Qpos0)
	clear(d.Qvel)
	clear(d.Ctrl)
	clear(d.QfrcApplied)
	Forward(m, d)
}

// Steps is the number of completed steps since the last Reset.
func (d *Data) Steps() int {
	return d.steps
}

// Forward recomputes world poses and active contacts from Qpos and Qvel.
func Forward(m *Model, d *Data) {
	if len(d.poses) != len(m.Bodies) {
		d.poses = make([]pose, len(m.Bodies))
	}
	m.computePoses(d.Qpos, d.Qvel, d.poses)
	for i := range m.Bodies {
		b := &m.Bodies[i]
		p := d.poses[b.Root]
		d.XPos[i] = p.pos.Add(p.quat.Rotate(b.rootPos))
		d.XQuat[i] = p.quat.Mul(b.rootQuat)
	}
	for i := range m.Geoms {
		g := &m.Geoms[i]
		p := d.poses[m.Bodies[g.Body].Root]
		d.GeomPos[i] = p.pos.Add(p.quat.Rotate(g.LocalPos))
		d.GeomQuat[i] = p.quat.Mul(g.LocalQuat)
	}
	d.Contacts = d.Contacts[:0]
	m.collide(d.poses, func(c Contact, _ int) {
		d.Contacts = append(d.Contacts, c)
	})
}

// Step advances the state by exactly one timestep. On failure the state is
// left untouched and a *dynamo.SimulationError is returned.
func Step(m *Model, d *Data) error {
	copy(d.x[:m.Nq], d.Qpos)
	copy(d.x[m.Nq:], d.Qvel)

	next := d.integ.Step(d.dyn, d.x, d.Ctrl, d.Time, m.Timestep)
	if len(next) != len(d.x) {
		return &dynamo.SimulationError{Step: d.steps, Time: d.Time, State: d.x.Clone(), Wrapped: dynamo.ErrDimensionMismatch}
	}
	if !next.Bounded(MaxMagnitude) {
		return &dynamo.SimulationError{Step: d.steps, Time: d.Time, State: next.Clone(), Wrapped: dynamo.ErrUnstable}
	}

	m.normalizeQuats(next[:m.Nq])
	copy(d.Qpos, next[:m.Nq])
	copy(d.Qvel, next[m.Nq:])
	d.Time += m.Timestep
	d.steps++
	Forward(m, d)
	return nil
}

// MaxMagnitude is the largest state component accepted before a step is
// declared divergent.
const MaxMagnitude = 1e8

func (m *Model) normalizeQuats(q []float64) {
	for i := range m.Joints {
		j := &m.Joints[i]
		if j.Type != JointFree {
			continue
		}
		a := j.QposAdr + 3
		quat := mgl64.Quat{W: q[a], V: mgl64.Vec3{q[a+1], q[a+2], q[a+3]}}.Normalize()
		q[a], q[a+1], q[a+2], q[a+3] = quat.W, quat.V[0], quat.V[1], quat.V[2]
	}
}
