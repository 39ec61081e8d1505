package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/dynrec/internal/dynamo"
)

// Dynamics exposes a Model as a dynamo.SplitSystem over x = qpos ‖ qvel with
// the actuator controls as input. Applied holds externally applied
// generalized forces and is read on every Derive.
type Dynamics struct {
	Model   *Model
	Applied []float64
}

func (s *Dynamics) StateDim() int    { return s.Model.Nq + s.Model.Nv }
func (s *Dynamics) ControlDim() int  { return s.Model.Nu }
func (s *Dynamics) PositionDim() int { return s.Model.Nq }

// pose is the world placement and velocity of a root body frame.
type pose struct {
	pos, com mgl64.Vec3
	quat     mgl64.Quat
	vel, ang mgl64.Vec3

	// joint frame for hinge and slide bodies
	axis, anchor mgl64.Vec3
}

func (p *pose) pointVelocity(pt mgl64.Vec3) mgl64.Vec3 {
	return p.vel.Add(p.ang.Cross(pt.Sub(p.pos)))
}

func (m *Model) computePoses(q, v []float64, out []pose) {
	out[0] = pose{quat: mgl64.QuatIdent()}
	for i := 1; i < len(m.Bodies); i++ {
		b := &m.Bodies[i]
		if b.Root != i {
			continue
		}
		p := pose{pos: b.Pos, quat: b.Quat}
		if b.Joint >= 0 {
			j := &m.Joints[b.Joint]
			qa, da := j.QposAdr, j.DofAdr
			switch j.Type {
			case JointFree:
				p.pos = mgl64.Vec3{q[qa], q[qa+1], q[qa+2]}
				p.quat = mgl64.Quat{W: q[qa+3], V: mgl64.Vec3{q[qa+4], q[qa+5], q[qa+6]}}.Normalize()
				p.vel = mgl64.Vec3{v[da], v[da+1], v[da+2]}
				p.ang = mgl64.Vec3{v[da+3], v[da+4], v[da+5]}
			case JointHinge:
				p.axis = b.Quat.Rotate(j.Axis)
				p.anchor = b.Pos.Add(b.Quat.Rotate(j.Pos))
				rot := mgl64.QuatRotate(q[qa], p.axis)
				p.quat = rot.Mul(b.Quat).Normalize()
				p.pos = p.anchor.Add(rot.Rotate(b.Pos.Sub(p.anchor)))
				p.ang = p.axis.Mul(v[da])
				p.vel = p.ang.Cross(p.pos.Sub(p.anchor))
			case JointSlide:
				p.axis = b.Quat.Rotate(j.Axis)
				p.pos = b.Pos.Add(p.axis.Mul(q[qa]))
				p.vel = p.axis.Mul(v[da])
			}
		}
		p.com = p.pos.Add(p.quat.Rotate(b.COM))
		out[i] = p
	}
}

// Derive evaluates qpos' ‖ qvel' for the given state and controls.
func (s *Dynamics) Derive(x dynamo.State, u dynamo.Control, t float64) dynamo.State {
	m := s.Model
	nq, nv := m.Nq, m.Nv
	q, v := x[:nq], x[nq:nq+nv]
	dx := make(dynamo.State, nq+nv)

	poses := make([]pose, len(m.Bodies))
	m.computePoses(q, v, poses)

	force := make([]mgl64.Vec3, len(m.Bodies))
	torque := make([]mgl64.Vec3, len(m.Bodies))
	for i := 1; i < len(m.Bodies); i++ {
		if m.Bodies[i].Root == i && m.Bodies[i].Joint >= 0 {
			force[i] = m.Gravity.Mul(m.Bodies[i].Mass)
		}
	}

	m.collide(poses, func(c Contact, count int) {
		root := m.Bodies[m.Geoms[c.Geom2].Body].Root
		p := &poses[root]
		f := contactForce(m.Bodies[root].Mass, count, c, p.pointVelocity(c.Pos))
		force[root] = force[root].Add(f)
		torque[root] = torque[root].Add(c.Pos.Sub(p.com).Cross(f))
	})

	qfrc := make([]float64, nv)
	for i := range qfrc {
		if i < len(s.Applied) {
			qfrc[i] = s.Applied[i]
		}
	}
	for i := range m.Actuators {
		if i < len(u) {
			a := &m.Actuators[i]
			qfrc[m.Joints[a.Joint].DofAdr] += a.Force(u[i])
		}
	}
	for i := range m.Joints {
		j := &m.Joints[i]
		for k := 0; k < j.Type.dofSize(); k++ {
			qfrc[j.DofAdr+k] -= j.Damping * v[j.DofAdr+k]
		}
	}

	for i := range m.Joints {
		j := &m.Joints[i]
		b := &m.Bodies[j.Body]
		p := &poses[j.Body]
		qa, da := j.QposAdr, j.DofAdr
		switch j.Type {
		case JointFree:
			rot := p.quat.Mat4().Mat3()
			iw := rot.Mul3(b.Inertia).Mul3(rot.Transpose())
			f := force[j.Body].Add(mgl64.Vec3{qfrc[da], qfrc[da+1], qfrc[da+2]})
			tau := torque[j.Body].Add(mgl64.Vec3{qfrc[da+3], qfrc[da+4], qfrc[da+5]})

			accCOM := f.Mul(1 / b.Mass)
			alpha := iw.Inv().Mul3x1(tau.Sub(p.ang.Cross(iw.Mul3x1(p.ang))))
			r := p.com.Sub(p.pos)
			acc := accCOM.Sub(alpha.Cross(r)).Sub(p.ang.Cross(p.ang.Cross(r)))

			dq := mgl64.Quat{V: p.ang}.Mul(mgl64.Quat{W: q[qa+3], V: mgl64.Vec3{q[qa+4], q[qa+5], q[qa+6]}}).Scale(0.5)
			dx[qa], dx[qa+1], dx[qa+2] = v[da], v[da+1], v[da+2]
			dx[qa+3], dx[qa+4], dx[qa+5], dx[qa+6] = dq.W, dq.V[0], dq.V[1], dq.V[2]
			for k := 0; k < 3; k++ {
				dx[nq+da+k] = acc[k]
				dx[nq+da+3+k] = alpha[k]
			}
		case JointHinge:
			rot := p.quat.Mat4().Mat3()
			iw := rot.Mul3(b.Inertia).Mul3(rot.Transpose())
			r := p.com.Sub(p.anchor)
			along := r.Dot(p.axis)
			inertia := p.axis.Dot(iw.Mul3x1(p.axis)) + b.Mass*(r.LenSqr()-along*along)
			tau := p.axis.Dot(torque[j.Body].Add(r.Cross(force[j.Body]))) + qfrc[da]
			dx[qa] = v[da]
			dx[nq+da] = tau / math.Max(inertia, 1e-12)
		case JointSlide:
			dx[qa] = v[da]
			dx[nq+da] = (p.axis.Dot(force[j.Body]) + qfrc[da]) / b.Mass
		}
	}
	return dx
}

// IntegratePositions advances q in place with velocities v over dt. Free
// joint orientations are advanced on the unit sphere.
func (s *Dynamics) IntegratePositions(q, v dynamo.State, dt float64) {
	for i := range s.Model.Joints {
		j := &s.Model.Joints[i]
		qa, da := j.QposAdr, j.DofAdr
		if j.Type != JointFree {
			q[qa] += dt * v[da]
			continue
		}
		for k := 0; k < 3; k++ {
			q[qa+k] += dt * v[da+k]
		}
		w := mgl64.Vec3{v[da+3], v[da+4], v[da+5]}
		angle := w.Len() * dt
		if angle == 0 {
			continue
		}
		quat := mgl64.Quat{W: q[qa+3], V: mgl64.Vec3{q[qa+4], q[qa+5], q[qa+6]}}
		quat = mgl64.QuatRotate(angle, w.Normalize()).Mul(quat).Normalize()
		q[qa+3], q[qa+4], q[qa+5], q[qa+6] = quat.W, quat.V[0], quat.V[1], quat.V[2]
	}
}

// Energy is the kinetic plus gravitational potential energy of all moving
// bodies. Contact springs are not included.
func (s *Dynamics) Energy(x dynamo.State) float64 {
	m := s.Model
	q, v := x[:m.Nq], x[m.Nq:m.Nq+m.Nv]
	poses := make([]pose, len(m.Bodies))
	m.computePoses(q, v, poses)

	total := 0.0
	for i := range m.Joints {
		j := &m.Joints[i]
		b := &m.Bodies[j.Body]
		p := &poses[j.Body]
		total -= b.Mass * m.Gravity.Dot(p.com)

		switch j.Type {
		case JointFree:
			rot := p.quat.Mat4().Mat3()
			iw := rot.Mul3(b.Inertia).Mul3(rot.Transpose())
			vcom := p.pointVelocity(p.com)
			total += 0.5*b.Mass*vcom.LenSqr() + 0.5*p.ang.Dot(iw.Mul3x1(p.ang))
		case JointHinge:
			rot := p.quat.Mat4().Mat3()
			iw := rot.Mul3(b.Inertia).Mul3(rot.Transpose())
			r := p.com.Sub(p.anchor)
			along := r.Dot(p.axis)
			inertia := p.axis.Dot(iw.Mul3x1(p.axis)) + b.Mass*(r.LenSqr()-along*along)
			w := v[j.DofAdr]
			total += 0.5 * inertia * w * w
		case JointSlide:
			w := v[j.DofAdr]
			total += 0.5 * b.Mass * w * w
		}
	}
	return total
}

// Energy reports the mechanical energy of the current state.
func (d *Data) Energy() float64 {
	copy(d.x[:len(d.Qpos)], d.Qpos)
	copy(d.x[len(d.Qpos):], d.Qvel)
	return d.dyn.Energy(d.x)
}

// System exposes the model dynamics, for observers that evaluate energy.
func (d *Data) System() *Dynamics {
	return d.dyn
}
