package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Contact is a penetrating point of a moving geom (Geom2) against a static
// plane (Geom1). Pos lies on the surface of Geom2 and Normal points out of
// the plane.
type Contact struct {
	Geom1, Geom2 int
	Pos          mgl64.Vec3
	Normal       mgl64.Vec3
	Depth        float64
}

const (
	// ContactTimeConst is the time constant of the contact spring-damper.
	ContactTimeConst = 0.02
	// ContactFriction caps the tangential force relative to the normal force.
	ContactFriction = 1.0
)

// sample is a contact probe in geom coordinates. Spheres and capsule ends
// probe with a radius, boxes and cylinders with their corners and rims.
type sample struct {
	at     mgl64.Vec3
	radius float64
}

const rimPoints = 8

func (g *Geom) samples(buf []sample) []sample {
	buf = buf[:0]
	switch g.Type {
	case GeomSphere:
		buf = append(buf, sample{radius: g.Size[0]})
	case GeomCapsule:
		buf = append(buf,
			sample{at: mgl64.Vec3{0, 0, g.Size[1]}, radius: g.Size[0]},
			sample{at: mgl64.Vec3{0, 0, -g.Size[1]}, radius: g.Size[0]})
	case GeomBox:
		for _, sx := range []float64{-1, 1} {
			for _, sy := range []float64{-1, 1} {
				for _, sz := range []float64{-1, 1} {
					buf = append(buf, sample{at: mgl64.Vec3{sx * g.Size[0], sy * g.Size[1], sz * g.Size[2]}})
				}
			}
		}
	case GeomCylinder:
		for k := 0; k < rimPoints; k++ {
			a := 2 * math.Pi * float64(k) / rimPoints
			x, y := g.Size[0]*math.Cos(a), g.Size[0]*math.Sin(a)
			buf = append(buf,
				sample{at: mgl64.Vec3{x, y, g.Size[1]}},
				sample{at: mgl64.Vec3{x, y, -g.Size[1]}})
		}
	}
	return buf
}

// collide reports every penetrating probe of moving geoms against static
// planes. count is the number of penetrating probes of the same geom pair.
func (m *Model) collide(poses []pose, visit func(c Contact, count int)) {
	var probes [2 * rimPoints]sample
	var hits [2 * rimPoints]Contact

	for pi := range m.Geoms {
		plane := &m.Geoms[pi]
		if plane.Type != GeomPlane {
			continue
		}
		pp := &poses[m.Bodies[plane.Body].Root]
		origin := pp.pos.Add(pp.quat.Rotate(plane.LocalPos))
		normal := pp.quat.Mul(plane.LocalQuat).Rotate(mgl64.Vec3{0, 0, 1})

		for gi := range m.Geoms {
			g := &m.Geoms[gi]
			if g.Type == GeomPlane || g.Static(m) {
				continue
			}
			gp := &poses[m.Bodies[g.Body].Root]
			center := gp.pos.Add(gp.quat.Rotate(g.LocalPos))
			orient := gp.quat.Mul(g.LocalQuat)

			n := 0
			for _, s := range g.samples(probes[:0]) {
				at := center.Add(orient.Rotate(s.at))
				depth := s.radius - normal.Dot(at.Sub(origin))
				if depth <= 0 {
					continue
				}
				hits[n] = Contact{
					Geom1:  pi,
					Geom2:  gi,
					Pos:    at.Sub(normal.Mul(s.radius)),
					Normal: normal,
					Depth:  depth,
				}
				n++
			}
			for k := 0; k < n; k++ {
				visit(hits[k], n)
			}
		}
	}
}

// contactForce is the penalty force on the moving body at a contact point.
// The spring and damper are scaled so that all count probes together act as
// a critically damped system with time constant ContactTimeConst.
func contactForce(mass float64, count int, c Contact, vel mgl64.Vec3) mgl64.Vec3 {
	share := mass / float64(count)
	k := share / (ContactTimeConst * ContactTimeConst)
	damp := 2 * share / ContactTimeConst

	vn := c.Normal.Dot(vel)
	fn := k*c.Depth - damp*vn
	if fn <= 0 {
		return mgl64.Vec3{}
	}

	vt := vel.Sub(c.Normal.Mul(vn))
	ft := vt.Mul(-damp)
	if limit := ContactFriction * fn; ft.Len() > limit {
		ft = ft.Mul(limit / ft.Len())
	}
	return c.Normal.Mul(fn).Add(ft)
}
