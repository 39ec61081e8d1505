package render

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/dynrec/internal/physics"
)

type triangle struct {
	a, b, c mgl64.Vec3
	tint    float64
}

type mesh struct {
	tris     []triangle
	twoSided bool
}

const (
	slices = 16
	stacks = 8
)

func (m *mesh) add(a, b, c mgl64.Vec3, tint float64) {
	if b.Sub(a).Cross(c.Sub(a)).Len() < 1e-14 {
		return
	}
	m.tris = append(m.tris, triangle{a: a, b: b, c: c, tint: tint})
}

// quad adds a-b-c-d, counter-clockwise seen from the front.
func (m *mesh) quad(a, b, c, d mgl64.Vec3, tint float64) {
	m.add(a, b, c, tint)
	m.add(a, c, d, tint)
}

// buildMesh tessellates a geom in its own frame. Planes are drawn as a
// checkered square of half-size planeHalf when their own size is zero.
func buildMesh(g *physics.Geom, planeHalf float64) (mesh, error) {
	switch g.Type {
	case physics.GeomPlane:
		return planeMesh(g.Size, planeHalf), nil
	case physics.GeomSphere:
		return roundMesh(g.Size[0], 0), nil
	case physics.GeomCapsule:
		return roundMesh(g.Size[0], g.Size[1]), nil
	case physics.GeomBox:
		return boxMesh(g.Size), nil
	case physics.GeomCylinder:
		return cylinderMesh(g.Size[0], g.Size[1]), nil
	default:
		return mesh{}, fmt.Errorf("no mesh for geom type %s", g.Type)
	}
}

func planeMesh(size mgl64.Vec3, fallback float64) mesh {
	hx, hy := size[0], size[1]
	if hx <= 0 {
		hx = fallback
	}
	if hy <= 0 {
		hy = fallback
	}
	cell := math.Max(hx, hy) / 8
	if size[2] > 0 && size[2] < cell {
		cell = size[2]
	}
	nx := int(math.Ceil(2 * hx / cell))
	ny := int(math.Ceil(2 * hy / cell))

	m := mesh{twoSided: true}
	for i := 0; i < nx; i++ {
		x0 := -hx + float64(i)*cell
		x1 := math.Min(x0+cell, hx)
		for j := 0; j < ny; j++ {
			y0 := -hy + float64(j)*cell
			y1 := math.Min(y0+cell, hy)
			tint := 1.0
			if (i+j)%2 == 1 {
				tint = 0.78
			}
			m.quad(mgl64.Vec3{x0, y0, 0}, mgl64.Vec3{x1, y0, 0}, mgl64.Vec3{x1, y1, 0}, mgl64.Vec3{x0, y1, 0}, tint)
		}
	}
	return m
}

// roundMesh is a sphere of radius r whose hemispheres are pulled apart by
// ±h along z, which makes a capsule when h > 0.
func roundMesh(r, h float64) mesh {
	type ring struct {
		theta, offset float64
	}
	rings := make([]ring, 0, stacks+2)
	for i := 0; i <= stacks/2; i++ {
		rings = append(rings, ring{theta: math.Pi * float64(i) / stacks, offset: h})
	}
	for i := stacks / 2; i <= stacks; i++ {
		rings = append(rings, ring{theta: math.Pi * float64(i) / stacks, offset: -h})
	}

	point := func(rg ring, j int) mgl64.Vec3 {
		phi := 2 * math.Pi * float64(j) / slices
		st := math.Sin(rg.theta)
		return mgl64.Vec3{r * st * math.Cos(phi), r * st * math.Sin(phi), r*math.Cos(rg.theta) + rg.offset}
	}

	var m mesh
	for i := 0; i+1 < len(rings); i++ {
		for j := 0; j < slices; j++ {
			m.quad(point(rings[i], j), point(rings[i+1], j), point(rings[i+1], j+1), point(rings[i], j+1), 1)
		}
	}
	return m
}

func boxMesh(half mgl64.Vec3) mesh {
	var m mesh
	axes := [3]mgl64.Vec3{{1, 0, 0}, {0, 1, 0}, {0, 0, 1}}
	scale := func(v mgl64.Vec3) mgl64.Vec3 {
		return mgl64.Vec3{v[0] * half[0], v[1] * half[1], v[2] * half[2]}
	}
	for k := 0; k < 3; k++ {
		u, v := axes[(k+1)%3], axes[(k+2)%3]
		for _, s := range []float64{1, -1} {
			c := axes[k].Mul(s)
			p0 := scale(c.Sub(u).Sub(v))
			p1 := scale(c.Add(u).Sub(v))
			p2 := scale(c.Add(u).Add(v))
			p3 := scale(c.Sub(u).Add(v))
			if s > 0 {
				m.quad(p0, p1, p2, p3, 1)
			} else {
				m.quad(p3, p2, p1, p0, 1)
			}
		}
	}
	return m
}

func cylinderMesh(r, h float64) mesh {
	var m mesh
	rim := func(j int, z float64) mgl64.Vec3 {
		phi := 2 * math.Pi * float64(j) / slices
		return mgl64.Vec3{r * math.Cos(phi), r * math.Sin(phi), z}
	}
	top, bottom := mgl64.Vec3{0, 0, h}, mgl64.Vec3{0, 0, -h}
	for j := 0; j < slices; j++ {
		m.quad(rim(j, h), rim(j, -h), rim(j+1, -h), rim(j+1, h), 1)
		m.add(top, rim(j, h), rim(j+1, h), 1)
		m.add(bottom, rim(j+1, -h), rim(j, -h), 1)
	}
	return m
}
