package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

const ambient = 0.3

// drawInstance shades and rasterizes every triangle of one geom instance.
func (r *Renderer) drawInstance(inst *instance) {
	mh := &r.ctx.meshes[inst.geom]
	for i := range mh.tris {
		t := &mh.tris[i]
		a := inst.transform.Mul4x1(t.a.Vec4(1)).Vec3()
		b := inst.transform.Mul4x1(t.b.Vec4(1)).Vec3()
		c := inst.transform.Mul4x1(t.c.Vec4(1)).Vec3()

		normal := b.Sub(a).Cross(c.Sub(a))
		length := normal.Len()
		if length == 0 {
			continue
		}
		normal = normal.Mul(1 / length)
		toEye := r.eye.Sub(a)
		facing := normal.Dot(toEye)
		if facing <= 0 && !mh.twoSided {
			continue
		}

		centroid := a.Add(b).Add(c).Mul(1.0 / 3)
		light := r.eye.Sub(centroid)
		diffuse := 0.0
		if l := light.Len(); l > 0 {
			diffuse = math.Abs(normal.Dot(light)) / l
		}
		shade := (ambient + (1-ambient)*diffuse) * t.tint
		color := [3]uint8{
			toByte(inst.color[0] * shade),
			toByte(inst.color[1] * shade),
			toByte(inst.color[2] * shade),
		}

		r.clipAndFill(
			r.viewProj.Mul4x1(a.Vec4(1)),
			r.viewProj.Mul4x1(b.Vec4(1)),
			r.viewProj.Mul4x1(c.Vec4(1)),
			color,
		)
	}
}

// clipAndFill clips a clip-space triangle against the near plane (z >= -w)
// and fills the resulting polygon.
func (r *Renderer) clipAndFill(a, b, c mgl64.Vec4, color [3]uint8) {
	in := [3]mgl64.Vec4{a, b, c}
	var out [4]mgl64.Vec4
	n := 0

	for i := 0; i < 3; i++ {
		cur, next := in[i], in[(i+1)%3]
		dc, dn := cur[2]+cur[3], next[2]+next[3]
		if dc >= 0 {
			out[n] = cur
			n++
		}
		if (dc >= 0) != (dn >= 0) {
			t := dc / (dc - dn)
			out[n] = cur.Add(next.Sub(cur).Mul(t))
			n++
		}
	}
	if n < 3 {
		return
	}

	var screen [4]mgl64.Vec3
	for i := 0; i < n; i++ {
		w := out[i][3]
		if w <= 1e-9 {
			return
		}
		screen[i] = mgl64.Vec3{
			(out[i][0]/w + 1) / 2 * float64(r.gfx.Width),
			(out[i][1]/w + 1) / 2 * float64(r.gfx.Height),
			out[i][2] / w,
		}
	}
	for i := 1; i+1 < n; i++ {
		r.fill(screen[0], screen[i], screen[i+1], color)
	}
}

func edge(a, b mgl64.Vec3, px, py float64) float64 {
	return (b[0]-a[0])*(py-a[1]) - (b[1]-a[1])*(px-a[0])
}

// fill rasterizes a screen-space triangle with depth testing. Pixel centers
// are sampled at half-integer coordinates.
func (r *Renderer) fill(v0, v1, v2 mgl64.Vec3, color [3]uint8) {
	area := edge(v0, v1, v2[0], v2[1])
	if math.Abs(area) < 1e-12 {
		return
	}
	g := r.gfx
	minX := int(math.Max(0, math.Floor(math.Min(v0[0], math.Min(v1[0], v2[0])))))
	maxX := int(math.Min(float64(g.Width-1), math.Ceil(math.Max(v0[0], math.Max(v1[0], v2[0])))))
	minY := int(math.Max(0, math.Floor(math.Min(v0[1], math.Min(v1[1], v2[1])))))
	maxY := int(math.Min(float64(g.Height-1), math.Ceil(math.Max(v0[1], math.Max(v1[1], v2[1])))))
	inv := 1 / area

	for y := minY; y <= maxY; y++ {
		py := float64(y) + 0.5
		row := y * g.Width
		for x := minX; x <= maxX; x++ {
			px := float64(x) + 0.5
			w0 := edge(v1, v2, px, py) * inv
			w1 := edge(v2, v0, px, py) * inv
			w2 := edge(v0, v1, px, py) * inv
			if w0 < 0 || w1 < 0 || w2 < 0 {
				continue
			}
			z := float32(w0*v0[2] + w1*v1[2] + w2*v2[2])
			idx := row + x
			if z >= g.depth[idx] || z < -1 {
				continue
			}
			g.depth[idx] = z
			o := idx * 4
			g.color[o], g.color[o+1], g.color[o+2] = color[0], color[1], color[2]
		}
	}
}
