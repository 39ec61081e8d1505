package render

import "github.com/go-gl/mathgl/mgl64"

// drawLine draws a line using Bresenham's algorithm. Pixels outside the
// buffer are skipped.
func (g *GraphicsContext) drawLine(x0, y0, x1, y1 int, c [3]uint8) {
	dx := absInt(x1 - x0)
	dy := absInt(y1 - y0)
	sx := -1
	if x0 < x1 {
		sx = 1
	}
	sy := -1
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy

	for {
		g.set(x0, y0, c)
		if x0 == x1 && y0 == y1 {
			break
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}

// project maps a world point to pixel coordinates. ok is false for points
// behind the near plane or far off screen.
func (r *Renderer) project(p mgl64.Vec3) (int, int, bool) {
	c := r.viewProj.Mul4x1(p.Vec4(1))
	if c[3] <= 1e-6 {
		return 0, 0, false
	}
	x := (c[0]/c[3] + 1) / 2 * float64(r.gfx.Width)
	y := (c[1]/c[3] + 1) / 2 * float64(r.gfx.Height)
	limit := float64(4 * MaxDimension)
	if x < -limit || x > limit || y < -limit || y > limit {
		return 0, 0, false
	}
	return int(x), int(y), true
}

func (r *Renderer) segment(a, b mgl64.Vec3, c [3]uint8) {
	x0, y0, ok0 := r.project(a)
	x1, y1, ok1 := r.project(b)
	if ok0 && ok1 {
		r.gfx.drawLine(x0, y0, x1, y1, c)
	}
}

var (
	axisColors   = [3][3]uint8{{230, 40, 40}, {40, 200, 40}, {40, 80, 230}}
	contactColor = [3]uint8{250, 220, 30}
)

// drawFrames overlays the x, y and z axes of every body.
func (r *Renderer) drawFrames() {
	length := 0.15 * r.radius
	for i := 1; i < len(r.model.Bodies); i++ {
		origin := r.data.XPos[i]
		q := r.data.XQuat[i]
		for k := 0; k < 3; k++ {
			var axis mgl64.Vec3
			axis[k] = length
			r.segment(origin, origin.Add(q.Rotate(axis)), axisColors[k])
		}
	}
}

// drawContacts marks each active contact with its normal.
func (r *Renderer) drawContacts() {
	length := 0.1 * r.radius
	for _, c := range r.data.Contacts {
		r.segment(c.Pos, c.Pos.Add(c.Normal.Mul(length)), contactColor)
		x, y, ok := r.project(c.Pos)
		if ok {
			r.gfx.drawLine(x-2, y, x+2, y, contactColor)
			r.gfx.drawLine(x, y-2, x, y+2, contactColor)
		}
	}
}
