package render

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/dynrec/internal/physics"
)

// GraphicsContext is the offscreen drawing surface: an RGBA color buffer and
// a depth buffer. Row 0 is the bottom row.
type GraphicsContext struct {
	Width, Height int

	color      []uint8
	depth      []float32
	background []uint8
}

var (
	skyTop    = [3]float64{0.35, 0.45, 0.6}
	skyBottom = [3]float64{0.75, 0.8, 0.88}
)

func newGraphicsContext(w, h int) *GraphicsContext {
	g := &GraphicsContext{
		Width:      w,
		Height:     h,
		color:      make([]uint8, w*h*4),
		depth:      make([]float32, w*h),
		background: make([]uint8, w*h*4),
	}
	for y := 0; y < h; y++ {
		t := float64(y) / math.Max(1, float64(h-1))
		var c [4]uint8
		for k := 0; k < 3; k++ {
			c[k] = toByte(skyBottom[k] + t*(skyTop[k]-skyBottom[k]))
		}
		c[3] = 255
		for x := 0; x < w; x++ {
			copy(g.background[(y*w+x)*4:], c[:])
		}
	}
	return g
}

func (g *GraphicsContext) clear() {
	copy(g.color, g.background)
	for i := range g.depth {
		g.depth[i] = math.MaxFloat32
	}
}

func (g *GraphicsContext) set(x, y int, c [3]uint8) {
	if x < 0 || y < 0 || x >= g.Width || y >= g.Height {
		return
	}
	i := (y*g.Width + x) * 4
	g.color[i], g.color[i+1], g.color[i+2] = c[0], c[1], c[2]
}

// readPixels copies the color buffer into dst as packed RGB, bottom row first.
func (g *GraphicsContext) readPixels(dst []byte) {
	n := g.Width * g.Height
	for i := 0; i < n; i++ {
		dst[i*3] = g.color[i*4]
		dst[i*3+1] = g.color[i*4+1]
		dst[i*3+2] = g.color[i*4+2]
	}
}

func (g *GraphicsContext) release() {
	g.color, g.depth, g.background = nil, nil, nil
}

// RenderContext holds per-model GPU-side resources: geom meshes and the
// offscreen framebuffer binding.
type RenderContext struct {
	meshes   []mesh
	bound    bool
	fbWidth  int
	fbHeight int
}

func newRenderContext(m *physics.Model, g *GraphicsContext, planeHalf float64) (*RenderContext, error) {
	rc := &RenderContext{meshes: make([]mesh, len(m.Geoms))}
	for i := range m.Geoms {
		mh, err := buildMesh(&m.Geoms[i], planeHalf)
		if err != nil {
			return nil, fmt.Errorf("geom %d: %w", i, err)
		}
		rc.meshes[i] = mh
	}
	rc.bind(g)
	return rc, nil
}

// bind selects the offscreen buffer and sizes it to the graphics context.
func (rc *RenderContext) bind(g *GraphicsContext) {
	rc.bound = true
	rc.fbWidth, rc.fbHeight = g.Width, g.Height
}

func (rc *RenderContext) release() {
	rc.bound = false
	rc.meshes = nil
}

// instance is one geom placed in the world for the current frame.
type instance struct {
	geom      int
	transform mgl64.Mat4
	color     [3]float64
}

// Scene is the per-frame snapshot of everything to draw.
type Scene struct {
	maxGeom   int
	instances []instance
}

func newScene(maxGeom int, m *physics.Model) (*Scene, error) {
	if maxGeom <= 0 {
		return nil, fmt.Errorf("scene capacity must be positive, got %d", maxGeom)
	}
	if len(m.Geoms) > maxGeom {
		return nil, fmt.Errorf("scene capacity %d below geom count %d", maxGeom, len(m.Geoms))
	}
	return &Scene{maxGeom: maxGeom, instances: make([]instance, 0, maxGeom)}, nil
}

// update rebuilds the snapshot from the live state without allocating.
func (s *Scene) update(m *physics.Model, d *physics.Data) {
	s.instances = s.instances[:0]
	for i := range m.Geoms {
		g := &m.Geoms[i]
		p, q := d.GeomPos[i], d.GeomQuat[i]
		s.instances = append(s.instances, instance{
			geom:      i,
			transform: mgl64.Translate3D(p[0], p[1], p[2]).Mul4(q.Mat4()),
			color:     [3]float64{float64(g.RGBA[0]), float64(g.RGBA[1]), float64(g.RGBA[2])},
		})
	}
}

func (s *Scene) release() {
	s.instances = nil
}

// Len is the number of instances in the current snapshot.
func (s *Scene) Len() int {
	return len(s.instances)
}

func toByte(v float64) uint8 {
	if v <= 0 {
		return 0
	}
	if v >= 1 {
		return 255
	}
	return uint8(v*255 + 0.5)
}
