package render

import (
	"fmt"
	"math"
	"sync/atomic"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/dynrec/internal/dynamo"
	"github.com/san-kum/dynrec/internal/physics"
	"github.com/san-kum/dynrec/internal/teardown"
)

// DefaultMaxGeom is the default scene snapshot capacity.
const DefaultMaxGeom = 1000

// Options toggles debug overlays.
type Options struct {
	Frames   bool
	Contacts bool
}

type Config struct {
	Backend string
	Width   int
	Height  int
	MaxGeom int
	// Camera adjusts the automatic framing when non-nil; see Camera.Override.
	Camera  *Camera
	Options Options
}

var live atomic.Int64

// Live is the number of rendering resources currently held across all
// renderers.
func Live() int64 {
	return live.Load()
}

// Renderer draws the live state of one model into an offscreen buffer.
type Renderer struct {
	model *physics.Model
	data  *physics.Data
	cfg   Config

	gfx   *GraphicsContext
	ctx   *RenderContext
	scn   *Scene
	stack *teardown.Stack

	camera   Camera
	eye      mgl64.Vec3
	viewProj mgl64.Mat4
	radius   float64
	closed   bool
}

// Open acquires the graphics context, the render context and the scene, in
// that order. If any step fails, everything already acquired is released in
// reverse order and a *dynamo.ContextError is returned.
func Open(m *physics.Model, d *physics.Data, cfg Config) (*Renderer, error) {
	if cfg.MaxGeom == 0 {
		cfg.MaxGeom = DefaultMaxGeom
	}
	r := &Renderer{model: m, data: d, cfg: cfg, stack: teardown.New()}

	fail := func(op string, err error) (*Renderer, error) {
		if rerr := r.stack.Release(); rerr != nil {
			err = fmt.Errorf("%w (cleanup: %v)", err, rerr)
		}
		return nil, &dynamo.ContextError{Op: op, Err: err}
	}

	backend, err := LookupBackend(cfg.Backend)
	if err != nil {
		return fail("backend", err)
	}
	gfx, err := backend.NewContext(cfg.Width, cfg.Height)
	if err != nil {
		return fail("graphics", err)
	}
	r.gfx = gfx
	r.hold("graphics", gfx.release)

	center, radius := m.Bounds()
	r.radius = radius
	r.camera = DefaultCamera(m)
	if cfg.Camera != nil {
		r.camera = r.camera.Override(*cfg.Camera)
	}
	planeHalf := math.Max(2, 6*radius)

	rc, err := newRenderContext(m, gfx, planeHalf)
	if err != nil {
		return fail("render", err)
	}
	r.ctx = rc
	r.hold("render", rc.release)

	scn, err := newScene(cfg.MaxGeom, m)
	if err != nil {
		return fail("scene", err)
	}
	r.scn = scn
	r.hold("scene", scn.release)

	r.eye = r.camera.Eye()
	farExtent := planeHalf*1.5 + r.camera.Lookat.Sub(center).Len()
	r.viewProj = r.camera.ViewProjection(float64(cfg.Width)/float64(cfg.Height), farExtent)
	return r, nil
}

func (r *Renderer) hold(name string, release func()) {
	live.Add(1)
	_ = r.stack.Push(name, func() error {
		release()
		live.Add(-1)
		return nil
	})
}

// FrameSize is the number of bytes Render writes.
func (r *Renderer) FrameSize() int {
	return r.cfg.Width * r.cfg.Height * 3
}

func (r *Renderer) Camera() Camera {
	return r.camera
}

// Render draws the current state into dst as packed RGB with the bottom row
// first. dst must be exactly FrameSize bytes.
func (r *Renderer) Render(dst []byte) error {
	if r.closed {
		return &dynamo.ContextError{Op: "render", Err: teardown.ErrReleased}
	}
	if len(dst) != r.FrameSize() {
		return fmt.Errorf("render: %w: buffer is %d bytes, want %d", dynamo.ErrDimensionMismatch, len(dst), r.FrameSize())
	}

	r.scn.update(r.model, r.data)
	r.gfx.clear()
	for i := range r.scn.instances {
		r.drawInstance(&r.scn.instances[i])
	}
	if r.cfg.Options.Contacts {
		r.drawContacts()
	}
	if r.cfg.Options.Frames {
		r.drawFrames()
	}
	r.gfx.readPixels(dst)
	return nil
}

// Close releases the scene, the render context and the graphics context, in
// that order.
func (r *Renderer) Close() error {
	if r.closed {
		return teardown.ErrReleased
	}
	r.closed = true
	return r.stack.Release()
}
