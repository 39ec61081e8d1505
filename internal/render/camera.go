package render

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/dynrec/internal/physics"
)

// Camera orbits Lookat at Distance. Azimuth and Elevation are in degrees;
// an elevation of -45 looks down at 45 degrees.
type Camera struct {
	Lookat    mgl64.Vec3
	Distance  float64
	Azimuth   float64
	Elevation float64
	FovY      float64
}

const (
	DefaultAzimuth   = 90.0
	DefaultElevation = -45.0
	DefaultFovY      = 45.0
)

// DefaultCamera frames the whole model at its initial configuration.
func DefaultCamera(m *physics.Model) Camera {
	center, radius := m.Bounds()
	cam := Camera{
		Lookat:    center,
		Azimuth:   DefaultAzimuth,
		Elevation: DefaultElevation,
		FovY:      DefaultFovY,
	}
	cam.Distance = 1.3 * radius / math.Sin(mgl64.DegToRad(cam.FovY)/2)
	return cam
}

// Eye is the camera position in world coordinates.
func (c Camera) Eye() mgl64.Vec3 {
	az := mgl64.DegToRad(c.Azimuth)
	el := mgl64.DegToRad(math.Max(-89, math.Min(89, c.Elevation)))
	forward := mgl64.Vec3{math.Cos(el) * math.Cos(az), math.Cos(el) * math.Sin(az), math.Sin(el)}
	return c.Lookat.Sub(forward.Mul(c.Distance))
}

// ViewProjection maps world coordinates to clip space for the given aspect
// ratio. farExtent is the farthest distance from Lookat that must stay
// visible.
func (c Camera) ViewProjection(aspect, farExtent float64) mgl64.Mat4 {
	fovy := c.FovY
	if fovy <= 0 {
		fovy = DefaultFovY
	}
	near := math.Max(1e-3, c.Distance*0.01)
	far := c.Distance + farExtent
	view := mgl64.LookAtV(c.Eye(), c.Lookat, mgl64.Vec3{0, 0, 1})
	return mgl64.Perspective(mgl64.DegToRad(fovy), aspect, near, far).Mul4(view)
}

// Override returns c with the fields set in o. Azimuth and Elevation always
// apply; Lookat applies when non-zero, Distance and FovY when positive.
func (c Camera) Override(o Camera) Camera {
	c.Azimuth, c.Elevation = o.Azimuth, o.Elevation
	if o.Lookat != (mgl64.Vec3{}) {
		c.Lookat = o.Lookat
	}
	if o.Distance > 0 {
		c.Distance = o.Distance
	}
	if o.FovY > 0 {
		c.FovY = o.FovY
	}
	return c
}
