package physics

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

type GeomType int

const (
	GeomPlane GeomType = iota
	GeomSphere
	GeomCapsule
	GeomBox
	GeomCylinder
)

var geomNames = map[string]GeomType{
	"plane":    GeomPlane,
	"sphere":   GeomSphere,
	"capsule":  GeomCapsule,
	"box":      GeomBox,
	"cylinder": GeomCylinder,
}

func ParseGeomType(s string) (GeomType, error) {
	if s == "" {
		return GeomSphere, nil
	}
	t, ok := geomNames[s]
	if !ok {
		return 0, fmt.Errorf("unknown geom type %q", s)
	}
	return t, nil
}

func (g GeomType) String() string {
	for name, t := range geomNames {
		if t == g {
			return name
		}
	}
	return "unknown"
}

type JointType int

const (
	JointFree JointType = iota
	JointHinge
	JointSlide
)

func ParseJointType(s string) (JointType, error) {
	switch s {
	case "", "hinge":
		return JointHinge, nil
	case "slide":
		return JointSlide, nil
	case "free":
		return JointFree, nil
	default:
		return 0, fmt.Errorf("unsupported joint type %q", s)
	}
}

func (j JointType) String() string {
	switch j {
	case JointFree:
		return "free"
	case JointHinge:
		return "hinge"
	case JointSlide:
		return "slide"
	default:
		return "unknown"
	}
}

func (j JointType) qposSize() int {
	if j == JointFree {
		return 7
	}
	return 1
}

func (j JointType) dofSize() int {
	if j == JointFree {
		return 6
	}
	return 1
}

// Body is a rigid frame. Only bodies attached directly to the world may carry
// a joint; deeper bodies are welded to their parent and share its root.
type Body struct {
	Name   string
	Parent int
	Root   int
	Pos    mgl64.Vec3 // relative to parent
	Quat   mgl64.Quat // relative to parent
	Joint  int

	// Explicit inertial properties; zero mass means derive from geoms.
	InertialMass float64
	InertialPos  mgl64.Vec3
	InertialDiag mgl64.Vec3

	// Compiled, root bodies only, expressed in the root frame.
	Mass    float64
	COM     mgl64.Vec3
	Inertia mgl64.Mat3

	// Compiled pose relative to the root body.
	rootPos  mgl64.Vec3
	rootQuat mgl64.Quat
}

type Geom struct {
	Name    string
	Type    GeomType
	Body    int
	Size    mgl64.Vec3
	Pos     mgl64.Vec3 // relative to body
	Quat    mgl64.Quat // relative to body
	RGBA    [4]float32
	Mass    float64
	Density float64

	// Compiled pose relative to the root body.
	LocalPos  mgl64.Vec3
	LocalQuat mgl64.Quat
}

// Static reports whether the geom never moves.
func (g *Geom) Static(m *Model) bool {
	return m.Bodies[m.Bodies[g.Body].Root].Joint < 0
}

// Radius is a bounding radius about the geom origin. Planes report zero.
func (g *Geom) Radius() float64 {
	switch g.Type {
	case GeomSphere:
		return g.Size[0]
	case GeomCapsule:
		return g.Size[0] + g.Size[1]
	case GeomBox:
		return g.Size.Len()
	case GeomCylinder:
		return math.Hypot(g.Size[0], g.Size[1])
	default:
		return 0
	}
}

type Joint struct {
	Name    string
	Type    JointType
	Body    int
	Axis    mgl64.Vec3 // body frame
	Pos     mgl64.Vec3 // anchor, body frame
	Damping float64
	QposAdr int
	DofAdr  int
}

type Actuator struct {
	Name        string
	Joint       int
	Gear        float64
	CtrlLimited bool
	CtrlRange   [2]float64
}

// Force maps a control value to the generalized force on the actuated dof.
func (a *Actuator) Force(ctrl float64) float64 {
	if a.CtrlLimited {
		ctrl = math.Max(a.CtrlRange[0], math.Min(a.CtrlRange[1], ctrl))
	}
	return ctrl * a.Gear
}

// Model is the immutable description of a scene. Build one by filling the
// tables and calling Compile.
type Model struct {
	Timestep   float64
	Gravity    mgl64.Vec3
	Integrator string

	Bodies    []Body
	Geoms     []Geom
	Joints    []Joint
	Actuators []Actuator

	Nq, Nv, Nu int
	Qpos0      []float64
}

const (
	DefaultTimestep = 0.002
	DefaultDensity  = 1000.0
)

// NewModel returns an empty model holding only the world body.
func NewModel() *Model {
	return &Model{
		Timestep:   DefaultTimestep,
		Gravity:    mgl64.Vec3{0, 0, -9.81},
		Integrator: "Euler",
		Bodies: []Body{{
			Name:  "world",
			Quat:  mgl64.QuatIdent(),
			Joint: -1,
		}},
	}
}

func (m *Model) BodyID(name string) int {
	for i := range m.Bodies {
		if m.Bodies[i].Name == name {
			return i
		}
	}
	return -1
}

func (m *Model) GeomID(name string) int {
	for i := range m.Geoms {
		if name != "" && m.Geoms[i].Name == name {
			return i
		}
	}
	return -1
}

func (m *Model) JointID(name string) int {
	for i := range m.Joints {
		if name != "" && m.Joints[i].Name == name {
			return i
		}
	}
	return -1
}

func (m *Model) ActuatorID(name string) int {
	for i := range m.Actuators {
		if name != "" && m.Actuators[i].Name == name {
			return i
		}
	}
	return -1
}

// JointDOF returns the first velocity index of the named joint, or -1.
func (m *Model) JointDOF(name string) int {
	id := m.JointID(name)
	if id < 0 {
		return -1
	}
	return m.Joints[id].DofAdr
}

// Compile validates the tables, assigns state addresses and computes the
// inertial properties of every moving body.
func (m *Model) Compile() error {
	if !(m.Timestep > 0) || math.IsInf(m.Timestep, 0) {
		return fmt.Errorf("timestep must be positive, got %g", m.Timestep)
	}
	if err := m.checkNames(); err != nil {
		return err
	}

	for i := 1; i < len(m.Bodies); i++ {
		b := &m.Bodies[i]
		if b.Parent < 0 || b.Parent >= i {
			return fmt.Errorf("body %q: invalid parent", b.Name)
		}
		b.Quat = b.Quat.Normalize()
		if b.Parent == 0 {
			b.Root = i
			b.rootPos = mgl64.Vec3{}
			b.rootQuat = mgl64.QuatIdent()
			continue
		}
		p := &m.Bodies[b.Parent]
		if b.Joint >= 0 {
			return fmt.Errorf("body %q: joints are only supported on bodies attached to the world", b.Name)
		}
		b.Root = p.Root
		b.rootPos = p.rootPos.Add(p.rootQuat.Rotate(b.Pos))
		b.rootQuat = p.rootQuat.Mul(b.Quat).Normalize()
	}
	m.Bodies[0].Root = 0
	m.Bodies[0].rootQuat = mgl64.QuatIdent()

	m.Nq, m.Nv = 0, 0
	m.Qpos0 = m.Qpos0[:0]
	for i := range m.Joints {
		j := &m.Joints[i]
		if j.Body <= 0 || j.Body >= len(m.Bodies) {
			return fmt.Errorf("joint %q: invalid body", j.Name)
		}
		if m.Bodies[j.Body].Joint != i {
			return fmt.Errorf("joint %q: body %q has more than one joint", j.Name, m.Bodies[j.Body].Name)
		}
		if j.Type != JointFree {
			if j.Axis.Len() < 1e-12 {
				return fmt.Errorf("joint %q: axis must be non-zero", j.Name)
			}
			j.Axis = j.Axis.Normalize()
		}
		if j.Damping < 0 {
			return fmt.Errorf("joint %q: damping must be non-negative", j.Name)
		}
		j.QposAdr = m.Nq
		j.DofAdr = m.Nv
		m.Nq += j.Type.qposSize()
		m.Nv += j.Type.dofSize()
		if j.Type == JointFree {
			b := m.Bodies[j.Body]
			m.Qpos0 = append(m.Qpos0, b.Pos[0], b.Pos[1], b.Pos[2], b.Quat.W, b.Quat.V[0], b.Quat.V[1], b.Quat.V[2])
		} else {
			m.Qpos0 = append(m.Qpos0, 0)
		}
	}

	for i := range m.Geoms {
		if err := m.compileGeom(i); err != nil {
			return err
		}
	}

	for i := range m.Actuators {
		a := &m.Actuators[i]
		if a.Joint < 0 || a.Joint >= len(m.Joints) {
			return fmt.Errorf("actuator %q: unknown joint", a.Name)
		}
		if m.Joints[a.Joint].Type == JointFree {
			return fmt.Errorf("actuator %q: motors on free joints are not supported", a.Name)
		}
		if a.Gear == 0 {
			a.Gear = 1
		}
		if a.CtrlLimited && a.CtrlRange[0] > a.CtrlRange[1] {
			return fmt.Errorf("actuator %q: invalid ctrlrange", a.Name)
		}
	}
	m.Nu = len(m.Actuators)

	if err := m.computeInertia(); err != nil {
		return err
	}
	return nil
}

func (m *Model) checkNames() error {
	seen := map[string]string{}
	check := func(kind, name string) error {
		if name == "" {
			return nil
		}
		key := kind + ":" + name
		if _, dup := seen[key]; dup {
			return fmt.Errorf("repeated %s name %q", kind, name)
		}
		seen[key] = name
		return nil
	}
	for _, b := range m.Bodies {
		if err := check("body", b.Name); err != nil {
			return err
		}
	}
	for _, g := range m.Geoms {
		if err := check("geom", g.Name); err != nil {
			return err
		}
	}
	for _, j := range m.Joints {
		if err := check("joint", j.Name); err != nil {
			return err
		}
	}
	for _, a := range m.Actuators {
		if err := check("actuator", a.Name); err != nil {
			return err
		}
	}
	return nil
}

func (m *Model) compileGeom(i int) error {
	g := &m.Geoms[i]
	label := g.Name
	if label == "" {
		label = fmt.Sprintf("#%d", i)
	}
	if g.Body < 0 || g.Body >= len(m.Bodies) {
		return fmt.Errorf("geom %s: invalid body", label)
	}
	switch g.Type {
	case GeomPlane:
		if g.Body != 0 && m.Bodies[m.Bodies[g.Body].Root].Joint >= 0 {
			return fmt.Errorf("geom %s: planes must be static", label)
		}
	case GeomSphere:
		if !(g.Size[0] > 0) {
			return fmt.Errorf("geom %s: sphere radius must be positive", label)
		}
	case GeomCapsule, GeomCylinder:
		if !(g.Size[0] > 0) || !(g.Size[1] > 0) {
			return fmt.Errorf("geom %s: %s size must be positive", label, g.Type)
		}
	case GeomBox:
		if !(g.Size[0] > 0) || !(g.Size[1] > 0) || !(g.Size[2] > 0) {
			return fmt.Errorf("geom %s: box size must be positive", label)
		}
	}
	if g.Density == 0 {
		g.Density = DefaultDensity
	}
	if g.Mass < 0 || g.Density < 0 {
		return fmt.Errorf("geom %s: mass and density must be non-negative", label)
	}
	if g.RGBA == [4]float32{} {
		g.RGBA = [4]float32{0.5, 0.5, 0.5, 1}
	}
	g.Quat = g.Quat.Normalize()
	b := m.Bodies[g.Body]
	g.LocalPos = b.rootPos.Add(b.rootQuat.Rotate(g.Pos))
	g.LocalQuat = b.rootQuat.Mul(g.Quat).Normalize()
	return nil
}

// massElement is a point mass distribution in the root frame.
type massElement struct {
	mass    float64
	pos     mgl64.Vec3
	inertia mgl64.Mat3 // about pos, root frame
}

func (m *Model) computeInertia() error {
	elements := make([][]massElement, len(m.Bodies))
	explicit := make([]bool, len(m.Bodies))

	for i := 1; i < len(m.Bodies); i++ {
		b := &m.Bodies[i]
		if b.InertialMass <= 0 {
			continue
		}
		explicit[i] = true
		rot := b.rootQuat.Mat4().Mat3()
		local := mgl64.Diag3(b.InertialDiag)
		elements[b.Root] = append(elements[b.Root], massElement{
			mass:    b.InertialMass,
			pos:     b.rootPos.Add(b.rootQuat.Rotate(b.InertialPos)),
			inertia: rot.Mul3(local).Mul3(rot.Transpose()),
		})
	}

	for i := range m.Geoms {
		g := &m.Geoms[i]
		if g.Body == 0 || explicit[g.Body] || g.Type == GeomPlane {
			continue
		}
		mass, diag := geomInertia(g)
		rot := g.LocalQuat.Mat4().Mat3()
		root := m.Bodies[g.Body].Root
		elements[root] = append(elements[root], massElement{
			mass:    mass,
			pos:     g.LocalPos,
			inertia: rot.Mul3(mgl64.Diag3(diag)).Mul3(rot.Transpose()),
		})
	}

	for i := 1; i < len(m.Bodies); i++ {
		b := &m.Bodies[i]
		if b.Root != i {
			continue
		}
		total := 0.0
		com := mgl64.Vec3{}
		for _, e := range elements[i] {
			total += e.mass
			com = com.Add(e.pos.Mul(e.mass))
		}
		if total > 0 {
			com = com.Mul(1 / total)
		}
		inertia := mgl64.Mat3{}
		for _, e := range elements[i] {
			d := e.pos.Sub(com)
			shift := mgl64.Ident3().Mul(d.LenSqr()).Sub(d.OuterProd3(d)).Mul(e.mass)
			inertia = inertia.Add(e.inertia).Add(shift)
		}
		b.Mass = total
		b.COM = com
		b.Inertia = inertia

		if b.Joint >= 0 {
			if total <= 0 {
				return fmt.Errorf("body %q: mass and inertia of moving bodies must be positive", b.Name)
			}
			if m.Joints[b.Joint].Type == JointFree && math.Abs(inertia.Det()) < 1e-18 {
				return fmt.Errorf("body %q: inertia of a free body must be positive definite", b.Name)
			}
		}
	}
	return nil
}

// geomInertia returns the mass and principal inertia of a solid geom in its
// own frame.
func geomInertia(g *Geom) (float64, mgl64.Vec3) {
	r, h := g.Size[0], g.Size[1]
	var volume float64
	switch g.Type {
	case GeomSphere:
		volume = 4.0 / 3.0 * math.Pi * r * r * r
	case GeomCapsule:
		volume = math.Pi*r*r*2*h + 4.0/3.0*math.Pi*r*r*r
	case GeomCylinder:
		volume = math.Pi * r * r * 2 * h
	case GeomBox:
		volume = 8 * g.Size[0] * g.Size[1] * g.Size[2]
	}
	mass := g.Mass
	if mass == 0 {
		mass = g.Density * volume
	}

	switch g.Type {
	case GeomSphere:
		i := 0.4 * mass * r * r
		return mass, mgl64.Vec3{i, i, i}
	case GeomCylinder:
		ixx := mass * (3*r*r + 4*h*h) / 12
		return mass, mgl64.Vec3{ixx, ixx, 0.5 * mass * r * r}
	case GeomCapsule:
		vc := math.Pi * r * r * 2 * h
		mc := mass * vc / volume
		ms := mass - mc
		izz := 0.5*mc*r*r + 0.4*ms*r*r
		ixx := mc*(3*r*r+4*h*h)/12 + ms*(0.4*r*r+h*h+0.75*h*r)
		return mass, mgl64.Vec3{ixx, ixx, izz}
	case GeomBox:
		a, b, c := g.Size[0], g.Size[1], g.Size[2]
		return mass, mgl64.Vec3{mass * (b*b + c*c) / 3, mass * (a*a + c*c) / 3, mass * (a*a + b*b) / 3}
	}
	return 0, mgl64.Vec3{}
}

// Bounds returns a bounding sphere of the geometry at the initial
// configuration. Planes contribute their origin so that the ground stays in
// view.
func (m *Model) Bounds() (mgl64.Vec3, float64) {
	d := NewData(m)
	lo := mgl64.Vec3{math.Inf(1), math.Inf(1), math.Inf(1)}
	hi := mgl64.Vec3{math.Inf(-1), math.Inf(-1), math.Inf(-1)}
	for i := range m.Geoms {
		r := m.Geoms[i].Radius()
		for k := 0; k < 3; k++ {
			lo[k] = math.Min(lo[k], d.GeomPos[i][k]-r)
			hi[k] = math.Max(hi[k], d.GeomPos[i][k]+r)
		}
	}
	if len(m.Geoms) == 0 {
		return mgl64.Vec3{}, 1
	}
	center := lo.Add(hi).Mul(0.5)
	radius := hi.Sub(lo).Len() / 2
	if radius < 1e-3 {
		radius = 1
	}
	return center, radius
}

// Summary is a one-line description of the model dimensions.
func (m *Model) Summary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "bodies=%d geoms=%d joints=%d actuators=%d nq=%d nv=%d timestep=%g",
		len(m.Bodies)-1, len(m.Geoms), len(m.Joints), len(m.Actuators), m.Nq, m.Nv, m.Timestep)
	return b.String()
}
