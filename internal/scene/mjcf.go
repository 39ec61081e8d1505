package scene

import (
	"encoding/xml"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/dynrec/internal/physics"
)

type mjcfDoc struct {
	XMLName   xml.Name      `xml:"mujoco"`
	Model     string        `xml:"model,attr"`
	Option    *mjcfOption   `xml:"option"`
	Worldbody mjcfWorld     `xml:"worldbody"`
	Actuator  *mjcfActuator `xml:"actuator"`
}

type mjcfOption struct {
	Timestep   string `xml:"timestep,attr"`
	Gravity    string `xml:"gravity,attr"`
	Integrator string `xml:"integrator,attr"`
}

type mjcfWorld struct {
	Geoms  []mjcfGeom `xml:"geom"`
	Bodies []mjcfBody `xml:"body"`
}

type mjcfBody struct {
	Name      string        `xml:"name,attr"`
	Pos       string        `xml:"pos,attr"`
	Quat      string        `xml:"quat,attr"`
	Euler     string        `xml:"euler,attr"`
	Joints    []mjcfJoint   `xml:"joint"`
	FreeJoint []mjcfJoint   `xml:"freejoint"`
	Inertial  *mjcfInertial `xml:"inertial"`
	Geoms     []mjcfGeom    `xml:"geom"`
	Bodies    []mjcfBody    `xml:"body"`
}

type mjcfJoint struct {
	Name    string `xml:"name,attr"`
	Type    string `xml:"type,attr"`
	Axis    string `xml:"axis,attr"`
	Pos     string `xml:"pos,attr"`
	Damping string `xml:"damping,attr"`
}

type mjcfInertial struct {
	Mass        string `xml:"mass,attr"`
	Pos         string `xml:"pos,attr"`
	DiagInertia string `xml:"diaginertia,attr"`
}

type mjcfGeom struct {
	Name    string `xml:"name,attr"`
	Type    string `xml:"type,attr"`
	Size    string `xml:"size,attr"`
	Pos     string `xml:"pos,attr"`
	Quat    string `xml:"quat,attr"`
	Euler   string `xml:"euler,attr"`
	FromTo  string `xml:"fromto,attr"`
	RGBA    string `xml:"rgba,attr"`
	Mass    string `xml:"mass,attr"`
	Density string `xml:"density,attr"`
}

type mjcfActuator struct {
	Motors []mjcfMotor `xml:"motor"`
}

type mjcfMotor struct {
	Name        string `xml:"name,attr"`
	Joint       string `xml:"joint,attr"`
	Gear        string `xml:"gear,attr"`
	CtrlRange   string `xml:"ctrlrange,attr"`
	CtrlLimited string `xml:"ctrllimited,attr"`
}

// parseMJCF decodes and compiles an MJCF document into a physics model.
func parseMJCF(data []byte) (*physics.Model, error) {
	var doc mjcfDoc
	if err := xml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("XML parse error: %w", err)
	}

	m := physics.NewModel()
	if err := applyOption(m, doc.Option); err != nil {
		return nil, err
	}

	for i := range doc.Worldbody.Geoms {
		g, err := buildGeom(&doc.Worldbody.Geoms[i], 0)
		if err != nil {
			return nil, err
		}
		m.Geoms = append(m.Geoms, g)
	}
	for i := range doc.Worldbody.Bodies {
		if err := addBody(m, &doc.Worldbody.Bodies[i], 0); err != nil {
			return nil, err
		}
	}

	if doc.Actuator != nil {
		for i := range doc.Actuator.Motors {
			a, err := buildMotor(m, &doc.Actuator.Motors[i])
			if err != nil {
				return nil, err
			}
			m.Actuators = append(m.Actuators, a)
		}
	}

	if err := m.Compile(); err != nil {
		return nil, err
	}
	return m, nil
}

func applyOption(m *physics.Model, opt *mjcfOption) error {
	if opt == nil {
		return nil
	}
	if opt.Timestep != "" {
		ts, err := parseFloat("option timestep", opt.Timestep)
		if err != nil {
			return err
		}
		m.Timestep = ts
	}
	if opt.Gravity != "" {
		g, err := parseVec3("option gravity", opt.Gravity)
		if err != nil {
			return err
		}
		m.Gravity = g
	}
	switch opt.Integrator {
	case "":
	case "Euler", "RK4":
		m.Integrator = opt.Integrator
	default:
		return fmt.Errorf("option integrator: unsupported integrator %q", opt.Integrator)
	}
	return nil
}

func addBody(m *physics.Model, src *mjcfBody, parent int) error {
	label := src.Name
	if label == "" {
		label = fmt.Sprintf("#%d", len(m.Bodies))
	}
	pos, err := parseVec3("body "+label+" pos", src.Pos)
	if err != nil {
		return err
	}
	quat, err := parseOrientation("body "+label, src.Quat, src.Euler)
	if err != nil {
		return err
	}

	id := len(m.Bodies)
	body := physics.Body{Name: src.Name, Parent: parent, Pos: pos, Quat: quat, Joint: -1}

	joints := append(append([]mjcfJoint{}, src.FreeJoint...), src.Joints...)
	for k := range src.FreeJoint {
		joints[k].Type = "free"
	}
	if len(joints) > 1 {
		return fmt.Errorf("body %s: multiple joints per body are not supported", label)
	}
	if len(joints) == 1 {
		if parent != 0 {
			return fmt.Errorf("body %s: joints are only supported on bodies attached to the world", label)
		}
		j, err := buildJoint(&joints[0], id)
		if err != nil {
			return err
		}
		body.Joint = len(m.Joints)
		m.Joints = append(m.Joints, j)
	}

	if src.Inertial != nil {
		if err := applyInertial(&body, src.Inertial, label); err != nil {
			return err
		}
	}
	m.Bodies = append(m.Bodies, body)

	for i := range src.Geoms {
		g, err := buildGeom(&src.Geoms[i], id)
		if err != nil {
			return err
		}
		m.Geoms = append(m.Geoms, g)
	}
	for i := range src.Bodies {
		if err := addBody(m, &src.Bodies[i], id); err != nil {
			return err
		}
	}
	return nil
}

func buildJoint(src *mjcfJoint, body int) (physics.Joint, error) {
	label := src.Name
	if label == "" {
		label = "(unnamed)"
	}
	jt, err := physics.ParseJointType(src.Type)
	if err != nil {
		return physics.Joint{}, fmt.Errorf("joint %s: %w", label, err)
	}
	j := physics.Joint{Name: src.Name, Type: jt, Body: body, Axis: mgl64.Vec3{0, 0, 1}}
	if src.Axis != "" {
		if j.Axis, err = parseVec3("joint "+label+" axis", src.Axis); err != nil {
			return j, err
		}
	}
	if j.Pos, err = parseVec3("joint "+label+" pos", src.Pos); err != nil {
		return j, err
	}
	if src.Damping != "" {
		if j.Damping, err = parseFloat("joint "+label+" damping", src.Damping); err != nil {
			return j, err
		}
	}
	return j, nil
}

func applyInertial(b *physics.Body, src *mjcfInertial, label string) error {
	mass, err := parseFloat("body "+label+" inertial mass", src.Mass)
	if err != nil {
		return err
	}
	if mass <= 0 {
		return fmt.Errorf("body %s: inertial mass must be positive", label)
	}
	pos, err := parseVec3("body "+label+" inertial pos", src.Pos)
	if err != nil {
		return err
	}
	diag, err := parseVec3("body "+label+" diaginertia", src.DiagInertia)
	if err != nil {
		return err
	}
	if diag[0] <= 0 || diag[1] <= 0 || diag[2] <= 0 {
		return fmt.Errorf("body %s: diaginertia must be positive", label)
	}
	b.InertialMass, b.InertialPos, b.InertialDiag = mass, pos, diag
	return nil
}

func buildGeom(src *mjcfGeom, body int) (physics.Geom, error) {
	label := src.Name
	if label == "" {
		label = "(unnamed)"
	}
	gt, err := physics.ParseGeomType(src.Type)
	if err != nil {
		return physics.Geom{}, fmt.Errorf("geom %s: %w", label, err)
	}
	g := physics.Geom{Name: src.Name, Type: gt, Body: body}

	size, err := parseFloats("geom "+label+" size", src.Size, 0, 3)
	if err != nil {
		return g, err
	}
	copy(g.Size[:], size)

	if src.FromTo != "" {
		if gt != physics.GeomCapsule && gt != physics.GeomCylinder && gt != physics.GeomBox {
			return g, fmt.Errorf("geom %s: fromto requires capsule, cylinder or box", label)
		}
		ft, err := parseFloats("geom "+label+" fromto", src.FromTo, 6, 6)
		if err != nil {
			return g, err
		}
		from, to := mgl64.Vec3{ft[0], ft[1], ft[2]}, mgl64.Vec3{ft[3], ft[4], ft[5]}
		axis := to.Sub(from)
		if axis.Len() < 1e-12 {
			return g, fmt.Errorf("geom %s: fromto endpoints coincide", label)
		}
		g.Pos = from.Add(to).Mul(0.5)
		g.Quat = mgl64.QuatBetweenVectors(mgl64.Vec3{0, 0, 1}, axis)
		if gt == physics.GeomBox {
			g.Size[2] = axis.Len() / 2
		} else {
			g.Size[1] = axis.Len() / 2
		}
	} else {
		if g.Pos, err = parseVec3("geom "+label+" pos", src.Pos); err != nil {
			return g, err
		}
		if g.Quat, err = parseOrientation("geom "+label, src.Quat, src.Euler); err != nil {
			return g, err
		}
	}

	if src.RGBA != "" {
		rgba, err := parseFloats("geom "+label+" rgba", src.RGBA, 4, 4)
		if err != nil {
			return g, err
		}
		for i, c := range rgba {
			g.RGBA[i] = float32(c)
		}
	}
	if src.Mass != "" {
		if g.Mass, err = parseFloat("geom "+label+" mass", src.Mass); err != nil {
			return g, err
		}
	}
	if src.Density != "" {
		if g.Density, err = parseFloat("geom "+label+" density", src.Density); err != nil {
			return g, err
		}
	}
	return g, nil
}

func buildMotor(m *physics.Model, src *mjcfMotor) (physics.Actuator, error) {
	label := src.Name
	if label == "" {
		label = "(unnamed)"
	}
	joint := m.JointID(src.Joint)
	if joint < 0 {
		return physics.Actuator{}, fmt.Errorf("motor %s: unknown joint %q", label, src.Joint)
	}
	a := physics.Actuator{Name: src.Name, Joint: joint, Gear: 1}
	if src.Gear != "" {
		gear, err := parseFloats("motor "+label+" gear", src.Gear, 1, 6)
		if err != nil {
			return a, err
		}
		a.Gear = gear[0]
	}
	if src.CtrlRange != "" {
		r, err := parseFloats("motor "+label+" ctrlrange", src.CtrlRange, 2, 2)
		if err != nil {
			return a, err
		}
		a.CtrlRange = [2]float64{r[0], r[1]}
		a.CtrlLimited = src.CtrlLimited != "false"
	}
	return a, nil
}

func parseFloat(what, s string) (float64, error) {
	v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s: invalid number %q", what, s)
	}
	return v, nil
}

// parseFloats reads a whitespace-separated list of between min and max
// numbers. An empty string yields an empty list when min is zero.
func parseFloats(what, s string, min, max int) ([]float64, error) {
	fields := strings.Fields(s)
	if len(fields) < min || len(fields) > max {
		return nil, fmt.Errorf("%s: expected %d to %d numbers, got %d", what, min, max, len(fields))
	}
	out := make([]float64, len(fields))
	for i, f := range fields {
		v, err := parseFloat(what, f)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func parseVec3(what, s string) (mgl64.Vec3, error) {
	if strings.TrimSpace(s) == "" {
		return mgl64.Vec3{}, nil
	}
	v, err := parseFloats(what, s, 3, 3)
	if err != nil {
		return mgl64.Vec3{}, err
	}
	return mgl64.Vec3{v[0], v[1], v[2]}, nil
}

// parseOrientation accepts either a w-x-y-z quaternion or XYZ Euler angles
// in degrees.
func parseOrientation(what, quat, euler string) (mgl64.Quat, error) {
	if quat != "" && euler != "" {
		return mgl64.Quat{}, fmt.Errorf("%s: quat and euler are mutually exclusive", what)
	}
	if quat != "" {
		q, err := parseFloats(what+" quat", quat, 4, 4)
		if err != nil {
			return mgl64.Quat{}, err
		}
		out := mgl64.Quat{W: q[0], V: mgl64.Vec3{q[1], q[2], q[3]}}
		if out.Len() < 1e-12 {
			return mgl64.Quat{}, fmt.Errorf("%s: quat must be non-zero", what)
		}
		return out.Normalize(), nil
	}
	if euler != "" {
		e, err := parseVec3(what+" euler", euler)
		if err != nil {
			return mgl64.Quat{}, err
		}
		return mgl64.AnglesToQuat(mgl64.DegToRad(e[0]), mgl64.DegToRad(e[1]), mgl64.DegToRad(e[2]), mgl64.XYZ), nil
	}
	return mgl64.QuatIdent(), nil
}
