package physics

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"github.com/san-kum/dynrec/internal/dynamo"
)

func boxModel(t *testing.T, integrator string) *Model {
	t.Helper()
	m := NewModel()
	m.Timestep = 0.005
	m.Integrator = integrator
	m.Geoms = append(m.Geoms, Geom{Name: "ground", Type: GeomPlane, Body: 0, Quat: mgl64.QuatIdent()})
	m.Bodies = append(m.Bodies, Body{Name: "box", Parent: 0, Pos: mgl64.Vec3{0, 0, 0.3}, Quat: mgl64.QuatIdent(), Joint: 0})
	m.Joints = append(m.Joints, Joint{Type: JointFree, Body: 1})
	m.Geoms = append(m.Geoms, Geom{Type: GeomBox, Body: 1, Size: mgl64.Vec3{0.05, 0.05, 0.05}, Quat: mgl64.QuatIdent()})
	if err := m.Compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}
	return m
}

func hingeModel(t *testing.T) *Model {
	t.Helper()
	m := NewModel()
	m.Timestep = 0.002
	m.Bodies = append(m.Bodies, Body{Name: "arm", Parent: 0, Pos: mgl64.Vec3{0, 0, 1}, Quat: mgl64.QuatIdent(), Joint: 0})
	m.Joints = append(m.Joints, Joint{Name: "hinge", Type: JointHinge, Body: 1, Axis: mgl64.Vec3{0, 1, 0}})
	m.Geoms = append(m.Geoms, Geom{Type: GeomSphere, Body: 1, Size: mgl64.Vec3{0.05}, Pos: mgl64.Vec3{0, 0, -0.5}, Quat: mgl64.QuatIdent(), Mass: 1})
	m.Actuators = append(m.Actuators, Actuator{Name: "motor", Joint: 0, Gear: 1})
	if err := m.Compile(); err != nil {
		t.Fatalf("compile: %v", err)
	}
	return m
}

func TestCompileAddresses(t *testing.T) {
	m := boxModel(t, "Euler")
	if m.Nq != 7 || m.Nv != 6 || m.Nu != 0 {
		t.Errorf("nq/nv/nu = %d/%d/%d, want 7/6/0", m.Nq, m.Nv, m.Nu)
	}
	if math.Abs(m.Bodies[1].Mass-1.0) > 1e-9 {
		t.Errorf("box mass = %v, want 1", m.Bodies[1].Mass)
	}
	if m.Qpos0[2] != 0.3 || m.Qpos0[3] != 1 {
		t.Errorf("qpos0 = %v", m.Qpos0)
	}
}

func TestFreeFall(t *testing.T) {
	for _, integ := range []string{"Euler", "RK4"} {
		t.Run(integ, func(t *testing.T) {
			m := boxModel(t, integ)
			d := NewData(m)
			for i := 0; i < 20; i++ {
				if err := Step(m, d); err != nil {
					t.Fatalf("step %d: %v", i, err)
				}
			}
			want := 0.3 - 0.5*9.81*0.1*0.1
			if math.Abs(d.Qpos[2]-want) > 0.005 {
				t.Errorf("z after 0.1s = %v, want ~%v", d.Qpos[2], want)
			}
			if math.Abs(d.Time-0.1) > 1e-9 {
				t.Errorf("time = %v, want 0.1", d.Time)
			}
		})
	}
}

func TestBoxSettlesOnGround(t *testing.T) {
	m := boxModel(t, "Euler")
	d := NewData(m)
	for i := 0; i < 600; i++ {
		if err := Step(m, d); err != nil {
			t.Fatalf("step %d: %v", i, err)
		}
	}
	if z := d.Qpos[2]; z < 0.035 || z > 0.06 {
		t.Errorf("resting height = %v, want about 0.05", z)
	}
	speed := math.Sqrt(d.Qvel[0]*d.Qvel[0] + d.Qvel[1]*d.Qvel[1] + d.Qvel[2]*d.Qvel[2])
	if speed > 0.05 {
		t.Errorf("box still moving at %v m/s", speed)
	}
	quat := mgl64.Quat{W: d.Qpos[3], V: mgl64.Vec3{d.Qpos[4], d.Qpos[5], d.Qpos[6]}}
	if math.Abs(quat.Len()-1) > 1e-9 {
		t.Errorf("quaternion norm = %v", quat.Len())
	}
	if len(d.Contacts) == 0 {
		t.Error("expected active contacts at rest")
	}
}

func TestHingeActuatorAndAppliedForce(t *testing.T) {
	m := hingeModel(t)

	d := NewData(m)
	d.Ctrl[0] = 1
	if err := Step(m, d); err != nil {
		t.Fatal(err)
	}
	if d.Qvel[0] <= 0 {
		t.Errorf("positive motor torque should spin positively, got %v", d.Qvel[0])
	}

	applied := NewData(m)
	applied.QfrcApplied[0] = -1
	if err := Step(m, applied); err != nil {
		t.Fatal(err)
	}
	if applied.Qvel[0] >= 0 {
		t.Errorf("negative applied force should spin negatively, got %v", applied.Qvel[0])
	}
}

func TestHingePendulumSwingsBack(t *testing.T) {
	m := hingeModel(t)
	d := NewData(m)
	d.Qpos[0] = 0.3
	maxAngle := 0.0
	minAngle := 0.0
	for i := 0; i < 1000; i++ {
		if err := Step(m, d); err != nil {
			t.Fatal(err)
		}
		maxAngle = math.Max(maxAngle, d.Qpos[0])
		minAngle = math.Min(minAngle, d.Qpos[0])
	}
	if minAngle > -0.25 || maxAngle > 0.31 {
		t.Errorf("pendulum range [%v, %v], want about [-0.3, 0.3]", minAngle, maxAngle)
	}
}

func TestDivergenceReported(t *testing.T) {
	m := hingeModel(t)
	d := NewData(m)
	d.QfrcApplied[0] = math.Inf(1)
	before := d.Qpos[0]

	err := Step(m, d)
	var simErr *dynamo.SimulationError
	if !errors.As(err, &simErr) {
		t.Fatalf("expected SimulationError, got %v", err)
	}
	if !errors.Is(err, dynamo.ErrUnstable) {
		t.Error("expected ErrUnstable")
	}
	if d.Qpos[0] != before || d.Steps() != 0 {
		t.Error("failed step must leave state untouched")
	}
}

func TestCompileRejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(m *Model)
		want   string
	}{
		{"timestep", func(m *Model) { m.Timestep = 0 }, "timestep"},
		{"duplicate joint", func(m *Model) {
			m.Bodies = append(m.Bodies, Body{Name: "b2", Parent: 0, Quat: mgl64.QuatIdent(), Joint: 1})
			m.Joints = append(m.Joints, Joint{Name: "hinge", Type: JointHinge, Body: 2, Axis: mgl64.Vec3{1, 0, 0}})
		}, "repeated joint"},
		{"zero axis", func(m *Model) { m.Joints[0].Axis = mgl64.Vec3{} }, "axis"},
		{"massless", func(m *Model) { m.Geoms[0].Type = GeomPlane }, "planes must be static"},
		{"bad sphere", func(m *Model) { m.Geoms[0].Size = mgl64.Vec3{} }, "radius"},
		{"actuator joint", func(m *Model) { m.Actuators[0].Joint = 4 }, "unknown joint"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewModel()
			m.Bodies = append(m.Bodies, Body{Name: "arm", Parent: 0, Quat: mgl64.QuatIdent(), Joint: 0})
			m.Joints = append(m.Joints, Joint{Name: "hinge", Type: JointHinge, Body: 1, Axis: mgl64.Vec3{0, 1, 0}})
			m.Geoms = append(m.Geoms, Geom{Type: GeomSphere, Body: 1, Size: mgl64.Vec3{0.1}, Quat: mgl64.QuatIdent()})
			m.Actuators = append(m.Actuators, Actuator{Name: "motor", Joint: 0})
			tt.mutate(m)

			err := m.Compile()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Compile() = %v, want error containing %q", err, tt.want)
			}
		})
	}
}

func TestLookups(t *testing.T) {
	m := hingeModel(t)
	if m.ActuatorID("motor") != 0 || m.ActuatorID("missing") != -1 {
		t.Error("actuator lookup")
	}
	if m.JointDOF("hinge") != 0 || m.JointDOF("missing") != -1 {
		t.Error("joint lookup")
	}
	if m.BodyID("arm") != 1 {
		t.Error("body lookup")
	}
}

func TestActuatorCtrlRange(t *testing.T) {
	a := Actuator{Gear: 2, CtrlLimited: true, CtrlRange: [2]float64{-0.5, 0.5}}
	if got := a.Force(3); got != 1 {
		t.Errorf("Force(3) = %v, want 1", got)
	}
	if got := a.Force(-0.25); got != -0.5 {
		t.Errorf("Force(-0.25) = %v, want -0.5", got)
	}
}
