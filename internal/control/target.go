package control

import "fmt"

type TargetKind int

const (
	TargetNone TargetKind = iota
	TargetActuator
	TargetJoint
)

func (k TargetKind) String() string {
	switch k {
	case TargetActuator:
		return "actuator"
	case TargetJoint:
		return "joint"
	default:
		return "none"
	}
}

// Target is where the control signal is written each tick: an actuator
// control slot, a joint's applied-force slot, or nowhere.
type Target struct {
	Kind  TargetKind
	Index int
	Name  string
}

func (t Target) String() string {
	if t.Kind == TargetNone {
		return "none"
	}
	return fmt.Sprintf("%s %q (slot %d)", t.Kind, t.Name, t.Index)
}

// NameTable resolves scene names to slots, returning -1 when absent.
type NameTable interface {
	ActuatorID(name string) int
	JointDOF(name string) int
}

// Resolve picks the control target once per scene. A named actuator wins over
// a named joint; when neither resolves the target is TargetNone.
func Resolve(names NameTable, actuator, joint string) Target {
	if actuator != "" {
		if id := names.ActuatorID(actuator); id >= 0 {
			return Target{Kind: TargetActuator, Index: id, Name: actuator}
		}
	}
	if joint != "" {
		if dof := names.JointDOF(joint); dof >= 0 {
			return Target{Kind: TargetJoint, Index: dof, Name: joint}
		}
	}
	return Target{Kind: TargetNone, Index: -1}
}
