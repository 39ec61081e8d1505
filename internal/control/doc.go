// Package control produces the per-frame control signal and decides where it
// is applied.
//
// A [Signal] is a pure function of the frame index; the reference waveform is
// a sine of amplitude 0.5 and a 60-frame period:
//
//	sig, _ := control.NewSignal("sine", 0.5, 60)
//	u := sig.Value(frame)
//
// [Resolve] maps actuator and joint names to a [Target] once per scene.
// Actuators take precedence over joints.
package control
