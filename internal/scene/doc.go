// Package scene loads scene descriptions into immutable physics models.
//
// A descriptor is one of:
//
//   - inline MJCF text, recognized by a leading '<'
//   - "builtin:<name>" for a scene compiled into the binary (see [Builtins])
//   - a path to an MJCF file
//
// The accepted MJCF subset covers option (timestep, gravity, integrator),
// worldbody geoms and bodies with pos/quat/euler, freejoint and single
// hinge or slide joints on bodies attached to the world, geoms of type plane,
// sphere, capsule, box and cylinder (size or fromto, rgba, mass, density),
// inertial overrides, and motor actuators.
//
// Every rejection is reported as a [dynamo.LoadError] whose diagnostic is
// never empty and never longer than [dynamo.MaxDiagnostic] bytes.
package scene
