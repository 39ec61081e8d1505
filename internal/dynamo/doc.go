// Package dynamo provides the core primitives shared by the dynrec pipeline.
//
// The package defines the state vector and integration interfaces used by the
// physics engine, together with the error taxonomy every stage reports with:
//
//   - [LoadError]: the scene description was rejected
//   - [ContextError]: an offscreen rendering resource could not be acquired
//   - [SimulationError]: a physics step failed or diverged
//   - [SinkError]: the encoder could not be launched, written to or closed
//
// Every typed error unwraps to its sentinel, so callers can branch with
// errors.Is. [Stage] maps an error to the stage name used in diagnostics and
// [IsSoft] singles out the short write, the one failure that drains the
// pipeline instead of failing it.
package dynamo
