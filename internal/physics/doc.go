// Package physics is a small rigid-body engine for headless scene playback.
//
// A [Model] holds the immutable scene: bodies, geoms, joints and actuators.
// A [Data] holds the evolving state: generalized positions (Qpos), velocities
// (Qvel), actuator controls (Ctrl) and applied generalized forces
// (QfrcApplied). [Step] advances a Data by exactly one Model.Timestep.
//
// # Joints
//
// Free joints contribute 7 position coordinates (origin, then a w-x-y-z unit
// quaternion) and 6 velocity coordinates (world linear velocity of the
// origin, then world angular velocity). Hinge and slide joints contribute one
// of each. Only bodies attached to the world may carry a joint; nested bodies
// are welded to their parent.
//
// # Contacts
//
// Moving geoms collide with static planes through a penalty spring-damper
// with viscous friction capped at [ContactFriction] times the normal force.
//
// # Integration
//
// The equations of motion are exposed as a [dynamo.SplitSystem] through
// [Dynamics] and integrated with the integrator named by Model.Integrator:
//
//	m := physics.NewModel()
//	// ... fill m.Bodies, m.Geoms, m.Joints ...
//	if err := m.Compile(); err != nil {
//	    return err
//	}
//	d := physics.NewData(m)
//	for i := 0; i < 1000; i++ {
//	    if err := physics.Step(m, d); err != nil {
//	        return err
//	    }
//	}
package physics
