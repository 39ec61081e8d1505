package scene

import "sort"

// BuiltinPrefix selects a scene compiled into the binary.
const BuiltinPrefix = "builtin:"

// DefaultScene is used when no descriptor is given.
const DefaultScene = BuiltinPrefix + "box"

var builtins = map[string]string{
	// A box dropped onto a ground plane.
	"box": `<mujoco model="box">
  <option timestep="0.005"/>
  <worldbody>
    <geom name="ground" type="plane" size="0 0 1" rgba="0.8 0.9 0.8 1"/>
    <body name="box" pos="0 0 0.3">
      <freejoint/>
      <geom type="box" size="0.05 0.05 0.05" rgba="0.2 0.4 0.9 1"/>
    </body>
  </worldbody>
</mujoco>`,

	// A motor-driven pendulum; drive it through actuator "motor" or joint "hinge".
	"pendulum": `<mujoco model="pendulum">
  <option timestep="0.002" integrator="RK4"/>
  <worldbody>
    <geom name="ground" type="plane" size="0 0 1" rgba="0.8 0.9 0.8 1"/>
    <geom name="mount" type="box" pos="0 0 1.2" size="0.04 0.1 0.04" rgba="0.3 0.3 0.3 1"/>
    <body name="arm" pos="0 0 1.2" euler="0 30 0">
      <joint name="hinge" type="hinge" axis="0 1 0" damping="0.05"/>
      <geom type="capsule" fromto="0 0 0 0 0 -0.6" size="0.03" rgba="0.9 0.6 0.2 1"/>
      <body name="bob" pos="0 0 -0.6">
        <geom type="sphere" size="0.08" rgba="0.9 0.2 0.2 1"/>
      </body>
    </body>
  </worldbody>
  <actuator>
    <motor name="motor" joint="hinge" gear="5" ctrlrange="-1 1"/>
  </actuator>
</mujoco>`,

	// An unactuated cart on a rail, driven through joint "rail".
	"slider": `<mujoco model="slider">
  <option timestep="0.005"/>
  <worldbody>
    <geom name="ground" type="plane" size="0 0 1" rgba="0.8 0.9 0.8 1"/>
    <geom name="rail" type="box" pos="0 0 0.05" size="1 0.02 0.01" rgba="0.4 0.4 0.4 1"/>
    <body name="cart" pos="0 0 0.1">
      <joint name="rail" type="slide" axis="1 0 0" damping="0.5"/>
      <geom type="box" size="0.1 0.06 0.04" rgba="0.2 0.6 0.3 1"/>
      <body name="mast" pos="0 0 0.1">
        <geom type="cylinder" size="0.015 0.08" rgba="0.7 0.7 0.7 1"/>
      </body>
    </body>
  </worldbody>
</mujoco>`,
}

// Builtins lists the names of the compiled-in scenes.
func Builtins() []string {
	names := make([]string, 0, len(builtins))
	for name := range builtins {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
