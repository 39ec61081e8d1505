package config

import "sort"

type Preset struct {
	Description string
	Apply       func(*Config)
}

var Presets = map[string]Preset{
	"offscreen": {
		Description: "box dropped on a plane, 300 frames of 640x480 at 30 fps",
		Apply:       func(*Config) {},
	},
	"pendulum": {
		Description: "motor-driven pendulum swinging on a sine",
		Apply: func(c *Config) {
			c.Scene = "builtin:pendulum"
			c.Actuator = "motor"
			c.Signal = SignalConfig{Waveform: "sine", Amplitude: 1, Period: 90}
			c.StepsPerFrame = 17
		},
	},
	"slider": {
		Description: "cart pushed back and forth along its rail",
		Apply: func(c *Config) {
			c.Scene = "builtin:slider"
			c.Joint = "rail"
			c.Signal = SignalConfig{Waveform: "square", Amplitude: 2, Period: 60}
			c.Render.Frames = true
		},
	},
	"preview": {
		Description: "quick low-resolution still frames",
		Apply: func(c *Config) {
			c.Width, c.Height = 320, 240
			c.FPS = 15
			c.Frames = 45
			c.Sink.Kind = "images"
			c.Render.Contacts = true
		},
	},
}

// GetPreset returns the default configuration with the named preset
// applied, or nil if there is no such preset.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := DefaultConfig()
	p.Apply(cfg)
	return cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
