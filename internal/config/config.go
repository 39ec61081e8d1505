package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/dynrec/internal/control"
	"github.com/san-kum/dynrec/internal/pipeline"
	"github.com/san-kum/dynrec/internal/render"
)

const (
	DefaultWidth         = 640
	DefaultHeight        = 480
	DefaultFPS           = 30
	DefaultStepsPerFrame = 10
	DefaultFrames        = 300
	DefaultAmplitude     = 0.5
	DefaultPeriod        = 60.0
	DefaultDataDir       = ".dynrec/runs"

	// EnvPrefix prefixes environment overrides, e.g. DYNREC_SINK_OUTPUT.
	EnvPrefix = "DYNREC"
)

type Config struct {
	Scene         string       `yaml:"scene" mapstructure:"scene"`
	Width         int          `yaml:"width" mapstructure:"width"`
	Height        int          `yaml:"height" mapstructure:"height"`
	FPS           int          `yaml:"fps" mapstructure:"fps"`
	StepsPerFrame int          `yaml:"steps_per_frame" mapstructure:"steps_per_frame"`
	Frames        int          `yaml:"frames" mapstructure:"frames"`
	Actuator      string       `yaml:"actuator" mapstructure:"actuator"`
	Joint         string       `yaml:"joint" mapstructure:"joint"`
	Signal        SignalConfig `yaml:"signal" mapstructure:"signal"`
	Render        RenderConfig `yaml:"render" mapstructure:"render"`
	Sink          SinkConfig   `yaml:"sink" mapstructure:"sink"`
	DataDir       string       `yaml:"data_dir" mapstructure:"data_dir"`
	Record        bool         `yaml:"record" mapstructure:"record"`
	LogLevel      string       `yaml:"log_level" mapstructure:"log_level"`
}

type SignalConfig struct {
	Waveform  string  `yaml:"waveform" mapstructure:"waveform"`
	Amplitude float64 `yaml:"amplitude" mapstructure:"amplitude"`
	Period    float64 `yaml:"period" mapstructure:"period"`
}

type RenderConfig struct {
	Backend  string       `yaml:"backend" mapstructure:"backend"`
	MaxGeom  int          `yaml:"max_geom" mapstructure:"max_geom"`
	Frames   bool         `yaml:"show_frames" mapstructure:"show_frames"`
	Contacts bool         `yaml:"show_contacts" mapstructure:"show_contacts"`
	Camera   CameraConfig `yaml:"camera" mapstructure:"camera"`
}

// CameraConfig adjusts the automatic framing. A zero distance or field of
// view keeps the automatic value.
type CameraConfig struct {
	Azimuth   float64 `yaml:"azimuth" mapstructure:"azimuth"`
	Elevation float64 `yaml:"elevation" mapstructure:"elevation"`
	Distance  float64 `yaml:"distance" mapstructure:"distance"`
	FovY      float64 `yaml:"fovy" mapstructure:"fovy"`
}

type SinkConfig struct {
	Kind      string   `yaml:"kind" mapstructure:"kind"`
	Output    string   `yaml:"output" mapstructure:"output"`
	FFmpeg    string   `yaml:"ffmpeg" mapstructure:"ffmpeg"`
	VFlip     bool     `yaml:"vflip" mapstructure:"vflip"`
	ExtraArgs []string `yaml:"extra_args" mapstructure:"extra_args"`
	ImageDir  string   `yaml:"image_dir" mapstructure:"image_dir"`
}

var sinkKinds = map[string]bool{"ffmpeg": true, "images": true, "gst": true}

var logLevels = map[string]bool{"debug": true, "info": true, "warn": true, "error": true}

// DefaultConfig reproduces the reference offscreen recording.
func DefaultConfig() *Config {
	return &Config{
		Scene:         "builtin:box",
		Width:         DefaultWidth,
		Height:        DefaultHeight,
		FPS:           DefaultFPS,
		StepsPerFrame: DefaultStepsPerFrame,
		Frames:        DefaultFrames,
		Signal: SignalConfig{
			Waveform:  "sine",
			Amplitude: DefaultAmplitude,
			Period:    DefaultPeriod,
		},
		Render: RenderConfig{
			Backend: render.DefaultBackend,
			MaxGeom: render.DefaultMaxGeom,
			Camera: CameraConfig{
				Azimuth:   render.DefaultAzimuth,
				Elevation: render.DefaultElevation,
			},
		},
		Sink: SinkConfig{
			Kind:     "ffmpeg",
			Output:   "output.mp4",
			FFmpeg:   "ffmpeg",
			VFlip:    true,
			ImageDir: "frames",
		},
		DataDir:  DefaultDataDir,
		LogLevel: "info",
	}
}

func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("scene", d.Scene)
	v.SetDefault("width", d.Width)
	v.SetDefault("height", d.Height)
	v.SetDefault("fps", d.FPS)
	v.SetDefault("steps_per_frame", d.StepsPerFrame)
	v.SetDefault("frames", d.Frames)
	v.SetDefault("actuator", d.Actuator)
	v.SetDefault("joint", d.Joint)

	v.SetDefault("signal.waveform", d.Signal.Waveform)
	v.SetDefault("signal.amplitude", d.Signal.Amplitude)
	v.SetDefault("signal.period", d.Signal.Period)

	v.SetDefault("render.backend", d.Render.Backend)
	v.SetDefault("render.max_geom", d.Render.MaxGeom)
	v.SetDefault("render.show_frames", d.Render.Frames)
	v.SetDefault("render.show_contacts", d.Render.Contacts)
	v.SetDefault("render.camera.azimuth", d.Render.Camera.Azimuth)
	v.SetDefault("render.camera.elevation", d.Render.Camera.Elevation)
	v.SetDefault("render.camera.distance", d.Render.Camera.Distance)
	v.SetDefault("render.camera.fovy", d.Render.Camera.FovY)

	v.SetDefault("sink.kind", d.Sink.Kind)
	v.SetDefault("sink.output", d.Sink.Output)
	v.SetDefault("sink.ffmpeg", d.Sink.FFmpeg)
	v.SetDefault("sink.vflip", d.Sink.VFlip)
	v.SetDefault("sink.extra_args", d.Sink.ExtraArgs)
	v.SetDefault("sink.image_dir", d.Sink.ImageDir)

	v.SetDefault("data_dir", d.DataDir)
	v.SetDefault("record", d.Record)
	v.SetDefault("log_level", d.LogLevel)
}

// Load layers defaults, the YAML file at path (if any) and DYNREC_*
// environment variables, in increasing priority.
func Load(path string) (*Config, error) {
	return LoadWithDefaults(path, DefaultConfig())
}

// LoadWithDefaults is Load with a different base, such as a preset.
func LoadWithDefaults(path string, base *Config) (*Config, error) {
	v := viper.New()
	setDefaults(v, base)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("error decoding config: %w", err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Width <= 0 || c.Height <= 0 || c.Width > render.MaxDimension || c.Height > render.MaxDimension {
		errs = append(errs, fmt.Errorf("frame size %dx%d out of range", c.Width, c.Height))
	}
	if c.FPS <= 0 {
		errs = append(errs, fmt.Errorf("fps must be positive, got %d", c.FPS))
	}
	if c.StepsPerFrame <= 0 {
		errs = append(errs, fmt.Errorf("steps_per_frame must be positive, got %d", c.StepsPerFrame))
	}
	if c.Frames < 0 {
		errs = append(errs, fmt.Errorf("frames must not be negative, got %d", c.Frames))
	}
	if _, err := c.BuildSignal(); err != nil {
		errs = append(errs, err)
	}
	if _, err := render.LookupBackend(c.Render.Backend); err != nil {
		errs = append(errs, err)
	}
	if c.Render.MaxGeom <= 0 {
		errs = append(errs, fmt.Errorf("render.max_geom must be positive, got %d", c.Render.MaxGeom))
	}
	if !sinkKinds[c.Sink.Kind] {
		errs = append(errs, fmt.Errorf("unknown sink: %s", c.Sink.Kind))
	}
	if !logLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Errorf("unknown log level: %s", c.LogLevel))
	}
	return errors.Join(errs...)
}

// BuildSignal constructs the configured control waveform.
func (c *Config) BuildSignal() (control.Signal, error) {
	return control.NewSignal(c.Signal.Waveform, c.Signal.Amplitude, c.Signal.Period)
}

// RendererConfig converts the render section for render.Open. Width and
// height are filled in by the pipeline.
func (c *Config) RendererConfig() render.Config {
	return render.Config{
		Backend: c.Render.Backend,
		MaxGeom: c.Render.MaxGeom,
		Camera: &render.Camera{
			Azimuth:   c.Render.Camera.Azimuth,
			Elevation: c.Render.Camera.Elevation,
			Distance:  c.Render.Camera.Distance,
			FovY:      c.Render.Camera.FovY,
		},
		Options: render.Options{
			Frames:   c.Render.Frames,
			Contacts: c.Render.Contacts,
		},
	}
}

// PipelineConfig converts the run settings for pipeline.New.
func (c *Config) PipelineConfig() (pipeline.Config, error) {
	signal, err := c.BuildSignal()
	if err != nil {
		return pipeline.Config{}, err
	}
	return pipeline.Config{
		Descriptor:    c.Scene,
		Width:         c.Width,
		Height:        c.Height,
		FPS:           c.FPS,
		StepsPerFrame: c.StepsPerFrame,
		NumFrames:     c.Frames,
		Actuator:      c.Actuator,
		Joint:         c.Joint,
		Signal:        signal,
	}, nil
}

// Clone returns a deep copy.
func (c *Config) Clone() *Config {
	out := *c
	out.Sink.ExtraArgs = append([]string(nil), c.Sink.ExtraArgs...)
	return &out
}
