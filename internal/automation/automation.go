// Package automation runs batches of recordings described in YAML.
package automation

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/san-kum/dynrec/internal/config"
	"github.com/san-kum/dynrec/internal/dynamo"
	"github.com/san-kum/dynrec/internal/pipeline"
)

// Scenario is a scripted sequence of recordings.
type Scenario struct {
	Name        string    `yaml:"name"`
	Description string    `yaml:"description"`
	Preset      string    `yaml:"preset"`
	Runs        []RunSpec `yaml:"runs"`
	Sweeps      []Sweep   `yaml:"sweeps"`
}

// RunSpec overrides the scenario base for one recording. Zero values
// inherit.
type RunSpec struct {
	Name          string  `yaml:"name"`
	Preset        string  `yaml:"preset"`
	Scene         string  `yaml:"scene"`
	Width         int     `yaml:"width"`
	Height        int     `yaml:"height"`
	FPS           int     `yaml:"fps"`
	StepsPerFrame int     `yaml:"steps_per_frame"`
	Frames        int     `yaml:"frames"`
	Actuator      string  `yaml:"actuator"`
	Joint         string  `yaml:"joint"`
	Waveform      string  `yaml:"waveform"`
	Amplitude     float64 `yaml:"amplitude"`
	Period        float64 `yaml:"period"`
	Sink          string  `yaml:"sink"`
	Output        string  `yaml:"output"`
}

// LoadScenario loads a scenario from a YAML file
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var scenario Scenario
	if err := yaml.Unmarshal(data, &scenario); err != nil {
		return nil, err
	}
	if len(scenario.Runs) == 0 && len(scenario.Sweeps) == 0 {
		return nil, fmt.Errorf("scenario %q has no runs", scenario.Name)
	}
	return &scenario, nil
}

// Apply layers the run overrides over base and validates the result.
func (r RunSpec) Apply(base *config.Config) (*config.Config, error) {
	cfg := base.Clone()
	if r.Preset != "" {
		preset := config.GetPreset(r.Preset)
		if preset == nil {
			return nil, fmt.Errorf("unknown preset: %s", r.Preset)
		}
		cfg = preset
	}
	setString(&cfg.Scene, r.Scene)
	setInt(&cfg.Width, r.Width)
	setInt(&cfg.Height, r.Height)
	setInt(&cfg.FPS, r.FPS)
	setInt(&cfg.StepsPerFrame, r.StepsPerFrame)
	setInt(&cfg.Frames, r.Frames)
	setString(&cfg.Actuator, r.Actuator)
	setString(&cfg.Joint, r.Joint)
	setString(&cfg.Signal.Waveform, r.Waveform)
	if r.Amplitude != 0 {
		cfg.Signal.Amplitude = r.Amplitude
	}
	if r.Period != 0 {
		cfg.Signal.Period = r.Period
	}
	setString(&cfg.Sink.Kind, r.Sink)
	if r.Output != "" {
		cfg.Sink.Output = r.Output
		cfg.Sink.ImageDir = r.Output
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setString(dst *string, v string) {
	if v != "" {
		*dst = v
	}
}

func setInt(dst *int, v int) {
	if v != 0 {
		*dst = v
	}
}

// Sweep varies one setting of a run across a range of values.
type Sweep struct {
	Run      RunSpec `yaml:"run"`
	Param    string  `yaml:"param"`
	Min      float64 `yaml:"min"`
	Max      float64 `yaml:"max"`
	NumSteps int     `yaml:"num_steps"`
}

// Expand returns one RunSpec per sweep value. Output names get the step
// index appended so runs do not overwrite each other.
func (s Sweep) Expand() ([]RunSpec, error) {
	if s.NumSteps < 1 {
		return nil, fmt.Errorf("sweep %s: num_steps must be at least 1", s.Param)
	}
	paramStep := 0.0
	if s.NumSteps > 1 {
		paramStep = (s.Max - s.Min) / float64(s.NumSteps-1)
	}

	specs := make([]RunSpec, 0, s.NumSteps)
	for i := 0; i < s.NumSteps; i++ {
		paramVal := s.Min + float64(i)*paramStep
		spec := s.Run
		switch s.Param {
		case "amplitude":
			spec.Amplitude = paramVal
		case "period":
			spec.Period = paramVal
		case "steps_per_frame":
			spec.StepsPerFrame = int(paramVal)
		case "frames":
			spec.Frames = int(paramVal)
		default:
			return nil, fmt.Errorf("sweep: unsupported param %q", s.Param)
		}
		spec.Name = fmt.Sprintf("%s %s=%g", s.Run.Name, s.Param, paramVal)
		if spec.Output != "" {
			spec.Output = suffixed(spec.Output, i)
		}
		specs = append(specs, spec)
	}
	return specs, nil
}

func suffixed(path string, i int) string {
	for k := len(path) - 1; k >= 0 && path[k] != '/'; k-- {
		if path[k] == '.' {
			return fmt.Sprintf("%s_%03d%s", path[:k], i, path[k:])
		}
	}
	return fmt.Sprintf("%s_%03d", path, i)
}

// Specs lists every run of the scenario, sweeps expanded after plain runs.
func (s *Scenario) Specs() ([]RunSpec, error) {
	specs := append([]RunSpec(nil), s.Runs...)
	for _, sw := range s.Sweeps {
		expanded, err := sw.Expand()
		if err != nil {
			return nil, err
		}
		specs = append(specs, expanded...)
	}
	return specs, nil
}

// Runner records one configured run.
type Runner func(ctx context.Context, name string, cfg *config.Config) (*pipeline.Report, error)

// Result is the outcome of one scenario run.
type Result struct {
	Name   string
	Report *pipeline.Report
	Err    error
}

// RunScenario executes every run in order. A drained run is recorded and
// the batch continues; any other failure stops the batch.
func RunScenario(ctx context.Context, scenario *Scenario, base *config.Config, run Runner, logger *slog.Logger) ([]Result, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if scenario.Preset != "" {
		preset := config.GetPreset(scenario.Preset)
		if preset == nil {
			return nil, fmt.Errorf("unknown preset: %s", scenario.Preset)
		}
		base = preset
	}
	specs, err := scenario.Specs()
	if err != nil {
		return nil, err
	}

	results := make([]Result, 0, len(specs))
	for i, spec := range specs {
		if err := ctx.Err(); err != nil {
			return results, err
		}
		name := spec.Name
		if name == "" {
			name = fmt.Sprintf("run %d", i+1)
		}
		logger.Info("running", "scenario", scenario.Name, "run", name, "index", i+1, "total", len(specs))

		cfg, err := spec.Apply(base)
		if err != nil {
			return results, fmt.Errorf("%s: %w", name, err)
		}

		report, err := run(ctx, name, cfg)
		results = append(results, Result{Name: name, Report: report, Err: err})
		if err != nil && !dynamo.IsSoft(err) {
			return results, fmt.Errorf("%s: %w", name, err)
		}
		if err != nil {
			logger.Warn("run drained", "run", name, "error", err)
		}
	}
	return results, nil
}
