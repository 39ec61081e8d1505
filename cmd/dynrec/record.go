package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/san-kum/dynrec/internal/config"
	"github.com/san-kum/dynrec/internal/dynamo"
	"github.com/san-kum/dynrec/internal/encode"
	"github.com/san-kum/dynrec/internal/logging"
	"github.com/san-kum/dynrec/internal/metrics"
	"github.com/san-kum/dynrec/internal/physics"
	"github.com/san-kum/dynrec/internal/pipeline"
	"github.com/san-kum/dynrec/internal/storage"
	"github.com/san-kum/dynrec/internal/viz"
)

// loadConfig layers the preset, the config file and DYNREC_* variables,
// then the persistent flags that were set.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	base := config.DefaultConfig()
	if preset != "" {
		base = config.GetPreset(preset)
		if base == nil {
			return nil, fmt.Errorf("unknown preset: %s (available: %v)", preset, config.ListPresets())
		}
	}
	cfg, err := config.LoadWithDefaults(configFile, base)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("data") {
		cfg.DataDir = dataDir
	}
	if cmd.Flags().Changed("log-level") {
		cfg.LogLevel = logLevel
	}
	return cfg, nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	changed := cmd.Flags().Changed
	if changed("width") {
		cfg.Width = flags.width
	}
	if changed("height") {
		cfg.Height = flags.height
	}
	if changed("fps") {
		cfg.FPS = flags.fps
	}
	if changed("steps-per-frame") {
		cfg.StepsPerFrame = flags.stepsPerFrame
	}
	if changed("frames") {
		cfg.Frames = flags.frames
	}
	if changed("actuator") {
		cfg.Actuator = flags.actuator
	}
	if changed("joint") {
		cfg.Joint = flags.joint
	}
	if changed("waveform") {
		cfg.Signal.Waveform = flags.waveform
	}
	if changed("amplitude") {
		cfg.Signal.Amplitude = flags.amplitude
	}
	if changed("period") {
		cfg.Signal.Period = flags.period
	}
	if changed("backend") {
		cfg.Render.Backend = flags.backend
	}
	if changed("show-frames") {
		cfg.Render.Frames = flags.showFrames
	}
	if changed("show-contacts") {
		cfg.Render.Contacts = flags.showContacts
	}
	if changed("sink") {
		cfg.Sink.Kind = flags.sink
	}
	if changed("output") {
		cfg.Sink.Output = flags.output
		cfg.Sink.ImageDir = flags.output
	}
	if changed("ffmpeg") {
		cfg.Sink.FFmpeg = flags.ffmpeg
	}
	if changed("vflip") {
		cfg.Sink.VFlip = flags.vflip
	}
	if changed("record") {
		cfg.Record = flags.record
	}
}

func runRecord(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Scene = args[0]
	}
	applyFlags(cmd, cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	logger := logging.New(cfg.LogLevel, os.Stderr)
	var progress io.Writer
	if !flags.quiet {
		progress = os.Stderr
	}

	out, err := record(cfg, logger, progress)
	if !flags.quiet {
		fmt.Println(out.summary(cfg, err).Render(64))
	}
	if saved(out.report, err) {
		fmt.Println(savedMessage(cfg))
	}
	return err
}

// saved reports whether the run left an output behind: at least one frame
// went out and every component, the sink included, closed cleanly.
func saved(report *pipeline.Report, err error) bool {
	if report == nil || report.Frames == 0 || report.Phase != pipeline.PhaseClosed {
		return false
	}
	return err == nil || dynamo.IsSoft(err)
}

func savedMessage(cfg *config.Config) string {
	if cfg.Sink.Kind == "images" {
		return fmt.Sprintf("Saved frames to %s", cfg.Sink.ImageDir)
	}
	return fmt.Sprintf("Saved video to %s", cfg.Sink.Output)
}

// outcome is everything a finished recording produced besides its error.
type outcome struct {
	report  *pipeline.Report
	runID   string
	metrics map[string]float64
	signal  []float64
}

func (o outcome) summary(cfg *config.Config, err error) viz.Summary {
	output := cfg.Sink.Output
	if cfg.Sink.Kind == "images" {
		output = cfg.Sink.ImageDir
	}
	return viz.Summary{
		Scene:   cfg.Scene,
		Output:  output,
		RunID:   o.runID,
		Report:  o.report,
		Err:     err,
		Metrics: o.metrics,
		Signal:  o.signal,
	}
}

func openSink(cfg *config.Config, logger *slog.Logger) func(encode.Format) (encode.Sink, error) {
	switch cfg.Sink.Kind {
	case "images":
		return pipeline.ImagesSink(cfg.Sink.ImageDir)
	case "gst":
		return pipeline.GStreamerSink(cfg.Sink.Output, logger)
	default:
		return pipeline.FFmpegSink(encode.FFmpegConfig{
			Binary:    cfg.Sink.FFmpeg,
			Output:    cfg.Sink.Output,
			VFlip:     cfg.Sink.VFlip,
			ExtraArgs: cfg.Sink.ExtraArgs,
		}, logger)
	}
}

// record runs one validated configuration. progress may be nil.
func record(cfg *config.Config, logger *slog.Logger, progress io.Writer) (outcome, error) {
	var out outcome

	pcfg, err := cfg.PipelineConfig()
	if err != nil {
		return out, err
	}

	effort := metrics.NewControlEffort()
	bounded := metrics.NewStability(physics.MaxMagnitude / 100)
	stable := metrics.Set{effort, bounded}
	drivers := pipeline.Engine(pipeline.EngineConfig{
		Render:        cfg.RendererConfig(),
		Sink:          openSink(cfg, logger),
		StepObservers: []dynamo.Observer{stable},
	})

	var run *storage.Run
	if cfg.Record {
		st := storage.New(cfg.DataDir)
		if err := st.Init(); err != nil {
			return out, err
		}
		run, err = st.Begin(storage.RunMetadata{
			Scene:         cfg.Scene,
			Width:         cfg.Width,
			Height:        cfg.Height,
			FPS:           cfg.FPS,
			StepsPerFrame: cfg.StepsPerFrame,
			Signal:        fmt.Sprintf("%s amplitude=%g period=%g", cfg.Signal.Waveform, cfg.Signal.Amplitude, cfg.Signal.Period),
			Output:        cfg.Sink.Output,
		})
		if err != nil {
			return out, err
		}
		out.runID = run.ID()
	}

	var drift *metrics.EnergyDrift
	newState := drivers.NewState
	drivers.NewState = func(sc pipeline.Scene) (pipeline.State, error) {
		st, err := newState(sc)
		if err != nil {
			return nil, err
		}
		if run != nil {
			run.SetTimestep(sc.Model().Timestep)
		}
		if s, ok := st.(interface{ AddObserver(dynamo.Observer) }); ok {
			drift = metrics.NewEnergyDrift(st.Data().System())
			s.AddObserver(metrics.Set{drift})
		}
		return st, nil
	}

	recorder, err := metrics.NewRecorder(nil, cfg.Scene)
	if err != nil {
		return out, err
	}
	bar := viz.NewProgress(progress, cfg.Frames)

	opts := []pipeline.Option{
		pipeline.WithLogger(logger),
		pipeline.WithObserver(recorder),
		pipeline.WithObserver(bar),
	}
	if run != nil {
		opts = append(opts, pipeline.WithObserver(run))
	}

	out.report, err = pipeline.New(drivers, pcfg, opts...).Run()
	bar.Done()

	out.signal = bar.Signal
	out.metrics = stable.Values()
	out.metrics["control_effort_peak"] = effort.Peak()
	out.metrics["state_peak"] = bounded.Peak()
	if at, ok := bounded.FirstExceeded(); ok {
		logger.Warn("state left the stable range", "t", at, "peak", bounded.Peak())
	}
	if drift != nil {
		out.metrics[drift.Name()] = drift.Value()
	}

	if dynamo.IsSoft(err) {
		logger.Warn("short write to encoder, stopped early", "frames", out.report.Frames)
	}
	if run != nil {
		if ferr := run.Finish(out.report, err, out.metrics); ferr != nil {
			logger.Error("failed to save run", "id", run.ID(), "error", ferr)
		} else {
			logger.Info("run saved", "id", run.ID(), "dir", run.Dir())
		}
	}
	return out, err
}

// batchRunner adapts record to automation.Runner.
func batchRunner(logger *slog.Logger) func(ctx context.Context, name string, cfg *config.Config) (*pipeline.Report, error) {
	return func(ctx context.Context, name string, cfg *config.Config) (*pipeline.Report, error) {
		out, err := record(cfg, logger.With("run", name), nil)
		if saved(out.report, err) {
			fmt.Println(savedMessage(cfg))
		}
		return out.report, err
	}
}
