package pipeline

import (
	"log/slog"

	"github.com/san-kum/dynrec/internal/dynamo"
	"github.com/san-kum/dynrec/internal/encode"
	"github.com/san-kum/dynrec/internal/render"
	"github.com/san-kum/dynrec/internal/scene"
	"github.com/san-kum/dynrec/internal/sim"
)

// EngineConfig selects the concrete components behind Engine.
type EngineConfig struct {
	// Render carries backend, scene capacity, camera and overlays. Width and
	// height come from the pipeline Config.
	Render render.Config
	// Sink opens the encoder; FFmpegSink with defaults when nil.
	Sink func(format encode.Format) (encode.Sink, error)
	// StepObservers see the state after every physics step.
	StepObservers []dynamo.Observer
}

// Engine wires the scene loader, the stepper, the software renderer and an
// encoder sink.
func Engine(cfg EngineConfig) Drivers {
	openSink := cfg.Sink
	if openSink == nil {
		openSink = FFmpegSink(encode.FFmpegConfig{VFlip: true}, nil)
	}
	return Drivers{
		LoadScene: func(descriptor string) (Scene, error) {
			h, err := scene.Load(descriptor)
			if err != nil {
				return nil, err
			}
			return h, nil
		},
		NewState: func(sc Scene) (State, error) {
			st := sim.New(sc.Model())
			for _, o := range cfg.StepObservers {
				st.AddObserver(o)
			}
			return st, nil
		},
		OpenRasterizer: func(sc Scene, st State, width, height int) (Rasterizer, error) {
			rc := cfg.Render
			rc.Width, rc.Height = width, height
			r, err := render.Open(sc.Model(), st.Data(), rc)
			if err != nil {
				return nil, err
			}
			return r, nil
		},
		OpenSink: openSink,
	}
}

func FFmpegSink(ff encode.FFmpegConfig, logger *slog.Logger) func(encode.Format) (encode.Sink, error) {
	return func(format encode.Format) (encode.Sink, error) {
		s, err := encode.OpenFFmpeg(format, ff, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func ImagesSink(dir string) func(encode.Format) (encode.Sink, error) {
	return func(format encode.Format) (encode.Sink, error) {
		s, err := encode.OpenImages(dir, format)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}

func GStreamerSink(output string, logger *slog.Logger) func(encode.Format) (encode.Sink, error) {
	return func(format encode.Format) (encode.Sink, error) {
		s, err := encode.OpenGStreamer(format, output, logger)
		if err != nil {
			return nil, err
		}
		return s, nil
	}
}
