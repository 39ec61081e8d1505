package pipeline_test

import (
	"errors"
	"strings"

	"github.com/san-kum/dynrec/internal/control"
	"github.com/san-kum/dynrec/internal/dynamo"
	"github.com/san-kum/dynrec/internal/encode"
	"github.com/san-kum/dynrec/internal/physics"
	"github.com/san-kum/dynrec/internal/pipeline"
)

// recorder backs every fake component and logs what happens to them.
type recorder struct {
	events  []string
	signals []float64
	failAt  string
	// shortAt is the frame whose write comes up short; -1 for never.
	shortAt    int
	closeFails bool
	writes     int
}

func newRecorder() *recorder {
	return &recorder{shortAt: -1}
}

func (r *recorder) log(e string) { r.events = append(r.events, e) }

func (r *recorder) only(prefix string) []string {
	var out []string
	for _, e := range r.events {
		if strings.HasPrefix(e, prefix) {
			out = append(out, strings.TrimPrefix(e, prefix))
		}
	}
	return out
}

func (r *recorder) count(e string) int {
	n := 0
	for _, x := range r.events {
		if x == e {
			n++
		}
	}
	return n
}

type fakeScene struct{ r *recorder }

func (s *fakeScene) Model() *physics.Model { return nil }
func (s *fakeScene) Close() error          { s.r.log("release scene"); return nil }

type fakeState struct {
	r     *recorder
	ticks int
}

func (s *fakeState) Tick(target control.Target, u float64) error {
	s.r.log("tick")
	s.r.signals = append(s.r.signals, u)
	if s.r.failAt == "tick" && s.ticks == 25 {
		return &dynamo.SimulationError{Step: s.ticks, Wrapped: dynamo.ErrUnstable}
	}
	s.ticks++
	return nil
}

func (s *fakeState) Ticks() int            { return s.ticks }
func (s *fakeState) Time() float64         { return float64(s.ticks) * 0.005 }
func (s *fakeState) Positions() []float64  { return []float64{float64(s.ticks)} }
func (s *fakeState) Data() *physics.Data   { return nil }
func (s *fakeState) Close() error          { s.r.log("release state"); return nil }

type fakeRaster struct {
	r    *recorder
	size int
	n    int
}

func (f *fakeRaster) FrameSize() int { return f.size }

func (f *fakeRaster) Render(dst []byte) error {
	f.r.log("render")
	if f.r.failAt == "render" && f.n == 2 {
		return &dynamo.ContextError{Op: "render", Err: errors.New("lost context")}
	}
	f.n++
	dst[0] = byte(f.n)
	return nil
}

func (f *fakeRaster) Close() error { f.r.log("release rasterizer"); return nil }

type fakeSink struct {
	r      *recorder
	format encode.Format
}

func (f *fakeSink) Write(frame []byte) (int, error) {
	r := f.r
	r.log("write")
	frameIndex := r.writes
	r.writes++
	switch {
	case frameIndex == r.shortAt:
		return len(frame) / 2, &dynamo.SinkError{Op: "write", Frame: frameIndex, Written: len(frame) / 2, Expected: len(frame), Err: dynamo.ErrShortWrite}
	case r.failAt == "write" && frameIndex == 1:
		return 0, &dynamo.SinkError{Op: "write", Frame: frameIndex, Err: errors.New("encoder rejected frame")}
	}
	return len(frame), nil
}

func (f *fakeSink) Close() error {
	f.r.log("release sink")
	if f.r.closeFails {
		return &dynamo.SinkError{Op: "close", Err: errors.New("exit status 1")}
	}
	return nil
}

func (r *recorder) drivers() pipeline.Drivers {
	return pipeline.Drivers{
		LoadScene: func(string) (pipeline.Scene, error) {
			if r.failAt == "scene" {
				return nil, dynamo.NewLoadError("bad.xml", "XML parse error")
			}
			r.log("acquire scene")
			return &fakeScene{r: r}, nil
		},
		NewState: func(pipeline.Scene) (pipeline.State, error) {
			if r.failAt == "state" {
				return nil, errors.New("out of memory")
			}
			r.log("acquire state")
			return &fakeState{r: r}, nil
		},
		OpenRasterizer: func(_ pipeline.Scene, _ pipeline.State, w, h int) (pipeline.Rasterizer, error) {
			if r.failAt == "rasterizer" {
				return nil, &dynamo.ContextError{Op: "graphics", Err: errors.New("no display")}
			}
			r.log("acquire rasterizer")
			return &fakeRaster{r: r, size: w * h * 3}, nil
		},
		OpenSink: func(format encode.Format) (encode.Sink, error) {
			if r.failAt == "sink" {
				return nil, &dynamo.SinkError{Op: "launch", Err: errors.New("ffmpeg not found")}
			}
			r.log("acquire sink")
			return &fakeSink{r: r, format: format}, nil
		},
		Resolve: func(pipeline.Scene, string, string) control.Target {
			return control.Target{Kind: control.TargetActuator, Index: 0, Name: "motor"}
		},
	}
}

// namedScene carries a real, empty model so the default resolver runs.
type namedScene struct {
	fakeScene
}

func (s *namedScene) Model() *physics.Model { return physics.NewModel() }
