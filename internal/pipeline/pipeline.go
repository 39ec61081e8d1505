package pipeline

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/san-kum/dynrec/internal/control"
	"github.com/san-kum/dynrec/internal/dynamo"
	"github.com/san-kum/dynrec/internal/encode"
	"github.com/san-kum/dynrec/internal/physics"
	"github.com/san-kum/dynrec/internal/teardown"
)

// Scene is a loaded, immutable scene.
type Scene interface {
	Model() *physics.Model
	Close() error
}

// State is the simulation state advanced by ticks.
type State interface {
	Tick(target control.Target, u float64) error
	Ticks() int
	Time() float64
	Positions() []float64
	Data() *physics.Data
	Close() error
}

// Rasterizer draws the current state into a caller-owned buffer.
type Rasterizer interface {
	FrameSize() int
	Render(dst []byte) error
	Close() error
}

// Drivers acquire the components of a run. Engine returns the real ones.
type Drivers struct {
	LoadScene      func(descriptor string) (Scene, error)
	NewState       func(sc Scene) (State, error)
	OpenRasterizer func(sc Scene, st State, width, height int) (Rasterizer, error)
	OpenSink       func(format encode.Format) (encode.Sink, error)
	// Resolve defaults to control.Resolve over the scene's name tables.
	Resolve func(sc Scene, actuator, joint string) control.Target
}

type Config struct {
	Descriptor    string
	Width         int
	Height        int
	FPS           int
	StepsPerFrame int
	NumFrames     int
	Actuator      string
	Joint         string
	Signal        control.Signal
}

// DefaultConfig matches the reference offscreen recording: 300 frames of
// 640x480 at 30 fps, ten physics steps per frame.
func DefaultConfig() Config {
	return Config{
		Width:         640,
		Height:        480,
		FPS:           30,
		StepsPerFrame: 10,
		NumFrames:     300,
		Signal:        control.NewSine(0.5, 60),
	}
}

func (c Config) Validate() error {
	if c.Width <= 0 || c.Height <= 0 {
		return fmt.Errorf("invalid frame size %dx%d", c.Width, c.Height)
	}
	if c.FPS <= 0 {
		return fmt.Errorf("fps must be positive, got %d", c.FPS)
	}
	if c.StepsPerFrame <= 0 {
		return fmt.Errorf("steps per frame must be positive, got %d", c.StepsPerFrame)
	}
	if c.NumFrames < 0 {
		return fmt.Errorf("frame count must not be negative, got %d", c.NumFrames)
	}
	return nil
}

// Report summarizes a run.
type Report struct {
	Phase        Phase
	Frames       int
	Ticks        int
	BytesWritten int64
	Target       control.Target
	Drained      bool
	Elapsed      time.Duration
}

type Option func(*Pipeline)

func WithLogger(l *slog.Logger) Option {
	return func(p *Pipeline) { p.logger = l }
}

func WithObserver(o FrameObserver) Option {
	return func(p *Pipeline) { p.observers = append(p.observers, o) }
}

// WithReleaseHook is called after each resource is released at teardown.
func WithReleaseHook(fn func(name string, err error)) Option {
	return func(p *Pipeline) { p.onRelease = fn }
}

// WithPhaseHook is called on every phase transition.
func WithPhaseHook(fn func(from, to Phase)) Option {
	return func(p *Pipeline) { p.onPhase = fn }
}

// Pipeline runs one simulate-render-encode session. It is single use.
type Pipeline struct {
	drivers   Drivers
	cfg       Config
	logger    *slog.Logger
	observers []FrameObserver
	onRelease func(string, error)
	onPhase   func(from, to Phase)

	phase Phase
	stack *teardown.Stack
}

func New(drivers Drivers, cfg Config, opts ...Option) *Pipeline {
	if cfg.Signal == nil {
		cfg.Signal = control.None{}
	}
	p := &Pipeline{
		drivers: drivers,
		cfg:     cfg,
		logger:  slog.Default(),
		stack:   teardown.New(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With("component", "pipeline")
	return p
}

func (p *Pipeline) Phase() Phase { return p.phase }

func (p *Pipeline) setPhase(to Phase) {
	if to == p.phase {
		return
	}
	from := p.phase
	p.phase = to
	p.logger.Debug("phase", "from", from, "to", to)
	if p.onPhase != nil {
		p.onPhase(from, to)
	}
}

// Run loads the scene, opens every component and records NumFrames frames.
// A short write to the sink drains the run: no further frames are produced,
// everything is released, the phase ends Closed and the short-write
// *dynamo.SinkError is returned alongside a report with Drained set. Every
// other error fails the run, including a teardown failure after a drain: the
// partial output is only kept when the sink closes cleanly. Resources are released in reverse acquisition
// order on every path.
func (p *Pipeline) Run() (report *Report, err error) {
	if p.phase != PhaseInit {
		return nil, fmt.Errorf("pipeline: already ran (phase %s)", p.phase)
	}
	if err := p.cfg.Validate(); err != nil {
		p.setPhase(PhaseFailed)
		return &Report{Phase: PhaseFailed}, fmt.Errorf("pipeline: %w", err)
	}

	start := time.Now()
	report = &Report{Target: control.Target{Kind: control.TargetNone, Index: -1}}
	if p.onRelease != nil {
		p.stack.OnRelease(p.onRelease)
	}

	defer func() {
		switch {
		case err != nil && !report.Drained:
			p.setPhase(PhaseFailed)
		case p.phase == PhaseRendering:
			p.setPhase(PhaseDraining)
		}
		if rerr := p.stack.Release(); rerr != nil {
			p.logger.Error("teardown failed", "error", rerr)
			err = errors.Join(err, rerr)
			p.setPhase(PhaseFailed)
		}
		if p.phase != PhaseFailed {
			p.setPhase(PhaseClosed)
		}
		report.Phase = p.phase
		report.Elapsed = time.Since(start)
	}()

	sc, err := p.drivers.LoadScene(p.cfg.Descriptor)
	if err != nil {
		return report, err
	}
	if err := p.stack.Push("scene", sc.Close); err != nil {
		return report, err
	}
	p.setPhase(PhaseLoaded)

	st, err := p.drivers.NewState(sc)
	if err != nil {
		return report, err
	}
	if err := p.stack.Push("state", st.Close); err != nil {
		return report, err
	}

	report.Target = p.resolve(sc)

	rast, err := p.drivers.OpenRasterizer(sc, st, p.cfg.Width, p.cfg.Height)
	if err != nil {
		return report, err
	}
	if err := p.stack.Push("rasterizer", rast.Close); err != nil {
		return report, err
	}

	format := encode.NewFormat(p.cfg.Width, p.cfg.Height, p.cfg.FPS)
	sink, err := p.drivers.OpenSink(format)
	if err != nil {
		return report, err
	}
	if err := p.stack.Push("sink", sink.Close); err != nil {
		return report, err
	}

	if rast.FrameSize() != format.FrameSize() {
		return report, fmt.Errorf("pipeline: %w: rasterizer frame is %d bytes, sink expects %d",
			dynamo.ErrDimensionMismatch, rast.FrameSize(), format.FrameSize())
	}
	buf := make([]byte, format.FrameSize())

	p.setPhase(PhaseRendering)
	p.logger.Info("recording",
		"frames", p.cfg.NumFrames,
		"steps_per_frame", p.cfg.StepsPerFrame,
		"format", format.String(),
		"target", report.Target.String())

	return report, p.loop(st, rast, sink, buf, report)
}

func (p *Pipeline) resolve(sc Scene) control.Target {
	var target control.Target
	if p.drivers.Resolve != nil {
		target = p.drivers.Resolve(sc, p.cfg.Actuator, p.cfg.Joint)
	} else {
		target = control.Resolve(sc.Model(), p.cfg.Actuator, p.cfg.Joint)
	}
	if target.Kind == control.TargetNone && (p.cfg.Actuator != "" || p.cfg.Joint != "") {
		p.logger.Warn("no control target resolved, stepping unactuated",
			"actuator", p.cfg.Actuator, "joint", p.cfg.Joint)
	}
	return target
}

func (p *Pipeline) loop(st State, rast Rasterizer, sink encode.Sink, buf []byte, report *Report) error {
	for frame := 0; frame < p.cfg.NumFrames; frame++ {
		u := p.cfg.Signal.Value(frame)
		for k := 0; k < p.cfg.StepsPerFrame; k++ {
			err := st.Tick(report.Target, u)
			if err != nil {
				return err
			}
			report.Ticks++
		}

		renderStart := time.Now()
		if err := rast.Render(buf); err != nil {
			return err
		}
		rendered := time.Since(renderStart)

		writeStart := time.Now()
		n, err := sink.Write(buf)
		report.BytesWritten += int64(n)
		report.Frames++
		p.notify(FrameInfo{
			Frame:     frame,
			Ticks:     st.Ticks(),
			SimTime:   st.Time(),
			Signal:    u,
			Positions: st.Positions(),
			Written:   n,
			Render:    rendered,
			Write:     time.Since(writeStart),
		})
		if err != nil {
			if dynamo.IsSoft(err) {
				p.logger.Warn("short write to encoder, draining", "frame", frame, "written", n, "expected", len(buf))
				report.Drained = true
				p.setPhase(PhaseDraining)
			}
			return err
		}
	}
	return nil
}

func (p *Pipeline) notify(info FrameInfo) {
	for _, o := range p.observers {
		o.OnFrame(info)
	}
}
