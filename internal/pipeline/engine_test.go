package pipeline_test

import (
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynrec/internal/control"
	"github.com/san-kum/dynrec/internal/dynamo"
	"github.com/san-kum/dynrec/internal/encode"
	"github.com/san-kum/dynrec/internal/pipeline"
	"github.com/san-kum/dynrec/internal/render"
	"github.com/san-kum/dynrec/internal/scene"
	"github.com/san-kum/dynrec/internal/sim"
)

type stepCounter struct{ n int }

func (s *stepCounter) OnStep(dynamo.State, dynamo.Control, float64) { s.n++ }

var _ = Describe("Engine", func() {
	var (
		mem                            *encode.Memory
		scenes, states, renderResource int64
	)

	memorySink := func(limit int) func(encode.Format) (encode.Sink, error) {
		return func(f encode.Format) (encode.Sink, error) {
			mem = encode.NewMemory(f, limit)
			return mem, nil
		}
	}

	BeforeEach(func() {
		scenes, states, renderResource = scene.Live(), sim.Live(), render.Live()
	})

	AfterEach(func() {
		Expect(scene.Live()).To(Equal(scenes))
		Expect(sim.Live()).To(Equal(states))
		Expect(render.Live()).To(Equal(renderResource))
	})

	config := func(descriptor string) pipeline.Config {
		cfg := pipeline.DefaultConfig()
		cfg.Descriptor = descriptor
		cfg.Width, cfg.Height = 32, 24
		cfg.NumFrames = 6
		cfg.StepsPerFrame = 5
		return cfg
	}

	It("records the default scene", func() {
		steps := &stepCounter{}
		d := pipeline.Engine(pipeline.EngineConfig{Sink: memorySink(-1), StepObservers: []dynamo.Observer{steps}})
		report, err := pipeline.New(d, config(""), pipeline.WithLogger(quietLogger())).Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Frames).To(Equal(6))
		Expect(report.Ticks).To(Equal(30))
		Expect(steps.n).To(Equal(30))
		Expect(mem.Bytes()).To(HaveLen(6 * 32 * 24 * 3))
		Expect(mem.Frame(0)).NotTo(Equal(mem.Frame(5)))
	})

	It("drives the pendulum motor", func() {
		cfg := config("builtin:pendulum")
		cfg.Actuator = "motor"
		var last []float64
		obs := pipeline.FrameObserverFunc(func(fi pipeline.FrameInfo) { last = fi.Positions })
		report, err := pipeline.New(pipeline.Engine(pipeline.EngineConfig{Sink: memorySink(-1)}), cfg,
			pipeline.WithLogger(quietLogger()), pipeline.WithObserver(obs)).Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Target.Kind).To(Equal(control.TargetActuator))
		Expect(last).To(HaveLen(1))
	})

	It("produces identical output for identical runs", func() {
		d := pipeline.Engine(pipeline.EngineConfig{Sink: memorySink(-1)})
		_, err := pipeline.New(d, config("builtin:slider"), pipeline.WithLogger(quietLogger())).Run()
		Expect(err).NotTo(HaveOccurred())
		first := mem.Bytes()
		_, err = pipeline.New(d, config("builtin:slider"), pipeline.WithLogger(quietLogger())).Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(mem.Bytes()).To(Equal(first))
	})

	It("drains when the sink runs out of room", func() {
		frame := 32 * 24 * 3
		report, err := pipeline.New(pipeline.Engine(pipeline.EngineConfig{Sink: memorySink(2*frame + 100)}), config(""),
			pipeline.WithLogger(quietLogger())).Run()
		Expect(dynamo.IsSoft(err)).To(BeTrue())
		Expect(report.Drained).To(BeTrue())
		Expect(report.Frames).To(Equal(3))
		Expect(report.BytesWritten).To(Equal(int64(2*frame + 100)))
	})

	It("fails on an unloadable scene without leaking", func() {
		_, err := pipeline.New(pipeline.Engine(pipeline.EngineConfig{Sink: memorySink(-1)}), config("<mujoco"), pipeline.WithLogger(quietLogger())).Run()
		Expect(err).To(MatchError(dynamo.ErrLoad))
	})

	It("fails on an unavailable backend without leaking", func() {
		eng := pipeline.Engine(pipeline.EngineConfig{Sink: memorySink(-1), Render: render.Config{Backend: "osmesa"}})
		_, err := pipeline.New(eng, config(""), pipeline.WithLogger(quietLogger())).Run()
		Expect(dynamo.Stage(err)).To(Equal("context"))
	})
})
