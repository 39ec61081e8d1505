package pipeline_test

import (
	"bytes"
	"log/slog"
	"slices"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynrec/internal/control"
	"github.com/san-kum/dynrec/internal/dynamo"
	"github.com/san-kum/dynrec/internal/pipeline"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
}

func reversed(in []string) []string {
	out := slices.Clone(in)
	slices.Reverse(out)
	return out
}

var _ = Describe("Pipeline", func() {
	var (
		rec *recorder
		cfg pipeline.Config
	)

	BeforeEach(func() {
		rec = newRecorder()
		cfg = pipeline.DefaultConfig()
		cfg.Width, cfg.Height = 8, 6
	})

	run := func(opts ...pipeline.Option) (*pipeline.Pipeline, *pipeline.Report, error) {
		p := pipeline.New(rec.drivers(), cfg, append([]pipeline.Option{pipeline.WithLogger(quietLogger())}, opts...)...)
		report, err := p.Run()
		return p, report, err
	}

	Context("on a clean run", func() {
		It("interleaves ticks, renders and writes frame by frame", func() {
			_, report, err := run()
			Expect(err).NotTo(HaveOccurred())

			Expect(rec.count("tick")).To(Equal(3000))
			Expect(rec.count("render")).To(Equal(300))
			Expect(rec.count("write")).To(Equal(300))

			var loop []string
			for _, e := range rec.events {
				if e == "tick" || e == "render" || e == "write" {
					loop = append(loop, e)
				}
			}
			for frame := 0; frame < 300; frame++ {
				chunk := loop[frame*12 : (frame+1)*12]
				for k := 0; k < 10; k++ {
					Expect(chunk[k]).To(Equal("tick"), "frame %d", frame)
				}
				Expect(chunk[10:]).To(Equal([]string{"render", "write"}), "frame %d", frame)
			}

			Expect(report.Phase).To(Equal(pipeline.PhaseClosed))
			Expect(report.Frames).To(Equal(300))
			Expect(report.Ticks).To(Equal(3000))
			Expect(report.BytesWritten).To(Equal(int64(300 * 8 * 6 * 3)))
			Expect(report.Drained).To(BeFalse())
			Expect(report.Target.Kind).To(Equal(control.TargetActuator))
		})

		It("feeds every tick of a frame the same signal value", func() {
			_, _, err := run()
			Expect(err).NotTo(HaveOccurred())
			for frame := 0; frame < 300; frame++ {
				want := cfg.Signal.Value(frame)
				for k := 0; k < 10; k++ {
					Expect(rec.signals[frame*10+k]).To(Equal(want))
				}
			}
		})

		It("releases in reverse acquisition order", func() {
			var released []string
			_, _, err := run(pipeline.WithReleaseHook(func(name string, err error) {
				released = append(released, name)
			}))
			Expect(err).NotTo(HaveOccurred())
			acquired := rec.only("acquire ")
			Expect(acquired).To(Equal([]string{"scene", "state", "rasterizer", "sink"}))
			Expect(rec.only("release ")).To(Equal(reversed(acquired)))
			Expect(released).To(Equal(reversed(acquired)))
		})

		It("walks the phases in order", func() {
			var phases []pipeline.Phase
			_, _, err := run(pipeline.WithPhaseHook(func(_, to pipeline.Phase) { phases = append(phases, to) }))
			Expect(err).NotTo(HaveOccurred())
			Expect(phases).To(Equal([]pipeline.Phase{pipeline.PhaseLoaded, pipeline.PhaseRendering, pipeline.PhaseDraining, pipeline.PhaseClosed}))
		})

		It("notifies observers once per frame", func() {
			var infos []pipeline.FrameInfo
			_, _, err := run(pipeline.WithObserver(pipeline.FrameObserverFunc(func(fi pipeline.FrameInfo) { infos = append(infos, fi) })))
			Expect(err).NotTo(HaveOccurred())
			Expect(infos).To(HaveLen(300))
			Expect(infos[4].Frame).To(Equal(4))
			Expect(infos[4].Ticks).To(Equal(50))
			Expect(infos[4].Positions).To(Equal([]float64{50}))
			Expect(infos[4].Written).To(Equal(8 * 6 * 3))
		})

		It("handles zero frames", func() {
			cfg.NumFrames = 0
			_, report, err := run()
			Expect(err).NotTo(HaveOccurred())
			Expect(report.Frames).To(BeZero())
			Expect(rec.count("tick")).To(BeZero())
			Expect(rec.only("release ")).To(HaveLen(4))
		})
	})

	DescribeTable("a hard failure releases what was acquired, in reverse",
		func(failAt string, stage string, acquired []string) {
			rec.failAt = failAt
			p, report, err := run()

			Expect(err).To(HaveOccurred())
			Expect(dynamo.IsSoft(err)).To(BeFalse())
			Expect(dynamo.Stage(err)).To(Equal(stage))
			Expect(p.Phase()).To(Equal(pipeline.PhaseFailed))
			Expect(report.Phase).To(Equal(pipeline.PhaseFailed))
			Expect(rec.only("acquire ")).To(Equal(acquired))
			Expect(rec.only("release ")).To(Equal(reversed(acquired)))
		},
		Entry("scene load", "scene", "load", []string(nil)),
		Entry("state allocation", "state", "pipeline", []string{"scene"}),
		Entry("rasterizer", "rasterizer", "context", []string{"scene", "state"}),
		Entry("sink launch", "sink", "sink", []string{"scene", "state", "rasterizer"}),
		Entry("simulation step", "tick", "step", []string{"scene", "state", "rasterizer", "sink"}),
		Entry("render", "render", "context", []string{"scene", "state", "rasterizer", "sink"}),
		Entry("write", "write", "sink", []string{"scene", "state", "rasterizer", "sink"}),
	)

	It("stops stepping at the failing tick", func() {
		rec.failAt = "tick"
		_, report, _ := run()
		Expect(rec.count("tick")).To(Equal(26))
		Expect(rec.count("render")).To(Equal(2))
		Expect(report.Ticks).To(Equal(25))
	})

	DescribeTable("a short write at frame k drains after k+1 frames",
		func(k int) {
			rec.shortAt = k
			p, report, err := run()

			Expect(dynamo.IsSoft(err)).To(BeTrue())
			Expect(report.Drained).To(BeTrue())
			Expect(p.Phase()).To(Equal(pipeline.PhaseClosed))

			Expect(rec.count("write")).To(Equal(k + 1))
			Expect(rec.count("render")).To(Equal(k + 1))
			Expect(rec.count("tick")).To(Equal((k + 1) * 10))
			Expect(report.Frames).To(Equal(k + 1))
			frame := int64(8 * 6 * 3)
			Expect(report.BytesWritten).To(Equal(int64(k)*frame + frame/2))

			Expect(rec.only("release ")).To(Equal([]string{"sink", "rasterizer", "state", "scene"}))
			Expect(rec.events[len(rec.events)-5]).To(Equal("write"))
		},
		Entry("first frame", 0),
		Entry("mid run", 41),
		Entry("second to last frame", 298),
	)

	It("fails when the encoder does not finish cleanly", func() {
		rec.closeFails = true
		p, report, err := run()
		Expect(err).To(MatchError(dynamo.ErrSink))
		Expect(p.Phase()).To(Equal(pipeline.PhaseFailed))
		Expect(report.Frames).To(Equal(300))
		Expect(rec.only("release ")).To(Equal([]string{"sink", "rasterizer", "state", "scene"}))
	})

	It("fails a drained run when the encoder close also fails", func() {
		rec.shortAt = 3
		rec.closeFails = true
		p, report, err := run()
		Expect(err).To(MatchError(dynamo.ErrShortWrite))
		Expect(dynamo.IsSoft(err)).To(BeFalse())
		Expect(dynamo.Stage(err)).To(Equal("sink"))
		Expect(report.Drained).To(BeTrue())
		Expect(report.Frames).To(Equal(4))
		Expect(p.Phase()).To(Equal(pipeline.PhaseFailed))
		Expect(report.Phase).To(Equal(pipeline.PhaseFailed))
		Expect(rec.only("release ")).To(Equal([]string{"sink", "rasterizer", "state", "scene"}))
	})

	It("runs only once", func() {
		p, _, err := run()
		Expect(err).NotTo(HaveOccurred())
		_, err = p.Run()
		Expect(err).To(MatchError(ContainSubstring("already ran")))
		Expect(rec.count("acquire scene")).To(Equal(1))
	})

	It("rejects an invalid configuration before acquiring anything", func() {
		cfg.StepsPerFrame = 0
		p, _, err := run()
		Expect(err).To(HaveOccurred())
		Expect(p.Phase()).To(Equal(pipeline.PhaseFailed))
		Expect(rec.events).To(BeEmpty())
	})

	It("steps without a target when nothing resolves", func() {
		d := rec.drivers()
		d.Resolve = nil
		d.LoadScene = func(string) (pipeline.Scene, error) {
			rec.log("acquire scene")
			return &namedScene{fakeScene{r: rec}}, nil
		}
		cfg.NumFrames = 2
		cfg.Actuator = "missing"
		report, err := pipeline.New(d, cfg, pipeline.WithLogger(quietLogger())).Run()
		Expect(err).NotTo(HaveOccurred())
		Expect(report.Target.Kind).To(Equal(control.TargetNone))
		Expect(rec.count("tick")).To(Equal(20))
	})
})

var _ = Describe("Phase", func() {
	It("names every phase", func() {
		Expect(pipeline.PhaseInit.String()).To(Equal("init"))
		Expect(pipeline.PhaseDraining.String()).To(Equal("draining"))
		Expect(pipeline.Phase(42).String()).To(Equal("unknown"))
		Expect(pipeline.PhaseClosed.Terminal()).To(BeTrue())
		Expect(pipeline.PhaseRendering.Terminal()).To(BeFalse())
	})
})
