package sim

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/dynrec/internal/control"
	"github.com/san-kum/dynrec/internal/dynamo"
	"github.com/san-kum/dynrec/internal/scene"
	"github.com/san-kum/dynrec/internal/teardown"
)

type countingObserver struct {
	steps int
	last  float64
}

func (c *countingObserver) OnStep(x dynamo.State, u dynamo.Control, t float64) {
	c.steps++
	c.last = t
}

var _ = Describe("Stepper", func() {
	var (
		handle  *scene.Handle
		stepper *Stepper
	)

	load := func(descriptor string) {
		var err error
		handle, err = scene.Load(descriptor)
		Expect(err).NotTo(HaveOccurred())
		stepper = New(handle.Model())
	}

	AfterEach(func() {
		if stepper != nil {
			_ = stepper.Close()
		}
		if handle != nil {
			_ = handle.Close()
		}
		stepper, handle = nil, nil
	})

	Context("with an actuator target", func() {
		BeforeEach(func() { load("builtin:pendulum") })

		It("writes the control slot and advances exactly one timestep", func() {
			target := control.Resolve(handle.Model(), "motor", "hinge")
			Expect(target.Kind).To(Equal(control.TargetActuator))

			Expect(stepper.Tick(target, 0.25)).To(Succeed())
			Expect(stepper.Data().Ctrl[target.Index]).To(Equal(0.25))
			Expect(stepper.Ticks()).To(Equal(1))
			Expect(stepper.Time()).To(BeNumerically("~", handle.Model().Timestep, 1e-12))
		})
	})

	Context("with a joint target", func() {
		BeforeEach(func() { load("builtin:slider") })

		It("clears the applied force after every tick", func() {
			target := control.Resolve(handle.Model(), "motor", "rail")
			Expect(target.Kind).To(Equal(control.TargetJoint))

			for i := 0; i < 50; i++ {
				Expect(stepper.Tick(target, 2.0)).To(Succeed())
				Expect(stepper.Data().QfrcApplied[target.Index]).To(BeZero())
			}
			Expect(stepper.Positions()[0]).To(BeNumerically(">", 0))
		})
	})

	Context("without a target", func() {
		BeforeEach(func() { load(scene.DefaultScene) })

		It("steps unactuated and notifies observers", func() {
			obs := &countingObserver{}
			stepper.AddObserver(obs)
			target := control.Resolve(handle.Model(), "motor", "hinge")
			Expect(target.Kind).To(Equal(control.TargetNone))

			for i := 0; i < 10; i++ {
				Expect(stepper.Tick(target, 0.5)).To(Succeed())
			}
			Expect(obs.steps).To(Equal(10))
			Expect(obs.last).To(BeNumerically("~", 0.05, 1e-12))
			Expect(stepper.Positions()[2]).To(BeNumerically("<", 0.3))
		})
	})

	Context("when the state diverges", func() {
		BeforeEach(func() { load("builtin:slider") })

		It("reports a step error carrying the tick index", func() {
			target := control.Resolve(handle.Model(), "", "rail")
			Expect(stepper.Tick(target, 1)).To(Succeed())

			err := stepper.Tick(target, math.Inf(1))
			var simErr *dynamo.SimulationError
			Expect(errors.As(err, &simErr)).To(BeTrue())
			Expect(simErr.Step).To(Equal(1))
			Expect(dynamo.Stage(err)).To(Equal("step"))
			Expect(stepper.Data().QfrcApplied[target.Index]).To(BeZero())
		})
	})

	It("releases state exactly once", func() {
		load(scene.DefaultScene)
		before := Live()
		Expect(stepper.Close()).To(Succeed())
		Expect(Live()).To(Equal(before - 1))
		Expect(errors.Is(stepper.Close(), teardown.ErrReleased)).To(BeTrue())
		stepper = nil
	})
})
