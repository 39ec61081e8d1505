package control

import (
	"fmt"
	"math"
	"sort"
)

// Signal is a deterministic control waveform indexed by frame number. The
// same frame always yields the same value, and every value lies within
// Bounds.
type Signal interface {
	Value(frame int) float64
	Bounds() (lo, hi float64)
}

// Sine is Offset + Amplitude*sin(2π·frame/Period + Phase).
type Sine struct {
	Amplitude float64
	Period    float64
	Phase     float64
	Offset    float64
}

func NewSine(amplitude, period float64) *Sine {
	return &Sine{Amplitude: amplitude, Period: period}
}

func (s *Sine) Value(frame int) float64 {
	return s.Offset + s.Amplitude*math.Sin(2*math.Pi*float64(frame)/s.Period+s.Phase)
}

func (s *Sine) Bounds() (float64, float64) {
	a := math.Abs(s.Amplitude)
	return s.Offset - a, s.Offset + a
}

// Square alternates between +Amplitude and -Amplitude every half period.
type Square struct {
	Amplitude float64
	Period    float64
}

func (s *Square) Value(frame int) float64 {
	if phase(frame, s.Period) < 0.5 {
		return s.Amplitude
	}
	return -s.Amplitude
}

func (s *Square) Bounds() (float64, float64) {
	a := math.Abs(s.Amplitude)
	return -a, a
}

// Triangle ramps linearly between -Amplitude and +Amplitude.
type Triangle struct {
	Amplitude float64
	Period    float64
}

func (s *Triangle) Value(frame int) float64 {
	p := phase(frame, s.Period)
	if p < 0.5 {
		return s.Amplitude * (4*p - 1)
	}
	return s.Amplitude * (3 - 4*p)
}

func (s *Triangle) Bounds() (float64, float64) {
	a := math.Abs(s.Amplitude)
	return -a, a
}

// Constant holds a fixed value.
type Constant struct {
	Level float64
}

func (c *Constant) Value(int) float64 { return c.Level }

func (c *Constant) Bounds() (float64, float64) { return c.Level, c.Level }

// None is the zero signal.
type None struct{}

func (None) Value(int) float64 { return 0 }

func (None) Bounds() (float64, float64) { return 0, 0 }

func phase(frame int, period float64) float64 {
	p := float64(frame) / period
	return p - math.Floor(p)
}

var waveforms = map[string]func(amplitude, period float64) Signal{
	"sine":     func(a, p float64) Signal { return NewSine(a, p) },
	"square":   func(a, p float64) Signal { return &Square{Amplitude: a, Period: p} },
	"triangle": func(a, p float64) Signal { return &Triangle{Amplitude: a, Period: p} },
	"constant": func(a, _ float64) Signal { return &Constant{Level: a} },
	"none":     func(_, _ float64) Signal { return None{} },
}

// NewSignal builds the named waveform.
func NewSignal(kind string, amplitude, period float64) (Signal, error) {
	build, ok := waveforms[kind]
	if !ok {
		return nil, fmt.Errorf("unknown waveform: %s", kind)
	}
	if math.IsNaN(amplitude) || math.IsInf(amplitude, 0) {
		return nil, fmt.Errorf("waveform amplitude must be finite")
	}
	if kind != "constant" && kind != "none" && !(period > 0) {
		return nil, fmt.Errorf("waveform period must be positive, got %g", period)
	}
	return build(amplitude, period), nil
}

// Waveforms lists the registered waveform names.
func Waveforms() []string {
	names := make([]string, 0, len(waveforms))
	for name := range waveforms {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
