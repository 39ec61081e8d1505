package pipeline

import "time"

// FrameInfo describes one delivered frame.
type FrameInfo struct {
	Frame     int
	Ticks     int
	SimTime   float64
	Signal    float64
	Positions []float64
	Written   int
	Render    time.Duration
	Write     time.Duration
}

// FrameObserver is notified after every frame handed to the sink, including
// a final short one.
type FrameObserver interface {
	OnFrame(info FrameInfo)
}

type FrameObserverFunc func(FrameInfo)

func (f FrameObserverFunc) OnFrame(info FrameInfo) { f(info) }
