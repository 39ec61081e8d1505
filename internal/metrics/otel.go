package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/san-kum/dynrec/internal/pipeline"
)

const instrumentationName = "github.com/san-kum/dynrec/internal/metrics"

// Recorder exports per-frame pipeline counters through OpenTelemetry. It is
// a pipeline.FrameObserver.
type Recorder struct {
	ticks   metric.Int64Counter
	frames  metric.Int64Counter
	bytes   metric.Int64Counter
	render  metric.Float64Histogram
	write   metric.Float64Histogram
	attrs   metric.MeasurementOption
	lastTck int

	// Frames and Bytes mirror what was exported.
	Frames int
	Bytes  int64
}

// NewRecorder creates instruments on m, or on the global meter provider
// (a no-op unless one is configured) when m is nil.
func NewRecorder(m metric.Meter, scene string) (*Recorder, error) {
	if m == nil {
		m = otel.Meter(instrumentationName)
	}
	r := &Recorder{attrs: metric.WithAttributes(attribute.String("scene", scene))}

	var err error
	r.ticks, err = m.Int64Counter("dynrec.ticks",
		metric.WithDescription("Physics steps taken"))
	if err != nil {
		return nil, fmt.Errorf("creating ticks counter: %w", err)
	}
	r.frames, err = m.Int64Counter("dynrec.frames",
		metric.WithDescription("Frames handed to the encoder"))
	if err != nil {
		return nil, fmt.Errorf("creating frames counter: %w", err)
	}
	r.bytes, err = m.Int64Counter("dynrec.encoder.bytes",
		metric.WithDescription("Bytes accepted by the encoder"),
		metric.WithUnit("By"))
	if err != nil {
		return nil, fmt.Errorf("creating bytes counter: %w", err)
	}
	r.render, err = m.Float64Histogram("dynrec.render.duration",
		metric.WithDescription("Time to rasterize one frame"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating render histogram: %w", err)
	}
	r.write, err = m.Float64Histogram("dynrec.encoder.write.duration",
		metric.WithDescription("Time blocked writing one frame to the encoder"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, fmt.Errorf("creating write histogram: %w", err)
	}
	return r, nil
}

func (r *Recorder) OnFrame(info pipeline.FrameInfo) {
	ctx := context.Background()
	r.ticks.Add(ctx, int64(info.Ticks-r.lastTck), r.attrs)
	r.lastTck = info.Ticks
	r.frames.Add(ctx, 1, r.attrs)
	r.bytes.Add(ctx, int64(info.Written), r.attrs)
	r.render.Record(ctx, info.Render.Seconds(), r.attrs)
	r.write.Record(ctx, info.Write.Seconds(), r.attrs)
	r.Frames++
	r.Bytes += int64(info.Written)
}
