//go:build gst

package encode

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/tinyzimmer/go-gst/gst"
	"github.com/tinyzimmer/go-gst/gst/app"

	"github.com/san-kum/dynrec/internal/dynamo"
)

// GStreamer encodes frames in-process through an appsrc pipeline.
type GStreamer struct {
	*Stream
	pipeline *gst.Pipeline
	src      *app.Source
	logger   *slog.Logger
}

// gstLaunch describes the pipeline. The output path is set on the "out"
// element as a property, never through the launch syntax, so spaces and '!'
// in it survive.
func gstLaunch(format Format) string {
	return fmt.Sprintf(
		"appsrc name=frames format=time is-live=false block=true caps=video/x-raw,format=RGB,width=%d,height=%d,framerate=%d/1 "+
			"! videoflip method=vertical-flip ! videoconvert ! x264enc ! mp4mux ! filesink name=out",
		format.Width, format.Height, format.FPS)
}

// OpenGStreamer builds and starts the pipeline.
func OpenGStreamer(format Format, output string, logger *slog.Logger) (*GStreamer, error) {
	if err := format.Validate(); err != nil {
		return nil, &dynamo.SinkError{Op: "launch", Err: err}
	}
	if output == "" {
		output = DefaultOutput
	}
	if logger == nil {
		logger = slog.Default()
	}

	gst.Init(nil)
	pipeline, err := gst.NewPipelineFromString(gstLaunch(format))
	if err != nil {
		return nil, &dynamo.SinkError{Op: "launch", Err: fmt.Errorf("create pipeline: %w", err)}
	}
	out, err := pipeline.GetElementByName("out")
	if err != nil {
		return nil, &dynamo.SinkError{Op: "launch", Err: fmt.Errorf("find filesink: %w", err)}
	}
	if err := out.SetProperty("location", output); err != nil {
		return nil, &dynamo.SinkError{Op: "launch", Err: fmt.Errorf("set output %q: %w", output, err)}
	}
	elem, err := pipeline.GetElementByName("frames")
	if err != nil {
		return nil, &dynamo.SinkError{Op: "launch", Err: fmt.Errorf("find appsrc: %w", err)}
	}
	if err := pipeline.SetState(gst.StatePlaying); err != nil {
		return nil, &dynamo.SinkError{Op: "launch", Err: fmt.Errorf("start pipeline: %w", err)}
	}

	g := &GStreamer{pipeline: pipeline, src: app.SrcFromElement(elem), logger: logger}
	g.Stream = NewStream(appsrcWriter{g.src}, format, g.finish)
	logger.Info("gstreamer pipeline started", "format", format.String(), "output", output)
	return g, nil
}

// appsrcWriter pushes each write as one buffer.
type appsrcWriter struct {
	src *app.Source
}

func (w appsrcWriter) Write(frame []byte) (int, error) {
	if ret := w.src.PushBuffer(gst.NewBufferFromBytes(frame)); ret != gst.FlowOK {
		return 0, fmt.Errorf("push buffer: %v", ret)
	}
	return len(frame), nil
}

// finish sends end-of-stream and waits for the muxer to finalize the file.
func (g *GStreamer) finish() error {
	g.src.EndStream()
	defer g.pipeline.SetState(gst.StateNull)

	bus := g.pipeline.GetPipelineBus()
	for {
		msg := bus.TimedPop(100 * time.Millisecond)
		if msg == nil {
			continue
		}
		switch msg.Type() {
		case gst.MessageEOS:
			g.logger.Info("gstreamer pipeline finished", "frames", g.Frames())
			return nil
		case gst.MessageError:
			gerr := msg.ParseError()
			g.logger.Error("gstreamer pipeline error", "error", gerr.Error(), "debug", gerr.DebugString())
			return &dynamo.SinkError{Op: "close", Frame: g.Frames(), Err: gerr}
		}
	}
}
