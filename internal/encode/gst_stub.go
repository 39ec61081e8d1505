//go:build !gst

package encode

import (
	"log/slog"

	"github.com/san-kum/dynrec/internal/dynamo"
)

// GStreamer is only available in builds with the gst tag.
type GStreamer struct {
	*Stream
}

func OpenGStreamer(format Format, output string, logger *slog.Logger) (*GStreamer, error) {
	return nil, &dynamo.SinkError{Op: "launch", Err: ErrNoGStreamer}
}
