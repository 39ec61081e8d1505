package encode

import (
	"errors"
	"fmt"
	"io"

	"github.com/san-kum/dynrec/internal/dynamo"
	"github.com/san-kum/dynrec/internal/teardown"
)

// ErrNoGStreamer is returned by OpenGStreamer in builds without the gst tag.
var ErrNoGStreamer = errors.New("encode: built without gstreamer support")

// Sink consumes whole frames.
type Sink interface {
	// Write delivers one frame. n < len(frame) comes with a short-write
	// error and ends the stream.
	Write(frame []byte) (n int, err error)
	Close() error
}

// Stream writes frames to any byte stream.
type Stream struct {
	w      io.Writer
	format Format
	frames int
	bytes  int64
	short  bool
	close  func() error
}

// NewStream wraps w. closer, if non-nil, runs once on Close.
func NewStream(w io.Writer, format Format, closer func() error) *Stream {
	if closer == nil {
		closer = func() error { return nil }
	}
	return &Stream{w: w, format: format, close: teardown.Once(closer)}
}

func (s *Stream) Format() Format { return s.format }

// Frames is the number of complete frames written.
func (s *Stream) Frames() int { return s.frames }

// BytesWritten counts every byte the writer accepted, partial frames
// included.
func (s *Stream) BytesWritten() int64 { return s.bytes }

func (s *Stream) Write(frame []byte) (int, error) {
	want := s.format.FrameSize()
	if len(frame) != want {
		return 0, &dynamo.SinkError{
			Op:       "write",
			Frame:    s.frames,
			Expected: want,
			Err:      fmt.Errorf("%w: frame is %d bytes", dynamo.ErrDimensionMismatch, len(frame)),
		}
	}
	if s.short {
		return 0, s.shortError(0, io.ErrClosedPipe)
	}

	n, err := s.w.Write(frame)
	s.bytes += int64(n)
	if n < want {
		s.short = true
		return n, s.shortError(n, err)
	}
	if err != nil {
		return n, &dynamo.SinkError{Op: "write", Frame: s.frames, Written: n, Expected: want, Err: err}
	}
	s.frames++
	return n, nil
}

func (s *Stream) shortError(n int, cause error) error {
	err := dynamo.ErrShortWrite
	if cause != nil {
		err = errors.Join(dynamo.ErrShortWrite, cause)
	}
	return &dynamo.SinkError{Op: "write", Frame: s.frames, Written: n, Expected: s.format.FrameSize(), Err: err}
}

func (s *Stream) Close() error {
	return s.close()
}

// Memory is an in-memory sink. With a non-negative Limit it accepts at most
// Limit bytes in total and then writes short, like an encoder that went
// away mid-stream.
type Memory struct {
	*Stream
	buf *limitBuffer
}

// NewMemory returns a sink that keeps every frame. limit < 0 means no limit.
func NewMemory(format Format, limit int) *Memory {
	buf := &limitBuffer{limit: limit}
	return &Memory{Stream: NewStream(buf, format, nil), buf: buf}
}

// Bytes returns everything written so far.
func (m *Memory) Bytes() []byte {
	return m.buf.data
}

// Frame returns a complete frame by index.
func (m *Memory) Frame(i int) []byte {
	size := m.format.FrameSize()
	if i < 0 || (i+1)*size > len(m.buf.data) {
		return nil
	}
	return m.buf.data[i*size : (i+1)*size]
}

type limitBuffer struct {
	data  []byte
	limit int
}

func (b *limitBuffer) Write(p []byte) (int, error) {
	if b.limit < 0 {
		b.data = append(b.data, p...)
		return len(p), nil
	}
	room := b.limit - len(b.data)
	if room <= 0 {
		return 0, io.ErrShortWrite
	}
	if len(p) > room {
		b.data = append(b.data, p[:room]...)
		return room, io.ErrShortWrite
	}
	b.data = append(b.data, p...)
	return len(p), nil
}
