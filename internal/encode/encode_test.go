package encode

import (
	"bytes"
	"errors"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"

	"github.com/san-kum/dynrec/internal/dynamo"
	"github.com/san-kum/dynrec/internal/teardown"
)

func frame(f Format, fill byte) []byte {
	return bytes.Repeat([]byte{fill}, f.FrameSize())
}

func TestArgs(t *testing.T) {
	f := NewFormat(640, 480, 30)
	got := strings.Join(Args(f, FFmpegConfig{VFlip: true}), " ")
	want := "-y -f rawvideo -pixel_format rgb24 -video_size 640x480 -framerate 30 -i - -pix_fmt yuv420p -vf vflip output.mp4"
	if got != want {
		t.Errorf("Args() =\n%s\nwant\n%s", got, want)
	}

	got = strings.Join(Args(f, FFmpegConfig{Output: "a.mkv", ExtraArgs: []string{"-crf", "18"}}), " ")
	if !strings.HasSuffix(got, "-pix_fmt yuv420p -crf 18 a.mkv") {
		t.Errorf("Args() without flip = %s", got)
	}
}

func TestFormatValidate(t *testing.T) {
	tests := []struct {
		name string
		f    Format
		ok   bool
	}{
		{"default", NewFormat(640, 480, 30), true},
		{"empty pixel format", Format{Width: 2, Height: 2, FPS: 1}, true},
		{"zero width", NewFormat(0, 480, 30), false},
		{"zero fps", NewFormat(640, 480, 0), false},
		{"yuv", Format{Width: 2, Height: 2, FPS: 1, PixelFormat: "yuv420p"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.f.Validate(); (err == nil) != tt.ok {
				t.Errorf("Validate() = %v, want ok=%v", err, tt.ok)
			}
		})
	}
}

func TestFlipRows(t *testing.T) {
	src := []byte{
		1, 1, 1, 2, 2, 2,
		3, 3, 3, 4, 4, 4,
		5, 5, 5, 6, 6, 6,
	}
	dst := make([]byte, len(src))
	FlipRows(dst, src, 2, 3)
	want := []byte{
		5, 5, 5, 6, 6, 6,
		3, 3, 3, 4, 4, 4,
		1, 1, 1, 2, 2, 2,
	}
	if !bytes.Equal(dst, want) {
		t.Errorf("FlipRows() = %v", dst)
	}
}

func TestMemoryKeepsFrames(t *testing.T) {
	f := NewFormat(4, 2, 30)
	m := NewMemory(f, -1)
	for i := 0; i < 3; i++ {
		if n, err := m.Write(frame(f, byte(i))); err != nil || n != f.FrameSize() {
			t.Fatalf("Write() = %d, %v", n, err)
		}
	}
	if m.Frames() != 3 || m.BytesWritten() != int64(3*f.FrameSize()) {
		t.Errorf("frames=%d bytes=%d", m.Frames(), m.BytesWritten())
	}
	if m.Frame(2)[0] != 2 {
		t.Errorf("frame 2 starts with %d", m.Frame(2)[0])
	}
	if m.Frame(3) != nil {
		t.Error("frame 3 should not exist")
	}
	if err := m.Close(); err != nil {
		t.Fatal(err)
	}
	if err := m.Close(); !errors.Is(err, teardown.ErrReleased) {
		t.Errorf("second Close() = %v", err)
	}
}

func TestShortWrite(t *testing.T) {
	f := NewFormat(4, 2, 30)
	size := f.FrameSize()
	m := NewMemory(f, 2*size+5)

	for i := 0; i < 2; i++ {
		if _, err := m.Write(frame(f, 1)); err != nil {
			t.Fatal(err)
		}
	}
	n, err := m.Write(frame(f, 1))
	if n != 5 {
		t.Errorf("short write delivered %d bytes, want 5", n)
	}
	if !dynamo.IsSoft(err) {
		t.Fatalf("expected short write, got %v", err)
	}
	var se *dynamo.SinkError
	if !errors.As(err, &se) || se.Frame != 2 || se.Written != 5 || se.Expected != size {
		t.Errorf("unexpected sink error %+v", se)
	}
	if dynamo.Stage(err) != "sink" {
		t.Errorf("Stage() = %q", dynamo.Stage(err))
	}

	if _, err := m.Write(frame(f, 1)); !dynamo.IsSoft(err) {
		t.Errorf("write after short write = %v", err)
	}
	if m.Frames() != 2 {
		t.Errorf("complete frames = %d, want 2", m.Frames())
	}
}

func TestWrongFrameSize(t *testing.T) {
	m := NewMemory(NewFormat(4, 2, 30), -1)
	_, err := m.Write(make([]byte, 3))
	if !errors.Is(err, dynamo.ErrDimensionMismatch) || dynamo.IsSoft(err) {
		t.Errorf("Write(3 bytes) = %v", err)
	}
}

func TestImages(t *testing.T) {
	dir := t.TempDir()
	f := NewFormat(2, 2, 30)
	im, err := OpenImages(filepath.Join(dir, "frames"), f)
	if err != nil {
		t.Fatal(err)
	}
	// bottom row red, top row blue
	raw := []byte{255, 0, 0, 255, 0, 0, 0, 0, 255, 0, 0, 255}
	if _, err := im.Write(raw); err != nil {
		t.Fatal(err)
	}
	if err := im.Close(); err != nil {
		t.Fatal(err)
	}

	file, err := os.Open(im.Path(0))
	if err != nil {
		t.Fatal(err)
	}
	defer file.Close()
	img, err := png.Decode(file)
	if err != nil {
		t.Fatal(err)
	}
	r, _, b, _ := img.At(0, 0).RGBA()
	if b>>8 != 255 || r != 0 {
		t.Errorf("top-left pixel should be blue, got r=%d b=%d", r>>8, b>>8)
	}
	r, _, _, _ = img.At(1, 1).RGBA()
	if r>>8 != 255 {
		t.Errorf("bottom-right pixel should be red, got r=%d", r>>8)
	}
}

func fakeEncoder(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts required")
	}
	path := filepath.Join(t.TempDir(), "fake-ffmpeg")
	if err := os.WriteFile(path, []byte("#!/bin/sh\n"+body+"\n"), 0o755); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFFmpegStreamsToOutput(t *testing.T) {
	bin := fakeEncoder(t, `for a; do out=$a; done
echo "starting encode" >&2
exec cat > "$out"`)
	out := filepath.Join(t.TempDir(), "out.raw")
	var logs bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))

	f := NewFormat(8, 4, 30)
	sink, err := OpenFFmpeg(f, FFmpegConfig{Binary: bin, Output: out, VFlip: true}, logger)
	if err != nil {
		t.Fatal(err)
	}
	for i := 0; i < 5; i++ {
		if _, err := sink.Write(frame(f, byte(i))); err != nil {
			t.Fatal(err)
		}
	}
	if err := sink.Close(); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	if len(data) != 5*f.FrameSize() {
		t.Errorf("output is %d bytes, want %d", len(data), 5*f.FrameSize())
	}
	if !strings.Contains(logs.String(), "starting encode") {
		t.Errorf("encoder stderr not forwarded:\n%s", logs.String())
	}
}

func TestFFmpegLaunchFailure(t *testing.T) {
	_, err := OpenFFmpeg(NewFormat(8, 4, 30), FFmpegConfig{Binary: filepath.Join(t.TempDir(), "missing")}, nil)
	var se *dynamo.SinkError
	if !errors.As(err, &se) || se.Op != "launch" {
		t.Fatalf("expected launch SinkError, got %v", err)
	}
	if dynamo.IsSoft(err) {
		t.Error("launch failure must not be soft")
	}
}

func TestFFmpegEncoderGoesAway(t *testing.T) {
	bin := fakeEncoder(t, "exit 0")
	f := NewFormat(64, 48, 30)
	sink, err := OpenFFmpeg(f, FFmpegConfig{Binary: bin}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err != nil {
		t.Fatal(err)
	}
	defer sink.Close()

	buf := frame(f, 7)
	for i := 0; i < 10000; i++ {
		_, err = sink.Write(buf)
		if err != nil {
			break
		}
	}
	if !dynamo.IsSoft(err) {
		t.Fatalf("expected a short write once the encoder exits, got %v", err)
	}
}

func TestFFmpegExitStatus(t *testing.T) {
	bin := fakeEncoder(t, "cat > /dev/null; exit 3")
	f := NewFormat(8, 4, 30)
	sink, err := OpenFFmpeg(f, FFmpegConfig{Binary: bin}, slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := sink.Write(frame(f, 0)); err != nil {
		t.Fatal(err)
	}
	err = sink.Close()
	var se *dynamo.SinkError
	if !errors.As(err, &se) || se.Op != "close" {
		t.Errorf("Close() = %v, want close SinkError", err)
	}
}
