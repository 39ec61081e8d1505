package encode

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os/exec"
	"strconv"
	"sync"

	"github.com/san-kum/dynrec/internal/dynamo"
)

// DefaultOutput is the video file written when none is configured.
const DefaultOutput = "output.mp4"

type FFmpegConfig struct {
	// Binary is the encoder executable; "ffmpeg" from PATH by default.
	Binary string
	Output string
	// VFlip asks the encoder to flip frames to top-left origin.
	VFlip bool
	// ExtraArgs go right before the output path.
	ExtraArgs []string
}

// Args returns the encoder command line, without the binary.
func Args(format Format, cfg FFmpegConfig) []string {
	output := cfg.Output
	if output == "" {
		output = DefaultOutput
	}
	args := []string{
		"-y",
		"-f", "rawvideo",
		"-pixel_format", format.pixelFormat(),
		"-video_size", fmt.Sprintf("%dx%d", format.Width, format.Height),
		"-framerate", strconv.Itoa(format.FPS),
		"-i", "-",
		"-pix_fmt", "yuv420p",
	}
	if cfg.VFlip {
		args = append(args, "-vf", "vflip")
	}
	args = append(args, cfg.ExtraArgs...)
	return append(args, output)
}

// FFmpeg streams frames into an encoder subprocess over its stdin.
type FFmpeg struct {
	*Stream
	cmd    *exec.Cmd
	stdin  io.WriteCloser
	logger *slog.Logger
	done   sync.WaitGroup
}

// OpenFFmpeg launches the encoder. A launch failure is a *dynamo.SinkError
// with Op "launch".
func OpenFFmpeg(format Format, cfg FFmpegConfig, logger *slog.Logger) (*FFmpeg, error) {
	if err := format.Validate(); err != nil {
		return nil, &dynamo.SinkError{Op: "launch", Err: err}
	}
	if logger == nil {
		logger = slog.Default()
	}
	binary := cfg.Binary
	if binary == "" {
		binary = "ffmpeg"
	}

	cmd := exec.Command(binary, Args(format, cfg)...)
	stdin, err := cmd.StdinPipe()
	if err != nil {
		return nil, &dynamo.SinkError{Op: "launch", Err: fmt.Errorf("stdin pipe: %w", err)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, &dynamo.SinkError{Op: "launch", Err: fmt.Errorf("stderr pipe: %w", err)}
	}
	if err := cmd.Start(); err != nil {
		return nil, &dynamo.SinkError{Op: "launch", Err: fmt.Errorf("start %s: %w", binary, err)}
	}

	f := &FFmpeg{cmd: cmd, stdin: stdin, logger: logger}
	logger.Info("encoder spawned", "binary", binary, "pid", cmd.Process.Pid, "format", format.String())

	f.done.Add(1)
	go f.logStderr(stderr)

	f.Stream = NewStream(stdin, format, f.wait)
	return f, nil
}

func (f *FFmpeg) logStderr(r io.Reader) {
	defer f.done.Done()
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		f.logger.Debug("encoder", "line", scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		f.logger.Warn("error reading encoder stderr", "error", err)
	}
}

// wait closes stdin so the encoder sees end of input, then waits for it to
// finish writing the output.
func (f *FFmpeg) wait() error {
	var errs []error
	if err := f.stdin.Close(); err != nil && !errors.Is(err, io.ErrClosedPipe) {
		errs = append(errs, fmt.Errorf("close stdin: %w", err))
	}
	f.done.Wait()
	if err := f.cmd.Wait(); err != nil {
		errs = append(errs, err)
		f.logger.Error("encoder exited with error", "pid", f.cmd.Process.Pid, "error", err)
	} else {
		f.logger.Info("encoder exited cleanly", "pid", f.cmd.Process.Pid, "frames", f.Frames())
	}
	if len(errs) > 0 {
		return &dynamo.SinkError{Op: "close", Frame: f.Frames(), Err: errors.Join(errs...)}
	}
	return nil
}
