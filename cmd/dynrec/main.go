package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/san-kum/dynrec/internal/config"
	"github.com/san-kum/dynrec/internal/dynamo"
)

const (
	exitFailed  = 1
	exitDrained = 3
)

var (
	dataDir    string
	configFile string
	preset     string
	logLevel   string

	flags recordFlags
)

// recordFlags mirror config.Config. They only override the loaded
// configuration when set on the command line.
type recordFlags struct {
	width, height int
	fps           int
	stepsPerFrame int
	frames        int
	actuator      string
	joint         string
	waveform      string
	amplitude     float64
	period        float64
	backend       string
	sink          string
	output        string
	ffmpeg        string
	vflip         bool
	showFrames    bool
	showContacts  bool
	record        bool
	quiet         bool
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, diagnostic(err))
		os.Exit(exitCode(err))
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:           "dynrec [scene]",
		Short:         "record a simulated scene to video",
		Long:          "dynrec loads a scene, drives it with a control signal and streams the rendered frames to an encoder.\nThe scene is an MJCF file path, inline MJCF text or builtin:<name>.",
		Args:          cobra.MaximumNArgs(1),
		RunE:          runRecord,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&dataDir, "data", config.DefaultDataDir, "run data directory")
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (yaml)")
	rootCmd.PersistentFlags().StringVar(&preset, "preset", "", "use preset configuration")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")

	f := rootCmd.Flags()
	f.IntVar(&flags.width, "width", config.DefaultWidth, "frame width")
	f.IntVar(&flags.height, "height", config.DefaultHeight, "frame height")
	f.IntVar(&flags.fps, "fps", config.DefaultFPS, "output frame rate")
	f.IntVar(&flags.stepsPerFrame, "steps-per-frame", config.DefaultStepsPerFrame, "physics steps per frame")
	f.IntVar(&flags.frames, "frames", config.DefaultFrames, "number of frames")
	f.StringVar(&flags.actuator, "actuator", "", "actuator driven by the signal")
	f.StringVar(&flags.joint, "joint", "", "joint driven by the signal when no actuator matches")
	f.StringVar(&flags.waveform, "waveform", "sine", "signal waveform (none, constant, sine, square, triangle)")
	f.Float64Var(&flags.amplitude, "amplitude", config.DefaultAmplitude, "signal amplitude")
	f.Float64Var(&flags.period, "period", config.DefaultPeriod, "signal period in frames")
	f.StringVar(&flags.backend, "backend", "software", "render backend")
	f.StringVar(&flags.sink, "sink", "ffmpeg", "encoder sink (ffmpeg, images, gst)")
	f.StringVarP(&flags.output, "output", "o", "output.mp4", "output video file or image directory")
	f.StringVar(&flags.ffmpeg, "ffmpeg", "ffmpeg", "ffmpeg binary")
	f.BoolVar(&flags.vflip, "vflip", true, "flip frames vertically in the encoder")
	f.BoolVar(&flags.showFrames, "show-frames", false, "draw body frames")
	f.BoolVar(&flags.showContacts, "show-contacts", false, "draw contact points")
	f.BoolVar(&flags.record, "record", false, "save trajectory and metrics under --data")
	f.BoolVarP(&flags.quiet, "quiet", "q", false, "no progress bar or summary")

	inspectCmd := &cobra.Command{
		Use:   "inspect [scene]",
		Short: "show scene structure",
		Args:  cobra.ExactArgs(1),
		RunE:  inspectScene,
	}
	inspectCmd.Flags().Bool("preview", false, "render the initial frame as text")

	listCmd := &cobra.Command{
		Use:   "list",
		Short: "list recorded runs",
		RunE:  listRuns,
	}

	plotCmd := &cobra.Command{
		Use:   "plot [run_id]",
		Short: "plot recorded trajectories",
		Args:  cobra.ExactArgs(1),
		RunE:  plotRun,
	}
	plotCmd.Flags().Int("q", -1, "position index to plot (all when negative)")

	exportCmd := &cobra.Command{
		Use:   "export [run_id]",
		Short: "export run metadata and trajectory as JSON",
		Args:  cobra.ExactArgs(1),
		RunE:  exportRun,
	}
	exportCmd.Flags().Int("svg", -1, "write position q<n> against time as SVG instead")

	analyzeCmd := &cobra.Command{
		Use:   "analyze [run_id]",
		Short: "frequency analysis of a recorded run",
		Args:  cobra.ExactArgs(1),
		RunE:  analyzeRun,
	}
	analyzeCmd.Flags().Int("x", 0, "position index for the portrait x-axis")
	analyzeCmd.Flags().Int("y", 1, "position index for the portrait y-axis")

	presetsCmd := &cobra.Command{
		Use:   "presets",
		Short: "list available presets",
		RunE:  listPresets,
	}

	batchCmd := &cobra.Command{
		Use:   "batch [scenario.yaml]",
		Short: "record every run of a scenario",
		Args:  cobra.ExactArgs(1),
		RunE:  runBatch,
	}

	rootCmd.AddCommand(inspectCmd, listCmd, plotCmd, exportCmd, analyzeCmd, presetsCmd, batchCmd)
	return rootCmd
}

// diagnostic is the single line printed for a failed run, naming the stage
// that failed. Joined errors are kept on one line.
func diagnostic(err error) string {
	return fmt.Sprintf("dynrec: %s: %s", dynamo.Stage(err), strings.ReplaceAll(err.Error(), "\n", "; "))
}

// exitCode distinguishes a drained run, which stopped early on a short
// encoder write but released everything in order, from a failure.
func exitCode(err error) int {
	if dynamo.IsSoft(err) {
		return exitDrained
	}
	return exitFailed
}
