package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/san-kum/dynrec/internal/analysis"
	"github.com/san-kum/dynrec/internal/automation"
	"github.com/san-kum/dynrec/internal/config"
	"github.com/san-kum/dynrec/internal/export"
	"github.com/san-kum/dynrec/internal/logging"
	"github.com/san-kum/dynrec/internal/render"
	"github.com/san-kum/dynrec/internal/scene"
	"github.com/san-kum/dynrec/internal/sim"
	"github.com/san-kum/dynrec/internal/storage"
	"github.com/san-kum/dynrec/internal/viz"
)

func inspectScene(cmd *cobra.Command, args []string) (err error) {
	h, err := scene.Load(args[0])
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, h.Close()) }()
	m := h.Model()

	actuators := make([]string, 0, len(m.Actuators))
	for _, a := range m.Actuators {
		actuators = append(actuators, fmt.Sprintf("%s (gear %g)", a.Name, a.Gear))
	}
	joints := make([]string, 0, len(m.Joints))
	for _, j := range m.Joints {
		if j.Name != "" {
			joints = append(joints, j.Name)
		}
	}

	body := viz.KeyValues(
		"source", h.Source(),
		"model", m.Summary(),
		"actuators", orNone(actuators),
		"joints", orNone(joints),
	)
	fmt.Println(viz.Panel.Render(viz.Title.Render("scene") + "\n" + body))

	preview, _ := cmd.Flags().GetBool("preview")
	if !preview {
		return nil
	}

	st := sim.New(m)
	defer func() { err = errors.Join(err, st.Close()) }()
	r, err := render.Open(m, st.Data(), render.Config{Width: 160, Height: 96})
	if err != nil {
		return err
	}
	defer func() { err = errors.Join(err, r.Close()) }()

	buf := make([]byte, r.FrameSize())
	if err := r.Render(buf); err != nil {
		return err
	}
	fmt.Print(viz.Thumbnail(buf, 160, 96, 60, 18))
	return nil
}

func orNone(names []string) string {
	if len(names) == 0 {
		return "none"
	}
	return strings.Join(names, ", ")
}

func openStore(cmd *cobra.Command) (*storage.Store, error) {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return storage.New(cfg.DataDir), nil
}

func listRuns(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	runs, err := st.List()
	if err != nil {
		return err
	}

	if len(runs) == 0 {
		fmt.Println("no runs found")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSCENE\tTIME\tFRAMES\tTICKS\tPHASE\tOUTPUT")

	for _, run := range runs {
		phase := run.Phase
		if run.Drained {
			phase += " (drained)"
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%d\t%d\t%s\t%s\n",
			run.ID,
			run.Scene,
			run.Timestamp.Format("2006-01-02 15:04:05"),
			run.Frames,
			run.Ticks,
			phase,
			run.Output,
		)
	}

	return w.Flush()
}

func plotRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	if len(traj.Frames) == 0 {
		return fmt.Errorf("no data to plot")
	}

	fmt.Printf("run: %s\n", meta.ID)
	fmt.Printf("scene: %s\n", meta.Scene)
	fmt.Printf("frames: %d\n\n", len(traj.Frames))

	fmt.Println(viz.Plot(traj.Signals, "control signal"))
	fmt.Println()

	q, _ := cmd.Flags().GetInt("q")
	numVars := len(traj.Positions[0])
	if q >= numVars {
		return fmt.Errorf("position index %d out of range (%d positions)", q, numVars)
	}
	from, to := 0, min(numVars, 6)
	if q >= 0 {
		from, to = q, q+1
	}
	for i := from; i < to; i++ {
		fmt.Println(viz.Plot(traj.Column(i), fmt.Sprintf("q%d vs frame", i)))
		fmt.Println()
	}
	return nil
}

func exportRun(cmd *cobra.Command, args []string) error {
	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	q, _ := cmd.Flags().GetInt("svg")
	if q < 0 {
		return st.ExportJSON(os.Stdout, args[0])
	}

	traj, err := st.LoadTrajectory(args[0])
	if err != nil {
		return err
	}
	svg := export.TrajectorySVG(traj.Times, traj.Column(q), 800, 400, "#00ff88")
	if svg == "" {
		return fmt.Errorf("not enough samples of q%d to export", q)
	}
	_, err = fmt.Fprintln(os.Stdout, svg)
	return err
}

func analyzeRun(cmd *cobra.Command, args []string) error {
	runID := args[0]

	st, err := openStore(cmd)
	if err != nil {
		return err
	}
	meta, err := st.Load(runID)
	if err != nil {
		return err
	}
	traj, err := st.LoadTrajectory(runID)
	if err != nil {
		return err
	}
	n := len(traj.Times)
	if n < 2 || traj.Times[n-1] <= traj.Times[0] {
		return fmt.Errorf("no data")
	}
	rate := float64(n-1) / (traj.Times[n-1] - traj.Times[0])

	fmt.Printf("frequency analysis: %s\n", meta.ID)
	fmt.Printf("scene: %s\n\n", meta.Scene)

	pairs := []string{"signal", formatFrequency(analysis.Dominant(traj.Signals, rate))}
	for i := range traj.Positions[0] {
		pairs = append(pairs, fmt.Sprintf("q%d", i), formatFrequency(analysis.Dominant(traj.Column(i), rate)))
	}
	fmt.Println(viz.KeyValues(pairs...))

	x, _ := cmd.Flags().GetInt("x")
	y, _ := cmd.Flags().GetInt("y")
	if x >= 0 && y >= 0 && x < len(traj.Positions[0]) && y < len(traj.Positions[0]) {
		fmt.Printf("\nq%d vs q%d:\n", y, x)
		fmt.Print(analysis.Portrait(traj.Column(x), traj.Column(y), 60, 20))
	}
	return nil
}

func formatFrequency(hz float64) string {
	if hz == 0 {
		return "flat"
	}
	return fmt.Sprintf("%.3f hz (period %.3f s)", hz, 1/hz)
}

func listPresets(cmd *cobra.Command, args []string) error {
	fmt.Println("presets:")
	for _, name := range config.ListPresets() {
		fmt.Printf("  %-10s %s\n", name, viz.Subtle.Render(config.Presets[name].Description))
	}
	fmt.Println("\nbuiltin scenes:")
	for _, name := range scene.Builtins() {
		fmt.Printf("  builtin:%s\n", name)
	}
	return nil
}

func runBatch(cmd *cobra.Command, args []string) error {
	sc, err := automation.LoadScenario(args[0])
	if err != nil {
		return err
	}
	base, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(base.LogLevel, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	results, err := automation.RunScenario(ctx, sc, base, batchRunner(logger), logger)

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "RUN\tFRAMES\tTICKS\tPHASE\tRESULT")
	drained := 0
	for _, r := range results {
		frames, ticks, phase := 0, 0, "-"
		if r.Report != nil {
			frames, ticks, phase = r.Report.Frames, r.Report.Ticks, r.Report.Phase.String()
		}
		result := "ok"
		if r.Err != nil {
			result = r.Err.Error()
		}
		if r.Report != nil && r.Report.Drained {
			drained++
		}
		fmt.Fprintf(w, "%s\t%d\t%d\t%s\t%s\n", r.Name, frames, ticks, phase, result)
	}
	if ferr := w.Flush(); ferr != nil {
		return ferr
	}
	if err != nil {
		return err
	}
	logger.Info("scenario complete", "scenario", sc.Name, "runs", len(results), "drained", drained)
	return nil
}
