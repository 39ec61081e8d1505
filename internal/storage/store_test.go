package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/dynrec/internal/control"
	"github.com/san-kum/dynrec/internal/pipeline"
)

func TestRunSaveLoad(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	if err := st.Init(); err != nil {
		t.Fatalf("init failed: %v", err)
	}

	run, err := st.Begin(RunMetadata{Scene: "builtin:pendulum", Width: 640, Height: 480, FPS: 30})
	if err != nil {
		t.Fatalf("begin failed: %v", err)
	}
	if !strings.HasPrefix(run.ID(), "pendulum_") {
		t.Errorf("unexpected run id %q", run.ID())
	}

	for i := 0; i < 3; i++ {
		run.OnFrame(pipeline.FrameInfo{
			Frame:     i,
			SimTime:   float64(i+1) * 0.02,
			Signal:    0.5,
			Positions: []float64{float64(i), -float64(i)},
		})
	}
	report := &pipeline.Report{
		Phase:  pipeline.PhaseClosed,
		Frames: 3,
		Ticks:  30,
		Target: control.Target{Kind: control.TargetActuator, Name: "motor"},
	}
	if err := run.Finish(report, nil, map[string]float64{"control_effort": 0.25, "state_peak": math.Inf(1)}); err != nil {
		t.Fatalf("finish failed: %v", err)
	}

	meta, err := st.Load(run.ID())
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if meta.Scene != "builtin:pendulum" || meta.Phase != "closed" || meta.Frames != 3 {
		t.Errorf("unexpected metadata %+v", meta)
	}
	if meta.Metrics["control_effort"] != 0.25 {
		t.Errorf("expected effort 0.25, got %f", meta.Metrics["control_effort"])
	}
	if _, ok := meta.Metrics["state_peak"]; ok {
		t.Error("non-finite metric was stored")
	}

	traj, err := st.LoadTrajectory(run.ID())
	if err != nil {
		t.Fatalf("load trajectory failed: %v", err)
	}
	if len(traj.Times) != 3 || traj.Times[2] != 0.06 {
		t.Errorf("unexpected times %v", traj.Times)
	}
	if col := traj.Column(1); len(col) != 3 || col[2] != -2 {
		t.Errorf("unexpected column %v", col)
	}

	var buf bytes.Buffer
	if err := st.ExportJSON(&buf, run.ID()); err != nil {
		t.Fatal(err)
	}
	var exported ExportData
	if err := json.Unmarshal(buf.Bytes(), &exported); err != nil {
		t.Fatal(err)
	}
	if exported.Run.ID != run.ID() || len(exported.Trajectory.Positions) != 3 {
		t.Errorf("unexpected export %+v", exported)
	}
}

func TestRunRecordsFailure(t *testing.T) {
	st := New(t.TempDir())
	run, err := st.Begin(RunMetadata{Scene: "<mujoco/>"})
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(run.ID(), "inline_") {
		t.Errorf("unexpected run id %q", run.ID())
	}
	if err := run.Finish(&pipeline.Report{Phase: pipeline.PhaseFailed}, errors.New("load: bad"), nil); err != nil {
		t.Fatal(err)
	}
	meta, err := st.Load(run.ID())
	if err != nil {
		t.Fatal(err)
	}
	if meta.Error != "load: bad" || meta.Phase != "failed" {
		t.Errorf("unexpected metadata %+v", meta)
	}
	traj, err := st.LoadTrajectory(run.ID())
	if err != nil || len(traj.Frames) != 0 {
		t.Errorf("expected empty trajectory, got %v, %v", traj, err)
	}
}

func TestList(t *testing.T) {
	tmpDir := t.TempDir()
	st := New(tmpDir)

	runs, err := st.List()
	if err != nil || len(runs) != 0 {
		t.Fatalf("expected no runs, got %v, %v", runs, err)
	}

	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for i, scene := range []string{"builtin:box", "scenes/arm.xml"} {
		run, err := st.Begin(RunMetadata{Scene: scene, Timestamp: base.Add(time.Duration(i) * time.Minute)})
		if err != nil {
			t.Fatal(err)
		}
		if err := run.Finish(nil, nil, nil); err != nil {
			t.Fatal(err)
		}
	}
	if err := os.MkdirAll(filepath.Join(tmpDir, "junk"), 0755); err != nil {
		t.Fatal(err)
	}

	runs, err = st.List()
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	if !strings.HasPrefix(runs[0].ID, "arm_") {
		t.Errorf("expected newest run first, got %s", runs[0].ID)
	}
}
