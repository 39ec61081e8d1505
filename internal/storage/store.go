// Package storage keeps a record of each recording run: its settings, its
// outcome and the trajectory of generalized positions sampled per frame.
package storage

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/san-kum/dynrec/internal/pipeline"
)

const (
	metadataFile   = "metadata.json"
	trajectoryFile = "trajectory.csv"
)

type Store struct {
	baseDir string
}

func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

func (s *Store) Init() error {
	return os.MkdirAll(s.baseDir, 0755)
}

type RunMetadata struct {
	ID            string             `json:"id"`
	Scene         string             `json:"scene"`
	Timestamp     time.Time          `json:"timestamp"`
	Width         int                `json:"width"`
	Height        int                `json:"height"`
	FPS           int                `json:"fps"`
	StepsPerFrame int                `json:"steps_per_frame"`
	Timestep      float64            `json:"timestep"`
	Target        string             `json:"target"`
	Signal        string             `json:"signal"`
	Output        string             `json:"output"`
	Phase         string             `json:"phase"`
	Frames        int                `json:"frames"`
	Ticks         int                `json:"ticks"`
	BytesWritten  int64              `json:"bytes_written"`
	Drained       bool               `json:"drained"`
	Error         string             `json:"error,omitempty"`
	Metrics       map[string]float64 `json:"metrics,omitempty"`
}

// Run streams one recording to disk. It is a pipeline.FrameObserver.
type Run struct {
	dir  string
	meta RunMetadata
	file *os.File
	w    *csv.Writer
	cols int
	err  error
}

// Begin creates the run directory and its trajectory file.
func (s *Store) Begin(meta RunMetadata) (*Run, error) {
	meta.ID = fmt.Sprintf("%s_%s", slug(meta.Scene), uuid.NewString()[:8])
	if meta.Timestamp.IsZero() {
		meta.Timestamp = time.Now()
	}
	dir := filepath.Join(s.baseDir, meta.ID)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	file, err := os.Create(filepath.Join(dir, trajectoryFile))
	if err != nil {
		return nil, err
	}
	return &Run{dir: dir, meta: meta, file: file, w: csv.NewWriter(file), cols: -1}, nil
}

func slug(scene string) string {
	name := filepath.Base(scene)
	name = strings.TrimSuffix(name, filepath.Ext(name))
	name = strings.TrimPrefix(name, "builtin:")
	if strings.HasPrefix(strings.TrimSpace(scene), "<") || name == "" || name == "." {
		return "inline"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-':
			return r
		default:
			return '_'
		}
	}, name)
}

func (r *Run) ID() string { return r.meta.ID }

func (r *Run) Dir() string { return r.dir }

// SetTimestep records the scene timestep once the scene is loaded.
func (r *Run) SetTimestep(dt float64) { r.meta.Timestep = dt }

func (r *Run) OnFrame(info pipeline.FrameInfo) {
	if r.err != nil {
		return
	}
	if r.cols < 0 {
		r.cols = len(info.Positions)
		header := []string{"frame", "time", "signal"}
		for i := 0; i < r.cols; i++ {
			header = append(header, fmt.Sprintf("q%d", i))
		}
		r.err = r.w.Write(header)
	}

	row := []string{
		strconv.Itoa(info.Frame),
		strconv.FormatFloat(info.SimTime, 'f', 6, 64),
		strconv.FormatFloat(info.Signal, 'f', 6, 64),
	}
	for _, val := range info.Positions {
		row = append(row, strconv.FormatFloat(val, 'f', 6, 64))
	}
	if r.err == nil {
		r.err = r.w.Write(row)
	}
}

// Finish records the outcome and closes the trajectory file.
func (r *Run) Finish(report *pipeline.Report, runErr error, metrics map[string]float64) error {
	if report != nil {
		r.meta.Phase = report.Phase.String()
		r.meta.Frames = report.Frames
		r.meta.Ticks = report.Ticks
		r.meta.BytesWritten = report.BytesWritten
		r.meta.Drained = report.Drained
		r.meta.Target = report.Target.String()
	}
	if runErr != nil {
		r.meta.Error = runErr.Error()
	}
	// JSON has no encoding for NaN or infinities.
	r.meta.Metrics = make(map[string]float64, len(metrics))
	for name, v := range metrics {
		if !math.IsNaN(v) && !math.IsInf(v, 0) {
			r.meta.Metrics[name] = v
		}
	}

	r.w.Flush()
	errs := []error{r.err, r.w.Error(), r.file.Close()}

	metaFile, err := os.Create(filepath.Join(r.dir, metadataFile))
	if err != nil {
		return errors.Join(append(errs, err)...)
	}
	defer metaFile.Close()

	enc := json.NewEncoder(metaFile)
	enc.SetIndent("", "  ")
	errs = append(errs, enc.Encode(r.meta))
	return errors.Join(errs...)
}

// List returns every readable run, newest first.
func (s *Store) List() ([]RunMetadata, error) {
	entries, err := os.ReadDir(s.baseDir)
	if err != nil {
		if os.IsNotExist(err) {
			return []RunMetadata{}, nil
		}
		return nil, err
	}

	runs := make([]RunMetadata, 0)
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		meta, err := s.Load(entry.Name())
		if err != nil {
			continue
		}
		runs = append(runs, *meta)
	}
	sort.Slice(runs, func(i, j int) bool {
		return runs[i].Timestamp.After(runs[j].Timestamp)
	})
	return runs, nil
}

func (s *Store) Load(runID string) (*RunMetadata, error) {
	data, err := os.ReadFile(filepath.Join(s.baseDir, runID, metadataFile))
	if err != nil {
		return nil, err
	}

	var meta RunMetadata
	if err := json.Unmarshal(data, &meta); err != nil {
		return nil, err
	}
	return &meta, nil
}

// Trajectory is the per-frame record of one run.
type Trajectory struct {
	Frames    []int       `json:"frames"`
	Times     []float64   `json:"times"`
	Signals   []float64   `json:"signals"`
	Positions [][]float64 `json:"positions"`
}

// Column returns generalized position i for every frame.
func (t *Trajectory) Column(i int) []float64 {
	out := make([]float64, 0, len(t.Positions))
	for _, q := range t.Positions {
		if i >= 0 && i < len(q) {
			out = append(out, q[i])
		}
	}
	return out
}

func (s *Store) LoadTrajectory(runID string) (*Trajectory, error) {
	file, err := os.Open(filepath.Join(s.baseDir, runID, trajectoryFile))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	r := csv.NewReader(file)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, err
	}

	traj := &Trajectory{}
	for i := 1; i < len(records); i++ {
		record := records[i]
		if len(record) < 3 {
			continue
		}
		frame, err := strconv.Atoi(record[0])
		if err != nil {
			continue
		}
		t, _ := strconv.ParseFloat(record[1], 64)
		u, _ := strconv.ParseFloat(record[2], 64)

		q := make([]float64, 0, len(record)-3)
		for _, field := range record[3:] {
			val, err := strconv.ParseFloat(field, 64)
			if err != nil {
				continue
			}
			q = append(q, val)
		}
		traj.Frames = append(traj.Frames, frame)
		traj.Times = append(traj.Times, t)
		traj.Signals = append(traj.Signals, u)
		traj.Positions = append(traj.Positions, q)
	}
	return traj, nil
}
