package viz

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/san-kum/dynrec/internal/pipeline"
)

// Summary describes a finished recording.
type Summary struct {
	Scene   string
	Output  string
	RunID   string
	Report  *pipeline.Report
	Err     error
	Metrics map[string]float64
	Signal  []float64
}

func (s Summary) status() string {
	switch {
	case s.Report == nil || s.Report.Phase == pipeline.PhaseFailed:
		return StatusFailed.Render("FAILED")
	case s.Report.Drained:
		return StatusDrained.Render("DRAINED")
	default:
		return StatusDone.Render("DONE")
	}
}

func row(label, value string) string {
	return MetricLabel.Render(label) + MetricValue.Render(value)
}

// Render lays the summary out in a bordered panel.
func (s Summary) Render(width int) string {
	lines := []string{
		Title.Render("dynrec") + "  " + s.status(),
		Separator(width - 6),
		row("scene", s.Scene),
	}
	if r := s.Report; r != nil {
		lines = append(lines,
			row("target", r.Target.String()),
			row("frames", fmt.Sprintf("%d", r.Frames)),
			row("ticks", fmt.Sprintf("%d", r.Ticks)),
			row("encoded", formatBytes(r.BytesWritten)),
			row("elapsed", r.Elapsed.Round(time.Millisecond).String()),
		)
	}
	if s.Output != "" {
		lines = append(lines, row("output", s.Output))
	}
	if s.RunID != "" {
		lines = append(lines, row("run id", s.RunID))
	}

	if len(s.Metrics) > 0 {
		names := make([]string, 0, len(s.Metrics))
		for name := range s.Metrics {
			names = append(names, name)
		}
		sort.Strings(names)
		lines = append(lines, "")
		for _, name := range names {
			lines = append(lines, row(name, fmt.Sprintf("%.6g", s.Metrics[name])))
		}
	}
	if len(s.Signal) > 0 {
		lines = append(lines, "", MetricLabel.Render("signal")+Sparkline(s.Signal, width-22))
	}
	if s.Err != nil {
		lines = append(lines, "", Subtle.Render(s.Err.Error()))
	}

	return Panel.Width(width).Render(lipgloss.JoinVertical(lipgloss.Left, lines...))
}

func formatBytes(n int64) string {
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%d B", n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(n)/float64(div), "KMGTPE"[exp])
}

// KeyValues renders aligned label/value rows, used by inspect.
func KeyValues(pairs ...string) string {
	var b strings.Builder
	for i := 0; i+1 < len(pairs); i += 2 {
		b.WriteString(row(pairs[i], pairs[i+1]))
		b.WriteByte('\n')
	}
	return strings.TrimSuffix(b.String(), "\n")
}
