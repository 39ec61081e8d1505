package viz

import (
	"fmt"
	"io"

	"github.com/san-kum/dynrec/internal/pipeline"
)

// Progress is a pipeline.FrameObserver that redraws a one-line progress bar
// and keeps the per-frame signal for the summary sparkline.
type Progress struct {
	w      io.Writer
	total  int
	every  int
	Signal []float64
}

// NewProgress draws to w every few frames. A nil w only collects the signal.
func NewProgress(w io.Writer, total int) *Progress {
	every := total / 100
	if every < 1 {
		every = 1
	}
	return &Progress{w: w, total: total, every: every, Signal: make([]float64, 0, total)}
}

func (p *Progress) OnFrame(info pipeline.FrameInfo) {
	p.Signal = append(p.Signal, info.Signal)
	if p.w == nil {
		return
	}
	done := info.Frame + 1
	if done%p.every != 0 && done != p.total {
		return
	}
	pct := 0.0
	if p.total > 0 {
		pct = float64(done) / float64(p.total)
	}
	fmt.Fprintf(p.w, "\r%s %s", ProgressBar(pct, 40), Subtle.Render(fmt.Sprintf("%d/%d t=%.2fs", done, p.total, info.SimTime)))
}

// Done ends the progress line.
func (p *Progress) Done() {
	if p.w != nil {
		fmt.Fprintln(p.w)
	}
}
