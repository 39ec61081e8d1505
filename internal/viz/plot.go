package viz

import (
	"github.com/guptarohit/asciigraph"
)

// Plot draws a trajectory column as an ASCII chart.
func Plot(data []float64, caption string) string {
	return asciigraph.Plot(data,
		asciigraph.Height(10),
		asciigraph.Width(80),
		asciigraph.Caption(caption),
	)
}
