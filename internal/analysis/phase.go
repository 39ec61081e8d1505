package analysis

import "strings"

const (
	dot   = '•'
	vline = '│'
	hline = '─'
)

// Portrait plots paired samples (xs[i], ys[i]) on a width by height
// character grid, with axes drawn where zero is in range.
func Portrait(xs, ys []float64, width, height int) string {
	if width < 2 || height < 2 {
		return ""
	}
	ext, ok := Bounds(xs, ys, 0.1)
	if !ok {
		return ""
	}

	grid := make([][]rune, height)
	for r := range grid {
		grid[r] = []rune(strings.Repeat(" ", width))
	}
	cell := func(x, y float64) (int, int) {
		u, v := ext.Unit(x, y)
		return height - 1 - int(v*float64(height-1)), int(u * float64(width-1))
	}

	for i, n := 0, min(len(xs), len(ys)); i < n; i++ {
		r, c := cell(xs[i], ys[i])
		grid[r][c] = dot
	}

	horizontal, vertical := ext.Axes()
	r0, c0 := cell(0, 0)
	for r := range grid {
		for c := range grid[r] {
			if grid[r][c] != ' ' {
				continue
			}
			switch {
			case vertical && c == c0:
				grid[r][c] = vline
			case horizontal && r == r0:
				grid[r][c] = hline
			}
		}
	}

	var sb strings.Builder
	for _, row := range grid {
		sb.WriteString(string(row))
		sb.WriteByte('\n')
	}
	return sb.String()
}
