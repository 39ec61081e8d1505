// Package export renders recorded trajectories for use outside the terminal.
package export

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/san-kum/dynrec/internal/analysis"
)

const (
	background = "#0a0a0a"
	axisColor  = "#333333"
)

// TrajectorySVG draws ys against xs as a single polyline over a dark
// background, with the y=0 line drawn when it is in range. It returns an
// empty string for fewer than two points.
func TrajectorySVG(xs, ys []float64, width, height int, stroke string) string {
	n := min(len(xs), len(ys))
	if n < 2 {
		return ""
	}
	ext, _ := analysis.Bounds(xs, ys, 0.1)
	w, h := float64(width), float64(height)
	project := func(x, y float64) (float64, float64) {
		u, v := ext.Unit(x, y)
		return u * w, h - v*h
	}

	var sb strings.Builder
	sb.WriteString(`<?xml version="1.0" encoding="UTF-8"?>` + "\n")
	fmt.Fprintf(&sb, `<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+"\n",
		width, height, width, height)
	fmt.Fprintf(&sb, `<rect width="100%%" height="100%%" fill="%s"/>`+"\n", background)

	if horizontal, _ := ext.Axes(); horizontal {
		_, y0 := project(0, 0)
		fmt.Fprintf(&sb, `<line x1="0" y1="%.1f" x2="%d" y2="%.1f" stroke="%s" stroke-width="1"/>`+"\n",
			y0, width, y0, axisColor)
	}

	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="`, stroke)
	buf := make([]byte, 0, 16)
	for i := 0; i < n; i++ {
		x, y := project(xs[i], ys[i])
		if i == 0 {
			sb.WriteByte('M')
		} else {
			sb.WriteString(" L")
		}
		buf = strconv.AppendFloat(buf[:0], x, 'f', 1, 64)
		buf = append(buf, ',')
		buf = strconv.AppendFloat(buf, y, 'f', 1, 64)
		sb.Write(buf)
	}
	sb.WriteString(`"/>` + "\n</svg>")
	return sb.String()
}
