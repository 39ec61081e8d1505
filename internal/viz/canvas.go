package viz

import (
	"strings"
)

// Braille Patterns: 2x4 dots
// 1 4
// 2 5
// 3 6
// 7 8
//
// Unicode offset 0x2800
var pixelMap = [4][2]int{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

const blank = 0x2800

type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{
		Width:  w,
		Height: h,
		Grid:   make([][]rune, h),
	}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// Set sets a dot at (x, y) in sub-pixel coordinates. The canvas is
// Width*2 by Height*4 dots.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 {
		return
	}
	col, row := x/2, y/4
	if col >= c.Width || row >= c.Height {
		return
	}
	c.Grid[row][col] |= rune(pixelMap[y%4][x%2])
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = blank
		}
	}
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row) + "\n")
	}
	return b.String()
}

// Thumbnail draws a packed RGB frame, bottom row first, as cols by rows
// Braille cells. A dot is set where the sampled pixel is brighter than the
// frame average.
func Thumbnail(rgb []byte, width, height, cols, rows int) string {
	c := NewCanvas(cols, rows)
	if width <= 0 || height <= 0 || len(rgb) < width*height*3 {
		return c.String()
	}

	luma := func(x, y int) int {
		// flip to top-down
		i := ((height-1-y)*width + x) * 3
		return 299*int(rgb[i]) + 587*int(rgb[i+1]) + 114*int(rgb[i+2])
	}

	dotsX, dotsY := cols*2, rows*4
	sum := 0
	for y := 0; y < dotsY; y++ {
		for x := 0; x < dotsX; x++ {
			sum += luma(x*width/dotsX, y*height/dotsY)
		}
	}
	mean := sum / (dotsX * dotsY)

	for y := 0; y < dotsY; y++ {
		for x := 0; x < dotsX; x++ {
			if luma(x*width/dotsX, y*height/dotsY) > mean {
				c.Set(x, y)
			}
		}
	}
	return c.String()
}
