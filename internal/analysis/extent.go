package analysis

// Extent is the padded bounding box of a set of (x, y) samples.
type Extent struct {
	MinX, MaxX float64
	MinY, MaxY float64
}

// Bounds returns the extent of the first min(len(xs), len(ys)) pairs grown
// by pad times the span on every side. A zero span is treated as 1 so flat
// series still map to the middle of a plot.
func Bounds(xs, ys []float64, pad float64) (Extent, bool) {
	n := min(len(xs), len(ys))
	if n == 0 {
		return Extent{}, false
	}
	e := Extent{MinX: xs[0], MaxX: xs[0], MinY: ys[0], MaxY: ys[0]}
	for i := 1; i < n; i++ {
		e.MinX, e.MaxX = min(e.MinX, xs[i]), max(e.MaxX, xs[i])
		e.MinY, e.MaxY = min(e.MinY, ys[i]), max(e.MaxY, ys[i])
	}
	e.MinX, e.MaxX = grow(e.MinX, e.MaxX, pad)
	e.MinY, e.MaxY = grow(e.MinY, e.MaxY, pad)
	return e, true
}

func grow(lo, hi, pad float64) (float64, float64) {
	span := hi - lo
	if span == 0 {
		span = 1
	}
	return lo - pad*span, hi + pad*span
}

// Unit maps (x, y) into [0,1]² with y pointing up.
func (e Extent) Unit(x, y float64) (float64, float64) {
	return (x - e.MinX) / (e.MaxX - e.MinX), (y - e.MinY) / (e.MaxY - e.MinY)
}

// Axes reports which zero lines fall inside the extent: the horizontal
// axis y=0 and the vertical axis x=0.
func (e Extent) Axes() (horizontal, vertical bool) {
	return e.MinY <= 0 && e.MaxY >= 0, e.MinX <= 0 && e.MaxX >= 0
}
