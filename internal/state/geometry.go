package state

import "math"

// Rect is an axis-aligned box with non-negative width and height.
type Rect struct {
	X, Y, W, H float64
}

// NormalizeBox flips a box with negative extents so that its origin is the
// top-left corner. A rectangle drawn from (100,100) to (50,50) and one drawn
// from (50,50) to (100,100) normalise to the same Rect.
func NormalizeBox(origin Point, ext Size) Rect {
	r := Rect{X: origin.X, Y: origin.Y, W: ext.W, H: ext.H}
	if r.W < 0 {
		r.X += r.W
		r.W = -r.W
	}
	if r.H < 0 {
		r.Y += r.H
		r.H = -r.H
	}
	return r
}

// Box returns the normalised box of a bounded element.
func (e Element) Box() (Rect, bool) {
	if e.Extent == nil {
		return Rect{}, false
	}
	return NormalizeBox(e.Origin, *e.Extent), true
}

// Union returns the smallest Rect containing both a and b.
func (a Rect) Union(b Rect) Rect {
	minX := math.Min(a.X, b.X)
	minY := math.Min(a.Y, b.Y)
	maxX := math.Max(a.X+a.W, b.X+b.W)
	maxY := math.Max(a.Y+a.H, b.Y+b.H)
	return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}
}

// Pad grows the rect by d on every side.
func (a Rect) Pad(d float64) Rect {
	return Rect{X: a.X - d, Y: a.Y - d, W: a.W + 2*d, H: a.H + 2*d}
}

// Bounds is the area covered by an element, including half its stroke. Text
// labels are approximated by a box of their font size per rune.
func (e Element) Bounds() (Rect, bool) {
	half := float64(e.StrokeWidth) / 2
	switch e.Kind {
	case KindPath:
		if len(e.Points) == 0 {
			return Rect{}, false
		}
		minX, minY := e.Points[0].X, e.Points[0].Y
		maxX, maxY := minX, minY
		for _, p := range e.Points[1:] {
			minX = math.Min(minX, p.X)
			minY = math.Min(minY, p.Y)
			maxX = math.Max(maxX, p.X)
			maxY = math.Max(maxY, p.Y)
		}
		return Rect{X: minX, Y: minY, W: maxX - minX, H: maxY - minY}.Pad(half), true
	case KindRectangle, KindCircle:
		box, ok := e.Box()
		if !ok {
			return Rect{}, false
		}
		return box.Pad(half), true
	case KindText:
		size := TextSize(e.StrokeWidth)
		n := float64(len([]rune(e.Text)))
		return Rect{X: e.Origin.X, Y: e.Origin.Y - size, W: n * size * 0.6, H: size}, true
	}
	return Rect{}, false
}

// Bounds is the union of all element bounds. It reports false for an empty
// board.
func (s Snapshot) Bounds() (Rect, bool) {
	var (
		out   Rect
		found bool
	)
	for _, e := range s {
		b, ok := e.Bounds()
		if !ok {
			continue
		}
		if !found {
			out, found = b, true
			continue
		}
		out = out.Union(b)
	}
	return out, found
}

// TextSize is the font size, in canvas pixels, of a text label.
func TextSize(strokeWidth int) float64 {
	return float64(strokeWidth) * 4
}
