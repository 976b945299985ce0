package state

import "math"

// Tool is the drawing tool selected in the toolbar.
type Tool string

const (
	ToolPen       Tool = "pen"
	ToolRectangle Tool = "rectangle"
	ToolCircle    Tool = "circle"
	ToolText      Tool = "text"
	ToolEraser    Tool = "eraser"
)

// Tools lists the tools in toolbar order.
var Tools = []Tool{ToolPen, ToolRectangle, ToolCircle, ToolText, ToolEraser}

// Transient is a gesture that has not been committed yet. It is only ever
// drawn locally.
type Transient struct {
	Tool    Tool
	Style   Style
	Start   Point
	Current Point
	Points  []Point
}

// Builder turns pointer gestures into elements. It is either idle or drawing.
type Builder struct {
	newID IDSource

	drawing bool
	tool    Tool
	style   Style
	start   Point
	current Point
	points  []Point
}

// NewBuilder creates an idle builder. A nil ids falls back to NewID.
func NewBuilder(ids IDSource) *Builder {
	if ids == nil {
		ids = NewID
	}
	return &Builder{newID: ids}
}

func (b *Builder) Drawing() bool { return b.drawing }

// Begin starts a gesture at p with the given tool and style. Beginning while a
// gesture is in progress restarts it.
func (b *Builder) Begin(p Point, tool Tool, style Style) {
	if tool == ToolEraser {
		style.Color = BackgroundColor
	}
	b.drawing = true
	b.tool = tool
	b.style = style
	b.start = p
	b.current = p
	b.points = nil
	if tool == ToolPen || tool == ToolEraser {
		b.points = []Point{p}
	}
}

// Move tracks the pointer. Freehand tools also keep it as a sample point.
func (b *Builder) Move(p Point) {
	if !b.drawing {
		return
	}
	b.current = p
	if b.tool == ToolPen || b.tool == ToolEraser {
		b.points = append(b.points, p)
	}
}

// End finishes the gesture at p. It reports false when no element results:
// the builder was idle, the tool does not draw from gestures, or the gesture
// was degenerate.
func (b *Builder) End(p Point) (Element, bool) {
	if !b.drawing {
		return Element{}, false
	}
	defer b.Cancel()

	switch b.tool {
	case ToolPen, ToolEraser:
		points := append(append([]Point(nil), b.points...), p)
		if !hasLength(points) {
			return Element{}, false
		}
		return Element{
			ID:          b.newID(),
			Kind:        KindPath,
			Origin:      Point{},
			Points:      points,
			Color:       b.style.Color,
			StrokeWidth: b.style.StrokeWidth,
		}, true
	case ToolRectangle:
		// Shapes are kept even when zero-sized; only freehand strokes can be
		// degenerate.
		return Element{
			ID:          b.newID(),
			Kind:        KindRectangle,
			Origin:      b.start,
			Extent:      &Size{W: p.X - b.start.X, H: p.Y - b.start.Y},
			Color:       b.style.Color,
			StrokeWidth: b.style.StrokeWidth,
		}, true
	case ToolCircle:
		r := math.Hypot(p.X-b.start.X, p.Y-b.start.Y)
		return Element{
			ID:          b.newID(),
			Kind:        KindCircle,
			Origin:      Point{X: b.start.X - r, Y: b.start.Y - r},
			Extent:      &Size{W: 2 * r, H: 2 * r},
			Color:       b.style.Color,
			StrokeWidth: b.style.StrokeWidth,
		}, true
	}
	return Element{}, false
}

// Cancel drops the in-progress gesture, e.g. when the pointer leaves the
// canvas.
func (b *Builder) Cancel() {
	b.drawing = false
	b.points = nil
}

// Transient returns the in-progress gesture for the live overlay.
func (b *Builder) Transient() (Transient, bool) {
	if !b.drawing {
		return Transient{}, false
	}
	return Transient{
		Tool:    b.tool,
		Style:   b.style,
		Start:   b.start,
		Current: b.current,
		Points:  append([]Point(nil), b.points...),
	}, true
}

// TextElement builds a text label without a pointer gesture.
func (b *Builder) TextElement(text string, origin Point, style Style) Element {
	return Element{
		ID:          b.newID(),
		Kind:        KindText,
		Origin:      origin,
		Text:        text,
		Color:       style.Color,
		StrokeWidth: style.StrokeWidth,
	}
}

// hasLength reports whether a stroke has at least two points that are not all
// at the same position.
func hasLength(points []Point) bool {
	if len(points) < 2 {
		return false
	}
	for _, p := range points[1:] {
		if p != points[0] {
			return true
		}
	}
	return false
}
