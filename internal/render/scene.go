package render

import (
	"image/color"
	"math"

	"TeamBoard/internal/state"
)

// OpKind selects how an Op is drawn.
type OpKind int

const (
	OpClear OpKind = iota
	OpLineStrip
	OpRect
	OpCircle
	OpText
)

func (k OpKind) String() string {
	switch k {
	case OpClear:
		return "clear"
	case OpLineStrip:
		return "line_strip"
	case OpRect:
		return "rect"
	case OpCircle:
		return "circle"
	case OpText:
		return "text"
	}
	return "unknown"
}

// Op is one drawing instruction in canvas coordinates.
type Op struct {
	Kind        OpKind
	Color       color.NRGBA
	StrokeWidth float64

	// Points is set for line strips.
	Points []state.Point
	// Box is the normalised bounding box of rectangles and circles.
	Box state.Rect
	// Origin, Text and Size are set for text; Origin is the baseline start.
	Origin state.Point
	Text   string
	Size   float64

	// Transient marks the in-progress gesture overlay.
	Transient bool
}

// Scene is a full redraw of the canvas. The first op always clears it.
type Scene struct {
	Ops []Op
}

// Project turns the board plus an optional in-progress gesture into a display
// list. Elements keep their board order; the gesture overlay is drawn last in
// the active style. Project has no side effects.
func Project(s state.Snapshot, t *state.Transient, active state.Style) Scene {
	ops := make([]Op, 0, len(s)+2)
	ops = append(ops, Op{Kind: OpClear, Color: ParseColor(state.BackgroundColor)})

	for _, e := range s {
		if op, ok := elementOp(e); ok {
			ops = append(ops, op)
		}
	}
	if t != nil {
		if op, ok := overlayOp(*t, active); ok {
			ops = append(ops, op)
		}
	}
	return Scene{Ops: ops}
}

func elementOp(e state.Element) (Op, bool) {
	op := Op{Color: ParseColor(e.Color), StrokeWidth: float64(e.StrokeWidth)}
	switch e.Kind {
	case state.KindPath:
		if len(e.Points) < 2 {
			return Op{}, false
		}
		op.Kind = OpLineStrip
		op.Points = append([]state.Point(nil), e.Points...)
	case state.KindRectangle, state.KindCircle:
		box, ok := e.Box()
		if !ok {
			return Op{}, false
		}
		op.Kind = OpRect
		if e.Kind == state.KindCircle {
			op.Kind = OpCircle
		}
		op.Box = box
	case state.KindText:
		if e.Text == "" {
			return Op{}, false
		}
		op.Kind = OpText
		op.Origin = e.Origin
		op.Text = e.Text
		op.Size = state.TextSize(e.StrokeWidth)
	default:
		return Op{}, false
	}
	return op, true
}

func overlayOp(t state.Transient, active state.Style) (Op, bool) {
	if t.Tool == state.ToolEraser {
		active.Color = state.BackgroundColor
	}
	op := Op{
		Color:       ParseColor(active.Color),
		StrokeWidth: float64(active.StrokeWidth),
		Transient:   true,
	}
	switch t.Tool {
	case state.ToolPen, state.ToolEraser:
		if len(t.Points) < 2 {
			return Op{}, false
		}
		op.Kind = OpLineStrip
		op.Points = append([]state.Point(nil), t.Points...)
	case state.ToolRectangle:
		op.Kind = OpRect
		op.Box = state.NormalizeBox(t.Start, state.Size{W: t.Current.X - t.Start.X, H: t.Current.Y - t.Start.Y})
	case state.ToolCircle:
		r := math.Hypot(t.Current.X-t.Start.X, t.Current.Y-t.Start.Y)
		op.Kind = OpCircle
		op.Box = state.Rect{X: t.Start.X - r, Y: t.Start.Y - r, W: 2 * r, H: 2 * r}
	default:
		return Op{}, false
	}
	return op, true
}
