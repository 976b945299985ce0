package ui

import (
	"image/color"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/driver/desktop"
	"fyne.io/fyne/v2/widget"

	"TeamBoard/internal/board"
	"TeamBoard/internal/render"
	"TeamBoard/internal/state"
)

// BoardWidget draws a board session and feeds pointer input into it.
type BoardWidget struct {
	widget.BaseWidget
	session *board.Session
	size    fyne.Size
	drawing bool
	stop    func()

	// OnTextRequest is called when the text tool is clicked at a point.
	OnTextRequest func(at state.Point)
}

var _ fyne.Widget = (*BoardWidget)(nil)
var _ fyne.Draggable = (*BoardWidget)(nil)
var _ desktop.Mouseable = (*BoardWidget)(nil)
var _ desktop.Hoverable = (*BoardWidget)(nil)

// NewBoardWidget creates a widget for a width x height canvas.
func NewBoardWidget(s *board.Session, width, height int) *BoardWidget {
	b := &BoardWidget{
		session: s,
		size:    fyne.NewSize(float32(width), float32(height)),
	}
	b.ExtendBaseWidget(b)
	// Observers run on session goroutines; redraw from the latest state on
	// the UI thread so out-of-order notifications cannot show a stale board.
	b.stop = s.OnChange(func(render.Scene) {
		fyne.Do(b.Refresh)
	})
	return b
}

// Detach stops redrawing on session changes.
func (b *BoardWidget) Detach() {
	if b.stop != nil {
		b.stop()
		b.stop = nil
	}
}

func toPoint(p fyne.Position) state.Point {
	return state.Point{X: float64(p.X), Y: float64(p.Y)}
}

func (b *BoardWidget) MouseDown(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary {
		return
	}
	if b.session.Tool() == state.ToolText {
		if b.OnTextRequest != nil {
			b.OnTextRequest(toPoint(e.Position))
		}
		return
	}
	b.drawing = true
	b.session.PointerDown(toPoint(e.Position))
}

func (b *BoardWidget) MouseUp(e *desktop.MouseEvent) {
	if e.Button != desktop.MouseButtonPrimary || !b.drawing {
		return
	}
	b.drawing = false
	b.session.PointerUp(toPoint(e.Position))
}

func (b *BoardWidget) Dragged(e *fyne.DragEvent) {
	if b.drawing {
		b.session.PointerMove(toPoint(e.Position))
	}
}

func (b *BoardWidget) DragEnd() {}

func (b *BoardWidget) MouseIn(*desktop.MouseEvent) {}

// MouseMoved is ignored; samples come from Dragged only.
func (b *BoardWidget) MouseMoved(*desktop.MouseEvent) {}

// MouseOut abandons a gesture that leaves the canvas.
func (b *BoardWidget) MouseOut() {
	if b.drawing {
		b.drawing = false
		b.session.PointerLeave()
	}
}

func (b *BoardWidget) CreateRenderer() fyne.WidgetRenderer {
	r := &boardWidgetRenderer{board: b}
	r.Refresh()
	return r
}

type boardWidgetRenderer struct {
	board   *BoardWidget
	objects []fyne.CanvasObject
}

func (r *boardWidgetRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

func (r *boardWidgetRenderer) Refresh() {
	r.objects = sceneObjects(r.board.session.Scene(), r.board.size)
	canvas.Refresh(r.board)
}

func (r *boardWidgetRenderer) Layout(fyne.Size) {}

func (r *boardWidgetRenderer) MinSize() fyne.Size {
	return r.board.size
}

func (r *boardWidgetRenderer) Destroy() {}

// sceneObjects converts a display list into positioned canvas objects.
func sceneObjects(scene render.Scene, size fyne.Size) []fyne.CanvasObject {
	objects := make([]fyne.CanvasObject, 0, len(scene.Ops))
	for _, op := range scene.Ops {
		width := float32(op.StrokeWidth)
		switch op.Kind {
		case render.OpClear:
			bg := canvas.NewRectangle(op.Color)
			bg.Resize(size)
			objects = append(objects, bg)
		case render.OpLineStrip:
			for i := 1; i < len(op.Points); i++ {
				segment := canvas.NewLine(op.Color)
				segment.StrokeWidth = width
				segment.Position1 = fyne.NewPos(float32(op.Points[i-1].X), float32(op.Points[i-1].Y))
				segment.Position2 = fyne.NewPos(float32(op.Points[i].X), float32(op.Points[i].Y))
				objects = append(objects, segment)
			}
		case render.OpRect:
			rect := canvas.NewRectangle(color.Transparent)
			rect.StrokeColor = op.Color
			rect.StrokeWidth = width
			rect.Move(fyne.NewPos(float32(op.Box.X), float32(op.Box.Y)))
			rect.Resize(fyne.NewSize(float32(op.Box.W), float32(op.Box.H)))
			objects = append(objects, rect)
		case render.OpCircle:
			circle := canvas.NewCircle(color.Transparent)
			circle.StrokeColor = op.Color
			circle.StrokeWidth = width
			circle.Position1 = fyne.NewPos(float32(op.Box.X), float32(op.Box.Y))
			circle.Position2 = fyne.NewPos(float32(op.Box.X+op.Box.W), float32(op.Box.Y+op.Box.H))
			objects = append(objects, circle)
		case render.OpText:
			text := canvas.NewText(op.Text, op.Color)
			text.TextSize = float32(op.Size)
			// Scene text is anchored at its baseline, canvas text at its top.
			text.Move(fyne.NewPos(float32(op.Origin.X), float32(op.Origin.Y-op.Size)))
			objects = append(objects, text)
		}
	}
	return objects
}
