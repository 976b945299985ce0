package export

import (
	"fmt"
	"io"
	"math"

	"github.com/jung-kurt/gofpdf"

	"TeamBoard/internal/render"
)

const (
	pageMargin = 10.0 // mm
	mmPerPoint = 25.4 / 72
)

// WritePDF lays the scene out on one landscape A4 page, scaled to fit a
// width x height canvas inside the page margins.
func WritePDF(w io.Writer, scene render.Scene, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("invalid canvas size %dx%d", width, height)
	}

	p := gofpdf.New("L", "mm", "A4", "")
	p.SetTitle("TeamBoard export", true)
	p.AddPage()
	p.SetLineCapStyle("round")
	p.SetLineJoinStyle("round")

	pageW, pageH := p.GetPageSize()
	scale := math.Min((pageW-2*pageMargin)/float64(width), (pageH-2*pageMargin)/float64(height))
	x := func(v float64) float64 { return pageMargin + v*scale }
	y := func(v float64) float64 { return pageMargin + v*scale }
	tr := p.UnicodeTranslatorFromDescriptor("")

	for _, op := range scene.Ops {
		if op.Transient {
			continue
		}
		r, g, b := int(op.Color.R), int(op.Color.G), int(op.Color.B)
		p.SetDrawColor(r, g, b)
		p.SetLineWidth(math.Max(op.StrokeWidth*scale, 0.1))

		switch op.Kind {
		case render.OpClear:
			p.SetFillColor(r, g, b)
			p.Rect(x(0), y(0), float64(width)*scale, float64(height)*scale, "F")
		case render.OpLineStrip:
			for i := 1; i < len(op.Points); i++ {
				p.Line(x(op.Points[i-1].X), y(op.Points[i-1].Y), x(op.Points[i].X), y(op.Points[i].Y))
			}
		case render.OpRect:
			p.Rect(x(op.Box.X), y(op.Box.Y), op.Box.W*scale, op.Box.H*scale, "D")
		case render.OpCircle:
			rx, ry := op.Box.W*scale/2, op.Box.H*scale/2
			p.Ellipse(x(op.Box.X)+rx, y(op.Box.Y)+ry, rx, ry, 0, "D")
		case render.OpText:
			p.SetTextColor(r, g, b)
			p.SetFont("Helvetica", "", op.Size*scale/mmPerPoint)
			p.Text(x(op.Origin.X), y(op.Origin.Y), tr(op.Text))
		}
	}

	if err := p.Output(w); err != nil {
		return fmt.Errorf("failed to write pdf: %w", err)
	}
	return nil
}
