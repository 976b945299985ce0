package export

import (
	"fmt"
	"image"
	"io"
	"sync"

	"github.com/fogleman/gg"
	"github.com/golang/freetype/truetype"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"

	"TeamBoard/internal/render"
)

var (
	regularOnce sync.Once
	regular     *truetype.Font
	regularErr  error
)

func regularFont() (*truetype.Font, error) {
	regularOnce.Do(func() {
		regular, regularErr = truetype.Parse(goregular.TTF)
	})
	return regular, regularErr
}

// Rasterize draws the scene onto a width x height image. The in-progress
// gesture overlay is left out.
func Rasterize(scene render.Scene, width, height int) (image.Image, error) {
	dc, err := draw(scene, width, height)
	if err != nil {
		return nil, err
	}
	return dc.Image(), nil
}

// WritePNG rasterizes the scene and encodes it as PNG.
func WritePNG(w io.Writer, scene render.Scene, width, height int) error {
	dc, err := draw(scene, width, height)
	if err != nil {
		return err
	}
	if err := dc.EncodePNG(w); err != nil {
		return fmt.Errorf("failed to encode png: %w", err)
	}
	return nil
}

func draw(scene render.Scene, width, height int) (*gg.Context, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid canvas size %dx%d", width, height)
	}
	ttf, err := regularFont()
	if err != nil {
		return nil, fmt.Errorf("failed to parse font: %w", err)
	}

	dc := gg.NewContext(width, height)
	dc.SetLineCapRound()
	dc.SetLineJoinRound()

	faces := make(map[float64]font.Face)
	defer func() {
		for _, f := range faces {
			_ = f.Close()
		}
	}()

	for _, op := range scene.Ops {
		if op.Transient {
			continue
		}
		dc.SetColor(op.Color)
		dc.SetLineWidth(op.StrokeWidth)

		switch op.Kind {
		case render.OpClear:
			dc.Clear()
		case render.OpLineStrip:
			if len(op.Points) < 2 {
				continue
			}
			dc.MoveTo(op.Points[0].X, op.Points[0].Y)
			for _, pt := range op.Points[1:] {
				dc.LineTo(pt.X, pt.Y)
			}
			dc.Stroke()
		case render.OpRect:
			dc.DrawRectangle(op.Box.X, op.Box.Y, op.Box.W, op.Box.H)
			dc.Stroke()
		case render.OpCircle:
			dc.DrawEllipse(op.Box.X+op.Box.W/2, op.Box.Y+op.Box.H/2, op.Box.W/2, op.Box.H/2)
			dc.Stroke()
		case render.OpText:
			face, ok := faces[op.Size]
			if !ok {
				face = truetype.NewFace(ttf, &truetype.Options{Size: op.Size})
				faces[op.Size] = face
			}
			dc.SetFontFace(face)
			dc.DrawString(op.Text, op.Origin.X, op.Origin.Y)
		}
	}
	return dc, nil
}
