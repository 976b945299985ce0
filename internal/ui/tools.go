package ui

import (
	"fmt"
	"image/color"
	"strings"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/layout"
	"fyne.io/fyne/v2/theme"
	"fyne.io/fyne/v2/widget"

	"TeamBoard/internal/board"
	"TeamBoard/internal/render"
	"TeamBoard/internal/state"
)

// --- Custom Widget for Color Swatches ---
type colorSwatch struct {
	widget.BaseWidget
	Hex      string
	OnTapped func(string)
}

func newColorSwatch(hex string, tapped func(string)) *colorSwatch {
	s := &colorSwatch{Hex: hex, OnTapped: tapped}
	s.ExtendBaseWidget(s)
	return s
}

func (s *colorSwatch) CreateRenderer() fyne.WidgetRenderer {
	rect := canvas.NewRectangle(render.ParseColor(s.Hex))
	rect.SetMinSize(fyne.NewSize(28, 28))

	border := canvas.NewRectangle(color.Transparent)
	border.StrokeColor = color.Gray{Y: 150}
	border.StrokeWidth = 1

	return widget.NewSimpleRenderer(container.NewStack(rect, border))
}

func (s *colorSwatch) Tapped(_ *fyne.PointEvent) {
	if s.OnTapped != nil {
		s.OnTapped(s.Hex)
	}
}

func toolLabel(t state.Tool) string {
	return strings.ToUpper(string(t[:1])) + string(t[1:])
}

// Actions are the toolbar buttons that need more than the session.
type Actions struct {
	Ideas  func()
	Export func()
	Save   func()
	Load   func()
	Share  func()
}

// NewToolbar builds the tool, colour and width pickers plus the board
// actions.
func NewToolbar(s *board.Session, actions Actions) fyne.CanvasObject {
	// --- Tools ---
	labels := make([]string, 0, len(state.Tools))
	byLabel := make(map[string]state.Tool, len(state.Tools))
	for _, t := range state.Tools {
		labels = append(labels, toolLabel(t))
		byLabel[toolLabel(t)] = t
	}
	tools := widget.NewRadioGroup(labels, func(label string) {
		if t, ok := byLabel[label]; ok {
			s.SetTool(t)
		}
	})
	tools.Horizontal = true
	tools.Required = true
	tools.SetSelected(toolLabel(s.Tool()))

	// --- Color Palette ---
	colorBox := container.NewHBox()
	for _, hex := range state.Palette {
		colorBox.Add(newColorSwatch(hex, s.SetColor))
	}

	// --- Stroke Width Slider ---
	widthLabel := widget.NewLabel(fmt.Sprintf("%dpx", s.Style().StrokeWidth))
	strokeSlider := widget.NewSlider(state.MinStrokeWidth, state.MaxStrokeWidth)
	strokeSlider.Step = 1
	strokeSlider.SetValue(float64(s.Style().StrokeWidth))
	strokeSlider.OnChanged = func(val float64) {
		s.SetStrokeWidth(int(val))
		widthLabel.SetText(fmt.Sprintf("%dpx", int(val)))
	}
	sliderContainer := container.New(layout.NewGridWrapLayout(fyne.NewSize(150, 35)), strokeSlider)

	// --- Board actions ---
	tb := widget.NewToolbar(
		widget.NewToolbarAction(theme.ContentUndoIcon(), func() { s.Undo() }),
		widget.NewToolbarAction(theme.ContentRedoIcon(), func() { s.Redo() }),
		widget.NewToolbarAction(theme.DeleteIcon(), func() { s.Clear() }),
		widget.NewToolbarSeparator(),
		widget.NewToolbarAction(theme.DocumentSaveIcon(), orNoop(actions.Save)),
		widget.NewToolbarAction(theme.FolderOpenIcon(), orNoop(actions.Load)),
		widget.NewToolbarAction(theme.DownloadIcon(), orNoop(actions.Export)),
		widget.NewToolbarAction(theme.ContentCopyIcon(), orNoop(actions.Share)),
	)
	ideas := widget.NewButton("AI Ideas", orNoop(actions.Ideas))

	// --- Assemble everything ---
	return container.NewHBox(
		tools,
		widget.NewSeparator(),
		colorBox,
		widget.NewSeparator(),
		widget.NewLabel("Size:"),
		sliderContainer,
		widthLabel,
		widget.NewSeparator(),
		tb,
		ideas,
		layout.NewSpacer(),
	)
}

func orNoop(fn func()) func() {
	if fn == nil {
		return func() {}
	}
	return fn
}
