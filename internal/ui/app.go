package ui

import (
	"context"
	"fmt"
	"time"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/app"
	"fyne.io/fyne/v2/container"
	"fyne.io/fyne/v2/dialog"
	"fyne.io/fyne/v2/widget"
	"go.uber.org/zap"

	"TeamBoard/internal/ai"
	"TeamBoard/internal/board"
	"TeamBoard/internal/export"
	"TeamBoard/internal/logging"
	"TeamBoard/internal/state"
)

// Deps is everything the desktop window needs.
type Deps struct {
	Session   *board.Session
	Ideas     *ai.Generator
	Exporter  *export.Exporter
	ShareLink string
	Width     int
	Height    int
	Logger    *zap.Logger
}

// RunApp opens the whiteboard window and blocks until it is closed.
func RunApp(d Deps) {
	d.Logger = logging.OrNop(d.Logger)
	myApp := app.NewWithID("io.teamboard.desktop")
	myWindow := myApp.NewWindow(fmt.Sprintf("TeamBoard: %s", d.Session.ID()))
	myWindow.Resize(fyne.NewSize(float32(d.Width)+40, float32(d.Height)+120))

	status := widget.NewLabel("Ready")
	setStatus := func(text string) { fyne.Do(func() { status.SetText(text) }) }

	boardView := NewBoardWidget(d.Session, d.Width, d.Height)
	defer boardView.Detach()
	boardView.OnTextRequest = func(at state.Point) {
		entry := widget.NewEntry()
		dialog.ShowForm("Add text", "Add", "Cancel",
			[]*widget.FormItem{widget.NewFormItem("Text", entry)},
			func(ok bool) {
				if ok {
					d.Session.AddText(entry.Text, at)
				}
			}, myWindow)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	actions := Actions{
		Ideas: func() {
			setStatus("Generating ideas...")
			go func() {
				ideas, err := d.Ideas.Ideas(ctx, d.Session.ID())
				d.Session.AddIdeas(ideas)
				if err != nil {
					setStatus(fmt.Sprintf("Placed %d suggested ideas (AI unavailable)", len(ideas)))
					return
				}
				setStatus(fmt.Sprintf("Placed %d AI ideas", len(ideas)))
			}()
		},
		Export: func() {
			path, err := d.Exporter.Export(export.FormatPNG, d.Session.ID(), d.Session.Elements())
			if err != nil {
				dialog.ShowError(err, myWindow)
				return
			}
			setStatus("Exported " + path)
		},
		Save: func() {
			dialog.ShowFileSave(func(writer fyne.URIWriteCloser, err error) {
				if err != nil || writer == nil {
					return
				}
				saveToFile(d, writer, setStatus)
			}, myWindow)
		},
		Load: func() {
			dialog.ShowFileOpen(func(reader fyne.URIReadCloser, err error) {
				if err != nil || reader == nil {
					return
				}
				loadFromFile(d, reader, setStatus, myWindow)
			}, myWindow)
		},
		Share: func() {
			if d.ShareLink == "" {
				dialog.ShowInformation("Share", "This board is not served by a relay.", myWindow)
				return
			}
			myWindow.Clipboard().SetContent(d.ShareLink)
			setStatus("Share link copied: " + d.ShareLink)
		},
	}

	go watchConnection(ctx, d.Session, setStatus)

	toolbar := NewToolbar(d.Session, actions)
	content := container.NewBorder(toolbar, status, nil, nil, container.NewScroll(boardView))

	myWindow.SetContent(content)
	myWindow.ShowAndRun()
}

// watchConnection reports connection changes in the status bar.
func watchConnection(ctx context.Context, s *board.Session, setStatus func(string)) {
	ticker := time.NewTicker(time.Second)
	defer ticker.Stop()
	last, first := false, true
	for {
		if connected := s.Connected(); connected != last || first {
			last, first = connected, false
			if connected {
				setStatus("Connected")
			} else {
				setStatus("Offline: changes stay on this machine")
			}
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func saveToFile(d Deps, writer fyne.URIWriteCloser, setStatus func(string)) {
	defer func() {
		if err := writer.Close(); err != nil {
			d.Logger.Warn("error closing writer", zap.Error(err))
		}
	}()
	elements := d.Session.Elements()
	if err := export.WriteBoard(writer, d.Session.ID(), elements); err != nil {
		d.Logger.Error("save failed", zap.String("uri", writer.URI().String()), zap.Error(err))
		setStatus("Error saving file")
		return
	}
	setStatus(fmt.Sprintf("Saved %d elements", len(elements)))
}

func loadFromFile(d Deps, reader fyne.URIReadCloser, setStatus func(string), w fyne.Window) {
	defer func() {
		if err := reader.Close(); err != nil {
			d.Logger.Warn("error closing reader", zap.Error(err))
		}
	}()
	bf, err := export.ReadBoard(reader)
	if err != nil {
		d.Logger.Error("load failed", zap.String("uri", reader.URI().String()), zap.Error(err))
		dialog.ShowError(err, w)
		return
	}
	d.Session.Load(bf.Elements)
	setStatus(fmt.Sprintf("Loaded %d elements", len(bf.Elements)))
}
