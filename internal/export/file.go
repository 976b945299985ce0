// Package export writes boards out as PNG, PDF and JSON board files, and reads
// board files back.
package export

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"TeamBoard/internal/config"
	"TeamBoard/internal/logging"
	"TeamBoard/internal/render"
	"TeamBoard/internal/state"
)

// FileVersion is the current board file format.
const FileVersion = 1

const maxBoardFile = 32 << 20

// BoardFile is the saved form of a board.
type BoardFile struct {
	Version  int            `json:"version"`
	Session  string         `json:"session,omitempty"`
	SavedAt  time.Time      `json:"saved_at"`
	Elements state.Snapshot `json:"elements"`
}

// WriteBoard encodes s as an indented board file.
func WriteBoard(w io.Writer, session string, s state.Snapshot) error {
	if s == nil {
		s = state.Snapshot{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(BoardFile{
		Version:  FileVersion,
		Session:  session,
		SavedAt:  time.Now().UTC(),
		Elements: s,
	}); err != nil {
		return fmt.Errorf("failed to encode board: %w", err)
	}
	return nil
}

// ReadBoard decodes a board file. A bare JSON array of elements is accepted
// as well.
func ReadBoard(r io.Reader) (BoardFile, error) {
	data, err := io.ReadAll(io.LimitReader(r, maxBoardFile+1))
	if err != nil {
		return BoardFile{}, fmt.Errorf("failed to read board: %w", err)
	}
	if len(data) > maxBoardFile {
		return BoardFile{}, fmt.Errorf("board file exceeds %d bytes", maxBoardFile)
	}

	trimmed := strings.TrimSpace(string(data))
	var bf BoardFile
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &bf.Elements); err != nil {
			return BoardFile{}, fmt.Errorf("failed to parse board: %w", err)
		}
		bf.Version = FileVersion
	} else if err := json.Unmarshal(data, &bf); err != nil {
		return BoardFile{}, fmt.Errorf("failed to parse board: %w", err)
	}

	if bf.Version > FileVersion {
		return BoardFile{}, fmt.Errorf("unsupported board file version %d", bf.Version)
	}
	if bf.Elements == nil {
		bf.Elements = state.Snapshot{}
	}
	for i, e := range bf.Elements {
		if e.ID == "" {
			return BoardFile{}, fmt.Errorf("element %d has no id", i)
		}
	}
	return bf, nil
}

// FileName is the default export name for a session, e.g.
// "whiteboard-sprint-42.png".
func FileName(session, ext string) string {
	if session == "" {
		session = "board"
	}
	return "whiteboard-" + sanitize(session) + "." + strings.TrimPrefix(ext, ".")
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch r {
		case '/', '\\', ':', '*', '?', '"', '<', '>', '|', ' ':
			return '_'
		}
		return r
	}, s)
}

// Format names an export format.
type Format string

const (
	FormatPNG  Format = "png"
	FormatPDF  Format = "pdf"
	FormatJSON Format = "json"
)

// ErrUnknownFormat is returned for a format Exporter cannot write.
var ErrUnknownFormat = errors.New("unknown export format")

// Exporter writes boards into a directory.
type Exporter struct {
	dir    string
	width  int
	height int
	logger *zap.Logger
}

// NewExporter creates an exporter for the configured directory and canvas size.
func NewExporter(cfg config.ExportConfig, canvas config.CanvasConfig, logger *zap.Logger) *Exporter {
	return &Exporter{
		dir:    cfg.Dir,
		width:  canvas.Width,
		height: canvas.Height,
		logger: logging.OrNop(logger).Named("export"),
	}
}

// Export writes s in the given format to the default file name for session
// and returns the path written.
func (x *Exporter) Export(format Format, session string, s state.Snapshot) (string, error) {
	path := filepath.Join(x.dir, FileName(session, string(format)))
	if err := x.ExportTo(path, format, session, s); err != nil {
		return "", err
	}
	return path, nil
}

// ExportTo writes s in the given format to path.
func (x *Exporter) ExportTo(path string, format Format, session string, s state.Snapshot) error {
	var write func(io.Writer) error
	switch format {
	case FormatPNG:
		scene := render.Project(s, nil, state.DefaultStyle())
		write = func(w io.Writer) error { return WritePNG(w, scene, x.width, x.height) }
	case FormatPDF:
		scene := render.Project(s, nil, state.DefaultStyle())
		write = func(w io.Writer) error { return WritePDF(w, scene, x.width, x.height) }
	case FormatJSON:
		write = func(w io.Writer) error { return WriteBoard(w, session, s) }
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create export directory: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to close %s: %w", path, err)
	}
	x.logger.Info("exported board",
		zap.String("format", string(format)),
		zap.String("path", path),
		zap.Int("elements", len(s)))
	return nil
}

// LoadFile reads a board file from path.
func LoadFile(path string) (BoardFile, error) {
	f, err := os.Open(path)
	if err != nil {
		return BoardFile{}, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	return ReadBoard(f)
}
