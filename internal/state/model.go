package state

import "slices"

// Kind identifies what an Element draws.
type Kind string

const (
	KindPath      Kind = "path"
	KindRectangle Kind = "rectangle"
	KindCircle    Kind = "circle"
	KindText      Kind = "text"
)

type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Size is the extent of a bounded shape. Negative values are legal and mean
// the shape was drawn towards the origin.
type Size struct {
	W float64 `json:"width"`
	H float64 `json:"height"`
}

// Element is one drawable unit on the board. Elements are never mutated after
// they enter a Store; edits replace the whole Snapshot.
type Element struct {
	ID          string  `json:"id"`
	Kind        Kind    `json:"type"`
	Origin      Point   `json:"origin"`
	Extent      *Size   `json:"extent,omitempty"`
	Points      []Point `json:"points,omitempty"`
	Text        string  `json:"text,omitempty"`
	Color       string  `json:"color"`
	StrokeWidth int     `json:"stroke_width"`
}

// Clone returns a copy that shares no memory with e.
func (e Element) Clone() Element {
	out := e
	if e.Extent != nil {
		ext := *e.Extent
		out.Extent = &ext
	}
	if e.Points != nil {
		out.Points = slices.Clone(e.Points)
	}
	return out
}

// Snapshot is the ordered element list at one instant. Order is z-order.
type Snapshot []Element

// Clone deep-copies the snapshot. A nil snapshot clones to an empty one so
// that equality checks between "empty" states do not depend on nil-ness.
func (s Snapshot) Clone() Snapshot {
	out := make(Snapshot, len(s))
	for i, e := range s {
		out[i] = e.Clone()
	}
	return out
}

// Style is the stroke style picked in the toolbar.
type Style struct {
	Color       string
	StrokeWidth int
}

// Palette is the set of colours the toolbar offers. The model accepts any
// colour string.
var Palette = []string{
	"#3B82F6", "#EF4444", "#10B981", "#F59E0B",
	"#8B5CF6", "#EC4899", "#6B7280", "#000000",
}

const (
	BackgroundColor = "#FFFFFF"

	MinStrokeWidth = 1
	MaxStrokeWidth = 10
)

// DefaultStyle matches the toolbar state of a freshly opened board.
func DefaultStyle() Style {
	return Style{Color: Palette[0], StrokeWidth: 3}
}
