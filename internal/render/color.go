package render

import (
	"image/color"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

var fallbackColor = color.NRGBA{A: 0xff}

// ParseColor accepts "#RRGGBB" hex values and CSS colour names. Anything else
// draws in black.
func ParseColor(s string) color.NRGBA {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "#") {
		if c, err := colorful.Hex(s); err == nil {
			r, g, b := c.RGB255()
			return color.NRGBA{R: r, G: g, B: b, A: 0xff}
		}
		return fallbackColor
	}
	if c, ok := colornames.Map[strings.ToLower(s)]; ok {
		return color.NRGBA{R: c.R, G: c.G, B: c.B, A: c.A}
	}
	return fallbackColor
}
