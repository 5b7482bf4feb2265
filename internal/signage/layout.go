package signage

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	"strconv"
	"strings"

	"github.com/nippo-signage/go/internal/models"
)

// Layout holds every placement constant of a signage template. Anchors are
// the top-left corner of the text box in canvas pixels.
type Layout struct {
	StartX      int
	StartY      int
	LineHeight  int
	TitleOffset int
	DateX       int
	DateY       int

	TitleSize float64
	BodySize  float64
	DateSize  float64

	TextColor color.NRGBA
	TitleText string
	Bullet    string
}

func DefaultLayout() Layout {
	return Layout{
		StartX:      220,
		StartY:      380,
		LineHeight:  90,
		TitleOffset: 140,
		DateX:       1400,
		DateY:       240,
		TitleSize:   65,
		BodySize:    40,
		DateSize:    40,
		TextColor:   color.NRGBA{R: 255, G: 255, B: 255, A: 255},
		TitleText:   "TODAY'S SCHEDULE",
		Bullet:      "● ",
	}
}

func (l Layout) Validate() error {
	if l.LineHeight <= 0 {
		return fmt.Errorf("line height must be positive, got %d", l.LineHeight)
	}
	if l.TitleSize <= 0 || l.BodySize <= 0 || l.DateSize <= 0 {
		return errors.New("font sizes must be positive")
	}
	return nil
}

// MaxRows is how many record lines fit entirely on a canvas of the given
// height. Lines past this count are still drawn but end up clipped.
func (l Layout) MaxRows(height int) int {
	if l.LineHeight <= 0 || height < l.StartY+l.LineHeight {
		return 0
	}
	return (height - l.StartY) / l.LineHeight
}

func (l Layout) TitleAnchor() image.Point { return image.Pt(l.StartX, l.StartY-l.TitleOffset) }
func (l Layout) DateAnchor() image.Point  { return image.Pt(l.DateX, l.DateY) }

// LineAnchor is the anchor of the record line at position i.
func (l Layout) LineAnchor(i int) image.Point { return image.Pt(l.StartX, l.StartY+i*l.LineHeight) }

// FormatLine renders one record as "● [room]  title　/　staff".
func (l Layout) FormatLine(r models.Record) string {
	return fmt.Sprintf("%s[%s]  %s　/　%s", l.Bullet, r.Room, r.Title, r.Staff)
}

// ParseColor accepts #rgb, #rrggbb and #rrggbbaa.
func ParseColor(s string) (color.NRGBA, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	if len(hex) != 8 {
		return color.NRGBA{}, fmt.Errorf("invalid color %q", s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.NRGBA{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return color.NRGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)}, nil
}

// FormatColor is the inverse of ParseColor in #rrggbbaa form.
func FormatColor(c color.NRGBA) string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}
