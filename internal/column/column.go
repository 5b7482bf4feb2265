// Package column finds vertical content bands in a set of boxes. The
// borderless table fallback uses it to recover column boundaries from text
// alignment alone.
package column

import (
	"math"

	"github.com/nippo-signage/go/internal/geometry"
)

const (
	maxColumns          = 16
	pageWidthResolution = 1000
	minGap              = 6.0
)

type Range struct{ X0, X1 float64 }

func (r Range) Width() float64 { return r.X1 - r.X0 }

// Detect projects boxes onto the x axis and splits the occupied span at
// gaps wider than gapWidth points.
func Detect(boxes []geometry.Rect, gapWidth float64) []Range {
	if len(boxes) == 0 {
		return nil
	}
	minX, maxX := bounds(boxes)
	width := maxX - minX
	if width <= 0 {
		return []Range{{X0: minX, X1: maxX}}
	}
	occupancy := make([]bool, pageWidthResolution)
	toBin := func(x float64) int {
		return geometry.Clamp(int((x-minX)/width*float64(pageWidthResolution-1)), 0, pageWidthResolution-1)
	}
	for _, b := range boxes {
		for k := toBin(b.X0); k <= toBin(b.X1); k++ {
			occupancy[k] = true
		}
	}
	gapWidth = math.Max(gapWidth, minGap)
	gapBins := int(gapWidth / width * pageWidthResolution)
	if gapBins < 1 {
		gapBins = 1
	}
	fromBin := func(i int) float64 { return minX + float64(i)/float64(pageWidthResolution-1)*width }

	columns := make([]Range, 0, maxColumns)
	insideContent, contentStart := false, 0
	for i := 0; i < pageWidthResolution; i++ {
		if occupancy[i] {
			if !insideContent {
				insideContent, contentStart = true, i
			}
			continue
		}
		if !insideContent {
			continue
		}
		gapLen := 0
		for i+gapLen < pageWidthResolution && !occupancy[i+gapLen] {
			gapLen++
		}
		if gapLen >= gapBins || i+gapLen == pageWidthResolution {
			if len(columns) < maxColumns {
				columns = append(columns, Range{X0: fromBin(contentStart), X1: fromBin(i - 1)})
			}
			insideContent = false
			i += gapLen - 1
		}
	}
	if insideContent && len(columns) < maxColumns {
		columns = append(columns, Range{X0: fromBin(contentStart), X1: maxX})
	}
	return columns
}

// Assign returns the index of the column the box overlaps most, or -1 when
// the box overlaps none.
func Assign(box geometry.Rect, columns []Range) int {
	best, bestOverlap := -1, 0.0
	for c, col := range columns {
		if overlap := math.Min(box.X1, col.X1) - math.Max(box.X0, col.X0); overlap > bestOverlap {
			best, bestOverlap = c, overlap
		}
	}
	if best < 0 {
		// Zero-width boxes (glyphs from fonts without widths) fall back to containment.
		center := (box.X0 + box.X1) / 2
		for c, col := range columns {
			if center >= col.X0 && center <= col.X1 {
				return c
			}
		}
	}
	return best
}

func bounds(boxes []geometry.Rect) (minX, maxX float64) {
	minX, maxX = math.Inf(1), math.Inf(-1)
	for _, b := range boxes {
		minX, maxX = math.Min(minX, b.X0), math.Max(maxX, b.X1)
	}
	return
}
