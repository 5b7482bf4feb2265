package table

import (
	"math"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/nippo-signage/go/internal/column"
	"github.com/nippo-signage/go/internal/geometry"
	"github.com/nippo-signage/go/internal/pdfpage"
	"github.com/nippo-signage/go/internal/text"
)

func lineTol(size float64) float64 { return math.Max(size*0.3, 2.0) }

// groupLines buckets glyphs by vertical center and orders each line left to right.
func groupLines(glyphs []pdfpage.Glyph) [][]pdfpage.Glyph {
	if len(glyphs) == 0 {
		return nil
	}
	sorted := make([]pdfpage.Glyph, len(glyphs))
	copy(sorted, glyphs)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].BBox.Center().Y < sorted[j].BBox.Center().Y })
	var lines [][]pdfpage.Glyph
	var lineY float64
	for _, g := range sorted {
		cy := g.BBox.Center().Y
		if n := len(lines); n > 0 && math.Abs(cy-lineY) <= lineTol(g.Size) {
			lines[n-1] = append(lines[n-1], g)
			continue
		}
		lines = append(lines, []pdfpage.Glyph{g})
		lineY = cy
	}
	for _, line := range lines {
		sort.SliceStable(line, func(i, j int) bool { return line[i].BBox.X0 < line[j].BBox.X0 })
	}
	return lines
}

func firstRune(s string) rune {
	r, _ := utf8.DecodeRuneInString(s)
	return r
}

func lastRune(s string) rune {
	r, _ := utf8.DecodeLastRuneInString(s)
	return r
}

// joinGlyphs concatenates one line, inserting a space where the horizontal
// gap looks like a word break.
func joinGlyphs(line []pdfpage.Glyph) string {
	var buf strings.Builder
	prevX1 := math.Inf(-1)
	var prevR rune
	for _, g := range line {
		if g.Text == "\ufeff" {
			continue
		}
		cur := firstRune(g.Text)
		if buf.Len() > 0 {
			xTol := math.Max(g.Size*0.5, 3.0)
			if text.IsPunctOrDigit(cur) || text.IsPunctOrDigit(prevR) {
				xTol = math.Max(xTol, 8.0)
			}
			if g.BBox.X0-prevX1 > xTol && !(text.IsWide(cur) && text.IsWide(prevR)) {
				buf.WriteByte(' ')
			}
		}
		buf.WriteString(g.Text)
		prevX1, prevR = math.Max(prevX1, g.BBox.X1), lastRune(g.Text)
	}
	return text.NormalizeText(buf.String())
}

type word struct {
	BBox geometry.Rect
	Text string
}

// splitWords cuts a line at gaps wider than gap points.
func splitWords(line []pdfpage.Glyph, gap float64) []word {
	var words []word
	var cur []pdfpage.Glyph
	var curBox geometry.Rect
	flush := func() {
		if s := joinGlyphs(cur); text.HasVisibleContent(s) {
			words = append(words, word{BBox: curBox, Text: s})
		}
		cur, curBox = nil, geometry.Empty
	}
	for _, g := range line {
		if len(cur) > 0 && g.BBox.X0-curBox.X1 > gap {
			flush()
		}
		if text.HasVisibleContent(g.Text) || len(cur) > 0 {
			cur = append(cur, g)
			curBox = unionBox(curBox, g.BBox, len(cur) == 1)
		}
	}
	if len(cur) > 0 {
		flush()
	}
	return words
}

func unionBox(acc, b geometry.Rect, first bool) geometry.Rect {
	if first {
		return b
	}
	return geometry.Rect{X0: math.Min(acc.X0, b.X0), Y0: math.Min(acc.Y0, b.Y0), X1: math.Max(acc.X1, b.X1), Y1: math.Max(acc.Y1, b.Y1)}
}

func medianSize(glyphs []pdfpage.Glyph) float64 {
	if len(glyphs) == 0 {
		return 0
	}
	sizes := make([]float64, len(glyphs))
	for i, g := range glyphs {
		sizes[i] = g.Size
	}
	sort.Float64s(sizes)
	return sizes[len(sizes)/2]
}

// detectByAlignment rebuilds a borderless table from text alone: every text
// line is a row and columns come from vertical whitespace channels.
func detectByAlignment(page pdfpage.Page) []Table {
	lines := groupLines(page.Glyphs)
	if len(lines) < 2 {
		return nil
	}
	size := medianSize(page.Glyphs)
	wordGap := math.Max(size*0.6, 3.0)
	var lineWords [][]word
	var boxes []geometry.Rect
	for _, line := range lines {
		words := splitWords(line, wordGap)
		if len(words) == 0 {
			continue
		}
		lineWords = append(lineWords, words)
		for _, w := range words {
			boxes = append(boxes, w.BBox)
		}
	}
	cols := column.Detect(boxes, math.Max(size*1.2, 10))
	Logger.Debug("text alignment columns", "page", page.Number, "lines", len(lineWords), "columns", len(cols))
	if len(cols) < 2 || len(lineWords) < 2 {
		return nil
	}
	var tbl Table
	for _, words := range lineWords {
		row := Row{Cells: make([]Cell, len(cols))}
		for c, col := range cols {
			row.Cells[c].BBox = geometry.Rect{X0: col.X0, X1: col.X1}
		}
		for _, w := range words {
			c := column.Assign(w.BBox, cols)
			if c < 0 {
				continue
			}
			cell := &row.Cells[c]
			if cell.Text != "" {
				cell.Text += " "
			}
			cell.Text += w.Text
			row.BBox = unionBox(row.BBox, w.BBox, row.BBox.IsEmpty())
		}
		for c := range row.Cells {
			row.Cells[c].BBox.Y0, row.Cells[c].BBox.Y1 = row.BBox.Y0, row.BBox.Y1
		}
		tbl.BBox = tbl.BBox.Union(row.BBox)
		tbl.Rows = append(tbl.Rows, row)
	}
	return []Table{tbl}
}
