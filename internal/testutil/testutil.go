// Package testutil builds small, valid PDF documents in memory so table
// extraction can be tested without binary fixtures.
package testutil

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
)

// Text is a single Tj run. X and Y are the baseline origin in top-left page
// space, the same space pdfpage reports. ASCII runs use Helvetica; anything
// else is drawn with a Type0 Identity-H font carrying a ToUnicode map.
type Text struct {
	X, Y, Size float64
	S          string
}

// Box is an axis-aligned rectangle in top-left page space.
type Box struct{ X0, Y0, X1, Y1 float64 }

// Line is a stroked segment in top-left page space.
type Line struct{ X0, Y0, X1, Y1 float64 }

type Page struct {
	Width, Height float64
	Boxes         []Box
	Lines         []Line
	Texts         []Text
	// Transform changes how coordinates are written, never where things land.
	Transform Transform
}

type Ruling int

const (
	// RuleCells strokes every cell as its own rectangle.
	RuleCells Ruling = iota
	// RuleLines draws hairline rectangles for each grid line.
	RuleLines
	// RuleNone draws text only.
	RuleNone
	// RuleSegments strokes each grid line as an m/l path.
	RuleSegments
)

type Transform int

const (
	// TransformNone writes PDF user space coordinates directly.
	TransformNone Transform = iota
	// TransformScale writes everything at half size under a 2x cm.
	TransformScale
	// TransformFlip installs a top-left origin cm and writes top-left
	// coordinates, with a flipped text matrix so glyphs stay upright.
	TransformFlip
)

const (
	A4Width  = 595.0
	A4Height = 842.0

	TableTop  = 80.0
	RowHeight = 22.0
	FontSize  = 10.0
)

// ColumnX are the left edges of the five schedule columns plus the right edge.
var ColumnX = []float64{30, 100, 300, 360, 420, 560}

// TablePage lays rows out as a five-column grid starting at TableTop. Cells
// beyond the row length are left empty.
func TablePage(rows [][]string, ruling Ruling) Page {
	p := Page{Width: A4Width, Height: A4Height}
	cols := len(ColumnX) - 1
	for r, row := range rows {
		y0 := TableTop + float64(r)*RowHeight
		y1 := y0 + RowHeight
		for c := 0; c < cols; c++ {
			x0, x1 := ColumnX[c], ColumnX[c+1]
			if ruling == RuleCells {
				p.Boxes = append(p.Boxes, Box{x0, y0, x1, y1})
			}
			if c < len(row) && row[c] != "" {
				p.Texts = append(p.Texts, Text{X: x0 + 4, Y: y1 - 7, Size: FontSize, S: row[c]})
			}
		}
	}
	if len(rows) == 0 {
		return p
	}
	top, bottom := TableTop, TableTop+float64(len(rows))*RowHeight
	switch ruling {
	case RuleLines:
		for r := 0; r <= len(rows); r++ {
			y := TableTop + float64(r)*RowHeight
			p.Boxes = append(p.Boxes, Box{ColumnX[0], y - 0.25, ColumnX[cols], y + 0.25})
		}
		for _, x := range ColumnX {
			p.Boxes = append(p.Boxes, Box{x - 0.25, top, x + 0.25, bottom})
		}
	case RuleSegments:
		for r := 0; r <= len(rows); r++ {
			y := TableTop + float64(r)*RowHeight
			p.Lines = append(p.Lines, Line{ColumnX[0], y, ColumnX[cols], y})
		}
		for _, x := range ColumnX {
			p.Lines = append(p.Lines, Line{x, top, x, bottom})
		}
	}
	return p
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] >= 0x80 {
			return false
		}
	}
	return true
}

// BuildPDF serializes pages into a PDF 1.4 file with a classic xref table.
// ASCII text uses Helvetica with WinAnsiEncoding; other text uses a Type0
// font whose CIDs are the BMP code points.
func BuildPDF(pages ...Page) []byte {
	var objects []string
	add := func(body string) int {
		objects = append(objects, body)
		return len(objects)
	}

	catalog := add("")
	pagesObj := add("")
	widths := strings.TrimSpace(strings.Repeat("556 ", 126-32+1))
	font := add(fmt.Sprintf("<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding /FirstChar 32 /LastChar 126 /Widths [%s] >>", widths))
	fonts := fmt.Sprintf("/F1 %d 0 R", font)
	if runes := wideRunes(pages); len(runes) > 0 {
		cmap := toUnicode(runes)
		toUni := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(cmap), cmap))
		desc := add("<< /Type /FontDescriptor /FontName /TestGothic /Flags 4 /FontBBox [0 -120 1000 880] /ItalicAngle 0 /Ascent 880 /Descent -120 /CapHeight 700 /StemV 80 >>")
		cid := add(fmt.Sprintf("<< /Type /Font /Subtype /CIDFontType2 /BaseFont /TestGothic /CIDSystemInfo << /Registry (Adobe) /Ordering (Identity) /Supplement 0 >> /FontDescriptor %d 0 R /DW 1000 /W [%s] /CIDToGIDMap /Identity >>", desc, halfWidths(runes)))
		type0 := add(fmt.Sprintf("<< /Type /Font /Subtype /Type0 /BaseFont /ABCDEF+TestGothic /Encoding /Identity-H /DescendantFonts [%d 0 R] /ToUnicode %d 0 R >>", cid, toUni))
		fonts += fmt.Sprintf(" /F2 %d 0 R", type0)
	}

	var kids []string
	for _, pg := range pages {
		stream := contentStream(pg)
		contents := add(fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream))
		page := add(fmt.Sprintf("<< /Type /Page /Parent %d 0 R /MediaBox [0 0 %s %s] /Resources << /Font << %s >> >> /Contents %d 0 R >>",
			pagesObj, num(pg.Width), num(pg.Height), fonts, contents))
		kids = append(kids, fmt.Sprintf("%d 0 R", page))
	}
	objects[catalog-1] = fmt.Sprintf("<< /Type /Catalog /Pages %d 0 R >>", pagesObj)
	objects[pagesObj-1] = fmt.Sprintf("<< /Type /Pages /Kids [%s] /Count %d >>", strings.Join(kids, " "), len(kids))

	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n%\xe2\xe3\xcf\xd3\n")
	offsets := make([]int, len(objects))
	for i, body := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, body)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root %d 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, catalog, xref)
	return buf.Bytes()
}

// wideRunes collects, sorted, every rune drawn with the Type0 font.
func wideRunes(pages []Page) []rune {
	seen := map[rune]bool{}
	for _, pg := range pages {
		for _, t := range pg.Texts {
			if isASCII(t.S) {
				continue
			}
			for _, r := range t.S {
				if r <= 0xFFFF {
					seen[r] = true
				}
			}
		}
	}
	runes := make([]rune, 0, len(seen))
	for r := range seen {
		runes = append(runes, r)
	}
	sort.Slice(runes, func(i, j int) bool { return runes[i] < runes[j] })
	return runes
}

// halfWidths gives ASCII CIDs half an em; everything else takes DW.
func halfWidths(runes []rune) string {
	var parts []string
	for _, r := range runes {
		if r < 0x80 {
			parts = append(parts, fmt.Sprintf("%d [500]", r))
		}
	}
	return strings.Join(parts, " ")
}

// toUnicode writes an identity bfchar CMap for runes, in blocks of 100.
func toUnicode(runes []rune) string {
	var b strings.Builder
	b.WriteString("/CIDInit /ProcSet findresource begin\n12 dict begin\nbegincmap\n")
	b.WriteString("/CIDSystemInfo << /Registry (Adobe) /Ordering (UCS) /Supplement 0 >> def\n")
	b.WriteString("/CMapName /Adobe-Identity-UCS def\n/CMapType 2 def\n")
	b.WriteString("1 begincodespacerange\n<0000> <FFFF>\nendcodespacerange\n")
	for i := 0; i < len(runes); i += 100 {
		block := runes[i:min(i+100, len(runes))]
		fmt.Fprintf(&b, "%d beginbfchar\n", len(block))
		for _, r := range block {
			fmt.Fprintf(&b, "<%04X> <%04X>\n", r, r)
		}
		b.WriteString("endbfchar\n")
	}
	b.WriteString("endcmap\nCMapName currentdict /CMap defineresource pop\nend\nend")
	return b.String()
}

func hexCodes(s string) string {
	var b strings.Builder
	b.WriteByte('<')
	for _, r := range s {
		if r <= 0xFFFF {
			fmt.Fprintf(&b, "%04X", r)
		}
	}
	b.WriteByte('>')
	return b.String()
}

// contentStream converts top-left coordinates into the page's user space,
// then into whatever space Transform writes in.
func contentStream(pg Page) string {
	var b strings.Builder
	// pt maps a top-left point to the coordinates written in the stream.
	pt := func(x, y float64) (float64, float64) { return x, pg.Height - y }
	scale := 1.0
	switch pg.Transform {
	case TransformScale:
		scale = 0.5
		pt = func(x, y float64) (float64, float64) { return x * scale, (pg.Height - y) * scale }
		b.WriteString("q 2 0 0 2 0 0 cm\n")
	case TransformFlip:
		pt = func(x, y float64) (float64, float64) { return x, y }
		fmt.Fprintf(&b, "q 1 0 0 -1 0 %s cm\n", num(pg.Height))
	}

	if len(pg.Boxes) > 0 || len(pg.Lines) > 0 {
		b.WriteString(num(0.5*scale) + " w\n")
	}
	for _, bx := range pg.Boxes {
		x0, y0 := pt(bx.X0, bx.Y0)
		x1, y1 := pt(bx.X1, bx.Y1)
		fmt.Fprintf(&b, "%s %s %s %s re S\n", num(x0), num(min(y0, y1)), num(x1-x0), num(abs(y1-y0)))
	}
	for _, l := range pg.Lines {
		x0, y0 := pt(l.X0, l.Y0)
		x1, y1 := pt(l.X1, l.Y1)
		fmt.Fprintf(&b, "%s %s m %s %s l S\n", num(x0), num(y0), num(x1), num(y1))
	}
	for _, t := range pg.Texts {
		x, y := pt(t.X, t.Y)
		font, str := "/F1", "("+escape(t.S)+")"
		if !isASCII(t.S) {
			font, str = "/F2", hexCodes(t.S)
		}
		if pg.Transform == TransformFlip {
			fmt.Fprintf(&b, "BT %s %s Tf 1 0 0 -1 %s %s Tm %s Tj ET\n", font, num(t.Size), num(x), num(y), str)
			continue
		}
		fmt.Fprintf(&b, "BT %s %s Tf %s %s Td %s Tj ET\n", font, num(t.Size*scale), num(x), num(y), str)
	}
	if pg.Transform != TransformNone {
		b.WriteString("Q\n")
	}
	return strings.TrimSuffix(b.String(), "\n")
}

func abs(f float64) float64 {
	if f < 0 {
		return -f
	}
	return f
}

func escape(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `(`, `\(`, `)`, `\)`)
	return r.Replace(s)
}

func num(f float64) string {
	s := fmt.Sprintf("%.2f", f)
	s = strings.TrimRight(s, "0")
	return strings.TrimSuffix(s, ".")
}

// ScheduleRows is a header plus a mix of work items and decorative rows, as
// found in a typical daily report.
func ScheduleRows() [][]string {
	return [][]string{
		{"Room", "Program", "Time", "Length", "Staff"},
		{"ED-101", "Morning News", "09:00", "30", "Sato"},
		{"Break", "", "", "", ""},
		{"MA-202", "Evening Special", "18:00", "60", "Suzuki"},
		{"XYZ-001", "Storage", "", "", "Tanaka"},
		{"ED-103", "A", "12:00", "5", "Ito"},
		{"MA-204", "Weather", "12:30", "10", ""},
	}
}

// JapaneseRows is a report typed with an IME: full-width room codes and
// Japanese titles and staff names.
func JapaneseRows() [][]string {
	return [][]string{
		{"編集室", "番組名", "時刻", "尺", "担当"},
		{"ＥＤ－１０１", "朝のニュース", "09:00", "30", "佐藤"},
		{"休憩", "", "", "", ""},
		{"ＭＡ－２０２", "夕方特集", "18:00", "60", "鈴木"},
		{"倉庫", "機材保管", "", "", "田中"},
	}
}
