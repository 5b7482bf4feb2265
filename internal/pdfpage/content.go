package pdfpage

import (
	"math"
	"strings"
	"unicode/utf16"

	"github.com/ledongthuc/pdf"

	"github.com/nippo-signage/go/internal/geometry"
)

const (
	// Segments whose ends differ by less than this along one axis count as
	// horizontal or vertical rules.
	axisTol = 0.5
	// Advance used when a simple font carries no Widths array (1/1000 em).
	defaultSimpleWidth = 500.0
	// Default CID width when a descendant font has no DW entry.
	defaultCIDWidth = 1000.0
	maxFormDepth    = 8
)

// matrix is a PDF affine transform [a b c d e f]; points map as
// x' = a*x + c*y + e, y' = b*x + d*y + f.
type matrix [6]float64

var identity = matrix{1, 0, 0, 1, 0, 0}

// mul returns m followed by n.
func (m matrix) mul(n matrix) matrix {
	return matrix{
		m[0]*n[0] + m[1]*n[2],
		m[0]*n[1] + m[1]*n[3],
		m[2]*n[0] + m[3]*n[2],
		m[2]*n[1] + m[3]*n[3],
		m[4]*n[0] + m[5]*n[2] + n[4],
		m[4]*n[1] + m[5]*n[3] + n[5],
	}
}

func (m matrix) apply(x, y float64) (float64, float64) {
	return m[0]*x + m[2]*y + m[4], m[1]*x + m[3]*y + m[5]
}

func translate(tx, ty float64) matrix { return matrix{1, 0, 0, 1, tx, ty} }

func matrixFrom(args []pdf.Value) (matrix, bool) {
	if len(args) != 6 {
		return identity, false
	}
	var m matrix
	for i := range m {
		m[i] = args[i].Float64()
	}
	return m, true
}

// font is what text placement needs from a font dictionary.
type font struct {
	name    string
	enc     pdf.TextEncoding
	twoByte bool
	ucs2    bool
	first   int
	widths  []float64
	dw      float64
	cidW    map[int]float64
}

func loadFont(v pdf.Value) *font {
	f := &font{name: v.Key("BaseFont").Name()}
	if _, after, ok := strings.Cut(f.name, "+"); ok {
		f.name = after
	}
	if v.Key("Subtype").Name() == "Type0" {
		f.twoByte = true
		desc := v.Key("DescendantFonts").Index(0)
		f.dw = defaultCIDWidth
		if dw := desc.Key("DW"); dw.Kind() == pdf.Integer || dw.Kind() == pdf.Real {
			f.dw = dw.Float64()
		}
		f.cidW = parseCIDWidths(desc.Key("W"))
		// Without a usable ToUnicode map a UCS-2 CMap still carries the code points.
		enc := v.Key("Encoding").Name()
		if v.Key("ToUnicode").Kind() != pdf.Stream || (enc != "Identity-H" && strings.Contains(enc, "UCS2")) {
			f.ucs2 = true
			return f
		}
	} else {
		f.first = int(v.Key("FirstChar").Int64())
		w := v.Key("Widths")
		for i := 0; i < w.Len(); i++ {
			f.widths = append(f.widths, w.Index(i).Float64())
		}
	}
	f.enc = pdf.Font{V: v}.Encoder()
	return f
}

// parseCIDWidths reads a W array: "c [w1 w2 ...]" and "cfirst clast w" runs.
func parseCIDWidths(w pdf.Value) map[int]float64 {
	out := map[int]float64{}
	for i := 0; i < w.Len(); {
		start := int(w.Index(i).Int64())
		next := w.Index(i + 1)
		if next.Kind() == pdf.Array {
			for j := 0; j < next.Len(); j++ {
				out[start+j] = next.Index(j).Float64()
			}
			i += 2
			continue
		}
		end := int(next.Int64())
		width := w.Index(i + 2).Float64()
		for c := start; c <= end && c-start < 0xFFFF; c++ {
			out[c] = width
		}
		i += 3
	}
	return out
}

// codes splits a shown string into character codes.
func (f *font) codes(s string) []string {
	n := 1
	if f.twoByte {
		n = 2
	}
	out := make([]string, 0, len(s)/n+1)
	for len(s) >= n {
		out = append(out, s[:n])
		s = s[n:]
	}
	return out
}

func (f *font) decode(code string) string {
	if f.ucs2 {
		if len(code) == 2 {
			return string(utf16.Decode([]uint16{uint16(code[0])<<8 | uint16(code[1])}))
		}
		return ""
	}
	if f.enc == nil {
		return code
	}
	return f.enc.Decode(code)
}

// width is the advance of code in 1/1000 em.
func (f *font) width(code string) float64 {
	if f.twoByte {
		cid := int(code[0])<<8 | int(code[1])
		if w, ok := f.cidW[cid]; ok {
			return w
		}
		return f.dw
	}
	i := int(code[0]) - f.first
	if i >= 0 && i < len(f.widths) {
		return f.widths[i]
	}
	return defaultSimpleWidth
}

type gstate struct {
	ctm       matrix
	font      *font
	fontSize  float64
	charSpace float64
	wordSpace float64
	hscale    float64
	leading   float64
	rise      float64
}

type point struct{ x, y float64 }

type segment struct{ a, b point }

// interpreter walks content streams and collects glyphs and ruling edges in
// PDF user space. Paths are transformed by the CTM as they are built.
type interpreter struct {
	g     gstate
	stack []gstate
	tm    matrix
	tlm   matrix
	fonts map[string]*font
	res   pdf.Value
	depth int

	cur, start point
	segs       []segment
	rects      []geometry.Rect

	glyphs []Glyph
	edges  []Edge
}

func newInterpreter(resources pdf.Value) *interpreter {
	return &interpreter{
		g:     gstate{ctm: identity, hscale: 1},
		tm:    identity,
		tlm:   identity,
		fonts: map[string]*font{},
		res:   resources,
	}
}

// run interprets a content stream, or each stream of an array in order.
func (in *interpreter) run(contents pdf.Value) {
	switch contents.Kind() {
	case pdf.Array:
		for i := 0; i < contents.Len(); i++ {
			in.run(contents.Index(i))
		}
	case pdf.Stream:
		pdf.Interpret(contents, in.do)
	}
}

func (in *interpreter) do(stk *pdf.Stack, op string) {
	n := stk.Len()
	args := make([]pdf.Value, n)
	for i := n - 1; i >= 0; i-- {
		args[i] = stk.Pop()
	}
	num := func(i int) float64 {
		if i < len(args) {
			return args[i].Float64()
		}
		return 0
	}

	switch op {
	case "q":
		in.stack = append(in.stack, in.g)
	case "Q":
		if k := len(in.stack) - 1; k >= 0 {
			in.g = in.stack[k]
			in.stack = in.stack[:k]
		}
	case "cm":
		if m, ok := matrixFrom(args); ok {
			in.g.ctm = m.mul(in.g.ctm)
		}

	// path construction
	case "m":
		in.cur = in.devicePoint(num(0), num(1))
		in.start = in.cur
	case "l":
		p := in.devicePoint(num(0), num(1))
		in.segs = append(in.segs, segment{in.cur, p})
		in.cur = p
	case "c":
		in.cur = in.devicePoint(num(4), num(5))
	case "v", "y":
		in.cur = in.devicePoint(num(2), num(3))
	case "h":
		in.segs = append(in.segs, segment{in.cur, in.start})
		in.cur = in.start
	case "re":
		in.rectangle(num(0), num(1), num(2), num(3))

	// path painting
	case "S", "s", "f", "F", "f*", "B", "B*", "b", "b*":
		if op == "s" || op == "b" || op == "b*" {
			in.segs = append(in.segs, segment{in.cur, in.start})
		}
		in.paint()
	case "n":
		in.segs, in.rects = nil, nil

	case "Do":
		if len(args) == 1 {
			in.form(args[0].Name())
		}

	// text
	case "BT":
		in.tm, in.tlm = identity, identity
	case "Tf":
		if len(args) == 2 {
			in.g.font = in.font(args[0].Name())
			in.g.fontSize = args[1].Float64()
		}
	case "Tc":
		in.g.charSpace = num(0)
	case "Tw":
		in.g.wordSpace = num(0)
	case "Tz":
		in.g.hscale = num(0) / 100
	case "TL":
		in.g.leading = num(0)
	case "Ts":
		in.g.rise = num(0)
	case "TD":
		in.g.leading = -num(1)
		in.moveText(num(0), num(1))
	case "Td":
		in.moveText(num(0), num(1))
	case "T*":
		in.moveText(0, -in.g.leading)
	case "Tm":
		if m, ok := matrixFrom(args); ok {
			in.tm, in.tlm = m, m
		}
	case "Tj":
		if len(args) == 1 {
			in.show(args[0].RawString())
		}
	case "'":
		if len(args) == 1 {
			in.moveText(0, -in.g.leading)
			in.show(args[0].RawString())
		}
	case "\"":
		if len(args) == 3 {
			in.g.wordSpace, in.g.charSpace = num(0), num(1)
			in.moveText(0, -in.g.leading)
			in.show(args[2].RawString())
		}
	case "TJ":
		if len(args) != 1 {
			return
		}
		arr := args[0]
		for i := 0; i < arr.Len(); i++ {
			x := arr.Index(i)
			if x.Kind() == pdf.String {
				in.show(x.RawString())
				continue
			}
			tx := -x.Float64() / 1000 * in.g.fontSize * in.g.hscale
			in.tm = translate(tx, 0).mul(in.tm)
		}
	}
}

func (in *interpreter) devicePoint(x, y float64) point {
	dx, dy := in.g.ctm.apply(x, y)
	return point{dx, dy}
}

// rectangle keeps axis-aligned rectangles whole so thin filled bars become a
// single rule; anything rotated is added as four segments.
func (in *interpreter) rectangle(x, y, w, h float64) {
	p0 := in.devicePoint(x, y)
	p1 := in.devicePoint(x+w, y)
	p2 := in.devicePoint(x+w, y+h)
	p3 := in.devicePoint(x, y+h)
	in.cur, in.start = p0, p0
	c := in.g.ctm
	if (math.Abs(c[1]) < 1e-9 && math.Abs(c[2]) < 1e-9) || (math.Abs(c[0]) < 1e-9 && math.Abs(c[3]) < 1e-9) {
		in.rects = append(in.rects, geometry.Rect{X0: p0.x, Y0: p0.y, X1: p2.x, Y1: p2.y}.Canon())
		return
	}
	in.segs = append(in.segs, segment{p0, p1}, segment{p1, p2}, segment{p2, p3}, segment{p3, p0})
}

// paint turns the pending path into edges.
func (in *interpreter) paint() {
	for _, r := range in.rects {
		in.edges = append(in.edges, edgesFromRect(r)...)
	}
	for _, s := range in.segs {
		dx, dy := math.Abs(s.a.x-s.b.x), math.Abs(s.a.y-s.b.y)
		switch {
		case dy < axisTol && dx > axisTol:
			y := (s.a.y + s.b.y) / 2
			in.edges = append(in.edges, Edge{X0: math.Min(s.a.x, s.b.x), Y0: y, X1: math.Max(s.a.x, s.b.x), Y1: y, Orientation: 'h'})
		case dx < axisTol && dy > axisTol:
			x := (s.a.x + s.b.x) / 2
			in.edges = append(in.edges, Edge{X0: x, Y0: math.Min(s.a.y, s.b.y), X1: x, Y1: math.Max(s.a.y, s.b.y), Orientation: 'v'})
		}
	}
	in.segs, in.rects = nil, nil
}

func (in *interpreter) font(name string) *font {
	if f, ok := in.fonts[name]; ok {
		return f
	}
	v := in.res.Key("Font").Key(name)
	var f *font
	if !v.IsNull() {
		f = loadFont(v)
	}
	in.fonts[name] = f
	return f
}

// form interprets a Form XObject with its own matrix and resources.
func (in *interpreter) form(name string) {
	xo := in.res.Key("XObject").Key(name)
	if xo.Key("Subtype").Name() != "Form" || in.depth >= maxFormDepth {
		return
	}
	saved, savedRes, savedFonts := in.g, in.res, in.fonts
	if m, ok := matrixFrom(arrayValues(xo.Key("Matrix"))); ok {
		in.g.ctm = m.mul(in.g.ctm)
	}
	if r := xo.Key("Resources"); !r.IsNull() {
		in.res, in.fonts = r, map[string]*font{}
	}
	in.depth++
	pdf.Interpret(xo, in.do)
	in.depth--
	in.g, in.res, in.fonts = saved, savedRes, savedFonts
}

func arrayValues(v pdf.Value) []pdf.Value {
	out := make([]pdf.Value, v.Len())
	for i := range out {
		out[i] = v.Index(i)
	}
	return out
}

func (in *interpreter) moveText(tx, ty float64) {
	in.tlm = translate(tx, ty).mul(in.tlm)
	in.tm = in.tlm
}

// show places one glyph per character code and advances the text matrix.
func (in *interpreter) show(s string) {
	f := in.g.font
	if f == nil || s == "" {
		return
	}
	fs, th := in.g.fontSize, in.g.hscale
	for _, code := range f.codes(s) {
		trm := matrix{fs * th, 0, 0, fs, 0, in.g.rise}.mul(in.tm).mul(in.g.ctm)
		w0 := f.width(code)
		size := math.Hypot(trm[2], trm[3])
		x, y := trm[4], trm[5]
		adv := w0 / 1000 * math.Hypot(trm[0], trm[1])
		if t := f.decode(code); t != "" {
			in.glyphs = append(in.glyphs, Glyph{
				Text: t,
				Font: f.name,
				Size: size,
				BBox: geometry.Rect{X0: x, Y0: y - size*descentRatio, X1: x + adv, Y1: y + size*ascentRatio},
			})
		}
		tx := w0/1000*fs + in.g.charSpace
		if !f.twoByte && code == " " {
			tx += in.g.wordSpace
		}
		in.tm = translate(tx*th, 0).mul(in.tm)
	}
}
