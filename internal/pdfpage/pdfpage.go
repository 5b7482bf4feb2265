// Package pdfpage reads the first page of a PDF into positioned glyphs and
// ruling edges, the raw material for table detection.
package pdfpage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/ledongthuc/pdf"
	"github.com/pdfcpu/pdfcpu/pkg/api"

	"github.com/nippo-signage/go/internal/geometry"
	"github.com/nippo-signage/go/internal/logger"
)

var Logger = logger.GetLogger("pdfpage")

// ErrUnreadable means the bytes could not be opened as a PDF at all.
var ErrUnreadable = errors.New("document unreadable")

const (
	// Rectangles thinner than this are treated as a single ruling line.
	thinRuleTol = 2.0
	// Glyph boxes are derived from the baseline: descent and ascent as a share of font size.
	descentRatio = 0.2
	ascentRatio  = 0.8
	maxTreeDepth = 32
)

var letterPage = geometry.Rect{X0: 0, Y0: 0, X1: 612, Y1: 792}

func init() {
	// pdfcpu would otherwise create a config directory under the user's home.
	api.DisableConfigDir()
}

type Glyph struct {
	Text string
	Font string
	Size float64
	BBox geometry.Rect
}

type Edge struct {
	X0, Y0, X1, Y1 float64
	Orientation    byte
}

func (e Edge) Horizontal() bool { return e.Orientation == 'h' }

// Page geometry is in top-left origin space: x grows right, y grows down,
// both measured in points from the MediaBox corner.
type Page struct {
	Number int
	Bounds geometry.Rect
	Glyphs []Glyph
	Edges  []Edge
}

type Document struct {
	reader *pdf.Reader
	pages  int
}

// Open parses the document trailer and page tree. Any failure, including a
// panic inside the PDF reader, is reported as ErrUnreadable.
func Open(data []byte) (doc *Document, err error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: empty input", ErrUnreadable)
	}
	defer func() {
		if r := recover(); r != nil {
			Logger.Warn("pdf reader panicked while opening", "panic", r)
			doc, err = nil, fmt.Errorf("%w: %v", ErrUnreadable, r)
		}
	}()
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	doc = &Document{reader: reader, pages: reader.NumPage()}
	Logger.Debug("opened document", "pages", doc.pages, "bytes", len(data))
	return doc, nil
}

func (d *Document) NumPages() int { return d.pages }

// FirstPage returns page 1. ok is false when the document has no pages or
// the page content cannot be interpreted.
func (d *Document) FirstPage() (Page, bool) { return d.Page(1) }

func (d *Document) Page(num int) (page Page, ok bool) {
	if num < 1 || num > d.pages {
		return Page{}, false
	}
	defer func() {
		if r := recover(); r != nil {
			Logger.Warn("pdf reader panicked while reading page content", "page", num, "panic", r)
			page, ok = Page{}, false
		}
	}()
	p := d.reader.Page(num)
	if p.V.IsNull() {
		return Page{}, false
	}
	box := mediaBox(p.V)
	flip := func(r geometry.Rect) geometry.Rect {
		return geometry.Rect{X0: r.X0 - box.X0, Y0: box.Y1 - r.Y1, X1: r.X1 - box.X0, Y1: box.Y1 - r.Y0}.Canon()
	}
	in := newInterpreter(p.Resources())
	in.run(p.V.Key("Contents"))

	page = Page{Number: num, Bounds: geometry.Rect{X1: box.Width(), Y1: box.Height()}}
	for _, g := range in.glyphs {
		g.BBox = flip(g.BBox)
		page.Glyphs = append(page.Glyphs, g)
	}
	for _, e := range in.edges {
		r := flip(geometry.Rect{X0: e.X0, Y0: e.Y0, X1: e.X1, Y1: e.Y1})
		page.Edges = append(page.Edges, Edge{X0: r.X0, Y0: r.Y0, X1: r.X1, Y1: r.Y1, Orientation: e.Orientation})
	}
	Logger.Debug("page loaded", "page", num, "glyphs", len(page.Glyphs), "edges", len(page.Edges))
	return page, true
}

// edgesFromRect turns a drawn rectangle into ruling edges: a hairline
// rectangle becomes one edge, anything larger contributes its four sides.
func edgesFromRect(r geometry.Rect) []Edge {
	r = r.Canon()
	w, h := r.Width(), r.Height()
	switch {
	case w <= thinRuleTol && h <= thinRuleTol:
		return nil
	case h <= thinRuleTol:
		y := (r.Y0 + r.Y1) / 2
		return []Edge{{X0: r.X0, Y0: y, X1: r.X1, Y1: y, Orientation: 'h'}}
	case w <= thinRuleTol:
		x := (r.X0 + r.X1) / 2
		return []Edge{{X0: x, Y0: r.Y0, X1: x, Y1: r.Y1, Orientation: 'v'}}
	}
	return []Edge{
		{X0: r.X0, Y0: r.Y0, X1: r.X1, Y1: r.Y0, Orientation: 'h'},
		{X0: r.X0, Y0: r.Y1, X1: r.X1, Y1: r.Y1, Orientation: 'h'},
		{X0: r.X0, Y0: r.Y0, X1: r.X0, Y1: r.Y1, Orientation: 'v'},
		{X0: r.X1, Y0: r.Y0, X1: r.X1, Y1: r.Y1, Orientation: 'v'},
	}
}

// mediaBox walks up the page tree because MediaBox is inheritable.
func mediaBox(v pdf.Value) geometry.Rect {
	node := v
	for depth := 0; depth < maxTreeDepth && !node.IsNull(); depth++ {
		if box := node.Key("MediaBox"); box.Kind() == pdf.Array && box.Len() == 4 {
			r := geometry.Rect{X0: box.Index(0).Float64(), Y0: box.Index(1).Float64(), X1: box.Index(2).Float64(), Y1: box.Index(3).Float64()}.Canon()
			if !r.IsEmpty() {
				return r
			}
		}
		node = node.Key("Parent")
	}
	return letterPage
}

// PageCount asks pdfcpu for the page count. pdfcpu validates the whole
// cross-reference structure, so it can reject files the glyph reader accepts;
// callers treat its errors as advisory.
func PageCount(data []byte) (int, error) {
	n, err := api.PageCount(bytes.NewReader(data), nil)
	if err != nil {
		return 0, fmt.Errorf("page count: %w", err)
	}
	return n, nil
}
