// Package signage lays schedule records out as text on a background image
// and flattens the result into an opaque PNG.
package signage

import (
	"image"
	"image/png"
	"io"

	"golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/font/opentype"
	"golang.org/x/image/math/fixed"

	"github.com/nippo-signage/go/internal/logger"
	"github.com/nippo-signage/go/internal/models"
)

var Logger = logger.GetLogger("signage")

// Composer is safe for concurrent use: each Compose call owns its overlay,
// output buffer and font faces.
type Composer struct {
	Layout Layout
	Assets AssetBundle
	// FitSize, when non-zero, scales backgrounds of any other size to it.
	FitSize image.Point
}

func NewComposer(layout Layout, assets AssetBundle) *Composer {
	return &Composer{Layout: layout, Assets: assets}
}

type Request struct {
	// Background overrides the bundle background for this request.
	Background image.Image
	// DateLabel is drawn only when non-empty.
	DateLabel string
	// TitleText overrides Layout.TitleText when non-empty.
	TitleText string
	Records   []models.Record
}

// Placement is a piece of text and its top-left anchor.
type Placement struct {
	Text string `json:"text"`
	X    int    `json:"x"`
	Y    int    `json:"y"`
}

type Result struct {
	// Image is fully opaque and the size of the background.
	Image   *image.RGBA
	Overlay *image.RGBA
	Title   Placement
	Date    *Placement
	Lines   []Placement
	// Hidden counts lines past MaxRows. They are drawn but fall off the canvas.
	Hidden int
}

// Size is the pixel size of the canvas the request renders onto.
func (c *Composer) Size(req Request) image.Point {
	if c.FitSize.X > 0 && c.FitSize.Y > 0 {
		return c.FitSize
	}
	return c.background(req).Bounds().Size()
}

// MaxRows is the number of record lines that fit on the canvas.
func (c *Composer) MaxRows() int { return c.Layout.MaxRows(c.Size(Request{}).Y) }

func (c *Composer) background(req Request) image.Image {
	switch {
	case req.Background != nil:
		return req.Background
	case c.Assets.Background != nil:
		return c.Assets.Background
	}
	return blankCanvas(DefaultCanvas)
}

// Plan computes where every piece of text goes without drawing anything.
func (c *Composer) Plan(req Request) (title Placement, date *Placement, lines []Placement) {
	l := c.Layout
	titleText := req.TitleText
	if titleText == "" {
		titleText = l.TitleText
	}
	title = Placement{Text: titleText, X: l.TitleAnchor().X, Y: l.TitleAnchor().Y}
	if req.DateLabel != "" {
		at := l.DateAnchor()
		date = &Placement{Text: req.DateLabel, X: at.X, Y: at.Y}
	}
	lines = make([]Placement, len(req.Records))
	for i, r := range req.Records {
		at := l.LineAnchor(i)
		lines[i] = Placement{Text: l.FormatLine(r), X: at.X, Y: at.Y}
	}
	return title, date, lines
}

// Compose draws the title, the optional date and one line per record on a
// transparent overlay, composites it over a copy of the background and
// flattens the result. The background is never modified.
func (c *Composer) Compose(req Request) Result {
	bg := c.background(req)
	size := c.Size(req)
	bounds := image.Rect(0, 0, size.X, size.Y)

	out := image.NewRGBA(bounds)
	if bg.Bounds().Size() == size {
		draw.Draw(out, bounds, bg, bg.Bounds().Min, draw.Src)
	} else {
		Logger.Debug("scaling background", "from", bg.Bounds().Size(), "to", size)
		draw.CatmullRom.Scale(out, bounds, bg, bg.Bounds(), draw.Src, nil)
	}

	res := Result{Overlay: image.NewRGBA(bounds)}
	res.Title, res.Date, res.Lines = c.Plan(req)

	titleFace, closeTitle := newFace(c.Assets.Title, c.Layout.TitleSize)
	defer closeTitle()
	bodyFace, closeBody := newFace(c.Assets.Body, c.Layout.BodySize)
	defer closeBody()

	ink := image.NewUniform(c.Layout.TextColor)
	drawText(res.Overlay, titleFace, ink, res.Title)
	if res.Date != nil {
		dateFace, closeDate := newFace(c.Assets.Date, c.Layout.DateSize)
		defer closeDate()
		drawText(res.Overlay, dateFace, ink, *res.Date)
	}
	for _, p := range res.Lines {
		drawText(res.Overlay, bodyFace, ink, p)
	}
	if maxRows := c.Layout.MaxRows(size.Y); len(res.Lines) > maxRows {
		res.Hidden = len(res.Lines) - maxRows
		Logger.Warn("records exceed the visible area", "records", len(res.Lines), "max_rows", maxRows)
	}

	draw.Draw(out, bounds, res.Overlay, image.Point{}, draw.Over)
	flatten(out)
	res.Image = out
	Logger.Debug("composed signage", "size", size, "lines", len(res.Lines), "date", res.Date != nil)
	return res
}

func newFace(f *opentype.Font, size float64) (font.Face, func()) {
	if f == nil || size <= 0 {
		return basicfont.Face7x13, func() {}
	}
	face, err := opentype.NewFace(f, &opentype.FaceOptions{Size: size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		Logger.Warn("font face unavailable, using bitmap fallback", "size", size, "error", err)
		return basicfont.Face7x13, func() {}
	}
	return face, func() { face.Close() }
}

// drawText places p with its ascender line at p.Y.
func drawText(dst draw.Image, face font.Face, src image.Image, p Placement) {
	if p.Text == "" {
		return
	}
	d := font.Drawer{
		Dst:  dst,
		Src:  src,
		Face: face,
		Dot:  fixed.Point26_6{X: fixed.I(p.X), Y: fixed.I(p.Y) + face.Metrics().Ascent},
	}
	d.DrawString(p.Text)
}

// flatten drops alpha: every pixel becomes opaque with its straight color.
func flatten(img *image.RGBA) {
	for i := 0; i+3 < len(img.Pix); i += 4 {
		a := img.Pix[i+3]
		switch a {
		case 0xff:
			continue
		case 0:
			img.Pix[i], img.Pix[i+1], img.Pix[i+2] = 0, 0, 0
		default:
			for k := 0; k < 3; k++ {
				img.Pix[i+k] = uint8(uint32(img.Pix[i+k]) * 0xff / uint32(a))
			}
		}
		img.Pix[i+3] = 0xff
	}
}

// Opaque reports whether every pixel of img has full alpha.
func Opaque(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return o.Opaque()
	}
	b := img.Bounds()
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			if _, _, _, a := img.At(x, y).RGBA(); a != 0xffff {
				return false
			}
		}
	}
	return true
}

// EncodePNG writes img as PNG. Opaque RGBA images are stored as 8-bit RGB.
func EncodePNG(w io.Writer, img image.Image) error {
	enc := png.Encoder{CompressionLevel: png.BestSpeed}
	return enc.Encode(w, img)
}
