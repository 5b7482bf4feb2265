package signage

import (
	"errors"
	"fmt"
	"image"
	"image/color"
	_ "image/jpeg"
	_ "image/png"
	"os"

	_ "golang.org/x/image/bmp"
	"golang.org/x/image/draw"
	"golang.org/x/image/font/opentype"
	_ "golang.org/x/image/webp"
)

type AssetPaths struct {
	Background string
	// Font is the body font. TitleFont and DateFont fall back to it when empty.
	Font      string
	TitleFont string
	DateFont  string
}

// Canvas describes the blank background used when no background image loads.
type Canvas struct {
	Width, Height int
	Fill          color.NRGBA
}

var DefaultCanvas = Canvas{Width: 1920, Height: 1080, Fill: color.NRGBA{R: 40, G: 44, B: 52, A: 255}}

var ErrAssetNotConfigured = errors.New("no path configured")

// AssetError records one asset that could not be loaded and was replaced by
// a built-in fallback.
type AssetError struct {
	Asset string
	Path  string
	Err   error
}

func (e AssetError) Error() string {
	return fmt.Sprintf("asset %s (%s): %v", e.Asset, e.Path, e.Err)
}

func (e AssetError) Unwrap() error { return e.Err }

// AssetBundle is loaded once and shared read-only between renders. A nil font
// means the built-in bitmap face is used for that role.
type AssetBundle struct {
	Background image.Image
	Body       *opentype.Font
	Title      *opentype.Font
	Date       *opentype.Font
	Missing    []AssetError
}

// Degraded reports whether any asset was replaced by a fallback.
func (b AssetBundle) Degraded() bool { return len(b.Missing) > 0 }

// LoadAssetsOrDefault never fails. Every asset that cannot be read or decoded
// is replaced by its fallback and recorded in Missing.
func LoadAssetsOrDefault(paths AssetPaths, canvas Canvas) AssetBundle {
	var b AssetBundle
	miss := func(asset, path string, err error) {
		e := AssetError{Asset: asset, Path: path, Err: err}
		Logger.Warn("asset unavailable, using fallback", "asset", asset, "path", path, "error", err)
		b.Missing = append(b.Missing, e)
	}

	bg, err := loadImage(paths.Background)
	if err != nil {
		miss("background", paths.Background, err)
		bg = blankCanvas(canvas)
	}
	b.Background = bg

	fonts := map[string]*opentype.Font{}
	load := func(asset, path string) *opentype.Font {
		if path == "" {
			return nil
		}
		if f, ok := fonts[path]; ok {
			return f
		}
		f, err := loadFont(path)
		if err != nil {
			miss(asset, path, err)
		}
		fonts[path] = f
		return f
	}
	b.Body = load("font", paths.Font)
	if paths.Font == "" {
		miss("font", "", ErrAssetNotConfigured)
	}
	b.Title, b.Date = b.Body, b.Body
	if paths.TitleFont != "" {
		if f := load("title_font", paths.TitleFont); f != nil {
			b.Title = f
		}
	}
	if paths.DateFont != "" {
		if f := load("date_font", paths.DateFont); f != nil {
			b.Date = f
		}
	}
	Logger.Debug("assets loaded", "background", b.Background.Bounds().Size(), "missing", len(b.Missing))
	return b
}

func loadImage(path string) (image.Image, error) {
	if path == "" {
		return nil, ErrAssetNotConfigured
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	img, format, err := image.Decode(f)
	if err != nil {
		return nil, fmt.Errorf("decode: %w", err)
	}
	Logger.Debug("background decoded", "path", path, "format", format, "size", img.Bounds().Size())
	return img, nil
}

func loadFont(path string) (*opentype.Font, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font: %w", err)
	}
	return f, nil
}

func blankCanvas(c Canvas) *image.RGBA {
	if c.Width <= 0 || c.Height <= 0 {
		c.Width, c.Height = DefaultCanvas.Width, DefaultCanvas.Height
	}
	img := image.NewRGBA(image.Rect(0, 0, c.Width, c.Height))
	draw.Draw(img, img.Bounds(), image.NewUniform(c.Fill), image.Point{}, draw.Src)
	return img
}
