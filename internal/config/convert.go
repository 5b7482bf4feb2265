package config

import (
	"errors"
	"fmt"
	"image"

	"github.com/nippo-signage/go/internal/extractor"
	"github.com/nippo-signage/go/internal/schedule"
	"github.com/nippo-signage/go/internal/signage"
)

// Validate checks the values that would otherwise surface as odd output.
func (c *Config) Validate() error {
	var errs []error
	layout, err := c.SignageLayout()
	if err != nil {
		errs = append(errs, err)
	} else if err := layout.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("layout: %w", err))
	}
	if _, err := c.FallbackCanvas(); err != nil {
		errs = append(errs, err)
	}
	if c.Filter.MinTitleLength < 0 {
		errs = append(errs, fmt.Errorf("filter.min_title_length must not be negative, got %d", c.Filter.MinTitleLength))
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("server.port out of range: %d", c.Server.Port))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid config: %w", errors.Join(errs...))
	}
	if len(c.Filter.Markers) == 0 {
		Logger.Warn("filter.markers is empty, no row will pass the filter")
	}
	return nil
}

func (c *Config) SignageLayout() (signage.Layout, error) {
	ink, err := signage.ParseColor(c.Layout.TextColor)
	if err != nil {
		return signage.Layout{}, fmt.Errorf("layout.text_color: %w", err)
	}
	l := c.Layout
	return signage.Layout{
		StartX:      l.StartX,
		StartY:      l.StartY,
		LineHeight:  l.LineHeight,
		TitleOffset: l.TitleOffset,
		DateX:       l.DateX,
		DateY:       l.DateY,
		TitleSize:   l.TitleSize,
		BodySize:    l.BodySize,
		DateSize:    l.DateSize,
		TextColor:   ink,
		TitleText:   l.TitleText,
		Bullet:      l.Bullet,
	}, nil
}

func (c *Config) FallbackCanvas() (signage.Canvas, error) {
	fill, err := signage.ParseColor(c.Canvas.Fill)
	if err != nil {
		return signage.Canvas{}, fmt.Errorf("canvas.fill: %w", err)
	}
	if c.Canvas.Width <= 0 || c.Canvas.Height <= 0 {
		return signage.Canvas{}, fmt.Errorf("canvas size must be positive, got %dx%d", c.Canvas.Width, c.Canvas.Height)
	}
	return signage.Canvas{Width: c.Canvas.Width, Height: c.Canvas.Height, Fill: fill}, nil
}

func (c *Config) AssetPaths() signage.AssetPaths {
	return signage.AssetPaths{
		Background: ResolveEnvVars(c.Assets.Background),
		Font:       ResolveEnvVars(c.Assets.Font),
		TitleFont:  ResolveEnvVars(c.Assets.TitleFont),
		DateFont:   ResolveEnvVars(c.Assets.DateFont),
	}
}

func (c *Config) RowFilter() schedule.FilterConfig {
	return schedule.FilterConfig{
		Markers:        append([]string(nil), c.Filter.Markers...),
		MinTitleLength: c.Filter.MinTitleLength,
	}
}

func (p PlaceholderSet) toSchedule() schedule.Placeholders {
	return schedule.Placeholders{Room: p.Room, Title: p.Title, Staff: p.Staff}
}

// ListingPlaceholders fill blank cells in the operator's selection list.
func (c *Config) ListingPlaceholders() schedule.Placeholders {
	return c.Placeholders.Listing.toSchedule()
}

// RenderPlaceholders fill blank cells on the rendered signage.
func (c *Config) RenderPlaceholders() schedule.Placeholders {
	return c.Placeholders.Render.toSchedule()
}

func (c *Config) ExtractOptions() extractor.Options {
	opts := extractor.DefaultOptions
	opts.Cleanup.Fold = c.Extract.Normalize
	opts.TextFallback = c.Extract.TextFallback
	return opts
}

// NewComposer loads the configured assets, falling back where needed, and
// returns a composer for the configured layout.
func (c *Config) NewComposer() (*signage.Composer, error) {
	layout, err := c.SignageLayout()
	if err != nil {
		return nil, err
	}
	canvas, err := c.FallbackCanvas()
	if err != nil {
		return nil, err
	}
	composer := signage.NewComposer(layout, signage.LoadAssetsOrDefault(c.AssetPaths(), canvas))
	if c.Canvas.FitBackground {
		composer.FitSize = image.Pt(canvas.Width, canvas.Height)
	}
	return composer, nil
}
