package config

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/nippo-signage/go/internal/schedule"
	"github.com/nippo-signage/go/internal/signage"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("defaults invalid: %v", err)
	}

	layout, err := cfg.SignageLayout()
	if err != nil {
		t.Fatalf("layout: %v", err)
	}
	if !reflect.DeepEqual(layout, signage.DefaultLayout()) {
		t.Errorf("default layout %+v differs from signage defaults %+v", layout, signage.DefaultLayout())
	}
	if got := cfg.RowFilter(); !reflect.DeepEqual(got, schedule.DefaultFilter) {
		t.Errorf("default filter %+v", got)
	}
	if cfg.ListingPlaceholders() != schedule.ListingPlaceholders || cfg.RenderPlaceholders() != schedule.RenderPlaceholders {
		t.Error("default placeholders differ from schedule defaults")
	}
	canvas, err := cfg.FallbackCanvas()
	if err != nil {
		t.Fatalf("canvas: %v", err)
	}
	if canvas != signage.DefaultCanvas {
		t.Errorf("default canvas %+v", canvas)
	}
}

func TestResolveEnvVars(t *testing.T) {
	t.Run("resolves environment variable", func(t *testing.T) {
		t.Setenv("TEST_ASSET_DIR", "/srv/assets")

		result := ResolveEnvVars("${TEST_ASSET_DIR}/bg.png")
		if result != "/srv/assets/bg.png" {
			t.Errorf("expected /srv/assets/bg.png, got %s", result)
		}
	})

	t.Run("returns empty for missing env var", func(t *testing.T) {
		result := ResolveEnvVars("${DEFINITELY_NOT_SET_12345}")
		if result != "" {
			t.Errorf("expected empty string, got %s", result)
		}
	})

	t.Run("leaves literal values unchanged", func(t *testing.T) {
		result := ResolveEnvVars("fonts/body.ttf")
		if result != "fonts/body.ttf" {
			t.Errorf("expected fonts/body.ttf, got %s", result)
		}
	})
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "signage.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestNewManager(t *testing.T) {
	t.Run("loads from config file", func(t *testing.T) {
		path := writeConfig(t, `
layout:
  start_y: 400
filter:
  markers: ["ST-"]
`)
		mgr, err := NewManager(path)
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.ConfigFile(); got != path {
			t.Errorf("ConfigFile() = %q, want %q", got, path)
		}

		cfg := mgr.Get()
		if cfg.Layout.StartY != 400 {
			t.Errorf("expected start_y 400, got %d", cfg.Layout.StartY)
		}
		if cfg.Layout.LineHeight != 90 {
			t.Errorf("expected default line_height 90, got %d", cfg.Layout.LineHeight)
		}
		if !reflect.DeepEqual(cfg.Filter.Markers, []string{"ST-"}) {
			t.Errorf("unexpected markers %v", cfg.Filter.Markers)
		}
		if cfg.Placeholders.Listing.Room != "不明" {
			t.Errorf("expected default listing placeholder, got %q", cfg.Placeholders.Listing.Room)
		}
	})

	t.Run("env overrides nested keys", func(t *testing.T) {
		t.Setenv("SIGNAGE_LAYOUT_LINE_HEIGHT", "120")
		mgr, err := NewManager(writeConfig(t, "layout:\n  start_y: 400\n"))
		if err != nil {
			t.Fatalf("failed to create manager: %v", err)
		}
		if got := mgr.Get().Layout.LineHeight; got != 120 {
			t.Errorf("expected line_height 120 from env, got %d", got)
		}
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		_, err := NewManager(writeConfig(t, "layout:\n  text_color: \"not-a-color\"\n"))
		if err == nil || !strings.Contains(err.Error(), "text_color") {
			t.Errorf("expected text_color error, got %v", err)
		}
	})

	t.Run("missing explicit file is an error", func(t *testing.T) {
		if _, err := NewManager(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
			t.Error("expected error for missing config file")
		}
	})
}

func TestManager_OnChange_Multiple(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "server:\n  port: 9000\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})
	mgr.OnChange(func(cfg *Config) {})

	mgr.mu.RLock()
	if len(mgr.callbacks) != 3 {
		t.Errorf("expected 3 callbacks, got %d", len(mgr.callbacks))
	}
	mgr.mu.RUnlock()
}

func TestManager_Get_ThreadSafe(t *testing.T) {
	mgr, err := NewManager(writeConfig(t, "server:\n  port: 9000\n"))
	if err != nil {
		t.Fatalf("failed to create manager: %v", err)
	}

	done := make(chan struct{})
	for i := 0; i < 10; i++ {
		go func() {
			for j := 0; j < 100; j++ {
				_ = mgr.Get().Server.Port
			}
			done <- struct{}{}
		}()
	}
	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestWriteDefault(t *testing.T) {
	path := filepath.Join(t.TempDir(), "signage.yaml")
	if err := WriteDefault(path); err != nil {
		t.Fatalf("write default: %v", err)
	}

	mgr, err := NewManager(path)
	if err != nil {
		t.Fatalf("written defaults do not load: %v", err)
	}
	if got := mgr.Get(); !reflect.DeepEqual(got, DefaultConfig()) {
		t.Errorf("round trip differs:\n got %+v\nwant %+v", got, DefaultConfig())
	}
}

func TestExtractOptions(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Extract.Normalize = false
	cfg.Extract.TextFallback = true
	opts := cfg.ExtractOptions()
	if opts.Cleanup.Fold || !opts.TextFallback {
		t.Errorf("unexpected options %+v", opts)
	}
}

func TestNewComposerFallsBack(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Assets = AssetsCfg{Background: filepath.Join(t.TempDir(), "missing.png")}
	cfg.Canvas.Width, cfg.Canvas.Height = 640, 360
	cfg.Canvas.FitBackground = true

	c, err := cfg.NewComposer()
	if err != nil {
		t.Fatalf("new composer: %v", err)
	}
	if !c.Assets.Degraded() {
		t.Error("expected degraded assets")
	}
	if got := c.Size(signage.Request{}); got.X != 640 || got.Y != 360 {
		t.Errorf("canvas size %v", got)
	}
}
