package config

// Config holds signage configuration.
// Stored at: ./signage.yaml or $HOME/.signage/signage.yaml
type Config struct {
	Assets       AssetsCfg       `mapstructure:"assets" yaml:"assets"`
	Canvas       CanvasCfg       `mapstructure:"canvas" yaml:"canvas"`
	Layout       LayoutCfg       `mapstructure:"layout" yaml:"layout"`
	Filter       FilterCfg       `mapstructure:"filter" yaml:"filter"`
	Placeholders PlaceholdersCfg `mapstructure:"placeholders" yaml:"placeholders"`
	Extract      ExtractCfg      `mapstructure:"extract" yaml:"extract"`
	Server       ServerCfg       `mapstructure:"server" yaml:"server"`
}

// AssetsCfg points at the background and font files. Paths support ${ENV_VAR}.
type AssetsCfg struct {
	Background string `mapstructure:"background" yaml:"background"`
	Font       string `mapstructure:"font" yaml:"font"`             // Body font, also used for title/date when unset
	TitleFont  string `mapstructure:"title_font" yaml:"title_font"` // Optional
	DateFont   string `mapstructure:"date_font" yaml:"date_font"`   // Optional
}

// CanvasCfg describes the fallback canvas and background scaling.
type CanvasCfg struct {
	Width         int    `mapstructure:"width" yaml:"width"`
	Height        int    `mapstructure:"height" yaml:"height"`
	Fill          string `mapstructure:"fill" yaml:"fill"`                     // #rrggbb[aa]
	FitBackground bool   `mapstructure:"fit_background" yaml:"fit_background"` // Scale background to width x height
}

type LayoutCfg struct {
	StartX      int     `mapstructure:"start_x" yaml:"start_x"`
	StartY      int     `mapstructure:"start_y" yaml:"start_y"`
	LineHeight  int     `mapstructure:"line_height" yaml:"line_height"`
	TitleOffset int     `mapstructure:"title_offset" yaml:"title_offset"`
	DateX       int     `mapstructure:"date_x" yaml:"date_x"`
	DateY       int     `mapstructure:"date_y" yaml:"date_y"`
	TitleSize   float64 `mapstructure:"title_size" yaml:"title_size"`
	BodySize    float64 `mapstructure:"body_size" yaml:"body_size"`
	DateSize    float64 `mapstructure:"date_size" yaml:"date_size"`
	TextColor   string  `mapstructure:"text_color" yaml:"text_color"`
	TitleText   string  `mapstructure:"title_text" yaml:"title_text"`
	Bullet      string  `mapstructure:"bullet" yaml:"bullet"`
}

// FilterCfg selects the table rows that are work items.
type FilterCfg struct {
	Markers        []string `mapstructure:"markers" yaml:"markers"`                   // Room cell substrings
	MinTitleLength int      `mapstructure:"min_title_length" yaml:"min_title_length"` // Titles must be longer than this
}

type PlaceholderSet struct {
	Room  string `mapstructure:"room" yaml:"room"`
	Title string `mapstructure:"title" yaml:"title"`
	Staff string `mapstructure:"staff" yaml:"staff"`
}

// PlaceholdersCfg holds the defaults for missing cells: one set for the
// selection listing and one for the rendered image.
type PlaceholdersCfg struct {
	Listing PlaceholderSet `mapstructure:"listing" yaml:"listing"`
	Render  PlaceholderSet `mapstructure:"render" yaml:"render"`
}

type ExtractCfg struct {
	Normalize    bool `mapstructure:"normalize" yaml:"normalize"`         // NFKC-fold cell text
	TextFallback bool `mapstructure:"text_fallback" yaml:"text_fallback"` // Recover borderless tables from text alignment
}

type ServerCfg struct {
	Host        string `mapstructure:"host" yaml:"host"`
	Port        int    `mapstructure:"port" yaml:"port"`
	MaxUploadMB int    `mapstructure:"max_upload_mb" yaml:"max_upload_mb"`
}

// DefaultConfig returns configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Assets: AssetsCfg{
			Background: "base_design.png",
			Font:       "NotoSansJP-Regular.ttf",
		},
		Canvas: CanvasCfg{
			Width:  1920,
			Height: 1080,
			Fill:   "#282c34",
		},
		Layout: LayoutCfg{
			StartX:      220,
			StartY:      380,
			LineHeight:  90,
			TitleOffset: 140,
			DateX:       1400,
			DateY:       240,
			TitleSize:   65,
			BodySize:    40,
			DateSize:    40,
			TextColor:   "#ffffffff",
			TitleText:   "TODAY'S SCHEDULE",
			Bullet:      "● ",
		},
		Filter: FilterCfg{
			Markers:        []string{"ED-", "MA-"},
			MinTitleLength: 1,
		},
		Placeholders: PlaceholdersCfg{
			Listing: PlaceholderSet{Room: "不明", Title: "なし", Staff: "未定"},
			Render:  PlaceholderSet{Room: "?", Title: "---", Staff: "---"},
		},
		Extract: ExtractCfg{
			Normalize: true,
		},
		Server: ServerCfg{
			Host:        "127.0.0.1",
			Port:        8080,
			MaxUploadMB: 20,
		},
	}
}
