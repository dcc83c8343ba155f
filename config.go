package geoscene

import (
	"errors"
	"fmt"
	"image/color"
	"os"
	"strconv"
	"strings"

	"github.com/gekko3d/geoscene/render/frame"
	"github.com/gekko3d/geoscene/render/geomcache"
	"github.com/pelletier/go-toml/v2"
	"golang.org/x/image/colornames"
)

// Config holds the scene settings. Zero sections in a TOML file keep their
// defaults.
type Config struct {
	VerticalExaggeration float64  `toml:"vertical_exaggeration"`
	ClearColor           string   `toml:"clear_color"`
	DrawMode             DrawMode `toml:"draw_mode"`
	// Statistics lists the per-frame statistic keys to collect.
	Statistics []string `toml:"statistics"`
	// Seed feeds the expiry jitter source.
	Seed  uint64 `toml:"seed"`
	Debug bool   `toml:"debug"`

	Anaglyph    AnaglyphConfig    `toml:"anaglyph"`
	Cache       CacheConfig       `toml:"cache"`
	Expiry      ExpiryConfig      `toml:"expiry"`
	Diagnostics DiagnosticsConfig `toml:"diagnostics"`
	Window      WindowConfig      `toml:"window"`
}

type AnaglyphConfig struct {
	Stereo bool `toml:"stereo"`
	// FocusAngle is the heading offset of the right eye in degrees.
	FocusAngle float64 `toml:"focus_angle"`
	// MinPitch is the pitch in degrees above which stereo is drawn.
	MinPitch float64 `toml:"min_pitch"`
}

type CacheConfig struct {
	Capacity int64 `toml:"capacity"`
	LowWater int64 `toml:"low_water"`
}

// ExpiryConfig bounds the lifetime of terrain-conforming geometry.
type ExpiryConfig struct {
	MinMs int64 `toml:"min_ms"`
	MaxMs int64 `toml:"max_ms"`
}

type DiagnosticsConfig struct {
	WireframeInterior  bool `toml:"wireframe_interior"`
	WireframeExterior  bool `toml:"wireframe_exterior"`
	TessellationBounds bool `toml:"tessellation_bounds"`
}

type WindowConfig struct {
	Width  int    `toml:"width"`
	Height int    `toml:"height"`
	Title  string `toml:"title"`
}

func DefaultConfig() Config {
	return Config{
		VerticalExaggeration: 1,
		ClearColor:           "black",
		DrawMode:             DrawMono,
		Seed:                 1,
		Anaglyph: AnaglyphConfig{
			Stereo:     true,
			FocusAngle: DefaultFocusAngle,
			MinPitch:   DefaultMinPitch,
		},
		Cache: CacheConfig{
			Capacity: geomcache.DefaultCapacity,
			LowWater: geomcache.DefaultLowWater,
		},
		Expiry: ExpiryConfig{
			MinMs: geomcache.DefaultExpiryMinMs,
			MaxMs: geomcache.DefaultExpiryMaxMs,
		},
		Window: WindowConfig{Width: 1280, Height: 720, Title: "geoscene"},
	}
}

// LoadConfig decodes the TOML file at path over DefaultConfig. Unknown keys
// are rejected.
func LoadConfig(path string) (Config, error) {
	cfg := DefaultConfig()
	f, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()

	dec := toml.NewDecoder(f).DisallowUnknownFields()
	if err := dec.Decode(&cfg); err != nil {
		var strict *toml.StrictMissingError
		if errors.As(err, &strict) {
			return cfg, fmt.Errorf("%w: %s", ErrInvalidConfig, strict.String())
		}
		return cfg, fmt.Errorf("decode config %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	var errs []error
	if c.VerticalExaggeration < 0 {
		errs = append(errs, fmt.Errorf("vertical_exaggeration %g is negative", c.VerticalExaggeration))
	}
	if _, err := c.ClearRGBA(); err != nil {
		errs = append(errs, err)
	}
	if _, ok := drawModes[c.DrawMode]; !ok {
		errs = append(errs, fmt.Errorf("%w %q", ErrUnknownDrawMode, c.DrawMode))
	}
	if c.Cache.LowWater > c.Cache.Capacity {
		errs = append(errs, fmt.Errorf("cache low_water %d exceeds capacity %d", c.Cache.LowWater, c.Cache.Capacity))
	}
	if c.Expiry.MinMs < 0 || c.Expiry.MaxMs < c.Expiry.MinMs {
		errs = append(errs, fmt.Errorf("expiry range [%d, %d] is invalid", c.Expiry.MinMs, c.Expiry.MaxMs))
	}
	if len(errs) > 0 {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
	}
	return nil
}

// ClearRGBA resolves ClearColor, either an SVG colour name or #rrggbb.
func (c Config) ClearRGBA() (color.RGBA, error) {
	return ParseColor(c.ClearColor)
}

// StatKeys converts Statistics to frame keys.
func (c Config) StatKeys() []frame.StatKey {
	keys := make([]frame.StatKey, 0, len(c.Statistics))
	for _, s := range c.Statistics {
		keys = append(keys, frame.StatKey(s))
	}
	return keys
}

func ParseColor(s string) (color.RGBA, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if c, ok := colornames.Map[s]; ok {
		return c, nil
	}
	hex, ok := strings.CutPrefix(s, "#")
	if !ok || len(hex) != 6 {
		return color.RGBA{}, fmt.Errorf("%w %q", ErrUnknownColor, s)
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("%w %q: %w", ErrUnknownColor, s, err)
	}
	return color.RGBA{R: uint8(v >> 16), G: uint8(v >> 8), B: uint8(v), A: 0xff}, nil
}
