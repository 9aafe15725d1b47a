// Package config loads the YAML configuration of the compositor simulator.
package config

import (
	"fmt"
	"image/color"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the complete simulator configuration.
type Config struct {
	Backend  string        `yaml:"backend"`
	LogLevel string        `yaml:"log_level"`
	Output   OutputConfig  `yaml:"output"`
	Grid     GridConfig    `yaml:"grid"`
	Run      RunConfig     `yaml:"run"`
	Damage   DamageConfig  `yaml:"damage"`
	OSD      OSDConfig     `yaml:"osd"`
	Post     []PostConfig  `yaml:"post,omitempty"`
	Cursor   *CursorConfig `yaml:"cursor,omitempty"`
	Views    []ViewConfig  `yaml:"views"`
}

// OutputConfig describes the simulated display.
type OutputConfig struct {
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Scale     float64 `yaml:"scale"`
	Transform string  `yaml:"transform"`
}

// GridConfig is the workspace grid size.
type GridConfig struct {
	Columns int `yaml:"columns"`
	Rows    int `yaml:"rows"`
}

// RunConfig controls how long and how fast the simulator runs.
type RunConfig struct {
	// Frames is the number of frame intervals after which the simulator
	// stops. Zero runs until interrupted.
	Frames int `yaml:"frames"`

	// Tick is the length of a frame interval.
	Tick time.Duration `yaml:"tick"`

	// SwitchEvery moves to the next workspace after this many frame
	// intervals. Zero never switches.
	SwitchEvery int `yaml:"switch_every"`

	// AutoRedraw keeps the output repainting every frame.
	AutoRedraw bool `yaml:"auto_redraw"`
}

// DamageConfig tunes damage tracking.
type DamageConfig struct {
	Tracking bool `yaml:"tracking"`
	Debug    bool `yaml:"debug"`
}

// OSDConfig configures the statistics overlay.
type OSDConfig struct {
	Enabled  bool          `yaml:"enabled"`
	Interval time.Duration `yaml:"interval"`
	X        int           `yaml:"x"`
	Y        int           `yaml:"y"`
}

// PostConfig selects one post-processing effect.
type PostConfig struct {
	Effect string  `yaml:"effect"`
	Color  Color   `yaml:"color"`
	Amount float64 `yaml:"amount"`
}

// CursorConfig places a software cursor.
type CursorConfig struct {
	X     int   `yaml:"x"`
	Y     int   `yaml:"y"`
	Size  int   `yaml:"size"`
	Color Color `yaml:"color"`
}

// ViewConfig describes one solid-color view.
type ViewConfig struct {
	Name      string  `yaml:"name"`
	Workspace [2]int  `yaml:"workspace"`
	Layer     string  `yaml:"layer"`
	Shell     bool    `yaml:"shell"`
	X         int     `yaml:"x"`
	Y         int     `yaml:"y"`
	Width     int     `yaml:"width"`
	Height    int     `yaml:"height"`
	Color     Color   `yaml:"color"`
	Alpha     float64 `yaml:"alpha"`

	// Blink toggles the view's visibility every Blink frame intervals.
	Blink int `yaml:"blink"`
}

// Color is an RGBA color written as "#rrggbb" or "#rrggbbaa".
type Color struct {
	color.RGBA
	Set bool
}

// ParseColor parses "#rrggbb" or "#rrggbbaa".
func ParseColor(s string) (Color, error) {
	hex := strings.TrimPrefix(strings.TrimSpace(s), "#")
	if len(hex) != 6 && len(hex) != 8 {
		return Color{}, fmt.Errorf("invalid color %q: want #rrggbb or #rrggbbaa", s)
	}
	if len(hex) == 6 {
		hex += "ff"
	}
	v, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("invalid color %q: %w", s, err)
	}
	return Color{
		RGBA: color.RGBA{R: uint8(v >> 24), G: uint8(v >> 16), B: uint8(v >> 8), A: uint8(v)},
		Set:  true,
	}, nil
}

// UnmarshalYAML decodes a color string.
func (c *Color) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	parsed, err := ParseColor(s)
	if err != nil {
		return fmt.Errorf("line %d: %w", node.Line, err)
	}
	*c = parsed
	return nil
}

// MarshalYAML encodes the color as "#rrggbbaa".
func (c Color) MarshalYAML() (any, error) {
	return c.String(), nil
}

// String returns the color as "#rrggbbaa".
func (c Color) String() string {
	return fmt.Sprintf("#%02x%02x%02x%02x", c.R, c.G, c.B, c.A)
}

// Premultiplied returns the color with its channels scaled by alpha.
func (c Color) Premultiplied() color.RGBA {
	a := uint32(c.A)
	return color.RGBA{
		R: uint8(uint32(c.R) * a / 255),
		G: uint8(uint32(c.G) * a / 255),
		B: uint8(uint32(c.B) * a / 255),
		A: c.A,
	}
}
