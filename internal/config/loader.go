package config

import (
	"bytes"
	"errors"
	"fmt"
	"image/color"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/framebuffer"
)

var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// Default returns the built-in demo configuration: two workspaces with a
// few windows, a background, a panel and the statistics overlay.
func Default() *Config {
	return &Config{
		Backend:  "headless",
		LogLevel: "info",
		Output:   OutputConfig{Width: 320, Height: 180, Scale: 1, Transform: "normal"},
		Grid:     GridConfig{Columns: 2, Rows: 1},
		Run:      RunConfig{Frames: 120, Tick: 16 * time.Millisecond, SwitchEvery: 40},
		Damage:   DamageConfig{Tracking: true},
		OSD:      OSDConfig{Enabled: true, Interval: 250 * time.Millisecond, X: 4, Y: 20},
		Views: []ViewConfig{
			{Name: "background", Layer: "background", Shell: true, Width: 320, Height: 180, Color: rgb(0x20, 0x24, 0x30)},
			{Name: "panel", Layer: "top", Shell: true, Width: 320, Height: 16, Color: rgb(0x10, 0x10, 0x10)},
			{Name: "editor", Workspace: [2]int{0, 0}, X: 20, Y: 40, Width: 160, Height: 110, Color: rgb(0x3a, 0x6e, 0xa5)},
			{Name: "terminal", Workspace: [2]int{0, 0}, X: 140, Y: 70, Width: 150, Height: 90, Color: rgb(0x2e, 0x2e, 0x2e), Alpha: 0.85, Blink: 15},
			{Name: "browser", Workspace: [2]int{1, 0}, X: 30, Y: 30, Width: 260, Height: 130, Color: rgb(0xd9, 0x8c, 0x3f)},
		},
	}
}

func rgb(r, g, b uint8) Color {
	return Color{RGBA: color.RGBA{R: r, G: g, B: b, A: 255}, Set: true}
}

// Load reads the configuration file at path. ${VAR} references are
// replaced by environment variables before parsing. Settings missing from
// the file keep their Default values.
func Load(path string) (*Config, error) {
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve config path %q: %w", path, err)
	}
	data, err := os.ReadFile(absPath)
	if err != nil {
		return nil, fmt.Errorf("config file not found: %s\n"+
			"Hint: Check the path or run with -config", absPath)
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", absPath, err)
	}
	return cfg, nil
}

// Parse decodes and validates a YAML configuration. Unknown keys are
// rejected.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader([]byte(interpolateEnv(string(data)))))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Marshal encodes cfg as YAML.
func Marshal(cfg *Config) ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return nil, fmt.Errorf("failed to encode config: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// interpolateEnv replaces ${VAR} with environment variable values.
// Undefined variables are left as-is.
func interpolateEnv(input string) string {
	return envVarPattern.ReplaceAllStringFunc(input, func(match string) string {
		varName := envVarPattern.FindStringSubmatch(match)[1]
		if value, exists := os.LookupEnv(varName); exists {
			return value
		}
		return match
	})
}

// validate performs basic validation on the configuration.
func validate(cfg *Config) error {
	var errs []error

	switch cfg.Backend {
	case "headless", "term":
	default:
		errs = append(errs, fmt.Errorf("backend: unknown backend %q (want headless or term)", cfg.Backend))
	}
	if _, err := cfg.Level(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Output.Width <= 0 || cfg.Output.Height <= 0 {
		errs = append(errs, fmt.Errorf("output: size %dx%d must be positive", cfg.Output.Width, cfg.Output.Height))
	}
	if cfg.Output.Scale < 0 {
		errs = append(errs, fmt.Errorf("output.scale: %v must not be negative", cfg.Output.Scale))
	}
	if _, err := cfg.Transform(); err != nil {
		errs = append(errs, err)
	}
	if cfg.Grid.Columns <= 0 || cfg.Grid.Rows <= 0 {
		errs = append(errs, fmt.Errorf("grid: %dx%d must be positive", cfg.Grid.Columns, cfg.Grid.Rows))
	}
	if cfg.Run.Frames < 0 || cfg.Run.SwitchEvery < 0 {
		errs = append(errs, errors.New("run: frames and switch_every must not be negative"))
	}
	if cfg.Run.Tick <= 0 {
		errs = append(errs, fmt.Errorf("run.tick: %v must be positive", cfg.Run.Tick))
	}
	for i, p := range cfg.Post {
		if p.Effect == "" {
			errs = append(errs, fmt.Errorf("post[%d]: effect is required", i))
		}
		if p.Amount < 0 || p.Amount > 1 {
			errs = append(errs, fmt.Errorf("post[%d].amount: %v outside [0, 1]", i, p.Amount))
		}
	}
	if c := cfg.Cursor; c != nil && c.Size <= 0 {
		errs = append(errs, fmt.Errorf("cursor.size: %d must be positive", c.Size))
	}
	for i, v := range cfg.Views {
		if v.Width <= 0 || v.Height <= 0 {
			errs = append(errs, fmt.Errorf("views[%d]: size %dx%d must be positive", i, v.Width, v.Height))
		}
		if v.Alpha < 0 || v.Alpha > 1 {
			errs = append(errs, fmt.Errorf("views[%d].alpha: %v outside [0, 1]", i, v.Alpha))
		}
		if _, err := ParseLayer(v.Layer); err != nil {
			errs = append(errs, fmt.Errorf("views[%d]: %w", i, err))
		}
		ws := v.Workspace
		if !v.Shell && (ws[0] < 0 || ws[0] >= cfg.Grid.Columns || ws[1] < 0 || ws[1] >= cfg.Grid.Rows) {
			errs = append(errs, fmt.Errorf("views[%d].workspace: %v outside the %dx%d grid", i, ws, cfg.Grid.Columns, cfg.Grid.Rows))
		}
	}
	return errors.Join(errs...)
}

// Level returns the slog level named by LogLevel.
func (c *Config) Level() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("log_level: %w", err)
	}
	return level, nil
}

var transforms = map[string]framebuffer.Transform{
	"normal":      framebuffer.TransformNormal,
	"90":          framebuffer.Transform90,
	"180":         framebuffer.Transform180,
	"270":         framebuffer.Transform270,
	"flipped":     framebuffer.TransformFlipped,
	"flipped-90":  framebuffer.TransformFlipped90,
	"flipped-180": framebuffer.TransformFlipped180,
	"flipped-270": framebuffer.TransformFlipped270,
}

// Transform returns the output transform.
func (c *Config) Transform() (framebuffer.Transform, error) {
	name := strings.ToLower(c.Output.Transform)
	if name == "" {
		return framebuffer.TransformNormal, nil
	}
	t, ok := transforms[name]
	if !ok {
		return 0, fmt.Errorf("output.transform: unknown transform %q", c.Output.Transform)
	}
	return t, nil
}

var layers = map[string]compositor.Layer{
	"background": compositor.LayerBackground,
	"bottom":     compositor.LayerBottom,
	"workspace":  compositor.LayerWorkspace,
	"top":        compositor.LayerTop,
	"unmanaged":  compositor.LayerUnmanaged,
	"lock":       compositor.LayerLock,
}

// ParseLayer returns the layer called name. The empty name is the
// workspace layer.
func ParseLayer(name string) (compositor.Layer, error) {
	if name == "" {
		return compositor.LayerWorkspace, nil
	}
	l, ok := layers[strings.ToLower(name)]
	if !ok {
		return 0, fmt.Errorf("unknown layer %q", name)
	}
	return l, nil
}
