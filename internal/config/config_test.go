package config

import (
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/framebuffer"
)

func TestDefaultIsValid(t *testing.T) {
	if err := validate(Default()); err != nil {
		t.Fatalf("validate(Default()) = %v", err)
	}
}

func TestParse(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		env     map[string]string
		wantErr string
		checkFn func(t *testing.T, cfg *Config)
	}{
		{
			name: "empty file keeps defaults",
			yaml: "",
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Output.Width != 320 || cfg.Grid.Columns != 2 || !cfg.Damage.Tracking {
					t.Errorf("defaults not kept: %+v", cfg)
				}
			},
		},
		{
			name: "full config",
			yaml: `
backend: term
log_level: debug
output:
  width: 160
  height: 96
  scale: 2
  transform: flipped-90
grid:
  columns: 3
  rows: 2
run:
  frames: 10
  tick: 5ms
  switch_every: 3
  auto_redraw: true
damage:
  tracking: false
  debug: true
osd:
  enabled: false
post:
  - effect: grayscale
  - effect: tint
    color: "#ff000080"
    amount: 0.25
cursor:
  x: 5
  y: 6
  size: 4
  color: "#ffffff"
views:
  - name: win
    workspace: [2, 1]
    x: 1
    y: 2
    width: 30
    height: 20
    color: "#00ff00"
    alpha: 0.5
    blink: 4
  - name: bar
    layer: top
    shell: true
    width: 160
    height: 8
`,
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Backend != "term" {
					t.Errorf("Backend = %q", cfg.Backend)
				}
				if lvl, _ := cfg.Level(); lvl != slog.LevelDebug {
					t.Errorf("Level() = %v, want debug", lvl)
				}
				if tr, _ := cfg.Transform(); tr != framebuffer.TransformFlipped90 {
					t.Errorf("Transform() = %v, want flipped-90", tr)
				}
				if cfg.Output.Scale != 2 || cfg.Grid.Columns != 3 || cfg.Grid.Rows != 2 {
					t.Errorf("output/grid = %+v %+v", cfg.Output, cfg.Grid)
				}
				if cfg.Run.Tick != 5*time.Millisecond || !cfg.Run.AutoRedraw || cfg.Run.SwitchEvery != 3 {
					t.Errorf("run = %+v", cfg.Run)
				}
				if cfg.Damage.Tracking || !cfg.Damage.Debug || cfg.OSD.Enabled {
					t.Errorf("damage/osd = %+v %+v", cfg.Damage, cfg.OSD)
				}
				if len(cfg.Post) != 2 || cfg.Post[1].Color.RGBA != (color.RGBA{R: 255, A: 128}) || cfg.Post[1].Amount != 0.25 {
					t.Errorf("post = %+v", cfg.Post)
				}
				if cfg.Cursor == nil || cfg.Cursor.Size != 4 || cfg.Cursor.Color.A != 255 {
					t.Errorf("cursor = %+v", cfg.Cursor)
				}
				if len(cfg.Views) != 2 {
					t.Fatalf("len(Views) = %d, want 2", len(cfg.Views))
				}
				v := cfg.Views[0]
				if v.Workspace != [2]int{2, 1} || v.Alpha != 0.5 || v.Blink != 4 || v.Color.G != 255 {
					t.Errorf("views[0] = %+v", v)
				}
				if cfg.Views[1].Color.Set {
					t.Error("views[1] has a color although none was given")
				}
			},
		},
		{
			name: "env interpolation",
			yaml: "backend: ${SIM_BACKEND}\n",
			env:  map[string]string{"SIM_BACKEND": "term"},
			checkFn: func(t *testing.T, cfg *Config) {
				if cfg.Backend != "term" {
					t.Errorf("Backend = %q, want term", cfg.Backend)
				}
			},
		},
		{
			name:    "unknown key",
			yaml:    "outputs:\n  width: 3\n",
			wantErr: "field outputs not found",
		},
		{
			name:    "bad color",
			yaml:    "views:\n  - width: 1\n    height: 1\n    color: red\n",
			wantErr: "invalid color",
		},
		{
			name:    "unknown backend",
			yaml:    "backend: drm\n",
			wantErr: "unknown backend",
		},
		{
			name:    "bad transform",
			yaml:    "output:\n  transform: sideways\n",
			wantErr: "unknown transform",
		},
		{
			name:    "view outside grid",
			yaml:    "views:\n  - workspace: [5, 0]\n    width: 1\n    height: 1\n",
			wantErr: "outside the 2x1 grid",
		},
		{
			name:    "bad layer",
			yaml:    "views:\n  - layer: overlay\n    width: 1\n    height: 1\n",
			wantErr: "unknown layer",
		},
		{
			name:    "post amount",
			yaml:    "post:\n  - effect: tint\n    amount: 2\n",
			wantErr: "outside [0, 1]",
		},
		{
			name:    "zero tick",
			yaml:    "run:\n  tick: 0s\n",
			wantErr: "run.tick",
		},
		{
			name:    "bad log level",
			yaml:    "log_level: loud\n",
			wantErr: "log_level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			cfg, err := Parse([]byte(tt.yaml))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("Parse() error = %v, want %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Parse() error = %v", err)
			}
			tt.checkFn(t, cfg)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "sim.yaml")
	if err := os.WriteFile(path, []byte("run:\n  frames: 7\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Run.Frames != 7 {
		t.Errorf("Run.Frames = %d, want 7", cfg.Run.Frames)
	}

	if _, err := Load(filepath.Join(dir, "missing.yaml")); err == nil {
		t.Error("Load() of a missing file succeeded")
	}
}

func TestMarshalRoundTrip(t *testing.T) {
	data, err := Marshal(Default())
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if !strings.Contains(string(data), `"#3a6ea5ff"`) && !strings.Contains(string(data), "'#3a6ea5ff'") {
		t.Errorf("Marshal() output lacks the editor color:\n%s", data)
	}
	cfg, err := Parse(data)
	if err != nil {
		t.Fatalf("Parse(Marshal(Default())) error = %v", err)
	}
	if len(cfg.Views) != len(Default().Views) || cfg.Views[2].Color != Default().Views[2].Color {
		t.Errorf("views changed across a round trip: %+v", cfg.Views)
	}
}

func TestParseColor(t *testing.T) {
	tests := []struct {
		in      string
		want    color.RGBA
		wantErr bool
	}{
		{"#000000", color.RGBA{A: 255}, false},
		{"#ff8000", color.RGBA{R: 255, G: 128, A: 255}, false},
		{"#ff800040", color.RGBA{R: 255, G: 128, A: 64}, false},
		{"00ff00", color.RGBA{G: 255, A: 255}, false},
		{"#fff", color.RGBA{}, true},
		{"#gg0000", color.RGBA{}, true},
	}
	for _, tt := range tests {
		got, err := ParseColor(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseColor(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if !tt.wantErr && got.RGBA != tt.want {
			t.Errorf("ParseColor(%q) = %v, want %v", tt.in, got.RGBA, tt.want)
		}
	}
}

func TestPremultiplied(t *testing.T) {
	c := Color{RGBA: color.RGBA{R: 255, G: 128, B: 0, A: 128}}
	if got, want := c.Premultiplied(), (color.RGBA{R: 128, G: 64, A: 128}); got != want {
		t.Errorf("Premultiplied() = %v, want %v", got, want)
	}
}

func TestParseLayer(t *testing.T) {
	if l, err := ParseLayer(""); err != nil || l != compositor.LayerWorkspace {
		t.Errorf("ParseLayer(\"\") = %v, %v", l, err)
	}
	if l, err := ParseLayer("Top"); err != nil || l != compositor.LayerTop {
		t.Errorf("ParseLayer(Top) = %v, %v", l, err)
	}
}
