package main

import (
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gogpu/compositor/backend/headless"
	"github.com/gogpu/compositor/eventloop"
	"github.com/gogpu/compositor/internal/config"
)

func newTestSim(t *testing.T, cfg *config.Config) (*simulator, *headless.Backend, *eventloop.Loop) {
	t.Helper()
	loop := eventloop.New()
	d := headless.New(cfg.Output.Width, cfg.Output.Height, headless.WithEventLoop(loop))
	sim, err := newSimulator(cfg, loop, d)
	if err != nil {
		t.Fatalf("newSimulator() error = %v", err)
	}
	t.Cleanup(sim.Close)
	return sim, d, loop
}

func settle(loop *eventloop.Loop) {
	for i := 0; i < 8 && loop.Pending() > 0; i++ {
		loop.Dispatch()
	}
}

func TestDefaultSceneRenders(t *testing.T) {
	cfg := config.Default()
	cfg.OSD.Enabled = false
	sim, d, loop := newTestSim(t, cfg)
	settle(loop)

	if d.PresentCount() == 0 {
		t.Fatal("nothing presented")
	}
	editor := cfg.Views[2]
	got := d.Pixels().RGBAAt(editor.X+5, editor.Y+5)
	if got != editor.Color.RGBA {
		t.Errorf("editor pixel = %v, want %v", got, editor.Color.RGBA)
	}
	panel := cfg.Views[1]
	if got := d.Pixels().RGBAAt(2, 2); got != panel.Color.RGBA {
		t.Errorf("panel pixel = %v, want %v", got, panel.Color.RGBA)
	}
	if sim.out.Stats().Composited == 0 {
		t.Error("Stats().Composited = 0")
	}
}

func TestSwitchWorkspace(t *testing.T) {
	cfg := config.Default()
	cfg.OSD.Enabled = false
	cfg.Run.SwitchEvery = 2
	sim, d, loop := newTestSim(t, cfg)
	settle(loop)

	sim.Step()
	settle(loop)
	if sim.mgr.Current != image.Pt(0, 0) {
		t.Fatalf("switched after one step: %v", sim.mgr.Current)
	}

	sim.Step()
	settle(loop)
	if sim.mgr.Current != image.Pt(1, 0) {
		t.Fatalf("Current = %v after two steps, want (1,0)", sim.mgr.Current)
	}
	browser := cfg.Views[4]
	if got := d.Pixels().RGBAAt(browser.X+5, browser.Y+5); got != browser.Color.RGBA {
		t.Errorf("browser pixel = %v, want %v", got, browser.Color.RGBA)
	}

	sim.switchWorkspace(-1)
	if sim.mgr.Current != image.Pt(0, 0) {
		t.Errorf("switchWorkspace(-1) = %v, want (0,0)", sim.mgr.Current)
	}
}

func TestBlinkingView(t *testing.T) {
	cfg := config.Default()
	cfg.OSD.Enabled = false
	cfg.Run.SwitchEvery = 0
	cfg.Views = []config.ViewConfig{{
		Name: "blink", Width: 20, Height: 20, X: 10, Y: 10, Blink: 1,
		Color: config.Color{RGBA: color.RGBA{R: 255, A: 255}, Set: true},
	}}
	sim, d, loop := newTestSim(t, cfg)
	settle(loop)

	if got := d.Pixels().RGBAAt(15, 15); got.R != 255 {
		t.Fatalf("view not drawn: %v", got)
	}
	sim.Step()
	settle(loop)
	if got := d.Pixels().RGBAAt(15, 15); got != (color.RGBA{A: 255}) {
		t.Errorf("hidden view pixel = %v, want black", got)
	}
	sim.Step()
	settle(loop)
	if got := d.Pixels().RGBAAt(15, 15); got.R != 255 {
		t.Errorf("shown view pixel = %v, want red", got)
	}
}

func TestPostEffectFromConfig(t *testing.T) {
	cfg := config.Default()
	cfg.OSD.Enabled = false
	cfg.Post = []config.PostConfig{{Effect: "invert"}}
	sim, d, loop := newTestSim(t, cfg)
	settle(loop)

	if len(sim.effects) != 1 {
		t.Fatalf("effects = %d, want 1", len(sim.effects))
	}
	editor := cfg.Views[2]
	c := editor.Color.RGBA
	want := color.RGBA{R: 255 - c.R, G: 255 - c.G, B: 255 - c.B, A: 255}
	if got := d.Pixels().RGBAAt(editor.X+5, editor.Y+5); got != want {
		t.Errorf("inverted editor pixel = %v, want %v", got, want)
	}
}

func TestUnknownPostEffect(t *testing.T) {
	cfg := config.Default()
	cfg.Post = []config.PostConfig{{Effect: "blur"}}
	loop := eventloop.New()
	d := headless.New(cfg.Output.Width, cfg.Output.Height, headless.WithEventLoop(loop))
	if _, err := newSimulator(cfg, loop, d); err == nil {
		t.Error("newSimulator() accepted an unknown effect")
	}
}

func TestCursorFollowsSteps(t *testing.T) {
	cfg := config.Default()
	cfg.OSD.Enabled = false
	cfg.Cursor = &config.CursorConfig{X: 50, Y: 60, Size: 6}
	sim, d, loop := newTestSim(t, cfg)
	settle(loop)

	if got := d.CursorBox(); got != image.Rect(50, 60, 56, 66) {
		t.Errorf("CursorBox() = %v", got)
	}
	sim.Step()
	if got := d.CursorBox().Min; got != image.Pt(51, 60) {
		t.Errorf("cursor at %v after one step, want (51,60)", got)
	}
}

func TestRunWritesSnapshot(t *testing.T) {
	cfg := config.Default()
	cfg.Run.Frames = 3
	cfg.Run.Tick = time.Millisecond
	path := filepath.Join(t.TempDir(), "screen.png")

	if err := run(cfg, path); err != nil {
		t.Fatalf("run() error = %v", err)
	}
	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	img, err := png.Decode(f)
	if err != nil {
		t.Fatalf("png.Decode() error = %v", err)
	}
	if got := img.Bounds().Size(); got != image.Pt(cfg.Output.Width, cfg.Output.Height) {
		t.Errorf("snapshot size = %v", got)
	}
}
