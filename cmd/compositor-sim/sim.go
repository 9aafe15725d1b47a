package main

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/eventloop"
	"github.com/gogpu/compositor/framebuffer"
	"github.com/gogpu/compositor/internal/config"
	"github.com/gogpu/compositor/internal/solidview"
	"github.com/gogpu/compositor/osd"
	"github.com/gogpu/compositor/postfx"
)

// display is implemented by the headless and the terminal backends.
type display interface {
	backend.DisplayBackend
	Pixels() *framebuffer.PixmapTarget
	PresentCount() uint64
	SetCursor(img image.Image, hotspot image.Point)
	MoveCursor(x, y int)
}

// simView is a configured view with its blink period.
type simView struct {
	*solidview.View
	name  string
	blink int
}

// simulator drives an output with the views of a configuration.
type simulator struct {
	cfg     *config.Config
	display display
	mgr     *solidview.Manager
	out     *compositor.Output
	osd     *osd.OSD
	effects []*postfx.Effect
	views   []*simView
	step    int
}

func newSimulator(cfg *config.Config, loop *eventloop.Loop, d display) (*simulator, error) {
	scale := cfg.Output.Scale
	if scale <= 0 {
		scale = 1
	}
	w, h := d.TransformedResolution()
	s := &simulator{
		cfg:     cfg,
		display: d,
		mgr:     solidview.NewManager(int(float64(w)/scale), int(float64(h)/scale)),
	}

	for i, vc := range cfg.Views {
		v, err := s.addView(vc)
		if err != nil {
			return nil, fmt.Errorf("views[%d]: %w", i, err)
		}
		s.views = append(s.views, v)
	}

	out, err := compositor.NewOutput(d, s.mgr,
		compositor.WithEventLoop(loop),
		compositor.WithWorkspaceGrid(cfg.Grid.Columns, cfg.Grid.Rows),
		compositor.WithDamageTracking(cfg.Damage.Tracking),
		compositor.WithDamageDebug(cfg.Damage.Debug))
	if err != nil {
		return nil, err
	}
	s.out = out

	for i, pc := range cfg.Post {
		fx, err := postfx.ByName(pc.Effect, pc.Color.RGBA, pc.Amount)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("post[%d]: %w", i, err)
		}
		if err := out.AddPost(fx.Hook()); err != nil {
			s.Close()
			return nil, fmt.Errorf("post[%d]: %w", i, err)
		}
		s.effects = append(s.effects, fx)
	}

	if cfg.OSD.Enabled {
		s.osd = osd.New(
			osd.WithInterval(cfg.OSD.Interval),
			osd.WithPosition(image.Pt(cfg.OSD.X, cfg.OSD.Y)))
		s.osd.Attach(out)
	}

	if c := cfg.Cursor; c != nil {
		d.SetCursor(cursorImage(c), image.Point{})
		d.MoveCursor(c.X, c.Y)
	}

	if cfg.Run.AutoRedraw {
		out.AutoRedraw(true)
	}
	return s, nil
}

func (s *simulator) addView(vc config.ViewConfig) (*simView, error) {
	layer, err := config.ParseLayer(vc.Layer)
	if err != nil {
		return nil, err
	}
	c := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if vc.Color.Set {
		c = vc.Color.RGBA
		c.A = 255
	}
	pos := image.Pt(vc.X, vc.Y)

	var v *solidview.View
	if vc.Shell {
		v = s.mgr.AddShell(layer, pos, c, vc.Width, vc.Height)
	} else {
		v = s.mgr.Add(image.Pt(vc.Workspace[0], vc.Workspace[1]), pos, c, vc.Width, vc.Height)
		v.Layer = layer
	}
	v.Opacity = vc.Alpha
	return &simView{View: v, name: vc.Name, blink: vc.Blink}, nil
}

func cursorImage(c *config.CursorConfig) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, c.Size, c.Size))
	fill := color.RGBA{R: 255, G: 255, B: 255, A: 255}
	if c.Color.Set {
		fill = c.Color.Premultiplied()
	}
	// A triangle pointing up-left.
	for y := 0; y < c.Size; y++ {
		for x := 0; x <= y; x++ {
			img.SetRGBA(x, y, fill)
		}
	}
	return img
}

// Step advances the simulation by one frame interval.
func (s *simulator) Step() {
	s.step++
	for _, v := range s.views {
		if v.blink > 0 && s.step%v.blink == 0 {
			s.damageView(v.View)
			v.Visible = !v.Visible
		}
	}
	if n := s.cfg.Run.SwitchEvery; n > 0 && s.step%n == 0 {
		s.switchWorkspace(1)
	}
	if c := s.cfg.Cursor; c != nil {
		w, h := s.display.TransformedResolution()
		if w > 0 && h > 0 {
			s.display.MoveCursor((c.X+s.step)%w, c.Y%h)
		}
	}
}

// damageView damages the area of v on the visible workspace.
func (s *simulator) damageView(v *solidview.View) {
	box := framebuffer.ScaleBox(v.BoundingBox(), s.out.Backend().Scale())
	s.out.DamageBox(box)
}

// switchWorkspace moves by delta workspaces in row-major order.
func (s *simulator) switchWorkspace(delta int) {
	cols, rows := s.cfg.Grid.Columns, s.cfg.Grid.Rows
	n := cols * rows
	cur := s.mgr.Current
	idx := ((cur.Y*cols+cur.X+delta)%n + n) % n
	next := image.Pt(idx%cols, idx/cols)
	if next == cur {
		return
	}
	s.mgr.Current = next
	s.out.Damage(nil)
	compositor.Logger().Info("sim: workspace switched", "from", cur, "to", next)
}

// Steps returns the number of frame intervals simulated.
func (s *simulator) Steps() int {
	return s.step
}

// Close destroys the output.
func (s *simulator) Close() {
	if s.osd != nil {
		s.osd.Detach()
	}
	s.out.Destroy()
}
