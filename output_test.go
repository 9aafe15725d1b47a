// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor_test

import (
	"errors"
	"image"
	"image/color"
	"testing"

	"golang.org/x/image/draw"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/backend/headless"
	"github.com/gogpu/compositor/effects"
	"github.com/gogpu/compositor/eventloop"
	"github.com/gogpu/compositor/framebuffer"
	"github.com/gogpu/compositor/internal/solidview"
	"github.com/gogpu/compositor/region"
)

const (
	screenW = 1920
	screenH = 1080
)

var (
	red   = color.RGBA{R: 255, A: 255}
	green = color.RGBA{G: 255, A: 255}
	blue  = color.RGBA{B: 255, A: 255}
	white = color.RGBA{R: 255, G: 255, B: 255, A: 255}
	black = color.RGBA{A: 255}
)

type scene struct {
	out  *compositor.Output
	be   *headless.Backend
	mgr  *solidview.Manager
	loop *eventloop.Loop
	dev  *framebuffer.PixmapDevice
}

func newScene(t *testing.T, opts ...compositor.OutputOption) *scene {
	t.Helper()
	s := &scene{
		loop: eventloop.New(),
		mgr:  solidview.NewManager(screenW, screenH),
		dev:  framebuffer.NewPixmapDevice(),
	}
	s.be = headless.New(screenW, screenH, headless.WithEventLoop(s.loop))
	base := []compositor.OutputOption{
		compositor.WithEventLoop(s.loop),
		compositor.WithWorkspaceGrid(2, 1),
		compositor.WithDevice(s.dev),
	}
	out, err := compositor.NewOutput(s.be, s.mgr, append(base, opts...)...)
	if err != nil {
		t.Fatalf("NewOutput() = %v", err)
	}
	t.Cleanup(out.Destroy)
	s.out = out
	return s
}

// settle dispatches the loop until no work is left.
func (s *scene) settle() {
	for i := 0; i < 8 && s.loop.Pending() > 0; i++ {
		s.loop.Dispatch()
	}
}

func (s *scene) pixel(x, y int) color.RGBA {
	return s.be.Pixels().RGBAAt(x, y)
}

type streamRecord struct {
	ws     image.Point
	damage region.Region
}

func recordStreams(out *compositor.Output) *[]streamRecord {
	var recs []streamRecord
	out.StreamPre().Connect(func(e *compositor.StreamEvent) {
		recs = append(recs, streamRecord{ws: e.Workspace, damage: e.Damage.Clone()})
	})
	return &recs
}

func TestTwoWorkspaceScenario(t *testing.T) {
	s := newScene(t)
	s.settle()
	if s.be.PresentCount() != 1 {
		t.Fatalf("PresentCount() after the first frame = %d, want 1", s.be.PresentCount())
	}

	recs := recordStreams(s.out)
	s.out.DamageBox(image.Rect(10, 10, 110, 110))
	s.settle()

	if len(*recs) != 1 {
		t.Fatalf("stream updates = %d, want 1", len(*recs))
	}
	want := region.FromRect(10, 10, 100, 100)
	if got := (*recs)[0]; got.ws != image.Pt(0, 0) || !got.damage.Equal(&want) {
		t.Errorf("update on %v with %v, want (0,0) with %v", got.ws, got.damage.String(), want.String())
	}

	s.mgr.Current = image.Pt(1, 0)
	s.out.DamageBox(image.Rect(0, 0, 1, 1))
	s.settle()

	if len(*recs) != 2 {
		t.Fatalf("stream updates = %d, want 2", len(*recs))
	}
	full := region.FromRect(0, 0, screenW, screenH)
	if got := (*recs)[1]; got.ws != image.Pt(1, 0) || !got.damage.Equal(&full) {
		t.Errorf("switch updated %v with %v, want (1,0) with the whole output", got.ws, got.damage.String())
	}

	if cur := s.out.CurrentStream(); cur == nil || cur.Workspace != image.Pt(1, 0) || !cur.Running {
		t.Errorf("CurrentStream() = %+v, want running stream (1,0)", cur)
	}
	if old, _ := s.out.Stream(image.Pt(0, 0)); old.Running {
		t.Error("previous stream should be stopped")
	}
	last := s.be.Presentations()[len(s.be.Presentations())-1]
	if !last.Damage.ContainsRect(image.Rect(0, 0, screenW, screenH)) {
		t.Errorf("swap damage after a switch = %v, want the whole output", last.Damage.String())
	}
}

func TestOffscreenWorkspaceDamage(t *testing.T) {
	s := newScene(t)
	s.settle()

	recs := recordStreams(s.out)
	neighbor, _ := s.out.Stream(image.Pt(1, 0))
	neighbor.Buffer.Reset()
	s.out.SetRenderer(func(framebuffer.Framebuffer) {
		if err := s.out.UpdateStream(neighbor); err != nil {
			t.Error(err)
		}
	})

	s.out.DamageBox(image.Rect(screenW+5, 0, screenW+50, 40))
	s.out.DamageBox(image.Rect(0, 0, 1, 1))
	s.settle()

	if len(*recs) != 1 || (*recs)[0].ws != image.Pt(1, 0) {
		t.Fatalf("stream updates = %v, want one update of (1,0)", *recs)
	}
	want := region.FromRect(5, 0, 45, 40)
	if got := (*recs)[0].damage; !got.Equal(&want) {
		t.Errorf("neighbor stream damage = %v, want %v", got.String(), want.String())
	}
	if neighbor.Buffer.IsScreen() || !neighbor.Buffer.Allocated() {
		t.Error("neighbor stream should render into its own buffer")
	}
}

func TestUpdateStreamIdempotent(t *testing.T) {
	s := newScene(t)
	s.settle()

	recs := recordStreams(s.out)
	again := effects.Hook(func() {
		for range 2 {
			if err := s.out.UpdateStream(s.out.CurrentStream()); err != nil {
				t.Error(err)
			}
		}
	})
	s.out.AddEffect(&again, effects.Overlay)

	s.out.DamageBox(image.Rect(0, 0, 50, 50))
	s.settle()
	if len(*recs) != 1 {
		t.Errorf("stream updates = %d, want 1", len(*recs))
	}
}

func TestInhibitBlanksOutput(t *testing.T) {
	s := newScene(t)
	s.mgr.AddShell(compositor.LayerBackground, image.Point{}, red, screenW, screenH)
	s.settle()
	if got := s.pixel(500, 500); got != red {
		t.Fatalf("pixel before inhibit = %v, want red", got)
	}

	started := 0
	s.out.StartRendering().Connect(func(*compositor.RenderingEvent) { started++ })

	s.out.AddInhibit(true)
	s.out.DamageBox(image.Rect(0, 0, 10, 10))
	s.settle()
	for _, p := range []image.Point{{5, 5}, {500, 500}, {screenW - 1, screenH - 1}} {
		if got := s.pixel(p.X, p.Y); got != black {
			t.Errorf("inhibited pixel %v = %v, want black", p, got)
		}
	}
	if started != 0 {
		t.Errorf("StartRendering emitted while inhibited")
	}

	s.out.AddInhibit(false)
	if started != 1 {
		t.Errorf("StartRendering emitted %d times, want 1", started)
	}
	pending := s.be.PendingDamage()
	if !pending.ContainsRect(image.Rect(0, 0, screenW, screenH)) {
		t.Errorf("pending damage after uninhibit = %v, want the whole output", pending.String())
	}
	s.settle()
	if got := s.pixel(500, 500); got != red {
		t.Errorf("pixel after uninhibit = %v, want red", got)
	}
}

func TestIdleFrameStillSendsFrameDone(t *testing.T) {
	s := newScene(t)
	v0 := s.mgr.Add(image.Pt(0, 0), image.Pt(100, 100), blue, 200, 200)
	v1 := s.mgr.Add(image.Pt(1, 0), image.Pt(100, 100), green, 200, 200)
	panel := s.mgr.AddShell(compositor.LayerTop, image.Point{}, white, screenW, 30)
	s.settle()

	fd0, fdPanel := v0.FrameDone, panel.FrameDone
	if fd0 == 0 {
		t.Fatal("visible view got no frame done")
	}
	if v1.FrameDone != 0 {
		t.Errorf("view on a hidden workspace got %d frame done events", v1.FrameDone)
	}

	postRuns := 0
	post := effects.Hook(func() { postRuns++ })
	s.out.AddEffect(&post, effects.Post)

	presents := s.be.PresentCount()
	skipped := s.out.Stats().Skipped
	s.be.Frame()

	if s.be.PresentCount() != presents {
		t.Error("frame without damage was presented")
	}
	if s.out.Stats().Skipped != skipped+1 {
		t.Errorf("Skipped = %d, want %d", s.out.Stats().Skipped, skipped+1)
	}
	if postRuns != 1 {
		t.Errorf("post hooks ran %d times, want 1", postRuns)
	}
	if v0.FrameDone != fd0+1 || panel.FrameDone != fdPanel+1 {
		t.Errorf("frame done: view %d→%d, panel %d→%d, want one more each",
			fd0, v0.FrameDone, fdPanel, panel.FrameDone)
	}
	if v1.FrameDone != 0 {
		t.Error("hidden view notified on an idle frame")
	}
	if s.out.State() != compositor.StateIdle {
		t.Errorf("State() = %v, want Idle", s.out.State())
	}
}

func TestCustomRenderer(t *testing.T) {
	s := newScene(t)
	s.mgr.AddShell(compositor.LayerBackground, image.Point{}, red, screenW, screenH)
	hidden := s.mgr.Add(image.Pt(1, 0), image.Pt(10, 10), green, 20, 20)
	s.settle()

	calls := 0
	s.out.SetRenderer(func(fb framebuffer.Framebuffer) {
		calls++
		fb.Target.Fill(white)
	})
	if !s.out.HasRenderer() {
		t.Fatal("HasRenderer() = false after SetRenderer")
	}
	s.out.DamageBox(image.Rect(0, 0, 1, 1))
	s.settle()

	if calls != 1 {
		t.Errorf("renderer calls = %d, want 1", calls)
	}
	if got := s.pixel(500, 500); got != white {
		t.Errorf("pixel = %v, want the renderer's white", got)
	}
	if hidden.FrameDone == 0 {
		t.Error("with a custom renderer every mapped view gets frame done")
	}
	last := s.be.Presentations()[len(s.be.Presentations())-1]
	if !last.Damage.ContainsRect(image.Rect(0, 0, screenW, screenH)) {
		t.Errorf("renderer swap damage = %v, want the whole output", last.Damage.String())
	}

	s.out.ResetRenderer()
	s.out.ResetRenderer()
	s.settle()
	if got := s.pixel(500, 500); got != red {
		t.Errorf("pixel after ResetRenderer = %v, want red", got)
	}
}

// copyHook copies src into dst and counts its calls.
func copyHook(calls *int) *effects.PostHook {
	h := effects.PostHook(func(src, dst framebuffer.Framebuffer) {
		*calls++
		in, ok1 := src.Target.(framebuffer.PixelTarget)
		out, ok2 := dst.Target.(framebuffer.PixelTarget)
		if !ok1 || !ok2 {
			return
		}
		draw.Draw(out.Image(), out.Image().Bounds(), in.Image(), image.Point{}, draw.Src)
	})
	return &h
}

func TestPostChainThroughOutput(t *testing.T) {
	for n := 0; n <= 3; n++ {
		s := newScene(t)
		s.mgr.AddShell(compositor.LayerBackground, image.Point{}, red, screenW, screenH)
		s.settle()

		calls := make([]int, n)
		hooks := make([]*effects.PostHook, n)
		for i := range hooks {
			hooks[i] = copyHook(&calls[i])
			if err := s.out.AddPost(hooks[i]); err != nil {
				t.Fatalf("n=%d: AddPost() = %v", n, err)
			}
		}
		s.settle()

		chain := s.out.PostChain()
		if chain[len(chain)-1] != framebuffer.Screen {
			t.Errorf("n=%d: chain %v does not end on the screen", n, chain)
		}
		for i, c := range calls {
			if c == 0 {
				t.Errorf("n=%d: hook %d never ran", n, i)
			}
		}
		if got := s.pixel(700, 700); got != red {
			t.Errorf("n=%d: pixel through the chain = %v, want red", n, got)
		}

		for _, h := range hooks {
			s.out.RemovePost(h)
		}
		s.settle()
		if chain := s.out.PostChain(); len(chain) != 1 || chain[0] != framebuffer.Screen {
			t.Errorf("n=%d: chain after removing every hook = %v, want [screen]", n, chain)
		}
		if s.dev.Live() != 0 {
			t.Errorf("n=%d: %d offscreen buffers leaked", n, s.dev.Live())
		}
		if got := s.pixel(700, 700); got != red {
			t.Errorf("n=%d: pixel after draining = %v, want red", n, got)
		}
	}
}

func TestDestroyReleasesBuffers(t *testing.T) {
	s := newScene(t)
	s.settle()
	var calls int
	if err := s.out.AddPost(copyHook(&calls)); err != nil {
		t.Fatal(err)
	}
	st, _ := s.out.Stream(image.Pt(1, 0))
	st.Buffer.Reset()
	if err := s.out.StartStream(st); err != nil {
		t.Fatal(err)
	}
	s.settle()
	if s.dev.Live() == 0 {
		t.Fatal("expected offscreen buffers before Destroy")
	}

	s.out.Destroy()
	if s.dev.Live() != 0 {
		t.Errorf("Live() after Destroy() = %d, want 0", s.dev.Live())
	}
}

func TestDamageDebug(t *testing.T) {
	s := newScene(t, compositor.WithDamageDebug(true))
	s.mgr.AddShell(compositor.LayerBackground, image.Point{}, red, screenW, screenH)
	s.settle()

	s.out.DamageBox(image.Rect(0, 0, 10, 10))
	s.settle()
	yellow := color.RGBA{R: 255, G: 255, A: 255}
	if got := s.pixel(500, 500); got != yellow {
		t.Errorf("undamaged pixel = %v, want yellow", got)
	}
	if got := s.pixel(5, 5); got != red {
		t.Errorf("damaged pixel = %v, want red", got)
	}
}

func TestDamageTrackingDisabled(t *testing.T) {
	s := newScene(t, compositor.WithDamageTracking(false))
	s.settle()
	recs := recordStreams(s.out)
	s.out.DamageBox(image.Rect(0, 0, 4, 4))
	s.settle()

	full := region.FromRect(0, 0, screenW, screenH)
	if len(*recs) != 1 || !(*recs)[0].damage.Equal(&full) {
		t.Errorf("stream damage with tracking disabled = %v, want the whole output", *recs)
	}
}

func TestOpaqueViewOccludes(t *testing.T) {
	s := newScene(t)
	bottom := s.mgr.Add(image.Pt(0, 0), image.Pt(100, 100), blue, 300, 300)
	top := s.mgr.Add(image.Pt(0, 0), image.Pt(100, 100), green, 300, 300)
	s.settle()

	b0, t0 := bottom.Renders, top.Renders
	s.out.DamageBox(image.Rect(150, 150, 200, 200))
	s.settle()
	if top.Renders != t0+1 {
		t.Errorf("top renders = %d, want %d", top.Renders, t0+1)
	}
	if bottom.Renders != b0 {
		t.Errorf("occluded view rendered %d times", bottom.Renders-b0)
	}
	if got := s.pixel(160, 160); got != green {
		t.Errorf("pixel = %v, want green", got)
	}

	top.Opacity = 0.5
	s.out.DamageBox(image.Rect(150, 150, 200, 200))
	s.settle()
	if bottom.Renders != b0+1 {
		t.Error("view under a translucent view must be rendered")
	}
}

func TestSnapshotView(t *testing.T) {
	s := newScene(t)
	v := s.mgr.Add(image.Pt(0, 0), image.Pt(100, 100), blue, 50, 50)
	sub := solidview.NewSurface(green, 10, 10)
	v.Subs = append(v.Subs, solidview.Sub{Surface: sub, Offset: image.Pt(60, 0)})
	v.Transformed = true
	s.settle()

	if sub.Renders == 0 {
		t.Error("snapshot did not draw the subsurface")
	}
	if got := s.pixel(165, 105); got != green {
		t.Errorf("subsurface pixel = %v, want green", got)
	}
}

func TestDragIcon(t *testing.T) {
	icon := &solidview.Icon{Surface: solidview.NewSurface(white, 10, 10), Pos: image.Pt(50, 50)}
	s := newScene(t, compositor.WithDragIcons(func() []compositor.DragIcon {
		return []compositor.DragIcon{icon}
	}))
	s.mgr.AddShell(compositor.LayerBackground, image.Point{}, red, screenW, screenH)
	s.settle()

	if got := s.pixel(55, 55); got != white {
		t.Errorf("icon pixel = %v, want white", got)
	}
	if got := s.pixel(45, 45); got != red {
		t.Errorf("pixel next to the icon = %v, want red", got)
	}
	if icon.Output != nil {
		t.Error("icon must be detached after the stream update")
	}
}

func TestSoftwareCursor(t *testing.T) {
	s := newScene(t)
	s.mgr.AddShell(compositor.LayerBackground, image.Point{}, red, screenW, screenH)
	s.settle()

	cur := image.NewRGBA(image.Rect(0, 0, 4, 4))
	draw.Draw(cur, cur.Bounds(), image.NewUniform(white), image.Point{}, draw.Src)
	s.be.SetCursor(cur, image.Point{})
	s.be.MoveCursor(300, 300)
	s.settle()

	if got := s.pixel(301, 301); got != white {
		t.Errorf("cursor pixel = %v, want white", got)
	}
	s.be.MoveCursor(600, 600)
	s.settle()
	if got := s.pixel(301, 301); got != red {
		t.Errorf("old cursor position = %v, want red", got)
	}
}

func TestAutoRedraw(t *testing.T) {
	s := newScene(t)
	s.settle()

	s.out.AutoRedraw(true)
	s.out.AutoRedraw(true)
	if !s.out.AutoRedrawing() {
		t.Fatal("AutoRedrawing() = false")
	}
	before := s.be.PresentCount()
	for range 4 {
		s.loop.Dispatch()
	}
	if s.be.PresentCount() <= before {
		t.Error("continuous redraw did not present new frames")
	}

	s.out.AutoRedraw(false)
	s.out.AutoRedraw(false)
	s.settle()
	if s.loop.Pending() != 0 {
		t.Error("frames still scheduled after disabling continuous redraw")
	}
}

// flakyDevice is a pixmap device whose next allocation can be made to fail.
type flakyDevice struct {
	*framebuffer.PixmapDevice
	failNext bool
}

func (d *flakyDevice) NewTarget(label string, width, height int) (framebuffer.Target, error) {
	if d.failNext {
		d.failNext = false
		return nil, errors.New("out of video memory")
	}
	return d.PixmapDevice.NewTarget(label, width, height)
}

// lastDamage returns the damage of the most recent presentation.
func (s *scene) lastDamage(t *testing.T) region.Region {
	t.Helper()
	ps := s.be.Presentations()
	if len(ps) == 0 {
		t.Fatal("nothing presented")
	}
	return ps[len(ps)-1].Damage
}

func TestFailedFrameRetriedWithoutNewDamage(t *testing.T) {
	box := image.Rect(0, 0, 20, 20)
	tests := []struct {
		name string
		fail func(s *scene)
	}{
		{"swap", func(s *scene) { s.be.FailNextSwap(errors.New("device lost")) }},
		{"make current", func(s *scene) { s.be.FailNextMakeCurrent(errors.New("no buffer")) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newScene(t)
			s.mgr.AddShell(compositor.LayerBackground, image.Point{}, blue, screenW, screenH)
			s.settle()
			presents := s.be.PresentCount()

			tt.fail(s)
			s.out.DamageBox(box)
			s.settle()

			if got := s.out.Stats().Failed; got != 1 {
				t.Fatalf("Failed = %d, want 1", got)
			}
			if got := s.be.PresentCount(); got != presents+1 {
				t.Fatalf("PresentCount() = %d, want %d: the dropped frame was not retried", got, presents+1)
			}
			if dmg := s.lastDamage(t); !dmg.ContainsRect(box) {
				t.Errorf("retried frame damage = %s, want it to cover %v", dmg.String(), box)
			}
			if s.out.State() != compositor.StateIdle {
				t.Errorf("State() = %v, want Idle", s.out.State())
			}
			if s.loop.Pending() != 0 {
				t.Errorf("loop still has %d callbacks after the retry", s.loop.Pending())
			}
		})
	}
}

func TestStreamAllocationFailureKeepsDamage(t *testing.T) {
	dev := &flakyDevice{PixmapDevice: framebuffer.NewPixmapDevice()}
	s := newScene(t, compositor.WithDevice(dev))
	s.mgr.Add(image.Pt(0, 0), image.Point{}, green, 100, 100)
	s.settle()

	st := s.out.CurrentStream()
	if st == nil {
		t.Fatal("no current stream after the first frame")
	}
	st.Buffer.Reset()
	before := s.out.Stats()

	dev.failNext = true
	box := image.Rect(10, 10, 30, 30)
	s.out.DamageBox(box)
	s.loop.Dispatch()

	after := s.out.Stats()
	if after.Failed != before.Failed+1 {
		t.Fatalf("Failed = %d, want %d", after.Failed, before.Failed+1)
	}
	if after.Composited != before.Composited {
		t.Errorf("Composited = %d, want %d: a frame without its stream was presented",
			after.Composited, before.Composited)
	}

	s.settle()
	if got := s.out.Stats().Composited; got != before.Composited+1 {
		t.Fatalf("Composited = %d, want %d after the retry", got, before.Composited+1)
	}
	if dmg := s.lastDamage(t); !dmg.ContainsRect(box) {
		t.Errorf("retried frame damage = %s, want it to cover %v", dmg.String(), box)
	}
	if !st.Buffer.Allocated() {
		t.Error("stream buffer not allocated by the retried frame")
	}
}

func TestWorkspaceOutsideGridDoesNotSwap(t *testing.T) {
	s := newScene(t)
	s.settle()
	presents := s.be.PresentCount()

	s.mgr.Current = image.Pt(5, 5)
	s.out.DamageBox(image.Rect(0, 0, 10, 10))
	s.settle()

	if s.be.PresentCount() != presents+1 {
		t.Fatalf("PresentCount() = %d, want %d", s.be.PresentCount(), presents+1)
	}
	if dmg := s.lastDamage(t); dmg.NotEmpty() {
		t.Errorf("swap damage = %s, want empty when nothing was drawn", dmg.String())
	}
}
