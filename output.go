// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"fmt"
	"image"
	"math"
	"time"

	"github.com/gogpu/compositor/damage"
	"github.com/gogpu/compositor/effects"
	"github.com/gogpu/compositor/events"
	"github.com/gogpu/compositor/framebuffer"
	"github.com/gogpu/compositor/region"
)

// Output is the rendering state of one display.
//
// Output is NOT thread-safe. See the package documentation.
type Output struct {
	backend    Backend
	workspaces WorkspaceManager
	device     framebuffer.Device
	loop       EventLoop
	clock      func() time.Time
	dragIcons  func() []DragIcon

	tracker     *damage.Tracker
	damageDebug bool

	// frameDamage is the region being repainted by the current frame.
	frameDamage region.Region

	defaultBuffer framebuffer.Buffer
	streams       [][]*Stream
	current       *Stream

	renderer Renderer
	effects  effects.Set
	post     *effects.PostChain

	autoRedraw int
	inhibit    int

	cancelRedraw func()
	cancelDamage func()
	cancelFrame  func()

	state     State
	stats     FrameStats
	destroyed bool

	streamPre      *events.Signal[StreamEvent]
	streamPost     *events.Signal[StreamEvent]
	startRendering *events.Signal[RenderingEvent]
}

// NewOutput creates the renderer of one display.
//
// The output registers for the backend's frame callbacks, damages the
// whole screen and schedules the first frame.
func NewOutput(backend Backend, workspaces WorkspaceManager, opts ...OutputOption) (*Output, error) {
	if backend == nil {
		return nil, ErrNilBackend
	}
	if workspaces == nil {
		return nil, ErrNilWorkspaces
	}

	cfg := defaultOptions()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.cols <= 0 || cfg.rows <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidGrid, cfg.cols, cfg.rows)
	}
	if cfg.device == nil {
		cfg.device = framebuffer.NewPixmapDevice()
	}
	cfg.ensureLoop()

	o := &Output{
		backend:        backend,
		workspaces:     workspaces,
		device:         cfg.device,
		loop:           cfg.loop,
		clock:          cfg.clock,
		dragIcons:      cfg.dragIcons,
		tracker:        damage.NewTracker(backend),
		damageDebug:    cfg.damageDebug,
		streamPre:      events.NewSignal[StreamEvent](events.StreamPre),
		streamPost:     events.NewSignal[StreamEvent](events.StreamPost),
		startRendering: events.NewSignal[RenderingEvent](events.StartRendering),
	}
	o.tracker.DisableTracking = !cfg.tracking
	o.defaultBuffer.Label = "default"
	o.post = effects.NewPostChain(&o.defaultBuffer, o.device)
	o.initStreams(cfg.cols, cfg.rows)

	o.tracker.AddAll()
	o.cancelFrame = backend.OnFrame(o.Paint)
	o.ScheduleRedraw()

	w, h := backend.Size()
	Logger().Info("compositor: output created",
		"size", fmt.Sprintf("%dx%d", w, h),
		"grid", fmt.Sprintf("%dx%d", cfg.cols, cfg.rows))
	return o, nil
}

// initStreams creates one stream per workspace cell. Streams start out on
// the screen sentinel and so render into the default buffer.
func (o *Output) initStreams(cols, rows int) {
	o.streams = make([][]*Stream, cols)
	for x := range o.streams {
		o.streams[x] = make([]*Stream, rows)
		for y := range o.streams[x] {
			o.streams[x][y] = &Stream{
				Workspace: image.Pt(x, y),
				ScaleX:    1,
				ScaleY:    1,
			}
			o.streams[x][y].Buffer.Label = fmt.Sprintf("stream %d,%d", x, y)
		}
	}
}

// Destroy releases every buffer the output owns and detaches it from the
// backend and the event loop. Destroy is idempotent.
func (o *Output) Destroy() {
	if o.destroyed {
		return
	}
	o.destroyed = true

	if o.cancelFrame != nil {
		o.cancelFrame()
		o.cancelFrame = nil
	}
	if o.cancelRedraw != nil {
		o.cancelRedraw()
		o.cancelRedraw = nil
	}
	if o.cancelDamage != nil {
		o.cancelDamage()
		o.cancelDamage = nil
	}

	for _, col := range o.streams {
		for _, s := range col {
			s.Buffer.Release()
			s.Running = false
		}
	}
	o.current = nil
	o.post.Release()
	o.defaultBuffer.MakeScreen()
	o.tracker.Reset()
	o.frameDamage.Clear()

	o.streamPre.DisconnectAll()
	o.streamPost.DisconnectAll()
	o.startRendering.DisconnectAll()

	o.state = StateIdle
	Logger().Info("compositor: output destroyed")
}

// Destroyed reports whether Destroy was called.
func (o *Output) Destroyed() bool {
	return o.destroyed
}

// Backend returns the display backend.
func (o *Output) Backend() Backend {
	return o.backend
}

// Workspaces returns the workspace manager.
func (o *Output) Workspaces() WorkspaceManager {
	return o.workspaces
}

// EventLoop returns the loop running the output's idle callbacks. Unless
// WithEventLoop was used, it is a *eventloop.Loop owned by the output.
func (o *Output) EventLoop() EventLoop {
	return o.loop
}

// Device returns the device creating offscreen buffers.
func (o *Output) Device() framebuffer.Device {
	return o.device
}

// Damage adds r to the output damage and schedules a frame. A nil region
// damages the whole output. Damage on a destroyed output is ignored.
func (o *Output) Damage(r *region.Region) {
	if o.destroyed {
		return
	}
	if r == nil {
		o.tracker.AddAll()
		return
	}
	o.tracker.Add(r)
}

// DamageBox adds a rectangle to the output damage and schedules a frame.
func (o *Output) DamageBox(box image.Rectangle) {
	if o.destroyed {
		return
	}
	o.tracker.AddBox(box)
}

// ScheduleRedraw requests a frame callback from the backend on the next
// idle. Repeated calls before the idle runs are coalesced.
func (o *Output) ScheduleRedraw() {
	if o.destroyed || o.cancelRedraw != nil {
		return
	}
	o.cancelRedraw = o.loop.AddIdle(func() {
		o.cancelRedraw = nil
		if !o.destroyed {
			o.backend.ScheduleFrame()
		}
	})
}

// SetRenderer installs a renderer that replaces workspace compositing.
func (o *Output) SetRenderer(r Renderer) {
	o.renderer = r
}

// ResetRenderer removes the custom renderer and damages the whole output
// on the next idle.
func (o *Output) ResetRenderer() {
	o.renderer = nil
	if o.destroyed || o.cancelDamage != nil {
		return
	}
	o.cancelDamage = o.loop.AddIdle(func() {
		o.cancelDamage = nil
		o.Damage(nil)
	})
}

// HasRenderer reports whether a custom renderer is installed.
func (o *Output) HasRenderer() bool {
	return o.renderer != nil
}

// AddEffect registers hook for phase. The caller keeps ownership of hook
// and removes it with the same pointer.
func (o *Output) AddEffect(hook *effects.Hook, phase effects.Phase) {
	o.effects.Add(hook, phase)
}

// RemoveEffect unregisters hook from phase.
func (o *Output) RemoveEffect(hook *effects.Hook, phase effects.Phase) {
	o.effects.Remove(hook, phase)
}

// AddPost appends hook to the post-processing chain and damages the whole
// output.
func (o *Output) AddPost(hook *effects.PostHook) error {
	if o.destroyed {
		return ErrDestroyed
	}
	w, h := o.backend.Size()
	if err := o.post.Add(hook, w, h); err != nil {
		return fmt.Errorf("compositor: %w", err)
	}
	o.Damage(nil)
	return nil
}

// RemovePost marks hook for removal. The chain is rebuilt at the start of
// the next frame.
func (o *Output) RemovePost(hook *effects.PostHook) {
	if !o.post.Remove(hook) {
		Logger().Debug("compositor: removing unknown post hook")
	}
	o.Damage(nil)
}

// PostChain returns the handles of the default buffer and of every post
// hook buffer, in rendering order.
func (o *Output) PostChain() []framebuffer.Handle {
	return o.post.Chain()
}

// AutoRedraw enables or disables continuous redraw. Calls nest: each
// AutoRedraw(true) must be matched by an AutoRedraw(false). The count
// never drops below zero.
func (o *Output) AutoRedraw(enable bool) {
	if enable {
		o.autoRedraw++
	} else {
		o.autoRedraw--
	}
	if o.autoRedraw > 1 {
		return
	}
	if o.autoRedraw < 0 {
		Logger().Warn("compositor: unbalanced AutoRedraw(false)")
		o.autoRedraw = 0
		return
	}
	o.ScheduleRedraw()
}

// AutoRedrawing reports whether continuous redraw is active.
func (o *Output) AutoRedrawing() bool {
	return o.autoRedraw > 0
}

// AddInhibit suspends (add) or resumes rendering. While at least one
// inhibitor is active every frame is solid black. When the last inhibitor
// is removed the whole output is damaged and StartRendering is emitted.
func (o *Output) AddInhibit(add bool) {
	if add {
		o.inhibit++
		return
	}
	if o.inhibit == 0 {
		Logger().Warn("compositor: unbalanced AddInhibit(false)")
		return
	}
	o.inhibit--
	if o.inhibit == 0 {
		o.Damage(nil)
		o.startRendering.Emit(&RenderingEvent{Output: o})
	}
}

// Inhibited reports whether rendering is suspended.
func (o *Output) Inhibited() bool {
	return o.inhibit > 0
}

// StreamPre returns the signal emitted before a stream is composited.
func (o *Output) StreamPre() *events.Signal[StreamEvent] {
	return o.streamPre
}

// StreamPost returns the signal emitted after a stream is composited.
func (o *Output) StreamPost() *events.Signal[StreamEvent] {
	return o.streamPost
}

// StartRendering returns the signal emitted when rendering resumes.
func (o *Output) StartRendering() *events.Signal[RenderingEvent] {
	return o.startRendering
}

// State returns the paint state.
func (o *Output) State() State {
	return o.state
}

// Stats returns the frame counters.
func (o *Output) Stats() FrameStats {
	return o.stats
}

// RelativeGeometry returns the output rectangle in output-local logical
// coordinates.
func (o *Output) RelativeGeometry() image.Rectangle {
	w, h := o.backend.TransformedResolution()
	scale := o.scale()
	return image.Rect(0, 0, int(math.Round(float64(w)/scale)), int(math.Round(float64(h)/scale)))
}

func (o *Output) scale() float64 {
	s := o.backend.Scale()
	if s <= 0 {
		return 1
	}
	return s
}

// TargetFramebuffer returns the default framebuffer: the screen, or the
// input of the post-processing chain when post hooks are installed.
func (o *Output) TargetFramebuffer() framebuffer.Framebuffer {
	return o.framebufferOf(&o.defaultBuffer)
}

// framebufferOf describes b as a render destination of this output.
func (o *Output) framebufferOf(b *framebuffer.Buffer) framebuffer.Framebuffer {
	w, h := o.backend.Size()
	fb := framebuffer.Framebuffer{
		Handle:         b.FB,
		Target:         b.Target(),
		Geometry:       o.RelativeGeometry(),
		Transform:      o.backend.Transform(),
		Scale:          o.scale(),
		ViewportWidth:  w,
		ViewportHeight: h,
	}
	if b.IsScreen() {
		fb.Target = o.backend.Screen()
	}
	return fb
}
