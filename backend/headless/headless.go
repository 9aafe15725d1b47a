// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package headless provides an in-memory display backend.
//
// The screen is a CPU pixmap. Frame callbacks are queued on an event loop
// and run when the loop is dispatched, swaps are recorded as
// presentations, and a software cursor is composited into the damaged part
// of the frame. The backend drives the compositor simulator and serves as
// the display of choice for tests.
package headless

import (
	"fmt"
	"image"
	"time"

	"golang.org/x/image/draw"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/eventloop"
	"github.com/gogpu/compositor/framebuffer"
	"github.com/gogpu/compositor/internal/rlog"
	"github.com/gogpu/compositor/region"
)

func init() {
	backend.Register(backend.BackendHeadless, func(cfg backend.Config) (backend.DisplayBackend, error) {
		return NewFromConfig(cfg), nil
	})
}

// Presentation records one buffer swap.
type Presentation struct {
	// Seq is the 1-based number of the swap.
	Seq uint64

	// When is the time the repaint started.
	When time.Time

	// Damage is the part of the screen that changed.
	Damage region.Region
}

// Backend is an in-memory display.
//
// Backend is NOT thread-safe; it runs on the compositor main loop.
type Backend struct {
	width, height int
	scale         float64
	transform     framebuffer.Transform

	screen *framebuffer.PixmapTarget
	loop   *eventloop.Loop

	pending     region.Region
	needsFrame  bool
	frameQueued func()

	listeners []*frameListener
	onPresent []func(*Presentation)

	presentations []Presentation
	keep          int
	seq           uint64

	cursor    image.Image
	hotspot   image.Point
	cursorPos image.Point
	cursorOn  bool

	makeErr error
	swapErr error
	closed  bool
}

type frameListener struct {
	fn func()
}

// Option configures a headless backend.
type Option func(*Backend)

// WithEventLoop queues frame callbacks on l. Without a loop, ScheduleFrame
// only records the request and the caller runs frames with Frame.
func WithEventLoop(l *eventloop.Loop) Option {
	return func(b *Backend) {
		b.loop = l
	}
}

// WithScale sets the output scale factor.
func WithScale(scale float64) Option {
	return func(b *Backend) {
		if scale > 0 {
			b.scale = scale
		}
	}
}

// WithTransform sets the output transform.
func WithTransform(t framebuffer.Transform) Option {
	return func(b *Backend) {
		b.transform = t
	}
}

// WithHistory sets how many presentations are kept. The default is 16;
// zero keeps none.
func WithHistory(n int) Option {
	return func(b *Backend) {
		b.keep = max(n, 0)
	}
}

// New creates a headless display of width×height pixels.
func New(width, height int, opts ...Option) *Backend {
	b := &Backend{
		width:  max(width, 0),
		height: max(height, 0),
		scale:  1,
		keep:   16,
	}
	for _, opt := range opts {
		opt(b)
	}
	b.screen = framebuffer.NewPixmapTarget(framebuffer.Screen, b.width, b.height)
	return b
}

// NewFromConfig creates a headless display from a backend configuration.
func NewFromConfig(cfg backend.Config) *Backend {
	return New(cfg.Width, cfg.Height,
		WithEventLoop(cfg.Loop),
		WithScale(cfg.Scale),
		WithTransform(cfg.Transform))
}

// Name returns "headless".
func (b *Backend) Name() string {
	return backend.BackendHeadless
}

// Close stops frame delivery. Close is idempotent.
func (b *Backend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	if b.frameQueued != nil {
		b.frameQueued()
		b.frameQueued = nil
	}
	b.listeners = nil
	return nil
}

// Size returns the mode size in pixels.
func (b *Backend) Size() (int, int) {
	return b.width, b.height
}

// Scale returns the output scale factor.
func (b *Backend) Scale() float64 {
	return b.scale
}

// Transform returns the output transform.
func (b *Backend) Transform() framebuffer.Transform {
	return b.transform
}

// TransformedResolution returns the output size after the transform.
func (b *Backend) TransformedResolution() (int, int) {
	return b.transform.TransformedSize(b.width, b.height)
}

// Screen returns the scanout pixmap.
func (b *Backend) Screen() framebuffer.Target {
	return b.screen
}

// Pixels returns the scanout pixmap with its concrete type.
func (b *Backend) Pixels() *framebuffer.PixmapTarget {
	return b.screen
}

// Resize changes the mode, clears the screen and damages all of it.
func (b *Backend) Resize(width, height int) {
	b.width, b.height = max(width, 0), max(height, 0)
	b.screen.Resize(b.width, b.height)
	b.pending.Clear()
	b.damageAll()
}

func (b *Backend) outputRect() image.Rectangle {
	w, h := b.TransformedResolution()
	return image.Rect(0, 0, w, h)
}

func (b *Backend) damageAll() {
	r := region.New(b.outputRect())
	b.AddDamage(&r)
	b.ScheduleFrame()
}

// AddDamage adds the part of r inside the output to the pending damage.
func (b *Backend) AddDamage(r *region.Region) {
	if r == nil {
		return
	}
	c := r.Clone()
	c.IntersectRect(b.outputRect())
	b.pending.Union(&c)
}

// PendingDamage returns a copy of the damage not yet presented.
func (b *Backend) PendingDamage() region.Region {
	return b.pending.Clone()
}

// SetNeedsFrame forces the next frame to swap even without damage, the
// way a mode set or a hardware cursor change does.
func (b *Backend) SetNeedsFrame() {
	b.needsFrame = true
	b.ScheduleFrame()
}

// FailNextMakeCurrent makes the next MakeCurrent return err.
func (b *Backend) FailNextMakeCurrent(err error) {
	b.makeErr = err
}

// FailNextSwap makes the next SwapBuffers return err.
func (b *Backend) FailNextSwap(err error) {
	b.swapErr = err
}

// MakeCurrent stores the pending damage in out and reports whether a swap
// is needed.
func (b *Backend) MakeCurrent(out *region.Region) (bool, error) {
	if err := b.makeErr; err != nil {
		b.makeErr = nil
		return false, fmt.Errorf("headless: make current: %w", err)
	}
	if b.width <= 0 || b.height <= 0 {
		return false, nil
	}
	out.Union(&b.pending)
	return b.pending.NotEmpty() || b.needsFrame, nil
}

// SwapBuffers records a presentation and clears the pending damage.
func (b *Backend) SwapBuffers(when time.Time, dmg *region.Region) error {
	if err := b.swapErr; err != nil {
		b.swapErr = nil
		return fmt.Errorf("headless: swap: %w", err)
	}
	b.seq++
	p := Presentation{Seq: b.seq, When: when}
	if dmg != nil {
		p.Damage = dmg.Clone()
	}
	b.pending.Clear()
	b.needsFrame = false

	if b.keep > 0 {
		if len(b.presentations) == b.keep {
			copy(b.presentations, b.presentations[1:])
			b.presentations = b.presentations[:b.keep-1]
		}
		b.presentations = append(b.presentations, p)
	}
	rlog.Logger().Debug("headless: present", "seq", p.Seq, "damage", p.Damage.String())

	for _, fn := range b.onPresent {
		fn(&p)
	}
	return nil
}

// Presentations returns the most recent presentations, oldest first.
func (b *Backend) Presentations() []Presentation {
	return b.presentations
}

// PresentCount returns the number of swaps since creation.
func (b *Backend) PresentCount() uint64 {
	return b.seq
}

// OnPresent registers fn to run after every swap.
func (b *Backend) OnPresent(fn func(*Presentation)) {
	if fn != nil {
		b.onPresent = append(b.onPresent, fn)
	}
}

// ScheduleFrame queues a frame callback on the event loop. Requests made
// while a callback is queued are coalesced.
func (b *Backend) ScheduleFrame() {
	if b.closed || b.loop == nil || b.frameQueued != nil {
		return
	}
	b.frameQueued = b.loop.AddIdle(func() {
		b.frameQueued = nil
		b.Frame()
	})
}

// FramePending reports whether a frame callback is queued.
func (b *Backend) FramePending() bool {
	return b.frameQueued != nil
}

// Frame runs the frame callbacks now.
func (b *Backend) Frame() {
	if b.closed {
		return
	}
	snapshot := append([]*frameListener(nil), b.listeners...)
	for _, l := range snapshot {
		if l.fn != nil {
			l.fn()
		}
	}
}

// OnFrame registers fn as a frame callback.
func (b *Backend) OnFrame(fn func()) func() {
	l := &frameListener{fn: fn}
	b.listeners = append(b.listeners, l)
	return func() {
		l.fn = nil
		for i, x := range b.listeners {
			if x == l {
				b.listeners = append(b.listeners[:i], b.listeners[i+1:]...)
				return
			}
		}
	}
}

// SetCursor sets the software cursor image. A nil image hides the cursor.
func (b *Backend) SetCursor(img image.Image, hotspot image.Point) {
	b.damageCursor()
	b.cursor = img
	b.hotspot = hotspot
	b.cursorOn = img != nil
	b.damageCursor()
}

// MoveCursor moves the cursor hotspot to (x, y) in output pixels.
func (b *Backend) MoveCursor(x, y int) {
	if b.cursorPos == image.Pt(x, y) {
		return
	}
	b.damageCursor()
	b.cursorPos = image.Pt(x, y)
	b.damageCursor()
}

// CursorBox returns the area covered by the cursor, or the empty rectangle
// when it is hidden.
func (b *Backend) CursorBox() image.Rectangle {
	if !b.cursorOn || b.cursor == nil {
		return image.Rectangle{}
	}
	origin := b.cursorPos.Sub(b.hotspot)
	return b.cursor.Bounds().Sub(b.cursor.Bounds().Min).Add(origin)
}

func (b *Backend) damageCursor() {
	box := b.CursorBox()
	if box.Empty() {
		return
	}
	r := region.New(box)
	b.AddDamage(&r)
	b.ScheduleFrame()
}

// RenderSoftwareCursors draws the cursor into the damaged part of fb.
func (b *Backend) RenderSoftwareCursors(fb framebuffer.Framebuffer, dmg *region.Region) {
	box := b.CursorBox()
	if box.Empty() || dmg == nil {
		return
	}
	pt, ok := fb.Target.(framebuffer.PixelTarget)
	if !ok {
		return
	}
	clip := dmg.Clone()
	clip.IntersectRect(box)
	dst := pt.Image()
	src := b.cursor.Bounds().Min
	for _, rc := range clip.Rects() {
		sp := src.Add(rc.Min.Sub(box.Min))
		draw.Draw(dst, rc, b.cursor, sp, draw.Over)
	}
}

var _ compositor.Backend = (*Backend)(nil)
var _ backend.DisplayBackend = (*Backend)(nil)
