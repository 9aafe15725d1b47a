// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package osd draws frame statistics on top of an output.
//
// The display is an overlay effect: it is drawn into the target
// framebuffer after the workspace has been composited. The text is
// refreshed at most once per interval, and only then is its box damaged,
// so an idle output stays idle.
package osd

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/effects"
	"github.com/gogpu/compositor/framebuffer"
)

const padding = 2

// Option configures an OSD.
type Option func(*OSD)

// WithPosition places the top-left corner of the display at p, in output
// pixels.
func WithPosition(p image.Point) Option {
	return func(d *OSD) {
		d.pos = p
	}
}

// WithInterval sets the minimum time between text refreshes. The default
// is 500ms.
func WithInterval(interval time.Duration) Option {
	return func(d *OSD) {
		d.interval = max(interval, 0)
	}
}

// WithColors sets the text and background colors.
func WithColors(fg, bg color.RGBA) Option {
	return func(d *OSD) {
		d.fg, d.bg = fg, bg
	}
}

// WithClock sets the time source.
func WithClock(clock func() time.Time) Option {
	return func(d *OSD) {
		if clock != nil {
			d.clock = clock
		}
	}
}

// OSD is an on-screen display of frame statistics.
//
// OSD is NOT thread-safe; it runs on the compositor main loop.
type OSD struct {
	out  *compositor.Output
	face font.Face

	pos      image.Point
	interval time.Duration
	fg, bg   color.RGBA
	clock    func() time.Time

	text    string
	box     image.Rectangle
	updated time.Time

	overlay effects.Hook
	post    effects.Hook
}

// New creates a display. Attach it to an output to show it.
func New(opts ...Option) *OSD {
	d := &OSD{
		face:     basicfont.Face7x13,
		pos:      image.Pt(4, 4),
		interval: 500 * time.Millisecond,
		fg:       color.RGBA{R: 255, G: 255, B: 255, A: 255},
		bg:       color.RGBA{A: 200},
		clock:    time.Now,
	}
	for _, opt := range opts {
		opt(d)
	}
	d.overlay = d.draw
	d.post = d.refresh
	return d
}

// Attach shows the display on o. A display is attached to at most one
// output; attaching again moves it.
func (d *OSD) Attach(o *compositor.Output) {
	d.Detach()
	d.out = o
	o.AddEffect(&d.overlay, effects.Overlay)
	o.AddEffect(&d.post, effects.Post)
	d.setText(Format(o.Stats()))
}

// Detach removes the display from its output and damages the area it
// covered.
func (d *OSD) Detach() {
	if d.out == nil {
		return
	}
	d.out.RemoveEffect(&d.overlay, effects.Overlay)
	d.out.RemoveEffect(&d.post, effects.Post)
	d.out.DamageBox(d.box)
	d.out = nil
	d.box = image.Rectangle{}
}

// Text returns the text currently shown.
func (d *OSD) Text() string {
	return d.text
}

// Box returns the area covered by the display, in output pixels.
func (d *OSD) Box() image.Rectangle {
	return d.box
}

// Format renders frame statistics as one line of text.
func Format(s compositor.FrameStats) string {
	return fmt.Sprintf("frames %d  drawn %d  skipped %d  failed %d  damage %dpx",
		s.Frames, s.Composited, s.Skipped, s.Failed, s.LastDamageArea)
}

// setText changes the text and damages the old and new boxes.
func (d *OSD) setText(text string) {
	old := d.box
	d.text = text
	d.updated = d.clock()

	m := d.face.Metrics()
	w := font.MeasureString(d.face, text).Ceil()
	h := (m.Ascent + m.Descent).Ceil()
	d.box = image.Rect(d.pos.X, d.pos.Y, d.pos.X+w+2*padding, d.pos.Y+h+2*padding)

	d.out.DamageBox(old.Union(d.box))
}

// refresh runs after every frame.
func (d *OSD) refresh() {
	if d.out == nil {
		return
	}
	if d.clock().Sub(d.updated) < d.interval {
		return
	}
	if text := Format(d.out.Stats()); text != d.text {
		d.setText(text)
	}
}

// draw runs after the workspace has been composited.
func (d *OSD) draw() {
	if d.out == nil || d.box.Empty() {
		return
	}
	fb := d.out.TargetFramebuffer()
	pt, ok := fb.Target.(framebuffer.PixelTarget)
	if !ok {
		return
	}
	pt.Fill(d.bg, d.box)

	dr := font.Drawer{
		Dst:  pt.Image(),
		Src:  image.NewUniform(d.fg),
		Face: d.face,
		Dot:  fixed.P(d.box.Min.X+padding, d.box.Min.Y+padding+d.face.Metrics().Ascent.Ceil()),
	}
	dr.DrawString(d.text)
}
