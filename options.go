// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"time"

	"github.com/gogpu/compositor/eventloop"
	"github.com/gogpu/compositor/framebuffer"
)

// OutputOption configures an Output during creation.
//
// Example:
//
//	out, err := compositor.NewOutput(be, wm,
//	    compositor.WithWorkspaceGrid(3, 3),
//	    compositor.WithDevice(framebuffer.NewPixmapDevice()),
//	)
type OutputOption func(*outputOptions)

// outputOptions holds optional configuration for Output creation.
type outputOptions struct {
	cols, rows  int
	device      framebuffer.Device
	loop        EventLoop
	tracking    bool
	damageDebug bool
	clock       func() time.Time
	dragIcons   func() []DragIcon
}

// defaultOptions returns the default output options.
func defaultOptions() outputOptions {
	return outputOptions{
		cols:     3,
		rows:     3,
		tracking: true,
		clock:    time.Now,
	}
}

// WithWorkspaceGrid sets the size of the virtual desktop. One workspace
// stream is created per cell. The default grid is 3×3.
func WithWorkspaceGrid(cols, rows int) OutputOption {
	return func(o *outputOptions) {
		o.cols, o.rows = cols, rows
	}
}

// WithDevice sets the device creating offscreen buffers for workspace
// streams and post-processing. The default is a framebuffer.PixmapDevice.
//
// For GPU rendering pass a framebuffer.HALDevice created from the host's
// device provider:
//
//	dev, err := framebuffer.NewHALDevice(provider, gputypes.TextureFormatBGRA8Unorm)
//	out, err := compositor.NewOutput(be, wm, compositor.WithDevice(dev))
//
// Post hooks then receive texture targets; postfx effects render them with
// a GPU pass on the same device.
func WithDevice(dev framebuffer.Device) OutputOption {
	return func(o *outputOptions) {
		o.device = dev
	}
}

// WithEventLoop sets the loop running idle callbacks. Without it the
// output creates a private *eventloop.Loop, returned by Output.EventLoop,
// which the caller must dispatch.
func WithEventLoop(l EventLoop) OutputOption {
	return func(o *outputOptions) {
		o.loop = l
	}
}

// WithDamageTracking enables or disables damage tracking. With tracking
// disabled every frame repaints the whole output, which is useful to tell
// damage bugs apart from rendering bugs.
func WithDamageTracking(enabled bool) OutputOption {
	return func(o *outputOptions) {
		o.tracking = enabled
	}
}

// WithDamageDebug fills the screen with yellow before every repaint so
// that the parts not redrawn stand out.
func WithDamageDebug(enabled bool) OutputOption {
	return func(o *outputOptions) {
		o.damageDebug = enabled
	}
}

// WithClock sets the time source for presentation and frame done
// timestamps. The default is time.Now.
func WithClock(now func() time.Time) OutputOption {
	return func(o *outputOptions) {
		if now != nil {
			o.clock = now
		}
	}
}

// WithDragIcons sets the source of drag-and-drop icons. Mapped icons are
// composited above every view.
func WithDragIcons(icons func() []DragIcon) OutputOption {
	return func(o *outputOptions) {
		o.dragIcons = icons
	}
}

// ensureLoop fills in the private loop when none was configured.
func (o *outputOptions) ensureLoop() {
	if o.loop == nil {
		o.loop = eventloop.New()
	}
}
