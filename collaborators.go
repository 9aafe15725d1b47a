// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"image"
	"time"

	"github.com/gogpu/compositor/damage"
	"github.com/gogpu/compositor/framebuffer"
	"github.com/gogpu/compositor/region"
)

// Backend is the display backend of one output.
type Backend interface {
	damage.Backend

	// Size returns the mode size in pixels, before the output transform.
	Size() (width, height int)

	// Scale returns the output scale factor.
	Scale() float64

	// Transform returns the output transform.
	Transform() framebuffer.Transform

	// Screen returns the scanout target. Its handle is framebuffer.Screen.
	Screen() framebuffer.Target

	// RenderSoftwareCursors draws cursors the hardware cannot show into
	// the damaged part of fb.
	RenderSoftwareCursors(fb framebuffer.Framebuffer, damage *region.Region)

	// OnFrame registers fn to run whenever the backend is ready for a new
	// frame. The returned function unregisters it.
	OnFrame(fn func()) (cancel func())
}

// EventLoop queues deferred work on the compositor main loop.
type EventLoop interface {
	// AddIdle runs fn the next time the loop is idle. The returned
	// function removes fn if it has not run yet.
	AddIdle(fn func()) (cancel func())
}

// Layer is a bitmask of view stacking layers.
type Layer uint32

// Stacking layers, bottom to top.
const (
	LayerBackground Layer = 1 << iota
	LayerBottom
	LayerWorkspace
	LayerTop
	LayerUnmanaged
	LayerLock
)

// Layer groups.
const (
	// BelowLayers hold backgrounds and panels drawn under windows.
	BelowLayers = LayerBackground | LayerBottom

	// MiddleLayers hold regular windows.
	MiddleLayers = LayerWorkspace

	// AboveLayers hold panels, override-redirect windows and lock screens.
	AboveLayers = LayerTop | LayerUnmanaged | LayerLock

	// AllLayers selects every layer.
	AllLayers = BelowLayers | MiddleLayers | AboveLayers
)

// ViewRole tells how a view is positioned.
type ViewRole uint8

const (
	// RoleToplevel is a regular window, positioned on a workspace.
	RoleToplevel ViewRole = iota

	// RoleUnmanaged is an override-redirect window.
	RoleUnmanaged

	// RoleShellView is a panel or background, positioned relative to the
	// output and shown on every workspace.
	RoleShellView
)

// Surface is a client buffer that can draw itself.
type Surface interface {
	// IsMapped reports whether the surface has content.
	IsMapped() bool

	// Size returns the surface size in logical units.
	Size() image.Point

	// Alpha returns the surface opacity in [0, 1].
	Alpha() float64

	// SubtractOpaque removes the opaque part of the surface, placed at
	// (x, y), from r.
	SubtractOpaque(r *region.Region, x, y int)

	// Render draws the surface into fb, touching only pixels in damage.
	// fb.Geometry.Min is the origin of the surface's coordinate space in
	// the buffer.
	Render(damage *region.Region, fb framebuffer.Framebuffer)

	// SendFrameDone tells the client its last frame was presented.
	SendFrameDone(t time.Time)
}

// View is a toplevel drawable: a surface tree with a position and a
// stacking layer.
type View interface {
	Surface

	// IsVisible reports whether the view should be drawn. A view can be
	// visible but unmapped while an effect keeps its snapshot alive.
	IsVisible() bool

	// HasTransformer reports whether the view is drawn with a visual
	// transform, in which case it is rendered as a whole.
	HasTransformer() bool

	// BoundingBox returns the area the view covers, transforms included,
	// in output-local logical coordinates.
	BoundingBox() image.Rectangle

	// Role returns how the view is positioned.
	Role() ViewRole

	// ForEachSurface calls fn for the view and its subsurfaces, top-most
	// first, with output-local logical positions.
	ForEachSurface(fn func(s Surface, x, y int))
}

// DragIcon is the icon following the pointer during drag and drop.
type DragIcon interface {
	IsMapped() bool

	// SetOutput moves the icon to an output; nil detaches it.
	SetOutput(o *Output)

	// ForEachSurface calls fn for the icon surfaces with output-local
	// logical positions.
	ForEachSurface(fn func(s Surface, x, y int))
}

// WorkspaceManager knows which views live on which workspace.
type WorkspaceManager interface {
	// CurrentWorkspace returns the column and row of the visible
	// workspace.
	CurrentWorkspace() image.Point

	// ViewsOnWorkspace returns the views on ws within layers, ordered
	// back to front.
	ViewsOnWorkspace(ws image.Point, layers Layer) []View

	// ForEachView calls fn for every view of the output within layers.
	ForEachView(layers Layer, fn func(View))
}

// Renderer replaces workspace compositing for a frame. It draws the whole
// output into fb.
type Renderer func(fb framebuffer.Framebuffer)

// StreamEvent is the payload of the StreamPre and StreamPost signals.
type StreamEvent struct {
	// Workspace is the workspace the stream shows.
	Workspace image.Point

	// Damage is the stream-local region about to be repainted. It is nil
	// for StreamPost.
	Damage *region.Region

	// Framebuffer is the buffer the stream renders into.
	Framebuffer framebuffer.Framebuffer
}

// RenderingEvent is the payload of the StartRendering signal.
type RenderingEvent struct {
	Output *Output
}
