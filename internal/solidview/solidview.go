// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package solidview provides solid-color views, surfaces and a workspace
// manager. The simulator uses them as stand-in clients and the tests use
// them to check what was drawn, where and how often.
package solidview

import (
	"image"
	"image/color"
	"time"

	"golang.org/x/image/draw"

	"github.com/gogpu/compositor"
	"github.com/gogpu/compositor/framebuffer"
	"github.com/gogpu/compositor/region"
)

// Surface is a rectangle of one color.
type Surface struct {
	Color  color.RGBA
	W, H   int
	Mapped bool

	// Opacity is the surface alpha; zero is treated as fully opaque.
	Opacity float64

	// Renders counts Render calls; FrameDone counts SendFrameDone calls.
	Renders   int
	FrameDone int
	LastFrame time.Time

	// LastDamage is the damage of the last Render call.
	LastDamage region.Region
}

// NewSurface creates a mapped, opaque surface.
func NewSurface(c color.RGBA, w, h int) *Surface {
	return &Surface{Color: c, W: w, H: h, Mapped: true}
}

// IsMapped reports whether the surface has content.
func (s *Surface) IsMapped() bool { return s.Mapped }

// Size returns the surface size.
func (s *Surface) Size() image.Point { return image.Pt(s.W, s.H) }

// Alpha returns the surface opacity.
func (s *Surface) Alpha() float64 {
	if s.Opacity <= 0 {
		return 1
	}
	return s.Opacity
}

// SubtractOpaque removes the surface placed at (x, y) from r when it is
// opaque.
func (s *Surface) SubtractOpaque(r *region.Region, x, y int) {
	if s.Alpha() < 1 {
		return
	}
	r.SubtractRect(image.Rect(x, y, x+s.W, y+s.H))
}

// SendFrameDone records the frame done event.
func (s *Surface) SendFrameDone(t time.Time) {
	s.FrameDone++
	s.LastFrame = t
}

// Render is a no-op for a bare surface; views place their surfaces with
// renderAt.
func (s *Surface) Render(dmg *region.Region, fb framebuffer.Framebuffer) {
	s.Renders++
	s.LastDamage = dmg.Clone()
}

// renderAt draws the surface with its top-left corner at the logical
// position (x, y), inside dmg.
func (s *Surface) renderAt(x, y int, dmg *region.Region, fb framebuffer.Framebuffer) {
	s.Renders++
	s.LastDamage = dmg.Clone()
	if fb.Target == nil {
		return
	}

	origin := image.Pt(x, y).Sub(fb.Geometry.Min)
	box := framebuffer.ScaleBox(image.Rect(origin.X, origin.Y, origin.X+s.W, origin.Y+s.H), fb.Scale)
	clip := dmg.Clone()
	clip.IntersectRect(box)
	if clip.Empty() {
		return
	}

	if s.Alpha() >= 1 {
		rects := clip.Rects()
		boxes := make([]image.Rectangle, len(rects))
		for i, rc := range rects {
			boxes[i] = fb.ScissorBox(rc)
		}
		fb.Target.Fill(s.Color, boxes...)
		return
	}

	pt, ok := fb.Target.(framebuffer.PixelTarget)
	if !ok {
		return
	}
	a := s.Alpha()
	src := image.NewUniform(color.RGBA{
		R: uint8(float64(s.Color.R) * a),
		G: uint8(float64(s.Color.G) * a),
		B: uint8(float64(s.Color.B) * a),
		A: uint8(255 * a),
	})
	for _, rc := range clip.Rects() {
		draw.Draw(pt.Image(), fb.ScissorBox(rc), src, image.Point{}, draw.Over)
	}
}

// Sub is a subsurface placed relative to its parent view.
type Sub struct {
	*Surface
	Offset image.Point
}

// View is a toplevel made of a main surface and optional subsurfaces.
type View struct {
	*Surface

	// Pos is the position inside the view's workspace, or inside the
	// output for shell views.
	Pos image.Point

	// Workspace is the workspace the view lives on. Shell views are shown
	// on every workspace.
	Workspace image.Point

	Layer       compositor.Layer
	ViewRole    compositor.ViewRole
	Visible     bool
	Transformed bool

	// Subs are drawn above the main surface, last on top.
	Subs []Sub

	mgr *Manager
}

// IsVisible reports whether the view should be drawn.
func (v *View) IsVisible() bool { return v.Visible }

// HasTransformer reports whether the view is drawn as a snapshot.
func (v *View) HasTransformer() bool { return v.Transformed }

// Role returns the view role.
func (v *View) Role() compositor.ViewRole { return v.ViewRole }

// Origin returns the output-local position of the view.
func (v *View) Origin() image.Point {
	if v.ViewRole == compositor.RoleShellView || v.mgr == nil {
		return v.Pos
	}
	return v.Pos.Add(v.mgr.workspaceOffset(v.Workspace))
}

// BoundingBox returns the area covered by the view and its subsurfaces.
func (v *View) BoundingBox() image.Rectangle {
	o := v.Origin()
	box := image.Rect(o.X, o.Y, o.X+v.W, o.Y+v.H)
	for _, sub := range v.Subs {
		p := o.Add(sub.Offset)
		box = box.Union(image.Rect(p.X, p.Y, p.X+sub.W, p.Y+sub.H))
	}
	return box
}

// ForEachSurface visits the subsurfaces top-most first, then the main
// surface.
func (v *View) ForEachSurface(fn func(s compositor.Surface, x, y int)) {
	o := v.Origin()
	for i := len(v.Subs) - 1; i >= 0; i-- {
		sub := v.Subs[i]
		p := o.Add(sub.Offset)
		fn(&placed{Surface: sub.Surface, x: p.X, y: p.Y}, p.X, p.Y)
	}
	fn(&placed{Surface: v.Surface, x: o.X, y: o.Y}, o.X, o.Y)
}

// Render draws the whole view, as used for snapshots.
func (v *View) Render(dmg *region.Region, fb framebuffer.Framebuffer) {
	o := v.Origin()
	v.Surface.renderAt(o.X, o.Y, dmg, fb)
	for _, sub := range v.Subs {
		p := o.Add(sub.Offset)
		sub.Surface.renderAt(p.X, p.Y, dmg, fb)
	}
}

// placed binds a surface to its output-local position for rendering.
type placed struct {
	*Surface
	x, y int
}

func (p *placed) Render(dmg *region.Region, fb framebuffer.Framebuffer) {
	p.Surface.renderAt(p.x, p.y, dmg, fb)
}

// Icon is a drag-and-drop icon following the pointer.
type Icon struct {
	*Surface
	Pos    image.Point
	Output *compositor.Output
}

// SetOutput records the output the icon is drawn on.
func (i *Icon) SetOutput(o *compositor.Output) { i.Output = o }

// ForEachSurface visits the icon surface.
func (i *Icon) ForEachSurface(fn func(s compositor.Surface, x, y int)) {
	fn(&placed{Surface: i.Surface, x: i.Pos.X, y: i.Pos.Y}, i.Pos.X, i.Pos.Y)
}

var (
	_ compositor.View     = (*View)(nil)
	_ compositor.DragIcon = (*Icon)(nil)
	_ compositor.Surface  = (*Surface)(nil)
)
