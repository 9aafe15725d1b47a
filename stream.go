// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/compositor/framebuffer"
	"github.com/gogpu/compositor/region"
)

// Stream is the cached rendering of one workspace.
//
// A stream whose buffer is still the screen sentinel renders into the
// output's default buffer. Effects that need the contents of several
// workspaces at once give streams their own buffer with Buffer.Reset.
type Stream struct {
	// Workspace is the column and row of the workspace.
	Workspace image.Point

	// Buffer holds the rendered workspace.
	Buffer framebuffer.Buffer

	// Running reports whether the stream is being updated.
	Running bool

	// ScaleX and ScaleY are the render scale of the stream. Scaled
	// rendering is not supported; both stay 1.
	ScaleX, ScaleY float64
}

// damagedSurface is a surface to repaint in the current stream update.
type damagedSurface struct {
	surface Surface

	// x, y is the origin of the surface's coordinate space in the stream.
	x, y int

	damage region.Region
}

var clearColor = color.RGBA{A: 255}

// Stream returns the stream of workspace ws.
func (o *Output) Stream(ws image.Point) (*Stream, bool) {
	if ws.X < 0 || ws.X >= len(o.streams) {
		return nil, false
	}
	col := o.streams[ws.X]
	if ws.Y < 0 || ws.Y >= len(col) {
		return nil, false
	}
	return col[ws.Y], true
}

// CurrentStream returns the stream shown on the output, or nil before the
// first composited frame.
func (o *Output) CurrentStream() *Stream {
	return o.current
}

// workspaceBox returns the damage-space rectangle of ws relative to the
// current workspace.
func (o *Output) workspaceBox(ws image.Point) image.Rectangle {
	cur := o.workspaces.CurrentWorkspace()
	sw, sh := o.backend.TransformedResolution()
	x, y := (ws.X-cur.X)*sw, (ws.Y-cur.Y)*sh
	return image.Rect(x, y, x+sw, y+sh)
}

// takeStreamDamage moves the frame damage lying on ws into out, in
// stream-local coordinates.
func (o *Output) takeStreamDamage(ws image.Point, out *region.Region) {
	box := o.workspaceBox(ws)
	out.Copy(&o.frameDamage)
	out.IntersectRect(box)
	out.Translate(-box.Min.X, -box.Min.Y)
	o.frameDamage.SubtractRect(box)
}

// StartStream marks s running and repaints the whole workspace into it.
func (o *Output) StartStream(s *Stream) error {
	if s == nil || o.destroyed {
		return nil
	}
	s.Running = true
	s.ScaleX, s.ScaleY = 1, 1
	o.frameDamage.UnionRect(o.workspaceBox(s.Workspace))
	return o.UpdateStream(s)
}

// StopStream marks s not running. Its buffer is kept for a quick switch
// back.
func (o *Output) StopStream(s *Stream) {
	if s == nil {
		return
	}
	s.Running = false
}

// UpdateStream repaints the damaged part of s.
//
// The damage of the stream's workspace is taken out of the frame damage,
// so a second call without new damage does nothing. Visible views are
// walked front to back; opaque surfaces remove what they cover from the
// damage before the views below them are looked at. The remaining damage
// is cleared and the collected surfaces are drawn back to front, each
// clipped to its own damage.
//
// An error means the stream buffer could not be allocated. Nothing was
// drawn and the damage is handed back to the frame.
func (o *Output) UpdateStream(s *Stream) error {
	if s == nil || o.destroyed {
		return nil
	}

	var dmg region.Region
	o.takeStreamDamage(s.Workspace, &dmg)
	if dmg.Empty() {
		return nil
	}

	w, h := o.backend.Size()
	if err := s.Buffer.Allocate(o.device, w, h); err != nil {
		box := o.workspaceBox(s.Workspace)
		dmg.Translate(box.Min.X, box.Min.Y)
		o.frameDamage.Union(&dmg)
		return fmt.Errorf("stream %d,%d: %w", s.Workspace.X, s.Workspace.Y, err)
	}

	fb := o.TargetFramebuffer()
	if !s.Buffer.IsScreen() {
		fb = o.framebufferOf(&s.Buffer)
	}
	Logger().Debug("compositor: update stream",
		"workspace", s.Workspace, "fb", fb.Handle, "damage", dmg.String())

	o.streamPre.Emit(&StreamEvent{Workspace: s.Workspace, Damage: &dmg, Framebuffer: fb})

	g := o.RelativeGeometry()
	cur := o.workspaces.CurrentWorkspace()
	dx := g.Min.X + (s.Workspace.X-cur.X)*g.Dx()
	dy := g.Min.Y + (s.Workspace.Y-cur.Y)*g.Dy()

	toRender := o.collectSurfaces(s.Workspace, &dmg, dx, dy)

	if fb.Target != nil && dmg.NotEmpty() {
		rects := dmg.Rects()
		boxes := make([]image.Rectangle, len(rects))
		for i, rc := range rects {
			boxes[i] = fb.ScissorBox(rc)
		}
		fb.Target.Fill(clearColor, boxes...)
	}

	for i := len(toRender) - 1; i >= 0; i-- {
		ds := toRender[i]
		ds.surface.Render(&ds.damage, fb.WithOrigin(ds.x, ds.y))
	}

	if o.renderer == nil {
		for _, icon := range o.mappedDragIcons() {
			icon.SetOutput(nil)
		}
	}

	o.streamPost.Emit(&StreamEvent{Workspace: s.Workspace, Framebuffer: fb})
	return nil
}

// collectSurfaces builds the list of surfaces intersecting dmg, front
// first. dmg loses the area covered by opaque surfaces.
func (o *Output) collectSurfaces(ws image.Point, dmg *region.Region, dx, dy int) []*damagedSurface {
	scale := o.scale()
	var toRender []*damagedSurface

	addSnapshot := func(v View, vdx, vdy int) {
		box := framebuffer.ScaleBox(v.BoundingBox().Sub(image.Pt(vdx, vdy)), scale)
		ds := &damagedSurface{surface: v, x: vdx, y: vdy}
		ds.damage.Reset(box)
		ds.damage.Intersect(dmg)
		if ds.damage.NotEmpty() {
			toRender = append(toRender, ds)
		}
	}

	addSurface := func(surf Surface, x, y, vdx, vdy int) {
		if !surf.IsMapped() || dmg.Empty() {
			return
		}
		x -= vdx
		y -= vdy
		size := surf.Size()
		box := framebuffer.ScaleBox(image.Rect(x, y, x+size.X, y+size.Y), scale)

		ds := &damagedSurface{surface: surf, x: vdx, y: vdy}
		ds.damage.Reset(box)
		ds.damage.Intersect(dmg)
		if ds.damage.Empty() {
			return
		}
		if surf.Alpha() >= 0.999 {
			surf.SubtractOpaque(dmg, x, y)
		}
		toRender = append(toRender, ds)
	}

	if o.renderer == nil {
		for _, icon := range o.mappedDragIcons() {
			icon.SetOutput(o)
			icon.ForEachSurface(func(surf Surface, x, y int) {
				addSurface(surf, x, y, 0, 0)
			})
		}
	}

	views := o.workspaces.ViewsOnWorkspace(ws, AllLayers)
	for i := len(views) - 1; i >= 0 && dmg.NotEmpty(); i-- {
		v := views[i]
		if !v.IsVisible() {
			continue
		}

		vdx, vdy := 0, 0
		if v.Role() != RoleShellView {
			vdx, vdy = dx, dy
		}

		if v.HasTransformer() || !v.IsMapped() {
			addSnapshot(v, vdx, vdy)
			continue
		}
		v.ForEachSurface(func(surf Surface, x, y int) {
			addSurface(surf, x, y, vdx, vdy)
		})
	}
	return toRender
}

// mappedDragIcons returns the drag icons with content.
func (o *Output) mappedDragIcons() []DragIcon {
	if o.dragIcons == nil {
		return nil
	}
	var mapped []DragIcon
	for _, icon := range o.dragIcons() {
		if icon != nil && icon.IsMapped() {
			mapped = append(mapped, icon)
		}
	}
	return mapped
}
