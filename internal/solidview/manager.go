// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package solidview

import (
	"image"
	"image/color"

	"github.com/gogpu/compositor"
)

// layerOrder lists the layers bottom to top.
var layerOrder = []compositor.Layer{
	compositor.LayerBackground,
	compositor.LayerBottom,
	compositor.LayerWorkspace,
	compositor.LayerTop,
	compositor.LayerUnmanaged,
	compositor.LayerLock,
}

// Manager is a workspace manager over a fixed list of views.
type Manager struct {
	// Current is the visible workspace.
	Current image.Point

	// Width and Height are the logical output size, the distance between
	// two neighboring workspaces.
	Width, Height int

	views []*View
}

// NewManager creates a manager for an output of the given logical size.
func NewManager(width, height int) *Manager {
	return &Manager{Width: width, Height: height}
}

// Add creates a visible, mapped toplevel on ws at pos and stacks it on top
// of its layer.
func (m *Manager) Add(ws image.Point, pos image.Point, c color.RGBA, w, h int) *View {
	v := &View{
		Surface:   NewSurface(c, w, h),
		Pos:       pos,
		Workspace: ws,
		Layer:     compositor.LayerWorkspace,
		Visible:   true,
		mgr:       m,
	}
	m.views = append(m.views, v)
	return v
}

// AddShell creates a panel or background on layer, shown on every
// workspace.
func (m *Manager) AddShell(layer compositor.Layer, pos image.Point, c color.RGBA, w, h int) *View {
	v := m.Add(image.Point{}, pos, c, w, h)
	v.Layer = layer
	v.ViewRole = compositor.RoleShellView
	return v
}

// Remove drops v from the manager.
func (m *Manager) Remove(v *View) {
	for i, x := range m.views {
		if x == v {
			m.views = append(m.views[:i], m.views[i+1:]...)
			return
		}
	}
}

// Raise moves v to the top of its layer.
func (m *Manager) Raise(v *View) {
	m.Remove(v)
	m.views = append(m.views, v)
}

// Views returns every view in insertion order.
func (m *Manager) Views() []*View {
	return m.views
}

func (m *Manager) workspaceOffset(ws image.Point) image.Point {
	d := ws.Sub(m.Current)
	return image.Pt(d.X*m.Width, d.Y*m.Height)
}

// CurrentWorkspace returns the visible workspace.
func (m *Manager) CurrentWorkspace() image.Point {
	return m.Current
}

// ViewsOnWorkspace returns the views on ws within layers, back to front.
func (m *Manager) ViewsOnWorkspace(ws image.Point, layers compositor.Layer) []compositor.View {
	var out []compositor.View
	for _, layer := range layerOrder {
		if layers&layer == 0 {
			continue
		}
		for _, v := range m.views {
			if v.Layer != layer {
				continue
			}
			if v.ViewRole != compositor.RoleShellView && v.Workspace != ws {
				continue
			}
			out = append(out, v)
		}
	}
	return out
}

// ForEachView calls fn for every view within layers, back to front.
func (m *Manager) ForEachView(layers compositor.Layer, fn func(compositor.View)) {
	for _, layer := range layerOrder {
		if layers&layer == 0 {
			continue
		}
		for _, v := range m.views {
			if v.Layer == layer {
				fn(v)
			}
		}
	}
}

var _ compositor.WorkspaceManager = (*Manager)(nil)
