// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package region

import (
	"fmt"
	"image"
	"strings"
)

// Region is a normalized set of disjoint rectangles.
//
// The zero value is an empty region ready to use.
type Region struct {
	rects []image.Rectangle
}

// New creates a region covering the union of the given rectangles.
// Empty rectangles are ignored.
func New(rects ...image.Rectangle) Region {
	var r Region
	if len(rects) == 0 {
		return r
	}
	r.rects = combine(nil, rects, opUnion)
	return r
}

// FromRect creates a region covering a single rectangle.
func FromRect(x, y, width, height int) Region {
	return New(image.Rect(x, y, x+width, y+height))
}

// Empty reports whether the region covers no pixels.
func (r *Region) Empty() bool {
	return len(r.rects) == 0
}

// NotEmpty reports whether the region covers at least one pixel.
func (r *Region) NotEmpty() bool {
	return len(r.rects) != 0
}

// Rects returns the normalized rectangles of the region.
// The returned slice must not be modified by the caller.
func (r *Region) Rects() []image.Rectangle {
	return r.rects
}

// Len returns the number of rectangles in the normalized representation.
func (r *Region) Len() int {
	return len(r.rects)
}

// Extents returns the bounding box of the region.
// Returns the zero rectangle for an empty region.
func (r *Region) Extents() image.Rectangle {
	if len(r.rects) == 0 {
		return image.Rectangle{}
	}
	ext := r.rects[0]
	for _, rc := range r.rects[1:] {
		ext = ext.Union(rc)
	}
	return ext
}

// Area returns the number of pixels covered by the region.
func (r *Region) Area() int {
	area := 0
	for _, rc := range r.rects {
		area += rc.Dx() * rc.Dy()
	}
	return area
}

// Clear empties the region, keeping its storage for reuse.
func (r *Region) Clear() {
	r.rects = r.rects[:0]
}

// Copy makes r cover exactly the pixels of src.
func (r *Region) Copy(src *Region) {
	if r == src {
		return
	}
	r.rects = append(r.rects[:0], src.rects...)
}

// Clone returns an independent copy of the region.
func (r *Region) Clone() Region {
	var c Region
	c.Copy(r)
	return c
}

// Reset makes the region cover exactly one rectangle.
func (r *Region) Reset(rect image.Rectangle) {
	r.rects = r.rects[:0]
	if !rect.Empty() {
		r.rects = append(r.rects, rect.Canon())
	}
}

// UnionRect adds a rectangle to the region.
func (r *Region) UnionRect(rect image.Rectangle) {
	if rect.Empty() {
		return
	}
	if len(r.rects) == 0 {
		r.rects = append(r.rects, rect.Canon())
		return
	}
	r.rects = combine(r.rects, []image.Rectangle{rect}, opUnion)
}

// Union adds every pixel of o to the region.
func (r *Region) Union(o *Region) {
	if len(o.rects) == 0 {
		return
	}
	if len(r.rects) == 0 {
		r.Copy(o)
		return
	}
	r.rects = combine(r.rects, o.rects, opUnion)
}

// IntersectRect keeps only the pixels of the region inside rect.
func (r *Region) IntersectRect(rect image.Rectangle) {
	if rect.Empty() {
		r.Clear()
		return
	}
	if len(r.rects) == 0 {
		return
	}
	r.rects = combine(r.rects, []image.Rectangle{rect}, opIntersect)
}

// Intersect keeps only the pixels of the region that are also in o.
func (r *Region) Intersect(o *Region) {
	if len(o.rects) == 0 {
		r.Clear()
		return
	}
	if len(r.rects) == 0 || r == o {
		return
	}
	r.rects = combine(r.rects, o.rects, opIntersect)
}

// SubtractRect removes the pixels inside rect from the region.
func (r *Region) SubtractRect(rect image.Rectangle) {
	if rect.Empty() || len(r.rects) == 0 {
		return
	}
	r.rects = combine(r.rects, []image.Rectangle{rect}, opSubtract)
}

// Subtract removes every pixel of o from the region.
func (r *Region) Subtract(o *Region) {
	if len(o.rects) == 0 || len(r.rects) == 0 {
		return
	}
	if r == o {
		r.Clear()
		return
	}
	r.rects = combine(r.rects, o.rects, opSubtract)
}

// Translate moves the region by (dx, dy).
func (r *Region) Translate(dx, dy int) {
	if dx == 0 && dy == 0 {
		return
	}
	d := image.Pt(dx, dy)
	for i := range r.rects {
		r.rects[i] = r.rects[i].Add(d)
	}
}

// ContainsPoint reports whether the pixel at (x, y) is in the region.
func (r *Region) ContainsPoint(x, y int) bool {
	p := image.Pt(x, y)
	for _, rc := range r.rects {
		if rc.Min.Y > y {
			return false
		}
		if p.In(rc) {
			return true
		}
	}
	return false
}

// ContainsRect reports whether every pixel of rect is in the region.
// An empty rect is contained in every region.
func (r *Region) ContainsRect(rect image.Rectangle) bool {
	if rect.Empty() {
		return true
	}
	rest := combine([]image.Rectangle{rect}, r.rects, opSubtract)
	return len(rest) == 0
}

// Overlaps reports whether the region shares at least one pixel with rect.
func (r *Region) Overlaps(rect image.Rectangle) bool {
	for _, rc := range r.rects {
		if rc.Overlaps(rect) {
			return true
		}
	}
	return false
}

// Equal reports whether both regions cover the same pixels.
func (r *Region) Equal(o *Region) bool {
	if len(r.rects) != len(o.rects) {
		return false
	}
	for i := range r.rects {
		if r.rects[i] != o.rects[i] {
			return false
		}
	}
	return true
}

// String formats the region as a list of x,y,w,h boxes.
func (r *Region) String() string {
	var b strings.Builder
	b.WriteByte('{')
	for i, rc := range r.rects {
		if i > 0 {
			b.WriteString(", ")
		}
		fmt.Fprintf(&b, "(%d,%d %dx%d)", rc.Min.X, rc.Min.Y, rc.Dx(), rc.Dy())
	}
	b.WriteByte('}')
	return b.String()
}
