// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framebuffer

import "image"

// Transform is an output transform, numbered like wl_output.transform.
type Transform uint8

// Output transforms.
const (
	TransformNormal Transform = iota
	Transform90
	Transform180
	Transform270
	TransformFlipped
	TransformFlipped90
	TransformFlipped180
	TransformFlipped270
)

// Rotated reports whether the transform swaps width and height.
func (t Transform) Rotated() bool {
	return t%2 == 1
}

// Invert returns the transform that undoes t.
func (t Transform) Invert() Transform {
	switch t {
	case Transform90:
		return Transform270
	case Transform270:
		return Transform90
	}
	return t
}

// TransformedSize returns the size of a width×height buffer after t.
func (t Transform) TransformedSize(width, height int) (int, int) {
	if t.Rotated() {
		return height, width
	}
	return width, height
}

// TransformBox maps box inside a width×height space through t.
func (t Transform) TransformBox(box image.Rectangle, width, height int) image.Rectangle {
	x, y := box.Min.X, box.Min.Y
	bw, bh := box.Dx(), box.Dy()

	var ox, oy int
	switch t {
	case TransformNormal:
		ox, oy = x, y
	case Transform90:
		ox, oy = height-y-bh, x
	case Transform180:
		ox, oy = width-x-bw, height-y-bh
	case Transform270:
		ox, oy = y, width-x-bw
	case TransformFlipped:
		ox, oy = width-x-bw, y
	case TransformFlipped90:
		ox, oy = y, x
	case TransformFlipped180:
		ox, oy = x, height-y-bh
	case TransformFlipped270:
		ox, oy = height-y-bh, width-x-bw
	}

	if t.Rotated() {
		bw, bh = bh, bw
	}
	return image.Rect(ox, oy, ox+bw, oy+bh)
}

// Framebuffer is the render destination handed to surfaces, custom
// renderers and post-processing hooks.
type Framebuffer struct {
	// Handle identifies the target; Screen for the scanout target.
	Handle Handle

	// Target receives the pixels.
	Target Target

	// Geometry is the output-relative logical geometry. Renderers offset
	// surface positions by Geometry.Min.
	Geometry image.Rectangle

	// Transform is the output transform.
	Transform Transform

	// Scale is the output scale factor.
	Scale float64

	// ViewportWidth and ViewportHeight are the buffer size in pixels.
	ViewportWidth, ViewportHeight int
}

// WithOrigin returns a copy of fb whose geometry starts at (x, y).
func (fb Framebuffer) WithOrigin(x, y int) Framebuffer {
	fb.Geometry = fb.Geometry.Sub(fb.Geometry.Min).Add(image.Pt(x, y))
	return fb
}

// ScissorBox converts a box in output damage space (transformed pixels)
// into the buffer's pixel space.
func (fb Framebuffer) ScissorBox(box image.Rectangle) image.Rectangle {
	w, h := fb.Transform.TransformedSize(fb.ViewportWidth, fb.ViewportHeight)
	return fb.Transform.Invert().TransformBox(box, w, h)
}

// ScaleBox converts a logical box into output pixels using the output scale.
// Edges are rounded outward so the result always covers the logical box.
func ScaleBox(box image.Rectangle, scale float64) image.Rectangle {
	if scale == 1 || scale <= 0 {
		return box
	}
	floor := func(v int) int {
		f := float64(v) * scale
		i := int(f)
		if float64(i) > f {
			i--
		}
		return i
	}
	ceil := func(v int) int {
		f := float64(v) * scale
		i := int(f)
		if float64(i) < f {
			i++
		}
		return i
	}
	return image.Rect(floor(box.Min.X), floor(box.Min.Y), ceil(box.Max.X), ceil(box.Max.Y))
}
