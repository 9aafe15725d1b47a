// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package framebuffer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
	"golang.org/x/image/draw"
)

// PixmapTarget is a CPU-backed target using *image.RGBA.
//
// It supports direct pixel access and is the target type of the headless
// backend. Surfaces that render on the CPU type-assert to PixmapTarget (or
// the PixelTarget interface) and draw into Image.
type PixmapTarget struct {
	img    *image.RGBA
	handle Handle
}

// PixelTarget is implemented by targets that expose CPU pixels.
type PixelTarget interface {
	Target

	// Image returns the pixels of the target. The image shares memory
	// with the target.
	Image() *image.RGBA
}

// NewPixmapTarget creates a CPU-backed target with the given handle.
// Use Screen as the handle for an output's scanout pixmap.
func NewPixmapTarget(handle Handle, width, height int) *PixmapTarget {
	return &PixmapTarget{
		img:    image.NewRGBA(image.Rect(0, 0, width, height)),
		handle: handle,
	}
}

// Handle returns the framebuffer handle of the target.
func (t *PixmapTarget) Handle() Handle {
	return t.handle
}

// Width returns the target width in pixels.
func (t *PixmapTarget) Width() int {
	return t.img.Bounds().Dx()
}

// Height returns the target height in pixels.
func (t *PixmapTarget) Height() int {
	return t.img.Bounds().Dy()
}

// Format returns the pixel format (RGBA8).
func (t *PixmapTarget) Format() gputypes.TextureFormat {
	return gputypes.TextureFormatRGBA8Unorm
}

// Image returns the underlying *image.RGBA.
func (t *PixmapTarget) Image() *image.RGBA {
	return t.img
}

// Fill replaces the pixels inside each rectangle with c.
func (t *PixmapTarget) Fill(c color.Color, rects ...image.Rectangle) {
	src := image.NewUniform(c)
	bounds := t.img.Bounds()
	if len(rects) == 0 {
		draw.Draw(t.img, bounds, src, image.Point{}, draw.Src)
		return
	}
	for _, r := range rects {
		r = r.Intersect(bounds)
		if r.Empty() {
			continue
		}
		draw.Draw(t.img, r, src, image.Point{}, draw.Src)
	}
}

// RGBAAt returns the color of the pixel at (x, y).
func (t *PixmapTarget) RGBAAt(x, y int) color.RGBA {
	return t.img.RGBAAt(x, y)
}

// Resize replaces the pixels with a new image of the given size.
// The contents are not preserved.
func (t *PixmapTarget) Resize(width, height int) {
	if width == t.Width() && height == t.Height() {
		return
	}
	t.img = image.NewRGBA(image.Rect(0, 0, width, height))
}

// Destroy drops the pixel storage.
func (t *PixmapTarget) Destroy() {
	t.img = image.NewRGBA(image.Rectangle{})
}

// PixmapDevice creates CPU-backed offscreen targets.
//
// It hands out increasing handles starting at 1 and counts live targets,
// which lets tests verify that every buffer is released.
type PixmapDevice struct {
	next Handle
	live map[Handle]*PixmapTarget
}

// NewPixmapDevice creates a CPU target device.
func NewPixmapDevice() *PixmapDevice {
	return &PixmapDevice{live: make(map[Handle]*PixmapTarget)}
}

// NewTarget creates an offscreen pixmap target.
func (d *PixmapDevice) NewTarget(_ string, width, height int) (Target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	d.next++
	if d.next == Unallocated {
		d.next = 1
	}
	t := &pixmapDeviceTarget{
		PixmapTarget: NewPixmapTarget(d.next, width, height),
		dev:          d,
	}
	d.live[t.handle] = t.PixmapTarget
	return t, nil
}

// Live returns the number of targets created and not yet destroyed.
func (d *PixmapDevice) Live() int {
	return len(d.live)
}

// Lookup returns the live target with the given handle.
func (d *PixmapDevice) Lookup(h Handle) (*PixmapTarget, bool) {
	t, ok := d.live[h]
	return t, ok
}

// pixmapDeviceTarget unregisters itself from the device on Destroy.
type pixmapDeviceTarget struct {
	*PixmapTarget
	dev *PixmapDevice
}

func (t *pixmapDeviceTarget) Destroy() {
	delete(t.dev.live, t.handle)
	t.PixmapTarget.Destroy()
}

// Ensure pixmap targets implement PixelTarget and the device implements Device.
var (
	_ PixelTarget = (*PixmapTarget)(nil)
	_ PixelTarget = (*pixmapDeviceTarget)(nil)
	_ Device      = (*PixmapDevice)(nil)
)
