// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framebuffer

import (
	"fmt"
	"image"
	"image/color"
	"math"

	"github.com/gogpu/gputypes"
)

// Handle identifies a color target. Screen is the output's scanout target.
type Handle uint32

const (
	// Screen is the handle of the on-screen target of an output.
	Screen Handle = 0

	// Unallocated marks a buffer that owns no target yet.
	Unallocated Handle = math.MaxUint32
)

// String returns a readable handle name for logs.
func (h Handle) String() string {
	switch h {
	case Screen:
		return "screen"
	case Unallocated:
		return "unallocated"
	default:
		return fmt.Sprintf("fb%d", uint32(h))
	}
}

// Target is a color render target.
//
// Targets may be CPU pixmaps or GPU textures. Fill is the only drawing
// primitive the compositor itself needs (scissored clears); everything else
// is drawn by surfaces and hooks that know the concrete target type.
type Target interface {
	// Handle returns the framebuffer handle of the target.
	Handle() Handle

	// Width returns the target width in pixels.
	Width() int

	// Height returns the target height in pixels.
	Height() int

	// Format returns the pixel format of the target.
	Format() gputypes.TextureFormat

	// Fill replaces the pixels inside each rectangle with c.
	// Rectangles are clipped to the target bounds. With no rectangles the
	// whole target is filled.
	Fill(c color.Color, rects ...image.Rectangle)

	// Destroy releases the resources of the target.
	Destroy()
}

// Device creates offscreen targets.
type Device interface {
	// NewTarget creates an offscreen target of the given size.
	NewTarget(label string, width, height int) (Target, error)
}

// Buffer is a framebuffer object: a handle plus the target backing it.
//
// The zero value is the screen buffer (FB == Screen) which owns no storage.
type Buffer struct {
	// FB is the current handle. Screen and Unallocated are sentinels.
	FB Handle

	// Width and Height are the size of the last successful Allocate.
	Width, Height int

	// Label names the offscreen target for debugging.
	Label string

	target Target
}

// IsScreen reports whether the buffer stands for the on-screen target.
func (b *Buffer) IsScreen() bool {
	return b.FB == Screen
}

// Allocated reports whether the buffer owns an offscreen target.
func (b *Buffer) Allocated() bool {
	return b.target != nil
}

// Target returns the offscreen target, or nil for screen and unallocated
// buffers.
func (b *Buffer) Target() Target {
	return b.target
}

// Allocate makes sure the buffer has storage of the given size.
//
// For the screen buffer only the size is recorded. An unallocated buffer
// gets a new target from dev; an allocated buffer of a different size is
// recreated (contents are not preserved). Allocate is a no-op when the size
// is unchanged.
func (b *Buffer) Allocate(dev Device, width, height int) error {
	if width <= 0 || height <= 0 {
		return fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}

	if b.FB == Screen {
		b.Width, b.Height = width, height
		return nil
	}

	if b.target != nil && b.Width == width && b.Height == height {
		return nil
	}

	if dev == nil {
		return ErrNoDevice
	}

	if b.target != nil {
		b.target.Destroy()
		b.target = nil
		b.FB = Unallocated
	}

	t, err := dev.NewTarget(b.Label, width, height)
	if err != nil {
		return fmt.Errorf("framebuffer: allocate %dx%d: %w", width, height, err)
	}

	b.target = t
	b.FB = t.Handle()
	b.Width, b.Height = width, height
	return nil
}

// Reset detaches the buffer from the screen without releasing anything.
// The next Allocate creates an offscreen target.
func (b *Buffer) Reset() {
	if b.target != nil {
		b.Release()
		return
	}
	b.FB = Unallocated
}

// Release destroys the offscreen target, if any. Release is idempotent and
// leaves the screen buffer untouched.
func (b *Buffer) Release() {
	if b.FB == Screen {
		return
	}
	if b.target != nil {
		b.target.Destroy()
		b.target = nil
	}
	b.FB = Unallocated
}

// MakeScreen releases any offscreen storage and turns the buffer back into
// the screen buffer.
func (b *Buffer) MakeScreen() {
	if b.target != nil {
		b.target.Destroy()
		b.target = nil
	}
	b.FB = Screen
}
