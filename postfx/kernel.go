// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package postfx

import (
	"image/color"
	"math"
)

// Kernel maps one premultiplied pixel to another.
type Kernel func(c color.RGBA) color.RGBA

// invertKernel inverts the color channels, keeping alpha. On premultiplied
// pixels the inverse of a channel is alpha minus the channel.
func invertKernel(c color.RGBA) color.RGBA {
	return color.RGBA{R: c.A - c.R, G: c.A - c.G, B: c.A - c.B, A: c.A}
}

// grayscaleKernel replaces the color channels by their Rec. 601 luma.
func grayscaleKernel(c color.RGBA) color.RGBA {
	y := uint8((299*uint32(c.R) + 587*uint32(c.G) + 114*uint32(c.B) + 500) / 1000)
	return color.RGBA{R: y, G: y, B: y, A: c.A}
}

// tintKernel returns a kernel blending pixels toward tint by amount in
// [0, 1].
func tintKernel(tint color.RGBA, amount float64) Kernel {
	amount = math.Max(0, math.Min(1, amount))
	mix := func(c, t, a uint8) uint8 {
		target := float64(t) * float64(a) / 255
		return uint8(math.Round(float64(c) + (target-float64(c))*amount))
	}
	return func(c color.RGBA) color.RGBA {
		return color.RGBA{
			R: mix(c.R, tint.R, c.A),
			G: mix(c.G, tint.G, c.A),
			B: mix(c.B, tint.B, c.A),
			A: c.A,
		}
	}
}
