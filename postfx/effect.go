// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package postfx

import (
	_ "embed"
	"fmt"
	"image"
	"image/color"
	"strings"

	"github.com/gogpu/compositor/effects"
	"github.com/gogpu/compositor/framebuffer"
	"github.com/gogpu/compositor/internal/rlog"
)

//go:embed shaders/invert.wgsl
var invertShaderSource string

//go:embed shaders/grayscale.wgsl
var grayscaleShaderSource string

//go:embed shaders/tint.wgsl
var tintShaderSource string

// Effect is a post-processing operation.
type Effect struct {
	// Name identifies the effect in configuration files.
	Name string

	// Kernel runs the effect on CPU pixels.
	Kernel Kernel

	// Source is the WGSL source of the effect. The vertex entry point is
	// vs_main, the fragment entry point fs_main.
	Source string

	hook       effects.PostHook
	warnedOnce bool

	uniform []byte
	pass    *gpuPass
}

func newEffect(name string, k Kernel, src string) *Effect {
	e := &Effect{Name: name, Kernel: k, Source: src}
	e.hook = e.Apply
	return e
}

// Invert returns an effect inverting colors.
func Invert() *Effect {
	return newEffect("invert", invertKernel, invertShaderSource)
}

// Grayscale returns an effect removing color.
func Grayscale() *Effect {
	return newEffect("grayscale", grayscaleKernel, grayscaleShaderSource)
}

// Tint returns an effect blending the screen toward c by amount in [0, 1].
func Tint(c color.RGBA, amount float64) *Effect {
	e := newEffect("tint", tintKernel(c, amount), tintShaderSource)
	e.uniform = tintUniform(c, amount)
	return e
}

// Hook returns the post hook of the effect. The pointer is stable, so it
// can be passed to both AddPost and RemovePost.
func (e *Effect) Hook() *effects.PostHook {
	return &e.hook
}

// Apply renders src into dst. CPU pixmaps run through the kernel. GPU
// textures of the same framebuffer.HALDevice run through a render pass
// built from Source; the pipeline is created on first use and kept until
// Release. Mixed targets are left untouched.
func (e *Effect) Apply(src, dst framebuffer.Framebuffer) {
	if s, ok := src.Target.(framebuffer.PixelTarget); ok {
		if d, ok := dst.Target.(framebuffer.PixelTarget); ok {
			applyKernel(e.Kernel, s.Image(), d.Image())
			return
		}
	}
	s, okS := src.Target.(framebuffer.TextureTarget)
	d, okD := dst.Target.(framebuffer.TextureTarget)
	if !okS || !okD || s.Device() != d.Device() {
		e.warnOnce("postfx: effect needs two CPU or two GPU targets of one device")
		return
	}
	if err := e.applyGPU(s, d); err != nil {
		e.warnOnce("postfx: GPU pass failed", "err", err)
	}
}

func (e *Effect) applyGPU(src, dst framebuffer.TextureTarget) error {
	if e.pass != nil && e.pass.dev != dst.Device() {
		e.Release()
	}
	if e.pass == nil {
		p, err := newGPUPass(e, dst.Device())
		if err != nil {
			return err
		}
		e.pass = p
	}
	return e.pass.run(src, dst)
}

// Release destroys the GPU pipeline of the effect, waiting for passes
// still in flight. The effect recreates it when next applied to GPU
// targets.
func (e *Effect) Release() {
	if e.pass != nil {
		e.pass.destroy()
		e.pass = nil
	}
}

func (e *Effect) warnOnce(msg string, args ...any) {
	if e.warnedOnce {
		return
	}
	e.warnedOnce = true
	rlog.Logger().Warn(msg, append([]any{"effect", e.Name}, args...)...)
}

func applyKernel(k Kernel, src, dst *image.RGBA) {
	r := src.Bounds().Intersect(dst.Bounds())
	for y := r.Min.Y; y < r.Max.Y; y++ {
		si := src.PixOffset(r.Min.X, y)
		di := dst.PixOffset(r.Min.X, y)
		for x := r.Min.X; x < r.Max.X; x++ {
			c := k(color.RGBA{R: src.Pix[si], G: src.Pix[si+1], B: src.Pix[si+2], A: src.Pix[si+3]})
			dst.Pix[di], dst.Pix[di+1], dst.Pix[di+2], dst.Pix[di+3] = c.R, c.G, c.B, c.A
			si += 4
			di += 4
		}
	}
}

// Names returns the names accepted by ByName, sorted.
func Names() []string {
	return []string{"grayscale", "invert", "tint"}
}

// ByName creates the effect called name. Tint uses color and amount;
// the other effects ignore them.
func ByName(name string, c color.RGBA, amount float64) (*Effect, error) {
	switch strings.ToLower(name) {
	case "invert":
		return Invert(), nil
	case "grayscale", "greyscale":
		return Grayscale(), nil
	case "tint":
		return Tint(c, amount), nil
	default:
		return nil, fmt.Errorf("postfx: unknown effect %q (known: %s)", name, strings.Join(Names(), ", "))
	}
}
