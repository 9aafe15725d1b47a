// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framebuffer

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/internal/rlog"
)

// TextureTarget is implemented by targets backed by a HAL texture.
type TextureTarget interface {
	Target

	// Device returns the device that created the texture.
	Device() *HALDevice

	// Texture returns the HAL texture backing the target.
	Texture() hal.Texture

	// View returns a view of the whole texture.
	View() hal.TextureView
}

// HALDevice creates GPU color targets on a HAL device received from the host.
type HALDevice struct {
	device hal.Device
	queue  hal.Queue
	format gputypes.TextureFormat
	next   Handle
}

// NewHALDevice wraps a shared GPU device. The provider must implement
// HalDevice() any and HalQueue() any returning hal.Device and hal.Queue,
// as gogpu's gpucontext providers do.
func NewHALDevice(provider any, format gputypes.TextureFormat) (*HALDevice, error) {
	type halProvider interface {
		HalDevice() any
		HalQueue() any
	}
	hp, ok := provider.(halProvider)
	if !ok {
		return nil, ErrNoHALDevice
	}
	device, ok := hp.HalDevice().(hal.Device)
	if !ok || device == nil {
		return nil, fmt.Errorf("%w: HalDevice is not hal.Device", ErrNoHALDevice)
	}
	queue, ok := hp.HalQueue().(hal.Queue)
	if !ok || queue == nil {
		return nil, fmt.Errorf("%w: HalQueue is not hal.Queue", ErrNoHALDevice)
	}
	return NewHALDeviceFrom(device, queue, format), nil
}

// NewHALDeviceFrom wraps an already resolved HAL device and queue.
func NewHALDeviceFrom(device hal.Device, queue hal.Queue, format gputypes.TextureFormat) *HALDevice {
	if format == gputypes.TextureFormatUndefined {
		format = gputypes.TextureFormatRGBA8Unorm
	}
	return &HALDevice{device: device, queue: queue, format: format}
}

// HAL returns the wrapped device and queue.
func (d *HALDevice) HAL() (hal.Device, hal.Queue) {
	return d.device, d.queue
}

// Format returns the texture format of new targets.
func (d *HALDevice) Format() gputypes.TextureFormat {
	return d.format
}

// NewTarget creates a GPU texture plus view usable as a render attachment,
// a sampled texture for the next post-processing hook, and a copy source.
func (d *HALDevice) NewTarget(label string, width, height int) (Target, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	if label == "" {
		label = "compositor_color_target"
	}

	//nolint:gosec // G115: dimensions validated above
	tex, err := d.device.CreateTexture(&hal.TextureDescriptor{
		Label: label,
		Size: hal.Extent3D{
			Width:              uint32(width),
			Height:             uint32(height),
			DepthOrArrayLayers: 1,
		},
		MipLevelCount: 1,
		SampleCount:   1,
		Dimension:     gputypes.TextureDimension2D,
		Format:        d.format,
		Usage: gputypes.TextureUsageRenderAttachment |
			gputypes.TextureUsageTextureBinding |
			gputypes.TextureUsageCopySrc |
			gputypes.TextureUsageCopyDst,
	})
	if err != nil {
		return nil, fmt.Errorf("create color texture: %w", err)
	}

	view, err := d.device.CreateTextureView(tex, &hal.TextureViewDescriptor{
		Label: label + "_view",
	})
	if err != nil {
		d.device.DestroyTexture(tex)
		return nil, fmt.Errorf("create color texture view: %w", err)
	}

	d.next++
	if d.next == Unallocated {
		d.next = 1
	}
	return &halTarget{
		dev:    d,
		tex:    tex,
		view:   view,
		handle: d.next,
		width:  width,
		height: height,
	}, nil
}

// CreateShaderModule creates a HAL shader module from SPIR-V words.
func (d *HALDevice) CreateShaderModule(label string, spirv []uint32) (hal.ShaderModule, error) {
	return d.device.CreateShaderModule(&hal.ShaderModuleDescriptor{
		Label: label,
		Source: hal.ShaderSource{
			SPIRV: spirv,
		},
	})
}

// DestroyShaderModule releases a module created by CreateShaderModule.
func (d *HALDevice) DestroyShaderModule(m hal.ShaderModule) {
	if m != nil {
		d.device.DestroyShaderModule(m)
	}
}

// halTarget is a GPU texture color target.
type halTarget struct {
	dev    *HALDevice
	tex    hal.Texture
	view   hal.TextureView
	handle Handle
	width  int
	height int
}

func (t *halTarget) Handle() Handle                 { return t.handle }
func (t *halTarget) Width() int                     { return t.width }
func (t *halTarget) Height() int                    { return t.height }
func (t *halTarget) Format() gputypes.TextureFormat { return t.dev.format }

func (t *halTarget) Device() *HALDevice { return t.dev }

// Texture returns the HAL texture backing the target.
func (t *halTarget) Texture() hal.Texture { return t.tex }

// View returns the HAL texture view backing the target.
func (t *halTarget) View() hal.TextureView { return t.view }

// Fill uploads solid rows for each rectangle through the queue.
func (t *halTarget) Fill(c color.Color, rects ...image.Rectangle) {
	if t.tex == nil {
		return
	}
	bounds := image.Rect(0, 0, t.width, t.height)
	if len(rects) == 0 {
		rects = []image.Rectangle{bounds}
	}
	px := t.pixel(c)
	for _, r := range rects {
		r = r.Intersect(bounds)
		if r.Empty() {
			continue
		}
		w, h := r.Dx(), r.Dy()
		data := make([]byte, w*h*4)
		for i := 0; i < len(data); i += 4 {
			copy(data[i:i+4], px[:])
		}
		//nolint:gosec // G115: rect clipped to texture bounds
		err := t.dev.queue.WriteTexture(
			&hal.ImageCopyTexture{
				Texture:  t.tex,
				MipLevel: 0,
				Origin:   hal.Origin3D{X: uint32(r.Min.X), Y: uint32(r.Min.Y), Z: 0},
				Aspect:   gputypes.TextureAspectAll,
			},
			data,
			&hal.ImageDataLayout{
				Offset:       0,
				BytesPerRow:  uint32(w * 4),
				RowsPerImage: uint32(h),
			},
			&hal.Extent3D{Width: uint32(w), Height: uint32(h), DepthOrArrayLayers: 1},
		)
		if err != nil {
			rlog.Logger().Warn("framebuffer: fill", "handle", t.handle, "err", err)
			return
		}
	}
}

// pixel encodes c in the byte order of the target format.
func (t *halTarget) pixel(c color.Color) [4]byte {
	rgba := color.RGBAModel.Convert(c).(color.RGBA)
	if t.dev.format == gputypes.TextureFormatBGRA8Unorm {
		return [4]byte{rgba.B, rgba.G, rgba.R, rgba.A}
	}
	return [4]byte{rgba.R, rgba.G, rgba.B, rgba.A}
}

// Destroy releases the view and texture. Each resource is nil-checked to
// support repeated calls.
func (t *halTarget) Destroy() {
	if t.view != nil {
		t.dev.device.DestroyTextureView(t.view)
		t.view = nil
	}
	if t.tex != nil {
		t.dev.device.DestroyTexture(t.tex)
		t.tex = nil
	}
}

var (
	_ Device = (*HALDevice)(nil)
	_ TextureTarget = (*halTarget)(nil)
)
