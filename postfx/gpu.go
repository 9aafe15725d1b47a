// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package postfx

import (
	"encoding/binary"
	"fmt"
	"image/color"
	"math"

	"github.com/gogpu/gputypes"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/framebuffer"
)

// tintUniformSize is the size of the Tint struct in tint.wgsl:
// vec4<f32> color, f32 amount, padded to 16 bytes.
const tintUniformSize = 32

// tintUniform encodes the Tint struct of tint.wgsl.
func tintUniform(c color.RGBA, amount float64) []byte {
	amount = math.Max(0, math.Min(1, amount))
	buf := make([]byte, tintUniformSize)
	vals := [5]float32{
		float32(c.R) / 255,
		float32(c.G) / 255,
		float32(c.B) / 255,
		float32(c.A) / 255,
		float32(amount),
	}
	for i, v := range vals {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}

// inflight is a submitted frame whose resources wait for the GPU.
type inflight struct {
	index     uint64
	bindGroup hal.BindGroup
	cmdBuf    hal.CommandBuffer
}

// gpuPass is the render pipeline of one effect on one device. It draws a
// fullscreen triangle sampling the source view into the destination.
type gpuPass struct {
	dev    *framebuffer.HALDevice
	device hal.Device
	queue  hal.Queue

	module     hal.ShaderModule
	layout     hal.BindGroupLayout
	pipeLayout hal.PipelineLayout
	sampler    hal.Sampler
	pipeline   hal.RenderPipeline
	uniform    hal.Buffer

	pending []inflight
}

// newGPUPass creates the pipeline of e on dev.
func newGPUPass(e *Effect, dev *framebuffer.HALDevice) (*gpuPass, error) {
	device, queue := dev.HAL()
	p := &gpuPass{dev: dev, device: device, queue: queue}
	if err := p.create(e); err != nil {
		p.destroy()
		return nil, err
	}
	return p, nil
}

func (p *gpuPass) create(e *Effect) error {
	mod, err := e.Prepare(p.dev)
	if err != nil {
		return err
	}
	p.module = mod

	entries := []gputypes.BindGroupLayoutEntry{
		{
			Binding:    0,
			Visibility: gputypes.ShaderStageFragment,
			Texture: &gputypes.TextureBindingLayout{
				SampleType:    gputypes.TextureSampleTypeFloat,
				ViewDimension: gputypes.TextureViewDimension2D,
			},
		},
		{
			Binding:    1,
			Visibility: gputypes.ShaderStageFragment,
			Sampler:    &gputypes.SamplerBindingLayout{Type: gputypes.SamplerBindingTypeFiltering},
		},
	}
	if e.uniform != nil {
		entries = append(entries, gputypes.BindGroupLayoutEntry{
			Binding:    2,
			Visibility: gputypes.ShaderStageFragment,
			Buffer:     &gputypes.BufferBindingLayout{Type: gputypes.BufferBindingTypeUniform},
		})
	}
	p.layout, err = p.device.CreateBindGroupLayout(&hal.BindGroupLayoutDescriptor{
		Label:   "postfx_" + e.Name + "_layout",
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("postfx: %s: create bind group layout: %w", e.Name, err)
	}

	p.pipeLayout, err = p.device.CreatePipelineLayout(&hal.PipelineLayoutDescriptor{
		Label:            "postfx_" + e.Name + "_pipe_layout",
		BindGroupLayouts: []hal.BindGroupLayout{p.layout},
	})
	if err != nil {
		return fmt.Errorf("postfx: %s: create pipeline layout: %w", e.Name, err)
	}

	p.sampler, err = p.device.CreateSampler(&hal.SamplerDescriptor{
		Label:        "postfx_sampler",
		AddressModeU: gputypes.AddressModeClampToEdge,
		AddressModeV: gputypes.AddressModeClampToEdge,
		AddressModeW: gputypes.AddressModeClampToEdge,
		MagFilter:    gputypes.FilterModeNearest,
		MinFilter:    gputypes.FilterModeNearest,
		MipmapFilter: gputypes.FilterModeNearest,
	})
	if err != nil {
		return fmt.Errorf("postfx: %s: create sampler: %w", e.Name, err)
	}

	p.pipeline, err = p.device.CreateRenderPipeline(&hal.RenderPipelineDescriptor{
		Label:  "postfx_" + e.Name,
		Layout: p.pipeLayout,
		Vertex: hal.VertexState{
			Module:     p.module,
			EntryPoint: "vs_main",
		},
		Fragment: &hal.FragmentState{
			Module:     p.module,
			EntryPoint: "fs_main",
			Targets: []gputypes.ColorTargetState{
				{
					Format:    p.dev.Format(),
					WriteMask: gputypes.ColorWriteMaskAll,
				},
			},
		},
		Primitive: gputypes.PrimitiveState{
			Topology: gputypes.PrimitiveTopologyTriangleList,
			CullMode: gputypes.CullModeNone,
		},
		Multisample: gputypes.MultisampleState{
			Count: 1,
			Mask:  0xFFFFFFFF,
		},
	})
	if err != nil {
		return fmt.Errorf("postfx: %s: create pipeline: %w", e.Name, err)
	}

	if e.uniform != nil {
		p.uniform, err = p.device.CreateBuffer(&hal.BufferDescriptor{
			Label: "postfx_" + e.Name + "_uniform",
			Size:  uint64(len(e.uniform)),
			Usage: gputypes.BufferUsageUniform | gputypes.BufferUsageCopyDst,
		})
		if err != nil {
			return fmt.Errorf("postfx: %s: create uniform buffer: %w", e.Name, err)
		}
		if err := p.queue.WriteBuffer(p.uniform, 0, e.uniform); err != nil {
			return fmt.Errorf("postfx: %s: write uniform buffer: %w", e.Name, err)
		}
	}
	return nil
}

// run records and submits one pass from src into dst.
func (p *gpuPass) run(src, dst framebuffer.TextureTarget) error {
	p.reclaim(p.queue.PollCompleted())

	entries := []gputypes.BindGroupEntry{
		{Binding: 0, Resource: gputypes.TextureViewBinding{TextureView: src.View().NativeHandle()}},
		{Binding: 1, Resource: gputypes.SamplerBinding{Sampler: p.sampler.NativeHandle()}},
	}
	if p.uniform != nil {
		entries = append(entries, gputypes.BindGroupEntry{
			Binding:  2,
			Resource: gputypes.BufferBinding{Buffer: p.uniform.NativeHandle(), Size: tintUniformSize},
		})
	}
	bg, err := p.device.CreateBindGroup(&hal.BindGroupDescriptor{
		Label:   "postfx_bind",
		Layout:  p.layout,
		Entries: entries,
	})
	if err != nil {
		return fmt.Errorf("create bind group: %w", err)
	}

	encoder, err := p.device.CreateCommandEncoder(&hal.CommandEncoderDescriptor{Label: "postfx"})
	if err != nil {
		p.device.DestroyBindGroup(bg)
		return fmt.Errorf("create command encoder: %w", err)
	}
	if err := encoder.BeginEncoding("postfx"); err != nil {
		p.device.DestroyBindGroup(bg)
		return fmt.Errorf("begin encoding: %w", err)
	}

	rp := encoder.BeginRenderPass(&hal.RenderPassDescriptor{
		Label: "postfx_pass",
		ColorAttachments: []hal.RenderPassColorAttachment{
			{
				View:    dst.View(),
				LoadOp:  gputypes.LoadOpLoad,
				StoreOp: gputypes.StoreOpStore,
			},
		},
	})
	rp.SetPipeline(p.pipeline)
	rp.SetBindGroup(0, bg, nil)
	rp.Draw(3, 1, 0, 0)
	rp.End()

	cmdBuf, err := encoder.EndEncoding()
	if err != nil {
		p.device.DestroyBindGroup(bg)
		return fmt.Errorf("end encoding: %w", err)
	}
	index, err := p.queue.Submit([]hal.CommandBuffer{cmdBuf})
	if err != nil {
		p.device.FreeCommandBuffer(cmdBuf)
		p.device.DestroyBindGroup(bg)
		return fmt.Errorf("submit: %w", err)
	}
	p.pending = append(p.pending, inflight{index: index, bindGroup: bg, cmdBuf: cmdBuf})
	return nil
}

// reclaim frees the resources of submissions up to completed.
func (p *gpuPass) reclaim(completed uint64) {
	keep := p.pending[:0]
	for _, f := range p.pending {
		if f.index > completed {
			keep = append(keep, f)
			continue
		}
		p.device.FreeCommandBuffer(f.cmdBuf)
		p.device.DestroyBindGroup(f.bindGroup)
	}
	p.pending = keep
}

// destroy waits for the GPU and releases everything the pass created.
// Each resource is nil-checked so a partially created pass can be destroyed.
func (p *gpuPass) destroy() {
	if len(p.pending) > 0 {
		_ = p.device.WaitIdle()
		p.reclaim(math.MaxUint64)
	}
	if p.uniform != nil {
		p.device.DestroyBuffer(p.uniform)
		p.uniform = nil
	}
	if p.pipeline != nil {
		p.device.DestroyRenderPipeline(p.pipeline)
		p.pipeline = nil
	}
	if p.sampler != nil {
		p.device.DestroySampler(p.sampler)
		p.sampler = nil
	}
	if p.pipeLayout != nil {
		p.device.DestroyPipelineLayout(p.pipeLayout)
		p.pipeLayout = nil
	}
	if p.layout != nil {
		p.device.DestroyBindGroupLayout(p.layout)
		p.layout = nil
	}
	if p.module != nil {
		p.dev.DestroyShaderModule(p.module)
		p.module = nil
	}
}
