// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package framebuffer provides the color render targets used by the
// compositor: the on-screen scanout target, offscreen workspace stream
// buffers and the buffers chained between post-processing hooks.
//
// # Buffers and Handles
//
// A Buffer owns at most one Target and exposes the target's Handle. The zero
// Buffer carries the Screen handle: it stands for the output's scanout
// target and owns no storage. Reset detaches a buffer from the screen so the
// next Allocate creates an offscreen target; Release destroys the target.
//
//	var fb framebuffer.Buffer        // FB == Screen
//	fb.Reset()                       // FB == Unallocated
//	_ = fb.Allocate(dev, 1920, 1080) // FB == fresh offscreen handle
//	fb.Release()                     // storage destroyed, FB == Unallocated
//
// # Devices
//
//   - PixmapDevice: CPU-backed *image.RGBA targets, used by the headless
//     backend and in tests.
//   - HALDevice: GPU textures created through gogpu/wgpu HAL on a device
//     received from the host; the compositor never creates its own device.
//
// # Thread Safety
//
// Buffers and targets are NOT thread-safe. They belong to one output and are
// used from the compositor's main loop only.
package framebuffer
