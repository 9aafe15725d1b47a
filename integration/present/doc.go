// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

// Package present shows a compositor output in a gogpu window.
//
// The output renders into the CPU screen of a headless backend. A
// Presenter watches that backend's swaps and uploads the screen to a GPU
// texture, which is then drawn into the window. The data flow is:
//
//	Output (paint) -> headless screen (CPU) -> GPU Texture -> Window
//
// # Usage
//
//	screen := headless.New(1280, 720, headless.WithEventLoop(loop))
//	p, err := present.New(app.GPUContextProvider(), screen)
//	if err != nil {
//		return err
//	}
//	defer p.Close()
//
//	app.OnDraw(func(dc *gogpu.Context) {
//		p.RenderTo(dc.AsTextureDrawer())
//	})
//
// Offscreen workspace and post-processing buffers can live on the same GPU
// device as the window through Presenter.Device.
//
// # Thread Safety
//
// Presenter is NOT safe for concurrent use. Use it from the goroutine that
// runs the compositor loop.
//
// # Integration Without Circular Imports
//
// This package uses gpucontext interfaces and never imports gogpu itself:
//
//   - gpucontext.DeviceProvider for device access
//   - gpucontext.TextureDrawer and TextureCreator for drawing
package present
