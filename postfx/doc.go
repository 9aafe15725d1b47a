// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package postfx provides ready-made post-processing hooks for an output.
//
// Each Effect pairs a per-pixel kernel, run on CPU pixmaps, with the WGSL
// source of the same operation for GPU targets:
//
//	fx := postfx.Grayscale()
//	if err := output.AddPost(fx.Hook()); err != nil {
//		return err
//	}
//
// On GPU targets the WGSL source is compiled to SPIR-V with naga, turned
// into a HAL shader module by Effect.Prepare and drawn as a fullscreen
// triangle. Call Effect.Release after removing the hook to free the
// pipeline.
package postfx
