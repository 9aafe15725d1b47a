// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package postfx

import (
	"fmt"

	"github.com/gogpu/naga"
	"github.com/gogpu/wgpu/hal"

	"github.com/gogpu/compositor/framebuffer"
	"github.com/gogpu/compositor/internal/spirvcache"
)

// compiled keeps the SPIR-V of effects prepared earlier, so detaching and
// reattaching an effect does not run the compiler again.
var compiled = spirvcache.New(0)

// CompileSPIRV compiles WGSL source to SPIR-V words.
func CompileSPIRV(wgslSource string) ([]uint32, error) {
	spirvBytes, err := naga.Compile(wgslSource)
	if err != nil {
		return nil, fmt.Errorf("postfx: compile shader: %w", err)
	}
	return spirvWords(spirvBytes)
}

// spirvWords converts little-endian SPIR-V bytes to 32-bit words.
func spirvWords(b []byte) ([]uint32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("postfx: SPIR-V length %d is not a multiple of 4", len(b))
	}
	words := make([]uint32, len(b)/4)
	for i := range words {
		words[i] = uint32(b[i*4]) |
			uint32(b[i*4+1])<<8 |
			uint32(b[i*4+2])<<16 |
			uint32(b[i*4+3])<<24
	}
	return words, nil
}

// Prepare compiles the effect's shader and creates its module on dev.
// Release the module with dev.DestroyShaderModule.
func (e *Effect) Prepare(dev *framebuffer.HALDevice) (hal.ShaderModule, error) {
	spirv, err := compiled.GetOrCompile(e.Source, CompileSPIRV)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", e.Name, err)
	}
	mod, err := dev.CreateShaderModule("postfx "+e.Name, spirv)
	if err != nil {
		return nil, fmt.Errorf("postfx: %s: create shader module: %w", e.Name, err)
	}
	return mod, nil
}

// CacheStats reports how often Prepare found an already compiled shader.
func CacheStats() spirvcache.Stats {
	return compiled.Stats()
}
