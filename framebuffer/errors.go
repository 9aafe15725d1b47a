// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framebuffer

import "errors"

var (
	// ErrInvalidSize is returned when a buffer is allocated with a
	// non-positive width or height.
	ErrInvalidSize = errors.New("framebuffer: invalid size")

	// ErrNoDevice is returned when an offscreen buffer must be created but
	// no Device was supplied.
	ErrNoDevice = errors.New("framebuffer: no device")

	// ErrNoHALDevice is returned when a provider does not expose HAL types.
	ErrNoHALDevice = errors.New("framebuffer: provider does not expose a HAL device")
)
