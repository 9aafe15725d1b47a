// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package compositor implements the per-output, damage-tracked renderer of
// a compositor.
//
// # Overview
//
// An Output owns everything needed to repaint one display: a damage
// tracker, one cached stream per virtual workspace, a default framebuffer,
// the effect hooks of the three frame phases and the post-processing
// chain. Each time the display backend is ready for a frame the output
// works out which part of the screen changed, redraws only that part by
// compositing the visible surfaces into the target buffer, runs the
// effects and hands the result back to the backend.
//
// # Quick Start
//
//	loop := eventloop.New()
//	be := headless.New(1920, 1080, headless.WithEventLoop(loop))
//	out, err := compositor.NewOutput(be, workspaces,
//	    compositor.WithEventLoop(loop),
//	    compositor.WithWorkspaceGrid(3, 3),
//	)
//	if err != nil {
//	    return err
//	}
//	defer out.Destroy()
//
//	out.DamageBox(image.Rect(10, 10, 110, 110))
//	loop.Dispatch() // frame callback → out.Paint
//
// # Frame Lifecycle
//
// Paint walks the states Idle → DamagePending → Compositing →
// PostProcessing → Presented → Idle. A frame with nothing to present
// skips compositing but still runs the post-paint hooks and sends frame
// done events, so clients keep animating.
//
// # Collaborators
//
// The output never looks at windows or protocol objects directly. It
// consumes a Backend (frame callbacks, damage, swaps, the screen target),
// a WorkspaceManager (views per workspace and layer) and an EventLoop for
// deferred work. Views and surfaces render themselves through the View and
// Surface interfaces.
//
// # Thread Safety
//
// An Output is NOT thread-safe. All methods must be called from the
// goroutine that dispatches the event loop.
//
// # Logging
//
// The package logs through log/slog. By default nothing is logged; call
// SetLogger to enable output.
package compositor
