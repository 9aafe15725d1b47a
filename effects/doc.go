// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package effects holds the per-output effect hooks and the
// post-processing chain.
//
// # Hooks
//
// A Hook is a zero-argument callback registered for one Phase. Hooks are
// stored by pointer, so the same function value can be registered twice
// through two different *Hook values and removed independently:
//
//	hook := effects.Hook(func() { ... })
//	set.Add(&hook, effects.Overlay)
//	defer set.Remove(&hook, effects.Overlay)
//
// Run copies the hook list before calling anything. A hook that adds or
// removes hooks, including itself, changes what the next Run sees, never
// the pass in progress.
//
// # Post-processing
//
// A PostChain is an ordered list of PostHook nodes. Each node owns a
// buffer; the first node reads the output's default buffer and every node
// reads the buffer of its predecessor. The last node always writes to the
// screen:
//
//	default ──A──▶ A.buffer ──B──▶ B.buffer (screen)
//
// Remove only marks a node. Sweep, called by the output at the start and
// end of a frame, drops marked nodes and hands the screen back to the new
// tail.
package effects
