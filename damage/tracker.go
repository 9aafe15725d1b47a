// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package damage accumulates the dirty region of an output between repaints.
//
// The Tracker keeps two regions in sync: the backend's own pending damage
// (which knows about buffer ages and what the display still shows) and a
// tracked region that may extend beyond the output, for example when a
// workspace stream next to the visible one is damaged. Consume merges both
// into the region to repaint; Finish clears the tracked region once the
// backend has swapped.
package damage

import (
	"fmt"
	"image"
	"time"

	"github.com/gogpu/compositor/region"
)

// Backend is the part of the display backend the tracker drives.
type Backend interface {
	// AddDamage adds a region to the backend's pending damage.
	AddDamage(r *region.Region)

	// MakeCurrent prepares the next buffer for rendering and stores the
	// backend's pending damage in out. needsSwap reports whether anything
	// must be presented at all.
	MakeCurrent(out *region.Region) (needsSwap bool, err error)

	// SwapBuffers presents the current buffer. damage is the part of the
	// buffer that changed, when is the time the repaint started.
	SwapBuffers(when time.Time, damage *region.Region) error

	// ScheduleFrame asks the backend for a frame callback.
	ScheduleFrame()

	// TransformedResolution returns the output size in damage space.
	TransformedResolution() (width, height int)
}

// Tracker accumulates damage for one output.
//
// Tracker is NOT thread-safe; it is driven from the compositor main loop.
type Tracker struct {
	backend Backend
	frame   region.Region

	// DisableTracking makes Consume always report the whole output, which
	// is useful to verify that partial repaints are correct.
	DisableTracking bool
}

// NewTracker creates a tracker bound to a backend.
func NewTracker(b Backend) *Tracker {
	return &Tracker{backend: b}
}

// outputRect returns the full output rectangle in damage space.
func (t *Tracker) outputRect() image.Rectangle {
	w, h := t.backend.TransformedResolution()
	return image.Rect(0, 0, max(w, 0), max(h, 0))
}

// AddAll damages the whole output.
func (t *Tracker) AddAll() {
	t.AddBox(t.outputRect())
}

// AddBox damages a rectangle and schedules a repaint.
func (t *Tracker) AddBox(box image.Rectangle) {
	if box.Empty() {
		return
	}
	t.frame.UnionRect(box)
	r := region.New(box)
	t.backend.AddDamage(&r)
	t.backend.ScheduleFrame()
}

// Add damages a region and schedules a repaint.
func (t *Tracker) Add(r *region.Region) {
	if r == nil || r.Empty() {
		return
	}
	t.frame.Union(r)
	t.backend.AddDamage(r)
	t.backend.ScheduleFrame()
}

// Pending returns the tracked region accumulated since the last Finish.
// The returned region must not be modified.
func (t *Tracker) Pending() *region.Region {
	return &t.frame
}

// Consume stores the region to repaint in out and reports whether the
// backend needs a swap.
//
// out receives the backend's pending damage, united with the tracked damage
// lying outside the output (the part inside is already covered by the
// backend's damage) and, when tracking is disabled, the whole output.
func (t *Tracker) Consume(out *region.Region) (bool, error) {
	needsSwap, err := t.backend.MakeCurrent(out)
	if err != nil {
		return false, fmt.Errorf("damage: make current: %w", err)
	}

	full := t.outputRect()
	offscreen := t.frame.Clone()
	offscreen.SubtractRect(full)
	out.Union(&offscreen)

	if t.DisableTracking {
		out.UnionRect(full)
	}
	return needsSwap, nil
}

// Finish presents the frame through the backend and clears the tracked
// region. On error the tracked region is kept so the next frame repaints it.
func (t *Tracker) Finish(when time.Time, swapDamage *region.Region) error {
	if err := t.backend.SwapBuffers(when, swapDamage); err != nil {
		return fmt.Errorf("damage: swap buffers: %w", err)
	}
	t.frame.Clear()
	return nil
}

// Reset drops the tracked region without presenting.
func (t *Tracker) Reset() {
	t.frame.Clear()
}
