// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package effects

import "github.com/gogpu/compositor/internal/rlog"

// Phase selects when a hook runs within a frame.
type Phase uint8

const (
	// Pre hooks run before damage is consumed.
	Pre Phase = iota

	// Overlay hooks run after compositing, before the cursor and the
	// post-processing chain.
	Overlay

	// Post hooks run after the frame was submitted, every frame, whether
	// or not anything was composited.
	Post

	phaseCount
)

// String returns the phase name.
func (p Phase) String() string {
	switch p {
	case Pre:
		return "pre"
	case Overlay:
		return "overlay"
	case Post:
		return "post"
	default:
		return "unknown"
	}
}

// Valid reports whether p names a phase.
func (p Phase) Valid() bool {
	return p < phaseCount
}

// Hook is an effect callback. Hooks are identified by pointer.
type Hook func()

// Set holds the hooks of the three phases in insertion order.
//
// The zero value is ready to use. Set is NOT thread-safe.
type Set struct {
	hooks [phaseCount][]*Hook
}

// Add appends hook to the phase. Nil hooks and unknown phases are logged
// and ignored.
func (s *Set) Add(hook *Hook, phase Phase) {
	if hook == nil || *hook == nil || !phase.Valid() {
		rlog.Logger().Warn("effects: ignoring invalid hook", "phase", phase.String())
		return
	}
	s.hooks[phase] = append(s.hooks[phase], hook)
}

// Remove deletes every registration of hook from the phase, keeping the
// order of the remaining hooks.
func (s *Set) Remove(hook *Hook, phase Phase) {
	if hook == nil || !phase.Valid() {
		return
	}
	list := s.hooks[phase]
	kept := list[:0:0]
	for _, h := range list {
		if h != hook {
			kept = append(kept, h)
		}
	}
	s.hooks[phase] = kept
}

// Run calls the hooks registered for phase when Run started.
func (s *Set) Run(phase Phase) {
	if !phase.Valid() || len(s.hooks[phase]) == 0 {
		return
	}
	active := make([]*Hook, len(s.hooks[phase]))
	copy(active, s.hooks[phase])
	for _, h := range active {
		(*h)()
	}
}

// Len returns the number of hooks registered for phase.
func (s *Set) Len(phase Phase) int {
	if !phase.Valid() {
		return 0
	}
	return len(s.hooks[phase])
}
