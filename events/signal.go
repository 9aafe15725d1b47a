// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package events provides typed broadcast notifications.
//
// Each notification kind is a Signal parameterized by its payload type, so
// listeners receive a *T instead of an untyped payload that must be cast.
// Emit snapshots the listener list first: listeners connected or
// disconnected while a notification is being delivered take effect on the
// next Emit.
package events

import (
	"github.com/gogpu/compositor/internal/rlog"
)

// Kind names a notification for logs and diagnostics.
type Kind uint8

// Notification kinds emitted by an output.
const (
	// StreamPre is emitted before a workspace stream is composited.
	StreamPre Kind = iota

	// StreamPost is emitted after a workspace stream is composited.
	StreamPost

	// StartRendering is emitted when rendering resumes after being
	// inhibited.
	StartRendering
)

// String returns the notification name.
func (k Kind) String() string {
	switch k {
	case StreamPre:
		return "workspace-stream-pre"
	case StreamPost:
		return "workspace-stream-post"
	case StartRendering:
		return "start-rendering"
	default:
		return "unknown"
	}
}

// Connection identifies one listener of a Signal.
type Connection[T any] struct {
	fn        func(*T)
	connected bool
}

// Connected reports whether the listener is still attached.
func (c *Connection[T]) Connected() bool {
	return c != nil && c.connected
}

// Signal is an ordered list of listeners for payloads of type T.
//
// The zero value has no kind; use NewSignal to name it. Signal is NOT
// thread-safe.
type Signal[T any] struct {
	kind      Kind
	listeners []*Connection[T]
}

// NewSignal creates a signal of the given kind.
func NewSignal[T any](kind Kind) *Signal[T] {
	return &Signal[T]{kind: kind}
}

// Kind returns the notification kind.
func (s *Signal[T]) Kind() Kind {
	return s.kind
}

// Connect appends a listener. A nil listener is ignored and logged.
func (s *Signal[T]) Connect(fn func(*T)) *Connection[T] {
	if fn == nil {
		rlog.Logger().Warn("events: ignoring nil listener", "signal", s.kind.String())
		return &Connection[T]{}
	}
	c := &Connection[T]{fn: fn, connected: true}
	s.listeners = append(s.listeners, c)
	return c
}

// Disconnect removes a listener. Unknown connections are ignored.
func (s *Signal[T]) Disconnect(c *Connection[T]) {
	if c == nil || !c.connected {
		return
	}
	c.connected = false
	for i, l := range s.listeners {
		if l == c {
			s.listeners = append(s.listeners[:i], s.listeners[i+1:]...)
			return
		}
	}
}

// Len returns the number of connected listeners.
func (s *Signal[T]) Len() int {
	return len(s.listeners)
}

// Emit delivers data to every listener connected when Emit was called.
// Listeners disconnected by an earlier listener of the same pass are
// skipped.
func (s *Signal[T]) Emit(data *T) {
	if len(s.listeners) == 0 {
		return
	}
	snapshot := make([]*Connection[T], len(s.listeners))
	copy(snapshot, s.listeners)
	for _, c := range snapshot {
		if !c.connected {
			continue
		}
		c.fn(data)
	}
}

// DisconnectAll removes every listener.
func (s *Signal[T]) DisconnectAll() {
	for _, c := range s.listeners {
		c.connected = false
	}
	s.listeners = nil
}
