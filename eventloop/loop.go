// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package eventloop provides the single-threaded idle queue that drives an
// output: frame callbacks, coalesced redraw requests and deferred damage
// all run from Dispatch on the compositor's main goroutine.
package eventloop

import (
	"context"
	"sync"
	"time"

	"github.com/gogpu/compositor/internal/rlog"
)

type idle struct {
	fn      func()
	removed bool
}

// Loop is a FIFO queue of idle callbacks.
//
// Loop is NOT thread-safe except for Post and Wake, which may be called
// from any goroutine.
type Loop struct {
	queue []*idle
	wake  chan struct{}

	mu     sync.Mutex
	posted []func()
}

// New creates an empty loop.
func New() *Loop {
	return &Loop{wake: make(chan struct{}, 1)}
}

// AddIdle queues fn to run on the next Dispatch. The returned function
// removes fn from the queue if it has not run yet; calling it afterwards
// is a no-op.
func (l *Loop) AddIdle(fn func()) (cancel func()) {
	if fn == nil {
		rlog.Logger().Warn("eventloop: ignoring nil idle callback")
		return func() {}
	}
	it := &idle{fn: fn}
	l.queue = append(l.queue, it)
	l.Wake()
	return func() { it.removed = true }
}

// Post queues fn from any goroutine. It runs on the loop goroutine during
// the next Dispatch.
func (l *Loop) Post(fn func()) {
	if fn == nil {
		return
	}
	l.mu.Lock()
	l.posted = append(l.posted, fn)
	l.mu.Unlock()
	l.Wake()
}

// takePosted moves the posted callbacks to the idle queue.
func (l *Loop) takePosted() {
	l.mu.Lock()
	posted := l.posted
	l.posted = nil
	l.mu.Unlock()
	for _, fn := range posted {
		l.queue = append(l.queue, &idle{fn: fn})
	}
}

// Pending returns the number of queued callbacks, including removed ones
// not yet dropped by Dispatch.
func (l *Loop) Pending() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.queue) + len(l.posted)
}

// Dispatch runs the callbacks queued before it was called. Callbacks
// queued by a running callback run on the next Dispatch, so a callback
// that keeps rescheduling itself cannot starve the caller. It returns the
// number of callbacks run.
func (l *Loop) Dispatch() int {
	l.takePosted()
	batch := l.queue
	l.queue = nil
	n := 0
	for i, it := range batch {
		batch[i] = nil
		if it.removed {
			continue
		}
		it.removed = true
		it.fn()
		n++
	}
	return n
}

// Wake interrupts a Run waiting for work.
func (l *Loop) Wake() {
	select {
	case l.wake <- struct{}{}:
	default:
	}
}

// Run dispatches callbacks until ctx is done. Between dispatches it waits
// for Wake or for tick, whichever comes first; a non-positive tick waits
// for Wake only. Wake is signaled by every AddIdle.
func (l *Loop) Run(ctx context.Context, tick time.Duration) error {
	var ticks <-chan time.Time
	if tick > 0 {
		t := time.NewTicker(tick)
		defer t.Stop()
		ticks = t.C
	}
	for {
		l.Dispatch()
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-l.wake:
		case <-ticks:
		}
	}
}
