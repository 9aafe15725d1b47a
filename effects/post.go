// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package effects

import (
	"errors"
	"fmt"

	"github.com/gogpu/compositor/framebuffer"
	"github.com/gogpu/compositor/internal/rlog"
)

// ErrChainBroken is the panic value used when the post-processing chain
// does not end on the screen buffer. It indicates a bug in the chain
// bookkeeping, not a runtime condition.
var ErrChainBroken = errors.New("effects: post-processing chain does not end on the screen")

// PostHook renders src into dst.
type PostHook func(src, dst framebuffer.Framebuffer)

// Resolver turns a buffer of the chain into the Framebuffer handed to a
// hook. The output supplies it so that the screen handle resolves to the
// scanout target.
type Resolver func(b *framebuffer.Buffer) framebuffer.Framebuffer

type postNode struct {
	hook     *PostHook
	toRemove bool
	buffer   framebuffer.Buffer
}

// PostChain is the ordered list of post-processing hooks of an output.
//
// PostChain is NOT thread-safe.
type PostChain struct {
	def   *framebuffer.Buffer
	dev   framebuffer.Device
	nodes []*postNode
}

// NewPostChain creates an empty chain reading from def. Offscreen buffers
// are created on dev.
func NewPostChain(def *framebuffer.Buffer, dev framebuffer.Device) *PostChain {
	return &PostChain{def: def, dev: dev}
}

// SetDevice replaces the device used for new node buffers.
func (c *PostChain) SetDevice(dev framebuffer.Device) {
	c.dev = dev
}

// tail returns the buffer the last hook writes to, or the default buffer
// for an empty chain.
func (c *PostChain) tail() *framebuffer.Buffer {
	if len(c.nodes) == 0 {
		return c.def
	}
	return &c.nodes[len(c.nodes)-1].buffer
}

// Add appends hook to the chain. The current tail is moved offscreen at
// width×height and the new node takes over the screen.
func (c *PostChain) Add(hook *PostHook, width, height int) error {
	if hook == nil || *hook == nil {
		rlog.Logger().Warn("effects: ignoring nil post hook")
		return nil
	}

	buf := c.tail()
	buf.Reset()
	if err := buf.Allocate(c.dev, width, height); err != nil {
		buf.MakeScreen()
		return fmt.Errorf("effects: add post hook: %w", err)
	}

	n := &postNode{hook: hook}
	if err := n.buffer.Allocate(c.dev, width, height); err != nil {
		return fmt.Errorf("effects: add post hook: %w", err)
	}
	c.nodes = append(c.nodes, n)
	return nil
}

// Remove marks every node running hook for removal and reports whether
// one was found. The nodes keep running until the next Sweep.
func (c *PostChain) Remove(hook *PostHook) bool {
	found := false
	for _, n := range c.nodes {
		if n.hook == hook {
			n.toRemove = true
			found = true
		}
	}
	return found
}

// Sweep drops the nodes marked by Remove, releasing their buffers, and
// makes the new tail write to the screen. It reports whether any node was
// removed.
func (c *PostChain) Sweep() bool {
	kept := c.nodes[:0]
	removed := false
	for _, n := range c.nodes {
		if n.toRemove {
			n.buffer.Release()
			removed = true
			continue
		}
		kept = append(kept, n)
	}
	for i := len(kept); i < len(c.nodes); i++ {
		c.nodes[i] = nil
	}
	c.nodes = kept

	if removed {
		if t := c.tail(); !t.IsScreen() {
			t.MakeScreen()
		}
	}
	return removed
}

// Run calls every hook in order, each reading its predecessor's buffer and
// writing its own. Node buffers are resized to width×height first. A
// chain that does not end on the screen panics with ErrChainBroken.
func (c *PostChain) Run(width, height int, resolve Resolver) error {
	if len(c.nodes) == 0 {
		return nil
	}

	last := c.def
	for _, n := range c.nodes {
		if err := n.buffer.Allocate(c.dev, width, height); err != nil {
			return fmt.Errorf("effects: post buffer: %w", err)
		}
		rlog.Logger().Debug("effects: post hook", "src", last.FB, "dst", n.buffer.FB)
		(*n.hook)(resolve(last), resolve(&n.buffer))
		last = &n.buffer
	}

	if !last.IsScreen() {
		rlog.Logger().Error("effects: post-processing chain broken", "last", last.FB)
		panic(ErrChainBroken)
	}
	return nil
}

// Len returns the number of nodes, including nodes marked for removal.
func (c *PostChain) Len() int {
	return len(c.nodes)
}

// Chain returns the handles of the default buffer followed by each node's
// buffer, in rendering order.
func (c *PostChain) Chain() []framebuffer.Handle {
	out := make([]framebuffer.Handle, 0, len(c.nodes)+1)
	out = append(out, c.def.FB)
	for _, n := range c.nodes {
		out = append(out, n.buffer.FB)
	}
	return out
}

// Release destroys every node buffer and empties the chain. The default
// buffer is left to its owner.
func (c *PostChain) Release() {
	for _, n := range c.nodes {
		n.buffer.Release()
	}
	c.nodes = nil
}
