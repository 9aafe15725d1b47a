// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package term presents a headless screen in a terminal.
//
// Every terminal cell shows two screen pixels stacked vertically, drawn as
// an upper half block with the top pixel as foreground and the bottom
// pixel as background color. Only the damaged cells are redrawn after a
// swap. A terminal of 160×48 cells is a 160×96 pixel display.
package term

import (
	"fmt"
	"image"
	"image/color"

	"github.com/gdamore/tcell/v2"

	"github.com/gogpu/compositor/backend"
	"github.com/gogpu/compositor/backend/headless"
	"github.com/gogpu/compositor/internal/rlog"
)

const halfBlock = '▀'

func init() {
	backend.Register(backend.BackendTerm, func(cfg backend.Config) (backend.DisplayBackend, error) {
		screen, err := tcell.NewScreen()
		if err != nil {
			return nil, fmt.Errorf("%w: %v", backend.ErrBackendNotAvailable, err)
		}
		if err := screen.Init(); err != nil {
			return nil, fmt.Errorf("%w: %v", backend.ErrBackendNotAvailable, err)
		}
		b := New(screen, headless.WithEventLoop(cfg.Loop), headless.WithScale(cfg.Scale))
		b.owned = true
		return b, nil
	})
}

// Backend is a headless display mirrored to a tcell screen.
//
// Backend is NOT thread-safe except for Events, which may be read from
// any goroutine.
type Backend struct {
	*headless.Backend

	screen tcell.Screen
	style  tcell.Style
	owned  bool

	events chan tcell.Event
	done   chan struct{}
	closed bool
}

// New creates a display sized to screen. The screen must be initialized.
// Close does not finalize a screen passed to New.
func New(screen tcell.Screen, opts ...headless.Option) *Backend {
	cols, rows := screen.Size()
	b := &Backend{
		Backend: headless.New(cols, rows*2, opts...),
		screen:  screen,
		style:   tcell.StyleDefault,
		events:  make(chan tcell.Event, 16),
		done:    make(chan struct{}),
	}
	screen.HideCursor()
	b.OnPresent(b.present)
	go b.poll()
	return b
}

// Name returns "term".
func (b *Backend) Name() string {
	return backend.BackendTerm
}

// Terminal returns the tcell screen the display is shown on.
func (b *Backend) Terminal() tcell.Screen {
	return b.screen
}

// Events returns the terminal input events. The channel is closed when the
// backend is closed.
func (b *Backend) Events() <-chan tcell.Event {
	return b.events
}

// HandleResize matches the display to the current terminal size.
func (b *Backend) HandleResize() {
	cols, rows := b.screen.Size()
	if w, h := b.Size(); w == cols && h == rows*2 {
		return
	}
	b.screen.Clear()
	b.Resize(cols, rows*2)
	rlog.Logger().Debug("term: resized", "cols", cols, "rows", rows)
}

// Close stops frame delivery and input polling. A screen created by the
// backend registry is finalized.
func (b *Backend) Close() error {
	if b.closed {
		return nil
	}
	b.closed = true
	close(b.done)
	if err := b.Backend.Close(); err != nil {
		return err
	}
	if b.owned {
		b.screen.Fini()
	}
	return nil
}

func (b *Backend) poll() {
	defer close(b.events)
	for {
		ev := b.screen.PollEvent()
		if ev == nil {
			return
		}
		select {
		case b.events <- ev:
		case <-b.done:
			return
		}
	}
}

// present copies the damaged part of the screen pixmap to the terminal.
func (b *Backend) present(p *headless.Presentation) {
	w, h := b.Size()
	full := image.Rect(0, 0, w, h)
	rects := []image.Rectangle{full}
	if p.Damage.NotEmpty() {
		rects = p.Damage.Rects()
	}

	px := b.Pixels()
	for _, rc := range rects {
		rc = rc.Intersect(full)
		for row := rc.Min.Y / 2; row < (rc.Max.Y+1)/2; row++ {
			for x := rc.Min.X; x < rc.Max.X; x++ {
				top := px.RGBAAt(x, row*2)
				bottom := color.RGBA{A: 255}
				if row*2+1 < h {
					bottom = px.RGBAAt(x, row*2+1)
				}
				style := b.style.Foreground(cellColor(top)).Background(cellColor(bottom))
				b.screen.SetContent(x, row, halfBlock, nil, style)
			}
		}
	}
	b.screen.Show()
}

func cellColor(c color.RGBA) tcell.Color {
	return tcell.NewRGBColor(int32(c.R), int32(c.G), int32(c.B))
}

var _ backend.DisplayBackend = (*Backend)(nil)
