// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"fmt"
	"image"
	"image/color"
	"time"

	"github.com/gogpu/compositor/effects"
	"github.com/gogpu/compositor/region"
)

// State is the paint state of an output.
type State uint8

// Paint states, in the order a frame walks through them.
const (
	StateIdle State = iota
	StateDamagePending
	StateCompositing
	StatePostProcessing
	StatePresented
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateIdle:
		return "Idle"
	case StateDamagePending:
		return "DamagePending"
	case StateCompositing:
		return "Compositing"
	case StatePostProcessing:
		return "PostProcessing"
	case StatePresented:
		return "Presented"
	default:
		return "Unknown"
	}
}

// FrameStats counts the frames of an output.
type FrameStats struct {
	// Frames is the number of frame callbacks handled.
	Frames uint64

	// Composited is the number of frames that were rendered and swapped.
	Composited uint64

	// Skipped is the number of frames with nothing to present.
	Skipped uint64

	// Failed is the number of frames dropped because of a backend or
	// allocation error.
	Failed uint64

	// LastDamage is the swap damage of the last composited frame, in
	// output pixels.
	LastDamage image.Rectangle

	// LastDamageArea is the area of that swap damage.
	LastDamageArea int
}

var (
	debugColor   = color.RGBA{R: 255, G: 255, A: 255}
	inhibitColor = color.RGBA{A: 255}
)

// Paint renders one frame. It is called from the backend's frame
// callback.
//
// Frames with nothing to present skip compositing but still run the
// post-paint hooks and send frame done events. Errors from the backend or
// from buffer allocation drop the frame; the damage is kept and the next
// frame tries again.
func (o *Output) Paint() {
	if o.destroyed {
		return
	}
	if o.state != StateIdle {
		Logger().Warn("compositor: nested Paint ignored", "state", o.state.String())
		return
	}
	o.stats.Frames++
	started := o.clock()

	if o.post.Sweep() {
		o.Damage(nil)
	}
	o.frameDamage.Clear()

	o.state = StateDamagePending
	o.effects.Run(effects.Pre)

	needsSwap, err := o.tracker.Consume(&o.frameDamage)
	if err != nil {
		o.dropFrame(err)
		return
	}
	if !needsSwap && o.autoRedraw == 0 {
		o.stats.Skipped++
		o.state = StatePresented
		o.postPaint()
		return
	}

	w, h := o.backend.Size()
	if w <= 0 || h <= 0 {
		Logger().Debug("compositor: zero-sized output, nothing to paint")
		o.stats.Skipped++
		o.state = StatePresented
		o.postPaint()
		return
	}

	o.state = StateCompositing
	if err := o.defaultBuffer.Allocate(o.device, w, h); err != nil {
		o.dropFrame(fmt.Errorf("default buffer: %w", err))
		return
	}
	Logger().Debug("compositor: frame", "damage", o.frameDamage.String())

	tw, th := o.backend.TransformedResolution()
	full := image.Rect(0, 0, tw, th)
	var swap region.Region

	if o.damageDebug {
		swap.UnionRect(full)
		if t := o.TargetFramebuffer().Target; t != nil {
			t.Fill(debugColor)
		}
	}

	if o.renderer != nil {
		o.renderer(o.TargetFramebuffer())
		swap.UnionRect(full)
	} else if err := o.compositeWorkspace(&swap, full); err != nil {
		o.dropFrame(err)
		return
	}

	o.effects.Run(effects.Overlay)

	if o.post.Len() > 0 {
		swap.UnionRect(full)
	}

	o.backend.RenderSoftwareCursors(o.TargetFramebuffer(), &swap)

	o.state = StatePostProcessing
	if err := o.post.Run(w, h, o.framebufferOf); err != nil {
		o.dropFrame(fmt.Errorf("post-processing: %w", err))
		return
	}

	if o.inhibit > 0 {
		if screen := o.backend.Screen(); screen != nil {
			screen.Fill(inhibitColor)
		}
		swap.UnionRect(full)
	}

	if err := o.tracker.Finish(started, &swap); err != nil {
		o.dropFrame(fmt.Errorf("swap: %w", err))
		return
	}
	o.stats.Composited++
	o.stats.LastDamage = swap.Extents()
	o.stats.LastDamageArea = swap.Area()

	o.state = StatePresented
	o.postPaint()
}

// dropFrame ends a frame that could not be presented. The tracker keeps
// the damage and a new frame is requested, so the output catches up
// without waiting for unrelated damage.
func (o *Output) dropFrame(err error) {
	Logger().Warn("compositor: frame dropped", "err", err)
	o.stats.Failed++
	o.state = StateIdle
	o.ScheduleRedraw()
}

// compositeWorkspace repaints the visible workspace through its stream,
// switching streams when the current workspace changed.
func (o *Output) compositeWorkspace(swap *region.Region, full image.Rectangle) error {
	o.frameDamage.IntersectRect(full)
	if o.frameDamage.Empty() {
		return nil
	}

	target, ok := o.Stream(o.workspaces.CurrentWorkspace())
	if !ok {
		Logger().Warn("compositor: current workspace outside the grid",
			"workspace", o.workspaces.CurrentWorkspace())
		return nil
	}
	swap.Union(&o.frameDamage)

	if o.current != target {
		if o.current != nil {
			o.StopStream(o.current)
		}
		o.current = target
		if err := o.StartStream(target); err != nil {
			// Start again on the next frame, with the full workspace.
			o.current = nil
			return err
		}
		swap.UnionRect(full)
		return nil
	}
	return o.UpdateStream(target)
}

// postPaint runs after every frame callback, rendered or not.
func (o *Output) postPaint() {
	if o.post.Sweep() {
		o.Damage(nil)
	}
	o.effects.Run(effects.Post)

	if o.autoRedraw > 0 {
		o.ScheduleRedraw()
	}

	o.sendFrameDone(o.clock())
	o.state = StateIdle
}

// sendFrameDone notifies the surfaces whose content was just shown. With
// a custom renderer every view may be on screen; otherwise only views of
// the current workspace and the layers shown on every workspace are.
func (o *Output) sendFrameDone(now time.Time) {
	send := func(v View) {
		if !v.IsMapped() {
			return
		}
		v.ForEachSurface(func(s Surface, _, _ int) {
			s.SendFrameDone(now)
		})
	}

	if o.renderer != nil {
		o.workspaces.ForEachView(AllLayers, send)
		return
	}
	for _, v := range o.workspaces.ViewsOnWorkspace(o.workspaces.CurrentWorkspace(), MiddleLayers) {
		send(v)
	}
	o.workspaces.ForEachView(BelowLayers|AboveLayers, send)
}
