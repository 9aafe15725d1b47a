// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package damage

import (
	"errors"
	"image"
	"math/rand"
	"testing"
	"time"

	"github.com/gogpu/compositor/region"
)

// fakeBackend mimics an output damage manager clipped to the output.
type fakeBackend struct {
	w, h      int
	pending   region.Region
	scheduled int
	swaps     []region.Region
	makeErr   error
	swapErr   error
}

func (b *fakeBackend) AddDamage(r *region.Region) {
	c := r.Clone()
	c.IntersectRect(image.Rect(0, 0, b.w, b.h))
	b.pending.Union(&c)
}

func (b *fakeBackend) MakeCurrent(out *region.Region) (bool, error) {
	if b.makeErr != nil {
		return false, b.makeErr
	}
	out.Union(&b.pending)
	return b.pending.NotEmpty(), nil
}

func (b *fakeBackend) SwapBuffers(_ time.Time, d *region.Region) error {
	if b.swapErr != nil {
		return b.swapErr
	}
	b.swaps = append(b.swaps, d.Clone())
	b.pending.Clear()
	return nil
}

func (b *fakeBackend) ScheduleFrame()                    { b.scheduled++ }
func (b *fakeBackend) TransformedResolution() (int, int) { return b.w, b.h }

func newFake() *fakeBackend {
	return &fakeBackend{w: 1920, h: 1080}
}

func TestAddSchedulesFrame(t *testing.T) {
	b := newFake()
	tr := NewTracker(b)

	tr.AddBox(image.Rect(10, 10, 110, 110))
	if b.scheduled != 1 {
		t.Errorf("scheduled = %d, want 1", b.scheduled)
	}

	tr.AddBox(image.Rectangle{})
	tr.Add(nil)
	if b.scheduled != 1 {
		t.Errorf("empty damage scheduled a frame: scheduled = %d", b.scheduled)
	}
}

func TestConsumeBox(t *testing.T) {
	b := newFake()
	tr := NewTracker(b)
	tr.AddBox(image.Rect(10, 10, 110, 110))

	var out region.Region
	needsSwap, err := tr.Consume(&out)
	if err != nil {
		t.Fatalf("Consume() error = %v", err)
	}
	if !needsSwap {
		t.Error("Consume() needsSwap = false, want true")
	}
	want := region.FromRect(10, 10, 100, 100)
	if !out.Equal(&want) {
		t.Errorf("Consume() region = %v, want %v", out.String(), want.String())
	}
}

func TestConsumeKeepsOffscreenDamage(t *testing.T) {
	b := newFake()
	tr := NewTracker(b)

	// Damage on the workspace to the right of the visible one.
	tr.AddBox(image.Rect(1920+5, 0, 1920+50, 40))

	var out region.Region
	needsSwap, err := tr.Consume(&out)
	if err != nil {
		t.Fatal(err)
	}
	if needsSwap {
		t.Error("offscreen-only damage must not require a swap")
	}
	if !out.ContainsRect(image.Rect(1925, 0, 1970, 40)) {
		t.Errorf("Consume() = %v, lost offscreen damage", out.String())
	}
}

func TestConsumeDisableTracking(t *testing.T) {
	b := newFake()
	tr := NewTracker(b)
	tr.DisableTracking = true
	tr.AddBox(image.Rect(0, 0, 1, 1))

	var out region.Region
	if _, err := tr.Consume(&out); err != nil {
		t.Fatal(err)
	}
	if !out.ContainsRect(image.Rect(0, 0, 1920, 1080)) {
		t.Errorf("Consume() with tracking disabled = %v, want full output", out.String())
	}
}

func TestConsumeNeverDropsDamage(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	for iter := 0; iter < 50; iter++ {
		b := newFake()
		tr := NewTracker(b)
		var submitted []image.Rectangle
		for i := 0; i < rng.Intn(10)+1; i++ {
			x, y := rng.Intn(4000)-1000, rng.Intn(2000)-500
			rc := image.Rect(x, y, x+rng.Intn(300)+1, y+rng.Intn(300)+1)
			submitted = append(submitted, rc)
			if i%2 == 0 {
				tr.AddBox(rc)
			} else {
				r := region.New(rc)
				tr.Add(&r)
			}
		}

		var out region.Region
		if _, err := tr.Consume(&out); err != nil {
			t.Fatal(err)
		}
		for _, rc := range submitted {
			if !out.ContainsRect(rc) {
				t.Fatalf("iter %d: consumed %v does not contain %v", iter, out.String(), rc)
			}
		}
	}
}

func TestFinishClears(t *testing.T) {
	b := newFake()
	tr := NewTracker(b)
	tr.AddBox(image.Rect(3000, 0, 3010, 10))

	swap := region.FromRect(0, 0, 5, 5)
	if err := tr.Finish(time.Now(), &swap); err != nil {
		t.Fatalf("Finish() = %v", err)
	}
	if !tr.Pending().Empty() {
		t.Errorf("Pending() after Finish() = %v, want empty", tr.Pending().String())
	}
	if len(b.swaps) != 1 || !b.swaps[0].Equal(&swap) {
		t.Errorf("backend swaps = %v, want one swap of %v", len(b.swaps), swap.String())
	}
}

func TestFinishErrorKeepsDamage(t *testing.T) {
	b := newFake()
	b.swapErr = errors.New("device lost")
	tr := NewTracker(b)
	tr.AddBox(image.Rect(0, 0, 10, 10))

	var swap region.Region
	if err := tr.Finish(time.Now(), &swap); err == nil {
		t.Fatal("Finish() error = nil, want error")
	}
	if tr.Pending().Empty() {
		t.Error("failed swap must keep the tracked damage")
	}
}

func TestConsumeError(t *testing.T) {
	b := newFake()
	b.makeErr = errors.New("no buffer")
	tr := NewTracker(b)

	var out region.Region
	if _, err := tr.Consume(&out); !errors.Is(err, b.makeErr) {
		t.Errorf("Consume() error = %v, want wrapped %v", err, b.makeErr)
	}
}
