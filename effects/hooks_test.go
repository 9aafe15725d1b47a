// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package effects

import "testing"

func TestSetRunOrder(t *testing.T) {
	var s Set
	var got []string
	a := Hook(func() { got = append(got, "a") })
	b := Hook(func() { got = append(got, "b") })
	s.Add(&a, Overlay)
	s.Add(&b, Overlay)

	s.Run(Pre)
	if len(got) != 0 {
		t.Fatalf("Run(Pre) ran overlay hooks: %v", got)
	}
	s.Run(Overlay)
	if len(got) != 2 || got[0] != "a" || got[1] != "b" {
		t.Errorf("Run(Overlay) order = %v, want [a b]", got)
	}
}

func TestSetRemoveByIdentity(t *testing.T) {
	var s Set
	calls := 0
	fn := func() { calls++ }
	a, b := Hook(fn), Hook(fn)
	s.Add(&a, Pre)
	s.Add(&b, Pre)

	s.Remove(&a, Pre)
	if s.Len(Pre) != 1 {
		t.Fatalf("Len(Pre) = %d, want 1", s.Len(Pre))
	}
	s.Run(Pre)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestSetSelfRemovalDuringRun(t *testing.T) {
	var s Set
	var got []string
	var self Hook
	self = func() {
		got = append(got, "self")
		s.Remove(&self, Post)
	}
	after := Hook(func() { got = append(got, "after") })
	s.Add(&self, Post)
	s.Add(&after, Post)

	s.Run(Post)
	if len(got) != 2 || got[1] != "after" {
		t.Errorf("first pass = %v, want [self after]", got)
	}

	got = nil
	s.Run(Post)
	if len(got) != 1 || got[0] != "after" {
		t.Errorf("second pass = %v, want [after]", got)
	}
}

func TestSetAddDuringRun(t *testing.T) {
	var s Set
	late := 0
	lateHook := Hook(func() { late++ })
	adder := Hook(func() { s.Add(&lateHook, Pre) })
	s.Add(&adder, Pre)

	s.Run(Pre)
	if late != 0 {
		t.Errorf("hook added during Run ran in the same pass")
	}
	s.Run(Pre)
	if late != 1 {
		t.Errorf("late = %d, want 1", late)
	}
}

func TestSetInvalid(t *testing.T) {
	var s Set
	var nilHook Hook
	s.Add(nil, Pre)
	s.Add(&nilHook, Pre)
	ok := Hook(func() {})
	s.Add(&ok, Phase(7))
	for p := Pre; p <= Post; p++ {
		if s.Len(p) != 0 {
			t.Errorf("Len(%v) = %d, want 0", p, s.Len(p))
		}
	}
	s.Run(Phase(7))
	s.Remove(nil, Pre)
}
