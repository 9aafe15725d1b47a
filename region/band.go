// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package region

import (
	"image"
	"slices"
)

// setOp selects the boolean operation performed by combine.
type setOp uint8

const (
	opUnion setOp = iota
	opIntersect
	opSubtract
)

// span is a half-open horizontal interval [x0, x1).
type span struct {
	x0, x1 int
}

// sweepSide holds one operand of a band sweep: its rectangles sorted by top
// edge and the set of rectangles overlapping the current band.
type sweepSide struct {
	rects  []image.Rectangle
	next   int
	active []image.Rectangle
	spans  []span
}

func newSweepSide(rects []image.Rectangle) sweepSide {
	sorted := make([]image.Rectangle, 0, len(rects))
	for _, r := range rects {
		if r = r.Canon(); !r.Empty() {
			sorted = append(sorted, r)
		}
	}
	slices.SortFunc(sorted, func(a, b image.Rectangle) int {
		return a.Min.Y - b.Min.Y
	})
	return sweepSide{rects: sorted}
}

// advance updates the active set for the band [y0, y1) and rebuilds the
// merged spans covering it.
func (s *sweepSide) advance(y0, y1 int) {
	kept := s.active[:0]
	for _, r := range s.active {
		if r.Max.Y > y0 {
			kept = append(kept, r)
		}
	}
	s.active = kept
	for s.next < len(s.rects) && s.rects[s.next].Min.Y <= y0 {
		if s.rects[s.next].Max.Y > y0 {
			s.active = append(s.active, s.rects[s.next])
		}
		s.next++
	}

	s.spans = s.spans[:0]
	for _, r := range s.active {
		// Band edges include every rect edge, so an active rect spans the band.
		if r.Min.Y <= y0 && r.Max.Y >= y1 {
			s.spans = append(s.spans, span{r.Min.X, r.Max.X})
		}
	}
	s.spans = mergeSpans(s.spans)
}

// mergeSpans sorts spans and joins overlapping or touching intervals in place.
func mergeSpans(spans []span) []span {
	if len(spans) < 2 {
		return spans
	}
	slices.SortFunc(spans, func(a, b span) int { return a.x0 - b.x0 })
	out := spans[:1]
	for _, s := range spans[1:] {
		last := &out[len(out)-1]
		if s.x0 <= last.x1 {
			if s.x1 > last.x1 {
				last.x1 = s.x1
			}
			continue
		}
		out = append(out, s)
	}
	return out
}

// combine applies op to the pixel sets a and b and returns the normalized,
// y-x banded result. Inputs may overlap and need not be sorted.
func combine(a, b []image.Rectangle, op setOp) []image.Rectangle {
	sa := newSweepSide(a)
	sb := newSweepSide(b)

	ys := make([]int, 0, 2*(len(sa.rects)+len(sb.rects)))
	for _, r := range sa.rects {
		ys = append(ys, r.Min.Y, r.Max.Y)
	}
	for _, r := range sb.rects {
		ys = append(ys, r.Min.Y, r.Max.Y)
	}
	slices.Sort(ys)
	ys = slices.Compact(ys)

	out := make([]image.Rectangle, 0, len(sa.rects)+len(sb.rects))
	var spans, prev []span
	prevStart, prevBottom := -1, 0

	for i := 0; i+1 < len(ys); i++ {
		y0, y1 := ys[i], ys[i+1]
		sa.advance(y0, y1)
		sb.advance(y0, y1)

		spans = applySpans(spans[:0], sa.spans, sb.spans, op)
		if len(spans) == 0 {
			prevStart = -1
			continue
		}

		// Coalesce with the band directly above when the spans match.
		if prevStart >= 0 && prevBottom == y0 && slices.Equal(prev, spans) {
			for j := prevStart; j < len(out); j++ {
				out[j].Max.Y = y1
			}
			prevBottom = y1
			continue
		}

		prevStart = len(out)
		prevBottom = y1
		for _, s := range spans {
			out = append(out, image.Rect(s.x0, y0, s.x1, y1))
		}
		prev = append(prev[:0], spans...)
	}
	return out
}

// applySpans appends op(a, b) to dst. Both inputs must be sorted and merged.
func applySpans(dst, a, b []span, op setOp) []span {
	switch op {
	case opUnion:
		merged := append(append(dst, a...), b...)
		return mergeSpans(merged)

	case opIntersect:
		i, j := 0, 0
		for i < len(a) && j < len(b) {
			x0 := max(a[i].x0, b[j].x0)
			x1 := min(a[i].x1, b[j].x1)
			if x0 < x1 {
				dst = append(dst, span{x0, x1})
			}
			if a[i].x1 < b[j].x1 {
				i++
			} else {
				j++
			}
		}
		return dst

	case opSubtract:
		j := 0
		for _, s := range a {
			x0 := s.x0
			for j < len(b) && b[j].x1 <= x0 {
				j++
			}
			k := j
			for k < len(b) && b[k].x0 < s.x1 {
				if b[k].x0 > x0 {
					dst = append(dst, span{x0, b[k].x0})
				}
				if b[k].x1 > x0 {
					x0 = b[k].x1
				}
				k++
			}
			if x0 < s.x1 {
				dst = append(dst, span{x0, s.x1})
			}
		}
		return dst
	}
	return dst
}
