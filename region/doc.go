// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

// Package region implements rectangle-set algebra for damage tracking.
//
// A Region is a set of pixels described by disjoint axis-aligned rectangles.
// It plays the role pixman regions play in C compositors: outputs accumulate
// damage into a Region, intersect it with workspace and surface boxes, and
// subtract opaque areas before repainting.
//
// # Representation
//
// Rectangles are stored y-x banded: the list is sorted by top edge, every
// rectangle in a band shares the same top and bottom, rectangles inside a band
// are sorted by left edge and never touch, and vertically adjacent bands with
// identical spans are coalesced. Because the representation is canonical, two
// regions covering the same pixels compare equal rect by rect.
//
// # Complexity
//
// Union, Intersect and Subtract are a single band sweep over both operands:
// O((n+m) log(n+m)) to sort the band edges plus O(b·k) for the sweep, where b
// is the number of bands and k the number of rectangles spanning one band.
// Translate is O(n). Empty and Extents are O(1) and O(n).
//
// # Thread Safety
//
// A Region is a plain value with no internal locking. Use it from one
// goroutine or synchronize externally.
package region
