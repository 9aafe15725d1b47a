// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import "errors"

var (
	// ErrNilBackend is returned by NewOutput when no backend is given.
	ErrNilBackend = errors.New("compositor: nil backend")

	// ErrNilWorkspaces is returned by NewOutput when no workspace manager
	// is given.
	ErrNilWorkspaces = errors.New("compositor: nil workspace manager")

	// ErrInvalidGrid is returned for a workspace grid with a non-positive
	// dimension.
	ErrInvalidGrid = errors.New("compositor: invalid workspace grid")

	// ErrDestroyed is returned by operations on a destroyed output.
	ErrDestroyed = errors.New("compositor: output destroyed")
)
