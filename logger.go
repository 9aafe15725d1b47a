// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package compositor

import (
	"log/slog"

	"github.com/gogpu/compositor/internal/rlog"
)

// SetLogger configures the logger for the compositor and all its
// sub-packages. By default nothing is logged.
//
// SetLogger is safe for concurrent use: it stores the new logger atomically.
// Pass nil to disable logging (restore default silent behavior).
//
// Log levels used by the compositor:
//   - [slog.LevelDebug]: per-frame diagnostics (damage, stream updates, post hooks)
//   - [slog.LevelInfo]: lifecycle events (output created, destroyed)
//   - [slog.LevelWarn]: frames that could not be rendered, collaborator misuse
//   - [slog.LevelError]: broken internal invariants, right before a panic
//
// Example:
//
//	compositor.SetLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
//	    Level: slog.LevelDebug,
//	})))
func SetLogger(l *slog.Logger) {
	rlog.Set(l)
}

// Logger returns the current logger used by the compositor.
//
// Logger is safe for concurrent use.
func Logger() *slog.Logger {
	return rlog.Logger()
}
