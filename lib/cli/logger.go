// Copyright 2026 The rpi-fan-util Authors
// SPDX-License-Identifier: Apache-2.0

// Package cli provides logger construction shared by the fan tool
// binaries.
package cli

import (
	"log/slog"
	"os"

	"golang.org/x/term"
)

// NewLogger creates the structured logger for a binary. When stderr is
// a terminal it uses slog.TextHandler for human-readable output; when
// stderr is piped or redirected (scripts, service managers) it uses
// slog.JSONHandler for machine-parseable output. The spawned governor
// inherits the spawning terminal's stderr, so it picks the same way.
//
// debug lowers the level from Info to Debug.
func NewLogger(debug bool) *slog.Logger {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}
	options := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if term.IsTerminal(int(os.Stderr.Fd())) {
		handler = slog.NewTextHandler(os.Stderr, options)
	} else {
		handler = slog.NewJSONHandler(os.Stderr, options)
	}
	return slog.New(handler)
}
