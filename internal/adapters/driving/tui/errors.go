// Package tui provides the interactive chat interface for AFIQ, built on
// Bubbletea following the Elm architecture.
package tui

import "errors"

// ErrMissingAskService is returned when the ask service is not provided.
var ErrMissingAskService = errors.New("tui: ask service is required")
