package tui

import (
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driving"
)

// Ports aggregates the driving port interfaces required by the chat TUI.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ask answers grounded questions over the document corpus.
	Ask driving.AskService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Ask == nil {
		return ErrMissingAskService
	}
	return nil
}
