package mcp

import (
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driving"
)

// Ports aggregates all port interfaces required by the MCP server.
// This provides a single injection point for dependency injection.
type Ports struct {
	// Ask answers grounded questions over the document corpus.
	Ask driving.AskService

	// Rules supplies the active heuristic rule set (optional, backs the
	// rules resource).
	Rules driven.RuleStore

	// Store is the vector store (optional, backs the corpus resource).
	Store driven.VectorStore
}

// Validate ensures all required ports are set.
// Returns an error if any required port is nil.
func (p *Ports) Validate() error {
	if p.Ask == nil {
		return ErrMissingAskService
	}
	// Rules and Store only back informational resources
	return nil
}
