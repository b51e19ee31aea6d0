package driven

import (
	"context"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
)

// RuleStore supplies the heuristic rule set that drives query enhancement,
// usefulness filtering, procedural-intent detection, model capabilities
// and prompt templates. Implementations load rules from disk with embedded
// defaults and may support hot reload.
type RuleStore interface {
	// Rules returns the current rule set. Safe for concurrent use.
	Rules() domain.RuleSet

	// Reload re-reads the rule set from its backing source.
	Reload() error

	// Watch blocks until ctx is cancelled, reloading the rule set whenever
	// the backing file changes. Implementations without a backing file
	// return immediately.
	Watch(ctx context.Context) error
}
