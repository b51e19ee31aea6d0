package driving

import (
	"context"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
)

// AskService answers questions about Air Force instructions.
type AskService interface {
	// Ask runs the full retrieve-filter-generate pipeline for one query
	// and returns the response envelope. The envelope is populated even
	// when no context was retrieved; hard failures return an error.
	Ask(ctx context.Context, query string, opts domain.AskOptions) (*domain.Answer, error)
}
