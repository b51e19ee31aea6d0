package services

import (
	"strings"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// truncationNotice is appended when assembled context had to be cut.
const truncationNotice = "\n[...truncated for length...]"

// ContextAssembler concatenates filtered passages into the generation
// context and enforces the token budget by deterministic prefix
// truncation.
type ContextAssembler struct {
	counter driven.TokenCounter
}

// NewContextAssembler creates a context assembler using the given token
// counter.
func NewContextAssembler(counter driven.TokenCounter) *ContextAssembler {
	return &ContextAssembler{counter: counter}
}

// Assemble joins passage texts with blank-line separators and truncates to
// the budget when necessary. It returns the context text, whether it was
// truncated, and its token count. Context within budget comes back
// byte-identical to the joined input.
func (a *ContextAssembler) Assemble(model string, passages []domain.Passage, budget int) (string, bool, int) {
	texts := make([]string, 0, len(passages))
	for _, p := range passages {
		texts = append(texts, p.Text)
	}
	context := strings.Join(texts, "\n\n")

	count := a.counter.Count(model, context)
	if budget < 0 {
		budget = 0
	}
	if count <= budget {
		return context, false, count
	}

	logger.Warn("Context is %d tokens against a budget of %d, truncating", count, budget)

	markerTokens := a.counter.Count(model, truncationNotice)
	if markerTokens > budget {
		// No room for the notice itself.
		truncated, n := a.counter.Truncate(model, context, budget)
		return truncated, true, n
	}

	truncated, _ := a.counter.Truncate(model, context, budget-markerTokens)
	result := truncated + truncationNotice
	n := a.counter.Count(model, result)
	if n > budget {
		// Concatenation can re-tokenise across the seam.
		result, n = a.counter.Truncate(model, result, budget)
	}
	return result, true, n
}
