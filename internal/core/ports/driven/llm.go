// Package driven provides interfaces for infrastructure adapters (secondary/outbound ports).
package driven

import (
	"context"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
)

// GenerationService produces chat completions. It serves two consumers:
// answer generation and the relevance filter.
//
// Implementations may include:
//   - OpenAI (gpt-4o, gpt-5 family)
//   - Local inference servers with OpenAI-compatible APIs
type GenerationService interface {
	// Complete sends a system/user prompt pair and returns the model's
	// answer text. The request's capability descriptor controls which
	// wire parameters are sent.
	Complete(ctx context.Context, req CompletionRequest) (string, error)

	// Ping validates the service is reachable by making a lightweight test request.
	Ping(ctx context.Context) error
}

// CompletionRequest is a single chat completion call.
type CompletionRequest struct {
	// Model is the model identifier.
	Model string

	// System is the system prompt. Empty means no system message.
	System string

	// User is the user message.
	User string

	// MaxTokens is the completion budget. The capability descriptor
	// decides the wire parameter name it is sent under.
	MaxTokens int

	// Temperature is only sent when the capability allows it.
	Temperature float64

	// Capability describes how to talk to the model.
	Capability domain.ModelCapability
}
