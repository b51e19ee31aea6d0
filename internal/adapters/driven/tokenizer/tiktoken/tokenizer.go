// Package tiktoken provides a TokenCounter using OpenAI's tiktoken
// encodings, so context budgets match what the API actually bills.
package tiktoken

import (
	"sync"

	"github.com/pkoukk/tiktoken-go"

	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// Ensure TokenCounter implements the interface.
var _ driven.TokenCounter = (*TokenCounter)(nil)

// fallbackEncoding covers models tiktoken does not know about yet.
const fallbackEncoding = "cl100k_base"

// TokenCounter counts and truncates text with the encoding that matches
// the model. Encodings are cached per model; unknown models fall back to
// cl100k_base.
type TokenCounter struct {
	mu        sync.Mutex
	encodings map[string]*tiktoken.Tiktoken
}

// NewTokenCounter creates a token counter with an empty encoding cache.
func NewTokenCounter() *TokenCounter {
	return &TokenCounter{encodings: make(map[string]*tiktoken.Tiktoken)}
}

// Count returns the number of tokens text encodes to for the model.
func (c *TokenCounter) Count(model, text string) int {
	return len(c.encoding(model).Encode(text, nil, nil))
}

// Truncate cuts text to at most limit tokens and returns the cut text with
// its token count. Text within the limit is returned unchanged.
func (c *TokenCounter) Truncate(model, text string, limit int) (string, int) {
	if limit <= 0 {
		return "", 0
	}
	enc := c.encoding(model)
	tokens := enc.Encode(text, nil, nil)
	if len(tokens) <= limit {
		return text, len(tokens)
	}
	return enc.Decode(tokens[:limit]), limit
}

func (c *TokenCounter) encoding(model string) *tiktoken.Tiktoken {
	c.mu.Lock()
	defer c.mu.Unlock()

	if enc, ok := c.encodings[model]; ok {
		return enc
	}

	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		logger.Debug("No tiktoken encoding for model %s, falling back to %s", model, fallbackEncoding)
		enc, err = tiktoken.GetEncoding(fallbackEncoding)
		if err != nil {
			// cl100k_base ships with the library; this cannot fail at
			// runtime short of a corrupted install.
			panic("tiktoken: fallback encoding unavailable: " + err.Error())
		}
	}
	c.encodings[model] = enc
	return enc
}
