package driven

// TokenCounter counts and truncates text in model tokens. Implementations
// resolve the tokeniser from the model name and fall back to a default
// encoding for unknown models.
type TokenCounter interface {
	// Count returns the number of tokens in text for the given model.
	Count(model, text string) int

	// Truncate cuts text to at most limit tokens and returns the cut text
	// together with its token count. Text already within the limit is
	// returned unchanged.
	Truncate(model, text string, limit int) (string, int)
}
