package domain

import "errors"

// Domain errors represent business logic failures.
// These are distinct from infrastructure errors.
var (
	// ErrNotFound indicates a requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates malformed or invalid input.
	ErrInvalidInput = errors.New("invalid input")

	// ErrEmbeddingUnavailable indicates the embedding service is not
	// configured or failed. Retrieval cannot run without a query vector.
	ErrEmbeddingUnavailable = errors.New("embedding service unavailable")

	// ErrStoreUnavailable indicates the vector store is not configured.
	// Raised at initialisation, never per-query.
	ErrStoreUnavailable = errors.New("vector store unavailable")

	// ErrStoreQueryFailed indicates the vector store query failed.
	// Retrieval surfaces this with no partial results.
	ErrStoreQueryFailed = errors.New("vector store query failed")

	// ErrGenerationFailed indicates the generation call failed after the
	// fallback-model retry was exhausted.
	ErrGenerationFailed = errors.New("generation failed")

	// ErrEmptyAnswer indicates the model returned an empty answer after
	// all fallback attempts.
	ErrEmptyAnswer = errors.New("model returned an empty answer")

	// ErrRateLimited indicates the API rate limit was exceeded.
	ErrRateLimited = errors.New("rate limited")
)
