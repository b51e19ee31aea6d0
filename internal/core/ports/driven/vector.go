package driven

import "context"

// VectorStore provides semantic similarity search over ingested passages.
// Backed by a Chroma collection in production; SQLite and in-memory
// implementations exist for local use and tests.
type VectorStore interface {
	// Query finds the n nearest neighbours to the query vector, optionally
	// restricted by a metadata equality filter. Hits come back in
	// ascending distance order.
	Query(ctx context.Context, embedding []float32, n int, where map[string]string) ([]VectorHit, error)

	// Get fetches passages by metadata equality filter without similarity
	// ranking. Used for within-document hierarchy scans. A limit of 0
	// means no limit.
	Get(ctx context.Context, where map[string]string, limit int) ([]VectorHit, error)

	// Add inserts passages with their embeddings. Used by ingestion and
	// by local store setups.
	Add(ctx context.Context, hits []VectorHit, embeddings [][]float32) error

	// Count returns the number of stored passages.
	Count(ctx context.Context) (int, error)

	// Metric reports the collection's distance metric: "cosine", "l2" or
	// "ip". Anything else is treated as unknown.
	Metric() string

	// Close releases resources.
	Close() error
}

// VectorHit represents a single stored passage as returned by the store.
type VectorHit struct {
	// ID is the opaque passage key.
	ID string

	// Text is the passage content.
	Text string

	// Metadata is the flat metadata map attached at ingestion.
	Metadata map[string]string

	// Distance is the raw metric distance from the query vector.
	// Zero for Get results, which carry no query.
	Distance float64
}
