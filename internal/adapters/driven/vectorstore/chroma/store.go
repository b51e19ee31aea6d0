// Package chroma provides a VectorStore adapter backed by a Chroma server's
// REST API.
package chroma

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/sony/gobreaker"

	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

// Default configuration values.
const (
	DefaultBaseURL    = "http://localhost:8000"
	DefaultCollection = "afi_documents"
	DefaultTimeout    = 30 * time.Second
)

// Config holds configuration for the Chroma store.
type Config struct {
	// BaseURL is the Chroma server address (default: http://localhost:8000).
	BaseURL string

	// Collection is the collection name (default: afi_documents).
	Collection string

	// Timeout is the request timeout (default: 30s).
	Timeout time.Duration
}

// Store talks to one Chroma collection. Calls run through a circuit
// breaker so a down server fails fast instead of stalling every query on
// its timeout.
type Store struct {
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	baseURL string

	collectionID string
	metric       string
}

// collectionResponse is the Chroma collection lookup format.
type collectionResponse struct {
	ID       string         `json:"id"`
	Name     string         `json:"name"`
	Metadata map[string]any `json:"metadata"`
}

// queryResponse is the Chroma /query response format (one inner list per
// query embedding; we always send exactly one).
type queryResponse struct {
	IDs       [][]string         `json:"ids"`
	Documents [][]string         `json:"documents"`
	Metadatas [][]map[string]any `json:"metadatas"`
	Distances [][]float64        `json:"distances"`
}

// getResponse is the Chroma /get response format.
type getResponse struct {
	IDs       []string         `json:"ids"`
	Documents []string         `json:"documents"`
	Metadatas []map[string]any `json:"metadatas"`
}

// NewStore connects to the Chroma server and resolves the collection ID
// and distance metric once.
func NewStore(ctx context.Context, cfg Config) (*Store, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = DefaultTimeout
	}

	s := &Store{
		client:  &http.Client{Timeout: cfg.Timeout},
		baseURL: cfg.BaseURL,
		breaker: gobreaker.NewCircuitBreaker(gobreaker.Settings{
			Name:    "chroma",
			Timeout: 15 * time.Second,
			ReadyToTrip: func(counts gobreaker.Counts) bool {
				return counts.ConsecutiveFailures >= 3
			},
			OnStateChange: func(name string, from, to gobreaker.State) {
				logger.Warn("Circuit breaker %s: %s -> %s", name, from, to)
			},
		}),
	}

	var coll collectionResponse
	path := "/api/v1/collections/" + cfg.Collection
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &coll); err != nil {
		return nil, fmt.Errorf("resolving collection %q: %w", cfg.Collection, err)
	}
	s.collectionID = coll.ID
	s.metric = "cosine"
	if space, ok := coll.Metadata["hnsw:space"].(string); ok && space != "" {
		s.metric = space
	}
	logger.Debug("Chroma collection %s resolved (id %s, metric %s)", cfg.Collection, s.collectionID, s.metric)
	return s, nil
}

// Query finds the n nearest neighbours to the embedding.
func (s *Store) Query(ctx context.Context, embedding []float32, n int, where map[string]string) ([]driven.VectorHit, error) {
	body := map[string]any{
		"query_embeddings": [][]float32{embedding},
		"n_results":        n,
		"include":          []string{"documents", "metadatas", "distances"},
	}
	if w := whereClause(where); w != nil {
		body["where"] = w
	}

	var resp queryResponse
	path := "/api/v1/collections/" + s.collectionID + "/query"
	if err := s.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}
	if len(resp.IDs) == 0 {
		return nil, nil
	}

	hits := make([]driven.VectorHit, 0, len(resp.IDs[0]))
	for i, id := range resp.IDs[0] {
		hit := driven.VectorHit{ID: id}
		if i < len(resp.Documents[0]) {
			hit.Text = resp.Documents[0][i]
		}
		if i < len(resp.Metadatas[0]) {
			hit.Metadata = flattenMetadata(resp.Metadatas[0][i])
		}
		if i < len(resp.Distances[0]) {
			hit.Distance = resp.Distances[0][i]
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Get fetches passages by metadata filter without ranking.
func (s *Store) Get(ctx context.Context, where map[string]string, limit int) ([]driven.VectorHit, error) {
	body := map[string]any{
		"include": []string{"documents", "metadatas"},
	}
	if w := whereClause(where); w != nil {
		body["where"] = w
	}
	if limit > 0 {
		body["limit"] = limit
	}

	var resp getResponse
	path := "/api/v1/collections/" + s.collectionID + "/get"
	if err := s.doJSON(ctx, http.MethodPost, path, body, &resp); err != nil {
		return nil, err
	}

	hits := make([]driven.VectorHit, 0, len(resp.IDs))
	for i, id := range resp.IDs {
		hit := driven.VectorHit{ID: id}
		if i < len(resp.Documents) {
			hit.Text = resp.Documents[i]
		}
		if i < len(resp.Metadatas) {
			hit.Metadata = flattenMetadata(resp.Metadatas[i])
		}
		hits = append(hits, hit)
	}
	return hits, nil
}

// Add inserts passages with their embeddings.
func (s *Store) Add(ctx context.Context, hits []driven.VectorHit, embeddings [][]float32) error {
	if len(hits) != len(embeddings) {
		return fmt.Errorf("chroma: %d passages but %d embeddings", len(hits), len(embeddings))
	}
	ids := make([]string, len(hits))
	documents := make([]string, len(hits))
	metadatas := make([]map[string]string, len(hits))
	for i, hit := range hits {
		ids[i] = hit.ID
		documents[i] = hit.Text
		metadatas[i] = hit.Metadata
	}

	body := map[string]any{
		"ids":        ids,
		"documents":  documents,
		"metadatas":  metadatas,
		"embeddings": embeddings,
	}
	path := "/api/v1/collections/" + s.collectionID + "/add"
	return s.doJSON(ctx, http.MethodPost, path, body, nil)
}

// Count returns the number of stored passages.
func (s *Store) Count(ctx context.Context) (int, error) {
	var count int
	path := "/api/v1/collections/" + s.collectionID + "/count"
	if err := s.doJSON(ctx, http.MethodGet, path, nil, &count); err != nil {
		return 0, err
	}
	return count, nil
}

// Metric reports the collection's distance metric.
func (s *Store) Metric() string {
	return s.metric
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

// doJSON runs one request through the circuit breaker, encoding the body
// and decoding the response as JSON.
func (s *Store) doJSON(ctx context.Context, method, path string, body, out any) error {
	_, err := s.breaker.Execute(func() (any, error) {
		var reader io.Reader
		if body != nil {
			jsonBody, err := json.Marshal(body)
			if err != nil {
				return nil, fmt.Errorf("marshal request: %w", err)
			}
			reader = bytes.NewReader(jsonBody)
		}

		req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, reader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		if body != nil {
			req.Header.Set("Content-Type", "application/json")
		}

		resp, err := s.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("send request: %w", err)
		}
		defer resp.Body.Close()

		respBody, err := io.ReadAll(resp.Body)
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("chroma error (status %d): %s", resp.StatusCode, string(respBody))
		}
		if out != nil {
			if err := json.Unmarshal(respBody, out); err != nil {
				return nil, fmt.Errorf("decode response: %w", err)
			}
		}
		return nil, nil
	})
	return err
}

// whereClause builds Chroma's filter document from a flat equality map.
// Multiple conditions need an explicit $and.
func whereClause(where map[string]string) map[string]any {
	if len(where) == 0 {
		return nil
	}
	if len(where) == 1 {
		for k, v := range where {
			return map[string]any{k: v}
		}
	}
	conditions := make([]map[string]any, 0, len(where))
	for k, v := range where {
		conditions = append(conditions, map[string]any{k: v})
	}
	return map[string]any{"$and": conditions}
}

// flattenMetadata renders Chroma's loosely typed metadata as strings.
func flattenMetadata(m map[string]any) map[string]string {
	out := make(map[string]string, len(m))
	for k, v := range m {
		switch value := v.(type) {
		case string:
			out[k] = value
		case float64:
			if value == float64(int64(value)) {
				out[k] = strconv.FormatInt(int64(value), 10)
			} else {
				out[k] = strconv.FormatFloat(value, 'f', -1, 64)
			}
		case bool:
			out[k] = strconv.FormatBool(value)
		case nil:
			// skip
		default:
			out[k] = fmt.Sprint(value)
		}
	}
	return out
}
