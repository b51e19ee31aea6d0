// Package memory provides an in-memory VectorStore for tests and local
// development. Queries score every stored passage; fine for corpora that
// fit the use case, not a real index.
package memory

import (
	"context"
	"math"
	"sort"
	"sync"

	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
)

// Ensure Store implements the interface.
var _ driven.VectorStore = (*Store)(nil)

type entry struct {
	hit       driven.VectorHit
	embedding []float32
}

// Store keeps passages and embeddings in memory, scored by cosine
// distance.
type Store struct {
	mu      sync.RWMutex
	entries []entry
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{}
}

// Add inserts passages with their embeddings.
func (s *Store) Add(_ context.Context, hits []driven.VectorHit, embeddings [][]float32) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, hit := range hits {
		var embedding []float32
		if i < len(embeddings) {
			embedding = embeddings[i]
		}
		s.entries = append(s.entries, entry{hit: hit, embedding: embedding})
	}
	return nil
}

// Query scores every stored passage against the embedding and returns the
// n closest, ascending by cosine distance.
func (s *Store) Query(_ context.Context, embedding []float32, n int, where map[string]string) ([]driven.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	hits := make([]driven.VectorHit, 0, len(s.entries))
	for _, e := range s.entries {
		if !matches(e.hit.Metadata, where) {
			continue
		}
		hit := e.hit
		hit.Distance = cosineDistance(embedding, e.embedding)
		hits = append(hits, hit)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		return hits[i].Distance < hits[j].Distance
	})
	if len(hits) > n {
		hits = hits[:n]
	}
	return hits, nil
}

// Get fetches passages by metadata filter in insertion order.
func (s *Store) Get(_ context.Context, where map[string]string, limit int) ([]driven.VectorHit, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var hits []driven.VectorHit
	for _, e := range s.entries {
		if !matches(e.hit.Metadata, where) {
			continue
		}
		hits = append(hits, e.hit)
		if limit > 0 && len(hits) >= limit {
			break
		}
	}
	return hits, nil
}

// Count returns the number of stored passages.
func (s *Store) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

// Metric reports cosine, the only metric this store computes.
func (s *Store) Metric() string {
	return "cosine"
}

// Close releases resources.
func (s *Store) Close() error {
	return nil
}

func matches(metadata, where map[string]string) bool {
	for k, v := range where {
		if metadata[k] != v {
			return false
		}
	}
	return true
}

// cosineDistance is 1 minus cosine similarity; zero vectors are treated
// as maximally distant.
func cosineDistance(a, b []float32) float64 {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return 1
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 1
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
