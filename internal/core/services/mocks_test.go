package services

import (
	"context"
	"strings"
	"sync"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
)

// --- Shared mock implementations for the services package tests ---

// mockEmbedder implements driven.EmbeddingService for testing.
type mockEmbedder struct {
	mu        sync.Mutex
	embedding []float32
	embedErr  error
	model     string
	calls     int
	texts     []string
}

func (m *mockEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	m.texts = append(m.texts, text)
	if m.embedErr != nil {
		return nil, m.embedErr
	}
	if m.embedding != nil {
		return m.embedding, nil
	}
	return []float32{0.1, 0.2, 0.3}, nil
}

func (m *mockEmbedder) ModelName() string {
	if m.model != "" {
		return m.model
	}
	return "test-embed"
}

func (m *mockEmbedder) Ping(_ context.Context) error { return nil }

func (m *mockEmbedder) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// mockStore implements driven.VectorStore for testing.
type mockStore struct {
	queryHits []driven.VectorHit
	queryErr  error
	getHits   map[string][]driven.VectorHit // keyed by afi_number filter
	getErr    error
	metric    string

	queryCalls int
	lastN      int
	lastWhere  map[string]string
}

func (m *mockStore) Query(_ context.Context, _ []float32, n int, where map[string]string) ([]driven.VectorHit, error) {
	m.queryCalls++
	m.lastN = n
	m.lastWhere = where
	if m.queryErr != nil {
		return nil, m.queryErr
	}
	if n > len(m.queryHits) {
		return m.queryHits, nil
	}
	return m.queryHits[:n], nil
}

func (m *mockStore) Get(_ context.Context, where map[string]string, limit int) ([]driven.VectorHit, error) {
	if m.getErr != nil {
		return nil, m.getErr
	}
	hits := m.getHits[where["afi_number"]]
	if limit > 0 && len(hits) > limit {
		hits = hits[:limit]
	}
	return hits, nil
}

func (m *mockStore) Add(_ context.Context, _ []driven.VectorHit, _ [][]float32) error { return nil }

func (m *mockStore) Count(_ context.Context) (int, error) { return len(m.queryHits), nil }

func (m *mockStore) Metric() string {
	if m.metric != "" {
		return m.metric
	}
	return "cosine"
}

func (m *mockStore) Close() error { return nil }

// mockLLM implements driven.GenerationService for testing. Responses and
// errors are consumed per call; the last entry repeats.
type mockLLM struct {
	responses []string
	errs      []error
	requests  []driven.CompletionRequest
}

func (m *mockLLM) Complete(_ context.Context, req driven.CompletionRequest) (string, error) {
	i := len(m.requests)
	m.requests = append(m.requests, req)
	if len(m.errs) > 0 {
		if i >= len(m.errs) {
			i = len(m.errs) - 1
		}
		if m.errs[i] != nil {
			return "", m.errs[i]
		}
	}
	if len(m.responses) == 0 {
		return "", nil
	}
	if i >= len(m.responses) {
		i = len(m.responses) - 1
	}
	return m.responses[i], nil
}

func (m *mockLLM) Ping(_ context.Context) error { return nil }

// staticRules implements driven.RuleStore over a fixed rule set.
type staticRules struct {
	rules domain.RuleSet
}

func (s *staticRules) Rules() domain.RuleSet          { return s.rules }
func (s *staticRules) Reload() error                  { return nil }
func (s *staticRules) Watch(_ context.Context) error  { return nil }

// testPrompts is the minimal prompt set the generator tests run with.
func testPrompts() map[string]domain.PromptTemplate {
	return map[string]domain.PromptTemplate{
		string(domain.ModeKnowledgeOnly): {
			System: "Answer from doctrine only and say so.",
			User:   "Question: {{.Query}}",
		},
		string(domain.ModeHybrid): {
			System: "Answer from the context, label anything beyond it.",
			User:   "Question: {{.Query}}\n\nContext:\n{{.Context}}\n\nSources:\n{{.Sources}}",
		},
		string(domain.ModeStrict): {
			System: "Answer strictly from the context.",
			User:   "Question: {{.Query}}\n\nContext:\n{{.Context}}",
		},
	}
}

// wordCounter implements driven.TokenCounter counting whitespace-separated
// words, which keeps test budgets easy to reason about.
type wordCounter struct{}

func (wordCounter) Count(_ string, text string) int {
	return len(strings.Fields(text))
}

func (wordCounter) Truncate(_ string, text string, limit int) (string, int) {
	fields := strings.Fields(text)
	if len(fields) <= limit {
		return text, len(fields)
	}
	if limit <= 0 {
		return "", 0
	}
	return strings.Join(fields[:limit], " "), limit
}

// passage builds a test passage with the fields the pipeline cares about.
func passage(id, text, afi, paragraph string, similarity float64) domain.Passage {
	return domain.Passage{
		ID:   id,
		Text: text,
		Metadata: domain.Metadata{
			AFINumber: afi,
			Chapter:   "8",
			Paragraph: paragraph,
		},
		Similarity: similarity,
	}
}
