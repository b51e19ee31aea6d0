package cli

import (
	"context"
	"errors"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
)

// mockAskService is a mock implementation of driving.AskService.
type mockAskService struct {
	answer    *domain.Answer
	err       error
	lastQuery string
	lastOpts  domain.AskOptions
}

func (m *mockAskService) Ask(_ context.Context, query string, opts domain.AskOptions) (*domain.Answer, error) {
	m.lastQuery = query
	m.lastOpts = opts
	return m.answer, m.err
}

// mockEmbedder is a mock implementation of driven.EmbeddingService.
type mockEmbedder struct {
	pingErr error
}

func (m *mockEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{1}, nil
}
func (m *mockEmbedder) ModelName() string            { return "text-embedding-3-small" }
func (m *mockEmbedder) Ping(_ context.Context) error { return m.pingErr }

// mockGenerator is a mock implementation of driven.GenerationService.
type mockGenerator struct {
	pingErr error
}

func (m *mockGenerator) Complete(_ context.Context, _ driven.CompletionRequest) (string, error) {
	return "", errors.New("not implemented")
}
func (m *mockGenerator) Ping(_ context.Context) error { return m.pingErr }

// mockStore is a mock implementation of driven.VectorStore.
type mockStore struct {
	count    int
	countErr error
}

func (m *mockStore) Query(_ context.Context, _ []float32, _ int, _ map[string]string) ([]driven.VectorHit, error) {
	return nil, nil
}

func (m *mockStore) Get(_ context.Context, _ map[string]string, _ int) ([]driven.VectorHit, error) {
	return nil, nil
}

func (m *mockStore) Add(_ context.Context, _ []driven.VectorHit, _ [][]float32) error { return nil }
func (m *mockStore) Count(_ context.Context) (int, error)                             { return m.count, m.countErr }
func (m *mockStore) Metric() string                                                   { return "cosine" }
func (m *mockStore) Close() error                                                     { return nil }

// defaultTestAnswer is the canned envelope the mock ask service returns.
func defaultTestAnswer() *domain.Answer {
	return &domain.Answer{
		Success: true,
		Query:   "tool accountability",
		Answer:  "## Compliance Summary\nTools are inventoried at shift change.",
		Sources: []domain.Source{
			{
				Reference:  1,
				AFINumber:  "DAFI 21-101",
				Chapter:    "8",
				Paragraph:  "8.4.1",
				Similarity: 0.82,
			},
		},
		SearchResultsCount:   5,
		FilteredResultsCount: 1,
		Model:                "gpt-4o",
		EmbeddingModel:       "text-embedding-3-small",
		RequestID:            "req-test",
		Timings:              map[string]float64{domain.TimingTotal: 42},
	}
}

// setupTestServices installs mock services and returns a cleanup that
// restores the previous wiring.
func setupTestServices() func() {
	oldAsk := askService
	oldEmbedder := embedder
	oldGenerator := generator
	oldStore := vectorStore

	askService = &mockAskService{answer: defaultTestAnswer()}
	embedder = &mockEmbedder{}
	generator = &mockGenerator{}
	vectorStore = &mockStore{count: 100}

	return func() {
		askService = oldAsk
		embedder = oldEmbedder
		generator = oldGenerator
		vectorStore = oldStore
	}
}
