package mcp

import (
	"context"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
)

// mockAskService is a mock implementation of driving.AskService.
type mockAskService struct {
	answer   *domain.Answer
	err      error
	lastOpts domain.AskOptions
}

func (m *mockAskService) Ask(
	_ context.Context,
	_ string,
	opts domain.AskOptions,
) (*domain.Answer, error) {
	m.lastOpts = opts
	return m.answer, m.err
}

// mockRuleStore is a mock implementation of driven.RuleStore.
type mockRuleStore struct {
	rules domain.RuleSet
}

func (m *mockRuleStore) Rules() domain.RuleSet         { return m.rules }
func (m *mockRuleStore) Reload() error                 { return nil }
func (m *mockRuleStore) Watch(_ context.Context) error { return nil }

// mockVectorStore is a mock implementation of driven.VectorStore.
type mockVectorStore struct {
	count    int
	countErr error
}

func (m *mockVectorStore) Query(_ context.Context, _ []float32, _ int, _ map[string]string) ([]driven.VectorHit, error) {
	return nil, nil
}

func (m *mockVectorStore) Get(_ context.Context, _ map[string]string, _ int) ([]driven.VectorHit, error) {
	return nil, nil
}

func (m *mockVectorStore) Add(_ context.Context, _ []driven.VectorHit, _ [][]float32) error {
	return nil
}

func (m *mockVectorStore) Count(_ context.Context) (int, error) { return m.count, m.countErr }
func (m *mockVectorStore) Metric() string                       { return "cosine" }
func (m *mockVectorStore) Close() error                         { return nil }
