package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
)

type askFixture struct {
	embedder  *mockEmbedder
	store     *mockStore
	filterLLM *mockLLM
	genLLM    *mockLLM
	svc       *AskService
}

func newAskFixture(store *mockStore, filterLLM, genLLM *mockLLM, rules domain.RuleSet) *askFixture {
	if rules.Prompts == nil {
		rules.Prompts = testPrompts()
	}
	rs := &staticRules{rules: rules}
	embedder := &mockEmbedder{}
	cache := NewEmbeddingCache(embedder, 8)
	enhancer := NewQueryEnhancer(rs)
	cfg := DefaultPipelineConfig()

	retrieval := NewRetrievalEngine(cache, store, enhancer, rs, cfg.OverfetchRatio, cfg.OverfetchCap)
	svc := NewAskService(
		retrieval,
		NewHierarchyExpander(store, cfg.PenaltyStep, cfg.PenaltyCap),
		NewRelevanceFilter(filterLLM, rs, cfg.FilterMinSimilarity),
		NewContextAssembler(wordCounter{}),
		NewResponseGenerator(genLLM, rs, cfg.Temperature),
		NewIntentClassifier(rs, cfg.ProceduralFloor),
		cache.ModelName(),
		cfg,
	)
	return &askFixture{embedder: embedder, store: store, filterLLM: filterLLM, genLLM: genLLM, svc: svc}
}

func storeWithHits() *mockStore {
	return &mockStore{queryHits: []driven.VectorHit{
		hit("a", usefulText+" Inventory each CTK at shift change.", "DAFI 21-101", "8.9.1", 0.1),
		hit("b", usefulText+" Report lost tools to the flight chief.", "DAFI 21-101", "8.9.2", 0.2),
		hit("c", usefulText+" Impound the aircraft when a tool is missing.", "DAFI 21-101", "8.9.3", 0.3),
	}}
}

// TestAskService_EmptyRetrieval tests the knowledge fallback for a query with no hits
func TestAskService_EmptyRetrieval(t *testing.T) {
	filterLLM := &mockLLM{}
	genLLM := &mockLLM{responses: []string{"Doctrine answer."}}
	f := newAskFixture(&mockStore{}, filterLLM, genLLM, domain.RuleSet{})

	answer, err := f.svc.Ask(context.Background(), "obscure question", domain.AskOptions{})
	require.NoError(t, err)

	assert.True(t, answer.Success)
	assert.True(t, answer.KnowledgeFallback)
	assert.Empty(t, answer.Sources)
	assert.Empty(t, answer.Context)
	assert.Equal(t, 0, answer.SearchResultsCount)
	assert.NotEmpty(t, answer.RequestID)

	// Generation ran in knowledge-only mode; the filter never ran.
	require.Len(t, f.genLLM.requests, 1)
	assert.Equal(t, "Answer from doctrine only and say so.", f.genLLM.requests[0].System)
	assert.Empty(t, f.filterLLM.requests)

	assert.Contains(t, answer.Timings, domain.TimingTotal)
	assert.Contains(t, answer.Timings, domain.TimingRetrieval)
	assert.Contains(t, answer.Timings, domain.TimingGeneration)
	assert.NotContains(t, answer.Timings, domain.TimingFilter)
}

// TestAskService_HappyPath tests the full retrieve-filter-assemble-generate flow
func TestAskService_HappyPath(t *testing.T) {
	filterLLM := &mockLLM{responses: []string{"[1, 2]"}}
	genLLM := &mockLLM{responses: []string{"## Compliance Summary\nInventory and report."}}
	f := newAskFixture(storeWithHits(), filterLLM, genLLM, domain.RuleSet{})

	answer, err := f.svc.Ask(context.Background(), "lost tool policy", domain.AskOptions{})
	require.NoError(t, err)

	assert.True(t, answer.Success)
	assert.False(t, answer.KnowledgeFallback)
	assert.Equal(t, 3, answer.SearchResultsCount)
	assert.Equal(t, 2, answer.FilteredResultsCount)
	require.Len(t, answer.Sources, 2)
	assert.Equal(t, 1, answer.Sources[0].Reference)
	assert.Equal(t, "DAFI 21-101", answer.Sources[0].AFINumber)
	assert.Len(t, answer.Context, 2)
	assert.Equal(t, DefaultPipelineConfig().DefaultMaxTokens*4, answer.ContextTokenLimit)
	assert.Contains(t, answer.Answer, "## Citations")

	assert.Contains(t, answer.Timings, domain.TimingFilter)
	assert.Contains(t, answer.Timings, domain.TimingTotal)
}

// TestAskService_FilterDisabled tests the --no-filter path
func TestAskService_FilterDisabled(t *testing.T) {
	filterLLM := &mockLLM{}
	genLLM := &mockLLM{responses: []string{"Answer."}}
	f := newAskFixture(storeWithHits(), filterLLM, genLLM, domain.RuleSet{})

	noFilter := false
	answer, err := f.svc.Ask(context.Background(), "lost tool policy", domain.AskOptions{UseFilter: &noFilter})
	require.NoError(t, err)

	assert.Empty(t, f.filterLLM.requests)
	assert.NotContains(t, answer.Timings, domain.TimingFilter)
	assert.Equal(t, answer.SearchResultsCount, answer.FilteredResultsCount)
}

// TestAskService_ProceduralQuery tests deeper retrieval, expansion and filter bypass
func TestAskService_ProceduralQuery(t *testing.T) {
	store := storeWithHits()
	store.getHits = map[string][]driven.VectorHit{"DAFI 21-101": store.queryHits}
	filterLLM := &mockLLM{responses: []string{"[1]"}}
	genLLM := &mockLLM{responses: []string{"Step answer."}}
	f := newAskFixture(store, filterLLM, genLLM, domain.RuleSet{
		ProceduralTriggers: []string{"how do i"},
	})

	answer, err := f.svc.Ask(context.Background(), "How do I report a lost tool?", domain.AskOptions{})
	require.NoError(t, err)

	assert.True(t, answer.Success)
	// Re-retrieved at the procedural floor with the over-fetch cap.
	assert.Equal(t, 2, store.queryCalls)
	assert.Equal(t, 25, store.lastN)
	// The relevance filter is bypassed for procedural queries.
	assert.Empty(t, f.filterLLM.requests)
	assert.NotContains(t, answer.Timings, domain.TimingFilter)
}

// fixedIntent returns the same signals for every query.
type fixedIntent struct {
	signals IntentSignals
}

func (f fixedIntent) Classify(string, []domain.Passage) IntentSignals { return f.signals }

// TestAskService_IntentSignalsHonouredIndividually tests that the orchestrator
// acts on each classifier signal on its own rather than treating them as one
func TestAskService_IntentSignalsHonouredIndividually(t *testing.T) {
	t.Run("floor only", func(t *testing.T) {
		store := storeWithHits()
		filterLLM := &mockLLM{responses: []string{"[1]"}}
		genLLM := &mockLLM{responses: []string{"Answer."}}
		f := newAskFixture(store, filterLLM, genLLM, domain.RuleSet{})
		f.svc.intent = fixedIntent{signals: IntentSignals{Procedural: true, RetrievalFloor: 8}}

		answer, err := f.svc.Ask(context.Background(), "lost tool policy", domain.AskOptions{})
		require.NoError(t, err)

		// Deeper retrieval happened, but the filter still ran and no
		// hierarchy expansion was requested.
		assert.Equal(t, 2, store.queryCalls)
		assert.NotEmpty(t, f.filterLLM.requests)
		assert.Contains(t, answer.Timings, domain.TimingFilter)
	})

	t.Run("filter bypass only", func(t *testing.T) {
		store := storeWithHits()
		filterLLM := &mockLLM{responses: []string{"[1]"}}
		genLLM := &mockLLM{responses: []string{"Answer."}}
		f := newAskFixture(store, filterLLM, genLLM, domain.RuleSet{})
		f.svc.intent = fixedIntent{signals: IntentSignals{Procedural: true, DisableFilter: true}}

		answer, err := f.svc.Ask(context.Background(), "lost tool policy", domain.AskOptions{})
		require.NoError(t, err)

		// One retrieval pass, no filter call.
		assert.Equal(t, 1, store.queryCalls)
		assert.Empty(t, f.filterLLM.requests)
		assert.NotContains(t, answer.Timings, domain.TimingFilter)
	})

	t.Run("no signals", func(t *testing.T) {
		store := storeWithHits()
		filterLLM := &mockLLM{responses: []string{"[1]"}}
		genLLM := &mockLLM{responses: []string{"Answer."}}
		f := newAskFixture(store, filterLLM, genLLM, domain.RuleSet{})
		f.svc.intent = fixedIntent{}

		_, err := f.svc.Ask(context.Background(), "lost tool policy", domain.AskOptions{})
		require.NoError(t, err)

		assert.Equal(t, 1, store.queryCalls)
		assert.NotEmpty(t, f.filterLLM.requests)
	})
}

// TestAskService_GenerationFailure tests the hard-failure envelope
func TestAskService_GenerationFailure(t *testing.T) {
	filterLLM := &mockLLM{responses: []string{"[1]"}}
	genLLM := &mockLLM{errs: []error{errors.New("service down")}}
	f := newAskFixture(storeWithHits(), filterLLM, genLLM, domain.RuleSet{})

	answer, err := f.svc.Ask(context.Background(), "lost tool policy", domain.AskOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrGenerationFailed)
	require.NotNil(t, answer)
	assert.False(t, answer.Success)
	assert.Contains(t, answer.Timings, domain.TimingTotal)
}

// TestAskService_EmptyQuery tests input validation
func TestAskService_EmptyQuery(t *testing.T) {
	f := newAskFixture(&mockStore{}, &mockLLM{}, &mockLLM{}, domain.RuleSet{})

	_, err := f.svc.Ask(context.Background(), "   ", domain.AskOptions{})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

// TestAskService_RetrievalFailureFallsBack tests that store failures degrade to doctrine
func TestAskService_RetrievalFailureFallsBack(t *testing.T) {
	store := &mockStore{queryErr: errors.New("collection missing")}
	genLLM := &mockLLM{responses: []string{"Doctrine answer."}}
	f := newAskFixture(store, &mockLLM{}, genLLM, domain.RuleSet{})

	answer, err := f.svc.Ask(context.Background(), "lost tool policy", domain.AskOptions{})
	require.NoError(t, err)
	assert.True(t, answer.Success)
	assert.True(t, answer.KnowledgeFallback)
}

// TestAskService_OptionOverrides tests per-request option handling
func TestAskService_OptionOverrides(t *testing.T) {
	store := storeWithHits()
	filterLLM := &mockLLM{responses: []string{"[1]"}}
	genLLM := &mockLLM{responses: []string{"Answer."}}
	f := newAskFixture(store, filterLLM, genLLM, domain.RuleSet{})

	zero := 0.0
	answer, err := f.svc.Ask(context.Background(), "lost tool policy", domain.AskOptions{
		NResults:  2,
		MinScore:  &zero,
		Model:     "gpt-4o-mini",
		MaxTokens: 200,
		Chapter:   "8",
	})
	require.NoError(t, err)

	assert.Equal(t, "gpt-4o-mini", answer.Model)
	assert.Equal(t, 800, answer.ContextTokenLimit)
	assert.Equal(t, 2, answer.SearchResultsCount)
	assert.Equal(t, "8", store.lastWhere["chapter"])
}

// TestAskService_EnvelopeProvenance tests model identifiers on the envelope
func TestAskService_EnvelopeProvenance(t *testing.T) {
	genLLM := &mockLLM{responses: []string{"Answer."}}
	f := newAskFixture(&mockStore{}, &mockLLM{}, genLLM, domain.RuleSet{})

	answer, err := f.svc.Ask(context.Background(), "anything at all", domain.AskOptions{})
	require.NoError(t, err)
	assert.Equal(t, "test-embed", answer.EmbeddingModel)
	assert.Equal(t, DefaultPipelineConfig().Model, answer.Model)
}
