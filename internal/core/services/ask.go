package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driving"
	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// Ensure AskService implements the interface.
var _ driving.AskService = (*AskService)(nil)

// sourcePreviewLen bounds the text preview carried on each source.
const sourcePreviewLen = 200

// PipelineConfig carries the tunable constants of the ask pipeline.
// Loaded from configuration; the zero value of any field selects the
// documented default.
type PipelineConfig struct {
	// NResults is the default number of passages to retrieve.
	NResults int

	// MinSimilarity is the default retrieval score floor.
	MinSimilarity float64

	// FilterMinSimilarity is the relevance filter's similarity floor.
	FilterMinSimilarity float64

	// ContextTokenMultiplier derives the context budget from the
	// completion budget.
	ContextTokenMultiplier int

	// DefaultMaxTokens is the default completion budget.
	DefaultMaxTokens int

	// Model is the default generation model.
	Model string

	// DefaultMode is the grounded answer mode used when the caller does
	// not choose one.
	DefaultMode domain.AnswerMode

	// MaxExpansionDepth bounds hierarchy expansion.
	MaxExpansionDepth int

	// PenaltyStep and PenaltyCap control expansion similarity decay.
	PenaltyStep float64
	PenaltyCap  float64

	// OverfetchRatio and OverfetchCap control retrieval over-fetch.
	OverfetchRatio int
	OverfetchCap   int

	// ProceduralFloor is the minimum retrieval depth for procedural
	// queries.
	ProceduralFloor int

	// Temperature is sent to models that support it.
	Temperature float64

	// EmbeddingCacheSize is the LRU capacity; 0 disables caching.
	EmbeddingCacheSize int

	// UseFilter enables the relevance filter by default.
	UseFilter bool
}

// DefaultPipelineConfig returns the documented defaults.
func DefaultPipelineConfig() PipelineConfig {
	return PipelineConfig{
		NResults:               5,
		MinSimilarity:          0.15,
		FilterMinSimilarity:    0.05,
		ContextTokenMultiplier: 4,
		DefaultMaxTokens:       1500,
		Model:                  "gpt-4o",
		DefaultMode:            domain.ModeHybrid,
		MaxExpansionDepth:      2,
		PenaltyStep:            0.05,
		PenaltyCap:             0.30,
		OverfetchRatio:         4,
		OverfetchCap:           25,
		ProceduralFloor:        8,
		Temperature:            0.3,
		EmbeddingCacheSize:     128,
		UseFilter:              true,
	}
}

// AskService is the pipeline orchestrator. It owns the request-scoped
// response envelope and sequences retrieval, optional hierarchy
// expansion, relevance filtering, context assembly and generation, with
// knowledge fallback whenever the pipeline runs out of context.
type AskService struct {
	retrieval  *RetrievalEngine
	expander   *HierarchyExpander
	filter     *RelevanceFilter
	assembler  *ContextAssembler
	generator  *ResponseGenerator
	intent     IntentDetector
	embedModel string
	cfg        PipelineConfig
}

// NewAskService creates the orchestrator. embedModel is recorded on every
// envelope for provenance.
func NewAskService(
	retrieval *RetrievalEngine,
	expander *HierarchyExpander,
	filter *RelevanceFilter,
	assembler *ContextAssembler,
	generator *ResponseGenerator,
	intent IntentDetector,
	embedModel string,
	cfg PipelineConfig,
) *AskService {
	return &AskService{
		retrieval:  retrieval,
		expander:   expander,
		filter:     filter,
		assembler:  assembler,
		generator:  generator,
		intent:     intent,
		embedModel: embedModel,
		cfg:        cfg,
	}
}

// Ask runs the full pipeline for one query.
func (s *AskService) Ask(ctx context.Context, query string, opts domain.AskOptions) (*domain.Answer, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("empty query: %w", domain.ErrInvalidInput)
	}

	nResults := opts.NResults
	if nResults <= 0 {
		nResults = s.cfg.NResults
	}
	minScore := s.cfg.MinSimilarity
	if opts.MinScore != nil {
		minScore = *opts.MinScore
	}
	model := opts.Model
	if model == "" {
		model = s.cfg.Model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = s.cfg.DefaultMaxTokens
	}
	useFilter := s.cfg.UseFilter
	if opts.UseFilter != nil {
		useFilter = *opts.UseFilter
	}
	mode := opts.Mode
	if mode == "" {
		mode = s.cfg.DefaultMode
	}

	envelope := &domain.Answer{
		Query:          query,
		Model:          model,
		EmbeddingModel: s.embedModel,
		RequestID:      uuid.NewString(),
		Timings:        make(map[string]float64),
		Sources:        []domain.Source{},
		Context:        []domain.ContextEntry{},
	}
	logger.Section("Ask " + envelope.RequestID)
	start := time.Now()

	params := SearchParams{
		NResults: nResults,
		MinScore: minScore,
		Filter:   s.buildFilter(ctx, opts),
	}

	// RETRIEVE
	retrieveStart := time.Now()
	candidates, err := s.retrieval.Search(ctx, query, params)
	if err != nil {
		logger.Warn("Retrieval failed, falling back to model knowledge: %v", err)
		candidates = nil
	}

	// Each intent signal is honoured on its own, so a detector can ask
	// for any subset of deeper retrieval, expansion and filter bypass.
	signals := s.intent.Classify(query, candidates)
	if signals.RetrievalFloor > 0 && params.NResults < signals.RetrievalFloor {
		params.NResults = signals.RetrievalFloor
		deeper, rerr := s.retrieval.Search(ctx, query, params)
		if rerr == nil {
			candidates = deeper
		} else {
			logger.Warn("Deeper procedural retrieval failed, keeping first pass: %v", rerr)
		}
	}
	if signals.ExpandHierarchy {
		candidates = s.expander.Expand(ctx, candidates, s.cfg.MaxExpansionDepth)
	}
	if signals.DisableFilter {
		useFilter = false
	}
	envelope.Timings[domain.TimingRetrieval] = msSince(retrieveStart)
	envelope.SearchResultsCount = len(candidates)

	if len(candidates) == 0 {
		envelope.KnowledgeFallback = true
		return s.generate(ctx, envelope, domain.ModeKnowledgeOnly, "", maxTokens, start)
	}

	// FILTER
	kept := candidates
	if useFilter {
		filterStart := time.Now()
		var fellBack bool
		kept, fellBack = s.filter.Filter(ctx, query, candidates, model)
		envelope.Timings[domain.TimingFilter] = msSince(filterStart)
		envelope.FilterFallback = fellBack
	}
	envelope.FilteredResultsCount = len(kept)
	if len(kept) == 0 {
		envelope.KnowledgeFallback = true
		envelope.FilterFallback = true
		return s.generate(ctx, envelope, domain.ModeKnowledgeOnly, "", maxTokens, start)
	}

	envelope.Sources = buildSources(kept)
	envelope.Context = buildContextEntries(kept)

	// ASSEMBLE
	budget := maxTokens * s.cfg.ContextTokenMultiplier
	contextText, truncated, tokens := s.assembler.Assemble(model, kept, budget)
	envelope.ContextTruncated = truncated
	envelope.ContextTokens = tokens
	envelope.ContextTokenLimit = budget

	// GENERATE
	return s.generate(ctx, envelope, mode, contextText, maxTokens, start)
}

// generate runs the final stage, seals the envelope and returns it. The
// envelope is returned, with success=false, even when generation fails
// past its own fallback.
func (s *AskService) generate(
	ctx context.Context, envelope *domain.Answer, mode domain.AnswerMode,
	contextText string, maxTokens int, start time.Time,
) (*domain.Answer, error) {
	genStart := time.Now()
	answer, usedModel, err := s.generator.Generate(ctx, GenerateInput{
		Query:     envelope.Query,
		Context:   contextText,
		Sources:   envelope.Sources,
		Mode:      mode,
		Model:     envelope.Model,
		MaxTokens: maxTokens,
	})
	envelope.Timings[domain.TimingGeneration] = msSince(genStart)
	envelope.Timings[domain.TimingTotal] = msSince(start)
	if usedModel != "" {
		envelope.Model = usedModel
	}
	if err != nil {
		envelope.Success = false
		return envelope, err
	}

	envelope.Success = true
	envelope.Answer = answer
	return envelope, nil
}

// buildFilter assembles the store metadata filter from the request
// options.
func (s *AskService) buildFilter(ctx context.Context, opts domain.AskOptions) map[string]string {
	filter := make(map[string]string)
	if opts.DocNumber != "" {
		filter["afi_number"] = s.retrieval.ResolveDocFilter(ctx, opts.DocNumber)
	}
	if opts.Chapter != "" {
		filter["chapter"] = opts.Chapter
	}
	if opts.Folder != "" {
		filter["folder"] = opts.Folder
	}
	if len(filter) == 0 {
		return nil
	}
	return filter
}

func buildSources(passages []domain.Passage) []domain.Source {
	sources := make([]domain.Source, 0, len(passages))
	for i, p := range passages {
		sources = append(sources, domain.Source{
			Reference:   i + 1,
			AFINumber:   p.Metadata.AFINumber,
			Chapter:     p.Metadata.Chapter,
			Paragraph:   p.Metadata.Paragraph,
			Similarity:  p.Similarity,
			TextPreview: truncate(p.Text, sourcePreviewLen),
			Text:        p.Text,
			Metadata:    p.Metadata,
		})
	}
	return sources
}

func buildContextEntries(passages []domain.Passage) []domain.ContextEntry {
	entries := make([]domain.ContextEntry, 0, len(passages))
	for i, p := range passages {
		entries = append(entries, domain.ContextEntry{
			Reference:  i + 1,
			Text:       p.Text,
			Metadata:   p.Metadata,
			Similarity: p.Similarity,
		})
	}
	return entries
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
