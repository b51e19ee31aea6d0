package services

import (
	"context"
	"fmt"
	"regexp"
	"sort"
	"strings"
	"unicode"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// embedPrefix is prepended to query text before embedding. The corpus was
// ingested with an asymmetric embedding model that expects it.
const embedPrefix = "query: "

// SearchParams configures one retrieval call.
type SearchParams struct {
	// NResults is the number of passages to return.
	NResults int

	// MinScore drops hits with similarity below it. Zero disables score
	// filtering.
	MinScore float64

	// Filter restricts the store query by metadata equality. Nil searches
	// the whole corpus.
	Filter map[string]string
}

// RetrievalEngine turns a query into a ranked, deduplicated candidate set:
// enhance, embed, over-fetch from the store, convert distances to
// similarity, drop low-value passages and near-duplicates.
type RetrievalEngine struct {
	embedder driven.EmbeddingService
	store    driven.VectorStore
	enhancer *QueryEnhancer
	sim      *SimilarityAdapter
	rules    driven.RuleStore

	overfetchRatio int
	overfetchCap   int
}

// NewRetrievalEngine creates a retrieval engine. The embedder is normally
// the EmbeddingCache decorator. Over-fetch settings below 1 fall back to
// the defaults (ratio 4, cap 25).
func NewRetrievalEngine(
	embedder driven.EmbeddingService,
	store driven.VectorStore,
	enhancer *QueryEnhancer,
	rules driven.RuleStore,
	overfetchRatio, overfetchCap int,
) *RetrievalEngine {
	if overfetchRatio < 1 {
		overfetchRatio = 4
	}
	if overfetchCap < 1 {
		overfetchCap = 25
	}
	return &RetrievalEngine{
		embedder:       embedder,
		store:          store,
		enhancer:       enhancer,
		sim:            NewSimilarityAdapter(store.Metric()),
		rules:          rules,
		overfetchRatio: overfetchRatio,
		overfetchCap:   overfetchCap,
	}
}

// Search runs one retrieval pass and returns up to NResults passages in
// descending similarity order, ties broken by original store rank.
// An unavailable embedding service yields an empty set, not an error; the
// caller decides the fallback. Store failures are returned as errors.
func (r *RetrievalEngine) Search(ctx context.Context, query string, p SearchParams) ([]domain.Passage, error) {
	logger.Section("Retrieval")
	if p.NResults <= 0 {
		p.NResults = 5
	}

	enhanced := r.enhancer.Enhance(query)
	embedding, err := r.embedder.Embed(ctx, embedPrefix+enhanced)
	if err != nil {
		logger.Warn("Embedding unavailable, retrieval degrades to empty: %v", err)
		return []domain.Passage{}, nil
	}

	raw := p.NResults * r.overfetchRatio
	if raw > r.overfetchCap {
		raw = r.overfetchCap
	}
	if raw < p.NResults {
		raw = p.NResults
	}
	logger.Debug("Requesting %d raw hits for %d results (filter: %v)", raw, p.NResults, p.Filter)

	hits, err := r.store.Query(ctx, embedding, raw, p.Filter)
	if err != nil {
		return nil, fmt.Errorf("querying vector store: %w: %v", domain.ErrStoreQueryFailed, err)
	}

	rules := r.rules.Rules()
	tocPatterns := compilePatterns(rules.TOCPatterns)

	seen := make(map[string]bool)
	passages := make([]domain.Passage, 0, len(hits))
	for _, hit := range hits {
		similarity := r.sim.Similarity(hit.Distance)
		if p.MinScore > 0 && similarity < p.MinScore {
			continue
		}
		if !isContentUseful(hit.Text, rules.ImportantKeywords, tocPatterns) {
			logger.Debug("Rejected low-value passage %s", hit.ID)
			continue
		}
		distance := hit.Distance
		passage := domain.Passage{
			ID:         hit.ID,
			Text:       hit.Text,
			Metadata:   domain.MetadataFromMap(hit.Metadata),
			Similarity: similarity,
			Distance:   &distance,
		}
		fp := passage.Fingerprint()
		if seen[fp] {
			logger.Debug("Rejected duplicate passage %s", hit.ID)
			continue
		}
		seen[fp] = true
		passages = append(passages, passage)
	}

	sort.SliceStable(passages, func(i, j int) bool {
		return passages[i].Similarity > passages[j].Similarity
	})
	if len(passages) > p.NResults {
		passages = passages[:p.NResults]
	}
	logger.Info("Retrieval kept %d of %d raw hits", len(passages), len(hits))
	return passages, nil
}

// ResolveDocFilter resolves a bare document number like "21-101" to the
// identifier the corpus actually uses, probing "AFI"/"DAFI" prefixed
// variants against the store. Identifiers that already carry a prefix, or
// that match nothing, come back unchanged.
func (r *RetrievalEngine) ResolveDocFilter(ctx context.Context, docNumber string) string {
	docNumber = strings.TrimSpace(docNumber)
	if docNumber == "" {
		return ""
	}

	variants := []string{docNumber}
	upper := strings.ToUpper(docNumber)
	if !strings.HasPrefix(upper, "AFI") && !strings.HasPrefix(upper, "DAFI") {
		variants = []string{"DAFI " + docNumber, "AFI " + docNumber, docNumber}
	}

	for _, variant := range variants {
		hits, err := r.store.Get(ctx, map[string]string{"afi_number": variant}, 1)
		if err != nil {
			logger.Warn("Probing document variant %q failed: %v", variant, err)
			continue
		}
		if len(hits) > 0 {
			logger.Debug("Document filter %q resolved to %q", docNumber, variant)
			return variant
		}
	}
	return docNumber
}

// minUsefulChars is the absolute floor: anything shorter is noise.
const minUsefulChars = 10

// isContentUseful rejects table-of-contents lines, bare headers and other
// passages too thin to ground an answer. Important keywords override the
// length heuristics so short but high-value text survives.
func isContentUseful(text string, importantKeywords []string, tocPatterns []*regexp.Regexp) bool {
	trimmed := strings.TrimSpace(text)
	if len(trimmed) < minUsefulChars {
		return false
	}

	lower := strings.ToLower(trimmed)
	important := false
	for _, kw := range importantKeywords {
		if kw != "" && strings.Contains(lower, strings.ToLower(kw)) {
			important = true
			break
		}
	}

	for _, pattern := range tocPatterns {
		if pattern.MatchString(trimmed) {
			return important
		}
	}

	if len(trimmed) < 30 || alphaCount(trimmed) < 10 {
		return important
	}
	return true
}

func alphaCount(s string) int {
	n := 0
	for _, r := range s {
		if unicode.IsLetter(r) {
			n++
		}
	}
	return n
}

// compilePatterns compiles the configured TOC patterns case-insensitively,
// skipping any that do not compile. Compiled once per retrieval call.
func compilePatterns(patterns []string) []*regexp.Regexp {
	out := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		if p == "" {
			continue
		}
		re, err := regexp.Compile("(?i)" + p)
		if err != nil {
			logger.Warn("Skipping invalid TOC pattern %q: %v", p, err)
			continue
		}
		out = append(out, re)
	}
	return out
}
