package services

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// filterPreviewLen bounds each passage preview in the filter prompt.
const filterPreviewLen = 500

// filterMaxTokens bounds the filter completion; the expected answer is a
// short JSON array.
const filterMaxTokens = 200

const filterSystemPrompt = "You review retrieved regulation passages for relevance. " +
	"Respond with a JSON array of integers and nothing else."

// RelevanceFilter prunes a candidate set with an LLM pass. Any filter
// anomaly (call failure, malformed response, emptied set) routes to the
// similarity fallback; the filter never returns an empty set for a
// non-empty candidate set.
type RelevanceFilter struct {
	llm   driven.GenerationService
	rules driven.RuleStore

	// minSimilarity is the floor applied to the filtered set and used by
	// the similarity fallback.
	minSimilarity float64
}

// NewRelevanceFilter creates a relevance filter. A non-positive floor
// falls back to the default (0.05).
func NewRelevanceFilter(llm driven.GenerationService, rules driven.RuleStore, minSimilarity float64) *RelevanceFilter {
	if minSimilarity <= 0 {
		minSimilarity = 0.05
	}
	return &RelevanceFilter{llm: llm, rules: rules, minSimilarity: minSimilarity}
}

// Filter returns the subsequence of candidates the model judged
// substantive, in original candidate order. The second return reports
// whether the similarity fallback was used instead of the model's
// judgement.
func (f *RelevanceFilter) Filter(ctx context.Context, query string, candidates []domain.Passage, model string) ([]domain.Passage, bool) {
	if len(candidates) == 0 {
		return nil, false
	}
	logger.Section("Relevance Filter")

	rules := f.rules.Rules()
	cap := rules.Capability(model)
	filterModel := model
	if cap.FilterModel != "" {
		filterModel = cap.FilterModel
		logger.Info("Filtering with %s in place of %s", filterModel, model)
	}

	response, err := f.llm.Complete(ctx, driven.CompletionRequest{
		Model:      filterModel,
		System:     filterSystemPrompt,
		User:       f.buildPrompt(query, candidates),
		MaxTokens:  filterMaxTokens,
		Capability: rules.Capability(filterModel),
	})
	if err != nil {
		logger.Warn("Filter call failed, using similarity fallback: %v", err)
		return f.similarityFallback(candidates), true
	}

	selected, ok := parseIndexList(response, len(candidates))
	if !ok {
		logger.Warn("Filter returned malformed response %q, using similarity fallback", truncate(response, 80))
		return f.similarityFallback(candidates), true
	}

	kept := make([]domain.Passage, 0, len(selected))
	for i, candidate := range candidates {
		if !selected[i+1] {
			continue
		}
		if candidate.Similarity < f.minSimilarity {
			continue
		}
		kept = append(kept, candidate)
	}
	if len(kept) == 0 {
		logger.Warn("Filter emptied the candidate set, using similarity fallback")
		return f.similarityFallback(candidates), true
	}

	logger.Info("Filter kept %d of %d candidates", len(kept), len(candidates))
	return kept, false
}

// buildPrompt renders the numbered candidate list the model judges.
func (f *RelevanceFilter) buildPrompt(query string, candidates []domain.Passage) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Question: %s\n\n", query)
	b.WriteString("Passages:\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, truncate(strings.TrimSpace(c.Text), filterPreviewLen))
	}
	b.WriteString("\nReturn a JSON array of the 1-based numbers of passages that contain " +
		"substantive, actionable content for the question. Exclude table-of-contents " +
		"entries and header-only text. When uncertain, include the passage.")
	return b.String()
}

// parseIndexList extracts a JSON array of 1-based indices from the model
// response. Any parse failure, non-integer element or out-of-range index
// reports false, which the caller turns into the similarity fallback.
func parseIndexList(response string, n int) (map[int]bool, bool) {
	start := strings.Index(response, "[")
	end := strings.LastIndex(response, "]")
	if start < 0 || end <= start {
		return nil, false
	}

	var indices []int
	if err := json.Unmarshal([]byte(response[start:end+1]), &indices); err != nil {
		return nil, false
	}

	selected := make(map[int]bool, len(indices))
	for _, idx := range indices {
		if idx < 1 || idx > n {
			return nil, false
		}
		selected[idx] = true
	}
	return selected, true
}

// fallbackKeep is how many top candidates survive when nothing meets the
// similarity floor.
const fallbackKeep = 3

// similarityFallback ranks the original candidates by similarity and keeps
// those at or above the floor, or the top few when none qualify. The
// pipeline always has something to generate from when retrieval found
// anything at all.
func (f *RelevanceFilter) similarityFallback(candidates []domain.Passage) []domain.Passage {
	ranked := make([]domain.Passage, len(candidates))
	copy(ranked, candidates)
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Similarity > ranked[j].Similarity
	})

	kept := make([]domain.Passage, 0, len(ranked))
	for _, c := range ranked {
		if c.Similarity >= f.minSimilarity {
			kept = append(kept, c)
		}
	}
	if len(kept) == 0 {
		n := fallbackKeep
		if len(ranked) < n {
			n = len(ranked)
		}
		kept = ranked[:n]
	}
	return kept
}

// truncate cuts s to at most n bytes, stepping back to a rune boundary
// so the cut never leaves invalid UTF-8 behind.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	for n > 0 && !utf8.RuneStart(s[n]) {
		n--
	}
	return s[:n] + "..."
}
