package services

import (
	"context"
	"sort"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
	"github.com/afiq-labs/afiq-cli/internal/logger"
)

// HierarchyExpander appends the descendants of seed passages, up to a
// bounded depth, with similarity decayed by depth. Invoked only for
// queries with procedural intent, where sub-steps of a matched paragraph
// matter as much as the paragraph itself.
type HierarchyExpander struct {
	store driven.VectorStore

	// penaltyStep is subtracted per level of depth, penaltyCap bounds the
	// total decay so deep descendants keep a nonzero rank signal.
	penaltyStep float64
	penaltyCap  float64
}

// NewHierarchyExpander creates an expander. Non-positive penalty settings
// fall back to the defaults (step 0.05, cap 0.30).
func NewHierarchyExpander(store driven.VectorStore, penaltyStep, penaltyCap float64) *HierarchyExpander {
	if penaltyStep <= 0 {
		penaltyStep = 0.05
	}
	if penaltyCap <= 0 {
		penaltyCap = 0.30
	}
	return &HierarchyExpander{store: store, penaltyStep: penaltyStep, penaltyCap: penaltyCap}
}

// docPassage pairs a passage with its parsed paragraph identifier.
type docPassage struct {
	passage domain.Passage
	id      domain.ParagraphID
}

// Expand returns the seeds plus their unique descendants up to maxDepth.
// Seeds keep their input order; expanded descendants follow, each batch in
// the document's deterministic (depth, token sequence) order. maxDepth 0
// returns exactly the deduplicated seed set.
func (h *HierarchyExpander) Expand(ctx context.Context, seeds []domain.Passage, maxDepth int) []domain.Passage {
	seen := make(map[string]bool)
	out := make([]domain.Passage, 0, len(seeds))
	for _, seed := range seeds {
		fp := seed.Fingerprint()
		if seen[fp] {
			continue
		}
		seen[fp] = true
		out = append(out, seed)
	}
	if maxDepth <= 0 || len(out) == 0 {
		return out
	}

	logger.Section("Hierarchy Expansion")

	// Higher-confidence seeds claim their descendants first, which keeps
	// the output deterministic for identical input.
	ordered := make([]domain.Passage, len(out))
	copy(ordered, out)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Similarity > ordered[j].Similarity
	})

	docCache := make(map[string][]docPassage)
	for _, seed := range ordered {
		seedID, ok := domain.ParseParagraphID(seed.Metadata.Paragraph)
		if !ok {
			continue
		}
		docID := seed.Metadata.AFINumber
		if docID == "" {
			continue
		}

		passages, cached := docCache[docID]
		if !cached {
			passages = h.loadDocument(ctx, docID)
			docCache[docID] = passages
		}

		for _, candidate := range passages {
			depth := candidate.id.DepthBelow(seedID)
			if depth < 1 || depth > maxDepth {
				continue
			}
			fp := candidate.passage.Fingerprint()
			if seen[fp] {
				continue
			}
			seen[fp] = true

			penalty := float64(depth) * h.penaltyStep
			if penalty > h.penaltyCap {
				penalty = h.penaltyCap
			}
			adjusted := seed.Similarity - penalty
			if adjusted < 0 {
				adjusted = 0
			}
			expanded := candidate.passage
			expanded.Similarity = adjusted
			expanded.Distance = nil
			out = append(out, expanded)
			logger.Debug("Expanded %s under %s (depth %d, similarity %.3f)",
				expanded.Metadata.Paragraph, seed.Metadata.Paragraph, depth, adjusted)
		}
	}

	logger.Info("Expansion grew %d seeds to %d passages", len(seeds), len(out))
	return out
}

// loadDocument fetches every passage of a document and sorts them by
// (token count, token sequence, raw paragraph string). The sort makes the
// whole-document scan enumerable once per document per query. Load
// failures degrade to no expansion for that document.
func (h *HierarchyExpander) loadDocument(ctx context.Context, docID string) []docPassage {
	hits, err := h.store.Get(ctx, map[string]string{"afi_number": docID}, 0)
	if err != nil {
		logger.Warn("Loading document %q for expansion failed: %v", docID, err)
		return nil
	}

	passages := make([]docPassage, 0, len(hits))
	for _, hit := range hits {
		p := domain.Passage{
			ID:       hit.ID,
			Text:     hit.Text,
			Metadata: domain.MetadataFromMap(hit.Metadata),
		}
		id, ok := domain.ParseParagraphID(p.Metadata.Paragraph)
		if !ok {
			continue
		}
		passages = append(passages, docPassage{passage: p, id: id})
	}

	sort.SliceStable(passages, func(i, j int) bool {
		if c := passages[i].id.Compare(passages[j].id); c != 0 {
			return c < 0
		}
		return passages[i].passage.Metadata.Paragraph < passages[j].passage.Metadata.Paragraph
	})
	return passages
}
