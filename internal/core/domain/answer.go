package domain

import "fmt"

// AnswerMode selects the prompt contract used for generation.
type AnswerMode string

const (
	// ModeKnowledgeOnly is used when no context was retrieved; the model
	// answers from doctrine alone and must flag that explicitly.
	ModeKnowledgeOnly AnswerMode = "knowledge_only"

	// ModeHybrid grounds the answer in retrieved context but allows
	// clearly labelled model knowledge.
	ModeHybrid AnswerMode = "hybrid"

	// ModeStrict restricts the answer to retrieved context only.
	ModeStrict AnswerMode = "strict"
)

// Source describes a passage cited by an answer.
type Source struct {
	Reference   int      `json:"reference"`
	AFINumber   string   `json:"afi_number"`
	Chapter     string   `json:"chapter"`
	Paragraph   string   `json:"paragraph"`
	Similarity  float64  `json:"similarity_score"`
	TextPreview string   `json:"text_preview"`
	Text        string   `json:"text"`
	Metadata    Metadata `json:"metadata"`
}

// Label renders the citation label for a source, e.g.
// "[2] DAFI 21-101 Ch.8 Para.8.9.2 - Tool Control".
func (s Source) Label() string {
	afi := s.AFINumber
	if afi == "" {
		afi = "N/A"
	}
	chapter := s.Chapter
	if chapter == "" {
		chapter = "N/A"
	}
	location := fmt.Sprintf("Ch.%s", chapter)
	if s.Paragraph != "" {
		location = fmt.Sprintf("Ch.%s Para.%s", chapter, s.Paragraph)
	}
	if s.Metadata.Section != "" {
		return fmt.Sprintf("[%d] %s %s - %s", s.Reference, afi, location, s.Metadata.Section)
	}
	return fmt.Sprintf("[%d] %s %s", s.Reference, afi, location)
}

// ContextEntry is a passage as it entered the generation context.
type ContextEntry struct {
	Reference  int      `json:"reference"`
	Text       string   `json:"text"`
	Metadata   Metadata `json:"metadata"`
	Similarity float64  `json:"similarity_score"`
}

// Timing map keys. A key is present exactly when the corresponding stage
// ran for the request.
const (
	TimingTotal      = "total_ms"
	TimingRetrieval  = "retrieval_ms"
	TimingFilter     = "filter_ms"
	TimingGeneration = "generation_ms"
)

// Answer is the response envelope for a single ask request. It is
// created once per query and is immutable after the orchestrator
// returns it.
type Answer struct {
	Success              bool               `json:"success"`
	Query                string             `json:"query"`
	Answer               string             `json:"answer"`
	Sources              []Source           `json:"sources"`
	Context              []ContextEntry     `json:"context"`
	SearchResultsCount   int                `json:"search_results_count"`
	FilteredResultsCount int                `json:"filtered_results_count"`
	Model                string             `json:"model"`
	EmbeddingModel       string             `json:"embedding_model"`
	ContextTruncated     bool               `json:"context_truncated"`
	ContextTokens        int                `json:"context_length_tokens"`
	ContextTokenLimit    int                `json:"context_token_limit"`
	KnowledgeFallback    bool               `json:"knowledge_fallback"`
	FilterFallback       bool               `json:"relevance_filter_fallback"`
	RequestID            string             `json:"request_id"`
	Timings              map[string]float64 `json:"timings"`
}

// AskOptions configures a single ask request. Zero values select the
// configured defaults.
type AskOptions struct {
	// NResults is the number of passages requested from retrieval.
	NResults int

	// MinScore overrides the configured similarity floor. Nil keeps the
	// default; an explicit 0 disables score filtering.
	MinScore *float64

	// DocNumber filters retrieval to one instruction (bare numbers like
	// "21-101" are resolved against AFI/DAFI variants).
	DocNumber string

	// Chapter filters retrieval to one chapter.
	Chapter string

	// Folder filters retrieval to one folder.
	Folder string

	// Model overrides the configured generation model.
	Model string

	// Mode overrides the grounded answer mode (hybrid or strict). Ignored
	// when retrieval comes back empty, which always selects knowledge_only.
	Mode AnswerMode

	// MaxTokens overrides the configured completion budget.
	MaxTokens int

	// UseFilter overrides the configured relevance-filter toggle.
	UseFilter *bool
}
