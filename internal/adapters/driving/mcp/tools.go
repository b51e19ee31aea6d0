package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Query     string  `json:"query" jsonschema:"the compliance question to answer"`
	NResults  int     `json:"n_results,omitempty" jsonschema:"number of passages to retrieve (default 5)"`
	MinScore  float64 `json:"min_score,omitempty" jsonschema:"minimum similarity score for retrieved passages"`
	DocNumber string  `json:"doc,omitempty" jsonschema:"restrict retrieval to one instruction, e.g. 21-101 or DAFI 21-101"`
	Chapter   string  `json:"chapter,omitempty" jsonschema:"restrict retrieval to one chapter"`
	Model     string  `json:"model,omitempty" jsonschema:"generation model override"`
	Strict    bool    `json:"strict,omitempty" jsonschema:"answer only from retrieved context"`
	NoFilter  bool    `json:"no_filter,omitempty" jsonschema:"skip the LLM relevance filter"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer               string         `json:"answer"`
	Sources              []SourceOutput `json:"sources"`
	SearchResultsCount   int            `json:"search_results_count"`
	FilteredResultsCount int            `json:"filtered_results_count"`
	Model                string         `json:"model"`
	KnowledgeFallback    bool           `json:"knowledge_fallback"`
	FilterFallback       bool           `json:"relevance_filter_fallback"`
	ContextTruncated     bool           `json:"context_truncated"`
	RequestID            string         `json:"request_id"`
}

// SourceOutput represents a single cited passage.
type SourceOutput struct {
	Reference  int     `json:"reference"`
	AFINumber  string  `json:"afi_number"`
	Chapter    string  `json:"chapter"`
	Paragraph  string  `json:"paragraph"`
	Similarity float64 `json:"similarity_score"`
	Preview    string  `json:"preview"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question from AFI/DAFI regulatory documents with citations",
	}, s.handleAsk)
}

// handleAsk handles the ask tool invocation.
func (s *Server) handleAsk(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input AskInput,
) (*mcp.CallToolResult, AskOutput, error) {
	opts := domain.AskOptions{
		NResults:  input.NResults,
		DocNumber: input.DocNumber,
		Chapter:   input.Chapter,
		Model:     input.Model,
	}
	if input.MinScore > 0 {
		opts.MinScore = &input.MinScore
	}
	if input.Strict {
		opts.Mode = domain.ModeStrict
	}
	if input.NoFilter {
		useFilter := false
		opts.UseFilter = &useFilter
	}

	answer, err := s.ports.Ask.Ask(ctx, input.Query, opts)
	if err != nil {
		return nil, AskOutput{}, err
	}

	output := AskOutput{
		Answer:               answer.Answer,
		Sources:              make([]SourceOutput, len(answer.Sources)),
		SearchResultsCount:   answer.SearchResultsCount,
		FilteredResultsCount: answer.FilteredResultsCount,
		Model:                answer.Model,
		KnowledgeFallback:    answer.KnowledgeFallback,
		FilterFallback:       answer.FilterFallback,
		ContextTruncated:     answer.ContextTruncated,
		RequestID:            answer.RequestID,
	}
	for i := range answer.Sources {
		output.Sources[i] = SourceOutput{
			Reference:  answer.Sources[i].Reference,
			AFINumber:  answer.Sources[i].AFINumber,
			Chapter:    answer.Sources[i].Chapter,
			Paragraph:  answer.Sources[i].Paragraph,
			Similarity: answer.Sources[i].Similarity,
			Preview:    answer.Sources[i].TextPreview,
		}
	}

	return nil, output, nil
}
