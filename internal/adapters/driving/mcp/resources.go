package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const (
	// uriScheme is the custom URI scheme for AFIQ resources.
	uriScheme = "afiq://"
)

// registerRulesResource exposes the active heuristic rule set.
func (s *Server) registerRulesResource() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "rules",
		Name:        "rules",
		Description: "Active query enhancement, filtering and model capability rules",
		MIMEType:    "application/json",
	}, s.handleRulesResource)
}

// registerCorpusResource exposes corpus statistics.
func (s *Server) registerCorpusResource() {
	s.server.AddResource(&mcp.Resource{
		URI:         uriScheme + "corpus",
		Name:        "corpus",
		Description: "Indexed AFI/DAFI corpus statistics",
		MIMEType:    "application/json",
	}, s.handleCorpusResource)
}

// handleRulesResource returns the active rule set.
func (s *Server) handleRulesResource(
	_ context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Rules == nil {
		return &mcp.ReadResourceResult{
			Contents: []*mcp.ResourceContents{{
				URI:      req.Params.URI,
				MIMEType: "application/json",
				Text:     "{}",
			}},
		}, nil
	}

	data, err := json.MarshalIndent(s.ports.Rules.Rules(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling rules: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}

// handleCorpusResource returns passage count and distance metric.
func (s *Server) handleCorpusResource(
	ctx context.Context,
	req *mcp.ReadResourceRequest,
) (*mcp.ReadResourceResult, error) {
	if s.ports.Store == nil {
		return nil, mcp.ResourceNotFoundError(req.Params.URI)
	}

	count, err := s.ports.Store.Count(ctx)
	if err != nil {
		return nil, fmt.Errorf("counting passages: %w", err)
	}

	info := struct {
		Passages int    `json:"passages"`
		Metric   string `json:"metric"`
	}{
		Passages: count,
		Metric:   s.ports.Store.Metric(),
	}

	data, err := json.MarshalIndent(info, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling corpus info: %w", err)
	}

	return &mcp.ReadResourceResult{
		Contents: []*mcp.ResourceContents{{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		}},
	}, nil
}
