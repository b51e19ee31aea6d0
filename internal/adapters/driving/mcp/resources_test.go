package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afiq-labs/afiq-cli/internal/core/domain"
)

func readRequest(uri string) *mcp.ReadResourceRequest {
	req := &mcp.ReadResourceRequest{}
	req.Params = &mcp.ReadResourceParams{URI: uri}
	return req
}

func TestServer_handleRulesResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns active rules as JSON", func(t *testing.T) {
		rules := &mockRuleStore{rules: domain.RuleSet{
			ImportantKeywords: []string{"shall", "must"},
		}}
		server, err := NewServer(&Ports{Ask: &mockAskService{}, Rules: rules})
		require.NoError(t, err)

		result, err := server.handleRulesResource(ctx, readRequest("afiq://rules"))

		require.NoError(t, err)
		require.Len(t, result.Contents, 1)
		assert.Equal(t, "application/json", result.Contents[0].MIMEType)
		assert.Contains(t, result.Contents[0].Text, "shall")
	})

	t.Run("nil rule store returns empty object", func(t *testing.T) {
		server, err := NewServer(&Ports{Ask: &mockAskService{}})
		require.NoError(t, err)

		result, err := server.handleRulesResource(ctx, readRequest("afiq://rules"))

		require.NoError(t, err)
		assert.Equal(t, "{}", result.Contents[0].Text)
	})
}

func TestServer_handleCorpusResource(t *testing.T) {
	ctx := context.Background()

	t.Run("returns passage count and metric", func(t *testing.T) {
		store := &mockVectorStore{count: 1234}
		server, err := NewServer(&Ports{Ask: &mockAskService{}, Store: store})
		require.NoError(t, err)

		result, err := server.handleCorpusResource(ctx, readRequest("afiq://corpus"))

		require.NoError(t, err)
		assert.Contains(t, result.Contents[0].Text, "1234")
		assert.Contains(t, result.Contents[0].Text, "cosine")
	})

	t.Run("count failure is reported", func(t *testing.T) {
		store := &mockVectorStore{countErr: errors.New("store down")}
		server, err := NewServer(&Ports{Ask: &mockAskService{}, Store: store})
		require.NoError(t, err)

		_, err = server.handleCorpusResource(ctx, readRequest("afiq://corpus"))

		require.Error(t, err)
		assert.Contains(t, err.Error(), "store down")
	})

	t.Run("nil store is not found", func(t *testing.T) {
		server, err := NewServer(&Ports{Ask: &mockAskService{}})
		require.NoError(t, err)

		_, err = server.handleCorpusResource(ctx, readRequest("afiq://corpus"))

		assert.Error(t, err)
	})
}
