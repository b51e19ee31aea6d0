package cli

import (
	"bytes"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStatusCmd_AllServicesHealthy(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	require.NoError(t, err)
	assert.Contains(t, buf.String(), "Embedding service (text-embedding-3-small): OK")
	assert.Contains(t, buf.String(), "Generation service: OK")
	assert.Contains(t, buf.String(), "100 passages")
}

func TestStatusCmd_EmbeddingDown(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	embedder = &mockEmbedder{pingErr: errors.New("connection refused")}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, buf.String(), "FAILED: connection refused")
}

func TestStatusCmd_StoreCountFails(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	vectorStore = &mockStore{countErr: errors.New("store down")}

	buf := new(bytes.Buffer)
	rootCmd.SetOut(buf)
	rootCmd.SetErr(buf)
	rootCmd.SetArgs([]string{"status"})
	defer func() {
		rootCmd.SetArgs(nil)
	}()

	err := rootCmd.Execute()

	assert.Error(t, err)
	assert.Contains(t, buf.String(), "store down")
}
