package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/afiq-labs/afiq-cli/internal/core/ports/driven"
)

func testStore(t *testing.T) *Store {
	t.Helper()
	store, err := NewStore(filepath.Join(t.TempDir(), "passages.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	err = store.Add(context.Background(), []driven.VectorHit{
		{ID: "a", Text: "tool control", Metadata: map[string]string{"afi_number": "DAFI 21-101", "chapter": "8"}},
		{ID: "b", Text: "uniform wear", Metadata: map[string]string{"afi_number": "AFI 36-2903", "chapter": "3"}},
		{ID: "c", Text: "tool inventory", Metadata: map[string]string{"afi_number": "DAFI 21-101", "chapter": "8"}},
	}, [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0.9, 0.1, 0},
	})
	require.NoError(t, err)
	return store
}

// TestStore_QueryRanksByDistance tests cosine ranking
func TestStore_QueryRanksByDistance(t *testing.T) {
	store := testStore(t)

	hits, err := store.Query(context.Background(), []float32{1, 0, 0}, 2, nil)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].ID)
	assert.Equal(t, "c", hits[1].ID)
	assert.Less(t, hits[0].Distance, hits[1].Distance)
}

// TestStore_QueryFilter tests metadata equality filtering
func TestStore_QueryFilter(t *testing.T) {
	store := testStore(t)

	hits, err := store.Query(context.Background(), []float32{0, 1, 0}, 10,
		map[string]string{"afi_number": "DAFI 21-101"})
	require.NoError(t, err)
	require.Len(t, hits, 2)
	for _, hit := range hits {
		assert.Equal(t, "DAFI 21-101", hit.Metadata["afi_number"])
	}
}

// TestStore_Get tests unranked fetch with limit
func TestStore_Get(t *testing.T) {
	store := testStore(t)

	hits, err := store.Get(context.Background(), map[string]string{"chapter": "8"}, 0)
	require.NoError(t, err)
	assert.Len(t, hits, 2)

	hits, err = store.Get(context.Background(), map[string]string{"chapter": "8"}, 1)
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "a", hits[0].ID)
}

// TestStore_AddReplaces tests that re-adding an ID overwrites it
func TestStore_AddReplaces(t *testing.T) {
	store := testStore(t)

	err := store.Add(context.Background(), []driven.VectorHit{
		{ID: "a", Text: "tool control program", Metadata: map[string]string{"afi_number": "DAFI 21-101"}},
	}, [][]float32{{1, 0, 0}})
	require.NoError(t, err)

	n, err := store.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	hits, err := store.Get(context.Background(), map[string]string{"afi_number": "DAFI 21-101"}, 0)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "tool control program", hits[0].Text)
}

// TestStore_PersistsAcrossReopen tests reopening the same database file
func TestStore_PersistsAcrossReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "passages.db")
	store, err := NewStore(path)
	require.NoError(t, err)
	err = store.Add(context.Background(), []driven.VectorHit{
		{ID: "a", Text: "tool control", Metadata: map[string]string{"chapter": "8"}},
	}, [][]float32{{1, 0, 0}})
	require.NoError(t, err)
	require.NoError(t, store.Close())

	reopened, err := NewStore(path)
	require.NoError(t, err)
	defer reopened.Close()

	n, err := reopened.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

// TestStore_Metric tests the reported metric
func TestStore_Metric(t *testing.T) {
	store := testStore(t)
	assert.Equal(t, "cosine", store.Metric())
}

// TestVectorRoundTrip tests the embedding blob encoding
func TestVectorRoundTrip(t *testing.T) {
	v := []float32{0.1, -2.5, 3}
	assert.Equal(t, v, decodeVector(encodeVector(v)))
	assert.Nil(t, decodeVector([]byte{1, 2, 3}))
}
