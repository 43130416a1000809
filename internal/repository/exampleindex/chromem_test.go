package exampleindex

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kailas-cloud/ingres/internal/domain"
)

func TestChromem_AgreesWithFlat(t *testing.T) {
	records := testRecords("a", "b", "c", "d")
	vectors := [][]float32{
		{1, 0, 0},
		{0, 1, 0},
		{0, 0.6, 0.8},
		{0, 1, 0},
	}
	flat, err := NewFlat(records, vectors)
	require.NoError(t, err)
	cm, err := NewChromem(context.Background(), "intent", records, vectors, nil, 2)
	require.NoError(t, err)

	query := []float32{0, 1, 0}
	want, err := flat.Search(context.Background(), query, 3)
	require.NoError(t, err)
	got, err := cm.Search(context.Background(), query, 3)
	require.NoError(t, err)

	require.Len(t, got, 3)
	for i := range want {
		assert.Equal(t, want[i].Record.Query(), got[i].Record.Query(), "rank %d", i)
		assert.Equal(t, want[i].Position, got[i].Position, "rank %d", i)
	}
}

func TestChromem_ClampsK(t *testing.T) {
	records := testRecords("a", "b")
	cm, err := NewChromem(context.Background(), "response", records, [][]float32{{1, 0}, {0, 1}}, nil, 1)
	require.NoError(t, err)

	hits, err := cm.Search(context.Background(), []float32{1, 0}, 5)
	require.NoError(t, err)
	assert.Len(t, hits, 2)
	assert.Equal(t, "a", hits[0].Record.Query())
}

func TestChromem_EmptyAndMismatch(t *testing.T) {
	empty, err := NewChromem(context.Background(), "empty", nil, nil, nil, 1)
	require.NoError(t, err)
	hits, err := empty.Search(context.Background(), []float32{1}, 5)
	require.NoError(t, err)
	assert.Empty(t, hits)

	cm, err := NewChromem(context.Background(), "one", testRecords("a"), [][]float32{{1, 0}}, nil, 1)
	require.NoError(t, err)
	_, err = cm.Search(context.Background(), []float32{1, 0, 0}, 5)
	assert.ErrorIs(t, err, domain.ErrDimensionMismatch)
}

func TestEmbeddingFunc(t *testing.T) {
	e := &tableEmbedder{vectors: map[string][]float32{"hi": {0.5, 0.5}}}
	fn := EmbeddingFunc(e)

	v, err := fn(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.5, 0.5}, v)

	_, err = EmbeddingFunc(nil)(context.Background(), "hi")
	assert.ErrorIs(t, err, domain.ErrEmbeddingProviderError)
}

func TestChromem_TieAtCutoffKeepsFirstInserted(t *testing.T) {
	queries := make([]string, 12)
	vectors := make([][]float32, 12)
	for i := range queries {
		queries[i] = string(rune('a' + i))
		vectors[i] = []float32{1, 0}
	}
	records := testRecords(queries...)
	cm, err := NewChromem(context.Background(), "ties", records, vectors, nil, 4)
	require.NoError(t, err)

	for run := 0; run < 20; run++ {
		hits, err := cm.Search(context.Background(), []float32{1, 0}, 5)
		require.NoError(t, err)
		require.Len(t, hits, 5)
		for i, h := range hits {
			assert.Equal(t, i, h.Position, "run %d rank %d", run, i)
		}
	}
}
