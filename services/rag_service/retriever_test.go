package rag_service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serisow/docanalyzer/rag_type"
	"github.com/serisow/docanalyzer/vector_store"
)

func newPopulatedRetriever(t *testing.T, contents ...string) (*Retriever, *letterEmbedder) {
	t.Helper()
	ctx := context.Background()
	embedder := &letterEmbedder{}

	idx, err := vector_store.NewMemoryProvider(discardLogger()).NewIndex(ctx)
	require.NoError(t, err)

	chunks := make([]rag_type.Chunk, len(contents))
	for i, c := range contents {
		chunks[i] = rag_type.Chunk{ID: c, Content: c, Index: i}
	}
	vectors, err := embedder.EmbedDocuments(ctx, contents)
	require.NoError(t, err)
	require.NoError(t, idx.Add(ctx, chunks, vectors))

	return &Retriever{Embedder: embedder, Index: idx}, embedder
}

func TestRetriever_OrderedAndBounded(t *testing.T) {
	r, _ := newPopulatedRetriever(t, "aaaa", "aabb", "bbbb", "cccc", "abcd", "zzzz")

	hits, err := r.Retrieve(context.Background(), "aaab")
	require.NoError(t, err)
	require.Len(t, hits, DefaultTopK)
	assert.Equal(t, "aaaa", hits[0].Chunk.Content)
	for i := 1; i < len(hits); i++ {
		assert.GreaterOrEqual(t, hits[i-1].Score, hits[i].Score)
	}
}

func TestRetriever_MonotonicInK(t *testing.T) {
	contents := []string{"aaaa", "aaab", "aabb", "abbb", "bbbb", "cccccccc"}
	r, _ := newPopulatedRetriever(t, contents...)

	var previous []rag_type.ScoredChunk
	for k := 1; k <= len(contents)+2; k++ {
		r.K = k
		hits, err := r.Retrieve(context.Background(), "aaaa")
		require.NoError(t, err)
		assert.Len(t, hits, min(k, len(contents)))

		// Growing k never reorders or drops earlier results.
		for i, p := range previous {
			assert.Equal(t, p.Chunk.ID, hits[i].Chunk.ID)
		}
		previous = hits
	}
}

func TestRetriever_EmbeddingFailure(t *testing.T) {
	r, embedder := newPopulatedRetriever(t, "aaaa")
	embedder.failQueries = errEmbeddingDown

	_, err := r.Retrieve(context.Background(), "q")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.True(t, errors.Is(err, errEmbeddingDown))
}
