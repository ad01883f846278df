package rag_service

import (
	"context"

	"github.com/serisow/docanalyzer/rag_type"
	"github.com/serisow/docanalyzer/vector_store"
)

const DefaultTopK = 4

// Retriever embeds a query and returns the K most similar chunks, best first.
type Retriever struct {
	Embedder Embedder
	Index    vector_store.Index
	K        int
}

func (r *Retriever) Retrieve(ctx context.Context, query string) ([]rag_type.ScoredChunk, error) {
	k := r.K
	if k <= 0 {
		k = DefaultTopK
	}

	vector, err := r.Embedder.EmbedQuery(ctx, query)
	if err != nil {
		return nil, upstream("embedding", "embed query", err)
	}

	hits, err := r.Index.Search(ctx, vector, k)
	if err != nil {
		return nil, upstream("vector_store", "search", err)
	}
	return hits, nil
}
