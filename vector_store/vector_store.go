package vector_store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"

	"github.com/serisow/docanalyzer/config"
	"github.com/serisow/docanalyzer/rag_type"
)

const (
	BackendMemory   = "memory"
	BackendPinecone = "pinecone"
	BackendPgvector = "pgvector"
)

var (
	ErrDimensionMismatch = errors.New("vector dimension mismatch")
	ErrLengthMismatch    = errors.New("chunks and vectors differ in length")
)

// Index stores chunk embeddings and answers nearest-neighbour queries.
// Search returns at most k results ordered by non-increasing score.
type Index interface {
	Add(ctx context.Context, chunks []rag_type.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]rag_type.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
}

// Provider hands out the Index a processed document is written to.
type Provider interface {
	NewIndex(ctx context.Context) (Index, error)
	Name() string
	Close() error
}

// NewProvider builds the provider selected by cfg.VectorBackend.
func NewProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Provider, error) {
	switch cfg.VectorBackend {
	case "", BackendMemory:
		return NewMemoryProvider(logger), nil
	case BackendPinecone:
		return NewPineconeProvider(ctx, PineconeConfig{
			APIKey:    cfg.PineconeAPIKey,
			IndexName: cfg.PineconeIndexName,
			Namespace: cfg.PineconeNamespace,
		}, logger)
	case BackendPgvector:
		return NewPgvectorProvider(ctx, cfg.DatabaseURL, cfg.VectorNamespace, logger)
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.VectorBackend)
	}
}

func validateBatch(chunks []rag_type.Chunk, vectors [][]float32) (int, error) {
	if len(chunks) != len(vectors) {
		return 0, fmt.Errorf("%w: %d chunks, %d vectors", ErrLengthMismatch, len(chunks), len(vectors))
	}
	dim := 0
	for i, v := range vectors {
		if len(v) == 0 {
			return 0, fmt.Errorf("%w: empty vector at %d", ErrDimensionMismatch, i)
		}
		if dim == 0 {
			dim = len(v)
		} else if len(v) != dim {
			return 0, fmt.Errorf("%w: vector %d has %d dimensions, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
	}
	return dim, nil
}

// sortByScore orders hits by non-increasing score, keeping insertion order on ties.
func sortByScore(hits []rag_type.ScoredChunk) {
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
}
