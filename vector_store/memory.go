package vector_store

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/philippgille/chromem-go"

	"github.com/serisow/docanalyzer/rag_type"
)

const memoryCollection = "document_chunks"

// MemoryProvider gives every processed document its own in-process chromem database.
type MemoryProvider struct {
	logger *slog.Logger
}

func NewMemoryProvider(logger *slog.Logger) *MemoryProvider {
	return &MemoryProvider{logger: logger}
}

func (p *MemoryProvider) Name() string { return BackendMemory }

func (p *MemoryProvider) Close() error { return nil }

func (p *MemoryProvider) NewIndex(_ context.Context) (Index, error) {
	db := chromem.NewDB()
	// Vectors are always supplied, so the collection never needs an embedding func.
	collection, err := db.CreateCollection(memoryCollection, nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create collection: %w", err)
	}
	return &MemoryIndex{
		collection: collection,
		chunks:     make(map[string]rag_type.Chunk),
		logger:     p.logger,
	}, nil
}

// MemoryIndex performs exact cosine search over the vectors of one document.
type MemoryIndex struct {
	mu         sync.RWMutex
	collection *chromem.Collection
	chunks     map[string]rag_type.Chunk
	dim        int
	logger     *slog.Logger
}

func (m *MemoryIndex) Add(ctx context.Context, chunks []rag_type.Chunk, vectors [][]float32) error {
	dim, err := validateBatch(chunks, vectors)
	if err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if m.dim != 0 && dim != m.dim {
		return fmt.Errorf("%w: index holds %d dimensions, got %d", ErrDimensionMismatch, m.dim, dim)
	}

	ids := make([]string, len(chunks))
	metadatas := make([]map[string]string, len(chunks))
	contents := make([]string, len(chunks))
	for i, c := range chunks {
		ids[i] = c.ID
		metadatas[i] = map[string]string{"source": c.Source}
		contents[i] = c.Content
	}

	if err := m.collection.Add(ctx, ids, vectors, metadatas, contents); err != nil {
		return fmt.Errorf("failed to add vectors: %w", err)
	}
	for _, c := range chunks {
		m.chunks[c.ID] = c
	}
	m.dim = dim

	m.logger.Debug("Added chunks to memory index",
		slog.Int("added", len(chunks)),
		slog.Int("total", m.collection.Count()))
	return nil
}

func (m *MemoryIndex) Search(ctx context.Context, vector []float32, k int) ([]rag_type.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	count := m.collection.Count()
	if k <= 0 || count == 0 {
		return []rag_type.ScoredChunk{}, nil
	}
	if len(vector) != m.dim {
		return nil, fmt.Errorf("%w: index holds %d dimensions, query has %d", ErrDimensionMismatch, m.dim, len(vector))
	}

	results, err := m.collection.QueryEmbedding(ctx, vector, min(k, count), nil, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to query collection: %w", err)
	}

	hits := make([]rag_type.ScoredChunk, 0, len(results))
	for _, r := range results {
		chunk, ok := m.chunks[r.ID]
		if !ok {
			chunk = rag_type.Chunk{ID: r.ID, Content: r.Content, Source: r.Metadata["source"]}
		}
		hits = append(hits, rag_type.ScoredChunk{Chunk: chunk, Score: float64(r.Similarity)})
	}
	sortByScore(hits)
	return hits, nil
}

func (m *MemoryIndex) Count(_ context.Context) (int, error) {
	return m.collection.Count(), nil
}
