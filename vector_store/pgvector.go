package vector_store

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/serisow/docanalyzer/db"
	"github.com/serisow/docanalyzer/rag_type"
)

const createChunksTable = `
CREATE TABLE IF NOT EXISTS document_chunks (
    id          TEXT PRIMARY KEY,
    namespace   TEXT NOT NULL,
    source      TEXT NOT NULL,
    content     TEXT NOT NULL,
    chunk_index INTEGER NOT NULL,
    overlap     INTEGER NOT NULL,
    metadata    JSONB NOT NULL DEFAULT '{}'::jsonb,
    embedding   vector NOT NULL,
    created_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);
CREATE INDEX IF NOT EXISTS document_chunks_namespace_idx ON document_chunks (namespace);
`

const insertChunk = `
INSERT INTO document_chunks (id, namespace, source, content, chunk_index, overlap, metadata, embedding)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8::vector)
ON CONFLICT (id) DO UPDATE
SET content = EXCLUDED.content, metadata = EXCLUDED.metadata, embedding = EXCLUDED.embedding
`

const searchChunks = `
SELECT id, source, content, chunk_index, overlap, metadata, 1 - (embedding <=> $1::vector) AS score
FROM document_chunks
WHERE namespace = $2
ORDER BY embedding <=> $1::vector
LIMIT $3
`

// PgvectorProvider stores chunks of every document in one postgres table,
// scoped by namespace.
type PgvectorProvider struct {
	pool      *pgxpool.Pool
	namespace string
	logger    *slog.Logger
}

func NewPgvectorProvider(ctx context.Context, dbURL, namespace string, logger *slog.Logger) (*PgvectorProvider, error) {
	pool, err := db.Connect(ctx, dbURL, db.ConnectOptions{}, logger)
	if err != nil {
		return nil, err
	}
	provider, err := NewPgvectorProviderWithPool(ctx, pool, namespace, logger)
	if err != nil {
		pool.Close()
		return nil, err
	}
	return provider, nil
}

// NewPgvectorProviderWithPool creates the chunk table on an existing pool.
func NewPgvectorProviderWithPool(ctx context.Context, pool *pgxpool.Pool, namespace string, logger *slog.Logger) (*PgvectorProvider, error) {
	if _, err := pool.Exec(ctx, createChunksTable); err != nil {
		return nil, fmt.Errorf("unable to create document_chunks table: %w", err)
	}
	return &PgvectorProvider{pool: pool, namespace: namespace, logger: logger}, nil
}

func (p *PgvectorProvider) Name() string { return BackendPgvector }

func (p *PgvectorProvider) Close() error {
	p.pool.Close()
	return nil
}

func (p *PgvectorProvider) NewIndex(_ context.Context) (Index, error) {
	return &PgvectorIndex{pool: p.pool, namespace: p.namespace, logger: p.logger}, nil
}

type PgvectorIndex struct {
	pool      *pgxpool.Pool
	namespace string
	logger    *slog.Logger
}

func (p *PgvectorIndex) Add(ctx context.Context, chunks []rag_type.Chunk, vectors [][]float32) error {
	if _, err := validateBatch(chunks, vectors); err != nil {
		return err
	}
	if len(chunks) == 0 {
		return nil
	}

	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	batch := &pgx.Batch{}
	for i, c := range chunks {
		batch.Queue(insertChunk,
			c.ID, p.namespace, c.Source, c.Content, c.Index, c.Overlap,
			rag_type.CopyMetadata(c.Metadata), pgvector.NewVector(vectors[i]))
	}

	results := tx.SendBatch(ctx, batch)
	for i := range chunks {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return fmt.Errorf("failed to insert chunk %d: %w", i, err)
		}
	}
	if err := results.Close(); err != nil {
		return fmt.Errorf("failed to close batch: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("failed to commit chunks: %w", err)
	}

	p.logger.Debug("Stored chunks in pgvector",
		slog.Int("count", len(chunks)),
		slog.String("namespace", p.namespace))
	return nil
}

func (p *PgvectorIndex) Search(ctx context.Context, vector []float32, k int) ([]rag_type.ScoredChunk, error) {
	if k <= 0 {
		return []rag_type.ScoredChunk{}, nil
	}

	rows, err := p.pool.Query(ctx, searchChunks, pgvector.NewVector(vector), p.namespace, k)
	if err != nil {
		return nil, fmt.Errorf("failed to search chunks: %w", err)
	}
	defer rows.Close()

	hits := make([]rag_type.ScoredChunk, 0, k)
	for rows.Next() {
		var hit rag_type.ScoredChunk
		if err := rows.Scan(
			&hit.Chunk.ID,
			&hit.Chunk.Source,
			&hit.Chunk.Content,
			&hit.Chunk.Index,
			&hit.Chunk.Overlap,
			&hit.Chunk.Metadata,
			&hit.Score,
		); err != nil {
			return nil, fmt.Errorf("failed to scan chunk: %w", err)
		}
		hits = append(hits, hit)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating chunks: %w", err)
	}
	sortByScore(hits)
	return hits, nil
}

func (p *PgvectorIndex) Count(ctx context.Context) (int, error) {
	var count int
	err := p.pool.QueryRow(ctx, "SELECT count(*) FROM document_chunks WHERE namespace = $1", p.namespace).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count chunks: %w", err)
	}
	return count, nil
}
