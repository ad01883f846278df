package vector_store

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/pinecone-io/go-pinecone/pinecone"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/serisow/docanalyzer/rag_type"
)

const pineconeUpsertBatch = 100

const (
	metaText       = "text"
	metaSource     = "source"
	metaChunkIndex = "position"
	metaOverlap    = "overlap"
)

type PineconeConfig struct {
	APIKey    string
	IndexName string
	Namespace string
}

// pineconeConn is the subset of *pinecone.IndexConnection the index uses.
type pineconeConn interface {
	UpsertVectors(ctx context.Context, in []*pinecone.Vector) (uint32, error)
	QueryByVectorValues(ctx context.Context, in *pinecone.QueryByVectorValuesRequest) (*pinecone.QueryVectorsResponse, error)
	DescribeIndexStats(ctx context.Context) (*pinecone.DescribeIndexStatsResponse, error)
	Close() error
}

// PineconeProvider writes every document into one namespace of a managed index,
// so the index accumulates across documents and processes.
type PineconeProvider struct {
	conn      pineconeConn
	namespace string
	logger    *slog.Logger
}

func NewPineconeProvider(ctx context.Context, cfg PineconeConfig, logger *slog.Logger) (*PineconeProvider, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("PINECONE_API_KEY not set")
	}
	if cfg.IndexName == "" {
		return nil, fmt.Errorf("PINECONE_INDEX_NAME not set")
	}

	pc, err := pinecone.NewClient(pinecone.NewClientParams{ApiKey: cfg.APIKey})
	if err != nil {
		return nil, fmt.Errorf("failed to create pinecone client: %w", err)
	}

	idx, err := pc.DescribeIndex(ctx, cfg.IndexName)
	if err != nil {
		return nil, fmt.Errorf("failed to describe index %q: %w", cfg.IndexName, err)
	}

	conn, err := pc.Index(pinecone.NewIndexConnParams{Host: idx.Host, Namespace: cfg.Namespace})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to index %q: %w", cfg.IndexName, err)
	}

	logger.Info("Connected to pinecone index",
		slog.String("index", cfg.IndexName),
		slog.String("host", idx.Host),
		slog.String("namespace", cfg.Namespace))

	return &PineconeProvider{conn: conn, namespace: cfg.Namespace, logger: logger}, nil
}

func (p *PineconeProvider) Name() string { return BackendPinecone }

func (p *PineconeProvider) Close() error { return p.conn.Close() }

func (p *PineconeProvider) NewIndex(_ context.Context) (Index, error) {
	return &PineconeIndex{conn: p.conn, namespace: p.namespace, logger: p.logger}, nil
}

type PineconeIndex struct {
	conn      pineconeConn
	namespace string
	logger    *slog.Logger
}

func (p *PineconeIndex) Add(ctx context.Context, chunks []rag_type.Chunk, vectors [][]float32) error {
	if _, err := validateBatch(chunks, vectors); err != nil {
		return err
	}

	for start := 0; start < len(chunks); start += pineconeUpsertBatch {
		end := min(start+pineconeUpsertBatch, len(chunks))
		batch := make([]*pinecone.Vector, 0, end-start)
		for i := start; i < end; i++ {
			metadata, err := chunkMetadata(chunks[i])
			if err != nil {
				return err
			}
			batch = append(batch, &pinecone.Vector{
				Id:       chunks[i].ID,
				Values:   vectors[i],
				Metadata: metadata,
			})
		}

		upserted, err := p.conn.UpsertVectors(ctx, batch)
		if err != nil {
			return fmt.Errorf("failed to upsert vectors: %w", err)
		}
		p.logger.Debug("Upserted vectors",
			slog.Int("count", int(upserted)),
			slog.String("namespace", p.namespace))
	}
	return nil
}

func (p *PineconeIndex) Search(ctx context.Context, vector []float32, k int) ([]rag_type.ScoredChunk, error) {
	if k <= 0 {
		return []rag_type.ScoredChunk{}, nil
	}

	res, err := p.conn.QueryByVectorValues(ctx, &pinecone.QueryByVectorValuesRequest{
		Vector:          vector,
		TopK:            uint32(k),
		IncludeMetadata: true,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to query index: %w", err)
	}

	hits := make([]rag_type.ScoredChunk, 0, len(res.Matches))
	for _, m := range res.Matches {
		if m == nil || m.Vector == nil {
			continue
		}
		hits = append(hits, rag_type.ScoredChunk{
			Chunk: chunkFromMetadata(m.Vector.Id, m.Vector.Metadata),
			Score: float64(m.Score),
		})
	}
	sortByScore(hits)
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (p *PineconeIndex) Count(ctx context.Context) (int, error) {
	stats, err := p.conn.DescribeIndexStats(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to describe index stats: %w", err)
	}
	ns, ok := stats.Namespaces[p.namespace]
	if !ok || ns == nil {
		return 0, nil
	}
	return int(ns.VectorCount), nil
}

// chunkMetadata flattens a chunk into pinecone metadata. Values that are not
// strings, numbers or booleans are stored in their string form.
func chunkMetadata(c rag_type.Chunk) (*structpb.Struct, error) {
	fields := make(map[string]any, len(c.Metadata)+4)
	for k, v := range c.Metadata {
		switch val := v.(type) {
		case string, bool, int, int32, int64, float32, float64:
			fields[k] = val
		default:
			fields[k] = fmt.Sprint(val)
		}
	}
	fields[metaText] = c.Content
	fields[metaSource] = c.Source
	fields[metaChunkIndex] = c.Index
	fields[metaOverlap] = c.Overlap

	s, err := structpb.NewStruct(fields)
	if err != nil {
		return nil, fmt.Errorf("failed to encode metadata for chunk %s: %w", c.ID, err)
	}
	return s, nil
}

func chunkFromMetadata(id string, md *structpb.Struct) rag_type.Chunk {
	chunk := rag_type.Chunk{ID: id, Metadata: map[string]any{}}
	if md == nil {
		return chunk
	}
	for k, v := range md.AsMap() {
		switch k {
		case metaText:
			chunk.Content, _ = v.(string)
		case metaSource:
			chunk.Source, _ = v.(string)
		case metaChunkIndex:
			chunk.Index = intValue(v)
		case metaOverlap:
			chunk.Overlap = intValue(v)
		default:
			chunk.Metadata[k] = v
		}
	}
	return chunk
}

func intValue(v any) int {
	switch n := v.(type) {
	case float64:
		return int(n)
	case string:
		i, _ := strconv.Atoi(n)
		return i
	}
	return 0
}
