package rag_service

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/serisow/docanalyzer/services/llm_service"
)

const (
	DefaultEmbeddingModel     = "text-embedding-ada-002"
	DefaultEmbeddingBatchSize = 64
)

// Embedder maps text to fixed-dimension vectors. The same model embeds
// documents and queries.
type Embedder interface {
	EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error)
	EmbedQuery(ctx context.Context, text string) ([]float32, error)
}

type EmbeddingRequest struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

type EmbeddingResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
	Object string `json:"object"`
}

type OpenAIEmbedderConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	BatchSize int
	// RequestsPerSecond throttles calls to the embeddings endpoint. 0 disables throttling.
	RequestsPerSecond float64
	Timeout           time.Duration
}

// OpenAIEmbedder calls the OpenAI embeddings endpoint. It never retries.
type OpenAIEmbedder struct {
	config     OpenAIEmbedderConfig
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
}

func NewOpenAIEmbedder(config OpenAIEmbedderConfig, logger *slog.Logger) *OpenAIEmbedder {
	if config.BaseURL == "" {
		config.BaseURL = llm_service.DefaultOpenAIBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultEmbeddingModel
	}
	if config.BatchSize <= 0 {
		config.BatchSize = DefaultEmbeddingBatchSize
	}
	if config.Timeout == 0 {
		config.Timeout = 60 * time.Second
	}

	limiter := rate.NewLimiter(rate.Inf, 1)
	if config.RequestsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	return &OpenAIEmbedder{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		limiter:    limiter,
		logger:     logger,
	}
}

func (e *OpenAIEmbedder) EmbedDocuments(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(texts))
		batch, err := e.embed(ctx, texts[start:end])
		if err != nil {
			return nil, upstream("embedding", "embed documents", err)
		}
		vectors = append(vectors, batch...)
	}

	e.logger.Debug("Embedded documents",
		slog.Int("count", len(vectors)),
		slog.String("model", e.config.Model))
	return vectors, nil
}

func (e *OpenAIEmbedder) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.embed(ctx, []string{text})
	if err != nil {
		return nil, upstream("embedding", "embed query", err)
	}
	return vectors[0], nil
}

func (e *OpenAIEmbedder) embed(ctx context.Context, texts []string) ([][]float32, error) {
	if e.config.APIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY not set")
	}
	if err := e.limiter.Wait(ctx); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		// The limiter refuses waits that would outlast the deadline.
		return nil, fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
	}

	jsonData, err := json.Marshal(EmbeddingRequest{Input: texts, Model: e.config.Model})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal embedding request: %w", err)
	}

	url := strings.TrimRight(e.config.BaseURL, "/") + "/embeddings"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+e.config.APIKey)

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send HTTP request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, llm_service.NewOpenAIHttpError(resp)
	}

	var embeddingResp EmbeddingResponse
	if err := json.NewDecoder(resp.Body).Decode(&embeddingResp); err != nil {
		return nil, fmt.Errorf("failed to decode embedding response: %w", err)
	}
	if len(embeddingResp.Data) != len(texts) {
		return nil, fmt.Errorf("embedding count mismatch: sent %d texts, received %d vectors",
			len(texts), len(embeddingResp.Data))
	}

	sort.Slice(embeddingResp.Data, func(i, j int) bool {
		return embeddingResp.Data[i].Index < embeddingResp.Data[j].Index
	})

	vectors := make([][]float32, len(embeddingResp.Data))
	for i, d := range embeddingResp.Data {
		if len(d.Embedding) == 0 {
			return nil, fmt.Errorf("empty embedding at index %d", d.Index)
		}
		vectors[i] = d.Embedding
	}
	return vectors, nil
}
