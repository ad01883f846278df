package rag_service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/serisow/docanalyzer/services/llm_service"
)

func embeddingServer(t *testing.T, calls *atomic.Int32, handler func(req EmbeddingRequest) (int, string)) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req EmbeddingRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		status, body := handler(req)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(server.Close)
	return server
}

// reversedEmbeddings answers with one vector per input, listed in reverse order.
func reversedEmbeddings(req EmbeddingRequest) (int, string) {
	type item struct {
		Embedding []float32 `json:"embedding"`
		Index     int       `json:"index"`
	}
	var resp struct {
		Data []item `json:"data"`
	}
	for i := len(req.Input) - 1; i >= 0; i-- {
		resp.Data = append(resp.Data, item{Embedding: []float32{float32(len(req.Input[i])), 1}, Index: i})
	}
	body, _ := json.Marshal(resp)
	return http.StatusOK, string(body)
}

func TestOpenAIEmbedder_BatchesAndOrders(t *testing.T) {
	var calls atomic.Int32
	server := embeddingServer(t, &calls, func(req EmbeddingRequest) (int, string) {
		assert.Equal(t, DefaultEmbeddingModel, req.Model)
		assert.LessOrEqual(t, len(req.Input), 2)
		return reversedEmbeddings(req)
	})

	e := NewOpenAIEmbedder(OpenAIEmbedderConfig{APIKey: "test-key", BaseURL: server.URL, BatchSize: 2}, discardLogger())
	vectors, err := e.EmbedDocuments(context.Background(), []string{"a", "bb", "ccc", "dddd", "eeeee"})
	require.NoError(t, err)

	assert.Equal(t, int32(3), calls.Load())
	require.Len(t, vectors, 5)
	for i, v := range vectors {
		assert.Equal(t, float32(i+1), v[0])
	}

	q, err := e.EmbedQuery(context.Background(), "xyz")
	require.NoError(t, err)
	assert.Equal(t, []float32{3, 1}, q)
}

func TestOpenAIEmbedder_FailuresAreNotRetried(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
		quota  bool
	}{
		{name: "quota", status: http.StatusTooManyRequests, body: `{"error":{"message":"quota","type":"insufficient_quota"}}`, quota: true},
		{name: "auth", status: http.StatusUnauthorized, body: `{"error":{"message":"bad key","type":"invalid_request_error"}}`},
		{name: "count mismatch", status: http.StatusOK, body: `{"data":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			server := embeddingServer(t, &calls, func(EmbeddingRequest) (int, string) {
				return tt.status, tt.body
			})

			e := NewOpenAIEmbedder(OpenAIEmbedderConfig{APIKey: "test-key", BaseURL: server.URL}, discardLogger())
			_, err := e.EmbedDocuments(context.Background(), []string{"a", "b"})
			require.Error(t, err)
			assert.Equal(t, int32(1), calls.Load())
			assert.ErrorIs(t, err, ErrUpstream)

			var httpErr *llm_service.OpenAIHttpError
			if tt.quota {
				require.True(t, errors.As(err, &httpErr))
				assert.True(t, httpErr.IsQuotaExceeded())
			}
		})
	}
}

func TestOpenAIEmbedder_MissingKey(t *testing.T) {
	e := NewOpenAIEmbedder(OpenAIEmbedderConfig{BaseURL: "http://127.0.0.1:1"}, discardLogger())
	_, err := e.EmbedQuery(context.Background(), "q")
	assert.ErrorIs(t, err, ErrUpstream)
	assert.ErrorContains(t, err, "OPENAI_API_KEY")
}

func TestOpenAIEmbedder_RateLimitHonoursContext(t *testing.T) {
	var calls atomic.Int32
	server := embeddingServer(t, &calls, reversedEmbeddings)

	e := NewOpenAIEmbedder(OpenAIEmbedderConfig{APIKey: "test-key", BaseURL: server.URL, RequestsPerSecond: 0.001}, discardLogger())
	_, err := e.EmbedQuery(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = e.EmbedQuery(ctx, "second")
	assert.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrUpstream)
	assert.Equal(t, KindInternal, Kind(err))
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenAIEmbedder_RateLimitPastDeadline(t *testing.T) {
	var calls atomic.Int32
	server := embeddingServer(t, &calls, reversedEmbeddings)

	e := NewOpenAIEmbedder(OpenAIEmbedderConfig{APIKey: "test-key", BaseURL: server.URL, RequestsPerSecond: 0.001}, discardLogger())
	_, err := e.EmbedDocuments(context.Background(), []string{"first"})
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()
	_, err = e.EmbedDocuments(ctx, []string{"second"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.NotErrorIs(t, err, ErrUpstream)
	assert.Equal(t, KindInternal, Kind(err))
	assert.Equal(t, int32(1), calls.Load())
}
