package rag_service

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"sync"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// letterEmbedder embeds text as letter frequencies plus a constant component,
// so similar texts score close together and no vector is zero.
type letterEmbedder struct {
	mu          sync.Mutex
	docCalls    int
	queryCalls  int
	embedded    int
	failDocs    error
	failQueries error
}

func (e *letterEmbedder) vector(text string) []float32 {
	v := make([]float32, 27)
	v[26] = 1
	for _, r := range strings.ToLower(text) {
		if r >= 'a' && r <= 'z' {
			v[r-'a']++
		}
	}
	return v
}

func (e *letterEmbedder) EmbedDocuments(_ context.Context, texts []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.docCalls++
	if e.failDocs != nil {
		return nil, e.failDocs
	}
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = e.vector(t)
	}
	e.embedded += len(texts)
	return out, nil
}

func (e *letterEmbedder) EmbedQuery(_ context.Context, text string) ([]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.queryCalls++
	if e.failQueries != nil {
		return nil, e.failQueries
	}
	return e.vector(text), nil
}

func (e *letterEmbedder) calls() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.docCalls + e.queryCalls
}

var errEmbeddingDown = errors.New("embedding service unavailable")
