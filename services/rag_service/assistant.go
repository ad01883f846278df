package rag_service

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/serisow/docanalyzer/plugin_registry"
	"github.com/serisow/docanalyzer/services/llm_service"
	"github.com/serisow/docanalyzer/vector_store"
)

type AssistantDeps struct {
	Loaders  *plugin_registry.PluginRegistry
	Splitter *Splitter
	Embedder Embedder
	Provider vector_store.Provider
	LLM      llm_service.LLMService
	TopK     int
	Logger   *slog.Logger
}

// Assistant turns files into searchable sessions and answers queries against
// the most recently processed one.
type Assistant struct {
	deps AssistantDeps

	processMu sync.Mutex

	activeMu sync.RWMutex
	active   *Session
}

func NewAssistant(deps AssistantDeps) (*Assistant, error) {
	switch {
	case deps.Loaders == nil:
		return nil, fmt.Errorf("assistant requires a loader registry")
	case deps.Splitter == nil:
		return nil, fmt.Errorf("assistant requires a splitter")
	case deps.Embedder == nil:
		return nil, fmt.Errorf("assistant requires an embedder")
	case deps.Provider == nil:
		return nil, fmt.Errorf("assistant requires a vector store provider")
	case deps.LLM == nil:
		return nil, fmt.Errorf("assistant requires an LLM service")
	}
	if deps.TopK <= 0 {
		deps.TopK = DefaultTopK
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Assistant{deps: deps}, nil
}

// Session is a processed document that can be analyzed any number of times.
type Session struct {
	ID          string
	Source      string
	ChunkCount  int
	ProcessedAt time.Time

	retriever *Retriever
	llm       llm_service.LLMService
	logger    *slog.Logger
}

// ProcessDocument loads, splits, embeds and indexes the file at path. On success
// the returned session becomes the active one; on failure the active session is
// left as it was.
func (a *Assistant) ProcessDocument(ctx context.Context, path string) (*Session, error) {
	a.processMu.Lock()
	defer a.processMu.Unlock()

	start := time.Now()
	logger := a.deps.Logger.With(slog.String("file", filepath.Base(path)))

	session, err := a.buildSession(ctx, path, logger)
	if err != nil {
		logger.Error("Document processing failed",
			slog.String("kind", string(Kind(err))),
			slog.String("error", err.Error()))
		return nil, err
	}

	a.activeMu.Lock()
	a.active = session
	a.activeMu.Unlock()

	logger.Info("Document processed",
		slog.String("session_id", session.ID),
		slog.Int("chunks", session.ChunkCount),
		slog.String("backend", a.deps.Provider.Name()),
		slog.Duration("duration", time.Since(start)))
	return session, nil
}

func (a *Assistant) buildSession(ctx context.Context, path string, logger *slog.Logger) (*Session, error) {
	loader, err := a.deps.Loaders.GetLoader(path)
	if err != nil {
		return nil, err
	}

	docs, err := loader.Load(ctx, path)
	if err != nil {
		return nil, err
	}
	logger.Debug("Documents loaded", slog.String("loader", loader.Name()), slog.Int("documents", len(docs)))

	chunks := a.deps.Splitter.SplitDocuments(docs)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("%w: %s", ErrEmptyDocument, filepath.Base(path))
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := a.deps.Embedder.EmbedDocuments(ctx, texts)
	if err != nil {
		return nil, upstream("embedding", "embed documents", err)
	}

	index, err := a.deps.Provider.NewIndex(ctx)
	if err != nil {
		return nil, upstream("vector_store", "create index", err)
	}
	if err := index.Add(ctx, chunks, vectors); err != nil {
		return nil, upstream("vector_store", "add", err)
	}

	return &Session{
		ID:          uuid.NewString(),
		Source:      filepath.Base(path),
		ChunkCount:  len(chunks),
		ProcessedAt: time.Now(),
		retriever:   &Retriever{Embedder: a.deps.Embedder, Index: index, K: a.deps.TopK},
		llm:         a.deps.LLM,
		logger:      a.deps.Logger,
	}, nil
}

// AnalyzeDocument runs query against the active session.
func (a *Assistant) AnalyzeDocument(ctx context.Context, query string) (string, error) {
	a.activeMu.RLock()
	session := a.active
	a.activeMu.RUnlock()

	if session == nil {
		return "", ErrNotReady
	}
	return session.Analyze(ctx, query)
}

func (a *Assistant) Ready() bool {
	a.activeMu.RLock()
	defer a.activeMu.RUnlock()
	return a.active != nil
}

func (a *Assistant) Backend() string {
	return a.deps.Provider.Name()
}

// Analyze retrieves context for query and returns the model's answer unchanged.
// An empty query uses DefaultQuery.
func (s *Session) Analyze(ctx context.Context, query string) (string, error) {
	if strings.TrimSpace(query) == "" {
		query = DefaultQuery
	}

	hits, err := s.retriever.Retrieve(ctx, query)
	if err != nil {
		return "", err
	}

	prompt, err := RenderPrompt(JoinContext(hits), query)
	if err != nil {
		return "", err
	}

	result, err := s.llm.CallLLM(ctx, prompt)
	if err != nil {
		return "", upstream("generation", "complete", err)
	}

	if !json.Valid([]byte(strings.TrimSpace(result))) {
		s.logger.Warn("Model output is not valid JSON",
			slog.String("session_id", s.ID),
			slog.Int("length", len(result)))
	}

	s.logger.Info("Document analyzed",
		slog.String("session_id", s.ID),
		slog.Int("context_chunks", len(hits)))
	return result, nil
}
