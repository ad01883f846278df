package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/gorilla/mux"
	"github.com/urfave/negroni"

	"github.com/serisow/docanalyzer/config"
	"github.com/serisow/docanalyzer/logging"
	"github.com/serisow/docanalyzer/plugin_registry"
	"github.com/serisow/docanalyzer/services/llm_service"
	"github.com/serisow/docanalyzer/services/rag_service"
	"github.com/serisow/docanalyzer/vector_store"
)

type application struct {
	cfg       config.Config
	logger    *slog.Logger
	registry  *plugin_registry.PluginRegistry
	provider  vector_store.Provider
	assistant *rag_service.Assistant
	closers   []io.Closer
}

func (a *application) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i].Close()
	}
}

// newApplication loads configuration and wires the pipeline. Console logs go to out.
func newApplication(ctx context.Context, out io.Writer) (*application, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	handler, err := initLogger(cfg, out)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger := slog.New(handler)
	app := &application{cfg: cfg, logger: logger, closers: []io.Closer{handler}}

	app.registry = plugin_registry.NewPluginRegistry()
	rag_service.RegisterDefaultLoaders(app.registry, logger)

	size, overlap := cfg.Chunking()
	splitter, err := rag_service.NewSplitter(rag_service.WithChunkSize(size), rag_service.WithOverlap(overlap))
	if err != nil {
		app.Close()
		return nil, err
	}

	app.provider, err = vector_store.NewProvider(ctx, &cfg, logger)
	if err != nil {
		app.Close()
		return nil, fmt.Errorf("failed to initialize %s vector store: %w", cfg.VectorBackend, err)
	}
	app.closers = append(app.closers, app.provider)

	embedder := rag_service.NewOpenAIEmbedder(rag_service.OpenAIEmbedderConfig{
		APIKey:            cfg.OpenAIAPIKey,
		BaseURL:           cfg.OpenAIBaseURL,
		Model:             cfg.OpenAIEmbeddingModel,
		BatchSize:         cfg.EmbeddingBatchSize,
		RequestsPerSecond: cfg.EmbeddingRPS,
	}, logger)

	llm := llm_service.NewOpenAIService(llm_service.OpenAIConfig{
		APIKey:      cfg.OpenAIAPIKey,
		BaseURL:     cfg.OpenAIBaseURL,
		Model:       cfg.OpenAIChatModel,
		MaxAttempts: cfg.LLMMaxAttempts,
	}, logger)

	app.assistant, err = rag_service.NewAssistant(rag_service.AssistantDeps{
		Loaders:  app.registry,
		Splitter: splitter,
		Embedder: embedder,
		Provider: app.provider,
		LLM:      llm,
		TopK:     cfg.TopK,
		Logger:   logger,
	})
	if err != nil {
		app.Close()
		return nil, err
	}

	logger.Debug("Application initialized",
		slog.String("backend", app.provider.Name()),
		slog.Int("chunk_size", size),
		slog.Int("chunk_overlap", overlap),
		slog.Int("top_k", cfg.TopK))
	return app, nil
}

func initLogger(cfg config.Config, out io.Writer) (*logging.DailyFileHandler, error) {
	return logging.NewDailyFileHandler(cfg.LogDir, out, &slog.HandlerOptions{
		Level: logging.ParseLevel(cfg.LogLevel),
	})
}

func setupNegroni(r *mux.Router) *negroni.Negroni {
	n := negroni.New()

	n.Use(negroni.NewRecovery())
	n.Use(negroni.NewLogger())

	n.UseHandler(r)
	return n
}
