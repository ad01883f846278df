package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/serisow/docanalyzer/plugin_registry"
	"github.com/serisow/docanalyzer/rag_type"
	"github.com/serisow/docanalyzer/services/rag_service"
	"github.com/serisow/docanalyzer/uploads"
)

// DocumentProcessor is the part of rag_service.Assistant the handler needs.
type DocumentProcessor interface {
	ProcessDocument(ctx context.Context, path string) (*rag_service.Session, error)
}

type AnalyzeHandler struct {
	processor      DocumentProcessor
	registry       *plugin_registry.PluginRegistry
	store          *uploads.Store
	maxUploadBytes int64
	logger         *slog.Logger
}

func NewAnalyzeHandler(processor DocumentProcessor, registry *plugin_registry.PluginRegistry, store *uploads.Store, maxUploadMB int, logger *slog.Logger) *AnalyzeHandler {
	return &AnalyzeHandler{
		processor:      processor,
		registry:       registry,
		store:          store,
		maxUploadBytes: int64(maxUploadMB) << 20,
		logger:         logger,
	}
}

// ServeHTTP accepts a multipart upload in the "file" field, processes it and
// answers the optional "query" field (the default analysis query otherwise).
func (h *AnalyzeHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUploadBytes)

	if err := r.ParseMultipartForm(32 << 20); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			writeJSONError(w, "Uploaded file is too large", http.StatusRequestEntityTooLarge)
			return
		}
		writeJSONError(w, "Failed to parse multipart form", http.StatusBadRequest)
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		writeJSONError(w, "Failed to get file from form", http.StatusBadRequest)
		return
	}
	defer file.Close()

	logger := h.logger.With(slog.String("filename", header.Filename))
	logger.Info("Received document for analysis", slog.Int64("size", header.Size))

	// Reject before the upload is staged.
	if err := h.registry.CheckSupported(header.Filename); err != nil {
		h.fail(w, logger, err)
		return
	}

	upload, err := h.store.Stage(header.Filename, file)
	if err != nil {
		h.fail(w, logger, err)
		return
	}
	defer h.store.Release(upload)

	session, err := h.processor.ProcessDocument(r.Context(), upload.Path)
	if err != nil {
		h.fail(w, logger, err)
		return
	}

	result, err := session.Analyze(r.Context(), r.FormValue("query"))
	if err != nil {
		h.fail(w, logger, err)
		return
	}

	logger.Info("Document analysis completed",
		slog.String("session_id", session.ID),
		slog.Duration("duration", time.Since(start)))
	writeJSON(w, http.StatusOK, rag_type.AnalyzeResponse{Result: result})
}

func (h *AnalyzeHandler) fail(w http.ResponseWriter, logger *slog.Logger, err error) {
	logger.Error("Document analysis failed",
		slog.String("kind", string(rag_service.Kind(err))),
		slog.String("error", err.Error()))
	writeJSONError(w, err.Error(), http.StatusInternalServerError)
}
