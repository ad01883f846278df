package handlers

import (
	"net/http"

	"github.com/serisow/docanalyzer/rag_type"
)

type HealthHandler struct {
	Backend string
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, rag_type.HealthResponse{Status: "ok", Backend: h.Backend})
}
