package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/serisow/docanalyzer/rag_type"
)

func writeJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, message string, statusCode int) {
	writeJSON(w, statusCode, rag_type.ErrorResponse{Detail: message})
}
