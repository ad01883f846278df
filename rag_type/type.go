package rag_type

// Document is one unit of extracted content: a page, a row, a sheet or a whole file,
// depending on the loader that produced it.
type Document struct {
	Source   string         `json:"source"`
	Content  string         `json:"content"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// Chunk is a bounded window of a Document's content.
type Chunk struct {
	ID      string `json:"id"`
	Source  string `json:"source"`
	Content string `json:"content"`
	Index   int    `json:"index"`
	// Overlap is the number of leading runes of Content repeated from the previous chunk.
	Overlap  int            `json:"overlap"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

// ScoredChunk is a search hit. Higher scores are more similar.
type ScoredChunk struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// AnalyzeResponse is returned by POST /analyze on success.
type AnalyzeResponse struct {
	Result string `json:"result"`
}

// ErrorResponse is returned by the API on failure.
type ErrorResponse struct {
	Detail string `json:"detail"`
}

// HealthResponse is returned by GET /healthz.
type HealthResponse struct {
	Status  string `json:"status"`
	Backend string `json:"backend"`
}

// CopyMetadata returns a shallow copy of src, never nil.
func CopyMetadata(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}
