package handlers

import (
	"net/http"
)

const (
	apiTitle   = "Document Analyzer API"
	apiVersion = "1.0.0"
)

func errorSchemaRef() map[string]any {
	return map[string]any{"$ref": "#/components/schemas/ErrorResponse"}
}

func jsonContent(schema map[string]any) map[string]any {
	return map[string]any{"application/json": map[string]any{"schema": schema}}
}

// OpenAPIDocument describes the HTTP API.
func OpenAPIDocument() map[string]any {
	return map[string]any{
		"openapi": "3.0.3",
		"info": map[string]any{
			"title":       apiTitle,
			"version":     apiVersion,
			"description": "Upload a document and receive a JSON analysis generated from its most relevant passages.",
		},
		"paths": map[string]any{
			"/analyze": map[string]any{
				"post": map[string]any{
					"summary":     "Analyze a document",
					"operationId": "analyzeDocument",
					"requestBody": map[string]any{
						"required": true,
						"content": map[string]any{
							"multipart/form-data": map[string]any{
								"schema": map[string]any{
									"type":     "object",
									"required": []string{"file"},
									"properties": map[string]any{
										"file": map[string]any{
											"type":        "string",
											"format":      "binary",
											"description": "A .pdf, .txt, .csv, .xlsx or .docx file.",
										},
										"query": map[string]any{
											"type":        "string",
											"description": "Question to answer. Defaults to a JSON summary request.",
										},
									},
								},
							},
						},
					},
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Analysis result",
							"content":     jsonContent(map[string]any{"$ref": "#/components/schemas/AnalyzeResponse"}),
						},
						"400": map[string]any{"description": "Malformed upload", "content": jsonContent(errorSchemaRef())},
						"413": map[string]any{"description": "Upload too large", "content": jsonContent(errorSchemaRef())},
						"500": map[string]any{"description": "Processing failed", "content": jsonContent(errorSchemaRef())},
					},
				},
			},
			"/healthz": map[string]any{
				"get": map[string]any{
					"summary":     "Liveness check",
					"operationId": "health",
					"responses": map[string]any{
						"200": map[string]any{
							"description": "Service is up",
							"content":     jsonContent(map[string]any{"$ref": "#/components/schemas/HealthResponse"}),
						},
					},
				},
			},
		},
		"components": map[string]any{
			"schemas": map[string]any{
				"AnalyzeResponse": map[string]any{
					"type":       "object",
					"required":   []string{"result"},
					"properties": map[string]any{"result": map[string]any{"type": "string"}},
				},
				"ErrorResponse": map[string]any{
					"type":       "object",
					"required":   []string{"detail"},
					"properties": map[string]any{"detail": map[string]any{"type": "string"}},
				},
				"HealthResponse": map[string]any{
					"type": "object",
					"properties": map[string]any{
						"status":  map[string]any{"type": "string"},
						"backend": map[string]any{"type": "string"},
					},
				},
			},
		},
	}
}

func ServeOpenAPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, OpenAPIDocument())
}
