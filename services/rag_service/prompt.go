package rag_service

import (
	"fmt"
	"strings"
	"text/template"

	"github.com/serisow/docanalyzer/rag_type"
)

// DefaultQuery is used when the caller does not supply a question.
const DefaultQuery = "Analyze this document and provide a JSON summary of its key information."

const analysisTemplate = `
INSTRUCTIONS:

You are a task-specific domain agent. Analyze the content of the provided document and formulate a response in JSON format.

Context:
{{.Context}}

User Query:
{{.Question}}

Provide your answer as a valid JSON object:
AI: Let's think step by step:
`

var promptTemplate = template.Must(template.New("analysis").Parse(analysisTemplate))

type promptData struct {
	Context  string
	Question string
}

// RenderPrompt fills the analysis instructions with the retrieved context and the question.
func RenderPrompt(context, question string) (string, error) {
	var sb strings.Builder
	if err := promptTemplate.Execute(&sb, promptData{Context: context, Question: question}); err != nil {
		return "", fmt.Errorf("failed to render prompt: %w", err)
	}
	return sb.String(), nil
}

// JoinContext concatenates retrieved chunk texts, best match first, separated by a blank line.
func JoinContext(chunks []rag_type.ScoredChunk) string {
	parts := make([]string, len(chunks))
	for i, c := range chunks {
		parts[i] = c.Chunk.Content
	}
	return strings.Join(parts, "\n\n")
}
