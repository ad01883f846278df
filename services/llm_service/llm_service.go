package llm_service

import "context"

// LLMService turns a filled prompt into the model's raw text answer.
type LLMService interface {
	CallLLM(ctx context.Context, prompt string) (string, error)
}
