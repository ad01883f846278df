package llm_service

import (
	"context"
)

type MockLLMService struct {
	CallLLMFunc func(ctx context.Context, prompt string) (string, error)
	Prompts     []string
}

func (m *MockLLMService) CallLLM(ctx context.Context, prompt string) (string, error) {
	m.Prompts = append(m.Prompts, prompt)
	if m.CallLLMFunc != nil {
		return m.CallLLMFunc(ctx, prompt)
	}
	return `{"summary": "mock response"}`, nil
}
