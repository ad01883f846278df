package llm_service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultOpenAIBaseURL = "https://api.openai.com/v1"
	DefaultChatModel     = "gpt-4"
)

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	// MaxAttempts bounds the calls made for one prompt. 1 means fail fast.
	MaxAttempts int
	RetryDelay  time.Duration
	Timeout     time.Duration
}

type OpenAIService struct {
	config     OpenAIConfig
	httpClient *http.Client
	logger     *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	Stream      bool          `json:"stream"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content *string `json:"content"`
		} `json:"message"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
}

func NewOpenAIService(config OpenAIConfig, logger *slog.Logger) *OpenAIService {
	if config.BaseURL == "" {
		config.BaseURL = DefaultOpenAIBaseURL
	}
	if config.Model == "" {
		config.Model = DefaultChatModel
	}
	if config.MaxAttempts < 1 {
		config.MaxAttempts = 1
	}
	if config.RetryDelay == 0 {
		config.RetryDelay = 5 * time.Second
	}
	if config.Timeout == 0 {
		config.Timeout = 120 * time.Second
	}
	return &OpenAIService{
		config:     config,
		httpClient: &http.Client{Timeout: config.Timeout},
		logger:     logger,
	}
}

func (s *OpenAIService) CallLLM(ctx context.Context, prompt string) (string, error) {
	maxAttempts := s.config.MaxAttempts

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		response, err := s.callOpenAI(ctx, prompt)
		if err == nil {
			return response, nil
		}

		var httpErr *OpenAIHttpError
		if errors.As(err, &httpErr) {
			if httpErr.IsQuotaExceeded() {
				s.logger.Error("OpenAI API quota exceeded",
					slog.String("error_type", httpErr.ErrorType),
					slog.String("error_message", httpErr.Message),
					slog.String("model", s.config.Model))
				return "", fmt.Errorf("OpenAI quota exceeded: %w", httpErr)
			}

			s.logger.Error("OpenAI API error",
				slog.Int("attempt", attempt),
				slog.Int("status_code", httpErr.StatusCode),
				slog.String("error_type", httpErr.ErrorType),
				slog.String("error_message", httpErr.Message))
		}

		if attempt == maxAttempts || ctx.Err() != nil {
			if maxAttempts == 1 {
				return "", err
			}
			return "", fmt.Errorf("failed to call OpenAI API after %d attempts: %w", attempt, err)
		}

		s.logger.Warn("Attempt failed, retrying",
			slog.Int("attempt", attempt),
			slog.Duration("retry_delay", s.config.RetryDelay),
			slog.String("error", err.Error()))

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(s.config.RetryDelay):
		}
	}

	return "", fmt.Errorf("failed to call OpenAI API after exhausting all retry attempts")
}

func (s *OpenAIService) callOpenAI(ctx context.Context, prompt string) (string, error) {
	if s.config.APIKey == "" {
		return "", fmt.Errorf("OPENAI_API_KEY not set")
	}

	requestBody, err := json.Marshal(chatRequest{
		Model:       s.config.Model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("error marshaling request body: %w", err)
	}

	url := strings.TrimRight(s.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(requestBody))
	if err != nil {
		return "", fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("error making request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", NewOpenAIHttpError(resp)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("error reading response body: %w", err)
	}

	var result chatResponse
	if err := json.Unmarshal(body, &result); err != nil {
		return "", fmt.Errorf("error unmarshaling response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("unexpected response format from OpenAI API")
	}
	content := result.Choices[0].Message.Content
	if content == nil {
		return "", fmt.Errorf("content not found in OpenAI API response")
	}

	s.logger.Debug("OpenAI completion received",
		slog.String("model", s.config.Model),
		slog.String("finish_reason", result.Choices[0].FinishReason),
		slog.Int("content_length", len(*content)))

	return *content, nil
}
