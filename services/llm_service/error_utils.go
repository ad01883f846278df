package llm_service

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
)

// OpenAIError represents the error structure returned by OpenAI API
type OpenAIError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    any    `json:"code"`
	} `json:"error"`
}

type OpenAIHttpError struct {
	StatusCode int
	Message    string
	ErrorType  string
	RawBody    string
}

func (e *OpenAIHttpError) Error() string {
	return fmt.Sprintf("OpenAI API error (HTTP %d): %s (Type: %s)", e.StatusCode, e.Message, e.ErrorType)
}

// IsQuotaExceeded reports a 429, which is never worth retrying.
func (e *OpenAIHttpError) IsQuotaExceeded() bool {
	return e.StatusCode == http.StatusTooManyRequests
}

// NewOpenAIHttpError builds an error from a non-200 response, consuming its body.
func NewOpenAIHttpError(resp *http.Response) *OpenAIHttpError {
	rawBody, openAIErr := extractOpenAIErrorDetails(resp)
	httpErr := &OpenAIHttpError{
		StatusCode: resp.StatusCode,
		RawBody:    rawBody,
		Message:    "Unknown error",
		ErrorType:  "unknown",
	}
	if openAIErr != nil {
		httpErr.Message = openAIErr.Error.Message
		httpErr.ErrorType = openAIErr.Error.Type
	}
	return httpErr
}

// extractOpenAIErrorDetails extracts error information from OpenAI API responses
func extractOpenAIErrorDetails(resp *http.Response) (string, *OpenAIError) {
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", nil
	}

	var openAIErr OpenAIError
	if err := json.Unmarshal(body, &openAIErr); err == nil && openAIErr.Error.Message != "" {
		return string(body), &openAIErr
	}

	return string(body), nil
}
