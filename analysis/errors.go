// ABOUTME: Error taxonomy for reasoning analysis: provider failures, undecodable model output, and sentinels.
// ABOUTME: Retryability is carried by an IsRetryable method that the retry policy consults.

package analysis

import (
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// UserMessage is the text hosts show when an analysis fails for any reason.
const UserMessage = "Failed to analyze reasoning. Please check your API Key and try again."

var (
	// ErrBlankInput is returned when the text to analyze is empty or whitespace.
	ErrBlankInput = errors.New("analysis: input text is blank")

	// ErrMissingAPIKey is returned when no API key is configured for a provider.
	ErrMissingAPIKey = errors.New("analysis: API key is missing")

	// ErrEmptyResponse is returned when the model answers with no text.
	ErrEmptyResponse = errors.New("analysis: empty response from model")

	// ErrCircuitOpen is returned while the provider circuit breaker is open.
	ErrCircuitOpen = errors.New("analysis: provider temporarily unavailable")
)

// ProviderError is a failure reported by the model provider.
type ProviderError struct {
	Provider   string
	StatusCode int
	Message    string
	Retryable  bool
	// RetryAfter is the provider's suggested wait in seconds, when it sent one.
	RetryAfter *float64
	Cause      error
}

func (e *ProviderError) Error() string {
	msg := e.Provider + ": " + e.Message
	if e.StatusCode != 0 {
		msg = fmt.Sprintf("%s (status %d)", msg, e.StatusCode)
	}
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	return msg
}

func (e *ProviderError) Unwrap() error { return e.Cause }

// IsRetryable reports whether the call may succeed if repeated.
func (e *ProviderError) IsRetryable() bool { return e.Retryable }

// DecodeError means the model answered but the answer was not a usable
// analysis: malformed JSON, or JSON that failed validation.
type DecodeError struct {
	Raw   string
	Cause error
}

func (e *DecodeError) Error() string {
	return "analysis: decoding model output: " + e.Cause.Error()
}

func (e *DecodeError) Unwrap() error { return e.Cause }

// IsRetryable is true: a fresh sample is often well formed.
func (e *DecodeError) IsRetryable() bool { return true }

// retryableStatus reports whether an HTTP status code is worth retrying.
func retryableStatus(code int) bool {
	switch code {
	case http.StatusRequestTimeout, http.StatusTooManyRequests,
		http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return true
	}
	return false
}

// classifyMessage builds a ProviderError from an SDK error whose only
// structure is its message. Status codes are detected the way the SDKs print
// them.
func classifyMessage(provider string, err error) *ProviderError {
	msg := strings.ToLower(err.Error())
	pe := &ProviderError{Provider: provider, Message: "request failed", Cause: err}
	for _, code := range []int{400, 401, 403, 404, 408, 429, 500, 502, 503, 504} {
		if strings.Contains(msg, fmt.Sprintf("%d", code)) {
			pe.StatusCode = code
			break
		}
	}
	switch {
	case pe.StatusCode != 0:
		pe.Retryable = retryableStatus(pe.StatusCode)
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "resource_exhausted"),
		strings.Contains(msg, "unavailable"), strings.Contains(msg, "timeout"),
		strings.Contains(msg, "connection reset"):
		pe.Retryable = true
	}
	if pe.StatusCode == http.StatusUnauthorized || pe.StatusCode == http.StatusForbidden ||
		strings.Contains(msg, "api key") || strings.Contains(msg, "api_key") {
		pe.Message = "authentication failed"
		pe.Retryable = false
	}
	return pe
}
