package dto

import (
	"fmt"
	"time"

	"citizen-portal-be/internal/entity"
	"citizen-portal-be/pkg/llm"
)

// ChatRequest is the body of POST /chat after type checks.
type ChatRequest struct {
	Message           string                       `json:"message" validate:"required,max=1000"`
	History           []entity.ConversationMessage `json:"history,omitempty"`
	DepartmentContext []entity.DepartmentRecord    `json:"departmentContext,omitempty" validate:"dive"`
}

type RateLimitStatus struct {
	RequestsUsed      int `json:"requestsUsed"`
	RequestsRemaining int `json:"requestsRemaining"`
	WindowResetIn     int `json:"windowResetIn"`
}

type ChatResponse struct {
	Success    bool            `json:"success"`
	Response   string          `json:"response"`
	TokensUsed llm.TokenUsage  `json:"tokensUsed"`
	RateLimit  RateLimitStatus `json:"rateLimit"`
}

type StatusResponse struct {
	Available bool            `json:"available"`
	Model     string          `json:"model"`
	RateLimit RateLimitStatus `json:"rateLimit"`
}

type HealthResponse struct {
	Status    string `json:"status"`
	Service   string `json:"service"`
	Timestamp string `json:"timestamp"`
}

// ErrorResponse is the body of every failed chat request.
type ErrorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	RetryAfter *int   `json:"retryAfter,omitempty"`
	Fallback   bool   `json:"fallback,omitempty"`
}

// --- Chat Error Types ---

// ChatErrorKind enumerates the ways a chat request can end early.
type ChatErrorKind string

const (
	ErrInvalidInput       ChatErrorKind = "invalid_input"
	ErrClientThrottled    ChatErrorKind = "client_throttled"
	ErrQuotaExceeded      ChatErrorKind = "quota_exceeded"
	ErrUpstreamRateLimit  ChatErrorKind = "upstream_rate_limited"
	ErrServiceUnavailable ChatErrorKind = "service_unavailable"
	ErrConfiguration      ChatErrorKind = "configuration_error"
	ErrCompletionFailed   ChatErrorKind = "completion_failed"
)

// ChatError is returned by the chat pipeline for every early exit. Message is safe to show
// to citizens; the underlying cause, if any, is only for logs.
type ChatError struct {
	Kind       ChatErrorKind
	Message    string
	RetryAfter time.Duration
	Cause      error
}

func (e *ChatError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ChatError) Unwrap() error {
	return e.Cause
}

// StatusCode maps the error kind to its HTTP status.
func (e *ChatError) StatusCode() int {
	switch e.Kind {
	case ErrInvalidInput:
		return 400
	case ErrClientThrottled, ErrQuotaExceeded, ErrUpstreamRateLimit:
		return 429
	case ErrServiceUnavailable:
		return 503
	default:
		return 500
	}
}

// Fallback tells the widget to show its offline help instead of a bot answer.
func (e *ChatError) Fallback() bool {
	return e.Kind != ErrInvalidInput
}

func NewInvalidInputError(message string) *ChatError {
	return &ChatError{Kind: ErrInvalidInput, Message: message}
}
