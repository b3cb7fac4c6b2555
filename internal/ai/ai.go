package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/kbtriage/backend/internal/apperr"
)

// Provider is the generative backend: one prompt in, one text out, no
// conversation state.
type Provider interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// Category groups provider failures into user-facing message buckets.
type Category string

const (
	CategoryNone        Category = ""
	CategoryTimeout     Category = "timeout"
	CategoryAuth        Category = "auth"
	CategoryRateLimit   Category = "rate_limit"
	CategoryUnavailable Category = "unavailable"
	CategoryProvider    Category = "provider_error"
)

// StatusError is a non-2xx answer from a provider.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("provider http error: %d", e.StatusCode)
	}
	return fmt.Sprintf("provider http error: %d: %s", e.StatusCode, e.Message)
}

// Classify maps an error from the AI path onto a Category.
func Classify(err error) Category {
	if err == nil {
		return CategoryNone
	}
	if apperr.Is(err, apperr.CodeTimeout) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryTimeout
	}
	if apperr.Is(err, apperr.CodeProviderUnavailable) {
		return CategoryUnavailable
	}
	var rl RateLimitError
	if errors.As(err, &rl) {
		return CategoryRateLimit
	}
	var se StatusError
	if errors.As(err, &se) {
		switch se.StatusCode {
		case http.StatusUnauthorized, http.StatusForbidden:
			return CategoryAuth
		case http.StatusTooManyRequests:
			return CategoryRateLimit
		}
	}
	return CategoryProvider
}

// UserMessage is the human-readable text shown for a category.
func UserMessage(c Category) string {
	switch c {
	case CategoryTimeout:
		return "Request timed out. The service might be slow. Please try again in a moment."
	case CategoryAuth:
		return "Authentication issue. Please check your API configuration."
	case CategoryRateLimit:
		return "Service is busy. Please wait a moment before trying again."
	case CategoryUnavailable:
		return "The AI provider is not configured. Replies come from the built-in assistant."
	case CategoryNone:
		return ""
	default:
		return "I apologize, but I'm having trouble processing your request right now. Please try again."
	}
}
