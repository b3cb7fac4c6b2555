package apperr

import (
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// Code identifies a category of failure surfaced by the triage pipeline.
type Code string

const (
	CodeProviderUnavailable Code = "PROVIDER_UNAVAILABLE" // 503
	CodeProviderError       Code = "PROVIDER_ERROR"       // 502
	CodeTimeout             Code = "TIMEOUT"              // 504
	CodeTrackerError        Code = "TRACKER_ERROR"        // 502
	CodeNoWorkingEndpoint   Code = "NO_WORKING_ENDPOINT"  // 502
	CodeNoSpaceAvailable    Code = "NO_SPACE_AVAILABLE"   // 404
	CodeInvalidRequest      Code = "INVALID_REQUEST"      // 400
	CodeInternal            Code = "INTERNAL"             // 500
)

// Error is a structured failure with a code, an HTTP status and details.
type Error struct {
	Code    Code
	Status  int
	Message string
	Details map[string]any
	Err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func NewProviderUnavailable() *Error {
	return &Error{
		Code:    CodeProviderUnavailable,
		Status:  503,
		Message: "AI provider is not configured",
	}
}

// NewProviderError wraps a failure returned by the AI provider.
// category is one of the ai categories (auth, rate_limit, provider_error).
func NewProviderError(category string, err error) *Error {
	msg := "AI provider request failed"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    CodeProviderError,
		Status:  502,
		Message: msg,
		Details: map[string]any{"category": category},
		Err:     err,
	}
}

func NewTimeout(after time.Duration) *Error {
	return &Error{
		Code:    CodeTimeout,
		Status:  504,
		Message: fmt.Sprintf("request timeout after %dms", after.Milliseconds()),
		Details: map[string]any{"timeout_ms": after.Milliseconds()},
	}
}

// NewTracker builds a tracker rejection. The message is the tracker's own
// errorMessages joined with ", ", falling back to field errors.
func NewTracker(status int, messages []string, fieldErrors map[string]string) *Error {
	msg := strings.Join(messages, ", ")
	if msg == "" && len(fieldErrors) > 0 {
		parts := make([]string, 0, len(fieldErrors))
		for _, k := range sortedKeys(fieldErrors) {
			parts = append(parts, fmt.Sprintf("%s: %s", k, fieldErrors[k]))
		}
		msg = strings.Join(parts, ", ")
	}
	if msg == "" {
		msg = fmt.Sprintf("tracker returned status %d", status)
	}
	return &Error{
		Code:    CodeTrackerError,
		Status:  502,
		Message: msg,
		Details: map[string]any{
			"status":         status,
			"error_messages": messages,
			"errors":         fieldErrors,
		},
	}
}

func NewNoWorkingEndpoint(tried []string, last string) *Error {
	msg := fmt.Sprintf("no working endpoint among %d candidates", len(tried))
	if last != "" {
		msg += ": " + last
	}
	return &Error{
		Code:    CodeNoWorkingEndpoint,
		Status:  502,
		Message: msg,
		Details: map[string]any{"endpoints": tried},
	}
}

func NewNoSpaceAvailable(reason string) *Error {
	return &Error{
		Code:    CodeNoSpaceAvailable,
		Status:  404,
		Message: "no content space available: " + reason,
	}
}

func NewInvalidRequest(msg string) *Error {
	return &Error{
		Code:    CodeInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

func NewInternal(err error) *Error {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &Error{
		Code:    CodeInternal,
		Status:  500,
		Message: msg,
		Err:     err,
	}
}

// Is reports whether err, or anything it wraps, is an *Error with the given code.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// As returns the first *Error in err's chain.
func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
