package apperr

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestError_Error(t *testing.T) {
	err := &Error{Code: CodeTimeout, Status: 504, Message: "request timeout after 8000ms"}
	assert.Equal(t, "TIMEOUT: request timeout after 8000ms", err.Error())
}

func TestNewTracker_JoinsErrorMessages(t *testing.T) {
	err := NewTracker(400, []string{"project is invalid", "summary is required"}, nil)
	assert.Equal(t, CodeTrackerError, err.Code)
	assert.Equal(t, "project is invalid, summary is required", err.Message)
	assert.Equal(t, 400, err.Details["status"])
}

func TestNewTracker_FieldErrorsSorted(t *testing.T) {
	err := NewTracker(400, nil, map[string]string{"project": "valid project is required", "issuetype": "required"})
	assert.Equal(t, "issuetype: required, project: valid project is required", err.Message)
}

func TestNewTracker_StatusOnly(t *testing.T) {
	err := NewTracker(500, nil, nil)
	assert.Equal(t, "tracker returned status 500", err.Message)
}

func TestNewTimeout(t *testing.T) {
	err := NewTimeout(8 * time.Second)
	assert.Equal(t, 504, err.Status)
	assert.Contains(t, err.Message, "8000ms")
}

func TestIs_Wrapped(t *testing.T) {
	wrapped := fmt.Errorf("resolve space: %w", NewNoSpaceAvailable("empty list"))
	require.True(t, Is(wrapped, CodeNoSpaceAvailable))
	assert.False(t, Is(wrapped, CodeTimeout))
	assert.False(t, Is(fmt.Errorf("plain"), CodeInternal))

	e, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, 404, e.Status)
}

func TestNewInternal_NilError(t *testing.T) {
	assert.Equal(t, "internal error", NewInternal(nil).Message)
}
