package probe

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbtriage/backend/internal/apperr"
)

type scripted map[string]func() (*Response, error)

func (s scripted) do(calls *[]string) DoFunc {
	return func(_ context.Context, ep Endpoint) (*Response, error) {
		*calls = append(*calls, ep.Path)
		return s[ep.Path]()
	}
}

func TestProbeStopsAtFirstSuccess(t *testing.T) {
	var calls []string
	s := scripted{
		"/e1": func() (*Response, error) { return &Response{Status: http.StatusServiceUnavailable}, nil },
		"/e2": func() (*Response, error) { return &Response{Status: http.StatusOK, Body: []byte(`{"ok":true}`)}, nil },
		"/e3": func() (*Response, error) { t.Fatal("e3 must not be called"); return nil, nil },
	}

	resp, trail, err := Probe(context.Background(), Get("/e1", "/e2", "/e3"), s.do(&calls), nil)
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
	assert.Equal(t, "/e2", resp.Endpoint.Path)
	assert.Equal(t, []string{"/e1", "/e2"}, calls)

	require.Len(t, trail, 2)
	assert.False(t, trail[0].Success)
	assert.Equal(t, 503, trail[0].Status)
	assert.Equal(t, "GET /e1", trail[0].Endpoint)
	assert.True(t, trail[1].Success)
	assert.Equal(t, 200, trail[1].Status)
}

func TestProbeTransportErrorDoesNotAbort(t *testing.T) {
	var calls []string
	s := scripted{
		"/a": func() (*Response, error) { return nil, errors.New("connection refused") },
		"/b": func() (*Response, error) { return &Response{Status: http.StatusCreated}, nil },
	}

	resp, trail, err := Probe(context.Background(), Post("/a", "/b"), s.do(&calls), nil)
	require.NoError(t, err)
	assert.Equal(t, http.StatusCreated, resp.Status)
	require.Len(t, trail, 2)
	assert.Equal(t, "connection refused", trail[0].Error)
	assert.Zero(t, trail[0].Status)
	assert.Equal(t, "POST /a", trail[0].Endpoint)
}

func TestProbeAllFail(t *testing.T) {
	var calls []string
	s := scripted{
		"/a": func() (*Response, error) { return &Response{Status: 404, Body: []byte("not here")}, nil },
		"/b": func() (*Response, error) { return nil, errors.New("timeout") },
	}
	detail := func(b []byte) string { return string(b) }

	resp, trail, err := Probe(context.Background(), Get("/a", "/b"), s.do(&calls), detail)
	require.Error(t, err)
	assert.Nil(t, resp)
	assert.True(t, apperr.Is(err, apperr.CodeNoWorkingEndpoint))
	assert.Contains(t, err.Error(), "GET /b: timeout")

	require.Len(t, trail, 2)
	assert.Equal(t, "status 404: not here", trail[0].Error)
	assert.Equal(t, "timeout", trail[1].Error)
}

func TestProbeEmptyList(t *testing.T) {
	_, trail, err := Probe(context.Background(), nil, func(context.Context, Endpoint) (*Response, error) {
		t.Fatal("no calls expected")
		return nil, nil
	}, nil)
	require.Error(t, err)
	assert.Empty(t, trail)
	assert.True(t, apperr.Is(err, apperr.CodeNoWorkingEndpoint))
}

func TestProbeCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, trail, err := Probe(ctx, Get("/a"), func(context.Context, Endpoint) (*Response, error) {
		t.Fatal("no calls expected")
		return nil, nil
	}, nil)
	require.Error(t, err)
	assert.Empty(t, trail)
}
