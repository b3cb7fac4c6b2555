// Package content is the raw transport to the knowledge-base platform.
package content

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/kbtriage/backend/internal/probe"
)

const maxBodyBytes = 1 << 20

// Transport performs one request against the content platform. Non-2xx
// responses are returned, not turned into errors; errors mean the call
// itself failed.
type Transport interface {
	Do(ctx context.Context, ep probe.Endpoint, payload any) (*probe.Response, error)
}

type Client struct {
	BaseURL string
	Email   string
	Token   string
	HTTP    *http.Client
}

func NewClient(baseURL, email, token string) *Client {
	return &Client{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Email:   email,
		Token:   token,
		HTTP:    &http.Client{Timeout: 20 * time.Second},
	}
}

func (c *Client) Do(ctx context.Context, ep probe.Endpoint, payload any) (*probe.Response, error) {
	method := ep.Method
	if method == "" {
		method = http.MethodGet
	}

	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("marshal payload: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+ep.Path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != "" {
		req.SetBasicAuth(c.Email, c.Token)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("content request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	return &probe.Response{Endpoint: ep, Status: resp.StatusCode, Body: raw}, nil
}

// ErrorDetail pulls the most specific message out of an error body.
func ErrorDetail(body []byte) string {
	var m map[string]any
	if err := json.Unmarshal(body, &m); err != nil {
		return strings.TrimSpace(string(body))
	}
	if s := str(m["message"]); s != "" {
		return s
	}
	if errs, ok := m["errors"].([]any); ok && len(errs) > 0 {
		if first, ok := errs[0].(map[string]any); ok {
			if s := str(first["message"]); s != "" {
				return s
			}
			if d, ok := first["detail"].(map[string]any); ok {
				if s := str(d["message"]); s != "" {
					return s
				}
			}
		}
	}
	if s := str(m["detail"]); s != "" {
		return s
	}
	if s := str(m["reason"]); s != "" {
		return s
	}
	return strings.TrimSpace(string(body))
}

func str(v any) string {
	s, _ := v.(string)
	return s
}
