package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// HTTPProvider talks to a plain JSON generation service:
// POST {BaseURL}/generate {"prompt": "..."} -> {"text": "..."}.
type HTTPProvider struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
}

type generateRequest struct {
	Prompt string `json:"prompt"`
}

type generateResponse struct {
	Text string `json:"text"`
}

func (h HTTPProvider) Generate(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(h.BaseURL) == "" {
		return "", errors.New("AI_URL is not set")
	}
	if h.Client == nil {
		h.Client = &http.Client{Timeout: 15 * time.Second}
	}

	b, err := json.Marshal(generateRequest{Prompt: prompt})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}
	url := strings.TrimRight(h.BaseURL, "/") + "/generate"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	if strings.TrimSpace(h.APIKey) != "" {
		req.Header.Set("Authorization", "Bearer "+h.APIKey)
	}

	resp, err := h.Client.Do(req)
	if err != nil {
		return "", fmt.Errorf("ai request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		var errBody map[string]any
		_ = json.Unmarshal(raw, &errBody)
		if resp.StatusCode == http.StatusTooManyRequests {
			d := extractRetryAfter(errBody)
			if d == 0 {
				d = retryAfterHeader(resp.Header.Get("Retry-After"))
			}
			return "", RateLimitError{RetryAfter: d}
		}
		return "", StatusError{StatusCode: resp.StatusCode, Message: strings.TrimSpace(string(raw))}
	}

	var r generateResponse
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return "", fmt.Errorf("decode ai response: %w", err)
	}
	if strings.TrimSpace(r.Text) == "" {
		return "", errors.New("empty ai response")
	}
	return r.Text, nil
}
