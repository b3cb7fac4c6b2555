package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

// OpenAIProvider calls any OpenAI-compatible chat completions endpoint
// (Gemini exposes one). The SDK's own retries are disabled: a failed call
// goes straight to the rule-based fallback.
type OpenAIProvider struct {
	client openai.Client
	model  string
}

func NewOpenAIProvider(apiKey, baseURL, model string, httpClient *http.Client) (*OpenAIProvider, error) {
	if strings.TrimSpace(apiKey) == "" {
		return nil, errors.New("ai api key missing")
	}
	if strings.TrimSpace(model) == "" {
		return nil, errors.New("ai model is required")
	}
	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
		option.WithRequestTimeout(DefaultCallLimit),
	}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(baseURL))
	}
	if httpClient != nil {
		opts = append(opts, option.WithHTTPClient(httpClient))
	}
	return &OpenAIProvider{client: openai.NewClient(opts...), model: model}, nil
}

func (p *OpenAIProvider) Generate(ctx context.Context, prompt string) (string, error) {
	resp, err := p.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(p.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		return "", normalizeOpenAIError(err)
	}
	if len(resp.Choices) == 0 {
		return "", errors.New("openai: empty choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return "", errors.New("openai: empty message content")
	}
	return text, nil
}

func normalizeOpenAIError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("openai request: %w", err)
	}
	if apiErr.StatusCode == http.StatusTooManyRequests {
		var d time.Duration
		if apiErr.Response != nil {
			d = retryAfterHeader(apiErr.Response.Header.Get("Retry-After"))
		}
		return RateLimitError{RetryAfter: d}
	}
	return StatusError{StatusCode: apiErr.StatusCode, Message: apiErr.Message}
}
