// Package tracker talks to the issue tracker: issue creation, comments and
// labels.
package tracker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kbtriage/backend/internal/apperr"
	"github.com/kbtriage/backend/internal/triage"
)

type IssueRequest struct {
	Project     string
	Title       string
	Description triage.Node
	IssueType   string
	Priority    string
}

type IssueCreated struct {
	Key string `json:"key"`
	ID  string `json:"id"`
}

// Tracker is the issue-tracker capability. Rejections come back as
// apperr CodeTrackerError carrying the tracker's own messages.
type Tracker interface {
	CreateIssue(ctx context.Context, req IssueRequest) (IssueCreated, error)
	AddComment(ctx context.Context, key string, body triage.Node) error
	UpdateLabels(ctx context.Context, key string, add []string) error
}

type JiraClient struct {
	BaseURL string
	Email   string
	Token   string
	HTTP    *http.Client
}

func NewJiraClient(baseURL, email, token string) *JiraClient {
	return &JiraClient{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Email:   email,
		Token:   token,
		HTTP:    &http.Client{Timeout: 20 * time.Second},
	}
}

type issueFields struct {
	Project     keyRef      `json:"project"`
	Summary     string      `json:"summary"`
	Description triage.Node `json:"description"`
	IssueType   nameRef     `json:"issuetype"`
	Priority    *nameRef    `json:"priority,omitempty"`
}

type keyRef struct {
	Key string `json:"key"`
}

type nameRef struct {
	Name string `json:"name"`
}

func (c *JiraClient) CreateIssue(ctx context.Context, req IssueRequest) (IssueCreated, error) {
	fields := issueFields{
		Project:     keyRef{Key: req.Project},
		Summary:     req.Title,
		Description: req.Description,
		IssueType:   nameRef{Name: req.IssueType},
	}
	if req.Priority != "" {
		fields.Priority = &nameRef{Name: req.Priority}
	}

	var out IssueCreated
	if err := c.do(ctx, http.MethodPost, "/rest/api/3/issue", map[string]any{"fields": fields}, &out); err != nil {
		return IssueCreated{}, err
	}
	if out.Key == "" {
		return IssueCreated{}, fmt.Errorf("tracker response missing issue key")
	}
	return out, nil
}

func (c *JiraClient) AddComment(ctx context.Context, key string, body triage.Node) error {
	path := "/rest/api/3/issue/" + url.PathEscape(key) + "/comment"
	return c.do(ctx, http.MethodPost, path, map[string]any{"body": body}, nil)
}

func (c *JiraClient) UpdateLabels(ctx context.Context, key string, add []string) error {
	ops := make([]map[string]string, 0, len(add))
	for _, l := range add {
		ops = append(ops, map[string]string{"add": l})
	}
	payload := map[string]any{"update": map[string]any{"labels": ops}}
	return c.do(ctx, http.MethodPut, "/rest/api/3/issue/"+url.PathEscape(key), payload, nil)
}

type rejection struct {
	ErrorMessages []string          `json:"errorMessages"`
	Errors        map[string]string `json:"errors"`
}

func (c *JiraClient) do(ctx context.Context, method, path string, payload any, out any) error {
	b, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	if c.Token != "" {
		req.SetBasicAuth(c.Email, c.Token)
	}

	client := c.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("tracker request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read tracker response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var rej rejection
		if err := json.Unmarshal(raw, &rej); err != nil || (len(rej.ErrorMessages) == 0 && len(rej.Errors) == 0) {
			if body := strings.TrimSpace(string(raw)); body != "" {
				rej.ErrorMessages = []string{body}
			}
		}
		return apperr.NewTracker(resp.StatusCode, rej.ErrorMessages, rej.Errors)
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode tracker response: %w", err)
	}
	return nil
}
