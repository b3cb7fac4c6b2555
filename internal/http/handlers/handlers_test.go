package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbtriage/backend/internal/ai"
	"github.com/kbtriage/backend/internal/apperr"
	"github.com/kbtriage/backend/internal/models"
	"github.com/kbtriage/backend/internal/service"
	"github.com/kbtriage/backend/internal/tracker"
	"github.com/kbtriage/backend/internal/triage"
)

type stubProvider struct {
	text    string
	err     error
	release chan struct{}
}

func (s stubProvider) Generate(ctx context.Context, _ string) (string, error) {
	if s.release != nil {
		<-s.release
	}
	return s.text, s.err
}

type stubTracker struct {
	createErr error
	comments  int
}

func (s *stubTracker) CreateIssue(_ context.Context, req tracker.IssueRequest) (tracker.IssueCreated, error) {
	if s.createErr != nil {
		return tracker.IssueCreated{}, s.createErr
	}
	return tracker.IssueCreated{Key: req.Project + "-42", ID: "42"}, nil
}

func (s *stubTracker) AddComment(context.Context, string, triage.Node) error {
	s.comments++
	return nil
}

func (s *stubTracker) UpdateLabels(context.Context, string, []string) error { return nil }

type stubAudit struct {
	pingErr error
	items   []models.PublishRecord
	limit   int
}

func (s *stubAudit) Ping(context.Context) error { return s.pingErr }

func (s *stubAudit) ListPublishes(_ context.Context, limit int) ([]models.PublishRecord, error) {
	s.limit = limit
	return s.items, nil
}

func newHandler(p ai.Provider, tr *stubTracker) *Handler {
	logger := zerolog.Nop()
	return &Handler{
		Responder:    ai.NewResponder(p, time.Second, logger),
		Tickets:      &service.TicketService{Tracker: tr, SiteURL: "https://acme.atlassian.net", Logger: logger},
		Publisher:    &service.Publisher{Tracker: tr, SiteURL: "https://acme.atlassian.net", Logger: logger},
		Connectivity: &service.Connectivity{Logger: logger},
		Validator:    validator.New(),
		Logger:       logger,
	}
}

func newEngine(h *Handler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/healthz", h.Healthz)
	r.GET("/api/welcome", h.Welcome)
	r.POST("/api/chat", h.Chat)
	r.POST("/api/tickets", h.CreateTicket)
	r.POST("/api/knowledge/publish", h.Publish)
	r.GET("/api/knowledge/connectivity", h.ConnectivityCheck)
	r.GET("/api/publishes", h.PublishesList)
	return r
}

func do(r *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

type errorBody struct {
	Error struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

func TestChatProviderReply(t *testing.T) {
	r := newEngine(newHandler(stubProvider{text: "Issue Summary: disk full\nNext Steps: escalate"}, &stubTracker{}))

	w := do(r, http.MethodPost, "/api/chat", `{"text":"the disk is full"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ai.SourceProvider, resp.Source)
	assert.Equal(t, models.RoleAssistant, resp.Turn.Role)
	assert.Equal(t, "Issue Summary: disk full\nNext Steps: escalate", resp.Turn.Text)
	assert.Empty(t, resp.Notice)
	_, err := uuid.Parse(resp.Turn.ID)
	assert.NoError(t, err)
}

func TestChatAuthFailureFallsBackWithNotice(t *testing.T) {
	r := newEngine(newHandler(stubProvider{err: ai.StatusError{StatusCode: http.StatusUnauthorized, Message: "bad key"}}, &stubTracker{}))

	w := do(r, http.MethodPost, "/api/chat", `{"text":"hello there"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp ChatResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, ai.SourceFallback, resp.Source)
	assert.Equal(t, ai.GreetingReply, resp.Turn.Text)
	assert.Equal(t, ai.UserMessage(ai.CategoryAuth), resp.Notice)
}

func TestChatTimeout(t *testing.T) {
	release := make(chan struct{})
	t.Cleanup(func() { close(release) })

	h := newHandler(stubProvider{text: "late", release: release}, &stubTracker{})
	h.Responder.Timeout = 30 * time.Millisecond
	r := newEngine(h)

	w := do(r, http.MethodPost, "/api/chat", `{"text":"anything"}`)
	require.Equal(t, http.StatusGatewayTimeout, w.Code)

	var body errorBody
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "TIMEOUT", body.Error.Code)
	assert.Equal(t, ai.UserMessage(ai.CategoryTimeout), body.Error.Message)
}

func TestChatValidation(t *testing.T) {
	r := newEngine(newHandler(nil, &stubTracker{}))

	w := do(r, http.MethodPost, "/api/chat", `{"text":""}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "VALIDATION_ERROR")

	w = do(r, http.MethodPost, "/api/chat", `{not json`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_REQUEST")
}

func TestCreateTicket(t *testing.T) {
	r := newEngine(newHandler(nil, &stubTracker{}))

	w := do(r, http.MethodPost, "/api/tickets", `{"text":"Issue Summary: vpn drops","project_key":"NET"}`)
	require.Equal(t, http.StatusCreated, w.Code)

	var res models.TicketResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, "Ticket NET-42 created successfully!", res.Message)
	assert.Equal(t, "https://acme.atlassian.net/browse/NET-42", res.Ticket.URL)
}

func TestCreateTicketRejected(t *testing.T) {
	tr := &stubTracker{createErr: apperr.NewTracker(400, []string{"project does not exist"}, nil)}
	r := newEngine(newHandler(nil, tr))

	w := do(r, http.MethodPost, "/api/tickets", `{"text":"x","project_key":"NOPE"}`)
	require.Equal(t, http.StatusBadGateway, w.Code)

	var res models.TicketResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.False(t, res.Success)
	assert.Equal(t, "Failed to create ticket: project does not exist", res.Message)
}

func TestCreateTicketBlankProject(t *testing.T) {
	r := newEngine(newHandler(nil, &stubTracker{}))
	w := do(r, http.MethodPost, "/api/tickets", `{"text":"x","project_key":"   "}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestPublishFallsBackToTicket(t *testing.T) {
	tr := &stubTracker{}
	r := newEngine(newHandler(nil, tr))

	body := `{"ticket":{"key":"OPS-1","url":"https://acme.atlassian.net/browse/OPS-1"},"text":"Issue Summary: disk full","project_key":"OPS"}`
	w := do(r, http.MethodPost, "/api/knowledge/publish", body)
	require.Equal(t, http.StatusOK, w.Code)

	var res models.PublishResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &res))
	assert.True(t, res.Success)
	assert.Equal(t, models.StrategyTicketFallback, res.StrategyUsed)
	assert.Equal(t, 1, tr.comments)
}

func TestPublishRequiresTicketKey(t *testing.T) {
	r := newEngine(newHandler(nil, &stubTracker{}))
	w := do(r, http.MethodPost, "/api/knowledge/publish", `{"ticket":{},"text":"x"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestConnectivityNotConfigured(t *testing.T) {
	r := newEngine(newHandler(nil, &stubTracker{}))
	w := do(r, http.MethodGet, "/api/knowledge/connectivity", "")
	require.Equal(t, http.StatusBadGateway, w.Code)

	var rep models.ConnectivityReport
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rep))
	assert.False(t, rep.Success)
}

func TestHealthzAndPublishes(t *testing.T) {
	audit := &stubAudit{items: []models.PublishRecord{{ID: 1, TicketKey: "OPS-1", Success: true}}}
	h := newHandler(nil, &stubTracker{})
	h.Audit = audit
	r := newEngine(h)

	assert.Equal(t, http.StatusOK, do(r, http.MethodGet, "/healthz", "").Code)

	w := do(r, http.MethodGet, "/api/publishes?limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 5, audit.limit)
	assert.Contains(t, w.Body.String(), `"ticket_key":"OPS-1"`)

	audit.pingErr = errors.New("db down")
	w = do(r, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "DB_UNAVAILABLE")
}

func TestWelcome(t *testing.T) {
	w := do(newEngine(newHandler(nil, &stubTracker{})), http.MethodGet, "/api/welcome", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), WelcomeMessage)
}
