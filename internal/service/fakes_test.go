package service

import (
	"context"
	"errors"
	"strconv"
	"sync"

	"github.com/kbtriage/backend/internal/apperr"
	"github.com/kbtriage/backend/internal/models"
	"github.com/kbtriage/backend/internal/probe"
	"github.com/kbtriage/backend/internal/tracker"
	"github.com/kbtriage/backend/internal/triage"
)

type cannedResponse struct {
	status int
	body   string
	err    error
}

// fakeContent answers by "METHOD path"; unknown endpoints get a 404.
type fakeContent struct {
	mu       sync.Mutex
	routes   map[string]cannedResponse
	calls    []string
	payloads map[string]any
}

func newFakeContent(routes map[string]cannedResponse) *fakeContent {
	return &fakeContent{routes: routes, payloads: map[string]any{}}
}

func (f *fakeContent) Do(_ context.Context, ep probe.Endpoint, payload any) (*probe.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := ep.String()
	f.calls = append(f.calls, k)
	if payload != nil {
		f.payloads[k] = payload
	}
	r, ok := f.routes[k]
	if !ok {
		return &probe.Response{Endpoint: ep, Status: 404, Body: []byte(`{"message":"not found"}`)}, nil
	}
	if r.err != nil {
		return nil, r.err
	}
	return &probe.Response{Endpoint: ep, Status: r.status, Body: []byte(r.body)}, nil
}

type fakeTracker struct {
	mu         sync.Mutex
	next       int
	created    []tracker.IssueRequest
	comments   map[string][]triage.Node
	labels     map[string][]string
	createErr  error
	commentErr error
	labelErr   error
}

func newFakeTracker() *fakeTracker {
	return &fakeTracker{comments: map[string][]triage.Node{}, labels: map[string][]string{}}
}

func (f *fakeTracker) CreateIssue(_ context.Context, req tracker.IssueRequest) (tracker.IssueCreated, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return tracker.IssueCreated{}, f.createErr
	}
	f.next++
	f.created = append(f.created, req)
	return tracker.IssueCreated{Key: req.Project + "-" + strconv.Itoa(f.next), ID: strconv.Itoa(10000 + f.next)}, nil
}

func (f *fakeTracker) AddComment(_ context.Context, key string, body triage.Node) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.commentErr != nil {
		return f.commentErr
	}
	f.comments[key] = append(f.comments[key], body)
	return nil
}

func (f *fakeTracker) UpdateLabels(_ context.Context, key string, add []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.labelErr != nil {
		return f.labelErr
	}
	f.labels[key] = append(f.labels[key], add...)
	return nil
}

type fakeAudit struct {
	tickets   []models.TicketRef
	publishes []models.PublishRecord
}

func (f *fakeAudit) RecordTicket(_ context.Context, _ string, ref models.TicketRef) error {
	f.tickets = append(f.tickets, ref)
	return nil
}

func (f *fakeAudit) RecordPublish(_ context.Context, rec models.PublishRecord) (int64, error) {
	f.publishes = append(f.publishes, rec)
	return int64(len(f.publishes)), nil
}

var errBoom = errors.New("connection reset by peer")

func trackerRejection() error {
	return apperr.NewTracker(400, []string{"The project key 'NOPE' is invalid", "Issue type is required"}, nil)
}
