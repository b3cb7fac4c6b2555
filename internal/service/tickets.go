package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"

	"github.com/kbtriage/backend/internal/apperr"
	"github.com/kbtriage/backend/internal/events"
	"github.com/kbtriage/backend/internal/models"
	"github.com/kbtriage/backend/internal/tracker"
	"github.com/kbtriage/backend/internal/triage"
)

const (
	DefaultIssueType = "Task"
	DefaultPriority  = "Medium"
)

// AuditStore records what the service did. Optional.
type AuditStore interface {
	RecordTicket(ctx context.Context, projectKey string, ref models.TicketRef) error
	RecordPublish(ctx context.Context, rec models.PublishRecord) (int64, error)
}

type TicketService struct {
	Tracker   tracker.Tracker
	SiteURL   string
	IssueType string
	Priority  string
	Audit     AuditStore
	Events    events.Notifier
	Logger    zerolog.Logger
}

// CreateTicket files one tracked issue per call. It never retries: a second
// call with the same text files a second issue.
func (s *TicketService) CreateTicket(ctx context.Context, text, projectKey string) (models.TicketRef, error) {
	projectKey = strings.TrimSpace(projectKey)
	if projectKey == "" {
		return models.TicketRef{}, apperr.NewInvalidRequest("project key is required")
	}
	if strings.TrimSpace(text) == "" {
		return models.TicketRef{}, apperr.NewInvalidRequest("ticket text is required")
	}
	if s.Tracker == nil {
		return models.TicketRef{}, apperr.NewInternal(fmt.Errorf("issue tracker not configured"))
	}

	t := triage.Parse(text)
	req := tracker.IssueRequest{
		Project:     projectKey,
		Title:       triage.TicketTitle(t),
		Description: triage.PlainDocument(text),
		IssueType:   orDefault(s.IssueType, DefaultIssueType),
		Priority:    orDefault(s.Priority, DefaultPriority),
	}
	created, err := s.Tracker.CreateIssue(ctx, req)
	if err != nil {
		s.Logger.Warn().Err(err).Str("project", projectKey).Msg("ticket creation failed")
		return models.TicketRef{}, err
	}

	ref := models.TicketRef{
		Key: created.Key,
		ID:  created.ID,
		URL: strings.TrimRight(s.SiteURL, "/") + "/browse/" + created.Key,
	}
	s.Logger.Info().Str("ticket", ref.Key).Str("project", projectKey).Msg("ticket created")

	if s.Audit != nil {
		if err := s.Audit.RecordTicket(ctx, projectKey, ref); err != nil {
			s.Logger.Warn().Err(err).Str("ticket", ref.Key).Msg("audit record failed")
		}
	}
	if s.Events != nil {
		if err := s.Events.TicketCreated(ctx, projectKey, ref); err != nil {
			s.Logger.Warn().Err(err).Str("ticket", ref.Key).Msg("ticket event failed")
		}
	}
	return ref, nil
}

// Submit is CreateTicket folded into a result payload.
func (s *TicketService) Submit(ctx context.Context, text, projectKey string) models.TicketResult {
	ref, err := s.CreateTicket(ctx, text, projectKey)
	if err != nil {
		detail := err.Error()
		if e, ok := apperr.As(err); ok {
			detail = e.Message
		}
		return models.TicketResult{
			Success: false,
			Error:   detail,
			Message: "Failed to create ticket: " + detail,
		}
	}
	return models.TicketResult{
		Success: true,
		Ticket:  &ref,
		Message: fmt.Sprintf("Ticket %s created successfully!", ref.Key),
	}
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
