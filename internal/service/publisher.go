package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/kbtriage/backend/internal/apperr"
	"github.com/kbtriage/backend/internal/content"
	"github.com/kbtriage/backend/internal/events"
	"github.com/kbtriage/backend/internal/models"
	"github.com/kbtriage/backend/internal/probe"
	"github.com/kbtriage/backend/internal/tracker"
	"github.com/kbtriage/backend/internal/triage"
)

var DefaultFallbackLabels = []string{"knowledge-base", "ai-triage"}

var errContentDisabled = errors.New("content platform not configured")

// Endpoints are the ordered candidate paths for each content tier.
type Endpoints struct {
	PrimarySpaces []string
	PrimaryPages  []string
	LegacySpaces  []string
	LegacyPages   []string
}

// Publisher turns a ticket and its triage text into a knowledge article,
// falling through primary, legacy and ticket-comment tiers in that order.
type Publisher struct {
	Content        content.Transport
	Tracker        tracker.Tracker
	Spaces         *SpaceResolver
	Codec          triage.Codec
	Endpoints      Endpoints
	SiteURL        string
	FallbackLabels []string
	Audit          AuditStore
	Events         events.Notifier
	Logger         zerolog.Logger
	Now            func() time.Time
}

type tier struct {
	strategy string
	run      func(ctx context.Context, art triage.Article, st *publishState) (models.PublishResult, error)
}

// publishState is shared by the tiers of one Publish call only. attempts and
// warning belong to the tier currently running.
type publishState struct {
	primarySpace *models.SpaceRef
	attempts     []models.EndpointAttempt
	warning      string
}

func (p *Publisher) tiers() []tier {
	return []tier{
		{strategy: models.StrategyPrimary, run: p.publishPrimary},
		{strategy: models.StrategyLegacy, run: p.publishLegacy},
		{strategy: models.StrategyTicketFallback, run: p.publishTicketComment},
	}
}

// Publish always returns a result. Success:false means every tier failed and
// Message carries the last failure.
func (p *Publisher) Publish(ctx context.Context, ref models.TicketRef, raw, projectKey string) models.PublishResult {
	if strings.TrimSpace(ref.Key) == "" {
		return models.PublishResult{Success: false, Message: "Failed to publish: ticket key is required"}
	}

	art := triage.NewArticle(ref, p.codec().Parse(raw), p.now())
	st := &publishState{}
	outcomes := make([]models.TierOutcome, 0, 3)
	var lastErr error

	for _, t := range p.tiers() {
		st.attempts, st.warning = nil, ""
		res, err := t.run(ctx, art, st)
		if err == nil {
			outcomes = append(outcomes, models.TierOutcome{
				Strategy: t.strategy,
				Success:  true,
				Error:    st.warning,
				Attempts: st.attempts,
			})
			res.Tiers = outcomes
			p.Logger.Info().
				Str("ticket", ref.Key).
				Str("tier", t.strategy).
				Str("page_id", res.PageID).
				Int("attempts", len(st.attempts)).
				Msg("knowledge article published")
			p.finish(ctx, ref.Key, projectKey, res)
			return res
		}
		outcomes = append(outcomes, models.TierOutcome{
			Strategy: t.strategy,
			Error:    err.Error(),
			Attempts: st.attempts,
		})
		p.Logger.Warn().
			Err(err).
			Str("ticket", ref.Key).
			Str("tier", t.strategy).
			Int("attempts", len(st.attempts)).
			Msg("publish tier failed")
		lastErr = err
	}

	res := models.PublishResult{
		Success: false,
		Message: "Failed to publish knowledge article: " + errorDetail(lastErr),
		Tiers:   outcomes,
	}
	p.finish(ctx, ref.Key, projectKey, res)
	return res
}

func (p *Publisher) publishPrimary(ctx context.Context, art triage.Article, st *publishState) (models.PublishResult, error) {
	if p.Content == nil || p.Spaces == nil {
		return models.PublishResult{}, errContentDisabled
	}
	space, trail, err := p.Spaces.Resolve(ctx, p.Endpoints.PrimarySpaces)
	st.attempts = append(st.attempts, trail...)
	if err != nil {
		return models.PublishResult{}, err
	}
	st.primarySpace = &space

	body, err := p.codec().RenderRich(art)
	if err != nil {
		return models.PublishResult{}, fmt.Errorf("render rich body: %w", err)
	}
	payload := map[string]any{
		"spaceId": space.ID,
		"status":  "current",
		"title":   art.Title,
		"body": map[string]any{
			"representation": "atlas_doc_format",
			"value":          body,
		},
	}
	return p.createPage(ctx, st, models.StrategyPrimary, p.Endpoints.PrimaryPages, payload, art, space)
}

func (p *Publisher) publishLegacy(ctx context.Context, art triage.Article, st *publishState) (models.PublishResult, error) {
	if p.Content == nil || p.Spaces == nil {
		return models.PublishResult{}, errContentDisabled
	}
	space, trail, err := p.Spaces.Resolve(ctx, p.Endpoints.LegacySpaces)
	st.attempts = append(st.attempts, trail...)
	if err != nil {
		return models.PublishResult{}, err
	}
	if st.primarySpace != nil && st.primarySpace.Key != space.Key {
		p.Logger.Warn().
			Str("primary_space", st.primarySpace.Key).
			Str("legacy_space", space.Key).
			Msg("legacy tier resolved a different space than primary tier")
	}

	body, err := p.codec().RenderStorage(art)
	if err != nil {
		return models.PublishResult{}, fmt.Errorf("render storage body: %w", err)
	}
	payload := map[string]any{
		"type":  "page",
		"title": art.Title,
		"space": map[string]any{"key": space.Key},
		"body": map[string]any{
			"storage": map[string]any{
				"value":          body,
				"representation": "storage",
			},
		},
	}
	return p.createPage(ctx, st, models.StrategyLegacy, p.Endpoints.LegacyPages, payload, art, space)
}

func (p *Publisher) createPage(ctx context.Context, st *publishState, strategy string, endpoints []string, payload any, art triage.Article, space models.SpaceRef) (models.PublishResult, error) {
	do := func(ctx context.Context, ep probe.Endpoint) (*probe.Response, error) {
		return p.Content.Do(ctx, ep, payload)
	}
	resp, trail, err := probe.Probe(ctx, probe.Post(endpoints...), do, content.ErrorDetail)
	st.attempts = append(st.attempts, trail...)
	if err != nil {
		return models.PublishResult{}, err
	}

	dec := json.NewDecoder(bytes.NewReader(resp.Body))
	dec.UseNumber()
	var page map[string]any
	if err := dec.Decode(&page); err != nil {
		return models.PublishResult{}, fmt.Errorf("decode page from %s: %w", resp.Endpoint, err)
	}
	pageID := getString(page, "id")
	if pageID == "" {
		return models.PublishResult{}, fmt.Errorf("page response from %s has no id", resp.Endpoint)
	}

	return models.PublishResult{
		Success:      true,
		ArticleURL:   p.articleURL(space.Key, pageID),
		PageID:       pageID,
		PageTitle:    art.Title,
		SpaceKey:     space.Key,
		StrategyUsed: strategy,
		Message:      fmt.Sprintf("Knowledge base article created in space %s", space.Key),
	}, nil
}

// publishTicketComment is the last resort: the article goes onto the ticket
// itself as a comment, then the ticket is labelled.
func (p *Publisher) publishTicketComment(ctx context.Context, art triage.Article, st *publishState) (models.PublishResult, error) {
	if p.Tracker == nil {
		return models.PublishResult{}, errors.New("issue tracker not configured")
	}
	if err := p.Tracker.AddComment(ctx, art.Ticket.Key, triage.ArticleDocument(art)); err != nil {
		return models.PublishResult{}, err
	}

	labels := p.FallbackLabels
	if len(labels) == 0 {
		labels = DefaultFallbackLabels
	}
	msg := fmt.Sprintf("Knowledge base content added to ticket %s", art.Ticket.Key)
	if err := p.Tracker.UpdateLabels(ctx, art.Ticket.Key, labels); err != nil {
		p.Logger.Warn().Err(err).Str("ticket", art.Ticket.Key).Msg("labelling ticket failed")
		st.warning = "labels not applied: " + errorDetail(err)
		msg += " (" + st.warning + ")"
	}

	return models.PublishResult{
		Success:      true,
		ArticleURL:   art.Ticket.URL,
		PageID:       art.Ticket.Key,
		PageTitle:    art.Title,
		StrategyUsed: models.StrategyTicketFallback,
		Message:      msg,
	}, nil
}

func (p *Publisher) finish(ctx context.Context, ticketKey, projectKey string, res models.PublishResult) {
	if p.Audit != nil {
		rec := models.PublishRecord{
			TicketKey:    ticketKey,
			ProjectKey:   projectKey,
			Success:      res.Success,
			StrategyUsed: res.StrategyUsed,
			ArticleURL:   res.ArticleURL,
			PageID:       res.PageID,
			Message:      res.Message,
		}
		if _, err := p.Audit.RecordPublish(ctx, rec); err != nil {
			p.Logger.Warn().Err(err).Str("ticket", ticketKey).Msg("audit record failed")
		}
	}
	if p.Events != nil {
		if err := p.Events.ArticlePublished(ctx, ticketKey, res); err != nil {
			p.Logger.Warn().Err(err).Str("ticket", ticketKey).Msg("publish event failed")
		}
	}
}

func (p *Publisher) articleURL(spaceKey, pageID string) string {
	return fmt.Sprintf("%s/wiki/spaces/%s/pages/%s",
		strings.TrimRight(p.SiteURL, "/"), url.PathEscape(spaceKey), url.PathEscape(pageID))
}

func (p *Publisher) codec() triage.Codec {
	if p.Codec == nil {
		return triage.MarkerCodec{}
	}
	return p.Codec
}

func (p *Publisher) now() time.Time {
	if p.Now == nil {
		return time.Now()
	}
	return p.Now()
}

func errorDetail(err error) string {
	if err == nil {
		return "no publishing tier available"
	}
	if e, ok := apperr.As(err); ok {
		return e.Message
	}
	return err.Error()
}
