// Package events emits lifecycle notifications for tickets and articles.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/kbtriage/backend/internal/models"
)

const (
	SubjectTicketCreated    = "triage.ticket.created"
	SubjectArticlePublished = "triage.article.published"
)

type TicketCreated struct {
	ProjectKey string    `json:"project_key"`
	Key        string    `json:"key"`
	ID         string    `json:"id"`
	URL        string    `json:"url"`
	At         time.Time `json:"at"`
}

type ArticlePublished struct {
	TicketKey    string    `json:"ticket_key"`
	Success      bool      `json:"success"`
	StrategyUsed string    `json:"strategy_used"`
	ArticleURL   string    `json:"article_url,omitempty"`
	PageID       string    `json:"page_id,omitempty"`
	Message      string    `json:"message"`
	At           time.Time `json:"at"`
}

// Notifier is best effort: callers log failures and move on.
type Notifier interface {
	TicketCreated(ctx context.Context, projectKey string, ref models.TicketRef) error
	ArticlePublished(ctx context.Context, ticketKey string, res models.PublishResult) error
	Close()
}

type Nop struct{}

func (Nop) TicketCreated(context.Context, string, models.TicketRef) error { return nil }

func (Nop) ArticlePublished(context.Context, string, models.PublishResult) error { return nil }

func (Nop) Close() {}

type NATSNotifier struct {
	conn   *nats.Conn
	logger zerolog.Logger
	now    func() time.Time
}

func NewNATSNotifier(url, token string, logger zerolog.Logger) (*NATSNotifier, error) {
	opts := []nats.Option{
		nats.Name("kb-triage"),
		nats.RetryOnFailedConnect(true),
		nats.MaxReconnects(60),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("nats disconnected")
			}
		}),
		nats.ReconnectHandler(func(_ *nats.Conn) {
			logger.Info().Msg("nats reconnected")
		}),
	}
	if token != "" {
		opts = append(opts, nats.Token(token))
	}

	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("nats connect: %w", err)
	}
	return &NATSNotifier{conn: nc, logger: logger, now: time.Now}, nil
}

func (n *NATSNotifier) TicketCreated(ctx context.Context, projectKey string, ref models.TicketRef) error {
	return n.publish(ctx, SubjectTicketCreated, TicketCreated{
		ProjectKey: projectKey,
		Key:        ref.Key,
		ID:         ref.ID,
		URL:        ref.URL,
		At:         n.now().UTC(),
	})
}

func (n *NATSNotifier) ArticlePublished(ctx context.Context, ticketKey string, res models.PublishResult) error {
	return n.publish(ctx, SubjectArticlePublished, ArticlePublished{
		TicketKey:    ticketKey,
		Success:      res.Success,
		StrategyUsed: res.StrategyUsed,
		ArticleURL:   res.ArticleURL,
		PageID:       res.PageID,
		Message:      res.Message,
		At:           n.now().UTC(),
	})
}

func (n *NATSNotifier) publish(ctx context.Context, subject string, data any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}
	if err := n.conn.Publish(subject, payload); err != nil {
		return fmt.Errorf("publish %s: %w", subject, err)
	}
	return nil
}

func (n *NATSNotifier) Close() {
	if err := n.conn.Drain(); err != nil {
		n.conn.Close()
	}
}
