// Package app wires every collaborator from configuration. Optional parts
// (AI provider, content platform, database, NATS) stay nil when unconfigured.
package app

import (
	"context"
	"fmt"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/kbtriage/backend/internal/ai"
	"github.com/kbtriage/backend/internal/config"
	"github.com/kbtriage/backend/internal/content"
	"github.com/kbtriage/backend/internal/db"
	"github.com/kbtriage/backend/internal/events"
	"github.com/kbtriage/backend/internal/service"
	"github.com/kbtriage/backend/internal/tracker"
	"github.com/kbtriage/backend/internal/triage"
)

type App struct {
	Config       config.Config
	Logger       zerolog.Logger
	Responder    *ai.Responder
	Tickets      *service.TicketService
	Publisher    *service.Publisher
	Connectivity *service.Connectivity
	Store        *db.Store
	Events       events.Notifier
}

func New(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	a := &App{Config: cfg, Logger: logger, Events: events.Nop{}}

	a.Responder = ai.NewResponder(NewProvider(cfg, logger), cfg.AITimeout, logger)

	if cfg.DatabaseURL != "" {
		store, err := db.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, fmt.Errorf("connect db: %w", err)
		}
		if err := store.EnsureSchema(ctx); err != nil {
			store.Close()
			return nil, fmt.Errorf("ensure schema: %w", err)
		}
		a.Store = store
	}

	if cfg.NatsURL != "" {
		n, err := events.NewNATSNotifier(cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Events = n
	}

	var audit service.AuditStore
	if a.Store != nil {
		audit = a.Store
	}

	jira := tracker.NewJiraClient(cfg.JiraURL, cfg.AtlassianEmail, cfg.AtlassianToken)
	a.Tickets = &service.TicketService{
		Tracker:   jira,
		SiteURL:   cfg.SiteURL,
		IssueType: cfg.TrackerIssueType,
		Priority:  cfg.TrackerPriority,
		Audit:     audit,
		Events:    a.Events,
		Logger:    logger.With().Str("component", "tickets").Logger(),
	}

	a.Publisher = &service.Publisher{
		Tracker: jira,
		Codec:   triage.MarkerCodec{},
		Endpoints: service.Endpoints{
			PrimarySpaces: cfg.KBPrimarySpaceEndpoints,
			PrimaryPages:  cfg.KBPrimaryPageEndpoints,
			LegacySpaces:  cfg.KBLegacySpaceEndpoints,
			LegacyPages:   cfg.KBLegacyPageEndpoints,
		},
		SiteURL:        cfg.SiteURL,
		FallbackLabels: cfg.KBFallbackLabels,
		Audit:          audit,
		Events:         a.Events,
		Logger:         logger.With().Str("component", "publisher").Logger(),
	}
	a.Connectivity = &service.Connectivity{
		Endpoints: cfg.KBProbeEndpoints,
		Logger:    logger.With().Str("component", "connectivity").Logger(),
	}

	if cfg.KBEnabled {
		wiki := content.NewClient(cfg.ConfluenceURL, cfg.AtlassianEmail, cfg.AtlassianToken)
		spaces := &service.SpaceResolver{Transport: wiki, Preferred: cfg.KBPreferredSpace}
		a.Publisher.Content = wiki
		a.Publisher.Spaces = spaces
		a.Connectivity.Spaces = spaces
	} else {
		logger.Info().Msg("knowledge base disabled, publishing goes to ticket comments")
	}

	return a, nil
}

// NewProvider picks the AI backend: an OpenAI-compatible API when a key is
// set, else a plain HTTP generator when AI_URL is set, else none.
func NewProvider(cfg config.Config, logger zerolog.Logger) ai.Provider {
	if cfg.AIAPIKey != "" {
		p, err := ai.NewOpenAIProvider(cfg.AIAPIKey, cfg.AIBaseURL, cfg.AIModel,
			&http.Client{Timeout: ai.DefaultCallLimit})
		if err == nil {
			logger.Info().Str("model", cfg.AIModel).Msg("using openai-compatible provider")
			return p
		}
		logger.Warn().Err(err).Msg("openai-compatible provider unavailable")
	}
	if cfg.AIURL != "" {
		logger.Info().Str("url", cfg.AIURL).Msg("using http provider")
		return ai.HTTPProvider{BaseURL: cfg.AIURL, APIKey: cfg.AIAPIKey}
	}
	logger.Info().Msg("no AI provider configured, using rule-based replies")
	return nil
}

func (a *App) Close() {
	if a.Events != nil {
		a.Events.Close()
	}
	if a.Store != nil {
		a.Store.Close()
	}
}
