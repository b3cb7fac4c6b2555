package models

import "time"

const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

type ChatTurn struct {
	ID        string    `json:"id"`
	Text      string    `json:"text"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// TriageText is the parsed form of an "Issue Summary / Next Steps" reply.
// RawText is canonical; Summary and NextSteps are always derived from it.
type TriageText struct {
	Summary    string `json:"summary"`
	NextSteps  string `json:"next_steps"`
	RawText    string `json:"raw_text"`
	Structured bool   `json:"structured"`
}

type TicketRef struct {
	Key string `json:"key"`
	ID  string `json:"id"`
	URL string `json:"url"`
}

type TicketResult struct {
	Success bool       `json:"success"`
	Ticket  *TicketRef `json:"ticket,omitempty"`
	Error   string     `json:"error,omitempty"`
	Message string     `json:"message"`
}

const (
	StrategyPrimary        = "primary"
	StrategyLegacy         = "legacy"
	StrategyTicketFallback = "ticket-fallback"
)

type TierOutcome struct {
	Strategy string            `json:"strategy"`
	Success  bool              `json:"success"`
	Error    string            `json:"error,omitempty"`
	Attempts []EndpointAttempt `json:"attempts,omitempty"`
}

type PublishResult struct {
	Success      bool          `json:"success"`
	ArticleURL   string        `json:"article_url,omitempty"`
	PageID       string        `json:"page_id,omitempty"`
	PageTitle    string        `json:"page_title,omitempty"`
	SpaceKey     string        `json:"space_key,omitempty"`
	StrategyUsed string        `json:"strategy_used,omitempty"`
	Message      string        `json:"message"`
	Tiers        []TierOutcome `json:"tiers,omitempty"`
}

type EndpointAttempt struct {
	Endpoint string `json:"endpoint"`
	Status   int    `json:"status,omitempty"`
	Error    string `json:"error,omitempty"`
	Success  bool   `json:"success"`
}

type SpaceRef struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type ConnectivityDetails struct {
	Endpoint  string            `json:"endpoint,omitempty"`
	Spaces    int               `json:"spaces"`
	SpaceList []SpaceRef        `json:"space_list,omitempty"`
	Attempts  []EndpointAttempt `json:"attempts"`
}

type ConnectivityReport struct {
	Success bool                `json:"success"`
	Message string              `json:"message"`
	Details ConnectivityDetails `json:"details"`
}

type PublishRecord struct {
	ID           int64     `json:"id"`
	TicketKey    string    `json:"ticket_key"`
	ProjectKey   string    `json:"project_key"`
	Success      bool      `json:"success"`
	StrategyUsed string    `json:"strategy_used"`
	ArticleURL   string    `json:"article_url"`
	PageID       string    `json:"page_id"`
	Message      string    `json:"message"`
	CreatedAt    time.Time `json:"created_at"`
}
