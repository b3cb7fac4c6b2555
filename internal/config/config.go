package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/kbtriage/backend/internal/utils"
)

type Config struct {
	Env            string        `mapstructure:"ENV"`
	Port           string        `mapstructure:"PORT"`
	LogLevel       string        `mapstructure:"LOG_LEVEL"`
	CORSAllowed    string        `mapstructure:"CORS_ALLOWED_ORIGINS"`
	RequestTimeout time.Duration `mapstructure:"REQUEST_TIMEOUT"`

	AIAPIKey  string        `mapstructure:"AI_API_KEY"`
	AIBaseURL string        `mapstructure:"AI_BASE_URL"`
	AIModel   string        `mapstructure:"AI_MODEL"`
	AIURL     string        `mapstructure:"AI_URL"`
	AITimeout time.Duration `mapstructure:"AI_TIMEOUT"`

	SiteURL          string `mapstructure:"SITE_URL"`
	JiraURL          string `mapstructure:"JIRA_URL"`
	ConfluenceURL    string `mapstructure:"CONFLUENCE_URL"`
	AtlassianEmail   string `mapstructure:"ATLASSIAN_EMAIL"`
	AtlassianToken   string `mapstructure:"ATLASSIAN_API_TOKEN"`
	TrackerIssueType string `mapstructure:"TRACKER_ISSUE_TYPE"`
	TrackerPriority  string `mapstructure:"TRACKER_PRIORITY"`

	KBEnabled               bool     `mapstructure:"KB_ENABLED"`
	KBPreferredSpace        string   `mapstructure:"KB_PREFERRED_SPACE"`
	KBFallbackLabels        []string `mapstructure:"KB_FALLBACK_LABELS"`
	KBPrimarySpaceEndpoints []string `mapstructure:"KB_PRIMARY_SPACE_ENDPOINTS"`
	KBPrimaryPageEndpoints  []string `mapstructure:"KB_PRIMARY_PAGE_ENDPOINTS"`
	KBLegacySpaceEndpoints  []string `mapstructure:"KB_LEGACY_SPACE_ENDPOINTS"`
	KBLegacyPageEndpoints   []string `mapstructure:"KB_LEGACY_PAGE_ENDPOINTS"`
	KBProbeEndpoints        []string `mapstructure:"KB_PROBE_ENDPOINTS"`

	DatabaseURL string `mapstructure:"DATABASE_URL"`
	NatsURL     string `mapstructure:"NATS_URL"`
	NatsToken   string `mapstructure:"NATS_TOKEN"`
}

const (
	DefaultAIBaseURL      = "https://generativelanguage.googleapis.com/v1beta/openai/"
	DefaultAIModel        = "gemini-2.5-flash"
	DefaultSiteURL        = "https://example.atlassian.net"
	DefaultPreferredSpace = "Tickettele"
)

func Load() (Config, error) {
	return LoadFile(".env")
}

// LoadFile reads path (if present) as an env file, then lets the process
// environment override it.
func LoadFile(path string) (Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("env")
	v.AutomaticEnv()
	_ = v.ReadInConfig()

	v.SetDefault("ENV", "dev")
	v.SetDefault("PORT", "8080")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "*")
	v.SetDefault("REQUEST_TIMEOUT", "30s")

	v.SetDefault("AI_API_KEY", "")
	v.SetDefault("AI_BASE_URL", DefaultAIBaseURL)
	v.SetDefault("AI_MODEL", DefaultAIModel)
	v.SetDefault("AI_URL", "")
	v.SetDefault("AI_TIMEOUT", "8s")

	v.SetDefault("SITE_URL", DefaultSiteURL)
	v.SetDefault("JIRA_URL", "")
	v.SetDefault("CONFLUENCE_URL", "")
	v.SetDefault("ATLASSIAN_EMAIL", "")
	v.SetDefault("ATLASSIAN_API_TOKEN", "")
	v.SetDefault("TRACKER_ISSUE_TYPE", "Task")
	v.SetDefault("TRACKER_PRIORITY", "Medium")

	v.SetDefault("KB_ENABLED", true)
	v.SetDefault("KB_PREFERRED_SPACE", DefaultPreferredSpace)
	v.SetDefault("KB_FALLBACK_LABELS", []string{"knowledge-base", "ai-triage"})
	v.SetDefault("KB_PRIMARY_SPACE_ENDPOINTS", []string{"/wiki/api/v2/spaces"})
	v.SetDefault("KB_PRIMARY_PAGE_ENDPOINTS", []string{"/wiki/api/v2/pages"})
	v.SetDefault("KB_LEGACY_SPACE_ENDPOINTS", []string{"/wiki/rest/api/space", "/wiki/api/v2/spaces"})
	v.SetDefault("KB_LEGACY_PAGE_ENDPOINTS", []string{"/wiki/rest/api/content"})
	v.SetDefault("KB_PROBE_ENDPOINTS", []string{"/wiki/api/v2/spaces", "/wiki/rest/api/content"})

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_TOKEN", "")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	cfg.normalize()
	return cfg, nil
}

func (c *Config) normalize() {
	c.SiteURL = strings.TrimRight(strings.TrimSpace(c.SiteURL), "/")
	if c.JiraURL == "" {
		c.JiraURL = c.SiteURL
	}
	if c.ConfluenceURL == "" {
		c.ConfluenceURL = c.SiteURL
	}
	c.JiraURL = strings.TrimRight(c.JiraURL, "/")
	c.ConfluenceURL = strings.TrimRight(c.ConfluenceURL, "/")
	if c.AITimeout <= 0 {
		c.AITimeout = 8 * time.Second
	}
	c.KBFallbackLabels = utils.CleanList(c.KBFallbackLabels)
	c.KBPrimarySpaceEndpoints = utils.CleanList(c.KBPrimarySpaceEndpoints)
	c.KBPrimaryPageEndpoints = utils.CleanList(c.KBPrimaryPageEndpoints)
	c.KBLegacySpaceEndpoints = utils.CleanList(c.KBLegacySpaceEndpoints)
	c.KBLegacyPageEndpoints = utils.CleanList(c.KBLegacyPageEndpoints)
	c.KBProbeEndpoints = utils.CleanList(c.KBProbeEndpoints)
}
