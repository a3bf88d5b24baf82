package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Helpdesk authentication modes.
const (
	AuthModeOAuth  = "oauth"
	AuthModeAPIKey = "apikey"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App      AppConfig
	Chat     ChatConfig
	Helpdesk HelpdeskConfig
	Relay    RelayConfig
	Dedup    DedupConfig
	Redis    RedisConfig
	Logger   LoggerConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string        `envconfig:"APP_NAME" default:"webhook-relay"`
	Env                   string        `envconfig:"APP_ENV" default:"development"`
	Host                  string        `envconfig:"APP_HOST" default:"0.0.0.0"`
	Port                  string        `envconfig:"PORT" default:"5000"`
	Version               string        `envconfig:"APP_VERSION" default:"dev"`
	RequestTimeoutSeconds int           `envconfig:"HTTP_REQUEST_TIMEOUT_SECONDS" default:"30"`
	ClientTimeout         time.Duration `envconfig:"HTTP_CLIENT_TIMEOUT" default:"10s"`
}

// ChatConfig holds chat platform credentials and webhook settings.
type ChatConfig struct {
	BotToken      string `envconfig:"CHAT_BOT_TOKEN"`
	APIBase       string `envconfig:"CHAT_API_BASE" default:"https://webexapis.com/v1"`
	BotPersonID   string `envconfig:"CHAT_BOT_PERSON_ID"`
	BotEmail      string `envconfig:"CHAT_BOT_EMAIL"`
	WebhookSecret string `envconfig:"CHAT_WEBHOOK_SECRET"`
}

// HelpdeskConfig holds helpdesk endpoints and credentials.
type HelpdeskConfig struct {
	AuthMode     string        `envconfig:"HELPDESK_AUTH_MODE" default:"oauth"`
	ClientID     string        `envconfig:"HELPDESK_CLIENT_ID"`
	ClientSecret string        `envconfig:"HELPDESK_CLIENT_SECRET"`
	APIBase      string        `envconfig:"HELPDESK_API_BASE"`
	AuthURL      string        `envconfig:"HELPDESK_AUTH_URL"`
	TicketPath   string        `envconfig:"HELPDESK_TICKET_PATH" default:"/Ticket"`
	TicketTypeID int           `envconfig:"HELPDESK_TICKET_TYPE_ID" default:"1"`
	TicketArray  bool          `envconfig:"HELPDESK_TICKET_ARRAY" default:"false"`
	APIKeyHeader string        `envconfig:"HELPDESK_API_KEY_HEADER" default:"Authorization"`
	TokenTTL     time.Duration `envconfig:"HELPDESK_TOKEN_TTL" default:"55m"`
	TokenSkew    time.Duration `envconfig:"HELPDESK_TOKEN_SKEW" default:"30s"`
}

// RelayConfig holds orchestration settings.
type RelayConfig struct {
	TicketSummary      string `envconfig:"TICKET_SUMMARY" default:"Webex Bot Ticket"`
	ConfirmationPrefix string `envconfig:"CONFIRMATION_PREFIX" default:"Helpdesk ticket created: "`
	RetryMaxAttempts   int    `envconfig:"RETRY_MAX_ATTEMPTS" default:"3"`
}

// DedupConfig bounds the event-id idempotency window.
type DedupConfig struct {
	TTL      time.Duration `envconfig:"DEDUP_TTL" default:"24h"`
	Capacity int           `envconfig:"DEDUP_CAPACITY" default:"10000"`
}

// RedisConfig holds Redis connection values. An empty Addr keeps dedup in memory.
type RedisConfig struct {
	Addr     string `envconfig:"REDIS_ADDR"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string `envconfig:"LOG_LEVEL" default:"info"`
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}
	cfg.Helpdesk.AuthMode = strings.ToLower(strings.TrimSpace(cfg.Helpdesk.AuthMode))
	cfg.Helpdesk.APIBase = strings.TrimSuffix(cfg.Helpdesk.APIBase, "/")
	cfg.Chat.APIBase = strings.TrimSuffix(cfg.Chat.APIBase, "/")

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the settings each component needs at startup.
func (c *Config) Validate() error {
	var errs []error
	if c.Chat.BotToken == "" {
		errs = append(errs, errors.New("CHAT_BOT_TOKEN is required"))
	}
	if c.Helpdesk.APIBase == "" {
		errs = append(errs, errors.New("HELPDESK_API_BASE is required"))
	}
	switch c.Helpdesk.AuthMode {
	case AuthModeOAuth:
		if c.Helpdesk.AuthURL == "" {
			errs = append(errs, errors.New("HELPDESK_AUTH_URL is required in oauth mode"))
		}
		if c.Helpdesk.ClientID == "" || c.Helpdesk.ClientSecret == "" {
			errs = append(errs, errors.New("HELPDESK_CLIENT_ID and HELPDESK_CLIENT_SECRET are required in oauth mode"))
		}
	case AuthModeAPIKey:
		if c.Helpdesk.ClientSecret == "" {
			errs = append(errs, errors.New("HELPDESK_CLIENT_SECRET is required in apikey mode"))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid HELPDESK_AUTH_MODE %q", c.Helpdesk.AuthMode))
	}
	if c.Dedup.Capacity < 1 {
		errs = append(errs, errors.New("DEDUP_CAPACITY must be >= 1"))
	}
	return errors.Join(errs...)
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}
