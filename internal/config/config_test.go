package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setRequired(t *testing.T) {
	t.Helper()
	t.Setenv("CHAT_BOT_TOKEN", "bot-token")
	t.Setenv("HELPDESK_API_BASE", "https://halo.example.com/api/")
	t.Setenv("HELPDESK_AUTH_URL", "https://halo.example.com/auth/token")
	t.Setenv("HELPDESK_CLIENT_ID", "client")
	t.Setenv("HELPDESK_CLIENT_SECRET", "secret")
}

func TestLoad_Defaults(t *testing.T) {
	setRequired(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "5000", cfg.App.Port)
	assert.Equal(t, "0.0.0.0:5000", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, 10*time.Second, cfg.App.ClientTimeout)
	assert.Equal(t, AuthModeOAuth, cfg.Helpdesk.AuthMode)
	assert.Equal(t, "https://halo.example.com/api", cfg.Helpdesk.APIBase)
	assert.Equal(t, "/Ticket", cfg.Helpdesk.TicketPath)
	assert.Equal(t, 1, cfg.Helpdesk.TicketTypeID)
	assert.Equal(t, "https://webexapis.com/v1", cfg.Chat.APIBase)
	assert.Equal(t, "Webex Bot Ticket", cfg.Relay.TicketSummary)
	assert.Equal(t, 3, cfg.Relay.RetryMaxAttempts)
	assert.Equal(t, 24*time.Hour, cfg.Dedup.TTL)
	assert.Empty(t, cfg.Redis.Addr)
	assert.Equal(t, "info", cfg.Logger.Level)
}

func TestLoad_Overrides(t *testing.T) {
	setRequired(t)
	t.Setenv("PORT", "8081")
	t.Setenv("HELPDESK_TICKET_TYPE_ID", "7")
	t.Setenv("HELPDESK_TICKET_PATH", "/Tickets")
	t.Setenv("HELPDESK_TOKEN_TTL", "10m")
	t.Setenv("DEDUP_TTL", "1h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8081", cfg.App.Port)
	assert.Equal(t, 7, cfg.Helpdesk.TicketTypeID)
	assert.Equal(t, "/Tickets", cfg.Helpdesk.TicketPath)
	assert.Equal(t, 10*time.Minute, cfg.Helpdesk.TokenTTL)
	assert.Equal(t, time.Hour, cfg.Dedup.TTL)
}

func TestLoad_APIKeyModeNeedsOnlySecret(t *testing.T) {
	t.Setenv("CHAT_BOT_TOKEN", "bot-token")
	t.Setenv("HELPDESK_API_BASE", "https://halo.example.com/api")
	t.Setenv("HELPDESK_AUTH_MODE", "APIKEY")
	t.Setenv("HELPDESK_CLIENT_SECRET", "static-key")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, AuthModeAPIKey, cfg.Helpdesk.AuthMode)
}

func TestLoad_MissingRequired(t *testing.T) {
	t.Setenv("CHAT_BOT_TOKEN", "")
	t.Setenv("HELPDESK_API_BASE", "")
	t.Setenv("HELPDESK_AUTH_MODE", "oauth")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "CHAT_BOT_TOKEN")
	assert.Contains(t, err.Error(), "HELPDESK_API_BASE")
	assert.Contains(t, err.Error(), "HELPDESK_AUTH_URL")
}

func TestValidate_UnknownMode(t *testing.T) {
	cfg := Config{
		Chat:     ChatConfig{BotToken: "t"},
		Helpdesk: HelpdeskConfig{APIBase: "http://x", AuthMode: "basic"},
		Dedup:    DedupConfig{Capacity: 1},
	}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `invalid HELPDESK_AUTH_MODE "basic"`)
}
