// Package helpdesk creates helpdesk tickets behind a pluggable authentication
// strategy.
package helpdesk

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/spec-kit/webhook-relay/pkg/util/errorutil"
)

// SessionKind distinguishes the credential variants.
type SessionKind int

const (
	SessionAPIKey SessionKind = iota + 1
	SessionOAuth
)

// Session is the credential currently used against the helpdesk.
// API key sessions have a zero ExpiresAt and never expire.
type Session struct {
	Kind      SessionKind
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// usable reports whether the session may still be presented at now.
// OAuth sessions are refreshed skew before their expiry, with skew capped at
// half the token lifetime so short-lived tokens are still reused.
func (s *Session) usable(now time.Time, skew time.Duration) bool {
	if s == nil || s.Token == "" {
		return false
	}
	if s.Kind == SessionAPIKey {
		return true
	}
	if !s.IssuedAt.IsZero() {
		if half := s.ExpiresAt.Sub(s.IssuedAt) / 2; skew > half {
			skew = half
		}
	}
	return now.Add(skew).Before(s.ExpiresAt)
}

// AuthStrategy obtains helpdesk credentials.
type AuthStrategy interface {
	Authenticate(ctx context.Context) (*Session, error)
	Name() string
}

// APIKeyStrategy presents a static secret. It never performs I/O.
type APIKeyStrategy struct {
	key string
}

// NewAPIKeyStrategy returns a strategy holding key.
func NewAPIKeyStrategy(key string) *APIKeyStrategy {
	return &APIKeyStrategy{key: key}
}

func (s *APIKeyStrategy) Name() string { return "apikey" }

func (s *APIKeyStrategy) Authenticate(_ context.Context) (*Session, error) {
	if s.key == "" {
		return nil, &AuthError{Kind: ErrNotConfigured}
	}
	return &Session{Kind: SessionAPIKey, Token: s.key}, nil
}

// OAuthConfig configures the client-credentials token request.
type OAuthConfig struct {
	TokenURL     string
	ClientID     string
	ClientSecret string
	Scope        string
	// DefaultTTL applies when the token response carries no expiry.
	DefaultTTL time.Duration
}

// OAuthStrategy runs the OAuth2 client-credentials grant.
type OAuthStrategy struct {
	cfg        OAuthConfig
	httpClient HTTPClient
	now        func() time.Time
}

// NewOAuthStrategy creates a client-credentials strategy.
func NewOAuthStrategy(cfg OAuthConfig, httpClient HTTPClient) *OAuthStrategy {
	if cfg.Scope == "" {
		cfg.Scope = "all"
	}
	if cfg.DefaultTTL <= 0 {
		cfg.DefaultTTL = 55 * time.Minute
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &OAuthStrategy{cfg: cfg, httpClient: httpClient, now: time.Now}
}

func (s *OAuthStrategy) Name() string { return "oauth" }

type tokenResponse struct {
	AccessToken string      `json:"access_token"`
	TokenType   string      `json:"token_type"`
	ExpiresIn   json.Number `json:"expires_in"`
}

func (s *OAuthStrategy) Authenticate(ctx context.Context) (*Session, error) {
	if s.cfg.TokenURL == "" || s.cfg.ClientID == "" || s.cfg.ClientSecret == "" {
		return nil, &AuthError{Kind: ErrNotConfigured}
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {s.cfg.ClientID},
		"client_secret": {s.cfg.ClientSecret},
		"scope":         {s.cfg.Scope},
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("creating token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, &AuthError{Kind: ErrUnreachable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, &AuthError{Kind: ErrUnreachable, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &AuthError{Kind: ErrRejected, StatusCode: resp.StatusCode, Body: apperrors.Excerpt(body)}
	}

	var tok tokenResponse
	if err := json.Unmarshal(body, &tok); err != nil || tok.AccessToken == "" {
		return nil, &AuthError{Kind: ErrMalformedResponse, StatusCode: resp.StatusCode, Body: apperrors.Excerpt(body), Err: err}
	}

	issued := s.now()
	return &Session{Kind: SessionOAuth, Token: tok.AccessToken, IssuedAt: issued, ExpiresAt: s.expiry(tok, issued)}, nil
}

func (s *OAuthStrategy) expiry(tok tokenResponse, now time.Time) time.Time {
	if secs, err := tok.ExpiresIn.Int64(); err == nil && secs > 0 {
		return now.Add(time.Duration(secs) * time.Second)
	}
	if exp, ok := tokenExpiry(tok.AccessToken); ok {
		return exp
	}
	return now.Add(s.cfg.DefaultTTL)
}
