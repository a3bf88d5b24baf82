package helpdesk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/webhook-relay/internal/domain"
	apperrors "github.com/spec-kit/webhook-relay/pkg/util/errorutil"
)

// HTTPClient abstracts HTTP calls for testing.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Config describes the ticket endpoint contract of a helpdesk deployment.
type Config struct {
	BaseURL    string
	TicketPath string
	// APIKeyHeader carries the raw key for API key sessions.
	APIKeyHeader string
	// WrapArray sends the ticket as a one-element JSON array.
	WrapArray bool
	// RefreshSkew renews OAuth sessions this long before they expire.
	RefreshSkew time.Duration
}

// Gateway creates tickets, owning the cached helpdesk session.
type Gateway struct {
	cfg        Config
	strategy   AuthStrategy
	httpClient HTTPClient
	logger     *zap.Logger
	now        func() time.Time
	onRefresh  func(ok bool)

	mu      sync.Mutex
	session *Session
}

// NewGateway builds a gateway around the strategy chosen at startup.
func NewGateway(cfg Config, strategy AuthStrategy, httpClient HTTPClient, logger *zap.Logger) *Gateway {
	if cfg.TicketPath == "" {
		cfg.TicketPath = "/Ticket"
	}
	if cfg.APIKeyHeader == "" {
		cfg.APIKeyHeader = "Authorization"
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	return &Gateway{
		cfg:        cfg,
		strategy:   strategy,
		httpClient: httpClient,
		logger:     logger.With(zap.String("component", "helpdesk"), zap.String("auth", strategy.Name())),
		now:        time.Now,
	}
}

// OnRefresh registers a hook called after every authentication attempt.
func (g *Gateway) OnRefresh(fn func(ok bool)) {
	g.onRefresh = fn
}

// currentSession returns a usable session, authenticating when the cached one
// is absent or about to expire. The lock is held across the refresh so only
// one token request is in flight; waiters reuse its result.
func (g *Gateway) currentSession(ctx context.Context) (*Session, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.session.usable(g.now(), g.cfg.RefreshSkew) {
		return g.session, nil
	}

	// never hand out a stale token after a failed refresh
	g.session = nil
	session, err := g.strategy.Authenticate(ctx)
	if g.onRefresh != nil {
		g.onRefresh(err == nil)
	}
	if err != nil {
		g.logger.Warn("helpdesk authentication failed", zap.Error(err))
		return nil, err
	}
	if session.Kind == SessionOAuth {
		g.logger.Debug("helpdesk token refreshed", zap.Time("expires_at", session.ExpiresAt))
	}
	g.session = session
	return session, nil
}

// invalidate drops s if it is still the cached session.
func (g *Gateway) invalidate(s *Session) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.session == s {
		g.session = nil
	}
}

type ticketPayload struct {
	Summary string `json:"Summary"`
	Details string `json:"Details"`
	TypeID  int    `json:"TypeID"`
}

// CreateTicket creates a ticket. It does not retry.
func (g *Gateway) CreateTicket(ctx context.Context, in domain.TicketRequest) (domain.TicketResult, error) {
	session, err := g.currentSession(ctx)
	if err != nil {
		return domain.TicketResult{}, err
	}

	ticket := ticketPayload{Summary: in.Summary, Details: in.Details, TypeID: in.TypeID}
	var payload []byte
	if g.cfg.WrapArray {
		payload, err = json.Marshal([]ticketPayload{ticket})
	} else {
		payload, err = json.Marshal(ticket)
	}
	if err != nil {
		return domain.TicketResult{}, fmt.Errorf("encoding ticket: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.cfg.BaseURL+g.cfg.TicketPath, bytes.NewReader(payload))
	if err != nil {
		return domain.TicketResult{}, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	g.authorize(req, session)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return domain.TicketResult{}, &TicketError{Kind: ErrUnreachable, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return domain.TicketResult{}, &TicketError{Kind: ErrUnreachable, StatusCode: resp.StatusCode, Err: err}
	}
	if resp.StatusCode == http.StatusUnauthorized {
		g.invalidate(session)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return domain.TicketResult{}, &TicketError{Kind: ErrRejected, StatusCode: resp.StatusCode, Body: apperrors.Excerpt(body)}
	}

	result, err := parseTicketResult(body)
	if err != nil {
		return domain.TicketResult{}, &TicketError{Kind: ErrMalformedResponse, StatusCode: resp.StatusCode, Body: apperrors.Excerpt(body), Err: err}
	}
	g.logger.Info("helpdesk ticket created", zap.String("ticket_id", result.DisplayID()))
	return result, nil
}

func (g *Gateway) authorize(req *http.Request, s *Session) {
	switch s.Kind {
	case SessionOAuth:
		req.Header.Set("Authorization", "Bearer "+s.Token)
	case SessionAPIKey:
		req.Header.Set(g.cfg.APIKeyHeader, s.Token)
	}
}

// parseTicketResult accepts a JSON object, or an array whose first element is
// the created ticket. The raw body is kept as is.
func parseTicketResult(body []byte) (domain.TicketResult, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return domain.TicketResult{}, fmt.Errorf("empty body")
	}

	object := trimmed
	if trimmed[0] == '[' {
		var items []json.RawMessage
		if err := json.Unmarshal(trimmed, &items); err != nil {
			return domain.TicketResult{}, err
		}
		if len(items) == 0 {
			return domain.TicketResult{}, fmt.Errorf("empty ticket array")
		}
		object = items[0]
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal(object, &fields); err != nil {
		return domain.TicketResult{}, err
	}
	if fields == nil {
		return domain.TicketResult{}, fmt.Errorf("ticket is not an object")
	}

	return domain.TicketResult{ID: ticketID(fields), Raw: json.RawMessage(trimmed)}, nil
}

func ticketID(fields map[string]json.RawMessage) string {
	for _, key := range []string{"ID", "id", "Id"} {
		raw, ok := fields[key]
		if !ok {
			continue
		}
		var n json.Number
		if err := json.Unmarshal(raw, &n); err == nil && n != "" {
			return n.String()
		}
		var s string
		if err := json.Unmarshal(raw, &s); err == nil && s != "" {
			return s
		}
	}
	return ""
}
