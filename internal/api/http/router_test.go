package http

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	nethttp "net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/webhook-relay/internal/api/http/handlers"
	"github.com/spec-kit/webhook-relay/internal/auth"
	"github.com/spec-kit/webhook-relay/internal/dedup"
	"github.com/spec-kit/webhook-relay/internal/domain"
	"github.com/spec-kit/webhook-relay/internal/observability"
	"github.com/spec-kit/webhook-relay/internal/service"
	apperrors "github.com/spec-kit/webhook-relay/pkg/util/errorutil"
)

type stubChat struct {
	mu      sync.Mutex
	message domain.ChatMessage
	err     error
	replies []string
}

func (s *stubChat) GetMessage(context.Context, string) (domain.ChatMessage, error) {
	return s.message, s.err
}

func (s *stubChat) PostMessage(_ context.Context, _, text string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.replies = append(s.replies, text)
	return nil
}

type stubTickets struct {
	result domain.TicketResult
}

func (s *stubTickets) CreateTicket(context.Context, domain.TicketRequest) (domain.TicketResult, error) {
	return s.result, nil
}

func newTestApp(t *testing.T, chat *stubChat, secret string) (*fiber.App, *observability.Metrics) {
	t.Helper()
	logger := zap.NewNop()
	metrics := observability.NewMetrics()

	relay := service.NewRelayService(service.RelayConfig{
		TicketSummary:      "Webex Bot Ticket",
		TicketTypeID:       1,
		ConfirmationPrefix: "Helpdesk ticket created: ",
	}, service.RelayDependencies{
		Chat:    chat,
		Tickets: &stubTickets{result: domain.TicketResult{ID: "42", Raw: json.RawMessage(`{"ID":42}`)}},
		Dedup:   dedup.NewMemoryStore(100, time.Hour),
		Logger:  logger,
	})

	app := fiber.New()
	RegisterMiddlewares(app, logger, metrics, 5*time.Second)
	RegisterRoutes(app, RouteConfig{
		Health:        handlers.NewHealthHandler("webhook-relay", "test", nil),
		Webhook:       handlers.NewWebhookHandler(relay),
		Metrics:       metrics,
		WebhookSecret: secret,
	})
	app.Get("/panic", func(*fiber.Ctx) error { panic("boom") })
	app.Get("/denied", func(*fiber.Ctx) error { return apperrors.NewUnauthorized("nope") })
	return app, metrics
}

func do(t *testing.T, app *fiber.App, method, path, body string, headers map[string]string) (int, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	var out map[string]any
	if len(raw) > 0 && raw[0] == '{' {
		require.NoError(t, json.Unmarshal(raw, &out))
	}
	return resp.StatusCode, out
}

func TestWebhook_CreatesTicket(t *testing.T) {
	chat := &stubChat{message: domain.ChatMessage{ID: "msg1", RoomID: "room1", Text: "printer on fire"}}
	app, _ := newTestApp(t, chat, "")

	for _, path := range []string{"/webex", "/webhook"} {
		body := `{"data":{"id":"` + path + `"}}`
		status, out := do(t, app, nethttp.MethodPost, path, body, nil)
		assert.Equal(t, nethttp.StatusCreated, status, path)
		assert.Equal(t, "ticket created", out["status"])
		assert.Equal(t, map[string]any{"ID": float64(42)}, out["ticket"])
	}
	assert.Equal(t, []string{"Helpdesk ticket created: 42", "Helpdesk ticket created: 42"}, chat.replies)
}

func TestWebhook_MissingMessageID(t *testing.T) {
	app, _ := newTestApp(t, &stubChat{}, "")

	status, out := do(t, app, nethttp.MethodPost, "/webex", `{"data":{}}`, nil)
	assert.Equal(t, nethttp.StatusBadRequest, status)
	assert.Equal(t, map[string]any{"status": "ignored", "reason": "missing message id"}, out)
}

func TestWebhook_NoText(t *testing.T) {
	app, _ := newTestApp(t, &stubChat{message: domain.ChatMessage{ID: "msg1", RoomID: "room1"}}, "")

	status, out := do(t, app, nethttp.MethodPost, "/webex", `{"data":{"id":"msg1"}}`, nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, map[string]any{"status": "ignored", "reason": "no text"}, out)
}

func TestWebhook_FetchFailure(t *testing.T) {
	chat := &stubChat{err: apperrors.NewUpstreamStatusError("chat", "get_message", nethttp.StatusNotFound, []byte(`{"message":"gone"}`))}
	app, _ := newTestApp(t, chat, "")

	status, out := do(t, app, nethttp.MethodPost, "/webex", `{"data":{"id":"msg1"}}`, nil)
	assert.Equal(t, nethttp.StatusBadGateway, status)
	assert.Equal(t, "error", out["status"])
	assert.Equal(t, "message_fetch", out["stage"])
	assert.Equal(t, float64(nethttp.StatusNotFound), out["upstream_status"])
	assert.Empty(t, chat.replies)
}

func TestWebhook_Signature(t *testing.T) {
	chat := &stubChat{message: domain.ChatMessage{ID: "msg1", RoomID: "room1", Text: "hello"}}
	app, _ := newTestApp(t, chat, "shh")
	body := `{"data":{"id":"msg1"}}`

	status, out := do(t, app, nethttp.MethodPost, "/webex", body, map[string]string{auth.SignatureHeader: "deadbeef"})
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, map[string]any{"status": "error", "reason": "invalid webhook signature"}, out)

	status, _ = do(t, app, nethttp.MethodPost, "/webex", body, map[string]string{
		auth.SignatureHeader: auth.Sign([]byte("shh"), []byte(body)),
	})
	assert.Equal(t, nethttp.StatusCreated, status)
}

func TestRoot(t *testing.T) {
	app, _ := newTestApp(t, &stubChat{}, "")

	status, out := do(t, app, nethttp.MethodGet, "/", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "ok", out["status"])
	assert.Equal(t, "Webex → Halo relay is running", out["message"])
}

func TestHealthProbes(t *testing.T) {
	app, _ := newTestApp(t, &stubChat{}, "")

	status, out := do(t, app, nethttp.MethodGet, "/health/live", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, "alive", out["status"])

	status, out = do(t, app, nethttp.MethodGet, "/health/ready", "", nil)
	assert.Equal(t, nethttp.StatusOK, status)
	assert.Equal(t, map[string]any{"redis": "disabled"}, out["dependencies"])
}

func TestMetricsEndpoint(t *testing.T) {
	app, _ := newTestApp(t, &stubChat{}, "")
	do(t, app, nethttp.MethodGet, "/", "", nil)

	req := httptest.NewRequest(nethttp.MethodGet, "/metrics", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	assert.Equal(t, nethttp.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "relay_http_requests_total")
}

func TestMiddleware_Errors(t *testing.T) {
	app, _ := newTestApp(t, &stubChat{}, "")

	status, out := do(t, app, nethttp.MethodGet, "/panic", "", nil)
	assert.Equal(t, nethttp.StatusInternalServerError, status)
	assert.Equal(t, "error", out["status"])

	status, out = do(t, app, nethttp.MethodGet, "/denied", "", nil)
	assert.Equal(t, nethttp.StatusUnauthorized, status)
	assert.Equal(t, "nope", out["reason"])

	status, _ = do(t, app, nethttp.MethodGet, "/missing", "", nil)
	assert.Equal(t, nethttp.StatusNotFound, status)
}

func TestMiddleware_RequestID(t *testing.T) {
	app, _ := newTestApp(t, &stubChat{}, "")

	req := httptest.NewRequest(nethttp.MethodGet, "/", nil)
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	assert.NotEmpty(t, resp.Header.Get(observability.RequestIDHeader))

	req = httptest.NewRequest(nethttp.MethodGet, "/", nil)
	req.Header.Set(observability.RequestIDHeader, "abc")
	resp, err = app.Test(req, -1)
	require.NoError(t, err)
	assert.Equal(t, "abc", resp.Header.Get(observability.RequestIDHeader))
}

func TestRenderError(t *testing.T) {
	status, reason := renderError(errors.New("hidden"))
	assert.Equal(t, nethttp.StatusInternalServerError, status)
	assert.Equal(t, "internal server error", reason)
}
