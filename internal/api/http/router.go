package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"

	"github.com/spec-kit/webhook-relay/internal/api/http/handlers"
	"github.com/spec-kit/webhook-relay/internal/auth"
	"github.com/spec-kit/webhook-relay/internal/observability"
)

// RouteConfig bundles dependencies for route registration.
type RouteConfig struct {
	Health  *handlers.HealthHandler
	Webhook *handlers.WebhookHandler
	Metrics *observability.Metrics
	// WebhookSecret enables signature checks on webhook routes when set.
	WebhookSecret string
}

// RegisterRoutes wires HTTP routes.
func RegisterRoutes(app *fiber.App, cfg RouteConfig) {
	app.Get("/", cfg.Health.Root)
	app.Get("/health/live", cfg.Health.Live)
	app.Get("/health/ready", cfg.Health.Ready)

	if cfg.Metrics != nil {
		app.Get("/metrics", adaptor.HTTPHandler(cfg.Metrics.Handler()))
	}

	signature := auth.WebhookSignature(cfg.WebhookSecret)
	app.Post("/webex", signature, cfg.Webhook.Receive)
	app.Post("/webhook", signature, cfg.Webhook.Receive)
}
