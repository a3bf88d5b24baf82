package handlers

import (
	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/webhook-relay/internal/api/dto"
	"github.com/spec-kit/webhook-relay/internal/service"
)

// WebhookHandler receives chat platform webhook deliveries.
type WebhookHandler struct {
	relay *service.RelayService
}

// NewWebhookHandler constructs handler.
func NewWebhookHandler(relay *service.RelayService) *WebhookHandler {
	return &WebhookHandler{relay: relay}
}

// Receive POST /webex and /webhook.
func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	out := h.relay.Handle(c.UserContext(), c.Body())
	return c.Status(out.HTTPStatus).JSON(dto.RelayResponse{
		Status:         out.Status,
		Reason:         out.Reason,
		Stage:          out.Stage,
		UpstreamStatus: out.UpstreamStatus,
		Detail:         out.Detail,
		Ticket:         out.Ticket,
	})
}
