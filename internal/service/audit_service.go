package service

import (
	"context"

	"go.uber.org/zap"

	"github.com/spec-kit/webhook-relay/internal/events"
	"github.com/spec-kit/webhook-relay/internal/observability"
)

// AuditService records relay lifecycle events in logs and metrics.
type AuditService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	metrics    *observability.Metrics
}

// NewAuditService creates the service.
func NewAuditService(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *AuditService {
	return &AuditService{
		dispatcher: dispatcher,
		logger:     logger,
		metrics:    metrics,
	}
}

// RegisterHandlers subscribes to events.
func (a *AuditService) RegisterHandlers() {
	if a.dispatcher == nil {
		return
	}
	a.dispatcher.Subscribe(events.EventTicketCreated, a.handleTicketCreated)
	a.dispatcher.Subscribe(events.EventSkipped, a.handleSkipped)
	a.dispatcher.Subscribe(events.EventFailed, a.handleFailed)
	a.dispatcher.Subscribe(events.EventReplyFailed, a.handleReplyFailed)
}

func (a *AuditService) handleTicketCreated(_ context.Context, event events.Event) error {
	a.logger.Info("RelayTicketCreated", zap.String("chat_event_id", event.ChatEvent), zap.Any("payload", event.Payload))
	a.metrics.RecordOutcome("ticket_created")
	return nil
}

func (a *AuditService) handleSkipped(_ context.Context, event events.Event) error {
	a.logger.Debug("RelaySkipped", zap.String("chat_event_id", event.ChatEvent), zap.Any("payload", event.Payload))
	a.metrics.RecordOutcome("skipped")
	return nil
}

func (a *AuditService) handleFailed(_ context.Context, event events.Event) error {
	a.logger.Warn("RelayFailed", zap.String("chat_event_id", event.ChatEvent), zap.Any("payload", event.Payload))
	a.metrics.RecordOutcome("failed")
	if p, ok := event.Payload.(events.FailedPayload); ok {
		switch p.Stage {
		case StageMessageFetch:
			a.metrics.RecordUpstreamError("chat", "get_message")
		case StageTicketCreation:
			a.metrics.RecordUpstreamError("helpdesk", "create_ticket")
		}
	}
	return nil
}

func (a *AuditService) handleReplyFailed(_ context.Context, event events.Event) error {
	a.logger.Warn("RelayReplyFailed", zap.String("chat_event_id", event.ChatEvent), zap.Any("payload", event.Payload))
	a.metrics.RecordUpstreamError("chat", "post_message")
	return nil
}
