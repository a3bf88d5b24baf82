// Package worker attaches background consumers to the relay lifecycle events.
package worker

import (
	"go.uber.org/zap"

	"github.com/spec-kit/webhook-relay/internal/events"
	"github.com/spec-kit/webhook-relay/internal/observability"
	"github.com/spec-kit/webhook-relay/internal/service"
)

// StartAuditWorker builds the audit subscriber and registers it on dispatcher.
// It returns nil when there is no dispatcher to listen on.
func StartAuditWorker(dispatcher events.Dispatcher, logger *zap.Logger, metrics *observability.Metrics) *service.AuditService {
	if dispatcher == nil {
		return nil
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	audit := service.NewAuditService(dispatcher, logger.With(zap.String("component", "audit")), metrics)
	audit.RegisterHandlers()
	return audit
}
