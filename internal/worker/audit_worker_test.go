package worker

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/webhook-relay/internal/events"
	"github.com/spec-kit/webhook-relay/internal/observability"
	"github.com/spec-kit/webhook-relay/internal/service"
)

func TestStartAuditWorker_RecordsLifecycleEvents(t *testing.T) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	metrics := observability.NewMetrics()

	audit := StartAuditWorker(dispatcher, zap.NewNop(), metrics)
	require.NotNil(t, audit)

	ctx := context.Background()
	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventTicketCreated, "msg1", events.TicketCreatedPayload{TicketID: "42"})))
	require.NoError(t, dispatcher.Publish(ctx, events.New(events.EventFailed, "msg2", events.FailedPayload{Stage: service.StageTicketCreation})))

	count, err := testutil.GatherAndCount(metrics.Registry(), "relay_outcomes_total")
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	count, err = testutil.GatherAndCount(metrics.Registry(), "relay_upstream_errors_total")
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}

func TestStartAuditWorker_NoDispatcher(t *testing.T) {
	assert.Nil(t, StartAuditWorker(nil, nil, nil))
}
