package service

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/spec-kit/webhook-relay/internal/dedup"
	"github.com/spec-kit/webhook-relay/internal/domain"
	"github.com/spec-kit/webhook-relay/internal/events"
	"github.com/spec-kit/webhook-relay/internal/helpdesk"
	"github.com/spec-kit/webhook-relay/internal/retry"
	apperrors "github.com/spec-kit/webhook-relay/pkg/util/errorutil"
)

// State is a step of a single relay run.
type State string

const (
	StateReceived       State = "received"
	StateNormalized     State = "normalized"
	StateSkipped        State = "skipped"
	StateMessageFetched State = "message_fetched"
	StateTicketCreated  State = "ticket_created"
	StateReplied        State = "replied"
	StateDone           State = "done"
	StateFailed         State = "failed"
)

// Failure stages reported to callers.
const (
	StageValidation     = "validation"
	StageMessageFetch   = "message_fetch"
	StageTicketCreation = "ticket_creation"
)

// Response statuses.
const (
	StatusIgnored       = "ignored"
	StatusError         = "error"
	StatusTicketCreated = "ticket created"
)

// Ignore reasons.
const (
	ReasonMissingID      = "missing message id"
	ReasonInvalidPayload = "invalid payload"
	ReasonNoText         = "no text"
	ReasonDuplicate      = "duplicate event"
)

// ChatClient fetches messages and posts replies on the chat platform.
type ChatClient interface {
	GetMessage(ctx context.Context, messageID string) (domain.ChatMessage, error)
	PostMessage(ctx context.Context, roomID, text string) error
}

// TicketCreator creates helpdesk tickets.
type TicketCreator interface {
	CreateTicket(ctx context.Context, req domain.TicketRequest) (domain.TicketResult, error)
}

// Outcome is the HTTP-facing result of one webhook delivery.
type Outcome struct {
	HTTPStatus     int
	Status         string
	Reason         string
	Stage          string
	UpstreamStatus int
	Detail         string
	Ticket         json.RawMessage
	// Final is the last state reached, for logs and tests.
	Final State
	// Replied reports whether the chat confirmation was delivered.
	Replied bool
}

// RelayConfig holds deployment constants for ticket creation.
type RelayConfig struct {
	TicketSummary      string
	TicketTypeID       int
	ConfirmationPrefix string
	FetchRetry         retry.Config
}

// RelayDependencies bundles collaborators of the relay.
type RelayDependencies struct {
	Normalizer *Normalizer
	Chat       ChatClient
	Tickets    TicketCreator
	Dedup      dedup.Store
	Dispatcher events.Dispatcher
	Logger     *zap.Logger
}

// RelayService turns chat webhook deliveries into helpdesk tickets.
type RelayService struct {
	cfg        RelayConfig
	normalizer *Normalizer
	chat       ChatClient
	tickets    TicketCreator
	dedup      dedup.Store
	dispatcher events.Dispatcher
	logger     *zap.Logger
}

// NewRelayService wires the relay.
func NewRelayService(cfg RelayConfig, deps RelayDependencies) *RelayService {
	if cfg.TicketSummary == "" {
		cfg.TicketSummary = "Webex Bot Ticket"
	}
	if cfg.FetchRetry.MaxAttempts < 1 {
		cfg.FetchRetry = retry.DefaultConfig()
	}
	normalizer := deps.Normalizer
	if normalizer == nil {
		normalizer = NewNormalizer("", "")
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	dispatcher := deps.Dispatcher
	if dispatcher == nil {
		dispatcher = events.NewInMemoryDispatcher(logger)
	}
	return &RelayService{
		cfg:        cfg,
		normalizer: normalizer,
		chat:       deps.Chat,
		tickets:    deps.Tickets,
		dedup:      deps.Dedup,
		dispatcher: dispatcher,
		logger:     logger,
	}
}

// Handle processes one raw webhook payload. Only an upstream failure before
// the ticket exists makes the outcome an error; a failed confirmation does not.
func (s *RelayService) Handle(ctx context.Context, raw []byte) Outcome {
	evt, err := s.normalizer.Normalize(raw)
	if err != nil {
		return s.rejectOrSkip(ctx, evt, err)
	}
	log := s.logger.With(zap.String("event_id", evt.EventID))
	log.Debug("relay state", zap.String("state", string(StateNormalized)))

	claimed, duplicate := s.reserve(ctx, log, evt.EventID)
	if duplicate {
		s.publish(ctx, events.EventSkipped, evt.EventID, events.SkippedPayload{Reason: ReasonDuplicate})
		return Outcome{HTTPStatus: http.StatusOK, Status: StatusIgnored, Reason: ReasonDuplicate, Final: StateSkipped}
	}
	release := func() {
		if !claimed {
			return
		}
		if err := s.dedup.Release(context.WithoutCancel(ctx), evt.EventID); err != nil {
			log.Warn("dedup release failed", zap.Error(err))
		}
	}

	var msg domain.ChatMessage
	err = retry.Do(ctx, s.cfg.FetchRetry, func(ctx context.Context) error {
		var fetchErr error
		msg, fetchErr = s.chat.GetMessage(ctx, evt.EventID)
		return fetchErr
	})
	if err != nil {
		release()
		log.Error("message fetch failed", zap.Error(err))
		return s.fail(ctx, evt.EventID, StageMessageFetch, err)
	}
	log.Debug("relay state", zap.String("state", string(StateMessageFetched)))

	if !msg.HasText() {
		release()
		s.publish(ctx, events.EventSkipped, evt.EventID, events.SkippedPayload{Reason: ReasonNoText})
		return Outcome{HTTPStatus: http.StatusOK, Status: StatusIgnored, Reason: ReasonNoText, Final: StateSkipped}
	}

	ticket, err := s.tickets.CreateTicket(ctx, domain.TicketRequest{
		Summary: s.cfg.TicketSummary,
		Details: msg.Text,
		TypeID:  s.cfg.TicketTypeID,
	})
	if err != nil {
		release()
		log.Error("ticket creation failed", zap.Error(err))
		return s.fail(ctx, evt.EventID, StageTicketCreation, err)
	}
	log.Info("ticket created", zap.String("ticket_id", ticket.DisplayID()))

	roomID := msg.RoomID
	if roomID == "" {
		roomID = evt.RoomID
	}
	replied := s.reply(ctx, log, evt.EventID, roomID, ticket)
	s.publish(ctx, events.EventTicketCreated, evt.EventID, events.TicketCreatedPayload{TicketID: ticket.DisplayID(), RoomID: roomID})

	final := StateDone
	if !replied {
		final = StateTicketCreated
	}
	return Outcome{
		HTTPStatus: http.StatusCreated,
		Status:     StatusTicketCreated,
		Ticket:     ticket.Raw,
		Final:      final,
		Replied:    replied,
	}
}

// Confirmation renders the chat reply for a created ticket.
func (s *RelayService) Confirmation(ticket domain.TicketResult) string {
	return s.cfg.ConfirmationPrefix + ticket.DisplayID()
}

func (s *RelayService) rejectOrSkip(ctx context.Context, evt domain.InboundEvent, err error) Outcome {
	var skip *SkipError
	if errors.As(err, &skip) {
		s.logger.Debug("event skipped", zap.String("event_id", evt.EventID), zap.String("reason", skip.Reason))
		s.publish(ctx, events.EventSkipped, evt.EventID, events.SkippedPayload{Reason: skip.Reason})
		return Outcome{HTTPStatus: http.StatusOK, Status: StatusIgnored, Final: StateSkipped}
	}

	reason := ReasonMissingID
	if errors.Is(err, ErrMalformedPayload) {
		reason = ReasonInvalidPayload
	}
	s.logger.Info("webhook rejected", zap.Error(err))
	s.publish(ctx, events.EventFailed, "", events.FailedPayload{Stage: StageValidation, Error: err.Error()})
	return Outcome{HTTPStatus: http.StatusBadRequest, Status: StatusIgnored, Reason: reason, Final: StateFailed}
}

// reserve claims eventID. Store errors fail open: the delivery is processed
// without a claim.
//
// A delivery that arrives while another run holds the claim is acknowledged as
// a duplicate. If that run then fails it releases the claim, and the platform's
// redelivery of the failed request is what eventually creates the ticket.
func (s *RelayService) reserve(ctx context.Context, log *zap.Logger, eventID string) (claimed, duplicate bool) {
	if s.dedup == nil {
		return false, false
	}
	ok, err := s.dedup.Reserve(ctx, eventID)
	if err != nil {
		log.Warn("dedup reserve failed, processing without claim", zap.Error(err))
		return false, false
	}
	if !ok {
		log.Info("duplicate delivery ignored")
		return false, true
	}
	return true, false
}

func (s *RelayService) reply(ctx context.Context, log *zap.Logger, eventID, roomID string, ticket domain.TicketResult) bool {
	var err error
	if roomID == "" {
		err = errors.New("message has no room id")
	} else {
		err = s.chat.PostMessage(ctx, roomID, s.Confirmation(ticket))
	}
	if err != nil {
		log.Warn("confirmation reply failed", zap.String("ticket_id", ticket.DisplayID()), zap.Error(err))
		s.publish(ctx, events.EventReplyFailed, eventID, events.ReplyFailedPayload{
			TicketID: ticket.DisplayID(),
			RoomID:   roomID,
			Error:    err.Error(),
		})
		return false
	}
	log.Debug("relay state", zap.String("state", string(StateReplied)))
	return true
}

func (s *RelayService) fail(ctx context.Context, eventID, stage string, err error) Outcome {
	out := Outcome{
		HTTPStatus: http.StatusBadGateway,
		Status:     StatusError,
		Stage:      stage,
		Final:      StateFailed,
	}

	var (
		upErr     *apperrors.UpstreamError
		authErr   *helpdesk.AuthError
		ticketErr *helpdesk.TicketError
	)
	switch {
	case errors.As(err, &upErr):
		out.UpstreamStatus = upErr.StatusCode
		out.Detail = upErr.Error()
	case errors.As(err, &authErr):
		out.UpstreamStatus = authErr.StatusCode
		out.Detail = "helpdesk authentication failed: " + authErr.Kind.Error()
		if authErr.Body != "" {
			out.Detail += ": " + authErr.Body
		}
		if errors.Is(err, helpdesk.ErrNotConfigured) {
			out.HTTPStatus = http.StatusInternalServerError
		}
	case errors.As(err, &ticketErr):
		out.UpstreamStatus = ticketErr.StatusCode
		out.Detail = ticketErr.Error()
	case errors.Is(err, context.DeadlineExceeded):
		out.HTTPStatus = http.StatusGatewayTimeout
		out.Detail = err.Error()
	default:
		out.HTTPStatus = http.StatusInternalServerError
		out.Detail = err.Error()
	}
	if len(out.Detail) > apperrors.MaxExcerptBytes {
		out.Detail = apperrors.Excerpt([]byte(out.Detail))
	}

	s.publish(ctx, events.EventFailed, eventID, events.FailedPayload{
		Stage:          stage,
		UpstreamStatus: out.UpstreamStatus,
		Error:          out.Detail,
	})
	return out
}

func (s *RelayService) publish(ctx context.Context, eventType events.EventType, eventID string, payload interface{}) {
	_ = s.dispatcher.Publish(ctx, events.New(eventType, eventID, payload))
}
