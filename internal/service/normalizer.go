package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/spec-kit/webhook-relay/internal/domain"
)

var (
	// ErrSkip marks a well-formed event that must not produce a ticket.
	ErrSkip = errors.New("event not actionable")
	// ErrMissingField marks a payload without a required field.
	ErrMissingField = errors.New("missing required field")
	// ErrMalformedPayload marks a body that is not a JSON object.
	ErrMalformedPayload = errors.New("malformed payload")
)

// ValidationError reports an inbound payload that cannot be processed.
type ValidationError struct {
	Field string
	Kind  error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%v: %s", e.Kind, e.Field)
}

func (e *ValidationError) Is(target error) bool { return target == e.Kind }

// SkipError carries why an event was skipped. It matches ErrSkip.
type SkipError struct {
	Reason string
}

func (e *SkipError) Error() string { return "skip: " + e.Reason }

func (e *SkipError) Is(target error) bool { return target == ErrSkip }

type webhookEnvelope struct {
	ID       string       `json:"id"`
	Resource string       `json:"resource"`
	Event    string       `json:"event"`
	Data     *webhookData `json:"data"`
}

type webhookData struct {
	ID          string `json:"id"`
	RoomID      string `json:"roomId"`
	PersonID    string `json:"personId"`
	PersonEmail string `json:"personEmail"`
}

// Normalizer decodes webhook envelopes into InboundEvents. It performs no I/O.
type Normalizer struct {
	botPersonID string
	botEmail    string
}

// NewNormalizer builds a normalizer that skips messages authored by the bot.
func NewNormalizer(botPersonID, botEmail string) *Normalizer {
	return &Normalizer{botPersonID: botPersonID, botEmail: strings.ToLower(botEmail)}
}

// Normalize validates raw and returns the event, a *ValidationError, or a *SkipError.
func (n *Normalizer) Normalize(raw []byte) (domain.InboundEvent, error) {
	var env webhookEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return domain.InboundEvent{}, &ValidationError{Field: "body", Kind: ErrMalformedPayload}
	}
	if env.Data == nil || strings.TrimSpace(env.Data.ID) == "" {
		return domain.InboundEvent{}, &ValidationError{Field: "data.id", Kind: ErrMissingField}
	}

	evt := domain.InboundEvent{
		EventID:   env.Data.ID,
		EventType: eventType(env.Resource, env.Event),
		RoomID:    env.Data.RoomID,
		ActorID:   env.Data.PersonID,
		ActorMail: env.Data.PersonEmail,
	}
	if !evt.Actionable() {
		return evt, &SkipError{Reason: "unsupported event"}
	}
	if n.ownMessage(evt) {
		return evt, &SkipError{Reason: "own message"}
	}
	return evt, nil
}

func (n *Normalizer) ownMessage(evt domain.InboundEvent) bool {
	if n.botPersonID != "" && evt.ActorID == n.botPersonID {
		return true
	}
	return n.botEmail != "" && strings.ToLower(evt.ActorMail) == n.botEmail
}

// eventType treats an envelope without resource/event as a new message.
func eventType(resource, event string) domain.EventType {
	if (resource == "" || resource == "messages") && (event == "" || event == "created") {
		return domain.EventTypeMessageCreated
	}
	return domain.EventTypeOther
}
