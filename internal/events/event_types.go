package events

import (
	"time"

	"github.com/google/uuid"
)

// EventType enumerates relay lifecycle events.
type EventType string

const (
	EventTicketCreated EventType = "relay_ticket_created"
	EventSkipped       EventType = "relay_skipped"
	EventFailed        EventType = "relay_failed"
	EventReplyFailed   EventType = "relay_reply_failed"
)

// Event is emitted by the relay once per decisive step of a webhook delivery.
type Event struct {
	ID        string      `json:"id"`
	Type      EventType   `json:"type"`
	ChatEvent string      `json:"chat_event_id"`
	Timestamp time.Time   `json:"timestamp"`
	Payload   interface{} `json:"payload"`
}

// New stamps an event with a fresh id and the current time.
func New(eventType EventType, chatEventID string, payload interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		ChatEvent: chatEventID,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}

// TicketCreatedPayload payload.
type TicketCreatedPayload struct {
	TicketID string `json:"ticket_id"`
	RoomID   string `json:"room_id"`
}

// SkippedPayload payload.
type SkippedPayload struct {
	Reason string `json:"reason"`
}

// FailedPayload payload.
type FailedPayload struct {
	Stage          string `json:"stage"`
	UpstreamStatus int    `json:"upstream_status,omitempty"`
	Error          string `json:"error"`
}

// ReplyFailedPayload payload.
type ReplyFailedPayload struct {
	TicketID string `json:"ticket_id"`
	RoomID   string `json:"room_id"`
	Error    string `json:"error"`
}
