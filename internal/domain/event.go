package domain

// EventType enumerates chat platform event kinds.
type EventType string

const (
	EventTypeMessageCreated EventType = "messageCreated"
	EventTypeOther          EventType = "other"
)

// InboundEvent identifies a chat platform event announced by a webhook.
type InboundEvent struct {
	EventID   string
	EventType EventType
	RoomID    string
	ActorID   string
	ActorMail string
}

// Actionable reports whether the event may produce a ticket.
func (e InboundEvent) Actionable() bool {
	return e.EventType == EventTypeMessageCreated
}
