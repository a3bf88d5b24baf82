package domain

import "encoding/json"

// UnknownTicketID labels tickets whose backend response carried no id.
const UnknownTicketID = "unknown"

// TicketRequest is the helpdesk ticket creation contract.
type TicketRequest struct {
	Summary string
	Details string
	TypeID  int
}

// TicketResult is the helpdesk response to a ticket creation.
// Raw holds the backend payload unmodified.
type TicketResult struct {
	ID  string
	Raw json.RawMessage
}

// DisplayID returns the ticket id or a placeholder when the backend omitted it.
func (t TicketResult) DisplayID() string {
	if t.ID == "" {
		return UnknownTicketID
	}
	return t.ID
}
