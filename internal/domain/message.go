package domain

// ChatMessage is the fetched content of a chat event.
type ChatMessage struct {
	ID          string `json:"id"`
	RoomID      string `json:"roomId"`
	Text        string `json:"text"`
	PersonID    string `json:"personId,omitempty"`
	PersonEmail string `json:"personEmail,omitempty"`
}

// HasText reports whether the message carries text worth ticketing.
func (m ChatMessage) HasText() bool {
	return m.Text != ""
}
