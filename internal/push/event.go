package push

import "github.com/artinalushaku/onlineStore-sub000/internal/chat"

const (
	EventMessage    = "message"
	EventTyping     = "typing"
	EventStopTyping = "stop_typing"
)

// Event is the frame carried over the push channel in both directions.
// Inbound frames from a client carry only Type and Receiver; the hub stamps
// Sender from the authenticated connection.
type Event struct {
	Type     string        `json:"type"`
	Sender   uint64        `json:"sender,omitempty"`
	Receiver uint64        `json:"receiver,omitempty"`
	Message  *chat.Message `json:"message,omitempty"`
}
