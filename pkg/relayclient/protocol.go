package relayclient

import (
	"encoding/json"
	"fmt"
	"time"
)

// Application-level events carried over the relay connection.
const (
	EventJoinIncident = "join-incident"
	EventSendMessage  = "send-message"
	EventNewMessage   = "new-message"
)

// Envelope frames every relay event. Data is event-specific.
type Envelope struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data,omitempty"`
}

// NewEnvelope marshals payload into an envelope for the given event.
func NewEnvelope(event string, payload interface{}) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, fmt.Errorf("failed to marshal %s payload: %w", event, err)
	}
	return Envelope{Event: event, Data: data}, nil
}

// JoinPayload requests membership in one incident's room. Membership is
// explicit; connecting alone joins nothing.
type JoinPayload struct {
	IncidentID int64 `json:"incidentId"`
}

// SendMessagePayload is an outbound chat message.
type SendMessagePayload struct {
	IncidentID int64  `json:"incidentId"`
	UserID     int64  `json:"userId"`
	Message    string `json:"message"`
}

// NewMessagePayload is a broadcast chat message. The sender receives its
// own message back through this event; there is no local echo path.
type NewMessagePayload struct {
	IncidentID int64     `json:"incidentId"`
	UserID     int64     `json:"userId"`
	Username   string    `json:"username,omitempty"`
	Message    string    `json:"message"`
	Timestamp  time.Time `json:"timestamp"`
}
