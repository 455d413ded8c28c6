package types

import "time"

// Incident is an incident entity as returned by the incident service.
// The ID is always server-assigned; locally queued reports use a
// separate local identifier type until they are accepted.
type Incident struct {
	ID           int64     `json:"id"`
	Title        string    `json:"title"`
	Description  string    `json:"description"`
	Latitude     float64   `json:"latitude"`
	Longitude    float64   `json:"longitude"`
	Severity     string    `json:"severity"`
	Status       string    `json:"status"`
	ReportedBy   int64     `json:"reported_by"`
	ReporterName string    `json:"reporter_name,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// CreateIncidentRequest is the body of POST /incidents.
type CreateIncidentRequest struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Severity    string  `json:"severity"`
}

// ChatMessage is a message attached to one incident's discussion. ID is
// absent until the incident service has persisted the message.
type ChatMessage struct {
	ID         int64     `json:"id,omitempty"`
	IncidentID int64     `json:"incident_id"`
	UserID     int64     `json:"user_id"`
	Username   string    `json:"username,omitempty"`
	Message    string    `json:"message"`
	CreatedAt  time.Time `json:"created_at"`
}

// CreateChatMessageRequest is the body of POST /chat. The author is
// derived server-side from the bearer credential.
type CreateChatMessageRequest struct {
	IncidentID int64  `json:"incident_id"`
	Message    string `json:"message"`
}

// APIError is the error envelope the incident service returns.
type APIError struct {
	Message string `json:"message"`
}
