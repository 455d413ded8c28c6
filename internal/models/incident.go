package models

import (
	"fmt"
	"time"
)

// Incident severity levels accepted by the incident service.
const (
	SeverityLow      = "low"
	SeverityMedium   = "medium"
	SeverityHigh     = "high"
	SeverityCritical = "critical"
)

// StatusPendingSync marks a locally queued report that has not been
// accepted by the incident service yet.
const StatusPendingSync = "pending_sync"

// LocalID identifies a queued incident report on this device. It is a
// separate type from the server-assigned numeric incident ID so the two
// can never be mixed up, regardless of how server IDs are formatted.
type LocalID string

// NewLocalID returns a monotonically distinguishable local identifier.
func NewLocalID() LocalID {
	return LocalID(fmt.Sprintf("temp_%d", time.Now().UnixNano()))
}

func (id LocalID) String() string {
	return string(id)
}

// IncidentDraft carries the fields of a report before it has an identity,
// local or remote.
type IncidentDraft struct {
	Title       string  `json:"title"`
	Description string  `json:"description"`
	Latitude    float64 `json:"latitude"`
	Longitude   float64 `json:"longitude"`
	Severity    string  `json:"severity"`
}

// PendingIncident is an incident report recorded while offline, awaiting
// submission to the incident service. It never carries a server ID; once
// the server accepts it the record is removed from the queue.
type PendingIncident struct {
	LocalID     LocalID   `json:"local_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	Severity    string    `json:"severity"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

// Draft strips the local identity from a pending incident, leaving the
// fields submitted to the incident service.
func (p PendingIncident) Draft() IncidentDraft {
	return IncidentDraft{
		Title:       p.Title,
		Description: p.Description,
		Latitude:    p.Latitude,
		Longitude:   p.Longitude,
		Severity:    p.Severity,
	}
}
