package models

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNewLocalID(t *testing.T) {
	id := NewLocalID()
	assert.True(t, strings.HasPrefix(string(id), "temp_"))

	other := NewLocalID()
	assert.NotEqual(t, id, other)
}

func TestPendingIncident_Draft(t *testing.T) {
	pending := PendingIncident{
		LocalID:     NewLocalID(),
		Title:       "flood",
		Description: "river overflow",
		Latitude:    -18.9,
		Longitude:   47.5,
		Severity:    SeverityHigh,
		Status:      StatusPendingSync,
		CreatedAt:   time.Now().UTC(),
	}

	draft := pending.Draft()
	assert.Equal(t, pending.Title, draft.Title)
	assert.Equal(t, pending.Description, draft.Description)
	assert.Equal(t, pending.Latitude, draft.Latitude)
	assert.Equal(t, pending.Longitude, draft.Longitude)
	assert.Equal(t, pending.Severity, draft.Severity)
}
