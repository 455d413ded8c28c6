package incident

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"vigil/pkg/incident/types"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIncident(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/incidents", r.URL.Path)
		assert.Equal(t, "Bearer device-token", r.Header.Get("Authorization"))

		var req types.CreateIncidentRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(types.Incident{
			ID:         17,
			Title:      req.Title,
			Severity:   req.Severity,
			Status:     "open",
			ReportedBy: 42,
			CreatedAt:  time.Now().UTC(),
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken("device-token"), nil)
	created, err := client.CreateIncident(context.Background(), types.CreateIncidentRequest{
		Title:    "flood",
		Severity: "high",
	})
	require.NoError(t, err)

	assert.Equal(t, int64(17), created.ID)
	assert.Equal(t, "flood", created.Title)
	assert.Equal(t, int64(42), created.ReportedBy)
}

func TestCreateIncident_Rejected(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		json.NewEncoder(w).Encode(types.APIError{Message: "latitude out of range"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken("device-token"), nil)
	_, err := client.CreateIncident(context.Background(), types.CreateIncidentRequest{Title: "bad"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "latitude out of range")
}

func TestGetIncident(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/incidents/5", r.URL.Path)
		json.NewEncoder(w).Encode(types.Incident{ID: 5, Title: "fire"})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken(""), nil)
	incident, err := client.GetIncident(context.Background(), 5)
	require.NoError(t, err)
	assert.Equal(t, "fire", incident.Title)
}

func TestNearbyIncidents_QueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/incidents/nearby", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "-18.9", q.Get("latitude"))
		assert.Equal(t, "47.5", q.Get("longitude"))
		assert.Equal(t, "5", q.Get("radius"))
		json.NewEncoder(w).Encode([]types.Incident{{ID: 1}, {ID: 2}})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken(""), nil)
	incidents, err := client.NearbyIncidents(context.Background(), -18.9, 47.5, 5)
	require.NoError(t, err)
	assert.Len(t, incidents, 2)
}

func TestSendChatMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat", r.URL.Path)
		assert.Equal(t, "Bearer sender-token", r.Header.Get("Authorization"))

		var req types.CreateChatMessageRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(types.ChatMessage{
			ID:         3,
			IncidentID: req.IncidentID,
			UserID:     42,
			Message:    req.Message,
			CreatedAt:  time.Now().UTC(),
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken("sender-token"), nil)
	msg, err := client.SendChatMessage(context.Background(), types.CreateChatMessageRequest{
		IncidentID: 5,
		Message:    "on my way",
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), msg.ID)
	assert.Equal(t, int64(5), msg.IncidentID)
}

func TestChatHistory_ReversesToDisplayOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/incident/5", r.URL.Path)
		assert.Equal(t, "50", r.URL.Query().Get("limit"))

		// Newest first, as the service returns them.
		json.NewEncoder(w).Encode([]types.ChatMessage{
			{ID: 3, Message: "third"},
			{ID: 2, Message: "second"},
			{ID: 1, Message: "first"},
		})
	}))
	defer srv.Close()

	client := NewClient(srv.URL, StaticToken(""), nil)
	messages, err := client.ChatHistory(context.Background(), 5, 50)
	require.NoError(t, err)

	require.Len(t, messages, 3)
	assert.Equal(t, "first", messages[0].Message)
	assert.Equal(t, "second", messages[1].Message)
	assert.Equal(t, "third", messages[2].Message)
}
