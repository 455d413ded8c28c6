package reward

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddPoints(t *testing.T) {
	var got addPointsRequest
	var gotAuth string

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/rewards/add-points", r.URL.Path)
		gotAuth = r.Header.Get("Authorization")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "secret-token", nil, nil)
	err := client.AddPoints(context.Background(), 42, ActionReportIncident)
	require.NoError(t, err)

	assert.Equal(t, "Bearer secret-token", gotAuth)
	assert.Equal(t, int64(42), got.UserID)
	assert.Equal(t, ActionReportIncident, got.ActionType)
	assert.Equal(t, 10, got.Points)
}

func TestAddPoints_UnknownAction(t *testing.T) {
	client := NewClient("http://localhost:9999", "", nil, nil)
	err := client.AddPoints(context.Background(), 42, "climb_mountain")
	assert.Error(t, err)
}

func TestAddPoints_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "", nil, nil)
	err := client.AddPoints(context.Background(), 42, ActionSendMessage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status 500")
}

func TestAddPoints_PointSchedule(t *testing.T) {
	assert.Equal(t, 10, pointsByAction[ActionReportIncident])
	assert.Equal(t, 5, pointsByAction[ActionJoinTeam])
	assert.Equal(t, 1, pointsByAction[ActionSendMessage])
}
