package relayclient

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.FatalLevel)
	return logger
}

func TestClient_StartsDisconnected(t *testing.T) {
	c := NewClient("ws://localhost:8090/ws", "token", testLogger())
	assert.Equal(t, StateDisconnected, c.State())
}

func TestClient_OperationsRequireConnection(t *testing.T) {
	c := NewClient("ws://localhost:8090/ws", "token", testLogger())
	ctx := context.Background()

	assert.Error(t, c.Join(ctx, 5))
	assert.Error(t, c.Send(ctx, 5, 1, "hello"))
	assert.NoError(t, c.Close())
}

func TestClient_ConnectFailureResetsState(t *testing.T) {
	c := NewClient("ws://127.0.0.1:1/ws", "token", testLogger())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	err := c.Connect(ctx)
	require.Error(t, err)
	assert.Equal(t, StateDisconnected, c.State())
}

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(EventJoinIncident, JoinPayload{IncidentID: 7})
	require.NoError(t, err)
	assert.Equal(t, EventJoinIncident, env.Event)

	var payload JoinPayload
	require.NoError(t, json.Unmarshal(env.Data, &payload))
	assert.Equal(t, int64(7), payload.IncidentID)
}

func TestState_String(t *testing.T) {
	assert.Equal(t, "disconnected", StateDisconnected.String())
	assert.Equal(t, "connecting", StateConnecting.String())
	assert.Equal(t, "connected", StateConnected.String())
}
