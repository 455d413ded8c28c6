package relay

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"vigil/internal/constants"
	"vigil/internal/metrics"
	"vigil/pkg/incident"
	"vigil/pkg/incident/types"
	"vigil/pkg/relayclient"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
)

// ChatPersister is the slice of the incident service the hub writes
// chat messages through. Every broadcast message goes through it first;
// a message that cannot be persisted is never broadcast.
type ChatPersister interface {
	SendChatMessage(ctx context.Context, req types.CreateChatMessageRequest) (*types.ChatMessage, error)
}

// PersisterFactory builds a ChatPersister bound to one sender's
// credential, so chat writes carry the author's identity rather than a
// shared service account.
type PersisterFactory func(token string) ChatPersister

// NewRESTPersisterFactory builds persisters backed by the incident
// service REST API.
func NewRESTPersisterFactory(baseURL string, httpClient *http.Client, logger *logrus.Logger) PersisterFactory {
	return func(token string) ChatPersister {
		return incident.NewClientWithLogger(baseURL, incident.StaticToken(token), httpClient, logger)
	}
}

// Hub owns the room state of the relay: which sessions are members of
// which incident rooms, and the persist-then-broadcast path every chat
// message takes. Rooms are identified by server incident ID; locally
// queued incidents have no room until they are accepted.
type Hub struct {
	secret    []byte
	persister PersisterFactory
	heartbeat time.Duration
	logger    *logrus.Logger

	mu    sync.RWMutex
	rooms map[int64]map[*session]struct{}
	count int
}

func NewHub(secret []byte, persister PersisterFactory, heartbeat time.Duration, logger *logrus.Logger) *Hub {
	return &Hub{
		secret:    secret,
		persister: persister,
		heartbeat: heartbeat,
		logger:    logger,
		rooms:     make(map[int64]map[*session]struct{}),
	}
}

// HandleWebSocket authenticates and upgrades one relay connection, then
// serves it until the peer goes away. Authentication happens before the
// upgrade; an invalid credential never gets a socket.
func (h *Hub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	token := bearerFromRequest(r)
	if token == "" {
		http.Error(w, "missing credentials", http.StatusUnauthorized)
		return
	}

	claims, err := ParseToken(token, h.secret)
	if err != nil {
		h.logger.WithError(err).Warn("Rejected relay connection")
		http.Error(w, "invalid credentials", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		h.logger.WithError(err).Warn("WebSocket upgrade failed")
		return
	}
	conn.SetReadLimit(constants.DefaultRelayReadLimitBytes)

	sess := newSession(claims, token, conn, h.logger)
	h.addSession()
	defer h.dropSession(sess)

	sess.logger.Info("Relay session opened")
	metrics.IncrementCounter("relay_sessions_opened_total", nil, "Relay sessions accepted")

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	go func() {
		sess.writeLoop(ctx, h.heartbeat)
		// A dead writer means a dead connection; kick the reader out.
		conn.CloseNow()
	}()

	h.readLoop(ctx, sess, conn)

	conn.Close(websocket.StatusNormalClosure, "")
	sess.logger.Info("Relay session closed")
}

func (h *Hub) readLoop(ctx context.Context, sess *session, conn *websocket.Conn) {
	for {
		var env relayclient.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			return
		}

		switch env.Event {
		case relayclient.EventJoinIncident:
			h.handleJoin(sess, env.Data)
		case relayclient.EventSendMessage:
			h.handleSend(ctx, sess, env.Data)
		default:
			sess.logger.WithField("event", env.Event).Debug("Ignoring unknown relay event")
		}
	}
}

func (h *Hub) handleJoin(sess *session, data json.RawMessage) {
	var payload relayclient.JoinPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		sess.logger.WithError(err).Warn("Malformed join payload")
		return
	}
	if payload.IncidentID <= 0 {
		sess.logger.Warn("Rejected join with invalid incident ID")
		return
	}

	h.mu.Lock()
	members, ok := h.rooms[payload.IncidentID]
	if !ok {
		members = make(map[*session]struct{})
		h.rooms[payload.IncidentID] = members
	}
	members[sess] = struct{}{}
	h.mu.Unlock()

	sess.joinRoom(payload.IncidentID)
	sess.logger.WithField("incident_id", payload.IncidentID).Info("Session joined incident room")
}

// handleSend persists the message through the incident service and only
// then broadcasts it to the room, sender included. A message that fails
// to persist is dropped; the sender learns of it by never seeing the
// echo.
func (h *Hub) handleSend(ctx context.Context, sess *session, data json.RawMessage) {
	var payload relayclient.SendMessagePayload
	if err := json.Unmarshal(data, &payload); err != nil {
		sess.logger.WithError(err).Warn("Malformed chat payload")
		return
	}
	if !sess.inRoom(payload.IncidentID) {
		sess.logger.WithField("incident_id", payload.IncidentID).Warn("Dropped chat message for unjoined room")
		return
	}
	if payload.Message == "" {
		return
	}
	if payload.UserID != 0 && payload.UserID != sess.userID {
		sess.logger.WithField("claimed_user_id", payload.UserID).Debug("Ignoring user ID from payload")
	}

	saved, err := h.persister(sess.token).SendChatMessage(ctx, types.CreateChatMessageRequest{
		IncidentID: payload.IncidentID,
		Message:    payload.Message,
	})
	if err != nil {
		sess.logger.WithError(err).Error("Failed to persist chat message, not broadcasting")
		metrics.IncrementCounter("relay_messages_dropped_total", nil, "Chat messages dropped because persistence failed")
		return
	}

	msg := relayclient.NewMessagePayload{
		IncidentID: payload.IncidentID,
		UserID:     sess.userID,
		Username:   sess.username,
		Message:    payload.Message,
		Timestamp:  saved.CreatedAt,
	}
	if saved.Username != "" {
		msg.Username = saved.Username
	}
	if msg.Timestamp.IsZero() {
		msg.Timestamp = time.Now().UTC()
	}

	h.broadcast(payload.IncidentID, msg)
	metrics.IncrementCounter("relay_messages_total", nil, "Chat messages persisted and broadcast")
}

func (h *Hub) broadcast(incidentID int64, msg relayclient.NewMessagePayload) {
	env, err := relayclient.NewEnvelope(relayclient.EventNewMessage, msg)
	if err != nil {
		h.logger.WithError(err).Error("Failed to encode broadcast envelope")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for member := range h.rooms[incidentID] {
		member.enqueue(env)
	}
}

func (h *Hub) addSession() {
	h.mu.Lock()
	h.count++
	active := h.count
	h.mu.Unlock()
	metrics.SetGauge("relay_sessions_active", float64(active), nil, "Open relay sessions")
}

// dropSession reclaims all room memberships of a finished session.
func (h *Hub) dropSession(sess *session) {
	h.mu.Lock()
	for _, incidentID := range sess.roomIDs() {
		if members, ok := h.rooms[incidentID]; ok {
			delete(members, sess)
			if len(members) == 0 {
				delete(h.rooms, incidentID)
			}
		}
	}
	h.count--
	active := h.count
	h.mu.Unlock()
	metrics.SetGauge("relay_sessions_active", float64(active), nil, "Open relay sessions")
}

// SessionCount returns the number of open sessions.
func (h *Hub) SessionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.count
}

// RoomCount returns the number of rooms with at least one member.
func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// RoomMembers returns the number of sessions in one incident's room.
func (h *Hub) RoomMembers(incidentID int64) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[incidentID])
}
