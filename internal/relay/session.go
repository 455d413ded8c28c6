package relay

import (
	"context"
	"sync"
	"time"

	"vigil/internal/constants"
	"vigil/pkg/relayclient"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// session is one authenticated relay connection. Outbound traffic goes
// through a buffered queue drained by a single writer goroutine; a
// session too slow to drain its queue loses messages rather than
// stalling the hub.
type session struct {
	id       string
	userID   int64
	username string
	token    string
	conn     *websocket.Conn
	logger   *logrus.Entry

	send chan relayclient.Envelope

	mu    sync.Mutex
	rooms map[int64]struct{}
}

func newSession(claims *Claims, token string, conn *websocket.Conn, logger *logrus.Logger) *session {
	id := uuid.New().String()
	return &session{
		id:       id,
		userID:   claims.UserID,
		username: claims.Username,
		token:    token,
		conn:     conn,
		logger: logger.WithFields(logrus.Fields{
			"session_id": id,
			"user_id":    claims.UserID,
		}),
		send:  make(chan relayclient.Envelope, constants.DefaultSessionSendQueue),
		rooms: make(map[int64]struct{}),
	}
}

// enqueue hands an envelope to the writer goroutine without blocking.
func (s *session) enqueue(env relayclient.Envelope) {
	select {
	case s.send <- env:
	default:
		s.logger.Warn("Session send queue full, dropping message")
	}
}

func (s *session) joinRoom(incidentID int64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rooms[incidentID] = struct{}{}
}

func (s *session) inRoom(incidentID int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.rooms[incidentID]
	return ok
}

func (s *session) roomIDs() []int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make([]int64, 0, len(s.rooms))
	for id := range s.rooms {
		ids = append(ids, id)
	}
	return ids
}

// writeLoop drains the send queue onto the wire and keeps the
// connection alive with pings. It exits when ctx is cancelled or a
// write fails; either way the connection is finished.
func (s *session) writeLoop(ctx context.Context, heartbeat time.Duration) {
	ticker := time.NewTicker(heartbeat)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case env := <-s.send:
			writeCtx, cancel := context.WithTimeout(ctx, constants.DefaultProbeTimeoutSec*time.Second)
			err := wsjson.Write(writeCtx, s.conn, env)
			cancel()
			if err != nil {
				s.logger.WithError(err).Debug("Session write failed")
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, constants.DefaultProbeTimeoutSec*time.Second)
			err := s.conn.Ping(pingCtx)
			cancel()
			if err != nil {
				s.logger.WithError(err).Debug("Session heartbeat failed")
				return
			}
		}
	}
}
