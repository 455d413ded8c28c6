package relayclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/sirupsen/logrus"
)

// State is the connection lifecycle of a relay client.
type State int32

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

const defaultReceiveBuffer = 64

// Client is a chat relay connection for one device. It is deliberately
// dumb: no reconnect, no send retry, no redelivery. A failed send or a
// dropped connection surfaces to the caller, who decides whether to
// dial again and re-join.
type Client struct {
	url    string
	token  string
	logger *logrus.Logger

	mu     sync.Mutex
	state  State
	dialed bool
	conn   *websocket.Conn
	joined map[int64]struct{}

	messages chan NewMessagePayload
	readWg   sync.WaitGroup
}

func NewClient(url, token string, logger *logrus.Logger) *Client {
	return &Client{
		url:      url,
		token:    token,
		logger:   logger,
		joined:   make(map[int64]struct{}),
		messages: make(chan NewMessagePayload, defaultReceiveBuffer),
	}
}

// Connect dials the relay, authenticating with the bearer token carried
// as connection metadata. Room membership starts empty.
func (c *Client) Connect(ctx context.Context) error {
	c.mu.Lock()
	if c.state != StateDisconnected {
		c.mu.Unlock()
		return fmt.Errorf("relay client is already %s", c.state)
	}
	if c.dialed {
		// The receive channel closes with the connection; a fresh
		// client is needed to dial again.
		c.mu.Unlock()
		return fmt.Errorf("relay client cannot be reused after disconnect")
	}
	c.state = StateConnecting
	c.mu.Unlock()

	header := http.Header{}
	if c.token != "" {
		header.Set("Authorization", "Bearer "+c.token)
	}

	conn, _, err := websocket.Dial(ctx, c.url, &websocket.DialOptions{
		HTTPHeader: header,
	})
	if err != nil {
		c.mu.Lock()
		c.state = StateDisconnected
		c.mu.Unlock()
		return fmt.Errorf("failed to dial relay: %w", err)
	}

	c.mu.Lock()
	c.conn = conn
	c.state = StateConnected
	c.dialed = true
	c.joined = make(map[int64]struct{})
	c.mu.Unlock()

	c.readWg.Add(1)
	go c.readLoop(conn)

	c.logger.WithField("url", c.url).Info("Connected to chat relay")
	return nil
}

// Join subscribes this connection to one incident's room. Messages for
// rooms never joined are not delivered.
func (c *Client) Join(ctx context.Context, incidentID int64) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}

	env, err := NewEnvelope(EventJoinIncident, JoinPayload{IncidentID: incidentID})
	if err != nil {
		return err
	}
	if err := wsjson.Write(ctx, conn, env); err != nil {
		return fmt.Errorf("failed to join incident %d: %w", incidentID, err)
	}

	c.mu.Lock()
	c.joined[incidentID] = struct{}{}
	c.mu.Unlock()

	c.logger.WithField("incident_id", incidentID).Debug("Joined incident room")
	return nil
}

// Send pushes one chat message at the relay. There is exactly one
// attempt; the relay echoes the message back as a new-message event once
// it is persisted, and only then should it be rendered.
func (c *Client) Send(ctx context.Context, incidentID, userID int64, message string) error {
	conn, err := c.connection()
	if err != nil {
		return err
	}

	c.mu.Lock()
	_, member := c.joined[incidentID]
	c.mu.Unlock()
	if !member {
		return fmt.Errorf("not joined to incident %d", incidentID)
	}

	env, err := NewEnvelope(EventSendMessage, SendMessagePayload{
		IncidentID: incidentID,
		UserID:     userID,
		Message:    message,
	})
	if err != nil {
		return err
	}
	if err := wsjson.Write(ctx, conn, env); err != nil {
		return fmt.Errorf("failed to send chat message: %w", err)
	}
	return nil
}

// Messages delivers broadcast chat events. The channel closes when the
// connection ends, however that happens.
func (c *Client) Messages() <-chan NewMessagePayload {
	return c.messages
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// Close tears the connection down. Safe to call in any state.
func (c *Client) Close() error {
	c.mu.Lock()
	conn := c.conn
	c.conn = nil
	c.state = StateDisconnected
	c.mu.Unlock()

	if conn == nil {
		return nil
	}
	err := conn.Close(websocket.StatusNormalClosure, "client closing")
	c.readWg.Wait()
	return err
}

func (c *Client) connection() (*websocket.Conn, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected || c.conn == nil {
		return nil, fmt.Errorf("relay client is %s", c.state)
	}
	return c.conn, nil
}

func (c *Client) readLoop(conn *websocket.Conn) {
	defer c.readWg.Done()
	defer close(c.messages)

	ctx := context.Background()
	for {
		var env Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			c.mu.Lock()
			wasConnected := c.state == StateConnected
			c.conn = nil
			c.state = StateDisconnected
			c.mu.Unlock()

			if wasConnected {
				c.logger.WithError(err).Warn("Relay connection lost")
			}
			return
		}

		if env.Event != EventNewMessage {
			c.logger.WithField("event", env.Event).Debug("Ignoring unexpected relay event")
			continue
		}

		var msg NewMessagePayload
		if err := json.Unmarshal(env.Data, &msg); err != nil {
			c.logger.WithError(err).Warn("Failed to decode chat message payload")
			continue
		}

		select {
		case c.messages <- msg:
		default:
			c.logger.WithField("incident_id", msg.IncidentID).Warn("Receive buffer full, dropping chat message")
		}
	}
}
