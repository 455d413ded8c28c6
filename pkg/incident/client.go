package incident

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"vigil/pkg/incident/types"

	"github.com/sirupsen/logrus"
)

// TokenSource supplies the bearer credential attached to authenticated
// requests. It is consulted per call so a refreshed token is picked up
// without rebuilding the client.
type TokenSource interface {
	Token() string
}

// StaticToken is a TokenSource backed by a fixed string.
type StaticToken string

func (t StaticToken) Token() string { return string(t) }

// Client is the consumer contract for the incident service REST API.
type Client interface {
	CreateIncident(ctx context.Context, req types.CreateIncidentRequest) (*types.Incident, error)
	GetIncident(ctx context.Context, id int64) (*types.Incident, error)
	NearbyIncidents(ctx context.Context, latitude, longitude, radiusKm float64) ([]types.Incident, error)
	SendChatMessage(ctx context.Context, req types.CreateChatMessageRequest) (*types.ChatMessage, error)
	ChatHistory(ctx context.Context, incidentID int64, limit int) ([]types.ChatMessage, error)
}

type incidentClient struct {
	baseURL string
	tokens  TokenSource
	client  *http.Client
	logger  *logrus.Logger
}

// NewClient creates an incident service client.
func NewClient(baseURL string, tokens TokenSource, httpClient *http.Client) Client {
	return NewClientWithLogger(baseURL, tokens, httpClient, nil)
}

func NewClientWithLogger(baseURL string, tokens TokenSource, httpClient *http.Client, logger *logrus.Logger) Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &incidentClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		tokens:  tokens,
		client:  httpClient,
		logger:  logger,
	}
}

func (c *incidentClient) CreateIncident(ctx context.Context, req types.CreateIncidentRequest) (*types.Incident, error) {
	var incident types.Incident
	if err := c.do(ctx, http.MethodPost, "/incidents", req, &incident, true); err != nil {
		return nil, err
	}
	return &incident, nil
}

func (c *incidentClient) GetIncident(ctx context.Context, id int64) (*types.Incident, error) {
	var incident types.Incident
	path := fmt.Sprintf("/incidents/%d", id)
	if err := c.do(ctx, http.MethodGet, path, nil, &incident, false); err != nil {
		return nil, err
	}
	return &incident, nil
}

func (c *incidentClient) NearbyIncidents(ctx context.Context, latitude, longitude, radiusKm float64) ([]types.Incident, error) {
	query := url.Values{}
	query.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	query.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	query.Set("radius", strconv.FormatFloat(radiusKm, 'f', -1, 64))

	var incidents []types.Incident
	path := "/incidents/nearby?" + query.Encode()
	if err := c.do(ctx, http.MethodGet, path, nil, &incidents, false); err != nil {
		return nil, err
	}
	return incidents, nil
}

func (c *incidentClient) SendChatMessage(ctx context.Context, req types.CreateChatMessageRequest) (*types.ChatMessage, error) {
	var message types.ChatMessage
	if err := c.do(ctx, http.MethodPost, "/chat", req, &message, true); err != nil {
		return nil, err
	}
	return &message, nil
}

// ChatHistory fetches the most recent messages for an incident. The
// service returns them newest first; they are reversed here so callers
// get display order, oldest first.
func (c *incidentClient) ChatHistory(ctx context.Context, incidentID int64, limit int) ([]types.ChatMessage, error) {
	path := fmt.Sprintf("/chat/incident/%d", incidentID)
	if limit > 0 {
		path += fmt.Sprintf("?limit=%d", limit)
	}

	var messages []types.ChatMessage
	if err := c.do(ctx, http.MethodGet, path, nil, &messages, false); err != nil {
		return nil, err
	}

	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

func (c *incidentClient) do(ctx context.Context, method, path string, body, out interface{}, authed bool) error {
	var reqBody io.Reader
	if body != nil {
		jsonData, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reqBody = bytes.NewBuffer(jsonData)
	}

	endpoint := c.baseURL + path
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if authed {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}

	c.logger.WithFields(logrus.Fields{
		"method":   method,
		"endpoint": endpoint,
	}).Debug("Sending incident service request")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		var apiErr types.APIError
		if json.Unmarshal(bodyBytes, &apiErr) == nil && apiErr.Message != "" {
			return fmt.Errorf("incident API error: status %d, message: %s", resp.StatusCode, apiErr.Message)
		}
		return fmt.Errorf("incident API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
