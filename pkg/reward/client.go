package reward

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// Action types recognized by the reward service.
const (
	ActionReportIncident = "report_incident"
	ActionJoinTeam       = "join_team"
	ActionSendMessage    = "send_message"
)

// pointsByAction mirrors the reward schedule of the service.
var pointsByAction = map[string]int{
	ActionReportIncident: 10,
	ActionJoinTeam:       5,
	ActionSendMessage:    1,
}

// Client awards points for user actions. Calls are fire-and-forget from
// the caller's perspective: failures are logged and swallowed upstream,
// never rolled back into a sync outcome.
type Client interface {
	AddPoints(ctx context.Context, userID int64, actionType string) error
}

type rewardClient struct {
	baseURL string
	token   string
	client  *http.Client
	logger  *logrus.Logger
}

type addPointsRequest struct {
	UserID     int64  `json:"user_id"`
	ActionType string `json:"action_type"`
	Points     int    `json:"points"`
}

// NewClient creates a reward service client.
func NewClient(baseURL, authToken string, httpClient *http.Client, logger *logrus.Logger) Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if logger == nil {
		logger = logrus.New()
		logger.SetLevel(logrus.WarnLevel)
	}

	return &rewardClient{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		token:   authToken,
		client:  httpClient,
		logger:  logger,
	}
}

func (c *rewardClient) AddPoints(ctx context.Context, userID int64, actionType string) error {
	points, ok := pointsByAction[actionType]
	if !ok {
		return fmt.Errorf("unknown reward action type: %s", actionType)
	}

	payload := addPointsRequest{
		UserID:     userID,
		ActionType: actionType,
		Points:     points,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	endpoint := c.baseURL + "/rewards/add-points"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("reward API error: status %d, body: %s", resp.StatusCode, string(bodyBytes))
	}

	c.logger.WithFields(logrus.Fields{
		"user_id": userID,
		"action":  actionType,
		"points":  points,
	}).Debug("Reward points recorded")

	return nil
}
