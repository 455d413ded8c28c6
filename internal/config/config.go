package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"vigil/internal/constants"
	"vigil/internal/models"
)

var (
	ErrMissingIncidentURL = models.ConfigError{Message: "missing incident service URL"}
	ErrMissingStorePath   = models.ConfigError{Message: "missing local store path"}
)

// LoadConfig reads a JSON config file, fills defaults, and applies
// environment overrides. Secrets are env-only; they never appear in the
// file.
func LoadConfig(path string) (*models.Config, error) {
	if err := validatePath(path); err != nil {
		return nil, fmt.Errorf("invalid config path: %w", err)
	}

	file, err := os.ReadFile(path) // #nosec G304 - path validated above
	if err != nil {
		return nil, err
	}

	var config models.Config
	if err := json.Unmarshal(file, &config); err != nil {
		return nil, err
	}

	if err := validate(&config); err != nil {
		return nil, err
	}

	applyEnvironmentOverrides(&config)

	return &config, nil
}

func validatePath(path string) error {
	if path == "" {
		return fmt.Errorf("path is empty")
	}
	if strings.Contains(path, "..") {
		return fmt.Errorf("path contains directory traversal")
	}
	return nil
}

func validate(c *models.Config) error {
	if c.IncidentService.BaseURL == "" {
		return ErrMissingIncidentURL
	}
	if c.Store.Path == "" {
		return ErrMissingStorePath
	}

	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.IncidentService.TimeoutSec <= 0 {
		c.IncidentService.TimeoutSec = constants.DefaultHTTPTimeoutSec
	}
	if c.Sync.TickIntervalSec <= 0 {
		c.Sync.TickIntervalSec = constants.DefaultConnectivityTickSec
	}
	if c.Sync.MaxAgeMinutes <= 0 {
		c.Sync.MaxAgeMinutes = constants.DefaultSyncMaxAgeMinutes
	}
	if c.Sync.ProbeURL == "" {
		c.Sync.ProbeURL = c.IncidentService.BaseURL
	}
	if c.Sync.NearbyRadiusKm <= 0 {
		c.Sync.NearbyRadiusKm = constants.DefaultNearbyRadiusKm
	}
	if c.Agent.Port <= 0 {
		c.Agent.Port = constants.DefaultAgentPort
	}
	if c.Relay.Port <= 0 {
		c.Relay.Port = constants.DefaultRelayPort
	}
	if c.Relay.HeartbeatSec <= 0 {
		c.Relay.HeartbeatSec = constants.DefaultHeartbeatSec
	}
	if c.Retry.InitialBackoffMs <= 0 {
		c.Retry.InitialBackoffMs = constants.DefaultRetryBackoffMs
	}
	if c.Retry.MaxBackoffMs <= 0 {
		c.Retry.MaxBackoffMs = constants.DefaultMaxBackoffMs
	}
	if c.Retry.MaxAttempts <= 0 {
		c.Retry.MaxAttempts = constants.DefaultStoreRetryAttempts
	}
	return nil
}

func applyEnvironmentOverrides(c *models.Config) {
	if url := os.Getenv("VIGIL_INCIDENT_API_URL"); url != "" {
		c.IncidentService.BaseURL = url
	}
	if url := os.Getenv("VIGIL_REWARD_API_URL"); url != "" {
		c.Reward.BaseURL = url
	}
	if path := os.Getenv("VIGIL_STORE_PATH"); path != "" {
		c.Store.Path = path
	}
	if level := os.Getenv("VIGIL_LOG_LEVEL"); level != "" {
		c.LogLevel = level
	}
	if port := os.Getenv("VIGIL_AGENT_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Agent.Port = p
		}
	}
	if port := os.Getenv("VIGIL_RELAY_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil && p > 0 {
			c.Relay.Port = p
		}
	}

	// Secrets are env-only.
	if secret := os.Getenv("VIGIL_RELAY_JWT_SECRET"); secret != "" {
		c.Relay.JWTSecret = secret
	}
}
