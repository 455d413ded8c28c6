package models

import "fmt"

// ConfigError indicates an invalid or incomplete configuration.
type ConfigError struct {
	Message string
}

func (e ConfigError) Error() string {
	return fmt.Sprintf("config error: %s", e.Message)
}

// Config is the top-level configuration shared by the agent and relay
// binaries. Each binary reads the sections it needs.
type Config struct {
	LogLevel        string                `json:"log_level"`
	IncidentService IncidentServiceConfig `json:"incident_service"`
	Reward          RewardConfig          `json:"reward"`
	Store           StoreConfig           `json:"store"`
	Sync            SyncConfig            `json:"sync"`
	Agent           AgentConfig           `json:"agent"`
	Relay           RelayConfig           `json:"relay"`
	Retry           RetryConfig           `json:"retry"`
	Tracing         TracingConfig         `json:"tracing"`
}

// IncidentServiceConfig points at the remote incident REST service.
type IncidentServiceConfig struct {
	BaseURL    string `json:"base_url"`
	TimeoutSec int    `json:"timeout_sec"`
}

// RewardConfig points at the reward service. Reward calls are
// fire-and-forget; disabling them only skips the call.
type RewardConfig struct {
	BaseURL string `json:"base_url"`
	Enabled bool   `json:"enabled"`
}

// StoreConfig configures the device-local durable store.
type StoreConfig struct {
	Path string `json:"path"`
}

// SyncConfig configures the connectivity monitor and sync engine.
type SyncConfig struct {
	TickIntervalSec int     `json:"tick_interval_sec"`
	MaxAgeMinutes   int     `json:"max_age_minutes"`
	ProbeURL        string  `json:"probe_url"`
	NearbyRadiusKm  float64 `json:"nearby_radius_km"`
}

// AgentConfig configures the device-side daemon, including the fixed
// location used for nearby-incident refreshes.
type AgentConfig struct {
	Port      int     `json:"port"`
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// RelayConfig configures the chat relay server.
type RelayConfig struct {
	Port         int    `json:"port"`
	HeartbeatSec int    `json:"heartbeat_sec"`
	JWTSecret    string `json:"-"`
}

// RetryConfig bounds the exponential backoff used for store startup.
type RetryConfig struct {
	InitialBackoffMs int `json:"initial_backoff_ms"`
	MaxBackoffMs     int `json:"max_backoff_ms"`
	MaxAttempts      int `json:"max_attempts"`
}

// TracingConfig mirrors the OpenTelemetry setup options.
type TracingConfig struct {
	ServiceName    string  `json:"service_name"`
	ServiceVersion string  `json:"service_version"`
	Environment    string  `json:"environment"`
	OTLPEndpoint   string  `json:"otlp_endpoint"`
	SampleRate     float64 `json:"sample_rate"`
	Enabled        bool    `json:"enabled"`
	UseStdout      bool    `json:"use_stdout"`
}
