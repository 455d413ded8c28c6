package constants

// Default sync configuration values
const (
	DefaultConnectivityTickSec = 10
	DefaultSyncMaxAgeMinutes   = 30
	DefaultNearbyRadiusKm      = 5
	DefaultRetryBackoffMs      = 1000
	DefaultMaxBackoffMs        = 60000
	DefaultStoreRetryAttempts  = 3
)

// Default relay configuration values
const (
	DefaultRelayPort           = 8090
	DefaultAgentPort           = 8091
	DefaultChatHistoryLimit    = 50
	DefaultSessionSendQueue    = 32
	DefaultRelayReadLimitBytes = 32768
	DefaultHeartbeatSec        = 30
)

// Default timeout values
const (
	DefaultHTTPTimeoutSec         = 30
	DefaultProbeTimeoutSec        = 5
	DefaultGracefulShutdownSec    = 30
	DefaultServerReadTimeoutSec   = 15
	DefaultServerWriteTimeoutSec  = 15
	DefaultServerIdleTimeoutSec   = 60
	DefaultServerErrorChannelSize = 1
)

// Encryption parameters for the local store
const (
	EncryptionSalt       = "vigil-store-salt-v1"
	EncryptionLookupSalt = "vigil-lookup-salt-v1"
)
