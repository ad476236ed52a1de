package constants

// Validation bounds for caller-supplied input
const (
	MinPhoneNumberLength = 10
	MaxPhoneNumberLength = 15

	DefaultMaxMessageLength = 4096
	DefaultMaxFileSizeBytes = 100_000_000

	MinSearchLimit     = 1
	MaxSearchLimit     = 100
	DefaultSearchLimit = 20

	MaxContextMessages     = 50
	DefaultContextMessages = 5

	MaxSearchQueryLength = 100
)

// Default bridge configuration values
const (
	DefaultBridgeBaseURL    = "http://localhost:8080/api"
	DefaultBridgeTimeoutSec = 30
)

// Default storage configuration values
const (
	DefaultDatabasePath = "store/messages.db"
	DefaultMediaPath    = "store/media"
	DefaultMaxOpenConns = 10
	DefaultMaxIdleConns = 5
)

// DefaultAllowedFileTypes is the outbound file extension allowlist,
// comma separated, matching what the bridge accepts.
const DefaultAllowedFileTypes = "jpg,jpeg,png,gif,webp,mp4,mov,avi,mp3,wav,ogg,m4a,pdf,doc,docx,txt"

// Default server timeout values
const (
	DefaultServerPort            = 8081
	DefaultServerReadTimeoutSec  = 15
	DefaultServerWriteTimeoutSec = 15
	DefaultServerIdleTimeoutSec  = 60
	DefaultGracefulShutdownSec   = 30
	ServerErrorChannelSize       = 1
)

// Privacy settings
const (
	DefaultPhoneMaskLength = 4
	DefaultMessageIDLength = 8
)
