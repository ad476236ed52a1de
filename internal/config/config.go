package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ab2005/whatsapp-mcp/internal/constants"
	"github.com/ab2005/whatsapp-mcp/internal/errors"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
)

// Config holds the resolved runtime configuration. All values come from
// the environment with documented defaults; the store schema itself is
// owned by the external bridge.
type Config struct {
	// Storage
	DatabasePath string
	MediaPath    string

	// Bridge REST API
	APIBaseURL string
	APITimeout time.Duration

	// Outbound send policy
	MaxFileSize      int64
	MaxMessageLength int
	AllowedFileTypes []string

	// Service surface
	ServerPort int

	// Observability
	LogLevel       string
	VerbosePrivacy bool
	TracingEnabled bool
	OTLPEndpoint   string
}

// Load reads configuration from the environment. A .env file is loaded
// first when present; a missing one is not an error.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DatabasePath:     getEnv("WHATSAPP_DB_PATH", constants.DefaultDatabasePath),
		MediaPath:        getEnv("WHATSAPP_MEDIA_PATH", constants.DefaultMediaPath),
		APIBaseURL:       getEnv("WHATSAPP_API_BASE_URL", constants.DefaultBridgeBaseURL),
		LogLevel:         getEnv("WHATSAPP_LOG_LEVEL", "INFO"),
		OTLPEndpoint:     getEnv("WHATSAPP_OTLP_ENDPOINT", ""),
		VerbosePrivacy:   getEnvBool("WHATSAPP_VERBOSE_PRIVACY", false),
		TracingEnabled:   getEnvBool("WHATSAPP_TRACING_ENABLED", false),
		AllowedFileTypes: splitFileTypes(getEnv("WHATSAPP_ALLOWED_FILE_TYPES", constants.DefaultAllowedFileTypes)),
	}

	timeoutSec, err := getEnvInt("WHATSAPP_API_TIMEOUT", constants.DefaultBridgeTimeoutSec)
	if err != nil {
		return nil, err
	}
	cfg.APITimeout = time.Duration(timeoutSec) * time.Second

	maxFileSize, err := getEnvInt("WHATSAPP_MAX_FILE_SIZE", constants.DefaultMaxFileSizeBytes)
	if err != nil {
		return nil, err
	}
	cfg.MaxFileSize = int64(maxFileSize)

	cfg.MaxMessageLength, err = getEnvInt("WHATSAPP_MAX_MESSAGE_LENGTH", constants.DefaultMaxMessageLength)
	if err != nil {
		return nil, err
	}

	cfg.ServerPort, err = getEnvInt("WHATSAPP_MCP_PORT", constants.DefaultServerPort)
	if err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the resolved values; a misconfigured service should
// fail at startup, not on the first request.
func (c *Config) Validate() error {
	if c.DatabasePath == "" {
		return errors.NewConfigError("WHATSAPP_DB_PATH", "database path cannot be empty")
	}
	if c.APIBaseURL == "" {
		return errors.NewConfigError("WHATSAPP_API_BASE_URL", "bridge API base URL cannot be empty")
	}
	if c.APITimeout <= 0 {
		return errors.NewConfigError("WHATSAPP_API_TIMEOUT", "API timeout must be positive")
	}
	if c.MaxFileSize <= 0 {
		return errors.NewConfigError("WHATSAPP_MAX_FILE_SIZE", "max file size must be positive")
	}
	if c.MaxMessageLength <= 0 {
		return errors.NewConfigError("WHATSAPP_MAX_MESSAGE_LENGTH", "max message length must be positive")
	}
	if len(c.AllowedFileTypes) == 0 {
		return errors.NewConfigError("WHATSAPP_ALLOWED_FILE_TYPES", "allowed file types cannot be empty")
	}
	if c.ServerPort < 1 || c.ServerPort > 65535 {
		return errors.NewConfigError("WHATSAPP_MCP_PORT", "port must be between 1 and 65535")
	}
	if _, err := logrus.ParseLevel(c.LogLevel); err != nil {
		return errors.NewConfigError("WHATSAPP_LOG_LEVEL", fmt.Sprintf("invalid log level: %s", c.LogLevel))
	}
	return nil
}

// ParsedLogLevel returns the logrus level for the configured value.
// Validate has already checked that it parses.
func (c *Config) ParsedLogLevel() logrus.Level {
	level, err := logrus.ParseLevel(c.LogLevel)
	if err != nil {
		return logrus.InfoLevel
	}
	return level
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	value := os.Getenv(key)
	if value == "" {
		return fallback, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, errors.NewConfigError(key, fmt.Sprintf("expected an integer, got %q", value))
	}
	return parsed, nil
}

func getEnvBool(key string, fallback bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return fallback
	}
	return parsed
}

func splitFileTypes(raw string) []string {
	parts := strings.Split(raw, ",")
	types := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.ToLower(strings.TrimSpace(p))
		if p != "" {
			types = append(types, p)
		}
	}
	return types
}
