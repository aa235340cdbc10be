// Package config loads runtime tunables for the vault core and its
// command-line host from environment variables, applying sane defaults and
// returning descriptive errors for invalid overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	// DefaultRemoteBaseURL is the default base URL for the remote object-store API.
	DefaultRemoteBaseURL = "https://app.example.com/api/v2.1"
	// DefaultEventStreamURL is the default WebSocket endpoint for server push events.
	DefaultEventStreamURL = "wss://app.example.com/eventstream"
	// DefaultPingInterval is the default for Config.PingInterval. The
	// event-stream service does not read that setting; it pings on its own
	// fixed 30s interval.
	DefaultPingInterval = 30 * time.Second
	// DefaultReconnectBackoffMin is the default for Config.ReconnectBackoffMin.
	// The event-stream service does not read that setting; its reconnect
	// backoff starts at a fixed 500ms.
	DefaultReconnectBackoffMin = 500 * time.Millisecond
	// DefaultReconnectBackoffMax is the default for Config.ReconnectBackoffMax.
	// The event-stream service does not read that setting; its reconnect
	// backoff is capped at a fixed 30s.
	DefaultReconnectBackoffMax = 30 * time.Second
	// DefaultTransferConcurrency bounds how many uploads/downloads run at once.
	DefaultTransferConcurrency = 4
	// DefaultTransferMaxAttempts caps retries for a single retriable transfer.
	DefaultTransferMaxAttempts = 5
	// DefaultAutoLockSweepInterval controls how often the auto-lock sweeper runs.
	DefaultAutoLockSweepInterval = time.Second
	// DefaultHTTPTimeout bounds a single outbound HTTP request.
	DefaultHTTPTimeout = 30 * time.Second

	// DefaultLogLevel controls verbosity for vault core logs.
	DefaultLogLevel = "info"
	// DefaultLogPath is where structured logs are written.
	DefaultLogPath = "vaultcore.log"
	// DefaultLogMaxSizeMB caps the size of a single log file before rotation.
	DefaultLogMaxSizeMB = 100
	// DefaultLogMaxBackups limits retained rotated log files.
	DefaultLogMaxBackups = 10
	// DefaultLogMaxAgeDays controls how long rotated log files are kept on disk.
	DefaultLogMaxAgeDays = 7
	// DefaultLogCompress toggles gzip compression for rotated log files.
	DefaultLogCompress = true
)

// Config captures all runtime tunables for the vault core.
type Config struct {
	RemoteBaseURL        string
	EventStreamURL       string
	PingInterval         time.Duration
	ReconnectBackoffMin  time.Duration
	ReconnectBackoffMax  time.Duration
	TransferConcurrency  int
	TransferMaxAttempts  int
	AutoLockSweepInterval time.Duration
	HTTPTimeout          time.Duration

	OAuthTokenURL     string
	OAuthClientID     string
	OAuthClientSecret string

	Logging LoggingConfig
}

// LoggingConfig captures structured logging configuration options.
type LoggingConfig struct {
	Level      string
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// Load reads the vault core configuration from environment variables, applying
// sane defaults and returning descriptive errors for invalid overrides.
func Load() (*Config, error) {
	cfg := &Config{
		RemoteBaseURL:         getString("VAULT_REMOTE_BASE_URL", DefaultRemoteBaseURL),
		EventStreamURL:        getString("VAULT_EVENTSTREAM_URL", DefaultEventStreamURL),
		PingInterval:          DefaultPingInterval,
		ReconnectBackoffMin:   DefaultReconnectBackoffMin,
		ReconnectBackoffMax:   DefaultReconnectBackoffMax,
		TransferConcurrency:   DefaultTransferConcurrency,
		TransferMaxAttempts:   DefaultTransferMaxAttempts,
		AutoLockSweepInterval: DefaultAutoLockSweepInterval,
		HTTPTimeout:           DefaultHTTPTimeout,
		OAuthTokenURL:         getString("VAULT_OAUTH_TOKEN_URL", ""),
		OAuthClientID:         getString("VAULT_OAUTH_CLIENT_ID", ""),
		OAuthClientSecret:     getString("VAULT_OAUTH_CLIENT_SECRET", ""),
		Logging: LoggingConfig{
			Level:      strings.TrimSpace(getString("VAULT_LOG_LEVEL", DefaultLogLevel)),
			Path:       strings.TrimSpace(getString("VAULT_LOG_PATH", DefaultLogPath)),
			MaxSizeMB:  DefaultLogMaxSizeMB,
			MaxBackups: DefaultLogMaxBackups,
			MaxAgeDays: DefaultLogMaxAgeDays,
			Compress:   DefaultLogCompress,
		},
	}

	var problems []string

	if raw := strings.TrimSpace(os.Getenv("VAULT_PING_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("VAULT_PING_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.PingInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("VAULT_RECONNECT_BACKOFF_MIN")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("VAULT_RECONNECT_BACKOFF_MIN must be a positive duration, got %q", raw))
		} else {
			cfg.ReconnectBackoffMin = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("VAULT_RECONNECT_BACKOFF_MAX")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("VAULT_RECONNECT_BACKOFF_MAX must be a positive duration, got %q", raw))
		} else {
			cfg.ReconnectBackoffMax = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("VAULT_TRANSFER_CONCURRENCY")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("VAULT_TRANSFER_CONCURRENCY must be a positive integer, got %q", raw))
		} else {
			cfg.TransferConcurrency = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("VAULT_TRANSFER_MAX_ATTEMPTS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("VAULT_TRANSFER_MAX_ATTEMPTS must be a positive integer, got %q", raw))
		} else {
			cfg.TransferMaxAttempts = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("VAULT_HTTP_TIMEOUT")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("VAULT_HTTP_TIMEOUT must be a positive duration, got %q", raw))
		} else {
			cfg.HTTPTimeout = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("VAULT_AUTO_LOCK_SWEEP_INTERVAL")); raw != "" {
		duration, err := time.ParseDuration(raw)
		if err != nil || duration <= 0 {
			problems = append(problems, fmt.Sprintf("VAULT_AUTO_LOCK_SWEEP_INTERVAL must be a positive duration, got %q", raw))
		} else {
			cfg.AutoLockSweepInterval = duration
		}
	}

	if raw := strings.TrimSpace(os.Getenv("VAULT_LOG_MAX_SIZE_MB")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value <= 0 {
			problems = append(problems, fmt.Sprintf("VAULT_LOG_MAX_SIZE_MB must be a positive integer, got %q", raw))
		} else {
			cfg.Logging.MaxSizeMB = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("VAULT_LOG_MAX_BACKUPS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("VAULT_LOG_MAX_BACKUPS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxBackups = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("VAULT_LOG_MAX_AGE_DAYS")); raw != "" {
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			problems = append(problems, fmt.Sprintf("VAULT_LOG_MAX_AGE_DAYS must be a non-negative integer, got %q", raw))
		} else {
			cfg.Logging.MaxAgeDays = value
		}
	}

	if raw := strings.TrimSpace(os.Getenv("VAULT_LOG_COMPRESS")); raw != "" {
		value, err := strconv.ParseBool(raw)
		if err != nil {
			problems = append(problems, fmt.Sprintf("VAULT_LOG_COMPRESS must be a boolean value, got %q", raw))
		} else {
			cfg.Logging.Compress = value
		}
	}

	if cfg.ReconnectBackoffMax < cfg.ReconnectBackoffMin {
		problems = append(problems, "VAULT_RECONNECT_BACKOFF_MAX must be >= VAULT_RECONNECT_BACKOFF_MIN")
	}

	if len(problems) > 0 {
		return nil, fmt.Errorf(strings.Join(problems, "; "))
	}

	return cfg, nil
}

func getString(key, fallback string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return fallback
}
