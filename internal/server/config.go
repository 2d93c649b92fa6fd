// Package server provides configuration helpers that define runtime defaults
// and environment overrides for the relay.
package server

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultPort           = 8080
	defaultMaxMessageSize = 64 * 1024
	defaultSendBufferSize = 256
)

// Config holds everything a Hub and its listener need. It is treated as
// immutable once the server starts.
type Config struct {
	Port         int
	KeyFile      string
	CertFile     string
	PasswordHash string

	AllowedOrigins []string
	MaxMessageSize int64
	SendBufferSize int
	// AuthTimeout bounds how long a connection may stay unauthenticated.
	// Zero waits for as long as the connection stays alive.
	AuthTimeout time.Duration
}

// Addr returns the listen address for Port.
func (c Config) Addr() string {
	return ":" + strconv.Itoa(c.Port)
}

// TLSEnabled reports whether the listener should be TLS-wrapped.
func (c Config) TLSEnabled() bool {
	return c.KeyFile != "" && c.CertFile != ""
}

func defaultConfig() Config {
	return Config{
		Port:           defaultPort,
		AllowedOrigins: []string{"*"},
		MaxMessageSize: defaultMaxMessageSize,
		SendBufferSize: defaultSendBufferSize,
	}
}

func sanitizeConfig(cfg Config) Config {
	if cfg.Port <= 0 {
		cfg.Port = defaultPort
	}

	if cfg.MaxMessageSize <= 0 {
		cfg.MaxMessageSize = defaultMaxMessageSize
	}

	if cfg.SendBufferSize <= 0 {
		cfg.SendBufferSize = defaultSendBufferSize
	}

	if cfg.AuthTimeout < 0 {
		cfg.AuthTimeout = 0
	}

	if cfg.AllowedOrigins == nil {
		cfg.AllowedOrigins = []string{"*"}
	} else {
		cfg.AllowedOrigins = append([]string(nil), cfg.AllowedOrigins...)
	}

	return cfg
}

// NewConfig creates a Config instance populated with default values for all settings.
func NewConfig() *Config {
	cfg := defaultConfig()
	return &cfg
}

// NewConfigFromEnv creates a Config instance from environment variables.
// Falls back to default values if environment variables are not set.
func NewConfigFromEnv() *Config {
	cfg := defaultConfig()

	if port := os.Getenv("SERVER_PORT"); port != "" {
		cfg.Port = parseIntValue(strings.TrimPrefix(port, ":"), cfg.Port)
	}

	applyEnv(&cfg)
	return &cfg
}

// applyEnv overrides the tuning fields of cfg from the environment. Fields
// that come from the config file are left alone.
func applyEnv(cfg *Config) {
	if origins := os.Getenv("ALLOWED_ORIGINS"); origins != "" {
		cfg.AllowedOrigins = parseOrigins(origins)
	}

	if maxSize := os.Getenv("MAX_MESSAGE_SIZE"); maxSize != "" {
		cfg.MaxMessageSize = parseMaxMessageSize(maxSize, cfg.MaxMessageSize)
	}

	if size := os.Getenv("SEND_BUFFER_SIZE"); size != "" {
		cfg.SendBufferSize = parseIntValue(size, cfg.SendBufferSize)
	}

	if timeout := os.Getenv("AUTH_TIMEOUT"); timeout != "" {
		cfg.AuthTimeout = parseSeconds(timeout, cfg.AuthTimeout)
	}
}

func parseOrigins(origins string) []string {
	parts := strings.Split(origins, ",")
	for i := range parts {
		parts[i] = strings.TrimSpace(parts[i])
	}
	return parts
}

func parseMaxMessageSize(value string, defaultValue int64) int64 {
	if size, err := strconv.ParseInt(value, 10, 64); err == nil && size > 0 {
		return size
	}
	return defaultValue
}

func parseIntValue(value string, defaultValue int) int {
	if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
		return parsed
	}
	return defaultValue
}

func parseSeconds(value string, defaultValue time.Duration) time.Duration {
	if seconds, err := strconv.Atoi(value); err == nil && seconds >= 0 {
		return time.Duration(seconds) * time.Second
	}
	return defaultValue
}
