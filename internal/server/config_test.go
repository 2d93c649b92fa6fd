package server

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseConfigValid(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		wantPort int
		wantTLS  bool
		wantHash string
	}{
		{
			name:     "plain listener without password",
			json:     `{"port": 9000, "key": "", "cert": ""}`,
			wantPort: 9000,
		},
		{
			name:     "tls listener with password",
			json:     `{"port": 8443, "key": "server.key", "cert": "server.crt", "passwordHash": "abc"}`,
			wantPort: 8443,
			wantTLS:  true,
			wantHash: "abc",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.json))
			if err != nil {
				t.Fatalf("ParseConfig returned error: %v", err)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("Expected port %d, got %d", tt.wantPort, cfg.Port)
			}
			if cfg.TLSEnabled() != tt.wantTLS {
				t.Errorf("Expected TLS %v, got %v", tt.wantTLS, cfg.TLSEnabled())
			}
			if cfg.PasswordHash != tt.wantHash {
				t.Errorf("Expected hash %q, got %q", tt.wantHash, cfg.PasswordHash)
			}
			if cfg.MaxMessageSize != defaultMaxMessageSize {
				t.Errorf("Expected default max message size, got %d", cfg.MaxMessageSize)
			}
		})
	}
}

func TestParseConfigRejectsMalformed(t *testing.T) {
	tests := []struct {
		name    string
		json    string
		wantErr string
	}{
		{name: "missing cert", json: `{"port": 1, "key": ""}`, wantErr: "missing required fields: cert"},
		{name: "missing everything", json: `{}`, wantErr: "missing required fields: cert, key, port"},
		{name: "extra key", json: `{"port": 1, "key": "", "cert": "", "debug": true}`, wantErr: "debug"},
		{name: "port as string", json: `{"port": "8080", "key": "", "cert": ""}`, wantErr: "port"},
		{name: "fractional port", json: `{"port": 80.5, "key": "", "cert": ""}`, wantErr: "integer"},
		{name: "port out of range", json: `{"port": 70000, "key": "", "cert": ""}`, wantErr: "out of range"},
		{name: "zero port", json: `{"port": 0, "key": "", "cert": ""}`, wantErr: "out of range"},
		{name: "key as number", json: `{"port": 1, "key": 5, "cert": ""}`, wantErr: "key"},
		{name: "password hash as bool", json: `{"port": 1, "key": "", "cert": "", "passwordHash": true}`, wantErr: "passwordHash"},
		{name: "null field", json: `{"port": 1, "key": null, "cert": ""}`, wantErr: "null"},
		{name: "key without cert", json: `{"port": 1, "key": "k.pem", "cert": ""}`, wantErr: "together"},
		{name: "not an object", json: `[1, 2]`, wantErr: "parse json"},
		{name: "null document", json: `null`, wantErr: "JSON object"},
		{name: "invalid json", json: `{"port":`, wantErr: "parse json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := ParseConfig([]byte(tt.json))
			if err == nil {
				t.Fatalf("Expected error, got config %+v", cfg)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Expected error containing %q, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestLoadConfigFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")
	content := `{"port": 9100, "key": "", "cert": "", "passwordHash": "h"}`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	t.Setenv("SERVER_PORT", "7000")
	t.Setenv("MAX_MESSAGE_SIZE", "1024")
	t.Setenv("AUTH_TIMEOUT", "5")

	cfg, err := LoadConfigFile(path)
	if err != nil {
		t.Fatalf("LoadConfigFile returned error: %v", err)
	}
	if cfg.Port != 9100 {
		t.Errorf("File port should win over SERVER_PORT, got %d", cfg.Port)
	}
	if cfg.MaxMessageSize != 1024 {
		t.Errorf("Expected MAX_MESSAGE_SIZE override, got %d", cfg.MaxMessageSize)
	}
	if cfg.AuthTimeout != 5*time.Second {
		t.Errorf("Expected AUTH_TIMEOUT override, got %s", cfg.AuthTimeout)
	}
	if cfg.Addr() != ":9100" {
		t.Errorf("Expected addr :9100, got %s", cfg.Addr())
	}
}

func TestLoadConfigFileMissing(t *testing.T) {
	_, err := LoadConfigFile(filepath.Join(t.TempDir(), "absent.json"))
	if err == nil {
		t.Fatal("Expected error for missing file")
	}
}

func TestNewConfigDefaults(t *testing.T) {
	config := NewConfig()

	if config.Port != defaultPort {
		t.Errorf("Expected default port %d, got %d", defaultPort, config.Port)
	}
	if config.PasswordHash != "" {
		t.Error("Auth should be disabled by default")
	}
	if config.AuthTimeout != 0 {
		t.Error("Auth timeout should be disabled by default")
	}
	if config.TLSEnabled() {
		t.Error("TLS should be disabled by default")
	}
}

func TestNewConfigFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", ":9200")
	t.Setenv("ALLOWED_ORIGINS", "http://a.example, https://b.example")
	t.Setenv("SEND_BUFFER_SIZE", "not-a-number")

	cfg := NewConfigFromEnv()
	if cfg.Port != 9200 {
		t.Errorf("Expected port 9200, got %d", cfg.Port)
	}
	if len(cfg.AllowedOrigins) != 2 || cfg.AllowedOrigins[1] != "https://b.example" {
		t.Errorf("Unexpected origins %v", cfg.AllowedOrigins)
	}
	if cfg.SendBufferSize != defaultSendBufferSize {
		t.Errorf("Invalid SEND_BUFFER_SIZE should fall back to default, got %d", cfg.SendBufferSize)
	}
}

func TestSanitizeConfig(t *testing.T) {
	cfg := sanitizeConfig(Config{AuthTimeout: -time.Second})

	if cfg.Port != defaultPort || cfg.MaxMessageSize != defaultMaxMessageSize || cfg.SendBufferSize != defaultSendBufferSize {
		t.Errorf("Zero values were not replaced by defaults: %+v", cfg)
	}
	if cfg.AuthTimeout != 0 {
		t.Errorf("Negative auth timeout should become 0, got %s", cfg.AuthTimeout)
	}
	if len(cfg.AllowedOrigins) != 1 || cfg.AllowedOrigins[0] != "*" {
		t.Errorf("Expected all origins allowed by default, got %v", cfg.AllowedOrigins)
	}
}
