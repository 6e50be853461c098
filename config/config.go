// Package config defines the Triage daemon configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Triage configuration.
type Config struct {
	Server   ServerConfig   `json:"server" yaml:"server"`
	Auth     AuthConfig     `json:"auth" yaml:"auth"`
	Storage  StorageConfig  `json:"storage" yaml:"storage"`
	Webhook  WebhookConfig  `json:"webhook" yaml:"webhook"`
	Defaults DefaultsConfig `json:"defaults" yaml:"defaults"`
	LogLevel string         `json:"log_level" yaml:"log_level"`
}

// ServerConfig controls the HTTP server.
type ServerConfig struct {
	Addr string `json:"addr" yaml:"addr"` // listen address, e.g., ":9090"
}

// AuthConfig controls API authentication.
type AuthConfig struct {
	JWTSecret string `json:"jwt_secret" yaml:"jwt_secret"`
	AdminUser string `json:"admin_user" yaml:"admin_user"`
	AdminPass string `json:"admin_pass" yaml:"admin_pass"` // bcrypt hash
}

// StorageConfig selects the task store backend.
type StorageConfig struct {
	Driver string `json:"driver" yaml:"driver"` // "sqlite" or "memory"
	Path   string `json:"path" yaml:"path"`     // sqlite database file
}

// WebhookConfig controls outbound callback delivery.
type WebhookConfig struct {
	Secret    string `json:"secret,omitempty" yaml:"secret"`
	TimeoutMs int64  `json:"timeout_ms,omitempty" yaml:"timeout_ms"`
}

// Timeout returns the delivery timeout as a duration.
func (w WebhookConfig) Timeout() time.Duration {
	return time.Duration(w.TimeoutMs) * time.Millisecond
}

// DefaultsConfig holds per-instance tunables applied to every queue.
type DefaultsConfig struct {
	ExpiringSoonWindowMs int64 `json:"expiring_soon_window_ms,omitempty" yaml:"expiring_soon_window_ms"`
}

// ExpiringSoonWindow returns the window as a duration.
func (d DefaultsConfig) ExpiringSoonWindow() time.Duration {
	return time.Duration(d.ExpiringSoonWindowMs) * time.Millisecond
}

// DefaultConfig returns a config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Addr: ":9090",
		},
		Auth: AuthConfig{
			AdminUser: "admin",
		},
		Storage: StorageConfig{
			Driver: "sqlite",
			Path:   "./data/triage.db",
		},
		Webhook: WebhookConfig{
			TimeoutMs: 10_000,
		},
		Defaults: DefaultsConfig{
			ExpiringSoonWindowMs: (time.Hour).Milliseconds(),
		},
		LogLevel: "info",
	}
}

// Load reads a YAML config file and returns the parsed configuration.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}
