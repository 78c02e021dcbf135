// Seekd - Venue Presence and Real-Time Social Graph Engine
// Copyright 2026 Seek IRL
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/seek-irl/seekd

// Package config provides layered configuration for Seekd using Koanf v2:
// built-in defaults, an optional YAML file, then environment variables.
package config

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

// Config is the root configuration.
type Config struct {
	Server    ServerConfig    `koanf:"server"`
	Store     StoreConfig     `koanf:"store"`
	NATS      NATSConfig      `koanf:"nats"`
	Directory DirectoryConfig `koanf:"directory"`
	Presence  PresenceConfig  `koanf:"presence"`
	Chat      ChatConfig      `koanf:"chat"`
	Security  SecurityConfig  `koanf:"security"`
	Logging   LoggingConfig   `koanf:"logging"`
}

// ServerConfig configures the HTTP listener.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port" validate:"gte=1,lte=65535"`
	Timeout time.Duration `koanf:"timeout"`
}

// StoreConfig configures the Badger-backed store adapter.
type StoreConfig struct {
	Path string `koanf:"path" validate:"required"`
	// InMemory runs Badger without disk persistence; used in tests.
	InMemory bool `koanf:"in_memory"`
}

// NATSConfig enables the optional NATS JetStream transport. When disabled
// the in-process gochannel bus is used.
type NATSConfig struct {
	Enabled         bool          `koanf:"enabled"`
	URL             string        `koanf:"url"`
	MaxReconnects   int           `koanf:"max_reconnects"`
	ReconnectWait   time.Duration `koanf:"reconnect_wait"`
	ReconnectBuffer int           `koanf:"reconnect_buffer"`
}

// DirectoryConfig configures the venue catalog and its refresh pipeline.
type DirectoryConfig struct {
	// CSVPath is a local CSV file holding the venue sheet export.
	CSVPath string `koanf:"csv_path"`
	// CSVURL is an HTTP(S) source for the venue sheet; takes precedence
	// over CSVPath when set.
	CSVURL string `koanf:"csv_url"`
	// RefreshCron schedules out-of-band re-imports (gronx syntax).
	RefreshCron string `koanf:"refresh_cron"`
	// NearestRadiusKm is the maximum distance for the coordinate
	// resolution path; beyond it the match is rejected.
	NearestRadiusKm float64 `koanf:"nearest_radius_km" validate:"gt=0"`
	// CellSizeKm sizes the spatial grid cells backing nearest lookups.
	CellSizeKm   float64       `koanf:"cell_size_km"`
	FetchTimeout time.Duration `koanf:"fetch_timeout"`
}

// PresenceConfig holds the two view windows. Both drive the same
// derivation; they differ by policy only.
type PresenceConfig struct {
	// VenueWindow bounds "currently at this venue".
	VenueWindow time.Duration `koanf:"venue_window" validate:"gt=0"`
	// SessionWindow bounds the user's own active session gate.
	SessionWindow time.Duration `koanf:"session_window" validate:"gt=0"`
	// TrendingWindow bounds the trending aggregation.
	TrendingWindow time.Duration `koanf:"trending_window" validate:"gt=0"`
	// SnapshotRetention bounds the in-memory live snapshot; events older
	// than this are pruned from the derivation cache (not from storage).
	SnapshotRetention time.Duration `koanf:"snapshot_retention"`
}

// ChatConfig configures messaging.
type ChatConfig struct {
	// ProfanityWords are masked in outgoing messages.
	ProfanityWords []string `koanf:"profanity_words"`
	// SendPerMinute rate-limits messages per identity.
	SendPerMinute int `koanf:"send_per_minute"`
	MaxMessageLen int `koanf:"max_message_len"`
}

// SecurityConfig configures the HTTP middleware stack.
type SecurityConfig struct {
	CORSOrigins     []string      `koanf:"cors_origins"`
	RateLimitReqs   int           `koanf:"rate_limit_reqs"`
	RateLimitWindow time.Duration `koanf:"rate_limit_window"`
	// WriteRateLimitReqs applies to check-in and chat submission routes.
	WriteRateLimitReqs int `koanf:"write_rate_limit_reqs"`
}

// LoggingConfig configures the global logger.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format" validate:"oneof=json console"`
	Caller bool   `koanf:"caller"`
}

func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:    "0.0.0.0",
			Port:    8742,
			Timeout: 30 * time.Second,
		},
		Store: StoreConfig{
			Path:     "/data/seekd",
			InMemory: false,
		},
		NATS: NATSConfig{
			Enabled:         false,
			URL:             "nats://127.0.0.1:4222",
			MaxReconnects:   60,
			ReconnectWait:   2 * time.Second,
			ReconnectBuffer: 8 * 1024 * 1024,
		},
		Directory: DirectoryConfig{
			CSVPath:         "",
			CSVURL:          "",
			RefreshCron:     "*/30 * * * *",
			NearestRadiusKm: 0.5,
			CellSizeKm:      5,
			FetchTimeout:    20 * time.Second,
		},
		Presence: PresenceConfig{
			VenueWindow:       time.Hour,
			SessionWindow:     12 * time.Hour,
			TrendingWindow:    time.Hour,
			SnapshotRetention: 24 * time.Hour,
		},
		Chat: ChatConfig{
			ProfanityWords: nil,
			SendPerMinute:  30,
			MaxMessageLen:  1000,
		},
		Security: SecurityConfig{
			CORSOrigins:        []string{},
			RateLimitReqs:      300,
			RateLimitWindow:    time.Minute,
			WriteRateLimitReqs: 30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Validate checks structural constraints and cross-field rules.
func (c *Config) Validate() error {
	v := validator.New()
	if err := v.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	if c.NATS.Enabled && c.NATS.URL == "" {
		return fmt.Errorf("nats.url is required when nats.enabled is true")
	}
	if c.Presence.VenueWindow > c.Presence.SessionWindow {
		return fmt.Errorf("presence.venue_window must not exceed presence.session_window")
	}
	if c.Presence.SnapshotRetention < c.Presence.SessionWindow {
		return fmt.Errorf("presence.snapshot_retention must cover the session window")
	}
	return nil
}
