// Package config defines the offertrack configuration and its validation.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration. Fields are populated from a TOML file
// and then optionally overridden by OFFERTRACK_* environment variables.
type Config struct {
	Store    StoreConfig    `toml:"store"`
	Redis    RedisConfig    `toml:"redis"`
	Postgres PostgresConfig `toml:"postgres"`
	S3       S3Config       `toml:"s3"`
	Tracking TrackingConfig `toml:"tracking"`
	Notify   NotifyConfig   `toml:"notify"`
	Share    ShareConfig    `toml:"share"`
	Mode     string         `toml:"mode"`
	LogLevel string         `toml:"log_level"`
}

// StoreConfig selects the persistence medium.
type StoreConfig struct {
	// Backend is one of "memory", "redis" or "postgres".
	Backend string `toml:"backend"`
}

// RedisConfig holds Redis connection parameters for the redis backend.
type RedisConfig struct {
	Addr          string `toml:"addr"`
	Password      string `toml:"password"`
	DB            int    `toml:"db"`
	PoolSize      int    `toml:"pool_size"`
	MaxRetries    int    `toml:"max_retries"`
	TLSEnabled    bool   `toml:"tls_enabled"`
	KeyPrefix     string `toml:"key_prefix"`
	ChangeChannel string `toml:"change_channel"`
}

// PostgresConfig holds PostgreSQL connection parameters for the postgres
// backend.
type PostgresConfig struct {
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
	ChangeChannel string `toml:"change_channel"`
}

// S3Config holds the export bucket. Exports are skipped when Bucket is empty.
type S3Config struct {
	Endpoint       string `toml:"endpoint"`
	Region         string `toml:"region"`
	Bucket         string `toml:"bucket"`
	AccessKey      string `toml:"access_key"`
	SecretKey      string `toml:"secret_key"`
	UseSSL         bool   `toml:"use_ssl"`
	ForcePathStyle bool   `toml:"force_path_style"`
	Prefix         string `toml:"prefix"`
	PartSizeMB     int    `toml:"part_size_mb"`
}

// TrackingConfig holds price-watch defaults.
type TrackingConfig struct {
	AlertThresholdAbsolute float64  `toml:"alert_threshold_absolute"`
	AlertThresholdPercent  float64  `toml:"alert_threshold_percent"`
	DedupWindow            duration `toml:"dedup_window"`
	NotificationCap        int      `toml:"notification_cap"`
	RecentSearchCap        int      `toml:"recent_search_cap"`
}

// NotifyConfig holds external alert channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	TelegramAPI       string   `toml:"telegram_api"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// ShareConfig holds share token limits.
type ShareConfig struct {
	MaxEncodedLength int `toml:"max_encoded_length"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "12h", "30m").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// Defaults returns a Config populated with default values. These match
// config.example.toml.
func Defaults() Config {
	return Config{
		Store: StoreConfig{Backend: "memory"},
		Redis: RedisConfig{
			Addr:          "localhost:6379",
			PoolSize:      10,
			MaxRetries:    3,
			KeyPrefix:     "offertrack:",
			ChangeChannel: "offertrack:changes",
		},
		Postgres: PostgresConfig{
			Host:          "localhost",
			Port:          5432,
			Database:      "offertrack",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  5,
			PoolMinConns:  1,
			RunMigrations: true,
			ChangeChannel: "offertrack_changes",
		},
		S3: S3Config{
			Region:         "us-east-1",
			ForcePathStyle: true,
			Prefix:         "exports",
			PartSizeMB:     5,
		},
		Tracking: TrackingConfig{
			AlertThresholdAbsolute: 25,
			AlertThresholdPercent:  5,
			DedupWindow:            duration{12 * time.Hour},
			NotificationCap:        200,
			RecentSearchCap:        20,
		},
		Notify: NotifyConfig{
			TelegramAPI: "https://api.telegram.org",
			Events:      []string{"price_change"},
		},
		Share:    ShareConfig{MaxEncodedLength: 2000},
		Mode:     "sync",
		LogLevel: "info",
	}
}

// DedupWindowDuration returns the notification dedup window.
func (t TrackingConfig) DedupWindowDuration() time.Duration {
	return t.DedupWindow.Duration
}

var validModes = map[string]bool{
	"sync":    true,
	"process": true,
	"export":  true,
	"import":  true,
}

var validBackends = map[string]bool{
	"memory":   true,
	"redis":    true,
	"postgres": true,
}

var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// Validate checks Config for invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	if !validModes[strings.ToLower(c.Mode)] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: sync, process, export, import)", c.Mode))
	}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	backend := strings.ToLower(c.Store.Backend)
	if !validBackends[backend] {
		errs = append(errs, fmt.Sprintf("store: unknown backend %q (valid: memory, redis, postgres)", c.Store.Backend))
	}

	if backend == "redis" {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
		if c.Redis.ChangeChannel == "" {
			errs = append(errs, "redis: change_channel must not be empty")
		}
	}

	if backend == "postgres" {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 2 {
			// One connection is held by LISTEN for the change signal.
			errs = append(errs, "postgres: pool_max_conns must be >= 2")
		}
		if c.Postgres.PoolMinConns < 0 || c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must be between 0 and pool_max_conns")
		}
		if c.Postgres.ChangeChannel == "" {
			errs = append(errs, "postgres: change_channel must not be empty")
		}
	}

	if c.S3.Bucket != "" && c.S3.Region == "" {
		errs = append(errs, "s3: region must not be empty when bucket is set")
	}

	if c.Tracking.AlertThresholdAbsolute < 0 {
		errs = append(errs, "tracking: alert_threshold_absolute must be >= 0")
	}
	if c.Tracking.AlertThresholdPercent < 0 {
		errs = append(errs, "tracking: alert_threshold_percent must be >= 0")
	}
	if c.Tracking.DedupWindow.Duration <= 0 {
		errs = append(errs, "tracking: dedup_window must be > 0")
	}
	if c.Tracking.NotificationCap < 1 {
		errs = append(errs, "tracking: notification_cap must be >= 1")
	}
	if c.Tracking.RecentSearchCap < 1 {
		errs = append(errs, "tracking: recent_search_cap must be >= 1")
	}

	if (c.Notify.TelegramToken == "") != (c.Notify.TelegramChatID == "") {
		errs = append(errs, "notify: telegram_token and telegram_chat_id must be set together")
	}

	if c.Share.MaxEncodedLength < 1 {
		errs = append(errs, "share: max_encoded_length must be >= 1")
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
