package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads the TOML file at path over the built-in defaults, applies
// OFFERTRACK_* environment overrides and returns the result. A missing file
// is not an error when path is empty. The returned Config has NOT been
// validated.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, err
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides overwrites Config fields from OFFERTRACK_* variables that
// are set and non-empty.
func applyEnvOverrides(cfg *Config) {
	// ── Store ──
	setStr(&cfg.Store.Backend, "OFFERTRACK_STORE_BACKEND")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "OFFERTRACK_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "OFFERTRACK_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "OFFERTRACK_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "OFFERTRACK_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "OFFERTRACK_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "OFFERTRACK_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "OFFERTRACK_REDIS_KEY_PREFIX")
	setStr(&cfg.Redis.ChangeChannel, "OFFERTRACK_REDIS_CHANGE_CHANNEL")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "OFFERTRACK_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "OFFERTRACK_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "OFFERTRACK_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "OFFERTRACK_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "OFFERTRACK_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "OFFERTRACK_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "OFFERTRACK_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "OFFERTRACK_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "OFFERTRACK_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "OFFERTRACK_POSTGRES_RUN_MIGRATIONS")
	setStr(&cfg.Postgres.ChangeChannel, "OFFERTRACK_POSTGRES_CHANGE_CHANNEL")

	// ── S3 ──
	setStr(&cfg.S3.Endpoint, "OFFERTRACK_S3_ENDPOINT")
	setStr(&cfg.S3.Region, "OFFERTRACK_S3_REGION")
	setStr(&cfg.S3.Bucket, "OFFERTRACK_S3_BUCKET")
	setStr(&cfg.S3.AccessKey, "OFFERTRACK_S3_ACCESS_KEY")
	setStr(&cfg.S3.SecretKey, "OFFERTRACK_S3_SECRET_KEY")
	setBool(&cfg.S3.UseSSL, "OFFERTRACK_S3_USE_SSL")
	setBool(&cfg.S3.ForcePathStyle, "OFFERTRACK_S3_FORCE_PATH_STYLE")
	setStr(&cfg.S3.Prefix, "OFFERTRACK_S3_PREFIX")
	setInt(&cfg.S3.PartSizeMB, "OFFERTRACK_S3_PART_SIZE_MB")

	// ── Tracking ──
	setFloat64(&cfg.Tracking.AlertThresholdAbsolute, "OFFERTRACK_TRACKING_ALERT_THRESHOLD_ABSOLUTE")
	setFloat64(&cfg.Tracking.AlertThresholdPercent, "OFFERTRACK_TRACKING_ALERT_THRESHOLD_PERCENT")
	setDuration(&cfg.Tracking.DedupWindow, "OFFERTRACK_TRACKING_DEDUP_WINDOW")
	setInt(&cfg.Tracking.NotificationCap, "OFFERTRACK_TRACKING_NOTIFICATION_CAP")
	setInt(&cfg.Tracking.RecentSearchCap, "OFFERTRACK_TRACKING_RECENT_SEARCH_CAP")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "OFFERTRACK_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "OFFERTRACK_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.TelegramAPI, "OFFERTRACK_NOTIFY_TELEGRAM_API")
	setStr(&cfg.Notify.DiscordWebhookURL, "OFFERTRACK_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "OFFERTRACK_NOTIFY_EVENTS")

	// ── Share ──
	setInt(&cfg.Share.MaxEncodedLength, "OFFERTRACK_SHARE_MAX_ENCODED_LENGTH")

	// ── Top-level ──
	setStr(&cfg.Mode, "OFFERTRACK_MODE")
	setStr(&cfg.LogLevel, "OFFERTRACK_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
