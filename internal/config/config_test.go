package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adriangarciao/offertrack/internal/config"
)

func TestDefaultsAreValid(t *testing.T) {
	cfg := config.Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "memory", cfg.Store.Backend)
	assert.Equal(t, 12*time.Hour, cfg.Tracking.DedupWindowDuration())
	assert.Equal(t, 200, cfg.Tracking.NotificationCap)
	assert.Equal(t, 2000, cfg.Share.MaxEncodedLength)
}

func TestValidateReportsEveryProblem(t *testing.T) {
	cfg := config.Defaults()
	cfg.Mode = "trade"
	cfg.Store.Backend = "sqlite"
	cfg.Tracking.NotificationCap = 0
	cfg.Notify.TelegramToken = "token-without-chat"

	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown mode "trade"`)
	assert.Contains(t, err.Error(), `unknown backend "sqlite"`)
	assert.Contains(t, err.Error(), "notification_cap")
	assert.Contains(t, err.Error(), "telegram_chat_id")
}

func TestValidateBackendSections(t *testing.T) {
	cfg := config.Defaults()
	cfg.Store.Backend = "postgres"
	cfg.Postgres.PoolMaxConns = 1
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "pool_max_conns")

	cfg = config.Defaults()
	cfg.Store.Backend = "redis"
	cfg.Redis.Addr = ""
	err = cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: addr")
}

func TestLoadFileAndEnvOverrides(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
mode = "process"

[store]
backend = "redis"

[tracking]
alert_threshold_absolute = 40
dedup_window = "6h"

[notify]
events = ["price_change"]
`), 0o600))

	t.Setenv("OFFERTRACK_REDIS_ADDR", "redis.internal:6380")
	t.Setenv("OFFERTRACK_TRACKING_ALERT_THRESHOLD_PERCENT", "7.5")
	t.Setenv("OFFERTRACK_NOTIFY_EVENTS", " price_change , other ")

	cfg, err := config.Load(path)
	require.NoError(t, err)
	require.NoError(t, cfg.Validate())

	assert.Equal(t, "process", cfg.Mode)
	assert.Equal(t, "redis", cfg.Store.Backend)
	assert.Equal(t, "redis.internal:6380", cfg.Redis.Addr)
	assert.Equal(t, 40.0, cfg.Tracking.AlertThresholdAbsolute)
	assert.Equal(t, 7.5, cfg.Tracking.AlertThresholdPercent)
	assert.Equal(t, 6*time.Hour, cfg.Tracking.DedupWindowDuration())
	assert.Equal(t, []string{"price_change", "other"}, cfg.Notify.Events)
	assert.Equal(t, 200, cfg.Tracking.NotificationCap, "unset keys keep defaults")
}

func TestLoadMissingFile(t *testing.T) {
	_, err := config.Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestRedactedConfig(t *testing.T) {
	cfg := config.Defaults()
	cfg.Redis.Password = "secret"
	cfg.S3.SecretKey = "secret"
	cfg.Notify.TelegramToken = "secret"

	out := config.RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Redis.Password)
	assert.Equal(t, "***", out.S3.SecretKey)
	assert.Equal(t, "***", out.Notify.TelegramToken)
	assert.Empty(t, out.S3.AccessKey)
	assert.Equal(t, "secret", cfg.Redis.Password)

	out.Notify.Events[0] = "changed"
	assert.Equal(t, "price_change", cfg.Notify.Events[0])
}
