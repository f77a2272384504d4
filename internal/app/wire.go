package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	s3blob "github.com/adriangarciao/offertrack/internal/blob/s3"
	"github.com/adriangarciao/offertrack/internal/bus"
	"github.com/adriangarciao/offertrack/internal/cache/redis"
	"github.com/adriangarciao/offertrack/internal/compare"
	"github.com/adriangarciao/offertrack/internal/config"
	"github.com/adriangarciao/offertrack/internal/domain"
	"github.com/adriangarciao/offertrack/internal/notify"
	"github.com/adriangarciao/offertrack/internal/record"
	"github.com/adriangarciao/offertrack/internal/search"
	"github.com/adriangarciao/offertrack/internal/share"
	"github.com/adriangarciao/offertrack/internal/store/memory"
	"github.com/adriangarciao/offertrack/internal/store/postgres"
	"github.com/adriangarciao/offertrack/internal/tracker"
	"github.com/adriangarciao/offertrack/internal/watch"
)

// Dependencies bundles everything the modes need. It is constructed by Wire
// and torn down by the returned cleanup function.
type Dependencies struct {
	Medium   domain.Medium
	Store    *record.Store
	Bus      *bus.Bus
	ClientID string

	Compare  *compare.Manager
	Registry *watch.Registry
	Log      *watch.Log
	Recents  *search.Recents
	Tracker  *tracker.Service
	Notifier *notify.Notifier

	Decoder share.Decoder
	// Exporter is nil when no export bucket is configured.
	Exporter *share.Exporter
}

// Wire constructs all concrete dependencies from cfg and returns them together
// with a cleanup function to call on shutdown.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- Medium ---
	medium, closeMedium, err := openMedium(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}
	closers = append(closers, closeMedium)
	deps.Medium = medium

	deps.Store = record.New(medium, logger)
	deps.Bus = bus.New(medium, logger)

	deps.ClientID, err = record.ClientID(ctx, deps.Store)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: client id: %w", err)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramAPI,
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Components ---
	deps.Compare = compare.New(ctx, deps.Store, deps.Bus, logger)
	closers = append(closers, deps.Compare.Close)

	deps.Registry = watch.NewRegistry(ctx, deps.Store, deps.Bus, logger)
	closers = append(closers, deps.Registry.Close)

	deps.Log = watch.NewLog(deps.Store, deps.Bus, logger, watch.LogOptions{
		Cap:         cfg.Tracking.NotificationCap,
		DedupWindow: cfg.Tracking.DedupWindowDuration(),
	})
	deps.Recents = search.NewRecents(deps.Store, cfg.Tracking.RecentSearchCap, logger)

	deps.Tracker = tracker.NewService(deps.Registry, deps.Log, deps.Notifier, tracker.Thresholds{
		Absolute: cfg.Tracking.AlertThresholdAbsolute,
		Percent:  cfg.Tracking.AlertThresholdPercent,
	}, logger)

	deps.Decoder = share.Decoder{MaxLength: cfg.Share.MaxEncodedLength}

	// --- S3 exports (only when a bucket is configured) ---
	if cfg.S3.Bucket != "" {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.S3.Endpoint,
			Region:         cfg.S3.Region,
			Bucket:         cfg.S3.Bucket,
			AccessKey:      cfg.S3.AccessKey,
			SecretKey:      cfg.S3.SecretKey,
			UseSSL:         cfg.S3.UseSSL,
			ForcePathStyle: cfg.S3.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		partSize := int64(cfg.S3.PartSizeMB) * 1024 * 1024
		deps.Exporter = share.NewExporter(s3blob.NewWriter(s3Client, partSize), cfg.S3.Prefix)
	}

	logger.InfoContext(ctx, "dependencies wired",
		slog.String("backend", cfg.Store.Backend),
		slog.String("client_id", deps.ClientID),
		slog.Int("senders", len(senders)),
		slog.Bool("exports", deps.Exporter != nil),
	)

	return deps, cleanup, nil
}

// openMedium connects the configured persistence backend.
func openMedium(ctx context.Context, cfg *config.Config, logger *slog.Logger) (domain.Medium, func(), error) {
	switch strings.ToLower(cfg.Store.Backend) {
	case "memory":
		return memory.NewBackend().Handle(), func() {}, nil

	case "redis":
		client, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,

			KeyPrefix:     cfg.Redis.KeyPrefix,
			ChangeChannel: cfg.Redis.ChangeChannel,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire: redis: %w", err)
		}
		medium := redis.NewRecordMedium(client, logger)
		return medium, func() { _ = client.Close() }, nil

	case "postgres":
		client, err := postgres.New(ctx, postgres.ClientConfig{
			DSN:      cfg.Postgres.DSN,
			Host:     cfg.Postgres.Host,
			Port:     cfg.Postgres.Port,
			Database: cfg.Postgres.Database,
			User:     cfg.Postgres.User,
			Password: cfg.Postgres.Password,
			SSLMode:  cfg.Postgres.SSLMode,
			MaxConns: cfg.Postgres.PoolMaxConns,
			MinConns: cfg.Postgres.PoolMinConns,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("wire: postgres: %w", err)
		}
		if cfg.Postgres.RunMigrations {
			if err := client.RunMigrations(ctx); err != nil {
				client.Close()
				return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
			}
		}
		medium := postgres.NewRecordMedium(client.Pool(), cfg.Postgres.ChangeChannel, logger)
		return medium, client.Close, nil

	default:
		return nil, nil, fmt.Errorf("wire: %w: %q", domain.ErrUnknownBackend, cfg.Store.Backend)
	}
}
