package redis

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// RecordMedium implements domain.Medium with plain Redis strings. Every write
// publishes a change message in the same transaction pipeline, so sibling
// processes hear about it without the writer doing anything extra.
//
// Key schema:
//
//	{prefix}{key} - string value holding the JSON record
type RecordMedium struct {
	client *Client
	bus    *SignalBus
	origin string
}

// NewRecordMedium creates a RecordMedium on c's keyspace with a fresh origin
// id.
func NewRecordMedium(c *Client, logger *slog.Logger) *RecordMedium {
	logger = logger.With(slog.String("component", "redis_medium"))
	return &RecordMedium{
		client: c,
		bus:    NewSignalBus(c, logger),
		origin: uuid.NewString(),
	}
}

// Origin returns the identifier this medium stamps on its writes.
func (m *RecordMedium) Origin() string { return m.origin }

// Get returns the record stored under key.
func (m *RecordMedium) Get(ctx context.Context, key string) (string, bool, error) {
	v, err := m.client.rdb.Get(ctx, m.client.Key(key)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("redis: get record %s: %w", key, err)
	}
	return v, true, nil
}

// Set stores value under key and publishes a change signal.
func (m *RecordMedium) Set(ctx context.Context, key, value string) error {
	msg, err := m.signal(key)
	if err != nil {
		return err
	}

	pipe := m.client.rdb.TxPipeline()
	pipe.Set(ctx, m.client.Key(key), value, 0)
	pipe.Publish(ctx, m.client.Channel(), msg)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set record %s: %w", key, err)
	}
	return nil
}

// Delete removes key and publishes a change signal.
func (m *RecordMedium) Delete(ctx context.Context, key string) error {
	msg, err := m.signal(key)
	if err != nil {
		return err
	}

	pipe := m.client.rdb.TxPipeline()
	pipe.Del(ctx, m.client.Key(key))
	pipe.Publish(ctx, m.client.Channel(), msg)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: delete record %s: %w", key, err)
	}
	return nil
}

// Watch subscribes to the change channel and forwards signals written by
// other origins. Malformed messages are logged and skipped.
func (m *RecordMedium) Watch(ctx context.Context) (<-chan domain.KeyChange, error) {
	return m.bus.Subscribe(ctx, m.origin)
}

func (m *RecordMedium) signal(key string) ([]byte, error) {
	return encodeChange(key, m.origin)
}

// Compile-time interface check.
var _ domain.Medium = (*RecordMedium)(nil)
