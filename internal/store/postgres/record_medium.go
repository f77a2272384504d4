package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// DefaultChangeChannel is the NOTIFY channel carrying key-change signals.
const DefaultChangeChannel = "offertrack_changes"

type changeMessage struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

// RecordMedium implements domain.Medium using the records table. Each write
// issues pg_notify inside the same transaction, so the signal is delivered
// only if the write commits.
type RecordMedium struct {
	pool    *pgxpool.Pool
	channel string
	origin  string
	logger  *slog.Logger
}

// NewRecordMedium creates a RecordMedium with a fresh origin id.
func NewRecordMedium(pool *pgxpool.Pool, channel string, logger *slog.Logger) *RecordMedium {
	if channel == "" {
		channel = DefaultChangeChannel
	}
	return &RecordMedium{
		pool:    pool,
		channel: channel,
		origin:  uuid.NewString(),
		logger:  logger.With(slog.String("component", "postgres_medium")),
	}
}

// Origin returns the identifier this medium stamps on its writes.
func (m *RecordMedium) Origin() string { return m.origin }

// Get returns the record stored under key.
func (m *RecordMedium) Get(ctx context.Context, key string) (string, bool, error) {
	const query = `SELECT value FROM records WHERE key = $1`

	var value string
	if err := m.pool.QueryRow(ctx, query, key).Scan(&value); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("postgres: get record %s: %w", key, err)
	}
	return value, true, nil
}

// Set upserts the record and notifies listeners.
func (m *RecordMedium) Set(ctx context.Context, key, value string) error {
	const query = `
		INSERT INTO records (key, value, origin, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (key) DO UPDATE SET
			value      = EXCLUDED.value,
			origin     = EXCLUDED.origin,
			updated_at = NOW()`

	return m.inTx(ctx, key, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, query, key, value, m.origin)
		return err
	})
}

// Delete removes the record and notifies listeners.
func (m *RecordMedium) Delete(ctx context.Context, key string) error {
	return m.inTx(ctx, key, func(tx pgx.Tx) error {
		_, err := tx.Exec(ctx, `DELETE FROM records WHERE key = $1`, key)
		return err
	})
}

func (m *RecordMedium) inTx(ctx context.Context, key string, fn func(pgx.Tx) error) error {
	payload, err := json.Marshal(changeMessage{Key: key, Origin: m.origin})
	if err != nil {
		return fmt.Errorf("postgres: marshal change signal %s: %w", key, err)
	}

	tx, err := m.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("postgres: begin write %s: %w", key, err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	if err := fn(tx); err != nil {
		return fmt.Errorf("postgres: write record %s: %w", key, err)
	}
	if _, err := tx.Exec(ctx, `SELECT pg_notify($1, $2)`, m.channel, string(payload)); err != nil {
		return fmt.Errorf("postgres: notify %s: %w", key, err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("postgres: commit record %s: %w", key, err)
	}
	return nil
}

// Watch holds a dedicated connection in LISTEN mode and forwards signals from
// other origins until ctx is done.
func (m *RecordMedium) Watch(ctx context.Context) (<-chan domain.KeyChange, error) {
	conn, err := m.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("postgres: acquire listener: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{m.channel}.Sanitize()); err != nil {
		conn.Release()
		return nil, fmt.Errorf("postgres: listen %s: %w", m.channel, err)
	}

	out := make(chan domain.KeyChange, 64)
	go func() {
		defer close(out)
		// The connection still has LISTEN state; drop it instead of
		// returning it to the pool.
		defer func() {
			_ = conn.Conn().Close(context.Background())
			conn.Release()
		}()

		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					m.logger.ErrorContext(ctx, "listener stopped",
						slog.String("error", err.Error()),
					)
				}
				return
			}

			var msg changeMessage
			if err := json.Unmarshal([]byte(n.Payload), &msg); err != nil {
				m.logger.WarnContext(ctx, "discarding malformed change signal",
					slog.String("error", err.Error()),
				)
				continue
			}
			if msg.Origin == m.origin {
				continue
			}

			select {
			case out <- domain.KeyChange{Key: msg.Key, Origin: msg.Origin}:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// Compile-time interface check.
var _ domain.Medium = (*RecordMedium)(nil)
