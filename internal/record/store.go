// Package record persists typed values as JSON over a domain.Medium.
//
// Reads never fail: a missing, unreadable or unparseable record yields the
// caller's default, so a corrupt value can never take a dependent component
// down with it. Writes return medium errors to the caller.
package record

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// Store reads and writes JSON records.
type Store struct {
	medium domain.Medium
	logger *slog.Logger
}

// New creates a Store over medium.
func New(medium domain.Medium, logger *slog.Logger) *Store {
	return &Store{
		medium: medium,
		logger: logger.With(slog.String("component", "record_store")),
	}
}

// Medium returns the underlying medium.
func (s *Store) Medium() domain.Medium { return s.medium }

// Read decodes the record at key into a T, returning def() when the record
// is missing or cannot be decoded. def is called for every fallback so
// callers get a fresh empty value they may mutate.
func Read[T any](ctx context.Context, s *Store, key string, def func() T) T {
	raw, ok, err := s.medium.Get(ctx, key)
	if err != nil {
		s.logger.WarnContext(ctx, "record read failed, using default",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return def()
	}
	if !ok || raw == "" {
		return def()
	}

	var v T
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		s.logger.WarnContext(ctx, "corrupt record, using default",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return def()
	}
	return v
}

// Write encodes v as JSON and stores it under key.
func (s *Store) Write(ctx context.Context, key string, v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("record: marshal %s: %w", key, err)
	}
	if err := s.medium.Set(ctx, key, string(data)); err != nil {
		return fmt.Errorf("record: write %s: %w", key, err)
	}
	return nil
}

// Remove deletes the record at key.
func (s *Store) Remove(ctx context.Context, key string) error {
	if err := s.medium.Delete(ctx, key); err != nil {
		return fmt.Errorf("record: remove %s: %w", key, err)
	}
	return nil
}

// Fingerprint returns the serialized form of v. Receivers compare
// fingerprints to skip updates that would not change their view.
func Fingerprint(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(data)
}

// EmptyList is a default for list records.
func EmptyList[E any]() []E { return []E{} }

// EmptyMap is a default for map records.
func EmptyMap[K comparable, V any]() map[K]V { return map[K]V{} }
