// Package watch persists the set of watched offers and the log of price
// alerts raised for them.
package watch

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/adriangarciao/offertrack/internal/domain"
	"github.com/adriangarciao/offertrack/internal/record"
)

// DefaultCurrency is used when a watch is created without a currency.
const DefaultCurrency = "USD"

// Registry is the watch registry keyed by offer id. Every operation works
// against the persisted record; the in-memory view only backs OnChange.
type Registry struct {
	store  *record.Store
	bus    domain.ChangeBus
	logger *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	fp       string
	onChange func()

	unsubscribe func()
}

// NewRegistry creates a Registry and subscribes it to watch changes.
func NewRegistry(ctx context.Context, store *record.Store, bus domain.ChangeBus, logger *slog.Logger) *Registry {
	r := &Registry{
		store:  store,
		bus:    bus,
		logger: logger.With(slog.String("component", "watch_registry")),
		now:    time.Now,
	}
	r.fp = record.Fingerprint(r.read(ctx))
	r.unsubscribe = bus.Subscribe(domain.TopicWatch, func(ctx context.Context, _ domain.ChangeEvent) {
		r.Sync(ctx)
	})
	return r
}

// WithClock replaces the registry's clock. It returns r for chaining.
func (r *Registry) WithClock(now func() time.Time) *Registry {
	r.now = now
	return r
}

// Close stops listening for changes.
func (r *Registry) Close() {
	if r.unsubscribe != nil {
		r.unsubscribe()
	}
}

// OnChange registers fn to run whenever a received change alters the
// registry. Only one callback is kept.
func (r *Registry) OnChange(fn func()) {
	r.mu.Lock()
	r.onChange = fn
	r.mu.Unlock()
}

// Get returns the entry for offerID.
func (r *Registry) Get(ctx context.Context, offerID string) (domain.WatchEntry, bool) {
	e, ok := r.read(ctx)[offerID]
	return e, ok
}

// List returns every entry, oldest saved first.
func (r *Registry) List(ctx context.Context) []domain.WatchEntry {
	return sortedEntries(r.read(ctx))
}

// Set upserts entry by its offer id.
func (r *Registry) Set(ctx context.Context, entry domain.WatchEntry) error {
	return r.Update(ctx, func(entries map[string]domain.WatchEntry) error {
		entries[entry.OfferID] = entry
		return nil
	})
}

// SetEnabled turns watching on or off for offerID, creating the entry on
// first use. A non-nil baseline replaces the stored baseline; currency is
// only used when the entry is created.
func (r *Registry) SetEnabled(ctx context.Context, offerID string, enabled bool, baseline *float64, currency string) (domain.WatchEntry, error) {
	var out domain.WatchEntry
	err := r.Update(ctx, func(entries map[string]domain.WatchEntry) error {
		e, ok := entries[offerID]
		if !ok {
			if currency == "" {
				currency = DefaultCurrency
			}
			e = domain.WatchEntry{
				OfferID:          offerID,
				BaselineCurrency: currency,
				SavedAt:          r.now().UTC(),
			}
		}
		e.WatchEnabled = enabled
		if baseline != nil {
			e.BaselineTotalPrice = *baseline
		}
		entries[offerID] = e
		out = e
		return nil
	})
	return out, err
}

// Remove deletes the entry for offerID. Entries are only ever removed this
// way, when the user deletes the underlying saved offer.
func (r *Registry) Remove(ctx context.Context, offerID string) error {
	return r.Update(ctx, func(entries map[string]domain.WatchEntry) error {
		delete(entries, offerID)
		return nil
	})
}

// Update applies fn to a fresh read of the registry, commits the result and
// broadcasts. fn returning an error aborts without writing.
func (r *Registry) Update(ctx context.Context, fn func(entries map[string]domain.WatchEntry) error) error {
	r.mu.Lock()
	entries := r.read(ctx)
	if err := fn(entries); err != nil {
		r.mu.Unlock()
		return err
	}
	if err := r.store.Write(ctx, domain.KeyWatchRegistry, entries); err != nil {
		r.mu.Unlock()
		return err
	}
	r.fp = record.Fingerprint(entries)
	r.mu.Unlock()

	if err := r.bus.Publish(ctx, domain.TopicWatch); err != nil {
		r.logger.WarnContext(ctx, "broadcast failed", slog.String("error", err.Error()))
	}
	return nil
}

// Migrate moves a registry stored under the legacy key to the current key
// when the current key is still empty.
func (r *Registry) Migrate(ctx context.Context) error {
	medium := r.store.Medium()
	legacy, ok, err := medium.Get(ctx, domain.KeyLegacyWatchRegistry)
	if err != nil || !ok {
		return err
	}
	if _, ok, err := medium.Get(ctx, domain.KeyWatchRegistry); err != nil || ok {
		return err
	}
	if err := medium.Set(ctx, domain.KeyWatchRegistry, legacy); err != nil {
		return err
	}
	r.logger.InfoContext(ctx, "migrated legacy watch registry")
	return medium.Delete(ctx, domain.KeyLegacyWatchRegistry)
}

// Sync re-reads the registry and reports whether it differs from the last
// known state. It never broadcasts.
func (r *Registry) Sync(ctx context.Context) bool {
	r.mu.Lock()
	fp := record.Fingerprint(r.read(ctx))
	if fp == r.fp {
		r.mu.Unlock()
		return false
	}
	r.fp = fp
	fn := r.onChange
	r.mu.Unlock()

	if fn != nil {
		fn()
	}
	return true
}

func (r *Registry) read(ctx context.Context) map[string]domain.WatchEntry {
	entries := record.Read(ctx, r.store, domain.KeyWatchRegistry, record.EmptyMap[string, domain.WatchEntry])
	if entries == nil {
		entries = map[string]domain.WatchEntry{}
	}
	return entries
}

func sortedEntries(entries map[string]domain.WatchEntry) []domain.WatchEntry {
	out := lo.Values(entries)
	sort.Slice(out, func(i, j int) bool {
		if !out[i].SavedAt.Equal(out[j].SavedAt) {
			return out[i].SavedAt.Before(out[j].SavedAt)
		}
		return out[i].OfferID < out[j].OfferID
	})
	return out
}
