package search

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/adriangarciao/offertrack/internal/domain"
	"github.com/adriangarciao/offertrack/internal/record"
)

// MaxRecent is the default number of recent searches kept.
const MaxRecent = 20

// Recents is the recent-search history, newest first.
type Recents struct {
	store  *record.Store
	limit  int
	logger *slog.Logger
	mu     sync.Mutex
}

// NewRecents creates the recent-search history over store. A limit <= 0
// selects MaxRecent.
func NewRecents(store *record.Store, limit int, logger *slog.Logger) *Recents {
	if limit <= 0 {
		limit = MaxRecent
	}
	return &Recents{
		store:  store,
		limit:  limit,
		logger: logger.With(slog.String("component", "recent_searches")),
	}
}

// List returns the stored history.
func (r *Recents) List(ctx context.Context) []domain.RecentSearch {
	return record.Read(ctx, r.store, domain.KeyRecentSearches, record.EmptyList[domain.RecentSearch])
}

// Add puts s at the front, dropping any earlier entry with the same search
// id and trimming to the limit.
func (r *Recents) Add(ctx context.Context, s domain.RecentSearch) error {
	if s.SearchID == "" {
		return fmt.Errorf("search: recent search without id")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	list := lo.Reject(r.List(ctx), func(e domain.RecentSearch, _ int) bool {
		return e.SearchID == s.SearchID
	})
	list = append([]domain.RecentSearch{s}, list...)
	if len(list) > r.limit {
		list = list[:r.limit]
	}

	if err := r.store.Write(ctx, domain.KeyRecentSearches, list); err != nil {
		return fmt.Errorf("search: save recent search: %w", err)
	}
	r.logger.DebugContext(ctx, "recent search saved",
		slog.String("search_id", s.SearchID),
		slog.Int("count", len(list)),
	)
	return nil
}
