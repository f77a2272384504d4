package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/adriangarciao/offertrack/internal/domain"
	"github.com/adriangarciao/offertrack/internal/watch"
)

// AlertNotifier delivers a recorded alert to the user outside the app.
type AlertNotifier interface {
	NotifyPriceChange(ctx context.Context, alert domain.Notification) error
}

// Report summarises one ProcessSearchResults call.
type Report struct {
	Result
	// Recorded are the notifications that survived deduplication.
	Recorded []domain.Notification
}

// Service runs comparison passes against the persisted registry.
type Service struct {
	registry   *watch.Registry
	log        *watch.Log
	notifier   AlertNotifier
	thresholds Thresholds
	now        func() time.Time
	logger     *slog.Logger
}

// NewService creates a Service. notifier may be nil.
func NewService(registry *watch.Registry, log *watch.Log, notifier AlertNotifier, thresholds Thresholds, logger *slog.Logger) *Service {
	return &Service{
		registry:   registry,
		log:        log,
		notifier:   notifier,
		thresholds: thresholds,
		now:        time.Now,
		logger:     logger.With(slog.String("component", "tracker")),
	}
}

// WithClock replaces the service's clock. It returns s for chaining.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// ProcessSearchResults compares every watch against a just-completed
// search, records deduplicated alerts, commits the refreshed tracking
// fields and forwards recorded alerts to the notifier.
func (s *Service) ProcessSearchResults(ctx context.Context, req domain.SearchRequest, offers []domain.OfferSnapshot) (Report, error) {
	if err := s.registry.Migrate(ctx); err != nil {
		s.logger.WarnContext(ctx, "legacy registry migration failed",
			slog.String("error", err.Error()),
		)
	}

	watches := s.registry.List(ctx)
	if len(watches) == 0 {
		return Report{}, nil
	}

	now := s.now()
	rep := Report{Result: Compare(watches, req, offers, now, s.thresholds)}

	recorded, err := s.log.Append(ctx, rep.Notifications)
	if err != nil {
		return rep, fmt.Errorf("tracker: record notifications: %w", err)
	}
	rep.Recorded = recorded

	if !rep.touched() {
		return rep, nil
	}

	notified := make(map[string]time.Time, len(recorded))
	for _, n := range recorded {
		notified[n.OfferID] = n.Timestamp
	}

	err = s.registry.Update(ctx, func(entries map[string]domain.WatchEntry) error {
		for _, u := range rep.Updated {
			if rep.Outcomes[u.OfferID] == OutcomeDisabled || rep.Outcomes[u.OfferID] == OutcomeOtherRoute {
				continue
			}
			cur, ok := entries[u.OfferID]
			if !ok {
				continue
			}
			cur.LastCheckedAt = u.LastCheckedAt
			cur.LastSeenPrice = u.LastSeenPrice
			cur.LastSeenAt = u.LastSeenAt
			if ts, ok := notified[u.OfferID]; ok {
				cur.LastNotificationAt = &ts
			}
			entries[u.OfferID] = cur
		}
		return nil
	})
	if err != nil {
		return rep, fmt.Errorf("tracker: commit registry: %w", err)
	}

	s.logger.InfoContext(ctx, "search results processed",
		slog.String("origin", req.Origin),
		slog.String("destination", req.Destination),
		slog.Int("offers", len(offers)),
		slog.Int("watches", len(watches)),
		slog.Int("alerts", len(recorded)),
	)

	s.dispatch(ctx, recorded)
	return rep, nil
}

func (s *Service) dispatch(ctx context.Context, alerts []domain.Notification) {
	if s.notifier == nil {
		return
	}
	for _, a := range alerts {
		if err := s.notifier.NotifyPriceChange(ctx, a); err != nil {
			s.logger.WarnContext(ctx, "alert delivery failed",
				slog.String("offer_id", a.OfferID),
				slog.String("error", err.Error()),
			)
		}
	}
}
