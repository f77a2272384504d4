package watch

import (
	"context"
	"log/slog"
	"math"
	"sync"
	"time"

	"github.com/samber/lo"

	"github.com/adriangarciao/offertrack/internal/domain"
	"github.com/adriangarciao/offertrack/internal/record"
)

const (
	// DefaultLogCap is how many notifications are kept, newest first.
	DefaultLogCap = 200
	// DefaultDedupWindow is how long an unchanged delta stays suppressed.
	DefaultDedupWindow = 12 * time.Hour
	// deltaEpsilon is the largest delta change still treated as unchanged.
	deltaEpsilon = 0.01
)

// LogOptions tunes a Log. Zero values select the defaults.
type LogOptions struct {
	Cap         int
	DedupWindow time.Duration
}

// Log is the append-only notification log.
type Log struct {
	store  *record.Store
	bus    domain.ChangeBus
	logger *slog.Logger
	now    func() time.Time
	cap    int
	window time.Duration

	mu sync.Mutex
}

// NewLog creates a notification log.
func NewLog(store *record.Store, bus domain.ChangeBus, logger *slog.Logger, opts LogOptions) *Log {
	if opts.Cap <= 0 {
		opts.Cap = DefaultLogCap
	}
	if opts.DedupWindow <= 0 {
		opts.DedupWindow = DefaultDedupWindow
	}
	return &Log{
		store:  store,
		bus:    bus,
		logger: logger.With(slog.String("component", "notification_log")),
		now:    time.Now,
		cap:    opts.Cap,
		window: opts.DedupWindow,
	}
}

// WithClock replaces the log's clock. It returns l for chaining.
func (l *Log) WithClock(now func() time.Time) *Log {
	l.now = now
	return l
}

// List returns the notifications, newest first.
func (l *Log) List(ctx context.Context) []domain.Notification {
	return l.read(ctx)
}

// Add records n unless it duplicates the latest notification for the same
// offer. It reports whether n was recorded.
func (l *Log) Add(ctx context.Context, n domain.Notification) (bool, error) {
	recorded, err := l.Append(ctx, []domain.Notification{n})
	return len(recorded) == 1, err
}

// Append records each notification in order, skipping duplicates, with one
// commit and one broadcast. It returns the notifications that were recorded.
//
// A notification duplicates the most recent one for its offer when their
// deltas differ by less than 0.01 and that one is younger than the dedup
// window.
func (l *Log) Append(ctx context.Context, ns []domain.Notification) ([]domain.Notification, error) {
	if len(ns) == 0 {
		return nil, nil
	}

	l.mu.Lock()
	arr := l.read(ctx)
	now := l.now()
	var recorded []domain.Notification
	for _, n := range ns {
		if l.isDuplicate(arr, n, now) {
			l.logger.DebugContext(ctx, "suppressed duplicate notification",
				slog.String("offer_id", n.OfferID),
				slog.Float64("delta", n.Delta),
			)
			continue
		}
		arr = append([]domain.Notification{n}, arr...)
		recorded = append(recorded, n)
	}
	if len(recorded) == 0 {
		l.mu.Unlock()
		return nil, nil
	}
	if len(arr) > l.cap {
		arr = arr[:l.cap]
	}
	if err := l.store.Write(ctx, domain.KeyNotifications, arr); err != nil {
		l.mu.Unlock()
		return nil, err
	}
	l.mu.Unlock()

	l.broadcast(ctx)
	return recorded, nil
}

// Remove deletes the notification with the given id.
func (l *Log) Remove(ctx context.Context, id string) error {
	l.mu.Lock()
	arr := lo.Reject(l.read(ctx), func(n domain.Notification, _ int) bool {
		return n.ID == id
	})
	if err := l.store.Write(ctx, domain.KeyNotifications, arr); err != nil {
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()

	l.broadcast(ctx)
	return nil
}

// Clear deletes every notification.
func (l *Log) Clear(ctx context.Context) error {
	l.mu.Lock()
	if err := l.store.Remove(ctx, domain.KeyNotifications); err != nil {
		l.mu.Unlock()
		return err
	}
	l.mu.Unlock()

	l.broadcast(ctx)
	return nil
}

func (l *Log) isDuplicate(arr []domain.Notification, n domain.Notification, now time.Time) bool {
	last, ok := lo.Find(arr, func(x domain.Notification) bool {
		return x.OfferID == n.OfferID
	})
	if !ok {
		return false
	}
	return math.Abs(n.Delta-last.Delta) < deltaEpsilon && now.Sub(last.Timestamp) < l.window
}

func (l *Log) read(ctx context.Context) []domain.Notification {
	arr := record.Read(ctx, l.store, domain.KeyNotifications, record.EmptyList[domain.Notification])
	if arr == nil {
		arr = []domain.Notification{}
	}
	return arr
}

func (l *Log) broadcast(ctx context.Context) {
	if err := l.bus.Publish(ctx, domain.TopicWatch); err != nil {
		l.logger.WarnContext(ctx, "broadcast failed", slog.String("error", err.Error()))
	}
}
