package bus

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// MediumSignal is the cross-process transport. The medium signals writes by
// other processes on its own; MediumSignal maps each changed key to a topic
// and dispatches it. Publish is a no-op because the write itself is the
// signal.
type MediumSignal struct {
	medium   domain.Medium
	topicFor func(key string) string
	handlers *Local
	logger   *slog.Logger
}

// NewMediumSignal creates the cross-process transport. A nil topicFor uses
// domain.TopicForKey.
func NewMediumSignal(medium domain.Medium, topicFor func(string) string, logger *slog.Logger) *MediumSignal {
	if topicFor == nil {
		topicFor = domain.TopicForKey
	}
	return &MediumSignal{
		medium:   medium,
		topicFor: topicFor,
		handlers: NewLocal(),
		logger:   logger.With(slog.String("component", "medium_signal")),
	}
}

// Publish does nothing; see MediumSignal.
func (m *MediumSignal) Publish(context.Context, string) error { return nil }

// Subscribe registers h for changes to keys that map to topic.
func (m *MediumSignal) Subscribe(topic string, h domain.ChangeHandler) func() {
	return m.handlers.Subscribe(topic, h)
}

// Start opens the medium watch and pumps signals in a goroutine until ctx is
// done. The watch is established before Start returns.
func (m *MediumSignal) Start(ctx context.Context) error {
	changes, err := m.medium.Watch(ctx)
	if err != nil {
		return fmt.Errorf("bus: watch medium: %w", err)
	}
	go m.pump(ctx, changes)
	return nil
}

func (m *MediumSignal) pump(ctx context.Context, changes <-chan domain.KeyChange) {
	for kc := range changes {
		topic := m.topicFor(kc.Key)
		if topic == "" {
			continue
		}
		m.logger.DebugContext(ctx, "cross-process change",
			slog.String("key", kc.Key),
			slog.String("topic", topic),
			slog.String("origin", kc.Origin),
		)
		m.handlers.Dispatch(ctx, domain.ChangeEvent{Topic: topic, Key: kc.Key})
	}
}

// Compile-time interface check.
var _ domain.ChangeBus = (*MediumSignal)(nil)
