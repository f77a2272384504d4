package bus

import (
	"context"
	"log/slog"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// Bus is the ChangeBus handed to components. Publish reaches in-process
// subscribers; the medium reaches other processes by itself.
type Bus struct {
	local  *Local
	signal *MediumSignal
}

// New creates a Bus over medium.
func New(medium domain.Medium, logger *slog.Logger) *Bus {
	return &Bus{
		local:  NewLocal(),
		signal: NewMediumSignal(medium, nil, logger),
	}
}

// Publish notifies in-process subscribers of topic.
func (b *Bus) Publish(ctx context.Context, topic string) error {
	return b.local.Publish(ctx, topic)
}

// Subscribe registers h on both transports.
func (b *Bus) Subscribe(topic string, h domain.ChangeHandler) func() {
	cancelLocal := b.local.Subscribe(topic, h)
	cancelSignal := b.signal.Subscribe(topic, h)
	return func() {
		cancelLocal()
		cancelSignal()
	}
}

// Start begins receiving cross-process signals; see MediumSignal.Start.
func (b *Bus) Start(ctx context.Context) error {
	return b.signal.Start(ctx)
}

// Run starts the cross-process transport and blocks until ctx is done.
func (b *Bus) Run(ctx context.Context) error {
	if err := b.Start(ctx); err != nil {
		return err
	}
	<-ctx.Done()
	return ctx.Err()
}

// Compile-time interface check.
var _ domain.ChangeBus = (*Bus)(nil)
