package domain

import "context"

// Change topics, one per logical domain.
const (
	TopicCompare = "compare"
	TopicWatch   = "watch"
)

// ChangeEvent tells a subscriber that the persisted data behind Topic may
// have changed. Key is set when the event came from the medium signal.
type ChangeEvent struct {
	Topic string
	Key   string
}

// ChangeHandler receives change events. Handlers must not publish.
type ChangeHandler func(ctx context.Context, ev ChangeEvent)

// ChangeBus notifies live instances that persisted data changed, whichever
// transport carried the signal.
type ChangeBus interface {
	Publish(ctx context.Context, topic string) error
	Subscribe(topic string, h ChangeHandler) (cancel func())
}
