package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// changeMessage is the wire form of a key-change signal.
type changeMessage struct {
	Key    string `json:"key"`
	Origin string `json:"origin"`
}

func encodeChange(key, origin string) ([]byte, error) {
	msg, err := json.Marshal(changeMessage{Key: key, Origin: origin})
	if err != nil {
		return nil, fmt.Errorf("redis: marshal change signal %s: %w", key, err)
	}
	return msg, nil
}

// SignalBus reads key-change signals off a Redis Pub/Sub channel. Delivery
// is fire-and-forget: a subscriber that is not connected misses the message.
type SignalBus struct {
	rdb     *redis.Client
	channel string
	logger  *slog.Logger
}

// NewSignalBus creates a SignalBus listening on c's change channel.
func NewSignalBus(c *Client, logger *slog.Logger) *SignalBus {
	return &SignalBus{rdb: c.rdb, channel: c.Channel(), logger: logger}
}

// Subscribe opens the subscription and returns a channel of decoded changes,
// dropping those stamped with skipOrigin. The subscription and the returned
// channel are closed when ctx is cancelled.
func (sb *SignalBus) Subscribe(ctx context.Context, skipOrigin string) (<-chan domain.KeyChange, error) {
	pubsub := sb.rdb.Subscribe(ctx, sb.channel)

	// Wait for the subscription confirmation so no write after this call
	// returns is missed.
	if _, err := pubsub.Receive(ctx); err != nil {
		_ = pubsub.Close()
		return nil, fmt.Errorf("redis: subscribe %s: %w", sb.channel, err)
	}

	out := make(chan domain.KeyChange, 64)
	go func() {
		defer close(out)
		defer pubsub.Close()

		ch := pubsub.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case msg, ok := <-ch:
				if !ok {
					return
				}
				var cm changeMessage
				if err := json.Unmarshal([]byte(msg.Payload), &cm); err != nil {
					sb.logger.WarnContext(ctx, "discarding malformed change signal",
						slog.String("channel", msg.Channel),
						slog.String("error", err.Error()),
					)
					continue
				}
				if cm.Origin == skipOrigin {
					continue
				}
				select {
				case out <- domain.KeyChange{Key: cm.Key, Origin: cm.Origin}:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
