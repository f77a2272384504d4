// Package bus implements domain.ChangeBus over two transports: an in-process
// fan-out for instances sharing one process, and the medium's native
// cross-process change signal. Bus unifies them behind one Subscribe so
// components never care which transport woke them up.
package bus

import (
	"context"
	"sync"

	"github.com/adriangarciao/offertrack/internal/domain"
)

type subscription struct {
	id uint64
	h  domain.ChangeHandler
}

// Local is the in-process transport. Publish delivers synchronously, in
// subscription order, on the caller's goroutine.
type Local struct {
	mu     sync.RWMutex
	nextID uint64
	subs   map[string][]subscription
}

// NewLocal creates an empty in-process transport.
func NewLocal() *Local {
	return &Local{subs: make(map[string][]subscription)}
}

// Publish delivers a change event for topic to every subscriber.
func (l *Local) Publish(ctx context.Context, topic string) error {
	l.Dispatch(ctx, domain.ChangeEvent{Topic: topic})
	return nil
}

// Dispatch delivers ev to the subscribers of ev.Topic.
func (l *Local) Dispatch(ctx context.Context, ev domain.ChangeEvent) {
	l.mu.RLock()
	subs := make([]subscription, len(l.subs[ev.Topic]))
	copy(subs, l.subs[ev.Topic])
	l.mu.RUnlock()

	for _, s := range subs {
		s.h(ctx, ev)
	}
}

// Subscribe registers h for topic and returns a function that removes it.
func (l *Local) Subscribe(topic string, h domain.ChangeHandler) func() {
	l.mu.Lock()
	l.nextID++
	id := l.nextID
	l.subs[topic] = append(l.subs[topic], subscription{id: id, h: h})
	l.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { l.unsubscribe(topic, id) })
	}
}

func (l *Local) unsubscribe(topic string, id uint64) {
	l.mu.Lock()
	defer l.mu.Unlock()

	subs := l.subs[topic]
	for i, s := range subs {
		if s.id == id {
			l.subs[topic] = append(subs[:i:i], subs[i+1:]...)
			break
		}
	}
	if len(l.subs[topic]) == 0 {
		delete(l.subs, topic)
	}
}

// Compile-time interface check.
var _ domain.ChangeBus = (*Local)(nil)
