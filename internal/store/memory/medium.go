// Package memory implements domain.Medium in process memory. A Backend plays
// the role of the shared storage; each Handle is one process attached to it,
// so writes through one handle are signalled to the watchers of the others.
package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// watchBuffer bounds each watcher's queue. Signals are dropped when a watcher
// falls this far behind; receivers always re-read, so only the wake-up is lost.
const watchBuffer = 64

// Backend is the shared key-value storage.
type Backend struct {
	mu       sync.RWMutex
	data     map[string]string
	watchers map[*watcher]struct{}
}

type watcher struct {
	origin string
	ch     chan domain.KeyChange
}

// NewBackend creates an empty Backend.
func NewBackend() *Backend {
	return &Backend{
		data:     make(map[string]string),
		watchers: make(map[*watcher]struct{}),
	}
}

// Handle returns a new medium attached to the backend with its own origin.
func (b *Backend) Handle() *Handle {
	return &Handle{backend: b, origin: uuid.NewString()}
}

// Raw writes value without signalling anyone. Tests use it to plant corrupt
// records.
func (b *Backend) Raw(key, value string) {
	b.mu.Lock()
	b.data[key] = value
	b.mu.Unlock()
}

func (b *Backend) signal(origin, key string) {
	b.mu.RLock()
	defer b.mu.RUnlock()
	for w := range b.watchers {
		if w.origin == origin {
			continue
		}
		select {
		case w.ch <- domain.KeyChange{Key: key, Origin: origin}:
		default:
		}
	}
}

// Handle is one process's view of a Backend.
type Handle struct {
	backend *Backend
	origin  string
}

// Origin returns the identifier this handle stamps on its writes.
func (h *Handle) Origin() string { return h.origin }

// Get returns the stored value for key.
func (h *Handle) Get(_ context.Context, key string) (string, bool, error) {
	h.backend.mu.RLock()
	defer h.backend.mu.RUnlock()
	v, ok := h.backend.data[key]
	return v, ok, nil
}

// Set stores value and signals the other handles.
func (h *Handle) Set(_ context.Context, key, value string) error {
	h.backend.mu.Lock()
	h.backend.data[key] = value
	h.backend.mu.Unlock()
	h.backend.signal(h.origin, key)
	return nil
}

// Delete removes key and signals the other handles.
func (h *Handle) Delete(_ context.Context, key string) error {
	h.backend.mu.Lock()
	delete(h.backend.data, key)
	h.backend.mu.Unlock()
	h.backend.signal(h.origin, key)
	return nil
}

// Watch registers for changes made through other handles until ctx is done.
func (h *Handle) Watch(ctx context.Context) (<-chan domain.KeyChange, error) {
	w := &watcher{origin: h.origin, ch: make(chan domain.KeyChange, watchBuffer)}

	h.backend.mu.Lock()
	h.backend.watchers[w] = struct{}{}
	h.backend.mu.Unlock()

	go func() {
		<-ctx.Done()
		h.backend.mu.Lock()
		delete(h.backend.watchers, w)
		h.backend.mu.Unlock()
		close(w.ch)
	}()

	return w.ch, nil
}

// Compile-time interface check.
var _ domain.Medium = (*Handle)(nil)
