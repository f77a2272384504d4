// Package compare manages the bounded set of offers a user has picked for
// side-by-side comparison. Several Manager instances may be live at once,
// in one process or many; every mutation re-reads the shared records first
// so the size cap holds in the persisted value whichever instance commits.
package compare

import (
	"context"
	"log/slog"
	"sync"

	"github.com/samber/lo"

	"github.com/adriangarciao/offertrack/internal/domain"
	"github.com/adriangarciao/offertrack/internal/record"
)

// MaxSelected is the largest number of offers that can be compared.
const MaxSelected = 3

// MaxReachedMessage is returned when a toggle would exceed MaxSelected.
const MaxReachedMessage = "You can compare up to 3 flights."

// ToggleResult is the business outcome of Toggle. OK=false is not an error.
type ToggleResult struct {
	OK      bool
	Message string
}

// Manager is one live instance of the compare selection.
type Manager struct {
	store  *record.Store
	bus    domain.ChangeBus
	logger *slog.Logger

	mu        sync.Mutex
	ids       []string
	snapshots map[string]domain.OfferSnapshot
	idsFP     string
	snapsFP   string
	onChange  func()

	unsubscribe func()
}

// New creates a Manager, loads the persisted selection and subscribes to
// compare changes from sibling instances.
func New(ctx context.Context, store *record.Store, bus domain.ChangeBus, logger *slog.Logger) *Manager {
	m := &Manager{
		store:  store,
		bus:    bus,
		logger: logger.With(slog.String("component", "compare")),
	}
	ids, snaps := m.read(ctx)
	m.setView(ids, snaps)
	m.unsubscribe = bus.Subscribe(domain.TopicCompare, func(ctx context.Context, _ domain.ChangeEvent) {
		m.Sync(ctx)
	})
	return m
}

// Close stops listening for changes.
func (m *Manager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// OnChange registers fn to run whenever a received change alters this
// instance's view. Only one callback is kept.
func (m *Manager) OnChange(fn func()) {
	m.mu.Lock()
	m.onChange = fn
	m.mu.Unlock()
}

// Toggle removes id if selected, otherwise adds it with its snapshot. Adding
// beyond MaxSelected returns OK=false with MaxReachedMessage and changes
// nothing.
func (m *Manager) Toggle(ctx context.Context, id string, snapshot *domain.OfferSnapshot) (ToggleResult, error) {
	m.mu.Lock()
	ids, snaps := m.read(ctx)

	if lo.Contains(ids, id) {
		ids = lo.Without(ids, id)
		delete(snaps, id)
	} else {
		if len(ids) >= MaxSelected {
			m.mu.Unlock()
			return ToggleResult{OK: false, Message: MaxReachedMessage}, nil
		}
		ids = append(ids, id)
		if snapshot != nil {
			snaps[id] = *snapshot
		}
	}

	if err := m.commitLocked(ctx, ids, snaps); err != nil {
		m.mu.Unlock()
		return ToggleResult{}, err
	}
	m.mu.Unlock()

	m.broadcast(ctx)
	return ToggleResult{OK: true}, nil
}

// Remove unselects id and drops its snapshot.
func (m *Manager) Remove(ctx context.Context, id string) error {
	m.mu.Lock()
	ids, snaps := m.read(ctx)
	ids = lo.Without(ids, id)
	delete(snaps, id)

	if err := m.commitLocked(ctx, ids, snaps); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	m.broadcast(ctx)
	return nil
}

// Clear empties the selection.
func (m *Manager) Clear(ctx context.Context) error {
	m.mu.Lock()
	if err := m.commitLocked(ctx, []string{}, map[string]domain.OfferSnapshot{}); err != nil {
		m.mu.Unlock()
		return err
	}
	m.mu.Unlock()

	m.broadcast(ctx)
	return nil
}

// Import adds every offer that is not already selected, in order, stopping
// quietly once the selection is full. Offers selected by another instance
// stay selected. It returns how many offers were added.
func (m *Manager) Import(ctx context.Context, offers []domain.OfferSnapshot) (int, error) {
	m.mu.Lock()
	ids, snaps := m.read(ctx)

	added := 0
	for _, o := range offers {
		if o.ID == "" || lo.Contains(ids, o.ID) {
			continue
		}
		if len(ids) >= MaxSelected {
			break
		}
		ids = append(ids, o.ID)
		snaps[o.ID] = o
		added++
	}
	if added == 0 {
		m.mu.Unlock()
		return 0, nil
	}

	if err := m.commitLocked(ctx, ids, snaps); err != nil {
		m.mu.Unlock()
		return 0, err
	}
	m.mu.Unlock()

	m.broadcast(ctx)
	return added, nil
}

// Has reports whether id is in this instance's view of the selection.
func (m *Manager) Has(id string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.Contains(m.ids, id)
}

// IDs returns the selected ids in selection order.
func (m *Manager) IDs() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]string, len(m.ids))
	copy(out, m.ids)
	return out
}

// List returns the snapshots of the selected offers in selection order.
// Ids without a stored snapshot are skipped.
func (m *Manager) List() []domain.OfferSnapshot {
	m.mu.Lock()
	defer m.mu.Unlock()
	return lo.FilterMap(m.ids, func(id string, _ int) (domain.OfferSnapshot, bool) {
		s, ok := m.snapshots[id]
		return s, ok
	})
}

// Sync re-reads the persisted selection and replaces the view if its
// fingerprint changed. It reports whether the view changed. Sync never
// broadcasts.
func (m *Manager) Sync(ctx context.Context) bool {
	m.mu.Lock()
	ids, snaps := m.read(ctx)
	idsFP, snapsFP := record.Fingerprint(ids), record.Fingerprint(snaps)
	if idsFP == m.idsFP && snapsFP == m.snapsFP {
		m.mu.Unlock()
		return false
	}
	m.setView(ids, snaps)
	fn := m.onChange
	m.mu.Unlock()

	m.logger.DebugContext(ctx, "selection changed elsewhere",
		slog.Int("selected", len(ids)),
	)
	if fn != nil {
		fn()
	}
	return true
}

func (m *Manager) read(ctx context.Context) ([]string, map[string]domain.OfferSnapshot) {
	ids := record.Read(ctx, m.store, domain.KeyCompareIDs, record.EmptyList[string])
	snaps := record.Read(ctx, m.store, domain.KeyCompareSnapshots, record.EmptyMap[string, domain.OfferSnapshot])
	if ids == nil {
		ids = []string{}
	}
	if snaps == nil {
		snaps = map[string]domain.OfferSnapshot{}
	}
	return ids, snaps
}

func (m *Manager) commitLocked(ctx context.Context, ids []string, snaps map[string]domain.OfferSnapshot) error {
	if err := m.store.Write(ctx, domain.KeyCompareIDs, ids); err != nil {
		return err
	}
	if err := m.store.Write(ctx, domain.KeyCompareSnapshots, snaps); err != nil {
		return err
	}
	m.setView(ids, snaps)
	return nil
}

func (m *Manager) setView(ids []string, snaps map[string]domain.OfferSnapshot) {
	m.ids = ids
	m.snapshots = snaps
	m.idsFP = record.Fingerprint(ids)
	m.snapsFP = record.Fingerprint(snaps)
}

func (m *Manager) broadcast(ctx context.Context) {
	if err := m.bus.Publish(ctx, domain.TopicCompare); err != nil {
		m.logger.WarnContext(ctx, "broadcast failed",
			slog.String("error", err.Error()),
		)
	}
}
