package watch_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adriangarciao/offertrack/internal/domain"
	"github.com/adriangarciao/offertrack/internal/watch"
)

func alert(offerID string, delta float64, at time.Time) domain.Notification {
	return domain.Notification{
		ID:        fmt.Sprintf("%s:%s", offerID, at.Format(time.RFC3339Nano)),
		OfferID:   offerID,
		Timestamp: at,
		Baseline:  700,
		Current:   700 + delta,
		Delta:     delta,
		Percent:   delta / 700 * 100,
	}
}

func newLog(e env, now *time.Time, opts watch.LogOptions) *watch.Log {
	return watch.NewLog(e.store, e.bus, testLogger, opts).WithClock(func() time.Time { return *now })
}

func TestAddSuppressesDuplicatesWithinWindow(t *testing.T) {
	ctx := context.Background()
	now := t0
	l := newLog(newEnv(), &now, watch.LogOptions{})

	ok, err := l.Add(ctx, alert("o1", -50, now))
	require.NoError(t, err)
	assert.True(t, ok)

	now = t0.Add(time.Hour)
	ok, err = l.Add(ctx, alert("o1", -50.005, now))
	require.NoError(t, err)
	assert.False(t, ok, "same delta inside the window")

	ok, err = l.Add(ctx, alert("o1", -60, now))
	require.NoError(t, err)
	assert.True(t, ok, "different delta")

	ok, err = l.Add(ctx, alert("o2", -50, now))
	require.NoError(t, err)
	assert.True(t, ok, "different offer")

	assert.Len(t, l.List(ctx), 3)
}

func TestAddComparesAgainstLatestForOffer(t *testing.T) {
	ctx := context.Background()
	now := t0
	l := newLog(newEnv(), &now, watch.LogOptions{})

	_, err := l.Add(ctx, alert("o1", -50, now))
	require.NoError(t, err)
	now = now.Add(time.Minute)
	_, err = l.Add(ctx, alert("o1", -80, now))
	require.NoError(t, err)

	// -50 matches an older entry but not the latest one.
	now = now.Add(time.Minute)
	ok, err := l.Add(ctx, alert("o1", -50, now))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestAddAllowsRepeatAfterWindow(t *testing.T) {
	ctx := context.Background()
	now := t0
	l := newLog(newEnv(), &now, watch.LogOptions{})

	_, err := l.Add(ctx, alert("o1", -50, now))
	require.NoError(t, err)

	now = t0.Add(watch.DefaultDedupWindow + time.Minute)
	ok, err := l.Add(ctx, alert("o1", -50, now))
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLogIsCappedNewestFirst(t *testing.T) {
	ctx := context.Background()
	now := t0
	l := newLog(newEnv(), &now, watch.LogOptions{Cap: 3})

	var batch []domain.Notification
	for i := range 5 {
		batch = append(batch, alert(fmt.Sprintf("o%d", i), -10, now.Add(time.Duration(i)*time.Second)))
	}
	recorded, err := l.Append(ctx, batch)
	require.NoError(t, err)
	assert.Len(t, recorded, 5)

	list := l.List(ctx)
	require.Len(t, list, 3)
	assert.Equal(t, "o4", list[0].OfferID)
	assert.Equal(t, "o2", list[2].OfferID)
}

func TestAppendBroadcastsOnce(t *testing.T) {
	ctx := context.Background()
	now := t0
	e := newEnv()
	l := newLog(e, &now, watch.LogOptions{})

	calls := 0
	e.bus.Subscribe(domain.TopicWatch, func(context.Context, domain.ChangeEvent) { calls++ })

	_, err := l.Append(ctx, []domain.Notification{alert("a", -30, now), alert("b", -40, now)})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)

	// Nothing recorded, nothing broadcast.
	_, err = l.Append(ctx, []domain.Notification{alert("a", -30, now)})
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
}

func TestRemoveAndClearNotifications(t *testing.T) {
	ctx := context.Background()
	now := t0
	l := newLog(newEnv(), &now, watch.LogOptions{})

	a, b := alert("a", -30, now), alert("b", -40, now)
	_, err := l.Append(ctx, []domain.Notification{a, b})
	require.NoError(t, err)

	require.NoError(t, l.Remove(ctx, a.ID))
	list := l.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, b.ID, list[0].ID)

	require.NoError(t, l.Clear(ctx))
	assert.Empty(t, l.List(ctx))
}
