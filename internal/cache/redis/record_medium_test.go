package redis_test

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	rediscache "github.com/adriangarciao/offertrack/internal/cache/redis"
	"github.com/adriangarciao/offertrack/internal/domain"
)

var testLogger = slog.New(slog.DiscardHandler)

func newMedium(t *testing.T, mr *miniredis.Miniredis) *rediscache.RecordMedium {
	t.Helper()
	c, err := rediscache.New(context.Background(), rediscache.ClientConfig{
		Addr:      mr.Addr(),
		PoolSize:  4,
		KeyPrefix: "test:",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })
	return rediscache.NewRecordMedium(c, testLogger)
}

func TestRecordMediumGetSetDelete(t *testing.T) {
	ctx := context.Background()
	mr := miniredis.RunT(t)
	m := newMedium(t, mr)

	_, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, m.Set(ctx, "k", `["a"]`))
	v, ok, err := m.Get(ctx, "k")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, `["a"]`, v)

	raw, err := mr.Get("test:k")
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, raw)

	require.NoError(t, m.Delete(ctx, "k"))
	_, ok, err = m.Get(ctx, "k")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRecordMediumWatchSkipsOwnWrites(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)
	self, other := newMedium(t, mr), newMedium(t, mr)

	changes, err := self.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, self.Set(ctx, domain.KeyCompareIDs, "[]"))
	require.NoError(t, other.Set(ctx, domain.KeyWatchRegistry, "{}"))

	select {
	case kc := <-changes:
		assert.Equal(t, domain.KeyChange{Key: domain.KeyWatchRegistry, Origin: other.Origin()}, kc)
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal")
	}

	select {
	case kc := <-changes:
		t.Fatalf("unexpected signal %+v", kc)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestRecordMediumSkipsMalformedSignals(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	mr := miniredis.RunT(t)
	self, other := newMedium(t, mr), newMedium(t, mr)

	changes, err := self.Watch(ctx)
	require.NoError(t, err)

	mr.Publish(rediscache.DefaultChangeChannel, "not json")
	require.NoError(t, other.Delete(ctx, "k"))

	select {
	case kc := <-changes:
		assert.Equal(t, "k", kc.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal")
	}
}

func TestClientKeyspace(t *testing.T) {
	mr := miniredis.RunT(t)
	c, err := rediscache.New(context.Background(), rediscache.ClientConfig{
		Addr:          mr.Addr(),
		KeyPrefix:     "ot:",
		ChangeChannel: "ot:changes",
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = c.Close() })

	assert.Equal(t, "ot:"+domain.KeyCompareIDs, c.Key(domain.KeyCompareIDs))
	assert.Equal(t, "ot:changes", c.Channel())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	self := rediscache.NewRecordMedium(c, testLogger)
	other := rediscache.NewRecordMedium(c, testLogger)
	changes, err := self.Watch(ctx)
	require.NoError(t, err)

	require.NoError(t, other.Set(ctx, "k", "1"))
	raw, err := mr.Get("ot:k")
	require.NoError(t, err)
	assert.Equal(t, "1", raw)

	select {
	case kc := <-changes:
		assert.Equal(t, "k", kc.Key)
	case <-time.After(2 * time.Second):
		t.Fatal("no change signal on the configured channel")
	}
}

func TestClientFailsWhenUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := rediscache.New(context.Background(), rediscache.ClientConfig{Addr: addr})
	assert.Error(t, err)
}
