package notify_test

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adriangarciao/offertrack/internal/domain"
	"github.com/adriangarciao/offertrack/internal/notify"
)

var testLogger = slog.New(slog.DiscardHandler)

var drop = domain.Notification{
	ID:          "o1:x",
	OfferID:     "o1",
	Timestamp:   time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
	Origin:      "NYC",
	Destination: "LAX",
	Currency:    "USD",
	Baseline:    700,
	Current:     650,
	Delta:       -50,
	Percent:     -7.142857,
}

type captured struct {
	mu     sync.Mutex
	paths  []string
	bodies []map[string]string
}

func (c *captured) server(t *testing.T, status int) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		_ = json.NewDecoder(r.Body).Decode(&body)
		c.mu.Lock()
		c.paths = append(c.paths, r.URL.Path)
		c.bodies = append(c.bodies, body)
		c.mu.Unlock()
		w.WriteHeader(status)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestAlertText(t *testing.T) {
	assert.Equal(t, "Price drop: NYC → LAX", notify.AlertTitle(drop))
	assert.Equal(t, "USD 700.00 → USD 650.00 (-50.00, -7.1%)", notify.AlertMessage(drop))

	rise := drop
	rise.Origin, rise.Delta, rise.Percent = "", 20, 3.1
	assert.Equal(t, "Price rise: o1", notify.AlertTitle(rise))
	assert.Contains(t, notify.AlertMessage(rise), "(+20.00, +3.1%)")
}

func TestTelegramSender(t *testing.T) {
	c := &captured{}
	srv := c.server(t, http.StatusOK)

	s := notify.NewTelegramSender(srv.URL, "TOKEN", "42")
	require.NoError(t, s.Send(context.Background(), "Title", "Body"))

	require.Len(t, c.paths, 1)
	assert.Equal(t, "/botTOKEN/sendMessage", c.paths[0])
	assert.Equal(t, "42", c.bodies[0]["chat_id"])
	assert.Equal(t, "*Title*\nBody", c.bodies[0]["text"])
}

func TestDiscordSenderError(t *testing.T) {
	c := &captured{}
	srv := c.server(t, http.StatusBadRequest)

	err := notify.NewDiscordSender(srv.URL).Send(context.Background(), "Title", "Body")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unexpected status 400")
	assert.Equal(t, "**Title**\nBody", c.bodies[0]["content"])
}

func TestNotifierFansOutAndJoinsFailures(t *testing.T) {
	ok, bad := &captured{}, &captured{}
	okSrv, badSrv := ok.server(t, http.StatusNoContent), bad.server(t, http.StatusInternalServerError)

	n := notify.NewNotifier([]notify.Sender{
		notify.NewDiscordSender(badSrv.URL),
		notify.NewTelegramSender(okSrv.URL, "T", "1"),
	}, []string{notify.EventPriceChange}, testLogger)

	err := n.NotifyPriceChange(context.Background(), drop)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "discord")
	assert.Len(t, ok.paths, 1, "a failing sender does not block the others")
}

func TestNotifierFiltersEvents(t *testing.T) {
	c := &captured{}
	srv := c.server(t, http.StatusOK)

	n := notify.NewNotifier([]notify.Sender{notify.NewDiscordSender(srv.URL)}, []string{"something_else"}, testLogger)
	require.NoError(t, n.NotifyPriceChange(context.Background(), drop))
	assert.Empty(t, c.paths)
}
