// Package notify fans recorded price alerts out to external channels
// (Telegram, Discord). Delivery is best effort: a failing sender is logged
// and never blocks the others.
package notify

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// EventPriceChange is the event type of a watched offer's price alert.
const EventPriceChange = "price_change"

// Sender is the interface that each notification channel must implement.
type Sender interface {
	// Send delivers a notification with the given title and message body.
	Send(ctx context.Context, title, message string) error
	// Name returns a human-readable identifier for the sender (e.g. "telegram").
	Name() string
}

// Notifier dispatches notifications to one or more Senders. Only event types
// in the allowed set are forwarded; an empty set allows everything.
type Notifier struct {
	senders []Sender
	events  map[string]bool
	logger  *slog.Logger
}

// NewNotifier creates a Notifier that will deliver to the given senders.
func NewNotifier(senders []Sender, events []string, logger *slog.Logger) *Notifier {
	allowed := make(map[string]bool, len(events))
	for _, e := range events {
		if e = strings.TrimSpace(e); e != "" {
			allowed[e] = true
		}
	}
	return &Notifier{
		senders: senders,
		events:  allowed,
		logger:  logger.With(slog.String("component", "notifier")),
	}
}

// NotifyPriceChange formats n and sends it as a price_change event.
func (n *Notifier) NotifyPriceChange(ctx context.Context, alert domain.Notification) error {
	return n.Notify(ctx, EventPriceChange, AlertTitle(alert), AlertMessage(alert))
}

// Notify sends to all senders if event is allowed.
func (n *Notifier) Notify(ctx context.Context, event, title, message string) error {
	if len(n.events) > 0 && !n.events[event] {
		n.logger.DebugContext(ctx, "event filtered out",
			slog.String("event", event),
		)
		return nil
	}
	return n.dispatch(ctx, title, message)
}

// dispatch sends to every sender and joins the failures into one error.
func (n *Notifier) dispatch(ctx context.Context, title, message string) error {
	if len(n.senders) == 0 {
		return nil
	}

	var errs []string
	for _, s := range n.senders {
		if err := s.Send(ctx, title, message); err != nil {
			n.logger.ErrorContext(ctx, "sender failed",
				slog.String("sender", s.Name()),
				slog.String("error", err.Error()),
			)
			errs = append(errs, fmt.Sprintf("%s: %v", s.Name(), err))
			continue
		}
		n.logger.DebugContext(ctx, "notification sent",
			slog.String("sender", s.Name()),
			slog.String("title", title),
		)
	}

	if len(errs) > 0 {
		return fmt.Errorf("notify: %d sender(s) failed: %s", len(errs), strings.Join(errs, "; "))
	}
	return nil
}

// AlertTitle renders the headline of a price alert, e.g.
// "Price drop: NYC → LAX".
func AlertTitle(a domain.Notification) string {
	kind := "Price rise"
	if a.Delta < 0 {
		kind = "Price drop"
	}
	route := a.OfferID
	if a.Origin != "" && a.Destination != "" {
		route = a.Origin + " → " + a.Destination
	}
	return kind + ": " + route
}

// AlertMessage renders the body of a price alert.
func AlertMessage(a domain.Notification) string {
	sign := ""
	if a.Delta >= 0 {
		sign = "+"
	}
	cur := a.Currency
	if cur != "" {
		cur += " "
	}
	return fmt.Sprintf("%s%.2f → %s%.2f (%s%.2f, %s%.1f%%)",
		cur, a.Baseline, cur, a.Current, sign, a.Delta, sign, a.Percent)
}
