// Package tracker compares watched offers against a fresh search batch and
// raises price alerts when a watched price moves past its thresholds.
package tracker

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/adriangarciao/offertrack/internal/domain"
	"github.com/adriangarciao/offertrack/internal/matcher"
)

// Thresholds are the fallback alert thresholds used when a watch sets
// neither of its own.
type Thresholds struct {
	Absolute float64
	Percent  float64
}

// DefaultThresholds alert on a 25 currency unit or 5% move.
var DefaultThresholds = Thresholds{Absolute: 25, Percent: 5}

// Outcome is what a comparison pass did with one watch entry.
type Outcome string

const (
	OutcomeDisabled   Outcome = "disabled"
	OutcomeOtherRoute Outcome = "other_route"
	OutcomeNotFound   Outcome = "not_found"
	OutcomeMatched    Outcome = "matched"
)

// Result is the output of one comparison pass.
type Result struct {
	// Updated holds every input entry, in input order, with tracking
	// fields refreshed where the pass touched it.
	Updated  []domain.WatchEntry
	Outcomes map[string]Outcome
	// Notifications are the alert candidates before deduplication.
	Notifications []domain.Notification
}

// Compare runs one comparison pass. It does not modify watches.
//
// Disabled entries and entries whose route differs from the search route
// are passed through untouched. Entries not found in offers, or matched to
// an offer without a usable price, only get LastCheckedAt. Matched entries
// get LastCheckedAt, LastSeenPrice and LastSeenAt, and yield a notification
// when ShouldAlert says so.
func Compare(watches []domain.WatchEntry, req domain.SearchRequest, offers []domain.OfferSnapshot, now time.Time, defaults Thresholds) Result {
	res := Result{
		Updated:  make([]domain.WatchEntry, 0, len(watches)),
		Outcomes: make(map[string]Outcome, len(watches)),
	}
	now = now.UTC()

	for _, w := range watches {
		if !w.WatchEnabled {
			res.Updated = append(res.Updated, w)
			res.Outcomes[w.OfferID] = OutcomeDisabled
			continue
		}
		if !sameRoute(w, req) {
			res.Updated = append(res.Updated, w)
			res.Outcomes[w.OfferID] = OutcomeOtherRoute
			continue
		}

		checked := now
		w.LastCheckedAt = &checked

		m, ok := matcher.Match(w, offers)
		current, priced := m.Offer.Price()
		if !ok || !priced {
			res.Updated = append(res.Updated, w)
			res.Outcomes[w.OfferID] = OutcomeNotFound
			continue
		}

		baseline := w.BaselineTotalPrice
		delta := current - baseline
		percent := 0.0
		if baseline != 0 {
			percent = delta / baseline * 100
		}

		seenAt := now
		w.LastSeenPrice = domain.Float(current)
		w.LastSeenAt = &seenAt
		res.Updated = append(res.Updated, w)
		res.Outcomes[w.OfferID] = OutcomeMatched

		if ShouldAlert(w, delta, percent, defaults) {
			res.Notifications = append(res.Notifications, domain.Notification{
				ID:          fmt.Sprintf("%s:%s", w.OfferID, now.Format(time.RFC3339Nano)),
				OfferID:     w.OfferID,
				Timestamp:   now,
				Origin:      w.Origin,
				Destination: w.Destination,
				Currency:    w.BaselineCurrency,
				Baseline:    baseline,
				Current:     current,
				Delta:       delta,
				Percent:     percent,
			})
		}
	}
	return res
}

// ShouldAlert applies the entry's thresholds to a price move. With only one
// threshold set, only that test applies. With both set, or neither (using
// defaults), either test firing is enough.
func ShouldAlert(w domain.WatchEntry, delta, percent float64, defaults Thresholds) bool {
	hasAbs := w.AlertThresholdAbsolute != nil
	hasPct := w.AlertThresholdPercent != nil

	absThreshold := defaults.Absolute
	if hasAbs {
		absThreshold = *w.AlertThresholdAbsolute
	}
	pctThreshold := defaults.Percent
	if hasPct {
		pctThreshold = *w.AlertThresholdPercent
	}

	absHit := math.Abs(delta) >= absThreshold
	pctHit := math.Abs(percent) >= pctThreshold

	switch {
	case hasAbs && !hasPct:
		return absHit
	case hasPct && !hasAbs:
		return pctHit
	default:
		return absHit || pctHit
	}
}

// sameRoute filters only entries that name a route, and only when there is
// a search request at all. A request missing one end of its route never
// matches such an entry.
func sameRoute(w domain.WatchEntry, req domain.SearchRequest) bool {
	if w.Origin == "" || w.Destination == "" || req == (domain.SearchRequest{}) {
		return true
	}
	return strings.EqualFold(w.Origin, req.Origin) && strings.EqualFold(w.Destination, req.Destination)
}

// touched reports whether the pass refreshed any entry.
func (r Result) touched() bool {
	for _, o := range r.Outcomes {
		if o == OutcomeMatched || o == OutcomeNotFound {
			return true
		}
	}
	return false
}
