// Package matcher re-locates a watched offer inside a fresh batch of search
// results. Offer ids are not stable across searches, so apart from an exact
// trip-option id hit the match is scored on route and itinerary structure.
package matcher

import (
	"strings"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// Score weights.
const (
	ScoreExactID      = 100
	ScoreRoute        = 30
	ScoreSegments     = 20
	ScoreAirline      = 5
	ScoreFlightNumber = 5
	ScoreStops        = 5
)

// MinAcceptedScore is the lowest best score accepted as a match: a confirmed
// route, or an exact id.
const MinAcceptedScore = ScoreRoute

// Result is an accepted match.
type Result struct {
	Offer domain.OfferSnapshot
	Index int
	Score int
}

// Score rates how likely offer is the offer watched by entry.
func Score(entry domain.WatchEntry, offer domain.OfferSnapshot) int {
	if entry.TripOptionID != "" && entry.TripOptionID == candidateID(offer) {
		return ScoreExactID
	}

	f := offer.Flight
	if f == nil {
		return 0
	}

	score := 0
	if entry.Origin != "" && entry.Destination != "" &&
		strings.EqualFold(entry.Origin, f.Origin) &&
		strings.EqualFold(entry.Destination, f.Destination) {
		score += ScoreRoute
	}
	if sameSegments(entry.Segments, f.Segments) {
		score += ScoreSegments
	}
	if entry.AirlineCode != "" && strings.EqualFold(entry.AirlineCode, f.AirlineCode) {
		score += ScoreAirline
	}
	if entry.FlightNumber != "" && strings.EqualFold(entry.FlightNumber, f.FlightNumber) {
		score += ScoreFlightNumber
	}
	if entry.Stops != nil && f.Stops != nil && *entry.Stops == *f.Stops {
		score += ScoreStops
	}
	return score
}

// Match returns the best-scoring offer for entry. An exact id hit wins
// immediately; ties keep the earliest offer. ok is false when nothing
// reaches MinAcceptedScore.
func Match(entry domain.WatchEntry, offers []domain.OfferSnapshot) (Result, bool) {
	best := Result{Index: -1}
	for i, o := range offers {
		s := Score(entry, o)
		if s >= ScoreExactID {
			return Result{Offer: o, Index: i, Score: s}, true
		}
		if s > best.Score {
			best = Result{Offer: o, Index: i, Score: s}
		}
	}
	if best.Index < 0 || best.Score < MinAcceptedScore {
		return Result{}, false
	}
	return best, true
}

func candidateID(o domain.OfferSnapshot) string {
	if o.TripOptionID != "" {
		return o.TripOptionID
	}
	return o.ID
}

func sameSegments(a, b []string) bool {
	if len(a) == 0 || len(a) != len(b) {
		return false
	}
	for i := range a {
		if normalizeSegment(a[i]) != normalizeSegment(b[i]) {
			return false
		}
	}
	return true
}

// normalizeSegment lowercases and collapses whitespace.
func normalizeSegment(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}
