package domain

import (
	"bytes"
	"encoding/json"
	"math"
)

// OfferSnapshot is the canonical shape of a priced offer, captured when it is
// selected for comparison, saved, or received in a search batch. Snapshots are
// replaced wholesale and never mutated in place.
type OfferSnapshot struct {
	ID           string          `json:"id"`
	TripOptionID string          `json:"tripOptionId,omitempty"`
	TotalPrice   *float64        `json:"totalPrice,omitempty"`
	Currency     string          `json:"currency,omitempty"`
	ValueScore   *float64        `json:"valueScore,omitempty"`
	Flight       *Flight         `json:"flight,omitempty"`
	Lodging      *Lodging        `json:"lodging,omitempty"`
	Original     OriginalPayload `json:"original,omitempty"`
}

// Price returns the offer's total price and whether it is a finite number.
func (o OfferSnapshot) Price() (float64, bool) {
	if o.TotalPrice == nil {
		return 0, false
	}
	p := *o.TotalPrice
	if math.IsNaN(p) || math.IsInf(p, 0) {
		return 0, false
	}
	return p, true
}

// Flight describes the flight leg of an offer.
type Flight struct {
	Origin       string   `json:"origin,omitempty"`
	Destination  string   `json:"destination,omitempty"`
	AirlineCode  string   `json:"airlineCode,omitempty"`
	AirlineName  string   `json:"airlineName,omitempty"`
	FlightNumber string   `json:"flightNumber,omitempty"`
	Stops        *int     `json:"stops,omitempty"`
	DurationText string   `json:"durationText,omitempty"`
	Segments     []string `json:"segments,omitempty"`
}

// Lodging describes the lodging part of an offer.
type Lodging struct {
	HotelName     string   `json:"hotelName,omitempty"`
	LodgingType   string   `json:"lodgingType,omitempty"`
	Rating        *float64 `json:"rating,omitempty"`
	PricePerNight *float64 `json:"pricePerNight,omitempty"`
	Nights        *int     `json:"nights,omitempty"`
}

// OriginalPayload preserves the collaborator's original JSON for an offer.
// Content that is not valid JSON is dropped on encode.
type OriginalPayload json.RawMessage

// MarshalJSON implements json.Marshaler.
func (p OriginalPayload) MarshalJSON() ([]byte, error) {
	if len(p) == 0 || !json.Valid(p) {
		return []byte("null"), nil
	}
	return []byte(p), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (p *OriginalPayload) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		*p = nil
		return nil
	}
	*p = append((*p)[:0], data...)
	return nil
}

// Float returns a pointer to v. Useful for optional numeric fields.
func Float(v float64) *float64 { return &v }

// Int returns a pointer to v.
func Int(v int) *int { return &v }
