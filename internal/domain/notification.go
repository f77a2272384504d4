package domain

import "time"

// Notification is a recorded price-change alert for a watched offer.
// ID has the form "offerId:timestamp".
type Notification struct {
	ID          string    `json:"id"`
	OfferID     string    `json:"offerId"`
	Timestamp   time.Time `json:"timestamp"`
	Origin      string    `json:"origin,omitempty"`
	Destination string    `json:"destination,omitempty"`
	Currency    string    `json:"currency,omitempty"`
	Baseline    float64   `json:"baseline"`
	Current     float64   `json:"current"`
	Delta       float64   `json:"delta"`
	Percent     float64   `json:"percent"`
}
