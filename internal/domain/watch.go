package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// WatchEntry tracks the baseline price and alert configuration of one saved
// offer. Entries with WatchEnabled=false are kept but skipped by matching.
type WatchEntry struct {
	OfferID      string      `json:"offerId"`
	TripOptionID string      `json:"tripOptionId,omitempty"`
	Origin       string      `json:"origin,omitempty"`
	Destination  string      `json:"destination,omitempty"`
	Segments     SegmentList `json:"segments,omitempty"`
	AirlineCode  string      `json:"airlineCode,omitempty"`
	FlightNumber string      `json:"flightNumber,omitempty"`
	Stops        *int        `json:"stops,omitempty"`

	BaselineTotalPrice float64   `json:"baselineTotalPrice"`
	BaselineCurrency   string    `json:"baselineCurrency"`
	SavedAt            time.Time `json:"savedAt"`
	WatchEnabled       bool      `json:"watchEnabled"`

	// A nil threshold is "not set"; see the tracker for how unset
	// thresholds fall back to defaults.
	AlertThresholdAbsolute *float64 `json:"alertThresholdAbsolute,omitempty"`
	AlertThresholdPercent  *float64 `json:"alertThresholdPercent,omitempty"`

	LastCheckedAt      *time.Time `json:"lastCheckedAt,omitempty"`
	LastSeenPrice      *float64   `json:"lastSeenPrice,omitempty"`
	LastSeenAt         *time.Time `json:"lastSeenAt,omitempty"`
	LastNotificationAt *time.Time `json:"lastNotificationAt,omitempty"`
}

// SegmentList is an ordered list of route segments. Older records stored the
// list as a JSON-encoded string, so both forms are accepted on decode. A
// value that holds no readable list decodes as no segments: it costs the
// segment fingerprint, never the enclosing record.
type SegmentList []string

// UnmarshalJSON implements json.Unmarshaler.
func (s *SegmentList) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) > 0 && data[0] == '"' {
		var encoded string
		if err := json.Unmarshal(data, &encoded); err != nil {
			*s = nil
			return nil
		}
		data = []byte(encoded)
	}
	var out []string
	if err := json.Unmarshal(data, &out); err != nil {
		*s = nil
		return nil
	}
	*s = out
	return nil
}
