// Package search turns trip search responses into offer snapshots and keeps
// the recent-search history.
package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// FlightDTO is the flight block of a trip option.
type FlightDTO struct {
	Airline      string   `json:"airline"`
	FlightNumber string   `json:"flightNumber"`
	Stops        *int     `json:"stops"`
	Duration     string   `json:"duration"`
	Segments     []string `json:"segments"`
}

// LodgingDTO is the lodging block of a trip option.
type LodgingDTO struct {
	HotelName     string   `json:"hotelName"`
	LodgingType   string   `json:"lodgingType"`
	Rating        *float64 `json:"rating"`
	PricePerNight *float64 `json:"pricePerNight"`
	Nights        *int     `json:"nights"`
}

// OptionDTO is one trip option as returned by the search API.
type OptionDTO struct {
	ID           string      `json:"id"`
	TripOptionID string      `json:"tripOptionId"`
	TotalPrice   *float64    `json:"totalPrice"`
	Currency     string      `json:"currency"`
	ValueScore   *float64    `json:"valueScore"`
	Flight       *FlightDTO  `json:"flight"`
	Lodging      *LodgingDTO `json:"lodging"`

	raw json.RawMessage
}

// UnmarshalJSON keeps the raw option so it can travel as the snapshot's
// original payload.
func (o *OptionDTO) UnmarshalJSON(data []byte) error {
	type plain OptionDTO
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	*o = OptionDTO(p)
	o.raw = append(json.RawMessage(nil), data...)
	return nil
}

// Response is a search response. Options may arrive under "options" or, for
// paginated responses, under "content".
type Response struct {
	SearchID          string      `json:"searchId"`
	Origin            string      `json:"origin"`
	Destination       string      `json:"destination"`
	EarliestDeparture string      `json:"earliestDeparture"`
	LatestDeparture   string      `json:"latestDeparture"`
	Currency          string      `json:"currency"`
	Options           []OptionDTO `json:"options"`
	Content           []OptionDTO `json:"content"`
}

// Request returns the route of the search.
func (r Response) Request() domain.SearchRequest {
	return domain.SearchRequest{Origin: r.Origin, Destination: r.Destination}
}

// ParseResponse decodes a search response body.
func ParseResponse(data []byte) (Response, error) {
	var r Response
	if err := json.Unmarshal(data, &r); err != nil {
		return Response{}, fmt.Errorf("search: decode response: %w", err)
	}
	if len(r.Options) == 0 && len(r.Content) > 0 {
		r.Options = r.Content
	}
	r.Content = nil
	return r, nil
}

// Normalize converts every option into the canonical snapshot shape. Options
// with neither id nor tripOptionId are skipped.
func Normalize(r Response) []domain.OfferSnapshot {
	out := make([]domain.OfferSnapshot, 0, len(r.Options))
	for _, o := range r.Options {
		id := o.TripOptionID
		if id == "" {
			id = o.ID
		}
		if id == "" {
			continue
		}

		currency := o.Currency
		if currency == "" {
			currency = r.Currency
		}
		if currency == "" {
			currency = "USD"
		}

		snap := domain.OfferSnapshot{
			ID:           id,
			TripOptionID: id,
			TotalPrice:   o.TotalPrice,
			Currency:     currency,
			ValueScore:   o.ValueScore,
			Original:     domain.OriginalPayload(o.raw),
		}
		if f := o.Flight; f != nil {
			snap.Flight = &domain.Flight{
				Origin:       r.Origin,
				Destination:  r.Destination,
				AirlineCode:  airlineCode(f.Airline, f.FlightNumber),
				AirlineName:  f.Airline,
				FlightNumber: f.FlightNumber,
				Stops:        f.Stops,
				DurationText: f.Duration,
				Segments:     f.Segments,
			}
		}
		if l := o.Lodging; l != nil {
			snap.Lodging = &domain.Lodging{
				HotelName:     l.HotelName,
				LodgingType:   l.LodgingType,
				Rating:        l.Rating,
				PricePerNight: l.PricePerNight,
				Nights:        l.Nights,
			}
		}
		out = append(out, snap)
	}
	return out
}

// airlineCode returns airline when it already looks like an IATA code,
// otherwise the alphabetic prefix of the flight number.
func airlineCode(airline, flightNumber string) string {
	a := strings.TrimSpace(airline)
	if len(a) >= 2 && len(a) <= 3 && strings.ToUpper(a) == a && !strings.ContainsRune(a, ' ') {
		return a
	}
	fn := strings.TrimSpace(flightNumber)
	end := strings.IndexFunc(fn, unicode.IsDigit)
	if end < 2 || end > 3 {
		return ""
	}
	return strings.ToUpper(fn[:end])
}
