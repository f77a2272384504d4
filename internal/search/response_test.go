package search_test

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adriangarciao/offertrack/internal/search"
)

const sampleResponse = `{
  "searchId": "s-1",
  "origin": "NYC",
  "destination": "LAX",
  "currency": "EUR",
  "options": [
    {
      "tripOptionId": "t1",
      "totalPrice": 650,
      "currency": "USD",
      "valueScore": 0.8,
      "flight": {"airline": "United", "flightNumber": "UA100", "stops": 0, "duration": "6h", "segments": ["JFK-LAX"]},
      "mlRecommendation": {"action": "BUY"}
    },
    {
      "id": "t2",
      "totalPrice": 700,
      "flight": {"airline": "DL", "flightNumber": "1234"},
      "lodging": {"hotelName": "Inn", "nights": 2, "pricePerNight": 80}
    },
    {"totalPrice": 10}
  ]
}`

func TestParseAndNormalize(t *testing.T) {
	resp, err := search.ParseResponse([]byte(sampleResponse))
	require.NoError(t, err)
	assert.Equal(t, "s-1", resp.SearchID)
	assert.Equal(t, "NYC", resp.Request().Origin)

	offers := search.Normalize(resp)
	require.Len(t, offers, 2)

	a := offers[0]
	assert.Equal(t, "t1", a.ID)
	assert.Equal(t, "t1", a.TripOptionID)
	assert.Equal(t, "USD", a.Currency)
	require.NotNil(t, a.Flight)
	assert.Equal(t, "NYC", a.Flight.Origin)
	assert.Equal(t, "LAX", a.Flight.Destination)
	assert.Equal(t, "UA", a.Flight.AirlineCode)
	assert.Equal(t, "United", a.Flight.AirlineName)
	assert.Equal(t, []string{"JFK-LAX"}, a.Flight.Segments)
	require.NotNil(t, a.Flight.Stops)
	assert.Equal(t, 0, *a.Flight.Stops)

	var original map[string]any
	require.NoError(t, json.Unmarshal(a.Original, &original))
	assert.Contains(t, original, "mlRecommendation")

	b := offers[1]
	assert.Equal(t, "t2", b.ID)
	assert.Equal(t, "EUR", b.Currency, "falls back to the response currency")
	assert.Equal(t, "DL", b.Flight.AirlineCode)
	require.NotNil(t, b.Lodging)
	assert.Equal(t, "Inn", b.Lodging.HotelName)
	assert.Equal(t, 2, *b.Lodging.Nights)
}

func TestNormalizeDefaultsCurrency(t *testing.T) {
	resp, err := search.ParseResponse([]byte(`{"options":[{"tripOptionId":"t1","totalPrice":1}]}`))
	require.NoError(t, err)
	offers := search.Normalize(resp)
	require.Len(t, offers, 1)
	assert.Equal(t, "USD", offers[0].Currency)
	assert.Nil(t, offers[0].Flight)
}

func TestParsePaginatedResponse(t *testing.T) {
	resp, err := search.ParseResponse([]byte(`{"searchId":"s","content":[{"tripOptionId":"t1","totalPrice":5}]}`))
	require.NoError(t, err)
	require.Len(t, resp.Options, 1)
	assert.Equal(t, "t1", resp.Options[0].TripOptionID)
}

func TestParseResponseRejectsGarbage(t *testing.T) {
	_, err := search.ParseResponse([]byte("nope"))
	assert.Error(t, err)
}
