package share_test

import (
	"encoding/base64"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adriangarciao/offertrack/internal/domain"
	"github.com/adriangarciao/offertrack/internal/share"
)

var t0 = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func sampleOffers() []domain.OfferSnapshot {
	return []domain.OfferSnapshot{
		{
			ID:           "t1",
			TripOptionID: "t1",
			TotalPrice:   domain.Float(650),
			Currency:     "USD",
			Flight: &domain.Flight{
				Origin:       "NYC",
				Destination:  "LAX",
				AirlineCode:  "UA",
				AirlineName:  "United",
				FlightNumber: "UA100",
				Stops:        domain.Int(0),
				DurationText: "6h 10m",
				Segments:     []string{"JFK-LAX"},
			},
		},
		{ID: "t2", TotalPrice: domain.Float(720.5), Currency: "EUR"},
	}
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	token, err := share.Encode(sampleOffers(), t0)
	require.NoError(t, err)
	assert.NotContains(t, token, "=")
	assert.NotContains(t, token, "+")
	assert.NotContains(t, token, "/")

	p, err := share.Decode(token)
	require.NoError(t, err)
	assert.Equal(t, share.Version, p.V)
	assert.True(t, p.CreatedAt.Equal(t0))
	assert.Equal(t, sampleOffers(), p.Offers)
}

func TestEncodeEmptySelection(t *testing.T) {
	token, err := share.Encode(nil, t0)
	require.NoError(t, err)

	p, err := share.Decode(token)
	require.NoError(t, err)
	assert.Empty(t, p.Offers)
}

func TestDecodeAcceptsPadding(t *testing.T) {
	token := base64.URLEncoding.EncodeToString([]byte(`{"v":1,"offers":[{"id":"a"}]}`))
	require.True(t, strings.HasSuffix(token, "="))

	p, err := share.Decode(token)
	require.NoError(t, err)
	require.Len(t, p.Offers, 1)
	assert.Equal(t, "a", p.Offers[0].ID)
}

func TestDecodeFailures(t *testing.T) {
	enc := func(s string) string { return base64.RawURLEncoding.EncodeToString([]byte(s)) }

	tests := []struct {
		name  string
		token string
		want  error
	}{
		{name: "too long", token: strings.Repeat("a", share.MaxTokenLength+1), want: domain.ErrPayloadTooLarge},
		{name: "not base64", token: "!!!not-base64!!!", want: domain.ErrPayloadDecode},
		{name: "not json", token: enc("hello"), want: domain.ErrPayloadDecode},
		{name: "json array", token: enc("[1,2]"), want: domain.ErrPayloadDecode},
		{name: "wrong version", token: enc(`{"v":2,"offers":[]}`), want: domain.ErrInvalidPayload},
		{name: "missing version", token: enc(`{"offers":[]}`), want: domain.ErrInvalidPayload},
		{name: "offers not a list", token: enc(`{"v":1,"offers":{}}`), want: domain.ErrInvalidPayload},
		{name: "offers missing", token: enc(`{"v":1}`), want: domain.ErrInvalidPayload},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := share.Decode(tt.token)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestDecoderMaxLength(t *testing.T) {
	token, err := share.Encode(sampleOffers(), t0)
	require.NoError(t, err)

	_, err = share.Decoder{MaxLength: 10}.Decode(token)
	assert.ErrorIs(t, err, domain.ErrPayloadTooLarge)

	_, err = share.Decoder{}.Decode(token)
	assert.NoError(t, err)
}
