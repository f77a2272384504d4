package domain_test

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/adriangarciao/offertrack/internal/domain"
)

func TestSegmentListAcceptsBothForms(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want domain.SegmentList
	}{
		{name: "array", in: `{"segments":["JFK-ORD","ORD-LAX"]}`, want: domain.SegmentList{"JFK-ORD", "ORD-LAX"}},
		{name: "encoded string", in: `{"segments":"[\"JFK-LAX\"]"}`, want: domain.SegmentList{"JFK-LAX"}},
		{name: "empty string", in: `{"segments":""}`, want: nil},
		{name: "null", in: `{"segments":null}`, want: nil},
		{name: "string that is not a list", in: `{"segments":"JFK-LAX"}`, want: nil},
		{name: "string holding an object", in: `{"segments":"{\"a\":1}"}`, want: nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var w domain.WatchEntry
			require.NoError(t, json.Unmarshal([]byte(tt.in), &w))
			assert.Equal(t, tt.want, w.Segments)
		})
	}
}

func TestUnreadableSegmentsKeepTheEntry(t *testing.T) {
	for _, raw := range []string{`"JFK-LAX"`, `{"a":1}`, `42`, `["JFK",1]`} {
		var entries map[string]domain.WatchEntry
		in := `{"a":{"offerId":"a","baselineTotalPrice":100},` +
			`"b":{"offerId":"b","baselineTotalPrice":200,"segments":` + raw + `}}`
		require.NoError(t, json.Unmarshal([]byte(in), &entries), raw)
		require.Len(t, entries, 2, raw)
		assert.Nil(t, entries["b"].Segments, raw)
		assert.Equal(t, 200.0, entries["b"].BaselineTotalPrice, raw)
	}
}

func TestOriginalPayload(t *testing.T) {
	o := domain.OfferSnapshot{ID: "a", Original: domain.OriginalPayload(`{"x":1}`)}
	data, err := json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","original":{"x":1}}`, string(data))

	var back domain.OfferSnapshot
	require.NoError(t, json.Unmarshal(data, &back))
	assert.JSONEq(t, `{"x":1}`, string(back.Original))

	o.Original = domain.OriginalPayload("{broken")
	data, err = json.Marshal(o)
	require.NoError(t, err)
	assert.JSONEq(t, `{"id":"a","original":null}`, string(data))
}

func TestOfferPrice(t *testing.T) {
	p, ok := domain.OfferSnapshot{TotalPrice: domain.Float(12.5)}.Price()
	assert.True(t, ok)
	assert.Equal(t, 12.5, p)

	_, ok = domain.OfferSnapshot{}.Price()
	assert.False(t, ok)
	_, ok = domain.OfferSnapshot{TotalPrice: domain.Float(math.Inf(-1))}.Price()
	assert.False(t, ok)
}

func TestTopicForKey(t *testing.T) {
	assert.Equal(t, domain.TopicCompare, domain.TopicForKey(domain.KeyCompareIDs))
	assert.Equal(t, domain.TopicCompare, domain.TopicForKey(domain.KeyCompareSnapshots))
	assert.Equal(t, domain.TopicWatch, domain.TopicForKey(domain.KeyWatchRegistry))
	assert.Equal(t, domain.TopicWatch, domain.TopicForKey(domain.KeyNotifications))
	assert.Empty(t, domain.TopicForKey(domain.KeyRecentSearches))
}
