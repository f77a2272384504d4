// Package deal ranks the offers of one result batch against each other by
// price. Scores are relative to the batch and are never persisted.
package deal

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"

	"github.com/samber/lo"

	"github.com/adriangarciao/offertrack/internal/domain"
)

// Labels.
const (
	LabelGreat   = "Great deal"
	LabelGood    = "Good"
	LabelFair    = "Fair"
	LabelPoor    = "Poor"
	LabelNoData  = "Not enough data"
	NeutralScore = 0.5
)

// Score is an offer's standing within its batch. Score is 1 for the
// cheapest offer and 0 for the most expensive.
type Score struct {
	Score          float64
	Label          string
	PercentileText string
}

var neutral = Score{Score: NeutralScore, Label: LabelNoData}

type priced struct {
	id    string
	price float64
}

// Compute scores every offer in the batch, keyed by OptionID. With fewer
// than two finite prices every offer gets the neutral score. Duplicate ids
// keep the rank of their cheapest occurrence.
func Compute(offers []domain.OfferSnapshot) map[string]Score {
	out := make(map[string]Score, len(offers))
	if len(offers) == 0 {
		return out
	}

	prices := lo.FilterMap(offers, func(o domain.OfferSnapshot, _ int) (priced, bool) {
		p, ok := o.Price()
		return priced{id: OptionID(o), price: p}, ok
	})

	if len(prices) < 2 {
		for _, o := range offers {
			out[OptionID(o)] = neutral
		}
		return out
	}

	sort.SliceStable(prices, func(i, j int) bool { return prices[i].price < prices[j].price })
	n := len(prices)
	rank := make(map[string]int, n)
	for i, p := range prices {
		if _, ok := rank[p.id]; !ok {
			rank[p.id] = i
		}
	}

	for _, o := range offers {
		id := OptionID(o)
		r, ok := rank[id]
		if _, finite := o.Price(); !finite || !ok {
			out[id] = neutral
			continue
		}
		pct := clamp(1 - float64(r)/float64(n-1))
		out[id] = Score{
			Score:          pct,
			Label:          label(pct),
			PercentileText: fmt.Sprintf("Top %d%%", int(math.Round(pct*100))),
		}
	}
	return out
}

// OptionID identifies an offer within a batch: its id, else its trip option
// id, else its serialized form.
func OptionID(o domain.OfferSnapshot) string {
	if o.ID != "" {
		return o.ID
	}
	if o.TripOptionID != "" {
		return o.TripOptionID
	}
	data, _ := json.Marshal(o)
	return string(data)
}

func label(score float64) string {
	switch {
	case score >= 0.8:
		return LabelGreat
	case score >= 0.6:
		return LabelGood
	case score >= 0.4:
		return LabelFair
	default:
		return LabelPoor
	}
}

func clamp(v float64) float64 {
	return math.Max(0, math.Min(1, v))
}
