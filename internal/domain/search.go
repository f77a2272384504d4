package domain

import "time"

// SearchRequest is the route of a just-completed search. The zero value
// means no request and disables the route pre-filter.
type SearchRequest struct {
	Origin      string `json:"origin"`
	Destination string `json:"destination"`
}

// RecentSearch is one entry of the recent-search history.
type RecentSearch struct {
	SearchID          string    `json:"searchId"`
	Origin            string    `json:"origin"`
	Destination       string    `json:"destination"`
	EarliestDeparture string    `json:"earliestDeparture,omitempty"`
	LatestDeparture   string    `json:"latestDeparture,omitempty"`
	CreatedAt         time.Time `json:"createdAt"`
}
