package domain

// Persisted record keys.
const (
	KeyCompareIDs          = "traveloptimizer.compare.offerIds"
	KeyCompareSnapshots    = "traveloptimizer.compare.snapshots"
	KeyWatchRegistry       = "traveloptimizer.savedOffers.v2"
	KeyLegacyWatchRegistry = "traveloptimizer.savedOffers"
	KeyNotifications       = "traveloptimizer.notifications.v1"
	KeyRecentSearches      = "traveloptimizer:recentSearches"
	KeyClientID            = "traveloptimizer.clientId"
)

// TopicForKey maps a record key to the change topic that covers it. It
// returns "" for keys no live view depends on.
func TopicForKey(key string) string {
	switch key {
	case KeyCompareIDs, KeyCompareSnapshots:
		return TopicCompare
	case KeyWatchRegistry, KeyNotifications:
		return TopicWatch
	default:
		return ""
	}
}
