package engine

import (
	"sort"

	"github.com/nyctaxi/trip-analytics/internal/triptable"
)

// Group is one grouping bucket: the key and the trips that share it.
type Group[K comparable] struct {
	Key K
	Set TripSet
}

// GroupBy partitions set by keyFn. Groups come back in first-seen key order,
// which keeps grouping deterministic for a fixed input order.
func GroupBy[K comparable](set TripSet, keyFn func(*triptable.Trip) K) []Group[K] {
	byKey := make(map[K]int)
	groups := make([]Group[K], 0)
	for _, t := range set {
		key := keyFn(t)
		idx, seen := byKey[key]
		if !seen {
			idx = len(groups)
			byKey[key] = idx
			groups = append(groups, Group[K]{Key: key})
		}
		groups[idx].Set = append(groups[idx].Set, t)
	}
	return groups
}

// SortGroupsByCountDesc orders groups by descending trip count. Ties keep
// the first-seen order (stable sort), so two runs over the same data agree.
func SortGroupsByCountDesc[K comparable](groups []Group[K]) {
	sort.SliceStable(groups, func(i, j int) bool {
		return len(groups[i].Set) > len(groups[j].Set)
	})
}

// RouteKey is the derived (pickup zone, dropoff zone) grouping key. Routes
// are not stored; they exist only while grouping.
type RouteKey struct {
	PickupZone  string
	DropoffZone string
}

// RouteOf builds the route key for a trip.
func RouteOf(t *triptable.Trip) RouteKey {
	return RouteKey{PickupZone: t.PickupZone, DropoffZone: t.DropoffZone}
}
