package engine

import (
	"testing"

	"github.com/nyctaxi/trip-analytics/internal/triptable"
)

func TestGroupByFirstSeenOrder(t *testing.T) {
	set := mixedFleetSet(t)

	groups := GroupBy(set, func(trip *triptable.Trip) string { return trip.PickupBorough })
	want := []string{"Queens", "Manhattan", "Brooklyn"}
	if len(groups) != len(want) {
		t.Fatalf("len = %d, want %d", len(groups), len(want))
	}
	for i, g := range groups {
		if g.Key != want[i] {
			t.Errorf("group %d key = %q, want %q", i, g.Key, want[i])
		}
	}
}

func TestGroupByPartitions(t *testing.T) {
	set := mixedFleetSet(t)

	groups := GroupBy(set, func(trip *triptable.Trip) triptable.TaxiType { return trip.Type })
	total := 0
	for _, g := range groups {
		total += len(g.Set)
	}
	if total != len(set) {
		t.Errorf("group sizes sum to %d, want %d", total, len(set))
	}
}

func TestSortGroupsByCountDescIsStable(t *testing.T) {
	set := mixedFleetSet(t)

	// Each pickup zone appears once except Manhattan (zone 2, twice).
	groups := GroupBy(set, func(trip *triptable.Trip) string { return trip.PickupZone })
	SortGroupsByCountDesc(groups)

	if groups[0].Key != "Times Sq/Theatre District" || len(groups[0].Set) != 2 {
		t.Fatalf("top group = %q (%d), want Times Sq (2)", groups[0].Key, len(groups[0].Set))
	}
	// The two singleton groups keep their first-seen relative order.
	if groups[1].Key != "JFK Airport" || groups[2].Key != "Williamsburg (North Side)" {
		t.Errorf("tie order = %q, %q; want first-seen order", groups[1].Key, groups[2].Key)
	}
}

func TestRouteOf(t *testing.T) {
	set := mixedFleetSet(t)

	groups := GroupBy(set, RouteOf)
	if len(groups) != 4 {
		t.Fatalf("route groups = %d, want 4", len(groups))
	}
	first := groups[0].Key
	if first.PickupZone != "JFK Airport" || first.DropoffZone != "Times Sq/Theatre District" {
		t.Errorf("first route = %+v", first)
	}
}
