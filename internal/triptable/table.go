package triptable

import (
	"fmt"
	"iter"
	"log/slog"
	"time"

	apperrors "github.com/nyctaxi/trip-analytics/pkg/errors"
)

// Table is the canonical in-memory trip dataset. It is built once by New and
// is read-only afterwards, so concurrent readers need no locking.
type Table struct {
	trips    []Trip
	zones    map[int]Zone
	byType   map[TaxiType]int
	rejected int
	minPU    time.Time
	maxPU    time.Time
}

// New validates every record against the schema invariants, enriches the
// survivors with zone names and derived fields, and returns the immutable
// table. Rows violating an invariant are rejected and counted, never
// coerced. An empty zone lookup or zero valid rows is a data-load failure.
func New(records []Record, zones []Zone) (*Table, error) {
	if len(zones) == 0 {
		return nil, fmt.Errorf("%w: empty zone lookup", apperrors.ErrDataLoad)
	}
	zoneByID := make(map[int]Zone, len(zones))
	for _, z := range zones {
		zoneByID[z.ID] = z
	}

	t := &Table{
		trips:  make([]Trip, 0, len(records)),
		zones:  zoneByID,
		byType: make(map[TaxiType]int, 2),
	}

	seq := make(map[TaxiType]int, 2)
	for _, rec := range records {
		trip, ok := t.validate(rec)
		if !ok {
			t.rejected++
			continue
		}
		seq[trip.Type]++
		trip.ID = fmt.Sprintf("%s_%d", trip.Type, seq[trip.Type])
		trip.derive()

		if t.minPU.IsZero() || trip.PickupTime.Before(t.minPU) {
			t.minPU = trip.PickupTime
		}
		if trip.PickupTime.After(t.maxPU) {
			t.maxPU = trip.PickupTime
		}
		t.byType[trip.Type]++
		t.trips = append(t.trips, trip)
	}

	if len(t.trips) == 0 {
		return nil, fmt.Errorf("%w: no valid rows (%d rejected)", apperrors.ErrDataLoad, t.rejected)
	}
	slog.Default().With("component", "trip-table").Info("table loaded",
		"rows", len(t.trips),
		"rejected", t.rejected,
		"yellow", t.byType[TaxiYellow],
		"green", t.byType[TaxiGreen],
	)
	return t, nil
}

// validate checks one record against the row invariants and resolves its
// zone references.
func (t *Table) validate(rec Record) (Trip, bool) {
	taxiType := TaxiType(rec.TaxiType)
	if !taxiType.Valid() {
		return Trip{}, false
	}
	if rec.PickupTime.IsZero() || rec.DropoffTime.IsZero() {
		return Trip{}, false
	}
	if rec.DropoffTime.Before(rec.PickupTime) {
		return Trip{}, false
	}
	if rec.Distance < 0 || rec.Fare < 0 || rec.Total < rec.Fare || rec.Passengers < 0 {
		return Trip{}, false
	}
	puZone, ok := t.zones[rec.PickupZoneID]
	if !ok {
		return Trip{}, false
	}
	doZone, ok := t.zones[rec.DropoffZoneID]
	if !ok {
		return Trip{}, false
	}

	return Trip{
		Type:           taxiType,
		PickupTime:     rec.PickupTime,
		DropoffTime:    rec.DropoffTime,
		PickupZoneID:   rec.PickupZoneID,
		DropoffZoneID:  rec.DropoffZoneID,
		PickupZone:     puZone.Name,
		DropoffZone:    doZone.Name,
		PickupBorough:  puZone.Borough,
		DropoffBorough: doZone.Borough,
		Distance:       rec.Distance,
		Fare:           rec.Fare,
		Tip:            rec.Tip,
		Total:          rec.Total,
		Passengers:     rec.Passengers,
	}, true
}

// RowCount returns the number of validated trips.
func (t *Table) RowCount() int {
	return len(t.trips)
}

// RejectedRows returns the number of source rows dropped by validation.
func (t *Table) RejectedRows() int {
	return t.rejected
}

// CountByType returns the number of trips for one fleet.
func (t *Table) CountByType(tt TaxiType) int {
	return t.byType[tt]
}

// ZoneCount returns the number of zones in the lookup.
func (t *Table) ZoneCount() int {
	return len(t.zones)
}

// DateRange returns the earliest and latest pickup times in the table.
func (t *Table) DateRange() (time.Time, time.Time) {
	return t.minPU, t.maxPU
}

// All returns every trip in load order. The returned pointers reference the
// table's storage and must be treated as read-only.
func (t *Table) All() []*Trip {
	out := make([]*Trip, len(t.trips))
	for i := range t.trips {
		out[i] = &t.trips[i]
	}
	return out
}

// Iterate returns a restartable sequence of trips matching pred. A nil pred
// matches everything; each range over the result starts a fresh pass.
func (t *Table) Iterate(pred func(*Trip) bool) iter.Seq[*Trip] {
	return func(yield func(*Trip) bool) {
		for i := range t.trips {
			trip := &t.trips[i]
			if pred != nil && !pred(trip) {
				continue
			}
			if !yield(trip) {
				return
			}
		}
	}
}
