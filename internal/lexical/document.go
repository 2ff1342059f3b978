package lexical

import (
	"strings"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/triptable"
)

// Document is one textual surrogate for a sampled trip: a stable reference
// back to the trip plus the denormalised searchable text and the numeric
// fields needed to display a ranked hit.
type Document struct {
	TripID         string             `json:"trip_id"`
	TaxiType       triptable.TaxiType `json:"taxi_type"`
	PickupZone     string             `json:"pickup_zone"`
	DropoffZone    string             `json:"dropoff_zone"`
	PickupBorough  string             `json:"pickup_borough"`
	DropoffBorough string             `json:"dropoff_borough"`
	Day            string             `json:"day_of_week"`
	Period         triptable.Period   `json:"period"`
	Fare           float64            `json:"fare_amount"`
	Distance       float64            `json:"trip_distance"`
	DurationMin    float64            `json:"duration_minutes"`
	PickupTime     time.Time          `json:"pickup_time"`
}

// indexedFields names the searchable and stored fields, reported by
// dataset-info as the index's field coverage.
var indexedFields = []string{
	"trip_id", "taxi_type", "pickup_zone", "dropoff_zone",
	"pickup_borough", "dropoff_borough", "day_of_week", "period",
	"fare_amount", "trip_distance", "duration_minutes", "pickup_time",
}

func newDocument(t *triptable.Trip) Document {
	return Document{
		TripID:         t.ID,
		TaxiType:       t.Type,
		PickupZone:     t.PickupZone,
		DropoffZone:    t.DropoffZone,
		PickupBorough:  t.PickupBorough,
		DropoffBorough: t.DropoffBorough,
		Day:            t.Day.String(),
		Period:         t.Period,
		Fare:           t.Fare,
		Distance:       t.Distance,
		DurationMin:    t.Duration.Minutes(),
		PickupTime:     t.PickupTime,
	}
}

// searchText synthesises the free-text surface of a document: zone names,
// boroughs, weekday, and period label.
func (d Document) searchText() string {
	return strings.Join([]string{
		d.PickupZone, d.DropoffZone,
		d.PickupBorough, d.DropoffBorough,
		d.Day, string(d.Period),
	}, " ")
}
