package tools

import (
	"context"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/lexical"
	"github.com/nyctaxi/trip-analytics/internal/triptable"
	"github.com/nyctaxi/trip-analytics/internal/usage"
)

// DatasetReport describes the loaded dataset and the state of the lexical
// index. Index is nil when the service is running degraded.
type DatasetReport struct {
	TripCount     int            `json:"trip_count"`
	RejectedRows  int            `json:"rejected_rows"`
	ByType        map[string]int `json:"by_type"`
	ZoneCount     int            `json:"zone_count"`
	EarliestTrip  time.Time      `json:"earliest_trip"`
	LatestTrip    time.Time      `json:"latest_trip"`
	IndexDegraded bool           `json:"index_degraded"`
	Index         *lexical.Stats `json:"index,omitempty"`
}

// DatasetInfo reports dataset-level counts and index metadata. It never
// fails; a degraded index simply reports as such.
func (t *Tools) DatasetInfo(ctx context.Context) *DatasetReport {
	start := time.Now()
	earliest, latest := t.table.DateRange()
	report := &DatasetReport{
		TripCount:    t.table.RowCount(),
		RejectedRows: t.table.RejectedRows(),
		ByType: map[string]int{
			string(triptable.TaxiYellow): t.table.CountByType(triptable.TaxiYellow),
			string(triptable.TaxiGreen):  t.table.CountByType(triptable.TaxiGreen),
		},
		ZoneCount:     t.table.ZoneCount(),
		EarliestTrip:  earliest,
		LatestTrip:    latest,
		IndexDegraded: t.index == nil,
	}
	if t.index != nil {
		stats := t.index.Snapshot()
		report.Index = &stats
	}

	t.observe(ctx, "dataset_info", start, usage.InvocationEvent{
		Hits:    report.TripCount,
		Outcome: usage.OutcomeOK,
	})
	return report
}
