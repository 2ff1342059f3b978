package tools

import (
	"context"
	"sort"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/engine"
	"github.com/nyctaxi/trip-analytics/internal/triptable"
	"github.com/nyctaxi/trip-analytics/internal/usage"
)

// TemporalRequest scopes the temporal analysis to one fleet, or to the whole
// table when TaxiType is empty.
type TemporalRequest struct {
	TaxiType triptable.TaxiType
}

// HourBucket is one hour-of-day grouping row.
type HourBucket struct {
	Hour         int      `json:"hour"`
	Count        int      `json:"count"`
	MeanFare     *float64 `json:"mean_fare"`
	MeanDistance *float64 `json:"mean_distance"`
}

// DayBucket is one day-of-week grouping row.
type DayBucket struct {
	Day          string   `json:"day"`
	Count        int      `json:"count"`
	MeanFare     *float64 `json:"mean_fare"`
	MeanDistance *float64 `json:"mean_distance"`
}

// PeriodStats describes one side of the peak / off-peak split. Share is the
// fraction of the analyzed trips that fall in this period.
type PeriodStats struct {
	Period       string   `json:"period"`
	Count        int      `json:"count"`
	Share        float64  `json:"share"`
	MeanFare     *float64 `json:"mean_fare"`
	MeanDistance *float64 `json:"mean_distance"`
}

// TemporalReport is the result of AnalyzeTemporal.
type TemporalReport struct {
	TaxiType  string       `json:"taxi_type,omitempty"`
	TripCount int          `json:"trip_count"`
	ByHour    []HourBucket `json:"by_hour"`
	ByDay     []DayBucket  `json:"by_day"`
	Peak      PeriodStats  `json:"peak"`
	OffPeak   PeriodStats  `json:"off_peak"`
}

// AnalyzeTemporal breaks trip volume, mean fare, and mean distance down by
// hour of day, day of week, and the peak / off-peak split. Hours come back
// in ascending order, days in Monday-first calendar order; hours and days
// with no trips are omitted.
func (t *Tools) AnalyzeTemporal(ctx context.Context, req TemporalRequest) (*TemporalReport, error) {
	start := time.Now()
	set := t.fleetSet(req.TaxiType)

	report := &TemporalReport{
		TaxiType:  string(req.TaxiType),
		TripCount: len(set),
		ByHour:    make([]HourBucket, 0, 24),
		ByDay:     make([]DayBucket, 0, 7),
	}

	hourGroups := engine.GroupBy(set, func(tr *triptable.Trip) int { return tr.Hour })
	sort.Slice(hourGroups, func(i, j int) bool { return hourGroups[i].Key < hourGroups[j].Key })
	for _, g := range hourGroups {
		report.ByHour = append(report.ByHour, HourBucket{
			Hour:         g.Key,
			Count:        len(g.Set),
			MeanFare:     engine.Mean(g.Set, engine.Fare),
			MeanDistance: engine.Mean(g.Set, engine.Distance),
		})
	}

	dayGroups := engine.GroupBy(set, func(tr *triptable.Trip) time.Weekday { return tr.Day })
	byDay := make(map[time.Weekday]engine.Group[time.Weekday], len(dayGroups))
	for _, g := range dayGroups {
		byDay[g.Key] = g
	}
	for _, day := range []time.Weekday{
		time.Monday, time.Tuesday, time.Wednesday, time.Thursday,
		time.Friday, time.Saturday, time.Sunday,
	} {
		g, ok := byDay[day]
		if !ok {
			continue
		}
		report.ByDay = append(report.ByDay, DayBucket{
			Day:          day.String(),
			Count:        len(g.Set),
			MeanFare:     engine.Mean(g.Set, engine.Fare),
			MeanDistance: engine.Mean(g.Set, engine.Distance),
		})
	}

	report.Peak = periodStats(set, triptable.PeriodPeak)
	report.OffPeak = periodStats(set, triptable.PeriodOffPeak)

	t.observe(ctx, "analyze_temporal", start, usage.InvocationEvent{
		Hits:    report.TripCount,
		Outcome: emptyOrOK(report.TripCount),
	})
	return report, nil
}

func periodStats(set engine.TripSet, p triptable.Period) PeriodStats {
	sub := engine.Filter(set, engine.Predicates{Period: p})
	share := 0.0
	if len(set) > 0 {
		share = engine.Round2(float64(len(sub)) / float64(len(set)))
	}
	return PeriodStats{
		Period:       string(p),
		Count:        len(sub),
		Share:        share,
		MeanFare:     engine.Mean(sub, engine.Fare),
		MeanDistance: engine.Mean(sub, engine.Distance),
	}
}
