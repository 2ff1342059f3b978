// Package loader pulls the enriched trip dataset and the zone lookup out of
// the Postgres warehouse and hands them to the trip table. Loading happens
// exactly once, at startup, before the service accepts traffic.
package loader

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/nyctaxi/trip-analytics/internal/triptable"
	"github.com/nyctaxi/trip-analytics/pkg/config"
	apperrors "github.com/nyctaxi/trip-analytics/pkg/errors"
	"github.com/nyctaxi/trip-analytics/pkg/postgres"
	"github.com/nyctaxi/trip-analytics/pkg/resilience"
)

// loadTimeout bounds the full-table reads at startup. The reference dataset
// is a few million rows; ten minutes is generous even on a cold warehouse.
const loadTimeout = 10 * time.Minute

// Loader reads trips and zones from the warehouse.
type Loader struct {
	db     *postgres.Client
	cfg    config.DatasetConfig
	logger *slog.Logger
}

// New creates a loader over an open warehouse connection.
func New(db *postgres.Client, cfg config.DatasetConfig) *Loader {
	return &Loader{
		db:     db,
		cfg:    cfg,
		logger: slog.Default().With("component", "loader"),
	}
}

// Connect opens the warehouse connection with retry, since the database may
// still be coming up when the service starts.
func Connect(ctx context.Context, cfg config.PostgresConfig) (*postgres.Client, error) {
	var client *postgres.Client
	err := resilience.Retry(ctx, "postgres-connect", resilience.RetryConfig{
		MaxAttempts:  5,
		InitialDelay: time.Second,
	}, func() error {
		var err error
		client, err = postgres.New(cfg)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrDataLoad, err)
	}
	return client, nil
}

// Load reads zones and trips and constructs the validated trip table. Any
// failure here is fatal for the service; there is nothing to serve without
// the table.
func (l *Loader) Load(ctx context.Context) (*triptable.Table, error) {
	start := time.Now()

	var zones []triptable.Zone
	var records []triptable.Record
	err := resilience.WithTimeout(ctx, loadTimeout, "dataset-load", func(ctx context.Context) error {
		var err error
		if zones, err = l.loadZones(ctx); err != nil {
			return err
		}
		l.logger.Info("zones loaded", "count", len(zones))

		if records, err = l.loadTrips(ctx); err != nil {
			return err
		}
		l.logger.Info("trip records read", "count", len(records))
		return nil
	})
	if err != nil {
		return nil, err
	}

	table, err := triptable.New(records, zones)
	if err != nil {
		return nil, err
	}
	l.logger.Info("trip table built",
		"rows", table.RowCount(),
		"rejected", table.RejectedRows(),
		"yellow", table.CountByType(triptable.TaxiYellow),
		"green", table.CountByType(triptable.TaxiGreen),
		"elapsed", time.Since(start),
	)
	return table, nil
}

func (l *Loader) loadZones(ctx context.Context) ([]triptable.Zone, error) {
	query := fmt.Sprintf(
		`SELECT location_id, zone, borough FROM %s ORDER BY location_id`,
		l.cfg.ZonesTable,
	)
	rows, err := l.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying zones: %v", apperrors.ErrDataLoad, err)
	}
	defer rows.Close()

	var zones []triptable.Zone
	for rows.Next() {
		var z triptable.Zone
		if err := rows.Scan(&z.ID, &z.Name, &z.Borough); err != nil {
			return nil, fmt.Errorf("%w: scanning zone row: %v", apperrors.ErrDataLoad, err)
		}
		zones = append(zones, z)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading zones: %v", apperrors.ErrDataLoad, err)
	}
	return zones, nil
}

func (l *Loader) loadTrips(ctx context.Context) ([]triptable.Record, error) {
	query := fmt.Sprintf(
		`SELECT taxi_type, pickup_time, dropoff_time, pickup_zone_id, dropoff_zone_id,
		        trip_distance, fare_amount, tip_amount, total_amount, passenger_count
		 FROM %s
		 ORDER BY pickup_time, taxi_type`,
		l.cfg.TripsTable,
	)
	rows, err := l.db.DB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("%w: querying trips: %v", apperrors.ErrDataLoad, err)
	}
	defer rows.Close()

	// ~3.5M rows in the reference dataset.
	records := make([]triptable.Record, 0, 4_000_000)
	for rows.Next() {
		var r triptable.Record
		if err := rows.Scan(
			&r.TaxiType, &r.PickupTime, &r.DropoffTime,
			&r.PickupZoneID, &r.DropoffZoneID,
			&r.Distance, &r.Fare, &r.Tip, &r.Total, &r.Passengers,
		); err != nil {
			return nil, fmt.Errorf("%w: scanning trip row: %v", apperrors.ErrDataLoad, err)
		}
		records = append(records, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%w: reading trips: %v", apperrors.ErrDataLoad, err)
	}
	return records, nil
}
