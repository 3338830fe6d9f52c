// Package store implements TimescaleDB-backed persistence for mirrored
// device measurements.
//
// The measurements table is expected to be a hypertable partitioned on the
// time column, with the sensor payload stored as jsonb:
//
//	CREATE TABLE measurements (
//	    time      TIMESTAMPTZ NOT NULL,
//	    device_id UUID        NOT NULL,
//	    data      JSONB       NOT NULL
//	);
//	SELECT create_hypertable('measurements', 'time');
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

// Record is a measurement row as stored in the measurements table.
type Record struct {
	Time     time.Time
	DeviceID uuid.UUID
	Data     map[string]any
}

// MeasurementRepository defines the interface for measurement persistence.
type MeasurementRepository interface {
	// InsertMeasurement inserts a single measurement row.
	InsertMeasurement(ctx context.Context, rec Record) error

	// BatchInsertMeasurements inserts multiple rows in a single transaction,
	// reducing round trips for bulk mirroring.
	BatchInsertMeasurements(ctx context.Context, recs []Record) error

	// LatestTimestamp returns the newest stored timestamp for a device, or a
	// zero time when the device has no rows yet.
	LatestTimestamp(ctx context.Context, deviceID uuid.UUID) (time.Time, error)

	// Close releases the underlying connection pool.
	Close() error
}

// PostgresRepo implements MeasurementRepository using TimescaleDB.
type PostgresRepo struct {
	db *sql.DB
}

// NewPostgresRepo connects to the database and verifies connectivity. The
// connection string uses lib/pq key=value form.
func NewPostgresRepo(connStr string) (*PostgresRepo, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	return &PostgresRepo{db: db}, nil
}

func (s *PostgresRepo) InsertMeasurement(ctx context.Context, rec Record) error {
	payload, err := json.Marshal(rec.Data)
	if err != nil {
		return fmt.Errorf("failed to encode measurement data: %w", err)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT INTO measurements (time, device_id, data) VALUES ($1, $2, $3)",
		rec.Time,
		rec.DeviceID,
		payload,
	)
	return err
}

func (s *PostgresRepo) BatchInsertMeasurements(ctx context.Context, recs []Record) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx,
		"INSERT INTO measurements (time, device_id, data) VALUES ($1, $2, $3)",
	)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, rec := range recs {
		payload, err := json.Marshal(rec.Data)
		if err != nil {
			return fmt.Errorf("failed to encode measurement data: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, rec.Time, rec.DeviceID, payload); err != nil {
			return fmt.Errorf("failed to insert measurement: %w", err)
		}
	}

	return tx.Commit()
}

func (s *PostgresRepo) LatestTimestamp(ctx context.Context, deviceID uuid.UUID) (time.Time, error) {
	var ts time.Time
	err := s.db.QueryRowContext(ctx,
		"SELECT time FROM measurements WHERE device_id = $1 ORDER BY time DESC LIMIT 1",
		deviceID,
	).Scan(&ts)
	if errors.Is(err, sql.ErrNoRows) {
		return time.Time{}, nil
	}
	if err != nil {
		return time.Time{}, err
	}
	return ts, nil
}

func (s *PostgresRepo) Close() error {
	return s.db.Close()
}
