// Package store is the optional SQLite persistence variant spec §9
// flags as secondary and experimental: the in-memory schedule.Index and
// feed.Cache remain authoritative, this package only mirrors the latest
// vehicle positions and keeps an audit log of schedule loads, for a
// deployment that wants them queryable across restarts. Grounded in the teacher's apps/api/repository.NewSQLiteDB
// connection setup (WAL mode, pragma string, pooled *sql.DB).
package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/allynet/zet-live/internal/model"
)

// Store wraps a pooled SQLite connection used to mirror the latest
// vehicle positions and log schedule loads. Every write is a simple upsert;
// nothing here is on the fusion hot path.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the SQLite database at path with the
// same WAL/foreign-key/busy-timeout pragmas the teacher's API service
// uses, then ensures the schema exists.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path+"?_journal=WAL&_fk=1&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(context.Background()); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close closes the underlying connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS vehicle_positions (
		vehicle_id  TEXT NOT NULL,
		route_id    TEXT NOT NULL,
		trip_id     TEXT NOT NULL,
		lat         REAL NOT NULL,
		lon         REAL NOT NULL,
		observed_at INTEGER NOT NULL,
		snapshot_id TEXT NOT NULL,
		PRIMARY KEY (vehicle_id)
	);
	CREATE TABLE IF NOT EXISTS schedule_loads (
		loaded_at   INTEGER NOT NULL PRIMARY KEY,
		route_count INTEGER NOT NULL,
		stop_count  INTEGER NOT NULL,
		trip_count  INTEGER NOT NULL
	);
	`
	_, err := s.db.ExecContext(ctx, schema)
	return err
}

// UpsertVehicles replaces the mirrored vehicle-position table with the
// given vehicles, observed at ts (seconds since epoch). This is a full
// overwrite, not an append: the table mirrors "latest known position,"
// it is not an event log.
func (s *Store) UpsertVehicles(ctx context.Context, ts int64, vehicles []model.Vehicle) error {
	snapshotID := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM vehicle_positions`); err != nil {
		return fmt.Errorf("clear vehicle_positions: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO vehicle_positions (vehicle_id, route_id, trip_id, lat, lon, observed_at, snapshot_id)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, v := range vehicles {
		if _, err := stmt.ExecContext(ctx, v.ID, v.RouteID, v.TripID, v.Lat, v.Lon, ts, snapshotID); err != nil {
			return fmt.Errorf("insert vehicle %s: %w", v.ID, err)
		}
	}

	return tx.Commit()
}

// RecordScheduleLoad appends one row marking a successful schedule
// publication, for operators auditing how often the feed actually
// changes. A cold-start-only VACUUM is deliberately not run here after
// every load — the teacher's SQL variant did that on every write, which
// spec §9 flags as almost certainly unintended for steady state.
func (s *Store) RecordScheduleLoad(ctx context.Context, ts int64, routes, stops, trips int) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO schedule_loads (loaded_at, route_count, stop_count, trip_count)
		VALUES (?, ?, ?, ?)
	`, ts, routes, stops, trips)
	if err != nil {
		return fmt.Errorf("record schedule load: %w", err)
	}
	return nil
}

// VacuumOnColdStart runs VACUUM once, intended to be called only during
// process bootstrap (spec §9's open question: the teacher's per-load
// VACUUM is a cold-start optimization at best, not a steady-state one).
func (s *Store) VacuumOnColdStart(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, `VACUUM`)
	if err != nil {
		return fmt.Errorf("vacuum: %w", err)
	}
	return nil
}
