// Package sqlitestore provides a single-file SQLite implementation of
// vessel.Store for deployments without PostgreSQL.
package sqlitestore

import (
	"context"
	"database/sql"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "modernc.org/sqlite"

	"github.com/linnemanlabs/vesselwatch/internal/geo"
	"github.com/linnemanlabs/vesselwatch/internal/vessel"
)

//go:embed migrations/*.sql
var migrations embed.FS

// Store persists vessel tracks in SQLite.
type Store struct {
	db *sql.DB
}

// Open opens (creating if needed) the database at path, enables WAL and
// runs pending migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// one writer; WAL lets readers proceed alongside it
	db.SetMaxOpenConns(1)

	if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("enable wal: %w", err)
	}
	if _, err := db.ExecContext(ctx, "PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set busy timeout: %w", err)
	}

	if err := migrateUp(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Store{db: db}, nil
}

func migrateUp(db *sql.DB) error {
	src, err := iofs.New(migrations, "migrations")
	if err != nil {
		return fmt.Errorf("load migrations: %w", err)
	}
	driver, err := sqlite.WithInstance(db, &sqlite.Config{})
	if err != nil {
		return fmt.Errorf("create sqlite migrate driver: %w", err)
	}
	m, err := migrate.NewWithInstance("iofs", src, "sqlite", driver)
	if err != nil {
		return fmt.Errorf("create migrate instance: %w", err)
	}
	// m is not closed: that would close db as well.
	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("migration up failed: %w", err)
	}
	return nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// LoadAll returns every stored track ordered by vessel ID.
func (s *Store) LoadAll(ctx context.Context) ([]vessel.Track, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT vessel_id, lat, lon, speed, heading, last_update, trajectory, is_friendly
		FROM vessels ORDER BY vessel_id`)
	if err != nil {
		return nil, fmt.Errorf("query vessels: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var out []vessel.Track
	for rows.Next() {
		var (
			t        vessel.Track
			lastNano int64
			traj     sql.NullString
			friendly int
		)
		if err := rows.Scan(&t.VesselID, &t.Lat, &t.Lon, &t.Speed, &t.Heading, &lastNano, &traj, &friendly); err != nil {
			return nil, fmt.Errorf("scan vessel: %w", err)
		}
		t.LastUpdate = time.Unix(0, lastNano).UTC()
		t.IsFriendly = friendly != 0
		if traj.Valid && traj.String != "" {
			var pts []geo.Point
			if err := json.Unmarshal([]byte(traj.String), &pts); err != nil {
				return nil, fmt.Errorf("vessel %s: unmarshal trajectory: %w", t.VesselID, err)
			}
			t.Trajectory = pts
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate vessels: %w", err)
	}
	return out, nil
}

// Upsert inserts or replaces a track.
func (s *Store) Upsert(ctx context.Context, t vessel.Track) error {
	var traj sql.NullString
	if len(t.Trajectory) > 0 {
		b, err := json.Marshal(t.Trajectory)
		if err != nil {
			return fmt.Errorf("marshal trajectory: %w", err)
		}
		traj = sql.NullString{String: string(b), Valid: true}
	}
	friendly := 0
	if t.IsFriendly {
		friendly = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO vessels (vessel_id, lat, lon, speed, heading, last_update, trajectory, is_friendly, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(vessel_id) DO UPDATE SET
			lat         = excluded.lat,
			lon         = excluded.lon,
			speed       = excluded.speed,
			heading     = excluded.heading,
			last_update = excluded.last_update,
			trajectory  = excluded.trajectory,
			is_friendly = excluded.is_friendly,
			updated_at  = excluded.updated_at`,
		t.VesselID, t.Lat, t.Lon, t.Speed, t.Heading, t.LastUpdate.UnixNano(), traj, friendly, time.Now().UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("upsert vessel: %w", err)
	}
	return nil
}

// Delete removes a track. Unknown IDs are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM vessels WHERE vessel_id = ?`, id); err != nil {
		return fmt.Errorf("delete vessel: %w", err)
	}
	return nil
}
