// Package pgstore provides a PostgreSQL implementation of vessel.Store.
package pgstore

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/vesselwatch/internal/geo"
	"github.com/linnemanlabs/vesselwatch/internal/vessel"
)

var tracer = otel.Tracer("github.com/linnemanlabs/vesselwatch/internal/vessel/pgstore")

//go:embed schema.sql
var schema string

// Store persists vessel tracks in PostgreSQL. The pool is owned by the
// caller.
type Store struct {
	pool *pgxpool.Pool
}

// New applies the schema on the given pool and returns a ready Store.
func New(ctx context.Context, pool *pgxpool.Pool) (*Store, error) {
	if _, err := pool.Exec(ctx, schema); err != nil {
		return nil, fmt.Errorf("apply schema: %w", err)
	}
	return &Store{pool: pool}, nil
}

const vesselColumns = `vessel_id, lat, lon, speed, heading, last_update, trajectory, is_friendly`

func startSpan(ctx context.Context, name, op string) (context.Context, trace.Span) {
	return tracer.Start(ctx, name, trace.WithAttributes(
		attribute.String("db.system", "postgresql"),
		attribute.String("db.operation.name", op),
	))
}

func fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

// LoadAll returns every stored track ordered by vessel ID.
func (s *Store) LoadAll(ctx context.Context) ([]vessel.Track, error) {
	ctx, span := startSpan(ctx, "pgstore.LoadAll", "SELECT")
	defer span.End()

	rows, err := s.pool.Query(ctx, `SELECT `+vesselColumns+` FROM vessels ORDER BY vessel_id`)
	if err != nil {
		return nil, fail(span, fmt.Errorf("query vessels: %w", err))
	}
	defer rows.Close()

	var out []vessel.Track
	for rows.Next() {
		t, err := scanTrack(rows)
		if err != nil {
			return nil, fail(span, err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fail(span, fmt.Errorf("iterate vessels: %w", err))
	}

	span.SetAttributes(attribute.Int("vesselwatch.vessels", len(out)))
	return out, nil
}

// Upsert inserts or replaces a track.
func (s *Store) Upsert(ctx context.Context, t vessel.Track) error {
	ctx, span := startSpan(ctx, "pgstore.Upsert", "UPSERT")
	defer span.End()
	span.SetAttributes(attribute.String("vesselwatch.vessel_id", t.VesselID))

	traj, err := encodeTrajectory(t.Trajectory)
	if err != nil {
		return fail(span, err)
	}

	_, err = s.pool.Exec(ctx, `
		INSERT INTO vessels (`+vesselColumns+`, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, now())
		ON CONFLICT (vessel_id) DO UPDATE SET
			lat         = EXCLUDED.lat,
			lon         = EXCLUDED.lon,
			speed       = EXCLUDED.speed,
			heading     = EXCLUDED.heading,
			last_update = EXCLUDED.last_update,
			trajectory  = EXCLUDED.trajectory,
			is_friendly = EXCLUDED.is_friendly,
			updated_at  = now()`,
		t.VesselID, t.Lat, t.Lon, t.Speed, t.Heading, t.LastUpdate.UTC(), traj, t.IsFriendly,
	)
	if err != nil {
		return fail(span, fmt.Errorf("upsert vessel: %w", err))
	}
	return nil
}

// Delete removes a track. Unknown IDs are not an error.
func (s *Store) Delete(ctx context.Context, id string) error {
	ctx, span := startSpan(ctx, "pgstore.Delete", "DELETE")
	defer span.End()
	span.SetAttributes(attribute.String("vesselwatch.vessel_id", id))

	if _, err := s.pool.Exec(ctx, `DELETE FROM vessels WHERE vessel_id = $1`, id); err != nil {
		return fail(span, fmt.Errorf("delete vessel: %w", err))
	}
	return nil
}

func scanTrack(row pgx.Row) (vessel.Track, error) {
	var (
		t    vessel.Track
		traj []byte
	)
	if err := row.Scan(&t.VesselID, &t.Lat, &t.Lon, &t.Speed, &t.Heading, &t.LastUpdate, &traj, &t.IsFriendly); err != nil {
		return vessel.Track{}, fmt.Errorf("scan vessel: %w", err)
	}
	pts, err := decodeTrajectory(traj)
	if err != nil {
		return vessel.Track{}, fmt.Errorf("vessel %s: %w", t.VesselID, err)
	}
	t.Trajectory = pts
	return t, nil
}

// encodeTrajectory returns nil (SQL NULL) for an empty trajectory.
func encodeTrajectory(pts []geo.Point) (any, error) {
	if len(pts) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(pts)
	if err != nil {
		return nil, fmt.Errorf("marshal trajectory: %w", err)
	}
	return string(b), nil
}

func decodeTrajectory(b []byte) ([]geo.Point, error) {
	if len(b) == 0 || string(b) == "null" {
		return nil, nil
	}
	var pts []geo.Point
	if err := json.Unmarshal(b, &pts); err != nil {
		return nil, fmt.Errorf("unmarshal trajectory: %w", err)
	}
	return pts, nil
}
