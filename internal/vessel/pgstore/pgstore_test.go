package pgstore_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/linnemanlabs/vesselwatch/internal/geo"
	"github.com/linnemanlabs/vesselwatch/internal/vessel"
	"github.com/linnemanlabs/vesselwatch/internal/vessel/pgstore"
)

func openStore(t *testing.T) *pgstore.Store {
	t.Helper()
	dsn := os.Getenv("VESSELWATCH_TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("VESSELWATCH_TEST_DATABASE_URL not set, skipping integration test")
	}
	ctx := context.Background()
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		t.Fatalf("pgxpool.New: %v", err)
	}
	t.Cleanup(pool.Close)
	s, err := pgstore.New(ctx, pool)
	if err != nil {
		t.Fatalf("pgstore.New: %v", err)
	}
	return s
}

func findTrack(t *testing.T, s *pgstore.Store, id string) (vessel.Track, bool) {
	t.Helper()
	all, err := s.LoadAll(context.Background())
	if err != nil {
		t.Fatalf("LoadAll: %v", err)
	}
	for _, tr := range all {
		if tr.VesselID == id {
			return tr, true
		}
	}
	return vessel.Track{}, false
}

func TestUpsertAndLoad(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	now := time.Now().Truncate(time.Microsecond).UTC()
	tr := vessel.Track{
		VesselID:   "TEST-PG-001",
		Lat:        12.5,
		Lon:        45.25,
		Speed:      14,
		Heading:    270,
		LastUpdate: now,
		Trajectory: []geo.Point{{12.5, 45.25}, {12.5, 45}},
		IsFriendly: true,
	}
	t.Cleanup(func() { _ = s.Delete(ctx, tr.VesselID) })

	if err := s.Upsert(ctx, tr); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	got, ok := findTrack(t, s, tr.VesselID)
	if !ok {
		t.Fatal("track not found after Upsert")
	}

	assertEqual(t, "Lat", tr.Lat, got.Lat)
	assertEqual(t, "Lon", tr.Lon, got.Lon)
	assertEqual(t, "Speed", tr.Speed, got.Speed)
	assertEqual(t, "Heading", tr.Heading, got.Heading)
	assertEqual(t, "IsFriendly", tr.IsFriendly, got.IsFriendly)
	if !got.LastUpdate.Equal(tr.LastUpdate) {
		t.Errorf("LastUpdate = %v, want %v", got.LastUpdate, tr.LastUpdate)
	}
	if len(got.Trajectory) != 2 || got.Trajectory[1] != (geo.Point{12.5, 45}) {
		t.Errorf("Trajectory = %v", got.Trajectory)
	}
}

func TestUpsertOverwritesAndClearsTrajectory(t *testing.T) {
	s := openStore(t)
	ctx := context.Background()

	tr := vessel.Track{VesselID: "TEST-PG-002", Speed: 5, LastUpdate: time.Now().UTC(), Trajectory: []geo.Point{{1, 1}}}
	t.Cleanup(func() { _ = s.Delete(ctx, tr.VesselID) })

	if err := s.Upsert(ctx, tr); err != nil {
		t.Fatalf("Upsert: %v", err)
	}
	tr.Speed = 9
	tr.Trajectory = nil
	if err := s.Upsert(ctx, tr); err != nil {
		t.Fatalf("second Upsert: %v", err)
	}

	got, _ := findTrack(t, s, tr.VesselID)
	assertEqual(t, "Speed", 9.0, got.Speed)
	if got.Trajectory != nil {
		t.Errorf("Trajectory = %v, want nil", got.Trajectory)
	}
}

func TestDeleteMissing(t *testing.T) {
	s := openStore(t)
	if err := s.Delete(context.Background(), "TEST-PG-NOPE"); err != nil {
		t.Fatalf("Delete missing: %v", err)
	}
}

func assertEqual[T comparable](t *testing.T, field string, want, got T) {
	t.Helper()
	if want != got {
		t.Errorf("%s: want %v, got %v", field, want, got)
	}
}
