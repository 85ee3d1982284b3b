package monitor

import (
	"context"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/linnemanlabs/vesselwatch/internal/vessel"
)

func TestDemoFleet(t *testing.T) {
	t.Parallel()

	fleet := DemoFleet(epoch, DemoSeed)
	if len(fleet) != 10 {
		t.Fatalf("fleet size = %d, want 10", len(fleet))
	}
	for i, v := range fleet {
		if want := fmt.Sprintf("VESSEL%03d", i+1); v.VesselID != want {
			t.Errorf("id[%d] = %q, want %q", i, v.VesselID, want)
		}
		if math.Abs(v.Lat-demoRegions[i][0]) > 0.5 || math.Abs(v.Lon-demoRegions[i][1]) > 0.5 {
			t.Errorf("%s at (%v, %v) too far from anchor %v", v.VesselID, v.Lat, v.Lon, demoRegions[i])
		}
		if v.Speed < 5 || v.Speed >= 20 {
			t.Errorf("%s speed = %v", v.VesselID, v.Speed)
		}
		if v.Heading < 0 || v.Heading >= 360 {
			t.Errorf("%s heading = %v", v.VesselID, v.Heading)
		}
		if want := epoch.Add(-time.Duration(i) * 300 * time.Second); !v.LastUpdate.Equal(want) {
			t.Errorf("%s last update = %v, want %v", v.VesselID, v.LastUpdate, want)
		}
		if v.HasTrajectory() {
			t.Errorf("%s should start without a trajectory", v.VesselID)
		}
	}

	if diff := cmp.Diff(fleet, DemoFleet(epoch, DemoSeed)); diff != "" {
		t.Errorf("fleet not deterministic (-first +second):\n%s", diff)
	}
	if cmp.Equal(fleet, DemoFleet(epoch, DemoSeed+1)) {
		t.Error("different seeds gave the same fleet")
	}
}

func TestSeedDemo(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	ctx := context.Background()

	if n := f.svc.SeedDemo(ctx); n != 10 {
		t.Fatalf("seeded = %d, want 10", n)
	}
	if f.reg.Len() != 10 {
		t.Errorf("registry len = %d", f.reg.Len())
	}
	if _, ok := f.store.get("VESSEL010"); !ok {
		t.Error("seeded fleet not persisted")
	}
	if n := f.svc.SeedDemo(ctx); n != 0 {
		t.Errorf("second seed = %d, want 0", n)
	}
}

func TestSeedDemo_SkipsNonEmptyRegistry(t *testing.T) {
	t.Parallel()

	f := newFixture(t, nil)
	f.reg.Upsert(vessel.Track{VesselID: "MINE"})
	if n := f.svc.SeedDemo(context.Background()); n != 0 {
		t.Errorf("seeded = %d, want 0", n)
	}
}
