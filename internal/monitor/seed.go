package monitor

import (
	"context"
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/linnemanlabs/vesselwatch/internal/vessel"
)

// DemoSeed is the seed used for the demo fleet.
const DemoSeed = 42

// demoRegions are the fleet's starting anchors across the Indian Ocean.
var demoRegions = [...][2]float64{
	{23.5, 64.5}, {15.0, 64.5}, {5.0, 69.5}, {4.0, 76.0}, {4.0, 84.0},
	{6.0, 87.5}, {15.0, 93.0}, {20.0, 92.0}, {12.0, 44.0}, {2.0, 99.0},
}

// DemoFleet builds ten vessels VESSEL001..VESSEL010 scattered within half a
// degree of fixed anchors, with speeds in [5, 20) knots, random headings and
// friendly flags, and reports staggered 5 minutes apart back from now. The
// same seed always gives the same fleet.
func DemoFleet(now time.Time, seed uint64) []vessel.Track {
	rng := rand.New(rand.NewPCG(seed, seed))
	n := len(demoRegions)
	uniform := func(lo, hi float64) float64 { return lo + rng.Float64()*(hi-lo) }

	tracks := make([]vessel.Track, n)
	for i := range tracks {
		tracks[i].VesselID = fmt.Sprintf("VESSEL%03d", i+1)
		tracks[i].LastUpdate = now.Add(-time.Duration(i) * 5 * time.Minute)
	}
	// one column at a time so each property draws from its own run
	for i := range tracks {
		tracks[i].Lat = demoRegions[i][0] + uniform(-0.5, 0.5)
	}
	for i := range tracks {
		tracks[i].Lon = demoRegions[i][1] + uniform(-0.5, 0.5)
	}
	for i := range tracks {
		tracks[i].Speed = uniform(5, 20)
	}
	for i := range tracks {
		tracks[i].Heading = uniform(0, 360)
	}
	for i := range tracks {
		tracks[i].IsFriendly = rng.IntN(2) == 1
	}
	return tracks
}

// SeedDemo loads the demo fleet when the registry is empty and persists
// it. It returns the number of vessels seeded.
func (s *Service) SeedDemo(ctx context.Context) int {
	if s.reg.Len() > 0 {
		return 0
	}
	fleet := DemoFleet(s.clock.Now(), DemoSeed)
	for _, t := range fleet {
		s.reg.Upsert(t)
		s.persist(ctx, "seed", t)
	}
	s.logger.Info(ctx, "seeded demo fleet", "vessels", len(fleet))
	return len(fleet)
}
