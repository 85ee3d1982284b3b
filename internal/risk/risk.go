// Package risk computes the bounded per-vessel risk score.
package risk

import (
	"github.com/linnemanlabs/vesselwatch/internal/geo"
	"github.com/linnemanlabs/vesselwatch/internal/vessel"
)

// Score contributions and the saturation cap.
const (
	SpeedPoints = 40
	ZonePoints  = 30
	MaxScore    = 100

	DefaultSpeedThreshold = 12.0
	DefaultAnomalyWeight  = 30
)

// Scorer combines speed, zone membership and the anomaly signal into a
// score in [0, MaxScore].
type Scorer struct {
	SpeedThreshold float64
	AnomalyWeight  int
	Zones          []geo.Zone
}

// NewScorer returns a Scorer with the default threshold, weight and zones.
func NewScorer() *Scorer {
	return &Scorer{
		SpeedThreshold: DefaultSpeedThreshold,
		AnomalyWeight:  DefaultAnomalyWeight,
		Zones:          geo.DefaultZones(),
	}
}

// Score returns min(speed + zone + anomaly contributions, MaxScore).
// AnomalyUnknown contributes nothing, the same as AnomalyInlier.
func (s *Scorer) Score(t vessel.Track, flag vessel.AnomalyFlag) int {
	score := 0
	if t.Speed > s.SpeedThreshold {
		score += SpeedPoints
	}
	if _, ok := s.ZoneFor(t.Lat, t.Lon); ok {
		score += ZonePoints
	}
	if flag == vessel.AnomalyOutlier {
		score += max(s.AnomalyWeight, 0)
	}
	return min(score, MaxScore)
}

// ZoneFor returns the first configured zone containing (lat, lon).
func (s *Scorer) ZoneFor(lat, lon float64) (geo.Zone, bool) {
	for _, z := range s.Zones {
		if z.Contains(lat, lon) {
			return z, true
		}
	}
	return geo.Zone{}, false
}
