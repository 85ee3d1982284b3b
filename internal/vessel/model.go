package vessel

import (
	"encoding/json"
	"fmt"
	"slices"
	"time"

	"github.com/linnemanlabs/vesselwatch/internal/geo"
)

// Speed bounds in knots. Motion updates clamp into this range.
const (
	MinSpeed = 0.0
	MaxSpeed = 25.0
)

// Track is the current known state of one vessel.
type Track struct {
	VesselID   string      `json:"vessel_id"`
	Lat        float64     `json:"lat"`
	Lon        float64     `json:"lon"`
	Speed      float64     `json:"speed"`
	Heading    float64     `json:"heading"`
	LastUpdate time.Time   `json:"last_update"`
	Trajectory []geo.Point `json:"trajectory,omitempty"`
	IsFriendly bool        `json:"is_friendly"`
}

// Clone returns a deep copy of the track.
func (t Track) Clone() Track {
	t.Trajectory = slices.Clone(t.Trajectory)
	return t
}

// HasTrajectory reports whether a forward projection is stored for the track.
func (t Track) HasTrajectory() bool {
	return len(t.Trajectory) > 0
}

// AnomalyFlag is the tri-state outcome of batch anomaly detection.
type AnomalyFlag int

const (
	// AnomalyUnknown means the batch was too small to label.
	AnomalyUnknown AnomalyFlag = iota
	AnomalyInlier
	AnomalyOutlier
)

func (f AnomalyFlag) String() string {
	switch f {
	case AnomalyInlier:
		return "inlier"
	case AnomalyOutlier:
		return "outlier"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the flag by name.
func (f AnomalyFlag) MarshalJSON() ([]byte, error) {
	return json.Marshal(f.String())
}

// UnmarshalJSON decodes a flag name.
func (f *AnomalyFlag) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err != nil {
		return err
	}
	switch s {
	case "inlier":
		*f = AnomalyInlier
	case "outlier":
		*f = AnomalyOutlier
	case "unknown", "":
		*f = AnomalyUnknown
	default:
		return fmt.Errorf("unknown anomaly flag %q", s)
	}
	return nil
}

// Scored is a track plus the view state derived for it in one tick.
// It is never persisted.
type Scored struct {
	Track
	Anomaly          AnomalyFlag `json:"anomaly"`
	RiskScore        int         `json:"risk_score"`
	BoundaryCrossing bool        `json:"boundary_crossing"`
}
