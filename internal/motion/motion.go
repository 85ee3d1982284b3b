// Package motion implements constant-velocity dead reckoning: advancing a
// track by one tick and projecting a forward path without touching state.
package motion

import (
	"iter"
	"math"
	"time"

	"github.com/linnemanlabs/vesselwatch/internal/geo"
	"github.com/linnemanlabs/vesselwatch/internal/vessel"
)

const (
	// knotsToKmPerMin converts knots to km/min via the nautical mile.
	knotsToKmPerMin = 1.852 / 60
	// kmPerDegree is the flat-earth degree length used for projection.
	kmPerDegree = 111.0

	// DefaultSteps is the projection resolution when the caller passes 0.
	DefaultSteps = 10
)

// Calibration is the empirical scale used by Advance. A track moves
// sin(heading)*speed*K degrees of latitude and cos(heading)*speed*K degrees
// of longitude per Reference interval. K is tuned for a smooth display, not
// derived from physics.
type Calibration struct {
	K         float64
	Reference time.Duration
}

// DefaultCalibration is 0.0001 degrees per knot per 60s tick.
func DefaultCalibration() Calibration {
	return Calibration{K: 0.0001, Reference: 60 * time.Second}
}

// Advance returns the track moved forward by elapsed at its reported
// speed. Heading is kept and normalised into [0, 360); the resulting speed
// is clamped into [MinSpeed, MaxSpeed] after the move. It is pure:
// identical inputs always give identical outputs.
func Advance(t vessel.Track, elapsed time.Duration, cal Calibration) vessel.Track {
	out := t.Clone()
	out.Heading = NormalizeHeading(t.Heading)
	speed := t.Speed
	if !finite(speed) {
		speed = 0
	}

	if cal.Reference > 0 && elapsed > 0 {
		f := elapsed.Seconds() / cal.Reference.Seconds()
		h := out.Heading * math.Pi / 180
		out.Lat += math.Sin(h) * speed * cal.K * f
		out.Lon += math.Cos(h) * speed * cal.K * f
	}
	if elapsed > 0 {
		out.LastUpdate = t.LastUpdate.Add(elapsed)
	}
	out.Speed = ClampSpeed(t.Speed)
	return out
}

// ClampSpeed bounds a speed into [MinSpeed, MaxSpeed]. NaN becomes 0.
func ClampSpeed(s float64) float64 {
	if math.IsNaN(s) {
		return vessel.MinSpeed
	}
	return min(max(s, vessel.MinSpeed), vessel.MaxSpeed)
}

// NormalizeHeading maps any finite heading into [0, 360). Non-finite
// headings become 0.
func NormalizeHeading(h float64) float64 {
	if math.IsNaN(h) || math.IsInf(h, 0) {
		return 0
	}
	h = math.Mod(h, 360)
	if h < 0 {
		h += 360
	}
	if h >= 360 {
		h = 0
	}
	return h
}

// Path lazily yields the forward projection from (lat, lon): the start
// point followed by steps points, each advanced horizon/steps along a fixed
// heading and speed. Longitude steps are divided by cos of the updated
// latitude. The sequence is finite and can be ranged over repeatedly.
// Non-finite input yields only the start point.
func Path(lat, lon, speed, heading float64, horizon time.Duration, steps int) iter.Seq[geo.Point] {
	if steps <= 0 {
		steps = DefaultSteps
	}
	return func(yield func(geo.Point) bool) {
		if !yield(geo.Point{lat, lon}) {
			return
		}
		if !finite(lat, lon, speed, heading) {
			return
		}

		stepMinutes := max(horizon, 0).Minutes() / float64(steps)
		deg := speed * knotsToKmPerMin * stepMinutes / kmPerDegree
		h := heading * math.Pi / 180
		dLat := deg * math.Cos(h)
		dLonBase := deg * math.Sin(h)

		la, lo := lat, lon
		for range steps {
			la += dLat
			if c := math.Cos(la * math.Pi / 180); dLonBase != 0 && c != 0 {
				lo += dLonBase / c
			}
			if !yield(geo.Point{la, lo}) {
				return
			}
		}
	}
}

// Project materialises Path into a slice of steps+1 points.
func Project(lat, lon, speed, heading float64, horizon time.Duration, steps int) []geo.Point {
	if steps <= 0 {
		steps = DefaultSteps
	}
	out := make([]geo.Point, 0, steps+1)
	for p := range Path(lat, lon, speed, heading, horizon, steps) {
		out = append(out, p)
	}
	return out
}

// ProjectTrack projects from a track's current state.
func ProjectTrack(t vessel.Track, horizon time.Duration, steps int) []geo.Point {
	return Project(t.Lat, t.Lon, t.Speed, t.Heading, horizon, steps)
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}
