// Package alerting turns scored tracks into speed, piracy and boundary
// alerts and tracks which alert identities are still recent so the "new
// alert" side effect fires once per occurrence.
package alerting

import (
	"fmt"
	"time"

	"github.com/linnemanlabs/vesselwatch/internal/geo"
	"github.com/linnemanlabs/vesselwatch/internal/vessel"
)

// ZoneLookup returns the first risk zone containing a position.
type ZoneLookup func(lat, lon float64) (geo.Zone, bool)

// Engine evaluates the alert rules. It holds no state between ticks.
type Engine struct {
	SpeedThreshold float64
	BoundaryName   string
	RecencyWindow  time.Duration
	ZoneFor        ZoneLookup
}

// Evaluate applies the speed, piracy and boundary rules to every track in
// that order and marks each alert recent or not relative to now. The
// result lists all recent alerts first, then the older ones, each group in
// evaluation order.
func (e *Engine) Evaluate(tracks []vessel.Scored, now time.Time) []Alert {
	var recent, older []Alert
	for _, t := range tracks {
		for _, a := range e.rules(t) {
			a.Recent = e.isRecent(a.EmittedAt, now)
			if a.Recent {
				recent = append(recent, a)
			} else {
				older = append(older, a)
			}
		}
	}
	return append(recent, older...)
}

func (e *Engine) rules(t vessel.Scored) []Alert {
	var out []Alert
	fast := t.Speed > e.SpeedThreshold

	if fast {
		out = append(out, Alert{
			Type:      TypeSpeed,
			VesselID:  t.VesselID,
			Message:   fmt.Sprintf("High Speed: %s at %.1f knots", t.VesselID, t.Speed),
			EmittedAt: t.LastUpdate,
		})
	}

	if e.ZoneFor != nil {
		if z, ok := e.ZoneFor(t.Lat, t.Lon); ok {
			out = append(out, Alert{
				Type:      TypePiracy,
				VesselID:  t.VesselID,
				Message:   fmt.Sprintf("Piracy Risk: %s in %s", t.VesselID, zoneLabel(z)),
				EmittedAt: t.LastUpdate,
			})
		}
	}

	if !t.IsFriendly && t.HasTrajectory() && t.BoundaryCrossing {
		msg := fmt.Sprintf("Boundary Violation: Non-Friendly %s crossed %s", t.VesselID, e.boundaryName())
		if fast {
			msg += fmt.Sprintf(" at %.1f knots", t.Speed)
		}
		out = append(out, Alert{
			Type:      TypeBoundary,
			VesselID:  t.VesselID,
			Message:   msg,
			EmittedAt: t.LastUpdate,
		})
	}
	return out
}

func (e *Engine) isRecent(emitted, now time.Time) bool {
	window := e.RecencyWindow
	if window <= 0 {
		window = DefaultRecencyWindow
	}
	return now.Sub(emitted) < window
}

func (e *Engine) boundaryName() string {
	if e.BoundaryName == "" {
		return geo.DefaultBoundaryName
	}
	return e.BoundaryName
}

func zoneLabel(z geo.Zone) string {
	if z.Label != "" {
		return z.Label
	}
	return z.Name
}
