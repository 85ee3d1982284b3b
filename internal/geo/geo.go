// Package geo holds the static geography vesselwatch evaluates tracks
// against: named risk zones and the maritime boundary polyline.
package geo

import (
	"errors"
	"fmt"
	"math"
)

// Point is a [lat, lon] pair in WGS84 degrees. It marshals as a two
// element JSON array.
type Point [2]float64

// Lat returns the latitude component.
func (p Point) Lat() float64 { return p[0] }

// Lon returns the longitude component.
func (p Point) Lon() float64 { return p[1] }

// Finite reports whether both coordinates are finite numbers.
func (p Point) Finite() bool {
	return !math.IsNaN(p[0]) && !math.IsInf(p[0], 0) &&
		!math.IsNaN(p[1]) && !math.IsInf(p[1], 0)
}

// Zone is an axis-aligned lat/lon box. Bounds are inclusive.
type Zone struct {
	Name   string  `json:"name" yaml:"name"`
	Label  string  `json:"label" yaml:"label"`
	MinLat float64 `json:"min_lat" yaml:"min_lat"`
	MaxLat float64 `json:"max_lat" yaml:"max_lat"`
	MinLon float64 `json:"min_lon" yaml:"min_lon"`
	MaxLon float64 `json:"max_lon" yaml:"max_lon"`
}

// Contains reports whether (lat, lon) lies inside the zone, edges included.
func (z Zone) Contains(lat, lon float64) bool {
	return lat >= z.MinLat && lat <= z.MaxLat && lon >= z.MinLon && lon <= z.MaxLon
}

// Validate checks the zone has a name and ordered bounds.
func (z Zone) Validate() error {
	var errs []error
	if z.Name == "" {
		errs = append(errs, errors.New("zone name is required"))
	}
	if z.MinLat > z.MaxLat {
		errs = append(errs, fmt.Errorf("zone %q: min_lat %v > max_lat %v", z.Name, z.MinLat, z.MaxLat))
	}
	if z.MinLon > z.MaxLon {
		errs = append(errs, fmt.Errorf("zone %q: min_lon %v > max_lon %v", z.Name, z.MinLon, z.MaxLon))
	}
	return errors.Join(errs...)
}

// Boundary is a closed polyline. The edge from the last vertex back to the
// first is implicit.
type Boundary struct {
	Name     string  `json:"name" yaml:"name"`
	Vertices []Point `json:"vertices" yaml:"vertices"`
}

// Edges returns every consecutive vertex pair including the wraparound edge.
// A boundary with fewer than two vertices has no edges.
func (b Boundary) Edges() [][2]Point {
	n := len(b.Vertices)
	if n < 2 {
		return nil
	}
	edges := make([][2]Point, 0, n)
	for i := range n {
		edges = append(edges, [2]Point{b.Vertices[i], b.Vertices[(i+1)%n]})
	}
	return edges
}

// Layout is the full static geography: risk zones in evaluation order plus
// the boundary.
type Layout struct {
	Zones    []Zone   `json:"zones" yaml:"zones"`
	Boundary Boundary `json:"boundary" yaml:"boundary"`
}

// Validate checks every zone and the boundary.
func (l Layout) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(l.Zones))
	for _, z := range l.Zones {
		if err := z.Validate(); err != nil {
			errs = append(errs, err)
		}
		if _, dup := seen[z.Name]; dup {
			errs = append(errs, fmt.Errorf("duplicate zone %q", z.Name))
		}
		seen[z.Name] = struct{}{}
	}
	if len(l.Boundary.Vertices) < 3 {
		errs = append(errs, fmt.Errorf("boundary needs at least 3 vertices, got %d", len(l.Boundary.Vertices)))
	}
	for i, v := range l.Boundary.Vertices {
		if !v.Finite() {
			errs = append(errs, fmt.Errorf("boundary vertex %d is not finite", i))
		}
	}
	return errors.Join(errs...)
}

// DefaultBoundaryName is the label used in boundary alerts when the layout
// does not name its boundary.
const DefaultBoundaryName = "Indian maritime boundary"

// DefaultZones returns the three piracy corridors in evaluation order.
func DefaultZones() []Zone {
	return []Zone{
		{Name: "gulf_of_aden", Label: "Gulf of Aden", MinLat: 10, MaxLat: 15, MinLon: 43, MaxLon: 53},
		{Name: "arabian_sea", Label: "Arabian Sea near Horn of Africa", MinLat: 0, MaxLat: 5, MinLon: 65, MaxLon: 70},
		{Name: "malacca_strait", Label: "Malacca Strait", MinLat: 0, MaxLat: 5, MinLon: 97, MaxLon: 102},
	}
}

// DefaultBoundary returns the built-in maritime boundary.
func DefaultBoundary() Boundary {
	return Boundary{
		Name: DefaultBoundaryName,
		Vertices: []Point{
			{23.5, 64.5}, {15, 64.5}, {5, 69.5}, {4, 76},
			{4, 84}, {6, 87.5}, {15, 93}, {23.5, 90},
		},
	}
}

// DefaultLayout returns the built-in zones and boundary.
func DefaultLayout() Layout {
	return Layout{Zones: DefaultZones(), Boundary: DefaultBoundary()}
}
