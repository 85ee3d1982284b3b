// Package geofence tests projected vessel paths against a closed maritime
// boundary.
package geofence

import (
	"github.com/linnemanlabs/vesselwatch/internal/geo"
)

// eps absorbs floating point noise in the orientation test so that a path
// touching a boundary vertex still counts as a crossing.
const eps = 1e-12

// Crosses reports whether the polyline path intersects any edge of the
// closed boundary (consecutive vertex pairs plus the last-to-first edge).
// Touching and collinear overlap count as intersection.
//
// Degenerate input never panics: paths with fewer than 2 points, boundaries
// with fewer than 2 vertices, and non-finite coordinates all yield false.
func Crosses(path, boundary []geo.Point) bool {
	if len(path) < 2 || len(boundary) < 2 {
		return false
	}
	for _, p := range path {
		if !p.Finite() {
			return false
		}
	}
	for _, v := range boundary {
		if !v.Finite() {
			return false
		}
	}

	n := len(boundary)
	for i := 0; i+1 < len(path); i++ {
		a, b := path[i], path[i+1]
		for j := range n {
			if segmentsIntersect(a, b, boundary[j], boundary[(j+1)%n]) {
				return true
			}
		}
	}
	return false
}

// CrossesBoundary is Crosses against a geo.Boundary.
func CrossesBoundary(path []geo.Point, b geo.Boundary) bool {
	return Crosses(path, b.Vertices)
}

func segmentsIntersect(p1, p2, q1, q2 geo.Point) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) &&
		((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}

	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}
	return false
}

// orient returns the sign of the cross product (b-a) x (c-a): positive for
// a counter-clockwise turn, negative for clockwise, 0 for collinear.
func orient(a, b, c geo.Point) int {
	v := (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
	switch {
	case v > eps:
		return 1
	case v < -eps:
		return -1
	default:
		return 0
	}
}

// onSegment reports whether c, already known collinear with a-b, lies
// within the bounding box of the segment.
func onSegment(a, b, c geo.Point) bool {
	return c[0] >= min(a[0], b[0])-eps && c[0] <= max(a[0], b[0])+eps &&
		c[1] >= min(a[1], b[1])-eps && c[1] <= max(a[1], b[1])+eps
}
