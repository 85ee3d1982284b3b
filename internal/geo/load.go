package geo

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"gopkg.in/yaml.v3"
)

// LoadLayout reads a YAML layout file. Sections missing from the file fall
// back to the built-in defaults so a file can override only the zones or
// only the boundary.
func LoadLayout(path string) (Layout, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
	if err != nil {
		return Layout{}, fmt.Errorf("read layout: %w", err)
	}
	return ParseLayout(raw)
}

// ParseLayout decodes a YAML layout document.
func ParseLayout(raw []byte) (Layout, error) {
	var l Layout
	if err := yaml.Unmarshal(raw, &l); err != nil {
		return Layout{}, fmt.Errorf("decode layout: %w", err)
	}
	def := DefaultLayout()
	if len(l.Zones) == 0 {
		l.Zones = def.Zones
	}
	if len(l.Boundary.Vertices) == 0 {
		l.Boundary.Vertices = def.Boundary.Vertices
	}
	if l.Boundary.Name == "" {
		l.Boundary.Name = def.Boundary.Name
	}
	for i := range l.Zones {
		if l.Zones[i].Label == "" {
			l.Zones[i].Label = l.Zones[i].Name
		}
	}
	if err := l.Validate(); err != nil {
		return Layout{}, fmt.Errorf("invalid layout: %w", err)
	}
	return l, nil
}

// LoadBoundaryShapefile reads the first polygon or polyline record of an
// ESRI shapefile and returns its largest part as a boundary. Shapefile
// points are X=lon, Y=lat.
func LoadBoundaryShapefile(path, name string) (Boundary, error) {
	reader, err := shp.Open(path)
	if err != nil {
		return Boundary{}, fmt.Errorf("open shapefile: %w", err)
	}
	defer func() { _ = reader.Close() }()

	if name == "" {
		name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}

	for reader.Next() {
		_, s := reader.Shape()

		var parts []int32
		var points []shp.Point
		switch p := s.(type) {
		case *shp.Polygon:
			parts, points = p.Parts, p.Points
		case *shp.PolyLine:
			parts, points = p.Parts, p.Points
		default:
			continue
		}

		verts := largestPart(parts, points)
		if len(verts) < 3 {
			continue
		}
		// polygons repeat the first vertex; the wraparound edge is implicit
		if len(verts) > 3 && verts[0] == verts[len(verts)-1] {
			verts = verts[:len(verts)-1]
		}
		return Boundary{Name: name, Vertices: verts}, nil
	}
	return Boundary{}, errors.New("shapefile has no polygon or polyline with at least 3 points")
}

func largestPart(parts []int32, points []shp.Point) []Point {
	if len(parts) == 0 {
		parts = []int32{0}
	}
	bestStart, bestEnd := 0, 0
	for i := range parts {
		start := int(parts[i])
		end := len(points)
		if i+1 < len(parts) {
			end = int(parts[i+1])
		}
		if start < 0 || end > len(points) || start > end {
			continue
		}
		if end-start > bestEnd-bestStart {
			bestStart, bestEnd = start, end
		}
	}
	out := make([]Point, 0, bestEnd-bestStart)
	for _, pt := range points[bestStart:bestEnd] {
		out = append(out, Point{pt.Y, pt.X})
	}
	return out
}
