package geo

import (
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/jonas-p/go-shp"
)

func TestZone_Contains(t *testing.T) {
	t.Parallel()

	z := Zone{Name: "box", MinLat: 10, MaxLat: 15, MinLon: 43, MaxLon: 53}

	tests := []struct {
		name     string
		lat, lon float64
		want     bool
	}{
		{"center", 12, 45, true},
		{"min corner", 10, 43, true},
		{"max corner", 15, 53, true},
		{"just north", 15.0001, 45, false},
		{"just west", 12, 42.9999, false},
		{"nan", math.NaN(), 45, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := z.Contains(tt.lat, tt.lon); got != tt.want {
				t.Errorf("Contains(%v, %v) = %v, want %v", tt.lat, tt.lon, got, tt.want)
			}
		})
	}
}

func TestBoundary_EdgesWrapAround(t *testing.T) {
	t.Parallel()

	b := Boundary{Vertices: []Point{{0, 0}, {0, 1}, {1, 1}}}
	want := [][2]Point{
		{{0, 0}, {0, 1}},
		{{0, 1}, {1, 1}},
		{{1, 1}, {0, 0}},
	}
	if diff := cmp.Diff(want, b.Edges()); diff != "" {
		t.Errorf("Edges() mismatch (-want +got):\n%s", diff)
	}

	if got := (Boundary{Vertices: []Point{{0, 0}}}).Edges(); got != nil {
		t.Errorf("single vertex Edges() = %v, want nil", got)
	}
}

func TestDefaultLayout_Valid(t *testing.T) {
	t.Parallel()

	l := DefaultLayout()
	if err := l.Validate(); err != nil {
		t.Fatalf("default layout invalid: %v", err)
	}
	if len(l.Zones) != 3 {
		t.Errorf("zones = %d, want 3", len(l.Zones))
	}
	if l.Boundary.Name != DefaultBoundaryName {
		t.Errorf("boundary name = %q, want %q", l.Boundary.Name, DefaultBoundaryName)
	}
	if len(l.Boundary.Vertices) != 8 {
		t.Errorf("boundary vertices = %d, want 8", len(l.Boundary.Vertices))
	}
}

func TestLayout_ValidateErrors(t *testing.T) {
	t.Parallel()

	l := Layout{
		Zones: []Zone{
			{Name: "a", MinLat: 5, MaxLat: 1},
			{Name: "a", MinLon: 3, MaxLon: 2},
			{},
		},
		Boundary: Boundary{Vertices: []Point{{0, 0}, {math.NaN(), 1}}},
	}
	err := l.Validate()
	if err == nil {
		t.Fatal("expected validation error")
	}
	for _, sub := range []string{"min_lat", "min_lon", "duplicate zone", "zone name is required", "at least 3 vertices", "not finite"} {
		if !strings.Contains(err.Error(), sub) {
			t.Errorf("error %q does not contain %q", err, sub)
		}
	}
}

func TestParseLayout_OverridesZonesOnly(t *testing.T) {
	t.Parallel()

	doc := `
zones:
  - name: test_box
    min_lat: 1
    max_lat: 2
    min_lon: 3
    max_lon: 4
`
	l, err := ParseLayout([]byte(doc))
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	if len(l.Zones) != 1 || l.Zones[0].Name != "test_box" {
		t.Fatalf("zones = %+v, want single test_box", l.Zones)
	}
	if l.Zones[0].Label != "test_box" {
		t.Errorf("label = %q, want name fallback", l.Zones[0].Label)
	}
	if diff := cmp.Diff(DefaultBoundary(), l.Boundary); diff != "" {
		t.Errorf("boundary should fall back to default (-want +got):\n%s", diff)
	}
}

func TestParseLayout_Boundary(t *testing.T) {
	t.Parallel()

	doc := `
boundary:
  name: test line
  vertices:
    - [0, 0]
    - [0, 10]
    - [10, 10]
`
	l, err := ParseLayout([]byte(doc))
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	want := Boundary{Name: "test line", Vertices: []Point{{0, 0}, {0, 10}, {10, 10}}}
	if diff := cmp.Diff(want, l.Boundary); diff != "" {
		t.Errorf("boundary mismatch (-want +got):\n%s", diff)
	}
	if len(l.Zones) != 3 {
		t.Errorf("zones = %d, want defaults", len(l.Zones))
	}
}

func TestParseLayout_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		doc  string
	}{
		{"bad yaml", "zones: [\n"},
		{"inverted zone", "zones:\n  - name: x\n    min_lat: 5\n    max_lat: 1\n"},
		{"short boundary", "boundary:\n  vertices:\n    - [0, 0]\n    - [1, 1]\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if _, err := ParseLayout([]byte(tt.doc)); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestLoadLayout_MissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadLayout(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read layout") {
		t.Errorf("err = %v, want read layout error", err)
	}
}

func TestLoadLayout_File(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "layout.yaml")
	if err := os.WriteFile(path, []byte("boundary:\n  name: file line\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	l, err := LoadLayout(path)
	if err != nil {
		t.Fatalf("LoadLayout: %v", err)
	}
	if l.Boundary.Name != "file line" {
		t.Errorf("name = %q, want %q", l.Boundary.Name, "file line")
	}
	if len(l.Boundary.Vertices) != 8 {
		t.Errorf("vertices = %d, want default 8", len(l.Boundary.Vertices))
	}
}

func TestLoadBoundaryShapefile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "eez.shp")
	w, err := shp.Create(path, shp.POLYLINE)
	if err != nil {
		t.Fatalf("create shapefile: %v", err)
	}
	// shapefile order is X=lon, Y=lat; the second part is the larger one
	w.Write(shp.NewPolyLine([][]shp.Point{
		{{X: 1, Y: 1}, {X: 2, Y: 2}, {X: 3, Y: 1}},
		{{X: 64.5, Y: 23.5}, {X: 64.5, Y: 15}, {X: 69.5, Y: 5}, {X: 76, Y: 4}, {X: 64.5, Y: 23.5}},
	}))
	w.Close()

	b, err := LoadBoundaryShapefile(path, "")
	if err != nil {
		t.Fatalf("LoadBoundaryShapefile: %v", err)
	}
	if b.Name != "eez" {
		t.Errorf("name = %q, want %q", b.Name, "eez")
	}
	want := []Point{{23.5, 64.5}, {15, 64.5}, {5, 69.5}, {4, 76}}
	if diff := cmp.Diff(want, b.Vertices); diff != "" {
		t.Errorf("vertices mismatch (-want +got):\n%s", diff)
	}
}

func TestLoadBoundaryShapefile_Missing(t *testing.T) {
	t.Parallel()

	if _, err := LoadBoundaryShapefile(filepath.Join(t.TempDir(), "missing.shp"), "x"); err == nil {
		t.Error("expected error for missing shapefile")
	}
}
