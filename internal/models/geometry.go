package models

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/encoding/geojson"
	"github.com/twpayne/go-geom/encoding/wkt"
)

// Point is a WGS84 coordinate, longitude first.
type Point struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// Ring is an ordered sequence of points. The first and last point are not
// required to coincide; a ring needs at least 3 distinct points to be valid.
type Ring []Point

// Closed reports whether the ring explicitly repeats its first point.
func (r Ring) Closed() bool {
	return len(r) > 1 && r[0] == r[len(r)-1]
}

// Orb converts the ring to an orb.Ring, closing it if necessary.
func (r Ring) Orb() orb.Ring {
	out := make(orb.Ring, 0, len(r)+1)
	for _, p := range r {
		out = append(out, orb.Point{p.Lon, p.Lat})
	}
	if len(out) > 0 && !r.Closed() {
		out = append(out, out[0])
	}
	return out
}

// RingFromOrb drops the closing point orb carries so the internal
// representation stays open.
func RingFromOrb(r orb.Ring) Ring {
	n := len(r)
	if n > 1 && r[0] == r[n-1] {
		n--
	}
	out := make(Ring, 0, n)
	for i := 0; i < n; i++ {
		out = append(out, Point{Lon: r[i][0], Lat: r[i][1]})
	}
	return out
}

// Polygon is a single outer ring. Holes are unsupported.
type Polygon struct {
	Outer Ring `json:"outer"`
}

func (p Polygon) Orb() orb.Polygon {
	return orb.Polygon{p.Outer.Orb()}
}

// GeoJSONPolygon is the API wire shape for a polygon, compatible with the
// GeoJSON geometry object.
type GeoJSONPolygon struct {
	Type        string        `json:"type"`
	Coordinates [][][]float64 `json:"coordinates"`
}

// NewGeoJSONPolygon builds the wire shape from the internal polygon.
func NewGeoJSONPolygon(p Polygon) GeoJSONPolygon {
	ring := p.Outer.Orb()
	coords := make([][]float64, 0, len(ring))
	for _, pt := range ring {
		coords = append(coords, []float64{pt[0], pt[1]})
	}
	return GeoJSONPolygon{Type: "Polygon", Coordinates: [][][]float64{coords}}
}

// Polygon converts the wire shape back to the internal representation.
// Only the outer ring is kept.
func (g GeoJSONPolygon) Polygon() (Polygon, error) {
	if g.Type != "Polygon" {
		return Polygon{}, fmt.Errorf("geometry is not a Polygon: %q", g.Type)
	}
	if len(g.Coordinates) == 0 {
		return Polygon{}, fmt.Errorf("polygon has no rings")
	}
	outer := make(orb.Ring, 0, len(g.Coordinates[0]))
	for _, c := range g.Coordinates[0] {
		if len(c) < 2 {
			return Polygon{}, fmt.Errorf("coordinate has fewer than 2 components")
		}
		outer = append(outer, orb.Point{c[0], c[1]})
	}
	return Polygon{Outer: RingFromOrb(outer)}, nil
}

// WKT renders the polygon as Well-Known Text with the WGS84 SRID prefix.
//
// Flow: GeoJSON → geom.Polygon → WKT string
// Example output: "SRID=4326;POLYGON((-76.0 -9.0, -76.1 -9.0, ...))"
func (g GeoJSONPolygon) WKT() (string, error) {
	geoJSONBytes, err := json.Marshal(g)
	if err != nil {
		return "", fmt.Errorf("failed to marshal GeoJSON: %w", err)
	}

	var geometry geom.T
	if err := geojson.Unmarshal(geoJSONBytes, &geometry); err != nil {
		return "", fmt.Errorf("failed to unmarshal GeoJSON: %w", err)
	}

	polygon, ok := geometry.(*geom.Polygon)
	if !ok {
		return "", fmt.Errorf("geometry is not a Polygon")
	}
	polygon.SetSRID(4326)

	wktString, err := wkt.Marshal(polygon)
	if err != nil {
		return "", fmt.Errorf("failed to marshal to WKT: %w", err)
	}

	return fmt.Sprintf("SRID=%d;%s", polygon.SRID(), wktString), nil
}
