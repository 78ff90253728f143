package ingest

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"strings"

	"geovisor-service/internal/models"
)

// KML track/placemark parsing. Only the outer boundary of the first Polygon
// placemark is kept; folders nest arbitrarily.

type kmlRoot struct {
	XMLName    xml.Name       `xml:"kml"`
	Document   kmlContainer   `xml:"Document"`
	Placemarks []kmlPlacemark `xml:"Placemark"`
}

type kmlContainer struct {
	Placemarks []kmlPlacemark `xml:"Placemark"`
	Folders    []kmlContainer `xml:"Folder"`
}

type kmlPlacemark struct {
	Polygon       *kmlPolygon       `xml:"Polygon"`
	MultiGeometry *kmlMultiGeometry `xml:"MultiGeometry"`
}

type kmlMultiGeometry struct {
	Polygons []kmlPolygon `xml:"Polygon"`
}

type kmlPolygon struct {
	Coordinates string `xml:"outerBoundaryIs>LinearRing>coordinates"`
}

func parseKML(data []byte) (models.Polygon, error) {
	var root kmlRoot
	if err := xml.Unmarshal(data, &root); err != nil {
		return models.Polygon{}, fmt.Errorf("failed to parse KML: %w", err)
	}

	placemarks := append([]kmlPlacemark{}, root.Placemarks...)
	placemarks = append(placemarks, collectPlacemarks(root.Document)...)

	for _, pm := range placemarks {
		var polys []kmlPolygon
		if pm.Polygon != nil {
			polys = append(polys, *pm.Polygon)
		}
		if pm.MultiGeometry != nil {
			polys = append(polys, pm.MultiGeometry.Polygons...)
		}
		for _, kp := range polys {
			ring, err := parseKMLCoordinates(kp.Coordinates)
			if err != nil {
				return models.Polygon{}, err
			}
			if len(ring) >= 3 {
				return models.Polygon{Outer: ring}, nil
			}
		}
	}
	return models.Polygon{}, ErrNoGeometryFound
}

func collectPlacemarks(c kmlContainer) []kmlPlacemark {
	out := append([]kmlPlacemark{}, c.Placemarks...)
	for _, f := range c.Folders {
		out = append(out, collectPlacemarks(f)...)
	}
	return out
}

// parseKMLCoordinates reads the "lon,lat[,alt]" whitespace-separated tuple
// list. A closing point identical to the first is dropped; the internal
// ring stays open.
func parseKMLCoordinates(raw string) (models.Ring, error) {
	ring := models.Ring{}
	for _, tuple := range strings.Fields(raw) {
		parts := strings.Split(tuple, ",")
		if len(parts) < 2 {
			return nil, fmt.Errorf("failed to parse KML: malformed coordinate %q", tuple)
		}
		lon, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse KML longitude %q: %w", parts[0], err)
		}
		lat, err := strconv.ParseFloat(parts[1], 64)
		if err != nil {
			return nil, fmt.Errorf("failed to parse KML latitude %q: %w", parts[1], err)
		}
		ring = append(ring, models.Point{Lon: lon, Lat: lat})
	}
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	return ring, nil
}
