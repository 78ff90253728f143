package ingest

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"strings"

	shp "github.com/jonas-p/go-shp"

	"geovisor-service/internal/models"
)

// parseShapefileZip reads the first polygon record out of a zipped
// shapefile archive. The .dbf attribute table is optional; only the
// geometry matters here.
func parseShapefileZip(data []byte) (models.Polygon, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return models.Polygon{}, fmt.Errorf("failed to open shapefile archive: %w", err)
	}

	var shpFile, dbfFile io.ReadCloser
	for _, entry := range zr.File {
		name := strings.ToLower(entry.Name)
		switch {
		case strings.HasSuffix(name, ".shp") && shpFile == nil:
			if shpFile, err = entry.Open(); err != nil {
				return models.Polygon{}, fmt.Errorf("failed to open .shp entry: %w", err)
			}
		case strings.HasSuffix(name, ".dbf") && dbfFile == nil:
			if dbfFile, err = entry.Open(); err != nil {
				return models.Polygon{}, fmt.Errorf("failed to open .dbf entry: %w", err)
			}
		}
	}
	if shpFile == nil {
		return models.Polygon{}, fmt.Errorf("%w: archive contains no .shp file", ErrNoGeometryFound)
	}
	if dbfFile == nil {
		dbfFile = io.NopCloser(bytes.NewReader(nil))
	}

	sr := shp.SequentialReaderFromExt(shpFile, dbfFile)
	defer sr.Close()

	for sr.Next() {
		_, shape := sr.Shape()
		ring, ok := polygonOuterRing(shape)
		if !ok {
			continue
		}
		return models.Polygon{Outer: ring}, nil
	}
	if err := sr.Err(); err != nil && err != io.EOF {
		return models.Polygon{}, fmt.Errorf("failed to read shapefile: %w", err)
	}
	return models.Polygon{}, ErrNoGeometryFound
}

// polygonOuterRing extracts the first part of a polygon-typed shape.
// Shapefile rings repeat the first point at the end; the internal ring
// stays open.
func polygonOuterRing(shape shp.Shape) (models.Ring, bool) {
	poly, ok := shape.(*shp.Polygon)
	if !ok {
		return nil, false
	}
	if len(poly.Points) == 0 || len(poly.Parts) == 0 {
		return nil, false
	}

	end := len(poly.Points)
	if len(poly.Parts) > 1 {
		end = int(poly.Parts[1])
	}
	pts := poly.Points[poly.Parts[0]:end]

	ring := make(models.Ring, 0, len(pts))
	for _, p := range pts {
		ring = append(ring, models.Point{Lon: p.X, Lat: p.Y})
	}
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return nil, false
	}
	return ring, true
}
