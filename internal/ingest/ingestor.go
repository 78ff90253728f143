// Package ingest turns externally supplied geometry files into the internal
// polygon representation and resolves the enclosing locality.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"path/filepath"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"

	"geovisor-service/internal/geodesic"
	"geovisor-service/internal/models"
)

var (
	// ErrUnsupportedFormat is returned for any extension other than the
	// three accepted encodings.
	ErrUnsupportedFormat = errors.New("unsupported geometry file format")
	// ErrNoGeometryFound means the file parsed but carried no
	// polygon-typed feature.
	ErrNoGeometryFound = errors.New("no polygon geometry found in file")
)

// LocalityResolver is the reverse point-in-region lookup. A nil locality
// with nil error means the point fell outside every known locality.
type LocalityResolver interface {
	Detect(ctx context.Context, lat, lon float64) (*models.Locality, error)
}

// Archiver keeps a copy of the raw upload. Failures are logged, never
// propagated: archival is a convenience, the import is the point.
type Archiver interface {
	Store(ctx context.Context, filename string, data []byte) error
}

type Ingestor struct {
	resolver LocalityResolver
	archiver Archiver
}

// NewIngestor builds an ingestor. archiver may be nil.
func NewIngestor(resolver LocalityResolver, archiver Archiver) *Ingestor {
	return &Ingestor{resolver: resolver, archiver: archiver}
}

// Ingest parses the uploaded file and reverse-looks-up the enclosing
// locality from the polygon's first coordinate. A lookup failure never
// fails the call: Locality stays nil and the caller prompts for a manual
// selection.
func (i *Ingestor) Ingest(ctx context.Context, filename string, data []byte) (*models.IngestResult, error) {
	var (
		poly models.Polygon
		err  error
	)
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".geojson", ".json":
		poly, err = parseGeoJSON(data)
	case ".kml":
		poly, err = parseKML(data)
	case ".zip":
		poly, err = parseShapefileZip(data)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(filename))
	}
	if err != nil {
		return nil, err
	}
	if len(poly.Outer) < 3 {
		return nil, ErrNoGeometryFound
	}

	if i.archiver != nil {
		if err := i.archiver.Store(ctx, filename, data); err != nil {
			slog.Warn("failed to archive uploaded geometry file", "file", filename, "error", err)
		}
	}

	rep := poly.Outer[0]
	result := &models.IngestResult{
		Polygon:        models.NewGeoJSONPolygon(poly),
		AreaHectares:   geodesic.PolygonHectares(poly),
		Representative: rep,
	}

	loc, err := i.resolver.Detect(ctx, rep.Lat, rep.Lon)
	if err != nil {
		slog.Warn("reverse locality lookup failed", "file", filename, "error", err)
		return result, nil
	}
	result.Locality = loc
	return result, nil
}

// parseGeoJSON accepts a FeatureCollection, a single Feature or a bare
// geometry object and keeps the first polygon-typed feature.
func parseGeoJSON(data []byte) (models.Polygon, error) {
	if fc, err := geojson.UnmarshalFeatureCollection(data); err == nil {
		for _, f := range fc.Features {
			if poly, ok := firstPolygon(f.Geometry); ok {
				return poly, nil
			}
		}
		return models.Polygon{}, ErrNoGeometryFound
	}
	if f, err := geojson.UnmarshalFeature(data); err == nil {
		if poly, ok := firstPolygon(f.Geometry); ok {
			return poly, nil
		}
		return models.Polygon{}, ErrNoGeometryFound
	}
	g, err := geojson.UnmarshalGeometry(data)
	if err != nil {
		return models.Polygon{}, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}
	if poly, ok := firstPolygon(g.Geometry()); ok {
		return poly, nil
	}
	return models.Polygon{}, ErrNoGeometryFound
}

// firstPolygon unwraps nested geometries until it finds a polygon, keeping
// only the outer ring.
func firstPolygon(g orb.Geometry) (models.Polygon, bool) {
	switch geom := g.(type) {
	case orb.Polygon:
		if len(geom) == 0 {
			return models.Polygon{}, false
		}
		return models.Polygon{Outer: models.RingFromOrb(geom[0])}, true
	case orb.MultiPolygon:
		for _, p := range geom {
			if poly, ok := firstPolygon(p); ok {
				return poly, ok
			}
		}
	case orb.Collection:
		for _, child := range geom {
			if poly, ok := firstPolygon(child); ok {
				return poly, ok
			}
		}
	}
	return models.Polygon{}, false
}
