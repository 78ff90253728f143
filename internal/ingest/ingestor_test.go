package ingest

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"geovisor-service/internal/models"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

// ~100m square near the equator, closed ring, GeoJSON FeatureCollection.
const squareFeatureCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {"name": "parcela"}, "geometry": {
      "type": "Polygon",
      "coordinates": [[[0,0],[0.000898,0],[0.000898,0.000898],[0,0.000898],[0,0]]]
    }}
  ]
}`

const pointOnlyCollection = `{
  "type": "FeatureCollection",
  "features": [
    {"type": "Feature", "properties": {}, "geometry": {"type": "Point", "coordinates": [1, 2]}}
  ]
}`

const squareKML = `<?xml version="1.0" encoding="UTF-8"?>
<kml xmlns="http://www.opengis.net/kml/2.2">
  <Document>
    <Folder>
      <Placemark>
        <name>parcela</name>
        <Polygon>
          <outerBoundaryIs><LinearRing><coordinates>
            -76.1,-9.2,0 -76.0,-9.2,0 -76.0,-9.1,0 -76.1,-9.1,0 -76.1,-9.2,0
          </coordinates></LinearRing></outerBoundaryIs>
        </Polygon>
      </Placemark>
    </Folder>
  </Document>
</kml>`

type stubResolver struct {
	locality *models.Locality
	err      error
	gotLat   float64
	gotLon   float64
}

func (s *stubResolver) Detect(_ context.Context, lat, lon float64) (*models.Locality, error) {
	s.gotLat, s.gotLon = lat, lon
	return s.locality, s.err
}

type stubArchiver struct {
	stored []string
	err    error
}

func (s *stubArchiver) Store(_ context.Context, filename string, _ []byte) error {
	s.stored = append(s.stored, filename)
	return s.err
}

// ============================================================================
// TEST SUITE 1: FORMAT DISPATCH
// ============================================================================

func TestIngest_GeoJSONPolygonWithDetectedLocality(t *testing.T) {
	loc := models.FallbackLocalities()[0]
	resolver := &stubResolver{locality: &loc}
	ing := NewIngestor(resolver, nil)

	res, err := ing.Ingest(context.Background(), "parcela.geojson", []byte(squareFeatureCollection))
	require.NoError(t, err)

	require.NotNil(t, res.Locality)
	assert.Equal(t, "UCHIZA", res.Locality.Name)
	assert.InDelta(t, 1.00, res.AreaHectares, 0.01)
	assert.Equal(t, "Polygon", res.Polygon.Type)
	// Representative coordinate is the first vertex of the first ring.
	assert.Equal(t, 0.0, res.Representative.Lon)
	assert.Equal(t, 0.0, resolver.gotLat)
}

func TestIngest_KMLInsideFolder(t *testing.T) {
	ing := NewIngestor(&stubResolver{}, nil)

	res, err := ing.Ingest(context.Background(), "track.kml", []byte(squareKML))
	require.NoError(t, err)

	assert.Equal(t, models.Point{Lon: -76.1, Lat: -9.2}, res.Representative)
	assert.Nil(t, res.Locality, "lookup found nothing, import still succeeds")
	assert.Greater(t, res.AreaHectares, 0.0)
}

func TestIngest_UnsupportedExtension(t *testing.T) {
	ing := NewIngestor(&stubResolver{}, nil)

	_, err := ing.Ingest(context.Background(), "parcela.gpx", []byte("<gpx/>"))

	assert.ErrorIs(t, err, ErrUnsupportedFormat)
}

func TestIngest_NoPolygonFeature(t *testing.T) {
	ing := NewIngestor(&stubResolver{}, nil)

	_, err := ing.Ingest(context.Background(), "points.geojson", []byte(pointOnlyCollection))

	assert.ErrorIs(t, err, ErrNoGeometryFound)
}

func TestIngest_ZipWithoutShpEntry(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("not a shapefile"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	ing := NewIngestor(&stubResolver{}, nil)
	_, err = ing.Ingest(context.Background(), "parcela.zip", buf.Bytes())

	assert.ErrorIs(t, err, ErrNoGeometryFound)
}

// ============================================================================
// TEST SUITE 2: DEGRADATION POLICY
// ============================================================================

func TestIngest_LookupFailureDegradesSilently(t *testing.T) {
	ing := NewIngestor(&stubResolver{err: errors.New("geocoder down")}, nil)

	res, err := ing.Ingest(context.Background(), "parcela.geojson", []byte(squareFeatureCollection))

	require.NoError(t, err, "only parse failures raise")
	assert.Nil(t, res.Locality)
	assert.Equal(t, "Polygon", res.Polygon.Type)
}

func TestIngest_ArchiverFailureIsTolerated(t *testing.T) {
	arch := &stubArchiver{err: errors.New("bucket missing")}
	ing := NewIngestor(&stubResolver{}, arch)

	_, err := ing.Ingest(context.Background(), "parcela.geojson", []byte(squareFeatureCollection))

	require.NoError(t, err)
	assert.Equal(t, []string{"parcela.geojson"}, arch.stored)
}
