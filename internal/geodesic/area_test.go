package geodesic

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"geovisor-service/internal/models"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

// metersPerDegree at the equator for the spherical earth orb assumes.
const metersPerDegree = 111319.49079327358

// squareRingAtEquator builds an open ring approximating a planar square of
// the given side length in meters, anchored at (0, 0).
func squareRingAtEquator(side float64) models.Ring {
	d := side / metersPerDegree
	return models.Ring{
		{Lon: 0, Lat: 0},
		{Lon: d, Lat: 0},
		{Lon: d, Lat: d},
		{Lon: 0, Lat: d},
	}
}

// ============================================================================
// TEST SUITE 1: AREA
// ============================================================================

func TestArea_DegenerateRingsAreZero(t *testing.T) {
	assert.Equal(t, 0.0, Area(nil))
	assert.Equal(t, 0.0, Area(models.Ring{}))
	assert.Equal(t, 0.0, Area(models.Ring{{Lon: 1, Lat: 1}}))
	assert.Equal(t, 0.0, Area(models.Ring{{Lon: 1, Lat: 1}, {Lon: 2, Lat: 2}}))
}

func TestArea_SquareNearEquator(t *testing.T) {
	side := 100.0
	area := Area(squareRingAtEquator(side))

	assert.InDelta(t, side*side, area, side*side*0.01, "100m square should be ~10000 m²")
}

func TestArea_WindingDirectionDoesNotMatter(t *testing.T) {
	ring := squareRingAtEquator(50)
	reversed := make(models.Ring, len(ring))
	for i, p := range ring {
		reversed[len(ring)-1-i] = p
	}

	assert.InDelta(t, Area(ring), Area(reversed), 1e-6)
	assert.GreaterOrEqual(t, Area(reversed), 0.0)
}

// ============================================================================
// TEST SUITE 2: HECTARE ROUNDING
// ============================================================================

func TestHectares_TwoDecimalsHalfAwayFromZero(t *testing.T) {
	assert.Equal(t, 1.0, Hectares(10000))
	assert.Equal(t, 2.01, Hectares(20050), "half rounds away from zero")
	assert.Equal(t, 0.0, Hectares(0))
	assert.Equal(t, 0.12, Hectares(1234.9))
}

func TestPolygonHectares_FiveVertexHectare(t *testing.T) {
	// 100m x 100m square traced with 5 vertices (midpoint on the east edge).
	d := 100.0 / metersPerDegree
	p := models.Polygon{Outer: models.Ring{
		{Lon: 0, Lat: 0},
		{Lon: d, Lat: 0},
		{Lon: d, Lat: d / 2},
		{Lon: d, Lat: d},
		{Lon: 0, Lat: d},
	}}

	assert.InDelta(t, 1.00, PolygonHectares(p), 0.01)
}
