// Package geodesic computes land areas from WGS84 rings. Plantation parcels
// are hectare-scale, so planar math on raw degrees is not acceptable; areas
// are evaluated on the sphere.
package geodesic

import (
	"math"

	"github.com/paulmach/orb/geo"

	"geovisor-service/internal/models"
)

const sqmPerHectare = 10000

// Area returns the geodesic area of the ring in square meters. A ring with
// fewer than 3 points is a valid transient state while drawing and yields 0.
func Area(ring models.Ring) float64 {
	if len(ring) < 3 {
		return 0
	}
	return math.Abs(geo.Area(ring.Orb()))
}

// Hectares converts a square-meter area to hectares rounded to 2 decimal
// places, half away from zero. Rounding happens on the hectare value: the
// downstream cost service states its precision contract in hectares.
func Hectares(areaM2 float64) float64 {
	return math.Round(areaM2/sqmPerHectare*100) / 100
}

// PolygonHectares is the composition used when a drawing finalizes.
func PolygonHectares(p models.Polygon) float64 {
	return Hectares(Area(p.Outer))
}
