package models

// ============================================================================
// ADMINISTRATIVE HIERARCHY
// ============================================================================

// Locality is the smallest administrative unit. Each locality belongs to
// exactly one sub-region, which belongs to exactly one region; the boundary
// dataset enforces the tree, not this service.
type Locality struct {
	Code                  string  `json:"code" db:"code"`
	Name                  string  `json:"name" db:"name"`
	Region                string  `json:"region" db:"region"`
	SubRegion             string  `json:"sub_region" db:"sub_region"`
	SuggestedLaborCost    float64 `json:"suggested_labor_cost" db:"suggested_labor_cost"`
	SuggestedSeedlingCost float64 `json:"suggested_seedling_cost" db:"suggested_seedling_cost"`
	EstimatedSlopePercent int     `json:"estimated_slope_percent" db:"estimated_slope_percent"`
}

// SlopeFactor is the labor adjustment multiplier for the locality's terrain:
// flat below 15%, rolling up to 30%, steep above.
func (l Locality) SlopeFactor() float64 {
	switch {
	case l.EstimatedSlopePercent < 15:
		return 1.00
	case l.EstimatedSlopePercent <= 30:
		return 1.15
	default:
		return 1.30
	}
}

// Crop is a plantable species. The offered crop set depends on the locality.
type Crop struct {
	ID            int64  `json:"id" db:"id"`
	Name          string `json:"name" db:"name"`
	BaseDensity   int    `json:"base_density" db:"base_density"`
	RotationYears int    `json:"rotation_years" db:"rotation_years"`
}
