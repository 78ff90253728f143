package models

// Built-in fallback data so the tool stays usable when the directory
// services are unreachable. One known-good locality and species each.

func FallbackLocalities() []Locality {
	return []Locality{
		{
			Code:                  "221005",
			Name:                  "UCHIZA",
			Region:                "SAN MARTIN",
			SubRegion:             "TOCACHE",
			SuggestedLaborCost:    50.00,
			SuggestedSeedlingCost: 0.80,
			EstimatedSlopePercent: 15,
		},
	}
}

func FallbackCrops() []Crop {
	return []Crop{
		{ID: 1, Name: "Bolaina Blanca", BaseDensity: 1111, RotationYears: 8},
	}
}
