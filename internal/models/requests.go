package models

import "encoding/json"

// CalculationRequest is the payload the remote cost-calculation service
// accepts. Hectares carries at most 2 decimal places.
type CalculationRequest struct {
	LocalityCode     string         `json:"locality_code"`
	CropID           int64          `json:"crop_id"`
	Hectares         float64        `json:"hectares"`
	YearStart        int            `json:"year_start"`
	YearEnd          int            `json:"year_end"`
	ServicesIncluded bool           `json:"services_included"`
	Sistema          PlantingSystem `json:"sistema"`
	RowDistance      float64        `json:"row_distance"`
	ColumnDistance   float64        `json:"column_distance"`
	LaborCost        float64        `json:"labor_cost"`
	SeedlingCost     float64        `json:"seedling_cost"`
	// BoundaryWKT carries the drawn parcel when one exists, so the cost
	// service can archive it alongside the estimate.
	BoundaryWKT string `json:"boundary_wkt,omitempty"`
}

// CalculationResult is owned by the remote service; the body is relayed
// untouched to the presentation layer.
type CalculationResult struct {
	Detail json.RawMessage `json:"detail"`
}

// VertexRequest adds one vertex to the in-progress drawing.
type VertexRequest struct {
	Lon float64 `json:"lon"`
	Lat float64 `json:"lat"`
}

// SelectionRequest updates one field of the cascading selection. Empty
// fields are left untouched; clearing happens through the cascade rules.
type SelectionRequest struct {
	Region       *string  `json:"region,omitempty"`
	SubRegion    *string  `json:"sub_region,omitempty"`
	LocalityCode *string  `json:"locality_code,omitempty"`
	CropID       *int64   `json:"crop_id,omitempty"`
	InputMode    *string  `json:"input_mode,omitempty"`
	ManualArea   *float64 `json:"manual_area,omitempty"`
}

// IngestResult is what a successful geometry import returns. Locality is
// nil when the reverse lookup failed or resolved outside the dataset.
type IngestResult struct {
	Polygon        GeoJSONPolygon `json:"polygon"`
	AreaHectares   float64        `json:"area_hectares"`
	Locality       *Locality      `json:"locality,omitempty"`
	Representative Point          `json:"representative"`
}
