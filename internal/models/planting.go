package models

import "fmt"

type PlantingSystem string

const (
	SystemSquare      PlantingSystem = "SQUARE"
	SystemRectangular PlantingSystem = "RECTANGULAR"
	SystemTriangular  PlantingSystem = "TRIANGULAR"
)

func (s PlantingSystem) Valid() bool {
	switch s {
	case SystemSquare, SystemRectangular, SystemTriangular:
		return true
	}
	return false
}

type InputMode string

const (
	ModeMap    InputMode = "MAP"
	ModeManual InputMode = "MANUAL"
)

// PlantingConfig carries the siembra parameters the user tunes before
// requesting a calculation. ColumnDistance is only meaningful for the
// rectangular system; for the others it mirrors RowDistance.
type PlantingConfig struct {
	Sistema        PlantingSystem `json:"sistema"`
	RowDistance    float64        `json:"row_distance"`
	ColumnDistance float64        `json:"column_distance"`
	LaborCost      float64        `json:"labor_cost"`
	SeedlingCost   float64        `json:"seedling_cost"`
	SlopePercent   int            `json:"slope_percent"`
	YearStart      int            `json:"year_start"`
	YearEnd        int            `json:"year_end"`
}

// Normalize enforces the column-mirrors-row rule for non-rectangular systems.
func (c *PlantingConfig) Normalize() {
	if c.Sistema != SystemRectangular {
		c.ColumnDistance = c.RowDistance
	}
}

// PlantsPerHectare derives planting density from the spacing. The triangular
// (tresbolillo) layout packs rows at sin(60°) of the spacing.
func (c PlantingConfig) PlantsPerHectare() (float64, error) {
	if c.RowDistance <= 0 {
		return 0, fmt.Errorf("badrequest: row_distance must be greater than 0")
	}
	switch c.Sistema {
	case SystemSquare:
		return 10000 / (c.RowDistance * c.RowDistance), nil
	case SystemRectangular:
		if c.ColumnDistance <= 0 {
			return 0, fmt.Errorf("badrequest: column_distance must be greater than 0")
		}
		return 10000 / (c.RowDistance * c.ColumnDistance), nil
	case SystemTriangular:
		return 10000 / (c.RowDistance * c.RowDistance * 0.866), nil
	}
	return 0, fmt.Errorf("badrequest: unknown planting system %q", c.Sistema)
}

// Validate checks the fields required before submitting a calculation.
func (c PlantingConfig) Validate() error {
	if !c.Sistema.Valid() {
		return fmt.Errorf("badrequest: sistema must be one of SQUARE, RECTANGULAR, TRIANGULAR")
	}
	if c.RowDistance <= 0 {
		return fmt.Errorf("badrequest: row_distance must be greater than 0")
	}
	if c.LaborCost <= 0 {
		return fmt.Errorf("badrequest: labor_cost must be greater than 0")
	}
	if c.SeedlingCost <= 0 {
		return fmt.Errorf("badrequest: seedling_cost must be greater than 0")
	}
	if c.YearStart < 1 || c.YearEnd < c.YearStart {
		return fmt.Errorf("badrequest: year range %d-%d is invalid", c.YearStart, c.YearEnd)
	}
	return nil
}
