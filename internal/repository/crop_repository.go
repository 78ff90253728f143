package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/jmoiron/sqlx"

	"geovisor-service/internal/models"
)

type CropRepository struct {
	db *sqlx.DB
}

func NewCropRepository(db *sqlx.DB) *CropRepository {
	return &CropRepository{db: db}
}

// ListByLocality returns the crops offered for a locality, most common first.
func (r *CropRepository) ListByLocality(ctx context.Context, localityCode string) ([]models.Crop, error) {
	var crops []models.Crop
	query := `
		SELECT c.id, c.name, c.base_density, c.rotation_years
		FROM crop c
		JOIN locality_crop lc ON lc.crop_id = c.id
		WHERE lc.locality_code = $1
		ORDER BY lc.rank, c.name`

	err := r.db.SelectContext(ctx, &crops, query, localityCode)
	if err != nil {
		slog.Error("Failed to list crops for locality",
			"locality_code", localityCode,
			"error", err)
		return nil, fmt.Errorf("failed to list crops: %w", err)
	}
	return crops, nil
}

func (r *CropRepository) GetByID(ctx context.Context, id int64) (*models.Crop, error) {
	var crop models.Crop
	query := `
		SELECT id, name, base_density, rotation_years
		FROM crop
		WHERE id = $1`

	err := r.db.GetContext(ctx, &crop, query, id)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("crop not found")
		}
		slog.Error("Failed to get crop", "crop_id", id, "error", err)
		return nil, fmt.Errorf("failed to get crop: %w", err)
	}
	return &crop, nil
}

func (r *CropRepository) ListAll(ctx context.Context) ([]models.Crop, error) {
	var crops []models.Crop
	query := `
		SELECT id, name, base_density, rotation_years
		FROM crop
		ORDER BY name`

	err := r.db.SelectContext(ctx, &crops, query)
	if err != nil {
		slog.Error("Failed to list crops", "error", err)
		return nil, fmt.Errorf("failed to list crops: %w", err)
	}
	return crops, nil
}
