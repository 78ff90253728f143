package services

import (
	"context"

	"geovisor-service/internal/models"
)

// CropStore is the persistent side of the crop catalog.
type CropStore interface {
	ListByLocality(ctx context.Context, localityCode string) ([]models.Crop, error)
	ListAll(ctx context.Context) ([]models.Crop, error)
	GetByID(ctx context.Context, id int64) (*models.Crop, error)
}

// CropDirectory scopes the crop catalog to a locality. It satisfies the
// selection machine's CropSource; fetch errors are propagated so the
// machine can apply its own fallback list.
type CropDirectory struct {
	store CropStore
}

func NewCropDirectory(store CropStore) *CropDirectory {
	return &CropDirectory{store: store}
}

// List returns the crops offered for the locality, or the unscoped catalog
// when no locality is given.
func (d *CropDirectory) List(ctx context.Context, localityCode string) ([]models.Crop, error) {
	if localityCode == "" {
		return d.store.ListAll(ctx)
	}
	crops, err := d.store.ListByLocality(ctx, localityCode)
	if err != nil {
		return nil, err
	}
	if len(crops) == 0 {
		// Locality with no curated list gets the full catalog.
		return d.store.ListAll(ctx)
	}
	return crops, nil
}

func (d *CropDirectory) ByID(ctx context.Context, id int64) (*models.Crop, error) {
	crop, err := d.store.GetByID(ctx, id)
	if err != nil {
		for _, fb := range models.FallbackCrops() {
			if fb.ID == id {
				f := fb
				return &f, nil
			}
		}
		return nil, err
	}
	return crop, nil
}
