package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"

	cache "geovisor-service/internal/database/redis"
	"geovisor-service/internal/models"
)

type LocalityRepository struct {
	db          *sqlx.DB
	redisClient *redis.Client
}

func NewLocalityRepository(db *sqlx.DB, redisClient *redis.Client) *LocalityRepository {
	return &LocalityRepository{
		db:          db,
		redisClient: redisClient,
	}
}

const localityCacheTTL = 12 * time.Hour

func (r *LocalityRepository) GetByCode(ctx context.Context, code string) (*models.Locality, error) {
	if r.redisClient != nil {
		if data, err := r.redisClient.Get(ctx, cache.Key("locality", code)).Bytes(); err == nil {
			var loc models.Locality
			if err := json.Unmarshal(data, &loc); err == nil {
				return &loc, nil
			}
		}
	}

	var loc models.Locality
	query := `
		SELECT code, name, region, sub_region,
			suggested_labor_cost, suggested_seedling_cost, estimated_slope_percent
		FROM locality
		WHERE code = $1`

	err := r.db.GetContext(ctx, &loc, query, code)
	if err != nil {
		if err == sql.ErrNoRows {
			slog.Warn("Locality not found", "code", code)
			return nil, fmt.Errorf("locality not found")
		}
		slog.Error("Failed to get locality", "code", code, "error", err)
		return nil, fmt.Errorf("failed to get locality: %w", err)
	}

	if r.redisClient != nil {
		if data, err := json.Marshal(loc); err == nil {
			r.redisClient.Set(ctx, cache.Key("locality", code), data, localityCacheTTL)
		}
	}
	return &loc, nil
}

func (r *LocalityRepository) GetByName(ctx context.Context, region, subRegion, name string) (*models.Locality, error) {
	var loc models.Locality
	query := `
		SELECT code, name, region, sub_region,
			suggested_labor_cost, suggested_seedling_cost, estimated_slope_percent
		FROM locality
		WHERE region = $1 AND sub_region = $2 AND name = $3`

	err := r.db.GetContext(ctx, &loc, query, region, subRegion, name)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("locality not found")
		}
		slog.Error("Failed to get locality by name",
			"region", region,
			"sub_region", subRegion,
			"name", name,
			"error", err)
		return nil, fmt.Errorf("failed to get locality: %w", err)
	}
	return &loc, nil
}

func (r *LocalityRepository) ListBySubRegion(ctx context.Context, region, subRegion string) ([]models.Locality, error) {
	var locs []models.Locality
	query := `
		SELECT code, name, region, sub_region,
			suggested_labor_cost, suggested_seedling_cost, estimated_slope_percent
		FROM locality
		WHERE region = $1 AND sub_region = $2
		ORDER BY name`

	err := r.db.SelectContext(ctx, &locs, query, region, subRegion)
	if err != nil {
		slog.Error("Failed to list localities",
			"region", region,
			"sub_region", subRegion,
			"error", err)
		return nil, fmt.Errorf("failed to list localities: %w", err)
	}
	return locs, nil
}

func (r *LocalityRepository) ListSubRegions(ctx context.Context, region string) ([]string, error) {
	var names []string
	query := `
		SELECT DISTINCT sub_region
		FROM locality
		WHERE region = $1
		ORDER BY sub_region`

	err := r.db.SelectContext(ctx, &names, query, region)
	if err != nil {
		slog.Error("Failed to list sub-regions", "region", region, "error", err)
		return nil, fmt.Errorf("failed to list sub-regions: %w", err)
	}
	return names, nil
}

func (r *LocalityRepository) ListRegions(ctx context.Context) ([]string, error) {
	var names []string
	query := `
		SELECT DISTINCT region
		FROM locality
		ORDER BY region`

	err := r.db.SelectContext(ctx, &names, query)
	if err != nil {
		slog.Error("Failed to list regions", "error", err)
		return nil, fmt.Errorf("failed to list regions: %w", err)
	}
	return names, nil
}
