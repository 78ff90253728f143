package services

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/paulmach/orb/planar"

	"geovisor-service/internal/boundary"
	"geovisor-service/internal/models"
)

// LocalityStore is the persistent side of the directory.
type LocalityStore interface {
	GetByCode(ctx context.Context, code string) (*models.Locality, error)
	GetByName(ctx context.Context, region, subRegion, name string) (*models.Locality, error)
	ListRegions(ctx context.Context) ([]string, error)
	ListSubRegions(ctx context.Context, region string) ([]string, error)
	ListBySubRegion(ctx context.Context, region, subRegion string) ([]models.Locality, error)
}

// LocalityDirectory answers "what can I pick" questions for the cascading
// selection and reverse-looks-up a coordinate to its enclosing locality.
// Listing degrades to the built-in fallback data when the store is down;
// the reverse lookup does not, since a wrong locality is worse than none.
type LocalityDirectory struct {
	store      LocalityStore
	boundaries boundary.DatasetSource
}

func NewLocalityDirectory(store LocalityStore, boundaries boundary.DatasetSource) *LocalityDirectory {
	return &LocalityDirectory{store: store, boundaries: boundaries}
}

func (d *LocalityDirectory) Regions(ctx context.Context) ([]string, error) {
	regions, err := d.store.ListRegions(ctx)
	if err != nil {
		slog.Warn("locality store unreachable, serving fallback regions", "error", err)
		return fallbackRegions(), nil
	}
	return regions, nil
}

func (d *LocalityDirectory) SubRegions(ctx context.Context, region string) ([]string, error) {
	subs, err := d.store.ListSubRegions(ctx, region)
	if err != nil {
		slog.Warn("locality store unreachable, serving fallback sub-regions", "region", region, "error", err)
		var out []string
		for _, loc := range models.FallbackLocalities() {
			if loc.Region == region {
				out = append(out, loc.SubRegion)
			}
		}
		return out, nil
	}
	return subs, nil
}

func (d *LocalityDirectory) Localities(ctx context.Context, region, subRegion string) ([]models.Locality, error) {
	locs, err := d.store.ListBySubRegion(ctx, region, subRegion)
	if err != nil {
		slog.Warn("locality store unreachable, serving fallback localities",
			"region", region,
			"sub_region", subRegion,
			"error", err)
		var out []models.Locality
		for _, loc := range models.FallbackLocalities() {
			if loc.Region == region && loc.SubRegion == subRegion {
				out = append(out, loc)
			}
		}
		return out, nil
	}
	return locs, nil
}

func (d *LocalityDirectory) ByCode(ctx context.Context, code string) (*models.Locality, error) {
	loc, err := d.store.GetByCode(ctx, code)
	if err != nil {
		for _, fb := range models.FallbackLocalities() {
			if fb.Code == code {
				f := fb
				return &f, nil
			}
		}
		return nil, err
	}
	return loc, nil
}

// Detect finds the locality whose boundary contains the point. Returns
// (nil, nil) when the point is outside every locality in the dataset.
func (d *LocalityDirectory) Detect(ctx context.Context, lat, lon float64) (*models.Locality, error) {
	fc, err := d.boundaries.Level(ctx, boundary.LevelLocality)
	if err != nil {
		return nil, fmt.Errorf("failed to load locality boundaries: %w", err)
	}

	pt := orb.Point{lon, lat}
	feature := containingFeature(fc, pt)
	if feature == nil {
		return nil, nil
	}

	if code, ok := feature.Properties["code"].(string); ok && code != "" {
		return d.ByCode(ctx, code)
	}

	region, _ := feature.Properties["region"].(string)
	subRegion, _ := feature.Properties["sub_region"].(string)
	name, _ := feature.Properties["locality"].(string)
	loc, err := d.store.GetByName(ctx, region, subRegion, name)
	if err != nil {
		return nil, fmt.Errorf("boundary names %s/%s/%s but the directory has no record: %w",
			region, subRegion, name, err)
	}
	return loc, nil
}

// containingFeature does a cheap bounding-box reject before the exact
// point-in-polygon test. Locality boundaries do not overlap, so the first
// hit wins.
func containingFeature(fc *geojson.FeatureCollection, pt orb.Point) *geojson.Feature {
	for _, f := range fc.Features {
		if f.Geometry == nil || !f.Geometry.Bound().Contains(pt) {
			continue
		}
		switch g := f.Geometry.(type) {
		case orb.Polygon:
			if planar.PolygonContains(g, pt) {
				return f
			}
		case orb.MultiPolygon:
			if planar.MultiPolygonContains(g, pt) {
				return f
			}
		}
	}
	return nil
}

func fallbackRegions() []string {
	seen := make(map[string]bool)
	var out []string
	for _, loc := range models.FallbackLocalities() {
		if !seen[loc.Region] {
			seen[loc.Region] = true
			out = append(out, loc.Region)
		}
	}
	return out
}
