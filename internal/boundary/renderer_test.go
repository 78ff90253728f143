package boundary

import (
	"context"
	"errors"
	"testing"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ============================================================================
// TEST HELPERS
// ============================================================================

type stubSource struct {
	levels map[Level]*geojson.FeatureCollection
	err    error
}

func (s *stubSource) Level(_ context.Context, level Level) (*geojson.FeatureCollection, error) {
	if s.err != nil {
		return nil, s.err
	}
	return s.levels[level], nil
}

func square(minX, minY, side float64) orb.Polygon {
	return orb.Polygon{{
		{minX, minY}, {minX + side, minY}, {minX + side, minY + side}, {minX, minY + side}, {minX, minY},
	}}
}

func feature(geom orb.Geometry, props map[string]any) *geojson.Feature {
	f := geojson.NewFeature(geom)
	f.Properties = props
	return f
}

func testSource() *stubSource {
	regions := geojson.NewFeatureCollection()
	regions.Append(feature(square(0, 0, 10), map[string]any{"region": "ANCASH"}))
	regions.Append(feature(square(10, 0, 10), map[string]any{"region": "JUNIN"}))
	regions.Append(feature(square(20, 0, 10), map[string]any{"region": "ELSEWHERE"}))

	subregions := geojson.NewFeatureCollection()
	subregions.Append(feature(square(0, 0, 5), map[string]any{"region": "ANCASH", "sub_region": "HUARAZ"}))
	subregions.Append(feature(square(5, 0, 5), map[string]any{"region": "ANCASH", "sub_region": "YUNGAY"}))

	localities := geojson.NewFeatureCollection()
	localities.Append(feature(square(0, 0, 2), map[string]any{
		"region": "ANCASH", "sub_region": "HUARAZ", "locality": "INDEPENDENCIA",
	}))

	return &stubSource{levels: map[Level]*geojson.FeatureCollection{
		LevelRegion:    regions,
		LevelSubRegion: subregions,
		LevelLocality:  localities,
	}}
}

var operating = []string{"ANCASH", "JUNIN"}

// ============================================================================
// TEST SUITE 1: LEVEL POLICY
// ============================================================================

func TestPlan_LocalityWinsMostSpecific(t *testing.T) {
	r := NewRenderer(testSource(), operating)

	plan, err := r.Plan(context.Background(), "ANCASH", "HUARAZ", "INDEPENDENCIA")
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Equal(t, LevelLocality, plan.Level)
	assert.Len(t, plan.Features.Features, 1)
	assert.Equal(t, 13, plan.MaxZoom)
	assert.Equal(t, []string{"INDEPENDENCIA"}, plan.Labels())
}

func TestPlan_SubRegionLevel(t *testing.T) {
	r := NewRenderer(testSource(), operating)

	plan, err := r.Plan(context.Background(), "ANCASH", "YUNGAY", "")
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Equal(t, LevelSubRegion, plan.Level)
	assert.Equal(t, 11, plan.MaxZoom)
	assert.Equal(t, orb.Point{5, 0}, plan.Bounds.Min)
}

func TestPlan_RegionLevel(t *testing.T) {
	r := NewRenderer(testSource(), operating)

	plan, err := r.Plan(context.Background(), "JUNIN", "", "")
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Equal(t, LevelRegion, plan.Level)
	assert.Len(t, plan.Features.Features, 1)
	assert.Equal(t, 9, plan.MaxZoom)
}

func TestPlan_OverviewUsesAllowList(t *testing.T) {
	r := NewRenderer(testSource(), operating)

	plan, err := r.Plan(context.Background(), "", "", "")
	require.NoError(t, err)
	require.NotNil(t, plan)

	assert.Equal(t, LevelRegion, plan.Level)
	assert.Len(t, plan.Features.Features, 2, "ELSEWHERE is not an operating region")
	assert.Equal(t, 6, plan.MaxZoom)
	// Camera covers the union of both operating regions.
	assert.Equal(t, orb.Point{0, 0}, plan.Bounds.Min)
	assert.Equal(t, orb.Point{20, 10}, plan.Bounds.Max)
}

// ============================================================================
// TEST SUITE 2: FAILURE MODES & STYLE
// ============================================================================

func TestPlan_ZeroMatchesKeepsPreviousView(t *testing.T) {
	r := NewRenderer(testSource(), operating)

	plan, err := r.Plan(context.Background(), "ANCASH", "HUARAZ", "STALE_NAME")

	assert.NoError(t, err)
	assert.Nil(t, plan, "nil plan means: leave the previous view unchanged")
}

func TestPlan_LoaderErrorPropagates(t *testing.T) {
	r := NewRenderer(&stubSource{err: errors.New("network down")}, operating)

	plan, err := r.Plan(context.Background(), "ANCASH", "", "")

	assert.Error(t, err)
	assert.Nil(t, plan)
}

func TestPlan_ProminenceIncreasesWithSpecificity(t *testing.T) {
	r := NewRenderer(testSource(), operating)
	ctx := context.Background()

	overview, _ := r.Plan(ctx, "", "", "")
	region, _ := r.Plan(ctx, "ANCASH", "", "")
	sub, _ := r.Plan(ctx, "ANCASH", "HUARAZ", "")
	loc, _ := r.Plan(ctx, "ANCASH", "HUARAZ", "INDEPENDENCIA")

	assert.Less(t, overview.Style.Weight, region.Style.Weight)
	assert.Less(t, region.Style.Weight, sub.Style.Weight)
	assert.Less(t, sub.Style.Weight, loc.Style.Weight)
	assert.Less(t, overview.Style.FillOpacity, loc.Style.FillOpacity)
	assert.True(t, loc.Animate)
	assert.Equal(t, fitPadding, loc.Padding)
}
