package boundary

import (
	"context"
	"log/slog"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// Style is the visual treatment of one boundary layer. Prominence increases
// strictly as the level narrows so the user always has a "you are here" cue.
type Style struct {
	Color       string  `json:"color"`
	Weight      float64 `json:"weight"`
	FillColor   string  `json:"fill_color"`
	FillOpacity float64 `json:"fill_opacity"`
}

// RenderPlan tells the presentation layer exactly what to put on screen: the
// filtered features, how to style them, and where to move the camera. The
// previous boundary layer is always removed before this one is added; only
// one boundary layer is ever on screen.
type RenderPlan struct {
	Level    Level                      `json:"level"`
	Features *geojson.FeatureCollection `json:"features"`
	Style    Style                      `json:"style"`
	Bounds   orb.Bound                  `json:"bounds"`
	MaxZoom  int                        `json:"max_zoom"`
	Padding  int                        `json:"padding"`
	Animate  bool                       `json:"animate"`
	// ReplacesPrevious tells the presenter to drop the prior boundary
	// layer before adding this one.
	ReplacesPrevious bool `json:"replaces_previous"`
}

// Labels returns the tooltip name for each filtered feature.
func (p *RenderPlan) Labels() []string {
	out := make([]string, 0, len(p.Features.Features))
	for _, f := range p.Features.Features {
		for _, key := range []string{"locality", "sub_region", "region"} {
			if name, ok := f.Properties[key].(string); ok && name != "" {
				out = append(out, name)
				break
			}
		}
	}
	return out
}

var levelStyles = map[Level]Style{
	LevelLocality:  {Color: "#06b6d4", Weight: 3, FillColor: "#06b6d4", FillOpacity: 0.2},
	LevelSubRegion: {Color: "#f59e0b", Weight: 2.5, FillColor: "#f59e0b", FillOpacity: 0.15},
	LevelRegion:    {Color: "#22c55e", Weight: 2, FillColor: "#22c55e", FillOpacity: 0.12},
}

// overviewStyle is the coarsest treatment, used when nothing is selected and
// every operating region is shown at once.
var overviewStyle = Style{Color: "#10b981", Weight: 1.5, FillColor: "#10b981", FillOpacity: 0.08}

const fitPadding = 30

// DatasetSource is what the renderer needs from the loader.
type DatasetSource interface {
	Level(ctx context.Context, level Level) (*geojson.FeatureCollection, error)
}

// Renderer maps the current selection path onto a dataset level, a filter
// and a camera move. It holds no view state of its own.
type Renderer struct {
	loader           DatasetSource
	operatingRegions []string
}

func NewRenderer(loader DatasetSource, operatingRegions []string) *Renderer {
	return &Renderer{loader: loader, operatingRegions: operatingRegions}
}

// Plan resolves the most specific selected level, filters its features and
// fits the camera. A selection that matches zero features (stale or
// mismatched name) yields (nil, nil): the caller keeps the previous view.
func (r *Renderer) Plan(ctx context.Context, region, subRegion, locality string) (*RenderPlan, error) {
	var (
		level   Level
		style   Style
		maxZoom int
		match   func(props geojson.Properties) bool
	)

	switch {
	case locality != "":
		level, style, maxZoom = LevelLocality, levelStyles[LevelLocality], 13
		match = func(p geojson.Properties) bool {
			return propEq(p, "region", region) && propEq(p, "sub_region", subRegion) && propEq(p, "locality", locality)
		}
	case subRegion != "":
		level, style, maxZoom = LevelSubRegion, levelStyles[LevelSubRegion], 11
		match = func(p geojson.Properties) bool {
			return propEq(p, "region", region) && propEq(p, "sub_region", subRegion)
		}
	case region != "":
		level, style, maxZoom = LevelRegion, levelStyles[LevelRegion], 9
		match = func(p geojson.Properties) bool {
			return propEq(p, "region", region)
		}
	default:
		// Initial overview: every operating region at once.
		level, style, maxZoom = LevelRegion, overviewStyle, 6
		match = func(p geojson.Properties) bool {
			name, _ := p["region"].(string)
			for _, allowed := range r.operatingRegions {
				if name == allowed {
					return true
				}
			}
			return false
		}
	}

	fc, err := r.loader.Level(ctx, level)
	if err != nil {
		return nil, err
	}

	filtered := geojson.NewFeatureCollection()
	for _, f := range fc.Features {
		if match(f.Properties) {
			filtered.Append(f)
		}
	}

	if len(filtered.Features) == 0 {
		slog.Warn("no boundary feature matched selection",
			"level", level, "region", region, "sub_region", subRegion, "locality", locality)
		return nil, nil
	}

	bounds := filtered.Features[0].Geometry.Bound()
	for _, f := range filtered.Features[1:] {
		bounds = bounds.Union(f.Geometry.Bound())
	}

	return &RenderPlan{
		Level:            level,
		Features:         filtered,
		Style:            style,
		Bounds:           bounds,
		MaxZoom:          maxZoom,
		Padding:          fitPadding,
		Animate:          true,
		ReplacesPrevious: true,
	}, nil
}

func propEq(p geojson.Properties, key, want string) bool {
	got, _ := p[key].(string)
	return got == want
}
