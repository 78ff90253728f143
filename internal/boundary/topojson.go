package boundary

import (
	"encoding/json"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// TopoJSON decoding. The boundary dataset ships as quantized topologies:
// shared borders are stored once as delta-encoded arcs and each feature
// references arcs by index (negative index = reversed arc, ones'
// complement). Decoding reverses the transform and stitches rings.

type topoTransform struct {
	Scale     [2]float64 `json:"scale"`
	Translate [2]float64 `json:"translate"`
}

type topoGeometry struct {
	Type       string          `json:"type"`
	Geometries []topoGeometry  `json:"geometries"`
	Arcs       json.RawMessage `json:"arcs"`
	Properties map[string]any  `json:"properties"`
}

type topology struct {
	Type      string                  `json:"type"`
	Transform *topoTransform          `json:"transform"`
	Objects   map[string]topoGeometry `json:"objects"`
	Arcs      [][][2]float64          `json:"arcs"`
}

// DecodeTopology parses a TopoJSON document and returns the features of all
// named objects as one GeoJSON feature collection.
func DecodeTopology(data []byte) (*geojson.FeatureCollection, error) {
	var topo topology
	if err := json.Unmarshal(data, &topo); err != nil {
		return nil, fmt.Errorf("failed to parse topology: %w", err)
	}
	if topo.Type != "Topology" {
		return nil, fmt.Errorf("document is not a Topology: %q", topo.Type)
	}

	arcs := make([][]orb.Point, len(topo.Arcs))
	for i, raw := range topo.Arcs {
		arcs[i] = decodeArc(raw, topo.Transform)
	}

	fc := geojson.NewFeatureCollection()
	for _, obj := range topo.Objects {
		if err := appendFeatures(fc, obj, arcs); err != nil {
			return nil, err
		}
	}
	return fc, nil
}

// decodeArc applies the quantization transform. Coordinates after the first
// point are deltas.
func decodeArc(raw [][2]float64, tf *topoTransform) []orb.Point {
	out := make([]orb.Point, 0, len(raw))
	if tf == nil {
		for _, c := range raw {
			out = append(out, orb.Point{c[0], c[1]})
		}
		return out
	}
	var x, y float64
	for _, c := range raw {
		x += c[0]
		y += c[1]
		out = append(out, orb.Point{
			x*tf.Scale[0] + tf.Translate[0],
			y*tf.Scale[1] + tf.Translate[1],
		})
	}
	return out
}

func appendFeatures(fc *geojson.FeatureCollection, obj topoGeometry, arcs [][]orb.Point) error {
	switch obj.Type {
	case "GeometryCollection":
		for _, child := range obj.Geometries {
			if err := appendFeatures(fc, child, arcs); err != nil {
				return err
			}
		}
		return nil
	case "Polygon":
		var ringArcs [][]int
		if err := json.Unmarshal(obj.Arcs, &ringArcs); err != nil {
			return fmt.Errorf("failed to parse polygon arcs: %w", err)
		}
		f := geojson.NewFeature(stitchPolygon(ringArcs, arcs))
		f.Properties = obj.Properties
		fc.Append(f)
		return nil
	case "MultiPolygon":
		var polyArcs [][][]int
		if err := json.Unmarshal(obj.Arcs, &polyArcs); err != nil {
			return fmt.Errorf("failed to parse multipolygon arcs: %w", err)
		}
		mp := make(orb.MultiPolygon, 0, len(polyArcs))
		for _, ringArcs := range polyArcs {
			mp = append(mp, stitchPolygon(ringArcs, arcs))
		}
		f := geojson.NewFeature(mp)
		f.Properties = obj.Properties
		fc.Append(f)
		return nil
	default:
		// Boundary datasets only carry areal features; anything else is
		// skipped rather than failing the whole document.
		return nil
	}
}

func stitchPolygon(ringArcs [][]int, arcs [][]orb.Point) orb.Polygon {
	poly := make(orb.Polygon, 0, len(ringArcs))
	for _, indexes := range ringArcs {
		poly = append(poly, stitchRing(indexes, arcs))
	}
	return poly
}

// stitchRing concatenates arcs into a closed ring, dropping the shared join
// point between consecutive arcs.
func stitchRing(indexes []int, arcs [][]orb.Point) orb.Ring {
	ring := orb.Ring{}
	for _, idx := range indexes {
		pts := arcPoints(idx, arcs)
		if len(ring) > 0 && len(pts) > 0 && ring[len(ring)-1] == pts[0] {
			pts = pts[1:]
		}
		ring = append(ring, pts...)
	}
	if len(ring) > 1 && ring[0] != ring[len(ring)-1] {
		ring = append(ring, ring[0])
	}
	return ring
}

func arcPoints(idx int, arcs [][]orb.Point) []orb.Point {
	if idx >= 0 {
		if idx >= len(arcs) {
			return nil
		}
		return arcs[idx]
	}
	// Ones' complement marks a reversed traversal.
	if ^idx >= len(arcs) {
		return nil
	}
	fwd := arcs[^idx]
	rev := make([]orb.Point, len(fwd))
	for i, p := range fwd {
		rev[len(fwd)-1-i] = p
	}
	return rev
}
