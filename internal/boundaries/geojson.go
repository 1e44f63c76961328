// Package boundaries loads the overlay layers (states, counties, coordination
// areas, forecast zones) drawn on top of gridded maps.
package boundaries

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/ctessum/geom"
	"github.com/ctessum/geom/encoding/geojson"
)

// Shape is one feature of a layer. Geom is a geom.Polygon, geom.MultiPolygon,
// geom.LineString or geom.MultiLineString in longitude/latitude degrees.
type Shape struct {
	Geom       geom.Geom
	Properties map[string]any
}

// Paths returns every ring or line of the shape as an open path to stroke.
func (s Shape) Paths() []geom.Path {
	switch g := s.Geom.(type) {
	case geom.Polygon:
		out := make([]geom.Path, len(g))
		for i, r := range g {
			out[i] = geom.Path(r)
		}
		return out
	case geom.MultiPolygon:
		var out []geom.Path
		for _, p := range g {
			for _, r := range p {
				out = append(out, geom.Path(r))
			}
		}
		return out
	case geom.LineString:
		return []geom.Path{geom.Path(g)}
	case geom.MultiLineString:
		out := make([]geom.Path, len(g))
		for i, l := range g {
			out[i] = geom.Path(l)
		}
		return out
	}
	return nil
}

// Name returns the first non-empty of the usual name properties.
func (s Shape) Name() string {
	for _, k := range []string{"NAME", "name", "GACCName", "PSANAME", "CWA", "STATE_ZONE"} {
		if v, ok := s.Properties[k].(string); ok && v != "" {
			return v
		}
	}
	return ""
}

type featureCollection struct {
	Type     string    `json:"type"`
	Features []feature `json:"features"`
}

type feature struct {
	Type       string          `json:"type"`
	Properties map[string]any  `json:"properties"`
	Geometry   json.RawMessage `json:"geometry"`
}

// DecodeFeatureCollection reads a GeoJSON FeatureCollection. Features with a
// null geometry are skipped; unsupported geometry types are an error.
func DecodeFeatureCollection(r io.Reader) ([]Shape, error) {
	var fc featureCollection
	if err := json.NewDecoder(r).Decode(&fc); err != nil {
		return nil, fmt.Errorf("decode geojson: %w", err)
	}
	if fc.Type != "FeatureCollection" {
		return nil, fmt.Errorf("decode geojson: type %q is not a FeatureCollection", fc.Type)
	}

	shapes := make([]Shape, 0, len(fc.Features))
	for i, f := range fc.Features {
		if len(f.Geometry) == 0 || string(f.Geometry) == "null" {
			continue
		}
		g, err := decodeGeometry(f.Geometry)
		if err != nil {
			return nil, fmt.Errorf("feature %d: %w", i, err)
		}
		shapes = append(shapes, Shape{Geom: g, Properties: f.Properties})
	}
	return shapes, nil
}

func decodeGeometry(raw json.RawMessage) (geom.Geom, error) {
	g, err := geojson.Decode(raw)
	if err != nil {
		return nil, fmt.Errorf("decode geometry: %w", err)
	}
	switch g.(type) {
	case geom.Polygon, geom.MultiPolygon, geom.LineString, geom.MultiLineString:
		return g, nil
	}
	return nil, fmt.Errorf("unsupported geometry type %T", g)
}
